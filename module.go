/*
 * Copyright (c) 2017 Kurt Jung (Gmail: kurt.w.jung)
 * Copyright (c) 2020 Andreas Schneider
 *
 * Permission to use, copy, modify, and distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package cgiprogram serves the cgiProgram test harness from inside Caddy.
// Each matching request runs one harness invocation with the CGI
// environment a real CGI host would build, so server behavior can be
// checked without spawning processes.
package cgiprogram

import (
	"fmt"
	"strings"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"go.uber.org/zap"
)

const (
	defaultName        = "cgiProgram"
	defaultBufferLimit = 4 << 20
)

func init() {
	caddy.RegisterModule(Harness{})
	httpcaddyfile.RegisterHandlerDirective("cgi_program", parseCaddyfile)
	httpcaddyfile.RegisterDirectiveOrder("cgi_program", httpcaddyfile.Before, "respond")
}

// Harness implements a handler that answers requests by running cgiProgram.
type Harness struct {
	// Name of the program as seen by the harness (its first argument).
	// A name containing "nph-" produces non-parsed-header responses.
	Name string `json:"name,omitempty"`
	// Switches and other arguments passed after the name.
	Args []string `json:"args,omitempty"`
	// Path prefix reported as SCRIPT_NAME; the rest of the path becomes
	// PATH_INFO.
	ScriptName string `json:"script_name,omitempty"`
	// Extra environment entries in KEY=value form.
	Envs []string `json:"env,omitempty"`
	// Environment variables of the Caddy process passed through.
	PassEnvs []string `json:"pass_env,omitempty"`
	// Pass the whole Caddy process environment through.
	PassAll bool `json:"pass_all_env,omitempty"`
	// Chunked request bodies are held in memory up to this many bytes and
	// spilled to a temporary file beyond it.
	BufferLimit int64 `json:"buffer_limit,omitempty"`
	// Flush every write of the harness to the client.
	UnbufferedOutput bool `json:"unbuffered_output,omitempty"`

	logger *zap.Logger
}

// CaddyModule returns the Caddy module information.
func (Harness) CaddyModule() caddy.ModuleInfo {
	return caddy.ModuleInfo{
		ID:  "http.handlers.cgi_program",
		New: func() caddy.Module { return new(Harness) },
	}
}

// Provision sets up the module.
func (c *Harness) Provision(ctx caddy.Context) error {
	c.logger = ctx.Logger()
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.BufferLimit <= 0 {
		c.BufferLimit = defaultBufferLimit
	}
	return nil
}

// Validate ensures the configuration is usable.
func (c *Harness) Validate() error {
	for _, e := range c.Envs {
		if !strings.Contains(e, "=") {
			return fmt.Errorf("env entry %q is not of the form KEY=value", e)
		}
	}
	return nil
}

// Interface guards
var (
	_ caddy.Provisioner           = (*Harness)(nil)
	_ caddy.Validator             = (*Harness)(nil)
	_ caddyhttp.MiddlewareHandler = (*Harness)(nil)
)
