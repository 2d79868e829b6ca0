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

package cgiprogram

import (
	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/caddyserver/caddy/v2/caddyconfig/httpcaddyfile"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"github.com/dustin/go-humanize"
)

func parseCaddyfile(h httpcaddyfile.Helper) (caddyhttp.MiddlewareHandler, error) {
	var c Harness
	err := c.UnmarshalCaddyfile(h.Dispenser)
	return &c, err
}

// UnmarshalCaddyfile sets up the handler from Caddyfile tokens. Syntax:
//
//	cgi_program [<matcher>] [<name> [<args...>]] {
//	    script_name <prefix>
//	    env <KEY=value...>
//	    pass_env <NAME...>
//	    pass_all_env
//	    buffer_limit <size>
//	    unbuffered_output
//	}
func (c *Harness) UnmarshalCaddyfile(d *caddyfile.Dispenser) error {
	// Multiple occurrences without matchers are merged first-come-first-serve.
	for d.Next() {
		args := d.RemainingArgs()
		if len(args) > 0 {
			c.Name = args[0]
			c.Args = append(c.Args, args[1:]...)
		}

		for nesting := d.Nesting(); d.NextBlock(nesting); {
			switch d.Val() {
			case "script_name":
				if !d.NextArg() {
					return d.ArgErr()
				}
				c.ScriptName = d.Val()
			case "env":
				envs := d.RemainingArgs()
				if len(envs) == 0 {
					return d.ArgErr()
				}
				c.Envs = append(c.Envs, envs...)
			case "pass_env":
				names := d.RemainingArgs()
				if len(names) == 0 {
					return d.ArgErr()
				}
				c.PassEnvs = append(c.PassEnvs, names...)
			case "pass_all_env":
				c.PassAll = true
			case "buffer_limit":
				if !d.NextArg() {
					return d.ArgErr()
				}
				size, err := humanize.ParseBytes(d.Val())
				if err != nil {
					return d.Errf("invalid buffer limit '%s': %v", d.Val(), err)
				}
				c.BufferLimit = int64(size)
			case "unbuffered_output":
				c.UnbufferedOutput = true
			default:
				return d.Errf("unknown subdirective: %q", d.Val())
			}
		}
	}
	return nil
}

var _ caddyfile.Unmarshaler = (*Harness)(nil)
