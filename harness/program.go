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

// Package harness implements cgiProgram, a CGI test program that echoes its
// invocation (arguments, environment, query and POST variables) back as an
// HTML page and can produce synthetic responses of a given size, status and
// header count.
package harness

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

const formContentType = "application/x-www-form-urlencoded"

// Program is a single invocation of the harness.
type Program struct {
	// Args are the invocation arguments, program name first.
	Args []string
	Env  Env

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *zap.Logger
}

// Run executes the harness and returns the process exit code.
func (p *Program) Run() int {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	inv := &Invocation{Query: ParseVars(QueryString(p.Env))}
	inv.Args = ResolveArgs(p.Args, inv.Query, p.Env)
	logger.Debug("resolved arguments",
		zap.String("source", SwitchSource(inv.Query, p.Env)),
		zap.Strings("args", inv.Args))

	flags, err := ParseFlags(inv.Args)
	if err != nil {
		fmt.Fprint(p.Stderr, usage)
		logger.Error("invalid command line", zap.Error(err))
		return ExitUsage
	}
	inv.Flags = flags

	if getenv(p.Env, "REQUEST_METHOD") == "POST" {
		p.acquirePost(inv, logger)
	}

	if inv.Err != nil {
		if err := RenderError(p.Stdout, inv.Err); err != nil {
			logger.Warn("writing error response", zap.Error(err))
		}
		logger.Error("cgiProgram failed", zap.Int("status", inv.Err.Status), zap.Error(inv.Err))
		return ExitInternal
	}

	if err := Render(p.Stdout, inv, p.Env); err != nil {
		logger.Error("writing response", zap.Error(err))
		return ExitInternal
	}
	return ExitOK
}

func (p *Program) acquirePost(inv *Invocation, logger *zap.Logger) {
	in := p.Stdin
	if in == nil {
		in = io.MultiReader()
	}
	body, err := ReadPost(p.Env, in)
	var cerr *ContentError
	if errors.As(err, &cerr) {
		inv.fail(cerr)
	}
	inv.Post = body
	logger.Debug("read request body", zap.String("size", humanize.Bytes(uint64(len(body)))))

	if body != nil && getenv(p.Env, "CONTENT_TYPE") == formContentType {
		inv.PostVars = ParseVars(body)
	}
}
