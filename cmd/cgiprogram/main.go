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

// Command cgiprogram is a CGI test program. Run it from a web server to see
// what the server passed to it, or to produce responses of a given shape.
//
//	cgiprogram [switches]
//	    -a            output the args
//	    -b bytes      output content "bytes" long
//	    -e            output the environment
//	    -h lines      output header "lines" long
//	    -l location   output "location" header
//	    -n            non-parsed-header output
//	    -p            output the post data
//	    -q            output the query data
//	    -s status     output "status" header
//	    -t timeout    accepted, no effect
//
// With no switches args, env, query and post data are all output. The
// switches can also be passed in the HTTP_SWITCHES query variable or
// environment variable, e.g. HTTP_SWITCHES="-a -e -q".
package main

import (
	"os"

	"github.com/aksdb/cgiprogram/harness"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	logger := newLogger()

	p := &harness.Program{
		Args:   os.Args,
		Env:    harness.OSEnv{},
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	}
	code := p.Run()
	logger.Sync()
	os.Exit(code)
}

// newLogger logs to stderr, which is the server's error log. Stdout carries
// the response and must stay clean.
func newLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if v, ok := os.LookupEnv("CGIPROGRAM_LOG_LEVEL"); ok {
		if err := level.Set(v); err != nil {
			level = zapcore.WarnLevel
		}
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger.Named("cgiProgram")
}
