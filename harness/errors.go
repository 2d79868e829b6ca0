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

package harness

import "fmt"

// Process exit codes.
const (
	ExitOK       = 0
	ExitInternal = 2
	ExitUsage    = 255
)

const usage = "usage: cgiProgram -aenp [-b bytes] [-h lines]\n" +
	"\t[-l location] [-s status] [-t timeout]\n" +
	"\tor set the HTTP_SWITCHES environment variable\n"

// UsageError reports an unknown switch or a switch missing its argument.
type UsageError struct {
	Switch string
	Reason string
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("switch -%s: %s", e.Switch, e.Reason)
}

// ContentError reports a request body that could not be fully acquired.
// Status is the HTTP status the error page is rendered with.
type ContentError struct {
	Status int
	Msg    string
	Err    error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ContentError) Unwrap() error { return e.Err }
