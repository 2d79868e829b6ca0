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

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
)

// postChunk is the most ReadPost asks of the reader at once.
const postChunk = 4096

// QueryString returns the raw QUERY_STRING, or an empty buffer when unset.
func QueryString(env Env) []byte {
	return []byte(getenv(env, "QUERY_STRING"))
}

// ReadPost reads the request body from r. A declared CONTENT_LENGTH bounds
// the read; without one r is read until EOF.
//
// When r ends before the declared length the partial body is returned along
// with a *ContentError. A failing read returns no body.
func ReadPost(env Env, r io.Reader) ([]byte, error) {
	declared, hasLength := env.Lookup("CONTENT_LENGTH")

	// the declared length only bounds the read; the buffer grows as data arrives
	limit := -1
	if hasLength {
		limit = max(atoi(declared), 0)
	}

	buf := make([]byte, 0, postChunk)
	for limit < 0 || len(buf) < limit {
		want := postChunk
		if limit >= 0 {
			want = min(postChunk, limit-len(buf))
		}
		buf = slices.Grow(buf, want)
		n, err := r.Read(buf[len(buf) : len(buf)+want])
		buf = buf[:len(buf)+n]
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			if hasLength && len(buf) != limit {
				return buf, &ContentError{
					Status: http.StatusBadRequest,
					Msg:    fmt.Sprintf("Missing content data (Content-Length: %s)", declared),
				}
			}
			break
		}
		if err != nil {
			return nil, &ContentError{
				Status: http.StatusBadRequest,
				Msg:    "Couldn't read CGI input",
				Err:    err,
			}
		}
	}
	return buf, nil
}

// atoi parses a leading decimal integer the way C's atoi does: leading
// blanks and a sign are accepted, parsing stops at the first non-digit and
// an unparsable string yields 0.
func atoi(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r' || s[i] == '\v' || s[i] == '\f') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		n = n*10 + int(s[i]-'0')
		if n > 1<<31-1 {
			n = 1<<31 - 1
		}
	}
	if neg {
		return -n
	}
	return n
}
