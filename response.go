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
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// writeResponse copies a CGI response read from buf to rw. Both parsed
// (Status header) and non-parsed-header (HTTP status line) responses are
// understood.
func writeResponse(rw http.ResponseWriter, buf *bufio.Reader) error {
	headers, statusCode, err := parseHeaders(buf)
	if err != nil {
		return err
	}

	for key, values := range headers {
		for _, value := range values {
			rw.Header().Add(key, value)
		}
	}
	rw.WriteHeader(statusCode)

	// the status is out, a broken body can't be reported any more
	io.Copy(rw, buf)
	return nil
}

// parseHeaders reads the header block of a CGI response and returns the
// headers and status to send. Lines may end in \n, \r\n or \r\r\n.
func parseHeaders(buf *bufio.Reader) (http.Header, int, error) {
	headers := make(http.Header)
	statusCode := 0

	for first := true; ; first = false {
		line, err := readLine(buf)
		if err != nil {
			return nil, 0, fmt.Errorf("error reading CGI headers: %w", err)
		}

		// Empty line indicates end of headers
		if len(line) == 0 {
			break
		}

		// non-parsed-header output starts with its own status line
		if first && strings.HasPrefix(line, "HTTP/") {
			_, status, _ := strings.Cut(line, " ")
			code, err := parseStatus(status)
			if err != nil {
				return nil, 0, err
			}
			statusCode = code
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue // Skip malformed headers
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case strings.EqualFold(key, "status"):
			code, err := parseStatus(value)
			if err != nil {
				return nil, 0, err
			}
			statusCode = code
		case strings.EqualFold(key, "connection"):
			// hop-by-hop, the server owns the connection
		default:
			headers.Add(key, value)
		}
	}

	if statusCode == 0 {
		if headers.Get("Location") != "" {
			statusCode = http.StatusFound
		} else {
			statusCode = http.StatusOK
		}
	}
	return headers, statusCode, nil
}

func parseStatus(s string) (int, error) {
	code, _, _ := strings.Cut(strings.TrimSpace(s), " ")
	n, err := strconv.Atoi(code)
	if err != nil || n < 100 || n > 999 {
		return 0, fmt.Errorf("invalid CGI status %q", s)
	}
	return n, nil
}

// readLine reads a line handling \n, \r\n and \r\r\n line endings
func readLine(reader *bufio.Reader) (string, error) {
	var line []byte

	for {
		b, err := reader.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}

		switch b {
		case '\n':
			return string(line), nil
		case '\r':
			if next, err := reader.Peek(1); err == nil && next[0] == '\n' {
				reader.ReadByte()
				return string(line), nil
			}
			if next, err := reader.Peek(2); err == nil && next[0] == '\r' && next[1] == '\n' {
				reader.Discard(2)
				return string(line), nil
			}
			// Standalone \r, add to line
			line = append(line, b)
		default:
			line = append(line, b)
		}
	}
}
