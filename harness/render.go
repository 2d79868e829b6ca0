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
	"bufio"
	"fmt"
	"io"
	"net/http"
)

// rawPostLimit is the largest unparsed body echoed back verbatim.
const rawPostLimit = 50 * 1000

// curatedEnv is printed first, in this order, when the environment is requested.
var curatedEnv = []string{
	"AUTH_TYPE",
	"CONTENT_LENGTH",
	"CONTENT_TYPE",
	"DOCUMENT_ROOT",
	"GATEWAY_INTERFACE",
	"HTTP_ACCEPT",
	"HTTP_CONNECTION",
	"HTTP_HOST",
	"HTTP_USER_AGENT",
	"PATH_INFO",
	"PATH_TRANSLATED",
	"QUERY_STRING",
	"REMOTE_ADDR",
	"REQUEST_METHOD",
	"REQUEST_URI",
	"REMOTE_USER",
	"SCRIPT_NAME",
	"SERVER_ADDR",
	"SERVER_NAME",
	"SERVER_PORT",
	"SERVER_PROTOCOL",
	"SERVER_SOFTWARE",
}

// Invocation carries one run of the harness from switch resolution to
// rendering.
type Invocation struct {
	Args  []string
	Flags Flags

	Query Vars

	// Post is nil unless a request body was read.
	Post     []byte
	PostVars Vars

	// Err is the first acquisition error; once set it is never replaced.
	Err *ContentError
}

func (inv *Invocation) fail(err *ContentError) {
	if inv.Err == nil {
		inv.Err = err
	}
}

// RenderError writes the minimal error page for err.
func RenderError(w io.Writer, err *ContentError) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "HTTP/1.0 %d %s\r\n\r\n", err.Status, err.Error())
	fmt.Fprintf(bw, "<HTML><BODY><p>Error: %d -- %s</p></BODY></HTML>\r\n", err.Status, err.Error())
	return bw.Flush()
}

// Render writes the response for inv: headers, the optional synthetic
// body, then the HTML report of whatever sections were selected.
func Render(w io.Writer, inv *Invocation, env Env) error {
	bw := bufio.NewWriter(w)
	f := inv.Flags

	if f.NonParsedHeader {
		if f.Status == 0 {
			bw.WriteString("HTTP/1.0 200 OK\r\n")
		} else {
			fmt.Fprintf(bw, "HTTP/1.0 %d %s\r\n", f.Status, http.StatusText(f.Status))
		}
		bw.WriteString("Connection: close\r\n")
		bw.WriteString("X-CGI-CustomHeader: Any value at all\r\n")
	}
	bw.WriteString("Content-type: text/html\r\n")
	for i := 0; i < f.HeaderLines; i++ {
		fmt.Fprintf(bw, "X-CGI-%d: A loooooooooooooooooooooooong string\r\n", i)
	}
	if f.Location != "" {
		fmt.Fprintf(bw, "Location: %s\r\n", f.Location)
	}
	if f.Status != 0 {
		fmt.Fprintf(bw, "Status: %d\r\n", f.Status)
	}
	bw.WriteString("\r\n")

	if !f.Selected() {
		f.Args, f.Env, f.Query, f.Post = true, true, true, true
	}

	writeBytes(bw, f.Bytes)

	bw.WriteString("<HTML><TITLE>cgiProgram: Output</TITLE><BODY>\r\n")
	if f.Args {
		bw.WriteString("<H2>Args</H2>\r\n")
		for i, arg := range inv.Args {
			fmt.Fprintf(bw, "<P>ARG[%d]=%s</P>\r\n", i, arg)
		}
	}
	if f.Env {
		writeEnv(bw, env)
	}
	if f.Query {
		writeQuery(bw, inv.Query)
	}
	if f.Post {
		writePost(bw, inv.Post, inv.PostVars)
	}
	bw.WriteString("</BODY></HTML>\r\n")
	return bw.Flush()
}

// writeBytes writes n digits cycling through 0-9 with a CRLF after every
// ten. Each CRLF also raises the bound by two, so more than n digits come
// out; clients measuring response sizes depend on this.
func writeBytes(bw *bufio.Writer, n int) {
	j := 0
	for i := 0; i < n; i++ {
		bw.WriteByte('0' + byte(j))
		j++
		if j > 9 {
			n++
			bw.WriteByte('\r')
			n++
			bw.WriteByte('\n')
			j = 0
		}
	}
}

func writeEnv(bw *bufio.Writer, env Env) {
	bw.WriteString("<H2>Environment Variables</H2>\r\n")
	for _, key := range curatedEnv {
		fmt.Fprintf(bw, "<P>%s=%s</P>\r\n", key, getenv(env, key))
	}
	bw.WriteString("\r\n<H2>All Defined Environment Variables</H2>\r\n")
	for _, kv := range env.Environ() {
		fmt.Fprintf(bw, "<P>%s</P>\r\n", kv)
	}
	bw.WriteString("\r\n")
}

func writeQuery(bw *bufio.Writer, query Vars) {
	if len(query) == 0 {
		bw.WriteString("<H2>No Query String Found</H2>\r\n")
	} else {
		bw.WriteString("<H2>Decoded Query String Variables</H2>\r\n")
		for _, v := range query {
			fmt.Fprintf(bw, "<p>QVAR %s=%s</p>\r\n", v.Name, v.Value)
		}
	}
	bw.WriteString("\r\n")
}

func writePost(bw *bufio.Writer, body []byte, vars Vars) {
	switch {
	case len(vars) > 0:
		bw.WriteString("<H2>Decoded Post Variables</H2>\r\n")
		for _, v := range vars {
			fmt.Fprintf(bw, "<p>PVAR %s=%s</p>\r\n", v.Name, v.Value)
		}
	case body != nil && len(body) < rawPostLimit:
		bw.Write(body)
	case body != nil:
		fmt.Fprintf(bw, "<H2>Post Data %d bytes found</H2>\r\n", len(body))
	default:
		bw.WriteString("<H2>No Post Data Found</H2>\r\n")
	}
	bw.WriteString("\r\n")
}
