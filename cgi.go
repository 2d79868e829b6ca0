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
	"bytes"
	"io"
	"maps"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/aksdb/cgiprogram/harness"
)

var bufPool = sync.Pool{New: func() interface{} { return &bytes.Buffer{} }}

// passAll returns a slice of strings made up of each environment key
func passAll() (list []string) {
	envList := os.Environ() // ["HOME=/home/foo", "LVL=2", ...]
	for _, str := range envList {
		pos := strings.Index(str, "=")
		if pos > 0 {
			list = append(list, str[:pos])
		}
	}
	return
}

func (c *Harness) ServeHTTP(w http.ResponseWriter, r *http.Request, next caddyhttp.Handler) error {
	// For convenience: get the currently authenticated user; if some other middleware has set that.
	repl := r.Context().Value(caddy.ReplacerCtxKey).(*caddy.Replacer)
	var username string
	if usernameVal, exists := repl.Get("http.auth.user.id"); exists {
		if usernameVal, ok := usernameVal.(string); ok {
			username = usernameVal
		}
	}

	scriptName := repl.ReplaceAll(c.ScriptName, "")
	scriptPath := strings.TrimPrefix(r.URL.Path, scriptName)

	errorBuffer := bufPool.Get().(*bytes.Buffer)
	errorBuffer.Reset()
	defer bufPool.Put(errorBuffer)

	args := []string{repl.ReplaceAll(c.Name, "")}
	for _, str := range c.Args {
		args = append(args, repl.ReplaceAll(str, ""))
	}

	// the harness needs a CONTENT_LENGTH to know how much to read
	if len(r.TransferEncoding) > 0 && r.TransferEncoding[0] == "chunked" {
		cleanup, err := c.spoolBody(r)
		defer cleanup()
		if err != nil {
			return caddyhttp.Error(http.StatusBadRequest, err)
		}
	}

	env := buildEnv(r, scriptName, scriptPath, username)
	for _, e := range c.Envs {
		env = append(env, repl.ReplaceAll(e, ""))
	}

	var inherit []string
	if c.PassAll {
		inherit = passAll()
	} else {
		inherit = c.PassEnvs
	}
	for _, key := range inherit {
		if value := os.Getenv(key); value != "" {
			env = append(env, key+"="+value)
		}
	}

	env = removeLeadingDuplicates(env)

	pr, pw := io.Pipe()
	prog := &harness.Program{
		Args:   args,
		Env:    harness.ListEnv(env),
		Stdin:  r.Body,
		Stdout: pw,
		Stderr: errorBuffer,
		Logger: c.logger,
	}
	exited := make(chan int, 1)
	go func() {
		code := prog.Run()
		pw.Close()
		exited <- code
	}()

	var cgiWriter http.ResponseWriter = w
	if c.UnbufferedOutput {
		cgiWriter = instantWriter{w}
	}
	err := writeResponse(cgiWriter, bufio.NewReader(pr))
	pr.Close()
	code := <-exited

	if c.logger != nil && errorBuffer.Len() > 0 {
		c.logger.Error("Error from CGI Application", zap.Stringer("Stderr", errorBuffer))
	}
	if code != harness.ExitOK && c.logger != nil {
		c.logger.Warn("cgiProgram exited abnormally", zap.Int("code", code))
	}
	if err != nil {
		return caddyhttp.Error(http.StatusInternalServerError, err)
	}
	return nil
}

// spoolBody reads a chunked request body into memory, or into a temporary
// file once BufferLimit is exceeded, and sets the request's content length.
// The returned cleanup func must always be called.
func (c *Harness) spoolBody(r *http.Request) (func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	body := r.Body
	cleanups = append(cleanups, func() { body.Close() })

	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	cleanups = append(cleanups, func() { bufPool.Put(buf) })
	if buf.Cap() < int(c.BufferLimit) {
		buf.Grow(int(c.BufferLimit) + bytes.MinRead)
	}

	size, err := io.CopyN(buf, body, c.BufferLimit)
	if err != nil && err != io.EOF {
		return cleanup, err
	}

	// if the buffer is full there is probably more,
	// so use a tempfile to read the rest and use that as request body
	if size == c.BufferLimit {
		tempfile, err := os.CreateTemp("", "cgi_body_*")
		if err != nil {
			return cleanup, err
		}
		cleanups = append(cleanups, func() {
			tempfile.Close()
			os.Remove(tempfile.Name())
		})

		// write the already read bytes
		_, err = tempfile.Write(buf.Bytes())
		if err != nil {
			return cleanup, err
		}

		// reuse the bytes slice of the buffer to copy the rest of the body to the tempfile
		remainingSize, err := io.CopyBuffer(tempfile, body, buf.Bytes())
		if err != nil {
			return cleanup, err
		}
		size += remainingSize

		// seek to start, so it can be read from the beginning
		_, err = tempfile.Seek(0, io.SeekStart)
		if err != nil {
			return cleanup, err
		}
		r.Body = tempfile
		if c.logger != nil {
			c.logger.Debug("spooled request body to disk",
				zap.String("file", tempfile.Name()),
				zap.String("size", humanize.Bytes(uint64(size))))
		}
	} else {
		r.Body = io.NopCloser(buf)
	}

	// all the request body is read, so it isn't chunked anymore
	r.TransferEncoding = nil
	r.Header.Del("Transfer-Encoding")

	// we can set the size of the request body now that we read everything
	sizeStr := strconv.FormatInt(size, 10)
	r.Header.Set("Content-Length", sizeStr)
	r.ContentLength = size
	return cleanup, nil
}

// buildEnv builds the CGI metavariables for r.
func buildEnv(r *http.Request, scriptName, pathInfo, username string) []string {
	host, port := splitHostPort(r)
	env := []string{
		"GATEWAY_INTERFACE=CGI/1.1",
		"REQUEST_METHOD=" + r.Method,
		"REQUEST_URI=" + r.RequestURI,
		"SCRIPT_NAME=" + scriptName,
		"PATH_INFO=" + pathInfo,
		"QUERY_STRING=" + r.URL.RawQuery,
		"SERVER_NAME=" + host,
		"SERVER_PORT=" + port,
		"SERVER_PROTOCOL=" + r.Proto,
		"SERVER_SOFTWARE=caddy",
		"REMOTE_USER=" + username,
	}
	if remoteHost, remotePort, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		env = append(env, "REMOTE_ADDR="+remoteHost, "REMOTE_HOST="+remoteHost, "REMOTE_PORT="+remotePort)
	} else {
		env = append(env, "REMOTE_ADDR="+r.RemoteAddr, "REMOTE_HOST="+r.RemoteAddr)
	}
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		if serverAddr, _, err := net.SplitHostPort(addr.String()); err == nil {
			env = append(env, "SERVER_ADDR="+serverAddr)
		}
	}
	if r.TLS != nil {
		env = append(env, "HTTPS=on")
	}
	if r.ContentLength > 0 {
		env = append(env, "CONTENT_LENGTH="+strconv.FormatInt(r.ContentLength, 10))
	}
	if ctype := r.Header.Get("Content-Type"); ctype != "" {
		env = append(env, "CONTENT_TYPE="+ctype)
	}

	// Add HTTP headers as CGI variables
	for _, key := range slices.Sorted(maps.Keys(r.Header)) {
		switch key {
		case "Content-Type", "Content-Length", "Proxy":
			// Proxy is skipped so HTTP_PROXY can't be set by a client (httpoxy)
			continue
		}
		name := strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
		env = append(env, "HTTP_"+name+"="+strings.Join(r.Header.Values(key), ", "))
	}
	if r.Header.Get("Host") == "" && r.Host != "" {
		env = append(env, "HTTP_HOST="+r.Host)
	}
	return env
}

// removeLeadingDuplicates drops all but the last definition of each key,
// so configured env entries override the built metavariables.
func removeLeadingDuplicates(env []string) (ret []string) {
	seen := make(map[string]bool, len(env))
	for i := len(env) - 1; i >= 0; i-- {
		key, _, _ := strings.Cut(env[i], "=")
		if seen[key] {
			continue
		}
		seen[key] = true
		ret = append(ret, env[i])
	}
	slices.Reverse(ret)
	return
}

// splitHostPort extracts the server name and port from the request
func splitHostPort(r *http.Request) (string, string) {
	if host, port, err := net.SplitHostPort(r.Host); err == nil {
		return host, port
	}
	if r.TLS != nil {
		return r.Host, "443"
	}
	return r.Host, "80"
}

type instantWriter struct {
	http.ResponseWriter
}

func (iw instantWriter) Write(b []byte) (int, error) {
	n, err := iw.ResponseWriter.Write(b)
	if f, ok := iw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}
