package cgiprogram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caddyserver/caddy/v2"
	"github.com/caddyserver/caddy/v2/modules/caddyhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *Harness, r *http.Request) (*httptest.ResponseRecorder, error) {
	t.Helper()
	repl := caddy.NewReplacer()
	r = r.WithContext(context.WithValue(r.Context(), caddy.ReplacerCtxKey, repl))
	w := httptest.NewRecorder()
	next := caddyhttp.HandlerFunc(func(http.ResponseWriter, *http.Request) error {
		t.Fatal("next handler must not be called")
		return nil
	})
	return w, h.ServeHTTP(w, r, next)
}

func TestServeHTTP_Get(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-e", "-q"}, ScriptName: "/foo"}
	r := httptest.NewRequest("GET", "http://example.com/foo/bar?x=1&x=2", nil)
	r.Header.Set("User-Agent", "harness-test")
	r.Header.Set("X-Forwarded-For", "10.0.0.1")
	r.Header.Set("Proxy", "http://evil")

	w, err := serve(t, h, r)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html", w.Header().Get("Content-Type"))

	body := w.Body.String()
	for _, want := range []string{
		"<P>GATEWAY_INTERFACE=CGI/1.1</P>",
		"<P>REQUEST_METHOD=GET</P>",
		"<P>REQUEST_URI=http://example.com/foo/bar?x=1&x=2</P>",
		"<P>SCRIPT_NAME=/foo</P>",
		"<P>PATH_INFO=/bar</P>",
		"<P>QUERY_STRING=x=1&x=2</P>",
		"<P>REMOTE_ADDR=192.0.2.1</P>",
		"<P>SERVER_NAME=example.com</P>",
		"<P>SERVER_PORT=80</P>",
		"<P>HTTP_HOST=example.com</P>",
		"<P>HTTP_USER_AGENT=harness-test</P>",
		"<P>HTTP_X_FORWARDED_FOR=10.0.0.1</P>",
		"<p>QVAR x=1</p>\r\n<p>QVAR x=2</p>",
	} {
		assert.Contains(t, body, want)
	}
	assert.NotContains(t, body, "HTTP_PROXY")
}

func TestServeHTTP_NonParsedHeader(t *testing.T) {
	h := &Harness{Name: "nph-cgiProgram", Args: []string{"-s", "404"}}
	w, err := serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Any value at all", w.Header().Get("X-CGI-CustomHeader"))
	assert.Empty(t, w.Header().Get("Connection"))
	assert.Empty(t, w.Header().Get("Status"))
}

func TestServeHTTP_Location(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-l", "/elsewhere"}}
	w, err := serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/elsewhere", w.Header().Get("Location"))
}

func TestServeHTTP_FormPost(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-p"}}
	r := httptest.NewRequest("POST", "/", strings.NewReader("hello=world&a=b+c"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	w, err := serve(t, h, r)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<p>PVAR hello=world</p>\r\n<p>PVAR a=b c</p>")
}

func TestServeHTTP_ChunkedPost(t *testing.T) {
	var tests = []struct {
		name  string
		limit int64
	}{
		{"in memory", 1 << 20},
		{"spilled to disk", 4},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			h := &Harness{Name: "cgiProgram", Args: []string{"-p", "-e"}, BufferLimit: test.limit}
			r := httptest.NewRequest("POST", "/", io.NopCloser(strings.NewReader("hello=world")))
			r.ContentLength = -1
			r.TransferEncoding = []string{"chunked"}
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			w, err := serve(t, h, r)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), "<P>CONTENT_LENGTH=11</P>")
			assert.Contains(t, w.Body.String(), "<p>PVAR hello=world</p>")
		})
	}
}

func TestServeHTTP_MissingContent(t *testing.T) {
	h := &Harness{Name: "cgiProgram"}
	r := httptest.NewRequest("POST", "/", strings.NewReader("hello=world"))
	r.ContentLength = 20

	w, err := serve(t, h, r)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "<HTML><BODY><p>Error: 400 -- Missing content data (Content-Length: 20)</p></BODY></HTML>\r\n", w.Body.String())
}

func TestServeHTTP_UsageError(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-x"}}
	_, err := serve(t, h, httptest.NewRequest("GET", "/", nil))

	var herr caddyhttp.HandlerError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, http.StatusInternalServerError, herr.StatusCode)
}

func TestServeHTTP_Environment(t *testing.T) {
	t.Setenv("CGIPROGRAM_TEST_PASSED", "yes")
	t.Setenv("CGIPROGRAM_TEST_HIDDEN", "no")

	h := &Harness{
		Name:     "cgiProgram",
		Args:     []string{"-e"},
		Envs:     []string{"FOO=bar"},
		PassEnvs: []string{"CGIPROGRAM_TEST_PASSED"},
	}
	w, err := serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	body := w.Body.String()
	assert.Contains(t, body, "<P>FOO=bar</P>")
	assert.Contains(t, body, "<P>CGIPROGRAM_TEST_PASSED=yes</P>")
	assert.NotContains(t, body, "CGIPROGRAM_TEST_HIDDEN")

	h.PassAll = true
	w, err = serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Contains(t, w.Body.String(), "<P>CGIPROGRAM_TEST_HIDDEN=no</P>")
}

func TestServeHTTP_SwitchesFromQuery(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-a"}}
	w, err := serve(t, h, httptest.NewRequest("GET", "/?HTTP_SWITCHES=-b+25", nil))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(w.Body.String(), "0123456789\r\n0123456789\r\n012345678<HTML>"))
}

func TestServeHTTP_UnbufferedOutput(t *testing.T) {
	h := &Harness{Name: "cgiProgram", Args: []string{"-b", "5"}, UnbufferedOutput: true}
	w, err := serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	assert.True(t, w.Flushed)
	assert.True(t, strings.HasPrefix(w.Body.String(), "01234<HTML>"))
}

func TestServeHTTP_ConfiguredEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PROTOCOL", "HTTP/9")

	h := &Harness{
		Name:     "cgiProgram",
		Args:     []string{"-e"},
		Envs:     []string{"SERVER_SOFTWARE=custom"},
		PassEnvs: []string{"SERVER_PROTOCOL"},
	}
	w, err := serve(t, h, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)

	// once in the curated list, once in the full listing
	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "<P>SERVER_SOFTWARE=custom</P>"))
	assert.NotContains(t, body, "SERVER_SOFTWARE=caddy")
	assert.Equal(t, 2, strings.Count(body, "<P>SERVER_PROTOCOL=HTTP/9</P>"))
	assert.NotContains(t, body, "SERVER_PROTOCOL=HTTP/1.1")
}

func TestRemoveLeadingDuplicates(t *testing.T) {
	var tests = []struct {
		env  []string
		want []string
	}{
		{nil, nil},
		{[]string{"A=1", "B=2"}, []string{"A=1", "B=2"}},
		{[]string{"A=1", "B=2", "A=3"}, []string{"B=2", "A=3"}},
		{[]string{"A=1", "A=", "B=2", "A=4"}, []string{"B=2", "A=4"}},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, removeLeadingDuplicates(test.env))
	}
}
