package cgiprogram

import (
	"testing"

	"github.com/caddyserver/caddy/v2/caddyconfig/caddyfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalCaddyfile(t *testing.T) {
	d := caddyfile.NewTestDispenser(`
	cgi_program nph-cgiProgram -a -b 100 {
		script_name /cgi-bin/test
		env FOO=bar BAZ=qux
		pass_env HOME
		pass_env USER
		pass_all_env
		buffer_limit 2MB
		unbuffered_output
	}`)

	var c Harness
	require.NoError(t, c.UnmarshalCaddyfile(d))
	assert.Equal(t, Harness{
		Name:             "nph-cgiProgram",
		Args:             []string{"-a", "-b", "100"},
		ScriptName:       "/cgi-bin/test",
		Envs:             []string{"FOO=bar", "BAZ=qux"},
		PassEnvs:         []string{"HOME", "USER"},
		PassAll:          true,
		BufferLimit:      2000000,
		UnbufferedOutput: true,
	}, c)
}

func TestUnmarshalCaddyfile_Bare(t *testing.T) {
	var c Harness
	require.NoError(t, c.UnmarshalCaddyfile(caddyfile.NewTestDispenser(`cgi_program`)))
	assert.Equal(t, Harness{}, c)
}

func TestUnmarshalCaddyfile_Errors(t *testing.T) {
	var tests = []struct {
		name  string
		input string
	}{
		{"bad buffer limit", "cgi_program {\n buffer_limit lots\n}"},
		{"missing buffer limit", "cgi_program {\n buffer_limit\n}"},
		{"missing script name", "cgi_program {\n script_name\n}"},
		{"empty env", "cgi_program {\n env\n}"},
		{"unknown", "cgi_program {\n frobnicate\n}"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var c Harness
			assert.Error(t, c.UnmarshalCaddyfile(caddyfile.NewTestDispenser(test.input)))
		})
	}
}
