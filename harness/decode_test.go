package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnescape(t *testing.T) {
	var tests = []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc", "abc"},
		{"empty", "", ""},
		{"plus and escape", "a+b%20c", "a b c"},
		{"upper hex", "%41%2F", "A/"},
		{"lower hex", "%2f%7e", "/~"},
		{"high byte", "%FF", "\xff"},
		{"encoded plus stays", "%2B+", "+ "},
		{"trailing percent", "ab%", "ab%"},
		{"one digit left", "ab%4", "ab%4"},
		{"non hex digits", "%zz", "S"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, string(Unescape([]byte(test.in))))
		})
	}
}

func TestUnescape_LeavesInputAlone(t *testing.T) {
	in := []byte("a+b%20c")
	Unescape(in)
	assert.Equal(t, "a+b%20c", string(in))
}

func TestUnescape_IdempotentWithoutPercent(t *testing.T) {
	for _, in := range []string{"hello", "a+b+c", "x=y&z", "++", "tab\there"} {
		once := Unescape([]byte(in))
		assert.Equal(t, string(once), string(Unescape(once)), in)
		assert.NotContains(t, string(once), "+", in)
	}
}
