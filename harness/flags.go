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

import "strings"

// nphPrefix in the program name selects non-parsed-header output.
const nphPrefix = "nph-"

// Flags is the parsed switch set of one invocation.
type Flags struct {
	Args  bool // -a
	Env   bool // -e
	Query bool // -q
	Post  bool // -p

	// NonParsedHeader makes the harness write its own status line.
	NonParsedHeader bool

	Bytes       int    // -b
	HeaderLines int    // -h
	Status      int    // -s, or 302 after -l
	Timeout     int    // -t, parsed but unused
	Location    string // -l
}

// Selected reports whether any output was asked for explicitly.
func (f Flags) Selected() bool {
	return f.Args || f.Env || f.Query || f.Post || f.Bytes != 0 || f.Location != "" || f.Status != 0
}

// ParseFlags parses switches from args, skipping args[0] and any argument
// not starting with '-'. Switches may be clustered ("-aeq"); a switch taking
// a value consumes the next argument. Parsing continues past errors and the
// first error is returned.
func ParseFlags(args []string) (Flags, error) {
	var f Flags
	var err error
	fail := func(sw byte, reason string) {
		if err == nil {
			err = &UsageError{Switch: string(sw), Reason: reason}
		}
	}

	if len(args) > 0 && strings.Contains(args[0], nphPrefix) {
		f.NonParsedHeader = true
	}

	for i := 1; i < len(args); i++ {
		if !strings.HasPrefix(args[i], "-") {
			continue
		}
		cluster := args[i][1:]
		for j := 0; j < len(cluster); j++ {
			sw := cluster[j]
			switch sw {
			case 'a':
				f.Args = true
			case 'e':
				f.Env = true
			case 'n':
				f.NonParsedHeader = true
			case 'p':
				f.Post = true
			case 'q':
				f.Query = true
			case 'b', 'h', 'l', 's', 't':
				if i+1 >= len(args) {
					fail(sw, "missing argument")
					i++
					continue
				}
				i++
				val := args[i]
				switch sw {
				case 'b':
					f.Bytes = atoi(val)
				case 'h':
					f.HeaderLines = atoi(val)
					f.NonParsedHeader = true
				case 'l':
					f.Location = val
					if f.Status == 0 {
						f.Status = 302
					}
				case 's':
					f.Status = atoi(val)
				case 't':
					f.Timeout = atoi(val)
				}
			default:
				fail(sw, "unknown switch")
			}
		}
	}
	return f, err
}
