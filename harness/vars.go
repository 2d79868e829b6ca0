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

import "bytes"

// Var is one decoded name/value pair of a form-encoded buffer.
type Var struct {
	Name  string
	Value string
	// HasValue is false when the segment carried no '=' at all, which is
	// not the same as an empty value.
	HasValue bool
}

// Vars holds decoded pairs in the order they appeared in the source.
type Vars []Var

// Lookup returns the value of the first variable called name and whether
// such a variable exists with a value.
func (vs Vars) Lookup(name string) (string, bool) {
	for _, v := range vs {
		if v.Name == name {
			return v.Value, v.HasValue
		}
	}
	return "", false
}

// ParseVars splits an '&' delimited buffer into decoded pairs. Empty
// segments are skipped.
func ParseVars(buf []byte) Vars {
	if len(buf) == 0 {
		return nil
	}
	count := bytes.Count(buf, []byte{'&'}) + 1

	vars := make(Vars, 0, count)
	for _, seg := range bytes.Split(buf, []byte{'&'}) {
		if len(seg) == 0 {
			continue
		}
		if len(vars) == count {
			break
		}
		name, value, ok := bytes.Cut(seg, []byte{'='})
		v := Var{Name: string(Unescape(name)), HasValue: ok}
		if ok {
			v.Value = string(Unescape(value))
		}
		vars = append(vars, v)
	}
	return vars
}
