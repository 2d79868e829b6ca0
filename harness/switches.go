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

const (
	// SwitchesVar names both the query variable and the environment
	// variable that may carry the switch string.
	SwitchesVar = "HTTP_SWITCHES"

	maxSwitchBytes = 1023
	maxArgs        = 64
)

// ResolveArgs returns the arguments to parse switches from. A HTTP_SWITCHES
// query variable wins over the HTTP_SWITCHES environment variable; when
// neither is set args is returned unchanged. Otherwise the switch string is
// decoded and split on blanks, keeping args[0] as the program name.
func ResolveArgs(args []string, query Vars, env Env) []string {
	switches, ok := switchString(query, env)
	if !ok {
		return args
	}
	if len(switches) > maxSwitchBytes {
		switches = switches[:maxSwitchBytes]
	}

	resolved := make([]string, 1, maxArgs-1)
	if len(args) > 0 {
		resolved[0] = args[0]
	}
	for _, tok := range strings.FieldsFunc(string(Unescape([]byte(switches))), isSwitchBlank) {
		if len(resolved) == maxArgs-1 {
			break
		}
		resolved = append(resolved, tok)
	}
	return resolved
}

// SwitchSource names where ResolveArgs takes the switches from: "query",
// "environment" or "command line".
func SwitchSource(query Vars, env Env) string {
	if _, ok := query.Lookup(SwitchesVar); ok {
		return "query"
	}
	if _, ok := env.Lookup(SwitchesVar); ok {
		return "environment"
	}
	return "command line"
}

func switchString(query Vars, env Env) (string, bool) {
	if v, ok := query.Lookup(SwitchesVar); ok {
		return v, true
	}
	return env.Lookup(SwitchesVar)
}

func isSwitchBlank(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n'
}
