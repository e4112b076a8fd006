// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "regexp"

// callPattern matches an identifier directly followed by an opening paren.
var callPattern = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)

// callStoplist holds keywords that look like calls but are not.
var callStoplist = map[string]bool{
	"if":       true,
	"for":      true,
	"while":    true,
	"switch":   true,
	"catch":    true,
	"function": true,
}

// ExtractCalls returns the distinct identifiers in snippet that appear to
// be called, in order of first appearance.
//
// This is a lexical approximation: comments and string literals are not
// stripped and there is no notion of scope. Declarations such as
// "function foo(" also yield "foo".
func ExtractCalls(snippet string) []string {
	matches := callPattern.FindAllStringSubmatch(snippet, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := m[1]
		if callStoplist[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
