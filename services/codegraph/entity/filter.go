// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package entity

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// ExcludeFilter drops entities whose file path matches any of a set of glob
// patterns. Patterns use '/' as the separator and support '**'.
//
// A nil *ExcludeFilter keeps everything.
type ExcludeFilter struct {
	patterns []string
	globs    []glob.Glob
}

// NewExcludeFilter compiles the given glob patterns.
func NewExcludeFilter(patterns []string) (*ExcludeFilter, error) {
	f := &ExcludeFilter{}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("compile exclude pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, p)
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Excluded reports whether the slash-separated relative path matches.
func (f *ExcludeFilter) Excluded(relPath string) bool {
	if f == nil {
		return false
	}
	p := filepath.ToSlash(relPath)
	for _, g := range f.globs {
		if g.Match(p) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns.
func (f *ExcludeFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.patterns))
	copy(out, f.patterns)
	return out
}
