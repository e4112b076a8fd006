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

import (
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resolvableExtensions are tried, in order, when resolving an import
// specifier that omits its extension.
var resolvableExtensions = []string{".js", ".ts", ".vue", ".jsx", ".tsx"}

// defaultResolverCacheSize bounds the per-build existence cache.
const defaultResolverCacheSize = 4096

// ImportResolver maps relative import specifiers to files on disk.
//
// Only specifiers starting with '.' are resolved; bare package specifiers
// are external and never resolve. Filesystem errors count as "not found".
//
// Thread Safety: safe for concurrent use; the cache is internally locked.
type ImportResolver struct {
	exists *lru.Cache[string, bool]
}

// NewImportResolver creates a resolver with a bounded existence cache.
func NewImportResolver(cacheSize int) *ImportResolver {
	if cacheSize <= 0 {
		cacheSize = defaultResolverCacheSize
	}
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		cache = nil
	}
	return &ImportResolver{exists: cache}
}

// Resolve returns the absolute path of the file that the specifier refers
// to from importingFile, or false if nothing matches.
//
// Resolution order:
//  1. the specifier as written, when it names an existing regular file
//  2. the specifier plus each extension in resolvableExtensions
//  3. <specifier>/index plus each extension in resolvableExtensions
func (r *ImportResolver) Resolve(importingFile, specifier string) (string, bool) {
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}
	base := filepath.Join(filepath.Dir(importingFile), filepath.FromSlash(specifier))

	if r.isFile(base) {
		return base, true
	}
	for _, ext := range resolvableExtensions {
		if candidate := base + ext; r.isFile(candidate) {
			return candidate, true
		}
	}
	for _, ext := range resolvableExtensions {
		if candidate := filepath.Join(base, "index"+ext); r.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (r *ImportResolver) isFile(path string) bool {
	if r.exists != nil {
		if ok, hit := r.exists.Get(path); hit {
			return ok
		}
	}
	info, err := os.Stat(path)
	ok := err == nil && info.Mode().IsRegular()
	if r.exists != nil {
		r.exists.Add(path, ok)
	}
	return ok
}
