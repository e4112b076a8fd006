// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds a typed, weighted, multi-relational module graph
// from parsed code entities and partitions it into communities.
//
// # Lifecycle
//
// Every Build call starts from the complete entity list and creates its
// own working node and edge maps. Nothing is shared between builds, so a
// Builder may be used from several goroutines for different workspaces.
//
// # Heuristics
//
// CALLS and RELATED_TO edges are lexical and statistical signals. They are
// not the result of semantic analysis: call targets are matched by name
// alone and similarity is a weighted blend of tag, path and name overlap.
package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph operations.
var (
	// ErrBuildCancelled is returned when the context is cancelled between
	// build phases.
	ErrBuildCancelled = errors.New("build cancelled")

	// ErrNoWorkspace is returned when a build is requested without a
	// workspace path.
	ErrNoWorkspace = errors.New("workspace path is required")

	// ErrUnknownStrategy is returned for an unrecognized community strategy.
	ErrUnknownStrategy = errors.New("unknown community strategy")

	// ErrOutsideWorkspace marks an entity whose file lies outside the
	// workspace root.
	ErrOutsideWorkspace = errors.New("file outside workspace")

	// ErrExcluded marks an entity dropped by an exclude pattern.
	ErrExcluded = errors.New("file excluded")
)

// EntityError records an input entity that was skipped.
type EntityError struct {
	// Index is the position of the entity in the input list.
	Index int

	// FilePath is the entity's file path as given.
	FilePath string

	// Name is the entity's name as given.
	Name string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e EntityError) Error() string {
	return fmt.Sprintf("entity[%d] %s:%s: %v", e.Index, e.FilePath, e.Name, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e EntityError) Unwrap() error {
	return e.Err
}
