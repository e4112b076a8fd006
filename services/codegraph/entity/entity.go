// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package entity defines the parsed code entity records consumed by the
// graph builder.
//
// Entities are produced by an upstream parser (tree-sitter extraction, Vue
// SFC splitting, etc.) and are treated as immutable input. The graph builder
// never mutates an Entity after it has been handed over.
package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedEntity is returned by Validate for records that cannot be
// turned into a graph node.
var ErrMalformedEntity = errors.New("malformed entity")

// Entity is a single parsed unit of source code.
type Entity struct {
	// FilePath is the path of the file that declares the entity. It may be
	// absolute or relative to the workspace root.
	FilePath string `json:"file_path"`

	// FileName is the base name of FilePath.
	FileName string `json:"file_name"`

	// StartLine is the 1-based first line of the entity.
	StartLine int `json:"start_line"`

	// EndLine is the 1-based last line of the entity.
	EndLine int `json:"end_line"`

	// ElementType is the parser's kind vocabulary (function, class, ...).
	ElementType string `json:"element_type"`

	// Name is the identifier of the entity.
	Name string `json:"name"`

	// CodeSnippet is the raw source text of the entity.
	CodeSnippet string `json:"code_snippet"`

	// SemanticTags are heuristic keyword labels attached by the parser.
	SemanticTags []string `json:"semantic_tags"`

	// Language is the detected source language.
	Language string `json:"language"`
}

// Validate reports whether the entity carries enough information to be
// placed in the graph.
func (e *Entity) Validate() error {
	if e == nil {
		return fmt.Errorf("%w: nil entity", ErrMalformedEntity)
	}
	if strings.TrimSpace(e.FilePath) == "" {
		return fmt.Errorf("%w: empty file_path", ErrMalformedEntity)
	}
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrMalformedEntity)
	}
	if strings.TrimSpace(e.ElementType) == "" {
		return fmt.Errorf("%w: empty element_type", ErrMalformedEntity)
	}
	if e.StartLine < 0 {
		return fmt.Errorf("%w: negative start_line %d", ErrMalformedEntity, e.StartLine)
	}
	if e.EndLine < e.StartLine {
		return fmt.Errorf("%w: end_line %d before start_line %d", ErrMalformedEntity, e.EndLine, e.StartLine)
	}
	return nil
}

// HasTag reports whether tag is one of the entity's semantic tags.
func (e *Entity) HasTag(tag string) bool {
	for _, t := range e.SemanticTags {
		if t == tag {
			return true
		}
	}
	return false
}

// FileImports maps a file path to its raw import specifiers.
type FileImports map[string][]string

// FileExports maps a file path to its exported names.
type FileExports map[string][]string

// Input is the complete payload for one graph build.
type Input struct {
	WorkspacePath string      `json:"workspace_path"`
	Entities      []Entity    `json:"entities"`
	FileImports   FileImports `json:"file_imports"`
	FileExports   FileExports `json:"file_exports"`
}

// LoadInput decodes an Input from JSON.
func LoadInput(r io.Reader) (*Input, error) {
	var in Input
	dec := json.NewDecoder(r)
	if err := dec.Decode(&in); err != nil {
		return nil, fmt.Errorf("decode entity input: %w", err)
	}
	if in.FileImports == nil {
		in.FileImports = FileImports{}
	}
	if in.FileExports == nil {
		in.FileExports = FileExports{}
	}
	return &in, nil
}

// LoadInputFile reads and decodes an Input JSON file.
func LoadInputFile(path string) (*Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open entity input %s: %w", path, err)
	}
	defer f.Close()
	return LoadInput(f)
}
