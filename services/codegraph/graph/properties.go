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
	"encoding/json"
	"fmt"
)

// EdgeProperties is the closed set of per-relation edge payloads.
//
// Each relation has exactly one properties type; see decodeProperties for
// the mapping.
type EdgeProperties interface {
	// Text returns the human-readable description of the edge.
	Text() string

	isEdgeProperties()
}

// BaseProps carries only a description. It is used for edges decoded
// with an unknown relation.
type BaseProps struct {
	Description string `json:"description,omitempty"`
}

func (p BaseProps) Text() string    { return p.Description }
func (BaseProps) isEdgeProperties() {}

// ContainsProps is the payload of a CONTAINS edge. StartLine is set only
// for file to code element edges.
type ContainsProps struct {
	Description string `json:"description"`
	StartLine   int    `json:"start_line,omitempty"`
}

func (p ContainsProps) Text() string    { return p.Description }
func (ContainsProps) isEdgeProperties() {}

// DefinedInProps is the payload of a DEFINED_IN edge.
type DefinedInProps struct {
	Description string `json:"description"`
	StartLine   int    `json:"start_line"`
}

func (p DefinedInProps) Text() string    { return p.Description }
func (DefinedInProps) isEdgeProperties() {}

// DependencyType distinguishes ES-style imports from require calls.
type DependencyType string

const (
	DependencyImport  DependencyType = "import"
	DependencyRequire DependencyType = "require"
)

// ImportProps is the payload of an IMPORTS edge.
type ImportProps struct {
	Description    string         `json:"description"`
	ImportPath     string         `json:"import_path"`
	DependencyType DependencyType `json:"dependency_type"`
}

func (p ImportProps) Text() string    { return p.Description }
func (ImportProps) isEdgeProperties() {}

// CallProps is the payload of a CALLS edge.
type CallProps struct {
	Description string `json:"description"`
	CallName    string `json:"call_name"`
}

func (p CallProps) Text() string    { return p.Description }
func (CallProps) isEdgeProperties() {}

// RelatedProps is the payload of a RELATED_TO edge.
type RelatedProps struct {
	Description     string   `json:"description"`
	SimilarityScore float64  `json:"similarity_score"`
	CommonTags      []string `json:"common_tags"`
	SameFile        bool     `json:"same_file"`
}

func (p RelatedProps) Text() string    { return p.Description }
func (RelatedProps) isEdgeProperties() {}

// decodeProperties decodes a raw properties object for the relation.
func decodeProperties(r Relation, raw json.RawMessage) (EdgeProperties, error) {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}
	var (
		props EdgeProperties
		err   error
	)
	switch r {
	case RelationContains:
		var p ContainsProps
		err = json.Unmarshal(raw, &p)
		props = p
	case RelationDefinedIn:
		var p DefinedInProps
		err = json.Unmarshal(raw, &p)
		props = p
	case RelationImports:
		var p ImportProps
		err = json.Unmarshal(raw, &p)
		props = p
	case RelationCalls:
		var p CallProps
		err = json.Unmarshal(raw, &p)
		props = p
	case RelationRelatedTo:
		var p RelatedProps
		err = json.Unmarshal(raw, &p)
		props = p
	default:
		var p BaseProps
		err = json.Unmarshal(raw, &p)
		props = p
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s properties: %w", r, err)
	}
	return props, nil
}
