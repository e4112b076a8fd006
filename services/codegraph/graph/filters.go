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

// Edge weights for relations that do not derive their weight from a score.
const (
	// StructuralWeight is the weight of CONTAINS and DEFINED_IN edges.
	StructuralWeight = 1.0

	// ImportWeight is the weight of IMPORTS edges.
	ImportWeight = 0.8

	// CallWeight is the weight of CALLS edges.
	CallWeight = 0.7
)

// RELATED_TO admission thresholds and bounds.
const (
	// SameFileRelatedThreshold is the minimum similarity (exclusive) for a
	// RELATED_TO edge between elements of the same file.
	SameFileRelatedThreshold = 0.5

	// CrossFileRelatedThreshold is the minimum similarity (exclusive) for a
	// RELATED_TO edge between elements of different files.
	CrossFileRelatedThreshold = 0.7

	// SameFileMinSharedTags is the number of tags two same-file elements
	// must share before they are scored.
	SameFileMinSharedTags = 2

	// DefaultMaxCrossFileRelated caps the number of cross-file RELATED_TO
	// edges per build.
	DefaultMaxCrossFileRelated = 50
)

// RelationshipFilters selects which relations are built and the minimum
// weight an edge needs to be kept.
//
// MinRelationWeight is not range-checked. Values of 1.0 or more drop every
// weight-bearing edge (IMPORTS, CALLS, RELATED_TO). Structural edges are
// not subject to the weight filter.
type RelationshipFilters struct {
	EnableContains        bool    `json:"enableContains" yaml:"enable_contains"`
	EnableDefinedIn       bool    `json:"enableDefinedIn" yaml:"enable_defined_in"`
	EnableImportsExports  bool    `json:"enableImportsExports" yaml:"enable_imports_exports"`
	EnableCalls           bool    `json:"enableCalls" yaml:"enable_calls"`
	EnableSemanticRelated bool    `json:"enableSemanticRelated" yaml:"enable_semantic_related"`
	MinRelationWeight     float64 `json:"minRelationWeight" yaml:"min_relation_weight"`
}

// DefaultRelationshipFilters enables every relation with a 0.3 weight floor.
func DefaultRelationshipFilters() RelationshipFilters {
	return RelationshipFilters{
		EnableContains:        true,
		EnableDefinedIn:       true,
		EnableImportsExports:  true,
		EnableCalls:           true,
		EnableSemanticRelated: true,
		MinRelationWeight:     0.3,
	}
}

// Enabled reports whether relation r is switched on.
func (f RelationshipFilters) Enabled(r Relation) bool {
	switch r {
	case RelationContains:
		return f.EnableContains
	case RelationDefinedIn:
		return f.EnableDefinedIn
	case RelationImports:
		return f.EnableImportsExports
	case RelationCalls:
		return f.EnableCalls
	case RelationRelatedTo:
		return f.EnableSemanticRelated
	default:
		return false
	}
}

// Admits reports whether an edge of relation r and the given weight passes
// the weight filter.
func (f RelationshipFilters) Admits(r Relation, weight float64) bool {
	if r.Structural() {
		return true
	}
	return weight >= f.MinRelationWeight
}
