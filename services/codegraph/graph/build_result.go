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

import "time"

// OutputVersion is the schema version written to Metadata.Version.
const OutputVersion = "2.0.0"

// Metadata describes a build output.
type Metadata struct {
	Version            string    `json:"version"`
	CreatedAt          time.Time `json:"created_at"`
	TotalFiles         int       `json:"total_files"`
	TotalEntities      int       `json:"total_entities"`
	TotalRelationships int       `json:"total_relationships"`
	WorkspacePath      string    `json:"workspace_path"`
	BuildID            string    `json:"build_id"`
}

// Output is the serializable result of a build. Field names are consumed
// by visualization and vectorization collaborators and must stay stable.
type Output struct {
	Nodes       []*Node     `json:"nodes"`
	Edges       []*Edge     `json:"edges"`
	Communities []Community `json:"communities"`
	Metadata    Metadata    `json:"metadata"`
}

// BuildStats contains statistics about a build operation.
type BuildStats struct {
	// EntitiesProcessed is the number of code element nodes created.
	EntitiesProcessed int

	// EntitiesSkipped is the number of malformed or excluded entities.
	EntitiesSkipped int

	// DuplicateEntities counts entities whose id was already taken.
	DuplicateEntities int

	// FilesProcessed is the number of file nodes created.
	FilesProcessed int

	// EdgesCreated is the number of edges stored.
	EdgesCreated int

	// EdgesByRelation breaks EdgesCreated down per relation.
	EdgesByRelation map[Relation]int

	// EdgesFiltered counts edges dropped by the weight filter.
	EdgesFiltered int

	// EdgesDeduplicated counts edges whose triple already existed.
	EdgesDeduplicated int

	// ImportsUnresolved counts import specifiers without a target node.
	ImportsUnresolved int

	// AmbiguousCalls counts call names that matched several functions.
	AmbiguousCalls int

	// Duration is the total build time.
	Duration time.Duration
}

// BuildResult contains the output of a build plus diagnostics.
type BuildResult struct {
	// Output is the graph. Always non-nil when Build returns a nil error.
	Output *Output

	// Skipped lists entities that were not placed in the graph.
	Skipped []EntityError

	// Stats contains build statistics.
	Stats BuildStats
}

// HasSkipped returns true if any entity was skipped.
func (r *BuildResult) HasSkipped() bool {
	return len(r.Skipped) > 0
}
