// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
	"github.com/AleutianAI/AleutianGraph/services/codegraph/graph"
)

// ServiceVersion is the graph service version.
const ServiceVersion = graph.OutputVersion

// BuildRequest is the request body for POST /v1/graph/build.
type BuildRequest struct {
	// WorkspacePath is the workspace root the entity paths refer to.
	WorkspacePath string `json:"workspace_path" binding:"required"`

	// Entities are the parsed code entities.
	Entities []entity.Entity `json:"entities"`

	// FileImports maps file paths to raw import specifiers.
	FileImports entity.FileImports `json:"file_imports"`

	// FileExports maps file paths to exported names.
	FileExports entity.FileExports `json:"file_exports"`

	// Save stores the output as the workspace's latest snapshot.
	Save bool `json:"save"`
}

// Input converts the request into builder input.
func (r *BuildRequest) Input() *entity.Input {
	in := &entity.Input{
		WorkspacePath: r.WorkspacePath,
		Entities:      r.Entities,
		FileImports:   r.FileImports,
		FileExports:   r.FileExports,
	}
	if in.FileImports == nil {
		in.FileImports = entity.FileImports{}
	}
	if in.FileExports == nil {
		in.FileExports = entity.FileExports{}
	}
	return in
}

// BuildStats is the wire form of graph.BuildStats.
type BuildStats struct {
	EntitiesProcessed int            `json:"entities_processed"`
	EntitiesSkipped   int            `json:"entities_skipped"`
	DuplicateEntities int            `json:"duplicate_entities"`
	FilesProcessed    int            `json:"files_processed"`
	EdgesCreated      int            `json:"edges_created"`
	EdgesByRelation   map[string]int `json:"edges_by_relation"`
	EdgesFiltered     int            `json:"edges_filtered"`
	EdgesDeduplicated int            `json:"edges_deduplicated"`
	ImportsUnresolved int            `json:"imports_unresolved"`
	AmbiguousCalls    int            `json:"ambiguous_calls"`
	DurationMs        int64          `json:"duration_ms"`
}

func newBuildStats(s graph.BuildStats) BuildStats {
	byRelation := make(map[string]int, len(s.EdgesByRelation))
	for r, n := range s.EdgesByRelation {
		byRelation[r.String()] = n
	}
	return BuildStats{
		EntitiesProcessed: s.EntitiesProcessed,
		EntitiesSkipped:   s.EntitiesSkipped,
		DuplicateEntities: s.DuplicateEntities,
		FilesProcessed:    s.FilesProcessed,
		EdgesCreated:      s.EdgesCreated,
		EdgesByRelation:   byRelation,
		EdgesFiltered:     s.EdgesFiltered,
		EdgesDeduplicated: s.EdgesDeduplicated,
		ImportsUnresolved: s.ImportsUnresolved,
		AmbiguousCalls:    s.AmbiguousCalls,
		DurationMs:        s.Duration.Milliseconds(),
	}
}

// SkippedEntity describes an input entity that was not placed.
type SkippedEntity struct {
	Index    int    `json:"index"`
	FilePath string `json:"file_path"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
}

// BuildResponse is the response for POST /v1/graph/build.
type BuildResponse struct {
	Graph   *graph.Output   `json:"graph"`
	Stats   BuildStats      `json:"stats"`
	Skipped []SkippedEntity `json:"skipped,omitempty"`
	Saved   bool            `json:"saved"`
}

// DiffResponse is the response for GET /v1/graph/diff.
type DiffResponse struct {
	WorkspacePath string          `json:"workspace_path"`
	Diff          graph.GraphDiff `json:"diff"`
}

// WorkspacesResponse is the response for GET /v1/graph/workspaces.
type WorkspacesResponse struct {
	Workspaces []string `json:"workspaces"`
}

// HealthResponse is the response for GET /v1/graph/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Storage bool   `json:"storage"`
}

// ErrorResponse is returned for all failed requests.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`
}
