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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
)

// BuilderOptions configures Builder behavior.
type BuilderOptions struct {
	// Filters selects relations and the minimum edge weight.
	Filters RelationshipFilters

	// Strategy selects the community detector.
	// Default: StrategyConnectivity
	Strategy CommunityStrategy

	// ProbeWorkers bounds concurrent file stat/read probes.
	// Default: runtime.NumCPU()
	ProbeWorkers int

	// ResolverCacheSize bounds the import resolver's existence cache.
	ResolverCacheSize int

	// MaxCrossFileRelated caps cross-file RELATED_TO edges per build.
	// Default: 50
	MaxCrossFileRelated int

	// MaxCrossFileComparisons caps cross-file similarity evaluations.
	// Default: 100000
	MaxCrossFileComparisons int

	// Exclude drops entities whose relative path matches. May be nil.
	Exclude *entity.ExcludeFilter

	// Clock returns the build timestamp. Default: time.Now
	Clock func() time.Time

	// NewBuildID returns the id stamped into Metadata.BuildID.
	// Default: uuid.NewString
	NewBuildID func() string

	// Logger receives build progress. Default: slog.Default()
	Logger *slog.Logger
}

// DefaultBuilderOptions returns sensible defaults.
func DefaultBuilderOptions() BuilderOptions {
	return BuilderOptions{
		Filters:                 DefaultRelationshipFilters(),
		Strategy:                StrategyConnectivity,
		ProbeWorkers:            runtime.NumCPU(),
		ResolverCacheSize:       defaultResolverCacheSize,
		MaxCrossFileRelated:     DefaultMaxCrossFileRelated,
		MaxCrossFileComparisons: DefaultMaxCrossFileComparisons,
		Clock:                   time.Now,
		NewBuildID:              uuid.NewString,
	}
}

// BuilderOption is a functional option for configuring Builder.
type BuilderOption func(*BuilderOptions)

// WithFilters sets the relationship filters.
func WithFilters(f RelationshipFilters) BuilderOption {
	return func(o *BuilderOptions) {
		o.Filters = f
	}
}

// WithCommunityStrategy sets the community detection strategy.
func WithCommunityStrategy(s CommunityStrategy) BuilderOption {
	return func(o *BuilderOptions) {
		o.Strategy = s
	}
}

// WithProbeWorkers sets the number of concurrent file probes.
func WithProbeWorkers(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.ProbeWorkers = n
	}
}

// WithMaxCrossFileRelated sets the cross-file RELATED_TO edge cap.
func WithMaxCrossFileRelated(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxCrossFileRelated = n
	}
}

// WithMaxCrossFileComparisons sets the cross-file comparison budget.
func WithMaxCrossFileComparisons(n int) BuilderOption {
	return func(o *BuilderOptions) {
		o.MaxCrossFileComparisons = n
	}
}

// WithExcludeFilter sets the entity exclude filter.
func WithExcludeFilter(f *entity.ExcludeFilter) BuilderOption {
	return func(o *BuilderOptions) {
		o.Exclude = f
	}
}

// WithClock sets the clock used for Metadata.CreatedAt.
func WithClock(fn func() time.Time) BuilderOption {
	return func(o *BuilderOptions) {
		o.Clock = fn
	}
}

// WithBuildIDFunc sets the build id generator.
func WithBuildIDFunc(fn func() string) BuilderOption {
	return func(o *BuilderOptions) {
		o.NewBuildID = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) BuilderOption {
	return func(o *BuilderOptions) {
		o.Logger = l
	}
}

// Builder turns parsed code entities into a module graph.
//
// Thread Safety:
//
//	Builder is safe for concurrent use. Each Build() call owns its
//	working node and edge maps.
type Builder struct {
	options BuilderOptions
}

// NewBuilder creates a new Builder with the given options.
//
// Example:
//
//	builder := NewBuilder(
//	    WithFilters(DefaultRelationshipFilters()),
//	    WithCommunityStrategy(StrategyDirectory),
//	)
func NewBuilder(opts ...BuilderOption) *Builder {
	options := DefaultBuilderOptions()
	for _, opt := range opts {
		opt(&options)
	}

	if options.ProbeWorkers <= 0 {
		options.ProbeWorkers = runtime.NumCPU()
	}
	if options.MaxCrossFileRelated < 0 {
		options.MaxCrossFileRelated = 0
	}
	if options.MaxCrossFileComparisons <= 0 {
		options.MaxCrossFileComparisons = DefaultMaxCrossFileComparisons
	}
	if options.Strategy == "" {
		options.Strategy = StrategyConnectivity
	}
	if options.Clock == nil {
		options.Clock = time.Now
	}
	if options.NewBuildID == nil {
		options.NewBuildID = uuid.NewString
	}

	return &Builder{options: options}
}

// Options returns a copy of the builder's options.
func (b *Builder) Options() BuilderOptions {
	return b.options
}

// placedEntity is a validated input entity with its resolved location.
type placedEntity struct {
	entity.Entity
	index   int
	absPath string
	relPath string
	kind    ElementType
	nodeID  string
}

// kindName is the element type name, or the raw parser kind for types
// outside the closed vocabulary.
func (pe *placedEntity) kindName() string {
	if pe.kind == ElementTypeOther {
		return strings.ToLower(pe.ElementType)
	}
	return pe.kind.String()
}

// buildState holds mutable state during a single build operation.
type buildState struct {
	workspace   string
	filters     RelationshipFilters
	store       *graphStore
	entities    []*placedEntity
	fileImports map[string][]string
	fileExports map[string][]string
	result      *BuildResult
	logger      *slog.Logger
	startTime   time.Time
}

// absolutePath anchors a relative path at the workspace root.
func (s *buildState) absolutePath(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(s.workspace, p)
}

// relativePath returns the slash-separated path of abs relative to the
// workspace root, or false if abs lies outside it.
func (s *buildState) relativePath(abs string) (string, bool) {
	rel, err := filepath.Rel(s.workspace, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

// Build constructs the module graph for in.
//
// Description:
//
//	Creates the project, directory, file and code element nodes, then the
//	enabled relations, then communities. Malformed entities are skipped and
//	reported in BuildResult.Skipped; no data-quality problem fails the
//	build.
//
// Inputs:
//
//	ctx - Context for cancellation. Checked between phases.
//	in - The entity list, import/export maps and workspace path.
//
// Outputs:
//
//	*BuildResult - The output graph with diagnostics.
//	error - ErrNoWorkspace for a missing workspace, ErrBuildCancelled when
//	        ctx is done between phases.
//
// Build Phases:
//
//  1. PLACE: validate entities and resolve their paths
//  2. NODES: project, files and directories, code elements
//  3. EDGES: CONTAINS, DEFINED_IN, IMPORTS, CALLS, RELATED_TO
//  4. COMMUNITIES: the configured strategy
func (b *Builder) Build(ctx context.Context, in *entity.Input) (*BuildResult, error) {
	if in == nil || strings.TrimSpace(in.WorkspacePath) == "" {
		return nil, ErrNoWorkspace
	}

	workspace := filepath.Clean(in.WorkspacePath)
	if abs, err := filepath.Abs(workspace); err == nil {
		workspace = abs
	}

	ctx, span := startBuildSpan(ctx, workspace, len(in.Entities))
	defer span.End()

	logger := b.options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := &buildState{
		workspace:   workspace,
		filters:     b.options.Filters,
		store:       newGraphStore(),
		fileImports: make(map[string][]string),
		fileExports: make(map[string][]string),
		result: &BuildResult{
			Skipped: make([]EntityError, 0),
			Stats:   BuildStats{EdgesByRelation: make(map[Relation]int)},
		},
		logger:    logger.With("workspace", workspace),
		startTime: time.Now(),
	}

	fail := func(err error) (*BuildResult, error) {
		state.result.Stats.Duration = time.Since(state.startTime)
		recordBuildMetrics(ctx, state.result.Stats.Duration, state.result.Stats, 0, false)
		return nil, err
	}

	// Phase 1: place entities
	b.placeEntities(state, in)
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrBuildCancelled, err))
	}

	// Phase 2: nodes
	b.createProjectNode(state)
	b.createFileAndDirectoryNodes(ctx, state)
	b.createEntityNodes(state)
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrBuildCancelled, err))
	}

	// Phase 3: edges. IMPORTS must precede RELATED_TO, which is gated on it.
	if state.filters.Enabled(RelationContains) {
		b.buildContainsEdges(state)
	}
	if state.filters.Enabled(RelationDefinedIn) {
		b.buildDefinedInEdges(state)
	}
	if state.filters.Enabled(RelationImports) {
		b.buildImportEdges(state)
	}
	if state.filters.Enabled(RelationCalls) {
		b.buildCallEdges(state)
	}
	if state.filters.Enabled(RelationRelatedTo) {
		b.buildRelatedEdges(state)
	}
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("%w: %v", ErrBuildCancelled, err))
	}

	// Phase 4: communities
	nodes := state.store.nodeList()
	edges := state.store.edgeList()
	communities := DetectCommunities(nodes, edges, b.options.Strategy)

	out := &Output{
		Nodes:       nodes,
		Edges:       edges,
		Communities: communities,
		Metadata: Metadata{
			Version:            OutputVersion,
			CreatedAt:          b.options.Clock().UTC(),
			TotalFiles:         state.result.Stats.FilesProcessed,
			TotalEntities:      state.result.Stats.EntitiesProcessed,
			TotalRelationships: len(edges),
			WorkspacePath:      workspace,
			BuildID:            b.options.NewBuildID(),
		},
	}
	state.result.Output = out
	state.result.Stats.Duration = time.Since(state.startTime)

	setBuildSpanResult(span, len(nodes), len(edges), len(communities))
	recordBuildMetrics(ctx, state.result.Stats.Duration, state.result.Stats, len(communities), true)

	state.logger.Info("graph: build complete",
		"nodes", len(nodes),
		"edges", len(edges),
		"communities", len(communities),
		"skipped", len(state.result.Skipped),
		"duration_ms", state.result.Stats.Duration.Milliseconds())

	return state.result, nil
}

// placeEntities validates the input entities, resolves their paths and
// normalizes the import and export maps to workspace-relative keys.
func (b *Builder) placeEntities(state *buildState, in *entity.Input) {
	skip := func(i int, e entity.Entity, err error) {
		state.result.Skipped = append(state.result.Skipped, EntityError{
			Index:    i,
			FilePath: e.FilePath,
			Name:     e.Name,
			Err:      err,
		})
		state.result.Stats.EntitiesSkipped++
	}

	for i, e := range in.Entities {
		if err := e.Validate(); err != nil {
			skip(i, e, err)
			continue
		}
		abs := state.absolutePath(e.FilePath)
		rel, ok := state.relativePath(abs)
		if !ok {
			skip(i, e, ErrOutsideWorkspace)
			continue
		}
		if b.options.Exclude.Excluded(rel) {
			skip(i, e, ErrExcluded)
			continue
		}
		kind := ParseElementType(e.ElementType)
		pe := &placedEntity{
			Entity:  e,
			index:   i,
			absPath: abs,
			relPath: rel,
			kind:    kind,
		}
		pe.nodeID = CodeElementNodeID(rel, kind, pe.Name, pe.StartLine)
		if kind == ElementTypeOther {
			pe.nodeID = CodeElementNodeID(rel, kind, pe.kindName()+"/"+pe.Name, pe.StartLine)
		}
		state.entities = append(state.entities, pe)
	}

	for _, file := range sortedKeys(map[string][]string(in.FileImports)) {
		if rel, ok := state.relativePath(state.absolutePath(file)); ok {
			state.fileImports[rel] = append(state.fileImports[rel], in.FileImports[file]...)
		}
	}
	for _, file := range sortedKeys(map[string][]string(in.FileExports)) {
		if rel, ok := state.relativePath(state.absolutePath(file)); ok {
			state.fileExports[rel] = append(state.fileExports[rel], in.FileExports[file]...)
		}
	}

	if len(state.result.Skipped) > 0 {
		state.logger.Warn("graph: skipped entities",
			"skipped", len(state.result.Skipped), "total", len(in.Entities))
	}
}
