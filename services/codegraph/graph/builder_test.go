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
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AleutianAI/AleutianGraph/services/codegraph/entity"
)

// Helper function to create a test entity.
func testEntity(file, kind, name string, line int, snippet string, tags ...string) entity.Entity {
	return entity.Entity{
		FilePath:     file,
		FileName:     filepath.Base(file),
		StartLine:    line,
		EndLine:      line + 2,
		ElementType:  kind,
		Name:         name,
		CodeSnippet:  snippet,
		SemanticTags: tags,
		Language:     "typescript",
	}
}

// Helper function to write a file under the workspace.
func writeWorkspaceFile(t *testing.T, workspace, rel, content string) {
	t.Helper()
	full := filepath.Join(workspace, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func testBuilder(opts ...BuilderOption) *Builder {
	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	base := []BuilderOption{
		WithClock(func() time.Time { return fixed }),
		WithBuildIDFunc(func() string { return "test-build" }),
		WithProbeWorkers(2),
	}
	return NewBuilder(append(base, opts...)...)
}

func mustBuild(t *testing.T, b *Builder, in *entity.Input) *BuildResult {
	t.Helper()
	result, err := b.Build(context.Background(), in)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.Output == nil {
		t.Fatal("Build returned nil output")
	}
	return result
}

func TestBuilder_NewBuilder(t *testing.T) {
	t.Run("default options", func(t *testing.T) {
		b := NewBuilder()
		opts := b.Options()
		if opts.Strategy != StrategyConnectivity {
			t.Errorf("expected Strategy=%q, got %q", StrategyConnectivity, opts.Strategy)
		}
		if opts.ProbeWorkers <= 0 {
			t.Error("expected ProbeWorkers > 0")
		}
		if opts.MaxCrossFileRelated != DefaultMaxCrossFileRelated {
			t.Errorf("expected MaxCrossFileRelated=%d, got %d", DefaultMaxCrossFileRelated, opts.MaxCrossFileRelated)
		}
		if opts.Filters != DefaultRelationshipFilters() {
			t.Errorf("expected default filters, got %+v", opts.Filters)
		}
	})

	t.Run("custom options", func(t *testing.T) {
		b := NewBuilder(
			WithCommunityStrategy(StrategyDirectory),
			WithProbeWorkers(3),
			WithMaxCrossFileRelated(7),
			WithMaxCrossFileComparisons(11),
		)
		opts := b.Options()
		if opts.Strategy != StrategyDirectory {
			t.Errorf("expected Strategy=directory, got %q", opts.Strategy)
		}
		if opts.ProbeWorkers != 3 {
			t.Errorf("expected ProbeWorkers=3, got %d", opts.ProbeWorkers)
		}
		if opts.MaxCrossFileRelated != 7 {
			t.Errorf("expected MaxCrossFileRelated=7, got %d", opts.MaxCrossFileRelated)
		}
		if opts.MaxCrossFileComparisons != 11 {
			t.Errorf("expected MaxCrossFileComparisons=11, got %d", opts.MaxCrossFileComparisons)
		}
	})

	t.Run("invalid values fall back", func(t *testing.T) {
		b := NewBuilder(
			WithProbeWorkers(-1),
			WithMaxCrossFileRelated(-5),
			WithMaxCrossFileComparisons(0),
			WithCommunityStrategy(""),
			WithClock(nil),
			WithBuildIDFunc(nil),
		)
		opts := b.Options()
		if opts.ProbeWorkers <= 0 {
			t.Error("expected ProbeWorkers > 0")
		}
		if opts.MaxCrossFileRelated != 0 {
			t.Errorf("expected MaxCrossFileRelated=0, got %d", opts.MaxCrossFileRelated)
		}
		if opts.MaxCrossFileComparisons != DefaultMaxCrossFileComparisons {
			t.Errorf("expected default comparisons, got %d", opts.MaxCrossFileComparisons)
		}
		if opts.Strategy != StrategyConnectivity || opts.Clock == nil || opts.NewBuildID == nil {
			t.Error("expected defaults for strategy, clock and build id")
		}
	})
}

func TestBuilder_Build_Errors(t *testing.T) {
	t.Run("nil input", func(t *testing.T) {
		_, err := NewBuilder().Build(context.Background(), nil)
		if !errors.Is(err, ErrNoWorkspace) {
			t.Errorf("expected ErrNoWorkspace, got %v", err)
		}
	})

	t.Run("empty workspace", func(t *testing.T) {
		_, err := NewBuilder().Build(context.Background(), &entity.Input{WorkspacePath: "  "})
		if !errors.Is(err, ErrNoWorkspace) {
			t.Errorf("expected ErrNoWorkspace, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewBuilder().Build(ctx, &entity.Input{
			WorkspacePath: t.TempDir(),
			Entities:      []entity.Entity{testEntity("a.ts", "function", "foo", 1, "")},
		})
		if !errors.Is(err, ErrBuildCancelled) {
			t.Errorf("expected ErrBuildCancelled, got %v", err)
		}
	})
}

func TestBuilder_Build_EmptyInput(t *testing.T) {
	ws := t.TempDir()
	result := mustBuild(t, testBuilder(), &entity.Input{WorkspacePath: ws})
	out := result.Output

	if len(out.Nodes) != 1 || out.Nodes[0].ID != ProjectNodeID {
		t.Fatalf("expected only the project node, got %d nodes", len(out.Nodes))
	}
	if len(out.Edges) != 0 {
		t.Errorf("expected no edges, got %d", len(out.Edges))
	}
	if len(out.Communities) != 0 {
		t.Errorf("expected no communities, got %d", len(out.Communities))
	}
	if out.Metadata.Version != OutputVersion {
		t.Errorf("expected version %s, got %s", OutputVersion, out.Metadata.Version)
	}
	if out.Metadata.BuildID != "test-build" {
		t.Errorf("expected build id test-build, got %s", out.Metadata.BuildID)
	}
	if !out.Nodes[0].SemanticTags.Has("project") {
		t.Error("expected project tag on project node")
	}
}

func TestBuilder_Build_CallsScenario(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("a.ts", "function", "foo", 1, "function foo(){ bar(); }"),
			testEntity("a.ts", "function", "bar", 5, "function bar(){}"),
		},
	}
	out := mustBuild(t, testBuilder(), in).Output

	calls := out.EdgesOf(RelationCalls)
	if len(calls) != 1 {
		t.Fatalf("expected exactly 1 CALLS edge, got %d", len(calls))
	}
	e := calls[0]
	fooID := CodeElementNodeID("a.ts", ElementTypeFunction, "foo", 1)
	barID := CodeElementNodeID("a.ts", ElementTypeFunction, "bar", 5)
	if e.Source != fooID || e.Target != barID {
		t.Errorf("expected %s -> %s, got %s -> %s", fooID, barID, e.Source, e.Target)
	}
	props, ok := e.Properties.(CallProps)
	if !ok {
		t.Fatalf("expected CallProps, got %T", e.Properties)
	}
	if props.CallName != "bar" {
		t.Errorf("expected call_name=bar, got %q", props.CallName)
	}
	if e.Weight != CallWeight {
		t.Errorf("expected weight %v, got %v", CallWeight, e.Weight)
	}
}

func TestBuilder_Build_CallsMatchByNameOnly(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/a.ts", "function", "run", 1, "function run(){ log('x') }"),
			testEntity("src/b.ts", "function", "log", 1, ""),
			testEntity("lib/c.ts", "function", "log", 1, ""),
			testEntity("lib/c.ts", "class", "run", 9, "class run {}"),
		},
	}
	result := mustBuild(t, testBuilder(), in)

	calls := result.Output.EdgesOf(RelationCalls)
	if len(calls) != 2 {
		t.Fatalf("expected 2 CALLS edges to both log functions, got %d", len(calls))
	}
	if result.Stats.AmbiguousCalls == 0 {
		t.Error("expected ambiguous call to be counted")
	}
	for _, e := range calls {
		if e.Source != CodeElementNodeID("src/a.ts", ElementTypeFunction, "run", 1) {
			t.Errorf("unexpected caller %s", e.Source)
		}
	}
}

func TestBuilder_Build_ImportsScenario(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		ws := t.TempDir()
		writeWorkspaceFile(t, ws, "a.ts", "import { helper } from './b'\n")
		writeWorkspaceFile(t, ws, "b.ts", "export function helper() {}\n")
		in := &entity.Input{
			WorkspacePath: ws,
			Entities: []entity.Entity{
				testEntity("a.ts", "function", "main", 1, ""),
				testEntity("b.ts", "function", "helper", 1, ""),
			},
			FileImports: entity.FileImports{"a.ts": {"./b", "vue"}},
		}
		result := mustBuild(t, testBuilder(), in)

		imports := result.Output.EdgesOf(RelationImports)
		if len(imports) != 1 {
			t.Fatalf("expected 1 IMPORTS edge, got %d", len(imports))
		}
		e := imports[0]
		if e.Source != FileNodeID("a.ts") || e.Target != FileNodeID("b.ts") {
			t.Errorf("expected a.ts -> b.ts, got %s -> %s", e.Source, e.Target)
		}
		props := e.Properties.(ImportProps)
		if props.ImportPath != "./b" || props.DependencyType != DependencyImport {
			t.Errorf("unexpected import props %+v", props)
		}
		if result.Stats.ImportsUnresolved != 1 {
			t.Errorf("expected bare specifier to be unresolved, got %d", result.Stats.ImportsUnresolved)
		}
	})

	t.Run("missing target", func(t *testing.T) {
		ws := t.TempDir()
		in := &entity.Input{
			WorkspacePath: ws,
			Entities: []entity.Entity{
				testEntity("a.ts", "function", "main", 1, ""),
				testEntity("b.ts", "function", "helper", 1, ""),
			},
			FileImports: entity.FileImports{"a.ts": {"./b"}},
		}
		out := mustBuild(t, testBuilder(), in).Output
		if n := len(out.EdgesOf(RelationImports)); n != 0 {
			t.Errorf("expected 0 IMPORTS edges, got %d", n)
		}
	})

	t.Run("index file", func(t *testing.T) {
		ws := t.TempDir()
		writeWorkspaceFile(t, ws, "src/app.ts", "")
		writeWorkspaceFile(t, ws, "src/utils/index.ts", "")
		in := &entity.Input{
			WorkspacePath: ws,
			Entities: []entity.Entity{
				testEntity("src/app.ts", "function", "main", 1, ""),
				testEntity("src/utils/index.ts", "function", "format", 1, ""),
			},
			FileImports: entity.FileImports{"src/app.ts": {"./utils"}},
		}
		out := mustBuild(t, testBuilder(), in).Output
		imports := out.EdgesOf(RelationImports)
		if len(imports) != 1 || imports[0].Target != FileNodeID("src/utils/index.ts") {
			t.Fatalf("expected import of src/utils/index.ts, got %+v", imports)
		}
	})
}

func TestBuilder_Build_RelatedScenario(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/service/x.ts", "function", "getUser", 1, "", "service", "api"),
			testEntity("src/service/y.ts", "function", "getOrder", 1, "", "service", "api"),
		},
	}
	filters := DefaultRelationshipFilters()
	filters.MinRelationWeight = 0.3
	out := mustBuild(t, testBuilder(WithFilters(filters)), in).Output

	related := out.EdgesOf(RelationRelatedTo)
	if len(related) != 1 {
		t.Fatalf("expected 1 RELATED_TO edge, got %d", len(related))
	}
	props := related[0].Properties.(RelatedProps)
	if props.SameFile {
		t.Error("expected cross-file edge")
	}
	if props.SimilarityScore <= CrossFileRelatedThreshold {
		t.Errorf("expected score above %v, got %v", CrossFileRelatedThreshold, props.SimilarityScore)
	}
	if related[0].Weight != props.SimilarityScore {
		t.Errorf("expected weight to equal similarity, got %v vs %v", related[0].Weight, props.SimilarityScore)
	}
	if len(props.CommonTags) != 2 || props.CommonTags[0] != "api" || props.CommonTags[1] != "service" {
		t.Errorf("expected common tags [api service], got %v", props.CommonTags)
	}
}

func TestBuilder_Build_RelatedSameFile(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("a.ts", "function", "fetchUser", 1, "", "api", "service"),
			testEntity("a.ts", "function", "fetchUsers", 5, "", "api", "service"),
			testEntity("a.ts", "class", "UserCache", 9, "", "api", "service"),
			testEntity("a.ts", "function", "format", 20, "", "api"),
		},
	}
	out := mustBuild(t, testBuilder(), in).Output

	related := out.EdgesOf(RelationRelatedTo)
	if len(related) != 1 {
		t.Fatalf("expected 1 same-file RELATED_TO edge, got %d", len(related))
	}
	if !related[0].Properties.(RelatedProps).SameFile {
		t.Error("expected same_file=true")
	}
	want := CodeElementNodeID("a.ts", ElementTypeFunction, "fetchUsers", 5)
	if related[0].Target != want {
		t.Errorf("expected target %s, got %s", want, related[0].Target)
	}
}

func TestBuilder_Build_RelatedCap(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/x.ts", "function", "load", 1, "", "store", "api"),
			testEntity("src/y.ts", "function", "load", 1, "", "store", "api"),
			testEntity("src/z.ts", "function", "load", 1, "", "store", "api"),
		},
	}

	out := mustBuild(t, testBuilder(), in).Output
	if n := len(out.EdgesOf(RelationRelatedTo)); n != 3 {
		t.Fatalf("expected 3 uncapped RELATED_TO edges, got %d", n)
	}

	out = mustBuild(t, testBuilder(WithMaxCrossFileRelated(1)), in).Output
	if n := len(out.EdgesOf(RelationRelatedTo)); n != 1 {
		t.Errorf("expected cap of 1 RELATED_TO edge, got %d", n)
	}

	out = mustBuild(t, testBuilder(WithMaxCrossFileComparisons(2)), in).Output
	if n := len(out.EdgesOf(RelationRelatedTo)); n != 2 {
		t.Errorf("expected comparison budget to allow 2 edges, got %d", n)
	}
}

func TestBuilder_Build_WeightFilterScenario(t *testing.T) {
	ws := t.TempDir()
	writeWorkspaceFile(t, ws, "src/a.ts", "")
	writeWorkspaceFile(t, ws, "src/b.ts", "")
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/a.ts", "function", "foo", 1, "function foo(){ bar(); }", "api", "service"),
			testEntity("src/b.ts", "function", "bar", 1, "function bar(){}", "api", "service"),
		},
		FileImports: entity.FileImports{"src/a.ts": {"./b"}},
	}
	filters := DefaultRelationshipFilters()
	filters.MinRelationWeight = 1.1
	result := mustBuild(t, testBuilder(WithFilters(filters)), in)

	for _, e := range result.Output.Edges {
		if !e.Relation.Structural() {
			t.Errorf("expected only structural edges, got %s", e.Relation)
		}
		if e.Weight != StructuralWeight {
			t.Errorf("expected weight 1.0, got %v", e.Weight)
		}
	}
	if result.Stats.EdgesFiltered < 3 {
		t.Errorf("expected IMPORTS, CALLS and RELATED_TO to be filtered, got %d", result.Stats.EdgesFiltered)
	}
	if len(result.Output.EdgesOf(RelationContains)) == 0 {
		t.Error("expected CONTAINS edges to survive")
	}
}

func TestBuilder_Build_DisabledRelations(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("a.ts", "function", "foo", 1, "function foo(){ bar(); }"),
			testEntity("a.ts", "function", "bar", 5, "function bar(){}"),
		},
	}
	filters := RelationshipFilters{EnableContains: true}
	out := mustBuild(t, testBuilder(WithFilters(filters)), in).Output

	counts := out.RelationCounts()
	if counts["CONTAINS"] != 3 {
		t.Errorf("expected 3 CONTAINS edges, got %d", counts["CONTAINS"])
	}
	if len(counts) != 1 {
		t.Errorf("expected only CONTAINS edges, got %v", counts)
	}
}

func TestBuilder_Build_Structure(t *testing.T) {
	ws := t.TempDir()
	writeWorkspaceFile(t, ws, "src/components/Button.vue", "<template>\n</template>\n")
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/components/Button.vue", "component", "Button", 1, ""),
			testEntity(filepath.Join(ws, "src", "components", "Button.vue"), "method", "onClick", 4, ""),
			testEntity("src/main.ts", "function", "main", 1, ""),
			testEntity("index.ts", "variable", "app", 1, ""),
		},
	}
	result := mustBuild(t, testBuilder(), in)
	out := result.Output

	counts := out.NodeCounts()
	if counts["project"] != 1 || counts["directory"] != 2 || counts["file"] != 3 || counts["code_element"] != 4 {
		t.Fatalf("unexpected node counts %v", counts)
	}

	src, ok := out.Node(DirectoryNodeID("src"))
	if !ok || src.Level != 1 || src.ChildCount != 2 {
		t.Fatalf("unexpected src directory %+v", src)
	}
	comps, ok := out.Node(DirectoryNodeID("src/components"))
	if !ok || comps.Level != 2 || !comps.SemanticTags.Has("components") {
		t.Fatalf("unexpected components directory %+v", comps)
	}

	button, ok := out.Node(FileNodeID("src/components/Button.vue"))
	if !ok {
		t.Fatal("expected Button.vue file node")
	}
	if button.LineCount != 3 || button.Size == 0 {
		t.Errorf("expected probed size and 3 lines, got size=%d lines=%d", button.Size, button.LineCount)
	}
	if button.ElementTypes["component"] != 1 || button.ElementTypes["method"] != 1 {
		t.Errorf("unexpected element types %v", button.ElementTypes)
	}
	if !button.SemanticTags.Has("file") || !button.SemanticTags.Has("component") {
		t.Errorf("unexpected file tags %v", button.SemanticTags.Sorted())
	}

	missing, _ := out.Node(FileNodeID("src/main.ts"))
	if missing.LineCount != 1 || missing.Size != 0 {
		t.Errorf("expected default stats for missing file, got %+v", missing)
	}

	parents := make(map[string]string)
	for _, e := range out.EdgesOf(RelationContains) {
		if prev, dup := parents[e.Target]; dup {
			t.Errorf("node %s has two CONTAINS parents: %s and %s", e.Target, prev, e.Source)
		}
		parents[e.Target] = e.Source
	}
	if _, ok := parents[ProjectNodeID]; ok {
		t.Error("project node must not be contained")
	}
	for _, n := range out.Nodes {
		if n.ID == ProjectNodeID {
			continue
		}
		// Walk up to the root; a cycle would exceed the node count.
		id, steps := n.ID, 0
		for id != ProjectNodeID {
			parent, ok := parents[id]
			if !ok {
				t.Fatalf("node %s is not reachable from the project", n.ID)
			}
			id = parent
			steps++
			if steps > len(out.Nodes) {
				t.Fatalf("CONTAINS cycle at %s", n.ID)
			}
		}
	}

	if got := parents[FileNodeID("index.ts")]; got != ProjectNodeID {
		t.Errorf("expected root file under project, got %s", got)
	}
	if n := len(out.EdgesOf(RelationDefinedIn)); n != 4 {
		t.Errorf("expected 4 DEFINED_IN edges, got %d", n)
	}
}

func TestBuilder_Build_SkipsBadEntities(t *testing.T) {
	ws := t.TempDir()
	exclude, err := entity.NewExcludeFilter([]string{"vendor/**"})
	if err != nil {
		t.Fatalf("NewExcludeFilter: %v", err)
	}
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("a.ts", "function", "ok", 1, ""),
			testEntity("a.ts", "function", "", 1, ""),
			testEntity("../outside.ts", "function", "far", 1, ""),
			testEntity("vendor/lib.ts", "function", "dep", 1, ""),
			testEntity("a.ts", "function", "ok", 1, ""),
		},
	}
	result := mustBuild(t, testBuilder(WithExcludeFilter(exclude)), in)

	if !result.HasSkipped() || len(result.Skipped) != 3 {
		t.Fatalf("expected 3 skipped entities, got %d", len(result.Skipped))
	}
	if !errors.Is(result.Skipped[0], entity.ErrMalformedEntity) || result.Skipped[0].Index != 1 {
		t.Errorf("expected malformed entity at index 1, got %v", result.Skipped[0])
	}
	if !errors.Is(result.Skipped[1], ErrOutsideWorkspace) {
		t.Errorf("expected ErrOutsideWorkspace, got %v", result.Skipped[1])
	}
	if !errors.Is(result.Skipped[2], ErrExcluded) {
		t.Errorf("expected ErrExcluded, got %v", result.Skipped[2])
	}
	if result.Stats.DuplicateEntities != 1 {
		t.Errorf("expected 1 duplicate entity, got %d", result.Stats.DuplicateEntities)
	}
	if result.Output.Metadata.TotalEntities != 1 {
		t.Errorf("expected 1 entity, got %d", result.Output.Metadata.TotalEntities)
	}
}

func TestBuilder_Build_UnknownElementType(t *testing.T) {
	ws := t.TempDir()
	in := &entity.Input{
		WorkspacePath: ws,
		Entities:      []entity.Entity{testEntity("a.ts", "enum", "Color", 1, "")},
	}
	out := mustBuild(t, testBuilder(), in).Output

	n, ok := out.Node("code:a.ts:other:enum/Color:1")
	if !ok {
		t.Fatal("expected code element with raw kind in id")
	}
	if n.Kind() != ElementTypeOther || n.RawElementType != "enum" {
		t.Errorf("expected other/enum, got %s/%s", n.Kind(), n.RawElementType)
	}
}

func TestBuilder_Build_Manifest(t *testing.T) {
	ws := t.TempDir()
	writeWorkspaceFile(t, ws, "package.json", `{
		"name": "shop",
		"version": "1.2.0",
		"dependencies": {"vue": "^3.4.0", "pinia": "^2.0.0"},
		"devDependencies": {"typescript": "~5.3.0"}
	}`)
	out := mustBuild(t, testBuilder(), &entity.Input{WorkspacePath: ws}).Output

	project := out.Nodes[0]
	if project.Name != "shop" {
		t.Errorf("expected project name from manifest, got %q", project.Name)
	}
	want := []string{"pinia", "typescript", "vue3"}
	if len(project.TechStack) != len(want) {
		t.Fatalf("expected tech stack %v, got %v", want, project.TechStack)
	}
	for i := range want {
		if project.TechStack[i] != want[i] {
			t.Errorf("expected tech stack %v, got %v", want, project.TechStack)
		}
	}
	if project.Package == nil || project.Package.Version != "1.2.0" {
		t.Errorf("unexpected package info %+v", project.Package)
	}
}

func TestBuilder_Build_Deterministic(t *testing.T) {
	ws := t.TempDir()
	writeWorkspaceFile(t, ws, "src/a.ts", "")
	writeWorkspaceFile(t, ws, "src/b.ts", "")
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/a.ts", "function", "foo", 1, "function foo(){ bar(); }", "api", "service"),
			testEntity("src/a.ts", "function", "fooAll", 5, "", "api", "service"),
			testEntity("src/b.ts", "function", "bar", 1, "function bar(){}", "api", "service"),
			testEntity("lib/c.ts", "class", "Store", 1, "", "store"),
		},
		FileImports: entity.FileImports{"src/a.ts": {"./b"}, "src/b.ts": {"./a"}},
		FileExports: entity.FileExports{"src/b.ts": {"bar"}},
	}

	first, err := json.Marshal(mustBuild(t, testBuilder(), in).Output)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(mustBuild(t, testBuilder(), in).Output)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Error("expected identical output for identical input")
	}
}

func TestBuilder_Build_Invariants(t *testing.T) {
	ws := t.TempDir()
	writeWorkspaceFile(t, ws, "src/a.ts", "")
	writeWorkspaceFile(t, ws, "src/b.ts", "")
	in := &entity.Input{
		WorkspacePath: ws,
		Entities: []entity.Entity{
			testEntity("src/a.ts", "function", "foo", 1, "function foo(){ bar(); }", "api", "service"),
			testEntity("src/b.ts", "function", "bar", 1, "function bar(){}", "api", "service"),
			testEntity("lib/c.ts", "class", "Store", 1, "", "store"),
		},
		FileImports: entity.FileImports{"src/a.ts": {"./b"}},
	}
	result := mustBuild(t, testBuilder(WithCommunityStrategy(StrategyBoth)), in)
	out := result.Output

	ids := make(map[string]bool)
	for _, n := range out.Nodes {
		if ids[n.ID] {
			t.Errorf("duplicate node id %s", n.ID)
		}
		ids[n.ID] = true
	}
	edgeIDs := make(map[string]bool)
	for _, e := range out.Edges {
		if !ids[e.Source] || !ids[e.Target] {
			t.Errorf("edge %s references unknown node", e.ID)
		}
		if e.Weight < 0 || e.Weight > 1 {
			t.Errorf("edge %s weight %v out of range", e.ID, e.Weight)
		}
		if e.ID != EdgeID(e.Source, e.Target, e.Relation) {
			t.Errorf("edge %s id does not match its triple", e.ID)
		}
		if edgeIDs[e.ID] {
			t.Errorf("duplicate edge id %s", e.ID)
		}
		edgeIDs[e.ID] = true
	}
	for _, c := range out.Communities {
		if c.Size < 2 || len(c.Members) != c.Size {
			t.Errorf("community %s has %d members", c.ID, len(c.Members))
		}
	}
	if out.Metadata.TotalRelationships != len(out.Edges) {
		t.Errorf("expected total_relationships=%d, got %d", len(out.Edges), out.Metadata.TotalRelationships)
	}
	if result.Stats.EdgesCreated != len(out.Edges) {
		t.Errorf("expected EdgesCreated=%d, got %d", len(out.Edges), result.Stats.EdgesCreated)
	}
}
