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
	"fmt"
	"path"
)

// frameworkTags are tags that let two same-file elements of different
// types be compared for similarity.
var frameworkTags = map[string]bool{
	"vue":     true,
	"vue2":    true,
	"vue3":    true,
	"react":   true,
	"angular": true,
	"svelte":  true,
}

// DefaultMaxCrossFileComparisons bounds the number of cross-file element
// pairs scored per build.
const DefaultMaxCrossFileComparisons = 100_000

// addEdge applies the relation's weight filter and inserts the edge.
// It reports whether a new edge was stored.
func (b *Builder) addEdge(state *buildState, source, target string, rel Relation, weight float64, props EdgeProperties) bool {
	weight = clampWeight(weight)
	if !state.filters.Admits(rel, weight) {
		state.result.Stats.EdgesFiltered++
		return false
	}
	if !state.store.addEdge(&Edge{
		Source:     source,
		Target:     target,
		Relation:   rel,
		Weight:     weight,
		Properties: props,
	}) {
		state.result.Stats.EdgesDeduplicated++
		return false
	}
	state.result.Stats.EdgesByRelation[rel]++
	state.result.Stats.EdgesCreated++
	return true
}

func clampWeight(w float64) float64 {
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	default:
		return w
	}
}

// buildContainsEdges links the project, directories, files and code
// elements into the containment forest.
func (b *Builder) buildContainsEdges(state *buildState) {
	for _, dir := range state.store.nodesOfType(NodeTypeDirectory) {
		if dir.Level == 1 {
			b.addEdge(state, ProjectNodeID, dir.ID, RelationContains, StructuralWeight, ContainsProps{
				Description: fmt.Sprintf("Project contains directory %s", dir.RelativePath),
			})
			continue
		}
		parentRel := path.Dir(dir.RelativePath)
		parent, ok := state.store.node(DirectoryNodeID(parentRel))
		if !ok {
			continue
		}
		b.addEdge(state, parent.ID, dir.ID, RelationContains, StructuralWeight, ContainsProps{
			Description: fmt.Sprintf("Directory %s contains directory %s", parent.RelativePath, dir.RelativePath),
		})
	}

	filesByPath := make(map[string]*Node)
	for _, file := range state.store.nodesOfType(NodeTypeFile) {
		filesByPath[file.Path] = file
		dirRel := file.Dir()
		if dirRel == "" {
			b.addEdge(state, ProjectNodeID, file.ID, RelationContains, StructuralWeight, ContainsProps{
				Description: fmt.Sprintf("Project contains file %s", file.RelativePath),
			})
			continue
		}
		dir, ok := state.store.node(DirectoryNodeID(dirRel))
		if !ok {
			continue
		}
		b.addEdge(state, dir.ID, file.ID, RelationContains, StructuralWeight, ContainsProps{
			Description: fmt.Sprintf("Directory %s contains file %s", dir.RelativePath, file.Name),
		})
	}

	for _, el := range state.store.nodesOfType(NodeTypeCodeElement) {
		file, ok := filesByPath[el.Path]
		if !ok {
			continue
		}
		b.addEdge(state, file.ID, el.ID, RelationContains, StructuralWeight, ContainsProps{
			Description: fmt.Sprintf("File %s contains %s %s", file.Name, el.Kind(), el.Name),
			StartLine:   el.StartLine,
		})
	}
}

// buildDefinedInEdges links every code element back to its file.
func (b *Builder) buildDefinedInEdges(state *buildState) {
	filesByPath := make(map[string]*Node)
	for _, file := range state.store.nodesOfType(NodeTypeFile) {
		filesByPath[file.Path] = file
	}
	for _, el := range state.store.nodesOfType(NodeTypeCodeElement) {
		file, ok := filesByPath[el.Path]
		if !ok {
			continue
		}
		b.addEdge(state, el.ID, file.ID, RelationDefinedIn, StructuralWeight, DefinedInProps{
			Description: fmt.Sprintf("%s %s is defined in %s", el.Kind(), el.Name, file.Name),
			StartLine:   el.StartLine,
		})
	}
}

// buildImportEdges resolves each file's relative import specifiers to
// other file nodes.
func (b *Builder) buildImportEdges(state *buildState) {
	resolver := NewImportResolver(b.options.ResolverCacheSize)
	for _, file := range state.store.nodesOfType(NodeTypeFile) {
		for _, spec := range state.fileImports[file.RelativePath] {
			resolved, ok := resolver.Resolve(file.Path, spec)
			if !ok {
				state.result.Stats.ImportsUnresolved++
				continue
			}
			rel, ok := state.relativePath(resolved)
			if !ok {
				state.result.Stats.ImportsUnresolved++
				continue
			}
			target, ok := state.store.node(FileNodeID(rel))
			if !ok || target.ID == file.ID {
				state.result.Stats.ImportsUnresolved++
				continue
			}

			depType := DependencyRequire
			if len(spec) > 0 && spec[0] == '.' {
				depType = DependencyImport
			}
			b.addEdge(state, file.ID, target.ID, RelationImports, ImportWeight, ImportProps{
				Description:    fmt.Sprintf("%s imports %s", file.RelativePath, target.RelativePath),
				ImportPath:     spec,
				DependencyType: depType,
			})
		}
	}
}

// buildCallEdges links functions to every function whose name appears
// called in their snippet. Targets are matched by name alone.
func (b *Builder) buildCallEdges(state *buildState) {
	var functions []*placedEntity
	byName := make(map[string][]*placedEntity)
	seen := make(map[string]bool)
	for _, pe := range state.entities {
		if pe.kind != ElementTypeFunction || seen[pe.nodeID] {
			continue
		}
		seen[pe.nodeID] = true
		functions = append(functions, pe)
		byName[pe.Name] = append(byName[pe.Name], pe)
	}

	for _, caller := range functions {
		for _, call := range ExtractCalls(caller.CodeSnippet) {
			targets := byName[call]
			if len(targets) > 1 {
				state.result.Stats.AmbiguousCalls++
			}
			for _, callee := range targets {
				if callee.relPath == caller.relPath && callee.Name == caller.Name {
					continue
				}
				b.addEdge(state, caller.nodeID, callee.nodeID, RelationCalls, CallWeight, CallProps{
					Description: fmt.Sprintf("%s calls %s", caller.Name, call),
					CallName:    call,
				})
			}
		}
	}
}

// buildRelatedEdges links semantically similar code elements.
//
// Scoring every pair is quadratic, so candidates are bounded: same-file
// pairs must share SameFileMinSharedTags tags and either the element type
// or a framework tag; cross-file pairs must sit in files joined by an
// IMPORTS edge or in the same directory, are scored at most
// maxCrossFileComparisons times and produce at most maxCrossFileRelated
// edges.
func (b *Builder) buildRelatedEdges(state *buildState) {
	elements := state.store.nodesOfType(NodeTypeCodeElement)
	byFile := make(map[string][]*Node)
	var fileOrder []string
	for _, el := range elements {
		if _, ok := byFile[el.RelativePath]; !ok {
			fileOrder = append(fileOrder, el.RelativePath)
		}
		byFile[el.RelativePath] = append(byFile[el.RelativePath], el)
	}

	for _, rel := range fileOrder {
		group := byFile[rel]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, c := group[i], group[j]
				shared := a.SemanticTags.Intersect(c.SemanticTags)
				if len(shared) < SameFileMinSharedTags {
					continue
				}
				if a.Kind() != c.Kind() && !hasFrameworkTag(shared) {
					continue
				}
				score := Similarity(a, c)
				if score <= SameFileRelatedThreshold {
					continue
				}
				b.addRelatedEdge(state, a, c, score, shared, true)
			}
		}
	}

	created := 0
	compared := 0
	limit := b.options.MaxCrossFileRelated
	budget := b.options.MaxCrossFileComparisons
	for _, pair := range state.crossFilePairs(fileOrder) {
		for _, a := range byFile[pair[0]] {
			for _, c := range byFile[pair[1]] {
				if created >= limit || compared >= budget {
					state.logger.Debug("graph: cross-file related bound reached",
						"created", created, "compared", compared)
					return
				}
				compared++
				score := Similarity(a, c)
				if score <= CrossFileRelatedThreshold {
					continue
				}
				shared := a.SemanticTags.Intersect(c.SemanticTags)
				if b.addRelatedEdge(state, a, c, score, shared, false) {
					created++
				}
			}
		}
	}
}

func (b *Builder) addRelatedEdge(state *buildState, a, c *Node, score float64, shared []string, sameFile bool) bool {
	if state.store.hasEdge(c.ID, a.ID, RelationRelatedTo) {
		return false
	}
	return b.addEdge(state, a.ID, c.ID, RelationRelatedTo, score, RelatedProps{
		Description:     fmt.Sprintf("%s is related to %s (similarity %.2f)", a.Name, c.Name, score),
		SimilarityScore: score,
		CommonTags:      shared,
		SameFile:        sameFile,
	})
}

func hasFrameworkTag(tags []string) bool {
	for _, t := range tags {
		if frameworkTags[t] {
			return true
		}
	}
	return false
}

// crossFilePairs returns the unordered pairs of element-bearing files that
// may hold RELATED_TO candidates: files joined by an IMPORTS edge first,
// in edge order, then files sharing a directory, in file order.
func (s *buildState) crossFilePairs(fileOrder []string) [][2]string {
	hasElements := make(map[string]bool, len(fileOrder))
	for _, rel := range fileOrder {
		hasElements[rel] = true
	}

	var pairs [][2]string
	seen := make(map[[2]string]bool)
	add := func(a, c string) {
		if a == c || !hasElements[a] || !hasElements[c] {
			return
		}
		key := [2]string{a, c}
		if c < a {
			key = [2]string{c, a}
		}
		if seen[key] {
			return
		}
		seen[key] = true
		pairs = append(pairs, [2]string{a, c})
	}

	for _, e := range s.store.edgeList() {
		if e.Relation != RelationImports {
			continue
		}
		src, ok1 := s.store.node(e.Source)
		dst, ok2 := s.store.node(e.Target)
		if ok1 && ok2 {
			add(src.RelativePath, dst.RelativePath)
		}
	}

	byDir := make(map[string][]string)
	var dirOrder []string
	for _, rel := range fileOrder {
		dir := path.Dir(rel)
		if _, ok := byDir[dir]; !ok {
			dirOrder = append(dirOrder, dir)
		}
		byDir[dir] = append(byDir[dir], rel)
	}
	for _, dir := range dirOrder {
		files := byDir[dir]
		for i := 0; i < len(files); i++ {
			for j := i + 1; j < len(files); j++ {
				add(files[i], files[j])
			}
		}
	}
	return pairs
}
