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
	"path"
	"path/filepath"
	"strings"
)

// extensionLanguages maps file extensions to a language name when the
// parser did not report one.
var extensionLanguages = map[string]string{
	".js":   "javascript",
	".jsx":  "javascript",
	".mjs":  "javascript",
	".cjs":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".vue":  "vue",
	".py":   "python",
	".go":   "go",
	".java": "java",
	".rb":   "ruby",
	".rs":   "rust",
	".css":  "css",
	".scss": "scss",
	".html": "html",
	".json": "json",
}

// keywordTag maps a lowercase substring of a path segment to a tag.
type keywordTag struct {
	keyword string
	tag     string
}

// fileKeywordTags derive tags from a file name.
var fileKeywordTags = []keywordTag{
	{"test", "test"},
	{"spec", "spec"},
	{"config", "config"},
	{"util", "utility"},
	{"helper", "utility"},
	{"component", "component"},
	{"service", "service"},
	{"store", "store"},
}

// directoryKeywordTags derive tags from a directory name.
var directoryKeywordTags = []keywordTag{
	{"component", "components"},
	{"service", "services"},
	{"api", "services"},
	{"store", "state-management"},
	{"state", "state-management"},
	{"test", "testing"},
	{"spec", "testing"},
	{"util", "utilities"},
	{"helper", "utilities"},
	{"config", "configuration"},
}

func keywordTags(name string, table []keywordTag) []string {
	lower := strings.ToLower(name)
	var tags []string
	for _, kt := range table {
		if strings.Contains(lower, kt.keyword) {
			tags = append(tags, kt.tag)
		}
	}
	return tags
}

// detectLanguage returns the language for a file extension, or "".
func detectLanguage(ext string) string {
	return extensionLanguages[strings.ToLower(ext)]
}

// createProjectNode adds the single workspace root node.
func (b *Builder) createProjectNode(state *buildState) *Node {
	manifest := readProjectManifest(state.workspace)

	tags := NewTagSet("project")
	tags.Add(manifest.techStack...)

	n := &Node{
		ID:           ProjectNodeID,
		Type:         NodeTypeProject,
		Name:         filepath.Base(state.workspace),
		Path:         state.workspace,
		SemanticTags: tags,
		TechStack:    manifest.techStack,
		Package:      manifest.pkg,
	}
	if manifest.pkg != nil && manifest.pkg.Name != "" {
		n.Name = manifest.pkg.Name
	}
	stored, _ := state.store.addNode(n)
	return stored
}

// createFileAndDirectoryNodes adds one file node per distinct entity file
// and a directory node for every directory on the way from the workspace
// root to each file.
func (b *Builder) createFileAndDirectoryNodes(ctx context.Context, state *buildState) {
	processed := make(map[string]bool)
	var files []*placedEntity
	for _, pe := range state.entities {
		if processed[pe.relPath] {
			continue
		}
		processed[pe.relPath] = true
		files = append(files, pe)
	}

	// Summaries derived from all entities of a file.
	kinds := make(map[string]map[string]int)
	langs := make(map[string]string)
	for _, pe := range state.entities {
		if kinds[pe.relPath] == nil {
			kinds[pe.relPath] = make(map[string]int)
		}
		kinds[pe.relPath][pe.kindName()]++
		if langs[pe.relPath] == "" && pe.Language != "" {
			langs[pe.relPath] = strings.ToLower(pe.Language)
		}
	}

	paths := make([]string, len(files))
	for i, pe := range files {
		paths[i] = pe.absPath
	}
	stats := probeFiles(ctx, paths, b.options.ProbeWorkers)

	createdDirs := make(map[string]bool)
	for i, pe := range files {
		ext := path.Ext(pe.relPath)
		lang := langs[pe.relPath]
		if lang == "" {
			lang = detectLanguage(ext)
		}
		name := path.Base(pe.relPath)

		tags := NewTagSet("file", lang)
		for kind := range kinds[pe.relPath] {
			tags.Add(kind)
		}
		tags.Add(keywordTags(name, fileKeywordTags)...)

		state.store.addNode(&Node{
			ID:           FileNodeID(pe.relPath),
			Type:         NodeTypeFile,
			Name:         name,
			Path:         pe.absPath,
			RelativePath: pe.relPath,
			SemanticTags: tags,
			Extension:    ext,
			Size:         stats[i].size,
			LineCount:    stats[i].lines,
			Language:     lang,
			ElementTypes: kinds[pe.relPath],
			Exports:      state.fileExports[pe.relPath],
		})
		state.result.Stats.FilesProcessed++

		b.createDirectoryChain(state, pe.relPath, createdDirs)
	}

	b.countDirectoryChildren(state)
}

// createDirectoryChain adds directory nodes for every ancestor directory of
// the slash-separated relative file path, outermost first.
func (b *Builder) createDirectoryChain(state *buildState, relFile string, created map[string]bool) {
	dir := path.Dir(relFile)
	if dir == "." || dir == "" {
		return
	}
	segments := strings.Split(dir, "/")
	for i := range segments {
		relDir := strings.Join(segments[:i+1], "/")
		if created[relDir] {
			continue
		}
		created[relDir] = true

		name := segments[i]
		tags := NewTagSet("directory")
		tags.Add(keywordTags(name, directoryKeywordTags)...)

		state.store.addNode(&Node{
			ID:           DirectoryNodeID(relDir),
			Type:         NodeTypeDirectory,
			Name:         name,
			Path:         filepath.Join(state.workspace, filepath.FromSlash(relDir)),
			RelativePath: relDir,
			SemanticTags: tags,
			Level:        i + 1,
		})
	}
}

// countDirectoryChildren sets ChildCount to the number of direct child
// directories and files of each directory.
func (b *Builder) countDirectoryChildren(state *buildState) {
	counts := make(map[string]int)
	for _, id := range state.store.nodeOrder {
		n := state.store.nodes[id]
		if n.Type != NodeTypeDirectory && n.Type != NodeTypeFile {
			continue
		}
		if parent := n.Dir(); parent != "" {
			counts[parent]++
		}
	}
	for _, n := range state.store.nodesOfType(NodeTypeDirectory) {
		n.ChildCount = counts[n.RelativePath]
	}
}

// createEntityNodes adds one code element node per input entity.
func (b *Builder) createEntityNodes(state *buildState) {
	for _, pe := range state.entities {
		kind := pe.kind
		tags := NewTagSet(pe.SemanticTags...)

		n := &Node{
			ID:           pe.nodeID,
			Type:         NodeTypeCodeElement,
			Name:         pe.Name,
			Path:         pe.absPath,
			RelativePath: pe.relPath,
			SemanticTags: tags,
			ElementType:  &kind,
			StartLine:    pe.StartLine,
			EndLine:      pe.EndLine,
			CodeSnippet:  pe.CodeSnippet,
			Language:     strings.ToLower(pe.Language),
		}
		if kind == ElementTypeOther {
			n.RawElementType = pe.ElementType
		}
		if _, inserted := state.store.addNode(n); !inserted {
			state.result.Stats.DuplicateEntities++
			continue
		}
		state.result.Stats.EntitiesProcessed++
	}
}
