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
	"strings"
)

// EmbeddingDocument is the text view of a code element consumed by the
// vectorization collaborator.
type EmbeddingDocument struct {
	NodeID      string   `json:"node_id"`
	Name        string   `json:"name"`
	ElementType string   `json:"element_type"`
	FilePath    string   `json:"file_path"`
	StartLine   int      `json:"start_line"`
	EndLine     int      `json:"end_line"`
	Language    string   `json:"language,omitempty"`
	Tags        []string `json:"tags"`
	Text        string   `json:"text"`
}

// EmbeddingDocuments returns one document per code element node, in node
// order. Text joins a header line with the code snippet.
func (o *Output) EmbeddingDocuments() []EmbeddingDocument {
	docs := make([]EmbeddingDocument, 0)
	for _, n := range o.Nodes {
		if n.Type != NodeTypeCodeElement {
			continue
		}
		kind := n.Kind().String()
		if n.RawElementType != "" {
			kind = n.RawElementType
		}
		tags := n.SemanticTags.Sorted()
		header := fmt.Sprintf("%s %s in %s", kind, n.Name, n.RelativePath)
		if len(tags) > 0 {
			header += " [" + strings.Join(tags, ", ") + "]"
		}
		text := header
		if n.CodeSnippet != "" {
			text += "\n" + n.CodeSnippet
		}
		docs = append(docs, EmbeddingDocument{
			NodeID:      n.ID,
			Name:        n.Name,
			ElementType: kind,
			FilePath:    n.RelativePath,
			StartLine:   n.StartLine,
			EndLine:     n.EndLine,
			Language:    n.Language,
			Tags:        tags,
			Text:        text,
		})
	}
	return docs
}

// RelationCounts returns the number of edges per relation name.
func (o *Output) RelationCounts() map[string]int {
	counts := make(map[string]int)
	for _, e := range o.Edges {
		counts[e.Relation.String()]++
	}
	return counts
}

// NodeCounts returns the number of nodes per node type name.
func (o *Output) NodeCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range o.Nodes {
		counts[n.Type.String()]++
	}
	return counts
}

// Node returns the node with the given id.
func (o *Output) Node(id string) (*Node, bool) {
	for _, n := range o.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// EdgesOf returns the edges of relation r, in edge order.
func (o *Output) EdgesOf(r Relation) []*Edge {
	var out []*Edge
	for _, e := range o.Edges {
		if e.Relation == r {
			out = append(out, e)
		}
	}
	return out
}
