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

import "sort"

// graphStore holds the nodes and edges of a single build.
//
// Insertion order is preserved so that identical input produces identical
// output ordering. A graphStore is owned by one build and is never shared.
type graphStore struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
}

func newGraphStore() *graphStore {
	return &graphStore{
		nodes: make(map[string]*Node),
		edges: make(map[string]*Edge),
	}
}

// addNode inserts n unless a node with the same id exists. It returns the
// stored node and whether n was inserted.
func (s *graphStore) addNode(n *Node) (*Node, bool) {
	if existing, ok := s.nodes[n.ID]; ok {
		return existing, false
	}
	s.nodes[n.ID] = n
	s.nodeOrder = append(s.nodeOrder, n.ID)
	return n, true
}

func (s *graphStore) node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// addEdge inserts e, deriving its id. Re-adding an existing
// (source, target, relation) triple is a no-op that returns false.
func (s *graphStore) addEdge(e *Edge) bool {
	e.ID = EdgeID(e.Source, e.Target, e.Relation)
	if _, ok := s.edges[e.ID]; ok {
		return false
	}
	s.edges[e.ID] = e
	s.edgeOrder = append(s.edgeOrder, e.ID)
	return true
}

func (s *graphStore) hasEdge(source, target string, rel Relation) bool {
	_, ok := s.edges[EdgeID(source, target, rel)]
	return ok
}

// nodesOfType returns nodes of type t in insertion order.
func (s *graphStore) nodesOfType(t NodeType) []*Node {
	var out []*Node
	for _, id := range s.nodeOrder {
		if n := s.nodes[id]; n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

func (s *graphStore) nodeList() []*Node {
	out := make([]*Node, 0, len(s.nodeOrder))
	for _, id := range s.nodeOrder {
		out = append(out, s.nodes[id])
	}
	return out
}

func (s *graphStore) edgeList() []*Edge {
	out := make([]*Edge, 0, len(s.edgeOrder))
	for _, id := range s.edgeOrder {
		out = append(out, s.edges[id])
	}
	return out
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
