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

// GraphDiff lists the node and edge ids that differ between two outputs.
//
// Ids are stable for identical input, so a diff of two full rebuilds shows
// exactly what the input change added or removed.
type GraphDiff struct {
	AddedNodes   []string `json:"added_nodes"`
	RemovedNodes []string `json:"removed_nodes"`
	AddedEdges   []string `json:"added_edges"`
	RemovedEdges []string `json:"removed_edges"`
}

// Empty reports whether the two outputs had identical id sets.
func (d GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Diff compares prev and next by node and edge id. A nil prev counts as an
// empty graph.
func Diff(prev, next *Output) GraphDiff {
	prevNodes, prevEdges := idSets(prev)
	nextNodes, nextEdges := idSets(next)
	return GraphDiff{
		AddedNodes:   missingFrom(nextNodes, prevNodes),
		RemovedNodes: missingFrom(prevNodes, nextNodes),
		AddedEdges:   missingFrom(nextEdges, prevEdges),
		RemovedEdges: missingFrom(prevEdges, nextEdges),
	}
}

func idSets(o *Output) (map[string]bool, map[string]bool) {
	nodes := make(map[string]bool)
	edges := make(map[string]bool)
	if o == nil {
		return nodes, edges
	}
	for _, n := range o.Nodes {
		nodes[n.ID] = true
	}
	for _, e := range o.Edges {
		edges[e.ID] = true
	}
	return nodes, edges
}

// missingFrom returns the sorted ids of a that are not in b.
func missingFrom(a, b map[string]bool) []string {
	out := make([]string, 0)
	for id := range a {
		if !b[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
