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
	"log/slog"
	"sort"
	"strings"
)

// CommunityStrategy selects how communities are detected.
type CommunityStrategy string

const (
	// StrategyConnectivity groups nodes into connected components.
	StrategyConnectivity CommunityStrategy = "connectivity"

	// StrategyDirectory groups code elements by containing directory.
	StrategyDirectory CommunityStrategy = "directory"

	// StrategyBoth runs both strategies and concatenates the results.
	StrategyBoth CommunityStrategy = "both"

	// StrategyNone disables community detection.
	StrategyNone CommunityStrategy = "none"
)

// ParseCommunityStrategy validates a strategy name. The empty string
// selects StrategyConnectivity.
func ParseCommunityStrategy(s string) (CommunityStrategy, error) {
	switch CommunityStrategy(strings.ToLower(s)) {
	case "", StrategyConnectivity:
		return StrategyConnectivity, nil
	case StrategyDirectory:
		return StrategyDirectory, nil
	case StrategyBoth:
		return StrategyBoth, nil
	case StrategyNone:
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
}

const (
	// minCommunitySize is the smallest community kept by any strategy.
	minCommunitySize = 2

	// minDirectoryGroupSize is the exclusive lower bound on the number of
	// code elements in a directory community.
	minDirectoryGroupSize = 2

	// communityTagCount is the number of top tags kept per community.
	communityTagCount = 5
)

// Community is a cohesive group of nodes.
type Community struct {
	ID               string            `json:"id"`
	Label            string            `json:"label"`
	Description      string            `json:"description"`
	Strategy         CommunityStrategy `json:"strategy"`
	Members          []string          `json:"member_node_ids"`
	Size             int               `json:"size"`
	Score            float64           `json:"score"`
	Tags             []string          `json:"tags"`
	PrimaryLanguage  string            `json:"primary_language,omitempty"`
	Cohesion         float64           `json:"cohesion_estimate"`
	Coupling         float64           `json:"coupling_estimate"`
	Functionality    []string          `json:"functionality,omitempty"`
	Directory        string            `json:"directory,omitempty"`
	InternalEdges    int               `json:"internal_edges"`
	ExternalEdges    int               `json:"external_edges"`
	DominantKind     string            `json:"dominant_kind"`
}

// communityView is the read-only graph the detectors work on.
type communityView struct {
	nodes []*Node
	edges []*Edge
	index map[string]int
}

func newCommunityView(nodes []*Node, edges []*Edge) *communityView {
	idx := make(map[string]int, len(nodes))
	for i, n := range nodes {
		idx[n.ID] = i
	}
	return &communityView{nodes: nodes, edges: edges, index: idx}
}

// DetectCommunities runs the given strategy over nodes and edges.
func DetectCommunities(nodes []*Node, edges []*Edge, strategy CommunityStrategy) []Community {
	view := newCommunityView(nodes, edges)
	switch strategy {
	case StrategyNone:
		return []Community{}
	case StrategyDirectory:
		return view.directoryCommunities()
	case StrategyBoth:
		return append(view.connectivityCommunities(), view.directoryCommunities()...)
	default:
		return view.connectivityCommunities()
	}
}

// connectivityCommunities finds connected components of the undirected
// view of all edges. Components with a single node are dropped.
func (v *communityView) connectivityCommunities() []Community {
	adj := make([][]int, len(v.nodes))
	for _, e := range v.edges {
		s, okS := v.index[e.Source]
		t, okT := v.index[e.Target]
		if !okS || !okT || s == t {
			continue
		}
		adj[s] = append(adj[s], t)
		adj[t] = append(adj[t], s)
	}

	visited := make([]bool, len(v.nodes))
	var components [][]int
	for start := range v.nodes {
		if visited[start] {
			continue
		}
		// Explicit stack; component sizes can exceed safe recursion depth.
		var comp []int
		stack := []int{start}
		visited[start] = true
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, top)
			for _, next := range adj[top] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		if len(comp) >= minCommunitySize {
			components = append(components, comp)
		}
	}

	communities := make([]Community, 0, len(components))
	for i, comp := range components {
		sort.Ints(comp)
		members := make([]*Node, len(comp))
		for j, idx := range comp {
			members[j] = v.nodes[idx]
		}
		c := v.describe(members)
		c.ID = fmt.Sprintf("connectivity_%d", i)
		c.Strategy = StrategyConnectivity
		c.Label = fmt.Sprintf("%s community", titleCase(c.DominantKind))
		c.Description = fmt.Sprintf("Connected component of %d nodes, mostly %s; tags: %s",
			c.Size, c.DominantKind, strings.Join(c.Tags, ", "))
		communities = append(communities, c)
	}

	sortCommunities(communities)
	slog.Debug("community: connectivity detection complete",
		"components", len(components), "nodes", len(v.nodes))
	return communities
}

// directoryCommunities groups code elements by their containing directory
// and keeps groups of more than minDirectoryGroupSize members.
func (v *communityView) directoryCommunities() []Community {
	groups := make(map[string][]*Node)
	var order []string
	for _, n := range v.nodes {
		if n.Type != NodeTypeCodeElement {
			continue
		}
		dir := n.Dir()
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], n)
	}

	var communities []Community
	for _, dir := range order {
		members := groups[dir]
		if len(members) <= minDirectoryGroupSize {
			continue
		}
		c := v.describe(members)
		name := dir
		if name == "" {
			name = "."
		}
		c.ID = "directory:" + name
		c.Strategy = StrategyDirectory
		c.Directory = name
		c.Functionality = inferFunctionality(dir, members)
		c.Label = fmt.Sprintf("%s module", lastSegment(name))
		c.Description = fmt.Sprintf("%d code elements in %s (%s)",
			c.Size, name, strings.Join(c.Functionality, ", "))
		communities = append(communities, c)
	}
	if communities == nil {
		communities = []Community{}
	}

	sortCommunities(communities)
	slog.Debug("community: directory detection complete",
		"directories", len(order), "communities", len(communities))
	return communities
}

// describe fills the membership, score and summary fields shared by both
// strategies.
func (v *communityView) describe(members []*Node) Community {
	in := make(map[string]bool, len(members))
	ids := make([]string, len(members))
	for i, m := range members {
		in[m.ID] = true
		ids[i] = m.ID
	}

	internal, external := 0, 0
	for _, e := range v.edges {
		s, t := in[e.Source], in[e.Target]
		switch {
		case s && t:
			internal++
		case s || t:
			external++
		}
	}

	kinds := make(map[string]int)
	tags := make(map[string]int)
	langs := make(map[string]int)
	for _, m := range members {
		kinds[memberKind(m)]++
		for t := range m.SemanticTags {
			tags[t]++
		}
		if m.Language != "" {
			langs[m.Language]++
		}
	}

	c := Community{
		Members:         ids,
		Size:            len(ids),
		Score:           communityScore(internal, external, len(v.edges)),
		Tags:            topByCount(tags, communityTagCount),
		PrimaryLanguage: firstOrEmpty(topByCount(langs, 1)),
		DominantKind:    firstOrEmpty(topByCount(kinds, 1)),
		InternalEdges:   internal,
		ExternalEdges:   external,
	}
	if touching := internal + external; touching > 0 {
		c.Cohesion = float64(internal) / float64(touching)
		c.Coupling = float64(external) / float64(touching)
	}
	return c
}

// communityScore is (internal - external/2) / total, 0 for an edgeless graph.
func communityScore(internal, external, total int) float64 {
	if total == 0 {
		return 0
	}
	return (float64(internal) - float64(external)/2) / float64(total)
}

// memberKind is the element type of a code element, or the node type of a
// structural node.
func memberKind(n *Node) string {
	if n.Type == NodeTypeCodeElement {
		return n.Kind().String()
	}
	return n.Type.String()
}

// directoryFunctionality maps a directory keyword to a functionality tag.
var directoryFunctionality = []keywordTag{
	{"component", "ui_components"},
	{"service", "api_integration"},
	{"api", "api_integration"},
	{"store", "state_management"},
	{"state", "state_management"},
	{"util", "utilities"},
	{"helper", "utilities"},
	{"test", "testing"},
	{"config", "configuration"},
}

// inferFunctionality derives functionality tags from the directory path
// and the member tags. It returns ["general"] when nothing matches.
func inferFunctionality(dir string, members []*Node) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(tag string) {
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	for _, tag := range keywordTags(dir, directoryFunctionality) {
		add(tag)
	}

	var frontend, function, class bool
	for _, m := range members {
		tags := m.SemanticTags
		if tags.Has("vue") || tags.Has("react") {
			frontend = true
		}
		if tags.Has("function") || m.Kind() == ElementTypeFunction {
			function = true
		}
		if tags.Has("class") || m.Kind() == ElementTypeClass {
			class = true
		}
	}
	if frontend {
		add("frontend_framework")
	}
	if function {
		add("business_logic")
	}
	if class {
		add("object_oriented")
	}

	if len(out) == 0 {
		return []string{"general"}
	}
	return out
}

// topByCount returns up to n keys ordered by descending count, breaking
// ties lexically.
func topByCount(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func sortCommunities(cs []Community) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Score != cs[j].Score {
			return cs[i].Score > cs[j].Score
		}
		return cs[i].ID < cs[j].ID
	})
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

func lastSegment(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}

func titleCase(s string) string {
	if s == "" {
		return "Mixed"
	}
	words := strings.Split(s, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
