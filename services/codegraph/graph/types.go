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
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// NodeType identifies the structural kind of a node.
type NodeType int

const (
	// NodeTypeUnknown indicates an unrecognized node type.
	NodeTypeUnknown NodeType = iota

	// NodeTypeProject is the single workspace root node.
	NodeTypeProject

	// NodeTypeDirectory is a directory on the path to at least one file.
	NodeTypeDirectory

	// NodeTypeFile is a source file that declares at least one entity.
	NodeTypeFile

	// NodeTypeCodeElement is a parsed entity (function, class, ...).
	NodeTypeCodeElement
)

var nodeTypeNames = map[NodeType]string{
	NodeTypeUnknown:     "unknown",
	NodeTypeProject:     "project",
	NodeTypeDirectory:   "directory",
	NodeTypeFile:        "file",
	NodeTypeCodeElement: "code_element",
}

// String returns the external name of the node type.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the node type by name.
func (t NodeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes a node type name.
func (t *NodeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range nodeTypeNames {
		if v == s {
			*t = k
			return nil
		}
	}
	*t = NodeTypeUnknown
	return nil
}

// ElementType is the closed vocabulary of code element kinds.
type ElementType int

const (
	// ElementTypeOther covers parser kinds outside the known vocabulary.
	ElementTypeOther ElementType = iota
	ElementTypeFunction
	ElementTypeClass
	ElementTypeVariable
	ElementTypeComponent
	ElementTypeInterface
	ElementTypeType
	ElementTypeConstant
	ElementTypeMethod
	ElementTypeProperty
)

var elementTypeNames = map[ElementType]string{
	ElementTypeOther:     "other",
	ElementTypeFunction:  "function",
	ElementTypeClass:     "class",
	ElementTypeVariable:  "variable",
	ElementTypeComponent: "component",
	ElementTypeInterface: "interface",
	ElementTypeType:      "type",
	ElementTypeConstant:  "constant",
	ElementTypeMethod:    "method",
	ElementTypeProperty:  "property",
}

// parserElementTypes maps parser vocabulary (including common aliases) to
// element types.
var parserElementTypes = map[string]ElementType{
	"function":  ElementTypeFunction,
	"class":     ElementTypeClass,
	"variable":  ElementTypeVariable,
	"component": ElementTypeComponent,
	"interface": ElementTypeInterface,
	"type":      ElementTypeType,
	"constant":  ElementTypeConstant,
	"const":     ElementTypeConstant,
	"method":    ElementTypeMethod,
	"property":  ElementTypeProperty,
}

// ParseElementType maps a parser kind to an ElementType. Unknown kinds
// map to ElementTypeOther.
func ParseElementType(s string) ElementType {
	if t, ok := parserElementTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return ElementTypeOther
}

// String returns the external name of the element type.
func (t ElementType) String() string {
	if name, ok := elementTypeNames[t]; ok {
		return name
	}
	return "other"
}

// MarshalJSON encodes the element type by name.
func (t ElementType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an element type name.
func (t *ElementType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseElementType(s)
	return nil
}

// Relation is the type of a directed edge.
type Relation int

const (
	// RelationUnknown indicates an unrecognized relation.
	RelationUnknown Relation = iota

	// RelationContains links a structural parent to its child.
	RelationContains

	// RelationDefinedIn links a code element back to its file.
	RelationDefinedIn

	// RelationImports links an importing file to the imported file.
	RelationImports

	// RelationCalls links a function to a function it appears to call.
	RelationCalls

	// RelationRelatedTo links two semantically similar code elements.
	RelationRelatedTo

	// NumRelations is the number of relation kinds (for array sizing).
	NumRelations
)

var relationNames = map[Relation]string{
	RelationUnknown:   "UNKNOWN",
	RelationContains:  "CONTAINS",
	RelationDefinedIn: "DEFINED_IN",
	RelationImports:   "IMPORTS",
	RelationCalls:     "CALLS",
	RelationRelatedTo: "RELATED_TO",
}

// String returns the external name of the relation.
func (r Relation) String() string {
	if name, ok := relationNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseRelation maps an external relation name to a Relation.
func ParseRelation(s string) Relation {
	for k, v := range relationNames {
		if v == s {
			return k
		}
	}
	return RelationUnknown
}

// Structural reports whether the relation is part of the containment
// hierarchy. Structural edges always carry weight 1.0.
func (r Relation) Structural() bool {
	return r == RelationContains || r == RelationDefinedIn
}

// MarshalJSON encodes the relation by name.
func (r Relation) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON decodes a relation name.
func (r *Relation) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*r = ParseRelation(s)
	return nil
}

// TagSet is a set of semantic tags. It serializes as a sorted array.
type TagSet map[string]struct{}

// NewTagSet creates a set from the given tags, ignoring empty strings.
func NewTagSet(tags ...string) TagSet {
	s := make(TagSet, len(tags))
	s.Add(tags...)
	return s
}

// Add inserts tags into the set.
func (s TagSet) Add(tags ...string) {
	for _, t := range tags {
		if t != "" {
			s[t] = struct{}{}
		}
	}
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// Sorted returns the tags in lexical order.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the sorted tags present in both sets.
func (s TagSet) Intersect(other TagSet) []string {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	out := make([]string, 0)
	for t := range small {
		if large.Has(t) {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of tags.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var tags []string
	if err := json.Unmarshal(data, &tags); err != nil {
		return err
	}
	*s = NewTagSet(tags...)
	return nil
}

// PackageInfo is project descriptor metadata read from a manifest.
type PackageInfo struct {
	Name        string `json:"name,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
	ModulePath  string `json:"module_path,omitempty"`
	GoVersion   string `json:"go_version,omitempty"`
}

// Node is a vertex in the module graph.
//
// Fields below the common block are populated only for the node types
// noted on each group; the rest stay at their zero value and are mostly
// omitted from JSON. size and start_line are always written since zero is
// a meaningful value for them.
type Node struct {
	ID           string   `json:"id"`
	Type         NodeType `json:"type"`
	Name         string   `json:"name"`
	Path         string   `json:"absolute_path"`
	RelativePath string   `json:"relative_path,omitempty"`
	SemanticTags TagSet   `json:"semantic_tags"`

	// project
	TechStack []string     `json:"tech_stack,omitempty"`
	Package   *PackageInfo `json:"package,omitempty"`

	// directory
	Level      int `json:"level,omitempty"`
	ChildCount int `json:"child_count,omitempty"`

	// file
	Extension    string         `json:"extension,omitempty"`
	Size         int64          `json:"size"`
	LineCount    int            `json:"line_count,omitempty"`
	ElementTypes map[string]int `json:"element_types,omitempty"`
	Exports      []string       `json:"exports,omitempty"`

	// code_element
	ElementType    *ElementType `json:"element_type,omitempty"`
	RawElementType string       `json:"raw_element_type,omitempty"`
	StartLine      int          `json:"start_line"`
	EndLine        int          `json:"end_line,omitempty"`
	CodeSnippet    string       `json:"code_snippet,omitempty"`

	// file and code_element
	Language string `json:"language,omitempty"`
}

// Kind returns the element type of a code element node, or
// ElementTypeOther for other node types.
func (n *Node) Kind() ElementType {
	if n.ElementType == nil {
		return ElementTypeOther
	}
	return *n.ElementType
}

// Dir returns the slash-separated relative directory that contains the
// node, or "" at the workspace root.
func (n *Node) Dir() string {
	i := strings.LastIndex(n.RelativePath, "/")
	if i < 0 {
		return ""
	}
	return n.RelativePath[:i]
}

// Edge is a directed, weighted, typed relationship between two nodes.
type Edge struct {
	ID         string
	Source     string
	Target     string
	Relation   Relation
	Weight     float64
	Properties EdgeProperties
}

// edgeJSON is the wire form of Edge.
type edgeJSON struct {
	ID         string          `json:"id"`
	Source     string          `json:"source"`
	Target     string          `json:"target"`
	Relation   Relation        `json:"relation"`
	Weight     float64         `json:"weight"`
	Properties json.RawMessage `json:"properties"`
}

// MarshalJSON encodes the edge with its properties as a JSON object.
func (e Edge) MarshalJSON() ([]byte, error) {
	props := EdgeProperties(BaseProps{})
	if e.Properties != nil {
		props = e.Properties
	}
	raw, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal %s properties: %w", e.Relation, err)
	}
	return json.Marshal(edgeJSON{
		ID:         e.ID,
		Source:     e.Source,
		Target:     e.Target,
		Relation:   e.Relation,
		Weight:     e.Weight,
		Properties: raw,
	})
}

// UnmarshalJSON decodes an edge, choosing the properties type from the
// relation.
func (e *Edge) UnmarshalJSON(data []byte) error {
	var w edgeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	props, err := decodeProperties(w.Relation, w.Properties)
	if err != nil {
		return err
	}
	*e = Edge{
		ID:         w.ID,
		Source:     w.Source,
		Target:     w.Target,
		Relation:   w.Relation,
		Weight:     w.Weight,
		Properties: props,
	}
	return nil
}
