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

import "strings"

// Similarity weights. Tag overlap is the primary signal; location and
// naming corroborate it.
const (
	tagSimilarityWeight  = 0.5
	pathSimilarityWeight = 0.3
	nameSimilarityWeight = 0.2
)

// Similarity returns the composite similarity of two code element nodes:
//
//	0.5*tagSimilarity + 0.3*pathSimilarity + 0.2*nameSimilarity
func Similarity(a, b *Node) float64 {
	return tagSimilarityWeight*TagSimilarity(a.SemanticTags, b.SemanticTags) +
		pathSimilarityWeight*PathSimilarity(a.Dir(), b.Dir()) +
		nameSimilarityWeight*NameSimilarity(a.Name, b.Name)
}

// TagSimilarity is the Jaccard index of two tag sets, 0 when both are empty.
func TagSimilarity(a, b TagSet) float64 {
	inter := 0
	for t := range a {
		if b.Has(t) {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// PathSimilarity compares two slash-separated directory paths by their
// segment sets: |common| / |union|. Two workspace-root paths are identical.
func PathSimilarity(dirA, dirB string) float64 {
	if dirA == dirB {
		return 1
	}
	a := NewTagSet(strings.Split(dirA, "/")...)
	b := NewTagSet(strings.Split(dirB, "/")...)
	return TagSimilarity(a, b)
}

// NameSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b)), computed
// over runes. Two empty names are identical.
func NameSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

// levenshtein computes the edit distance using two DP rows.
func levenshtein(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
