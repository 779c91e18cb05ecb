// Copyright 2024 The DwarfIdea Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package transform

import "sort"

// InverseBWTS reverses a bijective Burrows-Wheeler transform. Unlike the
// classic BWT, BWTS carries no sentinel and no separate index: the
// permutation it encodes is recovered purely from the sorted order of L's
// bytes, and the original text's Lyndon-word factor boundaries fall out
// of the resulting cycle decomposition.
func InverseBWTS(l []byte) []byte {
	n := len(l)
	if n == 0 {
		return nil
	}

	// next[i] is the index, in L, that the cyclic rotation ending at i
	// transitions to -- the standard LF-mapping, built by stably sorting
	// L's byte values and recording, for each sorted position, which
	// original index it came from.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return l[order[a]] < l[order[b]]
	})

	next := make([]int, n)
	for sortedPos, origIdx := range order {
		next[origIdx] = sortedPos
	}

	// Each cycle yields one Lyndon factor's bytes last-to-first, and cycles
	// are met smallest factor first, so the output is filled from the end.
	visited := make([]bool, n)
	out := make([]byte, n)
	idx := n - 1
	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		j := start
		for !visited[j] {
			visited[j] = true
			out[idx] = l[j]
			idx--
			j = next[j]
		}
	}
	return out
}
