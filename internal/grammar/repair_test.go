// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package grammar

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func edge(label uint64, nodes ...uint64) *Edge {
	return &Edge{Label: label, Nodes: nodes}
}

func graphOf(edges ...*Edge) *HGraph {
	g := NewHGraph(RankNone)
	for _, e := range edges {
		g.Add(e)
	}
	return g
}

// multiset renders edges order-independently.
func multiset(edges []*Edge) map[string]int {
	m := make(map[string]int)
	for _, e := range edges {
		m[fmt.Sprint(e.Label, e.Nodes)]++
	}
	return m
}

func maxNode(edges []*Edge) uint64 {
	var m uint64
	for _, e := range edges {
		for _, n := range e.Nodes {
			if n > m {
				m = n
			}
		}
	}
	return m
}

func maxLabel(edges []*Edge) uint64 {
	var m uint64
	for _, e := range edges {
		if e.Label > m {
			m = e.Label
		}
	}
	return m
}

// compressAndCheck runs RePair and verifies the grammar invariants plus the
// round-trip property.
func compressAndCheck(t *testing.T, edges []*Edge, maxRank int, monograms bool) *Grammar {
	t.Helper()

	input := multiset(edges)
	nodes := maxNode(edges) + 1
	terminals := maxLabel(edges) + 1

	cp := make([]*Edge, len(edges))
	for i, e := range edges {
		cp[i] = e.Clone()
	}
	g := Compress(graphOf(cp...), nodes, terminals, maxRank, monograms)

	// Round trip: expanding the grammar restores the edge multiset.
	require.Equal(t, input, multiset(g.Expand()))

	// Every rule body respects the rank bound and references only known
	// symbols; non-terminal ids are contiguous.
	var ntIDs []uint64
	for _, sym := range g.Symbols() {
		if sym == StartSymbol {
			continue
		}
		ntIDs = append(ntIDs, sym)
		rule := g.Rule(sym)
		require.LessOrEqual(t, rule.Rank, maxRank, "rule %d rank", sym)
		for _, e := range rule.Edges {
			require.LessOrEqual(t, e.Rank(), maxRank, "rule %d body edge rank", sym)
			if !g.IsTerminal(e.Label) {
				require.NotEqual(t, sym, e.Label, "rule %d references itself", sym)
			}
		}
	}
	sort.Slice(ntIDs, func(i, j int) bool { return ntIDs[i] < ntIDs[j] })
	for i, id := range ntIDs {
		require.Equal(t, g.MinNT+uint64(i), id, "non-terminal ids not contiguous")
	}
	return g
}

func TestCompressTriangle(t *testing.T) {
	compressAndCheck(t, []*Edge{
		edge(0, 0, 1),
		edge(0, 1, 2),
		edge(0, 2, 0),
	}, 12, false)
}

func TestCompressRepetitive(t *testing.T) {
	// A chain of identical two-edge patterns that digram replacement
	// must collapse.
	var edges []*Edge
	for i := uint64(0); i < 40; i += 2 {
		edges = append(edges, edge(0, i, i+1))
		edges = append(edges, edge(1, i+1, i+2))
	}
	g := compressAndCheck(t, edges, 12, false)
	require.NotEmpty(t, g.Symbols()[1:], "expected at least one rule")
	require.Less(t, len(g.Start.Edges), 40, "start rule did not shrink")
}

func TestCompressMaxRankTwo(t *testing.T) {
	// With maxRank = 2 digram replacement is disabled entirely.
	var edges []*Edge
	for i := uint64(0); i < 30; i++ {
		edges = append(edges, edge(0, i, i+1))
	}
	g := compressAndCheck(t, edges, 2, false)
	require.Empty(t, g.Symbols()[1:], "maxRank=2 must not create digram rules")
}

func TestCompressMaxRankBound(t *testing.T) {
	// Dense digrams around shared hubs with a tight rank bound.
	rng := rand.New(rand.NewSource(7))
	var edges []*Edge
	for i := 0; i < 120; i++ {
		hub := uint64(rng.Intn(4))
		edges = append(edges, edge(uint64(rng.Intn(3)), hub, 10+uint64(i%25), 40+uint64(rng.Intn(5))))
	}
	compressAndCheck(t, dedupe(edges), 4, false)
}

func TestCompressMonograms(t *testing.T) {
	// Self-loops with disjoint nodes: digram replacement finds no pairable
	// occurrence, monogram replacement collapses the duplicate connection.
	var edges []*Edge
	for i := uint64(0); i < 20; i++ {
		edges = append(edges, edge(0, i, i))
	}
	g := compressAndCheck(t, edges, 12, true)

	foundLowerRank := false
	for _, sym := range g.Symbols()[1:] {
		if g.Rule(sym).Rank < 2 {
			foundLowerRank = true
		}
	}
	require.True(t, foundLowerRank, "monogram replacement created no reduced-rank rule")
}

func TestCompressRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		var edges []*Edge
		n := 5 + rng.Intn(120)
		for i := 0; i < n; i++ {
			rank := 1 + rng.Intn(4)
			nodes := make([]uint64, rank)
			for j := range nodes {
				nodes[j] = uint64(rng.Intn(25))
			}
			edges = append(edges, &Edge{Label: uint64(rng.Intn(5)), Nodes: nodes})
		}
		maxRank := 3 + rng.Intn(10)
		compressAndCheck(t, dedupe(edges), maxRank, trial%2 == 0)
	}
}

func TestCompressEmptyPanics(t *testing.T) {
	require.Panics(t, func() { Compress(NewHGraph(RankNone), 0, 0, 12, false) })
}

func dedupe(edges []*Edge) []*Edge {
	seen := make(map[string]bool)
	var res []*Edge
	for _, e := range edges {
		k := fmt.Sprint(e.Label, e.Nodes)
		if !seen[k] {
			seen[k] = true
			res = append(res, e)
		}
	}
	return res
}
