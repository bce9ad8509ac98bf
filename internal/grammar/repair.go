// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package grammar

import "sort"

// The RePair driver transforms the start rule in three passes: frequent
// digrams become rules, optionally monograms become rules, and rules whose
// bodies are cheaper inlined are substituted back. A final pass renumbers
// the surviving non-terminals into a contiguous interval.

// Compress runs RePair over the start rule. The graph hands its ownership
// to the returned grammar. Digram replacement is skipped when maxRank does
// not leave room for a rank-3 rule.
func Compress(start *HGraph, nodes uint64, terminals uint64, maxRank int, monograms bool) *Grammar {
	if len(start.Edges) == 0 {
		panic(Error("empty start rule"))
	}
	g := New(start, terminals)

	if maxRank > 2 {
		replaceDigrams(g, nodes, maxRank)
	}
	if monograms {
		replaceMonograms(g)
	}
	prune(g)
	normalize(g)
	return g
}

// adjacencyOf returns the adjacency type of connection conn of e.
func adjacencyOf(e *Edge, conn int) adjacency {
	return adjacency{label: e.Label, rank: e.Rank(), conn: conn}
}

// nodeAdjacencies counts, per node, how many times each adjacency type
// touches it.
func nodeAdjacencies(rule *HGraph, nodes uint64) []map[adjacency]uint64 {
	dict := make([]map[adjacency]uint64, nodes)
	for _, e := range rule.Edges {
		for conn, node := range e.Nodes {
			m := dict[node]
			if m == nil {
				m = make(map[adjacency]uint64)
				dict[node] = m
			}
			m[adjacencyOf(e, conn)]++
		}
	}
	return dict
}

func updateDigramDelta(dc map[digram]int64, d digram, delta int64) {
	d = canonDigram(d)
	if v, ok := dc[d]; ok {
		v += delta
		if v <= 0 {
			delete(dc, d)
		} else {
			dc[d] = v
		}
	} else if delta > 0 {
		dc[d] = delta
	}
}

// countDigrams derives the initial digram frequencies from the per-node
// adjacency counts: distinct pairs contribute the smaller count, a pair of
// one type with itself contributes half its count.
func countDigrams(dict []map[adjacency]uint64) map[digram]int64 {
	dc := make(map[digram]int64)

	var keys []adjacency
	for _, m := range dict {
		if m == nil {
			continue
		}
		keys = keys[:0]
		for a := range m {
			keys = append(keys, a)
		}
		sort.Slice(keys, func(i, j int) bool { return adjacencyLess(keys[i], keys[j]) })

		for i, a := range keys {
			ci := m[a]
			for _, b := range keys[i+1:] {
				cj := m[b]
				delta := ci
				if cj < ci {
					delta = cj
				}
				updateDigramDelta(dc, digram{a, b}, int64(delta))
			}
			updateDigramDelta(dc, digram{a, a}, int64(ci/2))
		}
	}
	return dc
}

func digramRank(d digram) int { return d.a0.rank + d.a1.rank - 1 }

// digramSaves applies the cost model: replacing n occurrences is a win when
// n*m + (m+2) < n*(m+2) with m the summed ranks.
func digramSaves(d digram, n int64) bool {
	m := int64(d.a0.rank + d.a1.rank)
	g := m + 2
	return n*m+g < n*g
}

// pickDigram selects the most frequent digram that respects the rank bound
// and the cost model. Ties break toward the smallest digram.
func pickDigram(dc map[digram]int64, maxRank int) (digram, bool) {
	var best digram
	var bestCount int64 = -1
	for d, n := range dc {
		if digramRank(d) > maxRank || !digramSaves(d, n) {
			continue
		}
		if n > bestCount || (n == bestCount && digramLess(d, best)) {
			best = d
			bestCount = n
		}
	}
	if bestCount < 0 {
		return digram{}, false
	}
	return best, true
}

// occState tracks, while scanning the start rule, the adjacency slots seen
// so far per node, so that the second half of a digram occurrence can be
// paired with the first.
type occState struct {
	start int
	nodes map[uint64]*occNode
}

type occNode struct {
	isMap bool
	adjs  map[adjacency][]int
	edge  int
}

func (s *occState) nodeDel(node uint64) { delete(s.nodes, node) }

func removeIndex(l []int, idx int) []int { return append(l[:idx], l[idx+1:]...) }

func indexOf(l []int, v int) int {
	for i, x := range l {
		if x == v {
			return i
		}
	}
	return -1
}

// matches reports whether e fills the adjacency slot a.
func matches(e *Edge, a adjacency) bool {
	return e.Label == a.label && e.Rank() == a.rank
}

// findDigram scans the start rule from the saved position for the next
// occurrence of d: two distinct edges sharing the node at the digram's two
// connection slots. It returns the matched edge indices in digram order.
func findDigram(d digram, start *HGraph, st *occState) (res [2]int, found bool) {
	identical := d.a0 == d.a1

	for i := st.start; i < len(start.Edges); i++ {
		edge := start.Edges[i]
		if edge == nil {
			// Holes are left behind by earlier replacements.
			continue
		}

		if identical {
			if !matches(edge, d.a0) {
				continue
			}
			node := edge.Nodes[d.a0.conn]
			n, ok := st.nodes[node]
			if !ok {
				st.nodes[node] = &occNode{edge: i}
				continue
			}
			e1 := n.edge
			st.nodeDel(node)
			st.start = i
			return [2]int{e1, i}, true
		}

		for j := 0; j <= 1; j++ {
			adj, adj2 := d.a0, d.a1
			if j == 1 {
				adj, adj2 = d.a1, d.a0
			}
			if !matches(edge, adj) {
				continue
			}
			node := edge.Nodes[adj.conn]

			n, ok := st.nodes[node]
			switch {
			case !ok:
				st.nodes[node] = &occNode{
					isMap: true,
					adjs:  map[adjacency][]int{adj: {i}},
				}
			case len(n.adjs) == 1 && n.adjs[adj] != nil:
				n.adjs[adj] = append(n.adjs[adj], i)
			case len(n.adjs) == 1 && len(n.adjs[adj2]) == 1 && n.adjs[adj2][0] == i:
				// The same edge fills both slots at this node; it cannot
				// pair with itself.
				n.adjs[adj] = []int{i}
			default:
				if l := n.adjs[adj]; l != nil {
					if idx := indexOf(l, i); idx >= 0 {
						n.adjs[adj] = removeIndex(l, idx)
					}
				}
				if idx := indexOf(n.adjs[adj2], i); idx >= 0 {
					n.adjs[adj2] = removeIndex(n.adjs[adj2], idx)
				}

				if len(n.adjs[adj2]) == 0 {
					// No partner slot remains for this edge; re-register it
					// under its own slot and keep scanning.
					delete(n.adjs, adj2)
					n.adjs[adj] = append(n.adjs[adj], i)
					continue
				}
				e1 := n.adjs[adj2][0]
				n.adjs[adj2] = n.adjs[adj2][1:]

				// The current edge may also be registered at its other
				// slot's node; unregister it there.
				if matches(edge, adj2) {
					other := edge.Nodes[adj2.conn]
					if on, ok := st.nodes[other]; ok && on.isMap {
						if idx := indexOf(on.adjs[adj2], i); idx >= 0 {
							on.adjs[adj2] = removeIndex(on.adjs[adj2], idx)
							if len(on.adjs[adj2]) == 0 {
								delete(on.adjs, adj2)
								if len(on.adjs) == 0 {
									st.nodeDel(other)
								}
							}
						}
					}
				}
				// Likewise for the paired edge.
				if e1v := start.Edges[e1]; matches(e1v, adj) {
					other := e1v.Nodes[adj.conn]
					if on, ok := st.nodes[other]; ok && on.isMap {
						if idx := indexOf(on.adjs[adj], e1); idx >= 0 {
							on.adjs[adj] = removeIndex(on.adjs[adj], idx)
							if len(on.adjs[adj]) == 0 {
								delete(on.adjs, adj)
								if len(on.adjs) == 0 {
									st.nodeDel(other)
								}
							}
						}
					}
				}

				if l, ok := n.adjs[adj]; ok && len(l) == 0 {
					delete(n.adjs, adj)
				}
				if len(n.adjs[adj2]) == 0 {
					delete(n.adjs, adj2)
				}
				if len(n.adjs) == 0 {
					st.nodeDel(node)
				}

				st.start = i
				if j == 0 {
					return [2]int{i, e1}, true
				}
				return [2]int{e1, i}, true
			}
		}
	}
	return res, false
}

// updateDigramCounts adjusts the per-node adjacency counts and the global
// digram counts for the removal of the two matched edges and the insertion
// of their replacement.
func updateDigramCounts(g *Grammar, maxRank int, oldEdges [2]*Edge, newEdge *Edge, dict []map[adjacency]uint64, dc map[digram]int64) {
	for _, edge := range oldEdges {
		for conn, node := range edge.Nodes {
			a := adjacencyOf(edge, conn)
			m := dict[node]
			count := m[a]

			for a2, c2 := range m {
				if a2 != a && count <= c2 {
					// This digram was countable, so its rank is in bounds.
					updateDigramDelta(dc, digram{a, a2}, -1)
				}
			}
			if count%2 == 0 {
				updateDigramDelta(dc, digram{a, a}, -1)
			}

			count--
			if count == 0 {
				delete(m, a)
			} else {
				m[a] = count
			}
		}
	}

	for conn, node := range newEdge.Nodes {
		a := adjacencyOf(newEdge, conn)
		m := dict[node]
		if m == nil {
			m = make(map[adjacency]uint64)
			dict[node] = m
		}
		m[a]++
		count := m[a]

		for a2, c2 := range m {
			if a2 != a && count <= c2 {
				d := digram{a, a2}
				if digramRank(d) <= maxRank {
					updateDigramDelta(dc, d, +1)
				}
			}
		}
		if count%2 == 0 {
			d := digram{a, a}
			if digramRank(d) <= maxRank {
				updateDigramDelta(dc, d, +1)
			}
		}
	}
}

func replaceDigrams(g *Grammar, nodes uint64, maxRank int) {
	startRule := g.Start

	dict := nodeAdjacencies(startRule, nodes)
	dc := countDigrams(dict)

	for {
		d, ok := pickDigram(dc, maxRank)
		if !ok {
			break
		}
		creator := newDigramRule(g, d)
		ruleCreated := false

		st := &occState{nodes: make(map[uint64]*occNode)}
		for {
			occ, found := findDigram(d, startRule, st)
			if !found {
				break
			}
			oldEdges := [2]*Edge{startRule.Edges[occ[0]], startRule.Edges[occ[1]]}
			newEdge := creator.newEdgeFromDigram(oldEdges[0], oldEdges[1])

			if !ruleCreated {
				// The rule must exist before counts are updated so that the
				// rank of the fresh non-terminal can be resolved.
				g.AddRule(creator.ruleName, creator.rule)
				ruleCreated = true
			}
			updateDigramCounts(g, maxRank, oldEdges, newEdge, dict, dc)

			startRule.Edges[occ[0]] = newEdge
			startRule.Edges[occ[1]] = nil
		}

		delete(dc, canonDigram(d))
	}

	startRule.FillHoles()
}

// countMonograms counts, per edge shape, the pairs of connections bound to
// the same node.
func countMonograms(startRule *HGraph) map[monogram]uint64 {
	mc := make(map[monogram]uint64)
	conns := make(map[uint64][]int)

	for _, e := range startRule.Edges {
		for conn, node := range e.Nodes {
			conns[node] = append(conns[node], conn)
		}

		for _, list := range conns {
			for i := 0; i < len(list); i++ {
				for j := i + 1; j < len(list); j++ {
					mc[monogram{label: e.Label, rank: e.Rank(), conn0: list[i], conn1: list[j]}]++
				}
			}
		}

		for k := range conns {
			delete(conns, k)
		}
	}
	return mc
}

func monogramSaves(m monogram, n int64) bool {
	mm := int64(m.rank)
	g := mm + 1
	return n*mm+g < n*g
}

func pickMonogram(mc map[monogram]uint64) (monogram, bool) {
	var best monogram
	var bestCount int64 = -1
	for m, n := range mc {
		if int64(n) > bestCount || (int64(n) == bestCount && monogramLess(m, best)) {
			best = m
			bestCount = int64(n)
		}
	}
	if bestCount < 0 || !monogramSaves(best, bestCount) {
		return monogram{}, false
	}
	return best, true
}

func findMonogram(m monogram, startRule *HGraph, state *int) (int, bool) {
	for i := *state; i < len(startRule.Edges); i++ {
		e := startRule.Edges[i]
		if e.Label == m.label && e.Rank() == m.rank && e.Nodes[m.conn0] == e.Nodes[m.conn1] {
			*state = i
			return i, true
		}
	}
	return 0, false
}

// updateMonogramCounts migrates the monogram counts of the replaced edge to
// the replacement edge. Monograms touching the removed connection disappear;
// the rest shift down past it.
func updateMonogramCounts(oldEdge, newEdge *Edge, mc map[monogram]uint64, replaced monogram) {
	for m, count := range mc {
		if m.label != oldEdge.Label || m.rank != oldEdge.Rank() {
			continue
		}
		if oldEdge.Nodes[m.conn0] != oldEdge.Nodes[m.conn1] {
			continue
		}

		count--
		if count == 0 {
			delete(mc, m)
		} else {
			mc[m] = count
		}

		if m.conn0 != replaced.conn1 && m.conn1 != replaced.conn1 {
			shift := func(c int) int {
				if c <= replaced.conn1 {
					return c
				}
				return c - 1
			}
			nm := monogram{
				label: newEdge.Label,
				rank:  newEdge.Rank(),
				conn0: shift(m.conn0),
				conn1: shift(m.conn1),
			}
			if nm.conn0 < nm.conn1 {
				mc[nm]++
			}
		}
	}
}

func replaceMonograms(g *Grammar) {
	startRule := g.Start
	mc := countMonograms(startRule)

	for {
		m, ok := pickMonogram(mc)
		if !ok {
			break
		}
		creator := newMonogramRule(g, m)
		addRule := false

		state := 0
		for {
			index, found := findMonogram(m, startRule, &state)
			if !found {
				break
			}
			state = index + 1

			oldEdge := startRule.Edges[index]
			newEdge := creator.newEdgeFromMonogram(oldEdge)
			startRule.Edges[index] = newEdge

			updateMonogramCounts(oldEdge, newEdge, mc, m)
			addRule = true
		}

		if addRule {
			g.AddRule(creator.ruleName, creator.rule)
		}
		delete(mc, m)
	}
}

// countRuleUses counts, over all rule bodies including the start rule, how
// often every non-terminal is used.
func countRuleUses(g *Grammar) map[uint64]int64 {
	uses := make(map[uint64]int64)
	for _, sym := range g.Symbols() {
		for _, e := range g.Rule(sym).Edges {
			if !g.IsTerminal(e.Label) {
				uses[e.Label]++
			}
		}
	}
	return uses
}

// inlineSaves reports whether substituting the rule body beats keeping the
// rule: count*(rank+1) + size > count*size.
func inlineSaves(g *Grammar, symbol uint64, count int64) bool {
	used := int64(g.RankOf(symbol) + 1)
	size := int64(g.SizeOf(symbol))
	return count*used+size > count*size
}

// pickRuleToInline selects the least used rule that the cost model wants
// inlined. Ties break toward the smallest symbol.
func pickRuleToInline(g *Grammar, uses map[uint64]int64) (uint64, bool) {
	var best uint64
	var bestCount int64 = -1
	for sym, n := range uses {
		if !inlineSaves(g, sym, n) {
			continue
		}
		if bestCount < 0 || n < bestCount || (n == bestCount && sym < best) {
			best = sym
			bestCount = n
		}
	}
	if bestCount < 0 {
		return 0, false
	}
	return best, true
}

func prune(g *Grammar) {
	uses := countRuleUses(g)

	for {
		target, ok := pickRuleToInline(g, uses)
		if !ok {
			break
		}
		body := g.Rule(target)

		replacements := int64(0)
		for _, sym := range g.Symbols() {
			if sym == target {
				continue
			}
			rule := g.Rule(sym)
			for index := 0; index < len(rule.Edges); index++ {
				if e := rule.Edges[index]; e.Label == target {
					insertRuleAt(body, rule, e, index)
					replacements++
				}
			}
		}

		for _, e := range body.Edges {
			if !g.IsTerminal(e.Label) {
				uses[e.Label] += replacements - 1
			}
		}
		delete(uses, target)
		g.DeleteRule(target)
	}
}

// normalize renumbers the live non-terminals into the contiguous interval
// starting at MinNT, rewriting every reference.
func normalize(g *Grammar) {
	if g.ruleMax == 0 {
		return
	}
	syms := g.Symbols()
	if len(syms) == 1 {
		return
	}

	for k := 1; k < len(syms); k++ {
		nt := syms[k]
		expected := g.MinNT + uint64(k-1)
		if nt == expected {
			continue
		}
		g.rules[expected-g.MinNT] = g.rules[nt-g.MinNT]
		g.rules[nt-g.MinNT] = nil

		rewrite := func(rule *HGraph) {
			for _, e := range rule.Edges {
				if e.Label == nt {
					e.Label = expected
				}
			}
		}
		rewrite(g.Start)
		for _, r := range g.rules {
			if r != nil {
				rewrite(r)
			}
		}
	}
	g.ruleMax = g.MinNT + uint64(len(syms)) - 2
	g.rules = g.rules[:g.ruleMax-g.MinNT+1]
}
