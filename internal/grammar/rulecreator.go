// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package grammar

// adjacency identifies one connection slot of a labeled edge. The rank is
// carried along so that labels occurring at several ranks never mix.
type adjacency struct {
	label uint64
	rank  int
	conn  int
}

func adjacencyLess(a, b adjacency) bool {
	if a.label != b.label {
		return a.label < b.label
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	return a.conn < b.conn
}

// digram is an unordered pair of adjacency types sharing one node, stored in
// canonical (sorted) orientation.
type digram struct {
	a0, a1 adjacency
}

func canonDigram(d digram) digram {
	if adjacencyLess(d.a1, d.a0) {
		return digram{d.a1, d.a0}
	}
	return d
}

func digramLess(a, b digram) bool {
	if a.a0 != b.a0 {
		return adjacencyLess(a.a0, b.a0)
	}
	return adjacencyLess(a.a1, b.a1)
}

// monogram is an edge shape with two connections bound to the same node.
type monogram struct {
	label        uint64
	rank         int
	conn0, conn1 int
}

func monogramLess(a, b monogram) bool {
	if a.label != b.label {
		return a.label < b.label
	}
	if a.rank != b.rank {
		return a.rank < b.rank
	}
	if a.conn0 != b.conn0 {
		return a.conn0 < b.conn0
	}
	return a.conn1 < b.conn1
}

// digramBuildEdge lays out one body edge of a digram rule: connection conn
// binds the shared external node 0, every other connection binds a fresh
// external node numbered from nodeOffset.
func digramBuildEdge(label uint64, conn, rank, nodeOffset int) *Edge {
	e := &Edge{Label: label, Nodes: make([]uint64, rank)}
	for i := 0; i < rank; i++ {
		switch {
		case i < conn:
			e.Nodes[i] = uint64(nodeOffset + i)
		case i == conn:
			e.Nodes[i] = 0
		default:
			e.Nodes[i] = uint64(nodeOffset + i - 1)
		}
	}
	return e
}

// ruleCreator builds the replacement rule of one digram or monogram and the
// edges that stand in for its occurrences.
type ruleCreator struct {
	dig      digram
	mono     monogram
	ruleName uint64
	rule     *HGraph
}

func newDigramRule(g *Grammar, d digram) *ruleCreator {
	rank0, rank1 := d.a0.rank, d.a1.rank

	graph := NewHGraph(rank0 + rank1 - 1)
	graph.Add(digramBuildEdge(d.a0.label, d.a0.conn, rank0, 1))
	graph.Add(digramBuildEdge(d.a1.label, d.a1.conn, rank1, rank0))

	return &ruleCreator{dig: d, rule: graph, ruleName: g.UnusedNT()}
}

// newEdgeFromDigram merges the two matched edges into one edge labeled with
// the fresh non-terminal, listing the shared node first.
func (c *ruleCreator) newEdgeFromDigram(e1, e2 *Edge) *Edge {
	shared := e1.Nodes[c.dig.a0.conn]

	e := &Edge{Label: c.ruleName, Nodes: make([]uint64, 0, e1.Rank()+e2.Rank()-1)}
	e.Nodes = append(e.Nodes, shared)
	for i, n := range e1.Nodes {
		if i != c.dig.a0.conn {
			e.Nodes = append(e.Nodes, n)
		}
	}
	for i, n := range e2.Nodes {
		if i != c.dig.a1.conn {
			e.Nodes = append(e.Nodes, n)
		}
	}
	return e
}

func monogramBuildEdge(label uint64, conn0, conn1, rank int) *Edge {
	e := &Edge{Label: label, Nodes: make([]uint64, rank)}
	for i := 0; i < rank; i++ {
		switch {
		case i < conn1:
			e.Nodes[i] = uint64(i)
		case i == conn1:
			e.Nodes[i] = uint64(conn0)
		default:
			e.Nodes[i] = uint64(i - 1)
		}
	}
	return e
}

func newMonogramRule(g *Grammar, m monogram) *ruleCreator {
	graph := NewHGraph(m.rank - 1)
	graph.Add(monogramBuildEdge(m.label, m.conn0, m.conn1, m.rank))
	return &ruleCreator{mono: m, rule: graph, ruleName: g.UnusedNT()}
}

// newEdgeFromMonogram drops the duplicated connection conn1 of the matched
// edge.
func (c *ruleCreator) newEdgeFromMonogram(old *Edge) *Edge {
	e := &Edge{Label: c.ruleName, Nodes: make([]uint64, old.Rank()-1)}
	for i := range e.Nodes {
		if i < c.mono.conn1 {
			e.Nodes[i] = old.Nodes[i]
		} else {
			e.Nodes[i] = old.Nodes[i+1]
		}
	}
	return e
}

// insertRuleAt substitutes the body of ruleToInsert for the non-terminal
// edge at the given index of rule, binding the body's external nodes to the
// edge's actual nodes. The first body edge overwrites the slot in place;
// the rest are appended.
func insertRuleAt(ruleToInsert, rule *HGraph, hyperedge *Edge, index int) {
	for i, b := range ruleToInsert.Edges {
		e := &Edge{Label: b.Label, Nodes: make([]uint64, len(b.Nodes))}
		for j, n := range b.Nodes {
			e.Nodes[j] = hyperedge.Nodes[n]
		}
		if i == 0 {
			rule.Edges[index] = e
		} else {
			rule.Add(e)
		}
	}
}
