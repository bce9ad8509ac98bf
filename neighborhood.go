// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/container"
	"github.com/dsnet/cgraph/internal/k2"
)

// grammarReader combines the start symbol, the rule table and the optional
// reachability table.
type grammarReader struct {
	nodeCount uint64
	start     *startSymbolReader
	rules     *rulesReader
	ntTable   *k2.Reader
}

func newGrammarReader(r *bits.Reader) (*grammarReader, error) {
	nodeCount, nbytes := r.ReadVbyte()
	off := nbytes

	withNTTable := r.ReadUint8() != 0
	off++

	lenStart, nbytes := r.ReadVbyte()
	off += nbytes

	var lenRules uint64
	if withNTTable {
		lenRules, nbytes = r.ReadVbyte()
		off += nbytes
	}

	offRules := off + lenStart

	start, err := newStartSymbolReader(r.Sub(off))
	if err != nil {
		return nil, err
	}
	rules, err := newRulesReader(r.Sub(offRules))
	if err != nil {
		return nil, err
	}

	var ntTable *k2.Reader
	if withNTTable {
		if ntTable, err = k2.NewReader(r.Sub(offRules + lenRules)); err != nil {
			return nil, err
		}
	}

	start.ntTable = ntTable
	start.terminals = rules.firstNT

	return &grammarReader{
		nodeCount: nodeCount,
		start:     start,
		rules:     rules,
		ntTable:   ntTable,
	}, nil
}

// EdgeIterator lazily expands start-symbol candidates into the terminal
// edges matching a query. Iterators must be used from a single goroutine
// and finished (or exhausted) before the owning Reader is closed.
type EdgeIterator struct {
	g *grammarReader

	label int64   // query label, or Any
	rank  int     // query rank, or Any
	nodes []int64 // per-position query nodes; nil for predicate queries

	ss      *ssNeighborhood
	queue   container.RingQueue[stEdge]
	hasNext bool
}

// emptyEdgeIterator satisfies queries that can match nothing.
func emptyEdgeIterator() *EdgeIterator { return &EdgeIterator{} }

func (g *grammarReader) neighborhood(predicate bool, rank int, label int64, nodes []int64) *EdgeIterator {
	if label != Any && uint64(label) >= g.rules.firstNT {
		return emptyEdgeIterator()
	}
	return &EdgeIterator{
		g:       g,
		label:   label,
		rank:    rank,
		nodes:   nodes,
		ss:      g.start.neighborhood(predicate, label, nodes),
		hasNext: true,
	}
}

// expand tests e against the query. A terminal match is returned; a
// non-terminal that may still derive matches has its rule body enqueued
// with the external nodes bound.
func (it *EdgeIterator) expand(e stEdge) (Edge, bool) {
	g := it.g

	if e.label < g.rules.firstNT {
		if it.label != Any && e.label != uint64(it.label) {
			return Edge{}, false
		}
		if it.rank != Any && it.rank != len(e.nodes) {
			return Edge{}, false
		}
		for i, want := range it.nodes {
			if want != Any && (i >= len(e.nodes) || e.nodes[i] != uint64(want)) {
				return Edge{}, false
			}
		}

		res := Edge{Label: int64(e.label), Nodes: make([]int64, len(e.nodes))}
		for i, n := range e.nodes {
			res.Nodes[i] = int64(n)
		}
		return res, true
	}

	if it.label != Any && g.ntTable != nil {
		if !g.ntTable.Get(e.label-g.rules.firstNT, uint64(it.label)) {
			return Edge{}, false
		}
	}
	for _, want := range it.nodes {
		if want != Any && !edgeContains(e, uint64(want)) {
			return Edge{}, false
		}
	}

	for _, b := range g.rules.get(e.label) {
		sub := stEdge{label: b.label, nodes: make([]uint64, len(b.nodes))}
		for j, n := range b.nodes {
			sub.nodes[j] = e.nodes[n]
		}
		it.queue.Enqueue(sub)
	}
	return Edge{}, false
}

func edgeContains(e stEdge, n uint64) bool {
	for _, v := range e.nodes {
		if v == n {
			return true
		}
	}
	return false
}

// Next returns the next matching edge.
func (it *EdgeIterator) Next() (Edge, bool) {
	if !it.hasNext {
		return Edge{}, false
	}
	for {
		if it.queue.Empty() {
			e, ok := it.ss.next()
			if !ok {
				it.Finish()
				return Edge{}, false
			}
			it.queue.Enqueue(e)
		}
		for !it.queue.Empty() {
			e, _ := it.queue.Dequeue()
			if res, ok := it.expand(e); ok {
				return res, true
			}
		}
	}
}

// Finish releases the iterator. It is safe to call more than once.
func (it *EdgeIterator) Finish() {
	if it.hasNext {
		it.ss.finish()
		it.queue.Reset()
		it.hasNext = false
	}
}
