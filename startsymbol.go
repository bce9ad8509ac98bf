// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"fmt"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/eliasfano"
	"github.com/dsnet/cgraph/internal/k2"
)

// startSymbolReader provides access to the serialized start rule: the
// incidence matrix between nodes (rows) and edges (columns), the sorted
// label table, and the index functions restoring connection order.
type startSymbolReader struct {
	r      bits.Reader
	matrix *k2.Reader
	labels *eliasfano.Reader

	edgeIFBits uint   // bits per edge index-function id
	edgeIFOff  uint64 // bit offset of the packed id table

	ifTable *eliasfano.Reader // bit offsets of the index functions
	ifOff   uint64            // bit offset of the concatenated functions

	ntTable   *k2.Reader // nil without the reachability table
	terminals uint64     // first non-terminal symbol
}

func newStartSymbolReader(r *bits.Reader) (*startSymbolReader, error) {
	lenMatrix, nbytes := r.ReadVbyte()
	off := nbytes

	lenLabels, nbytes := r.ReadVbyte()
	off += nbytes

	lenEdgeIFs, nbytes := r.ReadVbyte()
	off += nbytes

	offLabels := off + lenMatrix
	offEdgeIFs := offLabels + lenLabels
	offIFs := offEdgeIFs + lenEdgeIFs

	matrix, err := k2.NewReader(r.Sub(off))
	if err != nil {
		return nil, err
	}
	labels, err := eliasfano.NewReader(r.Sub(offLabels))
	if err != nil {
		return nil, err
	}

	r.SetBytePos(offEdgeIFs)
	v, nbytes := r.ReadVbyte()
	edgeIFBits := uint(v)
	edgeIFOff := offEdgeIFs + nbytes

	r.SetBytePos(offIFs)
	lenTable, nbytes := r.ReadVbyte()
	offTable := offIFs + nbytes
	offData := offTable + lenTable

	ifTable, err := eliasfano.NewReader(r.Sub(offTable))
	if err != nil {
		return nil, err
	}

	return &startSymbolReader{
		r:          *r,
		matrix:     matrix,
		labels:     labels,
		edgeIFBits: edgeIFBits,
		edgeIFOff:  8 * edgeIFOff,
		ifTable:    ifTable,
		ifOff:      8 * offData,
	}, nil
}

// edgeCount returns the number of start-symbol edges.
func (s *startSymbolReader) edgeCount() uint64 { return s.labels.Len() }

// edgeIF returns the index-function id of edge e.
func (s *startSymbolReader) edgeIF(e uint64) uint64 {
	s.r.SetBitPos(s.edgeIFOff + uint64(s.edgeIFBits)*e)
	return s.r.ReadBits(s.edgeIFBits)
}

// indexFunction decodes index function i.
func (s *startSymbolReader) indexFunction(i uint64) []uint64 {
	s.r.SetBitPos(s.ifOff + s.ifTable.Get(i))

	n := s.r.ReadEliasDelta()
	if n > LimitMaxRank {
		panic(Error(fmt.Sprintf("index function %d with rank %d exceeds the maximum rank %d", i, n, LimitMaxRank)))
	}
	f := make([]uint64, n)
	for k := range f {
		f[k] = s.r.ReadEliasDelta()
	}
	return f
}

// stEdge is a start-symbol edge; its label may be a non-terminal.
type stEdge struct {
	label uint64
	nodes []uint64
}

// ssNeighborhood enumerates start-symbol candidate edges for one query.
type ssNeighborhood struct {
	s          *startSymbolReader
	label      int64    // query label, or Any
	fixedNodes []uint64 // deduplicated non-wildcard query nodes

	// Candidate generation: exactly one of these modes is active.
	efit    *eliasfano.Iterator // predicate query
	k2it    *k2.Iterator        // first-fixed-node query
	seqNext uint64              // full scan
	seq     bool
}

// neighborhood starts candidate generation. For a predicate query the label
// table is walked; with fixed nodes the incidence matrix row of the first
// fixed node is walked; otherwise every edge row is visited.
func (s *startSymbolReader) neighborhood(predicate bool, label int64, nodes []int64) *ssNeighborhood {
	n := &ssNeighborhood{s: s, label: label}
	for _, v := range nodes {
		if v != Any {
			dup := false
			for _, f := range n.fixedNodes {
				if f == uint64(v) {
					dup = true
					break
				}
			}
			if !dup {
				n.fixedNodes = append(n.fixedNodes, uint64(v))
			}
		}
	}

	switch {
	case predicate:
		n.efit = s.labels.Iter(uint64(label), s.terminals)
	case len(n.fixedNodes) > 0:
		n.k2it = s.matrix.RowIter(n.fixedNodes[0])
	default:
		n.seq = true
	}
	return n
}

// next returns the next start-symbol edge passing the label and adjacency
// pre-filters.
func (n *ssNeighborhood) next() (stEdge, bool) {
	for {
		var e uint64
		var ok bool
		switch {
		case n.efit != nil:
			e, ok = n.efit.Next()
		case n.k2it != nil:
			e, ok = n.k2it.Next()
		default:
			if n.seq && n.seqNext < n.s.edgeCount() {
				e, ok = n.seqNext, true
				n.seqNext++
			}
		}
		if !ok {
			return stEdge{}, false
		}
		if edge, use := n.s.getEdge(n, e); use {
			return edge, true
		}
	}
}

func (n *ssNeighborhood) finish() {
	if n.efit != nil {
		n.efit.Finish()
	}
	if n.k2it != nil {
		n.k2it.Finish()
	}
	n.seq = false
}

// getEdge materializes edge e if it can contribute to the query: its label
// must match or be a non-terminal deriving the label, and the edge must
// touch every fixed query node.
func (s *startSymbolReader) getEdge(n *ssNeighborhood, e uint64) (stEdge, bool) {
	label := s.labels.Get(e)

	if n.label != Any {
		if label < s.terminals {
			if label != uint64(n.label) {
				return stEdge{}, false
			}
		} else if s.ntTable != nil && !s.ntTable.Get(label-s.terminals, uint64(n.label)) {
			return stEdge{}, false
		}
	}

	for _, fixed := range n.fixedNodes {
		if !s.matrix.Get(fixed, e) {
			return stEdge{}, false
		}
	}

	nodes := s.matrix.Column(e)

	f := s.indexFunction(s.edgeIF(e))
	ordered := make([]uint64, len(f))
	for j, idx := range f {
		ordered[j] = nodes[idx]
	}
	return stEdge{label: label, nodes: ordered}, true
}
