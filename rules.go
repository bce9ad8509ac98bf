// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"fmt"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/eliasfano"
)

// rulesReader decodes single rule bodies through an Elias-Fano offset table
// without scanning the rule block.
type rulesReader struct {
	r         bits.Reader
	firstNT   uint64
	ruleCount uint64
	table     *eliasfano.Reader
	offRules  uint64 // bit offset of the concatenated rule bodies
}

func newRulesReader(r *bits.Reader) (*rulesReader, error) {
	firstNT, nbytes := r.ReadVbyte()
	off := nbytes

	ruleCount, nbytes := r.ReadVbyte()
	off += nbytes

	lenTable, nbytes := r.ReadVbyte()
	off += nbytes

	table, err := eliasfano.NewReader(r.Sub(off))
	if err != nil {
		return nil, err
	}

	return &rulesReader{
		r:         *r,
		firstNT:   firstNT,
		ruleCount: ruleCount,
		table:     table,
		offRules:  8 * (off + lenTable),
	}, nil
}

// get decodes the body of non-terminal nt.
func (r *rulesReader) get(nt uint64) []stEdge {
	i := nt - r.firstNT
	if i >= r.ruleCount {
		panic(Error(fmt.Sprintf("no rule found for non-terminal %d", nt)))
	}

	r.r.SetBitPos(r.offRules + r.table.Get(i))

	numEdges := r.r.ReadEliasDelta()
	edges := make([]stEdge, numEdges)
	for j := range edges {
		label := r.r.ReadEliasDelta()
		rank := r.r.ReadEliasDelta()
		nodes := make([]uint64, rank)
		for k := range nodes {
			nodes[k] = r.r.ReadEliasDelta()
		}
		edges[j] = stEdge{label: label, nodes: nodes}
	}
	return edges
}
