// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package grammar

import (
	"sort"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/eliasfano"
	"github.com/dsnet/cgraph/internal/k2"
)

// indexFunction is the permutation mapping the sorted distinct node set of a
// start-symbol edge back to its ordered connection list.
type indexFunction []int

func indexFunctionOf(nodes []uint64) indexFunction {
	sorted := append([]uint64(nil), nodes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	distinct := sorted[:0]
	var last uint64
	for i, v := range sorted {
		if i == 0 || v != last {
			distinct = append(distinct, v)
		}
		last = v
	}

	f := make(indexFunction, len(nodes))
	for i, v := range nodes {
		f[i] = sort.Search(len(distinct), func(j int) bool { return distinct[j] >= v })
	}
	return f
}

func indexFunctionLess(a, b indexFunction) bool {
	minLen := min(len(a), len(b))
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func indexFunctionEq(a, b indexFunction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// writeStartSymbol serializes the start rule: the k²-tree incidence matrix
// with one row per node and one column per edge (edges index the columns,
// not the rows), the Elias-Fano label table, the
// bit-packed index-function id per edge, and the deduplicated index-function
// table.
func writeStartSymbol(g *HGraph, nodeCount uint64, w *bits.Writer, factor int) {
	edges := append([]*Edge(nil), g.Edges...)
	sort.Slice(edges, func(i, j int) bool { return edges[i].Compare(edges[j]) < 0 })

	// Collect the distinct index functions in sorted order.
	edgeIFs := make([]indexFunction, len(edges))
	var ifs []indexFunction
	for i, e := range edges {
		f := indexFunctionOf(e.Nodes)
		edgeIFs[i] = f
		ifs = append(ifs, f)
	}
	sort.Slice(ifs, func(i, j int) bool { return indexFunctionLess(ifs[i], ifs[j]) })
	var distinct []indexFunction
	for i, f := range ifs {
		if i == 0 || !indexFunctionEq(f, ifs[i-1]) {
			distinct = append(distinct, f)
		}
	}
	ifs = distinct

	ifIndexOf := func(f indexFunction) uint64 {
		return uint64(sort.Search(len(ifs), func(j int) bool { return !indexFunctionLess(ifs[j], f) }))
	}

	var cells []k2.Edge
	labels := make([]uint64, len(edges))
	ifTable := make([]uint64, len(edges))
	for i, e := range edges {
		for _, node := range e.Nodes {
			cells = append(cells, k2.Edge{X: uint64(i), Y: node})
		}
		labels[i] = e.Label
		ifTable[i] = ifIndexOf(edgeIFs[i])
	}

	var w0, w1, w2 bits.Writer
	k2.Write(uint64(len(edges)), nodeCount, cells, &w0, factor)
	eliasfano.Write(labels, &w1, factor)
	writePackedTable(ifTable, &w2)

	w.WriteVbyte(w0.ByteLen())
	w.WriteVbyte(w1.ByteLen())
	w.WriteVbyte(w2.ByteLen())
	w.WriteWriter(&w0)
	w.WriteWriter(&w1)
	w.WriteWriter(&w2)
	writeIndexFunctions(ifs, w, factor)
	w.Flush()
}

// writePackedTable writes the values at the fixed bit width of the largest.
func writePackedTable(vals []uint64, w *bits.Writer) {
	var maxv uint64
	for _, v := range vals {
		if v > maxv {
			maxv = v
		}
	}
	nbits := uint(1)
	for 1<<nbits <= maxv && nbits < 64 {
		nbits++
	}

	w.WriteVbyte(uint64(nbits))
	for _, v := range vals {
		w.WriteBits(v, nbits)
	}
	w.Flush()
}

// writeIndexFunctions stores the distinct index functions as concatenated
// Elias-delta codes behind an Elias-Fano bit-offset table.
func writeIndexFunctions(ifs []indexFunction, w *bits.Writer, factor int) {
	encoded := make([]bits.Writer, len(ifs))
	offsets := make([]uint64, len(ifs))
	for i, f := range ifs {
		encoded[i].WriteEliasDelta(uint64(len(f)))
		for _, v := range f {
			encoded[i].WriteEliasDelta(uint64(v))
		}
		if i > 0 {
			offsets[i] = offsets[i-1] + encoded[i-1].Len()
		}
	}

	var w0 bits.Writer
	eliasfano.Write(offsets, &w0, factor)

	w.WriteVbyte(w0.ByteLen())
	w.WriteWriter(&w0)
	for i := range encoded {
		// Concatenated without flushing so the bit offsets stay exact.
		w.WriteArray(writerBits(&encoded[i]))
	}
	w.Flush()
}

// writerBits exposes the raw bit array of a writer for unflushed splicing.
func writerBits(w *bits.Writer) *bits.Array { return w.BitArray() }

// writeRules serializes every rule body as Elias-delta codes behind an
// Elias-Fano table of start bit offsets.
func writeRules(g *Grammar, w *bits.Writer, factor int) {
	ntCount := g.RuleCount()

	encoded := make([]bits.Writer, ntCount)
	offsets := make([]uint64, ntCount)
	for i := uint64(0); i < ntCount; i++ {
		rule := g.Rule(g.MinNT + i)

		b := &encoded[i]
		b.WriteEliasDelta(uint64(len(rule.Edges)))
		for _, e := range rule.Edges {
			b.WriteEliasDelta(e.Label)
			b.WriteEliasDelta(uint64(e.Rank()))
			for _, n := range e.Nodes {
				b.WriteEliasDelta(n)
			}
		}
		if i > 0 {
			offsets[i] = offsets[i-1] + encoded[i-1].Len()
		}
	}

	var w0 bits.Writer
	eliasfano.Write(offsets, &w0, factor)

	firstNT := g.MinNT
	if ntCount == 0 {
		firstNT = g.UnusedNT()
	}
	w.WriteVbyte(firstNT)
	w.WriteVbyte(ntCount)
	w.WriteVbyte(w0.ByteLen())
	w.WriteWriter(&w0)
	for i := range encoded {
		w.WriteArray(writerBits(&encoded[i]))
	}
	w.Flush()
}

// writeNTTable serializes the |N| x |Sigma| reachability matrix: bit (i, t)
// is set when non-terminal MinNT+i can derive an edge with terminal label t.
func writeNTTable(g *Grammar, terminals uint64, w *bits.Writer, factor int) {
	ntCount := g.RuleCount()
	tableWidth := terminals + ntCount

	table := bits.NewArray(ntCount * tableWidth)

	for i := uint64(0); i < ntCount; i++ {
		for _, e := range g.Rule(g.MinNT + i).Edges {
			table.Set(i*tableWidth+e.Label, true)
		}
	}

	// Transitive closure over the non-terminal columns.
	for k := uint64(0); k < ntCount; k++ {
		for i := uint64(0); i < ntCount; i++ {
			for j := uint64(0); j < tableWidth; j++ {
				if !table.Get(i*tableWidth + j) {
					v := table.Get(i*tableWidth+terminals+k) && table.Get(k*tableWidth+j)
					table.Set(i*tableWidth+j, v)
				}
			}
		}
	}

	// Only the terminal columns survive into the serialized matrix.
	var cells []k2.Edge
	for i := uint64(0); i < ntCount; i++ {
		for j := uint64(0); j < terminals; j++ {
			if table.Get(i*tableWidth + j) {
				cells = append(cells, k2.Edge{X: j, Y: i})
			}
		}
	}
	k2.Write(terminals, ntCount, cells, w, factor)
}

// Write serializes the grammar section: node count, start symbol, rules and
// the optional reachability table.
func Write(g *Grammar, nodeCount, terminals uint64, ntTable bool, w *bits.Writer, factor int) {
	var w0, w1 bits.Writer
	writeStartSymbol(g.Rule(StartSymbol), nodeCount, &w0, factor)
	writeRules(g, &w1, factor)

	w.WriteVbyte(nodeCount)
	if ntTable {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
	w.WriteVbyte(w0.ByteLen())
	if ntTable {
		w.WriteVbyte(w1.ByteLen())
	}
	w.WriteWriter(&w0)
	w.WriteWriter(&w1)

	if ntTable {
		writeNTTable(g, terminals, w, factor)
	}
	w.Flush()
}
