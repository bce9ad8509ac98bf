// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"bufio"
	"encoding/binary"
	"os"
	"sort"
	"strings"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/grammar"
)

// Writer builds a compressed graph artifact. Edges are collected into a
// deduplicating set with interned labels; Compress irreversibly flips the
// handle into its post-grammar state, after which Encode or WriteFile
// serialize the artifact.
type Writer struct {
	params     Params
	compressed bool

	// Log, if set, receives progress lines during Compress and WriteFile.
	Log func(format string, args ...interface{})

	dict     map[string]*dictEntry
	nextID   uint64
	disjoint bool

	nodes     uint64 // distinct node labels, after Compress
	terminals uint64 // distinct edge labels, after Compress

	// Pre-compress state.
	edges map[string]wEdge

	// Post-compress state.
	sorted  []string
	bv, be  *bits.Array
	grammar *grammar.Grammar
}

type dictEntry struct {
	id      uint64 // insertion order
	occNode bool
	occEdge bool
}

// wEdge is an edge over interned insertion-order ids.
type wEdge struct {
	label uint64
	nodes []uint64
}

// NewWriter returns an empty writer with default parameters.
func NewWriter() *Writer {
	return &Writer{
		dict:     make(map[string]*dictEntry),
		edges:    make(map[string]wEdge),
		disjoint: true,
	}
}

// SetParams adjusts the compression parameters. It must be called before
// Compress.
func (w *Writer) SetParams(p Params) error {
	if w.compressed {
		return Error("cannot change parameters after compression")
	}
	p.fill()
	w.params = p
	return nil
}

func (w *Writer) logf(format string, args ...interface{}) {
	if w.Log != nil {
		w.Log(format, args...)
	}
}

func (w *Writer) intern(s string, node bool) (uint64, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return 0, Error("label contains a NUL byte")
	}
	e, ok := w.dict[s]
	if !ok {
		e = &dictEntry{id: w.nextID}
		w.nextID++
		w.dict[s] = e
	}
	if node {
		if e.occEdge {
			w.disjoint = false
		}
		e.occNode = true
	} else {
		if e.occNode {
			w.disjoint = false
		}
		e.occEdge = true
	}
	return e.id, nil
}

// AddEdge records one hyperedge. Duplicate edges (same label and ordered
// node list) collapse to a single occurrence. The rank must lie in
// [1, LimitMaxRank].
func (w *Writer) AddEdge(label string, nodes ...string) error {
	if w.compressed {
		return Error("cannot add edges after compression")
	}
	if len(nodes) < 1 || len(nodes) > LimitMaxRank {
		return Error("edge rank out of range")
	}

	e := wEdge{nodes: make([]uint64, len(nodes))}
	var err error
	if e.label, err = w.intern(label, false); err != nil {
		return err
	}
	for i, n := range nodes {
		if e.nodes[i], err = w.intern(n, true); err != nil {
			return err
		}
	}
	w.edges[edgeKey(e)] = e
	return nil
}

// AddNode records an isolated node label not touched by any edge.
func (w *Writer) AddNode(label string) error {
	if w.compressed {
		return Error("cannot add nodes after compression")
	}
	_, err := w.intern(label, true)
	return err
}

func edgeKey(e wEdge) string {
	var b []byte
	b = binary.AppendUvarint(b, e.label)
	for _, n := range e.nodes {
		b = binary.AppendUvarint(b, n)
	}
	return string(b)
}

// Compress reduces the collected edges to an SLHR grammar. The writer
// becomes read-only afterwards; the operation cannot be repeated.
func (w *Writer) Compress() (err error) {
	defer errRecover(&err)

	if w.compressed {
		return Error("already compressed")
	}
	if len(w.edges) == 0 {
		return Error("empty graph is not supported")
	}
	params := w.params
	params.fill()

	// Sort the dictionary; ids seen by the grammar follow this order.
	sorted := make([]string, 0, len(w.dict))
	for s := range w.dict {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	bv := bits.NewArray(uint64(len(sorted)))
	var be *bits.Array
	if !w.disjoint {
		be = bits.NewArray(uint64(len(sorted)))
	}

	// nodeID and edgeID are the rank-compressed ids per role.
	nodeID := make(map[uint64]uint64)
	edgeID := make(map[uint64]uint64)
	for i, s := range sorted {
		e := w.dict[s]
		if e.occNode {
			bv.Set(uint64(i), true)
			nodeID[e.id] = w.nodes
			w.nodes++
		}
		if e.occEdge {
			if be != nil {
				be.Set(uint64(i), true)
			}
			// With disjoint roles this equals the rank among non-node
			// entries; otherwise the rank within be. Both are the count of
			// edge-role entries seen so far in sorted order.
			edgeID[e.id] = w.terminals
			w.terminals++
		}
	}

	w.logf("building start symbol from %d edges", len(w.edges))
	hg := grammar.NewHGraph(grammar.RankNone)
	for _, we := range w.edges {
		e := &grammar.Edge{Label: edgeID[we.label], Nodes: make([]uint64, len(we.nodes))}
		for i, n := range we.nodes {
			e.Nodes[i] = nodeID[n]
		}
		hg.Add(e)
	}
	// Sorting the edges enhances the compression.
	sort.Slice(hg.Edges, func(i, j int) bool { return hg.Edges[i].Compare(hg.Edges[j]) < 0 })

	w.logf("running repair (max rank %d)", params.MaxRank)
	gr := grammar.Compress(hg, w.nodes, w.terminals, params.MaxRank, params.Monograms)

	w.edges = nil
	w.compressed = true
	w.sorted = sorted
	w.bv = bv
	w.be = be
	w.grammar = gr
	return nil
}

// Encode serializes the compressed artifact into memory.
func (w *Writer) Encode() (data []byte, err error) {
	defer errRecover(&err)

	if !w.compressed {
		return nil, Error("not compressed")
	}
	params := w.params
	params.fill()

	var gw bits.Writer
	grammar.Write(w.grammar, w.nodes, w.terminals, !params.NoNTTable, &gw, params.Factor)

	var out bits.Writer
	out.WriteBytes([]byte(magic))
	w.logf("writing grammar (%d bytes)", gw.ByteLen())
	out.WriteVbyte(gw.ByteLen())
	out.WriteWriter(&gw)

	w.logf("writing dictionary (%d entries)", len(w.sorted))
	writeDict(w.sorted, w.bv, w.be, w.disjoint, params.Sampling, !params.NoRLE, &out, params.Factor)

	out.Flush()
	return out.Bytes(), nil
}

// WriteFile serializes the compressed artifact to path.
func (w *Writer) WriteFile(path string) error {
	data, err := w.Encode()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := bw.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	w.logf("writing finished")
	return f.Close()
}
