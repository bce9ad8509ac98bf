// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"bytes"
	"os"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/container"
)

// Reader answers queries against a compressed graph artifact. A Reader and
// its iterators are not safe for concurrent use; every live iterator must be
// finished before Close.
type Reader struct {
	f   *os.File // nil for in-memory readers
	src *bits.Source
	gr  *grammarReader
	dr  *dictReader
}

// Open opens the artifact at path through a block-cached reader.
func Open(path string) (r *Reader, err error) {
	defer errRecover(&err)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err = open(bits.NewSourceReaderAt(f, st.Size()))
	if err != nil {
		f.Close()
		return nil, err
	}
	r.f = f
	return r, nil
}

// NewReader opens an in-memory artifact.
func NewReader(data []byte) (r *Reader, err error) {
	defer errRecover(&err)
	return open(bits.NewSource(data))
}

func open(src *bits.Source) (*Reader, error) {
	r := bits.NewReader(src, 0)

	if !bytes.Equal(r.ReadBytes(uint64(len(magic))), []byte(magic)) {
		return nil, ErrCorrupt
	}
	lenGrammar, nbytes := r.ReadVbyte()

	offGrammar := uint64(len(magic)) + nbytes
	offDict := offGrammar + lenGrammar

	gr, err := newGrammarReader(bits.NewReader(src, offGrammar))
	if err != nil {
		return nil, err
	}
	dr, err := newDictReader(bits.NewReader(src, offDict))
	if err != nil {
		return nil, err
	}
	return &Reader{src: src, gr: gr, dr: dr}, nil
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.f != nil {
		err := r.f.Close()
		r.f = nil
		return err
	}
	return nil
}

// NodeCount returns the number of nodes in the graph.
func (r *Reader) NodeCount() uint64 { return r.gr.nodeCount }

// EdgeLabelCount returns the number of distinct edge labels.
func (r *Reader) EdgeLabelCount() uint64 { return r.gr.rules.firstNT }

// StartEdgeCount returns the number of top-level grammar edges, a lower
// bound on the edge count of the graph.
func (r *Reader) StartEdgeCount() uint64 { return r.gr.start.edgeCount() }

// ExtractNode returns the label of node n.
func (r *Reader) ExtractNode(n int64) ([]byte, bool) {
	ones := r.dr.bitsNode.Ones()
	if n < 0 || uint64(n) >= ones {
		return nil, false
	}
	i := r.dr.bitsNode.Select1(uint64(n) + 1)
	return r.dr.extract(uint64(i))
}

// ExtractEdgeLabel returns the text of edge label e.
func (r *Reader) ExtractEdgeLabel(e int64) ([]byte, bool) {
	var ones uint64
	if r.dr.bitsEdge != nil {
		ones = r.dr.bitsEdge.Ones()
	} else {
		ones = r.dr.bitsNode.Len() - r.dr.bitsNode.Ones()
	}
	if e < 0 || uint64(e) >= ones {
		return nil, false
	}

	var i int64
	if r.dr.bitsEdge != nil {
		i = r.dr.bitsEdge.Select1(uint64(e) + 1)
	} else {
		i = r.dr.bitsNode.Select0(uint64(e) + 1)
	}
	return r.dr.extract(uint64(i))
}

// LocateNode returns the id of the node with the given label, or -1.
func (r *Reader) LocateNode(label []byte) int64 {
	i := r.dr.locate(label)
	if i < 0 || !r.dr.bitsNode.Access(uint64(i)) {
		return -1
	}
	return int64(r.dr.bitsNode.Rank1(i)) - 1
}

// LocateEdgeLabel returns the id of the edge label with the given text,
// or -1.
func (r *Reader) LocateEdgeLabel(label []byte) int64 {
	i := r.dr.locate(label)
	if i < 0 {
		return -1
	}
	if r.dr.bitsEdge != nil {
		if !r.dr.bitsEdge.Access(uint64(i)) {
			return -1
		}
		return int64(r.dr.bitsEdge.Rank1(i)) - 1
	}
	if r.dr.bitsNode.Access(uint64(i)) {
		return -1
	}
	return int64(r.dr.bitsNode.Rank0(i)) - 1
}

// NodeIterator yields node ids from prefix or substring searches.
type NodeIterator struct {
	bitsNode *bits.Seq

	// Prefix search walks a dictionary range directly.
	prefix      bool
	next, limit uint64
	exhausted   bool

	// Substring search maps suffix-array rows and deduplicates.
	it  substrIter
	set container.IntSet
}

// LocateNodePrefix returns an iterator over the ids of all nodes whose
// label starts with prefix, ascending, each exactly once.
func (r *Reader) LocateNodePrefix(prefix []byte) *NodeIterator {
	it := &NodeIterator{bitsNode: r.dr.bitsNode, prefix: true}
	if s, e, ok := r.dr.locatePrefix(prefix); ok {
		it.next, it.limit = s, e
	} else {
		it.exhausted = true
	}
	return it
}

// SearchNode returns an iterator over the ids of all nodes whose label
// contains substr, each exactly once.
func (r *Reader) SearchNode(substr []byte) *NodeIterator {
	return &NodeIterator{bitsNode: r.dr.bitsNode, it: r.dr.locateSubstr(substr)}
}

// Next returns the next node id.
func (it *NodeIterator) Next() (int64, bool) {
	for {
		if it.prefix {
			if it.exhausted || it.next > it.limit {
				it.exhausted = true
				return 0, false
			}
			v := it.next
			it.next++
			if it.bitsNode.Access(v) {
				return int64(it.bitsNode.Rank1(int64(v))) - 1, true
			}
		} else {
			v, ok := it.it.Next()
			if !ok {
				return 0, false
			}
			if it.bitsNode.Access(v) {
				match := uint64(it.bitsNode.Rank1(int64(v))) - 1
				if it.set.Add(match) {
					return int64(match), true
				}
			}
		}
	}
}

// Finish releases the iterator. It is safe to call more than once.
func (it *NodeIterator) Finish() {
	it.exhausted = true
	it.it.hasNext = false
}

func (r *Reader) validNodes(nodes []int64) bool {
	for _, n := range nodes {
		if n != Any && (n < 0 || uint64(n) >= r.gr.nodeCount) {
			return false
		}
	}
	return true
}

// Edges returns an iterator over all edges of the given rank whose label
// matches (Any for a wildcard) and whose i-th connection matches nodes[i]
// (Any entries match every node). The rank is len(nodes).
func (r *Reader) Edges(label int64, nodes []int64) *EdgeIterator {
	if !r.validNodes(nodes) {
		return emptyEdgeIterator()
	}
	return r.gr.neighborhood(false, len(nodes), label, nodes)
}

// EdgesByPredicate returns an iterator over every edge with the given
// label, of any rank.
func (r *Reader) EdgesByPredicate(label int64) *EdgeIterator {
	if label < 0 || uint64(label) >= r.gr.rules.firstNT {
		return emptyEdgeIterator()
	}
	return r.gr.neighborhood(true, Any, label, nil)
}

// AllEdges returns an iterator decompressing the whole graph.
func (r *Reader) AllEdges() *EdgeIterator {
	return r.gr.neighborhood(false, Any, Any, nil)
}

// EdgesConnecting returns an iterator over the edges of rank len(nodes), of
// any label, whose i-th connection is nodes[i] for every non-wildcard entry.
// Nodes are matched by position; an edge holding them at other positions is
// not returned.
func (r *Reader) EdgesConnecting(nodes []int64) *EdgeIterator {
	if !r.validNodes(nodes) {
		return emptyEdgeIterator()
	}
	return r.gr.neighborhood(false, len(nodes), Any, nodes)
}

// EdgeExists reports whether the exact edge is present.
func (r *Reader) EdgeExists(label int64, nodes []int64) bool {
	if label < 0 || uint64(label) >= r.gr.rules.firstNT || !r.validNodes(nodes) {
		return false
	}
	it := r.gr.neighborhood(false, len(nodes), label, nodes)
	if _, ok := it.Next(); ok {
		it.Finish()
		return true
	}
	return false
}

// NodesConnected reports whether some edge of rank len(nodes) has nodes[i]
// as its i-th connection for every non-wildcard entry; nodes held at other
// positions do not count.
func (r *Reader) NodesConnected(nodes []int64) bool {
	it := r.EdgesConnecting(nodes)
	if _, ok := it.Next(); ok {
		it.Finish()
		return true
	}
	return false
}
