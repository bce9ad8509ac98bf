// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package wavelet

import (
	"fmt"

	"github.com/dsnet/cgraph/internal/bits"
)

// maxNodes bounds the topology of a byte-alphabet tree: at most 256 leaves
// and 255 internal nodes.
const maxNodes = 511

type rnode struct {
	leaf  bool
	value byte
	left  int
	right int

	// Precomputed for internal nodes so a single rank per level suffices.
	bitOff      uint64
	bitOffRank1 uint64
}

// Reader answers access and rank queries against a serialized wavelet tree.
type Reader struct {
	bits   *bits.Seq
	tree   [maxNodes]rnode
	coding [256]*bits.Array
}

// NewReader reads a wavelet tree starting at the origin of r.
func NewReader(r *bits.Reader) (*Reader, error) {
	length, nbytes := r.ReadVbyte()
	off := nbytes

	lenTree, nbytes := r.ReadVbyte()
	off += nbytes

	b, err := bits.NewSeq(r.Sub(off + lenTree))
	if err != nil {
		return nil, err
	}

	w := &Reader{bits: b}

	var cnt int
	r.SetBytePos(off)
	if err := w.readTree(r, &cnt); err != nil {
		return nil, err
	}

	// The offsets are derived after the whole topology is read because
	// reading moves the shared bit position.
	var bitOff uint64
	w.treeData(0, length, &bitOff)

	w.buildCoding(0, bits.NewArray(0))
	return w, nil
}

func (w *Reader) readTree(r *bits.Reader, cnt *int) error {
	i := *cnt
	*cnt = *cnt + 1
	if *cnt > maxNodes {
		return Error(fmt.Sprintf("the number of nodes exceeds the maximum of %d", maxNodes))
	}

	if r.ReadBit() {
		w.tree[i].leaf = true
		w.tree[i].value = r.ReadUint8()
		return nil
	}
	w.tree[i].left = *cnt
	if err := w.readTree(r, cnt); err != nil {
		return err
	}
	w.tree[i].right = *cnt
	return w.readTree(r, cnt)
}

func (w *Reader) treeData(i int, length uint64, bitOff *uint64) {
	n := &w.tree[i]
	if n.leaf {
		return
	}
	n.bitOff = *bitOff
	*bitOff += length

	if n.bitOff > 0 {
		n.bitOffRank1 = w.bits.Rank1(int64(n.bitOff) - 1)
	}
	lenRight := w.bits.Rank1(int64(n.bitOff+length)-1) - n.bitOffRank1

	w.treeData(n.left, length-lenRight, bitOff)
	w.treeData(n.right, lenRight, bitOff)
}

func (w *Reader) buildCoding(i int, path *bits.Array) {
	n := &w.tree[i]
	if n.leaf {
		w.coding[n.value] = path
		return
	}
	pathr := bits.NewArray(0)
	pathr.AppendArray(path)
	pathr.Append(true)
	path.Append(false)

	w.buildCoding(n.left, path)
	w.buildCoding(n.right, pathr)
}

func (w *Reader) rank0At(n *rnode, i uint64) uint64 {
	return w.bits.Rank0(int64(n.bitOff+i)) - (n.bitOff - n.bitOffRank1)
}

func (w *Reader) rank1At(n *rnode, i uint64) uint64 {
	return w.bits.Rank1(int64(n.bitOff+i)) - n.bitOffRank1
}

// Access returns the byte at position i and its rank within its leaf,
// that is, the number of equal bytes in positions [0, i].
func (w *Reader) Access(i uint64) (byte, uint64) {
	n := &w.tree[0]
	for !n.leaf {
		if !w.bits.Access(n.bitOff + i) {
			i = w.rank0At(n, i) - 1
			n = &w.tree[n.left]
		} else {
			i = w.rank1At(n, i) - 1
			n = &w.tree[n.right]
		}
	}
	return n.value, i + 1
}

// Rank returns the number of occurrences of c in positions [0, i].
func (w *Reader) Rank(c byte, i uint64) uint64 {
	code := w.coding[c]
	if code == nil {
		return 0
	}

	n := &w.tree[0]
	var level uint64
	for !n.leaf {
		if !code.Get(level) {
			i = w.rank0At(n, i) - 1
			n = &w.tree[n.left]
		} else {
			i = w.rank1At(n, i) - 1
			n = &w.tree[n.right]
		}
		level++
	}
	if n.value != c {
		return 0
	}
	return i + 1
}
