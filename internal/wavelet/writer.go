// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package wavelet implements the Huffman-shaped wavelet tree over byte
// strings used by the FM-index: access and rank in O(code length) per call.
//
// The serialized form is the text length, the pre-order coded tree topology
// (a 1-bit introduces a leaf followed by its byte; a 0-bit an internal node
// followed by its left and right subtrees), and a single bit sequence holding
// the bitmaps of all internal nodes concatenated in pre-order.
package wavelet

import "github.com/dsnet/cgraph/internal/bits"

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "wavelet: " + string(e) }

type huffNode struct {
	value int // byte value, or -1 for internal nodes
	freq  uint64
	left  *huffNode
	right *huffNode
}

type huffHeap []*huffNode

func (h *huffHeap) push(n *huffNode) {
	*h = append(*h, n)
	k := len(*h) - 1
	for k > 0 {
		parent := (k - 1) / 2
		if n.freq >= (*h)[parent].freq {
			break
		}
		(*h)[k] = (*h)[parent]
		k = parent
	}
	(*h)[k] = n
}

func (h *huffHeap) pop() *huffNode {
	old := *h
	res := old[0]
	n := len(old) - 1
	x := old[n]
	*h = old[:n]
	if n > 0 {
		k, half := 0, n/2
		for k < half {
			child := 2*k + 1
			c := old[child]
			if r := child + 1; r < n && c.freq > old[r].freq {
				child = r
				c = old[r]
			}
			if x.freq <= c.freq {
				break
			}
			old[k] = c
			k = child
		}
		old[k] = x
	}
	return res
}

// buildCoding derives the canonical-by-shape Huffman code of every byte
// occurring in data. Bytes that do not occur keep a nil code.
func buildCoding(data []byte) *[256]*bits.Array {
	var freq [256]uint64
	for _, c := range data {
		freq[c]++
	}

	var h huffHeap
	for c, f := range freq {
		if f > 0 {
			h.push(&huffNode{value: c, freq: f})
		}
	}
	for len(h) > 1 {
		n1 := h.pop()
		n2 := h.pop()
		h.push(&huffNode{value: -1, freq: n1.freq + n2.freq, left: n1, right: n2})
	}

	coding := new([256]*bits.Array)
	if len(h) > 0 {
		huffCode(h.pop(), bits.NewArray(0), coding)
	}
	return coding
}

func huffCode(n *huffNode, code *bits.Array, coding *[256]*bits.Array) {
	if n.value >= 0 {
		coding[n.value] = code
		return
	}
	left := bits.NewArray(0)
	left.AppendArray(code)
	left.Append(false)
	code.Append(true)

	huffCode(n.left, left, coding)
	huffCode(n.right, code, coding)
}

type buildNode struct {
	value int // byte value for leaves, -1 otherwise
	bits  *bits.Array
	left  *buildNode
	right *buildNode
}

func (n *buildNode) leaf() bool { return n.left == nil && n.right == nil }

// build recursively partitions data by the d-th code bit.
func build(data []byte, d uint64, coding *[256]*bits.Array) *buildNode {
	bitmap := bits.NewArray(uint64(len(data)))
	for i, v := range data {
		if coding[v].Get(d) {
			bitmap.Set(uint64(i), true)
		}
	}

	var left, right []byte
	leafLeft, leafRight := true, true
	for i, v := range data {
		if !bitmap.Get(uint64(i)) {
			left = append(left, v)
			if len(left) > 1 && left[len(left)-1] != left[len(left)-2] {
				leafLeft = false
			}
		} else {
			right = append(right, v)
			if len(right) > 1 && right[len(right)-1] != right[len(right)-2] {
				leafRight = false
			}
		}
	}

	node := &buildNode{value: -1, bits: bitmap}
	if len(left) > 0 {
		if leafLeft {
			node.left = &buildNode{value: int(left[0])}
		} else {
			node.left = build(left, d+1, coding)
		}
	}
	if len(right) > 0 {
		if leafRight {
			node.right = &buildNode{value: int(right[0])}
		} else {
			node.right = build(right, d+1, coding)
		}
	}
	return node
}

func encodeNodes(n *buildNode, topo *bits.Writer, bitmaps *bits.Array) {
	if n.leaf() {
		topo.WriteBit(true)
		topo.WriteUint8(byte(n.value))
		return
	}
	topo.WriteBit(false)
	bitmaps.AppendArray(n.bits)
	encodeNodes(n.left, topo, bitmaps)
	encodeNodes(n.right, topo, bitmaps)
}

// Write serializes the wavelet tree of data to w.
func Write(data []byte, w *bits.Writer, factor int) {
	coding := buildCoding(data)

	var tree *buildNode
	if len(data) == 0 {
		tree = &buildNode{value: 0}
	} else if onlyByte, ok := singleSymbol(data); ok {
		// A one-symbol alphabet degenerates to a single leaf with no bitmap.
		tree = &buildNode{value: int(onlyByte)}
	} else {
		tree = build(data, 0, coding)
	}

	var topo bits.Writer
	bitmaps := bits.NewArray(0)
	encodeNodes(tree, &topo, bitmaps)
	topo.Flush()

	w.WriteVbyte(uint64(len(data)))
	w.WriteVbyte(topo.ByteLen())
	w.WriteWriter(&topo)
	w.WriteBitseq(bitmaps, factor)
	w.Flush()
}

func singleSymbol(data []byte) (byte, bool) {
	if len(data) == 0 {
		return 0, false
	}
	for _, c := range data[1:] {
		if c != data[0] {
			return 0, false
		}
	}
	return data[0], true
}
