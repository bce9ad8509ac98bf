// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package k2 implements the k²-tree representation of sparse binary matrices
// with k fixed at 2: a level-order bit sequence T of internal nodes and a raw
// block L of leaf bits, built by repeatedly partitioning the coordinate list
// into quadrants.
package k2

import (
	"math/bits"

	cbits "github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/container"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "k2: " + string(e) }

const k = 2

// Edge is one set cell of the matrix: X is the column, Y the row.
type Edge struct {
	X, Y uint64
	kval uint64
}

type span struct{ l, r uint64 }

func nextPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	return 1 << uint(bits.Len64(n-1))
}

// Write serializes the matrix of the given dimensions holding the given set
// cells. The edge slice is repartitioned in place.
func Write(width, height uint64, edges []Edge, w *cbits.Writer, factor int) {
	nodes := max(width, height, 2) // 1x1 matrices still get one split level
	n := nextPow2(nodes)

	w.WriteVbyte(width)
	w.WriteVbyte(height)
	w.WriteVbyte(k)
	w.WriteVbyte(n)

	if len(edges) == 0 {
		w.WriteVbyte(0)
		w.Flush()
		return
	}

	maxLevels := uint(bits.Len64(nodes-1)) - 1

	tbits := cbits.NewArray(0)
	var q container.RingQueue[span]
	q.Enqueue(span{0, uint64(len(edges))})
	dequeues := 1

	var counter, pointer [k * k]uint64
	var boundaries [k*k + 1]uint64

	for lvl := uint(0); lvl < maxLevels; lvl++ {
		shift := maxLevels - lvl
		mask := uint64(1)<<shift - 1

		tmpCount := 0
		for dq := 0; dq < dequeues; dq++ {
			sp, _ := q.Dequeue()

			for j := range counter {
				counter[j] = 0
			}
			for o := sp.l; o < sp.r; o++ {
				e := &edges[o]
				e.kval = e.X>>shift + (e.Y>>shift)*k
				e.X &= mask
				e.Y &= mask
				counter[e.kval]++
			}

			boundaries[0] = sp.l
			for j := 0; j < k*k; j++ {
				boundaries[j+1] = boundaries[j] + counter[j]
				pointer[j] = boundaries[j]
				if boundaries[j+1] != boundaries[j] {
					q.Enqueue(span{boundaries[j], boundaries[j+1]})
					tmpCount++
					tbits.Append(true)
				} else {
					tbits.Append(false)
				}
			}

			// Three-way-partition the span so each quadrant is contiguous.
			for j := 0; j < k*k; j++ {
				for pointer[j] < boundaries[j+1] {
					if kv := edges[pointer[j]].kval; kv != uint64(j) {
						tmp := edges[pointer[j]]
						for edges[pointer[kv]].kval == kv {
							pointer[kv]++
						}
						edges[pointer[j]] = edges[pointer[kv]]
						edges[pointer[kv]] = tmp
						pointer[kv]++
					} else {
						pointer[j]++
					}
				}
			}
		}
		dequeues = tmpCount
	}

	lbits := cbits.NewArray(0)
	for !q.Empty() {
		sp, _ := q.Dequeue()

		for j := range counter {
			counter[j] = 0
		}
		for o := sp.l; o < sp.r; o++ {
			e := &edges[o]
			e.kval = e.X%k + e.Y%k*k
			counter[e.kval]++
		}
		for j := 0; j < k*k; j++ {
			lbits.Append(counter[j] > 0)
		}
	}

	var w0 cbits.Writer
	w0.WriteBitseq(tbits, factor)

	w.WriteVbyte(w0.ByteLen())
	w.WriteWriter(&w0)
	w.WriteArray(lbits)
	w.Flush()
}
