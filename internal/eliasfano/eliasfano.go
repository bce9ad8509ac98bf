// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package eliasfano implements the Elias-Fano encoding of monotone integer
// sequences used throughout the cgraph format: each value is split into low
// bits, packed at fixed width, and high bits, unary-spread into a bit
// sequence with rank/select support.
package eliasfano

import (
	"fmt"
	"math"

	"github.com/dsnet/cgraph/internal/bits"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "eliasfano: " + string(e) }

// Write serializes the monotone non-decreasing list to w.
func Write(list []uint64, w *bits.Writer, factor int) {
	for i := 1; i < len(list); i++ {
		if list[i] < list[i-1] {
			panic(Error("list is not sorted"))
		}
	}

	n := uint64(len(list))
	var universe uint64
	if n > 0 {
		universe = list[n-1]
	}

	var lowBits uint
	if universe > n {
		lowBits = uint(math.Ceil(math.Log2(float64(universe) / float64(n))))
	}
	mask := uint64(1)<<lowBits - 1

	hi := bits.NewArray(n + universe>>lowBits)
	lo := bits.NewArray(0)

	for i, v := range list {
		hi.Set(v>>lowBits+uint64(i), true)
		lo.AppendBits(v&mask, lowBits)
	}

	w.WriteVbyte(n)
	w.WriteVbyte(uint64(lowBits))
	w.WriteVbyte((lo.Len() + 7) / 8)
	w.WriteArray(lo)
	w.Flush()
	w.WriteBitseq(hi, factor)
}

// Reader provides random access into a serialized Elias-Fano list.
type Reader struct {
	r       bits.Reader
	n       uint64
	lowBits uint
	offLo   uint64 // bit offset of the packed low bits
	hi      *bits.Seq
}

// NewReader reads an Elias-Fano list starting at the origin of r.
func NewReader(r *bits.Reader) (*Reader, error) {
	n, nbytes := r.ReadVbyte()
	off := nbytes

	v, nbytes := r.ReadVbyte()
	lowBits := uint(v)
	off += nbytes

	lenLow, nbytes := r.ReadVbyte()
	off += nbytes

	hi, err := bits.NewSeq(r.Sub(off + lenLow))
	if err != nil {
		return nil, err
	}
	return &Reader{r: *r, n: n, lowBits: lowBits, offLo: 8 * off, hi: hi}, nil
}

// Len returns the number of values in the list.
func (e *Reader) Len() uint64 { return e.n }

// Get returns the i-th value.
func (e *Reader) Get(i uint64) uint64 {
	if i >= e.n {
		panic(Error(fmt.Sprintf("index %d exceeds the length %d", i, e.n)))
	}

	var lval uint64
	if e.lowBits > 0 {
		e.r.SetBitPos(e.offLo + i*uint64(e.lowBits))
		lval = e.r.ReadBits(e.lowBits)
	}
	hval := uint64(e.hi.Select1(i+1)) - i
	return hval<<e.lowBits | lval
}

// SearchLowest returns the smallest index in [left, right] whose value equals
// v, or -1 if v does not occur.
func (e *Reader) SearchLowest(v uint64, left, right uint64) int64 {
	if e.Get(0) > v {
		return -1
	}
	for left <= right {
		mid := left + (right-left)/2
		l := e.Get(mid)
		switch {
		case l == v:
			if mid == 0 || e.Get(mid-1) < l {
				return int64(mid)
			}
			right = mid - 1
		case l > v:
			if mid == 0 {
				return -1
			}
			right = mid - 1
		default:
			left = mid + 1
		}
	}
	return -1
}

// SearchLowestOrNext is like SearchLowest but falls back to the smallest
// index whose value is strictly greater than v.
func (e *Reader) SearchLowestOrNext(v uint64, left, right uint64) int64 {
	if e.Get(0) > v {
		return int64(left)
	}
	for left <= right {
		mid := left + (right-left)/2
		l := e.Get(mid)
		switch {
		case l == v:
			if mid == 0 || e.Get(mid-1) < l {
				return int64(mid)
			}
			right = mid - 1
		case l > v:
			if mid == 0 {
				return 0
			}
			right = mid - 1
		default:
			left = mid + 1
		}
	}
	if left >= e.n {
		return -1
	}
	return int64(left)
}

// Iterator walks the indices of a sorted label table whose entry equals the
// query label or is at least firstNT. It is used by predicate queries over
// the start symbol, where non-terminal rows sort after all terminal rows.
type Iterator struct {
	e       *Reader
	label   uint64
	firstNT uint64
	next    int64
	hasNext bool
}

// Iter returns an iterator over rows matching label, including every
// non-terminal row.
func (e *Reader) Iter(label, firstNT uint64) *Iterator {
	it := &Iterator{e: e, label: label, firstNT: firstNT, hasNext: true}
	if e.n == 0 {
		it.hasNext = false
		return it
	}
	if label == e.Get(0) {
		it.next = 0
		return it
	}
	it.next = e.SearchLowest(label, 0, e.n-1)
	if it.next == -1 {
		it.next = e.SearchLowestOrNext(firstNT, 0, e.n-1)
		if it.next == -1 {
			it.hasNext = false
		}
	}
	return it
}

// Next returns the next matching row index.
func (it *Iterator) Next() (uint64, bool) {
	if !it.hasNext {
		return 0, false
	}
	if uint64(it.next) >= it.e.n {
		it.hasNext = false
		return 0, false
	}
	l := it.e.Get(uint64(it.next))
	if l != it.label && l < it.firstNT {
		it.next = it.e.SearchLowestOrNext(it.firstNT, uint64(it.next), it.e.n-1)
		if it.next == -1 {
			it.hasNext = false
			return 0, false
		}
		v := uint64(it.next)
		it.next++
		return v, true
	}
	if l == it.label || l >= it.firstNT {
		v := uint64(it.next)
		it.next++
		return v, true
	}
	it.hasNext = false
	return 0, false
}

// Finish releases the iterator.
func (it *Iterator) Finish() { it.hasNext = false }
