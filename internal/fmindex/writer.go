// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package fmindex implements the FM-index over the NUL-delimited dictionary
// text: a Burrows-Wheeler transform stored as a wavelet tree, cumulative
// character counts stored Elias-Fano, optional suffix-array sampling for
// fast locate, and optional run-length encoding of the BWT.
package fmindex

import (
	"sort"

	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/eliasfano"
	"github.com/dsnet/cgraph/internal/wavelet"
)

// Error is the wrapper type for errors specific to this package.
type Error string

func (e Error) Error() string { return "fmindex: " + string(e) }

// eofByte separates the dictionary entries and terminates the text.
const eofByte = 0

type indexData struct {
	c []uint64 // cumulative character counts over the (possibly RLE) BWT

	rleBits       *bits.Array
	rleSelectBits *bits.Array

	sampledTable []uint64
	sampledBits  *bits.Array

	bwt []byte
}

// rleEncode compacts bwt to its run heads and returns the run-start bitmap
// and the run-select bitmap whose k-th 1-bit (in (char, position) order of
// runs) marks the cumulated run length prefix.
func rleEncode(bwt []byte) (heads []byte, rleBits, selectBits *bits.Array) {
	n := uint64(len(bwt))
	rleBits = bits.NewArray(n)
	selectBits = bits.NewArray(n + 1)

	var runLengths []uint64
	last := -1
	for i, b := range bwt {
		if int(b) != last {
			rleBits.Set(uint64(i), true)
			heads = append(heads, b)
			runLengths = append(runLengths, 1)
		} else {
			runLengths[len(runLengths)-1]++
		}
		last = int(b)
	}

	indices := make([]int, len(heads))
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		if heads[indices[a]] != heads[indices[b]] {
			return heads[indices[a]] < heads[indices[b]]
		}
		return indices[a] < indices[b]
	})

	var pos uint64
	for _, run := range indices {
		if pos >= n {
			break
		}
		selectBits.Set(pos, true)
		pos += runLengths[run]
	}
	selectBits.Set(n, true)
	return heads, rleBits, selectBits
}

func buildIndex(text []byte, sampling int, rle bool) *indexData {
	n := len(text)
	if n == 0 || text[n-1] != eofByte {
		panic(Error("text is not NUL-terminated"))
	}

	sa := computeSA(text)

	bwt := make([]byte, n)
	for i, p := range sa {
		if p == 0 {
			bwt[i] = text[n-1]
		} else {
			bwt[i] = text[p-1]
		}
	}

	d := &indexData{bwt: bwt}
	if rle {
		d.bwt, d.rleBits, d.rleSelectBits = rleEncode(bwt)
	}

	var c [257]uint64
	maxByte := 0
	for _, b := range d.bwt {
		c[int(b)+1]++
		if int(b) > maxByte {
			maxByte = int(b)
		}
	}
	lenC := maxByte + 2
	for i := 1; i < lenC; i++ {
		c[i] += c[i-1]
	}
	d.c = append([]uint64(nil), c[:lenC]...)

	if sampling > 0 {
		d.sampledBits = bits.NewArray(uint64(n) + 1)
		for i, p := range sa {
			if p%int64(sampling) == 0 {
				d.sampledTable = append(d.sampledTable, uint64(p))
				d.sampledBits.Set(uint64(i), true)
			}
		}
		d.sampledBits.Set(uint64(n), true)
	}
	return d
}

func writeSampledTable(sampled []uint64, w *bits.Writer) {
	var maxv uint64
	for _, v := range sampled {
		if v > maxv {
			maxv = v
		}
	}
	nbits := uint(1)
	for 1<<nbits <= maxv && nbits < 64 {
		nbits++
	}
	if maxv == 0 {
		nbits = 1
	}

	w.WriteVbyte(uint64(nbits))
	for _, v := range sampled {
		w.WriteBits(v, nbits)
	}
	w.Flush()
}

// Write serializes the FM-index of text to w. The separators bitmap marks
// the position of every separator byte and translates sampled suffix
// positions into dictionary entry indices; it is only consulted when
// sampling is enabled.
func Write(text []byte, sampling int, separators *bits.Array, rle bool, w *bits.Writer, factor int) {
	d := buildIndex(text, sampling, rle)

	if sampling > 0 {
		// Store entry indices instead of raw text offsets.
		var rank uint64
		ranks := make([]uint64, separators.Len())
		for i := uint64(0); i < separators.Len(); i++ {
			if separators.Get(i) {
				rank++
			}
			ranks[i] = rank
		}
		for i, v := range d.sampledTable {
			d.sampledTable[i] = ranks[v] - 1
		}
	}

	var w0, w1, w2, w3, w4 bits.Writer
	eliasfano.Write(d.c, &w0, factor)
	if sampling > 0 {
		writeSampledTable(d.sampledTable, &w1)
		w2.WriteBitseq(d.sampledBits, factor)
	}
	if rle {
		w3.WriteBitseq(d.rleBits, factor)
		w4.WriteBitseq(d.rleSelectBits, factor)
	}

	w.WriteVbyte(uint64(len(text)))

	var opts byte
	if sampling > 0 {
		opts |= 1 << 4
	}
	if rle {
		opts |= 1
	}
	w.WriteUint8(opts)
	w.WriteVbyte(w0.ByteLen())
	if sampling > 0 {
		w.WriteVbyte(w1.ByteLen())
		w.WriteVbyte(w2.ByteLen())
	}
	if rle {
		w.WriteVbyte(w3.ByteLen())
		w.WriteVbyte(w4.ByteLen())
	}

	w.WriteWriter(&w0)
	if sampling > 0 {
		w.WriteWriter(&w1)
		w.WriteWriter(&w2)
	}
	if rle {
		w.WriteWriter(&w3)
		w.WriteWriter(&w4)
	}
	wavelet.Write(d.bwt, w, factor)
}
