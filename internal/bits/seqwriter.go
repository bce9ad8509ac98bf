// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bits

// Bit sequence encodings selected by the leading magic byte. Short bitmaps
// are stored raw; longer ones carry super-block rank samples in the style of
// Gonzalez, Grabowski, Makinen and Navarro, "Practical Implementation of
// Rank and Select Queries".
const (
	seqRegular = 0x1
	seqRG      = 0x2

	seqBlockBits  = 32
	seqRegularMax = 200
)

// DefaultFactor is the default number of blocks per super block.
const DefaultFactor = 8

// rankSamples returns the super-block rank prefix sums of b for the given
// factor. The final entry holds the largest sampled rank.
func rankSamples(b *Array, factor uint64) []uint64 {
	s := seqBlockBits * factor
	numSuper := b.Len()/s + 1

	rs := make([]uint64, numSuper)
	for i := uint64(1); i < numSuper; i++ {
		start := (i - 1) * s
		n := s
		if start+n > b.Len() {
			n = b.Len() - start
		}
		rs[i] = rs[i-1] + b.Count(start, n, true)
	}
	return rs
}

// WriteBitseq serializes b as a bit sequence with rank/select support.
// A factor of zero or less selects DefaultFactor.
func (w *Writer) WriteBitseq(b *Array, factor int) {
	if b.Len() <= seqRegularMax {
		w.WriteUint8(seqRegular)
		w.WriteVbyte(b.Len())
		w.WriteArray(b)
		w.Flush()
		return
	}
	if factor <= 0 {
		factor = DefaultFactor
	}

	rs := rankSamples(b, uint64(factor))
	bitsPerRS := bitsNeeded(rs[len(rs)-1])

	w.WriteUint8(seqRG)
	w.WriteVbyte(b.Len())
	w.WriteVbyte(uint64(factor))
	w.WriteVbyte(uint64(bitsPerRS))
	w.WriteArray(b)
	for _, v := range rs[1:] { // the first sample is always zero
		w.WriteBits(v, bitsPerRS)
	}
	w.Flush()
}
