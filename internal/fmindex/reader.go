// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package fmindex

import (
	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/eliasfano"
	"github.com/dsnet/cgraph/internal/wavelet"
)

// Reader answers backward-search, locate and extract queries against a
// serialized FM-index.
type Reader struct {
	r        bits.Reader
	n        uint64 // original text length
	sampling bool
	rle      bool

	c *eliasfano.Reader

	sampledBits  uint // bit width of one sampled entry
	sampledOff   uint64
	sampled      *bits.Seq
	rleBits      *bits.Seq
	rleSelect    *bits.Seq
	bwt          *wavelet.Reader
}

// NewReader reads an FM-index starting at the origin of r.
func NewReader(r *bits.Reader) (*Reader, error) {
	n, nbytes := r.ReadVbyte()
	off := nbytes

	opts := r.ReadUint8()
	off++

	sampling := opts>>4 != 0
	rle := opts&0xf != 0

	lenC, nbytes := r.ReadVbyte()
	off += nbytes

	var lenSuff, lenSampleBits, lenRLE, lenRLESelect uint64
	if sampling {
		lenSuff, nbytes = r.ReadVbyte()
		off += nbytes
		lenSampleBits, nbytes = r.ReadVbyte()
		off += nbytes
	}
	if rle {
		lenRLE, nbytes = r.ReadVbyte()
		off += nbytes
		lenRLESelect, nbytes = r.ReadVbyte()
		off += nbytes
	}

	offC := off
	off = offC + lenC

	var offSuff, offSampleBits, offRLE, offRLESelect uint64
	if sampling {
		offSuff = off
		offSampleBits = offSuff + lenSuff
		off += lenSuff + lenSampleBits
	}
	if rle {
		offRLE = off
		offRLESelect = offRLE + lenRLE
		off += lenRLE + lenRLESelect
	}

	c, err := eliasfano.NewReader(r.Sub(offC))
	if err != nil {
		return nil, err
	}

	f := &Reader{r: *r, n: n, sampling: sampling, rle: rle, c: c}

	if sampling {
		rt := r.Sub(offSuff)
		v, nbytes := rt.ReadVbyte()
		f.sampledBits = uint(v)
		f.sampledOff = offSuff + nbytes

		if f.sampled, err = bits.NewSeq(r.Sub(offSampleBits)); err != nil {
			return nil, err
		}
	}
	if rle {
		if f.rleBits, err = bits.NewSeq(r.Sub(offRLE)); err != nil {
			return nil, err
		}
		if f.rleSelect, err = bits.NewSeq(r.Sub(offRLESelect)); err != nil {
			return nil, err
		}
	}
	if f.bwt, err = wavelet.NewReader(r.Sub(off)); err != nil {
		return nil, err
	}
	return f, nil
}

// TextLen returns the length of the indexed text.
func (f *Reader) TextLen() uint64 { return f.n }

// cAt returns the cumulative count C[c], or false when c lies beyond the
// alphabet of the text.
func (f *Reader) cAt(c int) (uint64, bool) {
	if uint64(c) >= f.c.Len() {
		return 0, false
	}
	return f.c.Get(uint64(c)), true
}

// rankBefore returns the number of occurrences of c strictly before row i.
func (f *Reader) rankBefore(c byte, i uint64) uint64 {
	if i == 0 {
		return 0
	}
	return f.bwt.Rank(c, i-1)
}

func (f *Reader) locateRegular(p []byte) (uint64, uint64, bool) {
	i := len(p) - 1
	c := p[i]

	c0, ok := f.cAt(int(c))
	if !ok {
		return 0, 0, false
	}
	c1, ok := f.cAt(int(c) + 1)
	if !ok {
		return 0, 0, false
	}
	sp, ep := int64(c0), int64(c1)-1

	for sp <= ep && i >= 1 {
		i--
		c = p[i]
		c0, ok = f.cAt(int(c))
		if !ok {
			return 0, 0, false
		}
		sp = int64(c0) + int64(f.rankBefore(c, uint64(sp)))
		ep = int64(c0) + int64(f.bwt.Rank(c, uint64(ep))) - 1
	}
	if sp > ep {
		return 0, 0, false
	}
	return uint64(sp), uint64(ep), true
}

func (f *Reader) locateRLE(p []byte) (uint64, uint64, bool) {
	i := len(p) - 1
	c := p[i]

	c0, ok := f.cAt(int(c))
	if !ok {
		return 0, 0, false
	}
	c1, ok := f.cAt(int(c) + 1)
	if !ok {
		return 0, 0, false
	}
	sp := f.rleSelect.Select1(c0 + 1)
	ep := f.rleSelect.Select1(c1+1) - 1

	for sp <= ep && i >= 1 {
		i--
		c = p[i]
		c0, ok = f.cAt(int(c))
		if !ok {
			return 0, 0, false
		}

		rank := f.rleBits.Rank1(sp) - 1
		if b, _ := f.bwt.Access(rank); b == c {
			sp = sp - f.rleBits.SelectPrev1(uint64(sp))
		} else {
			sp = 0
		}
		sp += f.rleSelect.Select1(c0 + 1 + f.rankBefore(c, rank))

		rank = f.rleBits.Rank1(ep) - 1
		if b, _ := f.bwt.Access(rank); b == c {
			ep = ep - f.rleBits.SelectPrev1(uint64(ep))
		} else {
			ep = -1
		}
		ep += f.rleSelect.Select1(c0 + 1 + f.rankBefore(c, rank))
	}
	if sp > ep {
		return 0, 0, false
	}
	return uint64(sp), uint64(ep), true
}

// Locate runs a backward search for p and returns the matching suffix-array
// range [sp, ep].
func (f *Reader) Locate(p []byte) (sp, ep uint64, ok bool) {
	if len(p) == 0 {
		return 0, 0, false
	}
	if f.rle {
		sp, ep, ok = f.locateRLE(p)
	} else {
		sp, ep, ok = f.locateRegular(p)
	}
	// Row 0 is the final separator alone; a longer pattern reaches it only
	// through the cyclic wrap of the BWT, never as a real occurrence.
	if ok && sp == 0 && len(p) > 1 {
		if ep == 0 {
			return 0, 0, false
		}
		sp = 1
	}
	return sp, ep, ok
}

func (f *Reader) sampledGet(i uint64) uint64 {
	f.r.SetBitPos(8*f.sampledOff + uint64(f.sampledBits)*i)
	return f.r.ReadBits(f.sampledBits)
}

func (f *Reader) isSampled(i uint64) bool {
	if !f.sampling {
		return false
	}
	return f.sampled.Access(i)
}

func (f *Reader) locateMatchRegular(i uint64) uint64 {
	c := byte(0xff)
	var rank uint64

	for !f.isSampled(i) {
		c, rank = f.bwt.Access(i)
		if c == eofByte {
			break
		}
		c0, _ := f.cAt(int(c))
		i = c0 + rank - 1
	}

	if f.isSampled(i) {
		return f.sampledGet(f.sampled.Rank1(int64(i)) - 1)
	}
	// The walk ran into a separator: the rank of that separator among all
	// separators identifies the entry directly.
	return f.bwt.Rank(c, i) - 2
}

func (f *Reader) locateMatchRLE(i uint64) uint64 {
	c := byte(0xff)
	var rank uint64

	for !f.isSampled(i) {
		rank = f.rleBits.Rank1(int64(i)) - 1
		c, _ = f.bwt.Access(rank)
		if c == eofByte {
			break
		}
		c0, _ := f.cAt(int(c))
		i = uint64(f.rleSelect.Select1(c0+1+f.rankBefore(c, rank))) + i - uint64(f.rleBits.SelectPrev1(i))
	}

	if f.isSampled(i) {
		return f.sampledGet(f.sampled.Rank1(int64(i)) - 1)
	}
	rank = f.rleBits.Rank1(int64(i)) - 1
	c0, _ := f.cAt(int(c)) // zero, since c is the separator
	firstRun := uint64(f.rleSelect.Select1(c0 + 1 + f.bwt.Rank(c, rank) - 1))
	index := i - uint64(f.rleBits.SelectPrev1(i))
	firstCh := uint64(f.rleSelect.Select1(c0 + 1))
	return firstRun + index + firstCh - 1
}

// LocateMatch maps suffix-array row i to the index of the dictionary entry
// containing the match.
func (f *Reader) LocateMatch(i uint64) uint64 {
	// Rows 1 up to the end of the separator block start at the separator
	// opening entry i-1, which is the entry the sampled table reports too.
	if c1, ok := f.cAt(1); ok && i > 0 {
		end := c1
		if f.rle {
			end = uint64(f.rleSelect.Select1(c1 + 1))
		}
		if i < end {
			return i - 1
		}
	}
	if f.rle {
		return f.locateMatchRLE(i)
	}
	return f.locateMatchRegular(i)
}

// Extract returns the text preceding suffix-array row i up to the nearest
// separator, in text order.
func (f *Reader) Extract(i uint64) []byte {
	var res []byte
	if f.rle {
		for {
			rank := f.rleBits.Rank1(int64(i)) - 1
			c, _ := f.bwt.Access(rank)
			if c == eofByte {
				break
			}
			res = append(res, c)

			c0, _ := f.cAt(int(c))
			i = i - uint64(f.rleBits.SelectPrev1(i)) +
				uint64(f.rleSelect.Select1(c0+f.rankBefore(c, rank)+1))
		}
	} else {
		for {
			c, rank := f.bwt.Access(i)
			if c == eofByte {
				break
			}
			res = append(res, c)
			c0, _ := f.cAt(int(c))
			i = c0 + rank - 1
		}
	}

	for l, r := 0, len(res)-1; l < r; l, r = l+1, r-1 {
		res[l], res[r] = res[r], res[l]
	}
	return res
}
