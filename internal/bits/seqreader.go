// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bits

import (
	"fmt"
	"math/bits"
)

// Seq reads a serialized bit sequence, answering access, rank and select
// queries without decoding the bitmap.
type Seq struct {
	r    Reader
	kind byte
	len  uint64
	ones uint64
	off  uint64 // bit offset of the raw bitmap, relative to r's origin

	// Super-block ranks (RG encoding only).
	factor    uint64
	s         uint64 // bits per super block
	bitsPerRS uint
	rsOff     uint64
}

// NewSeq reads a bit sequence starting at the current origin of r.
func NewSeq(r *Reader) (*Seq, error) {
	kind := r.ReadUint8()
	switch kind {
	case seqRegular, seqRG:
	default:
		return nil, Error(fmt.Sprintf("unknown bit sequence kind %#x", kind))
	}

	b := &Seq{r: *r, kind: kind}

	var nbytes uint64
	b.len, nbytes = r.ReadVbyte()
	off := nbytes + 1

	switch kind {
	case seqRegular:
		b.off = 8 * off
	case seqRG:
		v, n := r.ReadVbyte()
		b.factor = v
		off += n

		v, n = r.ReadVbyte()
		b.bitsPerRS = uint(v)
		off += n

		b.off = 8 * off
		b.s = seqBlockBits * b.factor
		b.rsOff = b.off + b.len
	}

	if b.len > 0 {
		b.ones = b.Rank1(int64(b.len) - 1)
	}
	return b, nil
}

// Len returns the number of bits in the sequence.
func (b *Seq) Len() uint64 { return b.len }

// Ones returns the total number of 1-bits.
func (b *Seq) Ones() uint64 { return b.ones }

// Access returns bit i.
func (b *Seq) Access(i uint64) bool {
	if i >= b.len {
		panic(Error(fmt.Sprintf("index %d exceeds the length %d", i, b.len)))
	}
	b.r.SetBitPos(b.off + i)
	return b.r.ReadBit()
}

// rsValue returns the i-th super-block rank sample.
func (b *Seq) rsValue(i uint64) uint64 {
	if i == 0 {
		return 0
	}
	b.r.SetBitPos(b.rsOff + uint64(b.bitsPerRS)*(i-1))
	return b.r.ReadBits(b.bitsPerRS)
}

// Rank1 returns the number of 1-bits in positions [0, i]. Negative i yields 0.
func (b *Seq) Rank1(i int64) uint64 {
	if i < 0 {
		return 0
	}
	if uint64(i) >= b.len {
		return b.ones
	}
	n := uint64(i) + 1

	var res, aux uint64
	if b.kind == seqRG {
		res = b.rsValue(n / b.s)
		aux = (n / b.s) * b.factor
	}

	bitLen := n - seqBlockBits*aux
	if bitLen > 0 {
		b.r.SetBitPos(b.off + seqBlockBits*aux)
		nbytes := byteLen(bitLen)
		data := b.r.ReadBytes(nbytes)

		if endBits := nbytes*8 - bitLen; endBits > 0 {
			res += popcount(data[:nbytes-1])
			res += uint64(bits.OnesCount8(data[nbytes-1] >> endBits))
		} else {
			res += popcount(data)
		}
	}
	return res
}

// Rank0 returns the number of 0-bits in positions [0, i].
func (b *Seq) Rank0(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i) + 1 - b.Rank1(i)
}

// blockGet returns the i-th 32-bit block with the earliest stream bit in the
// most significant position.
func (b *Seq) blockGet(i uint64) uint32 {
	b.r.SetBitPos(b.off + i*seqBlockBits)

	var data []byte
	if (i+1)*seqBlockBits <= b.len {
		data = b.r.ReadBytes(seqBlockBits / 8)
	} else {
		data = b.r.ReadBytes(byteLen(b.len - i*seqBlockBits))
	}

	var v uint32
	shift := uint(24)
	for _, c := range data {
		v |= uint32(c) << shift
		shift -= 8
	}
	return v
}

// selectBlocks scans 32-bit blocks starting at block pos for the i-th match
// of the given bit value (i is 1-based). Returns len when out of range.
func (b *Seq) selectBlocks(i uint64, pos uint64, v bool) uint64 {
	numBlocks := (b.len + seqBlockBits - 1) / seqBlockBits

	var j uint32
	for {
		j = b.blockGet(pos)
		if !v {
			j = ^j
		}
		cnt := uint64(bits.OnesCount32(j))
		if cnt >= i {
			break
		}
		i -= cnt
		pos++
		if pos > numBlocks {
			return b.len
		}
	}

	// Scan the block from its most significant (earliest) bit.
	for k := uint(0); k < seqBlockBits; k++ {
		if j&(1<<(31-k)) != 0 {
			i--
			if i == 0 {
				p := seqBlockBits*pos + uint64(k)
				if p > b.len {
					return b.len
				}
				return p
			}
		}
	}
	return b.len
}

// selectRG binary-searches the super-block samples before scanning blocks.
func (b *Seq) selectRG(i uint64, v bool) uint64 {
	rankAt := func(mid uint64) uint64 {
		r := b.rsValue(mid)
		if !v {
			return mid*b.factor*seqBlockBits - r
		}
		return r
	}

	lv, rv := int64(0), int64(b.len/b.s)
	mid := (lv + rv) / 2
	rankMid := rankAt(uint64(mid))
	for lv <= rv {
		if rankMid < i {
			lv = mid + 1
		} else {
			rv = mid - 1
		}
		mid = (lv + rv) / 2
		if mid < 0 {
			mid = 0
		}
		rankMid = rankAt(uint64(mid))
	}
	return b.selectBlocks(i-rankMid, uint64(mid)*b.factor, v)
}

// Select1 returns the position of the i-th 1-bit (1-based), or -1 if i is 0
// or exceeds the number of 1-bits.
func (b *Seq) Select1(i uint64) int64 {
	if i == 0 || i > b.ones {
		return -1
	}
	if b.kind == seqRegular {
		return int64(b.selectBlocks(i, 0, true))
	}
	return int64(b.selectRG(i, true))
}

// Select0 returns the position of the i-th 0-bit (1-based), or -1 if i is 0
// or exceeds the number of 0-bits.
func (b *Seq) Select0(i uint64) int64 {
	if i == 0 || i > b.len-b.ones {
		return -1
	}
	if b.kind == seqRegular {
		return int64(b.selectBlocks(i, 0, false))
	}
	return int64(b.selectRG(i, false))
}

// SelectPrev1 returns the position of the nearest 1-bit at or before i,
// or -1 if no such bit exists.
func (b *Seq) SelectPrev1(i uint64) int64 {
	if b.Access(i) {
		return int64(i)
	}
	r := b.Rank1(int64(i))
	if r == 0 {
		return -1
	}
	return b.Select1(r)
}
