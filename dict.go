// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package cgraph

import (
	"github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/fmindex"
)

// The dictionary stores the distinct label strings sorted and concatenated
// with NUL separators: the text is "\x00 l0 \x00 l1 \x00 ... \x00". Two bit
// sequences over the sorted order classify each entry as node label and, if
// the roles overlap, as edge label.

// writeDict serializes the dictionary section.
func writeDict(sorted []string, bv, be *bits.Array, disjoint bool, sampling int, rle bool, w *bits.Writer, factor int) {
	n := uint64(1)
	for _, s := range sorted {
		n += uint64(len(s)) + 1
	}

	text := make([]byte, 0, n)
	separators := bits.NewArray(n)
	text = append(text, 0)
	separators.Set(0, true)
	for _, s := range sorted {
		text = append(text, s...)
		text = append(text, 0)
		separators.Set(uint64(len(text))-1, true)
	}

	w.WriteVbyte(uint64(len(sorted)))
	if disjoint {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}

	var w0, w1 bits.Writer
	w0.WriteBitseq(bv, factor)
	w.WriteVbyte(w0.ByteLen())
	if !disjoint {
		w1.WriteBitseq(be, factor)
		w.WriteVbyte(w1.ByteLen())
	}
	w.WriteWriter(&w0)
	if !disjoint {
		w.WriteWriter(&w1)
	}
	fmindex.Write(text, sampling, separators, rle, w, factor)
}

// dictReader answers label lookups against the serialized dictionary.
type dictReader struct {
	n        uint64
	bitsNode *bits.Seq
	bitsEdge *bits.Seq // nil when the roles are disjoint
	fmi      *fmindex.Reader
}

func newDictReader(r *bits.Reader) (*dictReader, error) {
	n, nbytes := r.ReadVbyte()
	off := nbytes

	disjoint := r.ReadUint8() != 0
	off++

	lenBitsNode, nbytes := r.ReadVbyte()
	off += nbytes

	var lenBitsEdge uint64
	if !disjoint {
		lenBitsEdge, nbytes = r.ReadVbyte()
		off += nbytes
	}

	bn, err := bits.NewSeq(r.Sub(off))
	if err != nil {
		return nil, err
	}

	var be *bits.Seq
	offFMI := off + lenBitsNode
	if !disjoint {
		if be, err = bits.NewSeq(r.Sub(offFMI)); err != nil {
			return nil, err
		}
		offFMI += lenBitsEdge
	}

	fmi, err := fmindex.NewReader(r.Sub(offFMI))
	if err != nil {
		return nil, err
	}
	return &dictReader{n: n, bitsNode: bn, bitsEdge: be, fmi: fmi}, nil
}

// extract returns the label text of entry i.
func (d *dictReader) extract(i uint64) ([]byte, bool) {
	if i >= d.n {
		return nil, false
	}
	// Entry i precedes the separator opening entry i+1; its row in the
	// NUL-prefixed region is i+2, wrapping the last entry to row 0.
	if i == d.n-1 {
		i = 0
	} else {
		i += 2
	}
	return d.fmi.Extract(i), true
}

// locate returns the entry index of an exact label match, or -1.
func (d *dictReader) locate(p []byte) int64 {
	b := make([]byte, 0, len(p)+2)
	b = append(b, 0)
	b = append(b, p...)
	b = append(b, 0)

	sp, _, ok := d.fmi.Locate(b)
	if !ok {
		return -1
	}
	return int64(sp) - 1
}

// locatePrefix returns the entry index range matching a prefix.
func (d *dictReader) locatePrefix(p []byte) (uint64, uint64, bool) {
	if len(p) == 0 {
		return 0, 0, false
	}
	b := make([]byte, 0, len(p)+1)
	b = append(b, 0)
	b = append(b, p...)

	sp, ep, ok := d.fmi.Locate(b)
	if !ok {
		return 0, 0, false
	}
	return sp - 1, ep - 1, true
}

// substrIter iterates the raw suffix-array rows matching a substring; rows
// map to entry indices through fmi.LocateMatch.
type substrIter struct {
	fmi     *fmindex.Reader
	next    uint64
	limit   uint64
	hasNext bool
}

func (d *dictReader) locateSubstr(p []byte) substrIter {
	sp, ep, ok := d.fmi.Locate(p)
	if len(p) == 0 || !ok {
		return substrIter{}
	}
	return substrIter{fmi: d.fmi, next: sp, limit: ep, hasNext: true}
}

func (it *substrIter) Next() (uint64, bool) {
	if !it.hasNext {
		return 0, false
	}
	if it.next <= it.limit {
		m := it.fmi.LocateMatch(it.next)
		it.next++
		return m, true
	}
	it.hasNext = false
	return 0, false
}
