// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bits

import "io"

// Writer accumulates a bit stream in memory. Nested blocks are produced by
// encoding into a fresh Writer and splicing it in with WriteWriter after
// prefixing its byte length.
type Writer struct {
	b Array
}

// Len returns the number of bits written so far.
func (w *Writer) Len() uint64 { return w.b.Len() }

// ByteLen returns the number of bytes needed for the bits written so far.
func (w *Writer) ByteLen() uint64 { return byteLen(w.b.Len()) }

// Bytes returns the accumulated stream. The caller must have called Flush.
func (w *Writer) Bytes() []byte { return w.b.Bytes() }

// WriteBit writes a single bit.
func (w *Writer) WriteBit(v bool) { w.b.Append(v) }

// WriteBits writes the low n bits of v, most significant first.
func (w *Writer) WriteBits(v uint64, n uint) { w.b.AppendBits(v, n) }

// WriteUint8 writes a full byte.
func (w *Writer) WriteUint8(c byte) { w.b.AppendBits(uint64(c), 8) }

// WriteBytes writes all bytes of p.
func (w *Writer) WriteBytes(p []byte) {
	for _, c := range p {
		w.WriteUint8(c)
	}
}

// WriteArray writes all bits of b.
func (w *Writer) WriteArray(b *Array) { w.b.AppendArray(b) }

// Flush pads the stream with zero bits up to the next byte boundary.
func (w *Writer) Flush() {
	if mod := w.b.Len() % 8; mod > 0 {
		w.b.AppendBits(0, uint(8-mod))
	}
}

// WriteWriter appends the byte-aligned contents of src and flushes w.
func (w *Writer) WriteWriter(src *Writer) {
	if src.Len()%8 != 0 {
		panic(Error("nested writer is not byte-aligned"))
	}
	w.WriteArray(&src.b)
	w.Flush()
}

// WriteVbyte writes n as a variable-length integer: little-endian groups of
// 7 bits, final byte marked with 0x80.
func (w *Writer) WriteVbyte(n uint64) {
	for n > 0x7f {
		w.WriteUint8(byte(n & 0x7f))
		n >>= 7
	}
	w.WriteUint8(byte(n) | 0x80)
}

// WriteEliasDelta writes n using an Elias-delta code of n+1.
func (w *Writer) WriteEliasDelta(n uint64) {
	n++
	l := bitLen(n)
	ll := bitLen(uint64(l)) - 1

	for i := uint(0); i < ll; i++ {
		w.WriteBit(false)
	}
	w.WriteBits(uint64(l), ll+1)
	if l > 1 {
		w.WriteBits(n&(1<<(l-1)-1), l-1)
	}
}

// WriteTo writes the flushed stream to ws.
func (w *Writer) WriteTo(ws io.Writer) (int64, error) {
	w.Flush()
	n, err := ws.Write(w.Bytes())
	return int64(n), err
}

// BitArray exposes the underlying bit array so that unflushed streams can be
// spliced bit-exactly into another writer.
func (w *Writer) BitArray() *Array { return &w.b }
