// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bits

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestArraySetGet(t *testing.T) {
	b := NewArray(1000)
	rng := rand.New(rand.NewSource(1))

	want := make([]bool, 1000)
	for i := range want {
		want[i] = rng.Intn(2) == 1
		b.Set(uint64(i), want[i])
	}
	for i, v := range want {
		if b.Get(uint64(i)) != v {
			t.Fatalf("bit %d: got %v, want %v", i, b.Get(uint64(i)), v)
		}
	}

	// Flipping a bit back must clear it.
	b.Set(42, true)
	b.Set(42, false)
	if b.Get(42) {
		t.Errorf("bit 42 still set after clearing")
	}
}

func TestArrayAppend(t *testing.T) {
	var a Array
	var want []bool
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 500; i++ {
		v := rng.Intn(2) == 1
		a.Append(v)
		want = append(want, v)
	}
	// Append multi-bit groups.
	for i := 0; i < 100; i++ {
		n := uint(1 + rng.Intn(64))
		v := rng.Uint64() & (1<<n - 1)
		a.AppendBits(v, n)
		for k := int(n) - 1; k >= 0; k-- {
			want = append(want, v>>uint(k)&1 == 1)
		}
	}

	if a.Len() != uint64(len(want)) {
		t.Fatalf("length: got %d, want %d", a.Len(), len(want))
	}
	for i, v := range want {
		if a.Get(uint64(i)) != v {
			t.Fatalf("bit %d: got %v, want %v", i, a.Get(uint64(i)), v)
		}
	}
}

func TestArrayAppendArray(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, lens := range [][2]int{{0, 0}, {3, 5}, {8, 8}, {13, 29}, {100, 7}, {5, 200}} {
		var a, b Array
		var want []bool
		for i := 0; i < lens[0]; i++ {
			v := rng.Intn(2) == 1
			a.Append(v)
			want = append(want, v)
		}
		for i := 0; i < lens[1]; i++ {
			v := rng.Intn(2) == 1
			b.Append(v)
			want = append(want, v)
		}
		a.AppendArray(&b)
		if a.Len() != uint64(len(want)) {
			t.Fatalf("lens %v: length %d, want %d", lens, a.Len(), len(want))
		}
		for i, v := range want {
			if a.Get(uint64(i)) != v {
				t.Fatalf("lens %v: bit %d mismatch", lens, i)
			}
		}
	}
}

func TestArrayCount(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	b := NewArray(777)
	bools := make([]bool, 777)
	for i := range bools {
		bools[i] = rng.Intn(3) == 0
		b.Set(uint64(i), bools[i])
	}

	for trial := 0; trial < 200; trial++ {
		start := rng.Intn(777)
		n := rng.Intn(777 - start)

		var ones uint64
		for _, v := range bools[start : start+n] {
			if v {
				ones++
			}
		}
		if got := b.Count(uint64(start), uint64(n), true); got != ones {
			t.Fatalf("Count(%d, %d, true): got %d, want %d", start, n, got, ones)
		}
		if got := b.Count(uint64(start), uint64(n), false); got != uint64(n)-ones {
			t.Fatalf("Count(%d, %d, false): got %d, want %d", start, n, got, uint64(n)-ones)
		}
	}
}

func TestWriterReaderRoundTrip(t *testing.T) {
	var w Writer
	rng := rand.New(rand.NewSource(5))

	type field struct {
		kind int // 0: bits, 1: vbyte, 2: elias-delta
		val  uint64
		n    uint
	}
	var fields []field
	for i := 0; i < 1000; i++ {
		f := field{kind: rng.Intn(3)}
		switch f.kind {
		case 0:
			f.n = uint(1 + rng.Intn(64))
			f.val = rng.Uint64() & (1<<f.n - 1)
			w.WriteBits(f.val, f.n)
		case 1:
			f.val = rng.Uint64() >> uint(rng.Intn(64))
			w.WriteVbyte(f.val)
		case 2:
			f.val = rng.Uint64() >> uint(8 + rng.Intn(56))
			w.WriteEliasDelta(f.val)
		}
		fields = append(fields, f)
	}
	w.Flush()

	r := NewReader(NewSource(w.Bytes()), 0)
	for i, f := range fields {
		var got uint64
		switch f.kind {
		case 0:
			got = r.ReadBits(f.n)
		case 1:
			got, _ = r.ReadVbyte()
		case 2:
			got = r.ReadEliasDelta()
		}
		if got != f.val {
			t.Fatalf("field %d (kind %d): got %d, want %d", i, f.kind, got, f.val)
		}
	}
}

func TestVbyteEncoding(t *testing.T) {
	vectors := []struct {
		val  uint64
		data string
	}{
		{0, "\x80"},
		{1, "\x81"},
		{127, "\xff"},
		{128, "\x00\x81"},
		{300, "\x2c\x82"},
	}
	for _, v := range vectors {
		var w Writer
		w.WriteVbyte(v.val)
		w.Flush()
		if got := string(w.Bytes()); got != v.data {
			t.Errorf("vbyte(%d): got %q, want %q", v.val, got, v.data)
		}
	}
}

func TestReaderSub(t *testing.T) {
	var w Writer
	w.WriteBytes([]byte{0xab, 0xcd, 0xef, 0x01, 0x23})
	w.Flush()

	r := NewReader(NewSource(w.Bytes()), 1)
	if got := r.ReadUint8(); got != 0xcd {
		t.Fatalf("origin 1: got %#x, want 0xcd", got)
	}
	sub := r.Sub(2)
	if got := sub.ReadUint8(); got != 0x01 {
		t.Fatalf("sub origin: got %#x, want 0x01", got)
	}
	// Seeking is relative to the sub origin.
	sub.SetBitPos(8)
	if got := sub.ReadUint8(); got != 0x23 {
		t.Fatalf("sub seek: got %#x, want 0x23", got)
	}
}

func buildSeq(t *testing.T, b *Array, factor int) *Seq {
	t.Helper()
	var w Writer
	w.WriteBitseq(b, factor)
	s, err := NewSeq(NewReader(NewSource(w.Bytes()), 0))
	if err != nil {
		t.Fatalf("NewSeq: %v", err)
	}
	return s
}

func testSeq(t *testing.T, bools []bool, factor int) {
	t.Helper()
	b := NewArray(uint64(len(bools)))
	for i, v := range bools {
		b.Set(uint64(i), v)
	}
	s := buildSeq(t, b, factor)

	if s.Len() != uint64(len(bools)) {
		t.Fatalf("length: got %d, want %d", s.Len(), len(bools))
	}

	var ones uint64
	sel1 := make(map[uint64]int64) // i-th one -> position
	sel0 := make(map[uint64]int64)
	var zeros uint64
	for i, v := range bools {
		if v {
			ones++
			sel1[ones] = int64(i)
		} else {
			zeros++
			sel0[zeros] = int64(i)
		}

		if got := s.Access(uint64(i)); got != v {
			t.Fatalf("access(%d): got %v, want %v", i, got, v)
		}
		if got := s.Rank1(int64(i)); got != ones {
			t.Fatalf("rank1(%d): got %d, want %d", i, got, ones)
		}
		if got := s.Rank0(int64(i)); got != uint64(i)+1-ones {
			t.Fatalf("rank0(%d): got %d, want %d", i, got, uint64(i)+1-ones)
		}
	}
	if s.Ones() != ones {
		t.Fatalf("ones: got %d, want %d", s.Ones(), ones)
	}

	if got := s.Select1(0); got != -1 {
		t.Errorf("select1(0): got %d, want -1", got)
	}
	if got := s.Select1(ones + 1); got != -1 {
		t.Errorf("select1(ones+1): got %d, want -1", got)
	}
	for i := uint64(1); i <= ones; i++ {
		if got := s.Select1(i); got != sel1[i] {
			t.Fatalf("select1(%d): got %d, want %d", i, got, sel1[i])
		}
	}
	for i := uint64(1); i <= zeros; i++ {
		if got := s.Select0(i); got != sel0[i] {
			t.Fatalf("select0(%d): got %d, want %d", i, got, sel0[i])
		}
	}

	// selectprev1 agrees with a linear scan.
	for i := 0; i < len(bools); i++ {
		want := int64(-1)
		for j := i; j >= 0; j-- {
			if bools[j] {
				want = int64(j)
				break
			}
		}
		if got := s.SelectPrev1(uint64(i)); got != want {
			t.Fatalf("selectprev1(%d): got %d, want %d", i, got, want)
		}
	}
}

func TestSeq(t *testing.T) {
	rng := rand.New(rand.NewSource(6))

	for _, tt := range []struct {
		n       int
		density int // one in n bits set
		factor  int
	}{
		{1, 1, 8}, {64, 2, 8}, {200, 3, 8}, // regular encoding
		{201, 2, 8}, {1000, 2, 8}, {1000, 20, 8},
		{4096, 3, 2}, {4096, 3, 20}, {2500, 1, 8},
	} {
		bools := make([]bool, tt.n)
		for i := range bools {
			bools[i] = rng.Intn(tt.density) == 0
		}
		testSeq(t, bools, tt.factor)
	}
}

func TestSeqAllZero(t *testing.T) {
	testSeq(t, make([]bool, 500), 8)
}

func TestSourceReaderAt(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	data := make([]byte, 5000) // spans several cache blocks
	rng.Read(data)

	mem := NewReader(NewSource(data), 0)
	cached := NewReader(NewSourceReaderAt(bytes.NewReader(data), int64(len(data))), 0)

	for i := 0; i < 3000; i++ {
		pos := uint64(rng.Intn(len(data)*8 - 70))
		n := uint(1 + rng.Intn(64))

		mem.SetBitPos(pos)
		cached.SetBitPos(pos)
		want := mem.ReadBits(n)
		if got := cached.ReadBits(n); got != want {
			t.Fatalf("read %d bits at %d: got %#x, want %#x", n, pos, got, want)
		}
	}
}
