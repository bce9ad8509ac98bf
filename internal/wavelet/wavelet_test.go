// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package wavelet

import (
	"math/rand"
	"testing"

	"github.com/dsnet/cgraph/internal/bits"
)

func buildReader(t *testing.T, data []byte) *Reader {
	t.Helper()
	var w bits.Writer
	Write(data, &w, 8)

	r, err := NewReader(bits.NewReader(bits.NewSource(w.Bytes()), 0))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func testAgainstReference(t *testing.T, data []byte) {
	t.Helper()
	r := buildReader(t, data)

	counts := make(map[byte]uint64)
	for i, c := range data {
		counts[c]++

		got, rank := r.Access(uint64(i))
		if got != c {
			t.Fatalf("access(%d): got %q, want %q", i, got, c)
		}
		if rank != counts[c] {
			t.Fatalf("access(%d): rank %d, want %d", i, rank, counts[c])
		}
	}

	// Spot-check rank for every byte value present plus a few absent ones.
	probes := []byte{0, 1, 'a', 'z', 0xff}
	for c := range counts {
		probes = append(probes, c)
	}
	for _, c := range probes {
		var want uint64
		for i, v := range data {
			if v == c {
				want++
			}
			if got := r.Rank(c, uint64(i)); got != want {
				t.Fatalf("rank(%q, %d): got %d, want %d", c, i, got, want)
			}
		}
	}
}

func TestWaveletTree(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	vectors := [][]byte{
		[]byte("a"),
		[]byte("aaaaaaa"),
		[]byte("ab"),
		[]byte("abracadabra"),
		[]byte("\x00banana\x00band\x00b\x00"),
	}
	random := make([]byte, 2000)
	for i := range random {
		random[i] = byte(rng.Intn(7)) // small alphabet
	}
	vectors = append(vectors, random)

	wide := make([]byte, 3000)
	rng.Read(wide) // full byte alphabet
	vectors = append(vectors, wide)

	for _, v := range vectors {
		testAgainstReference(t, v)
	}
}
