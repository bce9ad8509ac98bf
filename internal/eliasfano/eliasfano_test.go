// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package eliasfano

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/dsnet/cgraph/internal/bits"
)

func buildReader(t *testing.T, list []uint64) *Reader {
	t.Helper()
	var w bits.Writer
	Write(list, &w, 8)
	w.Flush()

	r, err := NewReader(bits.NewReader(bits.NewSource(w.Bytes()), 0))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	vectors := [][]uint64{
		{0},
		{0, 0, 0},
		{5},
		{1, 2, 3, 4, 5},
		{0, 0, 1, 1, 2, 900000},
	}
	for i := 0; i < 10; i++ {
		n := 1 + rng.Intn(2000)
		list := make([]uint64, n)
		var v uint64
		for j := range list {
			v += uint64(rng.Intn(50))
			list[j] = v
		}
		vectors = append(vectors, list)
	}

	for vi, list := range vectors {
		r := buildReader(t, list)
		if r.Len() != uint64(len(list)) {
			t.Fatalf("vector %d: length %d, want %d", vi, r.Len(), len(list))
		}
		for i, want := range list {
			if got := r.Get(uint64(i)); got != want {
				t.Fatalf("vector %d: get(%d) = %d, want %d", vi, i, got, want)
			}
		}
	}
}

func TestSearchLowest(t *testing.T) {
	list := []uint64{2, 2, 2, 5, 5, 9, 12, 12, 30}
	r := buildReader(t, list)

	for v := uint64(0); v <= 35; v++ {
		want := int64(-1)
		for i, x := range list {
			if x == v {
				want = int64(i)
				break
			}
		}
		if got := r.SearchLowest(v, 0, uint64(len(list)-1)); got != want {
			t.Errorf("SearchLowest(%d): got %d, want %d", v, got, want)
		}

		wantNext := int64(-1)
		for i, x := range list {
			if x == v {
				wantNext = int64(i)
				break
			}
			if x > v {
				wantNext = int64(sort.Search(len(list), func(j int) bool { return list[j] > v }))
				break
			}
		}
		if got := r.SearchLowestOrNext(v, 0, uint64(len(list)-1)); got != wantNext {
			t.Errorf("SearchLowestOrNext(%d): got %d, want %d", v, got, wantNext)
		}
	}
}

func TestIter(t *testing.T) {
	// Sorted label table with terminals up to 9 and non-terminals from 10.
	list := []uint64{1, 1, 3, 3, 3, 7, 10, 10, 11, 13}
	r := buildReader(t, list)
	const firstNT = 10

	for label := uint64(0); label < firstNT; label++ {
		var want []uint64
		for i, x := range list {
			if x == label || x >= firstNT {
				want = append(want, uint64(i))
			}
		}

		it := r.Iter(label, firstNT)
		var got []uint64
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			got = append(got, v)
		}
		if len(got) != len(want) {
			t.Fatalf("label %d: got %v, want %v", label, got, want)
		}
		for i := range got {
			if got[i] != want[i] {
				t.Fatalf("label %d: got %v, want %v", label, got, want)
			}
		}
	}
}
