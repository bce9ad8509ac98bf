// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package fmindex

import (
	"bytes"
	"sort"
	"testing"

	"github.com/dsnet/cgraph/internal/bits"
)

// dictText builds the NUL-framed dictionary text and separator bitmap over
// the sorted entries.
func dictText(entries []string) ([]byte, *bits.Array) {
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)

	n := uint64(1)
	for _, s := range sorted {
		n += uint64(len(s)) + 1
	}
	text := make([]byte, 0, n)
	sep := bits.NewArray(n)
	text = append(text, 0)
	sep.Set(0, true)
	for _, s := range sorted {
		text = append(text, s...)
		text = append(text, 0)
		sep.Set(uint64(len(text))-1, true)
	}
	return text, sep
}

func buildReader(t *testing.T, text []byte, sampling int, sep *bits.Array, rle bool) *Reader {
	t.Helper()
	var w bits.Writer
	Write(text, sampling, sep, rle, &w, 8)

	r, err := NewReader(bits.NewReader(bits.NewSource(w.Bytes()), 0))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func countOccurrences(text, p []byte) int {
	var n int
	for i := 0; i+len(p) <= len(text); i++ {
		if bytes.Equal(text[i:i+len(p)], p) {
			n++
		}
	}
	return n
}

func TestComputeSA(t *testing.T) {
	for _, text := range []string{"\x00", "banana\x00", "\x00a\x00ab\x00abc\x00", "aaaa\x00"} {
		sa := computeSA([]byte(text))

		// Adjacent suffixes must be strictly increasing.
		for i := 1; i < len(sa); i++ {
			if bytes.Compare([]byte(text)[sa[i-1]:], []byte(text)[sa[i]:]) >= 0 {
				t.Errorf("text %q: suffixes %d and %d out of order", text, i-1, i)
			}
		}
	}
}

func TestLocateAndExtract(t *testing.T) {
	entries := []string{"apple", "apricot", "banana", "band", "", "apex"}
	text, sep := dictText(entries)
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)

	patterns := [][]byte{
		[]byte("a"), []byte("ap"), []byte("app"), []byte("ban"),
		[]byte("nd"), []byte("x"), []byte("zzz"),
		[]byte("\x00apple\x00"), []byte("\x00ap"),
		{0}, []byte("\xfe"),
	}

	for _, sampling := range []int{0, 4, 32} {
		for _, rle := range []bool{false, true} {
			f := buildReader(t, text, sampling, sep, rle)

			if f.TextLen() != uint64(len(text)) {
				t.Fatalf("text length: got %d, want %d", f.TextLen(), len(text))
			}

			for _, p := range patterns {
				want := countOccurrences(text, p)
				sp, ep, ok := f.Locate(p)
				got := 0
				if ok {
					got = int(ep - sp + 1)
				}
				if got != want {
					t.Fatalf("sampling=%d rle=%v: locate(%q) found %d matches, want %d",
						sampling, rle, p, got, want)
				}
			}

			// Every entry is recovered by extracting past its trailing
			// separator: entry i extracts from row i+2, the last from row 0.
			for i, want := range sorted {
				row := uint64(i) + 2
				if i == len(sorted)-1 {
					row = 0
				}
				if got := string(f.Extract(row)); got != want {
					t.Fatalf("sampling=%d rle=%v: extract entry %d: got %q, want %q",
						sampling, rle, i, got, want)
				}
			}

			if sampling == 0 {
				// The exact-match checks below run on the sampled
				// configurations only.
				continue
			}

			// Exact matches identify their entry via LocateMatch.
			for i, s := range sorted {
				p := append([]byte{0}, s...)
				p = append(p, 0)
				sp, ep, ok := f.Locate(p)
				if !ok || sp != ep {
					t.Fatalf("sampling=%d rle=%v: locate(%q): ok=%v sp=%d ep=%d",
						sampling, rle, p, ok, sp, ep)
				}
				if got := f.LocateMatch(sp); got != uint64(i) {
					t.Fatalf("sampling=%d rle=%v: locate_match(%q): got %d, want %d",
						sampling, rle, s, got, i)
				}
			}
		}
	}
}

func TestSubstringMatchEntries(t *testing.T) {
	entries := []string{"abcabc", "xabcy", "nope"}
	text, sep := dictText(entries)
	sorted := append([]string(nil), entries...)
	sort.Strings(sorted)

	for _, sampling := range []int{0, 4} {
		for _, rle := range []bool{false, true} {
			f := buildReader(t, text, sampling, sep, rle)

			sp, ep, ok := f.Locate([]byte("abc"))
			if !ok {
				t.Fatalf("sampling=%d rle=%v: no matches", sampling, rle)
			}
			seen := make(map[uint64]int)
			for i := sp; i <= ep; i++ {
				seen[f.LocateMatch(i)]++
			}

			want := make(map[uint64]int)
			for i, s := range sorted {
				want[uint64(i)] = countOccurrences([]byte(s), []byte("abc"))
			}
			for i, s := range sorted {
				if seen[uint64(i)] != want[uint64(i)] {
					t.Errorf("sampling=%d rle=%v: entry %d (%q): %d matches, want %d",
						sampling, rle, i, s, seen[uint64(i)], want[uint64(i)])
				}
			}
		}
	}
}
