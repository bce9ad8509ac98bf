// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package fmindex

import "sort"

// computeSA returns the suffix array of text using prefix doubling. The
// dictionary texts indexed here are small relative to the graph, so the
// O(n log² n) bound is of no concern next to the RePair pass.
func computeSA(text []byte) []int64 {
	n := len(text)
	sa := make([]int64, n)
	rank := make([]int64, n)
	tmp := make([]int64, n)

	for i := 0; i < n; i++ {
		sa[i] = int64(i)
		rank[i] = int64(text[i])
	}

	for h := 1; ; h *= 2 {
		key := func(i int64) (int64, int64) {
			second := int64(-1)
			if i+int64(h) < int64(n) {
				second = rank[i+int64(h)]
			}
			return rank[i], second
		}
		sort.Slice(sa, func(a, b int) bool {
			fa, sa2 := key(sa[a])
			fb, sb := key(sa[b])
			if fa != fb {
				return fa < fb
			}
			return sa2 < sb
		})

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			fa, sa2 := key(sa[i-1])
			fb, sb := key(sa[i])
			if fa != fb || sa2 != sb {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == int64(n-1) {
			return sa
		}
	}
}
