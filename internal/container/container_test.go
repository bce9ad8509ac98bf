// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package container

import (
	"math/rand"
	"testing"
)

func TestRingQueue(t *testing.T) {
	var q RingQueue[int]
	if !q.Empty() {
		t.Fatal("new queue not empty")
	}

	// Interleave pushes and pops to force wraparound and growth.
	rng := rand.New(rand.NewSource(1))
	var next, expect int
	for i := 0; i < 10000; i++ {
		if rng.Intn(3) > 0 || q.Empty() {
			q.Enqueue(next)
			next++
		} else {
			v, ok := q.Dequeue()
			if !ok || v != expect {
				t.Fatalf("dequeue: got %d (%v), want %d", v, ok, expect)
			}
			expect++
		}
	}
	for !q.Empty() {
		v, ok := q.Dequeue()
		if !ok || v != expect {
			t.Fatalf("drain: got %d (%v), want %d", v, ok, expect)
		}
		expect++
	}
	if expect != next {
		t.Fatalf("drained %d elements, want %d", expect, next)
	}
	if _, ok := q.Dequeue(); ok {
		t.Fatal("dequeue on empty queue succeeded")
	}
}

func TestIntSet(t *testing.T) {
	var s IntSet
	rng := rand.New(rand.NewSource(2))

	ref := make(map[uint64]bool)
	for i := 0; i < 5000; i++ {
		v := uint64(rng.Intn(1 << 20))
		wantNew := !ref[v]
		ref[v] = true
		if got := s.Add(v); got != wantNew {
			t.Fatalf("Add(%d): got %v, want %v", v, got, wantNew)
		}
	}
	for i := 0; i < 5000; i++ {
		v := uint64(rng.Intn(1 << 20))
		if s.Contains(v) != ref[v] {
			t.Fatalf("Contains(%d): got %v, want %v", v, s.Contains(v), ref[v])
		}
	}
}
