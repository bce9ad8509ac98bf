// Copyright 2026, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package k2

import (
	cbits "github.com/dsnet/cgraph/internal/bits"
	"github.com/dsnet/cgraph/internal/container"
)

// Reader answers cell and row/column queries against a serialized k²-tree.
type Reader struct {
	width  uint64
	height uint64
	k      uint64
	n      uint64
	t      *cbits.Seq   // nil for the empty matrix
	l      cbits.Reader // positioned reads of the leaf bits
}

// NewReader reads a k²-tree starting at the origin of r.
func NewReader(r *cbits.Reader) (*Reader, error) {
	width, nbytes := r.ReadVbyte()
	off := nbytes

	height, nbytes := r.ReadVbyte()
	off += nbytes

	kv, nbytes := r.ReadVbyte()
	off += nbytes

	n, nbytes := r.ReadVbyte()
	off += nbytes

	if kv != k || n&(n-1) != 0 || n == 0 {
		return nil, Error("invalid matrix geometry")
	}
	if width > n || height > n {
		return nil, Error("matrix dimensions exceed the padded size")
	}

	lenT, nbytes := r.ReadVbyte()
	off += nbytes

	m := &Reader{width: width, height: height, k: kv, n: n}
	if lenT > 0 {
		t, err := cbits.NewSeq(r.Sub(off))
		if err != nil {
			return nil, err
		}
		m.t = t
		m.l = *r.Sub(off + lenT)
	}
	return m, nil
}

// Width returns the number of columns.
func (m *Reader) Width() uint64 { return m.width }

// Height returns the number of rows.
func (m *Reader) Height() uint64 { return m.height }

func (m *Reader) leafBit(pos uint64) bool {
	m.l.SetBitPos(pos)
	return m.l.ReadBit()
}

// Get returns the cell at row r, column c.
func (m *Reader) Get(r, c uint64) bool {
	if r >= m.height || c >= m.width || m.t == nil {
		return false
	}

	n := m.n / m.k
	p := r % n
	q := c % n
	x := m.k*(r/n) + c/n

	for x < m.t.Len() {
		if !m.t.Access(x) {
			return false
		}
		n /= m.k
		x = m.t.Rank1(int64(x))*(m.k*m.k) + m.k*(p/n) + q/n
		p %= n
		q %= n
	}
	return m.leafBit(x - m.t.Len())
}

// reverse collects into dst the rows of column q that are set, scanning the
// subtree rooted at x (x = -1 denotes the conceptual root).
func (m *Reader) reverse(n, q, p uint64, x int64, dst *[]uint64) {
	if p >= m.height {
		return
	}
	if x >= int64(m.t.Len()) {
		if m.leafBit(uint64(x) - m.t.Len()) {
			*dst = append(*dst, p)
		}
		return
	}
	if x == -1 || m.t.Access(uint64(x)) {
		nn := n / m.k
		y := m.t.Rank1(x)*(m.k*m.k) + q/nn

		for j := uint64(0); j < m.k; j++ {
			m.reverse(nn, q%nn, p+nn*j, int64(y+j*m.k), dst)
		}
	}
}

// Column returns the set rows of column q in ascending order.
func (m *Reader) Column(q uint64) []uint64 {
	if q >= m.width || m.t == nil {
		return nil
	}
	var res []uint64
	m.reverse(m.n, q, 0, -1, &res)
	return res
}

type iterFrame struct {
	n uint64
	p uint64
	q uint64
	x int64
}

// Iterator enumerates the set cells of one row (columns ascending) or one
// column (rows ascending).
type Iterator struct {
	m       *Reader
	row     bool
	queue   container.RingQueue[iterFrame]
	hasNext bool
}

// RowIter returns an iterator over the set columns of row p.
func (m *Reader) RowIter(p uint64) *Iterator {
	return m.iter(p, true)
}

// ColumnIter returns an iterator over the set rows of column q.
func (m *Reader) ColumnIter(q uint64) *Iterator {
	return m.iter(q, false)
}

func (m *Reader) iter(v uint64, row bool) *Iterator {
	it := &Iterator{m: m, row: row}
	if m.t == nil {
		return it
	}
	f := iterFrame{n: m.n, x: -1}
	if row {
		f.p = v
	} else {
		f.q = v
	}
	it.queue.Enqueue(f)
	it.hasNext = true
	return it
}

// Next returns the next set position.
func (it *Iterator) Next() (uint64, bool) {
	if !it.hasNext {
		return 0, false
	}
	m := it.m
	for {
		f, ok := it.queue.Dequeue()
		if !ok {
			it.Finish()
			return 0, false
		}
		if it.row {
			if f.q >= m.width {
				continue
			}
		} else if f.p >= m.height {
			continue
		}

		if f.x >= int64(m.t.Len()) {
			if m.leafBit(uint64(f.x) - m.t.Len()) {
				if it.row {
					return f.q, true
				}
				return f.p, true
			}
			continue
		}
		if f.x == -1 || m.t.Access(uint64(f.x)) {
			nn := f.n / m.k
			y := m.t.Rank1(f.x) * (m.k * m.k)
			if it.row {
				y += m.k * (f.p / nn)
			} else {
				y += f.q / nn
			}
			for j := uint64(0); j < m.k; j++ {
				nf := iterFrame{n: nn}
				if it.row {
					nf.p = f.p % nn
					nf.q = f.q + nn*j
					nf.x = int64(y + j)
				} else {
					nf.p = f.p + nn*j
					nf.q = f.q % nn
					nf.x = int64(y + j*m.k)
				}
				it.queue.Enqueue(nf)
			}
		}
	}
}

// Finish releases the iterator.
func (it *Iterator) Finish() {
	it.queue.Reset()
	it.hasNext = false
}
