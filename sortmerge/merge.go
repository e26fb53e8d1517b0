// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package sortmerge

import (
	"github.com/vericore/bbcore/bytetree"
	"github.com/vericore/bbcore/heap"
	"github.com/vericore/bbcore/tempfile"
)

// cursor is a single-element look-ahead over one sorted run: it
// holds the next unconsumed child, materialized, alongside the
// Reader it came from so the following one can be pulled on
// demand (§4.6 "wrap it in a single-element look-ahead queue").
type cursor struct {
	r    *bytetree.Reader
	head bytetree.Tree
}

func (c *cursor) advance() error {
	if c.r.Remaining() == 0 {
		c.r.Close()
		c.head = nil
		return nil
	}
	child, err := c.r.NextChild()
	if err != nil {
		return err
	}
	t, err := child.ReadByteTree()
	if err != nil {
		return err
	}
	c.head = t
	return nil
}

// cursorHeap is the priority queue of run cursors, ordered by
// each cursor's current head under order, backed by the generic
// slice heap rather than container/heap's interface-boxed one.
type cursorHeap struct {
	cursors []*cursor
	order   Order
}

func (h *cursorHeap) less(a, b *cursor) bool { return h.order(a.head, b.head) }

func (h *cursorHeap) push(c *cursor) { heap.PushSlice(&h.cursors, c, h.less) }

func (h *cursorHeap) fixTop() { heap.FixSlice(h.cursors, 0, h.less) }

func (h *cursorHeap) popTop() *cursor { return heap.PopSlice(&h.cursors, h.less) }

// mergePass merges a single batch of at most maxReaders runs
// (the fan-in cap is enforced by the caller, Merge) into one
// new file-backed run.
func mergePass(runs []*bytetree.FileTree, order Order, td *tempfile.Dir) (res *bytetree.FileTree, err error) {
	if len(runs) == 1 {
		return runs[0], nil
	}

	h := &cursorHeap{order: order}
	defer func() {
		for _, c := range h.cursors {
			c.r.Close()
		}
	}()

	var total uint32
	for _, run := range runs {
		r, rerr := run.Reader()
		if rerr != nil {
			return nil, rerr
		}
		total += r.Remaining()
		c := &cursor{r: r}
		if aerr := c.advance(); aerr != nil {
			return nil, aerr
		}
		if c.head == nil {
			continue
		}
		h.push(c)
	}

	path := td.File()
	w, err := bytetree.NewWriter(int(total), path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for len(h.cursors) > 0 {
		top := h.cursors[0]
		if err = w.Write(top.head); err != nil {
			return nil, err
		}
		if err = top.advance(); err != nil {
			return nil, err
		}
		if top.head == nil {
			h.popTop()
		} else {
			h.fixTop()
		}
	}
	return bytetree.NewFileTree(path), nil
}

// Zip pairs up the children of a and b by index, producing a
// node of the same length whose i-th child is
// Node{a's i-th child, b's i-th child} (§4.6 zip). a and b must
// have the same number of children.
func Zip(a, b bytetree.Tree, td *tempfile.Dir) (*bytetree.FileTree, error) {
	ra, err := a.Reader()
	if err != nil {
		return nil, err
	}
	defer ra.Close()
	rb, err := b.Reader()
	if err != nil {
		return nil, err
	}
	defer rb.Close()

	if ra.Remaining() != rb.Remaining() {
		return nil, ErrLengthMismatch
	}
	n := int(ra.Remaining())
	path := td.File()
	w, err := bytetree.NewWriter(n, path)
	if err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		ca, err := ra.NextChild()
		if err != nil {
			w.Close()
			return nil, err
		}
		ta, err := ca.ReadByteTree()
		if err != nil {
			w.Close()
			return nil, err
		}
		cb, err := rb.NextChild()
		if err != nil {
			w.Close()
			return nil, err
		}
		tb, err := cb.ReadByteTree()
		if err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Write(bytetree.Node{ta, tb}); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytetree.NewFileTree(path), nil
}

// Project replaces each child of t with that child's i-th
// element (§4.6 project). Every child of t must be a node with
// at least i+1 children.
func Project(t bytetree.Tree, i int, td *tempfile.Dir) (*bytetree.FileTree, error) {
	r, err := t.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()

	n := int(r.Remaining())
	path := td.File()
	w, err := bytetree.NewWriter(n, path)
	if err != nil {
		return nil, err
	}
	for k := 0; k < n; k++ {
		c, err := r.NextChild()
		if err != nil {
			w.Close()
			return nil, err
		}
		if c.IsLeaf() || int(c.Remaining()) < i+1 {
			w.Close()
			if c.IsLeaf() {
				return nil, ErrNotNode
			}
			return nil, ErrTooFewChildren
		}
		if err := c.SkipChildren(i); err != nil {
			w.Close()
			return nil, err
		}
		target, err := c.NextChild()
		if err != nil {
			w.Close()
			return nil, err
		}
		tv, err := target.ReadByteTree()
		if err != nil {
			w.Close()
			return nil, err
		}
		if err := c.SkipChildren(int(c.Remaining())); err != nil {
			w.Close()
			return nil, err
		}
		if err := w.Write(tv); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return bytetree.NewFileTree(path), nil
}

// ZipSortProject computes project(sort(zip(keys, values), by
// first element), 1): the values reordered into the order their
// paired keys would sort under order (§4.6, combinator form of
// an external sort-by-key).
func ZipSortProject(keys, values bytetree.Tree, order Order, td *tempfile.Dir, batchSize, maxReaders int) (*bytetree.FileTree, error) {
	zipped, err := Zip(keys, values, td)
	if err != nil {
		return nil, err
	}
	pairOrder := func(a, b bytetree.Tree) bool {
		an, aok := a.(bytetree.Node)
		bn, bok := b.(bytetree.Node)
		if !aok || !bok || len(an) < 1 || len(bn) < 1 {
			return false
		}
		return order(an[0], bn[0])
	}
	r, err := zipped.Reader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	sorted, err := Sort(r, pairOrder, td, batchSize, maxReaders)
	if err != nil {
		return nil, err
	}
	return Project(sorted, 1, td)
}
