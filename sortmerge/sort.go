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

// Package sortmerge implements the external-memory sort and
// k-way merge of file-backed byte-tree sequences (§4.6): the
// children of a node are sorted and merged without ever
// holding all of them in memory at once, staying within a
// file-descriptor budget.
package sortmerge

import (
	"errors"
	"sort"

	"github.com/vericore/bbcore/bytetree"
	"github.com/vericore/bbcore/tempfile"
)

// Order reports whether a should sort strictly before b.
// Ties are broken arbitrarily by the merge (§9 "tie-breaking
// ... is unspecified").
type Order func(a, b bytetree.Tree) bool

// DefaultBatchSize is the default number of children
// materialized into memory per sort-phase run.
const DefaultBatchSize = 1 << 16

// DefaultMaxReaders is the default fan-in cap per merge pass
// (§6.7 max_readers).
const DefaultMaxReaders = 10

// ErrNotNode is returned by Project when a child of the input
// is a leaf rather than a node.
var ErrNotNode = errors.New("sortmerge: expected a node, got a leaf")

// ErrTooFewChildren is returned by Project when a child of the
// input has fewer than i+1 children.
var ErrTooFewChildren = errors.New("sortmerge: child has too few elements to project")

// ErrLengthMismatch is returned by Zip when its two inputs
// have different numbers of children.
var ErrLengthMismatch = errors.New("sortmerge: zip operands have different lengths")

// SortRuns performs the sort phase: it reads children from r
// (which must be positioned at a node) in batches of at most
// batchSize, sorts each batch in memory via order, and writes
// it out as a file-backed node, returning the list of sorted
// runs. The caller is responsible for eventually merging (or
// deleting) the returned runs.
func SortRuns(r *bytetree.Reader, batchSize int, order Order, td *tempfile.Dir, pool *Pool) ([]*bytetree.FileTree, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if pool == nil {
		pool = DefaultPool()
	}
	var runs []*bytetree.FileTree
	for r.Remaining() > 0 {
		n := int(r.Remaining())
		if n > batchSize {
			n = batchSize
		}
		batch := make([]bytetree.Tree, 0, n)
		for i := 0; i < n; i++ {
			c, err := r.NextChild()
			if err != nil {
				return nil, err
			}
			t, err := c.ReadByteTree()
			if err != nil {
				return nil, err
			}
			batch = append(batch, t)
		}
		parallelSort(batch, order, pool)

		path := td.File()
		w, err := bytetree.NewWriter(len(batch), path)
		if err != nil {
			return nil, err
		}
		for _, t := range batch {
			if err := w.Write(t); err != nil {
				w.Close()
				return nil, err
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		runs = append(runs, bytetree.NewFileTree(path))
	}
	return runs, nil
}

// parallelSort sorts items in place, splitting the work across
// pool's workers for large batches (§5 "array-split
// computations"). Small batches sort sequentially, since the
// fixed cost of a parallel merge isn't worth paying for them.
func parallelSort(items []bytetree.Tree, order Order, pool *Pool) {
	less := func(items []bytetree.Tree) func(i, j int) bool {
		return func(i, j int) bool { return order(items[i], items[j]) }
	}
	n := len(items)
	const parallelThreshold = 4096
	if n < parallelThreshold {
		sort.Slice(items, less(items))
		return
	}
	workers := pool.Workers()
	if workers > n {
		workers = n
	}
	if workers < 2 {
		sort.Slice(items, less(items))
		return
	}
	chunk := (n + workers - 1) / workers
	type bound struct{ lo, hi int }
	bounds := make([]bound, 0, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo < hi {
			bounds = append(bounds, bound{lo, hi})
		}
	}
	pool.Run(n, func(lo, hi int) error {
		sort.Slice(items[lo:hi], func(i, j int) bool {
			return order(items[lo+i], items[lo+j])
		})
		return nil
	})

	// Sequentially k-way merge the (already internally sorted)
	// chunks back into one sorted slice. The number of chunks is
	// bounded by pool.Workers(), so a linear scan per output
	// element is cheap relative to a heap for these sizes.
	merged := make([]bytetree.Tree, 0, n)
	idx := make([]int, len(bounds))
	for {
		best := -1
		for i, b := range bounds {
			if b.lo+idx[i] >= b.hi {
				continue
			}
			if best == -1 || order(items[b.lo+idx[i]], items[bounds[best].lo+idx[best]]) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		merged = append(merged, items[bounds[best].lo+idx[best]])
		idx[best]++
	}
	copy(items, merged)
}

// Merge repeatedly merges at most maxReaders runs per pass
// until a single file-backed node remains (§4.6 "merge
// phase"). Intermediate run files are deleted only after each
// pass completes successfully.
func Merge(runs []*bytetree.FileTree, maxReaders int, order Order, td *tempfile.Dir) (*bytetree.FileTree, error) {
	if maxReaders <= 0 {
		maxReaders = DefaultMaxReaders
	}
	if len(runs) == 0 {
		path := td.File()
		w, err := bytetree.NewWriter(0, path)
		if err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return bytetree.NewFileTree(path), nil
	}
	for len(runs) > 1 {
		var next []*bytetree.FileTree
		for i := 0; i < len(runs); i += maxReaders {
			end := i + maxReaders
			if end > len(runs) {
				end = len(runs)
			}
			merged, err := mergePass(runs[i:end], order, td)
			if err != nil {
				return nil, err
			}
			next = append(next, merged)
		}
		// a lone trailing run is carried into next unchanged by
		// mergePass, so it must survive this pass's cleanup
		carried := make(map[*bytetree.FileTree]bool, len(next))
		for _, m := range next {
			carried[m] = true
		}
		for _, r := range runs {
			if !carried[r] {
				td.Delete(r.Path())
			}
		}
		runs = next
	}
	return runs[0], nil
}

// Sort is the convenience composition of SortRuns and Merge.
func Sort(r *bytetree.Reader, order Order, td *tempfile.Dir, batchSize, maxReaders int) (*bytetree.FileTree, error) {
	runs, err := SortRuns(r, batchSize, order, td, DefaultPool())
	if err != nil {
		return nil, err
	}
	return Merge(runs, maxReaders, order, td)
}
