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
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vericore/bbcore/bytetree"
	"github.com/vericore/bbcore/tempfile"
)

func byteOrder(a, b bytetree.Tree) bool {
	al, _ := a.(bytetree.Leaf)
	bl, _ := b.(bytetree.Leaf)
	return bytes.Compare(al, bl) < 0
}

func writeRun(t *testing.T, td *tempfile.Dir, children []bytetree.Tree) *bytetree.FileTree {
	t.Helper()
	path := td.File()
	w, err := bytetree.NewWriter(len(children), path)
	require.NoError(t, err)
	for _, c := range children {
		require.NoError(t, w.Write(c))
	}
	require.NoError(t, w.Close())
	return bytetree.NewFileTree(path)
}

func leaves(vs ...byte) []bytetree.Tree {
	out := make([]bytetree.Tree, len(vs))
	for i, v := range vs {
		out[i] = bytetree.Leaf{v}
	}
	return out
}

func readAllLeaves(t *testing.T, tree bytetree.Tree) []byte {
	t.Helper()
	r, err := tree.Reader()
	require.NoError(t, err)
	defer r.Close()
	var out []byte
	for r.Remaining() > 0 {
		c, err := r.NextChild()
		require.NoError(t, err)
		b, err := c.ReadAll()
		require.NoError(t, err)
		require.Len(t, b, 1)
		out = append(out, b[0])
	}
	return out
}

func TestMergeTwoRuns(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	a := writeRun(t, td, leaves(1, 3))
	b := writeRun(t, td, leaves(2, 4))

	merged, err := Merge([]*bytetree.FileTree{a, b}, DefaultMaxReaders, byteOrder, td)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4}, readAllLeaves(t, merged))
}

func TestMergeFanInCap(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	var runs []*bytetree.FileTree
	want := []byte{1, 2, 3, 4, 5, 6}
	for _, v := range want {
		runs = append(runs, writeRun(t, td, leaves(v)))
	}

	merged, err := Merge(runs, 2, byteOrder, td)
	require.NoError(t, err)
	require.Equal(t, want, readAllLeaves(t, merged))
}

func TestSortRunsThenMerge(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	input := bytetree.Node(leaves(5, 2, 8, 1, 9, 3, 7, 4, 6))
	r, err := input.Reader()
	require.NoError(t, err)
	defer r.Close()

	runs, err := SortRuns(r, 3, byteOrder, td, DefaultPool())
	require.NoError(t, err)
	require.Len(t, runs, 3)

	merged, err := Merge(runs, DefaultMaxReaders, byteOrder, td)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}, readAllLeaves(t, merged))
}

func TestZipProjectRoundTrip(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	keys := bytetree.Node(leaves(3, 1, 2))
	values := bytetree.Node([]bytetree.Tree{
		bytetree.Leaf("three"),
		bytetree.Leaf("one"),
		bytetree.Leaf("two"),
	})

	sorted, err := ZipSortProject(keys, values, byteOrder, td, DefaultBatchSize, DefaultMaxReaders)
	require.NoError(t, err)

	r, err := sorted.Reader()
	require.NoError(t, err)
	defer r.Close()
	var got []string
	for r.Remaining() > 0 {
		c, err := r.NextChild()
		require.NoError(t, err)
		s, err := c.ReadUTF8All()
		require.NoError(t, err)
		got = append(got, s)
	}
	require.Equal(t, []string{"one", "two", "three"}, got)
}

func TestProjectRejectsLeafChild(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	bad := bytetree.Node(leaves(1, 2))
	_, err = Project(bad, 0, td)
	require.ErrorIs(t, err, ErrNotNode)
}

func TestZipRejectsLengthMismatch(t *testing.T) {
	td, err := tempfile.Init(t.TempDir())
	require.NoError(t, err)

	a := bytetree.Node(leaves(1, 2))
	b := bytetree.Node(leaves(1))
	_, err = Zip(a, b, td)
	require.ErrorIs(t, err, ErrLengthMismatch)
}
