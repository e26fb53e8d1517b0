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

package bytetree

import "os"

// Tree is a byte tree: either a Leaf (a byte array) or a Node
// (an ordered sequence of byte trees). The same logical value
// can be backed by one of three physical flavors — Leaf/Node
// hold everything in memory, *FileTree refers to a file whose
// contents are the wire encoding, and *Container is an ordered
// sequence of subtree handles of mixed flavors.
//
// Every Tree can produce a Reader, which performs the
// depth-first streaming traversal regardless of flavor.
type Tree interface {
	// IsLeaf reports whether this value is a leaf.
	IsLeaf() bool
	// TotalSize returns the exact length of Tree's wire
	// encoding. For file-backed subtrees this is the file's
	// length, not a traversal of its payload.
	TotalSize() int64
	// Reader opens a depth-first cursor over this value.
	Reader() (*Reader, error)

	open(parent *Reader) (*Reader, error)
}

// Leaf is a materialized leaf: an in-memory byte array.
type Leaf []byte

// NewLeaf returns a Leaf holding a defensive copy of b.
func NewLeaf(b []byte) Leaf {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Leaf(cp)
}

// EmptyLeaf is the leaf of length zero.
var EmptyLeaf = Leaf(nil)

func (l Leaf) IsLeaf() bool     { return true }
func (l Leaf) TotalSize() int64 { return header + int64(len(l)) }

func (l Leaf) Reader() (*Reader, error) { return l.open(nil) }

func (l Leaf) open(parent *Reader) (*Reader, error) {
	return &Reader{
		parent:    parent,
		leaf:      true,
		remaining: uint32(len(l)),
		src:       &memLeafSrc{data: l},
	}, nil
}

// Node is a materialized node: an in-memory, ordered sequence
// of byte trees. NewNode does not copy the slice; callers
// should not mutate it after the Node is constructed.
type Node []Tree

// NewNode builds a Node from children without copying the
// slice (move semantics, matching §4.2).
func NewNode(children []Tree) Node { return Node(children) }

func (n Node) IsLeaf() bool { return false }

func (n Node) TotalSize() int64 {
	total := int64(header)
	for _, c := range n {
		total += c.TotalSize()
	}
	return total
}

func (n Node) Reader() (*Reader, error) { return n.open(nil) }

func (n Node) open(parent *Reader) (*Reader, error) {
	return &Reader{
		parent:    parent,
		leaf:      false,
		remaining: uint32(len(n)),
		src:       &seqSrc{children: n},
	}, nil
}

// FileTree is a file-backed byte tree: path refers to a file
// whose contents are exactly the wire encoding of one subtree.
// The file's lifetime is managed by the caller (typically the
// tempfile service); FileTree only opens it for reading.
type FileTree struct {
	path string
}

// NewFileTree wraps path as a file-backed byte tree. The file
// is not opened or validated until Reader is called.
func NewFileTree(path string) *FileTree { return &FileTree{path: path} }

// Path returns the underlying file path.
func (f *FileTree) Path() string { return f.path }

func (f *FileTree) IsLeaf() bool {
	r, err := f.Reader()
	if err != nil {
		return false
	}
	defer r.Close()
	return r.leaf
}

func (f *FileTree) TotalSize() int64 {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (f *FileTree) Reader() (*Reader, error) { return f.open(nil) }

func (f *FileTree) open(parent *Reader) (*Reader, error) {
	in, err := openFileInput(f.path)
	if err != nil {
		return nil, err
	}
	tag, count, err := in.readHeader()
	if err != nil {
		in.close()
		return nil, err
	}
	return &Reader{
		parent:    parent,
		leaf:      tag == tagLeaf,
		remaining: count,
		src:       &fileSrc{input: in, owns: true},
	}, nil
}

// Container is an ordered sequence of subtree handles of mixed
// flavors. It is always logically a node: a Container is never
// a leaf. It borrows its children — closing a Container's
// reader never closes or deletes anything the children
// themselves don't already own.
type Container struct {
	children []Tree
}

// NewContainer builds a Container over children, which are
// borrowed (not copied, not owned).
func NewContainer(children []Tree) *Container { return &Container{children: children} }

func (c *Container) IsLeaf() bool { return false }

func (c *Container) TotalSize() int64 {
	total := int64(header)
	for _, ch := range c.children {
		total += ch.TotalSize()
	}
	return total
}

func (c *Container) Reader() (*Reader, error) { return c.open(nil) }

func (c *Container) open(parent *Reader) (*Reader, error) {
	return &Reader{
		parent:    parent,
		leaf:      false,
		remaining: uint32(len(c.children)),
		src:       &seqSrc{children: c.children},
	}, nil
}
