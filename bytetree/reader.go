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

import "unicode/utf8"

// Reader is a depth-first cursor over a Tree of any flavor. A
// Reader is not safe for concurrent use; traversal is strictly
// single-threaded and single-active-child, per §3.3/§4.3.
//
// Between two calls to NextChild on the same Reader, the
// previously returned child must be fully read (or explicitly
// skipped/closed); calling NextChild while it is still active
// is a programming fault and panics with ErrTraversalViolation.
type Reader struct {
	parent    *Reader
	src       source
	leaf      bool
	remaining uint32
	active    *Reader
	closed    bool
}

// IsLeaf reports whether the current subtree is a leaf.
func (r *Reader) IsLeaf() bool { return r.leaf }

// Remaining returns the number of children (for a node) or
// unread bytes (for a leaf) left in the current subtree.
func (r *Reader) Remaining() uint32 { return r.remaining }

// NextChild returns a Reader for the next child of a node.
// It fails with ErrExhaustedChildren if called on a leaf or
// when no children remain.
func (r *Reader) NextChild() (*Reader, error) {
	if r.leaf {
		return nil, ErrExhaustedChildren
	}
	if r.active != nil && !r.active.closed {
		panic(ErrTraversalViolation)
	}
	if r.remaining == 0 {
		return nil, ErrExhaustedChildren
	}
	child, err := r.src.nextChild(r)
	if err != nil {
		return nil, err
	}
	r.remaining--
	r.active = child
	if !child.leaf && child.remaining == 0 {
		// an empty node has nothing to read: it is finished already
		child.finish()
	}
	return child, nil
}

// Read fills dst entirely from the current leaf's payload. It
// fails with ErrShortRead if len(dst) exceeds Remaining. When
// Remaining reaches zero the reader (and any now-finished
// ancestors) are closed automatically.
func (r *Reader) Read(dst []byte) error {
	if !r.leaf {
		return ErrMalformedInput
	}
	if uint32(len(dst)) > r.remaining {
		return ErrShortRead
	}
	if err := r.src.readBytes(dst); err != nil {
		return err
	}
	r.remaining -= uint32(len(dst))
	if r.remaining == 0 {
		r.finish()
	}
	return nil
}

// ReadAll reads and returns every remaining byte of the
// current leaf.
func (r *Reader) ReadAll() ([]byte, error) {
	buf := make([]byte, r.remaining)
	if err := r.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadU32 reads a big-endian uint32 leaf value.
func (r *Reader) ReadU32() (uint32, error) {
	var buf [4]byte
	if r.remaining != 4 {
		return 0, ErrMalformedInput
	}
	if err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return readU32BE(buf[:], 0), nil
}

// ReadU32s reads n concatenated big-endian uint32 leaf values.
func (r *Reader) ReadU32s(n int) ([]uint32, error) {
	if r.remaining != uint32(4*n) {
		return nil, ErrMalformedInput
	}
	buf, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = readU32BE(buf, i*4)
	}
	return out, nil
}

// ReadBool reads a one-byte boolean leaf (0x00/0x01).
func (r *Reader) ReadBool() (bool, error) {
	var buf [1]byte
	if r.remaining != 1 {
		return false, ErrMalformedInput
	}
	if err := r.Read(buf[:]); err != nil {
		return false, err
	}
	return decodeBoolByte(buf[0])
}

// ReadBools reads n one-byte boolean leaf elements.
func (r *Reader) ReadBools(n int) ([]bool, error) {
	if r.remaining != uint32(n) {
		return nil, ErrMalformedInput
	}
	buf, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i, b := range buf {
		v, err := decodeBoolByte(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func decodeBoolByte(b byte) (bool, error) {
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, ErrMalformedInput
	}
}

// ReadUTF8 reads exactly len bytes of leaf payload as a UTF-8
// string, failing with ErrMalformedInput on invalid encoding.
func (r *Reader) ReadUTF8(length int) (string, error) {
	if int(r.remaining) != length {
		return "", ErrMalformedInput
	}
	return r.ReadUTF8All()
}

// ReadUTF8All reads every remaining leaf byte as a UTF-8 string.
func (r *Reader) ReadUTF8All() (string, error) {
	buf, err := r.ReadAll()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(buf) {
		return "", ErrMalformedInput
	}
	return string(buf), nil
}

// ReadByteTree materializes the subtree at the current position
// into an in-memory Tree (Leaf or Node), consuming it from the
// reader exactly as if it had been read field-by-field.
func (r *Reader) ReadByteTree() (Tree, error) {
	if r.leaf {
		b, err := r.ReadAll()
		if err != nil {
			return nil, err
		}
		return Leaf(b), nil
	}
	n := int(r.remaining)
	children := make([]Tree, 0, n)
	for i := 0; i < n; i++ {
		c, err := r.NextChild()
		if err != nil {
			return nil, err
		}
		t, err := c.ReadByteTree()
		if err != nil {
			return nil, err
		}
		children = append(children, t)
	}
	return Node(children), nil
}

// SkipChild fully consumes the next child subtree without
// materializing it.
func (r *Reader) SkipChild() error {
	c, err := r.NextChild()
	if err != nil {
		return err
	}
	return c.skipSelf()
}

// SkipChildren fully consumes the next n child subtrees.
func (r *Reader) SkipChildren(n int) error {
	for i := 0; i < n; i++ {
		if err := r.SkipChild(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) skipSelf() error {
	if r.leaf {
		_, err := r.ReadAll()
		return err
	}
	for r.remaining > 0 {
		if err := r.SkipChild(); err != nil {
			return err
		}
	}
	return nil
}

// Close releases any resources this reader owns. It is
// idempotent; closing a reader before it is fully drained
// abandons the rest of its subtree without error.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	err := r.src.close()
	r.closed = true
	if r.parent != nil {
		if r.parent.active == r {
			r.parent.active = nil
		}
		if r.parent.remaining == 0 {
			r.parent.finish()
		}
	}
	return err
}

// finish marks r closed, releases its own source, clears the
// active-child flag on its parent, and — if that leaves the
// parent itself fully drained — recursively finishes the
// parent too. This is how "no active child" propagates up the
// chain as each subtree completes (§3.3, §4.3).
func (r *Reader) finish() {
	if r.closed {
		return
	}
	r.closed = true
	r.src.close()
	if r.parent != nil {
		if r.parent.active == r {
			r.parent.active = nil
		}
		if r.parent.remaining == 0 {
			r.parent.finish()
		}
	}
}
