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

import (
	"bufio"
	"io"
	"os"
)

// Writer emits a node header followed by its children,
// writing sequentially to a file sink. It performs no check
// that the number of Write calls matches the declared child
// count — that is the caller's contract (§4.5).
type Writer struct {
	f  *os.File
	bw *bufio.Writer
}

// NewWriter creates path and writes the node header
// (0x00, childCount) to it.
func NewWriter(childCount int, path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(f)
	var hdr [header]byte
	hdr[0] = tagNode
	putU32BE(hdr[:], 1, uint32(childCount))
	if _, err := bw.Write(hdr[:]); err != nil {
		f.Close()
		return nil, err
	}
	return &Writer{f: f, bw: bw}, nil
}

// Write serializes subtree as the next child. When subtree is
// file-backed, its bytes are copied directly from its backing
// file rather than being parsed and re-encoded.
func (w *Writer) Write(subtree Tree) error {
	if ft, ok := subtree.(*FileTree); ok {
		src, err := os.Open(ft.path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w.bw, src)
		src.Close()
		return err
	}
	return w.writeEncoded(subtree)
}

func (w *Writer) writeEncoded(t Tree) error {
	switch v := t.(type) {
	case Leaf:
		var hdr [header]byte
		hdr[0] = tagLeaf
		putU32BE(hdr[:], 1, uint32(len(v)))
		if _, err := w.bw.Write(hdr[:]); err != nil {
			return err
		}
		_, err := w.bw.Write(v)
		return err
	case Node:
		var hdr [header]byte
		hdr[0] = tagNode
		putU32BE(hdr[:], 1, uint32(len(v)))
		if _, err := w.bw.Write(hdr[:]); err != nil {
			return err
		}
		for _, c := range v {
			if err := w.Write(c); err != nil {
				return err
			}
		}
		return nil
	case *Container:
		var hdr [header]byte
		hdr[0] = tagNode
		putU32BE(hdr[:], 1, uint32(len(v.children)))
		if _, err := w.bw.Write(hdr[:]); err != nil {
			return err
		}
		for _, c := range v.children {
			if err := w.Write(c); err != nil {
				return err
			}
		}
		return nil
	default:
		// Defensive fallback for future Tree implementations:
		// stream it depth-first through a Reader rather than
		// failing outright.
		return w.writeViaReader(t)
	}
}

func (w *Writer) writeViaReader(t Tree) error {
	r, err := t.Reader()
	if err != nil {
		return err
	}
	defer r.Close()
	return w.writeReader(r)
}

func (w *Writer) writeReader(r *Reader) error {
	if r.IsLeaf() {
		var hdr [header]byte
		hdr[0] = tagLeaf
		putU32BE(hdr[:], 1, r.Remaining())
		if _, err := w.bw.Write(hdr[:]); err != nil {
			return err
		}
		buf, err := r.ReadAll()
		if err != nil {
			return err
		}
		_, err = w.bw.Write(buf)
		return err
	}
	n := int(r.Remaining())
	var hdr [header]byte
	hdr[0] = tagNode
	putU32BE(hdr[:], 1, uint32(n))
	if _, err := w.bw.Write(hdr[:]); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c, err := r.NextChild()
		if err != nil {
			return err
		}
		if err := w.writeReader(c); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes and closes the output file.
func (w *Writer) Close() error {
	if err := w.bw.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// Encode returns the full wire encoding of t as an in-memory
// byte slice. Prefer NewWriter for values that may exceed
// addressable memory.
func Encode(t Tree) []byte {
	buf := make([]byte, 0, t.TotalSize())
	return appendEncoded(buf, t)
}

func appendEncoded(buf []byte, t Tree) []byte {
	switch v := t.(type) {
	case Leaf:
		var hdr [header]byte
		hdr[0] = tagLeaf
		putU32BE(hdr[:], 1, uint32(len(v)))
		buf = append(buf, hdr[:]...)
		return append(buf, v...)
	case Node:
		var hdr [header]byte
		hdr[0] = tagNode
		putU32BE(hdr[:], 1, uint32(len(v)))
		buf = append(buf, hdr[:]...)
		for _, c := range v {
			buf = appendEncoded(buf, c)
		}
		return buf
	case *Container:
		var hdr [header]byte
		hdr[0] = tagNode
		putU32BE(hdr[:], 1, uint32(len(v.children)))
		buf = append(buf, hdr[:]...)
		for _, c := range v.children {
			buf = appendEncoded(buf, c)
		}
		return buf
	default:
		r, err := t.Reader()
		if err != nil {
			return buf
		}
		defer r.Close()
		return appendFromReader(buf, r)
	}
}

func appendFromReader(buf []byte, r *Reader) []byte {
	if r.IsLeaf() {
		var hdr [header]byte
		hdr[0] = tagLeaf
		putU32BE(hdr[:], 1, r.Remaining())
		buf = append(buf, hdr[:]...)
		b, err := r.ReadAll()
		if err != nil {
			return buf
		}
		return append(buf, b...)
	}
	n := int(r.Remaining())
	var hdr [header]byte
	hdr[0] = tagNode
	putU32BE(hdr[:], 1, uint32(n))
	buf = append(buf, hdr[:]...)
	for i := 0; i < n; i++ {
		c, err := r.NextChild()
		if err != nil {
			return buf
		}
		buf = appendFromReader(buf, c)
	}
	return buf
}

// Equal reports whether a and b encode identically (§3.1: "two
// byte trees are equal iff their encodings are equal").
func Equal(a, b Tree) bool {
	return string(Encode(a)) == string(Encode(b))
}

// Decode parses a complete wire encoding from data, failing
// with ErrTrailingBytes if data is not consumed exactly.
func Decode(data []byte) (Tree, error) {
	t, rest, err := decodeAt(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrTrailingBytes
	}
	return t, nil
}

func decodeAt(data []byte) (Tree, []byte, error) {
	if len(data) < header {
		return nil, nil, ErrMalformedInput
	}
	tag := data[0]
	count := readU32BE(data, 1)
	rest := data[header:]
	switch tag {
	case tagLeaf:
		if uint32(len(rest)) < count {
			return nil, nil, ErrMalformedInput
		}
		return Leaf(rest[:count]), rest[count:], nil
	case tagNode:
		children := make([]Tree, 0, count)
		for i := uint32(0); i < count; i++ {
			var c Tree
			var err error
			c, rest, err = decodeAt(rest)
			if err != nil {
				return nil, nil, err
			}
			children = append(children, c)
		}
		return Node(children), rest, nil
	default:
		return nil, nil, ErrMalformedTag
	}
}
