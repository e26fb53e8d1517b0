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

// source is the flavor-specific half of a Reader: it knows how
// to hand back the next child (for a node) or copy out leaf
// payload bytes, and how to release whatever it directly owns.
type source interface {
	// nextChild returns the Reader for the next child of a
	// node-shaped source. parent is the Reader that owns this
	// source (used to set up the child's back-link).
	nextChild(parent *Reader) (*Reader, error)
	// readBytes copies exactly len(dst) bytes of leaf payload.
	readBytes(dst []byte) error
	// close releases anything this source directly opened.
	// It must be safe to call multiple times.
	close() error
}

// memLeafSrc reads out of an in-memory leaf's byte slice.
type memLeafSrc struct {
	data []byte
	pos  int
}

func (s *memLeafSrc) nextChild(*Reader) (*Reader, error) {
	return nil, ErrExhaustedChildren
}

func (s *memLeafSrc) readBytes(dst []byte) error {
	n := copy(dst, s.data[s.pos:])
	s.pos += n
	return nil
}

func (s *memLeafSrc) close() error { return nil }

// seqSrc walks an in-memory sequence of Tree handles: used by
// both materialized Node and Container, since both just defer
// to each child's own Reader.
type seqSrc struct {
	children []Tree
	idx      int
}

func (s *seqSrc) nextChild(parent *Reader) (*Reader, error) {
	if s.idx >= len(s.children) {
		return nil, ErrExhaustedChildren
	}
	c := s.children[s.idx]
	s.idx++
	return c.open(parent)
}

func (s *seqSrc) readBytes([]byte) error { return ErrMalformedInput }

func (s *seqSrc) close() error { return nil }

// fileInput is the buffered input shared by every Reader that
// descends, within a single file, from the FileTree that opened
// it. Depth-first order is not merely advisory here: headers
// and payload bytes are consumed from br in strict sequence.
type fileInput struct {
	f  *os.File
	br *bufio.Reader
}

func openFileInput(path string) (*fileInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &fileInput{f: f, br: bufio.NewReaderSize(f, readerBufferSize)}, nil
}

// readerBufferSize is the default buffered-input size (§6.7
// reader_buffer_size).
var readerBufferSize = 16384

func (in *fileInput) readHeader() (tag byte, count uint32, err error) {
	var buf [header]byte
	if _, err := io.ReadFull(in.br, buf[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, 0, ErrMalformedInput
		}
		return 0, 0, err
	}
	tag = buf[0]
	if tag != tagLeaf && tag != tagNode {
		return 0, 0, ErrMalformedTag
	}
	return tag, readU32BE(buf[:], 1), nil
}

func (in *fileInput) close() error { return in.f.Close() }

// fileSrc reads from a shared fileInput. owns is true only for
// the Reader that actually opened the underlying file (the one
// produced directly by (*FileTree).open); every descendant
// Reader within the same file shares the fileInput but does not
// close it.
type fileSrc struct {
	input *fileInput
	owns  bool
}

func (s *fileSrc) nextChild(parent *Reader) (*Reader, error) {
	tag, count, err := s.input.readHeader()
	if err != nil {
		return nil, err
	}
	return &Reader{
		parent:    parent,
		leaf:      tag == tagLeaf,
		remaining: count,
		src:       &fileSrc{input: s.input, owns: false},
	}, nil
}

func (s *fileSrc) readBytes(dst []byte) error {
	_, err := io.ReadFull(s.input.br, dst)
	if err == io.ErrUnexpectedEOF {
		return ErrMalformedInput
	}
	return err
}

func (s *fileSrc) close() error {
	if s.owns {
		return s.input.close()
	}
	return nil
}
