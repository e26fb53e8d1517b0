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
	"bytes"
	"io"
)

// ValidateDepth performs a bounded-depth, depth-first scan of
// the encoding read from rd: it reads each header, skips the
// exact leaf payload, and recurses for nodes, decrementing
// maxDepth at each descent. It fails with ErrTooDeep if
// maxDepth would go below zero, ErrMalformedTag if a tag byte
// is neither 0x00 nor 0x01, and ErrTrailingBytes if rd has
// unread data once the root value is fully consumed.
//
// No byte of leaf payload is ever copied into a returned
// value: ValidateDepth only discards it. This makes the
// function safe to run against untrusted, adversarially large
// input without allocating proportional to its size.
func ValidateDepth(rd io.Reader, maxDepth int) error {
	br := bufio.NewReaderSize(rd, readerBufferSize)
	if err := scanValue(br, maxDepth); err != nil {
		return err
	}
	if _, err := br.Peek(1); err != io.EOF {
		if err == nil {
			return ErrTrailingBytes
		}
		return err
	}
	return nil
}

// ValidateDepthBytes is ValidateDepth over an in-memory buffer.
func ValidateDepthBytes(data []byte, maxDepth int) error {
	return ValidateDepth(bytes.NewReader(data), maxDepth)
}

func scanValue(br *bufio.Reader, maxDepth int) error {
	if maxDepth < 0 {
		return ErrTooDeep
	}
	var hdr [header]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return ErrMalformedInput
		}
		return err
	}
	tag := hdr[0]
	count := readU32BE(hdr[:], 1)
	switch tag {
	case tagLeaf:
		if _, err := io.CopyN(io.Discard, br, int64(count)); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return ErrMalformedInput
			}
			return err
		}
		return nil
	case tagNode:
		for i := uint32(0); i < count; i++ {
			if err := scanValue(br, maxDepth-1); err != nil {
				return err
			}
		}
		return nil
	default:
		return ErrMalformedTag
	}
}
