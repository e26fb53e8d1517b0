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

// BoolToTree encodes a bool as a one-byte leaf.
func BoolToTree(b bool) Tree {
	if b {
		return Leaf{0x01}
	}
	return Leaf{0x00}
}

// TreeToBool decodes a one-byte boolean leaf, failing with
// ErrMalformedInput if the byte is not 0x00/0x01.
func TreeToBool(t Tree) (bool, error) {
	l, ok := t.(Leaf)
	if !ok || len(l) != 1 {
		return false, ErrMalformedInput
	}
	return decodeBoolByte(l[0])
}

// U16ToTree encodes a uint16 as a two-byte big-endian leaf.
func U16ToTree(v uint16) Tree {
	buf := make([]byte, 2)
	putU16BE(buf, 0, v)
	return Leaf(buf)
}

// TreeToU16 decodes a two-byte big-endian uint16 leaf.
func TreeToU16(t Tree) (uint16, error) {
	l, ok := t.(Leaf)
	if !ok || len(l) != 2 {
		return 0, ErrMalformedInput
	}
	return readU16BE(l, 0), nil
}

// U32ToTree encodes a uint32 as a four-byte big-endian leaf.
func U32ToTree(v uint32) Tree {
	buf := make([]byte, 4)
	putU32BE(buf, 0, v)
	return Leaf(buf)
}

// TreeToU32 decodes a four-byte big-endian uint32 leaf.
func TreeToU32(t Tree) (uint32, error) {
	l, ok := t.(Leaf)
	if !ok || len(l) != 4 {
		return 0, ErrMalformedInput
	}
	return readU32BE(l, 0), nil
}

// U32sToTree encodes a slice of uint32 as one leaf of
// concatenated big-endian words.
func U32sToTree(vs []uint32) Tree {
	buf := make([]byte, 4*len(vs))
	for i, v := range vs {
		putU32BE(buf, i*4, v)
	}
	return Leaf(buf)
}

// TreeToU32s decodes a leaf of concatenated big-endian uint32s.
func TreeToU32s(t Tree) ([]uint32, error) {
	l, ok := t.(Leaf)
	if !ok || len(l)%4 != 0 {
		return nil, ErrMalformedInput
	}
	out := make([]uint32, len(l)/4)
	for i := range out {
		out[i] = readU32BE(l, i*4)
	}
	return out, nil
}

// BoolsToTree encodes a slice of bool as a leaf with one byte
// per element.
func BoolsToTree(vs []bool) Tree {
	buf := make([]byte, len(vs))
	for i, v := range vs {
		if v {
			buf[i] = 0x01
		}
	}
	return Leaf(buf)
}

// TreeToBools decodes a leaf with one boolean byte per element.
func TreeToBools(t Tree) ([]bool, error) {
	l, ok := t.(Leaf)
	if !ok {
		return nil, ErrMalformedInput
	}
	out := make([]bool, len(l))
	for i, b := range l {
		v, err := decodeBoolByte(b)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// StringToTree encodes a string as a leaf of its UTF-8 bytes.
func StringToTree(s string) Tree {
	return Leaf([]byte(s))
}

// TreeToString decodes a leaf as a UTF-8 string, failing with
// ErrMalformedInput on invalid encoding.
func TreeToString(t Tree) (string, error) {
	l, ok := t.(Leaf)
	if !ok {
		return "", ErrMalformedInput
	}
	if !utf8.Valid(l) {
		return "", ErrMalformedInput
	}
	return string(l), nil
}

// StringsToTree encodes a slice of strings as a node of UTF-8
// leaves.
func StringsToTree(ss []string) Tree {
	children := make([]Tree, len(ss))
	for i, s := range ss {
		children[i] = StringToTree(s)
	}
	return Node(children)
}

// TreeToStrings decodes a node of UTF-8 leaves.
func TreeToStrings(t Tree) ([]string, error) {
	n, ok := t.(Node)
	if !ok {
		return nil, ErrMalformedInput
	}
	out := make([]string, len(n))
	for i, c := range n {
		s, err := TreeToString(c)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}
