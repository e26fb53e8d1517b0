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

import "io"

// HashInto feeds the wire encoding of t into w depth-first,
// header first and then either the leaf payload or each child
// in turn. Because it streams through a Reader rather than
// requiring a fully materialized encoding, the result is
// identical for a materialized tree and a file-backed tree
// holding the same contents (§4.2, §8 "digest agreement").
//
// w is typically a sig.Hasher, but any io.Writer works — this
// function has no opinion about which digest algorithm is in
// use, only about the byte order in which the tree is fed to
// it.
func HashInto(t Tree, w io.Writer) error {
	r, err := t.Reader()
	if err != nil {
		return err
	}
	defer r.Close()
	return hashReader(r, w)
}

func hashReader(r *Reader, w io.Writer) error {
	var hdr [header]byte
	if r.IsLeaf() {
		hdr[0] = tagLeaf
		putU32BE(hdr[:], 1, r.Remaining())
		if _, err := w.Write(hdr[:]); err != nil {
			return err
		}
		buf, err := r.ReadAll()
		if err != nil {
			return err
		}
		_, err = w.Write(buf)
		return err
	}
	n := int(r.Remaining())
	hdr[0] = tagNode
	putU32BE(hdr[:], 1, uint32(n))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		c, err := r.NextChild()
		if err != nil {
			return err
		}
		if err := hashReader(c, w); err != nil {
			return err
		}
	}
	return nil
}
