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

import "strings"

// ToJSON renders t as a nested JSON array of hex strings
// (leaves) and arrays (nodes). This is a diagnostic aid only —
// the byte-tree format is not a human-readable format, and
// ToJSON is not a valid inverse of any parser in this package.
func ToJSON(t Tree) (string, error) {
	r, err := t.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()
	var sb strings.Builder
	if err := jsonReader(&sb, r); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func jsonReader(sb *strings.Builder, r *Reader) error {
	if r.IsLeaf() {
		b, err := r.ReadAll()
		if err != nil {
			return err
		}
		sb.WriteByte('"')
		sb.WriteString(encodeHex(b))
		sb.WriteByte('"')
		return nil
	}
	sb.WriteByte('[')
	n := int(r.Remaining())
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		c, err := r.NextChild()
		if err != nil {
			return err
		}
		if err := jsonReader(sb, c); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}
