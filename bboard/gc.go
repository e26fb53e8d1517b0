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

package bboard

import "time"

// GC unpublishes prefix and, if this board has a temp-file
// directory configured, also purges any run file older than
// horizon (§10.2): a mark-and-sweep pass over abandoned
// sort/merge run files.
func (b *Board) GC(prefix string, horizon time.Duration) error {
	if err := b.Unpublish(prefix); err != nil {
		return err
	}
	if b.TD == nil {
		return nil
	}
	return b.TD.GC(horizon)
}
