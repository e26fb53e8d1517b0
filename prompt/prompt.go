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

// Package prompt defines the narrow user-interaction collaborator
// the bulletin board consults after a wait failure exhausts its
// deadline (§1, §4.10 "try again?").
package prompt

// Asker asks the operator a yes/no question and returns their
// answer. question should already be phrased so that true means
// "retry" and false means "give up".
type Asker interface {
	Ask(question string) bool
}

// Never always answers no, for unattended runs that should fail
// fast rather than block on operator input.
type Never struct{}

func (Never) Ask(string) bool { return false }

// Always always answers yes, for tests that want the retry loop
// to keep going until some other condition ends it.
type Always struct{}

func (Always) Ask(string) bool { return true }
