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

//go:build !linux

// Package debug provides remote debugging tools: a pprof handler
// bound to an inherited file descriptor, for processes started
// under a supervisor that passes down an already-open listening
// socket rather than a port number.
package debug

// Fd is unimplemented outside linux: SCM_RIGHTS fd inheritance
// from a supervisor is a linux convention this module does not
// carry to other platforms.
func Fd(fd int, logf func(string, ...any)) {
	panic("unimplemented")
}

// Path is unimplemented outside linux: SO_PEERCRED credential
// checks are a linux-only socket option.
func Path(path string, ok func(*Ucred) bool, logf func(string, ...any)) {
	panic("unimplemented")
}
