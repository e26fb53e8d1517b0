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

import "errors"

// Recoverable protocol-level errors. These are ordinary
// sentinel errors: callers compare with errors.Is after
// unwrapping any "%w"-wrapped context.
var (
	// ErrMalformedInput indicates the wire encoding violates
	// the byte-tree grammar: a bad tag byte, a truncated
	// header or payload, a bool array containing a byte that
	// isn't 0x00/0x01, or invalid UTF-8 where UTF-8 was required.
	ErrMalformedInput = errors.New("bytetree: malformed input")
	// ErrShortRead indicates a reader was asked for more bytes
	// or children than remain in the current subtree.
	ErrShortRead = errors.New("bytetree: short read")
	// ErrExhaustedChildren indicates NextChild was called on a
	// leaf, or on a node with no children left.
	ErrExhaustedChildren = errors.New("bytetree: no children remaining")
	// ErrTooDeep indicates the bounded-depth validator's depth
	// budget was exceeded.
	ErrTooDeep = errors.New("bytetree: exceeds maximum depth")
	// ErrTrailingBytes indicates data remained after the root
	// value was fully consumed.
	ErrTrailingBytes = errors.New("bytetree: trailing bytes after root value")
	// ErrMalformedTag indicates a tag byte that is neither
	// 0x00 (node) nor 0x01 (leaf).
	ErrMalformedTag = errors.New("bytetree: tag byte is neither node nor leaf")
	// ErrLengthMismatch is returned by the template validator
	// when the candidate input's total length does not match
	// the template's.
	ErrLengthMismatch = errors.New("bytetree: length does not match template")
	// ErrTemplateMismatch is returned by the template validator
	// when a header in the candidate input does not match the
	// corresponding header in the template.
	ErrTemplateMismatch = errors.New("bytetree: header does not match template")
)

// ErrTraversalViolation is a programming-fault error: NextChild
// was called while the previously returned child reader still
// has unread data. Per the depth-first discipline this is not
// meant to be recoverable by ordinary control flow; Reader
// methods panic with this value rather than returning it, so
// that a misuse surfaces at the call site instead of silently
// corrupting traversal order. It is exported so a recover()
// handler higher up the stack (if any) can identify it.
var ErrTraversalViolation = errors.New("bytetree: next child called while previous child still active")
