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

// Package sig defines the narrow signature and digest
// interfaces the bulletin board treats as opaque collaborators
// (§1, §6), plus one concrete, testable implementation of each.
package sig

import "io"

// Signer produces a signature over an already-computed digest.
type Signer interface {
	Sign(digest []byte) ([]byte, error)
}

// Verifier checks a signature over a digest, returning a
// non-nil error (conventionally wrapping ErrInvalid) when
// verification fails.
type Verifier interface {
	Verify(digest, signature []byte) error
}

// Hasher is a streaming digest: bytes are fed via Write, and
// Sum extracts the final digest without mutating further
// accumulation state (callers that want to keep writing after
// calling Sum should not rely on that, though the default
// implementation here permits it).
type Hasher interface {
	io.Writer
	Sum() []byte
	// Name identifies the digest algorithm, e.g. for fields
	// in a marshalled value that record which hash function
	// produced them.
	Name() string
}

// KeyPair bundles a party's own signing identity together
// with the hash function it uses as its "hash-function-of-record"
// (§4.10: "Digests used for signature verification are always
// computed with each signer's own hash-function-of-record,
// extracted from that signer's public key").
type KeyPair interface {
	Signer
	Verifier
	// NewHasher returns a fresh Hasher of this key pair's
	// hash-function-of-record.
	NewHasher() Hasher
}
