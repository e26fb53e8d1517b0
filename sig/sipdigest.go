// Copyright (C) 2023 Sneller, Inc.
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

package sig

import "github.com/dchest/siphash"

// SipDigest is a fast, non-cryptographic keyed digest used
// internally for cache keys — never
// for signature verification. Unlike Ed25519KeyPair's
// hash-function-of-record, a SipDigest key is not a party
// identity and carries no authentication meaning.
type SipDigest struct {
	k0, k1 uint64
	buf    []byte
}

// NewSipDigest returns a keyed SipHash-2-4 digest.
func NewSipDigest(k0, k1 uint64) *SipDigest {
	return &SipDigest{k0: k0, k1: k1}
}

func (s *SipDigest) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *SipDigest) Sum() []byte {
	v := siphash.Hash(s.k0, s.k1, s.buf)
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> uint(56-8*i))
	}
	return out
}

func (s *SipDigest) Name() string { return "siphash-2-4" }
