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

package sig

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/blake2b"
)

// ErrInvalid is returned by Ed25519KeyPair.Verify
// when a signature does not match.
var ErrInvalid = errors.New("sig: signature invalid")

// Ed25519KeyPair is the default KeyPair implementation: Ed25519
// for signing, BLAKE2b-256 as the hash-function-of-record.
// Ed25519 is used (rather than a hash-then-sign scheme) over
// the already-computed BLAKE2b digest — its "message" is the
// fixed-size digest bytes, not the original tree, which keeps
// the bulletin board's signature format independent of tree
// size.
type Ed25519KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateEd25519 creates a fresh random key pair, for tests
// and single-process demos.
func GenerateEd25519() (*Ed25519KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Ed25519KeyPair{Public: pub, Private: priv}, nil
}

func (k *Ed25519KeyPair) Sign(digest []byte) ([]byte, error) {
	return ed25519.Sign(k.Private, digest), nil
}

func (k *Ed25519KeyPair) Verify(digest, signature []byte) error {
	if !ed25519.Verify(k.Public, digest, signature) {
		return ErrInvalid
	}
	return nil
}

func (k *Ed25519KeyPair) NewHasher() Hasher {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on a bad key length, and
		// we always pass nil; this can't happen.
		panic(err)
	}
	return &blake2bHasher{h: h}
}

type blake2bHasher struct {
	h interface {
		Write([]byte) (int, error)
		Sum([]byte) []byte
	}
}

func (b *blake2bHasher) Write(p []byte) (int, error) { return b.h.Write(p) }
func (b *blake2bHasher) Sum() []byte                 { return b.h.Sum(nil) }
func (b *blake2bHasher) Name() string                { return "blake2b-256" }
