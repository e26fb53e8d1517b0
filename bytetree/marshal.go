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

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTypeMismatch indicates Unmarshal resolved a class but the
// caller's requested downcast does not match it.
var ErrTypeMismatch = errors.New("bytetree: unmarshalled instance does not satisfy requested type")

// ErrUnknownClass indicates the marshalled class name has no
// registered factory.
var ErrUnknownClass = errors.New("bytetree: unknown class name")

// ErrFactoryFailure wraps an error returned by a registered
// factory while reconstructing an instance.
var ErrFactoryFailure = errors.New("bytetree: factory failed")

// ErrClassnameTooLong indicates a marshalled class name exceeded
// the configured safety cap (§6.7 max_classname_bytes).
var ErrClassnameTooLong = errors.New("bytetree: class name exceeds maximum length")

// Factory reconstructs a typed instance from payload, the byte
// tree that followed the class-name leaf in a marshalled value
// (§6.3). rnd and certainty are optional collaborators some
// factories need (e.g. key generation); both may be the zero
// value when unused.
type Factory func(payload Tree, rnd RandomSource, certainty int) (any, error)

// RandomSource is the opaque randomness collaborator a factory
// may consume. It is never used by the codec itself.
type RandomSource interface {
	Read(p []byte) (int, error)
}

// Registry maps class names to the factories that can
// reconstruct them, replacing the reflection-based dynamic
// dispatch of the source with an explicit table (§9 "Dynamic
// dispatch over class names").
type Registry struct {
	factories         map[string]Factory
	maxClassnameBytes int
}

// NewRegistry returns an empty registry. maxClassnameBytes
// bounds class names accepted by Unmarshal; zero or negative
// means "use the §6.7 default of 2048".
func NewRegistry(maxClassnameBytes int) *Registry {
	if maxClassnameBytes <= 0 {
		maxClassnameBytes = 2048
	}
	return &Registry{factories: make(map[string]Factory), maxClassnameBytes: maxClassnameBytes}
}

// Register installs fn as the factory for className, replacing
// any existing registration.
func (r *Registry) Register(className string, fn Factory) {
	r.factories[className] = fn
}

// Marshal wraps payload with className per §6.3:
// Node(Leaf(utf8(class_name)), payload).
func Marshal(className string, payload Tree) Tree {
	return Node{Leaf(className), payload}
}

// Unmarshal decodes a marshalled value (§6.3), looks up its
// class name in r, and invokes the registered factory.
func (r *Registry) Unmarshal(t Tree, rnd RandomSource, certainty int) (any, error) {
	n, ok := t.(Node)
	if !ok || len(n) != 2 {
		return nil, ErrMalformedInput
	}
	nameLeaf, ok := n[0].(Leaf)
	if !ok {
		return nil, ErrMalformedInput
	}
	if len(nameLeaf) > r.maxClassnameBytes {
		return nil, ErrClassnameTooLong
	}
	name, err := TreeToString(nameLeaf)
	if err != nil {
		return nil, err
	}
	fn, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	v, err := fn(n[1], rnd, certainty)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %s", ErrFactoryFailure, name, err)
	}
	return v, nil
}

// UnmarshalAs is Unmarshal followed by a downcast to T, failing
// with ErrTypeMismatch if the resolved instance does not satisfy
// the requested type.
func UnmarshalAs[T any](r *Registry, t Tree, rnd RandomSource, certainty int) (T, error) {
	var zero T
	v, err := r.Unmarshal(t, rnd, certainty)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, ErrTypeMismatch
	}
	return typed, nil
}

// MarshalHex renders a marshalled value as hex, prefixed with a
// short human-readable description and "::" (§6.2). description
// may be empty, in which case no prefix is added.
func MarshalHex(description string, t Tree) string {
	hex := encodeHex(Encode(t))
	if description == "" {
		return hex
	}
	return description + "::" + hex
}

// UnmarshalHex strips an optional "description::" prefix (split
// on the *last* "::", per §6.2) and decodes the remainder as a
// byte tree.
func UnmarshalHex(s string) (Tree, error) {
	hex := s
	if i := strings.LastIndex(s, "::"); i >= 0 {
		hex = s[i+2:]
	}
	return Decode(decodeHex(hex))
}
