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
	"encoding/binary"
	"sync"

	"github.com/vericore/bbcore/sig"
)

// Template is a precomputed validator for a fixed byte-tree
// schema: the fast path for inputs expected to match exactly
// one shape (§4.4).
//
// header.position indexes the tag byte of a header; the
// four-byte count immediately follows at position+1 ("position"
// points at the tag byte, not the length word).
type Template struct {
	encoding []byte
	headers  []tplHeader
}

type tplHeader struct {
	position int
	tag      byte
	count    uint32
}

// NewTemplate precomputes the header list for t.
func NewTemplate(t Tree) *Template {
	enc := Encode(t)
	tpl := &Template{encoding: enc}
	tpl.headers = scanHeaders(enc)
	return tpl
}

func scanHeaders(data []byte) []tplHeader {
	var out []tplHeader
	var walk func(pos int) int
	walk = func(pos int) int {
		tag := data[pos]
		count := readU32BE(data, pos+1)
		out = append(out, tplHeader{position: pos, tag: tag, count: count})
		pos += header
		if tag == tagLeaf {
			return pos + int(count)
		}
		for i := uint32(0); i < count; i++ {
			pos = walk(pos)
		}
		return pos
	}
	walk(0)
	return out
}

// Validate checks data against the template's precomputed
// header list and, if every header matches, decodes data as a
// byte tree. It fails with ErrLengthMismatch if len(data)
// differs from the template's total size, or
// ErrTemplateMismatch if any header's tag or count differs.
func (tpl *Template) Validate(data []byte) (Tree, error) {
	if len(data) != len(tpl.encoding) {
		return nil, ErrLengthMismatch
	}
	for _, h := range tpl.headers {
		if data[h.position] != h.tag {
			return nil, ErrTemplateMismatch
		}
		if readU32BE(data, h.position+1) != h.count {
			return nil, ErrTemplateMismatch
		}
	}
	return Decode(data)
}

// TemplateCache memoizes NewTemplate by the exact wire encoding
// of the schema tree, keyed by a SipHash-2-4 digest rather than
// the encoding itself: callers that validate many values against
// a handful of recurring schemas (the bulletin board signs the
// same tuple shape for every label) build one Template per shape
// instead of rescanning headers on every call.
type TemplateCache struct {
	k0, k1 uint64

	mu     sync.Mutex
	byHash map[uint64]*Template
}

// NewTemplateCache returns a cache keyed with the given SipHash
// key pair. The key need not be secret; it only needs to be
// stable for the cache's lifetime.
func NewTemplateCache(k0, k1 uint64) *TemplateCache {
	return &TemplateCache{k0: k0, k1: k1, byHash: make(map[uint64]*Template)}
}

// Get returns the cached Template for t's schema, building and
// storing one on first use.
func (c *TemplateCache) Get(t Tree) *Template {
	enc := Encode(t)
	d := sig.NewSipDigest(c.k0, c.k1)
	d.Write(enc)
	key := binary.BigEndian.Uint64(d.Sum())

	c.mu.Lock()
	defer c.mu.Unlock()
	if tpl, ok := c.byHash[key]; ok {
		return tpl
	}
	tpl := &Template{encoding: enc, headers: scanHeaders(enc)}
	c.byHash[key] = tpl
	return tpl
}
