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
	"bytes"
	"crypto/sha256"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestEmptyLeafEncoding(t *testing.T) {
	got := Encode(Leaf(nil))
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
	if Leaf(nil).TotalSize() != 5 {
		t.Fatalf("TotalSize = %d, want 5", Leaf(nil).TotalSize())
	}
	rt, err := Decode(got)
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(rt, Leaf(nil)) {
		t.Fatalf("round trip mismatch: %v", rt)
	}
}

func TestNodeOfTwoLeaves(t *testing.T) {
	tree := Node{Leaf{0xAA}, Leaf{0xBB, 0xCC}}
	got := Encode(tree)
	want := []byte{
		0x00, 0x00, 0x00, 0x00, 0x02,
		0x01, 0x00, 0x00, 0x00, 0x01, 0xAA,
		0x01, 0x00, 0x00, 0x00, 0x02, 0xBB, 0xCC,
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % x, want % x", got, want)
	}
	if tree.TotalSize() != 17 {
		t.Fatalf("TotalSize = %d, want 17", tree.TotalSize())
	}
}

func TestU32RoundTrip(t *testing.T) {
	tr := U32ToTree(0x01020304)
	want := []byte{0x01, 0x00, 0x00, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(Encode(tr), want) {
		t.Fatalf("got % x, want % x", Encode(tr), want)
	}
	v, err := TreeToU32(tr)
	if err != nil || v != 0x01020304 {
		t.Fatalf("TreeToU32 = %#x, %v", v, err)
	}
}

func TestBoolMalformed(t *testing.T) {
	tr := BoolToTree(true)
	if !bytes.Equal(Encode(tr), []byte{0x01, 0x00, 0x00, 0x00, 0x01, 0x01}) {
		t.Fatalf("unexpected encoding: % x", Encode(tr))
	}
	_, err := TreeToBool(Leaf{0x02})
	if !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("want ErrMalformedInput, got %v", err)
	}
}

func TestBoundedDepth(t *testing.T) {
	// node(node(node(node(leaf([])))))  — depth 4.
	tree := Node{Node{Node{Node{Leaf(nil)}}}}
	enc := Encode(tree)
	if err := ValidateDepthBytes(enc, 3); !errors.Is(err, ErrTooDeep) {
		t.Fatalf("maxDepth=3: got %v, want ErrTooDeep", err)
	}
	if err := ValidateDepthBytes(enc, 4); err != nil {
		t.Fatalf("maxDepth=4: got %v, want nil", err)
	}
}

func TestTrailingBytes(t *testing.T) {
	enc := Encode(Leaf{1, 2, 3})
	enc = append(enc, 0xFF)
	if err := ValidateDepthBytes(enc, 10); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("got %v, want ErrTrailingBytes", err)
	}
}

func TestMalformedTag(t *testing.T) {
	enc := []byte{0x02, 0x00, 0x00, 0x00, 0x00}
	if err := ValidateDepthBytes(enc, 10); !errors.Is(err, ErrMalformedTag) {
		t.Fatalf("got %v, want ErrMalformedTag", err)
	}
}

func TestTraversalViolationPanics(t *testing.T) {
	tree := Node{Leaf{1, 2}, Leaf{3}}
	r, err := tree.Reader()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.NextChild(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		if rec := recover(); rec != ErrTraversalViolation {
			t.Fatalf("recovered %v, want ErrTraversalViolation", rec)
		}
	}()
	r.NextChild()
}

func TestFileBackedRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree")
	w, err := NewWriter(2, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Leaf{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	if err := w.Write(Leaf{4, 5}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	ft := NewFileTree(path)
	mem := Node{Leaf{1, 2, 3}, Leaf{4, 5}}
	if ft.TotalSize() != mem.TotalSize() {
		t.Fatalf("size mismatch: %d vs %d", ft.TotalSize(), mem.TotalSize())
	}

	r, err := ft.Reader()
	if err != nil {
		t.Fatal(err)
	}
	got, err := r.ReadByteTree()
	if err != nil {
		t.Fatal(err)
	}
	if !Equal(got, mem) {
		t.Fatalf("got %v, want %v", got, mem)
	}
}

func TestDigestAgreement(t *testing.T) {
	mem := Node{Leaf{1, 2, 3}, Node{Leaf{4}, Leaf{5, 6}}}

	dir := t.TempDir()
	path := filepath.Join(dir, "tree")
	if err := writeFull(path, mem); err != nil {
		t.Fatal(err)
	}
	ft := NewFileTree(path)

	hMem := sha256.New()
	if err := HashInto(mem, hMem); err != nil {
		t.Fatal(err)
	}
	hFile := sha256.New()
	if err := HashInto(ft, hFile); err != nil {
		t.Fatal(err)
	}
	hEnc := sha256.New()
	hEnc.Write(Encode(mem))

	if !bytes.Equal(hMem.Sum(nil), hFile.Sum(nil)) {
		t.Fatal("mem vs file-backed digest mismatch")
	}
	// hEnc hashes the raw encoding in one shot. A digest does not
	// depend on how its input is split into writes, so checking
	// that HashInto emits exactly Encode's bytes, in order, is the
	// same as checking that it agrees with hEnc.
	var buf bytes.Buffer
	if err := HashInto(mem, &buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), Encode(mem)) {
		t.Fatal("HashInto byte stream does not match Encode output")
	}
}

func TestTemplateValidate(t *testing.T) {
	schema := Node{Leaf{1, 2, 3}, Node{Leaf{4}, Leaf{5, 6}}}
	tpl := NewTemplate(schema)

	if _, err := tpl.Validate(Encode(schema)); err != nil {
		t.Fatalf("validating an exact match: %s", err)
	}

	shorter := Encode(Node{Leaf{1, 2, 3}, Node{Leaf{4}, Leaf{5}}})
	if _, err := tpl.Validate(shorter); !errors.Is(err, ErrLengthMismatch) {
		t.Fatalf("got %v, want ErrLengthMismatch", err)
	}

	sameLength := Encode(Node{Leaf{1, 2, 9}, Node{Leaf{4}, Leaf{5, 6}}})
	if _, err := tpl.Validate(sameLength); err != nil {
		t.Fatalf("validating a same-shape, different-payload match: %s", err)
	}

	reshaped := Encode(Node{Leaf{1, 2, 3}, Leaf{4, 5, 6}})
	if len(reshaped) == len(Encode(schema)) {
		if _, err := tpl.Validate(reshaped); !errors.Is(err, ErrTemplateMismatch) {
			t.Fatalf("got %v, want ErrTemplateMismatch", err)
		}
	}
}

func TestTemplateCacheReusesEntries(t *testing.T) {
	c := NewTemplateCache(1, 2)
	schema := Node{Leaf{1}, Leaf{2, 3}}

	tpl1 := c.Get(schema)
	tpl2 := c.Get(Node{Leaf{1}, Leaf{2, 3}})
	if tpl1 != tpl2 {
		t.Fatal("Get did not reuse the cached Template for an identical schema")
	}

	other := c.Get(Node{Leaf{9}, Leaf{9, 9}})
	if other == tpl1 {
		t.Fatal("Get returned the same Template for a different schema")
	}
}

func writeFull(path string, t Tree) error {
	n, ok := t.(Node)
	if !ok {
		return os.WriteFile(path, Encode(t), 0o644)
	}
	w, err := NewWriter(len(n), path)
	if err != nil {
		return err
	}
	for _, c := range n {
		if err := w.Write(c); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}
