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

// Package tempfile implements the temp-file service (§4.7):
// unique path allocation within a session directory, and
// recursive delete on teardown. Rather than a process-wide
// singleton, a Dir is an explicit handle passed to whatever
// needs it.
package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Dir is a session-scoped temp-file allocator. The zero value
// is not usable; construct one with Init.
type Dir struct {
	root  string
	mu    sync.Mutex
	count uint64

	// Debug, when true, additionally appends one line per temp
	// file produced by File, recording the call site, to a single
	// shared trace file "<root>/.trace.zst", for leak diagnosis.
	// No separate trace file is written beside each temp file.
	Debug bool
	// Logf, if non-nil, receives diagnostic messages. Nil
	// means silent.
	Logf func(string, ...any)

	trace *allocTracer
}

// Init sets up a new Dir rooted at path, creating it if
// necessary, and resets the allocation counter.
func Init(path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, err
	}
	return &Dir{root: path}, nil
}

func (d *Dir) logf(f string, args ...any) {
	if d.Logf != nil {
		d.Logf(f, args...)
	}
}

// File returns a fresh, unique path within d:
// "<dir>/<8-digit zero-padded counter>". It is safe to call
// File concurrently from multiple goroutines.
func (d *Dir) File() string {
	d.mu.Lock()
	n := d.count
	d.count++
	d.mu.Unlock()

	name := fmt.Sprintf("%08d", n)
	path := filepath.Join(d.root, name)
	if d.Debug {
		d.writeTrace(path)
	}
	return path
}

// Delete unlinks path. It is not an error for path to already
// be gone.
func (d *Dir) Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Free recursively deletes the entire session directory. After
// Free, File must not be called again on this Dir.
func (d *Dir) Free() error {
	d.logf("tempfile: freeing %s", d.root)
	return os.RemoveAll(d.root)
}

// Root returns the directory File allocates paths under.
func (d *Dir) Root() string { return d.root }

// GC deletes any regular file directly under d whose
// modification time is older than horizon. It is meant to run
// periodically alongside a long-lived Dir to bound disk use
// from abandoned sort/merge run files (§10.2).
func (d *Dir) GC(horizon time.Duration) error {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return err
	}
	cutoff := time.Now().Add(-horizon)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(d.root, e.Name())
			if err := d.Delete(path); err != nil {
				d.logf("tempfile: gc: %s: %s", path, err)
			}
		}
	}
	return nil
}
