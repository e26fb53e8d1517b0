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

package tempfile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/vericore/bbcore/compr"
)

// allocTracer appends one zstd-compressed line per allocation
// to "<root>/.trace.zst", recording the call site that produced
// each temp file. It is only active when Dir.Debug is true.
type allocTracer struct {
	mu sync.Mutex
	f  *os.File
	w  interface {
		Write([]byte) (int, error)
		Close() error
	}
}

func (d *Dir) writeTrace(path string) {
	d.mu.Lock()
	if d.trace == nil {
		f, err := os.OpenFile(filepath.Join(d.root, ".trace.zst"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			d.mu.Unlock()
			d.logf("tempfile: could not open trace file: %s", err)
			return
		}
		w, err := compr.NewTraceWriter(f)
		if err != nil {
			f.Close()
			d.mu.Unlock()
			d.logf("tempfile: could not start trace writer: %s", err)
			return
		}
		d.trace = &allocTracer{f: f, w: w}
	}
	trace := d.trace
	d.mu.Unlock()

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "unknown", 0
	}
	trace.mu.Lock()
	fmt.Fprintf(trace.w, "%s\t%s:%d\n", path, file, line)
	trace.mu.Unlock()
}

// CloseTrace flushes and closes the allocation-trace file, if
// one was opened. It is safe to call even if Debug was never
// enabled.
func (d *Dir) CloseTrace() error {
	d.mu.Lock()
	trace := d.trace
	d.trace = nil
	d.mu.Unlock()
	if trace == nil {
		return nil
	}
	if err := trace.w.Close(); err != nil {
		trace.f.Close()
		return err
	}
	return trace.f.Close()
}
