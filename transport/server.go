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

package transport

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"
)

// Server is a static file server rooted at a directory, serving
// only request paths that pass the §4.8 character whitelist. It
// is the HTTP side of the bulletin board: a party's message and
// signature artifacts live directly under Root and are served
// verbatim.
type Server struct {
	Root string
	// BufferSize is the copy buffer used when streaming a file;
	// zero means use io.Copy's default.
	BufferSize int
	// Logf, if non-nil, receives diagnostic messages.
	Logf func(string, ...any)

	sentBytes atomic.Int64
}

// SentBytes returns the total number of payload bytes streamed
// to clients so far (§3.4 "total sent ... byte counters").
func (s *Server) SentBytes() int64 { return s.sentBytes.Load() }

func (s *Server) logf(f string, args ...any) {
	if s.Logf != nil {
		s.Logf(f, args...)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	if !validPath(path) {
		http.NotFound(w, r)
		return
	}
	full := filepath.Join(s.Root, filepath.FromSlash(path))
	f, err := os.Open(full)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "binary/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, bufferSizeOrDefault(s.BufferSize))
	n, err := io.CopyBuffer(w, f, buf)
	s.sentBytes.Add(n)
	if err != nil {
		s.logf("transport: serve %s: %s", path, err)
	}
}

func bufferSizeOrDefault(n int) int {
	if n <= 0 {
		return 4096
	}
	return n
}

// validPath applies the §4.8 whitelist: only 0-9, A-Z, a-z, _,
// /, and . are allowed, and a "." must never immediately follow
// another ".". The empty path is rejected as well.
func validPath(path string) bool {
	if path == "" {
		return false
	}
	prevDot := false
	for i := 0; i < len(path); i++ {
		c := path[i]
		switch {
		case c >= '0' && c <= '9', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c == '_', c == '/':
			prevDot = false
		case c == '.':
			if prevDot {
				return false
			}
			prevDot = true
		default:
			return false
		}
	}
	return true
}

// BindRetry attempts to bind addr, retrying on failure up to
// retries times with sleepMs between attempts (§6.7
// http_bind_retries/http_bind_sleep_ms), mirroring the same
// retry policy the hint service uses for its UDP socket.
func BindRetry(bind func() error, retries int, sleepMs int) error {
	var err error
	for i := 0; i <= retries; i++ {
		if err = bind(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(sleepMs) * time.Millisecond)
	}
	return err
}
