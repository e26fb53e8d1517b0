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

package bboard

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vericore/bbcore/bytetree"
)

// SingleParty is the k=1 variant of §4.10: "there is no HTTP or
// hint traffic: publish writes the payload into a shared
// directory under a lock; wait polls for file existence and
// validates the format with bounded depth."
type SingleParty struct {
	Dir string

	mu sync.Mutex
}

func (s *SingleParty) path(label string) string {
	return filepath.Join(s.Dir, label)
}

// Publish writes payload under label through a temp file and an
// atomic rename, holding the board's lock for the duration of the
// write, so Wait never observes a partial file.
func (s *SingleParty) Publish(label string, payload bytetree.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeAtomic(s.path(label), bytetree.Encode(payload))
}

// Wait polls for label's file to appear, up to maxTime (negative
// meaning no timeout), validating it against maxDepth once found.
func (s *SingleParty) Wait(label string, maxTime time.Duration, maxDepth int, pollInterval time.Duration) (bytetree.Tree, error) {
	deadline := deadlineFrom(maxTime)
	for {
		s.mu.Lock()
		data, err := os.ReadFile(s.path(label))
		s.mu.Unlock()
		if err == nil {
			if verr := bytetree.ValidateDepthBytes(data, maxDepth); verr != nil {
				return nil, verr
			}
			return bytetree.Decode(data)
		}
		if !os.IsNotExist(err) {
			return nil, err
		}
		if timedOut(deadline) {
			return nil, ErrTimeout
		}
		sleep := minDuration(pollInterval, remaining(deadline))
		if sleep > 0 {
			time.Sleep(sleep)
		}
	}
}

// Unpublish removes Dir/prefix and, if it is a directory,
// everything beneath it.
func (s *SingleParty) Unpublish(prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.path(prefix))
}
