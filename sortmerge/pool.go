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

package sortmerge

import (
	"runtime"
	"sync"
)

// Pool is the bounded array-split worker pool of §5: a fixed
// number of goroutines, equal to the number of hardware
// threads, that a caller reuses across many Run calls to
// execute a per-range closure over disjoint index ranges of
// an array. Run blocks until every range has completed; an
// error from any range is returned (the first one observed).
type Pool struct {
	workers int
	tasks   chan func()
	wg      sync.WaitGroup
}

var (
	defaultPool     *Pool
	defaultPoolOnce sync.Once
)

// DefaultPool returns the process-wide pool, created lazily
// with GOMAXPROCS workers on first use.
func DefaultPool() *Pool {
	defaultPoolOnce.Do(func() {
		defaultPool = NewPool(runtime.GOMAXPROCS(0))
	})
	return defaultPool
}

// NewPool starts a pool of n worker goroutines. n is clamped
// to at least 1.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{workers: n, tasks: make(chan func())}
	for i := 0; i < n; i++ {
		go p.loop()
	}
	return p
}

func (p *Pool) loop() {
	for fn := range p.tasks {
		fn()
	}
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int { return p.workers }

// Run splits [0, n) into p.Workers() contiguous ranges and
// invokes fn(lo, hi) for each range concurrently, blocking
// until every range completes. The first non-nil error from
// any range is returned; all ranges still run to completion
// (a fatal error in one range does not cancel the others,
// matching §5: "errors in any range propagate as a fatal
// fault" — propagation is the caller's job once Run returns).
func (p *Pool) Run(n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	workers := p.workers
	if workers > n {
		workers = n
	}
	chunk := (n + workers - 1) / workers

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		w := w
		p.tasks <- func() {
			defer wg.Done()
			errs[w] = fn(lo, hi)
		}
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
