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

import "sync/atomic"

// Stats is a point-in-time snapshot of the §3.4 global counters:
// network time, waiting time, and sent/received byte totals.
// Board never updates SentBytes, so it reads zero; bytes served
// to peers are counted by transport.Server.SentBytes. Exposing it as a plain struct, rather than the counters
// themselves, keeps callers from taking a dependency on the
// underlying atomics.
type Stats struct {
	NetworkMs      int64
	WaitingMs      int64
	SentBytes      int64
	ReceivedBytes  int64
}

type counters struct {
	networkMs     atomic.Int64
	waitingMs     atomic.Int64
	sentBytes     atomic.Int64
	receivedBytes atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		NetworkMs:     c.networkMs.Load(),
		WaitingMs:     c.waitingMs.Load(),
		SentBytes:     c.sentBytes.Load(),
		ReceivedBytes: c.receivedBytes.Load(),
	}
}

// Stats returns a snapshot of this board's network/waiting
// counters (§10.4).
func (b *Board) Stats() Stats { return b.counters.snapshot() }
