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

package hint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHintWakesWaiter(t *testing.T) {
	s, err := Listen("127.0.0.1:0", 2, 10)
	require.NoError(t, err)
	defer s.Close()

	addr := s.conn.LocalAddr().String()

	done := make(chan bool, 1)
	go func() {
		done <- s.Wait(3, 2*time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	Send(3, addr)

	select {
	case woken := <-done:
		require.True(t, woken)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for hint")
	}
}

func TestHintWaitTimesOut(t *testing.T) {
	s, err := Listen("127.0.0.1:0", 2, 10)
	require.NoError(t, err)
	defer s.Close()

	start := time.Now()
	woken := s.Wait(5, 30*time.Millisecond)
	require.False(t, woken)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestHintReceivedBeforeWaitIsConsumedImmediately(t *testing.T) {
	s, err := Listen("127.0.0.1:0", 2, 10)
	require.NoError(t, err)
	defer s.Close()

	addr := s.conn.LocalAddr().String()
	Send(7, addr)
	time.Sleep(20 * time.Millisecond)

	woken := s.Wait(7, time.Second)
	require.True(t, woken)

	// Flag was cleared; a second wait with no new hint times out.
	woken = s.Wait(7, 20*time.Millisecond)
	require.False(t, woken)
}
