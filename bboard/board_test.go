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
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vericore/bbcore/bytetree"
	"github.com/vericore/bbcore/sig"
	"github.com/vericore/bbcore/tempfile"
	"github.com/vericore/bbcore/transport"
)

// testNetwork wires up k in-process parties, each with its own
// httptest server rooted at its own temp directory, and its own
// Ed25519 key pair.
type testNetwork struct {
	boards  []*Board
	servers []*httptest.Server
}

func newTestNetwork(t *testing.T, k int) *testNetwork {
	t.Helper()
	keys := make(map[int]sig.KeyPair, k)
	dirs := make([]string, k+1)
	for i := 1; i <= k; i++ {
		kp, err := sig.GenerateEd25519()
		require.NoError(t, err)
		keys[i] = kp
		dirs[i] = t.TempDir()
	}

	net := &testNetwork{
		boards:  make([]*Board, k+1),
		servers: make([]*httptest.Server, k+1),
	}
	for i := 1; i <= k; i++ {
		srv := httptest.NewServer(&transport.Server{Root: dirs[i]})
		net.servers[i] = srv
	}
	for i := 1; i <= k; i++ {
		td, err := tempfile.Init(t.TempDir())
		require.NoError(t, err)
		peerURLs := make(map[int]string, k)
		for j := 1; j <= k; j++ {
			peerURLs[j] = net.servers[j].URL
		}
		net.boards[i] = &Board{
			K:       k,
			Self:    i,
			Own:     keys[i],
			Keys:    keys,
			PeerURL: peerURLs,
			HTTPDir: dirs[i],
			TD:      td,
		}
	}
	return net
}

func (n *testNetwork) close() {
	for _, s := range n.servers {
		if s != nil {
			s.Close()
		}
	}
}

func TestPublishWaitFullySigned(t *testing.T) {
	net := newTestNetwork(t, 3)
	defer net.close()

	payload := bytetree.Node{bytetree.Leaf("hello"), bytetree.U32ToTree(42)}
	// Publish returns only once every peer has co-signed, and a
	// peer co-signs from inside its own Wait, so all three run
	// at the same time.
	pubErr := make(chan error, 1)
	go func() {
		pubErr <- net.boards[1].Publish("round1", payload, 2*time.Second, 1<<20)
	}()
	type waitResult struct {
		tree bytetree.Tree
		err  error
	}
	res3 := make(chan waitResult, 1)
	go func() {
		tree, err := net.boards[3].Wait("round1", 1, 2*time.Second, 1<<20, 16)
		res3 <- waitResult{tree, err}
	}()

	got, err := net.boards[2].Wait("round1", 1, 2*time.Second, 1<<20, 16)
	require.NoError(t, err)
	require.True(t, bytetree.Equal(got, payload))

	r3 := <-res3
	require.NoError(t, r3.err)
	require.True(t, bytetree.Equal(r3.tree, payload))

	require.NoError(t, <-pubErr)
}

func TestWaitOwnPublishDoesNotNeedHTTP(t *testing.T) {
	net := newTestNetwork(t, 2)
	defer net.close()

	payload := bytetree.Leaf("local")
	// party 2 co-signs from inside its Wait, which Publish needs
	// before it returns
	peerErr := make(chan error, 1)
	go func() {
		_, err := net.boards[2].Wait("r", 1, time.Second, 1<<20, 16)
		peerErr <- err
	}()
	require.NoError(t, net.boards[1].Publish("r", payload, time.Second, 1<<20))
	require.NoError(t, <-peerErr)

	// the publisher reads its own message from disk; only party
	// 2's co-signature is fetched over HTTP
	got, err := net.boards[1].Wait("r", 1, time.Second, 1<<20, 16)
	require.NoError(t, err)
	require.True(t, bytetree.Equal(got, payload))
}

func TestWaitTimesOutWithoutPublish(t *testing.T) {
	net := newTestNetwork(t, 2)
	defer net.close()

	_, err := net.boards[2].Wait("never", 1, 100*time.Millisecond, 1<<20, 16)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestWaitInactivePublisherReturnsEmpty(t *testing.T) {
	net := newTestNetwork(t, 2)
	defer net.close()
	net.boards[2].MarkInactive(1)

	got, err := net.boards[2].Wait("anything", 1, time.Second, 1<<20, 16)
	require.NoError(t, err)
	require.Equal(t, bytetree.Node{}, got)
}

func TestUnpublishRemovesOwnArtifacts(t *testing.T) {
	net := newTestNetwork(t, 2)
	defer net.close()

	peerErr := make(chan error, 1)
	go func() {
		_, err := net.boards[2].Wait("tmp", 1, time.Second, 1<<20, 16)
		peerErr <- err
	}()
	require.NoError(t, net.boards[1].Publish("tmp", bytetree.Leaf("x"), time.Second, 1<<20))
	require.NoError(t, <-peerErr)
	require.NoError(t, net.boards[1].Unpublish("tmp"))

	_, err := net.boards[1].Wait("tmp", 1, 100*time.Millisecond, 1<<20, 16)
	require.Error(t, err)
}

func TestSigningTupleIncludesPartyAndLabel(t *testing.T) {
	tuple := SigningTuple(3, "round9", bytetree.Leaf("payload"))
	n, ok := tuple.(bytetree.Node)
	require.True(t, ok)
	require.Len(t, n, 2)
	label, err := bytetree.TreeToString(n[0])
	require.NoError(t, err)
	require.Equal(t, "3/round9", label)
}
