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

package config

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func genParty(t *testing.T) (pub, priv string) {
	t.Helper()
	p, s, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return hex.EncodeToString(p), hex.EncodeToString(s)
}

func TestLoadNetworkAndResolve(t *testing.T) {
	pub0, priv0 := genParty(t)
	pub1, _ := genParty(t)
	pub2, _ := genParty(t)

	doc := fmt.Sprintf(`
self: 0
private_key: %q
peers:
  "0":
    public_key: %q
    url: http://party0.local
    udp_addr: 127.0.0.1:9000
  "1":
    public_key: %q
    url: http://party1.local
  "2":
    public_key: %q
    url: http://party2.local
`, priv0, pub0, pub1, pub2)

	dir := t.TempDir()
	path := filepath.Join(dir, "network.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	n, err := LoadNetwork(path)
	require.NoError(t, err)
	require.Equal(t, 0, n.Self)

	own, keys, peerURL, peerUDP, err := n.Resolve()
	require.NoError(t, err)
	require.Len(t, keys, 3)
	require.Equal(t, "http://party1.local", peerURL[1])
	require.Equal(t, "127.0.0.1:9000", peerUDP[0])

	msg := []byte("hello")
	sig, err := own.Sign(msg)
	require.NoError(t, err)
	require.NoError(t, keys[0].Verify(msg, sig))
}

func TestResolveRejectsMissingSelf(t *testing.T) {
	pub1, _ := genParty(t)
	_, priv0 := genParty(t)
	n := &Network{
		Self:       5,
		PrivateKey: priv0,
		Peers: map[string]PeerEntry{
			"1": {PublicKey: pub1},
		},
	}
	_, _, _, _, err := n.Resolve()
	require.Error(t, err)
}

func TestResolveRejectsMalformedKey(t *testing.T) {
	_, priv0 := genParty(t)
	n := &Network{
		Self:       0,
		PrivateKey: priv0,
		Peers: map[string]PeerEntry{
			"0": {PublicKey: "not-hex"},
		},
	}
	_, _, _, _, err := n.Resolve()
	require.Error(t, err)
}
