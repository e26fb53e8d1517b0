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
	"strconv"

	"sigs.k8s.io/yaml"

	"github.com/vericore/bbcore/sig"
)

// PeerEntry describes one party's identity and network location,
// as a single YAML-loadable key/value line in a Network's peer
// table.
type PeerEntry struct {
	PublicKey string `json:"public_key"`
	URL       string `json:"url,omitempty"`
	UDPAddr   string `json:"udp_addr,omitempty"`
}

// Network is the on-disk description of a bulletin board party's
// view of the other K-1 parties: its own signing key and every
// party's public key and network location (§4.13). It is kept
// separate from Config, whose fields are numeric tunables rather
// than topology.
type Network struct {
	Self       int                  `json:"self"`
	PrivateKey string               `json:"private_key"`
	Peers      map[string]PeerEntry `json:"peers"`
}

// LoadNetwork reads and parses a Network description from path.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var n Network
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Resolve decodes the hex-encoded keys in n into the sig.KeyPair
// values and URL/UDP address tables bboard.Board expects.
func (n *Network) Resolve() (own sig.KeyPair, keys map[int]sig.KeyPair, peerURL, peerUDP map[int]string, err error) {
	priv, err := hex.DecodeString(n.PrivateKey)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("config: decoding private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return nil, nil, nil, nil, fmt.Errorf("config: private key is %d bytes, want %d", len(priv), ed25519.PrivateKeySize)
	}

	keys = make(map[int]sig.KeyPair, len(n.Peers))
	peerURL = make(map[int]string, len(n.Peers))
	peerUDP = make(map[int]string, len(n.Peers))
	for idxStr, peer := range n.Peers {
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("config: peer index %q: %w", idxStr, err)
		}
		pub, err := hex.DecodeString(peer.PublicKey)
		if err != nil {
			return nil, nil, nil, nil, fmt.Errorf("config: decoding public key for party %d: %w", idx, err)
		}
		if len(pub) != ed25519.PublicKeySize {
			return nil, nil, nil, nil, fmt.Errorf("config: public key for party %d is %d bytes, want %d", idx, len(pub), ed25519.PublicKeySize)
		}
		kp := &sig.Ed25519KeyPair{Public: ed25519.PublicKey(pub)}
		if idx == n.Self {
			kp.Private = ed25519.PrivateKey(priv)
		}
		keys[idx] = kp
		if peer.URL != "" {
			peerURL[idx] = peer.URL
		}
		if peer.UDPAddr != "" {
			peerUDP[idx] = peer.UDPAddr
		}
	}
	own = keys[n.Self]
	if own == nil {
		return nil, nil, nil, nil, fmt.Errorf("config: network has no peer entry for self index %d", n.Self)
	}
	return own, keys, peerURL, peerUDP, nil
}
