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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vericore/bbcore/bytetree"
	"github.com/vericore/bbcore/config"
	"github.com/vericore/bbcore/hint"
	"github.com/vericore/bbcore/prompt"
	"github.com/vericore/bbcore/sig"
	"github.com/vericore/bbcore/tempfile"
	"github.com/vericore/bbcore/transport"
)

// Board is one party's view of a k-party replicated bulletin
// board (§3.4, §4.10). A party publishes only under its own
// index, but its own HTTP root also accumulates one subdirectory
// per publisher it has co-signed for — see Publish/Wait for how
// the on-disk layout resolves message and signature paths.
type Board struct {
	// K is the number of parties; Self is this party's own
	// index, both in 1..K.
	K, Self int
	// Own is this party's signing identity.
	Own sig.KeyPair
	// Keys maps every party index (including Self) to the
	// KeyPair used to verify that party's signatures and to
	// compute digests with that party's hash-function-of-record
	// (§4.10 "each signer's own hash-function-of-record").
	Keys map[int]sig.KeyPair
	// PeerURL maps party index to that party's HTTP base URL.
	// Self's own entry is unused.
	PeerURL map[int]string
	// PeerUDPAddr maps party index to that party's UDP hint
	// address, if the hint variant is in use.
	PeerUDPAddr map[int]string

	// HTTPDir is this party's own serving root (a transport.Server
	// should be rooted here).
	HTTPDir string
	// Hints is this party's hint listener, or nil to disable hints.
	Hints *hint.Service
	// TD allocates and frees temp files for atomic writes.
	TD *tempfile.Dir
	// Cfg holds the tunables of §6.7. Defaults to config.Default()
	// when nil.
	Cfg *config.Config
	// Prompt is consulted when a wait exhausts its deadline.
	// Defaults to prompt.Never{} (fail fast, no interactive retry)
	// when nil.
	Prompt prompt.Asker
	// Logf, if non-nil, receives diagnostic messages.
	Logf func(string, ...any)

	mu       sync.Mutex
	inactive map[int]bool

	counters counters
}

func (b *Board) cfg() *config.Config {
	if b.Cfg == nil {
		return config.Default()
	}
	return b.Cfg
}

func (b *Board) asker() prompt.Asker {
	if b.Prompt == nil {
		return prompt.Never{}
	}
	return b.Prompt
}

func (b *Board) logf(f string, args ...any) {
	if b.Logf != nil {
		b.Logf(f, args...)
	}
}

// MarkInactive excludes party from future publish/wait
// participation: Wait on an inactive publisher returns an empty
// tree immediately, and collectCoSignatures skips inactive
// signers (§4.10 step 1, step 3 "for each active s").
func (b *Board) MarkInactive(party int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.inactive == nil {
		b.inactive = make(map[int]bool)
	}
	b.inactive[party] = true
}

func (b *Board) isInactive(party int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inactive[party]
}

// SigningTuple builds the canonical structure a signer signs
// over: Node(Leaf(utf8("party/label")), payload) (§4.10, glossary
// "Signing tuple").
func SigningTuple(party int, label string, payload bytetree.Tree) bytetree.Tree {
	return bytetree.Node{bytetree.StringToTree(fmt.Sprintf("%d/%s", party, label)), payload}
}

// digestTuple feeds tuple's wire encoding through h and returns
// the resulting digest (§4.2 "hashing", §4.10 "digest ... over
// this tuple").
func digestTuple(h sig.Hasher, tuple bytetree.Tree) ([]byte, error) {
	if err := bytetree.HashInto(tuple, h); err != nil {
		return nil, err
	}
	return h.Sum(), nil
}

func (b *Board) messagePath(party int, label string) string {
	return filepath.Join(b.HTTPDir, strconv.Itoa(party), label)
}

func (b *Board) sigPath(party int, label string, signer int) string {
	return filepath.Join(b.HTTPDir, strconv.Itoa(party), label+".sig."+strconv.Itoa(signer))
}

// writeAtomic writes data to path via a temp sibling file and
// rename, so readers never observe a partial file (§5 "Message
// visibility to peers is provided by an atomic rename").
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Publish writes payload under label as this party (§4.10
// "Publish protocol"), hints every peer, and then collects the
// k-1 co-signatures needed to consider the message fully signed.
func (b *Board) Publish(label string, payload bytetree.Tree, maxTime time.Duration, maxBytes int64) error {
	roundID := uuid.New().String()
	b.logf("bboard[%s]: publishing %d/%s", roundID, b.Self, label)
	if err := writeAtomic(b.messagePath(b.Self, label), bytetree.Encode(payload)); err != nil {
		return err
	}
	tuple := SigningTuple(b.Self, label, payload)
	if err := b.signAndStore(b.Self, label, tuple); err != nil {
		return err
	}
	for peer, addr := range b.PeerUDPAddr {
		if peer == b.Self || b.Hints == nil {
			continue
		}
		hint.Send(b.Self, addr)
	}
	if err := b.collectCoSignatures(b.Self, label, payload, maxTime, maxBytes); err != nil {
		return err
	}
	b.logf("bboard[%s]: %d/%s fully signed", roundID, b.Self, label)
	return nil
}

func (b *Board) signAndStore(publisher int, label string, tuple bytetree.Tree) error {
	digest, err := digestTuple(b.Own.NewHasher(), tuple)
	if err != nil {
		return err
	}
	signature, err := b.Own.Sign(digest)
	if err != nil {
		return err
	}
	return writeAtomic(b.sigPath(publisher, label, b.Self), bytetree.Encode(bytetree.Leaf(signature)))
}

// Wait retrieves the message published by publisher under label,
// together with all k co-signatures, or fails per §4.10 "Wait
// protocol". maxTime < 0 means no timeout.
func (b *Board) Wait(label string, publisher int, maxTime time.Duration, maxBytes int64, maxDepth int) (bytetree.Tree, error) {
	if b.isInactive(publisher) {
		return bytetree.Node{}, nil
	}

	waitID := uuid.New().String()
	b.logf("bboard[%s]: waiting for %d/%s", waitID, publisher, label)

	var payload bytetree.Tree
	deadline := deadlineFrom(maxTime)

	if publisher == b.Self {
		data, err := os.ReadFile(b.messagePath(b.Self, label))
		if err != nil {
			return nil, err
		}
		if err := bytetree.ValidateDepthBytes(data, maxDepth); err != nil {
			return nil, err
		}
		payload, err = bytetree.Decode(data)
		if err != nil {
			return nil, err
		}
	} else {
		for {
			m, ok := b.fetchMessageAndPubSig(publisher, label, remaining(deadline), maxBytes, maxDepth)
			if ok {
				payload = m
				break
			}
			if timedOut(deadline) {
				return nil, ErrTimeout
			}
			pause := time.Duration(b.cfg().DefaultPauseMs) * time.Millisecond
			sleep := minDuration(pause, remaining(deadline))
			b.sleepOrHint(publisher, sleep)
		}
	}

	if err := b.collectCoSignatures(publisher, label, payload, remaining(deadline), maxBytes); err != nil {
		return nil, err
	}
	return payload, nil
}

func (b *Board) sleepOrHint(party int, d time.Duration) {
	start := time.Now()
	woken := false
	if b.Hints != nil {
		woken = b.Hints.Wait(party, d)
	}
	if !woken {
		elapsed := time.Since(start)
		if elapsed < d {
			time.Sleep(d - elapsed)
		}
	}
	b.counters.waitingMs.Add(time.Since(start).Milliseconds())
}

func (b *Board) fetchMessageAndPubSig(publisher int, label string, timeout time.Duration, maxBytes int64, maxDepth int) (bytetree.Tree, bool) {
	base := b.PeerURL[publisher] + "/" + strconv.Itoa(publisher) + "/" + label

	var mbuf bytes.Buffer
	okM, ms, err := transport.Fetch(base, &mbuf, int(timeout.Milliseconds()), maxBytes)
	b.recordFetch(okM, ms, int64(mbuf.Len()))
	if !okM || err != nil {
		return nil, false
	}
	if err := bytetree.ValidateDepthBytes(mbuf.Bytes(), maxDepth); err != nil {
		return nil, false
	}
	payload, err := bytetree.Decode(mbuf.Bytes())
	if err != nil {
		return nil, false
	}

	var sbuf bytes.Buffer
	okS, ms2, err := transport.Fetch(base+".sig."+strconv.Itoa(publisher), &sbuf, int(timeout.Milliseconds()), int64(b.cfg().MaxSignatureBytes))
	b.recordFetch(okS, ms2, int64(sbuf.Len()))
	if !okS || err != nil {
		return nil, false
	}
	sigTree, err := bytetree.Decode(sbuf.Bytes())
	if err != nil {
		return nil, false
	}
	sigLeaf, ok := sigTree.(bytetree.Leaf)
	if !ok {
		return nil, false
	}
	key := b.Keys[publisher]
	if key == nil {
		return nil, false
	}
	tuple := SigningTuple(publisher, label, payload)
	digest, err := digestTuple(key.NewHasher(), tuple)
	if err != nil {
		return nil, false
	}
	if err := key.Verify(digest, sigLeaf); err != nil {
		return nil, false
	}
	return payload, true
}

func (b *Board) recordFetch(ok bool, ms int64, n int64) {
	if ok {
		b.counters.networkMs.Add(ms)
		b.counters.receivedBytes.Add(n)
	} else {
		b.counters.waitingMs.Add(ms)
	}
}

// collectCoSignatures implements §4.10 step 3-4: iterate every
// active signer, writing our own co-signature and downloading
// and verifying everyone else's (each download is retried until
// it verifies or maxTime passes), prompting to retry (resuming at
// the failed index) if the pass doesn't complete within maxTime.
func (b *Board) collectCoSignatures(publisher int, label string, payload bytetree.Tree, maxTime time.Duration, maxBytes int64) error {
	tuple := SigningTuple(publisher, label, payload)
	deadline := deadlineFrom(maxTime)
	start := 1
	for {
		failed := -1
		for s := start; s <= b.K; s++ {
			if b.isInactive(s) || s == publisher {
				continue
			}
			if s == b.Self {
				if err := b.signAndStore(publisher, label, tuple); err != nil {
					b.logf("bboard: sign co-signature for %d/%s: %s", publisher, label, err)
					failed = s
					break
				}
				continue
			}
			ok := !timedOut(deadline) && b.fetchAndVerifyCoSig(s, publisher, label, tuple, remaining(deadline), maxBytes)
			for !ok && !timedOut(deadline) {
				pause := time.Duration(b.cfg().DefaultPauseMs) * time.Millisecond
				b.sleepOrHint(s, minDuration(pause, remaining(deadline)))
				ok = b.fetchAndVerifyCoSig(s, publisher, label, tuple, remaining(deadline), maxBytes)
			}
			if !ok {
				failed = s
				break
			}
		}
		if failed == -1 {
			return nil
		}
		if !b.asker().Ask(fmt.Sprintf("bboard: collecting signatures for %d/%s stalled at party %d; try again?", publisher, label, failed)) {
			return ErrProtocolFatal
		}
		deadline = deadlineFrom(maxTime)
		start = failed
	}
}

func (b *Board) fetchAndVerifyCoSig(signer, publisher int, label string, tuple bytetree.Tree, timeout time.Duration, maxBytes int64) bool {
	url := b.PeerURL[signer] + "/" + strconv.Itoa(publisher) + "/" + label + ".sig." + strconv.Itoa(signer)
	maxSigBytes := int64(b.cfg().MaxSignatureBytes)
	if maxBytes < maxSigBytes {
		maxSigBytes = maxBytes
	}
	var buf bytes.Buffer
	ok, ms, err := transport.Fetch(url, &buf, int(timeout.Milliseconds()), maxSigBytes)
	b.recordFetch(ok, ms, int64(buf.Len()))
	if !ok || err != nil {
		return false
	}
	sigTree, err := bytetree.Decode(buf.Bytes())
	if err != nil {
		return false
	}
	sigLeaf, isLeaf := sigTree.(bytetree.Leaf)
	if !isLeaf {
		return false
	}
	key := b.Keys[signer]
	if key == nil {
		return false
	}
	digest, err := digestTuple(key.NewHasher(), tuple)
	if err != nil {
		return false
	}
	return key.Verify(digest, sigLeaf) == nil
}

// Unpublish deletes the subtree <HTTPDir>/<i>/<prefix> for every
// party i this board knows about (§4.10 "Unpublish"). Since a
// party can only delete files under its own server root, this
// only ever removes artifacts this party itself produced; callers
// coordinate unpublish across parties at a higher layer.
func (b *Board) Unpublish(prefix string) error {
	for i := 1; i <= b.K; i++ {
		path := filepath.Join(b.HTTPDir, strconv.Itoa(i), prefix)
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

func deadlineFrom(d time.Duration) time.Time {
	if d < 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

func timedOut(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

func remaining(deadline time.Time) time.Duration {
	if deadline.IsZero() {
		return -1
	}
	d := time.Until(deadline)
	if d < 0 {
		return 0
	}
	return d
}

func minDuration(a, b time.Duration) time.Duration {
	if b < 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}
