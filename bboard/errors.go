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

// Package bboard implements the replicated bulletin board: a
// signed publish/wait protocol over the HTTP transport and UDP
// hint service, transporting byte trees between parties (§4.10).
package bboard

import "errors"

// ErrTimeout indicates a wait call exhausted its deadline without
// collecting a valid message and every required co-signature.
var ErrTimeout = errors.New("bboard: wait timed out")

// ErrSignatureInvalid indicates a downloaded signature did not
// verify against the expected signer's public key. Board does
// not return it: a signature that fails to verify is treated as
// not yet available and fetched again until the deadline.
var ErrSignatureInvalid = errors.New("bboard: signature invalid")

// ErrProtocolFatal indicates the operator declined to retry after
// a wait failure; the run must abort.
var ErrProtocolFatal = errors.New("bboard: protocol aborted by operator")

// ErrPartyInactive indicates a publish or wait call referenced a
// party this board has marked inactive. Board does not return
// it: Wait on an inactive publisher returns an empty Node and no
// error, and inactive signers are skipped.
var ErrPartyInactive = errors.New("bboard: party is inactive")
