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

package sig

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEd25519RoundTrip(t *testing.T) {
	k, err := GenerateEd25519()
	require.NoError(t, err)

	h := k.NewHasher()
	h.Write([]byte("hello"))
	digest := h.Sum()

	signature, err := k.Sign(digest)
	require.NoError(t, err)
	require.NoError(t, k.Verify(digest, signature))

	other, err := GenerateEd25519()
	require.NoError(t, err)
	err = other.Verify(digest, signature)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalid))
}

func TestSipDigestDeterministic(t *testing.T) {
	d1 := NewSipDigest(1, 2)
	d1.Write([]byte("abc"))
	d2 := NewSipDigest(1, 2)
	d2.Write([]byte("ab"))
	d2.Write([]byte("c"))
	require.Equal(t, d1.Sum(), d2.Sum())

	d3 := NewSipDigest(1, 3)
	d3.Write([]byte("abc"))
	require.NotEqual(t, d1.Sum(), d3.Sum())
}
