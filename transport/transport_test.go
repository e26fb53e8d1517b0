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

package transport

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerWhitelistRejectsBadPaths(t *testing.T) {
	bad := []string{"../etc/passwd", "a..b", "foo bar", "a%20b", "1/../2"}
	for _, p := range bad {
		require.False(t, validPath(p), "path %q should be rejected", p)
	}
}

func TestServerWhitelistAcceptsGoodPaths(t *testing.T) {
	good := []string{"1/L", "1/L.sig.2", "party_a/label.v1"}
	for _, p := range good {
		require.True(t, validPath(p), "path %q should be accepted", p)
	}
}

func TestServerFetchRoundTrip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1", "L"), []byte("hello world"), 0o644))

	s := &Server{Root: dir}
	srv := httptest.NewServer(s)
	defer srv.Close()

	var buf bytes.Buffer
	ok, _, err := Fetch(srv.URL+"/1/L", &buf, 1000, 1024)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello world", buf.String())
	require.EqualValues(t, len("hello world"), s.SentBytes())
}

func TestServerFetch404(t *testing.T) {
	s := &Server{Root: t.TempDir()}
	srv := httptest.NewServer(s)
	defer srv.Close()

	var buf bytes.Buffer
	ok, _, err := Fetch(srv.URL+"/nope", &buf, 1000, 1024)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFetchRejectsOversized(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "big"), bytes.Repeat([]byte{1}, 100), 0o644))

	s := &Server{Root: dir}
	srv := httptest.NewServer(s)
	defer srv.Close()

	var buf bytes.Buffer
	ok, _, err := Fetch(srv.URL+"/big", &buf, 1000, 10)
	require.False(t, ok)
	require.ErrorIs(t, err, ErrTooLarge)
}
