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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()
	require.Equal(t, 10, c.MaxReaders)
	require.Equal(t, 100, c.DefaultPauseMs)
	require.Equal(t, 1024000, c.MaxSignatureBytes)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bbnode.yaml")
	err := os.WriteFile(path, []byte("max_readers: 4\ndefault_pause_ms: 250\n"), 0o644)
	require.NoError(t, err)

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, c.MaxReaders)
	require.Equal(t, 250, c.DefaultPauseMs)
	// Untouched fields still carry their defaults.
	require.Equal(t, 4096, c.HTTPBufferSize)
}
