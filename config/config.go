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

// Package config loads the typed, YAML-backed configuration table
// for every tunable named in §6.7: merge fan-in, buffer sizes,
// download caps, and bind-retry policies.
package config

import (
	"os"

	"sigs.k8s.io/yaml"
)

// Config holds every tunable named in §6.7, with JSON/YAML tags
// so it round-trips through sigs.k8s.io/yaml (YAML -> JSON ->
// struct).
type Config struct {
	MaxReaders        int `json:"max_readers"`
	DefaultPauseMs    int `json:"default_pause_ms"`
	DigestBufferSize  int `json:"digest_buffer_size"`
	HTTPBufferSize    int `json:"http_buffer_size"`
	ReaderBufferSize  int `json:"reader_buffer_size"`
	MaxSignatureBytes int `json:"max_signature_bytes"`
	MaxClassnameBytes int `json:"max_classname_bytes"`

	HintSocketRetries  int `json:"hint_socket_retries"`
	HintSocketSleepMs  int `json:"hint_socket_sleep_ms"`
	HTTPBindRetries    int `json:"http_bind_retries"`
	HTTPBindSleepMs    int `json:"http_bind_sleep_ms"`
}

// Default returns the zero-config defaults table, matching every
// default named in §6.7.
func Default() *Config {
	return &Config{
		MaxReaders:        10,
		DefaultPauseMs:    100,
		DigestBufferSize:  4096,
		HTTPBufferSize:    4096,
		ReaderBufferSize:  16384,
		MaxSignatureBytes: 1024000,
		MaxClassnameBytes: 2048,
		HintSocketRetries: 10,
		HintSocketSleepMs: 500,
		HTTPBindRetries:   10,
		HTTPBindSleepMs:   500,
	}
}

// Load reads a YAML file at path, applying Default() values for
// any field the file leaves unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}
