// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid, got: %v", err)
	}
}

func TestDefaultConfigDerivesSQLitePathFromHome(t *testing.T) {
	cfg := DefaultConfig()
	want := filepath.Join(cfg.Home, "data", "memory.db")
	if cfg.Storage.SQLiteDB != want {
		t.Fatalf("got %q, want %q", cfg.Storage.SQLiteDB, want)
	}
}

func TestDockerDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Home = "/srv/vesper"

	got := cfg.DockerDataDir("qdrant")
	want := filepath.Join("/srv/vesper", "docker-data", "qdrant")
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
