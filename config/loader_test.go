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
	"os"
	"testing"
)

func TestLoadEnvOverridesDefaults(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6334")
	t.Setenv("RATE_LIMIT_FAIL_OPEN", "true")
	t.Setenv("RATE_LIMIT_STORE_MEMORY", "42")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	if cfg.Cache.Host != "cache.internal" {
		t.Errorf("Cache.Host = %q, want cache.internal", cfg.Cache.Host)
	}
	if cfg.Cache.Port != 6380 {
		t.Errorf("Cache.Port = %d, want 6380", cfg.Cache.Port)
	}
	if cfg.VectorIndex.URL != "http://qdrant.internal:6334" {
		t.Errorf("VectorIndex.URL = %q, want http://qdrant.internal:6334", cfg.VectorIndex.URL)
	}
	if !cfg.RateLimit.FailOpen {
		t.Error("expected RateLimit.FailOpen to be true")
	}
	if cfg.RateLimit.Overrides["store_memory"] != 42 {
		t.Errorf("Overrides[store_memory] = %d, want 42", cfg.RateLimit.Overrides["store_memory"])
	}
}

func TestLoadEnvIgnoresMalformedIntegers(t *testing.T) {
	t.Setenv("REDIS_PORT", "not-a-number")

	cfg := DefaultConfig()
	before := cfg.Cache.Port
	cfg.LoadEnv()

	if cfg.Cache.Port != before {
		t.Errorf("expected malformed REDIS_PORT to leave default intact, got %d", cfg.Cache.Port)
	}
}

func TestVesperHomeRederivesSQLitePath(t *testing.T) {
	t.Setenv("VESPER_HOME", "/custom/home")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	want := "/custom/home/data/memory.db"
	if cfg.Storage.SQLiteDB != want {
		t.Errorf("Storage.SQLiteDB = %q, want %q", cfg.Storage.SQLiteDB, want)
	}
}

func TestSQLiteDBEnvOverridesDerivedPath(t *testing.T) {
	t.Setenv("VESPER_HOME", "/custom/home")
	t.Setenv("SQLITE_DB", "/explicit/path/memory.db")

	cfg := DefaultConfig()
	cfg.LoadEnv()

	if cfg.Storage.SQLiteDB != "/explicit/path/memory.db" {
		t.Errorf("Storage.SQLiteDB = %q, want explicit override", cfg.Storage.SQLiteDB)
	}
}

func TestLoadFromFileRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/vesper.toml"
	if err := os.WriteFile(path, []byte("home = \"/tmp\""), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFromFile(path); err == nil {
		t.Fatal("expected an error for an unsupported config file extension")
	}
}
