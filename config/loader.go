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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a file (YAML or JSON), then
// applies environment variable overrides and validates the result. The
// file format is determined by the file extension (.yaml, .yml, or
// .json).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s (use .yaml, .yml, or .json)", ext)
	}

	cfg.LoadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Load builds a configuration from defaults plus environment variables,
// with no backing file. This is the path most deployments use: the
// memory core has no config file of its own, only VESPER_HOME and its
// siblings.
func Load() (*Config, error) {
	cfg := DefaultConfig()
	cfg.LoadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadEnv applies environment variable overrides. Environment variables
// take precedence over file-based configuration.
func (c *Config) LoadEnv() {
	if v := os.Getenv("VESPER_HOME"); v != "" {
		c.Home = v
		// Re-derive the SQLite default so VESPER_HOME moves it too,
		// unless SQLITE_DB is set explicitly below.
		c.Storage.SQLiteDB = filepath.Join(v, "data", "memory.db")
	}
	if v := os.Getenv("SQLITE_DB"); v != "" {
		c.Storage.SQLiteDB = v
	}

	if v := os.Getenv("QDRANT_URL"); v != "" {
		c.VectorIndex.URL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		c.VectorIndex.APIKey = v
	}

	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Cache.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}

	if v := os.Getenv("EMBEDDING_SERVICE_URL"); v != "" {
		c.Embedding.ServiceURL = v
	}

	if v := os.Getenv("RATE_LIMIT_DEFAULT_TIER"); v != "" {
		c.RateLimit.DefaultTier = RateLimitTier(v)
	}
	if v := os.Getenv("RATE_LIMIT_FAIL_OPEN"); v != "" {
		c.RateLimit.FailOpen = v == "true" || v == "1"
	}
	c.loadRateLimitOverrides()

	if v := os.Getenv("CONSOLIDATION_SCHEDULE"); v != "" {
		c.Consolidation.Schedule = v
	}
	if v := os.Getenv("CONSOLIDATION_LOCK_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Consolidation.LockTTL = d
		}
	}

	if v := os.Getenv("VESPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("VESPER_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv("METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Metrics.Port = port
		}
	}
}

// rateLimitOpEnvVars maps a tool/operation name to the environment
// variable name that overrides its limit (RATE_LIMIT_STORE_MEMORY-style).
var rateLimitOpEnvVars = map[string]string{
	"store_memory":    "RATE_LIMIT_STORE_MEMORY",
	"retrieve_memory": "RATE_LIMIT_RETRIEVE_MEMORY",
	"list_recent":     "RATE_LIMIT_LIST_RECENT",
	"delete_memory":   "RATE_LIMIT_DELETE_MEMORY",
	"store_decision":  "RATE_LIMIT_STORE_DECISION",
	"share_context":   "RATE_LIMIT_SHARE_CONTEXT",
}

func (c *Config) loadRateLimitOverrides() {
	for op, envVar := range rateLimitOpEnvVars {
		v := os.Getenv(envVar)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		c.RateLimit.Overrides[op] = n
	}
}
