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

// Package config loads the memory core's runtime configuration from an
// optional YAML/JSON file plus environment variable overrides.
//
// # Loading
//
//	cfg, err := config.Load() // defaults + env only
//	cfg, err := config.LoadFromFile("vesper.yaml") // file + env overrides it
//
// # Environment Variables
//
// VESPER_HOME, SQLITE_DB, QDRANT_URL, QDRANT_API_KEY, REDIS_HOST,
// REDIS_PORT, REDIS_PASSWORD, EMBEDDING_SERVICE_URL,
// RATE_LIMIT_DEFAULT_TIER, RATE_LIMIT_FAIL_OPEN, per-operation
// RATE_LIMIT_<OP> overrides, VESPER_LOG_LEVEL, VESPER_LOG_FORMAT, and
// METRICS_PORT. All are optional; see DefaultConfig for their defaults.
package config
