// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package search implements the hybrid search engine: reciprocal-rank
// fusion over the vector index's dense and sparse result lists, behind
// a short-TTL per-namespace query cache. See hybrid.go.
package search
