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

// Package observability is the parent of the three ambient observability
// packages the memory core carries: logging (structured, zap-backed),
// metrics (Prometheus collectors), and health (liveness/readiness probes
// over the vector index, relational store, and cache).
//
// # Metrics
//
//	collector := metrics.NewPrometheusCollector()
//	http.Handle("/metrics", collector.Handler())
//
// # Logging
//
//	logger := logging.NewStructuredLogger(logging.LevelInfo)
//	ctx := logging.WithNamespace(ctx, "agent-1")
//	logger.Info(ctx, "memory stored", logging.String("id", id))
//
// # Health Checks
//
//	readiness := health.NewReadinessChecker(
//	    health.NewPingCheck("vectorindex", vectorIndex),
//	    health.NewPingCheck("storage", store),
//	    health.NewPingCheck("cache", cache),
//	)
//	http.Handle("/health/ready", health.Handler(readiness))
package observability
