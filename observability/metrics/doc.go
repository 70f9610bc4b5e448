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

// Package metrics provides metrics collection and export for the memory
// core.
//
// # Overview
//
// This package provides a Prometheus-based metrics collector with support for:
//   - Counters (monotonic increasing values)
//   - Gauges (arbitrary values)
//   - Histograms (distribution of values)
//   - Summaries (quantiles)
//
// # Basic Usage
//
//	collector := metrics.NewPrometheusCollector()
//
//	// Increment counter
//	collector.IncrementCounter("requests_total", map[string]string{
//	    "method": "POST",
//	    "status": "200",
//	})
//
//	// Set gauge
//	collector.SetGauge("active_connections", 42, nil)
//
//	// Observe histogram
//	collector.ObserveHistogram("request_duration_seconds", 0.042, map[string]string{
//	    "endpoint": "/api/chat",
//	})
//
//	// Expose metrics
//	http.Handle("/metrics", collector.Handler())
//
// # Tool Metrics
//
// Pre-defined metrics for the fourteen tool operations:
//
//	toolMetrics := metrics.NewToolMetrics(collector)
//
//	// Record call
//	toolMetrics.RecordCall("acme-corp", "store_memory", 0.012)
//
//	// Record error
//	toolMetrics.RecordError("acme-corp", "retrieve_memory", "storage")
//
//	// Track namespace size
//	toolMetrics.SetNamespaceRowCount("acme-corp", "semantic", 1250)
//
// # Embedding Metrics
//
//	embeddingMetrics := metrics.NewEmbeddingMetrics(collector)
//
//	// Record embedding service call
//	embeddingMetrics.RecordCall("bge-m3", 0.045)
//
//	// Record a hybrid vector search
//	embeddingMetrics.RecordVectorSearch("hybrid", 0.018, 10)
//
// # Custom Metrics
//
// Create custom metric collectors:
//
//	type CustomMetrics struct {
//	    collector metrics.Collector
//	}
//
//	func (m *CustomMetrics) RecordCustomEvent(name string) {
//	    m.collector.IncrementCounter("custom_events_total", map[string]string{
//	        "event": name,
//	    })
//	}
package metrics
