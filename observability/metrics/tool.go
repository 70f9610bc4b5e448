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

package metrics

const (
	// Tool call metrics
	MetricToolCallsTotal   = "vesper_tool_calls_total"
	MetricToolErrorsTotal  = "vesper_tool_errors_total"
	MetricToolDuration     = "vesper_tool_duration_seconds"

	// Namespace metrics
	MetricNamespaceActive   = "vesper_namespace_active"
	MetricNamespaceRowCount = "vesper_namespace_row_count"

	// Rate limit metrics
	MetricRateLimitRejected = "vesper_rate_limit_rejected_total"
	MetricRateLimitFailOpen = "vesper_rate_limit_fail_open_total"

	// Conflict metrics
	MetricConflictsDetected = "vesper_conflicts_detected_total"
	MetricConflictsFlagged  = "vesper_conflicts_flagged_total"
)

// ToolMetrics provides metrics for the fourteen tool operations a caller
// can invoke against a namespace (store_memory, retrieve_memory, and so
// on).
type ToolMetrics struct {
	collector Collector
}

// NewToolMetrics creates a new tool metrics collector.
func NewToolMetrics(collector Collector) *ToolMetrics {
	return &ToolMetrics{
		collector: collector,
	}
}

// RecordCall records a tool invocation with its duration.
func (m *ToolMetrics) RecordCall(namespace, operation string, duration float64) {
	labels := NewLabels("namespace", namespace, "operation", operation)
	m.collector.IncrementCounter(MetricToolCallsTotal, labels)
	m.collector.ObserveHistogram(MetricToolDuration, duration, labels)
}

// RecordError records a tool invocation that failed.
func (m *ToolMetrics) RecordError(namespace, operation, category string) {
	labels := NewLabels(
		"namespace", namespace,
		"operation", operation,
		"category", category,
	)
	m.collector.IncrementCounter(MetricToolErrorsTotal, labels)
}

// SetNamespaceActive marks whether a namespace has been touched recently.
func (m *ToolMetrics) SetNamespaceActive(namespace string, active float64) {
	m.collector.SetGauge(MetricNamespaceActive, active, NewLabels("namespace", namespace))
}

// SetNamespaceRowCount records the number of rows stored for a namespace
// in a given memory tier.
func (m *ToolMetrics) SetNamespaceRowCount(namespace, tier string, count float64) {
	labels := NewLabels("namespace", namespace, "tier", tier)
	m.collector.SetGauge(MetricNamespaceRowCount, count, labels)
}

// RecordRateLimitRejected records a request rejected by the rate limiter.
func (m *ToolMetrics) RecordRateLimitRejected(namespace, operation, tier string) {
	labels := NewLabels("namespace", namespace, "operation", operation, "tier", tier)
	m.collector.IncrementCounter(MetricRateLimitRejected, labels)
}

// RecordRateLimitFailOpen records a request admitted because the rate
// limiter's backing cache was unreachable.
func (m *ToolMetrics) RecordRateLimitFailOpen(namespace, operation string) {
	labels := NewLabels("namespace", namespace, "operation", operation)
	m.collector.IncrementCounter(MetricRateLimitFailOpen, labels)
}

// RecordConflictDetected records a conflict surfaced during consolidation.
func (m *ToolMetrics) RecordConflictDetected(namespace string, conflictType string) {
	labels := NewLabels("namespace", namespace, "type", conflictType)
	m.collector.IncrementCounter(MetricConflictsDetected, labels)
}

// RecordConflictFlagged records a conflict that crossed the auto-flag
// confidence threshold and was surfaced to the caller rather than
// resolved silently.
func (m *ToolMetrics) RecordConflictFlagged(namespace string, conflictType string) {
	labels := NewLabels("namespace", namespace, "type", conflictType)
	m.collector.IncrementCounter(MetricConflictsFlagged, labels)
}
