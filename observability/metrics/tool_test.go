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

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewToolMetrics(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	if toolMetrics == nil {
		t.Fatal("NewToolMetrics() returned nil")
	}

	if toolMetrics.collector == nil {
		t.Error("collector should not be nil")
	}
}

func TestToolRecordCall(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.RecordCall("acme-corp", "store_memory", 0.012)

	body := scrapeBody(t, collector)

	if !strings.Contains(body, "vesper_tool_calls_total") {
		t.Error("vesper_tool_calls_total metric not found")
	}

	if !strings.Contains(body, "vesper_tool_duration_seconds") {
		t.Error("vesper_tool_duration_seconds metric not found")
	}

	if !strings.Contains(body, `namespace="acme-corp"`) {
		t.Error("namespace label not found")
	}

	if !strings.Contains(body, `operation="store_memory"`) {
		t.Error("operation label not found")
	}
}

func TestToolRecordError(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.RecordError("acme-corp", "retrieve_context", "storage")

	body := scrapeBody(t, collector)

	if !strings.Contains(body, "vesper_tool_errors_total") {
		t.Error("vesper_tool_errors_total metric not found")
	}

	if !strings.Contains(body, `category="storage"`) {
		t.Error("category label not found")
	}
}

func TestNamespaceGauges(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.SetNamespaceActive("acme-corp", 1)
	toolMetrics.SetNamespaceRowCount("acme-corp", "semantic", 1250)

	body := scrapeBody(t, collector)

	if !strings.Contains(body, "vesper_namespace_active") {
		t.Error("vesper_namespace_active metric not found")
	}

	if !strings.Contains(body, "vesper_namespace_row_count") {
		t.Error("vesper_namespace_row_count metric not found")
	}

	if !strings.Contains(body, `tier="semantic"`) {
		t.Error("tier label not found")
	}
}

func TestRateLimitMetrics(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.RecordRateLimitRejected("acme-corp", "store_memory", "free")
	toolMetrics.RecordRateLimitFailOpen("acme-corp", "store_memory")

	body := scrapeBody(t, collector)

	if !strings.Contains(body, "vesper_rate_limit_rejected_total") {
		t.Error("vesper_rate_limit_rejected_total metric not found")
	}

	if !strings.Contains(body, "vesper_rate_limit_fail_open_total") {
		t.Error("vesper_rate_limit_fail_open_total metric not found")
	}

	if !strings.Contains(body, `tier="free"`) {
		t.Error("tier label not found")
	}
}

func TestConflictMetrics(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.RecordConflictDetected("acme-corp", "contradiction")
	toolMetrics.RecordConflictFlagged("acme-corp", "contradiction")

	body := scrapeBody(t, collector)

	if !strings.Contains(body, "vesper_conflicts_detected_total") {
		t.Error("vesper_conflicts_detected_total metric not found")
	}

	if !strings.Contains(body, "vesper_conflicts_flagged_total") {
		t.Error("vesper_conflicts_flagged_total metric not found")
	}

	if !strings.Contains(body, `type="contradiction"`) {
		t.Error("conflict type label not found")
	}
}

func TestMultipleNamespaces(t *testing.T) {
	collector := NewPrometheusCollector()
	toolMetrics := NewToolMetrics(collector)

	toolMetrics.RecordCall("acme-corp", "store_memory", 0.01)
	toolMetrics.RecordCall("initech", "retrieve_context", 0.02)
	toolMetrics.RecordCall("globex", "store_memory", 0.03)

	body := scrapeBody(t, collector)

	namespaces := []string{
		`namespace="acme-corp"`,
		`namespace="initech"`,
		`namespace="globex"`,
	}

	for _, ns := range namespaces {
		if !strings.Contains(body, ns) {
			t.Errorf("namespace %s not found", ns)
		}
	}
}

func scrapeBody(t *testing.T, collector Collector) string {
	t.Helper()
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	return w.Body.String()
}
