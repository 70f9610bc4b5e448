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
	// Embedding service metrics
	MetricEmbeddingCalls     = "vesper_embedding_calls_total"
	MetricEmbeddingErrors    = "vesper_embedding_errors_total"
	MetricEmbeddingLatency   = "vesper_embedding_latency_seconds"
	MetricEmbeddingBatchSize = "vesper_embedding_batch_size"

	// Vector index metrics
	MetricVectorSearchLatency = "vesper_vector_search_latency_seconds"
	MetricVectorSearchResults = "vesper_vector_search_results"
)

// EmbeddingMetrics provides metrics for calls made to the embedding
// service and the vector index searches that depend on its output.
type EmbeddingMetrics struct {
	collector Collector
}

// NewEmbeddingMetrics creates a new embedding metrics collector.
func NewEmbeddingMetrics(collector Collector) *EmbeddingMetrics {
	return &EmbeddingMetrics{
		collector: collector,
	}
}

// RecordCall records an embedding service call with its latency.
func (m *EmbeddingMetrics) RecordCall(model string, latency float64) {
	labels := NewLabels("model", model)
	m.collector.IncrementCounter(MetricEmbeddingCalls, labels)
	m.collector.ObserveHistogram(MetricEmbeddingLatency, latency, labels)
}

// RecordError records a failed embedding service call.
func (m *EmbeddingMetrics) RecordError(model, errorType string) {
	labels := NewLabels("model", model, "type", errorType)
	m.collector.IncrementCounter(MetricEmbeddingErrors, labels)
}

// RecordBatchSize records the number of texts embedded in a single call.
func (m *EmbeddingMetrics) RecordBatchSize(model string, size int) {
	labels := NewLabels("model", model)
	m.collector.ObserveHistogram(MetricEmbeddingBatchSize, float64(size), labels)
}

// RecordVectorSearch records a dense or sparse vector search against the
// index, with the number of hits returned.
func (m *EmbeddingMetrics) RecordVectorSearch(kind string, latency float64, results int) {
	labels := NewLabels("kind", kind)
	m.collector.ObserveHistogram(MetricVectorSearchLatency, latency, labels)
	m.collector.ObserveHistogram(MetricVectorSearchResults, float64(results), labels)
}
