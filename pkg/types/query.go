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

package types

import "time"

// QueryClass is the smart router's classification of an incoming query.
type QueryClass string

const (
	QueryFactual    QueryClass = "FACTUAL"
	QueryPreference QueryClass = "PREFERENCE"
	QueryProject    QueryClass = "PROJECT"
	QueryTemporal   QueryClass = "TEMPORAL"
	QuerySkill      QueryClass = "SKILL"
	QueryComplex    QueryClass = "COMPLEX"
)

// QueryClassification is the classifier's verdict on a query string.
type QueryClassification struct {
	Class          QueryClass `json:"type"`
	Confidence     float64    `json:"confidence"`
	MatchedPattern string     `json:"matched_pattern,omitempty"`
}

// PassageSource enumerates where a ScoredPassage was produced.
type PassageSource string

const (
	SourceWorking    PassageSource = "working"
	SourceSemantic   PassageSource = "semantic"
	SourceProcedural PassageSource = "procedural"
	SourceEpisodic   PassageSource = "episodic"
	SourceHybrid     PassageSource = "hybrid"
)

// ScoredPassage is a ranked retrieval result returned by the router,
// regardless of which tier or strategy produced it.
type ScoredPassage struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Similarity float64       `json:"similarity"`
	Source     PassageSource `json:"source"`
	Timestamp  time.Time     `json:"timestamp"`
}

// VectorHit is a single result from the vector index's dense or sparse
// search.
type VectorHit struct {
	ID      string                 `json:"id"`
	Score   float64                `json:"score"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// CollectionStats reports the vector index's collection health.
type CollectionStats struct {
	PointsCount uint64 `json:"points_count"`
	Status      string `json:"status"`
}

// PageRankResult is one node returned by a personalized PageRank
// traversal, carrying its attenuated relevance score.
type PageRankResult struct {
	EntityID string  `json:"entity_id"`
	Score    float64 `json:"score"`
}
