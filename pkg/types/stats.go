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

// ConsolidationStats summarizes a single namespace's consolidation run.
type ConsolidationStats struct {
	MemoriesProcessed     int           `json:"memories_processed"`
	EntitiesCreated       int           `json:"entities_created"`
	RelationshipsCreated  int           `json:"relationships_created"`
	ConflictsDetected     int           `json:"conflicts_detected"`
	SkillsProposed        int           `json:"skills_proposed"`
	Duration              time.Duration `json:"duration"`
}

// NamespaceStats aggregates counts for namespace_stats.
type NamespaceStats struct {
	Namespace        string     `json:"namespace"`
	MemoryCount      int        `json:"memory_count"`
	EntityCount      int        `json:"entity_count"`
	SkillCount       int        `json:"skill_count"`
	DistinctAgentIDs int        `json:"distinct_agent_ids"`
	DistinctTaskIDs  int        `json:"distinct_task_ids"`
	DecisionCount    int        `json:"decision_count"`
	MinCreatedAt     *time.Time `json:"min_created_at,omitempty"`
	MaxCreatedAt     *time.Time `json:"max_created_at,omitempty"`
}

// RateLimitDecision is the outcome of a single rate-limiter check.
type RateLimitDecision struct {
	Allowed   bool              `json:"allowed"`
	Remaining int               `json:"remaining"`
	ResetAt   time.Time         `json:"reset_at"`
	Headers   map[string]string `json:"headers"`
}
