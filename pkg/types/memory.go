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

// MemoryType enumerates the kinds of MemoryRow the relational store holds.
type MemoryType string

const (
	MemoryTypeEpisodic   MemoryType = "episodic"
	MemoryTypeSemantic   MemoryType = "semantic"
	MemoryTypeProcedural MemoryType = "procedural"
	MemoryTypeDecision   MemoryType = "decision"
)

// DecisionDecayFactor is the fixed metadata["decay_factor"] value stamped
// on every decision MemoryRow.
const DecisionDecayFactor = 0.25

// MemoryRow is a persisted record produced by store_memory, store_decision,
// and share_context handoffs. Its optional sibling vector lives in the
// vector index, keyed by the same ID.
type MemoryRow struct {
	ID            string                 `json:"id"`
	Content       string                 `json:"content"`
	MemoryType    MemoryType             `json:"memory_type"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
	Importance    float64                `json:"importance"`
	AccessCount   int                    `json:"access_count"`
	LastAccessed  time.Time              `json:"last_accessed"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Namespace     string                 `json:"namespace"`
	AgentID       *string                `json:"agent_id,omitempty"`
	AgentRole     *string                `json:"agent_role,omitempty"`
	TaskID        *string                `json:"task_id,omitempty"`
}

// MaxContentBytes is the upper bound on MemoryRow.Content size.
const MaxContentBytes = 100 * 1024

// MaxMetadataKeys and MaxMetadataBytes bound MemoryRow.Metadata.
const (
	MaxMetadataKeys  = 50
	MaxMetadataBytes = 10 * 1024
)

// SupersededBy reports the UUID of the row that replaced this one, if any.
func (m *MemoryRow) SupersededBy() (string, bool) {
	if m.Metadata == nil {
		return "", false
	}
	v, ok := m.Metadata["superseded_by"].(string)
	return v, ok && v != ""
}

// IsDecision reports whether this row is a decision record.
func (m *MemoryRow) IsDecision() bool {
	return m.MemoryType == MemoryTypeDecision
}

// WorkingMemoryRecord is a conversation-scoped entry in the working tier.
// Its lifetime is bounded by the tier's capacity; the oldest record by
// Timestamp is evicted once the tier exceeds that capacity.
type WorkingMemoryRecord struct {
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
	FullText       string    `json:"full_text"`
	Embedding      []float32 `json:"embedding,omitempty"`
	KeyEntities    []string  `json:"key_entities,omitempty"`
	Topics         []string  `json:"topics,omitempty"`
	UserIntent     string    `json:"user_intent,omitempty"`
}

// CachedSkill is the value stored by the working tier's skill sub-cache.
type CachedSkill struct {
	Skill       Skill `json:"skill"`
	AccessCount int   `json:"access_count"`
}
