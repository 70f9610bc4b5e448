// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package validate

import (
	"encoding/json"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

const (
	maxContentChars  = 100_000
	maxQueryChars    = 10_000
	maxMetadataKeys  = 50
	maxMetadataBytes = 10 * 1024
)

// StoreMemoryInput is the store_memory tool's input schema.
type StoreMemoryInput struct {
	Content    string                 `json:"content"`
	MemoryType types.MemoryType       `json:"memory_type"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Namespace  string                 `json:"namespace,omitempty"`
	AgentID    string                 `json:"agent_id,omitempty"`
	AgentRole  string                 `json:"agent_role,omitempty"`
	TaskID     string                 `json:"task_id,omitempty"`
}

// Validate enforces the store_memory input schema.
func (in *StoreMemoryInput) Validate() error {
	in.Content = CleanString(in.Content)
	if len(in.Content) == 0 || len(in.Content) > maxContentChars {
		return vesperrors.ErrOutOfRange.WithMessage("content must be 1..100000 characters")
	}
	switch in.MemoryType {
	case types.MemoryTypeEpisodic, types.MemoryTypeSemantic, types.MemoryTypeProcedural, types.MemoryTypeDecision:
	default:
		return vesperrors.ErrInvalidValue.WithMessage("memory_type must be one of episodic, semantic, procedural, decision").
			WithDetail("memory_type", string(in.MemoryType))
	}
	if len(in.Metadata) > maxMetadataKeys {
		return vesperrors.ErrOutOfRange.WithMessage("metadata must have at most 50 keys")
	}
	if in.Metadata != nil {
		data, err := json.Marshal(in.Metadata)
		if err != nil {
			return vesperrors.ErrInvalidInput.Wrap(err)
		}
		if len(data) > maxMetadataBytes {
			return vesperrors.ErrOutOfRange.WithMessage("metadata must serialise to at most 10 KiB")
		}
	}
	in.Namespace = CleanString(in.Namespace)
	in.AgentID = CleanString(in.AgentID)
	in.AgentRole = CleanString(in.AgentRole)
	in.TaskID = CleanString(in.TaskID)
	return nil
}

// RetrieveMemoryInput is the retrieve_memory tool's input schema.
type RetrieveMemoryInput struct {
	Query           string             `json:"query"`
	MemoryTypes     []types.MemoryType `json:"memory_types,omitempty"`
	MaxResults      int                `json:"max_results,omitempty"`
	RoutingStrategy string             `json:"routing_strategy,omitempty"`
	Namespace       string             `json:"namespace,omitempty"`
}

// Validate enforces the retrieve_memory input schema, defaulting
// MaxResults to 5 when unset.
func (in *RetrieveMemoryInput) Validate() error {
	in.Query = CleanString(in.Query)
	if len(in.Query) == 0 || len(in.Query) > maxQueryChars {
		return vesperrors.ErrOutOfRange.WithMessage("query must be 1..10000 characters")
	}
	if in.MaxResults == 0 {
		in.MaxResults = 5
	}
	if in.MaxResults < 1 || in.MaxResults > 100 {
		return vesperrors.ErrOutOfRange.WithMessage("max_results must be between 1 and 100")
	}
	in.Namespace = CleanString(in.Namespace)
	return nil
}

// ListRecentInput is the list_recent tool's input schema.
type ListRecentInput struct {
	Limit      int              `json:"limit,omitempty"`
	MemoryType types.MemoryType `json:"memory_type,omitempty"`
	Namespace  string           `json:"namespace,omitempty"`
}

// Validate enforces the list_recent input schema, defaulting Limit
// to 5 when unset.
func (in *ListRecentInput) Validate() error {
	if in.Limit == 0 {
		in.Limit = 5
	}
	if in.Limit < 1 || in.Limit > 100 {
		return vesperrors.ErrOutOfRange.WithMessage("limit must be between 1 and 100")
	}
	in.Namespace = CleanString(in.Namespace)
	return nil
}

// GetStatsInput is the get_stats tool's input schema.
type GetStatsInput struct {
	Detailed  bool   `json:"detailed,omitempty"`
	Namespace string `json:"namespace,omitempty"`
}

// Validate is a no-op beyond namespace normalisation: every field of
// get_stats is optional with a safe zero value.
func (in *GetStatsInput) Validate() error {
	in.Namespace = CleanString(in.Namespace)
	return nil
}

// RecordSkillOutcomeInput is the record_skill_outcome tool's input
// schema.
type RecordSkillOutcomeInput struct {
	SkillID      string   `json:"skill_id"`
	Outcome      string   `json:"outcome"`
	Satisfaction *float64 `json:"satisfaction,omitempty"`
	Namespace    string   `json:"namespace,omitempty"`
}

// Validate enforces the record_skill_outcome input schema: outcome
// must be success/failure, and satisfaction is required (and must be in
// [0,1]) exactly when outcome is success.
func (in *RecordSkillOutcomeInput) Validate() error {
	in.SkillID = CleanString(in.SkillID)
	if in.SkillID == "" {
		return vesperrors.ErrMissingField.WithMessage("skill_id must not be empty")
	}
	switch in.Outcome {
	case "success":
		if in.Satisfaction == nil {
			return vesperrors.ErrMissingField.WithMessage("satisfaction is required when outcome is success")
		}
		if *in.Satisfaction < 0 || *in.Satisfaction > 1 {
			return vesperrors.ErrOutOfRange.WithMessage("satisfaction must be between 0 and 1")
		}
	case "failure":
	default:
		return vesperrors.ErrInvalidValue.WithMessage("outcome must be success or failure").
			WithDetail("outcome", in.Outcome)
	}
	in.Namespace = CleanString(in.Namespace)
	return nil
}
