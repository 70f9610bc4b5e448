// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"

	"github.com/vesper-project/vesper/observability/logging"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/validate"
)

// RecordSkillOutcomeResult is the record_skill_outcome payload.
type RecordSkillOutcomeResult struct {
	Success bool   `json:"success"`
	SkillID string `json:"skill_id"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
}

// RecordSkillOutcome updates a skill's feedback counters: success
// folds satisfaction into the running average, failure increments the
// failure count only.
func (s *Store) RecordSkillOutcome(ctx context.Context, in validate.RecordSkillOutcomeInput) (*RecordSkillOutcomeResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !s.active.Load() {
		return &RecordSkillOutcomeResult{Success: false, SkillID: in.SkillID, Outcome: in.Outcome, Message: "vesper is disabled"}, nil
	}

	var err error
	if in.Outcome == "success" {
		err = s.skills.RecordSuccess(ctx, in.SkillID, *in.Satisfaction)
	} else {
		err = s.skills.RecordFailure(ctx, in.SkillID)
	}
	if err != nil {
		if vesperrors.IsNotFound(err) {
			return &RecordSkillOutcomeResult{Success: false, SkillID: in.SkillID, Outcome: in.Outcome, Message: "Skill not found"}, nil
		}
		return nil, err
	}

	s.logInfo(ctx, "skill outcome recorded",
		logging.String("skill_id", in.SkillID),
		logging.String("outcome", in.Outcome))

	return &RecordSkillOutcomeResult{Success: true, SkillID: in.SkillID, Outcome: in.Outcome}, nil
}

// LoadSkillResult is the load_skill payload.
type LoadSkillResult struct {
	Success bool         `json:"success"`
	Skill   *types.Skill `json:"skill,omitempty"`
	Message string       `json:"message,omitempty"`
}

// LoadSkill fetches a full skill row (summary rows come back through
// retrieval instead), bumping last_used and priming the working tier's
// skill sub-cache. Absent or archived skills report not-found rather
// than erroring.
func (s *Store) LoadSkill(ctx context.Context, skillID, namespace string) (*LoadSkillResult, error) {
	skillID = validate.CleanString(skillID)
	if skillID == "" {
		return nil, vesperrors.ErrMissingField.WithMessage("skill_id must not be empty")
	}
	namespace = namespaceOrDefault(validate.CleanString(namespace))

	skill, err := s.skills.LoadFull(ctx, namespace, skillID)
	if err != nil {
		if vesperrors.IsNotFound(err) {
			return &LoadSkillResult{Success: false, Message: "Skill not found"}, nil
		}
		return nil, err
	}
	return &LoadSkillResult{Success: true, Skill: skill}, nil
}
