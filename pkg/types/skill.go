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

// DefaultAvgUserSatisfaction is the value a newly-added Skill starts
// with before any outcome has been recorded.
const DefaultAvgUserSatisfaction = 0.5

// Skill is a procedural memory row: a named, triggerable routine the
// caller invoked before, along with its track record. Summary is a short
// blurb satisfying catalog queries alone; Description is the long body,
// fetched only on invocation (two-phase lazy loading).
type Skill struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Description         string    `json:"description"`
	Summary             string    `json:"summary"`
	Category            string    `json:"category"`
	Triggers            []string  `json:"triggers"`
	SuccessCount        int       `json:"success_count"`
	FailureCount        int       `json:"failure_count"`
	AvgUserSatisfaction float64   `json:"avg_user_satisfaction"`
	IsArchived          bool      `json:"is_archived"`
	LastUsed            *time.Time `json:"last_used,omitempty"`
	Code                string    `json:"code,omitempty"`
	CodeType            string    `json:"code_type,omitempty"`
	Prerequisites       []string  `json:"prerequisites,omitempty"`
	UsesSkills          []string  `json:"uses_skills,omitempty"`
	Version             int       `json:"version"`
	Namespace           string    `json:"namespace"`

	// InvocationCount totals every time detectInvocation resolved to
	// this skill, independent of SuccessCount/FailureCount (which only
	// increment when the caller explicitly reports an outcome).
	InvocationCount int `json:"invocation_count"`
}

// SuccessRate returns SuccessCount / (SuccessCount + FailureCount), or
// AvgUserSatisfaction when no outcomes have been recorded yet.
func (s *Skill) SuccessRate() float64 {
	total := s.SuccessCount + s.FailureCount
	if total == 0 {
		return s.AvgUserSatisfaction
	}
	return float64(s.SuccessCount) / float64(total)
}

// QualityScore is AvgUserSatisfaction × SuccessRate, the ranking key for
// getSummaries and skill search.
func (s *Skill) QualityScore() float64 {
	return s.AvgUserSatisfaction * s.SuccessRate()
}

// SkillSummary is the lightweight catalog projection of a Skill: enough
// to rank and present without paying for Description/Code.
type SkillSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Summary      string   `json:"summary"`
	Category     string   `json:"category"`
	Triggers     []string `json:"triggers"`
	QualityScore float64  `json:"quality_score"`
}

// ToSummary projects a Skill down to its SkillSummary.
func (s *Skill) ToSummary() SkillSummary {
	return SkillSummary{
		ID:           s.ID,
		Name:         s.Name,
		Summary:      s.Summary,
		Category:     s.Category,
		Triggers:     s.Triggers,
		QualityScore: s.QualityScore(),
	}
}

// InvocationMatchKind enumerates how detectInvocation resolved a query to
// a skill.
type InvocationMatchKind string

const (
	MatchExplicitName       InvocationMatchKind = "explicit_name"
	MatchTriggerPrefix      InvocationMatchKind = "trigger:"
	MatchReferencePrevious  InvocationMatchKind = "reference_previous"
)

// InvocationDetection is the result of Skills.DetectInvocation.
type InvocationDetection struct {
	IsInvocation   bool    `json:"is_invocation"`
	SkillID        string  `json:"skill_id,omitempty"`
	Confidence     float64 `json:"confidence"`
	MatchedPattern string  `json:"matched_pattern,omitempty"`
}
