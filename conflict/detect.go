// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package conflict is the conflict detector (component J): pure functions
over in-memory facts and decision rows, with no I/O of their own. The
side-effecting half — storeConflict, which drops both involved facts'
confidence to FlaggedConfidence and marks the row flagged — lives in
storage as a transactional write, invoked by the callers of Detect and
DetectDecisions (the consolidation pipeline and store_decision).
*/
package conflict

import (
	"time"

	"github.com/vesper-project/vesper/pkg/types"
)

// preferenceShiftMinGap is how far apart two preference entities'
// creation times must be (strictly more than this) before they register
// as a preference_shift.
const preferenceShiftMinGap = 7 * 24 * time.Hour

// Detect finds conflicts among facts, which the caller has already
// scoped to a single entity or a single namespace as appropriate:
// temporal_overlap and contradiction only make sense within the facts of
// one entity/property pair.
func Detect(facts []types.Fact) []types.Conflict {
	var out []types.Conflict
	for i := 0; i < len(facts); i++ {
		for j := i + 1; j < len(facts); j++ {
			a, b := &facts[i], &facts[j]
			if a.EntityID != b.EntityID || a.Property != b.Property || a.Value == b.Value {
				continue
			}
			if c, ok := contradiction(a, b); ok {
				out = append(out, c)
				continue
			}
			if c, ok := temporalOverlap(a, b); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

// contradiction fires when both facts are currently valid (ValidUntil
// == nil) on the same (entity, property) with distinct values. Historic
// vs. current is not a contradiction — that's temporalOverlap's job.
func contradiction(a, b *types.Fact) (types.Conflict, bool) {
	if !a.IsOpenEnded() || !b.IsOpenEnded() {
		return types.Conflict{}, false
	}
	return types.Conflict{
		ID:               types.NewID(),
		FactID1:          a.ID,
		FactID2:          b.ID,
		ConflictType:     types.ConflictContradiction,
		Description:      "both facts are currently valid with distinct values",
		Severity:         types.SeverityMedium,
		ResolutionStatus: types.ResolutionFlagged,
		Namespace:        a.Namespace,
	}, true
}

// temporalOverlap fires when two facts on the same (entity, property)
// have distinct values and overlapping validity intervals (an open
// ValidUntil treated as unbounded).
func temporalOverlap(a, b *types.Fact) (types.Conflict, bool) {
	if !a.Overlaps(b) {
		return types.Conflict{}, false
	}
	return types.Conflict{
		ID:               types.NewID(),
		FactID1:          a.ID,
		FactID2:          b.ID,
		ConflictType:     types.ConflictTemporalOverlap,
		Description:      "facts have overlapping validity intervals with distinct values",
		Severity:         types.SeverityHigh,
		ResolutionStatus: types.ResolutionFlagged,
		Namespace:        a.Namespace,
	}, true
}

// DetectPreferenceShift compares preference entities pairwise for the
// same namespace: identical Description, created more than seven days
// apart, registers as a low-severity preference_shift.
func DetectPreferenceShift(entities []types.Entity) []types.Conflict {
	var out []types.Conflict
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := &entities[i], &entities[j]
			if a.Type != types.EntityTypePreference || b.Type != types.EntityTypePreference {
				continue
			}
			if a.Namespace != b.Namespace || a.Description == "" || a.Description != b.Description {
				continue
			}
			gap := a.CreatedAt.Sub(b.CreatedAt)
			if gap < 0 {
				gap = -gap
			}
			if gap <= preferenceShiftMinGap {
				continue
			}
			out = append(out, types.Conflict{
				ID:               types.NewID(),
				FactID1:          a.ID,
				FactID2:          b.ID,
				ConflictType:     types.ConflictPreferenceShift,
				Description:      "preference entities with identical description, recorded more than 7 days apart",
				Severity:         types.SeverityLow,
				ResolutionStatus: types.ResolutionFlagged,
				Namespace:        a.Namespace,
			})
		}
	}
	return out
}
