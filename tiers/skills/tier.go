// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package skills is the procedural memory tier: a catalog of named,
triggerable routines backed by the relational store's skills table, with
a two-phase lazy-loading discipline — getSummaries/search only ever
touch the lightweight SkillSummary projection, loadFull reads the full
row (and the long Description/Code body) from the store on every call
and writes it into the working tier's skill sub-cache; it does not read
that sub-cache back.
*/
package skills

import (
	"context"
	"sort"
	"strings"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/tiers/working"
)

// Tier is the skill library tier.
type Tier struct {
	db    *storage.DB
	cache *working.Tier
}

// New builds a Tier over db; LoadFull writes each skill it loads into
// cache's skill sub-cache (cache may be nil).
func New(db *storage.DB, cache *working.Tier) *Tier {
	return &Tier{db: db, cache: cache}
}

// AddSkill inserts a new skill row, returning its id.
func (t *Tier) AddSkill(ctx context.Context, s *types.Skill) (string, error) {
	return t.db.Q().InsertSkill(ctx, s)
}

// GetSummaries returns non-archived skills in namespace (optionally
// filtered by category) as SkillSummary, ranked by descending
// QualityScore, ties broken by SuccessCount then LastUsed, capped at
// limit.
func (t *Tier) GetSummaries(ctx context.Context, namespace, category string, limit int) ([]types.SkillSummary, error) {
	rows, err := t.db.Q().ListSkills(ctx, namespace, category)
	if err != nil {
		return nil, err
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.QualityScore() != b.QualityScore() {
			return a.QualityScore() > b.QualityScore()
		}
		if a.SuccessCount != b.SuccessCount {
			return a.SuccessCount > b.SuccessCount
		}
		return lastUsedAfter(a, b)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	out := make([]types.SkillSummary, len(rows))
	for i, s := range rows {
		out[i] = s.ToSummary()
	}
	return out, nil
}

func lastUsedAfter(a, b *types.Skill) bool {
	switch {
	case a.LastUsed == nil:
		return false
	case b.LastUsed == nil:
		return true
	default:
		return a.LastUsed.After(*b.LastUsed)
	}
}

// LoadFull returns the whole skill row for id in namespace, bumping
// last_used and the working tier's per-conversation cache. Returns
// ErrNotFound if the skill is absent or archived.
func (t *Tier) LoadFull(ctx context.Context, namespace, id string) (*types.Skill, error) {
	s, err := t.db.Q().GetSkill(ctx, id, namespace)
	if err != nil {
		return nil, err
	}
	if s.IsArchived {
		return nil, vesperrors.ErrNotFound.WithDetail("id", id)
	}
	if err := t.db.Q().UpdateSkillLastUsed(ctx, id); err != nil {
		return nil, err
	}
	s, err = t.db.Q().GetSkill(ctx, id, namespace)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		_ = t.cache.CacheSkill(ctx, namespace, *s, 0)
	}
	return s, nil
}

// scoredSkill pairs a skill with search's matchScore × qualityScore.
type scoredSkill struct {
	skill types.Skill
	score float64
}

// Search keyword-matches query against each skill's name, triggers, and
// category, scored by matchScore (fraction of query tokens matched)
// times QualityScore, returning up to limit SkillSummary rows.
func (t *Tier) Search(ctx context.Context, namespace, query string, limit int) ([]types.SkillSummary, error) {
	all, err := t.db.Q().ListSkills(ctx, namespace, "")
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	var scored []scoredSkill
	for _, s := range all {
		haystack := strings.ToLower(s.Name + " " + s.Category + " " + strings.Join(s.Triggers, " "))
		matched := 0
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		matchScore := float64(matched) / float64(len(tokens))
		scored = append(scored, scoredSkill{skill: *s, score: matchScore * s.QualityScore()})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]types.SkillSummary, len(scored))
	for i, sc := range scored {
		out[i] = sc.skill.ToSummary()
	}
	return out, nil
}

// DetectInvocation tries, in order, a literal-name match, a trigger
// match, then a generic "like before" reference, against every
// non-archived skill in namespace.
func (t *Tier) DetectInvocation(ctx context.Context, namespace, text string) (types.InvocationDetection, error) {
	all, err := t.db.Q().ListSkills(ctx, namespace, "")
	if err != nil {
		return types.InvocationDetection{}, err
	}
	return detectInvocation(all, text), nil
}

// RecordSuccess increments success_count and folds satisfaction into
// avg_user_satisfaction.
func (t *Tier) RecordSuccess(ctx context.Context, id string, satisfaction float64) error {
	return t.db.Q().RecordSkillSuccess(ctx, id, satisfaction)
}

// RecordFailure increments failure_count only.
func (t *Tier) RecordFailure(ctx context.Context, id string) error {
	return t.db.Q().RecordSkillFailure(ctx, id)
}
