// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package working

import (
	"context"
	"sort"
	"strings"

	"github.com/vesper-project/vesper/pkg/types"
)

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?;:\"'()")] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func recordTokens(r types.WorkingMemoryRecord) map[string]struct{} {
	set := tokenize(r.FullText)
	for _, e := range r.KeyEntities {
		for k := range tokenize(e) {
			set[k] = struct{}{}
		}
	}
	for _, tpc := range r.Topics {
		for k := range tokenize(tpc) {
			set[k] = struct{}{}
		}
	}
	for k := range tokenize(r.UserIntent) {
		set[k] = struct{}{}
	}
	return set
}

// Search ranks the tier's current records against query by token
// Jaccard overlap, returning up to k passages with strictly
// non-increasing similarity.
func (t *Tier) Search(ctx context.Context, namespace, query string, k int) ([]types.ScoredPassage, error) {
	records, err := t.GetRecent(ctx, namespace, t.capacity)
	if err != nil {
		return nil, err
	}
	queryTokens := tokenize(query)

	type scored struct {
		record types.WorkingMemoryRecord
		score  float64
	}
	scoredRecords := make([]scored, 0, len(records))
	for _, r := range records {
		score := jaccard(queryTokens, recordTokens(r))
		if score <= 0 {
			continue
		}
		scoredRecords = append(scoredRecords, scored{record: r, score: score})
	}
	sort.SliceStable(scoredRecords, func(i, j int) bool { return scoredRecords[i].score > scoredRecords[j].score })
	if k > 0 && len(scoredRecords) > k {
		scoredRecords = scoredRecords[:k]
	}

	passages := make([]types.ScoredPassage, 0, len(scoredRecords))
	for _, sr := range scoredRecords {
		passages = append(passages, types.ScoredPassage{
			ID:         sr.record.ConversationID,
			Content:    sr.record.FullText,
			Similarity: sr.score,
			Source:     types.SourceWorking,
			Timestamp:  sr.record.Timestamp,
		})
	}
	return passages, nil
}

// SearchByEntities scores each record by the coverage fraction of names
// found among its KeyEntities.
func (t *Tier) SearchByEntities(ctx context.Context, namespace string, names []string, k int) ([]types.ScoredPassage, error) {
	return t.searchByCoverage(ctx, namespace, names, k, func(r types.WorkingMemoryRecord) []string { return r.KeyEntities })
}

// SearchByTopics scores each record by the coverage fraction of topics
// found among its Topics.
func (t *Tier) SearchByTopics(ctx context.Context, namespace string, topics []string, k int) ([]types.ScoredPassage, error) {
	return t.searchByCoverage(ctx, namespace, topics, k, func(r types.WorkingMemoryRecord) []string { return r.Topics })
}

func (t *Tier) searchByCoverage(ctx context.Context, namespace string, query []string, k int, field func(types.WorkingMemoryRecord) []string) ([]types.ScoredPassage, error) {
	records, err := t.GetRecent(ctx, namespace, t.capacity)
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(query))
	for _, q := range query {
		wanted[strings.ToLower(q)] = struct{}{}
	}

	type scored struct {
		record types.WorkingMemoryRecord
		score  float64
	}
	scoredRecords := make([]scored, 0, len(records))
	for _, r := range records {
		have := make(map[string]struct{})
		for _, v := range field(r) {
			have[strings.ToLower(v)] = struct{}{}
		}
		if len(have) == 0 {
			continue
		}
		matched := 0
		for w := range wanted {
			if _, ok := have[w]; ok {
				matched++
			}
		}
		score := float64(matched) / float64(len(wanted))
		if score <= 0 {
			continue
		}
		scoredRecords = append(scoredRecords, scored{record: r, score: score})
	}
	sort.SliceStable(scoredRecords, func(i, j int) bool { return scoredRecords[i].score > scoredRecords[j].score })
	if k > 0 && len(scoredRecords) > k {
		scoredRecords = scoredRecords[:k]
	}

	passages := make([]types.ScoredPassage, 0, len(scoredRecords))
	for _, sr := range scoredRecords {
		passages = append(passages, types.ScoredPassage{
			ID:         sr.record.ConversationID,
			Content:    sr.record.FullText,
			Similarity: sr.score,
			Source:     types.SourceWorking,
			Timestamp:  sr.record.Timestamp,
		})
	}
	return passages, nil
}
