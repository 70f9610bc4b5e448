// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package skills

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/tiers/working"
)

func newTestTier(t *testing.T) *Tier {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	wc := working.New(cache.NewMemoryCache(cache.DefaultCacheConfig()), 5, time.Hour, time.Minute)
	return New(db, wc)
}

func TestTier_AddAndLoadFull(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	id, err := tier.AddSkill(ctx, &types.Skill{
		Name:      "deploy-helper",
		Summary:   "deploys the staging environment",
		Category:  "devops",
		Triggers:  []string{"deploy to staging"},
		Namespace: "ns1",
	})
	if err != nil {
		t.Fatalf("AddSkill failed: %v", err)
	}

	full, err := tier.LoadFull(ctx, "ns1", id)
	if err != nil {
		t.Fatalf("LoadFull failed: %v", err)
	}
	if full.Name != "deploy-helper" {
		t.Errorf("unexpected skill loaded: %+v", full)
	}
	if full.LastUsed == nil {
		t.Error("expected LastUsed to be set after LoadFull")
	}
}

func TestTier_GetSummariesOrdering(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	idLow, _ := tier.AddSkill(ctx, &types.Skill{Name: "low", Namespace: "ns1", AvgUserSatisfaction: 0.2})
	idHigh, _ := tier.AddSkill(ctx, &types.Skill{Name: "high", Namespace: "ns1", AvgUserSatisfaction: 0.9})
	_ = idLow

	if err := tier.RecordSuccess(ctx, idHigh, 0.9); err != nil {
		t.Fatalf("RecordSuccess failed: %v", err)
	}

	summaries, err := tier.GetSummaries(ctx, "ns1", "", 10)
	if err != nil {
		t.Fatalf("GetSummaries failed: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != idHigh {
		t.Fatalf("expected high-quality skill first, got %+v", summaries)
	}
}

func TestTier_Search(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier(t)

	_, _ = tier.AddSkill(ctx, &types.Skill{
		Name: "deploy-helper", Category: "devops", Triggers: []string{"deploy to staging"},
		Namespace: "ns1", AvgUserSatisfaction: 0.8,
	})
	_, _ = tier.AddSkill(ctx, &types.Skill{Name: "coffee-note", Category: "personal", Namespace: "ns1"})

	results, err := tier.Search(ctx, "ns1", "deploy staging", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) == 0 || results[0].Name != "deploy-helper" {
		t.Fatalf("expected deploy-helper to match, got %+v", results)
	}
}

func TestDetectInvocation(t *testing.T) {
	earlier := time.Now().Add(-time.Hour)
	recent := time.Now()
	all := []*types.Skill{
		{ID: "s1", Name: "deploy-helper", Triggers: []string{"deploy to staging"}, LastUsed: &earlier},
		{ID: "s2", Name: "report-builder", Triggers: []string{"build the weekly report"}, LastUsed: &recent},
	}

	d := detectInvocation(all, "please run deploy-helper now")
	if !d.IsInvocation || d.SkillID != "s1" {
		t.Fatalf("expected explicit-name match on s1, got %+v", d)
	}

	d = detectInvocation(all, "can you build the weekly report for me")
	if !d.IsInvocation || d.SkillID != "s2" {
		t.Fatalf("expected trigger match on s2, got %+v", d)
	}

	d = detectInvocation(all, "do that again like before")
	if !d.IsInvocation || d.SkillID != "s2" {
		t.Fatalf("expected generic reference to resolve to most recent skill s2, got %+v", d)
	}

	d = detectInvocation(all, "what's the weather today")
	if d.IsInvocation {
		t.Fatalf("expected no invocation, got %+v", d)
	}
}
