// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package working

import (
	"context"
	"testing"
	"time"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/pkg/types"
)

func newTestTier() *Tier {
	c := cache.NewMemoryCache(cache.DefaultCacheConfig())
	return New(c, 3, time.Hour, time.Minute)
}

func TestTier_StoreAndEviction(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier()

	base := time.Now()
	for i := 0; i < 5; i++ {
		err := tier.Store(ctx, "ns1", types.WorkingMemoryRecord{
			ConversationID: string(rune('a' + i)),
			Timestamp:      base.Add(time.Duration(i) * time.Second),
			FullText:       "message",
		})
		if err != nil {
			t.Fatalf("Store(%d) failed: %v", i, err)
		}
	}

	recent, err := tier.GetRecent(ctx, "ns1", 10)
	if err != nil {
		t.Fatalf("GetRecent failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected capacity-bound 3 records, got %d", len(recent))
	}
	if recent[0].ConversationID != "e" {
		t.Errorf("expected newest record first, got %q", recent[0].ConversationID)
	}

	if _, ok := tier.Get(ctx, "ns1", "a"); ok {
		t.Error("record 'a' should have been evicted")
	}
}

func TestTier_Search(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier()

	_ = tier.Store(ctx, "ns1", types.WorkingMemoryRecord{
		ConversationID: "c1",
		Timestamp:      time.Now(),
		FullText:       "the deployment pipeline failed last night",
		KeyEntities:    []string{"pipeline"},
	})
	_ = tier.Store(ctx, "ns1", types.WorkingMemoryRecord{
		ConversationID: "c2",
		Timestamp:      time.Now().Add(time.Second),
		FullText:       "coffee preferences discussion",
	})

	passages, err := tier.Search(ctx, "ns1", "deployment pipeline", 5)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(passages) == 0 || passages[0].ID != "c1" {
		t.Fatalf("expected c1 to rank first, got %+v", passages)
	}
}

func TestTier_SkillSubCache(t *testing.T) {
	ctx := context.Background()
	tier := newTestTier()

	skill := types.Skill{ID: "skill-1", Name: "deploy-helper"}
	if err := tier.CacheSkill(ctx, "ns1", skill, time.Minute); err != nil {
		t.Fatalf("CacheSkill failed: %v", err)
	}

	cached, ok := tier.GetCachedSkill(ctx, "ns1", "skill-1")
	if !ok || cached.AccessCount != 1 {
		t.Fatalf("expected access_count 1 on first hit, got %+v ok=%v", cached, ok)
	}
	cached, ok = tier.GetCachedSkill(ctx, "ns1", "skill-1")
	if !ok || cached.AccessCount != 2 {
		t.Fatalf("expected access_count 2 on second hit, got %+v ok=%v", cached, ok)
	}

	ids, err := tier.GetCachedSkillIds(ctx, "ns1")
	if err != nil || len(ids) != 1 || ids[0] != "skill-1" {
		t.Fatalf("GetCachedSkillIds = %v, err=%v", ids, err)
	}

	if err := tier.InvalidateSkillCache(ctx, "ns1", "skill-1"); err != nil {
		t.Fatalf("InvalidateSkillCache failed: %v", err)
	}
	if _, ok := tier.GetCachedSkill(ctx, "ns1", "skill-1"); ok {
		t.Error("skill should be gone after invalidation")
	}
}
