// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

//go:build integration

package working

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/pkg/types"
)

// Needs a live Redis; point REDIS_HOST/REDIS_PORT at it and run with
// -tags integration. Uses the test-isolation DB slots so it never
// touches production keys.

func openTestBackend(t *testing.T) *cache.RedisCache {
	t.Helper()
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		host = "localhost"
	}
	port := 6379
	if p := os.Getenv("REDIS_PORT"); p != "" {
		parsed, err := strconv.Atoi(p)
		require.NoError(t, err)
		port = parsed
	}
	c := cache.NewRedisCache(cache.RedisConfig{
		Host:     host,
		Port:     port,
		Password: os.Getenv("REDIS_PASSWORD"),
	}, cache.SlotTestIsolationLow)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, c.Ping(ctx), "no Redis reachable at %s:%d", host, port)
	require.NoError(t, c.Clear(ctx))
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestIntegration_StoreEvictsOldestBeyondCapacity(t *testing.T) {
	ctx := context.Background()
	tier := New(openTestBackend(t), 3, time.Hour, time.Minute)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, tier.Store(ctx, "it", types.WorkingMemoryRecord{
			ConversationID: "c" + strconv.Itoa(i),
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
			FullText:       "conversation " + strconv.Itoa(i),
		}))
	}

	recent, err := tier.GetRecent(ctx, "it", 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	// Newest first; the two oldest records were evicted.
	require.Equal(t, "c4", recent[0].ConversationID)
	require.Equal(t, "c2", recent[2].ConversationID)

	_, ok := tier.Get(ctx, "it", "c0")
	require.False(t, ok, "evicted record must be gone")
}

func TestIntegration_SkillCacheCountsHits(t *testing.T) {
	ctx := context.Background()
	tier := New(openTestBackend(t), 3, time.Hour, time.Minute)

	skill := types.Skill{ID: "s1", Name: "deploy", Summary: "deploys the service", Namespace: "it"}
	require.NoError(t, tier.CacheSkill(ctx, "it", skill, time.Minute))

	first, ok := tier.GetCachedSkill(ctx, "it", "s1")
	require.True(t, ok)
	second, ok := tier.GetCachedSkill(ctx, "it", "s1")
	require.True(t, ok)
	require.Greater(t, second.AccessCount, first.AccessCount)

	require.NoError(t, tier.InvalidateSkillCache(ctx, "it", "s1"))
	_, ok = tier.GetCachedSkill(ctx, "it", "s1")
	require.False(t, ok)
}
