// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

)

func TestMemoryCache_BasicOperations(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(CacheConfig{
		MaxSize:        10,
		DefaultTTL:     1 * time.Minute,
		EvictionPolicy: EvictionPolicyLRU,
	})
	defer cache.Close()

	// Test Set and Get
	err := cache.Set(ctx, "key1", "value1", 1*time.Minute)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, found := cache.Get(ctx, "key1")
	if !found {
		t.Fatal("Expected to find key1")
	}
	if value != "value1" {
		t.Errorf("Expected value1, got %v", value)
	}

	// Test Get non-existent key
	_, found = cache.Get(ctx, "nonexistent")
	if found {
		t.Error("Should not find nonexistent key")
	}

	// Test Delete
	err = cache.Delete(ctx, "key1")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_, found = cache.Get(ctx, "key1")
	if found {
		t.Error("Key should be deleted")
	}
}

func TestMemoryCache_TTLExpiration(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(CacheConfig{
		MaxSize:        10,
		DefaultTTL:     50 * time.Millisecond,
		EvictionPolicy: EvictionPolicyLRU,
	})
	defer cache.Close()

	// Set with short TTL
	err := cache.Set(ctx, "key1", "value1", 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Should exist immediately
	_, found := cache.Get(ctx, "key1")
	if !found {
		t.Error("Key should exist")
	}

	// Wait for expiration
	time.Sleep(150 * time.Millisecond)

	// Should be expired
	_, found = cache.Get(ctx, "key1")
	if found {
		t.Error("Key should be expired")
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(CacheConfig{
		MaxSize:        10,
		DefaultTTL:     1 * time.Minute,
		EvictionPolicy: EvictionPolicyLRU,
	})
	defer cache.Close()

	// Add multiple entries
	cache.Set(ctx, "key1", "value1", 1*time.Minute)
	cache.Set(ctx, "key2", "value2", 1*time.Minute)
	cache.Set(ctx, "key3", "value3", 1*time.Minute)

	stats := cache.Stats()
	if stats.Size != 3 {
		t.Errorf("Expected size 3, got %d", stats.Size)
	}

	// Clear cache
	err := cache.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats = cache.Stats()
	if stats.Size != 0 {
		t.Errorf("Expected size 0 after clear, got %d", stats.Size)
	}

	_, found := cache.Get(ctx, "key1")
	if found {
		t.Error("Key should not exist after clear")
	}
}

func TestMemoryCache_LRUEviction(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(CacheConfig{
		MaxSize:        3,
		DefaultTTL:     1 * time.Minute,
		EvictionPolicy: EvictionPolicyLRU,
	})
	defer cache.Close()

	// Fill cache
	cache.Set(ctx, "key1", "value1", 1*time.Minute)
	cache.Set(ctx, "key2", "value2", 1*time.Minute)
	cache.Set(ctx, "key3", "value3", 1*time.Minute)

	// Access key1 to make it recently used
	cache.Get(ctx, "key1")

	// Add new entry, should evict key2 (least recently used)
	cache.Set(ctx, "key4", "value4", 1*time.Minute)

	// key2 should be evicted
	_, found := cache.Get(ctx, "key2")
	if found {
		t.Error("key2 should be evicted")
	}

	// key1 should still exist
	_, found = cache.Get(ctx, "key1")
	if !found {
		t.Error("key1 should still exist")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(CacheConfig{
		MaxSize:        10,
		DefaultTTL:     1 * time.Minute,
		EvictionPolicy: EvictionPolicyLRU,
		EnableMetrics:  true,
	})
	defer cache.Close()

	// Set some values
	cache.Set(ctx, "key1", "value1", 1*time.Minute)
	cache.Set(ctx, "key2", "value2", 1*time.Minute)

	// Generate hits
	cache.Get(ctx, "key1")
	cache.Get(ctx, "key1")

	// Generate miss
	cache.Get(ctx, "nonexistent")

	stats := cache.Stats()

	if stats.Sets != 2 {
		t.Errorf("Expected 2 sets, got %d", stats.Sets)
	}

	if stats.Hits != 2 {
		t.Errorf("Expected 2 hits, got %d", stats.Hits)
	}

	if stats.Misses != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses)
	}

	expectedHitRate := float64(2) / float64(3)
	if stats.HitRate < expectedHitRate-0.01 || stats.HitRate > expectedHitRate+0.01 {
		t.Errorf("Expected hit rate ~%.2f, got %.2f", expectedHitRate, stats.HitRate)
	}

	if stats.Size != 2 {
		t.Errorf("Expected size 2, got %d", stats.Size)
	}
}


func TestMemoryCache_SortedSetAppendAndTrim(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(DefaultCacheConfig())
	defer c.Close()

	key := "working:ns:index"
	for i := 0; i < 5; i++ {
		if err := c.ZAddWithTTL(ctx, key, float64(i), string(rune('a'+i)), time.Minute); err != nil {
			t.Fatalf("ZAddWithTTL failed: %v", err)
		}
	}

	card, err := c.ZCard(ctx, key)
	if err != nil || card != 5 {
		t.Fatalf("expected 5 members, got %d (err=%v)", card, err)
	}

	removed, err := c.ZRemRangeByRank(ctx, key, 3)
	if err != nil {
		t.Fatalf("ZRemRangeByRank failed: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed members, got %d", len(removed))
	}

	card, _ = c.ZCard(ctx, key)
	if card != 3 {
		t.Fatalf("expected 3 members remaining, got %d", card)
	}

	members, err := c.ZRangeByScoreDesc(ctx, key, 0, 10, 0)
	if err != nil {
		t.Fatalf("ZRangeByScoreDesc failed: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	// highest score first
	if members[0] != "e" {
		t.Fatalf("expected top member 'e', got %q", members[0])
	}
}

func TestMemoryCache_IncrHash(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(DefaultCacheConfig())
	defer c.Close()

	n, err := c.IncrHash(ctx, "skill-cache:ns:s1", "access_count", 1)
	if err != nil || n != 1 {
		t.Fatalf("expected 1, got %d (err=%v)", n, err)
	}
	n, err = c.IncrHash(ctx, "skill-cache:ns:s1", "access_count", 1)
	if err != nil || n != 2 {
		t.Fatalf("expected 2, got %d (err=%v)", n, err)
	}
}

func TestMemoryCache_KeysPattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(DefaultCacheConfig())
	defer c.Close()

	c.Set(ctx, "hybrid:ns1:q1", "v", time.Minute)
	c.Set(ctx, "hybrid:ns1:q2", "v", time.Minute)
	c.Set(ctx, "hybrid:ns2:q1", "v", time.Minute)

	keys, err := c.Keys(ctx, "hybrid:ns1:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %d: %v", len(keys), keys)
	}
}
