// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package cache is the memory core's cache adapter (component C): an
external in-memory key/value store with TTL, plus the sorted-set
primitives the working-memory and rate-limit tiers build on.

Cache covers the simple get/set/delete/clear shape; SortedSetCache adds
ZAddWithTTL/ZRangeByScoreDesc/ZRemRangeByRank (trim-to-K)/Keys(pattern).
RedisCache implements both against github.com/redis/go-redis/v9;
MemoryCache (see memory_cache.go) implements both in-process for tests
and as the degraded-but-functional default when REDIS_HOST is unset.

Five logical databases are modelled as a DBSlot: 0 general, 1 working
memory, 2 skill cache, 3-5 test isolation, 4 rate-limit counters
(overridable).
*/
package cache

import (
	"context"
	"time"
)

// DBSlot names one of the cache adapter's logical databases. Each slot
// is isolated from the others even when backed by the same Redis
// instance (a distinct numeric Redis DB index), guaranteeing tests and
// production traffic never cross wires between e.g. the working-memory
// tier and the rate limiter.
type DBSlot int

const (
	SlotGeneral           DBSlot = 0
	SlotWorkingMemory     DBSlot = 1
	SlotSkillCache        DBSlot = 2
	SlotTestIsolationLow  DBSlot = 3
	SlotRateLimit         DBSlot = 4
	SlotTestIsolationHigh DBSlot = 5
)

// Cache defines the interface for the adapter's simple TTL'd key/value
// operations.
type Cache interface {
	// Get retrieves a value from cache.
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value from cache.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries from cache.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() CacheStats

	// Close closes the cache.
	Close() error
}

// SortedSetCache adds the sorted-set primitives the working-memory
// tier's append-then-trim eviction and the distributed rate limiter's
// sliding-window counts are built on.
type SortedSetCache interface {
	// ZAddWithTTL adds member with score to the sorted set at key and
	// (re)sets the key's TTL.
	ZAddWithTTL(ctx context.Context, key string, score float64, member string, ttl time.Duration) error

	// ZRangeByScoreDesc returns members in [min, max] ordered by score
	// descending, capped at limit (0 = unbounded).
	ZRangeByScoreDesc(ctx context.Context, key string, min, max float64, limit int) ([]string, error)

	// ZRemRangeByRank removes members ranked outside the top keepTopN
	// (by descending score) and returns the removed members — the
	// working tier's eviction primitive.
	ZRemRangeByRank(ctx context.Context, key string, keepTopN int) ([]string, error)

	// ZCard returns the number of members in the sorted set.
	ZCard(ctx context.Context, key string) (int64, error)

	// Keys lists keys matching a glob-style pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// IncrHash atomically increments a field within a hash key, used by
	// the skill cache's access_count bump on a cache hit.
	IncrHash(ctx context.Context, key, field string, delta int64) (int64, error)
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Hits          int64
	Misses        int64
	Sets          int64
	Deletes       int64
	Evictions     int64
	Size          int
	MaxSize       int
	HitRate       float64
	MemoryUsageKB int64
}

// CacheConfig holds in-process cache configuration (MemoryCache only;
// RedisCache has no size cap of its own).
type CacheConfig struct {
	// MaxSize is the maximum number of entries.
	MaxSize int

	// DefaultTTL is the default time-to-live.
	DefaultTTL time.Duration

	// EvictionPolicy determines how entries are evicted.
	EvictionPolicy EvictionPolicy

	// EnableMetrics enables cache metrics collection.
	EnableMetrics bool
}

// EvictionPolicy determines how cache entries are evicted.
type EvictionPolicy string

const (
	EvictionPolicyLRU  EvictionPolicy = "lru"
	EvictionPolicyLFU  EvictionPolicy = "lfu"
	EvictionPolicyFIFO EvictionPolicy = "fifo"
	EvictionPolicyTTL  EvictionPolicy = "ttl"
)

// DefaultCacheConfig returns default in-process cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize:        10000,
		DefaultTTL:     5 * time.Minute,
		EvictionPolicy: EvictionPolicyLRU,
		EnableMetrics:  true,
	}
}
