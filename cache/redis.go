// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
)

// RedisCache implements Cache and SortedSetCache against a single Redis
// logical database (DBSlot), as component C's external in-memory store.
type RedisCache struct {
	client *redis.Client
	slot   DBSlot
	stats  CacheStats
}

// RedisConfig configures the connection to the backing Redis instance.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// NewRedisCache dials Redis on the given slot's logical database.
func NewRedisCache(cfg RedisConfig, slot DBSlot) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr(cfg),
		Password: cfg.Password,
		DB:       int(slot),
	})
	return &RedisCache{client: client, slot: slot}
}

func addr(cfg RedisConfig) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 6379
	}
	return host + ":" + itoa(port)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Ping verifies Redis is reachable, surfaced to observability/health.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return vesperrors.ErrConnectionRefused.Wrap(err)
	}
	return nil
}

// Get retrieves and JSON-decodes a value.
func (c *RedisCache) Get(ctx context.Context, key string) (interface{}, bool) {
	raw, err := c.client.Get(ctx, key).Result()
	if err != nil {
		c.stats.Misses++
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, false
	}
	c.stats.Hits++
	return v, true
}

// Set JSON-encodes and stores a value with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return vesperrors.ErrInvalidInput.Wrap(err)
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	c.stats.Sets++
	return nil
}

// Delete removes a key.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	c.stats.Deletes++
	return nil
}

// Clear flushes this slot's logical database only.
func (c *RedisCache) Clear(ctx context.Context) error {
	return c.client.FlushDB(ctx).Err()
}

// Stats returns the in-process counters this adapter has observed
// (Redis itself does not track per-client hit/miss counts).
func (c *RedisCache) Stats() CacheStats { return c.stats }

// Close closes the underlying connection pool.
func (c *RedisCache) Close() error { return c.client.Close() }

// ZAddWithTTL adds member with score and resets the key's TTL.
func (c *RedisCache) ZAddWithTTL(ctx context.Context, key string, score float64, member string, ttl time.Duration) error {
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// ZRangeByScoreDesc returns members scored within [min, max], descending.
func (c *RedisCache) ZRangeByScoreDesc(ctx context.Context, key string, min, max float64, limit int) ([]string, error) {
	opt := &redis.ZRangeBy{Min: ftoa(min), Max: ftoa(max)}
	if limit > 0 {
		opt.Count = int64(limit)
	}
	members, err := c.client.ZRevRangeByScore(ctx, key, opt).Result()
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return members, nil
}

func ftoa(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "+inf"
	case math.IsInf(f, -1):
		return "-inf"
	default:
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
}

// ZRemRangeByRank removes members outside the top keepTopN (by
// descending score) and returns the removed members.
func (c *RedisCache) ZRemRangeByRank(ctx context.Context, key string, keepTopN int) ([]string, error) {
	card, err := c.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	if card <= int64(keepTopN) {
		return nil, nil
	}
	// Redis ranks ascending by score; the bottom (card-keepTopN) members
	// by ascending rank are the ones to trim once keepTopN are kept at
	// the top by score.
	removed, err := c.client.ZRange(ctx, key, 0, card-int64(keepTopN)-1).Result()
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	if err := c.client.ZRemRangeByRank(ctx, key, 0, card-int64(keepTopN)-1).Err(); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return removed, nil
}

// ZCard returns the number of members in the sorted set.
func (c *RedisCache) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := c.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return n, nil
}

// Keys lists keys matching a glob-style pattern via Redis SCAN.
func (c *RedisCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return out, nil
}

// IncrHash atomically increments field within hash key by delta.
func (c *RedisCache) IncrHash(ctx context.Context, key, field string, delta int64) (int64, error) {
	n, err := c.client.HIncrBy(ctx, key, field, delta).Result()
	if err != nil {
		return 0, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return n, nil
}
