// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vesper-project/vesper/config"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

// Checker enforces per-(subject, operation) sliding-window limits under
// one of the three named tiers. Subject is normally a namespace. When
// redisClient is nil, Checker falls back to an in-process SlidingWindow
// per operation — correct for a single-process deployment or for tests,
// but not shared across processes, and fail-open/fail-closed never
// triggers since the fallback cannot fail the way a network call can.
type Checker struct {
	cfg    config.RateLimitConfig
	client *redis.Client

	mu       sync.Mutex
	fallback map[string]*SlidingWindow
}

// NewChecker creates a Checker from the process's rate-limit
// configuration. Pass a nil redisClient to use the in-process fallback
// exclusively.
func NewChecker(cfg config.RateLimitConfig, redisClient *redis.Client) *Checker {
	return &Checker{
		cfg:      cfg,
		client:   redisClient,
		fallback: make(map[string]*SlidingWindow),
	}
}

// Check evaluates whether a request for (subject, operation) is allowed
// under the configured tier, returning the decision the caller surfaces
// to the tool-call response (allowed, remaining, reset time, headers).
//
// If the backing Redis instance is unreachable, Check either fails open
// (admits the request with an `X-RateLimit-Bypass` header) or fails
// closed (returns `pkg/errors.ErrRateLimiterUnavailable`, statusCode 503),
// per cfg.FailOpen.
func (c *Checker) Check(ctx context.Context, subject, operation string) (types.RateLimitDecision, error) {
	limit := c.resolveLimit(operation)

	if c.client == nil {
		return c.checkFallback(subject, operation, limit), nil
	}

	decision, err := c.checkRedis(ctx, subject, operation, limit)
	if err == nil {
		return decision, nil
	}

	if c.cfg.FailOpen {
		return types.RateLimitDecision{
			Allowed: true,
			Headers: map[string]string{"X-RateLimit-Bypass": "true"},
		}, nil
	}

	return types.RateLimitDecision{}, vesperrors.ErrRateLimiterUnavailable.
		WithDetail("statusCode", 503).
		WithDetail("retryAfter", int(limit.Window.Seconds())).
		Wrap(err)
}

func (c *Checker) resolveLimit(operation string) OperationLimit {
	tier := c.cfg.DefaultTier
	if tier == "" {
		tier = config.TierStandard
	}

	limit := limitFor(tier, operation)
	if override, ok := c.cfg.Overrides[operation]; ok && override > 0 {
		limit.Count = override
	}
	return limit
}

func (c *Checker) checkFallback(subject, operation string, limit OperationLimit) types.RateLimitDecision {
	c.mu.Lock()
	key := subject + ":" + operation
	sw, ok := c.fallback[key]
	if !ok {
		sw = NewSlidingWindow(SlidingWindowConfig{
			Limit:  limit.Count,
			Window: limit.Window,
			Config: DefaultConfig(),
		})
		c.fallback[key] = sw
	}
	c.mu.Unlock()

	allowed := sw.Allow(key)
	decision := types.RateLimitDecision{Allowed: allowed}
	if !allowed {
		retryAfter := sw.Reserve(key)
		decision.ResetAt = time.Now().Add(retryAfter)
		decision.Headers = map[string]string{
			"Retry-After": fmt.Sprintf("%d", int(retryAfter.Seconds())+1),
		}
	}
	return decision
}

func (c *Checker) checkRedis(ctx context.Context, subject, operation string, limit OperationLimit) (types.RateLimitDecision, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", subject, operation)
	now := time.Now()
	windowStart := now.Add(-limit.Window)

	pipe := c.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return types.RateLimitDecision{}, err
	}

	current := int(countCmd.Val())
	if current >= limit.Count {
		return types.RateLimitDecision{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   now.Add(limit.Window),
			Headers: map[string]string{
				"Retry-After": fmt.Sprintf("%d", int(limit.Window.Seconds())),
			},
		}, nil
	}

	add := c.client.Pipeline()
	add.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: fmt.Sprintf("%d", now.UnixNano())})
	add.Expire(ctx, key, limit.Window*2)
	if _, err := add.Exec(ctx); err != nil {
		return types.RateLimitDecision{}, err
	}

	return types.RateLimitDecision{
		Allowed:   true,
		Remaining: limit.Count - current - 1,
		ResetAt:   now.Add(limit.Window),
	}, nil
}
