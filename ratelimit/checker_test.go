// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package ratelimit

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/vesper-project/vesper/config"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
)

func TestChecker_FallbackEnforcesOverride(t *testing.T) {
	cfg := config.RateLimitConfig{
		DefaultTier: config.TierStandard,
		Overrides:   map[string]int{"store_memory": 3},
	}
	c := NewChecker(cfg, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := c.Check(ctx, "ns1", "store_memory")
		if err != nil {
			t.Fatalf("Check %d failed: %v", i, err)
		}
		if !decision.Allowed {
			t.Fatalf("request %d denied below the limit", i)
		}
	}

	decision, err := c.Check(ctx, "ns1", "store_memory")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if decision.Allowed {
		t.Fatal("request over the limit must be denied")
	}
	if decision.Headers["Retry-After"] == "" {
		t.Fatal("denied decision must carry Retry-After")
	}
}

func TestChecker_SubjectsAreIsolated(t *testing.T) {
	cfg := config.RateLimitConfig{
		DefaultTier: config.TierStandard,
		Overrides:   map[string]int{"store_memory": 1},
	}
	c := NewChecker(cfg, nil)
	ctx := context.Background()

	if d, _ := c.Check(ctx, "ns1", "store_memory"); !d.Allowed {
		t.Fatal("first ns1 request denied")
	}
	if d, _ := c.Check(ctx, "ns1", "store_memory"); d.Allowed {
		t.Fatal("second ns1 request must be denied")
	}
	// A different subject has its own window.
	if d, _ := c.Check(ctx, "ns2", "store_memory"); !d.Allowed {
		t.Fatal("ns2 must not share ns1's window")
	}
}

func TestChecker_UnlimitedTier(t *testing.T) {
	cfg := config.RateLimitConfig{DefaultTier: config.TierUnlimited}
	c := NewChecker(cfg, nil)
	ctx := context.Background()

	for i := 0; i < 500; i++ {
		d, err := c.Check(ctx, "ns1", "retrieve_memory")
		if err != nil || !d.Allowed {
			t.Fatalf("unlimited tier denied request %d: %v", i, err)
		}
	}
}

// unreachableRedis returns a client pointed at a port nothing listens
// on, so every command fails with a connection error immediately.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1})
}

func TestChecker_FailClosedWhenControlStoreUnreachable(t *testing.T) {
	cfg := config.RateLimitConfig{DefaultTier: config.TierStandard, FailOpen: false}
	c := NewChecker(cfg, unreachableRedis())

	_, err := c.Check(context.Background(), "u1", "store_memory")
	if err == nil {
		t.Fatal("expected a fail-closed error")
	}
	if !vesperrors.Is(err, vesperrors.ErrRateLimiterUnavailable) {
		t.Fatalf("error = %v, want ErrRateLimiterUnavailable", err)
	}
	var typed *vesperrors.Error
	if !vesperrors.As(err, &typed) {
		t.Fatalf("error is not a *vesperrors.Error: %v", err)
	}
	if typed.Details["statusCode"] != 503 {
		t.Fatalf("statusCode = %v, want 503", typed.Details["statusCode"])
	}
	if retry, ok := typed.Details["retryAfter"].(int); !ok || retry <= 0 {
		t.Fatalf("retryAfter = %v, want > 0", typed.Details["retryAfter"])
	}
}

func TestChecker_FailOpenBypasses(t *testing.T) {
	cfg := config.RateLimitConfig{DefaultTier: config.TierStandard, FailOpen: true}
	c := NewChecker(cfg, unreachableRedis())

	decision, err := c.Check(context.Background(), "u1", "store_memory")
	if err != nil {
		t.Fatalf("fail-open must not error: %v", err)
	}
	if !decision.Allowed {
		t.Fatal("fail-open must admit the request")
	}
	if decision.Headers["X-RateLimit-Bypass"] != "true" {
		t.Fatalf("headers = %v, want X-RateLimit-Bypass=true", decision.Headers)
	}
}
