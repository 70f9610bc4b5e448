// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"
	"sync/atomic"

	"github.com/vesper-project/vesper/config"
	"github.com/vesper-project/vesper/consolidation"
	"github.com/vesper-project/vesper/observability/logging"
	"github.com/vesper-project/vesper/observability/metrics"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/ratelimit"
	"github.com/vesper-project/vesper/router"
	"github.com/vesper-project/vesper/search"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/tiers/semantic"
	"github.com/vesper-project/vesper/tiers/skills"
	"github.com/vesper-project/vesper/tiers/working"
)

// VectorIndex is the slice of the vector index adapter the facade
// needs for writes and stats. Search goes through the hybrid engine,
// which binds its own (dense+sparse) view of the index.
type VectorIndex interface {
	InitializeCollection(ctx context.Context, dimension int) error
	UpsertMemory(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error
	DeleteByID(ctx context.Context, id string) error
	GetCollectionStats(ctx context.Context) (types.CollectionStats, error)
}

// Embedder mirrors router.Embedder: text in, fixed-dimension vector
// out. The production implementation is embedding.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Store is the assembled memory core: every tool operation is a method
// on it, and Catalog exposes those methods as tools.Tool values.
type Store struct {
	cfg *config.Config

	db       *storage.DB
	index    VectorIndex
	embedder Embedder

	working  *working.Tier
	semantic *semantic.Tier
	skills   *skills.Tier
	hybrid   *search.Engine
	router   *router.Router

	checker *ratelimit.Checker
	gate    ratelimit.Middleware

	scheduler *consolidation.Scheduler

	logger  logging.Logger
	metrics *metrics.ToolMetrics

	// active is the process-local vesper_enable/disable toggle. When
	// false, writes short-circuit and retrieval returns an empty list.
	active atomic.Bool
}

// Router exposes the smart router, mainly for tests that want to
// assert on classification alongside retrieval.
func (s *Store) Router() *router.Router { return s.router }

// Working exposes the working tier for the consolidation trigger path.
func (s *Store) Working() *working.Tier { return s.working }

// Semantic exposes the semantic tier.
func (s *Store) Semantic() *semantic.Tier { return s.semantic }

// Skills exposes the skill library tier.
func (s *Store) Skills() *skills.Tier { return s.skills }

// Enable turns the store on. Idempotent.
func (s *Store) Enable() { s.active.Store(true) }

// Disable turns the store off: subsequent writes short-circuit and
// retrieval returns an empty list until Enable is called. Idempotent.
func (s *Store) Disable() { s.active.Store(false) }

// Active reports the current toggle state.
func (s *Store) Active() bool { return s.active.Load() }

// StatusResult is the vesper_status payload.
type StatusResult struct {
	Active bool `json:"active"`
}

// Status reports the toggle for the vesper_status tool.
func (s *Store) Status() StatusResult {
	return StatusResult{Active: s.active.Load()}
}

// StartConsolidation starts the daily consolidation scheduler with the
// configured cron schedule. Redundant calls are no-ops.
func (s *Store) StartConsolidation() error {
	if s.scheduler == nil {
		return nil
	}
	return s.scheduler.Start(s.cfg.Consolidation.Schedule)
}

// StopConsolidation stops the scheduler; a no-op when never started.
func (s *Store) StopConsolidation() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

// RunConsolidationNow triggers a manual consolidation pass across every
// namespace with working-tier activity, under the same advisory lock
// the scheduled run takes.
func (s *Store) RunConsolidationNow(ctx context.Context) {
	if s.scheduler != nil {
		s.scheduler.RunNow(ctx)
	}
}

// gated runs fn behind the rate limiter for (namespace, operation).
// Build always installs a gate; fn runs directly only on a Store whose
// gate is nil.
func (s *Store) gated(ctx context.Context, namespace, operation string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if s.gate == nil {
		return fn(ctx)
	}
	handler := s.gate(func(ctx context.Context, _, _ string) (interface{}, error) {
		return fn(ctx)
	})
	out, err := handler(ctx, namespace, operation)
	if err != nil && s.metrics != nil && vesperrors.IsRateLimitExceeded(err) {
		s.metrics.RecordRateLimitRejected(namespace, operation, string(s.cfg.RateLimit.DefaultTier))
	}
	return out, err
}

func (s *Store) logInfo(ctx context.Context, msg string, fields ...logging.Field) {
	if s.logger != nil {
		s.logger.Info(ctx, msg, fields...)
	}
}

func (s *Store) logWarn(ctx context.Context, msg string, fields ...logging.Field) {
	if s.logger != nil {
		s.logger.Warn(ctx, msg, fields...)
	}
}

// namespaceOrDefault applies the tool surface's namespace defaulting
// rule: an omitted namespace means "default". An explicitly empty
// string passed through a typed input struct has already been cleaned
// by validate, so by the time it reaches here empty means omitted.
func namespaceOrDefault(n string) string {
	if n == "" {
		return types.DefaultNamespace
	}
	return n
}
