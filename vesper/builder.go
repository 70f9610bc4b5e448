// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"github.com/redis/go-redis/v9"

	"github.com/vesper-project/vesper/config"
	"github.com/vesper-project/vesper/consolidation"
	"github.com/vesper-project/vesper/observability/logging"
	"github.com/vesper-project/vesper/observability/metrics"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/ratelimit"
	"github.com/vesper-project/vesper/router"
	"github.com/vesper-project/vesper/search"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/tiers/semantic"
	"github.com/vesper-project/vesper/tiers/skills"
	"github.com/vesper-project/vesper/tiers/working"
)

// Builder provides a fluent API for assembling a Store.
//
// The builder pattern allows for progressive complexity:
//   - Minimal: New(cfg).WithDB(db).WithCache(c).Build()
//   - Full: every adapter, the rate limiter's Redis client, logging
//     and metrics all wired before Build.
type Builder struct {
	cfg *config.Config

	db           *storage.DB
	cacheBackend working.Backend
	index        VectorIndex
	searchIndex  search.Index
	embedder     Embedder
	redisClient  *redis.Client
	logger       logging.Logger
	collector    metrics.Collector

	workingCapacity int

	errors []error
}

// New starts a builder from cfg. A nil cfg falls back to
// config.DefaultConfig() without environment overrides.
func New(cfg *config.Config) *Builder {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Builder{cfg: cfg, workingCapacity: config.DefaultWorkingMemoryCapacity}
}

// WithDB sets the relational store the semantic and skill tiers, the
// consolidation pipeline, and every MemoryRow operation persist to.
func (b *Builder) WithDB(db *storage.DB) *Builder {
	b.db = db
	return b
}

// WithCache sets the cache backend for the working tier, the hybrid
// engine's query cache, and the consolidation advisory lock.
func (b *Builder) WithCache(c working.Backend) *Builder {
	b.cacheBackend = c
	return b
}

// WithVectorIndex sets the vector index adapter used for writes and
// collection stats.
func (b *Builder) WithVectorIndex(ix VectorIndex) *Builder {
	b.index = ix
	return b
}

// WithSearchIndex sets the dense/sparse search view the hybrid engine
// fans out over. When the value passed to WithVectorIndex also
// implements search.Index (the production adapter does), this call is
// unnecessary: Build falls back to that.
func (b *Builder) WithSearchIndex(ix search.Index) *Builder {
	b.searchIndex = ix
	return b
}

// WithEmbedder sets the external embedding client. Optional: without
// one, store_memory persists rows without sibling vectors and COMPLEX
// retrieval requires a caller-supplied query vector.
func (b *Builder) WithEmbedder(e Embedder) *Builder {
	b.embedder = e
	return b
}

// WithRateLimitClient sets the Redis client the rate limit checker keeps
// its sorted-set windows in. Without one the checker uses its in-process
// fallback.
func (b *Builder) WithRateLimitClient(client *redis.Client) *Builder {
	b.redisClient = client
	return b
}

// WithLogger sets the structured logger.
func (b *Builder) WithLogger(l logging.Logger) *Builder {
	b.logger = l
	return b
}

// WithMetrics sets the metrics collector Build registers the tool
// metrics against; Build creates no embedding metrics from it.
func (b *Builder) WithMetrics(c metrics.Collector) *Builder {
	b.collector = c
	return b
}

// WithWorkingCapacity overrides K_WM, the working tier's bound.
func (b *Builder) WithWorkingCapacity(n int) *Builder {
	if n > 0 {
		b.workingCapacity = n
	}
	return b
}

// Build validates the accumulated configuration and assembles the
// Store. The store starts enabled.
func (b *Builder) Build() (*Store, error) {
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if b.db == nil {
		return nil, vesperrors.ErrConfigurationError.WithMessage("vesper: a relational store is required (WithDB)")
	}
	if b.cacheBackend == nil {
		return nil, vesperrors.ErrConfigurationError.WithMessage("vesper: a cache backend is required (WithCache)")
	}

	searchIndex := b.searchIndex
	if searchIndex == nil {
		if si, ok := b.index.(search.Index); ok {
			searchIndex = si
		}
	}

	workingTier := working.New(b.cacheBackend, b.workingCapacity, 0, 0)
	semanticTier := semantic.New(b.db, b.cfg.Semantic)
	skillTier := skills.New(b.db, workingTier)

	var engine *search.Engine
	if searchIndex != nil {
		engine = search.New(searchIndex, b.cacheBackend)
	}

	rt := router.New(workingTier, semanticTier, skillTier, engine, b.embedder)

	checker := ratelimit.NewChecker(b.cfg.RateLimit, b.redisClient)

	pipeline := consolidation.NewPipeline(b.db, workingTier, semanticTier, skillTier, b.cfg.Semantic.RelationshipHalfLife)
	scheduler := consolidation.NewScheduler(b.db, b.cacheBackend, pipeline, b.logger, b.cfg.Consolidation.LockTTL)

	var toolMetrics *metrics.ToolMetrics
	if b.collector != nil {
		toolMetrics = metrics.NewToolMetrics(b.collector)
	}

	s := &Store{
		cfg:       b.cfg,
		db:        b.db,
		index:     b.index,
		embedder:  b.embedder,
		working:   workingTier,
		semantic:  semanticTier,
		skills:    skillTier,
		hybrid:    engine,
		router:    rt,
		checker:   checker,
		gate:      ratelimit.NewMiddleware(checker),
		scheduler: scheduler,
		logger:    b.logger,
		metrics:   toolMetrics,
	}
	s.active.Store(true)
	return s, nil
}
