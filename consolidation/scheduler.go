// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package consolidation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/observability/logging"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
)

// lockKey is the single cache key the advisory lock is held under,
// guaranteeing at most one consolidation run proceeds process-wide at a
// time.
const lockKey = "consolidation:lock"

// maxNamespaceWorkers bounds how many namespaces a single scheduled run
// consolidates concurrently — a small worker pool, not one goroutine per
// namespace.
const maxNamespaceWorkers = 4

// Scheduler fires Pipeline.RunNamespace for every active namespace on a
// fixed cron schedule. Start is idempotent: calling it twice has no
// additional effect. Stop on a scheduler that was never started, or
// already stopped, is also a no-op.
type Scheduler struct {
	cron     *cron.Cron
	db       *storage.DB
	cache    cache.Cache
	pipeline *Pipeline
	logger   logging.Logger
	lockTTL  time.Duration

	startOnce sync.Once
	entryID   cron.EntryID
	started   bool
	mu        sync.Mutex

	runCount int64
}

// NewScheduler builds a Scheduler. schedule is a standard five-field
// cron expression; lockTTL bounds how long the advisory lock survives
// without being released, in case a run crashes mid-flight.
func NewScheduler(db *storage.DB, c cache.Cache, pipeline *Pipeline, logger logging.Logger, lockTTL time.Duration) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	return &Scheduler{
		cron:     cron.New(),
		db:       db,
		cache:    c,
		pipeline: pipeline,
		logger:   logger,
		lockTTL:  lockTTL,
	}
}

// Start schedules the pipeline to run on schedule. The first call wins;
// every later call is a no-op, even with a different schedule string —
// callers that need to change the schedule must build a new Scheduler.
func (s *Scheduler) Start(schedule string) error {
	var startErr error
	s.startOnce.Do(func() {
		id, err := s.cron.AddFunc(schedule, func() {
			s.runAll(context.Background())
		})
		if err != nil {
			startErr = err
			return
		}
		s.mu.Lock()
		s.entryID = id
		s.started = true
		s.mu.Unlock()
		s.cron.Start()
	})
	return startErr
}

// Stop halts the scheduler and waits for any in-flight run to drain. A
// scheduler that was never started, or already stopped, returns
// immediately.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// RunCount returns the number of consolidation attempts made so far
// (success or failure), incremented once per scheduled fire regardless
// of outcome.
func (s *Scheduler) RunCount() int64 {
	return atomic.LoadInt64(&s.runCount)
}

// RunNow triggers an out-of-band consolidation pass immediately,
// bypassing the cron schedule. Used by the manual-trigger tool
// operation and by tests.
func (s *Scheduler) RunNow(ctx context.Context) {
	s.runAll(ctx)
}

// runAll acquires the advisory lock, discovers active namespaces, and
// consolidates each with bounded parallelism. It always increments
// runCount and always releases the lock, including on panic.
func (s *Scheduler) runAll(ctx context.Context) {
	atomic.AddInt64(&s.runCount, 1)

	acquired, err := s.acquireLock(ctx)
	if err != nil {
		s.logf(ctx, "consolidation lock acquisition failed: %v", err)
		return
	}
	if !acquired {
		s.logf(ctx, "consolidation run skipped: lock already held")
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.logf(ctx, "consolidation run panicked: %v", r)
		}
		s.releaseLock(ctx)
	}()

	namespaces, err := s.activeNamespaces(ctx)
	if err != nil {
		s.logf(ctx, "consolidation namespace discovery failed: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxNamespaceWorkers)
	for _, namespace := range namespaces {
		namespace := namespace
		g.Go(func() error {
			// A failure in one namespace's run is isolated: it is
			// logged, not propagated, so it never aborts the others or
			// stops the scheduler.
			if _, err := s.pipeline.RunNamespace(gctx, namespace); err != nil {
				s.logf(gctx, "consolidation failed for namespace %q: %v", namespace, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// activeNamespaces lists every namespace known to the relational store.
// Namespaces with no working-tier activity still run harmlessly (the
// pipeline's step 1 simply finds zero records), so no further filtering
// is applied here.
func (s *Scheduler) activeNamespaces(ctx context.Context) ([]string, error) {
	return s.db.Q().ListNamespaces(ctx)
}

// acquireLock is a best-effort, non-atomic get-then-set: cache.Cache
// exposes no compare-and-swap primitive, so a narrow race remains
// between two processes observing an absent key simultaneously. This is
// the same kind of documented simplification as the vector index's
// keyword search: a real SETNX would need a cache backend that exposes
// one, which the adapter interface does not.
func (s *Scheduler) acquireLock(ctx context.Context) (bool, error) {
	if _, held := s.cache.Get(ctx, lockKey); held {
		return false, nil
	}
	if err := s.cache.Set(ctx, lockKey, types.NewID(), s.lockTTL); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Scheduler) releaseLock(ctx context.Context) {
	_ = s.cache.Delete(ctx, lockKey)
}

func (s *Scheduler) logf(ctx context.Context, format string, args ...interface{}) {
	if s.logger == nil {
		return
	}
	s.logger.Warn(ctx, "consolidation", logging.String("detail", fmt.Sprintf(format, args...)))
}
