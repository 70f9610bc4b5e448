// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package search is the hybrid search engine (component G): it fuses the
vector index's dense and sparse result lists into a single ranking via
reciprocal-rank fusion, and fronts the whole thing with a short-lived
per-namespace query cache so a repeated (namespace, query, k) triple
within the TTL window skips both index calls entirely.
*/
package search

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/pkg/types"
)

// RRFConstant is C in the reciprocal-rank fusion formula 1/(rank + C).
const RRFConstant = 60.0

// DefaultPreFusionK is the fan-out each of dense/sparse search requests
// before fusion.
const DefaultPreFusionK = 20

// DefaultPostFusionK is the number of results returned after fusion.
const DefaultPostFusionK = 5

// QueryCacheTTL is how long a fused result set is cached per
// (namespace, query, k).
const QueryCacheTTL = 60 * time.Second

// Index is the subset of the vector index adapter the engine needs.
// Declared here (rather than imported from vectorindex) so tests can
// substitute a fake without a live Qdrant instance.
type Index interface {
	DenseSearch(ctx context.Context, namespace string, vector []float32, k int) ([]types.VectorHit, error)
	SparseSearch(ctx context.Context, namespace string, keyword string, k int) ([]types.VectorHit, error)
}

// Engine is the hybrid search engine, bound to a vector index and a
// query cache.
type Engine struct {
	index      Index
	queryCache cache.Cache
}

// New builds an Engine over index, caching fused results in qc.
func New(index Index, qc cache.Cache) *Engine {
	return &Engine{index: index, queryCache: qc}
}

func cacheKey(namespace, query string, k int) string {
	return fmt.Sprintf("hybrid:%s:%s:%d", namespace, query, k)
}

// Hybrid runs dense and sparse search concurrently, fuses with
// reciprocal-rank fusion (C=60), dedupes by id, and truncates to k' (the
// configured post-fusion size). Results are cached for QueryCacheTTL
// keyed on (namespace, query, k); InvalidateNamespace evicts every
// cached entry for a namespace on write.
func (e *Engine) Hybrid(ctx context.Context, namespace, query string, vector []float32, k int) ([]types.VectorHit, error) {
	if k <= 0 {
		k = DefaultPreFusionK
	}
	key := cacheKey(namespace, query, k)
	if e.queryCache != nil {
		if raw, ok := e.queryCache.Get(ctx, key); ok {
			if hits, ok := raw.([]types.VectorHit); ok {
				return hits, nil
			}
		}
	}

	var dense, sparse []types.VectorHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := e.index.DenseSearch(gctx, namespace, vector, k)
		if err != nil {
			return err
		}
		dense = hits
		return nil
	})
	g.Go(func() error {
		hits, err := e.index.SparseSearch(gctx, namespace, query, k)
		if err != nil {
			return err
		}
		sparse = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuse(dense, sparse, DefaultPostFusionK)
	if e.queryCache != nil {
		_ = e.queryCache.Set(ctx, key, fused, QueryCacheTTL)
	}
	return fused, nil
}

// fuse combines dense and sparse rankings via reciprocal-rank fusion and
// returns the top postFusionK results, deduplicated by id.
func fuse(dense, sparse []types.VectorHit, postFusionK int) []types.VectorHit {
	type accum struct {
		hit   types.VectorHit
		score float64
	}
	scores := make(map[string]*accum)

	add := func(hits []types.VectorHit) {
		for rank, h := range hits {
			contribution := 1.0 / (float64(rank+1) + RRFConstant)
			if a, ok := scores[h.ID]; ok {
				a.score += contribution
			} else {
				scores[h.ID] = &accum{hit: h, score: contribution}
			}
		}
	}
	add(dense)
	add(sparse)

	out := make([]types.VectorHit, 0, len(scores))
	for _, a := range scores {
		hit := a.hit
		hit.Score = a.score
		out = append(out, hit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if postFusionK > 0 && len(out) > postFusionK {
		out = out[:postFusionK]
	}
	return out
}

// InvalidateNamespace deletes every cached hybrid-search entry for
// namespace. Called by every tool operation that writes into namespace.
func (e *Engine) InvalidateNamespace(ctx context.Context, namespace string) error {
	if e.queryCache == nil {
		return nil
	}
	keyer, ok := e.queryCache.(interface {
		Keys(ctx context.Context, pattern string) ([]string, error)
	})
	if !ok {
		return nil
	}
	keys, err := keyer.Keys(ctx, "hybrid:"+namespace+":*")
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.queryCache.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
