// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package search

import (
	"context"
	"testing"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/pkg/types"
)

type fakeIndex struct {
	dense, sparse []types.VectorHit
	calls         int
}

func (f *fakeIndex) DenseSearch(ctx context.Context, namespace string, vector []float32, k int) ([]types.VectorHit, error) {
	f.calls++
	return f.dense, nil
}

func (f *fakeIndex) SparseSearch(ctx context.Context, namespace string, keyword string, k int) ([]types.VectorHit, error) {
	return f.sparse, nil
}

func TestEngine_Hybrid_FusesAndDedupes(t *testing.T) {
	idx := &fakeIndex{
		dense:  []types.VectorHit{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		sparse: []types.VectorHit{{ID: "b"}, {ID: "d"}},
	}
	eng := New(idx, cache.NewMemoryCache(cache.DefaultCacheConfig()))

	hits, err := eng.Hybrid(context.Background(), "ns1", "query", []float32{0.1}, 10)
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if hits[0].ID != "b" {
		t.Fatalf("expected the doubly-ranked result 'b' first, got %+v", hits)
	}

	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.ID] {
			t.Fatalf("duplicate id %q in fused results", h.ID)
		}
		seen[h.ID] = true
	}
}

func TestEngine_Hybrid_CachesAcrossCalls(t *testing.T) {
	idx := &fakeIndex{dense: []types.VectorHit{{ID: "a"}}}
	eng := New(idx, cache.NewMemoryCache(cache.DefaultCacheConfig()))
	ctx := context.Background()

	if _, err := eng.Hybrid(ctx, "ns1", "query", nil, 10); err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if _, err := eng.Hybrid(ctx, "ns1", "query", nil, 10); err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if idx.calls != 1 {
		t.Fatalf("expected the second call to hit the query cache, got %d index calls", idx.calls)
	}
}

func TestEngine_InvalidateNamespace(t *testing.T) {
	idx := &fakeIndex{dense: []types.VectorHit{{ID: "a"}}}
	eng := New(idx, cache.NewMemoryCache(cache.DefaultCacheConfig()))
	ctx := context.Background()

	if _, err := eng.Hybrid(ctx, "ns1", "query", nil, 10); err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if err := eng.InvalidateNamespace(ctx, "ns1"); err != nil {
		t.Fatalf("InvalidateNamespace failed: %v", err)
	}
	if _, err := eng.Hybrid(ctx, "ns1", "query", nil, 10); err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if idx.calls != 2 {
		t.Fatalf("expected invalidation to force a fresh index call, got %d calls", idx.calls)
	}
}
