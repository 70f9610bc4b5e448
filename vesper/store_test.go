// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/vesper-project/vesper/cache"
	"github.com/vesper-project/vesper/config"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/validate"
)

// fakeIndex is an in-memory stand-in for the vector index adapter. It
// implements both the facade's write interface and search.Index, so
// one instance serves the whole store.
type fakeIndex struct {
	mu      sync.Mutex
	vectors map[string][]float32
	payload map[string]map[string]interface{}
	deleted []string
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		vectors: make(map[string][]float32),
		payload: make(map[string]map[string]interface{}),
	}
}

func (f *fakeIndex) InitializeCollection(ctx context.Context, dimension int) error { return nil }

func (f *fakeIndex) UpsertMemory(ctx context.Context, id string, vector []float32, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors[id] = vector
	f.payload[id] = payload
	return nil
}

func (f *fakeIndex) DeleteByID(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.vectors, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndex) GetCollectionStats(ctx context.Context) (types.CollectionStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return types.CollectionStats{PointsCount: uint64(len(f.vectors)), Status: "green"}, nil
}

func (f *fakeIndex) DenseSearch(ctx context.Context, namespace string, vector []float32, k int) ([]types.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.VectorHit
	for id, v := range f.vectors {
		ns, _ := f.payload[id]["namespace"].(string)
		if ns != namespace {
			continue
		}
		out = append(out, types.VectorHit{ID: id, Score: cosine(vector, v), Payload: f.payload[id]})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (f *fakeIndex) SparseSearch(ctx context.Context, namespace, keyword string, k int) ([]types.VectorHit, error) {
	return nil, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeEmbedder returns a deterministic vector per text length.
type fakeEmbedder struct{ dim int }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, f.dim)
	for i := range v {
		v[i] = float32(math.Sin(float64(i+len(text))*0.01))/2 + 0.5
	}
	return v, nil
}

func newTestStore(t *testing.T) (*Store, *fakeIndex) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "memory.db")
	db, err := storage.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ix := newFakeIndex()
	cfg := config.DefaultConfig()
	cfg.VectorIndex.Dimension = 8

	store, err := New(cfg).
		WithDB(db).
		WithCache(cache.NewMemoryCache(cache.DefaultCacheConfig())).
		WithVectorIndex(ix).
		WithEmbedder(fakeEmbedder{dim: 8}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return store, ix
}

func TestBuilder_RequiresDBAndCache(t *testing.T) {
	if _, err := New(nil).Build(); err == nil {
		t.Fatal("expected Build without a DB to fail")
	}

	path := filepath.Join(t.TempDir(), "memory.db")
	db, err := storage.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("storage.Open failed: %v", err)
	}
	defer db.Close()
	if _, err := New(nil).WithDB(db).Build(); err == nil {
		t.Fatal("expected Build without a cache to fail")
	}
}

func TestStoreMemory_PersistsRowAndVector(t *testing.T) {
	ctx := context.Background()
	store, ix := newTestStore(t)

	res, err := store.StoreMemory(ctx, validate.StoreMemoryInput{
		Content:    "Alice prefers dark roast coffee",
		MemoryType: types.MemoryTypeSemantic,
		Namespace:  "ns1",
	})
	if err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
	if !res.Success || res.MemoryID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !res.Embedded {
		t.Fatal("expected the sibling vector to be written")
	}

	row, err := store.db.Q().GetMemory(ctx, res.MemoryID, "ns1")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if row.Content != "Alice prefers dark roast coffee" {
		t.Fatalf("content = %q", row.Content)
	}
	if _, ok := ix.vectors[res.MemoryID]; !ok {
		t.Fatal("vector missing from index")
	}
	if ns, _ := ix.payload[res.MemoryID]["namespace"].(string); ns != "ns1" {
		t.Fatalf("payload namespace = %q", ns)
	}
}

func TestStoreMemory_ValidationError(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := store.StoreMemory(context.Background(), validate.StoreMemoryInput{
		Content:    "",
		MemoryType: types.MemoryTypeSemantic,
	})
	if !vesperrors.IsInvalidInput(err) {
		t.Fatalf("expected a validation error, got %v", err)
	}

	_, err = store.StoreMemory(context.Background(), validate.StoreMemoryInput{
		Content:    "x",
		MemoryType: "bogus",
	})
	if !vesperrors.IsInvalidInput(err) {
		t.Fatalf("expected a validation error for memory_type, got %v", err)
	}
}

func TestDeleteMemory_IdempotentWithFactCascade(t *testing.T) {
	ctx := context.Background()
	store, ix := newTestStore(t)

	res, err := store.StoreMemory(ctx, validate.StoreMemoryInput{
		Content:    "conversation about Go",
		MemoryType: types.MemoryTypeEpisodic,
		Namespace:  "ns1",
	})
	if err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}

	ent, err := store.db.Q().UpsertEntity(ctx, &types.Entity{Name: "Go", Type: types.EntityTypeConcept, Namespace: "ns1", Confidence: 0.9})
	if err != nil {
		t.Fatalf("UpsertEntity failed: %v", err)
	}
	fact := &types.Fact{EntityID: ent.ID, Property: "language", Value: "Go", Confidence: 0.9, SourceConversation: res.MemoryID, Namespace: "ns1"}
	if err := store.db.Q().InsertFact(ctx, fact); err != nil {
		t.Fatalf("InsertFact failed: %v", err)
	}
	// Same source id, different namespace: must survive the cascade.
	other := &types.Fact{EntityID: ent.ID, Property: "language", Value: "Go", Confidence: 0.9, SourceConversation: res.MemoryID, Namespace: "ns2"}
	if err := store.db.Q().InsertFact(ctx, other); err != nil {
		t.Fatalf("InsertFact failed: %v", err)
	}

	del, err := store.DeleteMemory(ctx, res.MemoryID, "ns1")
	if err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	if !del.Success || !del.Deleted {
		t.Fatalf("unexpected result: %+v", del)
	}
	if del.FactsDeleted != 1 {
		t.Fatalf("facts_deleted = %d, want 1", del.FactsDeleted)
	}
	if len(ix.deleted) != 1 || ix.deleted[0] != res.MemoryID {
		t.Fatalf("vector delete not cascaded: %v", ix.deleted)
	}

	crossNS, err := store.db.Q().ListFacts(ctx, "ns2")
	if err != nil {
		t.Fatalf("ListFacts failed: %v", err)
	}
	if len(crossNS) != 1 {
		t.Fatalf("cross-namespace fact deleted: %d rows left", len(crossNS))
	}

	again, err := store.DeleteMemory(ctx, res.MemoryID, "ns1")
	if err != nil {
		t.Fatalf("second DeleteMemory errored: %v", err)
	}
	if again.Success {
		t.Fatal("second delete must not report success")
	}
	if again.Message != "Memory not found" {
		t.Fatalf("message = %q", again.Message)
	}

	empty, err := store.DeleteMemory(ctx, "", "ns1")
	if err != nil {
		t.Fatalf("empty-id DeleteMemory errored: %v", err)
	}
	if empty.Success {
		t.Fatal("empty id must not report success")
	}
}

func TestStoreDecision_SupersedeBookkeeping(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Use JS for the frontend", Namespace: "d"})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}
	second, err := store.StoreDecision(ctx, StoreDecisionInput{
		Content:    "Use TS for the frontend",
		Rationale:  "stricter types",
		Supersedes: first.DecisionID,
		Namespace:  "d",
	})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}

	old, err := store.db.Q().GetMemory(ctx, first.DecisionID, "d")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if by, ok := old.SupersededBy(); !ok || by != second.DecisionID {
		t.Fatalf("superseded_by = %v, want %s", old.Metadata["superseded_by"], second.DecisionID)
	}

	nu, err := store.db.Q().GetMemory(ctx, second.DecisionID, "d")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if nu.Metadata["supersedes"] != first.DecisionID {
		t.Fatalf("supersedes = %v", nu.Metadata["supersedes"])
	}
	if nu.Metadata["decay_factor"] != types.DecisionDecayFactor {
		t.Fatalf("decay_factor = %v", nu.Metadata["decay_factor"])
	}
	if nu.Metadata["rationale"] != "stricter types" {
		t.Fatalf("rationale = %v", nu.Metadata["rationale"])
	}
}

func TestStoreDecision_ConflictDetection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Adopt REST for the public API", Namespace: "d"}); err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}
	res, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Adopt GraphQL for the public API", Namespace: "d"})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}
	if res.ConflictsDetected < 1 {
		t.Fatalf("conflicts_detected = %d, want >= 1", res.ConflictsDetected)
	}

	// The same live pair must not be stored twice by a later call.
	third, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Ship weekly", Namespace: "d"})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}
	if third.ConflictsDetected != 0 {
		t.Fatalf("conflicts_detected = %d, want 0 (pair already flagged)", third.ConflictsDetected)
	}
}

func TestStoreDecision_CrossNamespaceSupersedeIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Ship monthly", Namespace: "a"})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}
	second, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Ship weekly", Supersedes: first.DecisionID, Namespace: "b"})
	if err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}

	old, err := store.db.Q().GetMemory(ctx, first.DecisionID, "a")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if _, ok := old.SupersededBy(); ok {
		t.Fatal("cross-namespace supersede must not touch the source row")
	}
	nu, err := store.db.Q().GetMemory(ctx, second.DecisionID, "b")
	if err != nil {
		t.Fatalf("GetMemory failed: %v", err)
	}
	if _, ok := nu.Metadata["supersedes"]; ok {
		t.Fatal("cross-namespace supersede must not record a supersedes link")
	}
}

func TestShareContext_HandoffRow(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	for _, content := range []string{"first conversation", "second conversation"} {
		if _, err := store.StoreMemory(ctx, validate.StoreMemoryInput{Content: content, MemoryType: types.MemoryTypeEpisodic, Namespace: "a"}); err != nil {
			t.Fatalf("StoreMemory failed: %v", err)
		}
	}
	if _, err := store.db.Q().UpsertEntity(ctx, &types.Entity{Name: "Vesper", Type: types.EntityTypeProject, Namespace: "a", Confidence: 1}); err != nil {
		t.Fatalf("UpsertEntity failed: %v", err)
	}

	res, err := store.ShareContext(ctx, ShareContextInput{SourceNamespace: "a", TargetNamespace: "b"})
	if err != nil {
		t.Fatalf("ShareContext failed: %v", err)
	}
	if res.Memories != 2 || res.Entities != 1 {
		t.Fatalf("shared %d memories / %d entities, want 2 / 1", res.Memories, res.Entities)
	}
	if res.HandoffID == "" {
		t.Fatal("expected a handoff id")
	}

	target, err := store.db.Q().ListMemoriesByNamespace(ctx, "b")
	if err != nil {
		t.Fatalf("ListMemoriesByNamespace failed: %v", err)
	}
	if len(target) != 1 {
		t.Fatalf("target namespace has %d rows, want 1", len(target))
	}
	handoff := target[0]
	if handoff.MemoryType != types.MemoryTypeEpisodic {
		t.Fatalf("handoff type = %s", handoff.MemoryType)
	}
	if handoff.Metadata["source_namespace"] != "a" {
		t.Fatalf("source_namespace = %v", handoff.Metadata["source_namespace"])
	}
	if got, ok := handoff.Metadata["memories_shared"].(float64); !ok || int(got) != 2 {
		t.Fatalf("memories_shared = %v", handoff.Metadata["memories_shared"])
	}

	source, err := store.db.Q().ListMemoriesByNamespace(ctx, "a")
	if err != nil {
		t.Fatalf("ListMemoriesByNamespace failed: %v", err)
	}
	if len(source) != 2 {
		t.Fatalf("source namespace mutated: %d rows", len(source))
	}

	// A second call mints a fresh handoff id.
	res2, err := store.ShareContext(ctx, ShareContextInput{SourceNamespace: "a", TargetNamespace: "b"})
	if err != nil {
		t.Fatalf("second ShareContext failed: %v", err)
	}
	if res2.HandoffID == res.HandoffID {
		t.Fatal("handoff id must be fresh on every call")
	}
}

func TestToggle_DisableShortCircuits(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if !store.Active() {
		t.Fatal("store must start enabled")
	}
	store.Disable()

	res, err := store.StoreMemory(ctx, validate.StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic})
	if err != nil {
		t.Fatalf("StoreMemory errored while disabled: %v", err)
	}
	if res.Success {
		t.Fatal("disabled store must not accept writes")
	}

	ret, err := store.RetrieveMemory(ctx, validate.RetrieveMemoryInput{Query: "anything"})
	if err != nil {
		t.Fatalf("RetrieveMemory errored while disabled: %v", err)
	}
	if len(ret.Passages) != 0 {
		t.Fatalf("disabled retrieval returned %d passages", len(ret.Passages))
	}

	store.Enable()
	res, err = store.StoreMemory(ctx, validate.StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic})
	if err != nil || !res.Success {
		t.Fatalf("re-enabled store rejected a write: %+v, %v", res, err)
	}
}

func TestGetStats_DetailedIncludesCollection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.StoreMemory(ctx, validate.StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic, Namespace: "ns1"}); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}

	basic, err := store.GetStats(ctx, validate.GetStatsInput{})
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if basic.Collection != nil || basic.Namespace != nil {
		t.Fatal("basic stats must omit detailed sections")
	}
	if len(basic.Namespaces) == 0 {
		t.Fatal("expected at least one namespace")
	}

	detailed, err := store.GetStats(ctx, validate.GetStatsInput{Detailed: true, Namespace: "ns1"})
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if detailed.Collection == nil || detailed.Collection.PointsCount != 1 {
		t.Fatalf("collection stats = %+v", detailed.Collection)
	}
	if detailed.Namespace == nil || detailed.Namespace.MemoryCount != 1 {
		t.Fatalf("namespace stats = %+v", detailed.Namespace)
	}
}

func TestListNamespacesAndStats(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	if _, err := store.StoreMemory(ctx, validate.StoreMemoryInput{Content: "x", MemoryType: types.MemoryTypeEpisodic, Namespace: "alpha"}); err != nil {
		t.Fatalf("StoreMemory failed: %v", err)
	}
	if _, err := store.StoreDecision(ctx, StoreDecisionInput{Content: "Ship it", Namespace: "beta"}); err != nil {
		t.Fatalf("StoreDecision failed: %v", err)
	}

	namespaces, err := store.ListNamespaces(ctx)
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	found := map[string]bool{}
	for _, n := range namespaces.Namespaces {
		found[n] = true
	}
	if !found["alpha"] || !found["beta"] {
		t.Fatalf("namespaces = %v", namespaces.Namespaces)
	}

	stats, err := store.NamespaceStats(ctx, "beta")
	if err != nil {
		t.Fatalf("NamespaceStats failed: %v", err)
	}
	if stats.Stats.DecisionCount != 1 {
		t.Fatalf("decision count = %d, want 1", stats.Stats.DecisionCount)
	}
}
