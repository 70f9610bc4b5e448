// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"
	"time"

	"github.com/vesper-project/vesper/observability/logging"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/router"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/validate"
)

// defaultImportance is stamped on rows whose caller did not supply an
// importance hint through metadata.
const defaultImportance = 0.5

// StoreMemoryResult is the store_memory payload.
type StoreMemoryResult struct {
	Success   bool   `json:"success"`
	MemoryID  string `json:"memory_id,omitempty"`
	Namespace string `json:"namespace"`
	Embedded  bool   `json:"embedded"`
	Message   string `json:"message,omitempty"`
}

// StoreMemory inserts a MemoryRow, embeds its content, and upserts the
// sibling vector with wait-for-commit. The relational insert happens
// first so a failed embedding call never loses the row; the vector is
// best-effort only when no embedder is configured, never when the
// embedder errors.
func (s *Store) StoreMemory(ctx context.Context, in validate.StoreMemoryInput) (*StoreMemoryResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	namespace := namespaceOrDefault(in.Namespace)
	if !s.active.Load() {
		return &StoreMemoryResult{Success: false, Namespace: namespace, Message: "vesper is disabled"}, nil
	}

	now := time.Now()
	row := &types.MemoryRow{
		ID:           types.NewID(),
		Content:      in.Content,
		MemoryType:   in.MemoryType,
		CreatedAt:    now,
		UpdatedAt:    now,
		Importance:   defaultImportance,
		LastAccessed: now,
		Metadata:     in.Metadata,
		Namespace:    namespace,
	}
	if in.AgentID != "" {
		row.AgentID = &in.AgentID
	}
	if in.AgentRole != "" {
		row.AgentRole = &in.AgentRole
	}
	if in.TaskID != "" {
		row.TaskID = &in.TaskID
	}

	if err := s.db.Q().InsertMemory(ctx, row); err != nil {
		return nil, err
	}

	embedded := false
	if s.embedder != nil && s.index != nil {
		vector, err := s.embedder.Embed(ctx, in.Content)
		if err != nil {
			return nil, err
		}
		payload := map[string]interface{}{
			"content":     in.Content,
			"namespace":   namespace,
			"memory_type": string(in.MemoryType),
		}
		if err := s.index.UpsertMemory(ctx, row.ID, vector, payload); err != nil {
			return nil, err
		}
		embedded = true
	}

	if s.hybrid != nil {
		if err := s.hybrid.InvalidateNamespace(ctx, namespace); err != nil {
			s.logWarn(ctx, "query cache invalidation failed", logging.String("namespace", namespace), logging.Error(err))
		}
	}

	s.logInfo(ctx, "memory stored",
		logging.String("namespace", namespace),
		logging.String("memory_id", row.ID),
		logging.String("memory_type", string(in.MemoryType)),
		logging.Bool("embedded", embedded))

	return &StoreMemoryResult{Success: true, MemoryID: row.ID, Namespace: namespace, Embedded: embedded}, nil
}

// RetrieveMemoryResult is the retrieve_memory payload.
type RetrieveMemoryResult struct {
	Success        bool                      `json:"success"`
	Passages       []types.ScoredPassage     `json:"passages"`
	Classification types.QueryClassification `json:"classification"`
	Namespace      string                    `json:"namespace"`
}

// RetrieveMemory classifies the query and dispatches it through the
// smart router. A disabled store returns an empty passage list, not an
// error.
func (s *Store) RetrieveMemory(ctx context.Context, in validate.RetrieveMemoryInput) (*RetrieveMemoryResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	namespace := namespaceOrDefault(in.Namespace)
	if !s.active.Load() {
		return &RetrieveMemoryResult{Success: true, Passages: []types.ScoredPassage{}, Namespace: namespace}, nil
	}

	classification := s.router.Classification(in.Query)
	passages, err := s.router.Route(ctx, namespace, in.Query, router.Options{Limit: in.MaxResults})
	if err != nil {
		return nil, err
	}
	if passages == nil {
		passages = []types.ScoredPassage{}
	}
	return &RetrieveMemoryResult{
		Success:        true,
		Passages:       passages,
		Classification: classification,
		Namespace:      namespace,
	}, nil
}

// ListRecentResult is the list_recent payload.
type ListRecentResult struct {
	Success   bool               `json:"success"`
	Memories  []*types.MemoryRow `json:"memories"`
	Namespace string             `json:"namespace"`
}

// ListRecent is a plain created_at-descending index scan.
func (s *Store) ListRecent(ctx context.Context, in validate.ListRecentInput) (*ListRecentResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	namespace := namespaceOrDefault(in.Namespace)
	rows, err := s.db.Q().ListRecentMemories(ctx, namespace, in.Limit, string(in.MemoryType))
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []*types.MemoryRow{}
	}
	return &ListRecentResult{Success: true, Memories: rows, Namespace: namespace}, nil
}

// DeleteMemoryResult is the delete_memory payload.
type DeleteMemoryResult struct {
	Success      bool   `json:"success"`
	Deleted      bool   `json:"deleted,omitempty"`
	FactsDeleted int64  `json:"facts_deleted,omitempty"`
	Namespace    string `json:"namespace"`
	Message      string `json:"message"`
}

// DeleteMemory removes the MemoryRow scoped by (id, namespace) and
// cascades to facts whose source_conversation is the deleted id in the
// same namespace. Idempotent: a second call reports "Memory not found"
// with Success false rather than erroring.
func (s *Store) DeleteMemory(ctx context.Context, id, namespace string) (*DeleteMemoryResult, error) {
	namespace = namespaceOrDefault(validate.CleanString(namespace))
	if !s.active.Load() {
		return &DeleteMemoryResult{Success: false, Namespace: namespace, Message: "vesper is disabled"}, nil
	}
	id = validate.CleanString(id)
	if id == "" {
		return &DeleteMemoryResult{Success: false, Namespace: namespace, Message: "memory id must not be empty"}, nil
	}

	var deleted bool
	var factsDeleted int64
	err := s.db.Tx(ctx, func(q *storage.Queries) error {
		var err error
		deleted, err = q.DeleteMemory(ctx, id, namespace)
		if err != nil {
			return err
		}
		if !deleted {
			return nil
		}
		factsDeleted, err = q.DeleteFactsBySourceConversation(ctx, namespace, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !deleted {
		return &DeleteMemoryResult{Success: false, Namespace: namespace, Message: "Memory not found"}, nil
	}

	if s.index != nil {
		if err := s.index.DeleteByID(ctx, id); err != nil {
			s.logWarn(ctx, "vector delete failed after row delete", logging.String("memory_id", id), logging.Error(err))
		}
	}
	if s.hybrid != nil {
		_ = s.hybrid.InvalidateNamespace(ctx, namespace)
	}

	s.logInfo(ctx, "memory deleted",
		logging.String("namespace", namespace),
		logging.String("memory_id", id),
		logging.Int64("facts_deleted", factsDeleted))

	return &DeleteMemoryResult{Success: true, Deleted: true, FactsDeleted: factsDeleted, Namespace: namespace, Message: "Memory deleted"}, nil
}

// StatsResult is the get_stats payload. Collection and consolidation
// details are populated only for detailed requests.
type StatsResult struct {
	Success           bool                   `json:"success"`
	Active            bool                   `json:"active"`
	Namespaces        []string               `json:"namespaces"`
	Namespace         *types.NamespaceStats  `json:"namespace,omitempty"`
	Collection        *types.CollectionStats `json:"collection,omitempty"`
	ConsolidationRuns int64                  `json:"consolidation_runs,omitempty"`
}

// GetStats reports store-wide counts; with Detailed set it adds the
// requested namespace's row counts, the vector collection's health,
// and the consolidation scheduler's run count.
func (s *Store) GetStats(ctx context.Context, in validate.GetStatsInput) (*StatsResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	namespaces, err := s.db.Q().ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	out := &StatsResult{Success: true, Active: s.active.Load(), Namespaces: namespaces}
	if !in.Detailed {
		return out, nil
	}

	nsStats, err := s.db.Q().NamespaceStats(ctx, namespaceOrDefault(in.Namespace))
	if err != nil {
		return nil, err
	}
	out.Namespace = nsStats

	if s.index != nil {
		cs, err := s.index.GetCollectionStats(ctx)
		if err != nil {
			s.logWarn(ctx, "collection stats unavailable", logging.Error(err))
		} else {
			out.Collection = &cs
		}
	}
	if s.scheduler != nil {
		out.ConsolidationRuns = s.scheduler.RunCount()
	}
	return out, nil
}
