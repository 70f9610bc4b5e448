// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vesper-project/vesper/conflict"
	"github.com/vesper-project/vesper/observability/logging"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/validate"
)

// ShareContextInput carries the share_context tool's parameters.
type ShareContextInput struct {
	SourceNamespace string `json:"source_namespace"`
	TargetNamespace string `json:"target_namespace"`
	TaskID          string `json:"task_id,omitempty"`
	Query           string `json:"query,omitempty"`
	Limit           int    `json:"limit,omitempty"`
}

// Validate normalises the namespaces and bounds the optional limit.
func (in *ShareContextInput) Validate() error {
	in.SourceNamespace = validate.CleanString(in.SourceNamespace)
	in.TargetNamespace = validate.CleanString(in.TargetNamespace)
	if in.SourceNamespace == "" || in.TargetNamespace == "" {
		return vesperrors.ErrMissingField.WithMessage("source_namespace and target_namespace are required")
	}
	if in.Limit < 0 {
		return vesperrors.ErrOutOfRange.WithMessage("limit must not be negative")
	}
	in.TaskID = validate.CleanString(in.TaskID)
	in.Query = validate.CleanString(in.Query)
	return nil
}

// ShareContextResult is the share_context payload.
type ShareContextResult struct {
	Success   bool   `json:"success"`
	Memories  int    `json:"memories"`
	Entities  int    `json:"entities"`
	HandoffID string `json:"handoff_id,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ShareContext bundles the source namespace's memories and entities
// and writes a single episodic handoff row into the target namespace.
// Source rows are never moved or mutated; source-equals-target is
// legal; the handoff id is a fresh UUID on every call.
func (s *Store) ShareContext(ctx context.Context, in ShareContextInput) (*ShareContextResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if !s.active.Load() {
		return &ShareContextResult{Success: false, Message: "vesper is disabled"}, nil
	}

	memories, err := s.db.Q().ListMemoriesByNamespace(ctx, in.SourceNamespace)
	if err != nil {
		return nil, err
	}
	memories = filterShared(memories, in)

	entities, err := s.db.Q().ListEntities(ctx, in.SourceNamespace)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	handoff := &types.MemoryRow{
		ID:           types.NewHandoffID(),
		Content:      handoffContent(in.SourceNamespace, len(memories), len(entities)),
		MemoryType:   types.MemoryTypeEpisodic,
		CreatedAt:    now,
		UpdatedAt:    now,
		Importance:   defaultImportance,
		LastAccessed: now,
		Namespace:    in.TargetNamespace,
		Metadata: map[string]interface{}{
			"source_namespace": in.SourceNamespace,
			"target_namespace": in.TargetNamespace,
			"memories_shared":  len(memories),
			"entities_shared":  len(entities),
			"timestamp":        now.Format(time.RFC3339),
		},
	}
	if in.TaskID != "" {
		handoff.Metadata["task_id"] = in.TaskID
		handoff.TaskID = &in.TaskID
	}

	if err := s.db.Q().InsertMemory(ctx, handoff); err != nil {
		return nil, err
	}
	if s.hybrid != nil {
		_ = s.hybrid.InvalidateNamespace(ctx, in.TargetNamespace)
	}

	s.logInfo(ctx, "context shared",
		logging.String("source_namespace", in.SourceNamespace),
		logging.String("target_namespace", in.TargetNamespace),
		logging.Int("memories", len(memories)),
		logging.Int("entities", len(entities)))

	return &ShareContextResult{
		Success:   true,
		Memories:  len(memories),
		Entities:  len(entities),
		HandoffID: handoff.ID,
	}, nil
}

// filterShared applies share_context's optional query substring and
// limit filters to the source rows.
func filterShared(rows []*types.MemoryRow, in ShareContextInput) []*types.MemoryRow {
	out := rows
	if in.Query != "" {
		q := strings.ToLower(in.Query)
		out = out[:0:0]
		for _, m := range rows {
			if strings.Contains(strings.ToLower(m.Content), q) {
				out = append(out, m)
			}
		}
	}
	if in.Limit > 0 && len(out) > in.Limit {
		out = out[:in.Limit]
	}
	return out
}

func handoffContent(source string, memories, entities int) string {
	return fmt.Sprintf("Context handoff from namespace %q: %d memories, %d entities shared.", source, memories, entities)
}

// StoreDecisionInput carries the store_decision tool's parameters.
type StoreDecisionInput struct {
	Content    string `json:"content"`
	Rationale  string `json:"rationale,omitempty"`
	Supersedes string `json:"supersedes,omitempty"`
	Namespace  string `json:"namespace,omitempty"`
}

// Validate applies the store_memory content bounds to the decision
// body.
func (in *StoreDecisionInput) Validate() error {
	in.Content = validate.CleanString(in.Content)
	if in.Content == "" || len(in.Content) > 100_000 {
		return vesperrors.ErrOutOfRange.WithMessage("content must be 1..100000 characters")
	}
	in.Rationale = validate.CleanString(in.Rationale)
	in.Supersedes = validate.CleanString(in.Supersedes)
	in.Namespace = validate.CleanString(in.Namespace)
	return nil
}

// StoreDecisionResult is the store_decision payload.
type StoreDecisionResult struct {
	Success           bool   `json:"success"`
	DecisionID        string `json:"decision_id,omitempty"`
	ConflictsDetected int    `json:"conflicts_detected"`
	Namespace         string `json:"namespace"`
	Message           string `json:"message,omitempty"`
}

// StoreDecision writes a decision MemoryRow stamped with the fixed
// decay factor, handles supersede bookkeeping in the same transaction
// as the insert, then runs the decision conflict detector over live
// decisions in the namespace. A supersedes id that does not resolve in
// this namespace is a no-op, not an error.
func (s *Store) StoreDecision(ctx context.Context, in StoreDecisionInput) (*StoreDecisionResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	namespace := namespaceOrDefault(in.Namespace)
	if !s.active.Load() {
		return &StoreDecisionResult{Success: false, Namespace: namespace, Message: "vesper is disabled"}, nil
	}

	now := time.Now()
	row := &types.MemoryRow{
		ID:           types.NewID(),
		Content:      in.Content,
		MemoryType:   types.MemoryTypeDecision,
		CreatedAt:    now,
		UpdatedAt:    now,
		Importance:   defaultImportance,
		LastAccessed: now,
		Namespace:    namespace,
		Metadata: map[string]interface{}{
			"decay_factor": types.DecisionDecayFactor,
		},
	}
	if in.Rationale != "" {
		row.Metadata["rationale"] = in.Rationale
	}

	err := s.db.Tx(ctx, func(q *storage.Queries) error {
		if in.Supersedes != "" {
			old, err := q.GetMemory(ctx, in.Supersedes, namespace)
			if err == nil {
				meta := old.Metadata
				if meta == nil {
					meta = map[string]interface{}{}
				}
				meta["superseded_by"] = row.ID
				meta["superseded_at"] = now.Format(time.RFC3339)
				if err := q.UpdateMemoryMetadata(ctx, old.ID, namespace, meta); err != nil {
					return err
				}
				row.Metadata["supersedes"] = old.ID
			} else if !vesperrors.IsNotFound(err) {
				return err
			}
		}
		return q.InsertMemory(ctx, row)
	})
	if err != nil {
		return nil, err
	}

	conflicts, err := s.detectDecisionConflicts(ctx, namespace)
	if err != nil {
		return nil, err
	}

	s.logInfo(ctx, "decision stored",
		logging.String("namespace", namespace),
		logging.String("decision_id", row.ID),
		logging.Int("conflicts_detected", conflicts))

	return &StoreDecisionResult{
		Success:           true,
		DecisionID:        row.ID,
		ConflictsDetected: conflicts,
		Namespace:         namespace,
	}, nil
}

// detectDecisionConflicts runs the contradiction rule over the
// namespace's live decisions and persists anything it finds. Detected
// conflicts are informational: they are stored and counted, never
// raised.
func (s *Store) detectDecisionConflicts(ctx context.Context, namespace string) (int, error) {
	rows, err := s.db.Q().ListDecisions(ctx, namespace)
	if err != nil {
		return 0, err
	}
	decisions := make([]types.MemoryRow, len(rows))
	for i, r := range rows {
		decisions[i] = *r
	}

	existing, err := s.db.Q().ListConflicts(ctx, namespace)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, c := range existing {
		seen[pairKey(c.FactID1, c.FactID2)] = true
	}

	stored := 0
	for _, c := range conflict.DetectDecisions(decisions) {
		key := pairKey(c.FactID1, c.FactID2)
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := s.db.Q().StoreConflict(ctx, &c, false); err != nil {
			return 0, err
		}
		stored++
		if s.metrics != nil {
			s.metrics.RecordConflictDetected(namespace, string(c.ConflictType))
		}
	}
	return stored, nil
}

// pairKey identifies a conflict pair regardless of detection order.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

// ListNamespacesResult is the list_namespaces payload.
type ListNamespacesResult struct {
	Success    bool     `json:"success"`
	Namespaces []string `json:"namespaces"`
}

// ListNamespaces returns the union of distinct namespace values across
// memories, entities, and skills.
func (s *Store) ListNamespaces(ctx context.Context) (*ListNamespacesResult, error) {
	namespaces, err := s.db.Q().ListNamespaces(ctx)
	if err != nil {
		return nil, err
	}
	if namespaces == nil {
		namespaces = []string{}
	}
	return &ListNamespacesResult{Success: true, Namespaces: namespaces}, nil
}

// NamespaceStatsResult is the namespace_stats payload.
type NamespaceStatsResult struct {
	Success bool                  `json:"success"`
	Stats   *types.NamespaceStats `json:"stats"`
}

// NamespaceStats aggregates counts for a single namespace.
func (s *Store) NamespaceStats(ctx context.Context, namespace string) (*NamespaceStatsResult, error) {
	namespace = namespaceOrDefault(validate.CleanString(namespace))
	stats, err := s.db.Q().NamespaceStats(ctx, namespace)
	if err != nil {
		return nil, err
	}
	return &NamespaceStatsResult{Success: true, Stats: stats}, nil
}
