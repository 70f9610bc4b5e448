// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package semantic

import (
	"context"
	"sort"
	"time"

	"github.com/vesper-project/vesper/config"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
)

// Tier is the semantic memory tier: the entity-relationship-fact graph
// held in the relational store.
type Tier struct {
	db  *storage.DB
	cfg config.SemanticConfig
}

// New builds a Tier over db, using cfg for decay half-lives, the
// reinforcement constant, and the PageRank prune threshold.
func New(db *storage.DB, cfg config.SemanticConfig) *Tier {
	return &Tier{db: db, cfg: cfg}
}

// UpsertEntity inserts a new entity, or bumps LastAccessed/AccessCount
// if (Name, Namespace) already exists.
func (t *Tier) UpsertEntity(ctx context.Context, e *types.Entity) (*types.Entity, error) {
	return t.db.Q().UpsertEntity(ctx, e)
}

// GetEntity returns the entity for (name, namespace), bumping its
// access count and last-accessed time, or a not-found error.
func (t *Tier) GetEntity(ctx context.Context, name, namespace string) (*types.Entity, error) {
	e, err := t.db.Q().GetEntity(ctx, name, namespace)
	if err != nil {
		return nil, err
	}
	return t.db.Q().UpsertEntity(ctx, e)
}

// GetEntityByID returns the entity for (id, namespace), used by callers
// (the router's PROJECT strategy) holding a PageRank result's EntityID
// rather than a display name.
func (t *Tier) GetEntityByID(ctx context.Context, id, namespace string) (*types.Entity, error) {
	return t.db.Q().GetEntityByID(ctx, id, namespace)
}

// UpsertRelationship inserts a new edge, or reinforces an existing one's
// Strength toward 1 via s <- min(1, s + alpha*(1-s)).
func (t *Tier) UpsertRelationship(ctx context.Context, r *types.Relationship) (*types.Relationship, error) {
	return t.db.Q().UpsertRelationship(ctx, r, t.cfg.ReinforcementAlpha)
}

// PersonalizedPageRank runs a breadth-first, depth-bounded traversal
// from seedID. The seed starts at score 1.0; a child's score is the
// parent's score times its edge's strength normalised by the strongest
// outgoing edge at that node. Nodes below the configured prune
// threshold are dropped. A visited set guarantees termination on cycles
// and self-loops. Results are sorted by descending score; among equal
// scores the seed comes first, and the order of other ties is not
// defined.
func (t *Tier) PersonalizedPageRank(ctx context.Context, seedID, namespace string, depth int) ([]types.PageRankResult, error) {
	if depth < 0 {
		depth = 0
	}
	visited := map[string]float64{seedID: 1.0}
	frontier := []string{seedID}

	for d := 0; d < depth; d++ {
		var next []string
		for _, nodeID := range frontier {
			edges, err := t.db.Q().ListRelationshipsFrom(ctx, namespace, nodeID)
			if err != nil {
				return nil, err
			}
			if len(edges) == 0 {
				continue
			}
			maxStrength := 0.0
			for _, e := range edges {
				if e.Strength > maxStrength {
					maxStrength = e.Strength
				}
			}
			if maxStrength <= 0 {
				continue
			}
			parentScore := visited[nodeID]
			for _, e := range edges {
				if e.TargetID == nodeID {
					continue // self-loop contributes nothing further
				}
				childScore := parentScore * (e.Strength / maxStrength)
				if existing, seen := visited[e.TargetID]; !seen || childScore > existing {
					visited[e.TargetID] = childScore
					next = append(next, e.TargetID)
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	results := make([]types.PageRankResult, 0, len(visited))
	for id, score := range visited {
		if score < t.cfg.PageRankPruneThreshold {
			continue
		}
		results = append(results, types.PageRankResult{EntityID: id, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].EntityID == seedID && results[j].EntityID != seedID
	})
	return results, nil
}

// ApplyTemporalDecay multiplies every relationship's Strength in
// namespace by exp(-dt/tau), dt the days since LastReinforced. Returns
// the count of rows updated.
func (t *Tier) ApplyTemporalDecay(ctx context.Context, namespace string) (int, error) {
	relationships, err := t.db.Q().ListRelationships(ctx, namespace)
	if err != nil {
		return 0, err
	}
	tau := t.cfg.RelationshipHalfLife.Hours() / 24
	if tau <= 0 {
		return 0, vesperrors.ErrInvalidInput.WithMessage("relationship half-life must be positive")
	}

	now := time.Now()
	updated := 0
	for _, r := range relationships {
		dt := now.Sub(r.LastReinforced).Hours() / 24
		if dt < 0 {
			dt = 0
		}
		decayed := r.Strength * decayFactor(dt, tau)
		if err := t.db.Q().UpdateRelationshipStrength(ctx, r.ID, decayed); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// GetPreferences returns entities of type preference, optionally
// filtered by token overlap with domain, scored as
// confidence * exp(-dt_last_accessed/tau_pref).
func (t *Tier) GetPreferences(ctx context.Context, domain, namespace string) ([]types.Entity, error) {
	entities, err := t.db.Q().ListEntitiesByType(ctx, namespace, types.EntityTypePreference)
	if err != nil {
		return nil, err
	}
	tau := t.cfg.PreferenceHalfLife.Hours() / 24
	if tau <= 0 {
		tau = 1
	}

	domainTokens := tokenize(domain)
	now := time.Now()

	type scoredEntity struct {
		entity types.Entity
		score  float64
	}
	scored := make([]scoredEntity, 0, len(entities))
	for _, e := range entities {
		if len(domainTokens) > 0 {
			overlap := false
			for tok := range tokenize(e.Name + " " + e.Description) {
				if _, ok := domainTokens[tok]; ok {
					overlap = true
					break
				}
			}
			if !overlap {
				continue
			}
		}
		dt := now.Sub(e.LastAccessed).Hours() / 24
		if dt < 0 {
			dt = 0
		}
		score := e.Confidence * decayFactor(dt, tau)
		scored = append(scored, scoredEntity{entity: *e, score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	out := make([]types.Entity, len(scored))
	for i, s := range scored {
		out[i] = s.entity
	}
	return out, nil
}

// GetByTimeRange returns entities created within [start, end] (either
// bound optional), most recent first, capped at 20.
func (t *Tier) GetByTimeRange(ctx context.Context, start, end *time.Time, namespace string) ([]types.Entity, error) {
	entities, err := t.db.Q().ListEntities(ctx, namespace)
	if err != nil {
		return nil, err
	}
	filtered := make([]types.Entity, 0, len(entities))
	for _, e := range entities {
		if start != nil && e.CreatedAt.Before(*start) {
			continue
		}
		if end != nil && e.CreatedAt.After(*end) {
			continue
		}
		filtered = append(filtered, *e)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].CreatedAt.After(filtered[j].CreatedAt) })
	if len(filtered) > 20 {
		filtered = filtered[:20]
	}
	return filtered, nil
}

func decayFactor(dt, tau float64) float64 {
	return expNeg(dt / tau)
}
