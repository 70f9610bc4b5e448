// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package router

import (
	"context"
	"time"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/search"
	"github.com/vesper-project/vesper/tiers/semantic"
	"github.com/vesper-project/vesper/tiers/skills"
	"github.com/vesper-project/vesper/tiers/working"
)

// DefaultPageRankDepth bounds the PROJECT strategy's traversal.
const DefaultPageRankDepth = 2

// DefaultStrategyLimit caps the number of passages any single strategy
// returns.
const DefaultStrategyLimit = 5

// Options adjusts a single Route call.
type Options struct {
	// QueryVector, if non-nil, is used directly by the COMPLEX strategy
	// instead of calling the embedder.
	QueryVector []float32
	Limit       int
}

// Embedder turns query text into a dense vector for the COMPLEX
// strategy. Declared here (rather than importing the embedding client
// directly) so tests can substitute a fake without a live service.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// retrievalStrategy produces passages for one query class within a
// namespace.
type retrievalStrategy func(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error)

// Router dispatches a classified query to the cheapest sufficient
// retrieval path, mirroring the register-by-key shape of a
// mode-selecting protocol dispatcher: one strategy per QueryClass kept
// in a map rather than a type switch.
type Router struct {
	working  *working.Tier
	semantic *semantic.Tier
	skills   *skills.Tier
	hybrid   *search.Engine
	embedder Embedder

	strategies map[types.QueryClass]retrievalStrategy
}

// New builds a Router over the four retrieval tiers. embedder may be
// nil if the caller always supplies Options.QueryVector for COMPLEX
// queries.
func New(w *working.Tier, s *semantic.Tier, sk *skills.Tier, hybrid *search.Engine, embedder Embedder) *Router {
	r := &Router{working: w, semantic: s, skills: sk, hybrid: hybrid, embedder: embedder}
	r.strategies = map[types.QueryClass]retrievalStrategy{
		types.QueryFactual:    factualStrategy,
		types.QueryPreference: preferenceStrategy,
		types.QueryProject:    projectStrategy,
		types.QueryTemporal:   temporalStrategy,
		types.QuerySkill:      skillStrategy,
		types.QueryComplex:    complexStrategy,
	}
	return r
}

// Register overrides (or adds) the strategy used for class. Exposed so
// callers can substitute a fake strategy in tests without reaching into
// the map directly.
func (r *Router) Register(class types.QueryClass, strategy retrievalStrategy) {
	r.strategies[class] = strategy
}

// Route classifies query, then runs the strategy registered for that
// class.
func (r *Router) Route(ctx context.Context, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	classification := Classify(query)
	strategy, ok := r.strategies[classification.Class]
	if !ok {
		return nil, vesperrors.ErrInvalidInput.WithMessage("no retrieval strategy registered for class").WithDetail("class", string(classification.Class))
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultStrategyLimit
	}
	return strategy(ctx, r, namespace, query, opts)
}

// Classification exposes the classifier's verdict for query, useful to
// callers (e.g. tools.RetrieveMemory) that want to report it alongside
// the retrieved passages.
func (r *Router) Classification(query string) types.QueryClassification {
	return Classify(query)
}

func factualStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	name := extractEntityName(query)
	if name != "" {
		if e, err := r.semantic.GetEntity(ctx, name, namespace); err == nil {
			return []types.ScoredPassage{entityToPassage(e, 1.0)}, nil
		}
	}
	return complexStrategy(ctx, r, namespace, query, opts)
}

func preferenceStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	domain := extractDomainNoun(query)
	entities, err := r.semantic.GetPreferences(ctx, domain, namespace)
	if err != nil {
		return nil, err
	}
	if len(entities) > opts.Limit {
		entities = entities[:opts.Limit]
	}
	out := make([]types.ScoredPassage, len(entities))
	for i := range entities {
		out[i] = entityToPassage(&entities[i], entities[i].Confidence)
	}
	return out, nil
}

func projectStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	name := extractEntityName(query)
	if name == "" {
		return nil, nil
	}
	seed, err := r.semantic.GetEntity(ctx, name, namespace)
	if err != nil {
		return nil, nil
	}
	ranked, err := r.semantic.PersonalizedPageRank(ctx, seed.ID, namespace, DefaultPageRankDepth)
	if err != nil {
		return nil, err
	}
	if len(ranked) > opts.Limit {
		ranked = ranked[:opts.Limit]
	}
	out := make([]types.ScoredPassage, 0, len(ranked))
	for _, pr := range ranked {
		e, err := r.semantic.GetEntityByID(ctx, pr.EntityID, namespace)
		if err != nil {
			continue
		}
		out = append(out, entityToPassage(e, pr.Score))
	}
	return out, nil
}

func temporalStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	entities, err := r.semantic.GetByTimeRange(ctx, nil, nil, namespace)
	if err != nil {
		return nil, err
	}
	out := make([]types.ScoredPassage, 0, len(entities)+opts.Limit)
	for i := range entities {
		out = append(out, entityToPassage(&entities[i], 1.0))
	}

	recent, err := r.working.GetRecent(ctx, namespace, opts.Limit)
	if err != nil {
		return nil, err
	}
	for _, rec := range recent {
		out = append(out, types.ScoredPassage{
			ID:         rec.ConversationID,
			Content:    rec.FullText,
			Similarity: 1.0,
			Source:     types.SourceWorking,
			Timestamp:  rec.Timestamp,
		})
	}
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func skillStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	detection, err := r.skills.DetectInvocation(ctx, namespace, query)
	if err != nil {
		return nil, err
	}
	if detection.IsInvocation {
		skill, err := r.skills.LoadFull(ctx, namespace, detection.SkillID)
		if err != nil {
			return nil, err
		}
		var lastUsed time.Time
		if skill.LastUsed != nil {
			lastUsed = *skill.LastUsed
		}
		return []types.ScoredPassage{{
			ID:         skill.ID,
			Content:    skill.Description,
			Similarity: detection.Confidence,
			Source:     types.SourceProcedural,
			Timestamp:  lastUsed,
		}}, nil
	}

	summaries, err := r.skills.Search(ctx, namespace, query, opts.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.ScoredPassage, len(summaries))
	for i, s := range summaries {
		out[i] = types.ScoredPassage{
			ID:         s.ID,
			Content:    s.Summary,
			Similarity: s.QualityScore,
			Source:     types.SourceProcedural,
		}
	}
	return out, nil
}

func complexStrategy(ctx context.Context, r *Router, namespace, query string, opts Options) ([]types.ScoredPassage, error) {
	if r.hybrid == nil {
		return nil, nil
	}
	vector := opts.QueryVector
	if vector == nil {
		if r.embedder == nil {
			return nil, vesperrors.ErrInvalidInput.WithMessage("no query vector supplied and no embedder configured")
		}
		v, err := r.embedder.Embed(ctx, query)
		if err != nil {
			return nil, err
		}
		vector = v
	}

	hits, err := r.hybrid.Hybrid(ctx, namespace, query, vector, opts.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.ScoredPassage, len(hits))
	for i, h := range hits {
		content, _ := h.Payload["content"].(string)
		out[i] = types.ScoredPassage{
			ID:         h.ID,
			Content:    content,
			Similarity: h.Score,
			Source:     types.SourceHybrid,
		}
	}
	return out, nil
}

func entityToPassage(e *types.Entity, score float64) types.ScoredPassage {
	content := e.Description
	if content == "" {
		content = e.Name
	}
	return types.ScoredPassage{
		ID:         e.ID,
		Content:    content,
		Similarity: score,
		Source:     types.SourceSemantic,
		Timestamp:  e.CreatedAt,
	}
}
