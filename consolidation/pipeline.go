// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package consolidation

import (
	"context"
	"time"

	"github.com/vesper-project/vesper/conflict"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/storage"
	"github.com/vesper-project/vesper/tiers/semantic"
	"github.com/vesper-project/vesper/tiers/skills"
	"github.com/vesper-project/vesper/tiers/working"
)

// minRelationshipStrength is the floor below which a relationship is
// pruned once it is also older than the half-life-derived cutoff.
const minRelationshipStrength = 0.05

// CompletionFunc is invoked once per namespace after its run finishes
// (success or failure), so a caller can export stats or trigger
// downstream work without the pipeline depending on anything but this
// callback shape.
type CompletionFunc func(namespace string, stats types.ConsolidationStats, err error)

// Pipeline runs the seven-step body of a single namespace's
// consolidation: promote working-tier activity into the semantic graph,
// decay, detect conflicts, prune, and propose skills.
type Pipeline struct {
	db       *storage.DB
	working  *working.Tier
	semantic *semantic.Tier
	skills   *skills.Tier
	halfLife time.Duration

	onComplete CompletionFunc
}

// NewPipeline builds a Pipeline over the given tiers. halfLife is the
// relationship half-life used to derive the prune cutoff — the same
// value configured for semantic.Tier's temporal decay.
func NewPipeline(db *storage.DB, w *working.Tier, s *semantic.Tier, sk *skills.Tier, halfLife time.Duration) *Pipeline {
	return &Pipeline{db: db, working: w, semantic: s, skills: sk, halfLife: halfLife}
}

// OnComplete registers the per-namespace completion callback. A nil fn
// disables the callback.
func (p *Pipeline) OnComplete(fn CompletionFunc) {
	p.onComplete = fn
}

// RunNamespace executes the full seven-step consolidation body for a
// single namespace and reports the outcome through the registered
// completion callback before returning.
func (p *Pipeline) RunNamespace(ctx context.Context, namespace string) (types.ConsolidationStats, error) {
	start := time.Now()
	stats, err := p.runNamespace(ctx, namespace)
	stats.Duration = time.Since(start)
	if p.onComplete != nil {
		p.onComplete(namespace, stats, err)
	}
	return stats, err
}

func (p *Pipeline) runNamespace(ctx context.Context, namespace string) (types.ConsolidationStats, error) {
	var stats types.ConsolidationStats

	// Step 1: read every record the working tier currently holds for
	// this namespace. Consolidation only reads D; it never mutates it —
	// ownership of the extracted structure transfers to E/F by way of
	// new writes there, not by deleting the working-tier source.
	records, err := p.working.GetRecent(ctx, namespace, -1)
	if err != nil {
		return stats, err
	}
	stats.MemoriesProcessed = len(records)

	// Step 2: extract and upsert entities, relationships, and facts.
	entityIDs := make(map[string]string) // lowercase name -> entity ID
	for _, record := range records {
		candidates := extractEntities(record)
		for _, c := range candidates {
			name := c.Name
			key := lowerKey(name)
			if _, ok := entityIDs[key]; ok {
				continue
			}
			e := &types.Entity{
				Name:        name,
				Type:        c.Type,
				Description: c.Description,
				Confidence:  c.Confidence,
				Namespace:   namespace,
			}
			stored, err := p.semantic.UpsertEntity(ctx, e)
			if err != nil {
				return stats, err
			}
			entityIDs[key] = stored.ID
			if stored.AccessCount <= 1 {
				stats.EntitiesCreated++
			}
		}

		for _, rel := range extractRelationships(record, candidates) {
			sourceID, sourceOK := entityIDs[lowerKey(rel.SourceName)]
			targetID, targetOK := entityIDs[lowerKey(rel.TargetName)]
			if !sourceOK || !targetOK || sourceID == targetID {
				continue
			}
			r := &types.Relationship{
				SourceID:     sourceID,
				TargetID:     targetID,
				RelationType: rel.RelType,
				Evidence:     rel.Evidence,
				Namespace:    namespace,
			}
			stored, err := p.semantic.UpsertRelationship(ctx, r)
			if err != nil {
				return stats, err
			}
			if stored.CreatedAt.Equal(stored.LastReinforced) {
				stats.RelationshipsCreated++
			}
		}

		for _, fact := range extractFacts(record, candidates) {
			entityID, ok := entityIDs[lowerKey(fact.EntityName)]
			if !ok {
				continue
			}
			f := &types.Fact{
				EntityID:           entityID,
				Property:           fact.Property,
				Value:              fact.Value,
				Confidence:         fact.Confidence,
				SourceConversation: record.ConversationID,
				Namespace:          namespace,
			}
			if err := p.db.Q().InsertFact(ctx, f); err != nil {
				return stats, err
			}
		}
	}

	// Step 3: propose a skill when a record's userIntent exhibits a
	// procedural pattern, subject to a novelty check against existing
	// skills in the namespace.
	for _, proposal := range proposeSkills(records) {
		novel, err := p.isNovelSkill(ctx, namespace, proposal)
		if err != nil {
			return stats, err
		}
		if !novel {
			continue
		}
		s := &types.Skill{
			Name:                proposal.Name,
			Description:         proposal.Description,
			Summary:             proposal.Summary,
			Category:            proposal.Category,
			Triggers:            proposal.Triggers,
			AvgUserSatisfaction: types.DefaultAvgUserSatisfaction,
			Version:             1,
			Namespace:           namespace,
		}
		if _, err := p.skills.AddSkill(ctx, s); err != nil {
			return stats, err
		}
		stats.SkillsProposed++
	}

	// Step 4: apply temporal decay to every relationship in namespace.
	if _, err := p.semantic.ApplyTemporalDecay(ctx, namespace); err != nil {
		return stats, err
	}

	// Step 5: detect conflicts among facts (grouped per entity), among
	// preference entities, and among live decision rows. A pair already
	// flagged by an earlier run is never stored twice.
	existing, err := p.db.Q().ListConflicts(ctx, namespace)
	if err != nil {
		return stats, err
	}
	flagged := make(map[string]bool, len(existing))
	for _, c := range existing {
		flagged[conflictPairKey(c.FactID1, c.FactID2)] = true
	}
	storeOnce := func(c *types.Conflict, updateFactConfidence bool) error {
		key := conflictPairKey(c.FactID1, c.FactID2)
		if flagged[key] {
			return nil
		}
		flagged[key] = true
		if err := p.db.Q().StoreConflict(ctx, c, updateFactConfidence); err != nil {
			return err
		}
		stats.ConflictsDetected++
		return nil
	}

	entities, err := p.db.Q().ListEntities(ctx, namespace)
	if err != nil {
		return stats, err
	}
	for _, e := range entities {
		facts, err := p.db.Q().ListFactsByEntity(ctx, namespace, e.ID)
		if err != nil {
			return stats, err
		}
		factValues := make([]types.Fact, len(facts))
		for i, f := range facts {
			factValues[i] = *f
		}
		for _, c := range conflict.Detect(factValues) {
			if err := storeOnce(&c, true); err != nil {
				return stats, err
			}
		}
	}

	entityValues := make([]types.Entity, len(entities))
	for i, e := range entities {
		entityValues[i] = *e
	}
	for _, c := range conflict.DetectPreferenceShift(entityValues) {
		if err := storeOnce(&c, false); err != nil {
			return stats, err
		}
	}

	decisions, err := p.db.Q().ListDecisions(ctx, namespace)
	if err != nil {
		return stats, err
	}
	decisionRows := make([]types.MemoryRow, len(decisions))
	for i, d := range decisions {
		decisionRows[i] = *d
	}
	for _, c := range conflict.DetectDecisions(decisionRows) {
		if err := storeOnce(&c, false); err != nil {
			return stats, err
		}
	}

	// Step 6: prune relationships whose strength has decayed below the
	// floor and that have not been reinforced since the cutoff.
	cutoff := pruneCutoff(p.halfLife)
	relationships, err := p.db.Q().ListRelationships(ctx, namespace)
	if err != nil {
		return stats, err
	}
	for _, r := range relationships {
		if r.Strength < minRelationshipStrength && r.LastReinforced.Before(cutoff) {
			if err := p.db.Q().DeleteRelationship(ctx, r.ID); err != nil {
				return stats, err
			}
		}
	}

	// Step 7: stats are returned to the caller, which stamps Duration
	// and invokes the completion callback.
	return stats, nil
}

// isNovelSkill treats a proposal as novel when no existing skill in
// namespace scores above noveltyQualityCeiling against its name.
func (p *Pipeline) isNovelSkill(ctx context.Context, namespace string, proposal skillProposal) (bool, error) {
	matches, err := p.skills.Search(ctx, namespace, proposal.Name, 1)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return true, nil
	}
	return matches[0].QualityScore < noveltyQualityCeiling, nil
}

// conflictPairKey identifies a conflict pair regardless of which order
// the detector listed its two sides in.
func conflictPairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func lowerKey(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
