// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package consolidation

import (
	"regexp"
	"strings"
	"time"

	"github.com/vesper-project/vesper/pkg/types"
)

// properNounPattern matches a capitalized word of at least three
// letters — the tokenisation step of the rule-based entity extractor.
// No NLP dependency is used here: every other example repo that does
// "memory extraction" either calls out to an LLM or hand-rolls token
// rules, and an LLM call is out of scope for consolidation, so this is
// the deliberate choice, not a shortcut.
var properNounPattern = regexp.MustCompile(`\b[A-Z][a-zA-Z]{2,}\b`)

// sentenceStopwords are capitalized words that are common enough at the
// start of a sentence (or as ordinary capitalized pronouns) that they
// are excluded from proper-noun extraction regardless of position.
var sentenceStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"And": true, "But": true, "Then": true, "When": true, "Where": true,
	"What": true, "Why": true, "How": true, "Who": true, "Which": true,
	"I": true, "We": true, "You": true, "It": true, "They": true,
	"Yes": true, "No": true, "Ok": true, "Okay": true,
}

// topicWhitelist is the closed vocabulary consolidation recognises as a
// concept-typed entity when it appears in a record's FullText or
// Topics, independent of capitalization.
var topicWhitelist = []string{
	"golang", "python", "javascript", "typescript", "rust", "java",
	"kubernetes", "docker", "react", "vue", "postgres", "mysql",
	"sqlite", "redis", "graphql", "rest", "microservice", "monolith",
	"testing", "deployment", "ci/cd", "database", "api", "frontend",
	"backend", "authentication", "security",
}

// verbPatterns pairs a relationship-indicating phrase with the
// RelationType stamped on the edge it produces.
var verbPatterns = []struct {
	phrase  string
	relType string
}{
	{"works on", "works_on"},
	{"working on", "works_on"},
	{"prefers", "prefers"},
	{"prefer", "prefers"},
	{"decided to", "decided_to"},
	{"decided on", "decided_to"},
}

// preferenceTriggers mirrors the router's PREFERENCE classifier
// vocabulary: a record whose UserIntent contains one of these words is
// treated as expressing a preference rather than a plain statement.
var preferenceTriggers = map[string]bool{
	"my": true, "prefer": true, "prefers": true, "preferred": true, "favorite": true,
}

// candidateEntity is a not-yet-persisted entity extract.go proposes;
// the pipeline assigns ID/Namespace/CreatedAt and calls
// semantic.Tier.UpsertEntity.
type candidateEntity struct {
	Name        string
	Type        types.EntityType
	Description string
	Confidence  float64
}

// candidateRelationship is a not-yet-persisted edge between two
// candidateEntity names (resolved to IDs by the pipeline after both
// sides have been upserted).
type candidateRelationship struct {
	SourceName string
	TargetName string
	RelType    string
	Evidence   string
}

// candidateFact is a not-yet-persisted fact attached to an entity name
// (resolved to an entity ID by the pipeline).
type candidateFact struct {
	EntityName string
	Property   string
	Value      string
	Confidence float64
}

// extractEntities applies the rule set to a single working-memory
// record: KeyEntities already identified by the caller are trusted
// outright (confidence 0.9); Topics matching the whitelist and
// additional proper nouns found in FullText are lower-confidence
// inferences (0.8 and 0.6 respectively). Results are deduplicated by
// case-insensitive name, the highest-confidence candidate winning.
func extractEntities(record types.WorkingMemoryRecord) []candidateEntity {
	byName := make(map[string]candidateEntity)

	add := func(c candidateEntity) {
		key := strings.ToLower(c.Name)
		if key == "" {
			return
		}
		if existing, ok := byName[key]; ok && existing.Confidence >= c.Confidence {
			return
		}
		byName[key] = c
	}

	for _, name := range record.KeyEntities {
		add(candidateEntity{Name: name, Type: entityTypeFor(name, record), Confidence: 0.9})
	}
	for _, topic := range record.Topics {
		if isWhitelistedTopic(topic) {
			add(candidateEntity{Name: topic, Type: types.EntityTypeConcept, Confidence: 0.8})
		}
	}
	for _, noun := range properNounPattern.FindAllString(record.FullText, -1) {
		if sentenceStopwords[noun] {
			continue
		}
		add(candidateEntity{Name: noun, Type: types.EntityTypeConcept, Confidence: 0.6})
	}

	if isPreference(record.UserIntent) {
		if domain := extractDomainNoun(record.UserIntent); domain != "" {
			add(candidateEntity{
				Name:        domain,
				Type:        types.EntityTypePreference,
				Description: record.UserIntent,
				Confidence:  0.85,
			})
		}
	}

	out := make([]candidateEntity, 0, len(byName))
	for _, c := range byName {
		out = append(out, c)
	}
	return out
}

// entityTypeFor classifies a KeyEntities member: a project-shaped name
// (hyphenated, or matching a topic word) is typed project; otherwise
// person is the default, matching how the tier's callers populate
// KeyEntities from conversational participants in practice.
func entityTypeFor(name string, record types.WorkingMemoryRecord) types.EntityType {
	if isWhitelistedTopic(name) {
		return types.EntityTypeConcept
	}
	if strings.Contains(name, "-") || strings.Contains(name, "_") {
		return types.EntityTypeProject
	}
	for _, topic := range record.Topics {
		if strings.EqualFold(topic, name) {
			return types.EntityTypeConcept
		}
	}
	return types.EntityTypePerson
}

func isWhitelistedTopic(s string) bool {
	lower := strings.ToLower(s)
	for _, t := range topicWhitelist {
		if lower == t {
			return true
		}
	}
	return false
}

func isPreference(userIntent string) bool {
	lower := strings.ToLower(userIntent)
	for tok := range preferenceTriggers {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// extractDomainNoun finds the first noun token following a preference
// trigger word, skipping an immediately adjacent "favorite"/"preferred"
// — the same heuristic the router's PREFERENCE strategy uses to pick a
// query's domain, applied here to a record's UserIntent instead of a
// query string.
func extractDomainNoun(text string) string {
	tokens := strings.Fields(text)
	skippable := map[string]bool{"favorite": true, "preferred": true}

	for i, tok := range tokens {
		clean := strings.ToLower(strings.Trim(tok, ".,!?'\""))
		if !preferenceTriggers[clean] {
			continue
		}
		for j := i + 1; j < len(tokens); j++ {
			cand := strings.ToLower(strings.Trim(tokens[j], ".,!?'\""))
			if cand == "" || skippable[cand] {
				continue
			}
			return cand
		}
	}
	return ""
}

// extractRelationships scans FullText for a verb pattern and, when one
// is found, links the first two distinct entities already extracted
// from the same record — the source being whichever entity name occurs
// first in FullText, the target the next distinct one.
func extractRelationships(record types.WorkingMemoryRecord, entities []candidateEntity) []candidateRelationship {
	if len(entities) < 2 {
		return nil
	}
	lower := strings.ToLower(record.FullText)

	var matchedType string
	var matchedPhrase string
	for _, vp := range verbPatterns {
		if strings.Contains(lower, vp.phrase) {
			matchedType = vp.relType
			matchedPhrase = vp.phrase
			break
		}
	}
	if matchedType == "" {
		return nil
	}

	ordered := orderByFirstOccurrence(record.FullText, entities)
	if len(ordered) < 2 {
		return nil
	}
	return []candidateRelationship{{
		SourceName: ordered[0].Name,
		TargetName: ordered[1].Name,
		RelType:    matchedType,
		Evidence:   matchedPhrase,
	}}
}

// orderByFirstOccurrence sorts entities by the position their name
// first appears in text, entities absent from text sorting last in
// stable encounter order.
func orderByFirstOccurrence(text string, entities []candidateEntity) []candidateEntity {
	lower := strings.ToLower(text)
	type indexed struct {
		entity candidateEntity
		pos    int
	}
	idx := make([]indexed, len(entities))
	for i, e := range entities {
		pos := strings.Index(lower, strings.ToLower(e.Name))
		if pos < 0 {
			pos = len(lower) + i
		}
		idx[i] = indexed{entity: e, pos: pos}
	}
	for i := 1; i < len(idx); i++ {
		for j := i; j > 0 && idx[j].pos < idx[j-1].pos; j-- {
			idx[j], idx[j-1] = idx[j-1], idx[j]
		}
	}
	out := make([]candidateEntity, len(idx))
	for i, v := range idx {
		out[i] = v.entity
	}
	return out
}

// extractFacts attaches a preference fact to any preference-typed
// candidate, and a "discussed" fact to every concept-typed candidate so
// repeated topics accumulate evidence over successive consolidation
// runs.
func extractFacts(record types.WorkingMemoryRecord, entities []candidateEntity) []candidateFact {
	var out []candidateFact
	for _, e := range entities {
		switch e.Type {
		case types.EntityTypePreference:
			out = append(out, candidateFact{
				EntityName: e.Name,
				Property:   "preference",
				Value:      record.UserIntent,
				Confidence: 0.7,
			})
		case types.EntityTypeConcept:
			out = append(out, candidateFact{
				EntityName: e.Name,
				Property:   "discussed",
				Value:      record.ConversationID,
				Confidence: 0.5,
			})
		}
	}
	return out
}

// proceduralPatternMinOccurrences is the number of distinct
// conversations a topic must appear across before it is considered a
// recurring procedural pattern worth proposing a skill for.
const proceduralPatternMinOccurrences = 3

// noveltyQualityCeiling is the existing-skill search score above which
// a candidate skill is considered redundant rather than novel.
const noveltyQualityCeiling = 0.3

// skillProposal is a not-yet-persisted skill candidate.
type skillProposal struct {
	Name        string
	Summary     string
	Description string
	Category    string
	Triggers    []string
}

// proposeSkills groups records by a shared topic and, for any topic
// recurring across at least proceduralPatternMinOccurrences distinct
// conversations, proposes a skill named after it. The caller is
// expected to check novelty (an existing-skill search score below
// noveltyQualityCeiling) before inserting.
func proposeSkills(records []types.WorkingMemoryRecord) []skillProposal {
	byTopic := make(map[string]map[string]bool) // topic -> set of conversation IDs
	for _, r := range records {
		if !isProcedural(r.UserIntent) {
			continue
		}
		for _, topic := range r.Topics {
			key := strings.ToLower(topic)
			if byTopic[key] == nil {
				byTopic[key] = make(map[string]bool)
			}
			byTopic[key][r.ConversationID] = true
		}
	}

	var out []skillProposal
	for topic, convIDs := range byTopic {
		if len(convIDs) < proceduralPatternMinOccurrences {
			continue
		}
		out = append(out, skillProposal{
			Name:        "handle_" + strings.ReplaceAll(topic, " ", "_"),
			Summary:     "Recurring procedure observed around " + topic,
			Description: "Proposed from " + itoa(len(convIDs)) + " conversations that repeatedly worked through " + topic + ".",
			Category:    "procedural",
			Triggers:    []string{topic},
		})
	}
	return out
}

// proceduralTriggers are the UserIntent phrasings that mark a record as
// describing a repeatable procedure rather than a one-off statement.
var proceduralTriggers = []string{"how to", "steps to", "process for", "workflow for"}

func isProcedural(userIntent string) bool {
	lower := strings.ToLower(userIntent)
	for _, trig := range proceduralTriggers {
		if strings.Contains(lower, trig) {
			return true
		}
	}
	return false
}

// pruneCutoff returns the instant before which a weak relationship is
// eligible for pruning: twice the configured relationship half-life in
// the past, the same multiple ApplyTemporalDecay effectively uses
// before a decayed edge is indistinguishable from noise.
func pruneCutoff(halfLife time.Duration) time.Time {
	return time.Now().Add(-2 * halfLife)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
