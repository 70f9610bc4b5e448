// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package router

import (
	"regexp"
	"strings"

	"github.com/vesper-project/vesper/pkg/types"
)

// classRule is one entry in the ordered classifier table. Pattern is
// tried case-insensitively; the first rule to match wins.
type classRule struct {
	class   types.QueryClass
	pattern *regexp.Regexp
}

// classifierRules is evaluated top to bottom. TEMPORAL is checked ahead
// of FACTUAL and SKILL is checked ahead of PREFERENCE/FACTUAL so that,
// e.g., "what was discussed yesterday" resolves to TEMPORAL rather than
// the WH-word pattern that would otherwise make it FACTUAL.
var classifierRules = []classRule{
	{types.QueryTemporal, regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|last\s+(week|month|year|night)|this\s+(morning|week|month)|earlier|recently|\d{4}-\d{2}-\d{2})\b`)},
	{types.QuerySkill, regexp.MustCompile(`(?i)\b(like\s+before|same\s+as\s+last\s+time|like\s+last\s+time|do\s+that\s+again|run\s+the\s+\w+|invoke\s+\w+|skills?)\b`)},
	{types.QueryPreference, regexp.MustCompile(`(?i)\b(my\s+\w+|favorite|prefer(?:s|red)?|i\s+like)\b`)},
	{types.QueryProject, regexp.MustCompile(`(?i)\b(status\s+of|progress\s+on|how'?s?\s+\S+\s+going)\b`)},
	{types.QueryFactual, regexp.MustCompile(`(?i)\b(what|who|where|which|when|how\s+many|how\s+much)\b`)},
}

// Classify assigns query to one of the six classes. An unmatched query
// defaults to COMPLEX with confidence 1 (the classifier is certain
// nothing more specific applies).
func Classify(query string) types.QueryClassification {
	for _, rule := range classifierRules {
		if loc := rule.pattern.FindStringIndex(query); loc != nil {
			return types.QueryClassification{
				Class:          rule.class,
				Confidence:     confidenceFor(rule.class, query),
				MatchedPattern: rule.pattern.FindString(query),
			}
		}
	}
	return types.QueryClassification{Class: types.QueryComplex, Confidence: 1.0}
}

// confidenceFor gives PREFERENCE and PROJECT a slightly lower baseline
// than TEMPORAL/SKILL/FACTUAL, reflecting that their trigger words
// overlap more with ordinary conversation.
func confidenceFor(class types.QueryClass, query string) float64 {
	switch class {
	case types.QueryPreference, types.QueryProject:
		return 0.75
	default:
		return 0.9
	}
}

// extractDomainNoun implements the source's documented heuristic: the
// first noun token following "my"/"favorite"/"prefer(s/red)" (skipping
// a second "favorite"/"preferred" immediately after the trigger). Exact
// tie-breaks beyond the documented examples (coffee, coding, language,
// reports, typescript) are unspecified upstream; this function makes no
// attempt to resolve cases beyond that heuristic.
func extractDomainNoun(query string) string {
	tokens := strings.Fields(query)
	triggers := map[string]bool{"my": true, "prefer": true, "prefers": true, "preferred": true, "favorite": true}
	skippable := map[string]bool{"favorite": true, "preferred": true}

	for i, tok := range tokens {
		clean := strings.ToLower(strings.Trim(tok, ".,!?'\""))
		if !triggers[clean] {
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

// extractEntityName returns the first proper-noun-looking token in
// query: a hyphenated identifier (e.g. "acme-project") wins outright,
// otherwise the first capitalized word after the sentence-initial
// token (whose capitalization is grammar, not a name). Used by both the
// FACTUAL and PROJECT strategies to find the entity a query is about.
func extractEntityName(query string) string {
	tokens := strings.Fields(query)
	for i, tok := range tokens {
		cand := strings.Trim(tok, ".,!?'\"")
		if cand == "" {
			continue
		}
		if strings.Contains(cand, "-") {
			return cand
		}
		if i == 0 {
			continue
		}
		if r := []rune(cand)[0]; r >= 'A' && r <= 'Z' {
			return cand
		}
	}
	return ""
}
