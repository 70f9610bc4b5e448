// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package skills

import (
	"strings"

	"github.com/vesper-project/vesper/pkg/types"
)

// referencePhrases are the generic "do it again" phrasings detected by
// the third invocation-matching stage.
var referencePhrases = []string{
	"like before",
	"same as last time",
	"like last time",
	"do that again",
	"same thing again",
}

// detectInvocation tries, in order, a literal skill-name match, a
// trigger match, then a generic reference phrase, against skills (which
// may include archived rows — callers are expected to have already
// filtered those out if archived skills should not be invocable).
func detectInvocation(skills []*types.Skill, text string) types.InvocationDetection {
	lower := strings.ToLower(text)

	if matched, name := matchExplicitName(skills, lower); matched != nil {
		return types.InvocationDetection{
			IsInvocation:   true,
			SkillID:        matched.ID,
			Confidence:     1.0,
			MatchedPattern: string(types.MatchExplicitName) + ":" + name,
		}
	}

	if matched, trigger, confidence := matchTrigger(skills, lower); matched != nil {
		return types.InvocationDetection{
			IsInvocation:   true,
			SkillID:        matched.ID,
			Confidence:     confidence,
			MatchedPattern: string(types.MatchTriggerPrefix) + trigger,
		}
	}

	if matched := matchGenericReference(skills, lower); matched != nil {
		return types.InvocationDetection{
			IsInvocation:   true,
			SkillID:        matched.ID,
			Confidence:     0.5,
			MatchedPattern: string(types.MatchReferencePrevious),
		}
	}

	return types.InvocationDetection{IsInvocation: false}
}

// matchExplicitName looks for a skill's own name appearing verbatim in
// text.
func matchExplicitName(skills []*types.Skill, lower string) (*types.Skill, string) {
	for _, s := range skills {
		if s.Name == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(s.Name)) {
			return s, s.Name
		}
	}
	return nil, ""
}

// matchTrigger returns the skill whose trigger phrase appears in text
// with the highest confidence (longer triggers score higher — a longer
// match is a more specific, less accidental one).
func matchTrigger(skills []*types.Skill, lower string) (*types.Skill, string, float64) {
	var best *types.Skill
	var bestTrigger string
	var bestLen int
	for _, s := range skills {
		for _, trig := range s.Triggers {
			t := strings.ToLower(strings.TrimSpace(trig))
			if t == "" || !strings.Contains(lower, t) {
				continue
			}
			if len(t) > bestLen {
				best, bestTrigger, bestLen = s, trig, len(t)
			}
		}
	}
	if best == nil {
		return nil, "", 0
	}
	confidence := float64(bestLen) / float64(len(lower))
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0.6 {
		confidence = 0.6
	}
	return best, bestTrigger, confidence
}

// matchGenericReference resolves a "like before"-style phrase to the
// most recently used skill.
func matchGenericReference(skills []*types.Skill, lower string) *types.Skill {
	found := false
	for _, phrase := range referencePhrases {
		if strings.Contains(lower, phrase) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var mostRecent *types.Skill
	for _, s := range skills {
		if s.LastUsed == nil {
			continue
		}
		if mostRecent == nil || s.LastUsed.After(*mostRecent.LastUsed) {
			mostRecent = s
		}
	}
	return mostRecent
}
