// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package conflict

import (
	"strings"

	"github.com/vesper-project/vesper/pkg/types"
)

// mutuallyExclusiveTerms pairs topic terms that cannot both be true of
// the same decision at once. Matching is substring-based and
// case-insensitive; either ordering of a pair is checked.
var mutuallyExclusiveTerms = [][2]string{
	{"javascript", "typescript"},
	{"use js", "use ts"},
	{"rest", "graphql"},
	{"sql", "nosql"},
	{"monolith", "microservice"},
	{"synchronous", "asynchronous"},
}

// DetectDecisions applies the contradiction rule to live decision rows
// (metadata.superseded_by absent): two rows whose content matches
// opposite sides of a mutually-exclusive term pair are flagged. rows
// must already be scoped to a single namespace.
func DetectDecisions(rows []types.MemoryRow) []types.Conflict {
	live := make([]*types.MemoryRow, 0, len(rows))
	for i := range rows {
		if !rows[i].IsDecision() {
			continue
		}
		if _, superseded := rows[i].SupersededBy(); superseded {
			continue
		}
		live = append(live, &rows[i])
	}

	var out []types.Conflict
	for i := 0; i < len(live); i++ {
		for j := i + 1; j < len(live); j++ {
			if term, ok := conflictingTerms(live[i].Content, live[j].Content); ok {
				out = append(out, types.Conflict{
					ID:               types.NewID(),
					FactID1:          live[i].ID,
					FactID2:          live[j].ID,
					ConflictType:     types.ConflictContradiction,
					Description:      "decisions match mutually exclusive terms: " + term,
					Severity:         types.SeverityMedium,
					ResolutionStatus: types.ResolutionFlagged,
					Namespace:        live[i].Namespace,
				})
			}
		}
	}
	return out
}

// conflictingTerms reports whether a and b each contain one side of a
// mutually-exclusive term pair, and which pair matched.
func conflictingTerms(a, b string) (string, bool) {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	for _, pair := range mutuallyExclusiveTerms {
		left, right := pair[0], pair[1]
		if (strings.Contains(la, left) && strings.Contains(lb, right)) ||
			(strings.Contains(la, right) && strings.Contains(lb, left)) {
			return left + "/" + right, true
		}
	}
	return "", false
}
