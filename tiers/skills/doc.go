// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package skills implements the procedural memory tier: addSkill,
getSummaries, loadFull, search, detectInvocation, recordSuccess, and
recordFailure over the relational store's skills table.

score.go holds the quality_score/success_rate formulas as free functions
over raw counts; nothing in the module calls them (the consolidation
pipeline's novelty check uses Tier.Search). invocation.go implements the
three-stage detectInvocation matcher: literal skill name, then trigger
phrase, then a generic "like before" reference resolved to the most
recently used skill.
*/
package skills
