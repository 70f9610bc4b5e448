// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package types provides the core data-model structs shared across the
// memory store's tiers, router, consolidation pipeline, and tool surface.
//
// Every record in the package carries a Namespace field acting as a hard
// tenancy boundary: no query path may return a record whose Namespace
// differs from the one it was given. The type system is organized into
// several categories:
//
//   - Working-tier types: WorkingMemoryRecord, CachedSkill
//   - Relational-tier types: MemoryRow, Entity, Relationship, Fact, Skill,
//     Conflict
//   - Query/result types: ScoredPassage, QueryClassification, QueryClass
//   - Aggregate types: ConsolidationStats, NamespaceStats
package types
