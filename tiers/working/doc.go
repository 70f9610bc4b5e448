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

// Package working is the memory core's working memory tier (component
// D): a bounded, per-namespace recency cache of whole conversation
// records, plus the skill sub-cache that skills.Tier.LoadFull writes
// into; no code outside this package's tests reads it back.
//
// Store writes the record, appends it to the recency index and trims the
// index down to the tier's capacity through cache.SortedSetCache — there is no
// in-memory mirror of tier membership; the cache adapter is the sole
// source of truth, so every process sees the same eviction decision.
package working
