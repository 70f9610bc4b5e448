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

// Package semantic is the memory core's semantic memory tier (component
// E): the durable entity-relationship-fact graph, scoped by namespace,
// built directly on the relational store adapter.
//
// personalizedPageRank is a breadth-first, depth-bounded power iteration
// from a seed entity; applyTemporalDecay and getPreferences both use an
// exp(-dt/tau) curve whose half-life constants come from
// config.SemanticConfig rather than being hardcoded.
package semantic
