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

// Package vectorindex is the memory core's vector index adapter
// (component A): a thin wrapper around a Qdrant collection, used for
// both the dense nearest-neighbour search and (via payload filtering,
// since the pinned client has no native sparse/BM25 index) the sparse
// keyword search that feed package search's hybrid fusion.
//
// Every network call runs through resilience.Retry and
// resilience.Timeout so a caller's deadline surfaces as a typed
// pkg/errors error rather than a raw gRPC status. Collection-name and
// vector validation is the validate package's job, upstream of every
// call here; Index assumes its inputs are already clean.
package vectorindex
