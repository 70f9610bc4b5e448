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

// Package storage is the memory core's relational store adapter
// (component B): an embedded, file-backed SQLite database holding the
// seven durable tables — memories, entities, relationships, facts,
// conflicts, skills, backup_metadata — every one scoped by a namespace
// column.
//
// DB wraps database/sql against github.com/mattn/go-sqlite3 and exposes
// one method per row shape the semantic and skill tiers need; Tx wraps a
// multi-statement operation (store_decision's supersede-then-insert
// pair) in a single sql.Tx, committing on success and rolling back on any
// returned error, including a recovered panic.
package storage
