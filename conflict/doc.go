// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package conflict is the conflict detector: pure functions over
// in-memory facts, preference entities, and decision rows. See
// detect.go and decisions.go. The side-effecting write half lives in
// storage.Queries.StoreConflict.
package conflict
