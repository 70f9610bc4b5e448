// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

// Package vesper assembles the memory core's tiers, adapters, router,
// and control plane into one Store facade, and exposes every tool
// operation (store_memory, retrieve_memory, list_recent, get_stats,
// vesper_enable/disable/status, record_skill_outcome, load_skill,
// delete_memory, share_context, store_decision, list_namespaces,
// namespace_stats) as a tools.Tool with a fixed input schema.
//
// Construction uses a fluent builder:
//
//	store, err := vesper.New(cfg).
//	    WithDB(db).
//	    WithCache(backend).
//	    WithVectorIndex(ix).
//	    WithEmbedder(client).
//	    Build()
//
// Every tool call decodes its parameters (a type mismatch fails here),
// is then gated through the rate limiter, and then runs its operation,
// which validates its typed input before touching any tier; a call that
// fails validation has therefore already counted against its rate
// limit. Business failures (not-found, idempotent no-ops, invalid
// input) come back as Result{Success: false} while rate-limit denials
// and infrastructure errors surface as errors.
package vesper
