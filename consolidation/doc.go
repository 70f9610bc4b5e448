// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

/*
Package consolidation is the scheduled promotion/decay/conflict/prune
pipeline (component I): the process that turns working-tier activity
into durable semantic-tier structure.

Scheduler wraps github.com/robfig/cron/v3 with the idempotency a bare
cron.Cron does not provide on its own: a sync.Once-guarded Start, a
tracked cron.EntryID for Stop, and a cross-process advisory lock (held
in the cache adapter) so at most one consolidation run proceeds at a
time. Pipeline runs the seven-step body of a single namespace's
consolidation; extract.go holds the deterministic, NLP-free rule set
that turns a working-memory record into candidate entities,
relationships, facts, and skill proposals.
*/
package consolidation
