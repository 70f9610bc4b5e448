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

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS memories (
	id TEXT PRIMARY KEY,
	content TEXT NOT NULL,
	memory_type TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	importance REAL NOT NULL DEFAULT 0,
	access_count INTEGER NOT NULL DEFAULT 0,
	last_accessed TEXT NOT NULL,
	metadata TEXT,
	namespace TEXT NOT NULL DEFAULT 'default',
	agent_id TEXT,
	agent_role TEXT,
	task_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_memories_namespace ON memories(namespace);
CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at);
CREATE INDEX IF NOT EXISTS idx_memories_memory_type ON memories(memory_type);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	description TEXT,
	confidence REAL NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	last_accessed TEXT NOT NULL,
	access_count INTEGER NOT NULL DEFAULT 1,
	namespace TEXT NOT NULL DEFAULT 'default',
	aliases TEXT,
	UNIQUE(name, namespace)
);
CREATE INDEX IF NOT EXISTS idx_entities_namespace ON entities(namespace);
CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);

CREATE TABLE IF NOT EXISTS relationships (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL,
	target_id TEXT NOT NULL,
	relation_type TEXT NOT NULL,
	strength REAL NOT NULL DEFAULT 0.5,
	evidence TEXT,
	created_at TEXT NOT NULL,
	last_reinforced TEXT NOT NULL,
	namespace TEXT NOT NULL DEFAULT 'default',
	UNIQUE(source_id, target_id, relation_type, namespace)
);
CREATE INDEX IF NOT EXISTS idx_relationships_namespace ON relationships(namespace);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);

CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	entity_id TEXT NOT NULL,
	property TEXT NOT NULL,
	value TEXT NOT NULL,
	confidence REAL NOT NULL DEFAULT 1,
	valid_from TEXT,
	valid_until TEXT,
	source_conversation TEXT,
	namespace TEXT NOT NULL DEFAULT 'default'
);
CREATE INDEX IF NOT EXISTS idx_facts_namespace ON facts(namespace);
CREATE INDEX IF NOT EXISTS idx_facts_entity_id ON facts(entity_id);
CREATE INDEX IF NOT EXISTS idx_facts_source_conversation ON facts(source_conversation);

CREATE TABLE IF NOT EXISTS conflicts (
	id TEXT PRIMARY KEY,
	fact_id_1 TEXT NOT NULL,
	fact_id_2 TEXT NOT NULL,
	conflict_type TEXT NOT NULL,
	description TEXT,
	severity TEXT NOT NULL,
	resolution_status TEXT NOT NULL DEFAULT 'flagged',
	namespace TEXT NOT NULL DEFAULT 'default'
);
CREATE INDEX IF NOT EXISTS idx_conflicts_namespace ON conflicts(namespace);

CREATE TABLE IF NOT EXISTS skills (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	summary TEXT,
	category TEXT,
	triggers TEXT,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	avg_user_satisfaction REAL NOT NULL DEFAULT 0.5,
	is_archived INTEGER NOT NULL DEFAULT 0,
	last_used TEXT,
	code TEXT,
	code_type TEXT,
	prerequisites TEXT,
	uses_skills TEXT,
	version INTEGER NOT NULL DEFAULT 1,
	namespace TEXT NOT NULL DEFAULT 'default',
	invocation_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_skills_namespace ON skills(namespace);
CREATE INDEX IF NOT EXISTS idx_skills_category ON skills(category);

CREATE TABLE IF NOT EXISTS backup_metadata (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	description TEXT,
	namespace TEXT NOT NULL DEFAULT 'default'
);
CREATE INDEX IF NOT EXISTS idx_backup_metadata_namespace ON backup_metadata(namespace);
`

// DB is the relational store adapter. It owns the single writer
// connection to the SQLite file named by config.StorageConfig.SQLiteDB.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if absent) the SQLite file at path and runs the
// idempotent migration.
func Open(ctx context.Context, path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=off")
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	conn.SetMaxOpenConns(1) // single writer process

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return vesperrors.ErrStorageConnection.WithMessage("migration failed").Wrap(err)
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive, for observability/health checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// querier is satisfied by both *sql.DB and *sql.Tx so every CRUD method
// below can run either standalone or inside Tx's callback.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Queries is the transactional handle passed to Tx's callback; every
// CRUD method on DB is mirrored here so the same code path works inside
// or outside a transaction.
type Queries struct {
	q querier
}

func (db *DB) queries() *Queries { return &Queries{q: db.conn} }

// Q returns a non-transactional Queries handle bound directly to the
// database connection, for callers (the semantic and skill tiers) that
// don't need store_decision-style multi-statement atomicity.
func (db *DB) Q() *Queries { return db.queries() }

// Tx runs fn inside a single sql.Tx: commits on nil return, rolls back
// (including on panic, re-panicked after rollback) otherwise. Used by
// store_decision's supersede-then-insert pair.
func (db *DB) Tx(ctx context.Context, fn func(*Queries) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(&Queries{q: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func timeOrZero(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func timeStr(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func ptrTimeStr(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: timeStr(*t), Valid: true}
}

func nullStrToTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := timeOrZero(ns.String)
	return &t
}

func nullStrToStrPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func strPtrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// ---- memories ----

// InsertMemory persists a new MemoryRow.
func (qs *Queries) InsertMemory(ctx context.Context, m *types.MemoryRow) error {
	meta, err := json.Marshal(m.Metadata)
	if err != nil {
		return vesperrors.ErrInvalidInput.WithMessage("metadata not serialisable").Wrap(err)
	}
	_, err = qs.q.ExecContext(ctx, `INSERT INTO memories
		(id, content, memory_type, created_at, updated_at, importance, access_count, last_accessed, metadata, namespace, agent_id, agent_role, task_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		m.ID, m.Content, string(m.MemoryType), timeStr(m.CreatedAt), timeStr(m.UpdatedAt),
		m.Importance, m.AccessCount, timeStr(m.LastAccessed), string(meta), m.Namespace,
		strPtrToNull(m.AgentID), strPtrToNull(m.AgentRole), strPtrToNull(m.TaskID))
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// UpdateMemoryMetadata overwrites metadata and bumps updated_at for the
// row (id, namespace). Used by store_decision's supersede bookkeeping.
func (qs *Queries) UpdateMemoryMetadata(ctx context.Context, id, namespace string, metadata map[string]interface{}) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return vesperrors.ErrInvalidInput.Wrap(err)
	}
	res, err := qs.q.ExecContext(ctx, `UPDATE memories SET metadata=?, updated_at=? WHERE id=? AND namespace=?`,
		string(meta), timeStr(time.Now()), id, namespace)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return vesperrors.ErrNotFound.WithDetail("id", id).WithDetail("namespace", namespace)
	}
	return nil
}

func scanMemory(row interface {
	Scan(dest ...interface{}) error
}) (*types.MemoryRow, error) {
	var m types.MemoryRow
	var createdAt, updatedAt, lastAccessed, metaStr, memType string
	var agentID, agentRole, taskID sql.NullString
	if err := row.Scan(&m.ID, &m.Content, &memType, &createdAt, &updatedAt, &m.Importance,
		&m.AccessCount, &lastAccessed, &metaStr, &m.Namespace, &agentID, &agentRole, &taskID); err != nil {
		return nil, err
	}
	m.MemoryType = types.MemoryType(memType)
	m.CreatedAt = timeOrZero(createdAt)
	m.UpdatedAt = timeOrZero(updatedAt)
	m.LastAccessed = timeOrZero(lastAccessed)
	m.AgentID = nullStrToStrPtr(agentID)
	m.AgentRole = nullStrToStrPtr(agentRole)
	m.TaskID = nullStrToStrPtr(taskID)
	if metaStr != "" {
		_ = json.Unmarshal([]byte(metaStr), &m.Metadata)
	}
	return &m, nil
}

const memoryColumns = `id, content, memory_type, created_at, updated_at, importance, access_count, last_accessed, metadata, namespace, agent_id, agent_role, task_id`

// GetMemory fetches a MemoryRow scoped by (id, namespace).
func (qs *Queries) GetMemory(ctx context.Context, id, namespace string) (*types.MemoryRow, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id=? AND namespace=?`, id, namespace)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, vesperrors.ErrNotFound.WithDetail("id", id).WithDetail("namespace", namespace)
	}
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return m, nil
}

// DeleteMemory removes the row scoped by (id, namespace). Reports
// whether a row was actually deleted, so delete_memory stays idempotent.
func (qs *Queries) DeleteMemory(ctx context.Context, id, namespace string) (bool, error) {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM memories WHERE id=? AND namespace=?`, id, namespace)
	if err != nil {
		return false, vesperrors.ErrStorageConnection.Wrap(err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListRecentMemories returns up to limit rows in namespace, newest first,
// optionally filtered by memory_type.
func (qs *Queries) ListRecentMemories(ctx context.Context, namespace string, limit int, memoryType string) ([]*types.MemoryRow, error) {
	query := `SELECT ` + memoryColumns + ` FROM memories WHERE namespace=?`
	args := []interface{}{namespace}
	if memoryType != "" {
		query += ` AND memory_type=?`
		args = append(args, memoryType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.MemoryRow
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ListMemoriesByNamespace returns every MemoryRow in a namespace,
// unordered except by created_at ascending; used by share_context and
// consolidation's D-tier-adjacent bookkeeping.
func (qs *Queries) ListMemoriesByNamespace(ctx context.Context, namespace string) ([]*types.MemoryRow, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE namespace=? ORDER BY created_at ASC`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.MemoryRow
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, m)
	}
	return out, nil
}

// ListDecisions returns every live (non-superseded-concept, i.e. all)
// decision row in namespace; callers filter superseded rows themselves
// via MemoryRow.SupersededBy since that is metadata-level, not a column.
func (qs *Queries) ListDecisions(ctx context.Context, namespace string) ([]*types.MemoryRow, error) {
	return qs.ListRecentMemories(ctx, namespace, 1<<30, string(types.MemoryTypeDecision))
}

// DeleteFactsBySourceConversation cascades delete_memory: removes facts
// in namespace whose source_conversation equals the deleted memory id.
func (qs *Queries) DeleteFactsBySourceConversation(ctx context.Context, namespace, conversationID string) (int64, error) {
	res, err := qs.q.ExecContext(ctx, `DELETE FROM facts WHERE namespace=? AND source_conversation=?`, namespace, conversationID)
	if err != nil {
		return 0, vesperrors.ErrStorageConnection.Wrap(err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// NamespaceStats aggregates the counts namespace_stats reports.
func (qs *Queries) NamespaceStats(ctx context.Context, namespace string) (*types.NamespaceStats, error) {
	stats := &types.NamespaceStats{Namespace: namespace}

	row := qs.q.QueryRowContext(ctx, `SELECT COUNT(*),
		COUNT(DISTINCT agent_id) FILTER (WHERE agent_id IS NOT NULL),
		COUNT(DISTINCT task_id) FILTER (WHERE task_id IS NOT NULL),
		COUNT(*) FILTER (WHERE memory_type='decision'),
		MIN(created_at), MAX(created_at)
		FROM memories WHERE namespace=?`, namespace)

	var minC, maxC sql.NullString
	if err := row.Scan(&stats.MemoryCount, &stats.DistinctAgentIDs, &stats.DistinctTaskIDs,
		&stats.DecisionCount, &minC, &maxC); err != nil {
		// FILTER is supported by sqlite3 >= 3.30; fall back if unavailable.
		return qs.namespaceStatsFallback(ctx, namespace)
	}
	stats.MinCreatedAt = nullStrToTimePtr(minC)
	stats.MaxCreatedAt = nullStrToTimePtr(maxC)

	if err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE namespace=?`, namespace).Scan(&stats.EntityCount); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	if err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM skills WHERE namespace=?`, namespace).Scan(&stats.SkillCount); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return stats, nil
}

// namespaceStatsFallback avoids the FILTER clause for older SQLite
// builds that do not compile it in.
func (qs *Queries) namespaceStatsFallback(ctx context.Context, namespace string) (*types.NamespaceStats, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT agent_id, task_id, memory_type, created_at FROM memories WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	stats := &types.NamespaceStats{Namespace: namespace}
	agents := map[string]struct{}{}
	tasks := map[string]struct{}{}
	for rows.Next() {
		var agentID, taskID, memType, createdAt sql.NullString
		if err := rows.Scan(&agentID, &taskID, &memType, &createdAt); err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		stats.MemoryCount++
		if agentID.Valid {
			agents[agentID.String] = struct{}{}
		}
		if taskID.Valid {
			tasks[taskID.String] = struct{}{}
		}
		if memType.String == string(types.MemoryTypeDecision) {
			stats.DecisionCount++
		}
		ts := timeOrZero(createdAt.String)
		if stats.MinCreatedAt == nil || ts.Before(*stats.MinCreatedAt) {
			t := ts
			stats.MinCreatedAt = &t
		}
		if stats.MaxCreatedAt == nil || ts.After(*stats.MaxCreatedAt) {
			t := ts
			stats.MaxCreatedAt = &t
		}
	}
	stats.DistinctAgentIDs = len(agents)
	stats.DistinctTaskIDs = len(tasks)

	if err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities WHERE namespace=?`, namespace).Scan(&stats.EntityCount); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	if err := qs.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM skills WHERE namespace=?`, namespace).Scan(&stats.SkillCount); err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return stats, nil
}

// ListNamespaces returns the union of distinct namespace values across
// memories, entities, and skills.
func (qs *Queries) ListNamespaces(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, table := range []string{"memories", "entities", "skills"} {
		rows, err := qs.q.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT namespace FROM %s`, table))
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		for rows.Next() {
			var ns string
			if err := rows.Scan(&ns); err != nil {
				rows.Close()
				return nil, vesperrors.ErrStorageConnection.Wrap(err)
			}
			seen[ns] = struct{}{}
		}
		rows.Close()
	}
	out := make([]string, 0, len(seen))
	for ns := range seen {
		out = append(out, ns)
	}
	return out, nil
}

// RecordBackupMetadata stamps a checkpoint row; consolidation calls this
// once per successful run as a lightweight audit trail.
func (qs *Queries) RecordBackupMetadata(ctx context.Context, namespace, description string) error {
	_, err := qs.q.ExecContext(ctx, `INSERT INTO backup_metadata (id, created_at, description, namespace) VALUES (?,?,?,?)`,
		types.NewID(), timeStr(time.Now()), description, namespace)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// ---- entities ----

// UpsertEntity inserts a new Entity, or — if (name, namespace) already
// exists — bumps last_accessed/access_count on the existing row.
func (qs *Queries) UpsertEntity(ctx context.Context, e *types.Entity) (*types.Entity, error) {
	existing, err := qs.GetEntity(ctx, e.Name, e.Namespace)
	if err == nil {
		existing.AccessCount++
		existing.LastAccessed = time.Now()
		if _, err := qs.q.ExecContext(ctx, `UPDATE entities SET last_accessed=?, access_count=? WHERE id=?`,
			timeStr(existing.LastAccessed), existing.AccessCount, existing.ID); err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		return existing, nil
	}
	if !vesperrors.IsNotFound(err) {
		return nil, err
	}

	if e.ID == "" {
		e.ID = types.NewID()
	}
	now := time.Now()
	e.CreatedAt, e.LastAccessed, e.AccessCount = now, now, 1
	if e.Confidence == 0 {
		e.Confidence = 1
	}
	aliases, _ := json.Marshal(e.Aliases)
	_, err = qs.q.ExecContext(ctx, `INSERT INTO entities
		(id, name, type, description, confidence, created_at, last_accessed, access_count, namespace, aliases)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		e.ID, e.Name, string(e.Type), e.Description, e.Confidence, timeStr(e.CreatedAt),
		timeStr(e.LastAccessed), e.AccessCount, e.Namespace, string(aliases))
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return e, nil
}

func scanEntity(row interface{ Scan(dest ...interface{}) error }) (*types.Entity, error) {
	var e types.Entity
	var createdAt, lastAccessed, entType string
	var desc, aliases sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &entType, &desc, &e.Confidence, &createdAt,
		&lastAccessed, &e.AccessCount, &e.Namespace, &aliases); err != nil {
		return nil, err
	}
	e.Type = types.EntityType(entType)
	e.Description = desc.String
	e.CreatedAt = timeOrZero(createdAt)
	e.LastAccessed = timeOrZero(lastAccessed)
	if aliases.Valid && aliases.String != "" {
		_ = json.Unmarshal([]byte(aliases.String), &e.Aliases)
	}
	return &e, nil
}

const entityColumns = `id, name, type, description, confidence, created_at, last_accessed, access_count, namespace, aliases`

// GetEntity returns the entity named name in namespace, if present,
// without changing access_count. Returns ErrNotFound if absent.
func (qs *Queries) GetEntity(ctx context.Context, name, namespace string) (*types.Entity, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE name=? AND namespace=?`, name, namespace)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, vesperrors.ErrNotFound.WithDetail("name", name).WithDetail("namespace", namespace)
	}
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return e, nil
}

// GetEntityByID fetches an entity by its primary key within namespace.
func (qs *Queries) GetEntityByID(ctx context.Context, id, namespace string) (*types.Entity, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE id=? AND namespace=?`, id, namespace)
	e, err := scanEntity(row)
	if err == sql.ErrNoRows {
		return nil, vesperrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return e, nil
}

// ListEntities returns every entity in namespace.
func (qs *Queries) ListEntities(ctx context.Context, namespace string) ([]*types.Entity, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ListEntitiesByType returns every entity of the given type in namespace.
func (qs *Queries) ListEntitiesByType(ctx context.Context, namespace string, entityType types.EntityType) ([]*types.Entity, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE namespace=? AND type=?`, namespace, string(entityType))
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, e)
	}
	return out, nil
}

// ---- relationships ----

// UpsertRelationship inserts a new edge, or reinforces an existing one's
// strength toward 1 (never exceeding it) if the (source, target, type,
// namespace) key already exists.
func (qs *Queries) UpsertRelationship(ctx context.Context, r *types.Relationship, reinforceAlpha float64) (*types.Relationship, error) {
	existing, err := qs.getRelationship(ctx, r.SourceID, r.TargetID, r.RelationType, r.Namespace)
	if err == nil {
		existing.Strength = existing.Strength + reinforceAlpha*(1-existing.Strength)
		if existing.Strength > 1 {
			existing.Strength = 1
		}
		existing.LastReinforced = time.Now()
		if _, err := qs.q.ExecContext(ctx, `UPDATE relationships SET strength=?, last_reinforced=? WHERE id=?`,
			existing.Strength, timeStr(existing.LastReinforced), existing.ID); err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		return existing, nil
	}
	if !vesperrors.IsNotFound(err) {
		return nil, err
	}

	if r.ID == "" {
		r.ID = types.NewID()
	}
	now := time.Now()
	r.CreatedAt, r.LastReinforced = now, now
	if r.Strength == 0 {
		r.Strength = 0.5
	}
	_, err = qs.q.ExecContext(ctx, `INSERT INTO relationships
		(id, source_id, target_id, relation_type, strength, evidence, created_at, last_reinforced, namespace)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		r.ID, r.SourceID, r.TargetID, r.RelationType, r.Strength, r.Evidence,
		timeStr(r.CreatedAt), timeStr(r.LastReinforced), r.Namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return r, nil
}

func scanRelationship(row interface{ Scan(dest ...interface{}) error }) (*types.Relationship, error) {
	var r types.Relationship
	var createdAt, lastReinforced string
	var evidence sql.NullString
	if err := row.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.RelationType, &r.Strength,
		&evidence, &createdAt, &lastReinforced, &r.Namespace); err != nil {
		return nil, err
	}
	r.Evidence = evidence.String
	r.CreatedAt = timeOrZero(createdAt)
	r.LastReinforced = timeOrZero(lastReinforced)
	return &r, nil
}

const relationshipColumns = `id, source_id, target_id, relation_type, strength, evidence, created_at, last_reinforced, namespace`

func (qs *Queries) getRelationship(ctx context.Context, sourceID, targetID, relationType, namespace string) (*types.Relationship, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+relationshipColumns+` FROM relationships
		WHERE source_id=? AND target_id=? AND relation_type=? AND namespace=?`, sourceID, targetID, relationType, namespace)
	r, err := scanRelationship(row)
	if err == sql.ErrNoRows {
		return nil, vesperrors.ErrNotFound
	}
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return r, nil
}

// ListRelationships returns every relationship edge in namespace.
func (qs *Queries) ListRelationships(ctx context.Context, namespace string) ([]*types.Relationship, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, r)
	}
	return out, nil
}

// ListRelationshipsFrom returns every edge whose source_id is sourceID,
// within namespace — the adjacency lookup personalizedPageRank expands.
func (qs *Queries) ListRelationshipsFrom(ctx context.Context, namespace, sourceID string) ([]*types.Relationship, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+relationshipColumns+` FROM relationships WHERE namespace=? AND source_id=?`, namespace, sourceID)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Relationship
	for rows.Next() {
		r, err := scanRelationship(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, r)
	}
	return out, nil
}

// UpdateRelationshipStrength persists a recomputed strength (used by
// applyTemporalDecay) for a single relationship ID.
func (qs *Queries) UpdateRelationshipStrength(ctx context.Context, id string, strength float64) error {
	_, err := qs.q.ExecContext(ctx, `UPDATE relationships SET strength=? WHERE id=?`, strength, id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// DeleteRelationship removes an edge by ID (consolidation's weak-edge
// pruning step).
func (qs *Queries) DeleteRelationship(ctx context.Context, id string) error {
	_, err := qs.q.ExecContext(ctx, `DELETE FROM relationships WHERE id=?`, id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// ---- facts ----

// InsertFact persists a new Fact row.
func (qs *Queries) InsertFact(ctx context.Context, f *types.Fact) error {
	if f.ID == "" {
		f.ID = types.NewID()
	}
	_, err := qs.q.ExecContext(ctx, `INSERT INTO facts
		(id, entity_id, property, value, confidence, valid_from, valid_until, source_conversation, namespace)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		f.ID, f.EntityID, f.Property, f.Value, f.Confidence,
		ptrTimeStr(f.ValidFrom), ptrTimeStr(f.ValidUntil), f.SourceConversation, f.Namespace)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

func scanFact(row interface{ Scan(dest ...interface{}) error }) (*types.Fact, error) {
	var f types.Fact
	var validFrom, validUntil sql.NullString
	var sourceConv sql.NullString
	if err := row.Scan(&f.ID, &f.EntityID, &f.Property, &f.Value, &f.Confidence,
		&validFrom, &validUntil, &sourceConv, &f.Namespace); err != nil {
		return nil, err
	}
	f.ValidFrom = nullStrToTimePtr(validFrom)
	f.ValidUntil = nullStrToTimePtr(validUntil)
	f.SourceConversation = sourceConv.String
	return &f, nil
}

const factColumns = `id, entity_id, property, value, confidence, valid_from, valid_until, source_conversation, namespace`

// ListFactsByEntity returns every fact attached to entityID in namespace.
func (qs *Queries) ListFactsByEntity(ctx context.Context, namespace, entityID string) ([]*types.Fact, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+factColumns+` FROM facts WHERE namespace=? AND entity_id=?`, namespace, entityID)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, f)
	}
	return out, nil
}

// ListFacts returns every fact in namespace, used by the conflict
// detector's pairwise pass.
func (qs *Queries) ListFacts(ctx context.Context, namespace string) ([]*types.Fact, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+factColumns+` FROM facts WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, f)
	}
	return out, nil
}

// UpdateFactConfidence sets confidence for a fact ID (storeConflict's
// flag-both-to-0.5 side effect).
func (qs *Queries) UpdateFactConfidence(ctx context.Context, id string, confidence float64) error {
	_, err := qs.q.ExecContext(ctx, `UPDATE facts SET confidence=? WHERE id=?`, confidence, id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// ---- conflicts ----

// InsertConflict persists a detected Conflict row.
func (qs *Queries) InsertConflict(ctx context.Context, c *types.Conflict) error {
	if c.ID == "" {
		c.ID = types.NewID()
	}
	_, err := qs.q.ExecContext(ctx, `INSERT INTO conflicts
		(id, fact_id_1, fact_id_2, conflict_type, description, severity, resolution_status, namespace)
		VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.FactID1, c.FactID2, string(c.ConflictType), c.Description,
		string(c.Severity), string(c.ResolutionStatus), c.Namespace)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// ListConflicts returns every conflict recorded in namespace.
func (qs *Queries) ListConflicts(ctx context.Context, namespace string) ([]*types.Conflict, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT id, fact_id_1, fact_id_2, conflict_type, description, severity, resolution_status, namespace
		FROM conflicts WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Conflict
	for rows.Next() {
		var c types.Conflict
		var conflictType, severity, status string
		if err := rows.Scan(&c.ID, &c.FactID1, &c.FactID2, &conflictType, &c.Description, &severity, &status, &c.Namespace); err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		c.ConflictType = types.ConflictType(conflictType)
		c.Severity = types.ConflictSeverity(severity)
		c.ResolutionStatus = types.ResolutionStatus(status)
		out = append(out, &c)
	}
	return out, nil
}

// StoreConflict persists c and drops both referenced facts' confidence
// to FlaggedConfidence in the same call. Callers needing this atomic
// with other writes (consolidation's per-namespace run) should invoke it
// from inside db.Tx; store_decision's decision-vs-decision conflicts
// reuse fact_id_1/fact_id_2 to hold MemoryRow IDs instead and skip the
// confidence update, so only apply it when both IDs resolve to facts.
func (qs *Queries) StoreConflict(ctx context.Context, c *types.Conflict, updateFactConfidence bool) error {
	if err := qs.InsertConflict(ctx, c); err != nil {
		return err
	}
	if !updateFactConfidence {
		return nil
	}
	if err := qs.UpdateFactConfidence(ctx, c.FactID1, types.FlaggedConfidence); err != nil {
		return err
	}
	return qs.UpdateFactConfidence(ctx, c.FactID2, types.FlaggedConfidence)
}

// ---- skills ----

// InsertSkill persists a new Skill row, returning its ID.
func (qs *Queries) InsertSkill(ctx context.Context, s *types.Skill) (string, error) {
	if s.ID == "" {
		s.ID = types.NewID()
	}
	if s.Version == 0 {
		s.Version = 1
	}
	if s.AvgUserSatisfaction == 0 {
		s.AvgUserSatisfaction = types.DefaultAvgUserSatisfaction
	}
	triggers, _ := json.Marshal(s.Triggers)
	prereqs, _ := json.Marshal(s.Prerequisites)
	uses, _ := json.Marshal(s.UsesSkills)
	_, err := qs.q.ExecContext(ctx, `INSERT INTO skills
		(id, name, description, summary, category, triggers, success_count, failure_count, avg_user_satisfaction,
		 is_archived, last_used, code, code_type, prerequisites, uses_skills, version, namespace, invocation_count)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Name, s.Description, s.Summary, s.Category, string(triggers), s.SuccessCount, s.FailureCount,
		s.AvgUserSatisfaction, boolToInt(s.IsArchived), ptrTimeStr(s.LastUsed), s.Code, s.CodeType,
		string(prereqs), string(uses), s.Version, s.Namespace, s.InvocationCount)
	if err != nil {
		return "", vesperrors.ErrStorageConnection.Wrap(err)
	}
	return s.ID, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanSkill(row interface{ Scan(dest ...interface{}) error }) (*types.Skill, error) {
	var s types.Skill
	var triggers, prereqs, uses sql.NullString
	var lastUsed sql.NullString
	var archived int
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.Summary, &s.Category, &triggers,
		&s.SuccessCount, &s.FailureCount, &s.AvgUserSatisfaction, &archived, &lastUsed,
		&s.Code, &s.CodeType, &prereqs, &uses, &s.Version, &s.Namespace, &s.InvocationCount); err != nil {
		return nil, err
	}
	s.IsArchived = archived != 0
	s.LastUsed = nullStrToTimePtr(lastUsed)
	if triggers.Valid && triggers.String != "" {
		_ = json.Unmarshal([]byte(triggers.String), &s.Triggers)
	}
	if prereqs.Valid && prereqs.String != "" {
		_ = json.Unmarshal([]byte(prereqs.String), &s.Prerequisites)
	}
	if uses.Valid && uses.String != "" {
		_ = json.Unmarshal([]byte(uses.String), &s.UsesSkills)
	}
	return &s, nil
}

const skillColumns = `id, name, description, summary, category, triggers, success_count, failure_count, avg_user_satisfaction,
	is_archived, last_used, code, code_type, prerequisites, uses_skills, version, namespace, invocation_count`

// GetSkill fetches a skill by ID within namespace, including archived
// rows (callers decide whether to surface them).
func (qs *Queries) GetSkill(ctx context.Context, id, namespace string) (*types.Skill, error) {
	row := qs.q.QueryRowContext(ctx, `SELECT `+skillColumns+` FROM skills WHERE id=? AND namespace=?`, id, namespace)
	s, err := scanSkill(row)
	if err == sql.ErrNoRows {
		return nil, vesperrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	return s, nil
}

// ListSkills returns non-archived skills in namespace, optionally
// filtered by category.
func (qs *Queries) ListSkills(ctx context.Context, namespace, category string) ([]*types.Skill, error) {
	query := `SELECT ` + skillColumns + ` FROM skills WHERE namespace=? AND is_archived=0`
	args := []interface{}{namespace}
	if category != "" {
		query += ` AND category=?`
		args = append(args, category)
	}
	rows, err := qs.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// ListAllSkillsInNamespace returns every skill, archived or not. No code
// in the module calls it; DetectInvocation and Search use ListSkills,
// which skips archived rows.
func (qs *Queries) ListAllSkillsInNamespace(ctx context.Context, namespace string) ([]*types.Skill, error) {
	rows, err := qs.q.QueryContext(ctx, `SELECT `+skillColumns+` FROM skills WHERE namespace=?`, namespace)
	if err != nil {
		return nil, vesperrors.ErrStorageConnection.Wrap(err)
	}
	defer rows.Close()

	var out []*types.Skill
	for rows.Next() {
		s, err := scanSkill(rows)
		if err != nil {
			return nil, vesperrors.ErrStorageConnection.Wrap(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// UpdateSkillLastUsed bumps last_used and invocation_count on invocation.
func (qs *Queries) UpdateSkillLastUsed(ctx context.Context, id string) error {
	now := time.Now()
	_, err := qs.q.ExecContext(ctx, `UPDATE skills SET last_used=?, invocation_count=invocation_count+1 WHERE id=?`, timeStr(now), id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// RecordSkillSuccess increments success_count and folds satisfaction into
// avg_user_satisfaction as the cumulative mean weighted by the prior
// success_count: newAvg = (oldAvg*priorCount + satisfaction)/(priorCount+1).
func (qs *Queries) RecordSkillSuccess(ctx context.Context, id string, satisfaction float64) error {
	row := qs.q.QueryRowContext(ctx, `SELECT `+skillColumns+` FROM skills WHERE id=?`, id)
	s, err := scanSkill(row)
	if err == sql.ErrNoRows {
		return vesperrors.ErrNotFound.WithDetail("id", id)
	}
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	priorCount := float64(s.SuccessCount)
	newAvg := (s.AvgUserSatisfaction*priorCount + satisfaction) / (priorCount + 1)
	_, err = qs.q.ExecContext(ctx, `UPDATE skills SET success_count=success_count+1, avg_user_satisfaction=? WHERE id=?`, newAvg, id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// RecordSkillFailure increments failure_count only.
func (qs *Queries) RecordSkillFailure(ctx context.Context, id string) error {
	_, err := qs.q.ExecContext(ctx, `UPDATE skills SET failure_count=failure_count+1 WHERE id=?`, id)
	if err != nil {
		return vesperrors.ErrStorageConnection.Wrap(err)
	}
	return nil
}

// normalizeLike escapes SQL LIKE metacharacters in user-controlled
// search terms before they're interpolated into a parameterised LIKE.
func normalizeLike(s string) string {
	r := strings.NewReplacer("%", "\\%", "_", "\\_")
	return r.Replace(s)
}
