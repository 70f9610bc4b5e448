// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package working

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/vesper-project/vesper/cache"
	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

// DefaultCapacity is K_WM, the tier's default bound, used whenever a
// caller constructs a Tier with capacity <= 0.
const DefaultCapacity = 5

// Backend is the subset of the cache adapter the working tier needs:
// plain TTL'd get/set/delete plus the sorted-set and hash primitives.
type Backend interface {
	cache.Cache
	cache.SortedSetCache
}

// Tier is the working memory tier: a bounded, per-namespace recency
// cache of whole conversation records, plus the skill sub-cache.
type Tier struct {
	cache     Backend
	capacity  int
	recordTTL time.Duration
	skillTTL  time.Duration
}

// New builds a Tier backed by c. capacity <= 0 falls back to
// DefaultCapacity; recordTTL <= 0 falls back to 24h; skillTTL <= 0
// falls back to 10 minutes.
func New(c Backend, capacity int, recordTTL, skillTTL time.Duration) *Tier {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if recordTTL <= 0 {
		recordTTL = 24 * time.Hour
	}
	if skillTTL <= 0 {
		skillTTL = 10 * time.Minute
	}
	return &Tier{cache: c, capacity: capacity, recordTTL: recordTTL, skillTTL: skillTTL}
}

func indexKey(namespace string) string {
	return "working:" + namespace + ":index"
}

func recordKey(namespace, conversationID string) string {
	return "working:" + namespace + ":rec:" + conversationID
}

func skillKey(namespace, skillID string) string {
	return "skill-cache:" + namespace + ":" + skillID
}

func skillCountsKey(namespace string) string {
	return "skill-cache:" + namespace + ":counts"
}

func decodeInto(raw interface{}, target interface{}) error {
	s, ok := raw.(string)
	if !ok {
		return vesperrors.ErrInternal.WithMessage("cached working-tier value has unexpected shape")
	}
	return json.Unmarshal([]byte(s), target)
}

// Store writes record, appends its id to the namespace's recency index,
// and trims the index (and the records it drops) down to the tier's
// capacity. The evicted record always has the minimum timestamp.
func (t *Tier) Store(ctx context.Context, namespace string, record types.WorkingMemoryRecord) error {
	if record.ConversationID == "" {
		return vesperrors.ErrMissingField.WithMessage("conversation_id must not be empty")
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return vesperrors.ErrInvalidInput.Wrap(err)
	}
	if err := t.cache.Set(ctx, recordKey(namespace, record.ConversationID), string(data), t.recordTTL); err != nil {
		return err
	}
	if err := t.cache.ZAddWithTTL(ctx, indexKey(namespace), float64(record.Timestamp.UnixNano()), record.ConversationID, t.recordTTL); err != nil {
		return err
	}

	evicted, err := t.cache.ZRemRangeByRank(ctx, indexKey(namespace), t.capacity)
	if err != nil {
		return err
	}
	for _, id := range evicted {
		_ = t.cache.Delete(ctx, recordKey(namespace, id))
	}
	return nil
}

// Get returns the record for conversationID, or ok=false if it has
// expired or was never stored.
func (t *Tier) Get(ctx context.Context, namespace, conversationID string) (*types.WorkingMemoryRecord, bool) {
	raw, ok := t.cache.Get(ctx, recordKey(namespace, conversationID))
	if !ok {
		return nil, false
	}
	var record types.WorkingMemoryRecord
	if err := decodeInto(raw, &record); err != nil {
		return nil, false
	}
	return &record, true
}

// GetRecent returns up to n records in reverse-chronological order,
// n capped at the tier's capacity.
func (t *Tier) GetRecent(ctx context.Context, namespace string, n int) ([]types.WorkingMemoryRecord, error) {
	if n <= 0 || n > t.capacity {
		n = t.capacity
	}
	ids, err := t.cache.ZRangeByScoreDesc(ctx, indexKey(namespace), math.Inf(-1), math.Inf(1), n)
	if err != nil {
		return nil, err
	}
	records := make([]types.WorkingMemoryRecord, 0, len(ids))
	for _, id := range ids {
		if record, ok := t.Get(ctx, namespace, id); ok {
			records = append(records, *record)
		}
	}
	return records, nil
}

// CacheSkill stores skill in the skill sub-cache with the given TTL
// (0 uses the tier's default skillTTL).
func (t *Tier) CacheSkill(ctx context.Context, namespace string, skill types.Skill, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = t.skillTTL
	}
	data, err := json.Marshal(skill)
	if err != nil {
		return vesperrors.ErrInvalidInput.Wrap(err)
	}
	return t.cache.Set(ctx, skillKey(namespace, skill.ID), string(data), ttl)
}

// GetCachedSkill returns the cached skill and its access count, bumping
// the count atomically via the cache adapter's hash increment — never a
// read-then-write round trip. Returns ok=false on a miss or TTL expiry.
func (t *Tier) GetCachedSkill(ctx context.Context, namespace, skillID string) (*types.CachedSkill, bool) {
	raw, ok := t.cache.Get(ctx, skillKey(namespace, skillID))
	if !ok {
		return nil, false
	}
	var skill types.Skill
	if err := decodeInto(raw, &skill); err != nil {
		return nil, false
	}
	count, err := t.cache.IncrHash(ctx, skillCountsKey(namespace), skillID, 1)
	if err != nil {
		count = 1
	}
	return &types.CachedSkill{Skill: skill, AccessCount: int(count)}, true
}

// InvalidateSkillCache evicts a single cached skill.
func (t *Tier) InvalidateSkillCache(ctx context.Context, namespace, skillID string) error {
	return t.cache.Delete(ctx, skillKey(namespace, skillID))
}

// GetCachedSkillIds lists every skill id currently cached in namespace.
func (t *Tier) GetCachedSkillIds(ctx context.Context, namespace string) ([]string, error) {
	keys, err := t.cache.Keys(ctx, "skill-cache:"+namespace+":*")
	if err != nil {
		return nil, err
	}
	counts := skillCountsKey(namespace)
	prefix := "skill-cache:" + namespace + ":"
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == counts {
			continue
		}
		ids = append(ids, strings.TrimPrefix(k, prefix))
	}
	return ids, nil
}

// ClearSkillCache removes every cached skill (and its access counts) for
// namespace.
func (t *Tier) ClearSkillCache(ctx context.Context, namespace string) error {
	ids, err := t.GetCachedSkillIds(ctx, namespace)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := t.cache.Delete(ctx, skillKey(namespace, id)); err != nil {
			return err
		}
	}
	return t.cache.Delete(ctx, skillCountsKey(namespace))
}
