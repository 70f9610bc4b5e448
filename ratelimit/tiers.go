// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package ratelimit

import (
	"time"

	"github.com/vesper-project/vesper/config"
)

// OperationLimit is a single (L, W) tuple: L requests allowed per window W.
type OperationLimit struct {
	Count  int
	Window time.Duration
}

// writeOperations lists the tool operations that mutate a namespace.
// Everything else is treated as a read for the purpose of picking the
// default per-tier limit.
var writeOperations = map[string]bool{
	"store_memory":        true,
	"store_decision":      true,
	"delete_memory":       true,
	"share_context":       true,
	"record_skill_outcome": true,
	"vesper_enable":       true,
	"vesper_disable":      true,
}

const (
	standardWriteLimit = 100
	standardReadLimit  = 300
	defaultWindow      = time.Minute
	unlimitedCount     = 1_000_000
)

// limitFor returns the default (L, W) tuple for an operation under a
// tier, before any per-operation environment override is applied.
func limitFor(tier config.RateLimitTier, operation string) OperationLimit {
	if tier == config.TierUnlimited {
		return OperationLimit{Count: unlimitedCount, Window: defaultWindow}
	}

	base := standardReadLimit
	if writeOperations[operation] {
		base = standardWriteLimit
	}

	switch tier {
	case config.TierPremium:
		if writeOperations[operation] {
			return OperationLimit{Count: base * 5, Window: defaultWindow}
		}
		return OperationLimit{Count: int(float64(base) * 3.3), Window: defaultWindow}
	default:
		return OperationLimit{Count: base, Window: defaultWindow}
	}
}
