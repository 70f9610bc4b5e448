// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package ratelimit

import (
	"context"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
)

// Handler executes a single tool operation for subject (normally the
// namespace the call targets) and returns its result payload.
type Handler func(ctx context.Context, subject, operation string) (interface{}, error)

// Middleware wraps a Handler with a rate-limit gate.
type Middleware func(Handler) Handler

// NewMiddleware builds a Middleware backed by checker: every call is
// gated through Checker.Check before next runs. A denied request never
// reaches next; a fail-closed check (checker's control store
// unreachable and RATE_LIMIT_FAIL_OPEN unset) surfaces
// ErrRateLimiterUnavailable instead of calling next at all.
func NewMiddleware(checker *Checker) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, subject, operation string) (interface{}, error) {
			decision, err := checker.Check(ctx, subject, operation)
			if err != nil {
				return nil, err
			}
			if !decision.Allowed {
				return nil, vesperrors.ErrRateLimitExceeded.
					WithDetail("statusCode", 429).
					WithDetail("headers", decision.Headers)
			}
			return next(ctx, subject, operation)
		}
	}
}

// ResponseHeaders renders a rate-limit decision into the header set
// every decision carries, allowed or not.
func ResponseHeaders(limit int, decision types.RateLimitDecision) map[string]string {
	headers := map[string]string{
		"X-RateLimit-Limit":     itoa(limit),
		"X-RateLimit-Remaining": itoa(decision.Remaining),
		"X-RateLimit-Reset":     itoa(int(decision.ResetAt.Unix())),
	}
	for k, v := range decision.Headers {
		headers[k] = v
	}
	return headers
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
