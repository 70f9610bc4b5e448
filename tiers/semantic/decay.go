// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package semantic

import (
	"math"
	"strings"
)

// expNeg returns exp(-x), the shared curve behind ApplyTemporalDecay and
// GetPreferences.
func expNeg(x float64) float64 {
	return math.Exp(-x)
}

func tokenize(s string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[strings.Trim(f, ".,!?;:\"'()")] = struct{}{}
	}
	return set
}
