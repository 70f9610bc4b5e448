// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package validate

import (
	"math"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
)

// Vector checks that v has exactly dimension components and that every
// component is finite (no NaN, no +/-Inf) before any value reaches the
// vector index adapter.
func Vector(v []float32, dimension int) error {
	if len(v) != dimension {
		return vesperrors.ErrOutOfRange.WithMessage("vector dimension mismatch").
			WithDetails(map[string]interface{}{
				"expected": dimension,
				"actual":   len(v),
			})
	}
	for i, c := range v {
		if math.IsNaN(float64(c)) || math.IsInf(float64(c), 0) {
			return vesperrors.ErrInvalidValue.WithMessage("vector component is not finite").
				WithDetail("index", i)
		}
	}
	return nil
}
