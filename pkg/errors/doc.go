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

// Package errors provides structured error handling for the Vesper memory
// core.
//
// The package defines a comprehensive error system with:
//
//   - Categorized errors for different domains
//   - Rich error context with details
//   - Standard Go error wrapping support
//   - Type-safe error checking
//
// # Error Categories
//
// Errors are organized into categories matching the taxonomy every tool
// operation is expected to surface:
//
//   - Validation: malformed or out-of-bounds tool input
//   - NotFound: a lookup that legitimately has no result
//   - RateLimit: the caller exceeded its quota, or the limiter's control
//     store is unreachable and the gate fails closed
//   - Conflict: a detected contradiction between persisted facts/decisions
//   - Storage / Network: failures talking to the relational store, the
//     vector index, or the cache
//   - Internal: unrecovered, unclassified failures
//
// # Creating Errors
//
// Use predefined errors:
//
//	err := errors.ErrInvalidInput.WithDetail("field", "content")
//
// Or create custom errors:
//
//	err := errors.New(
//	    errors.CategoryValidation,
//	    "CUSTOM_ERROR",
//	    "custom error message",
//	)
//
// # Wrapping Errors
//
// Wrap errors to add context:
//
//	if err := validateMemory(req); err != nil {
//	    return errors.ErrInvalidInput.
//	        WithMessage("store_memory validation failed").
//	        Wrap(err)
//	}
//
// # Error Checking
//
// Check error types using standard Go patterns:
//
//	if errors.Is(err, errors.ErrNotFound) {
//	    // handle not found
//	}
//
//	var vErr *errors.Error
//	if errors.As(err, &vErr) {
//	    log.Printf("code=%s details=%v", vErr.Code, vErr.Details)
//	}
package errors
