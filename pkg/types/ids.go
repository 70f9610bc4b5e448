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

package types

import "github.com/google/uuid"

// DefaultNamespace is used whenever a tool operation omits its namespace
// argument. It is distinct from the empty-string namespace, which is a
// legal tenancy boundary in its own right.
const DefaultNamespace = "default"

// NewID generates a fresh opaque record identifier.
func NewID() string {
	return uuid.New().String()
}

// NewHandoffID generates a fresh identifier for a share_context handoff.
// Kept as a distinct constructor, not an alias, so call sites document
// intent even though the underlying generator is identical.
func NewHandoffID() string {
	return uuid.New().String()
}
