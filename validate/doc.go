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

// Package validate is the memory core's validation layer (component L):
// one Go struct per tool input shape, each with a Validate() error
// method: compile-time structs rather than a runtime struct-tag
// validator, the same pattern config.Validate() follows.
//
// Vector dimension/finiteness checks, the collection-name and user-ID
// regexes, and NUL-stripping are free functions; package embedding calls
// Vector and package vesper calls CleanString.
package validate
