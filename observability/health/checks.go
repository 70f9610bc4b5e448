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

package health

import "context"

// Pinger is satisfied by any of the three backing stores (vector index,
// relational store, cache). Declaring the interface here rather than
// importing those packages keeps health free of a dependency on the
// adapters it monitors.
type Pinger interface {
	Ping(ctx context.Context) error
}

// pingCheck adapts a Pinger into a Checker.
type pingCheck struct {
	name string
	p    Pinger
}

// NewPingCheck wraps any backing store exposing Ping(ctx) error as a
// readiness Checker.
func NewPingCheck(name string, p Pinger) Checker {
	return &pingCheck{name: name, p: p}
}

func (c *pingCheck) Name() string {
	return c.name
}

func (c *pingCheck) Check(ctx context.Context) CheckResult {
	if err := c.p.Ping(ctx); err != nil {
		return CheckResult{
			Name:    c.name,
			Status:  StatusUnhealthy,
			Message: err.Error(),
		}
	}
	return CheckResult{Name: c.name, Status: StatusHealthy}
}
