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

// Package tools provides the callable-function framework the memory core
// exposes its fourteen operations through.
//
// A caller (an agent, or anything else speaking the tool-call protocol)
// invokes store_memory, retrieve_memory, and the rest as named functions
// with JSON Schema parameters. This package provides:
//   - Tool interface for defining callable functions
//   - Registry for managing collections of tools
//   - Parameter schemas using JSON Schema
//   - Result types for tool execution
//
// The concrete tool implementations (backed by the vector index, the
// relational store, and the cache) live in the vesper package, which
// registers them against a Registry built here.
//
// Example:
//
//	registry := tools.NewRegistry()
//	registry.Register(tools.NewFunctionTool(
//	    "echo",
//	    "Echoes back the input message",
//	    &tools.ParameterSchema{
//	        Type: "object",
//	        Properties: map[string]*tools.PropertySchema{
//	            "message": {Type: "string", Description: "The message to echo back"},
//	        },
//	        Required: []string{"message"},
//	    },
//	    func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
//	        return tools.SuccessResult(params["message"]), nil
//	    },
//	))
//
//	result, err := registry.Execute(ctx, "echo", map[string]interface{}{
//	    "message": "hello",
//	})
package tools
