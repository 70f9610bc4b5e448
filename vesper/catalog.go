// Copyright (C) 2025 sage-x-project
// SPDX-License-Identifier: LGPL-3.0-or-later

package vesper

import (
	"context"
	"encoding/json"

	vesperrors "github.com/vesper-project/vesper/pkg/errors"
	"github.com/vesper-project/vesper/pkg/types"
	"github.com/vesper-project/vesper/tools"
	"github.com/vesper-project/vesper/validate"
)

// Tool operation names. These double as the rate limiter's operation
// keys, so they must stay in sync with the limiter's write-operation
// table.
const (
	OpStoreMemory        = "store_memory"
	OpRetrieveMemory     = "retrieve_memory"
	OpListRecent         = "list_recent"
	OpGetStats           = "get_stats"
	OpVesperEnable       = "vesper_enable"
	OpVesperDisable      = "vesper_disable"
	OpVesperStatus       = "vesper_status"
	OpRecordSkillOutcome = "record_skill_outcome"
	OpLoadSkill          = "load_skill"
	OpDeleteMemory       = "delete_memory"
	OpShareContext       = "share_context"
	OpStoreDecision      = "store_decision"
	OpListNamespaces     = "list_namespaces"
	OpNamespaceStats     = "namespace_stats"
)

// Catalog returns the full tool surface in its fixed order. The list
// is static: configuration never filters it at runtime.
func (s *Store) Catalog() []tools.Tool {
	return []tools.Tool{
		s.storeMemoryTool(),
		s.retrieveMemoryTool(),
		s.listRecentTool(),
		s.getStatsTool(),
		s.enableTool(),
		s.disableTool(),
		s.statusTool(),
		s.recordSkillOutcomeTool(),
		s.loadSkillTool(),
		s.deleteMemoryTool(),
		s.shareContextTool(),
		s.storeDecisionTool(),
		s.listNamespacesTool(),
		s.namespaceStatsTool(),
	}
}

// Registry registers the whole catalog into a fresh tools.Registry.
func (s *Store) Registry() (*tools.Registry, error) {
	r := tools.NewRegistry()
	for _, t := range s.Catalog() {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// decodeParams maps a raw tool-call parameter object onto a typed
// input struct via a JSON round trip, so unknown keys are ignored and
// type mismatches surface as a validation error rather than a panic.
func decodeParams(params map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return vesperrors.ErrInvalidInput.Wrap(err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return vesperrors.ErrInvalidInput.WithMessage("parameters do not match the tool's schema").Wrap(err)
	}
	return nil
}

// opResult is implemented by every operation payload so the tool
// wrapper can mirror the business success flag into tools.Result.
type opResult interface {
	succeeded() bool
}

func (r *StoreMemoryResult) succeeded() bool        { return r.Success }
func (r *RetrieveMemoryResult) succeeded() bool     { return r.Success }
func (r *ListRecentResult) succeeded() bool         { return r.Success }
func (r *DeleteMemoryResult) succeeded() bool       { return r.Success }
func (r *StatsResult) succeeded() bool              { return r.Success }
func (r StatusResult) succeeded() bool              { return true }
func (r *RecordSkillOutcomeResult) succeeded() bool { return r.Success }
func (r *LoadSkillResult) succeeded() bool          { return r.Success }
func (r *ShareContextResult) succeeded() bool       { return r.Success }
func (r *StoreDecisionResult) succeeded() bool      { return r.Success }
func (r *ListNamespacesResult) succeeded() bool     { return r.Success }
func (r *NamespaceStatsResult) succeeded() bool     { return r.Success }

// wrapResult maps an operation outcome onto the tool protocol:
// validation and not-found errors become Result{Success: false}
// (business failures), while anything else, rate limiting included,
// escapes as an error.
func wrapResult(out interface{}, err error) (*tools.Result, error) {
	if err != nil {
		if vesperrors.IsInvalidInput(err) || vesperrors.IsNotFound(err) {
			return &tools.Result{Success: false, Error: err.Error()}, nil
		}
		return nil, err
	}
	res, ok := out.(opResult)
	if !ok {
		return &tools.Result{Success: true, Output: out}, nil
	}
	return &tools.Result{Success: res.succeeded(), Output: out}, nil
}

func namespaceProperty() *tools.PropertySchema {
	return &tools.PropertySchema{Type: "string", Description: "Namespace scope; defaults to \"default\"."}
}

func stringParam(params map[string]interface{}, key string) string {
	v, _ := params[key].(string)
	return v
}

func (s *Store) storeMemoryTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"content":     {Type: "string", Description: "Memory content, 1 to 100000 characters."},
			"memory_type": {Type: "string", Description: "Kind of memory.", Enum: []string{"episodic", "semantic", "procedural", "decision"}},
			"metadata":    {Type: "object", Description: "Up to 50 keys, 10 KiB serialised."},
			"namespace":   namespaceProperty(),
			"agent_id":    {Type: "string"},
			"agent_role":  {Type: "string"},
			"task_id":     {Type: "string"},
		},
		Required: []string{"content", "memory_type"},
	}
	return tools.NewFunctionTool(OpStoreMemory, "Persist a memory and its embedding vector.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in validate.StoreMemoryInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpStoreMemory, func(ctx context.Context) (interface{}, error) {
				return s.StoreMemory(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) retrieveMemoryTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"query":            {Type: "string", Description: "Query text, 1 to 10000 characters."},
			"memory_types":     {Type: "array"},
			"max_results":      {Type: "integer", Description: "1 to 100.", Default: 5},
			"routing_strategy": {Type: "string"},
			"namespace":        namespaceProperty(),
		},
		Required: []string{"query"},
	}
	return tools.NewFunctionTool(OpRetrieveMemory, "Retrieve contextually ranked passages for a query.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in validate.RetrieveMemoryInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpRetrieveMemory, func(ctx context.Context) (interface{}, error) {
				return s.RetrieveMemory(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) listRecentTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"limit":       {Type: "integer", Description: "1 to 100.", Default: 5},
			"memory_type": {Type: "string", Enum: []string{"episodic", "semantic", "procedural", "decision"}},
			"namespace":   namespaceProperty(),
		},
	}
	return tools.NewFunctionTool(OpListRecent, "List the most recently created memories.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in validate.ListRecentInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpListRecent, func(ctx context.Context) (interface{}, error) {
				return s.ListRecent(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) getStatsTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"detailed":  {Type: "boolean", Default: false},
			"namespace": namespaceProperty(),
		},
	}
	return tools.NewFunctionTool(OpGetStats, "Report store-wide statistics.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in validate.GetStatsInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpGetStats, func(ctx context.Context) (interface{}, error) {
				return s.GetStats(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) enableTool() tools.Tool {
	schema := &tools.ParameterSchema{Type: "object"}
	return tools.NewFunctionTool(OpVesperEnable, "Enable the memory store.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			out, err := s.gated(ctx, types.DefaultNamespace, OpVesperEnable, func(ctx context.Context) (interface{}, error) {
				s.Enable()
				return s.Status(), nil
			})
			return wrapResult(out, err)
		})
}

func (s *Store) disableTool() tools.Tool {
	schema := &tools.ParameterSchema{Type: "object"}
	return tools.NewFunctionTool(OpVesperDisable, "Disable the memory store: writes short-circuit and retrieval returns nothing.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			out, err := s.gated(ctx, types.DefaultNamespace, OpVesperDisable, func(ctx context.Context) (interface{}, error) {
				s.Disable()
				return s.Status(), nil
			})
			return wrapResult(out, err)
		})
}

func (s *Store) statusTool() tools.Tool {
	schema := &tools.ParameterSchema{Type: "object"}
	return tools.NewFunctionTool(OpVesperStatus, "Report whether the memory store is active.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			return wrapResult(s.Status(), nil)
		})
}

func (s *Store) recordSkillOutcomeTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"skill_id":     {Type: "string"},
			"outcome":      {Type: "string", Enum: []string{"success", "failure"}},
			"satisfaction": {Type: "number", Description: "0 to 1; required when outcome is success."},
			"namespace":    namespaceProperty(),
		},
		Required: []string{"skill_id", "outcome"},
	}
	return tools.NewFunctionTool(OpRecordSkillOutcome, "Record a skill invocation's outcome.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in validate.RecordSkillOutcomeInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpRecordSkillOutcome, func(ctx context.Context) (interface{}, error) {
				return s.RecordSkillOutcome(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) loadSkillTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"skill_id":  {Type: "string"},
			"namespace": namespaceProperty(),
		},
		Required: []string{"skill_id"},
	}
	return tools.NewFunctionTool(OpLoadSkill, "Load a skill's full body and prime the skill cache.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			skillID := stringParam(params, "skill_id")
			namespace := namespaceOrDefault(validate.CleanString(stringParam(params, "namespace")))
			out, err := s.gated(ctx, namespace, OpLoadSkill, func(ctx context.Context) (interface{}, error) {
				return s.LoadSkill(ctx, skillID, namespace)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) deleteMemoryTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"id":        {Type: "string"},
			"namespace": namespaceProperty(),
		},
		Required: []string{"id"},
	}
	return tools.NewFunctionTool(OpDeleteMemory, "Delete a memory and its derived facts.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			id := stringParam(params, "id")
			namespace := namespaceOrDefault(validate.CleanString(stringParam(params, "namespace")))
			out, err := s.gated(ctx, namespace, OpDeleteMemory, func(ctx context.Context) (interface{}, error) {
				return s.DeleteMemory(ctx, id, namespace)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) shareContextTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"source_namespace": {Type: "string"},
			"target_namespace": {Type: "string"},
			"task_id":          {Type: "string"},
			"query":            {Type: "string", Description: "Substring filter over shared memories."},
			"limit":            {Type: "integer"},
		},
		Required: []string{"source_namespace", "target_namespace"},
	}
	return tools.NewFunctionTool(OpShareContext, "Hand off one namespace's context to another.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in ShareContextInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, in.SourceNamespace, OpShareContext, func(ctx context.Context) (interface{}, error) {
				return s.ShareContext(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) storeDecisionTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"content":    {Type: "string"},
			"rationale":  {Type: "string"},
			"supersedes": {Type: "string", Description: "ID of the decision this one replaces."},
			"namespace":  namespaceProperty(),
		},
		Required: []string{"content"},
	}
	return tools.NewFunctionTool(OpStoreDecision, "Record a decision, optionally superseding an earlier one.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			var in StoreDecisionInput
			if err := decodeParams(params, &in); err != nil {
				return wrapResult(nil, err)
			}
			out, err := s.gated(ctx, namespaceOrDefault(in.Namespace), OpStoreDecision, func(ctx context.Context) (interface{}, error) {
				return s.StoreDecision(ctx, in)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) listNamespacesTool() tools.Tool {
	schema := &tools.ParameterSchema{Type: "object"}
	return tools.NewFunctionTool(OpListNamespaces, "List every namespace with stored data.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			out, err := s.gated(ctx, types.DefaultNamespace, OpListNamespaces, func(ctx context.Context) (interface{}, error) {
				return s.ListNamespaces(ctx)
			})
			return wrapResult(out, err)
		})
}

func (s *Store) namespaceStatsTool() tools.Tool {
	schema := &tools.ParameterSchema{
		Type: "object",
		Properties: map[string]*tools.PropertySchema{
			"namespace": namespaceProperty(),
		},
		Required: []string{"namespace"},
	}
	return tools.NewFunctionTool(OpNamespaceStats, "Report one namespace's row counts and extents.", schema,
		func(ctx context.Context, params map[string]interface{}) (*tools.Result, error) {
			namespace := namespaceOrDefault(validate.CleanString(stringParam(params, "namespace")))
			out, err := s.gated(ctx, namespace, OpNamespaceStats, func(ctx context.Context) (interface{}, error) {
				return s.NamespaceStats(ctx, namespace)
			})
			return wrapResult(out, err)
		})
}
