// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp is a thin Model Context Protocol adapter over pkg/engine.
// It holds no domain logic: every tool handler parses arguments, calls one
// Engine operation, and shapes the result. Grounded on stacklok-toolhive's
// pkg/mcp/server (Handler + BindArguments + NewToolResultStructuredOnly).
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/engine"
)

// Handler adapts engine.Engine's nine operations to MCP tool calls.
type Handler struct {
	engine *engine.Engine
}

// NewHandler wraps eng for MCP tool dispatch.
func NewHandler(eng *engine.Engine) *Handler {
	return &Handler{engine: eng}
}

func toolError(err error) *mcp.CallToolResult {
	kind := coreerr.KindOf(err)
	if kind != "" {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
	}
	return mcp.NewToolResultError(err.Error())
}

// Store handles the "store" tool: embed and persist one document.
func (h *Handler) Store(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Content        string         `json:"content"`
		Metadata       map[string]any `json:"metadata,omitempty"`
		CollectionName string         `json:"collection_name,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	stored, err := h.engine.Store(ctx, engine.Entry{Content: args.Content, Metadata: args.Metadata}, args.CollectionName)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(stored), nil
}

// BulkStore handles the "bulk_store" tool: embed and persist many documents
// in batches, continuing past a failed batch.
func (h *Handler) BulkStore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Entries []struct {
			Content  string         `json:"content"`
			Metadata map[string]any `json:"metadata,omitempty"`
		} `json:"entries"`
		CollectionName string `json:"collection_name,omitempty"`
		BatchSize      int    `json:"batch_size,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	entries := make([]engine.Entry, len(args.Entries))
	for i, e := range args.Entries {
		entries[i] = engine.Entry{Content: e.Content, Metadata: e.Metadata}
	}

	result, err := h.engine.BulkStore(ctx, entries, args.CollectionName, args.BatchSize)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(result), nil
}

// Find handles the "find" tool: embed query and return nearest neighbors.
func (h *Handler) Find(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		Query          string  `json:"query"`
		CollectionName string  `json:"collection_name,omitempty"`
		Limit          int     `json:"limit,omitempty"`
		ScoreThreshold float64 `json:"score_threshold,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	results, err := h.engine.Find(ctx, args.Query, args.CollectionName, args.Limit, args.ScoreThreshold)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(results), nil
}

// GetPoint handles the "get_point" tool: fetch one point by id.
func (h *Handler) GetPoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		PointID        string `json:"point_id"`
		CollectionName string `json:"collection_name,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	point, err := h.engine.GetPoint(ctx, args.PointID, args.CollectionName)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(point), nil
}

// UpdatePayload handles the "update_payload" tool: merge updates into
// existing points' payloads, at the root or inside payload[key] when key is set.
func (h *Handler) UpdatePayload(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		PointIDs       []string       `json:"point_ids"`
		CollectionName string         `json:"collection_name,omitempty"`
		Key            string         `json:"key,omitempty"`
		Updates        map[string]any `json:"updates"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	if err := h.engine.UpdatePayload(ctx, args.PointIDs, args.CollectionName, args.Key, args.Updates); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"updated": len(args.PointIDs)}), nil
}

// DeletePoints handles the "delete_points" tool: idempotently remove points.
func (h *Handler) DeletePoints(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		PointIDs       []string `json:"point_ids"`
		CollectionName string   `json:"collection_name,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	result, err := h.engine.DeletePoints(ctx, args.PointIDs, args.CollectionName)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(result), nil
}

// ListCollections handles the "list_collections" tool.
func (h *Handler) ListCollections(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.engine.ListCollections(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(map[string]any{"collections": names}), nil
}

// CollectionInfo handles the "collection_info" tool.
func (h *Handler) CollectionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := struct {
		CollectionName string `json:"collection_name,omitempty"`
	}{}
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to parse arguments: %v", err)), nil
	}

	info, err := h.engine.CollectionInfo(ctx, args.CollectionName)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultStructuredOnly(info), nil
}

// ModelMappings handles the "model_mappings" tool: exposes the resolver's
// configured mapping and model catalogue for introspection.
func (h *Handler) ModelMappings(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mapping, models := h.engine.ModelMappings()
	return mcp.NewToolResultStructuredOnly(map[string]any{
		"mapping": mapping,
		"models":  models,
	}), nil
}
