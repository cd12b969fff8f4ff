// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/engine"
)

// serverName and serverVersion identify this process to MCP clients.
const (
	serverName    = "qdrant-gateway"
	serverVersion = "0.1.0"
)

// NewServer builds an *server.MCPServer with every engine operation
// registered as a tool, grounded on stacklok-toolhive's registerTools.
func NewServer(eng *engine.Engine) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	h := NewHandler(eng)
	registerTools(mcpServer, h)
	return mcpServer
}

func registerTools(mcpServer *server.MCPServer, h *Handler) {
	mcpServer.AddTool(mcp.Tool{
		Name:        "store",
		Description: "Embed and store one document in a collection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content":         map[string]interface{}{"type": "string", "description": "Document text to embed and store"},
				"metadata":        map[string]interface{}{"type": "object", "description": "Arbitrary metadata to attach to the point"},
				"collection_name": map[string]interface{}{"type": "string", "description": "Target collection; uses the configured default if omitted"},
			},
			Required: []string{"content"},
		},
	}, h.Store)

	mcpServer.AddTool(mcp.Tool{
		Name:        "bulk_store",
		Description: "Embed and store many documents in a collection, in batches",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"entries": map[string]interface{}{
					"type":        "array",
					"description": "Documents to embed and store",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"content":  map[string]interface{}{"type": "string"},
							"metadata": map[string]interface{}{"type": "object"},
						},
						"required": []string{"content"},
					},
				},
				"collection_name": map[string]interface{}{"type": "string", "description": "Target collection; uses the configured default if omitted"},
				"batch_size":      map[string]interface{}{"type": "integer", "description": "Entries per embedding/upsert batch; uses the configured default if omitted"},
			},
			Required: []string{"entries"},
		},
	}, h.BulkStore)

	mcpServer.AddTool(mcp.Tool{
		Name:        "find",
		Description: "Semantic search for documents similar to a query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":           map[string]interface{}{"type": "string", "description": "Natural-language query"},
				"collection_name": map[string]interface{}{"type": "string", "description": "Collection to search; uses the configured default if omitted"},
				"limit":           map[string]interface{}{"type": "integer", "description": "Maximum number of hits to return"},
				"score_threshold": map[string]interface{}{"type": "number", "description": "Minimum similarity score to include a hit"},
			},
			Required: []string{"query"},
		},
	}, h.Find)

	mcpServer.AddTool(mcp.Tool{
		Name:        "get_point",
		Description: "Retrieve one stored point by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"point_id":        map[string]interface{}{"type": "string", "description": "Point id to retrieve"},
				"collection_name": map[string]interface{}{"type": "string", "description": "Collection to read from; uses the configured default if omitted"},
			},
			Required: []string{"point_id"},
		},
	}, h.GetPoint)

	mcpServer.AddTool(mcp.Tool{
		Name:        "update_payload",
		Description: "Merge updates into existing points' payloads, at the payload root or inside one top-level payload key",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"point_ids":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Point ids to update"},
				"collection_name": map[string]interface{}{"type": "string", "description": "Collection the points live in; uses the configured default if omitted"},
				"key":             map[string]interface{}{"type": "string", "description": "When set (e.g. \"metadata\"), merge updates into payload[key] instead of at the payload root"},
				"updates":         map[string]interface{}{"type": "object", "description": "Fields to merge into the points' payload (or into payload[key] when key is set)"},
			},
			Required: []string{"point_ids", "updates"},
		},
	}, h.UpdatePayload)

	mcpServer.AddTool(mcp.Tool{
		Name:        "delete_points",
		Description: "Idempotently delete points by id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"point_ids":       map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}, "description": "Point ids to delete"},
				"collection_name": map[string]interface{}{"type": "string", "description": "Collection the points live in; uses the configured default if omitted"},
			},
			Required: []string{"point_ids"},
		},
	}, h.DeletePoints)

	mcpServer.AddTool(mcp.Tool{
		Name:        "list_collections",
		Description: "List every collection known to the backend",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, h.ListCollections)

	mcpServer.AddTool(mcp.Tool{
		Name:        "collection_info",
		Description: "Get a collection's current backend state (point count, vector geometry)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"collection_name": map[string]interface{}{"type": "string", "description": "Collection to inspect; uses the configured default if omitted"},
			},
		},
	}, h.CollectionInfo)

	mcpServer.AddTool(mcp.Tool{
		Name:        "model_mappings",
		Description: "Inspect the configured collection-to-model mapping and model catalogue",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]interface{}{}},
	}, h.ModelMappings)
}

// ServeStdio runs the MCP server over stdio, blocking until ctx is done or
// the client disconnects.
func ServeStdio(ctx context.Context, eng *engine.Engine) error {
	mcpServer := NewServer(eng)
	if err := server.ServeStdio(mcpServer, server.WithStdioContextFunc(func(context.Context) context.Context { return ctx })); err != nil {
		return fmt.Errorf("mcp stdio server: %w", err)
	}
	return nil
}

// HTTPServerConfig configures the streamable-HTTP MCP transport.
type HTTPServerConfig struct {
	Host string
	Port string
}

// NewHTTPServer builds an *http.Server exposing the MCP server over
// streamable HTTP, grounded on stacklok-toolhive's pkg/mcp/server.New.
func NewHTTPServer(ctx context.Context, eng *engine.Engine, cfg HTTPServerConfig) *http.Server {
	mcpServer := NewServer(eng)
	streamableServer := server.NewStreamableHTTPServer(
		mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithHTTPContextFunc(func(_ context.Context, _ *http.Request) context.Context {
			return ctx
		}),
	)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:           streamableServer,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
