// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"sync"
	"testing"

	gomcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/collection"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/embedder"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/engine"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/registry"
)

// fakeEmbedder and memBackend duplicate the minimal fakes in
// pkg/engine/engine_test.go: handler tests need a real Engine, but a
// transport package shouldn't import another package's _test.go helpers.
type fakeEmbedder struct{ dims int }

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}
func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, f.dims), nil
}
func (f *fakeEmbedder) ModelID() string           { return "fake-model" }
func (f *fakeEmbedder) Dimensions() int           { return f.dims }
func (f *fakeEmbedder) ActiveProviders() []string { return []string{"cpu"} }
func (f *fakeEmbedder) Ready() bool               { return true }

type memBackend struct {
	mu          sync.Mutex
	collections map[string]bool
	points      map[string]map[string]backend.Point
}

func newMemBackend() *memBackend {
	return &memBackend{collections: make(map[string]bool), points: make(map[string]map[string]backend.Point)}
}

func (b *memBackend) CollectionExists(_ context.Context, c string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.collections[c], nil
}

func (b *memBackend) CreateCollection(_ context.Context, c string, _ backend.VectorGeometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[c] = true
	b.points[c] = make(map[string]backend.Point)
	return nil
}

func (b *memBackend) CollectionInfo(_ context.Context, c string) (backend.CollectionInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return backend.CollectionInfo{Name: c, PointsCount: uint64(len(b.points[c]))}, nil
}

func (b *memBackend) ListCollections(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.collections))
	for c := range b.collections {
		out = append(out, c)
	}
	return out, nil
}

func (b *memBackend) UpsertPoints(_ context.Context, c, _ string, points []backend.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range points {
		b.points[c][p.ID] = p
	}
	return nil
}

func (b *memBackend) Search(_ context.Context, c, _ string, _ []float32, limit int, _ float64) ([]backend.ScoredPoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.ScoredPoint, 0, len(b.points[c]))
	for _, p := range b.points[c] {
		out = append(out, backend.ScoredPoint{ID: p.ID, Score: 1.0, Payload: p.Payload})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *memBackend) RetrievePoints(_ context.Context, c string, ids []string) ([]backend.Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := b.points[c][id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *memBackend) SetPayload(_ context.Context, c string, ids []string, payload map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		p, ok := b.points[c][id]
		if !ok {
			continue
		}
		if p.Payload == nil {
			p.Payload = make(map[string]any)
		}
		for k, v := range payload {
			p.Payload[k] = v
		}
		b.points[c][id] = p
	}
	return nil
}

func (b *memBackend) DeletePoints(_ context.Context, c string, ids []string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, ok := b.points[c][id]; ok {
			delete(b.points[c], id)
			count++
		}
	}
	return count, nil
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	reg, err := registry.NewRegistry([]registry.ModelDescriptor{
		{ModelID: "m1", DisplayName: "Model One", Dimensions: 8, Distance: registry.Cosine},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	resolver, err := registry.NewResolver(reg, registry.Mapping{Default: "m1"})
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	pool := embedder.NewPool(func(_ context.Context, _ string, dims int) (embedder.Embedder, error) {
		return &fakeEmbedder{dims: dims}, nil
	})

	mb := newMemBackend()
	mgr := collection.NewManager(mb, collection.Config{AutoCreate: true})

	eng := engine.New(engine.Options{
		Resolver:          resolver,
		Embedders:         pool,
		Collections:       mgr,
		Backend:           mb,
		DefaultCollection: "default_collection",
	})
	return NewHandler(eng)
}

func toolRequest(args map[string]any) gomcp.CallToolRequest {
	req := gomcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestHandler_Store_RoundTripsThroughFind(t *testing.T) {
	h := newTestHandler(t)
	ctx := context.Background()

	res, err := h.Store(ctx, toolRequest(map[string]any{"content": "hello world", "collection_name": "notes"}))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if res.IsError {
		t.Fatalf("Store returned tool error: %+v", res.Content)
	}

	found, err := h.Find(ctx, toolRequest(map[string]any{"query": "hello", "collection_name": "notes"}))
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if found.IsError {
		t.Fatalf("Find returned tool error: %+v", found.Content)
	}
}

func TestHandler_Store_MissingContentIsToolError(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.Store(context.Background(), toolRequest(map[string]any{"collection_name": "notes"}))
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a tool error result for empty content")
	}
}

func TestHandler_DeletePoints_EmptyIsNoOp(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.DeletePoints(context.Background(), toolRequest(map[string]any{
		"point_ids":       []any{},
		"collection_name": "notes",
	}))
	if err != nil {
		t.Fatalf("DeletePoints: %v", err)
	}
	if res.IsError {
		t.Fatalf("DeletePoints returned tool error: %+v", res.Content)
	}
}

func TestHandler_ListCollections_ReturnsStructuredResult(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.ListCollections(context.Background(), gomcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	if res.IsError {
		t.Fatalf("ListCollections returned tool error: %+v", res.Content)
	}
}

func TestHandler_ModelMappings_ReturnsStructuredResult(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.ModelMappings(context.Background(), gomcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("ModelMappings: %v", err)
	}
	if res.IsError {
		t.Fatalf("ModelMappings returned tool error: %+v", res.Content)
	}
}

func TestHandler_GetPoint_NotFoundIsToolError(t *testing.T) {
	h := newTestHandler(t)
	res, err := h.GetPoint(context.Background(), toolRequest(map[string]any{
		"point_id":        "does-not-exist",
		"collection_name": "notes",
	}))
	if err != nil {
		t.Fatalf("GetPoint: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected a tool error result for an unknown point id")
	}
}
