// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package backendtest

import (
	"context"
	"sync"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
)

// MemoryBackend is a goroutine-safe, process-local backend.Backend used as
// the conformance suite's reference implementation and as a fake for
// higher-level tests that need a Backend but not a live Qdrant server.
type MemoryBackend struct {
	mu          sync.Mutex
	collections map[string]backend.CollectionInfo
	points      map[string]map[string]backend.Point
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		collections: make(map[string]backend.CollectionInfo),
		points:      make(map[string]map[string]backend.Point),
	}
}

func (b *MemoryBackend) CollectionExists(_ context.Context, collection string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.collections[collection]
	return ok, nil
}

func (b *MemoryBackend) CreateCollection(_ context.Context, collection string, geometry backend.VectorGeometry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collections[collection] = backend.CollectionInfo{
		Name:       collection,
		VectorName: geometry.VectorName,
		Dimensions: geometry.Dimensions,
		Distance:   geometry.Distance,
	}
	b.points[collection] = make(map[string]backend.Point)
	return nil
}

func (b *MemoryBackend) CollectionInfo(_ context.Context, collection string) (backend.CollectionInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	info := b.collections[collection]
	info.PointsCount = uint64(len(b.points[collection]))
	return info, nil
}

func (b *MemoryBackend) ListCollections(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.collections))
	for name := range b.collections {
		names = append(names, name)
	}
	return names, nil
}

func (b *MemoryBackend) UpsertPoints(_ context.Context, collection, _ string, points []backend.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range points {
		b.points[collection][p.ID] = p
	}
	return nil
}

func (b *MemoryBackend) Search(_ context.Context, collection, _ string, _ []float32, limit int, _ float64) ([]backend.ScoredPoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.ScoredPoint, 0, len(b.points[collection]))
	for _, p := range b.points[collection] {
		out = append(out, backend.ScoredPoint{ID: p.ID, Score: 1.0, Payload: p.Payload})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (b *MemoryBackend) RetrievePoints(_ context.Context, collection string, ids []string) ([]backend.Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]backend.Point, 0, len(ids))
	for _, id := range ids {
		if p, ok := b.points[collection][id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (b *MemoryBackend) SetPayload(_ context.Context, collection string, ids []string, payload map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		p, ok := b.points[collection][id]
		if !ok {
			continue
		}
		if p.Payload == nil {
			p.Payload = make(map[string]any)
		}
		for k, v := range payload {
			p.Payload[k] = v
		}
		b.points[collection][id] = p
	}
	return nil
}

func (b *MemoryBackend) DeletePoints(_ context.Context, collection string, ids []string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, ok := b.points[collection][id]; ok {
			delete(b.points[collection], id)
			count++
		}
	}
	return count, nil
}
