// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"sync"
	"testing"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/registry"
)

// fakeBackend is an in-memory backend.Backend for collection manager tests.
type fakeBackend struct {
	mu          sync.Mutex
	collections map[string]backend.CollectionInfo
	createCalls int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{collections: make(map[string]backend.CollectionInfo)}
}

func (f *fakeBackend) CollectionExists(_ context.Context, collection string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[collection]
	return ok, nil
}

func (f *fakeBackend) CreateCollection(_ context.Context, collection string, geometry backend.VectorGeometry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	f.collections[collection] = backend.CollectionInfo{
		Name:       collection,
		VectorName: geometry.VectorName,
		Dimensions: geometry.Dimensions,
		Distance:   geometry.Distance,
	}
	return nil
}

func (f *fakeBackend) CollectionInfo(_ context.Context, collection string) (backend.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collections[collection], nil
}

func (f *fakeBackend) ListCollections(context.Context) ([]string, error) { return nil, nil }
func (f *fakeBackend) UpsertPoints(context.Context, string, string, []backend.Point) error {
	return nil
}
func (f *fakeBackend) Search(context.Context, string, string, []float32, int, float64) ([]backend.ScoredPoint, error) {
	return nil, nil
}
func (f *fakeBackend) RetrievePoints(context.Context, string, []string) ([]backend.Point, error) {
	return nil, nil
}
func (f *fakeBackend) SetPayload(context.Context, string, []string, map[string]any) error { return nil }
func (f *fakeBackend) DeletePoints(context.Context, string, []string) (int, error)          { return 0, nil }

func testModel() registry.ModelDescriptor {
	return registry.ModelDescriptor{
		ModelID:     "bge-base-en",
		DisplayName: "BGE Base EN",
		Dimensions:  768,
		Distance:    registry.Cosine,
	}
}

func TestEnsure_CreatesOnFirstCall(t *testing.T) {
	fb := newFakeBackend()
	m := NewManager(fb, Config{AutoCreate: true})

	resolved, err := m.Ensure(context.Background(), "workplace_documentation", testModel())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if resolved.State != StateReady {
		t.Fatalf("state = %v, want ready", resolved.State)
	}
	if fb.createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1", fb.createCalls)
	}
	if resolved.Geometry.VectorName != "bge_base_en" {
		t.Fatalf("vector name = %q, want bge_base_en", resolved.Geometry.VectorName)
	}
}

func TestEnsure_MemoizesPerCollection(t *testing.T) {
	fb := newFakeBackend()
	m := NewManager(fb, Config{AutoCreate: true})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Ensure(context.Background(), "lessons_learned", testModel()); err != nil {
				t.Errorf("Ensure: %v", err)
			}
		}()
	}
	wg.Wait()

	if fb.createCalls != 1 {
		t.Fatalf("createCalls = %d, want 1 (memoized)", fb.createCalls)
	}
}

func TestEnsure_DetectsMismatch(t *testing.T) {
	fb := newFakeBackend()
	fb.collections["legal_analysis"] = backend.CollectionInfo{
		Name: "legal_analysis", VectorName: "all_minilm_l6_v2", Dimensions: 384, Distance: backend.DistanceCosine,
	}
	m := NewManager(fb, Config{AutoCreate: true})

	_, err := m.Ensure(context.Background(), "legal_analysis", testModel())
	if !coreerr.OfKind(err, coreerr.ModelMismatch) {
		t.Fatalf("expected ModelMismatch error, got %v", err)
	}
}

func TestEnsure_NoAutoCreateFailsWhenAbsent(t *testing.T) {
	fb := newFakeBackend()
	m := NewManager(fb, Config{AutoCreate: false})

	_, err := m.Ensure(context.Background(), "new_collection", testModel())
	if !coreerr.OfKind(err, coreerr.NoSuchCollection) {
		t.Fatalf("expected NoSuchCollection error, got %v", err)
	}
}

func TestGeometryFor_AppliesHNSWTuning(t *testing.T) {
	fb := newFakeBackend()
	tunings := DefaultTunings(200, 16)
	m := NewManager(fb, Config{AutoCreate: true, DefaultEfConstruct: 200, DefaultM: 16, Tunings: tunings})

	legal := m.geometryFor("legal_analysis", testModel())
	if legal.HNSWEfConstruct != 200 || legal.HNSWM != 16 {
		t.Fatalf("legal geometry = %+v, want ef=200 m=16", legal)
	}

	solutions := m.geometryFor("working_solutions", testModel())
	if solutions.HNSWEfConstruct != 100 || solutions.HNSWM != 8 {
		t.Fatalf("solutions geometry = %+v, want ef=100 m=8", solutions)
	}
}

func TestQuantizationFor_SizeTiered(t *testing.T) {
	fb := newFakeBackend()
	m := NewManager(fb, Config{EnableQuantization: true})

	if got := m.quantizationFor(1024); got != backend.QuantizationBinary {
		t.Fatalf("1024 dims quantization = %v, want binary", got)
	}
	if got := m.quantizationFor(768); got != backend.QuantizationScalar {
		t.Fatalf("768 dims quantization = %v, want scalar", got)
	}
	if got := m.quantizationFor(384); got != backend.QuantizationNone {
		t.Fatalf("384 dims quantization = %v, want none", got)
	}

	m2 := NewManager(fb, Config{EnableQuantization: false})
	if got := m2.quantizationFor(1024); got != backend.QuantizationNone {
		t.Fatalf("quantization disabled: got %v, want none", got)
	}
}

// fakeStateStore is an in-memory collection.StateStore for tests.
type fakeStateStore struct {
	mu      sync.Mutex
	saved   map[string]Resolved
	savedBy map[string]string
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{saved: make(map[string]Resolved), savedBy: make(map[string]string)}
}

func (f *fakeStateStore) SaveResolved(_ context.Context, resolved Resolved, modelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved[resolved.Name] = resolved
	f.savedBy[resolved.Name] = modelID
	return nil
}

func (f *fakeStateStore) LoadResolved(_ context.Context, collectionName string) (Resolved, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.saved[collectionName]
	return r, ok, nil
}

func TestEnsure_PersistsToStateStore(t *testing.T) {
	fb := newFakeBackend()
	store := newFakeStateStore()
	m := NewManager(fb, Config{AutoCreate: true}).WithStateStore(store)

	resolved, err := m.Ensure(context.Background(), "workplace_documentation", testModel())
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	got, ok, err := store.LoadResolved(context.Background(), "workplace_documentation")
	if err != nil {
		t.Fatalf("LoadResolved: %v", err)
	}
	if !ok {
		t.Fatal("expected a persisted entry")
	}
	if got.State != resolved.State || got.Geometry.VectorName != resolved.Geometry.VectorName {
		t.Fatalf("persisted %+v, want %+v", got, resolved)
	}
	if store.savedBy["workplace_documentation"] != testModel().ModelID {
		t.Fatalf("persisted model_id = %q, want %q", store.savedBy["workplace_documentation"], testModel().ModelID)
	}
}

func TestVectorName_SlugifiesDisplayName(t *testing.T) {
	cases := map[string]string{
		"BGE Large EN v1.5": "bge_large_en_v1_5",
		"All MiniLM L6 v2":  "all_minilm_l6_v2",
	}
	for in, want := range cases {
		if got := VectorName(in); got != want {
			t.Errorf("VectorName(%q) = %q, want %q", in, got, want)
		}
	}
}
