// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package collection owns collection provisioning: turning a
// registry.ModelDescriptor into backend vector geometry, creating or
// verifying a backend collection exactly once per process, and detecting
// an existing collection whose geometry no longer matches its resolved
// model (spec.md 4.3, I2).
package collection

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/metrics"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/registry"
)

// State is where a collection sits in the manager's provisioning
// lifecycle.
type State string

const (
	StateUnknown    State = "unknown"
	StateEnsuring   State = "ensuring"
	StateReady      State = "ready"
	StateMismatched State = "mismatched"
)

// Resolved is the outcome of Ensure: the collection's live state and, when
// Ready, the vector geometry requests must target.
type Resolved struct {
	Name     string
	State    State
	Geometry backend.VectorGeometry
}

// HNSWTuning is one ordered substring->parameter override rule, applied the
// way original_source's _ensure_collection_exists special-cases "legal" and
// "solutions"/"patterns" collections.
type HNSWTuning struct {
	Substring  string
	EfConstruct int
	M           int
}

// Config configures the collection manager's provisioning policy.
type Config struct {
	AutoCreate         bool
	EnableQuantization bool
	DefaultEfConstruct int
	DefaultM           int
	Tunings            []HNSWTuning
}

// Manager provisions and tracks backend collections. Ensure is
// memoized per collection name: the first caller for a given name performs
// the existence check/creation, concurrent callers for the same name block
// until it finishes and then all observe the same Resolved value, mirroring
// embedder.Pool's per-key sync.Once pattern. A BackendUnavailable outcome
// is the one result that is not kept.
type Manager struct {
	backend backend.Backend
	cfg     Config
	metrics *metrics.Metrics
	store   StateStore

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	once     sync.Once
	resolved Resolved
	err      error
}

// NewManager creates a collection manager backed by be.
func NewManager(be backend.Backend, cfg Config) *Manager {
	if cfg.DefaultEfConstruct == 0 {
		cfg.DefaultEfConstruct = 200
	}
	if cfg.DefaultM == 0 {
		cfg.DefaultM = 16
	}
	return &Manager{
		backend: be,
		cfg:     cfg,
		entries: make(map[string]*entry),
	}
}

// WithMetrics attaches a metrics recorder, returning the manager for chaining.
func (m *Manager) WithMetrics(mx *metrics.Metrics) *Manager {
	m.metrics = mx
	return m
}

// WithStateStore attaches a durable StateStore, returning the manager for
// chaining. Optional: without one, Ensure's memoization is process-lifetime
// only.
func (m *Manager) WithStateStore(store StateStore) *Manager {
	m.store = store
	return m
}

// Ensure provisions collection for model if it does not exist, or verifies
// its existing geometry matches model if it does (spec.md I2). Ensure is
// idempotent and safe for concurrent callers targeting the same
// collection.
func (m *Manager) Ensure(ctx context.Context, collectionName string, model registry.ModelDescriptor) (Resolved, error) {
	m.mu.Lock()
	e, ok := m.entries[collectionName]
	if !ok {
		e = &entry{}
		m.entries[collectionName] = e
	}
	m.mu.Unlock()

	e.once.Do(func() {
		e.resolved, e.err = m.ensure(ctx, collectionName, model)
		if m.metrics != nil {
			state := e.resolved.State
			if state == "" {
				state = StateUnknown
			}
			m.metrics.CollectionEnsureTotal.WithLabelValues(string(state)).Inc()
			if coreerr.OfKind(e.err, coreerr.ModelMismatch) {
				m.metrics.CollectionMismatchTotal.WithLabelValues(collectionName).Inc()
			}
		}
		if m.store != nil && e.resolved.Name != "" {
			// Best-effort: a durability failure here must not fail Ensure,
			// since spec.md's in-memory memoization already governs
			// correctness within this process's lifetime.
			_ = m.store.SaveResolved(ctx, e.resolved, model.ModelID)
		}
	})

	// A transient backend failure is not memoized: the entry is dropped so
	// a later call checks the backend again.
	if coreerr.OfKind(e.err, coreerr.BackendUnavailable) {
		m.mu.Lock()
		if m.entries[collectionName] == e {
			delete(m.entries, collectionName)
		}
		m.mu.Unlock()
	}
	return e.resolved, e.err
}

func (m *Manager) ensure(ctx context.Context, collectionName string, model registry.ModelDescriptor) (Resolved, error) {
	geometry := m.geometryFor(collectionName, model)

	exists, err := m.backend.CollectionExists(ctx, collectionName)
	if err != nil {
		return Resolved{}, coreerr.Wrap(coreerr.BackendUnavailable, fmt.Sprintf("check existence of collection %q", collectionName), err)
	}

	if !exists {
		if !m.cfg.AutoCreate {
			return Resolved{}, coreerr.New(coreerr.NoSuchCollection, fmt.Sprintf("collection %q does not exist and auto-create is disabled", collectionName))
		}
		if err := m.backend.CreateCollection(ctx, collectionName, geometry); err != nil {
			return Resolved{}, coreerr.Wrap(coreerr.BackendUnavailable, fmt.Sprintf("create collection %q", collectionName), err)
		}
		if m.metrics != nil {
			m.metrics.CollectionCreateTotal.WithLabelValues(collectionName).Inc()
		}
		return Resolved{Name: collectionName, State: StateReady, Geometry: geometry}, nil
	}

	info, err := m.backend.CollectionInfo(ctx, collectionName)
	if err != nil {
		return Resolved{}, coreerr.Wrap(coreerr.BackendUnavailable, fmt.Sprintf("inspect collection %q", collectionName), err)
	}

	if info.Dimensions != geometry.Dimensions || (info.VectorName != "" && info.VectorName != geometry.VectorName) {
		return Resolved{Name: collectionName, State: StateMismatched, Geometry: geometry}, coreerr.New(
			coreerr.ModelMismatch,
			fmt.Sprintf("collection %q has vector %q (%d dims) but model %q requires vector %q (%d dims)",
				collectionName, info.VectorName, info.Dimensions, model.ModelID, geometry.VectorName, geometry.Dimensions),
		)
	}

	return Resolved{Name: collectionName, State: StateReady, Geometry: geometry}, nil
}

// geometryFor derives the vector geometry a collection should have for
// model: a vector_name slug of the model's display name, the model's
// dimensionality and distance, HNSW parameters tuned by collection-name
// pattern, and a quantization tier chosen by vector size.
func (m *Manager) geometryFor(collectionName string, model registry.ModelDescriptor) backend.VectorGeometry {
	ef, hm := m.cfg.DefaultEfConstruct, m.cfg.DefaultM
	lower := strings.ToLower(collectionName)
	for _, t := range m.cfg.Tunings {
		if strings.Contains(lower, t.Substring) {
			ef, hm = t.EfConstruct, t.M
			break
		}
	}

	return backend.VectorGeometry{
		VectorName:      VectorName(model.DisplayName),
		Dimensions:      model.Dimensions,
		Distance:        backend.Distance(model.Distance),
		HNSWEfConstruct: ef,
		HNSWM:           hm,
		Quantization:    m.quantizationFor(model.Dimensions),
	}
}

// quantizationFor applies original_source's size-tiered policy: binary
// quantization (32x compression) for vectors >= 1024 dims, scalar int8 (4x
// compression) for vectors >= 512 dims, none below that so small, already
// cheap embeddings keep full accuracy.
func (m *Manager) quantizationFor(dimensions int) backend.Quantization {
	if !m.cfg.EnableQuantization {
		return backend.QuantizationNone
	}
	switch {
	case dimensions >= 1024:
		return backend.QuantizationBinary
	case dimensions >= 512:
		return backend.QuantizationScalar
	default:
		return backend.QuantizationNone
	}
}

var slugNonWord = regexp.MustCompile(`[^a-z0-9]+`)

// VectorName derives a Qdrant-safe named-vector slug from a model's
// display name, e.g. "BGE Large EN v1.5" -> "bge_large_en_v1_5".
func VectorName(displayName string) string {
	slug := slugNonWord.ReplaceAllString(strings.ToLower(displayName), "_")
	return strings.Trim(slug, "_")
}

// DefaultTunings is the out-of-the-box HNSW tuning policy transcribed from
// original_source's _ensure_collection_exists: legal collections favor
// precision, solution/pattern collections favor speed.
func DefaultTunings(efConstruct, m int) []HNSWTuning {
	maxInt := func(a, b int) int {
		if a > b {
			return a
		}
		return b
	}
	minInt := func(a, b int) int {
		if a < b {
			return a
		}
		return b
	}
	return []HNSWTuning{
		{Substring: "legal", EfConstruct: maxInt(200, efConstruct), M: maxInt(16, m)},
		{Substring: "career", EfConstruct: maxInt(200, efConstruct), M: maxInt(16, m)},
		{Substring: "solutions", EfConstruct: minInt(100, efConstruct), M: minInt(8, m)},
		{Substring: "patterns", EfConstruct: minInt(100, efConstruct), M: minInt(8, m)},
	}
}
