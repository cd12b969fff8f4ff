// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package embedder

import (
	"context"
	"fmt"
	"sync"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/metrics"
)

// entry is one pool slot: under construction exactly once, then frozen.
type entry struct {
	once     sync.Once
	embedder Embedder
	err      error
}

// Pool is the process-wide, lazy, thread-safe cache of Embedder instances
// keyed by model_id (spec.md I3: at most one Embedder per model_id). Get
// for different model_ids never blocks; Get for the same model_id while
// it is under construction blocks until construction finishes and then
// every caller observes the same *Embedder.
type Pool struct {
	factory Factory
	metrics *metrics.Metrics

	mu      sync.Mutex
	entries map[string]*entry
}

// NewPool creates an embedder pool backed by factory.
func NewPool(factory Factory) *Pool {
	return &Pool{
		factory: factory,
		entries: make(map[string]*entry),
	}
}

// WithMetrics attaches a metrics recorder, returning the pool for chaining.
func (p *Pool) WithMetrics(m *metrics.Metrics) *Pool {
	p.metrics = m
	return p
}

// Get returns the pool's Embedder for model_id, constructing it on first
// call. A model_id whose construction failed once stays failed for the
// remainder of the process (spec.md 4.2's "failure of CPU fallback is
// fatal... do not thrash") — Get does not retry.
func (p *Pool) Get(ctx context.Context, modelID string, dimensions int) (Embedder, error) {
	p.mu.Lock()
	e, existed := p.entries[modelID]
	if !existed {
		e = &entry{}
		p.entries[modelID] = e
	}
	p.mu.Unlock()

	if existed && p.metrics != nil {
		p.metrics.PoolHits.WithLabelValues(modelID).Inc()
	} else if p.metrics != nil {
		p.metrics.PoolMisses.WithLabelValues(modelID).Inc()
	}

	e.once.Do(func() {
		em, err := p.factory(ctx, modelID, dimensions)
		if err != nil {
			e.err = coreerr.Wrap(coreerr.EmbedderUnavailable, fmt.Sprintf("construct embedder for model %q", modelID), err)
			if p.metrics != nil {
				p.metrics.EmbedderConstructFailures.WithLabelValues(modelID).Inc()
			}
			return
		}
		e.embedder = em
		if p.metrics != nil {
			provider := "unknown"
			if providers := em.ActiveProviders(); len(providers) > 0 {
				provider = providers[0]
			}
			p.metrics.EmbedderConstructions.WithLabelValues(modelID, provider).Inc()
		}
	})

	if e.err != nil {
		return nil, e.err
	}
	return e.embedder, nil
}

// Loaded reports which model_ids currently have a live (or permanently
// failed) entry in the pool, for introspection.
func (p *Pool) Loaded() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.entries))
	for id := range p.entries {
		ids = append(ids, id)
	}
	return ids
}
