// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RegistersEveryMetric(t *testing.T) {
	m := New()

	m.EmbedderConstructions.WithLabelValues("bge-base-en", "cpu").Inc()
	m.EmbedderConstructFailures.WithLabelValues("bge-base-en").Inc()
	m.PoolHits.WithLabelValues("bge-base-en").Inc()
	m.PoolMisses.WithLabelValues("bge-base-en").Inc()
	m.CollectionEnsureTotal.WithLabelValues("ready").Inc()
	m.CollectionCreateTotal.WithLabelValues("notes").Inc()
	m.CollectionMismatchTotal.WithLabelValues("notes").Inc()
	m.OperationDuration.WithLabelValues("store").Observe(0.01)
	m.OperationErrors.WithLabelValues("store", "invalid_input").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	for _, want := range []string{
		"qdrant_gateway_embedder_constructions_total",
		"qdrant_gateway_embedder_construct_failures_total",
		"qdrant_gateway_embedder_pool_hits_total",
		"qdrant_gateway_embedder_pool_misses_total",
		"qdrant_gateway_collection_ensure_total",
		"qdrant_gateway_collection_create_total",
		"qdrant_gateway_collection_mismatch_total",
		"qdrant_gateway_operation_duration_seconds",
		"qdrant_gateway_operation_errors_total",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNew_SeparateInstancesDoNotShareRegistries(t *testing.T) {
	a := New()
	b := New()

	a.PoolHits.WithLabelValues("m1").Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, req)

	if strings.Contains(rec.Body.String(), `qdrant_gateway_embedder_pool_hits_total{model_id="m1"} 1`) {
		t.Fatal("expected b's registry to be independent of a's counter increments")
	}
}
