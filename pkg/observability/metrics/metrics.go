// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes Prometheus counters and histograms for the
// embedder pool, collection manager, and engine operations. The pack's
// only Prometheus user (stacklok-toolhive) reaches client_golang through
// the OpenTelemetry Prometheus exporter bridge rather than importing it
// directly; this package talks to client_golang directly instead, the
// simpler and more common shape for a service that doesn't otherwise run
// an OTel SDK (see DESIGN.md).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram the engine and its dependencies
// record against. Construct once per process with New.
type Metrics struct {
	registry *prometheus.Registry

	EmbedderConstructions *prometheus.CounterVec
	EmbedderConstructFailures *prometheus.CounterVec
	PoolHits   *prometheus.CounterVec
	PoolMisses *prometheus.CounterVec

	CollectionEnsureTotal *prometheus.CounterVec
	CollectionCreateTotal *prometheus.CounterVec
	CollectionMismatchTotal *prometheus.CounterVec

	OperationDuration *prometheus.HistogramVec
	OperationErrors   *prometheus.CounterVec
}

// New creates and registers every metric against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		EmbedderConstructions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_embedder_constructions_total",
			Help: "Embedder runtimes constructed, by model_id and execution provider.",
		}, []string{"model_id", "provider"}),

		EmbedderConstructFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_embedder_construct_failures_total",
			Help: "Embedder construction failures, by model_id.",
		}, []string{"model_id"}),

		PoolHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_embedder_pool_hits_total",
			Help: "Embedder pool Get calls served from an existing instance.",
		}, []string{"model_id"}),

		PoolMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_embedder_pool_misses_total",
			Help: "Embedder pool Get calls that triggered construction.",
		}, []string{"model_id"}),

		CollectionEnsureTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_collection_ensure_total",
			Help: "Collection manager Ensure calls, by outcome state.",
		}, []string{"state"}),

		CollectionCreateTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_collection_create_total",
			Help: "Backend collections auto-created.",
		}, []string{"collection_name"}),

		CollectionMismatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_collection_mismatch_total",
			Help: "Collections found with a geometry mismatching their resolved model.",
		}, []string{"collection_name"}),

		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "qdrant_gateway_operation_duration_seconds",
			Help:    "Engine operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		OperationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "qdrant_gateway_operation_errors_total",
			Help: "Engine operation failures, by operation and error kind.",
		}, []string{"operation", "kind"}),
	}
}

// Handler returns the HTTP handler serving this registry's metrics in the
// Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
