// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package app assembles the core engine and its dependencies from a loaded
// config.Config, mirroring the construction order of the teacher's
// cmd/server/main.go: config -> storage/backend -> engine -> transport.
package app

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	_ "github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend/qdrant" // registers the "qdrant" backend factory
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/collection"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/core/config"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/embedder"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/engine"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/logging"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/metrics"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/storage/postgres"
)

// App holds the fully-wired core plus the backend connection it owns, so
// callers can Close it on shutdown.
type App struct {
	Engine  *engine.Engine
	Metrics *metrics.Metrics
	Logger  *logging.Logger

	backend    backend.Backend
	stateStore *postgres.Store
}

// New builds an App from cfg: connects to the Qdrant backend, constructs
// the embedder pool, collection manager, and resolver, and wires them into
// an engine.Engine with metrics recording enabled.
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.New(logging.Config{})
	}

	_, resolver, err := cfg.Resolver.Build()
	if err != nil {
		return nil, fmt.Errorf("app: building resolver: %w", err)
	}

	mx := metrics.New()

	host, port, err := splitBackendURL(cfg.VectorStore.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("app: parsing vector_store.backend_url: %w", err)
	}
	be, err := backend.Backends.New(context.Background(), "qdrant", map[string]string{
		"host":    host,
		"port":    strconv.Itoa(port),
		"api_key": cfg.VectorStore.BackendAPIKey,
		"use_tls": "false",
	})
	if err != nil {
		return nil, fmt.Errorf("app: connecting to backend: %w", err)
	}

	pool := embedder.NewPool(embedder.NewOpenAIFactory(embedder.OpenAIConfig{
		GPUEnabled: cfg.Embedding.GPUEnabled,
		GPUBaseURL: cfg.Embedding.GPUBaseURL,
		CPUBaseURL: cfg.Embedding.CPUBaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Timeout:    cfg.Embedding.Timeout,
	}, logger)).WithMetrics(mx)

	mgr := collection.NewManager(be, collection.Config{
		AutoCreate:         cfg.VectorStore.AutoCreateCollections,
		EnableQuantization: cfg.VectorStore.EnableQuantization,
		DefaultEfConstruct: cfg.VectorStore.HNSWEfConstruct,
		DefaultM:           cfg.VectorStore.HNSWM,
		Tunings:            collection.DefaultTunings(cfg.VectorStore.HNSWEfConstruct, cfg.VectorStore.HNSWM),
	}).WithMetrics(mx)

	var stateStore *postgres.Store
	if cfg.VectorStore.StateStoreDSN != "" {
		stateStore, err = postgres.New(cfg.VectorStore.StateStoreDSN)
		if err != nil {
			return nil, fmt.Errorf("app: connecting to state store: %w", err)
		}
		mgr = mgr.WithStateStore(stateStore)
	}

	eng := engine.New(engine.Options{
		Resolver:          resolver,
		Embedders:         pool,
		Collections:       mgr,
		Backend:           be,
		Logger:            logger,
		Metrics:           mx,
		DefaultCollection: cfg.VectorStore.DefaultCollection,
		DefaultBatchSize:  cfg.VectorStore.DefaultBatchSize,
		DefaultLimit:      cfg.VectorStore.SearchDefaultLimit,
		DefaultThreshold:  cfg.VectorStore.SearchDefaultThreshold,
	})

	return &App{Engine: eng, Metrics: mx, Logger: logger, backend: be, stateStore: stateStore}, nil
}

// Close releases the backend connection and, if configured, the state
// store's database connection.
func (a *App) Close() error {
	var err error
	if closer, ok := a.backend.(io.Closer); ok {
		err = closer.Close()
	}
	if a.stateStore != nil {
		if cerr := a.stateStore.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// splitBackendURL parses a "host:port" backend address. Qdrant's gRPC
// endpoint is addressed this way rather than as a URL with scheme.
func splitBackendURL(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("expected host:port, got %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q: %w", addr, err)
	}
	return host, port, nil
}
