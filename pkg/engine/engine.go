// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package engine wires the resolver, embedder pool, collection manager, and
// backend into the nine operations spec.md 4.4 exposes to transports:
// Store, BulkStore, Find, GetPoint, UpdatePayload, DeletePoints,
// ListCollections, CollectionInfo, and ModelMappings. Transports (MCP,
// HTTP) are thin adapters over this package; none of the domain logic
// lives in them.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/collection"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/embedder"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/logging"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/metrics"
	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/registry"
)

// Entry is one document to store: content plus an opaque metadata payload,
// mirroring original_source's Entry model.
type Entry struct {
	Content  string
	Metadata map[string]any
}

// StoredPoint is the result of a successful store, identifying the point
// that was written and the model/collection it landed in, per spec.md
// 4.4.1's {point_id, model_display_name, dimensions} result shape.
type StoredPoint struct {
	PointID          string
	CollectionName   string
	ModelID          string
	ModelDisplayName string
	Dimensions       int
	VectorName       string
}

// BulkStoreResult reports aggregate outcome of a BulkStore call, mirroring
// original_source's bulk_store return shape. PointIDs is indexed
// positionally by input order (spec.md 4.4.2 / P7): PointIDs[i] identifies
// the point written for the i-th input document, or "" if that document's
// batch failed. Errors holds the first error observed per failed batch.
type BulkStoreResult struct {
	StoredCount    int
	BatchCount     int
	CollectionName string
	ModelID        string
	PointIDs       []string
	FailedCount    int
	Errors         []string
}

// FoundPoint is one search hit with its originating collection and vector
// name, mirroring original_source's SearchResult.
type FoundPoint struct {
	PointID        string
	Content        string
	Metadata       map[string]any
	Score          float64
	CollectionName string
	VectorName     string
}

// FindResult is Find's return shape. NoSuchCollection is true when
// collectionName does not exist in the backend, distinguishing that case
// from a genuine zero-match search (spec.md 4.4.3).
type FindResult struct {
	Points           []FoundPoint
	NoSuchCollection bool
}

// DeleteResult reports how many of the requested point IDs were removed.
// DeletePoints is idempotent: deleting an absent ID does not fail the call
// and is not counted (spec.md test_enhanced_delete.py semantics).
type DeleteResult struct {
	DeletedCount   int
	CollectionName string
}

// Engine is the core document-ingestion and semantic-search service.
type Engine struct {
	resolver   *registry.Resolver
	embedders  *embedder.Pool
	collections *collection.Manager
	backend    backend.Backend
	logger     *logging.Logger
	metrics    *metrics.Metrics

	defaultCollection string
	defaultBatchSize  int
	defaultLimit      int
	defaultThreshold  float64
}

// Options configures an Engine.
type Options struct {
	Resolver          *registry.Resolver
	Embedders         *embedder.Pool
	Collections       *collection.Manager
	Backend           backend.Backend
	Logger            *logging.Logger
	Metrics           *metrics.Metrics
	DefaultCollection string
	DefaultBatchSize  int
	DefaultLimit      int
	DefaultThreshold  float64
}

// New builds an Engine from its fully-constructed dependencies.
func New(opts Options) *Engine {
	if opts.DefaultBatchSize <= 0 {
		opts.DefaultBatchSize = 100
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.Logger == nil {
		opts.Logger = logging.New(logging.Config{})
	}
	return &Engine{
		resolver:          opts.Resolver,
		embedders:         opts.Embedders,
		collections:       opts.Collections,
		backend:           opts.Backend,
		logger:            opts.Logger,
		metrics:           opts.Metrics,
		defaultCollection: opts.DefaultCollection,
		defaultBatchSize:  opts.DefaultBatchSize,
		defaultLimit:      opts.DefaultLimit,
		defaultThreshold:  opts.DefaultThreshold,
	}
}

// track returns a deferred closure that records operation's duration and,
// on failure, its error kind. Callers defer it against a named error
// return: defer e.track("store")(&err). A nil Metrics makes this a no-op.
func (e *Engine) track(operation string) func(*error) {
	if e.metrics == nil {
		return func(*error) {}
	}
	start := time.Now()
	return func(errp *error) {
		e.metrics.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		if errp != nil && *errp != nil {
			e.metrics.OperationErrors.WithLabelValues(operation, string(coreerr.KindOf(*errp))).Inc()
		}
	}
}

// resolveCollectionName applies the "use default if unset" rule every
// operation in spec.md 4.4 shares.
func (e *Engine) resolveCollectionName(collectionName string) (string, error) {
	if collectionName != "" {
		return collectionName, nil
	}
	if e.defaultCollection != "" {
		return e.defaultCollection, nil
	}
	return "", coreerr.InvalidField("collection_name", "must be specified; no default collection configured")
}

// prepare resolves a collection's model, its embedder, and ensures its
// backend collection exists — the common prelude to every read/write
// operation.
func (e *Engine) prepare(ctx context.Context, collectionName string) (string, registry.ModelDescriptor, embedder.Embedder, collection.Resolved, error) {
	collectionName, err := e.resolveCollectionName(collectionName)
	if err != nil {
		return "", registry.ModelDescriptor{}, nil, collection.Resolved{}, err
	}

	model, err := e.resolver.Resolve(collectionName)
	if err != nil {
		return "", registry.ModelDescriptor{}, nil, collection.Resolved{}, err
	}

	resolved, err := e.collections.Ensure(ctx, collectionName, model)
	if err != nil {
		return "", registry.ModelDescriptor{}, nil, collection.Resolved{}, err
	}

	em, err := e.embedders.Get(ctx, model.ModelID, model.Dimensions)
	if err != nil {
		return "", registry.ModelDescriptor{}, nil, collection.Resolved{}, err
	}

	return collectionName, model, em, resolved, nil
}

// Store embeds and stores a single entry, per spec.md 4.4's store
// operation / original_source's EnhancedQdrantConnector.store.
func (e *Engine) Store(ctx context.Context, entry Entry, collectionName string) (_ StoredPoint, err error) {
	defer e.track("store")(&err)
	if err := validateEntry(entry); err != nil {
		return StoredPoint{}, err
	}

	collectionName, model, em, resolved, err := e.prepare(ctx, collectionName)
	if err != nil {
		return StoredPoint{}, err
	}

	vectors, err := em.EmbedDocuments(ctx, []string{entry.Content})
	if err != nil {
		return StoredPoint{}, coreerr.Wrap(coreerr.Internal, "embed document", err)
	}
	if len(vectors) == 0 {
		return StoredPoint{}, coreerr.New(coreerr.Internal, "embedder returned no vectors for one document")
	}

	id := uuid.New().String()
	point := backend.Point{
		ID:      id,
		Vector:  vectors[0],
		Payload: map[string]any{"document": entry.Content, "metadata": entry.Metadata},
	}

	if err := e.backend.UpsertPoints(ctx, collectionName, resolved.Geometry.VectorName, []backend.Point{point}); err != nil {
		return StoredPoint{}, coreerr.Wrap(coreerr.BackendUnavailable, "upsert point", err)
	}

	return StoredPoint{
		PointID:          id,
		CollectionName:   collectionName,
		ModelID:          model.ModelID,
		ModelDisplayName: model.DisplayName,
		Dimensions:       model.Dimensions,
		VectorName:       resolved.Geometry.VectorName,
	}, nil
}

// BulkStore embeds and stores entries in batches of batchSize (defaulting
// to the engine's configured default), continuing past a failed batch
// rather than aborting the whole call, mirroring original_source's
// bulk_store.
func (e *Engine) BulkStore(ctx context.Context, entries []Entry, collectionName string, batchSize int) (_ BulkStoreResult, err error) {
	defer e.track("bulk_store")(&err)
	if len(entries) == 0 {
		return BulkStoreResult{StoredCount: 0, BatchCount: 0}, nil
	}
	for _, entry := range entries {
		if err := validateEntry(entry); err != nil {
			return BulkStoreResult{}, err
		}
	}
	if batchSize <= 0 {
		batchSize = e.defaultBatchSize
	}

	collectionName, model, em, resolved, err := e.prepare(ctx, collectionName)
	if err != nil {
		return BulkStoreResult{}, err
	}

	// Point IDs are pre-generated sequentially, in input order, before any
	// batch goroutine starts. Each batch then only writes into its own
	// disjoint sub-slice (pointIDs[start:end]), so spec.md 4.4.2's
	// "point_ids in input order" (P7) holds regardless of which batch
	// goroutine finishes first. A failed batch's slots are cleared back to
	// "" since those documents were never actually stored.
	pointIDs := make([]string, len(entries))
	for i := range pointIDs {
		pointIDs[i] = uuid.New().String()
	}

	var (
		mu      sync.Mutex
		stored  int
		batches int
		failed  int
		errs    []string
	)

	// Batches embed and upsert independently, so they run concurrently
	// (bounded, so one huge BulkStore call can't exhaust the backend's
	// connection pool) with golang.org/x/sync/errgroup rather than
	// sequentially. A batch's own failure only skips that batch; it never
	// fails the group, matching original_source's "continue on batch
	// failure" bulk_store semantics.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]
		batchIDs := pointIDs[start:end]
		batchStart := start

		g.Go(func() error {
			fail := func(reason string) error {
				for i := range batchIDs {
					batchIDs[i] = ""
				}
				mu.Lock()
				failed += len(batch)
				errs = append(errs, reason)
				mu.Unlock()
				return nil
			}

			texts := make([]string, len(batch))
			for i, entry := range batch {
				texts[i] = entry.Content
			}

			vectors, err := em.EmbedDocuments(gctx, texts)
			if err != nil {
				e.logger.Warn("batch embedding failed, continuing with remaining batches", "collection_name", collectionName, "batch_start", batchStart, "error", err)
				return fail(fmt.Sprintf("batch starting at %d: embed documents: %v", batchStart, err))
			}
			if len(vectors) != len(batch) {
				e.logger.Warn("embedding count mismatch, skipping batch", "collection_name", collectionName, "batch_start", batchStart)
				return fail(fmt.Sprintf("batch starting at %d: embedder returned %d vectors for %d documents", batchStart, len(vectors), len(batch)))
			}

			points := make([]backend.Point, len(batch))
			for i, entry := range batch {
				points[i] = backend.Point{
					ID:      batchIDs[i],
					Vector:  vectors[i],
					Payload: map[string]any{"document": entry.Content, "metadata": entry.Metadata},
				}
			}

			if err := e.backend.UpsertPoints(gctx, collectionName, resolved.Geometry.VectorName, points); err != nil {
				e.logger.Warn("batch upsert failed, continuing with remaining batches", "collection_name", collectionName, "batch_start", batchStart, "error", err)
				return fail(fmt.Sprintf("batch starting at %d: upsert points: %v", batchStart, err))
			}

			mu.Lock()
			stored += len(batch)
			batches++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return BulkStoreResult{
		StoredCount:    stored,
		BatchCount:     batches,
		CollectionName: collectionName,
		ModelID:        model.ModelID,
		PointIDs:       pointIDs,
		FailedCount:    failed,
		Errors:         errs,
	}, nil
}

// Find embeds query and performs a nearest-neighbor search, filtering by
// scoreThreshold and bounding results to limit (both defaulting to the
// engine's configured defaults), per spec.md 4.4's find operation /
// original_source's search.
func (e *Engine) Find(ctx context.Context, query, collectionName string, limit int, scoreThreshold float64) (_ FindResult, err error) {
	defer e.track("find")(&err)
	query, err = sanitizeQuery(query)
	if err != nil {
		return FindResult{}, err
	}
	if limit <= 0 {
		limit = e.defaultLimit
	}
	if scoreThreshold == 0 {
		scoreThreshold = e.defaultThreshold
	}

	collectionName, err = e.resolveCollectionName(collectionName)
	if err != nil {
		return FindResult{}, err
	}

	exists, err := e.backend.CollectionExists(ctx, collectionName)
	if err != nil {
		return FindResult{}, coreerr.Wrap(coreerr.BackendUnavailable, "check collection existence", err)
	}
	if !exists {
		return FindResult{NoSuchCollection: true}, nil
	}

	model, err := e.resolver.Resolve(collectionName)
	if err != nil {
		return FindResult{}, err
	}
	em, err := e.embedders.Get(ctx, model.ModelID, model.Dimensions)
	if err != nil {
		return FindResult{}, err
	}
	vectorName := collection.VectorName(model.DisplayName)

	queryVector, err := em.EmbedQuery(ctx, query)
	if err != nil {
		return FindResult{}, coreerr.Wrap(coreerr.Internal, "embed query", err)
	}

	hits, err := e.backend.Search(ctx, collectionName, vectorName, queryVector, limit, scoreThreshold)
	if err != nil {
		return FindResult{}, coreerr.Wrap(coreerr.BackendUnavailable, "search", err)
	}

	out := make([]FoundPoint, 0, len(hits))
	for _, h := range hits {
		content, _ := h.Payload["document"].(string)
		metadata, _ := h.Payload["metadata"].(map[string]any)
		out = append(out, FoundPoint{
			PointID:        h.ID,
			Content:        content,
			Metadata:       metadata,
			Score:          float64(h.Score),
			CollectionName: collectionName,
			VectorName:     vectorName,
		})
	}

	// spec.md 5/P8: results are sorted by score descending, ties broken by
	// ascending point_id, deterministic regardless of backend iteration
	// order or retry.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].PointID < out[j].PointID
	})

	return FindResult{Points: out}, nil
}

// GetPoint retrieves one point by ID. Returns PointNotFound if it does not
// exist in collectionName.
func (e *Engine) GetPoint(ctx context.Context, pointID, collectionName string) (_ FoundPoint, err error) {
	defer e.track("get_point")(&err)
	if pointID == "" {
		return FoundPoint{}, coreerr.InvalidField("point_id", "must not be empty")
	}
	collectionName, err = e.resolveCollectionName(collectionName)
	if err != nil {
		return FoundPoint{}, err
	}

	points, err := e.backend.RetrievePoints(ctx, collectionName, []string{pointID})
	if err != nil {
		return FoundPoint{}, coreerr.Wrap(coreerr.BackendUnavailable, "retrieve point", err)
	}
	if len(points) == 0 {
		return FoundPoint{}, coreerr.New(coreerr.PointNotFound, fmt.Sprintf("point %q not found in collection %q", pointID, collectionName))
	}

	p := points[0]
	content, _ := p.Payload["document"].(string)
	metadata, _ := p.Payload["metadata"].(map[string]any)
	return FoundPoint{
		PointID:        p.ID,
		Content:        content,
		Metadata:       metadata,
		CollectionName: collectionName,
	}, nil
}

// UpdatePayload merges updates into a top-level payload path of every point
// in pointIDs. key selects that path: empty merges updates directly at the
// payload root (alongside "document" and "metadata"); a non-empty key (for
// example "metadata") merges updates into payload[key] itself, not into a
// sub-key underneath it, matching spec.md 4.4.5's update_payload semantics.
func (e *Engine) UpdatePayload(ctx context.Context, pointIDs []string, collectionName, key string, updates map[string]any) (err error) {
	defer e.track("update_payload")(&err)
	if len(pointIDs) == 0 {
		return coreerr.InvalidField("point_ids", "must not be empty")
	}
	if len(updates) == 0 {
		return coreerr.InvalidField("updates", "must not be empty")
	}
	collectionName, err = e.resolveCollectionName(collectionName)
	if err != nil {
		return err
	}

	if key == "" {
		// SetPayload already merges at the payload root, so the root case
		// needs no pre-read and can be applied to every point in one call.
		if err := e.backend.SetPayload(ctx, collectionName, pointIDs, updates); err != nil {
			return coreerr.Wrap(coreerr.BackendUnavailable, "set payload", err)
		}
		return nil
	}

	points, err := e.backend.RetrievePoints(ctx, collectionName, pointIDs)
	if err != nil {
		return coreerr.Wrap(coreerr.BackendUnavailable, "retrieve points for payload update", err)
	}

	for _, p := range points {
		existing, _ := p.Payload[key].(map[string]any)
		merged := make(map[string]any, len(existing)+len(updates))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range updates {
			merged[k] = v
		}

		if err := e.backend.SetPayload(ctx, collectionName, []string{p.ID}, map[string]any{key: merged}); err != nil {
			return coreerr.Wrap(coreerr.BackendUnavailable, fmt.Sprintf("set payload on point %q", p.ID), err)
		}
	}
	return nil
}

// DeletePoints removes the given point IDs from collectionName. Idempotent:
// an empty pointIDs list or IDs that do not exist are not errors
// (original_source test_enhanced_delete.py). Deleting from a collection
// that does not exist is NoSuchCollection.
func (e *Engine) DeletePoints(ctx context.Context, pointIDs []string, collectionName string) (_ DeleteResult, err error) {
	defer e.track("delete_points")(&err)
	collectionName, err = e.resolveCollectionName(collectionName)
	if err != nil {
		return DeleteResult{}, err
	}
	if len(pointIDs) == 0 {
		return DeleteResult{DeletedCount: 0, CollectionName: collectionName}, nil
	}

	exists, err := e.backend.CollectionExists(ctx, collectionName)
	if err != nil {
		return DeleteResult{}, coreerr.Wrap(coreerr.BackendUnavailable, "check collection existence", err)
	}
	if !exists {
		return DeleteResult{}, coreerr.New(coreerr.NoSuchCollection, fmt.Sprintf("collection %q does not exist", collectionName))
	}

	count, err := e.backend.DeletePoints(ctx, collectionName, pointIDs)
	if err != nil {
		return DeleteResult{}, coreerr.Wrap(coreerr.BackendUnavailable, "delete points", err)
	}

	return DeleteResult{DeletedCount: count, CollectionName: collectionName}, nil
}

// ListCollections returns every collection the backend knows about.
func (e *Engine) ListCollections(ctx context.Context) (_ []string, err error) {
	defer e.track("list_collections")(&err)
	names, err := e.backend.ListCollections(ctx)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.BackendUnavailable, "list collections", err)
	}
	return names, nil
}

// CollectionInfo returns a collection's current backend state.
func (e *Engine) CollectionInfo(ctx context.Context, collectionName string) (_ backend.CollectionInfo, err error) {
	defer e.track("collection_info")(&err)
	collectionName, err = e.resolveCollectionName(collectionName)
	if err != nil {
		return backend.CollectionInfo{}, err
	}
	info, err := e.backend.CollectionInfo(ctx, collectionName)
	if err != nil {
		return backend.CollectionInfo{}, coreerr.Wrap(coreerr.BackendUnavailable, "get collection info", err)
	}
	return info, nil
}

// ModelMappings exposes the resolver's configured mapping and model
// catalogue for introspection.
func (e *Engine) ModelMappings() (registry.Mapping, []registry.ModelDescriptor) {
	return e.resolver.Mappings()
}

func validateEntry(entry Entry) error {
	if entry.Content == "" {
		return coreerr.InvalidField("content", "must not be empty")
	}
	return nil
}
