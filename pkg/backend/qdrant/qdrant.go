// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package qdrant implements backend.Backend against a Qdrant server over
// gRPC, the way pkg/vectorstore/milvus wraps the Milvus SDK in the teacher
// repo: one struct owning a client, every method translating a domain call
// into the underlying SDK's request/response shapes and wrapping errors
// with fmt.Errorf("...: %w").
package qdrant

import (
	"context"
	"fmt"
	"strconv"
	"time"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
)

// searchRetryAttempts and searchRetryBaseDelay bound the transient-error
// backoff wrapping Search and CollectionExists, grounded on
// original_source's _search_with_retry/_ensure_connection: 3 attempts,
// exponential backoff (1s, 2s, ...) between them. This smooths over
// transient network blips below the operation boundary; it does not retry
// the engine-level operations themselves (spec.md 4.4 rules those out).
const (
	searchRetryAttempts  = 3
	searchRetryBaseDelay = time.Second
)

// withRetry calls fn up to searchRetryAttempts times, sleeping an
// exponentially growing delay between attempts, and gives up early if ctx
// is cancelled. The last attempt's error is returned unwrapped so callers
// can still wrap it in their own fmt.Errorf context.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < searchRetryAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == searchRetryAttempts-1 {
			return err
		}
		delay := searchRetryBaseDelay * time.Duration(1<<attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func init() {
	backend.Backends.Register("qdrant", func(_ context.Context, params map[string]string) (backend.Backend, error) {
		port, err := strconv.Atoi(params["port"])
		if err != nil {
			return nil, fmt.Errorf("qdrant backend: invalid port %q: %w", params["port"], err)
		}
		return NewBackend(Config{
			Host:   params["host"],
			Port:   port,
			APIKey: params["api_key"],
			UseTLS: params["use_tls"] == "true",
		})
	})
}

// Backend implements backend.Backend using github.com/qdrant/go-client.
type Backend struct {
	client *qc.Client
}

// Config configures the connection to a Qdrant server.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// NewBackend dials a Qdrant server and returns a Backend.
func NewBackend(cfg Config) (*Backend, error) {
	client, err := qc.NewClient(&qc.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &Backend{client: client}, nil
}

func (b *Backend) CollectionExists(ctx context.Context, collection string) (bool, error) {
	var exists bool
	err := withRetry(ctx, func() error {
		var err error
		exists, err = b.client.CollectionExists(ctx, collection)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("check collection %s: %w", collection, err)
	}
	return exists, nil
}

// CreateCollection provisions collection with one named vector sized and
// distanced per geometry, HNSW parameters per geometry, and a quantization
// tier chosen by the caller (see collection manager's size-tiered policy,
// grounded on original_source's _ensure_collection_exists).
func (b *Backend) CreateCollection(ctx context.Context, collection string, geometry backend.VectorGeometry) error {
	vectorParams := &qc.VectorParams{
		Size:     uint64(geometry.Dimensions),
		Distance: toQdrantDistance(geometry.Distance),
		HnswConfig: &qc.HnswConfigDiff{
			EfConstruct: ptrUint64(uint64(geometry.HNSWEfConstruct)),
			M:           ptrUint64(uint64(geometry.HNSWM)),
		},
	}

	if q := toQuantizationConfig(geometry.Quantization); q != nil {
		vectorParams.QuantizationConfig = q
	}

	req := &qc.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qc.NewVectorsConfigMap(map[string]*qc.VectorParams{
			geometry.VectorName: vectorParams,
		}),
		OptimizersConfig: &qc.OptimizersConfigDiff{
			IndexingThreshold: ptrUint64(10000),
		},
	}

	if err := b.client.CreateCollection(ctx, req); err != nil {
		return fmt.Errorf("create collection %s: %w", collection, err)
	}
	return nil
}

func (b *Backend) CollectionInfo(ctx context.Context, collection string) (backend.CollectionInfo, error) {
	info, err := b.client.GetCollectionInfo(ctx, collection)
	if err != nil {
		return backend.CollectionInfo{}, fmt.Errorf("get collection info %s: %w", collection, err)
	}

	out := backend.CollectionInfo{Name: collection}
	if info.GetPointsCount() != nil {
		out.PointsCount = info.GetPointsCount()
	}

	params := info.GetConfig().GetParams()
	if vectorsConfig := params.GetVectorsConfig(); vectorsConfig != nil {
		if m := vectorsConfig.GetParamsMap(); m != nil {
			for name, vp := range m.GetMap() {
				out.VectorName = name
				out.Dimensions = int(vp.GetSize())
				out.Distance = fromQdrantDistance(vp.GetDistance())
				break
			}
		} else if vp := vectorsConfig.GetParams(); vp != nil {
			out.Dimensions = int(vp.GetSize())
			out.Distance = fromQdrantDistance(vp.GetDistance())
		}
	}

	return out, nil
}

func (b *Backend) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := b.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return collections, nil
}

func (b *Backend) UpsertPoints(ctx context.Context, collection, vectorName string, points []backend.Point) error {
	if len(points) == 0 {
		return nil
	}

	qpoints := make([]*qc.PointStruct, len(points))
	for i, p := range points {
		qpoints[i] = &qc.PointStruct{
			Id:      idFromString(p.ID),
			Vectors: qc.NewVectorsMap(map[string][]float32{vectorName: p.Vector}),
			Payload: qc.NewValueMap(p.Payload),
		}
	}

	_, err := b.client.Upsert(ctx, &qc.UpsertPoints{
		CollectionName: collection,
		Points:         qpoints,
	})
	if err != nil {
		return fmt.Errorf("upsert into %s: %w", collection, err)
	}
	return nil
}

func (b *Backend) Search(ctx context.Context, collection, vectorName string, query []float32, limit int, scoreThreshold float64) ([]backend.ScoredPoint, error) {
	if limit <= 0 {
		limit = 10
	}

	req := &qc.QueryPoints{
		CollectionName: collection,
		Query:          qc.NewQuery(query...),
		Using:          ptrString(vectorName),
		WithPayload:    qc.NewWithPayload(true),
		Limit:          ptrUint64(uint64(limit)),
	}
	if scoreThreshold > 0 {
		req.ScoreThreshold = ptrFloat32(float32(scoreThreshold))
	}

	var resp []*qc.ScoredPoint
	err := withRetry(ctx, func() error {
		var err error
		resp, err = b.client.Query(ctx, req)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", collection, err)
	}

	out := make([]backend.ScoredPoint, 0, len(resp))
	for _, sp := range resp {
		out = append(out, backend.ScoredPoint{
			ID:      idToString(sp.GetId()),
			Score:   sp.GetScore(),
			Payload: valuesToMap(sp.GetPayload()),
		})
	}
	return out, nil
}

func (b *Backend) RetrievePoints(ctx context.Context, collection string, ids []string) ([]backend.Point, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	qids := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		qids[i] = idFromString(id)
	}

	resp, err := b.client.Get(ctx, &qc.GetPoints{
		CollectionName: collection,
		Ids:            qids,
		WithPayload:    qc.NewWithPayload(true),
		WithVectors:    qc.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve points from %s: %w", collection, err)
	}

	out := make([]backend.Point, 0, len(resp))
	for _, rp := range resp {
		out = append(out, backend.Point{
			ID:      idToString(rp.GetId()),
			Vector:  firstVector(rp.GetVectors()),
			Payload: valuesToMap(rp.GetPayload()),
		})
	}
	return out, nil
}

func (b *Backend) SetPayload(ctx context.Context, collection string, ids []string, payload map[string]any) error {
	if len(ids) == 0 {
		return nil
	}

	qids := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		qids[i] = idFromString(id)
	}

	_, err := b.client.SetPayload(ctx, &qc.SetPayloadPoints{
		CollectionName: collection,
		Payload:        qc.NewValueMap(payload),
		PointsSelector: pointsSelectorFromIDs(qids),
	})
	if err != nil {
		return fmt.Errorf("set payload on %s: %w", collection, err)
	}
	return nil
}

func (b *Backend) DeletePoints(ctx context.Context, collection string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	qids := make([]*qc.PointId, len(ids))
	for i, id := range ids {
		qids[i] = idFromString(id)
	}

	// Qdrant's delete does not report how many points it removed, so the
	// ids that currently exist are counted first.
	existing, err := b.client.Get(ctx, &qc.GetPoints{
		CollectionName: collection,
		Ids:            qids,
		WithPayload:    qc.NewWithPayload(false),
	})
	if err != nil {
		return 0, fmt.Errorf("count points in %s before delete: %w", collection, err)
	}

	_, err = b.client.Delete(ctx, &qc.DeletePoints{
		CollectionName: collection,
		Points:         pointsSelectorFromIDs(qids),
	})
	if err != nil {
		return 0, fmt.Errorf("delete points from %s: %w", collection, err)
	}
	return len(existing), nil
}

// Close releases the underlying gRPC connection.
func (b *Backend) Close() error {
	return b.client.Close()
}
