// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend declares the vector-database adapter the collection
// manager and query engine are built against. Concrete backends (pkg/backend/qdrant)
// translate these domain-shaped operations into the wire calls of one
// specific vector database.
package backend

import "context"

// Quantization selects the storage-compression scheme a collection's
// vectors are indexed with, chosen by the collection manager from vector
// size per spec.md 4.3.
type Quantization string

const (
	QuantizationNone   Quantization = "none"
	QuantizationScalar Quantization = "scalar"
	QuantizationBinary Quantization = "binary"
)

// Distance is the similarity metric a collection's vectors are compared
// with. Mirrors registry.Distance so this package has no dependency on
// the resolver.
type Distance string

const (
	DistanceCosine    Distance = "cosine"
	DistanceDot       Distance = "dot"
	DistanceEuclidean Distance = "euclidean"
)

// VectorGeometry is the per-collection vector configuration the collection
// manager derives from a registry.ModelDescriptor (spec.md 4.3): a named
// vector with fixed dimensionality and distance, HNSW parameters, and a
// quantization tier.
type VectorGeometry struct {
	VectorName string
	Dimensions int
	Distance   Distance

	HNSWEfConstruct int
	HNSWM           int

	Quantization Quantization
}

// CollectionInfo reports a collection's actual state as the backend knows
// it, used to detect a model-mismatched collection (spec.md I2).
type CollectionInfo struct {
	Name         string
	PointsCount  uint64
	VectorName   string
	Dimensions   int
	Distance     Distance
}

// Point is one stored unit: an ID, a vector under one named vector slot,
// and an opaque JSON-like payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is one search hit.
type ScoredPoint struct {
	ID       string
	Score    float32
	Payload  map[string]any
}

// Backend is the vector-database adapter every operation in spec.md 4.4 and
// 4.6 is executed through. Every method is collection-scoped; callers pass
// the resolved, already-ensured collection name.
type Backend interface {
	// CollectionExists reports whether collection is provisioned.
	CollectionExists(ctx context.Context, collection string) (bool, error)
	// CreateCollection provisions collection with the given vector geometry.
	// Callers must have already verified the collection does not exist.
	CreateCollection(ctx context.Context, collection string, geometry VectorGeometry) error
	// CollectionInfo returns a collection's current state.
	CollectionInfo(ctx context.Context, collection string) (CollectionInfo, error)
	// ListCollections returns every collection name known to the backend.
	ListCollections(ctx context.Context) ([]string, error)

	// UpsertPoints stores or overwrites points under vectorName.
	UpsertPoints(ctx context.Context, collection, vectorName string, points []Point) error
	// Search runs a nearest-neighbor query against vectorName, returning at
	// most limit hits scoring at or above scoreThreshold.
	Search(ctx context.Context, collection, vectorName string, query []float32, limit int, scoreThreshold float64) ([]ScoredPoint, error)
	// RetrievePoints fetches points by ID. IDs that do not exist are
	// silently omitted from the result, matching spec.md's "best effort"
	// get semantics.
	RetrievePoints(ctx context.Context, collection string, ids []string) ([]Point, error)
	// SetPayload merges payload into every point in ids (spec.md's
	// update_payload nested-key merge semantics are applied by the caller
	// before invoking this method).
	SetPayload(ctx context.Context, collection string, ids []string, payload map[string]any) error
	// DeletePoints removes points by ID and reports how many existed.
	// Deleting an absent ID is not an error (spec.md's idempotent delete).
	DeletePoints(ctx context.Context, collection string, ids []string) (deletedCount int, err error)
}
