// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package backendtest provides a shared conformance test suite for
// backend.Backend implementations, the way the teacher's
// pkg/filestore/filestoretest does for filestore.FileStore: one suite,
// called from each concrete backend's own _test.go with a constructor for
// that backend, so the in-memory fake and a live Qdrant server are held to
// the exact same contract.
package backendtest

import (
	"context"
	"testing"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/backend"
)

// RunConformanceTests exercises a backend.Backend implementation against
// the shared contract every caller in pkg/collection and pkg/engine relies
// on. newBackend is called once per sub-test so state from one case never
// leaks into another; collectionName lets callers point every sub-test at
// a collection name scoped to that test run (a live server run reuses one
// real collection across a testing.M rather than provisioning a fresh
// collection per sub-test).
func RunConformanceTests(t *testing.T, newBackend func(t *testing.T) backend.Backend, collectionName string) {
	t.Helper()

	geometry := backend.VectorGeometry{
		VectorName:      "conformance_vector",
		Dimensions:      4,
		Distance:        backend.DistanceCosine,
		HNSWEfConstruct: 100,
		HNSWM:           8,
	}

	t.Run("CreateAndExists", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		exists, err := b.CollectionExists(ctx, collectionName)
		if err != nil {
			t.Fatalf("CollectionExists (before create): %v", err)
		}
		if exists {
			t.Fatalf("collection %q already exists before CreateCollection", collectionName)
		}

		if err := b.CreateCollection(ctx, collectionName, geometry); err != nil {
			t.Fatalf("CreateCollection: %v", err)
		}

		exists, err = b.CollectionExists(ctx, collectionName)
		if err != nil {
			t.Fatalf("CollectionExists (after create): %v", err)
		}
		if !exists {
			t.Fatal("collection does not exist after CreateCollection")
		}

		names, err := b.ListCollections(ctx)
		if err != nil {
			t.Fatalf("ListCollections: %v", err)
		}
		if !contains(names, collectionName) {
			t.Fatalf("ListCollections = %v, want it to contain %q", names, collectionName)
		}
	})

	t.Run("UpsertSearchRetrieve", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		if err := b.CreateCollection(ctx, collectionName, geometry); err != nil {
			t.Fatalf("CreateCollection: %v", err)
		}

		points := []backend.Point{
			{ID: "p1", Vector: []float32{1, 0, 0, 0}, Payload: map[string]any{"document": "one"}},
			{ID: "p2", Vector: []float32{0, 1, 0, 0}, Payload: map[string]any{"document": "two"}},
		}
		if err := b.UpsertPoints(ctx, collectionName, geometry.VectorName, points); err != nil {
			t.Fatalf("UpsertPoints: %v", err)
		}

		hits, err := b.Search(ctx, collectionName, geometry.VectorName, []float32{1, 0, 0, 0}, 10, 0)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) == 0 {
			t.Fatal("Search returned no hits after upsert")
		}

		retrieved, err := b.RetrievePoints(ctx, collectionName, []string{"p1", "p2", "does-not-exist"})
		if err != nil {
			t.Fatalf("RetrievePoints: %v", err)
		}
		if len(retrieved) != 2 {
			t.Fatalf("RetrievePoints returned %d points, want 2 (unknown ids silently omitted)", len(retrieved))
		}
	})

	t.Run("SetPayloadMerges", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		if err := b.CreateCollection(ctx, collectionName, geometry); err != nil {
			t.Fatalf("CreateCollection: %v", err)
		}
		if err := b.UpsertPoints(ctx, collectionName, geometry.VectorName, []backend.Point{
			{ID: "p1", Vector: []float32{1, 0, 0, 0}, Payload: map[string]any{"document": "one"}},
		}); err != nil {
			t.Fatalf("UpsertPoints: %v", err)
		}

		if err := b.SetPayload(ctx, collectionName, []string{"p1"}, map[string]any{"tag": "reviewed"}); err != nil {
			t.Fatalf("SetPayload: %v", err)
		}

		points, err := b.RetrievePoints(ctx, collectionName, []string{"p1"})
		if err != nil {
			t.Fatalf("RetrievePoints: %v", err)
		}
		if len(points) != 1 {
			t.Fatalf("RetrievePoints = %d points, want 1", len(points))
		}
		if points[0].Payload["document"] != "one" {
			t.Errorf("SetPayload must merge, not replace: document = %v", points[0].Payload["document"])
		}
		if points[0].Payload["tag"] != "reviewed" {
			t.Errorf("tag = %v, want reviewed", points[0].Payload["tag"])
		}
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		if err := b.CreateCollection(ctx, collectionName, geometry); err != nil {
			t.Fatalf("CreateCollection: %v", err)
		}
		if err := b.UpsertPoints(ctx, collectionName, geometry.VectorName, []backend.Point{
			{ID: "p1", Vector: []float32{1, 0, 0, 0}},
		}); err != nil {
			t.Fatalf("UpsertPoints: %v", err)
		}

		deleted, err := b.DeletePoints(ctx, collectionName, []string{"p1"})
		if err != nil {
			t.Fatalf("DeletePoints: %v", err)
		}
		if deleted != 1 {
			t.Fatalf("deleted = %d, want 1", deleted)
		}

		deletedAgain, err := b.DeletePoints(ctx, collectionName, []string{"p1"})
		if err != nil {
			t.Fatalf("DeletePoints (second): %v", err)
		}
		if deletedAgain != 0 {
			t.Fatalf("second delete count = %d, want 0 (idempotent)", deletedAgain)
		}
	})

	t.Run("CollectionInfoReflectsGeometry", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		if err := b.CreateCollection(ctx, collectionName, geometry); err != nil {
			t.Fatalf("CreateCollection: %v", err)
		}

		info, err := b.CollectionInfo(ctx, collectionName)
		if err != nil {
			t.Fatalf("CollectionInfo: %v", err)
		}
		if info.Dimensions != geometry.Dimensions {
			t.Errorf("CollectionInfo.Dimensions = %d, want %d", info.Dimensions, geometry.Dimensions)
		}
		if info.Distance != geometry.Distance {
			t.Errorf("CollectionInfo.Distance = %q, want %q", info.Distance, geometry.Distance)
		}
	})
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
