// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package embedder owns the lazy, thread-safe pool of embedding runtimes
// described in spec.md 4.2. Each runtime is shared process-wide for its
// model_id; construction is serialized per key so concurrent callers for
// the same model_id block on one construction and share the result, while
// callers for different model_ids never block each other.
package embedder

import "context"

// Embedder turns text into vectors for one model_id. Once Ready, it accepts
// concurrent calls from multiple requests.
type Embedder interface {
	// EmbedDocuments embeds a batch of texts for storage. An empty batch
	// returns an empty result with no I/O.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedQuery embeds a single query string for search. May apply a
	// different prefix/normalization than EmbedDocuments.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// ModelID identifies the model this embedder serves.
	ModelID() string
	// Dimensions is the length of every vector this embedder produces.
	Dimensions() int
	// ActiveProviders is the ordered list of execution providers this
	// embedder negotiated at construction, most-preferred first.
	ActiveProviders() []string
	// Ready reports whether the embedder completed construction
	// successfully and can serve requests.
	Ready() bool
}

// Factory constructs an Embedder for one model_id. Implementations perform
// the execution-provider negotiation of spec.md 4.2: try the accelerated
// provider first when enabled, fall back to the baseline provider, and
// return EmbedderUnavailable only if the baseline also fails.
type Factory func(ctx context.Context, modelID string, dimensions int) (Embedder, error)
