// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package embedder

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/observability/logging"
)

const (
	// ProviderGPU is the accelerated execution provider, an OpenAI-compatible
	// embeddings endpoint fronting a GPU-resident model server.
	ProviderGPU = "gpu"
	// ProviderCPU is the baseline execution provider every embedder falls
	// back to.
	ProviderCPU = "cpu"
)

// OpenAIConfig configures the two candidate endpoints an OpenAIEmbedder
// negotiates between, mirroring spec.md 4.2's GPU-then-CPU fallback.
type OpenAIConfig struct {
	GPUEnabled bool
	GPUBaseURL string
	CPUBaseURL string
	APIKey     string
	Timeout    time.Duration
}

// NewOpenAIFactory returns a Factory that builds Embedders backed by an
// OpenAI-compatible embeddings endpoint, negotiating execution providers
// per model as described in spec.md 4.2.
func NewOpenAIFactory(cfg OpenAIConfig, logger *logging.Logger) Factory {
	return func(ctx context.Context, modelID string, dimensions int) (Embedder, error) {
		if logger == nil {
			logger = logging.New(logging.Config{})
		}

		if cfg.GPUEnabled && cfg.GPUBaseURL != "" {
			client := newOpenAIClient(cfg.GPUBaseURL, cfg.APIKey, cfg.Timeout)
			if err := probe(ctx, client, modelID); err == nil {
				logger.Info("embedder ready", "model_id", modelID, "provider", ProviderGPU)
				return &OpenAIEmbedder{
					client:     client,
					modelID:    modelID,
					dimensions: dimensions,
					providers:  []string{ProviderGPU, ProviderCPU},
				}, nil
			}
			logger.Warn("gpu execution provider unavailable, falling back to cpu", "model_id", modelID)
		}

		client := newOpenAIClient(cfg.CPUBaseURL, cfg.APIKey, cfg.Timeout)
		if err := probe(ctx, client, modelID); err != nil {
			return nil, fmt.Errorf("cpu execution provider unavailable for model %q: %w", modelID, err)
		}
		logger.Info("embedder ready", "model_id", modelID, "provider", ProviderCPU)
		return &OpenAIEmbedder{
			client:     client,
			modelID:    modelID,
			dimensions: dimensions,
			providers:  []string{ProviderCPU},
		}, nil
	}
}

func newOpenAIClient(baseURL, apiKey string, timeout time.Duration) openai.Client {
	opts := []option.RequestOption{}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	} else {
		opts = append(opts, option.WithAPIKey("dummy"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return openai.NewClient(opts...)
}

// probe issues a one-token embedding request to confirm the endpoint can
// actually serve modelID before committing to it as this embedder's
// provider. A runtime that "silently degrades" (spec.md 4.2 step 2) is
// caught here rather than on the first real request.
func probe(ctx context.Context, client openai.Client, modelID string) error {
	_, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(modelID),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String("ping")},
	})
	return err
}

// OpenAIEmbedder is an Embedder backed by an OpenAI-compatible embeddings
// endpoint. The underlying HTTP client is safe for concurrent use, so no
// per-instance serialization is needed beyond what the pool already does
// at construction time.
type OpenAIEmbedder struct {
	client     openai.Client
	modelID    string
	dimensions int
	providers  []string
}

func (e *OpenAIEmbedder) ModelID() string           { return e.modelID }
func (e *OpenAIEmbedder) Dimensions() int           { return e.dimensions }
func (e *OpenAIEmbedder) ActiveProviders() []string { return append([]string(nil), e.providers...) }

// Ready is always true once an OpenAIEmbedder has been constructed: the
// factory only returns an instance after probe succeeds.
func (e *OpenAIEmbedder) Ready() bool { return true }

// EmbedDocuments embeds a batch of texts. An empty batch is a no-op:
// spec.md 4.2 requires no I/O for an empty input.
func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.embed(ctx, texts)
}

// EmbedQuery embeds a single query string.
func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("embedder: empty embedding response for query")
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var input openai.EmbeddingNewParamsInputUnion
	if len(texts) == 1 {
		input = openai.EmbeddingNewParamsInputUnion{OfString: openai.String(texts[0])}
	} else {
		input = openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts}
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.modelID),
		Input: input,
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed for model %q: %w", e.modelID, err)
	}

	out := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		out[i] = vec
	}
	return out, nil
}
