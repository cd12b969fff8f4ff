// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_AppliesDefaultsAndBuiltInResolver(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.VectorStore.BackendURL != "localhost:6334" {
		t.Errorf("VectorStore.BackendURL = %q, want localhost:6334", cfg.VectorStore.BackendURL)
	}
	if cfg.VectorStore.HNSWEfConstruct != 200 || cfg.VectorStore.HNSWM != 16 {
		t.Errorf("HNSW defaults = (%d, %d), want (200, 16)", cfg.VectorStore.HNSWEfConstruct, cfg.VectorStore.HNSWM)
	}
	if len(cfg.Resolver.Models) == 0 {
		t.Fatal("expected the built-in model catalogue to be populated")
	}
	if cfg.Resolver.DefaultModelID != "all-minilm-l6-v2" {
		t.Errorf("DefaultModelID = %q, want all-minilm-l6-v2", cfg.Resolver.DefaultModelID)
	}
}

func TestDefault_ResolverBuildsCleanly(t *testing.T) {
	cfg := Default()
	if _, _, err := cfg.Resolver.Build(); err != nil {
		t.Fatalf("Resolver.Build: %v", err)
	}
}

func TestLoad_OverlaysFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := []byte(`
server:
  port: 9999
vector_store:
  backend_url: qdrant-prod:6334
  hnsw_ef_construct: 400
`)
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.VectorStore.BackendURL != "qdrant-prod:6334" {
		t.Errorf("VectorStore.BackendURL = %q, want qdrant-prod:6334", cfg.VectorStore.BackendURL)
	}
	if cfg.VectorStore.HNSWEfConstruct != 400 {
		t.Errorf("VectorStore.HNSWEfConstruct = %d, want 400", cfg.VectorStore.HNSWEfConstruct)
	}
	// Host has no override in the file, so applyDefaults should still fill it in.
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0", cfg.Server.Host)
	}
	// No models in the file means the built-in catalogue is substituted.
	if len(cfg.Resolver.Models) == 0 {
		t.Fatal("expected built-in resolver models when file omits them")
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestEnvOverrides_TakePrecedenceOverDefaults(t *testing.T) {
	t.Setenv("QDRANT_URL", "envhost:6334")
	t.Setenv("QDRANT_API_KEY", "secret")
	t.Setenv("STATE_STORE_DSN", "postgres://example/db")
	t.Setenv("QDRANT_AUTO_CREATE_COLLECTIONS", "false")

	cfg := Default()

	if cfg.VectorStore.BackendURL != "envhost:6334" {
		t.Errorf("BackendURL = %q, want envhost:6334", cfg.VectorStore.BackendURL)
	}
	if cfg.VectorStore.BackendAPIKey != "secret" {
		t.Errorf("BackendAPIKey = %q, want secret", cfg.VectorStore.BackendAPIKey)
	}
	if cfg.VectorStore.StateStoreDSN != "postgres://example/db" {
		t.Errorf("StateStoreDSN = %q, want postgres://example/db", cfg.VectorStore.StateStoreDSN)
	}
	if cfg.VectorStore.AutoCreateCollections {
		t.Error("expected AutoCreateCollections to be disabled by QDRANT_AUTO_CREATE_COLLECTIONS=false")
	}
}

func TestResolverConfig_Build_RejectsUnknownDefaultModel(t *testing.T) {
	rc := ResolverConfig{
		DefaultModelID: "does-not-exist",
		Models: []ModelConfig{
			{ModelID: "m1", DisplayName: "M1", Dimensions: 8, Distance: "cosine"},
		},
	}
	if _, _, err := rc.Build(); err == nil {
		t.Fatal("expected an error when default_model_id references an unknown model")
	}
}
