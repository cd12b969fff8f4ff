// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package config assembles the single immutable settings value the rest of
// the process is built from. Load reads a YAML file and overlays
// environment variables, exactly as the teacher's config package does;
// nothing downstream re-reads the environment on a hot path.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/registry"
)

// Config is the top-level settings value, constructed once at startup.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Resolver    ResolverConfig    `yaml:"resolver"`
}

// ServerConfig configures the transport-facing listener (used only by the
// HTTP transport; the stdio transport ignores it).
type ServerConfig struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingConfig configures how embedding runtimes are constructed. Two
// endpoints are supported, mirroring spec.md 4.2's provider negotiation:
// GPUBaseURL is tried first when GPUEnabled is set, CPUBaseURL is the
// fallback and the only endpoint used when GPUEnabled is false.
type EmbeddingConfig struct {
	GPUEnabled bool   `yaml:"gpu_enabled"`
	GPUBaseURL string `yaml:"gpu_base_url"`
	CPUBaseURL string `yaml:"cpu_base_url"`
	APIKey     string `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
}

// VectorStoreConfig configures the backend vector database connection and
// the collection-provisioning defaults used by the collection manager.
type VectorStoreConfig struct {
	BackendURL             string        `yaml:"backend_url"`
	BackendAPIKey          string        `yaml:"backend_api_key"`
	AutoCreateCollections  bool          `yaml:"auto_create_collections"`
	EnableQuantization     bool          `yaml:"enable_quantization"`
	HNSWEfConstruct        int           `yaml:"hnsw_ef_construct"`
	HNSWM                  int           `yaml:"hnsw_m"`
	RequestTimeout         time.Duration `yaml:"request_timeout"`
	SearchDefaultLimit     int           `yaml:"search_default_limit"`
	SearchDefaultThreshold float64       `yaml:"search_default_threshold"`
	DefaultBatchSize       int           `yaml:"default_batch_size"`
	DefaultCollection      string        `yaml:"default_collection"`
	// StateStoreDSN, when set, durably records collection provisioning
	// state and collection->model audit history in PostgreSQL beyond this
	// process's memory. Empty means in-memory-only (the default).
	StateStoreDSN string `yaml:"state_store_dsn"`
}

// ResolverConfig is the raw, YAML-shaped form of the collection->model
// mapping. Build() turns it into a registry.Resolver, validating every
// referenced model_id exists — see registry.NewResolver.
type ResolverConfig struct {
	DefaultModelID    string                       `yaml:"default_model_id"`
	Models            []ModelConfig                `yaml:"models"`
	CollectionModelMap map[string]string           `yaml:"collection_model_map"`
	CollectionPatternMap []PatternConfig            `yaml:"collection_pattern_map"`
	CollectionAliases  map[string]string            `yaml:"collection_aliases"`
}

// ModelConfig is one entry in the embedding model catalogue.
type ModelConfig struct {
	ModelID     string `yaml:"model_id"`
	DisplayName string `yaml:"display_name"`
	Dimensions  int    `yaml:"dimensions"`
	Distance    string `yaml:"distance"`
	Description string `yaml:"description"`
}

// PatternConfig is one ordered substring->model rule.
type PatternConfig struct {
	Substring string `yaml:"substring"`
	ModelID   string `yaml:"model_id"`
}

// Build validates the resolver configuration and constructs the
// registry.Registry and registry.Resolver the rest of the process uses.
// Failure here is the "refuse to start" path spec.md 4.1 requires.
func (c ResolverConfig) Build() (*registry.Registry, *registry.Resolver, error) {
	models := make([]registry.ModelDescriptor, 0, len(c.Models))
	for _, m := range c.Models {
		dist := registry.Distance(m.Distance)
		if dist == "" {
			dist = registry.Cosine
		}
		models = append(models, registry.ModelDescriptor{
			ModelID:     m.ModelID,
			DisplayName: m.DisplayName,
			Dimensions:  m.Dimensions,
			Distance:    dist,
			Description: m.Description,
		})
	}

	reg, err := registry.NewRegistry(models)
	if err != nil {
		return nil, nil, fmt.Errorf("config: building embedding registry: %w", err)
	}

	patterns := make([]registry.PatternRule, 0, len(c.CollectionPatternMap))
	for _, p := range c.CollectionPatternMap {
		patterns = append(patterns, registry.PatternRule{Substring: p.Substring, ModelID: p.ModelID})
	}

	res, err := registry.NewResolver(reg, registry.Mapping{
		Aliases:  c.CollectionAliases,
		Exact:    c.CollectionModelMap,
		Patterns: patterns,
		Default:  c.DefaultModelID,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("config: building resolver: %w", err)
	}
	return reg, res, nil
}

// Load reads a YAML config file, overlays environment variables (which take
// precedence over file values), applies defaults, and returns the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Config{VectorStore: VectorStoreConfig{AutoCreateCollections: true, EnableQuantization: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if len(cfg.Resolver.Models) == 0 {
		cfg.Resolver = DefaultResolverConfig()
	}

	return &cfg, nil
}

// Default returns a complete configuration with no file backing it, for
// tests and for a zero-config quickstart.
func Default() *Config {
	cfg := &Config{
		Resolver:    DefaultResolverConfig(),
		VectorStore: VectorStoreConfig{AutoCreateCollections: true, EnableQuantization: true},
	}
	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_GPU_BASE_URL"); v != "" {
		cfg.Embedding.GPUBaseURL = v
	}
	if v := os.Getenv("EMBEDDING_CPU_BASE_URL"); v != "" {
		cfg.Embedding.CPUBaseURL = v
	}
	if v := os.Getenv("EMBEDDING_GPU_ENABLED"); v == "true" {
		cfg.Embedding.GPUEnabled = true
	}
	if v := os.Getenv("QDRANT_URL"); v != "" {
		cfg.VectorStore.BackendURL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.VectorStore.BackendAPIKey = v
	}
	if v := os.Getenv("DEFAULT_COLLECTION"); v != "" {
		cfg.VectorStore.DefaultCollection = v
	}
	if v := os.Getenv("STATE_STORE_DSN"); v != "" {
		cfg.VectorStore.StateStoreDSN = v
	}
	if v := os.Getenv("QDRANT_AUTO_CREATE_COLLECTIONS"); v == "false" {
		cfg.VectorStore.AutoCreateCollections = false
	} else if v != "" {
		cfg.VectorStore.AutoCreateCollections = true
	}
	if v := os.Getenv("QDRANT_ENABLE_QUANTIZATION"); v == "false" {
		cfg.VectorStore.EnableQuantization = false
	} else if v != "" {
		cfg.VectorStore.EnableQuantization = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 60 * time.Second
	}
	if cfg.Embedding.CPUBaseURL == "" {
		cfg.Embedding.CPUBaseURL = "http://localhost:11434/v1"
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.VectorStore.BackendURL == "" {
		cfg.VectorStore.BackendURL = "localhost:6334"
	}
	if cfg.VectorStore.HNSWEfConstruct == 0 {
		cfg.VectorStore.HNSWEfConstruct = 200
	}
	if cfg.VectorStore.HNSWM == 0 {
		cfg.VectorStore.HNSWM = 16
	}
	if cfg.VectorStore.RequestTimeout == 0 {
		cfg.VectorStore.RequestTimeout = 30 * time.Second
	}
	if cfg.VectorStore.SearchDefaultLimit == 0 {
		cfg.VectorStore.SearchDefaultLimit = 10
	}
	if cfg.VectorStore.DefaultBatchSize == 0 {
		cfg.VectorStore.DefaultBatchSize = 100
	}
}

// DefaultResolverConfig returns the collection->model catalogue and
// mapping used out of the box, transcribed from original_source's
// EMBEDDING_MODEL_CONFIGS / COLLECTION_MODEL_MAPPINGS / COLLECTION_ALIASES.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		DefaultModelID: "all-minilm-l6-v2",
		Models: []ModelConfig{
			{ModelID: "bge-large-en-v1.5", DisplayName: "BGE Large EN v1.5", Dimensions: 1024, Distance: "cosine", Description: "high-precision model for complex analysis"},
			{ModelID: "bge-base-en-v1.5", DisplayName: "BGE Base EN v1.5", Dimensions: 768, Distance: "cosine", Description: "balanced model for business and workplace documents"},
			{ModelID: "bge-base-en", DisplayName: "BGE Base EN", Dimensions: 768, Distance: "cosine", Description: "balanced model for comprehensive analysis"},
			{ModelID: "all-minilm-l6-v2", DisplayName: "All MiniLM L6 v2", Dimensions: 384, Distance: "cosine", Description: "fast model for technical/debug content"},
		},
		CollectionModelMap: map[string]string{
			"legal_analysis":          "bge-large-en-v1.5",
			"technical_documentation": "bge-large-en-v1.5",
			"workplace_documentation": "bge-base-en-v1.5",
		},
		CollectionPatternMap: []PatternConfig{
			{Substring: "legal", ModelID: "bge-large-en-v1.5"},
			{Substring: "career", ModelID: "bge-large-en-v1.5"},
			{Substring: "lessons", ModelID: "bge-base-en"},
			{Substring: "knowledge", ModelID: "bge-base-en"},
			{Substring: "analysis", ModelID: "bge-base-en"},
			{Substring: "debug", ModelID: "all-minilm-l6-v2"},
			{Substring: "working", ModelID: "all-minilm-l6-v2"},
			{Substring: "solutions", ModelID: "all-minilm-l6-v2"},
			{Substring: "technical", ModelID: "all-minilm-l6-v2"},
		},
		CollectionAliases: map[string]string{
			"lodestar_legal_analysis":          "legal_analysis",
			"lodestar_workplace_documentation": "workplace_documentation",
			"lodestar_troubles":                "troubleshooting",
			"legal_docs":                       "legal_analysis",
			"legal_documents":                  "legal_analysis",
			"workplace_docs":                   "workplace_documentation",
			"business_docs":                    "workplace_documentation",
		},
	}
}
