// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the catalogue of known embedding models and the
// pure resolver that maps a collection name to one of them. Both are
// immutable after construction: no I/O, no locks, no mutation once
// NewRegistry/NewResolver return.
package registry

import (
	"fmt"
	"strings"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
)

// Distance is the similarity metric a model's vector space uses.
type Distance string

const (
	Cosine    Distance = "cosine"
	Dot       Distance = "dot"
	Euclidean Distance = "euclidean"
)

// ModelDescriptor describes one embedding model. Defined at process init,
// immutable for the lifetime of the process.
type ModelDescriptor struct {
	ModelID     string
	DisplayName string
	Dimensions  int
	Distance    Distance
	Description string
}

// Registry is the immutable catalogue of every model_id the resolver may
// return. Construct with NewRegistry; there is no mutation method.
type Registry struct {
	models map[string]ModelDescriptor
}

// NewRegistry validates and freezes a catalogue of models. Duplicate
// model_ids or non-positive dimensions are rejected: the caller must fix
// its catalogue and refuse to start, per spec.md 4.1.
func NewRegistry(models []ModelDescriptor) (*Registry, error) {
	byID := make(map[string]ModelDescriptor, len(models))
	for _, m := range models {
		if m.ModelID == "" {
			return nil, fmt.Errorf("registry: model with empty model_id")
		}
		if m.Dimensions <= 0 {
			return nil, fmt.Errorf("registry: model %q has non-positive dimensions %d", m.ModelID, m.Dimensions)
		}
		switch m.Distance {
		case Cosine, Dot, Euclidean:
		default:
			return nil, fmt.Errorf("registry: model %q has unknown distance %q", m.ModelID, m.Distance)
		}
		if _, exists := byID[m.ModelID]; exists {
			return nil, fmt.Errorf("registry: duplicate model_id %q", m.ModelID)
		}
		byID[m.ModelID] = m
	}
	return &Registry{models: byID}, nil
}

// Get returns the descriptor for model_id, or ok=false if it is not in the
// catalogue.
func (r *Registry) Get(modelID string) (ModelDescriptor, bool) {
	m, ok := r.models[modelID]
	return m, ok
}

// MustGet returns the descriptor for model_id, panicking if absent. Only
// safe to call with a model_id already validated against this same registry
// (e.g. by NewResolver), never with caller-supplied input.
func (r *Registry) MustGet(modelID string) ModelDescriptor {
	m, ok := r.models[modelID]
	if !ok {
		panic(fmt.Sprintf("registry: model_id %q not in catalogue", modelID))
	}
	return m
}

// All returns every model in the catalogue, order unspecified.
func (r *Registry) All() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	return out
}

// PatternRule is one substring-match rule in the ordered pattern table.
// The first rule whose Substring appears in the (lowercased) collection
// name wins.
type PatternRule struct {
	Substring string
	ModelID   string
}

// Mapping is the configuration the Resolver is built from: an alias table
// resolved first (supplemented feature, see SPEC_FULL.md 4), then an
// exact-name table, then ordered substring patterns, then a default.
type Mapping struct {
	Aliases  map[string]string
	Exact    map[string]string
	Patterns []PatternRule
	Default  string
}

// Resolver is the pure function from collection name to ModelDescriptor
// described in spec.md 4.1. It holds a Registry and a Mapping, both
// immutable, and never performs I/O.
type Resolver struct {
	registry *Registry
	mapping  Mapping
}

// NewResolver validates that every model_id referenced by the mapping
// exists in the registry, and that a default is configured, then returns a
// Resolver. Validation happens once, here; Resolve itself never fails on a
// missing model_id because that would violate spec.md I5 (resolver purity)
// against a mapping that was supposed to have been validated already.
func NewResolver(reg *Registry, mapping Mapping) (*Resolver, error) {
	if mapping.Default == "" {
		return nil, fmt.Errorf("resolver: no default_model_id configured")
	}
	if _, ok := reg.Get(mapping.Default); !ok {
		return nil, fmt.Errorf("resolver: default_model_id %q not in registry", mapping.Default)
	}
	for name, id := range mapping.Exact {
		if _, ok := reg.Get(id); !ok {
			return nil, fmt.Errorf("resolver: collection_model_map[%q] references unknown model_id %q", name, id)
		}
	}
	for _, p := range mapping.Patterns {
		if _, ok := reg.Get(p.ModelID); !ok {
			return nil, fmt.Errorf("resolver: collection_pattern_map[%q] references unknown model_id %q", p.Substring, p.ModelID)
		}
	}
	for alias, target := range mapping.Aliases {
		if alias == target {
			return nil, fmt.Errorf("resolver: alias %q maps to itself", alias)
		}
	}
	return &Resolver{registry: reg, mapping: mapping}, nil
}

// Resolve maps a collection name to a ModelDescriptor. Resolution order,
// first match wins: alias substitution, then exact-name entry, then ordered
// substring patterns, then the global default. Pure: no I/O, no locks.
func (r *Resolver) Resolve(collectionName string) (ModelDescriptor, error) {
	if collectionName == "" {
		return ModelDescriptor{}, coreerr.InvalidField("collection_name", "must not be empty")
	}

	name := collectionName
	if target, ok := r.mapping.Aliases[name]; ok {
		name = target
	}

	if id, ok := r.mapping.Exact[name]; ok {
		return r.registry.MustGet(id), nil
	}
	if id, ok := r.mapping.Exact[collectionName]; ok {
		return r.registry.MustGet(id), nil
	}

	lower := strings.ToLower(name)
	for _, p := range r.mapping.Patterns {
		if strings.Contains(lower, strings.ToLower(p.Substring)) {
			return r.registry.MustGet(p.ModelID), nil
		}
	}

	return r.registry.MustGet(r.mapping.Default), nil
}

// Mappings returns the configured mapping and the full registry, for the
// model_mappings() introspection operation.
func (r *Resolver) Mappings() (Mapping, []ModelDescriptor) {
	return r.mapping, r.registry.All()
}
