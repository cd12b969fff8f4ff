// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"testing"

	"github.com/triepod-ai/mcp-server-qdrant-enhanced/pkg/coreerr"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry([]ModelDescriptor{
		{ModelID: "bge-large-en-v1.5", DisplayName: "BGE Large EN v1.5", Dimensions: 1024, Distance: Cosine},
		{ModelID: "bge-base-en", DisplayName: "BGE Base EN", Dimensions: 768, Distance: Cosine},
		{ModelID: "all-minilm-l6-v2", DisplayName: "All MiniLM L6 v2", Dimensions: 384, Distance: Cosine},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

func testMapping() Mapping {
	return Mapping{
		Aliases: map[string]string{
			"legal_docs": "legal_analysis",
		},
		Exact: map[string]string{
			"legal_analysis": "bge-large-en-v1.5",
		},
		Patterns: []PatternRule{
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
		Default: "all-minilm-l6-v2",
	}
}

func TestRegistry_RejectsDuplicateModelID(t *testing.T) {
	_, err := NewRegistry([]ModelDescriptor{
		{ModelID: "m", Dimensions: 1, Distance: Cosine},
		{ModelID: "m", Dimensions: 1, Distance: Cosine},
	})
	if err == nil {
		t.Fatal("expected error for duplicate model_id")
	}
}

func TestRegistry_RejectsNonPositiveDimensions(t *testing.T) {
	_, err := NewRegistry([]ModelDescriptor{{ModelID: "m", Dimensions: 0, Distance: Cosine}})
	if err == nil {
		t.Fatal("expected error for non-positive dimensions")
	}
}

func TestNewResolver_RejectsUnknownModelInMapping(t *testing.T) {
	reg := testRegistry(t)
	_, err := NewResolver(reg, Mapping{
		Default: "all-minilm-l6-v2",
		Exact:   map[string]string{"x": "does-not-exist"},
	})
	if err == nil {
		t.Fatal("expected error for unknown model_id in exact mapping")
	}
}

func TestNewResolver_RejectsMissingDefault(t *testing.T) {
	reg := testRegistry(t)
	_, err := NewResolver(reg, Mapping{})
	if err == nil {
		t.Fatal("expected error for missing default")
	}
}

func TestResolve_ExactNameWins(t *testing.T) {
	reg := testRegistry(t)
	res, err := NewResolver(reg, testMapping())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	m, err := res.Resolve("legal_analysis")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.ModelID != "bge-large-en-v1.5" {
		t.Errorf("ModelID = %q, want bge-large-en-v1.5", m.ModelID)
	}
}

func TestResolve_AliasThenExact(t *testing.T) {
	reg := testRegistry(t)
	res, err := NewResolver(reg, testMapping())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	m, err := res.Resolve("legal_docs")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if m.ModelID != "bge-large-en-v1.5" {
		t.Errorf("ModelID = %q, want bge-large-en-v1.5 via alias", m.ModelID)
	}
}

func TestResolve_PatternMatch(t *testing.T) {
	reg := testRegistry(t)
	res, err := NewResolver(reg, testMapping())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	cases := map[string]string{
		"lessons_learned":   "bge-base-en",
		"working_solutions": "all-minilm-l6-v2",
		"random_collection": "all-minilm-l6-v2", // falls through to default
	}
	for name, want := range cases {
		m, err := res.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", name, err)
		}
		if m.ModelID != want {
			t.Errorf("Resolve(%q).ModelID = %q, want %q", name, m.ModelID, want)
		}
	}
}

func TestResolve_EmptyNameIsInvalidInput(t *testing.T) {
	reg := testRegistry(t)
	res, err := NewResolver(reg, testMapping())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	_, err = res.Resolve("")
	if !coreerr.OfKind(err, coreerr.InvalidInput) {
		t.Fatalf("Resolve(\"\") error = %v, want InvalidInput", err)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	reg := testRegistry(t)
	res, err := NewResolver(reg, testMapping())
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	first, err := res.Resolve("technical_debug_notes")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := res.Resolve("technical_debug_notes")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if again != first {
			t.Fatalf("Resolve is not deterministic: %+v != %+v", again, first)
		}
	}
}
