package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Chunking.ChunkSize != 300 || cfg.Chunking.Overlap != 50 {
		t.Errorf("unexpected chunking defaults: %+v", cfg.Chunking)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" || cfg.Embedding.Dimensions != 1536 {
		t.Errorf("unexpected embedding defaults: %+v", cfg.Embedding)
	}
	if cfg.Embedding.FallbackModel != "text-embedding-ada-002" {
		t.Errorf("unexpected fallback model %q", cfg.Embedding.FallbackModel)
	}
	if cfg.Search.TopK != 15 || cfg.Search.MaxTopK != 30 || cfg.Search.SimilarityThreshold != 0.3 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Search.Preprocess != "simple" {
		t.Errorf("unexpected preprocess default %q", cfg.Search.Preprocess)
	}
	if cfg.Vector.Collection != "support_docs" {
		t.Errorf("unexpected collection %q", cfg.Vector.Collection)
	}
	if len(cfg.Docs.Languages) != 2 || cfg.Docs.Languages[0] != "en" || cfg.Docs.Languages[1] != "ru" {
		t.Errorf("unexpected languages: %v", cfg.Docs.Languages)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quarry.yaml")
	content := `
llm:
  provider: none
search:
  top_k: 5
  similarity_threshold: 0.5
docs:
  root: /srv/docs
  languages: [en]
vector:
  type: memory
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.TopK != 5 {
		t.Errorf("file override ignored: top_k = %d", cfg.Search.TopK)
	}
	if cfg.Search.SimilarityThreshold != 0.5 {
		t.Errorf("file override ignored: threshold = %f", cfg.Search.SimilarityThreshold)
	}
	if cfg.Docs.Root != "/srv/docs" {
		t.Errorf("file override ignored: root = %q", cfg.Docs.Root)
	}
	if cfg.Vector.Type != "memory" {
		t.Errorf("file override ignored: vector type = %q", cfg.Vector.Type)
	}
	// Untouched keys keep defaults.
	if cfg.Search.MaxTopK != 30 {
		t.Errorf("default lost: max_top_k = %d", cfg.Search.MaxTopK)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("QUARRY_VECTOR_HOST", "qdrant.internal")
	t.Setenv("QUARRY_SEARCH_TOP_K", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vector.Host != "qdrant.internal" {
		t.Errorf("env override ignored: host = %q", cfg.Vector.Host)
	}
	if cfg.Search.TopK != 7 {
		t.Errorf("env override ignored: top_k = %d", cfg.Search.TopK)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func hasWarning(warnings []string, substr string) bool {
	for _, w := range warnings {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		LLM:       LLMConfig{Provider: "openai"},
		Embedding: EmbeddingConfig{Dimensions: 1536},
		Chunking:  ChunkingConfig{ChunkSize: 300, Overlap: 50},
		Search:    SearchConfig{TopK: 15, MaxTopK: 30, SimilarityThreshold: 0.3},
		Docs:      DocsConfig{Languages: []string{"en"}},
	}
	if warnings := cfg.Validate(); !hasWarning(warnings, "api_key") {
		t.Errorf("expected api_key warning, got %v", warnings)
	}

	cfg.LLM.Provider = "none"
	if warnings := cfg.Validate(); len(warnings) != 0 {
		t.Errorf("valid config should have no warnings, got %v", warnings)
	}

	cfg.Search.SimilarityThreshold = 1.5
	if warnings := cfg.Validate(); !hasWarning(warnings, "threshold") {
		t.Errorf("expected threshold warning, got %v", warnings)
	}
	cfg.Search.SimilarityThreshold = 0.3

	cfg.Chunking.Overlap = 300
	if warnings := cfg.Validate(); !hasWarning(warnings, "overlap") {
		t.Errorf("expected overlap warning, got %v", warnings)
	}
	cfg.Chunking.Overlap = 50

	cfg.Search.TopK = 99
	if warnings := cfg.Validate(); !hasWarning(warnings, "max_top_k") {
		t.Errorf("expected top_k warning, got %v", warnings)
	}
}
