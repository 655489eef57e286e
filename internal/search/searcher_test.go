package search

import (
	"context"
	"strings"
	"testing"

	"github.com/quarrylabs/quarry/internal/vector"
	"github.com/quarrylabs/quarry/internal/vector/memory"
)

// stubEmbedder maps known phrases to fixed directions so similarity is
// predictable without a backend.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func seedRepo(t *testing.T) *memory.Repository {
	t.Helper()
	repo := memory.New()
	err := repo.Upsert(context.Background(), []vector.Entry{
		{
			ID:      "deposits_L3_S0",
			Vector:  []float32{1, 0, 0},
			Content: "Minimum deposit is 10 USD.",
			Metadata: map[string]string{
				"path": "/docs/en/deposits.txt", "language": "en",
				"document_type": "general", "line": "3", "mtime": "1",
			},
		},
		{
			ID:      "deposits_L7_S0",
			Vector:  []float32{0.9, 0.1, 0},
			Content: "Deposits are credited within minutes.",
			Metadata: map[string]string{
				"path": "/docs/en/deposits.txt", "language": "en",
				"document_type": "general", "line": "7", "mtime": "1",
			},
		},
		{
			ID:      "rules_L2_S0",
			Vector:  []float32{0, 1, 0},
			Content: "Ставки принимаются до начала матча.",
			Metadata: map[string]string{
				"path": "/docs/ru/rules.txt", "language": "ru",
				"document_type": "sportsbook_rules", "line": "2", "mtime": "1",
			},
		},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	return repo
}

func newTestSearcher(t *testing.T) *Searcher {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"minimum deposit": {1, 0, 0},
		"правила ставок":  {0, 1, 0},
	}}
	return NewSearcher(seedRepo(t), embedder, SimplePreprocessor{}, Config{
		Languages: []string{"en", "ru"},
		TopK:      15,
		MaxTopK:   30,
		Threshold: 0.3,
	})
}

func TestSearch_ThresholdAndFilter(t *testing.T) {
	s := newTestSearcher(t)

	results, err := s.Search(context.Background(), "minimum deposit", vector.Filter{Language: "en"}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 English results, got %d", len(results))
	}
	if results[0].ID != "deposits_L3_S0" {
		t.Errorf("best match should come first, got %s", results[0].ID)
	}
	for _, r := range results {
		if r.Score < 0.3 {
			t.Errorf("result %s below threshold: %f", r.ID, r.Score)
		}
	}

	// The Russian document is orthogonal to this query and filtered out anyway.
	results, err = s.Search(context.Background(), "minimum deposit", vector.Filter{Language: "ru"}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no Russian results, got %d", len(results))
	}
}

func TestSearch_ClampsTopK(t *testing.T) {
	s := newTestSearcher(t)

	// topK beyond MaxTopK and topK <= 0 both work without error.
	if _, err := s.Search(context.Background(), "minimum deposit", vector.Filter{}, 1000); err != nil {
		t.Fatalf("Search with huge topK: %v", err)
	}
	if _, err := s.Search(context.Background(), "minimum deposit", vector.Filter{}, 0); err != nil {
		t.Fatalf("Search with zero topK: %v", err)
	}
}

func TestContextForQuery_FormatsSourceBlocks(t *testing.T) {
	s := newTestSearcher(t)

	out, err := s.ContextForQuery(context.Background(), "minimum deposit", "en", 5)
	if err != nil {
		t.Fatalf("ContextForQuery: %v", err)
	}
	if !strings.HasPrefix(out, "Source 1 (line 3):\nMinimum deposit is 10 USD.") {
		t.Errorf("unexpected first block:\n%s", out)
	}
	if !strings.Contains(out, "\n\nSource 2 (line 7):\nDeposits are credited within minutes.") {
		t.Errorf("unexpected second block:\n%s", out)
	}
}

func TestContextForQuery_SentinelOnNoResults(t *testing.T) {
	s := newTestSearcher(t)

	out, err := s.ContextForQuery(context.Background(), "completely unrelated", "en", 5)
	if err != nil {
		t.Fatalf("ContextForQuery: %v", err)
	}
	if out != NoContextFound {
		t.Fatalf("expected sentinel, got %q", out)
	}
}

func TestMultilingualContext_OmitsSentinelLanguages(t *testing.T) {
	s := newTestSearcher(t)

	contexts, err := s.MultilingualContext(context.Background(), "minimum deposit", 5)
	if err != nil {
		t.Fatalf("MultilingualContext: %v", err)
	}
	if len(contexts) != 1 {
		t.Fatalf("expected only the English context, got %v", contexts)
	}
	if !strings.Contains(contexts["en"], "Minimum deposit is 10 USD.") {
		t.Errorf("English context missing matching line: %q", contexts["en"])
	}
}

func TestContextWithFallback(t *testing.T) {
	s := newTestSearcher(t)
	ctx := context.Background()

	// Own language has context.
	out, err := s.ContextWithFallback(ctx, "minimum deposit", "en", 5)
	if err != nil {
		t.Fatalf("ContextWithFallback: %v", err)
	}
	if !strings.Contains(out, "Minimum deposit") {
		t.Errorf("expected English context, got %q", out)
	}

	// Query in Russian matches only the Russian document; asking for English
	// falls back to the first language with results.
	out, err = s.ContextWithFallback(ctx, "правила ставок", "en", 5)
	if err != nil {
		t.Fatalf("ContextWithFallback: %v", err)
	}
	if !strings.Contains(out, "Ставки принимаются") {
		t.Errorf("expected Russian fallback context, got %q", out)
	}

	// No language matches.
	out, err = s.ContextWithFallback(ctx, "completely unrelated", "en", 5)
	if err != nil {
		t.Fatalf("ContextWithFallback: %v", err)
	}
	if out != NoContextFound {
		t.Fatalf("expected sentinel, got %q", out)
	}
}
