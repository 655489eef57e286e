// Package search assembles query-time retrieval: preprocessing, embedding,
// thresholded vector search and multilingual context building.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quarrylabs/quarry/internal/observability"
	"github.com/quarrylabs/quarry/internal/vector"
)

// NoContextFound marks a search that returned nothing above the similarity
// threshold. Callers treat it as "no context", never as literal content.
const NoContextFound = "No relevant information found in the documents."

// QueryEmbedder embeds a single query string.
type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Config bounds and defaults for the searcher.
type Config struct {
	Languages []string // Supported languages in fixed iteration order
	TopK      int      // Default result count when the caller passes <= 0
	MaxTopK   int      // Hard ceiling on result count
	Threshold float32  // Minimum similarity for a result to qualify
}

// Searcher is the query-time façade over the vector store.
type Searcher struct {
	repo     vector.Repository
	embedder QueryEmbedder
	pre      Preprocessor
	config   Config
	logger   *slog.Logger
}

// NewSearcher creates a searcher. A nil preprocessor means queries are
// embedded as-is.
func NewSearcher(repo vector.Repository, embedder QueryEmbedder, pre Preprocessor, cfg Config) *Searcher {
	if pre == nil {
		pre = SimplePreprocessor{}
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 15
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 30
	}
	return &Searcher{
		repo:     repo,
		embedder: embedder,
		pre:      pre,
		config:   cfg,
		logger:   slog.Default(),
	}
}

// Search preprocesses and embeds the query and returns entries above the
// similarity threshold, best first. An empty result is not an error.
func (s *Searcher) Search(ctx context.Context, query string, filter vector.Filter, topK int) ([]vector.SearchResult, error) {
	start := time.Now()
	topK = s.clampTopK(topK)

	ctx, span := observability.StartSearchSpan(ctx, filter.Language, topK)
	defer span.End()

	processed := s.pre.Process(ctx, query, filter.Language)

	qv, err := s.embedder.EmbedText(ctx, processed)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := s.repo.Search(ctx, qv, topK, filter, s.config.Threshold)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("vector search: %w", err)
	}

	observability.RecordSearchResult(span, len(results), float64(s.config.Threshold))
	observability.Metrics().RecordSearch(time.Since(start), len(results))
	s.logger.Debug("search complete",
		"language", filter.Language, "top_k", topK, "results", len(results))
	return results, nil
}

// ContextForQuery returns the retrieved chunks for one language formatted as
// numbered source blocks, or NoContextFound when nothing qualifies.
func (s *Searcher) ContextForQuery(ctx context.Context, query, language string, topK int) (string, error) {
	results, err := s.Search(ctx, query, vector.Filter{Language: language}, topK)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return NoContextFound, nil
	}

	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("Source %d (line %s):\n%s",
			i+1, r.Metadata["line"], r.Content))
	}
	return strings.Join(blocks, "\n\n"), nil
}

// MultilingualContext builds a context per supported language, iterating the
// configured language list in order and omitting languages whose context is
// the sentinel.
func (s *Searcher) MultilingualContext(ctx context.Context, query string, topK int) (map[string]string, error) {
	contexts := make(map[string]string, len(s.config.Languages))
	for _, lang := range s.config.Languages {
		c, err := s.ContextForQuery(ctx, query, lang, topK)
		if err != nil {
			return nil, err
		}
		if c != NoContextFound {
			contexts[lang] = c
		}
	}
	return contexts, nil
}

// ContextWithFallback returns the query language's context when it exists,
// otherwise the first configured language that produced one, otherwise the
// sentinel.
func (s *Searcher) ContextWithFallback(ctx context.Context, query, language string, topK int) (string, error) {
	contexts, err := s.MultilingualContext(ctx, query, topK)
	if err != nil {
		return "", err
	}
	if c, ok := contexts[language]; ok {
		return c, nil
	}
	for _, lang := range s.config.Languages {
		if c, ok := contexts[lang]; ok {
			return c, nil
		}
	}
	return NoContextFound, nil
}

func (s *Searcher) clampTopK(topK int) int {
	if topK <= 0 {
		topK = s.config.TopK
	}
	if topK > s.config.MaxTopK {
		topK = s.config.MaxTopK
	}
	return topK
}
