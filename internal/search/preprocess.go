package search

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/quarrylabs/quarry/internal/llm"
)

// Preprocessor normalizes a user query before embedding.
type Preprocessor interface {
	Process(ctx context.Context, query, language string) string
}

// SimplePreprocessor splits a query into clauses on sentence punctuation and
// rejoins them with single spaces. Pure: same input, same output.
type SimplePreprocessor struct{}

var clauseSplit = regexp.MustCompile(`[.?!;]`)

func (SimplePreprocessor) Process(ctx context.Context, query, language string) string {
	parts := clauseSplit.Split(query, -1)
	kept := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

const preprocessSystemPrompt = `You rewrite support questions for document retrieval.
Extract the core intent of the user's question as a short search query.
Answer in the same language as the question. Return only the rewritten query.`

// LLMPreprocessor asks a chat model to extract the core intent of a query.
// Any failure falls back to the original query unchanged.
type LLMPreprocessor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewLLMPreprocessor creates a preprocessor backed by the given provider.
func NewLLMPreprocessor(provider llm.Provider) *LLMPreprocessor {
	return &LLMPreprocessor{
		provider: provider,
		logger:   slog.Default(),
	}
}

func (p *LLMPreprocessor) Process(ctx context.Context, query, language string) string {
	if p.provider == nil {
		return query
	}

	resp, err := p.provider.Complete(ctx, &llm.Prompt{
		SystemPrompt: preprocessSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: query},
		},
	}, &llm.RequestOptions{})
	if err != nil {
		p.logger.Warn("query preprocessing failed, using original query", "error", err)
		return query
	}

	cleaned := strings.TrimSpace(resp.Content)
	if cleaned == "" {
		return query
	}
	return cleaned
}
