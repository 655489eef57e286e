package vector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quarrylabs/quarry/internal/chunk"
	"github.com/quarrylabs/quarry/internal/llm"
	"github.com/quarrylabs/quarry/internal/observability"
)

// DefaultDimension matches text-embedding-3-small and ada-002 output.
const DefaultDimension = 1536

// Embedder turns chunk text and queries into fixed-dimension vectors. With
// no provider configured it degrades to deterministic zero vectors so the
// pipeline stays runnable offline; similarity scores in that mode carry no
// meaning and the search threshold filters them out.
type Embedder struct {
	provider  llm.Provider
	dimension int
	logger    *slog.Logger

	warnDegraded sync.Once
}

// NewEmbedder creates an Embedder. provider may be nil for degraded mode.
func NewEmbedder(provider llm.Provider, dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{
		provider:  provider,
		dimension: dimension,
		logger:    slog.Default(),
	}
}

// Dimension returns the configured vector dimension. All entries stored
// together must share it.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Degraded reports whether the embedder is running without a backend.
func (e *Embedder) Degraded() bool {
	return e.provider == nil
}

// EmbedText embeds a single text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds a batch of texts, one vector per input.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if e.provider == nil {
		e.warnDegraded.Do(func() {
			e.logger.Warn("no embedding backend configured, producing zero vectors",
				"dimension", e.dimension)
		})
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = make([]float32, e.dimension)
		}
		return vectors, nil
	}

	ctx, span := observability.StartEmbedSpan(ctx, e.provider.Name(), len(texts))
	defer span.End()

	start := time.Now()
	vectors, err := e.provider.Embed(ctx, texts)
	observability.Metrics().RecordEmbed(time.Since(start), err)
	if err != nil {
		observability.RecordError(span, err)
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != e.dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, configured %d", i, len(v), e.dimension)
		}
	}
	return vectors, nil
}

// EmbedChunks embeds chunk contents and pairs each chunk with its vector
// and flattened metadata, ready for upsert.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []chunk.Chunk) ([]Entry, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := e.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{
			ID:       c.ID,
			Vector:   vectors[i],
			Content:  c.Content,
			Metadata: c.PayloadMap(),
		}
	}
	return entries, nil
}
