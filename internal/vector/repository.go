// Package vector defines the embedding record model and the storage
// contract for similarity search.
package vector

import "context"

// Entry is the persisted unit: a chunk's text, its embedding, and the
// metadata used for filtering and staleness checks. Metadata always carries
// the source path and modification time that produced the entry.
type Entry struct {
	ID       string
	Vector   []float32
	Content  string
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]string
}

// Filter restricts a search to entries matching all non-empty fields.
type Filter struct {
	Language     string
	DocumentType string
}

// IsZero reports whether the filter imposes no restriction.
func (f Filter) IsZero() bool {
	return f.Language == "" && f.DocumentType == ""
}

// PathEntry identifies an existing entry for staleness checks without
// loading its content or vector.
type PathEntry struct {
	ID      string
	ModTime string
}

// Repository provides durable vector storage and filtered similarity search.
// For a given entry id at most one entry exists at any time; Upsert with an
// existing id replaces the stored entry.
type Repository interface {
	// Upsert inserts or replaces entries keyed by id.
	Upsert(ctx context.Context, entries []Entry) error
	// Search returns up to topK entries matching the filter, ordered by
	// descending similarity. Entries scoring below threshold are excluded;
	// finding nothing is not an error.
	Search(ctx context.Context, vector []float32, topK int, filter Filter, threshold float32) ([]SearchResult, error)
	// FindByPath returns the ids and recorded modification times of all
	// entries whose metadata path equals path.
	FindByPath(ctx context.Context, path string) ([]PathEntry, error)
	// DeleteByPath removes all entries for the given source path.
	DeleteByPath(ctx context.Context, path string) error
	// Count returns the number of stored entries.
	Count(ctx context.Context) (uint64, error)
	// Close releases resources.
	Close() error
}
