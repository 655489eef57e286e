// Package memory implements vector.Repository with brute-force cosine
// search. It backs offline operation and tests; durability is out of scope.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quarrylabs/quarry/internal/vector"
)

// Repository is an in-memory vector.Repository.
type Repository struct {
	mu      sync.RWMutex
	entries map[string]vector.Entry
}

// New creates an empty in-memory repository.
func New() *Repository {
	return &Repository{entries: make(map[string]vector.Entry)}
}

func (r *Repository) Upsert(ctx context.Context, entries []vector.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, vec []float32, topK int, filter vector.Filter, threshold float32) ([]vector.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []vector.SearchResult
	for _, e := range r.entries {
		if !matches(e, filter) {
			continue
		}
		score := vector.Similarity(vec, e.Vector)
		if score < threshold {
			continue
		}
		results = append(results, vector.SearchResult{
			ID:       e.ID,
			Score:    score,
			Content:  e.Content,
			Metadata: e.Metadata,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (r *Repository) FindByPath(ctx context.Context, path string) ([]vector.PathEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found []vector.PathEntry
	for _, e := range r.entries {
		if e.Metadata["path"] == path {
			found = append(found, vector.PathEntry{ID: e.ID, ModTime: e.Metadata["mtime"]})
		}
	}
	return found, nil
}

func (r *Repository) DeleteByPath(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if e.Metadata["path"] == path {
			delete(r.entries, id)
		}
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (uint64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.entries)), nil
}

func (r *Repository) Close() error {
	return nil
}

func matches(e vector.Entry, f vector.Filter) bool {
	if f.Language != "" && e.Metadata["language"] != f.Language {
		return false
	}
	if f.DocumentType != "" && e.Metadata["document_type"] != f.DocumentType {
		return false
	}
	return true
}

var _ vector.Repository = (*Repository)(nil)
