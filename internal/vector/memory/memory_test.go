package memory

import (
	"context"
	"testing"

	"github.com/quarrylabs/quarry/internal/vector"
)

func entry(id, path, lang, docType string, vec []float32) vector.Entry {
	return vector.Entry{
		ID:      id,
		Vector:  vec,
		Content: "content of " + id,
		Metadata: map[string]string{
			"path":          path,
			"language":      lang,
			"document_type": docType,
			"mtime":         "100",
		},
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	r := New()

	if err := r.Upsert(ctx, []vector.Entry{entry("a_L1_S0", "/d/a.txt", "en", "terms", []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := r.Upsert(ctx, []vector.Entry{entry("a_L1_S0", "/d/a.txt", "en", "terms", []float32{0, 1})}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	n, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry after re-upsert, got %d", n)
	}

	results, err := r.Search(ctx, []float32{0, 1}, 10, vector.Filter{}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Score < 0.99 {
		t.Fatalf("updated vector should match the new direction, got %+v", results)
	}
}

func TestSearchThresholdAndOrder(t *testing.T) {
	ctx := context.Background()
	r := New()

	err := r.Upsert(ctx, []vector.Entry{
		entry("close_L1_S0", "/d/a.txt", "en", "terms", []float32{1, 0}),
		entry("near_L1_S0", "/d/b.txt", "en", "terms", []float32{0.9, 0.1}),
		entry("far_L1_S0", "/d/c.txt", "en", "terms", []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := r.Search(ctx, []float32{1, 0}, 10, vector.Filter{}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above threshold, got %d", len(results))
	}
	if results[0].ID != "close_L1_S0" || results[1].ID != "near_L1_S0" {
		t.Errorf("results not in descending score order: %s, %s", results[0].ID, results[1].ID)
	}

	// topK truncation
	results, err = r.Search(ctx, []float32{1, 0}, 1, vector.Filter{}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "close_L1_S0" {
		t.Errorf("topK=1 should keep only the best match, got %+v", results)
	}
}

func TestSearchFilters(t *testing.T) {
	ctx := context.Background()
	r := New()

	err := r.Upsert(ctx, []vector.Entry{
		entry("en_L1_S0", "/d/en/a.txt", "en", "terms", []float32{1, 0}),
		entry("ru_L1_S0", "/d/ru/a.txt", "ru", "terms", []float32{1, 0}),
		entry("bonus_L1_S0", "/d/en/b.txt", "en", "bonus_rules", []float32{1, 0}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := r.Search(ctx, []float32{1, 0}, 10, vector.Filter{Language: "ru"}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "ru_L1_S0" {
		t.Fatalf("language filter failed: %+v", results)
	}

	results, err = r.Search(ctx, []float32{1, 0}, 10, vector.Filter{Language: "en", DocumentType: "bonus_rules"}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "bonus_L1_S0" {
		t.Fatalf("combined filter failed: %+v", results)
	}
}

func TestSearchZeroVectorBelowThreshold(t *testing.T) {
	ctx := context.Background()
	r := New()

	if err := r.Upsert(ctx, []vector.Entry{entry("a_L1_S0", "/d/a.txt", "en", "terms", []float32{1, 0})}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	results, err := r.Search(ctx, []float32{0, 0}, 10, vector.Filter{}, 0.3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("zero query vector should fall under the threshold, got %+v", results)
	}
}

func TestFindAndDeleteByPath(t *testing.T) {
	ctx := context.Background()
	r := New()

	err := r.Upsert(ctx, []vector.Entry{
		entry("a_L1_S0", "/d/a.txt", "en", "terms", []float32{1, 0}),
		entry("a_L2_S0", "/d/a.txt", "en", "terms", []float32{0, 1}),
		entry("b_L1_S0", "/d/b.txt", "en", "terms", []float32{1, 1}),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	found, err := r.FindByPath(ctx, "/d/a.txt")
	if err != nil {
		t.Fatalf("FindByPath: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 entries for /d/a.txt, got %d", len(found))
	}
	for _, pe := range found {
		if pe.ModTime != "100" {
			t.Errorf("entry %s carries mtime %q, want %q", pe.ID, pe.ModTime, "100")
		}
	}

	if err := r.DeleteByPath(ctx, "/d/a.txt"); err != nil {
		t.Fatalf("DeleteByPath: %v", err)
	}
	n, err := r.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 entry after delete, got %d", n)
	}

	found, err = r.FindByPath(ctx, "/d/a.txt")
	if err != nil {
		t.Fatalf("FindByPath: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("deleted path still has entries: %+v", found)
	}
}
