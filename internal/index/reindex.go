// Package index keeps the vector store in sync with a document tree.
//
// Documents live under <root>/<language>/*.txt. Each run compares the file
// modification time against the one recorded in the store and only re-embeds
// files that are new or changed, so repeated runs over an unchanged tree do
// no embedding work.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/quarrylabs/quarry/internal/chunk"
	"github.com/quarrylabs/quarry/internal/observability"
	"github.com/quarrylabs/quarry/internal/vector"
)

// File outcomes reported per reindex run.
const (
	OutcomeAdded   = "added"
	OutcomeUpdated = "updated"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Names containing this marker are promotional material and never indexed.
const promotionsMarker = "promotions"

// ReindexerConfig configures the incremental reindexer.
type ReindexerConfig struct {
	Root      string   // Document tree root
	Languages []string // Per-language subdirectories to scan, in order
}

// FileResult records the outcome for a single document.
type FileResult struct {
	Path     string `json:"path"`
	Language string `json:"language"`
	Outcome  string `json:"outcome"`
	Chunks   int    `json:"chunks,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Report captures the result of one reindex run.
type Report struct {
	TotalFiles  int           `json:"total_files"`
	Added       int           `json:"added"`
	Updated     int           `json:"updated"`
	Skipped     int           `json:"skipped"`
	Failed      int           `json:"failed"`
	ChunksAdded int           `json:"chunks_added"`
	Files       []FileResult  `json:"files"`
	Duration    time.Duration `json:"duration"`
}

// Reindexer walks the document tree and mirrors it into a vector repository.
type Reindexer struct {
	config   ReindexerConfig
	chunker  *chunk.LineChunker
	embedder *vector.Embedder
	repo     vector.Repository
	logger   *slog.Logger
}

// NewReindexer creates a reindexer over the given chunker, embedder and store.
func NewReindexer(cfg ReindexerConfig, chunker *chunk.LineChunker, embedder *vector.Embedder, repo vector.Repository) *Reindexer {
	return &Reindexer{
		config:   cfg,
		chunker:  chunker,
		embedder: embedder,
		repo:     repo,
		logger:   slog.Default(),
	}
}

// Reindex scans every configured language directory and brings the store up
// to date. Failures on individual files are logged and recorded in the
// report without aborting the run. Running twice over an unchanged tree
// leaves the store identical and reports every file as skipped. Documents
// that produce no chunks store nothing and are re-reported as added on
// every run.
func (r *Reindexer) Reindex(ctx context.Context) (*Report, error) {
	return r.ReindexTree(ctx, "", nil)
}

// ReindexTree runs one pass over the given tree. An empty root or language
// list falls back to the configured defaults, so scheduled jobs can target
// an alternate tree without rebuilding the reindexer.
func (r *Reindexer) ReindexTree(ctx context.Context, root string, languages []string) (*Report, error) {
	if root == "" {
		root = r.config.Root
	}
	if len(languages) == 0 {
		languages = r.config.Languages
	}

	start := time.Now()
	report := &Report{}

	for _, lang := range languages {
		paths, err := filepath.Glob(filepath.Join(root, lang, "*.txt"))
		if err != nil {
			return nil, fmt.Errorf("scan %s documents: %w", lang, err)
		}
		sort.Strings(paths)

		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			result := r.processFile(ctx, path, lang)
			report.Files = append(report.Files, result)
			report.TotalFiles++
			switch result.Outcome {
			case OutcomeAdded:
				report.Added++
				report.ChunksAdded += result.Chunks
			case OutcomeUpdated:
				report.Updated++
				report.ChunksAdded += result.Chunks
			case OutcomeSkipped:
				report.Skipped++
			case OutcomeFailed:
				report.Failed++
			}
		}
	}

	report.Duration = time.Since(start)

	observability.Metrics().RecordIndexRun(report.Duration,
		report.Added+report.Updated, report.Skipped, report.ChunksAdded)

	r.logger.Info("reindex complete",
		"total", report.TotalFiles,
		"added", report.Added,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"chunks", report.ChunksAdded,
	)

	return report, nil
}

func (r *Reindexer) processFile(ctx context.Context, path, language string) FileResult {
	ctx, span := observability.StartIndexSpan(ctx, path, language)
	defer span.End()

	result := FileResult{Path: path, Language: language}

	if strings.Contains(strings.ToLower(filepath.Base(path)), promotionsMarker) {
		result.Outcome = OutcomeSkipped
		result.Reason = "promotional content"
		observability.RecordIndexResult(span, result.Outcome, 0)
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		return r.fail(span, result, fmt.Errorf("stat: %w", err))
	}
	mtime := chunk.FormatModTime(info.ModTime())

	existing, err := r.repo.FindByPath(ctx, path)
	if err != nil {
		return r.fail(span, result, fmt.Errorf("lookup stored entries: %w", err))
	}

	if len(existing) > 0 && allCurrent(existing, mtime) {
		result.Outcome = OutcomeSkipped
		result.Reason = "unchanged"
		observability.RecordIndexResult(span, result.Outcome, 0)
		return result
	}

	if len(existing) > 0 {
		if err := r.repo.DeleteByPath(ctx, path); err != nil {
			return r.fail(span, result, fmt.Errorf("delete stale entries: %w", err))
		}
		result.Outcome = OutcomeUpdated
	} else {
		result.Outcome = OutcomeAdded
	}

	chunks, err := r.chunker.ChunkFile(path, language)
	if err != nil {
		return r.fail(span, result, err)
	}
	for i := range chunks {
		chunks[i].Metadata.ModTime = info.ModTime()
	}

	if len(chunks) > 0 {
		entries, err := r.embedder.EmbedChunks(ctx, chunks)
		if err != nil {
			return r.fail(span, result, fmt.Errorf("embed: %w", err))
		}
		if err := r.repo.Upsert(ctx, entries); err != nil {
			return r.fail(span, result, fmt.Errorf("store: %w", err))
		}
	} else {
		// Nothing stored means no mtime recorded, so the file shows up
		// again on the next run.
		result.Reason = "no indexable content"
	}

	result.Chunks = len(chunks)
	observability.RecordIndexResult(span, result.Outcome, result.Chunks)
	r.logger.Debug("indexed document",
		"path", path, "language", language,
		"outcome", result.Outcome, "chunks", result.Chunks)
	return result
}

func (r *Reindexer) fail(span trace.Span, result FileResult, err error) FileResult {
	result.Outcome = OutcomeFailed
	result.Reason = err.Error()
	observability.RecordError(span, err)
	r.logger.Warn("skipping document after error", "path", result.Path, "error", err)
	return result
}

// allCurrent reports whether every stored entry carries the given mtime.
func allCurrent(entries []vector.PathEntry, mtime string) bool {
	for _, e := range entries {
		if e.ModTime != mtime {
			return false
		}
	}
	return true
}

// FormatReport returns a human-readable summary of a reindex run.
func FormatReport(report *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reindex: %d files in %s\n", report.TotalFiles, report.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "  added:   %d\n", report.Added)
	fmt.Fprintf(&b, "  updated: %d\n", report.Updated)
	fmt.Fprintf(&b, "  skipped: %d\n", report.Skipped)
	if report.Failed > 0 {
		fmt.Fprintf(&b, "  failed:  %d\n", report.Failed)
	}
	fmt.Fprintf(&b, "  chunks written: %d\n", report.ChunksAdded)

	for _, f := range report.Files {
		switch f.Outcome {
		case OutcomeAdded:
			fmt.Fprintf(&b, "  + %s (%d chunks)\n", f.Path, f.Chunks)
		case OutcomeUpdated:
			fmt.Fprintf(&b, "  ~ %s (%d chunks)\n", f.Path, f.Chunks)
		case OutcomeFailed:
			fmt.Fprintf(&b, "  ! %s: %s\n", f.Path, f.Reason)
		}
	}
	return b.String()
}
