package temporal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/quarrylabs/quarry/internal/index"
)

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Reindexer *index.Reindexer
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ReindexActivity runs the incremental reindexer and returns its report
// summary. Input root and languages override the worker's configured tree
// when set. Per-file failures are already recorded in the report; only a
// broken tree walk or a missing reindexer fails the activity.
func ReindexActivity(ctx context.Context, input ReindexInput) (ReindexOutput, error) {
	if deps == nil || deps.Reindexer == nil {
		return ReindexOutput{}, errors.New("reindexer dependency not configured")
	}

	slog.Info("starting reindex", "root", input.Root, "languages", input.Languages)

	report, err := deps.Reindexer.ReindexTree(ctx, input.Root, input.Languages)
	if err != nil {
		return ReindexOutput{}, err
	}

	return ReindexOutput{
		TotalFiles:  report.TotalFiles,
		Added:       report.Added,
		Updated:     report.Updated,
		Skipped:     report.Skipped,
		Failed:      report.Failed,
		ChunksAdded: report.ChunksAdded,
	}, nil
}
