// Package temporal schedules document reindexing through Temporal.
package temporal

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ReindexInput holds the workflow parameters.
type ReindexInput struct {
	Root      string   // Document tree root; empty uses the worker's configured root
	Languages []string // Languages to scan; empty uses the worker's configured set
}

// ReindexOutput holds the workflow result.
type ReindexOutput struct {
	TotalFiles  int `json:"total_files"`
	Added       int `json:"added"`
	Updated     int `json:"updated"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	ChunksAdded int `json:"chunks_added"`
}

// ReindexWorkflow runs one incremental reindex pass over the document tree.
// Embedding a large tree can take a while, so the activity gets a generous
// timeout; transient store or backend failures are retried by Temporal.
func ReindexWorkflow(ctx workflow.Context, input ReindexInput) (*ReindexOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var output ReindexOutput
	if err := workflow.ExecuteActivity(ctx, ReindexActivity, input).Get(ctx, &output); err != nil {
		return nil, err
	}

	workflow.GetLogger(ctx).Info("reindex workflow complete",
		"total", output.TotalFiles,
		"added", output.Added,
		"updated", output.Updated,
		"skipped", output.Skipped,
		"chunks", output.ChunksAdded,
	)
	return &output, nil
}
