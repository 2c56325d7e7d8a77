package review

import "context"

// Service is the remote review API scoped to a workspace and merge request.
// Implementations surface a missing run or merge request as a not-found
// error the caller can detect.
type Service interface {
	// ListRuns returns every run of the merge request.
	ListRuns(ctx context.Context, workspaceID, mergeRequestID int64) ([]Run, error)

	// GetRun returns the run detail including summary and outputs.
	GetRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) (Run, error)

	// ListComments returns the comments produced by a run.
	ListComments(ctx context.Context, workspaceID, mergeRequestID, runID int64) ([]Comment, error)

	// StartRun queues a new review run and returns it.
	StartRun(ctx context.Context, workspaceID, mergeRequestID int64, in RunInput) (Run, error)

	// RerunRun queues a new run derived from an existing one.
	RerunRun(ctx context.Context, workspaceID, mergeRequestID, runID int64, in RunInput) (Run, error)

	// CancelRun requests cancellation. It is advisory; the server may
	// still finish the run.
	CancelRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) error

	// PublishRun posts the run's comments to the Git host.
	PublishRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) (PublishResult, error)
}
