package logging

import "context"

type contextKey string

const (
	workspaceIDKey    contextKey = "workspace_id"
	mergeRequestIDKey contextKey = "merge_request_id"
	runIDKey          contextKey = "run_id"
)

// reviewKeys are the ids ContextHook writes, outermost scope first. Each key
// doubles as the log field name.
var reviewKeys = []contextKey{workspaceIDKey, mergeRequestIDKey, runIDKey}

// WithWorkspaceID adds a workspace ID to the context.
func WithWorkspaceID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, workspaceIDKey, id)
}

// WithMergeRequestID adds a merge request ID to the context.
func WithMergeRequestID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, mergeRequestIDKey, id)
}

// WithRunID adds a review run ID to the context.
func WithRunID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// GetWorkspaceID retrieves the workspace ID from the context.
// Returns 0 if not present.
func GetWorkspaceID(ctx context.Context) int64 {
	return int64Value(ctx, workspaceIDKey)
}

// GetMergeRequestID retrieves the merge request ID from the context.
// Returns 0 if not present.
func GetMergeRequestID(ctx context.Context) int64 {
	return int64Value(ctx, mergeRequestIDKey)
}

// GetRunID retrieves the review run ID from the context.
// Returns 0 if not present.
func GetRunID(ctx context.Context) int64 {
	return int64Value(ctx, runIDKey)
}

func int64Value(ctx context.Context, key contextKey) int64 {
	if id, ok := ctx.Value(key).(int64); ok {
		return id
	}
	return 0
}
