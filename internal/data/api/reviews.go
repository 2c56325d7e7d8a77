package api

import (
	"context"
	"fmt"

	"github.com/colonyops/sage/internal/core/review"
)

func reviewsPath(workspaceID, mergeRequestID int64, rest string) string {
	return fmt.Sprintf("/workspace/%d/merge-requests/%d/reviews/%s", workspaceID, mergeRequestID, rest)
}

func runPath(workspaceID, mergeRequestID, runID int64, action string) string {
	return reviewsPath(workspaceID, mergeRequestID, fmt.Sprintf("%d/%s/", runID, action))
}

func (c *Client) ListRuns(ctx context.Context, workspaceID, mergeRequestID int64) ([]review.Run, error) {
	var out []review.Run
	err := c.get(ctx, reviewsPath(workspaceID, mergeRequestID, "list/"), nil, listOf(&out, runWire.domain))
	for i := range out {
		if out[i].MergeRequestID == 0 {
			out[i].MergeRequestID = mergeRequestID
		}
	}
	return out, err
}

func (c *Client) GetRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) (review.Run, error) {
	var out review.Run
	err := c.get(ctx, runPath(workspaceID, mergeRequestID, runID, "detail"), nil, objectOf(&out, runWire.domain))
	if err == nil && out.MergeRequestID == 0 {
		out.MergeRequestID = mergeRequestID
	}
	return out, err
}

func (c *Client) ListComments(ctx context.Context, workspaceID, mergeRequestID, runID int64) ([]review.Comment, error) {
	var out []review.Comment
	err := c.get(ctx, runPath(workspaceID, mergeRequestID, runID, "comments"), nil, listOf(&out, commentWire.domain))
	for i := range out {
		if out[i].RunID == 0 {
			out[i].RunID = runID
		}
	}
	return out, err
}

func (c *Client) StartRun(ctx context.Context, workspaceID, mergeRequestID int64, in review.RunInput) (review.Run, error) {
	var out review.Run
	err := c.post(ctx, reviewsPath(workspaceID, mergeRequestID, "run/"), in, objectOf(&out, runWire.domain))
	if err == nil && out.ID == 0 {
		return out, &Error{
			Kind:    KindServer,
			Method:  "POST",
			Path:    reviewsPath(workspaceID, mergeRequestID, "run/"),
			Message: "run response did not include an id",
		}
	}
	if out.MergeRequestID == 0 {
		out.MergeRequestID = mergeRequestID
	}
	return out, err
}

func (c *Client) RerunRun(ctx context.Context, workspaceID, mergeRequestID, runID int64, in review.RunInput) (review.Run, error) {
	var out review.Run
	path := runPath(workspaceID, mergeRequestID, runID, "rerun")
	err := c.post(ctx, path, in, objectOf(&out, runWire.domain))
	if err == nil && out.ID == 0 {
		return out, &Error{Kind: KindServer, Method: "POST", Path: path, Message: "rerun response did not include an id"}
	}
	if out.MergeRequestID == 0 {
		out.MergeRequestID = mergeRequestID
	}
	return out, err
}

func (c *Client) CancelRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) error {
	return c.post(ctx, runPath(workspaceID, mergeRequestID, runID, "cancel"), nil, nil)
}

func (c *Client) PublishRun(ctx context.Context, workspaceID, mergeRequestID, runID int64) (review.PublishResult, error) {
	var out review.PublishResult
	err := c.post(ctx, runPath(workspaceID, mergeRequestID, runID, "publish"), nil, objectOf(&out, publishWire.domain))
	return out, err
}
