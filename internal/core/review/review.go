// Package review defines the review run domain: runs executed by the remote
// AI review pipeline against a merge request and the comments they produce.
package review

import (
	"encoding/json"
	"time"
)

// Status is the server-reported lifecycle state of a review run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Statuses lists every status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusQueued, StatusRunning, StatusSucceeded, StatusFailed, StatusCanceled}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is final. Terminal runs are never polled.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCanceled
}

// IsActive reports whether the run is still queued or running.
func (s Status) IsActive() bool {
	return s == StatusQueued || s == StatusRunning
}

// CanTransition reports whether a run may move from one status to another.
// Repeating the current status is always allowed. Runs may fail or be
// canceled before they start.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusQueued:
		return to == StatusRunning || to.IsTerminal()
	case StatusRunning:
		return to.IsTerminal()
	default:
		return false
	}
}

// Run is one execution of the review pipeline against a merge request.
type Run struct {
	ID               int64           `json:"id"`
	MergeRequestID   int64           `json:"merge_request_id"`
	LLMIntegrationID int64           `json:"llm_integration_id"`
	Status           Status          `json:"status"`
	Summary          string          `json:"summary,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	StartedAt        *time.Time      `json:"started_at,omitempty"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
	RawOutput        string          `json:"raw_output,omitempty"`
}

// Label returns a short human label for the run.
func (r Run) Label() string {
	if r.Summary != "" {
		return r.Summary
	}
	return "Review #" + itoa(r.ID)
}

// Duration returns the elapsed run time, or zero if the run never started
// or has not finished.
func (r Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// Latest returns the most recent run by creation time, breaking ties by id.
func Latest(runs []Run) (Run, bool) {
	if len(runs) == 0 {
		return Run{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.CreatedAt.After(best.CreatedAt) || (r.CreatedAt.Equal(best.CreatedAt) && r.ID > best.ID) {
			best = r
		}
	}
	return best, true
}

// FindRun returns the run with the given id.
func FindRun(runs []Run, id int64) (Run, bool) {
	for _, r := range runs {
		if r.ID == id {
			return r, true
		}
	}
	return Run{}, false
}

// RunInput starts or re-runs a review. A zero LLMIntegrationID on a rerun
// keeps the original run's integration.
type RunInput struct {
	LLMIntegrationID int64 `json:"llm_integration_id,omitempty"`
}

// PublishResult reports how many comments a publish request posted.
type PublishResult struct {
	Posted int `json:"posted"`
}
