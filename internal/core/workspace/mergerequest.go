package workspace

import "time"

// MergeRequestState mirrors the provider-side state of a merge request.
type MergeRequestState string

const (
	MergeRequestOpen   MergeRequestState = "open"
	MergeRequestMerged MergeRequestState = "merged"
	MergeRequestClosed MergeRequestState = "closed"
)

// IsValid reports whether s is a known merge request state.
func (s MergeRequestState) IsValid() bool {
	switch s {
	case MergeRequestOpen, MergeRequestMerged, MergeRequestClosed:
		return true
	default:
		return false
	}
}

// MergeRequest is a provider-side proposal to merge a source branch into a
// target branch.
type MergeRequest struct {
	ID           int64             `json:"id"`
	RepositoryID int64             `json:"repository_id"`
	IID          int64             `json:"iid"`
	Title        string            `json:"title"`
	State        MergeRequestState `json:"state"`
	AuthorName   string            `json:"author_name"`
	SourceBranch string            `json:"source_branch"`
	TargetBranch string            `json:"target_branch"`
	CreatedAt    time.Time         `json:"created_at"`
	WebURL       string            `json:"web_url,omitempty"`
}

// MergeRequestQuery narrows a merge request listing on the server.
type MergeRequestQuery struct {
	State  MergeRequestState
	Search string
}

// FindMergeRequest returns the merge request with the given id.
func FindMergeRequest(items []MergeRequest, id int64) (MergeRequest, bool) {
	for _, mr := range items {
		if mr.ID == id {
			return mr, true
		}
	}
	return MergeRequest{}, false
}
