package console

import (
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
)

// PostedFilter narrows comments by publication state.
type PostedFilter int

const (
	PostedAny PostedFilter = iota
	PostedOnly
	PostedNot
)

// CommentFilter selects comments. Zero fields match everything and set
// fields combine with AND.
type CommentFilter struct {
	Severity review.Severity
	Type     string
	// FilePath matches exactly.
	FilePath string
	// FileGlob is a doublestar pattern such as "internal/**/*.go".
	FileGlob string
	Posted   PostedFilter
	// Search is a case-insensitive substring of the message.
	Search string
}

// IsZero reports whether the filter matches every comment.
func (f CommentFilter) IsZero() bool { return f == CommentFilter{} }

// WithFile sets FileGlob when file contains glob syntax and FilePath
// otherwise.
func (f CommentFilter) WithFile(file string) CommentFilter {
	f.FilePath, f.FileGlob = "", ""
	if strings.ContainsAny(file, "*?[{") {
		f.FileGlob = file
	} else {
		f.FilePath = file
	}
	return f
}

// Match reports whether c passes every set criterion.
func (f CommentFilter) Match(c review.Comment) bool {
	if f.Severity != "" && c.Severity != f.Severity {
		return false
	}
	if f.Type != "" && !strings.EqualFold(c.Type, f.Type) {
		return false
	}
	if f.FilePath != "" && c.FilePath != f.FilePath {
		return false
	}
	if f.FileGlob != "" {
		ok, err := doublestar.Match(f.FileGlob, c.FilePath)
		if err != nil || !ok {
			return false
		}
	}
	switch f.Posted {
	case PostedOnly:
		if !c.PostedToVCS {
			return false
		}
	case PostedNot:
		if c.PostedToVCS {
			return false
		}
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(c.Message), strings.ToLower(strings.TrimSpace(f.Search))) {
		return false
	}
	return true
}

// Project returns the comments matching f in their original order. The input
// is never modified, so clearing a filter restores the full set.
func Project(comments []review.Comment, f CommentFilter) []review.Comment {
	out := make([]review.Comment, 0, len(comments))
	for _, c := range comments {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// FileOptions returns the distinct non-empty file paths of comments, sorted.
func FileOptions(comments []review.Comment) []string {
	return distinct(comments, func(c review.Comment) string { return c.FilePath })
}

// TypeOptions returns the distinct non-empty comment types, sorted.
func TypeOptions(comments []review.Comment) []string {
	return distinct(comments, func(c review.Comment) string { return c.Type })
}

func distinct(comments []review.Comment, key func(review.Comment) string) []string {
	seen := make(map[string]struct{}, len(comments))
	out := make([]string, 0, len(comments))
	for _, c := range comments {
		k := key(c)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// SeverityCounts counts comments per severity.
func SeverityCounts(comments []review.Comment) map[review.Severity]int {
	counts := make(map[review.Severity]int, 3)
	for _, c := range comments {
		counts[c.Severity]++
	}
	return counts
}

// MRFilter selects merge requests. Zero fields match everything.
type MRFilter struct {
	State workspace.MergeRequestState
	// Title is a case-insensitive substring.
	Title string
}

// IsZero reports whether the filter matches every merge request.
func (f MRFilter) IsZero() bool { return f == MRFilter{} }

// FilterMergeRequests returns the merge requests matching f in their
// original order.
func FilterMergeRequests(mrs []workspace.MergeRequest, f MRFilter) []workspace.MergeRequest {
	title := strings.ToLower(strings.TrimSpace(f.Title))
	out := make([]workspace.MergeRequest, 0, len(mrs))
	for _, mr := range mrs {
		if f.State != "" && mr.State != f.State {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(mr.Title), title) {
			continue
		}
		out = append(out, mr)
	}
	return out
}

// RunSummary is the run history view of a merge request.
type RunSummary struct {
	Total    int
	ByStatus map[review.Status]int
	// Active counts queued and running runs.
	Active int
	Latest review.Run
	// HasLatest is false when there are no runs.
	HasLatest bool
	// Runs is the history, newest first.
	Runs []review.Run
}

// SummarizeRuns counts runs by status and orders them newest first.
func SummarizeRuns(runs []review.Run) RunSummary {
	sum := RunSummary{
		Total:    len(runs),
		ByStatus: make(map[review.Status]int, len(review.Statuses())),
		Runs:     slices.Clone(runs),
	}
	for _, r := range runs {
		sum.ByStatus[r.Status]++
		if r.Status.IsActive() {
			sum.Active++
		}
	}
	slices.SortStableFunc(sum.Runs, func(a, b review.Run) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		default:
			return 0
		}
	})
	sum.Latest, sum.HasLatest = review.Latest(runs)
	if sum.Runs == nil {
		sum.Runs = []review.Run{}
	}
	return sum
}
