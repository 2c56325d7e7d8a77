package console

import (
	"testing"
	"time"

	"github.com/colonyops/sage/internal/core/review"
	"github.com/colonyops/sage/internal/core/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleComments() []review.Comment {
	return []review.Comment{
		{ID: 1, Severity: review.SeverityError, Type: "bug", FilePath: "internal/api/client.go", Message: "Nil dereference"},
		{ID: 2, Severity: review.SeverityWarning, Type: "style", FilePath: "main.go", Message: "long function", PostedToVCS: true},
		{ID: 3, Severity: review.SeverityInfo, Type: "bug", FilePath: "internal/api/errors.go", Message: "unused value"},
		{ID: 4, Severity: review.SeverityError, Type: "security", FilePath: "main.go", Message: "token logged"},
		{ID: 5, Severity: review.SeverityWarning, Type: "", FilePath: "", Message: "general remark"},
	}
}

func ids(cs []review.Comment) []int64 {
	out := make([]int64, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}

func TestProject(t *testing.T) {
	tests := []struct {
		name   string
		filter CommentFilter
		want   []int64
	}{
		{"zero filter", CommentFilter{}, []int64{1, 2, 3, 4, 5}},
		{"severity", CommentFilter{Severity: review.SeverityError}, []int64{1, 4}},
		{"type ignores case", CommentFilter{Type: "BUG"}, []int64{1, 3}},
		{"file exact", CommentFilter{FilePath: "main.go"}, []int64{2, 4}},
		{"file glob", CommentFilter{FileGlob: "internal/**/*.go"}, []int64{1, 3}},
		{"posted only", CommentFilter{Posted: PostedOnly}, []int64{2}},
		{"not posted", CommentFilter{Posted: PostedNot}, []int64{1, 3, 4, 5}},
		{"search", CommentFilter{Search: " TOKEN "}, []int64{4}},
		{"criteria combine", CommentFilter{Severity: review.SeverityError, FilePath: "main.go"}, []int64{4}},
		{"no match", CommentFilter{Severity: review.SeverityInfo, FilePath: "main.go"}, []int64{}},
		{"bad glob", CommentFilter{FileGlob: "[unclosed"}, []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Project(sampleComments(), tt.filter)))
		})
	}
}

func TestProject_ClearingRestoresFullSet(t *testing.T) {
	comments := sampleComments()
	before := ids(comments)

	narrowed := Project(comments, CommentFilter{Severity: review.SeverityError, Search: "token"})
	require.Len(t, narrowed, 1)

	assert.Equal(t, before, ids(comments), "input untouched")
	assert.Equal(t, before, ids(Project(comments, CommentFilter{})))
}

func TestCommentFilter_WithFile(t *testing.T) {
	f := CommentFilter{Severity: review.SeverityError}.WithFile("internal/**")
	assert.Equal(t, "internal/**", f.FileGlob)
	assert.Empty(t, f.FilePath)
	assert.Equal(t, review.SeverityError, f.Severity)

	f = f.WithFile("main.go")
	assert.Equal(t, "main.go", f.FilePath)
	assert.Empty(t, f.FileGlob)

	assert.True(t, CommentFilter{}.WithFile("").IsZero())
}

func TestFileAndTypeOptions(t *testing.T) {
	comments := sampleComments()
	assert.Equal(t, []string{"internal/api/client.go", "internal/api/errors.go", "main.go"}, FileOptions(comments))
	assert.Equal(t, []string{"bug", "security", "style"}, TypeOptions(comments))
	assert.Empty(t, FileOptions(nil))
}

func TestSeverityCounts(t *testing.T) {
	counts := SeverityCounts(sampleComments())
	assert.Equal(t, 2, counts[review.SeverityError])
	assert.Equal(t, 2, counts[review.SeverityWarning])
	assert.Equal(t, 1, counts[review.SeverityInfo])
}

func TestFilterMergeRequests(t *testing.T) {
	mrs := []workspace.MergeRequest{
		{ID: 1, Title: "Fix login redirect", State: workspace.MergeRequestOpen},
		{ID: 2, Title: "Add metrics", State: workspace.MergeRequestMerged},
		{ID: 3, Title: "Login page copy", State: workspace.MergeRequestClosed},
	}

	got := FilterMergeRequests(mrs, MRFilter{Title: "LOGIN"})
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got = FilterMergeRequests(mrs, MRFilter{State: workspace.MergeRequestMerged})
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	assert.Len(t, FilterMergeRequests(mrs, MRFilter{}), 3)
	assert.True(t, MRFilter{}.IsZero())
}

func TestSummarizeRuns(t *testing.T) {
	runs := []review.Run{
		{ID: 1, Status: review.StatusSucceeded, CreatedAt: t0},
		{ID: 2, Status: review.StatusRunning, CreatedAt: t0.Add(2 * time.Minute)},
		{ID: 3, Status: review.StatusFailed, CreatedAt: t0.Add(time.Minute)},
		{ID: 4, Status: review.StatusQueued, CreatedAt: t0.Add(2 * time.Minute)},
	}
	sum := SummarizeRuns(runs)

	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Active)
	assert.Equal(t, 1, sum.ByStatus[review.StatusSucceeded])
	require.True(t, sum.HasLatest)
	assert.Equal(t, int64(4), sum.Latest.ID, "ties break by id")

	order := make([]int64, 0, len(sum.Runs))
	for _, r := range sum.Runs {
		order = append(order, r.ID)
	}
	assert.Equal(t, []int64{4, 2, 3, 1}, order)
	assert.Equal(t, int64(1), runs[0].ID, "input order untouched")
}

func TestSummarizeRuns_Empty(t *testing.T) {
	sum := SummarizeRuns(nil)
	assert.Zero(t, sum.Total)
	assert.False(t, sum.HasLatest)
	assert.NotNil(t, sum.Runs)
}
