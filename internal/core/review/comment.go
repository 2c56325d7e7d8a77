package review

import "strconv"

// Severity classifies a review comment.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Severities lists the severities from least to most severe.
func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityWarning, SeverityError}
}

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityError:
		return true
	default:
		return false
	}
}

// Comment is one diagnostic produced by a review run. Comments are immutable
// once created; PostedToVCS flips once when the run is published.
type Comment struct {
	ID          int64    `json:"id"`
	RunID       int64    `json:"review_run_id"`
	Severity    Severity `json:"severity"`
	Type        string   `json:"comment_type"`
	FilePath    string   `json:"file_path"`
	Line        *int     `json:"line,omitempty"`
	Message     string   `json:"message"`
	PostedToVCS bool     `json:"posted_to_vcs"`
}

// Location renders file:line, or just the file when the line is unknown.
func (c Comment) Location() string {
	if c.Line == nil {
		return c.FilePath
	}
	return c.FilePath + ":" + strconv.Itoa(*c.Line)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
