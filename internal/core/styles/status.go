package styles

import (
	lipgloss "charm.land/lipgloss/v2"
	"github.com/colonyops/sage/internal/core/review"
)

// RunStatus renders a review status with its icon and color.
func RunStatus(s review.Status) string {
	var (
		style lipgloss.Style
		icon  string
	)
	switch s {
	case review.StatusQueued:
		style, icon = StatusQueuedStyle, IconQueued
	case review.StatusRunning:
		style, icon = StatusRunningStyle, IconRunning
	case review.StatusSucceeded:
		style, icon = StatusSucceededStyle, IconSucceeded
	case review.StatusFailed:
		style, icon = StatusFailedStyle, IconFailed
	case review.StatusCanceled:
		style, icon = StatusCanceledStyle, IconCanceled
	default:
		return MutedStyle.Render("? " + string(s))
	}
	return style.Render(icon + " " + string(s))
}

// Severity renders a comment severity label.
func Severity(s review.Severity) string {
	switch s {
	case review.SeverityError:
		return SeverityErrorStyle.Render("error")
	case review.SeverityWarning:
		return SeverityWarningStyle.Render("warn")
	case review.SeverityInfo:
		return SeverityInfoStyle.Render("info")
	default:
		return MutedStyle.Render(string(s))
	}
}
