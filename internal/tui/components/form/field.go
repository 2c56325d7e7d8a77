// Package form provides the modal input fields used by the console's create
// and edit dialogs.
package form

import (
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

// Field is the interface implemented by all form field types.
type Field interface {
	Update(msg tea.Msg) (Field, tea.Cmd)
	View() string
	Focus() tea.Cmd
	Blur()
	Focused() bool
	Value() any // string for text/select, []string for multi-select
	Label() string
}

// Option is one choice of a select or multi-select field. Value is what the
// field reports; Label is what it shows.
type Option struct {
	Label string
	Value string
}

// Options builds options whose label and value are the same.
func Options(values ...string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Label: v, Value: v}
	}
	return out
}

// frame draws a field's label above its body inside the field border. The
// focused field gets the accent border and title.
func frame(label string, focused bool, body ...string) string {
	title, border := styles.TextMutedStyle, styles.FormFieldStyle
	if focused {
		title, border = styles.FormTitleStyle, styles.FormFieldFocusedStyle
	}
	rows := append([]string{title.Render(label)}, body...)
	return border.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
