package form

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

const textFieldWidth = 40

// TextField is a single-line input.
type TextField struct {
	input   textinput.Model
	label   string
	focused bool
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.SetWidth(textFieldWidth)
	ti.SetValue(value)

	muted := lipgloss.NewStyle().Foreground(styles.ColorMuted)
	st := textinput.DefaultStyles(true)
	st.Cursor.Color = styles.ColorPrimary
	st.Focused.Placeholder = muted
	st.Blurred.Placeholder = muted
	ti.SetStyles(st)
	return ti
}

// NewTextField creates a text field prefilled with value.
func NewTextField(label, placeholder, value string) *TextField {
	return &TextField{input: newInput(placeholder, value), label: label}
}

// NewSecretField creates a masked field for tokens and API keys. Secrets
// are write-only on the service, so it never starts with a value; the
// placeholder tells the user whether leaving it blank keeps the stored one.
func NewSecretField(label, placeholder string) *TextField {
	ti := newInput(placeholder, "")
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	return &TextField{input: ti, label: label}
}

func (f *TextField) Update(msg tea.Msg) (Field, tea.Cmd) {
	if !f.focused {
		return f, nil
	}
	var cmd tea.Cmd
	f.input, cmd = f.input.Update(msg)
	return f, cmd
}

func (f *TextField) View() string { return frame(f.label, f.focused, f.input.View()) }

func (f *TextField) Focus() tea.Cmd {
	f.focused = true
	return f.input.Focus()
}

func (f *TextField) Blur() {
	f.focused = false
	f.input.Blur()
}

// SetValue replaces the text.
func (f *TextField) SetValue(s string) { f.input.SetValue(s) }

func (f *TextField) Focused() bool { return f.focused }
func (f *TextField) Value() any    { return f.input.Value() }
func (f *TextField) Label() string { return f.label }
