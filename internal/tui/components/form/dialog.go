package form

import (
	"errors"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/hay-kot/criterio"
)

// filterer is an optional interface for fields that support list filtering.
type filterer interface {
	IsFiltering() bool
}

// Dialog is a form container that manages focus cycling, submission, and
// cancellation across a set of named fields.
type Dialog struct {
	fields       []Field
	names        []string // parallel slice: payload field name for each field
	errors       map[string]string
	general      string
	focusedField int
	submitted    bool
	cancelled    bool
	Title        string
}

// NewDialog creates a form dialog with the given fields and payload names.
// The first field is focused automatically.
func NewDialog(title string, fields []Field, names []string) *Dialog {
	d := &Dialog{
		fields: fields,
		names:  names,
		Title:  title,
	}
	if len(fields) > 0 {
		fields[0].Focus()
	}
	return d
}

// Update handles key input for the dialog, managing focus cycling and submit/cancel.
func (d *Dialog) Update(msg tea.Msg) (*Dialog, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return d.updateFocusedField(msg)
	}

	switch keyMsg.String() {
	case "tab":
		return d.advanceFocus()
	case "shift+tab":
		return d.retreatFocus()
	case "ctrl+s":
		d.submitted = true
		return d, nil
	case "enter":
		if d.isFocusedFieldFiltering() {
			return d.updateFocusedField(msg)
		}
		return d.advanceFocus()
	case "esc":
		if d.isFocusedFieldFiltering() {
			return d.updateFocusedField(msg)
		}
		d.cancelled = true
		return d, nil
	}

	return d.updateFocusedField(msg)
}

// View renders all fields vertically with their errors and help text.
func (d *Dialog) View() string {
	var parts []string
	if d.general != "" {
		parts = append(parts, styles.FormErrorStyle.Render(d.general), "")
	}
	for i, field := range d.fields {
		if i > 0 {
			parts = append(parts, "")
		}
		parts = append(parts, field.View())
		if msg := d.errors[d.names[i]]; msg != "" {
			parts = append(parts, styles.FormErrorStyle.Render("  "+msg))
		}
	}

	help := styles.TextMutedStyle.Render("tab: next  shift+tab: prev  ctrl+s: submit  esc: cancel")
	parts = append(parts, "", help)

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Values returns a map of payload names to field values.
func (d *Dialog) Values() map[string]any {
	result := make(map[string]any, len(d.fields))
	for i, field := range d.fields {
		result[d.names[i]] = field.Value()
	}
	return result
}

// String returns the value of a text or select field, or "".
func (d *Dialog) String(name string) string {
	s, _ := d.Values()[name].(string)
	return s
}

// Strings returns the value of a multi-select field.
func (d *Dialog) Strings(name string) []string {
	s, _ := d.Values()[name].([]string)
	return s
}

// SetErrors shows err under the matching fields and reopens the dialog for
// editing. Field errors for names the dialog does not have, and non-field
// errors, are shown above the fields.
func (d *Dialog) SetErrors(err error) {
	d.errors = map[string]string{}
	d.general = ""
	d.submitted = false
	if err == nil {
		return
	}

	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		d.general = err.Error()
		return
	}
	for _, fe := range fieldErrs {
		if d.hasField(fe.Field) {
			d.errors[fe.Field] = fe.Err.Error()
			continue
		}
		if d.general != "" {
			d.general += "; "
		}
		d.general += fe.Field + ": " + fe.Err.Error()
	}
}

// SetFieldErrors shows server-side messages keyed by payload field.
func (d *Dialog) SetFieldErrors(fields map[string][]string, general []string) {
	d.errors = map[string]string{}
	d.general = ""
	d.submitted = false
	for name, msgs := range fields {
		if len(msgs) == 0 {
			continue
		}
		if d.hasField(name) {
			d.errors[name] = msgs[0]
			continue
		}
		general = append(general, name+": "+msgs[0])
	}
	for i, g := range general {
		if i > 0 {
			d.general += "; "
		}
		d.general += g
	}
}

// Error returns the message shown for a field.
func (d *Dialog) Error(name string) string { return d.errors[name] }

// Submitted returns whether the form was submitted.
func (d *Dialog) Submitted() bool { return d.submitted }

// Cancelled returns whether the form was cancelled.
func (d *Dialog) Cancelled() bool { return d.cancelled }

func (d *Dialog) hasField(name string) bool {
	for _, n := range d.names {
		if n == name {
			return true
		}
	}
	return false
}

func (d *Dialog) advanceFocus() (*Dialog, tea.Cmd) {
	if len(d.fields) == 0 {
		d.submitted = true
		return d, nil
	}

	next := d.focusedField + 1
	if next >= len(d.fields) {
		// Past the last field: submit.
		d.submitted = true
		return d, nil
	}

	d.fields[d.focusedField].Blur()
	d.focusedField = next
	cmd := d.fields[d.focusedField].Focus()
	return d, cmd
}

func (d *Dialog) retreatFocus() (*Dialog, tea.Cmd) {
	if len(d.fields) == 0 || d.focusedField == 0 {
		return d, nil
	}

	d.fields[d.focusedField].Blur()
	d.focusedField--
	cmd := d.fields[d.focusedField].Focus()
	return d, cmd
}

func (d *Dialog) updateFocusedField(msg tea.Msg) (*Dialog, tea.Cmd) {
	if len(d.fields) == 0 {
		return d, nil
	}

	var cmd tea.Cmd
	d.fields[d.focusedField], cmd = d.fields[d.focusedField].Update(msg)
	return d, cmd
}

func (d *Dialog) isFocusedFieldFiltering() bool {
	if len(d.fields) == 0 {
		return false
	}
	if f, ok := d.fields[d.focusedField].(filterer); ok {
		return f.IsFiltering()
	}
	return false
}
