package form

import (
	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"
)

// SelectField picks one option. Typing "/" filters the options by label.
type SelectField struct {
	list    list.Model
	options []Option
	label   string
	focused bool
}

// NewSelectField creates a single-select field. defaultVal pre-selects the
// option with that value; otherwise the first option is selected.
func NewSelectField(label string, options []Option, defaultVal string) *SelectField {
	l := newOptionList(options, optionDelegate{})
	for i, opt := range options {
		if opt.Value == defaultVal {
			l.Select(i)
			break
		}
	}
	return &SelectField{list: l, options: options, label: label}
}

func (f *SelectField) Update(msg tea.Msg) (Field, tea.Cmd) {
	if !f.focused {
		return f, nil
	}
	var cmd tea.Cmd
	f.list, cmd = f.list.Update(msg)
	return f, cmd
}

func (f *SelectField) View() string { return frame(f.label, f.focused, listView(f.list)...) }

func (f *SelectField) Focus() tea.Cmd {
	f.focused = true
	return nil
}

func (f *SelectField) Blur()         { f.focused = false }
func (f *SelectField) Focused() bool { return f.focused }
func (f *SelectField) Label() string { return f.label }

// Value returns the selected option's value, or "" when there are no
// options or the filter matches none.
func (f *SelectField) Value() any {
	si, ok := f.list.SelectedItem().(selectItem)
	if !ok || si.index < 0 || si.index >= len(f.options) {
		return ""
	}
	return f.options[si.index].Value
}

// IsFiltering reports whether the user is typing a filter, in which case
// enter and esc belong to the field rather than the dialog.
func (f *SelectField) IsFiltering() bool { return f.list.SettingFilter() }
