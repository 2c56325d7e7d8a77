package form

import (
	"fmt"

	"charm.land/bubbles/v2/list"
	tea "charm.land/bubbletea/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

// MultiSelectField checks any number of options. Space toggles the
// highlighted option and "a" toggles all of them.
type MultiSelectField struct {
	list    list.Model
	options []Option
	checked map[int]bool
	label   string
	focused bool
}

// NewMultiSelectField creates a multi-select field. Options whose value is
// in preset start checked.
func NewMultiSelectField(label string, options []Option, preset ...string) *MultiSelectField {
	want := make(map[string]bool, len(preset))
	for _, p := range preset {
		want[p] = true
	}
	checked := make(map[int]bool)
	for i, opt := range options {
		if want[opt.Value] {
			checked[i] = true
		}
	}

	return &MultiSelectField{
		list:    newOptionList(options, optionDelegate{checked: checked}),
		options: options,
		checked: checked,
		label:   label,
	}
}

func (f *MultiSelectField) Update(msg tea.Msg) (Field, tea.Cmd) {
	if !f.focused {
		return f, nil
	}

	if key, ok := msg.(tea.KeyPressMsg); ok && !f.list.SettingFilter() {
		switch key.String() {
		case "space":
			if si, ok := f.list.SelectedItem().(selectItem); ok {
				f.checked[si.index] = !f.checked[si.index]
			}
			return f, nil
		case "a":
			f.toggleAll()
			return f, nil
		}
	}

	var cmd tea.Cmd
	f.list, cmd = f.list.Update(msg)
	return f, cmd
}

// toggleAll checks every option, or clears them all when every option is
// already checked. The map is edited in place since the delegate shares it.
func (f *MultiSelectField) toggleAll() {
	all := f.count() == len(f.options)
	for i := range f.options {
		if all {
			delete(f.checked, i)
		} else {
			f.checked[i] = true
		}
	}
}

func (f *MultiSelectField) count() int {
	n := 0
	for _, on := range f.checked {
		if on {
			n++
		}
	}
	return n
}

func (f *MultiSelectField) View() string {
	counter := styles.TextMutedStyle.Render(fmt.Sprintf("%d of %d selected · space toggle · a all", f.count(), len(f.options)))
	return frame(f.label, f.focused, append(listView(f.list), counter)...)
}

func (f *MultiSelectField) Focus() tea.Cmd {
	f.focused = true
	return nil
}

func (f *MultiSelectField) Blur()         { f.focused = false }
func (f *MultiSelectField) Focused() bool { return f.focused }
func (f *MultiSelectField) Label() string { return f.label }

// Value returns the checked option values as []string, in option order.
func (f *MultiSelectField) Value() any {
	var selected []string
	for i, opt := range f.options {
		if f.checked[i] {
			selected = append(selected, opt.Value)
		}
	}
	return selected
}

func (f *MultiSelectField) IsFiltering() bool { return f.list.SettingFilter() }
