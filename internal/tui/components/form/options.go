package form

import (
	"io"

	"charm.land/bubbles/v2/list"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

const maxVisibleOptions = 8

// selectItem is one option row. index points back into the field's option
// slice, so filtering the list never changes which value a row stands for.
type selectItem struct {
	label string
	index int
}

func (i selectItem) FilterValue() string { return i.label }

// optionDelegate draws option rows for both select fields. A nil checked
// map draws plain rows; otherwise each row gets a checkbox.
type optionDelegate struct {
	checked map[int]bool
}

func (optionDelegate) Height() int                         { return 1 }
func (optionDelegate) Spacing() int                        { return 0 }
func (optionDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d optionDelegate) Render(w io.Writer, m list.Model, index int, li list.Item) {
	item, ok := li.(selectItem)
	if !ok {
		return
	}

	text := item.label
	if d.checked != nil {
		box := "[ ] "
		if d.checked[item.index] {
			box = "[x] "
		}
		text = box + text
	}

	cursor, style := "  ", styles.TextForegroundStyle
	if index == m.Index() {
		cursor, style = "> ", styles.SelectFieldItemSelectedStyle
	}
	_, _ = io.WriteString(w, cursor+style.Render(text))
}

func newOptionList(options []Option, delegate list.ItemDelegate) list.Model {
	items := make([]list.Item, len(options))
	for i, opt := range options {
		items[i] = selectItem{label: opt.Label, index: i}
	}

	l := list.New(items, delegate, 50, max(min(len(options), maxVisibleOptions), 1))
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowFilter(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.SetShowPagination(len(options) > maxVisibleOptions)
	l.Styles.TitleBar = lipgloss.NewStyle()

	fs := textinput.DefaultStyles(true)
	fs.Focused.Prompt = styles.TextPrimaryStyle
	fs.Cursor.Color = styles.ColorPrimary
	l.FilterInput.Prompt = "/ "
	l.FilterInput.SetStyles(fs)
	return l
}

// listView is the body of a select field: the filter input while the user
// is typing a filter, then the rows.
func listView(l list.Model) []string {
	if l.SettingFilter() {
		return []string{l.FilterInput.View(), l.View()}
	}
	return []string{l.View()}
}
