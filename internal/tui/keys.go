package tui

import (
	"charm.land/bubbles/v2/key"

	"github.com/colonyops/sage/internal/tui/components"
)

// keyMap holds every binding of the console. Bindings are matched with
// key.Matches so help text and behavior cannot drift apart.
type keyMap struct {
	Quit          key.Binding
	Help          key.Binding
	Notifications key.Binding
	NextPane      key.Binding
	PrevPane      key.Binding
	Up            key.Binding
	Down          key.Binding
	Select        key.Binding
	Expand        key.Binding
	Collapse      key.Binding
	Reload        key.Binding

	NewWorkspace   key.Binding
	NewIntegration key.Binding
	Edit           key.Binding
	Delete         key.Binding
	Connect        key.Binding

	Sync     key.Binding
	MRFilter key.Binding

	LLMs      key.Binding
	NewLLM    key.Binding
	ChooseLLM key.Binding

	Run           key.Binding
	Rerun         key.Binding
	Cancel        key.Binding
	Publish       key.Binding
	Refresh       key.Binding
	History       key.Binding
	CommentFilter key.Binding
	ClearFilter   key.Binding
	CloseReview   key.Binding
	Output        key.Binding
	DismissToast  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Notifications: key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "notifications")),
		NextPane:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next pane")),
		PrevPane:      key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous pane")),
		Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Expand:        key.NewBinding(key.WithKeys("right", "l", "space"), key.WithHelp("→/l", "expand")),
		Collapse:      key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Reload:        key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload pane")),

		NewWorkspace:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "new workspace")),
		NewIntegration: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "new integration")),
		Edit:           key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:         key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Connect:        key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "connect repositories")),

		Sync:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync merge requests")),
		MRFilter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),

		LLMs:      key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "LLM integrations")),
		NewLLM:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new LLM integration")),
		ChooseLLM: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "choose LLM")),

		Run:           key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "run review")),
		Rerun:         key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rerun")),
		Cancel:        key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel run")),
		Publish:       key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "publish comments")),
		Refresh:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "refresh run")),
		History:       key.NewBinding(key.WithKeys("H"), key.WithHelp("H", "run history")),
		CommentFilter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter comments")),
		ClearFilter:   key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "clear filter")),
		CloseReview:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "close review")),
		Output:        key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "structured output")),
		DismissToast:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "dismiss notice")),
	}
}

func (k keyMap) helpSections() []components.HelpSection {
	return []components.HelpSection{
		{Title: "General", Bindings: []key.Binding{k.NextPane, k.PrevPane, k.Up, k.Down, k.Select, k.Reload, k.Notifications, k.Help, k.Quit}},
		{Title: helpTitle(paneTree), Bindings: []key.Binding{k.Expand, k.Collapse, k.NewWorkspace, k.NewIntegration, k.Edit, k.Delete, k.Connect}},
		{Title: helpTitle(paneMergeRequests), Bindings: []key.Binding{k.MRFilter, k.Sync}},
		{Title: helpTitle(paneLLMs), Bindings: []key.Binding{k.LLMs, k.NewLLM, k.ChooseLLM}},
		{Title: helpTitle(paneReview), Bindings: []key.Binding{k.Run, k.Rerun, k.Cancel, k.Publish, k.Refresh, k.History, k.CommentFilter, k.ClearFilter, k.Output, k.CloseReview}},
	}
}

// helpTitle names the help section of a pane.
func helpTitle(p pane) string {
	switch p {
	case paneTree:
		return "Workspaces"
	case paneMergeRequests:
		return "Merge requests"
	case paneLLMs:
		return "LLM"
	case paneReview:
		return "Review"
	}
	return "General"
}

func (m Model) newHelp() *components.HelpDialog {
	return components.NewHelpDialog("Keys", m.keys.helpSections(), helpTitle(m.focus), m.width)
}

// shortHelp is the status bar hint for a pane.
func (k keyMap) shortHelp(p pane) []key.Binding {
	switch p {
	case paneTree:
		return []key.Binding{k.Select, k.Expand, k.NewWorkspace, k.NewIntegration, k.Connect, k.Delete, k.Help}
	case paneMergeRequests:
		return []key.Binding{k.Select, k.MRFilter, k.Sync, k.ChooseLLM, k.Help}
	case paneReview:
		return []key.Binding{k.Run, k.Rerun, k.Cancel, k.Publish, k.CommentFilter, k.History, k.Help}
	case paneLLMs:
		return []key.Binding{k.NewLLM, k.Edit, k.Delete, k.Select, k.Help}
	}
	return nil
}
