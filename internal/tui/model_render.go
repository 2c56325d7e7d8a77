package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/tui/components"
)

const (
	leftPaneWidthPct = 28
	midPaneWidthPct  = 30
	llmPaneHeight    = 8
	paneChrome       = 4 // border + padding
)

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w == 0 {
		w = 120
	}
	if h == 0 {
		h = 36
	}
	return w, h
}

func (m Model) columnWidths() (left, mid, right int) {
	w, _ := m.size()
	left = w * leftPaneWidthPct / 100
	mid = w * midPaneWidthPct / 100
	right = w - left - mid
	return left, mid, right
}

func (m Model) reviewWidth() int {
	_, _, right := m.columnWidths()
	return right - paneChrome
}

// View renders the console.
func (m Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	w, h := m.size()

	main := m.renderMain()

	var content string
	switch {
	case m.form != nil:
		content = components.Center(main, m.renderForm(), w, h)
	case m.confirm != nil:
		content = m.confirm.modal.Overlay(main, w, h)
	case m.notifications != nil:
		content = m.notifications.Overlay(main, w, h)
	case m.help != nil:
		content = m.help.Overlay(main, w, h)
	default:
		content = main
	}
	content = overlayToasts(content, m.toasts.Toasts(), w, h)

	v := tea.NewView(content)
	v.AltScreen = true
	return v
}

func (m Model) renderForm() string {
	f := m.form
	if f.dialog == nil {
		body := m.spinner.View() + " loading repositories…\n\n" + styles.TextMutedStyle.Render("esc cancel")
		return styles.FormModalStyle.Render(body)
	}
	parts := []string{styles.ModalTitleStyle.Render(f.dialog.Title), "", f.dialog.View()}
	if f.pending {
		parts = append(parts, "", m.spinner.View()+" saving…")
	}
	return styles.FormModalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) renderMain() string {
	w, h := m.size()
	left, mid, right := m.columnWidths()
	bodyH := h - 2 // header + status bar

	treeH := bodyH - llmPaneHeight
	tree := m.renderPane(paneTree, left, treeH, renderTree(m.s, m.treeCursor, m.focus == paneTree, left-paneChrome))
	llms := m.renderPane(paneLLMs, left, llmPaneHeight, renderLLMs(m.s, m.llmCursor, m.focus == paneLLMs, left-paneChrome))
	leftCol := lipgloss.JoinVertical(lipgloss.Left, tree, llms)

	mrs := m.renderPane(paneMergeRequests, mid, bodyH, renderMergeRequests(m.s, m.mrCursor, m.focus == paneMergeRequests, mid-paneChrome))
	rev := m.renderPane(paneReview, right, bodyH, renderReview(m, right-paneChrome))

	body := lipgloss.JoinHorizontal(lipgloss.Top, leftCol, mrs, rev)
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(w), body, m.renderStatusBar(w))
}

func (m Model) renderPane(p pane, width, height int, body string) string {
	style := styles.PaneStyle
	if m.focus == p {
		style = styles.PaneFocusedStyle
	}
	innerH := max(height-2, 1)
	content := styles.PaneTitleStyle.Render(p.String()) + "\n" + body
	lines := strings.Split(content, "\n")
	if len(lines) > innerH {
		lines = lines[:innerH]
	}
	return style.
		Width(width).
		Height(height).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderHeader(width int) string {
	title := styles.TextPrimaryBoldStyle.Render("sage")
	var parts []string
	if ws, ok := m.s.ActiveWorkspace(); ok {
		parts = append(parts, ws.Name)
	}
	if repo, ok := m.s.Selection().Repository(); ok {
		parts = append(parts, repo.FullPath)
	}
	path := styles.TextMutedStyle.Render(strings.Join(parts, " / "))

	right := ""
	if m.user != "" {
		right = m.user
	}
	if m.baseURL != "" {
		right += " @ " + m.baseURL
	}
	right = styles.TextMutedStyle.Render(right)

	gap := max(width-lipgloss.Width(title)-lipgloss.Width(path)-lipgloss.Width(right)-3, 1)
	return title + " " + path + strings.Repeat(" ", gap) + right
}

func (m Model) renderStatusBar(width int) string {
	bindings := m.keys.shortHelp(m.focus)
	hints := make([]string, 0, len(bindings)+1)
	for _, b := range bindings {
		hints = append(hints, formatHint(b))
	}
	if n := len(m.toasts.Toasts()); n > 0 {
		hints = append(hints, fmt.Sprintf("esc dismiss (%d)", n))
	}
	return styles.StatusBarStyle.Render(truncate(strings.Join(hints, "  "), width-2))
}

func formatHint(b key.Binding) string {
	h := b.Help()
	return styles.TextPrimaryStyle.Render(h.Key) + " " + h.Desc
}
