// Package components provides reusable TUI components.
package components

import (
	"strings"

	"charm.land/bubbles/v2/key"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

// twoColumnWidth is the terminal width from which sections are laid out side
// by side.
const twoColumnWidth = 100

// HelpSection groups the key bindings of one console area.
type HelpSection struct {
	Title    string
	Bindings []key.Binding
}

// HelpDialog lists the console key bindings. The section of the focused
// pane is shown first and highlighted.
type HelpDialog struct {
	title    string
	sections []HelpSection
	active   string
	width    int
}

// NewHelpDialog orders sections so the one titled active comes first.
func NewHelpDialog(title string, sections []HelpSection, active string, width int) *HelpDialog {
	ordered := make([]HelpSection, 0, len(sections))
	for _, s := range sections {
		if s.Title == active {
			ordered = append([]HelpSection{s}, ordered...)
			continue
		}
		ordered = append(ordered, s)
	}
	return &HelpDialog{title: title, sections: ordered, active: active, width: width}
}

// Sections returns the sections in display order.
func (h *HelpDialog) Sections() []HelpSection { return h.sections }

// View renders the dialog.
func (h *HelpDialog) View() string {
	blocks := make([]string, 0, len(h.sections))
	for _, s := range h.sections {
		if b := h.renderSection(s); b != "" {
			blocks = append(blocks, b)
		}
	}

	var body string
	if h.width >= twoColumnWidth && len(blocks) > 1 {
		half := (len(blocks) + 1) / 2
		left := strings.Join(blocks[:half], "\n\n")
		right := strings.Join(blocks[half:], "\n\n")
		body = lipgloss.JoinHorizontal(lipgloss.Top, left, "    ", right)
	} else {
		body = strings.Join(blocks, "\n\n")
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TextForegroundBoldStyle.Render(h.title),
		"",
		body,
		styles.HelpDialogHelpStyle.Render("esc/? close"),
	)
	return styles.HelpDialogModalStyle.Render(content)
}

// renderSection aligns keys to the widest key of the section. Disabled
// bindings are skipped; an empty section renders nothing.
func (h *HelpDialog) renderSection(s HelpSection) string {
	keyWidth := 0
	for _, b := range s.Bindings {
		if b.Enabled() {
			keyWidth = max(keyWidth, lipgloss.Width(b.Help().Key))
		}
	}
	if keyWidth == 0 {
		return ""
	}

	title := styles.HelpDialogSectionStyle.Render(s.Title)
	if s.Title == h.active {
		title += styles.TextMutedStyle.Render(" (this pane)")
	}
	lines := []string{title}
	for _, b := range s.Bindings {
		if !b.Enabled() {
			continue
		}
		help := b.Help()
		pad := strings.Repeat(" ", keyWidth-lipgloss.Width(help.Key)+2)
		lines = append(lines, styles.TextPrimaryBoldStyle.Render(help.Key)+pad+styles.TextForegroundStyle.Render(help.Desc))
	}
	return strings.Join(lines, "\n")
}

// Overlay renders the dialog centered over background.
func (h *HelpDialog) Overlay(background string, width, height int) string {
	return Center(background, h.View(), width, height)
}
