// Package tuitest builds Bubble Tea input messages and normalizes rendered
// views so tests can assert on plain text.
package tuitest

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

// StripANSI drops escape sequences, trailing spaces on each line and
// trailing blank lines, leaving only what a user would read.
func StripANSI(s string) string {
	lines := strings.Split(ansi.Strip(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func press(k tea.Key) tea.Msg { return tea.KeyPressMsg(k) }

// KeyPress is a bare key press of r, as sent for bindings like "j" or "?".
func KeyPress(r rune) tea.Msg { return press(tea.Key{Code: r}) }

// Type returns one key press per rune of s, carrying the text the way a
// terminal reports typed characters.
func Type(s string) []tea.Msg {
	msgs := make([]tea.Msg, 0, len(s))
	for _, r := range s {
		msgs = append(msgs, press(tea.Key{Code: r, Text: string(r)}))
	}
	return msgs
}

// Ctrl is ctrl+r.
func Ctrl(r rune) tea.Msg { return press(tea.Key{Code: r, Mod: tea.ModCtrl}) }

func KeyEsc() tea.Msg   { return press(tea.Key{Code: tea.KeyEscape}) }
func KeyEnter() tea.Msg { return press(tea.Key{Code: tea.KeyEnter}) }
func KeyDown() tea.Msg  { return press(tea.Key{Code: tea.KeyDown}) }

// WindowSize is the message sent when the terminal is resized to w×h.
func WindowSize(w, h int) tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: w, Height: h}
}
