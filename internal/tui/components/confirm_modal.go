package components

import (
	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/styles"
)

// ConfirmModal is a yes/no confirmation dialog for destructive actions.
type ConfirmModal struct {
	title     string
	message   string
	yes       bool
	confirmed bool
	cancelled bool
}

// NewConfirmModal creates a confirmation modal. The cancel button starts
// selected so a stray enter does not delete anything.
func NewConfirmModal(title, message string) ConfirmModal {
	return ConfirmModal{title: title, message: message}
}

// Update handles input for the confirmation modal.
func (m ConfirmModal) Update(msg tea.Msg) (ConfirmModal, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "y", "Y":
		m.confirmed = true
	case "n", "N", "esc", "q":
		m.cancelled = true
	case "left", "right", "tab", "h", "l":
		m.yes = !m.yes
	case "enter":
		if m.yes {
			m.confirmed = true
		} else {
			m.cancelled = true
		}
	}
	return m, nil
}

// View renders the confirmation modal.
func (m ConfirmModal) View() string {
	yes, no := styles.ModalButtonStyle.Render("Delete"), styles.ModalButtonSelectedStyle.Render("Cancel")
	if m.yes {
		yes, no = styles.ModalButtonSelectedStyle.Render("Delete"), styles.ModalButtonStyle.Render("Cancel")
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Center, yes, "  ", no)

	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.ModalTitleStyle.Render(m.title),
		"",
		styles.ConfirmMessageStyle.Render(m.message),
		buttons,
		styles.ModalHelpStyle.Render("y confirm • n/esc cancel • ←/→ switch"),
	)
	return styles.ModalStyle.Render(content)
}

// Overlay renders the modal centered over background.
func (m ConfirmModal) Overlay(background string, width, height int) string {
	return Center(background, m.View(), width, height)
}

// Confirmed returns true if user confirmed.
func (m ConfirmModal) Confirmed() bool {
	return m.confirmed
}

// Cancelled returns true if user cancelled.
func (m ConfirmModal) Cancelled() bool {
	return m.cancelled
}

// Center composites fg over bg in the middle of a width x height screen.
func Center(bg, fg string, width, height int) string {
	bgLayer := lipgloss.NewLayer(bg)
	fgLayer := lipgloss.NewLayer(fg)

	x := max((width-lipgloss.Width(fg))/2, 0)
	y := max((height-lipgloss.Height(fg))/2, 0)
	fgLayer.X(x).Y(y).Z(1)

	return lipgloss.NewCompositor(bgLayer, fgLayer).Render()
}
