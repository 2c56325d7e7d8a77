package tui

import (
	"fmt"
	"strings"

	"charm.land/bubbles/v2/viewport"
	lipgloss "charm.land/lipgloss/v2"
	"github.com/rs/zerolog/log"

	"github.com/colonyops/sage/internal/core/notify"
	"github.com/colonyops/sage/internal/core/styles"
	"github.com/colonyops/sage/internal/tui/components"
	tuinotify "github.com/colonyops/sage/internal/tui/notify"
)

const (
	notifyModalWidthPct  = 65
	notifyModalMinWidth  = 60
	notifyModalMaxHeight = 30
	notifyModalMargin    = 4
	notifyModalChrome    = 6 // title + divider + help + spacing
)

// NotificationModal displays a scrollable history of notifications.
type NotificationModal struct {
	bus      *tuinotify.Bus
	viewport viewport.Model
}

// NewNotificationModal creates a modal showing the bus history.
func NewNotificationModal(bus *tuinotify.Bus, width, height int) *NotificationModal {
	modalWidth := calcNotificationModalWidth(width)
	modalHeight := min(height-notifyModalMargin, notifyModalMaxHeight)

	vp := viewport.New(
		viewport.WithWidth(modalWidth-4),
		viewport.WithHeight(max(modalHeight-notifyModalChrome, 1)),
	)

	m := &NotificationModal{bus: bus, viewport: vp}
	m.refreshContent()
	return m
}

func (m *NotificationModal) refreshContent() {
	history, err := m.bus.History()
	if err != nil {
		log.Error().Err(err).Msg("failed to load notification history")
		m.viewport.SetContent(styles.TextErrorStyle.Render(fmt.Sprintf("failed to load notifications: %v", err)))
		return
	}
	if len(history) == 0 {
		m.viewport.SetContent(styles.TextMutedStyle.Render("No notifications"))
		return
	}

	lines := make([]string, 0, len(history))
	for _, n := range history {
		lines = append(lines, formatNotification(n))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
}

func formatNotification(n notify.Notification) string {
	ts := styles.TextMutedStyle.Render(n.CreatedAt.Format("15:04:05"))

	var (
		icon     string
		msgStyle lipgloss.Style
	)
	switch n.Level {
	case notify.LevelError:
		icon, msgStyle = styles.IconNotifyError, styles.TextErrorStyle
	case notify.LevelWarning:
		icon, msgStyle = styles.IconNotifyWarning, styles.TextWarningStyle
	default:
		icon, msgStyle = styles.IconNotifyInfo, styles.TextPrimaryStyle
	}

	source := ""
	if n.Source != "" {
		source = styles.TextMutedStyle.Render("["+n.Source+"]") + " "
	}
	return fmt.Sprintf("%s %s %s%s", ts, icon, source, msgStyle.Render(n.Message))
}

func (m *NotificationModal) ScrollUp() { m.viewport.ScrollUp(1) }

func (m *NotificationModal) ScrollDown() { m.viewport.ScrollDown(1) }

// Clear deletes the persisted history and refreshes the view.
func (m *NotificationModal) Clear() error {
	if err := m.bus.Clear(); err != nil {
		return err
	}
	m.refreshContent()
	return nil
}

// Overlay renders the notification modal centered over the background.
func (m *NotificationModal) Overlay(background string, width, height int) string {
	modalWidth := calcNotificationModalWidth(width)

	scrollInfo := ""
	if m.viewport.TotalLineCount() > m.viewport.VisibleLineCount() {
		scrollInfo = styles.TextMutedStyle.Render(fmt.Sprintf(" (%.0f%%)", m.viewport.ScrollPercent()*100))
	}

	divider := styles.TextSurfaceStyle.Render(strings.Repeat("─", max(modalWidth-6, 1)))
	content := lipgloss.JoinVertical(
		lipgloss.Left,
		styles.ModalTitleStyle.Render("Notifications"+scrollInfo),
		divider,
		m.viewport.View(),
		styles.ModalHelpStyle.Render("[j/k] scroll  [D] clear all  [esc] close"),
	)

	modal := styles.ModalStyle.Width(modalWidth).Render(content)
	return components.Center(background, modal, width, height)
}

func calcNotificationModalWidth(termWidth int) int {
	available := max(termWidth-notifyModalMargin, 1)
	target := termWidth * notifyModalWidthPct / 100
	return min(max(target, notifyModalMinWidth), available)
}
