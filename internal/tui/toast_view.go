package tui

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	lipgloss "charm.land/lipgloss/v2"

	"github.com/colonyops/sage/internal/core/notify"
	"github.com/colonyops/sage/internal/core/styles"
)

type toastTickMsg time.Time

func scheduleToastTick() tea.Cmd {
	return tea.Tick(toastTickInterval, func(t time.Time) tea.Msg {
		return toastTickMsg(t)
	})
}

// renderToasts stacks the toasts oldest first.
func renderToasts(toasts []toast) string {
	if len(toasts) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(toasts))
	for _, t := range toasts {
		rendered = append(rendered, renderToast(t.notification))
	}
	return strings.Join(rendered, "\n")
}

func renderToast(n notify.Notification) string {
	var (
		icon  string
		style lipgloss.Style
	)
	switch n.Level {
	case notify.LevelError:
		icon, style = styles.IconNotifyError, styles.ToastErrorStyle
	case notify.LevelWarning:
		icon, style = styles.IconNotifyWarning, styles.ToastWarningStyle
	default:
		icon, style = styles.IconNotifyInfo, styles.ToastInfoStyle
	}

	content := icon + " " + n.Message
	if n.Source != "" {
		content = icon + " " + styles.TextMutedStyle.Render(n.Source+":") + " " + n.Message
	}
	return style.Width(toastWidth).Render(content)
}

// overlayToasts composites the toast stack in the lower-right corner.
func overlayToasts(background string, toasts []toast, width, height int) string {
	content := renderToasts(toasts)
	if content == "" {
		return background
	}

	bgLayer := lipgloss.NewLayer(background)
	toastLayer := lipgloss.NewLayer(content)

	x := max(width-lipgloss.Width(content)-1, 0)
	y := max(height-lipgloss.Height(content)-1, 0)
	toastLayer.X(x).Y(y).Z(2)

	return lipgloss.NewCompositor(bgLayer, toastLayer).Render()
}
