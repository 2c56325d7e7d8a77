package styles

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/sage/internal/core/review"
)

func resetTheme(t *testing.T) {
	t.Cleanup(func() {
		p, _ := GetPalette(DefaultTheme)
		SetTheme(p)
	})
}

func TestThemeNames_Sorted(t *testing.T) {
	names := ThemeNames()
	require.NotEmpty(t, names)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, DefaultTheme)
}

func TestGetPalette_Unknown(t *testing.T) {
	_, ok := GetPalette("no-such-theme")
	assert.False(t, ok)
}

func TestGetPalette_DerivesReviewColors(t *testing.T) {
	for _, name := range ThemeNames() {
		t.Run(name, func(t *testing.T) {
			p, ok := GetPalette(name)
			require.True(t, ok)
			for _, c := range []any{p.Queued, p.Active, p.Info, p.Posted} {
				require.NotNil(t, c)
			}

			bg, _ := colorful.MakeColor(p.Background)
			active, _ := colorful.MakeColor(p.Active)
			queued, _ := colorful.MakeColor(p.Queued)
			assert.Greater(t, active.DistanceLab(bg), 0.2, "running status readable on background")
			assert.NotEqual(t, active.Hex(), queued.Hex(), "queued and running differ")
		})
	}
}

func TestSetTheme_RebuildsColors(t *testing.T) {
	resetTheme(t)

	p, ok := GetPalette("gruvbox")
	require.True(t, ok)

	SetTheme(p)
	assert.Equal(t, p.Primary, ColorPrimary)
	assert.Equal(t, p, CurrentPalette)
	assert.Equal(t, p.Active, StatusRunningStyle.GetForeground())
	assert.Equal(t, p.Info, SeverityInfoStyle.GetForeground())
}

func TestRunStatus_Labels(t *testing.T) {
	for _, s := range []review.Status{review.StatusQueued, review.StatusRunning, review.StatusSucceeded, review.StatusFailed, review.StatusCanceled} {
		assert.Contains(t, RunStatus(s), string(s))
	}
	assert.Contains(t, RunStatus("paused"), "? paused")
	assert.Contains(t, Severity(review.SeverityWarning), "warn")
}

func TestGlamourStyle_UsesPalette(t *testing.T) {
	cfg := GlamourStyle()
	require.NotNil(t, cfg.Document.Color)
	assert.Equal(t, "#c0caf5", *cfg.Document.Color)

	info, _ := colorful.MakeColor(CurrentPalette.Info)
	require.NotNil(t, cfg.Code.Color)
	assert.Equal(t, info.Hex(), *cfg.Code.Color)
}
