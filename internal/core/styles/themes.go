package styles

import (
	"image/color"
	"slices"

	lipgloss "charm.land/lipgloss/v2"
	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette is the set of semantic colors a theme provides. The review colors
// (Queued, Active, Info, Posted) are derived from the base colors so every
// theme renders run status and comment severity consistently.
type Palette struct {
	Primary    color.Color
	Secondary  color.Color
	Foreground color.Color
	Muted      color.Color
	Background color.Color
	Surface    color.Color
	Success    color.Color
	Warning    color.Color
	Error      color.Color

	// Queued colors runs waiting for a worker.
	Queued color.Color
	// Active colors running runs and the poll spinner.
	Active color.Color
	// Info colors informational review comments.
	Info color.Color
	// Posted marks comments already published to the Git host.
	Posted color.Color
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// base holds the hex colors a theme is defined by, in Palette order.
type base struct {
	primary, secondary, fg, muted, bg, surface, ok, warn, bad string
}

var bases = map[string]base{
	"tokyo-night": {"#7aa2f7", "#7dcfff", "#c0caf5", "#565f89", "#1a1b26", "#3b4261", "#9ece6a", "#e0af68", "#f7768e"},
	"gruvbox":     {"#83a598", "#8ec07c", "#ebdbb2", "#665c54", "#282828", "#3c3836", "#b8bb26", "#fabd2f", "#fb4934"},
	"catppuccin":  {"#89b4fa", "#94e2d5", "#cdd6f4", "#6c7086", "#1e1e2e", "#313244", "#a6e3a1", "#f9e2af", "#f38ba8"},
	"nord":        {"#88c0d0", "#81a1c1", "#eceff4", "#4c566a", "#2e3440", "#3b4252", "#a3be8c", "#ebcb8b", "#bf616a"},
	"solarized":   {"#268bd2", "#2aa198", "#93a1a1", "#586e75", "#002b36", "#073642", "#859900", "#b58900", "#dc322f"},
}

// palette expands a base into a full Palette. Derived colors are blended in
// Lab space so they stay readable on the theme background.
func (b base) palette() Palette {
	hex := func(s string) colorful.Color {
		c, err := colorful.Hex(s)
		if err != nil {
			return colorful.Color{}
		}
		return c
	}
	primary, secondary, fg, muted := hex(b.primary), hex(b.secondary), hex(b.fg), hex(b.muted)
	ok := hex(b.ok)

	return Palette{
		Primary:    lipgloss.Color(b.primary),
		Secondary:  lipgloss.Color(b.secondary),
		Foreground: lipgloss.Color(b.fg),
		Muted:      lipgloss.Color(b.muted),
		Background: lipgloss.Color(b.bg),
		Surface:    lipgloss.Color(b.surface),
		Success:    lipgloss.Color(b.ok),
		Warning:    lipgloss.Color(b.warn),
		Error:      lipgloss.Color(b.bad),

		Queued: lipgloss.Color(muted.BlendLab(fg, 0.35).Clamped().Hex()),
		Active: lipgloss.Color(primary.BlendLab(secondary, 0.5).Clamped().Hex()),
		Info:   lipgloss.Color(secondary.BlendLab(fg, 0.25).Clamped().Hex()),
		Posted: lipgloss.Color(ok.BlendLab(muted, 0.3).Clamped().Hex()),
	}
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(bases))
	for name := range bases {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	b, ok := bases[name]
	if !ok {
		return Palette{}, false
	}
	return b.palette(), true
}

func hexOf(c color.Color) *string {
	if c == nil {
		return nil
	}
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return nil
	}
	h := cc.Hex()
	return &h
}

// GlamourStyle returns the markdown style used for review summaries. Headings
// follow the theme; inline code uses the comment info color so file and
// symbol names stand out the same way they do in the comment list.
func GlamourStyle() glamouransi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig
	p := CurrentPalette

	fg, primary, muted := hexOf(p.Foreground), hexOf(p.Primary), hexOf(p.Muted)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg
	cfg.Table.Color = fg

	cfg.Heading.Color = primary
	for _, h := range []*glamouransi.StyleBlock{&cfg.H2, &cfg.H3, &cfg.H4, &cfg.H5, &cfg.H6} {
		h.Color = primary
	}
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = hexOf(p.Surface)

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted
	cfg.CodeBlock.Color = muted

	cfg.Code.Color = hexOf(p.Info)
	cfg.Link.Color = hexOf(p.Secondary)
	cfg.LinkText.Color = hexOf(p.Secondary)
	cfg.Strong.Color = hexOf(p.Warning)

	return cfg
}
