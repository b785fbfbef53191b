// Package styles holds the mini-player palette and shared lipgloss styles.
package styles

import "github.com/charmbracelet/lipgloss"

// Theme is the color palette plus styles built from it.
type Theme struct {
	Accent    lipgloss.Color // current song, focus
	AccentAlt lipgloss.Color // gradient end, liked marker

	Fg       lipgloss.Color
	FgMuted  lipgloss.Color
	FgSubtle lipgloss.Color

	BgCursor lipgloss.Color

	Border      lipgloss.Color
	BorderFocus lipgloss.Color

	Error lipgloss.Color

	styles *Styles
}

// Styles are the prebuilt styles of a Theme.
type Styles struct {
	Base    lipgloss.Style
	Muted   lipgloss.Style
	Subtle  lipgloss.Style
	Title   lipgloss.Style
	Playing lipgloss.Style
	Liked   lipgloss.Style
	Cursor  lipgloss.Style
	Error   lipgloss.Style
}

var defaultTheme = Theme{
	Accent:    lipgloss.Color("#a78bfa"),
	AccentAlt: lipgloss.Color("#f472b6"),

	Fg:       lipgloss.Color("#c0c0c0"),
	FgMuted:  lipgloss.Color("#808080"),
	FgSubtle: lipgloss.Color("#585858"),

	BgCursor: lipgloss.Color("#303030"),

	Border:      lipgloss.Color("#585858"),
	BorderFocus: lipgloss.Color("#a78bfa"),

	Error: lipgloss.Color("#ff5555"),
}

// T returns the default theme.
func T() *Theme {
	return &defaultTheme
}

// S returns the theme's styles, building them on first use.
func (t *Theme) S() *Styles {
	if t.styles == nil {
		base := lipgloss.NewStyle().Foreground(t.Fg)
		t.styles = &Styles{
			Base:    base,
			Muted:   lipgloss.NewStyle().Foreground(t.FgMuted),
			Subtle:  lipgloss.NewStyle().Foreground(t.FgSubtle),
			Title:   base.Bold(true),
			Playing: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
			Liked:   lipgloss.NewStyle().Foreground(t.AccentAlt),
			Cursor:  lipgloss.NewStyle().Background(t.BgCursor).Foreground(t.Fg),
			Error:   lipgloss.NewStyle().Foreground(t.Error),
		}
	}
	return t.styles
}
