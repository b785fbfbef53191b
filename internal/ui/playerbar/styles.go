package playerbar

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/vibeflow/internal/ui/styles"
)

const (
	playSymbol  = "▶"
	pauseSymbol = "⏸"
	likedSymbol = "♥"
)

func barStyle() lipgloss.Style {
	return styles.Panel(false).Padding(0, 1)
}

func titleStyle() lipgloss.Style    { return styles.T().S().Title }
func artistStyle() lipgloss.Style   { return styles.T().S().Muted }
func metaStyle() lipgloss.Style     { return styles.T().S().Subtle }
func likedStyle() lipgloss.Style    { return styles.T().S().Liked }
func activeStyle() lipgloss.Style   { return styles.T().S().Playing }
func filledStyle() lipgloss.Style   { return lipgloss.NewStyle().Foreground(styles.T().Accent) }
func emptyBarStyle() lipgloss.Style { return styles.T().S().Subtle }
