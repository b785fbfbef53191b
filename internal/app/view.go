package app

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/ui/playerbar"
	"github.com/llehouerou/vibeflow/internal/ui/render"
	"github.com/llehouerou/vibeflow/internal/ui/styles"
)

// Fixed rows around the library list: header, list border, up-next line,
// player bar and status line.
const chromeHeight = 1 + 2 + 1 + playerbar.Height + 1

const (
	durationCol = 8
	addedCol    = 16
)

// listRows is how many library songs fit on screen.
func (m Model) listRows() int {
	return max(m.Height-chromeHeight, 0)
}

// View implements tea.Model.
func (m Model) View() string {
	if m.Width == 0 || m.Height == 0 {
		return ""
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderLibrary(),
		m.renderUpNext(),
		m.renderPlayer(),
		m.renderStatus(),
	)
}

func (m Model) renderHeader() string {
	s := styles.T().S()
	left := s.Playing.Render("vibeflow")
	if m.Vibe != nil {
		left += "  " + styles.Gradient(render.Clean(m.Vibe.Mood), styles.T().Accent, styles.T().AccentAlt)
		room := m.Width - lipgloss.Width(left) - 2
		if m.Vibe.Reasoning != "" && room > 10 {
			left += "  " + s.Muted.Render(render.Truncate(m.Vibe.Reasoning, room))
		}
	}
	count := s.Subtle.Render(humanize.Comma(int64(len(m.Library))) + " songs")
	return render.Row(left, count, m.Width)
}

func (m Model) renderLibrary() string {
	inner := max(m.Width-2, 0)
	rows := m.listRows()

	lines := make([]string, 0, rows)
	if len(m.Library) == 0 {
		lines = append(lines, styles.T().S().Muted.Render(render.Fit("No songs yet. Add some with `vibeflow import`.", inner)))
	}
	end := min(m.Offset+rows, len(m.Library))
	for i := m.Offset; i < end; i++ {
		lines = append(lines, m.renderSong(m.Library[i], i == m.Cursor, inner))
	}
	for len(lines) < rows {
		lines = append(lines, strings.Repeat(" ", inner))
	}
	return styles.Panel(true).Render(strings.Join(lines, "\n"))
}

// renderSong draws one list row:
//
//	▶ ♥ Title · Artist                3:58   added 2 days ago
func (m Model) renderSong(song library.Song, selected bool, width int) string {
	s := styles.T().S()

	marker := "  "
	playing := m.Session.Current != nil && m.Session.Current.ID == song.ID
	if playing {
		marker = "▶ "
	}
	liked := "  "
	if song.IsFavorite {
		liked = s.Liked.Render("♥") + " "
	}

	added := ""
	if !song.AddedAt.IsZero() {
		added = "added " + humanize.Time(song.AddedAt)
	}
	meta := render.Fit(render.Duration(song.Duration), durationCol) + render.Fit(added, addedCol)

	infoWidth := max(width-4-lipgloss.Width(meta), 0)
	info := render.Fit(song.DisplayName(), infoWidth)

	style := s.Base
	switch {
	case selected:
		style = s.Cursor
	case playing:
		style = s.Playing
	}
	return style.Render(marker) + liked + style.Render(info) + s.Subtle.Render(meta)
}

func (m Model) renderUpNext() string {
	s := styles.T().S()
	queue := m.Session.Queue
	if len(queue) == 0 {
		return s.Subtle.Render(render.Fit("Up next: library order", m.Width))
	}
	line := "Up next: " + queue[0].DisplayName()
	if len(queue) > 1 {
		line += " (+" + humanize.Comma(int64(len(queue)-1)) + " more)"
	}
	return s.Muted.Render(render.Fit(line, m.Width))
}

func (m Model) renderPlayer() string {
	if st, ok := playerbar.NewState(m.Session); ok {
		return playerbar.Render(st, m.Width)
	}
	return styles.Panel(false).
		Padding(0, 1).
		Width(max(m.Width-2, 0)).
		Render(styles.T().S().Subtle.Render("Nothing playing"))
}

func (m Model) renderStatus() string {
	s := styles.T().S()
	switch {
	case m.Busy != "":
		return s.Muted.Render(render.Fit(m.Busy, m.Width))
	case m.Status != "" && m.IsError:
		return s.Error.Render(render.Fit(m.Status, m.Width))
	case m.Status != "":
		return s.Base.Render(render.Fit(m.Status, m.Width))
	}

	var parts []string
	for _, h := range m.keys.Help() {
		parts = append(parts, h[0]+" "+h[1])
	}
	return s.Subtle.Render(render.Fit(strings.Join(parts, " · "), m.Width))
}
