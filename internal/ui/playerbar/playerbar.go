// Package playerbar renders the one-line now-playing bar.
package playerbar

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/vibeflow/internal/playback"
	"github.com/llehouerou/vibeflow/internal/ui/render"
)

// Height is the rendered height including the border.
const Height = 3

// minBar is the narrowest progress bar worth drawing.
const minBar = 5

// State holds everything needed to render the bar.
type State struct {
	Paused   bool
	Title    string
	Artist   string
	Liked    bool
	Position time.Duration
	Duration time.Duration
	Repeat   playback.RepeatMode
	Shuffle  bool
}

// NewState builds a State from a session snapshot. ok is false when nothing
// is loaded.
func NewState(s playback.Session) (State, bool) {
	if s.Current == nil || !s.State.IsActive() {
		return State{}, false
	}
	return State{
		Paused:   s.State == playback.StatePaused,
		Title:    s.Current.Title,
		Artist:   s.Current.Artist,
		Liked:    s.Current.IsFavorite,
		Position: s.Position,
		Duration: s.Duration,
		Repeat:   s.RepeatMode,
		Shuffle:  s.Shuffle,
	}, true
}

// Render draws the bar at the given total width:
//
//	♥ Title · Artist   ▶ ━━━━───────   1:23 / 3:58   repeat all  shuffle
func Render(s State, width int) string {
	inner := max(width-4, 0) // border and padding

	status := playSymbol
	if s.Paused {
		status = pauseSymbol
	}
	times := render.Duration(s.Position) + " / " + render.Duration(s.Duration)
	modes := modeLabel(s)

	// Fixed parts: status, times, modes and separators.
	const sep = "   "
	fixed := lipgloss.Width(status) + 1 + len(sep) + lipgloss.Width(times) + len(sep) + lipgloss.Width(modes)
	if s.Liked {
		fixed += lipgloss.Width(likedSymbol) + 1
	}

	title := s.Title
	if title == "" {
		title = "Unknown Title"
	}
	info := title
	if s.Artist != "" {
		info = title + " · " + s.Artist
	}

	// The bar keeps minBar cells when there is room; the song takes the rest.
	room := max(inner-fixed-len(sep), 0)
	infoWidth := min(lipgloss.Width(render.Clean(info)), max(room-minBar, room/2))
	barWidth := max(room-infoWidth, 0)

	var b strings.Builder
	if s.Liked {
		b.WriteString(likedStyle().Render(likedSymbol))
		b.WriteString(" ")
	}
	b.WriteString(styledInfo(title, s.Artist, infoWidth))
	b.WriteString(sep)
	b.WriteString(status)
	b.WriteString(" ")
	b.WriteString(progress(s.Position, s.Duration, barWidth))
	b.WriteString(sep)
	b.WriteString(metaStyle().Render(times))
	b.WriteString(sep)
	b.WriteString(modes)

	return barStyle().Width(max(width-2, 0)).Render(b.String())
}

// styledInfo renders "Title · Artist" within width, cutting the artist first.
func styledInfo(title, artist string, width int) string {
	title = render.Clean(title)
	artist = render.Clean(artist)
	tw := lipgloss.Width(title)
	if artist == "" || tw+3 >= width {
		return titleStyle().Render(render.Truncate(title, width))
	}
	return titleStyle().Render(title) +
		artistStyle().Render(" · "+render.Truncate(artist, width-tw-3))
}

// progress draws a bar of width cells filled to position/duration.
func progress(position, duration time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	var ratio float64
	if duration > 0 {
		ratio = float64(position) / float64(duration)
	}
	filled := min(max(int(float64(width)*ratio), 0), width)
	return filledStyle().Render(strings.Repeat("━", filled)) +
		emptyBarStyle().Render(strings.Repeat("─", width-filled))
}

// modeLabel shows repeat and shuffle, highlighting the active ones.
func modeLabel(s State) string {
	repeat := "repeat " + strings.ToLower(s.Repeat.String())
	if s.Repeat == playback.RepeatOff {
		repeat = metaStyle().Render(repeat)
	} else {
		repeat = activeStyle().Render(repeat)
	}
	shuffle := metaStyle().Render("shuffle")
	if s.Shuffle {
		shuffle = activeStyle().Render("shuffle")
	}
	return repeat + "  " + shuffle
}
