package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

// seekStep is how far the arrow keys seek.
const seekStep = 5 * time.Second

// WatchEvents waits for the next controller event and converts it to a tea.Msg.
// Update re-arms it after every event.
func (m Model) WatchEvents() tea.Cmd {
	sub := m.sub
	if sub == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case e := <-sub.StateChanged:
			return StateChangedMsg(e)
		case e := <-sub.SongChanged:
			return SongChangedMsg(e)
		case e := <-sub.PositionChanged:
			return PositionChangedMsg(e)
		case e := <-sub.QueueChanged:
			return QueueChangedMsg(e)
		case e := <-sub.ModeChanged:
			return ModeChangedMsg(e)
		case e := <-sub.LibraryChanged:
			return LibraryChangedMsg(e)
		case e := <-sub.Error:
			return PlaybackErrorMsg(e)
		case <-sub.Done:
			return ControllerClosedMsg{}
		}
	}
}

// run wraps a blocking controller call in a command reporting its result.
func (m Model) run(op errmsg.Op, info string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return OpResultMsg{Op: op, Err: fn(ctx), Info: info}
	}
}

func (m Model) playCmd(song library.Song) tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpPlaybackStart, "", func(ctx context.Context) error {
		return ctrl.PlaySong(ctx, song)
	})
}

func (m Model) nextCmd() tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpPlaybackStart, "", ctrl.PlayNext)
}

func (m Model) previousCmd() tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpPlaybackStart, "", ctrl.PlayPrevious)
}

func (m Model) toggleCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.TogglePlay()
		return nil
	}
}

// seekCmd moves the position by delta from wherever playback is when it runs.
func (m Model) seekCmd(delta time.Duration) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.Seek(ctrl.Snapshot().Position + delta)
		return nil
	}
}

func (m Model) likeCmd(song library.Song) tea.Cmd {
	ctrl := m.ctrl
	ctx := m.ctx
	return func() tea.Msg {
		liked, err := ctrl.ToggleLike(ctx, song.ID)
		info := "Unliked " + song.Title
		if liked {
			info = "Liked " + song.Title
		}
		return OpResultMsg{Op: errmsg.OpFavoriteToggle, Err: err, Info: info}
	}
}

func (m Model) removeCmd(song library.Song) tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpLibraryDelete, "Removed "+song.Title, func(ctx context.Context) error {
		return ctrl.RemoveSong(ctx, song.ID)
	})
}

func (m Model) refreshCmd() tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpLibraryLoad, "", ctrl.RefreshLibrary)
}

func (m Model) enqueueCmd(song library.Song) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctrl.AddToQueue(song)
		return OpResultMsg{Info: "Queued " + song.Title}
	}
}

func (m Model) repeatCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		mode := ctrl.CycleRepeatMode()
		return OpResultMsg{Info: "Repeat " + mode.String()}
	}
}

func (m Model) shuffleCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		info := "Shuffle off"
		if ctrl.ToggleShuffle() {
			info = "Shuffle on"
		}
		return OpResultMsg{Info: info}
	}
}

// vibeCmd asks for songs matching what was just played, current song last.
func (m Model) vibeCmd() tea.Cmd {
	svc := m.suggester
	ctx := m.ctx
	session := m.ctrl.Snapshot()
	songs := m.ctrl.Library()
	return func() tea.Msg {
		history := session.History
		if session.Current != nil {
			history = append(history, *session.Current)
		}
		sug, err := svc.Suggest(ctx, history, songs)
		if err != nil {
			return VibeResultMsg{Err: err}
		}
		return VibeResultMsg{Suggestion: sug, Songs: suggest.Resolve(sug.SongIDs, songs)}
	}
}

func (m Model) mixCmd(songs []library.Song) tea.Cmd {
	ctrl := m.ctrl
	return m.run(errmsg.OpPlaybackStart, "", func(ctx context.Context) error {
		return ctrl.PlayMix(ctx, songs)
	})
}
