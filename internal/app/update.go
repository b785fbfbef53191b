package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/keymap"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.scrollToCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateChangedMsg, SongChangedMsg, PositionChangedMsg, QueueChangedMsg, ModeChangedMsg:
		m.Session = m.ctrl.Snapshot()
		return m, m.WatchEvents()

	case LibraryChangedMsg:
		m.Library = msg.Songs
		m.Session = m.ctrl.Snapshot()
		m.Cursor = min(m.Cursor, max(len(m.Library)-1, 0))
		m.scrollToCursor()
		return m, m.WatchEvents()

	case PlaybackErrorMsg:
		m.setError(msg.Op, msg.Err)
		return m, m.WatchEvents()

	case ControllerClosedMsg:
		m.sub = nil
		return m, tea.Quit

	case OpResultMsg:
		if msg.Err != nil {
			m.setError(msg.Op, msg.Err)
		} else if msg.Info != "" {
			m.setInfo(msg.Info)
		}
		return m, nil

	case VibeResultMsg:
		return m.handleVibe(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	action := m.keys.Resolve(msg)
	if action == "" {
		return m, nil
	}

	selected, hasSelected := m.Selected()
	current := m.Session.Current

	switch action {
	case keymap.ActionQuit:
		return m, tea.Quit

	case keymap.ActionPlayPause:
		if current == nil {
			if !hasSelected {
				return m, nil
			}
			return m, m.playCmd(selected)
		}
		return m, m.toggleCmd()

	case keymap.ActionNext:
		return m, m.nextCmd()
	case keymap.ActionPrevious:
		return m, m.previousCmd()
	case keymap.ActionSeekForward:
		if current == nil {
			return m, nil
		}
		return m, m.seekCmd(seekStep)
	case keymap.ActionSeekBack:
		if current == nil {
			return m, nil
		}
		return m, m.seekCmd(-seekStep)

	case keymap.ActionLike:
		if current == nil {
			return m, nil
		}
		return m, m.likeCmd(*current)
	case keymap.ActionRemove:
		if current == nil {
			return m, nil
		}
		return m, m.removeCmd(*current)

	case keymap.ActionCycleRepeat:
		return m, m.repeatCmd()
	case keymap.ActionToggleShuffle:
		return m, m.shuffleCmd()

	case keymap.ActionVibeMix:
		if m.Busy != "" || len(m.Library) == 0 {
			return m, nil
		}
		m.Busy = "Reading the vibe…"
		return m, m.vibeCmd()

	case keymap.ActionPlay:
		if !hasSelected {
			return m, nil
		}
		return m, m.playCmd(selected)
	case keymap.ActionEnqueue:
		if !hasSelected {
			return m, nil
		}
		return m, m.enqueueCmd(selected)

	case keymap.ActionMoveDown:
		m.moveCursor(1)
	case keymap.ActionMoveUp:
		m.moveCursor(-1)
	case keymap.ActionRefresh:
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m Model) handleVibe(msg VibeResultMsg) (tea.Model, tea.Cmd) {
	m.Busy = ""
	if msg.Err != nil {
		m.setError(errmsg.OpVibe, msg.Err)
		return m, nil
	}
	m.Vibe = &msg.Suggestion
	if len(msg.Songs) == 0 {
		m.setInfo("No songs match this vibe")
		return m, nil
	}
	m.setInfo("Mix: " + msg.Suggestion.Mood)
	return m, m.mixCmd(msg.Songs)
}

func (m *Model) setError(op errmsg.Op, err error) {
	m.Status = errmsg.Format(op, err)
	m.IsError = true
	if m.logger != nil {
		m.logger.Warn("operation failed", "op", string(op), "err", err)
	}
}

func (m *Model) setInfo(s string) {
	m.Status = s
	m.IsError = false
}

func (m *Model) moveCursor(delta int) {
	if len(m.Library) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Library)-1)
	m.scrollToCursor()
}

// scrollToCursor keeps the cursor inside the visible list rows.
func (m *Model) scrollToCursor() {
	rows := m.listRows()
	if rows <= 0 {
		m.Offset = 0
		return
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+rows {
		m.Offset = m.Cursor - rows + 1
	}
	m.Offset = max(min(m.Offset, len(m.Library)-rows), 0)
}
