package app

import (
	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/playback"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

// Playback events, forwarded from the controller subscription.
type (
	StateChangedMsg    playback.StateChange
	SongChangedMsg     playback.SongChange
	PositionChangedMsg playback.PositionChange
	QueueChangedMsg    playback.QueueChange
	ModeChangedMsg     playback.ModeChange
	LibraryChangedMsg  playback.LibraryChange
	PlaybackErrorMsg   playback.ErrorEvent
)

// ControllerClosedMsg is sent once the controller shut down.
type ControllerClosedMsg struct{}

// OpResultMsg reports the outcome of a controller call run in a command.
// Info, when set, is shown on success.
type OpResultMsg struct {
	Op   errmsg.Op
	Err  error
	Info string
}

// VibeResultMsg carries a suggestion and the library songs it resolved to.
type VibeResultMsg struct {
	Suggestion suggest.Suggestion
	Songs      []library.Song
	Err        error
}
