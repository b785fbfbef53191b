package playback

import (
	"time"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
)

// StateChange is emitted when the transport state changes.
type StateChange struct {
	Previous State
	Current  State
}

// SongChange is emitted when a different song becomes current, or when the
// current song is cleared. Restarting the same song does not emit it.
type SongChange struct {
	Previous *library.Song
	Current  *library.Song
}

// PositionChange is emitted on position ticks and seeks.
type PositionChange struct {
	Position time.Duration
	Duration time.Duration
}

// QueueChange is emitted when the queue contents change.
type QueueChange struct {
	Songs []library.Song
}

// ModeChange is emitted when repeat or shuffle mode changes.
type ModeChange struct {
	RepeatMode RepeatMode
	Shuffle    bool
}

// LibraryChange is emitted after the library cache was refreshed or mutated.
type LibraryChange struct {
	Songs []library.Song
}

// ErrorEvent is emitted when an operation fails.
type ErrorEvent struct {
	Op     errmsg.Op
	SongID string
	Err    error
}

// Message returns the user-facing description of the failure.
func (e ErrorEvent) Message() string {
	return errmsg.Format(e.Op, e.Err)
}
