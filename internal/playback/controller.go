// Package playback is the listening-session controller: it decides what plays
// next, keeps the up-next queue and the back-stack of played songs, and is
// the only component that drives the audio engine.
package playback

import (
	"context"
	"time"

	"github.com/llehouerou/vibeflow/internal/library"
)

// Controller defines the playback session contract.
type Controller interface {
	// Transport
	PlaySong(ctx context.Context, song library.Song) error
	TogglePlay()
	PlayNext(ctx context.Context) error
	PlayPrevious(ctx context.Context) error
	Seek(position time.Duration)

	// Queue
	AddToQueue(songs ...library.Song)
	SetQueue(songs ...library.Song)
	// PlayMix plays the first song and queues the rest.
	PlayMix(ctx context.Context, songs []library.Song) error

	// Library mutations (remote first, then local)
	ToggleLike(ctx context.Context, id string) (bool, error)
	RemoveSong(ctx context.Context, id string) error
	RefreshLibrary(ctx context.Context) error
	Library() []library.Song

	// Modes
	SetRepeatMode(mode RepeatMode)
	CycleRepeatMode() RepeatMode
	SetShuffle(enabled bool)
	ToggleShuffle() bool

	// Queries
	Snapshot() Session

	// Event subscription
	Subscribe() *Subscription

	// Run drives auto-advance and position updates until ctx ends or Close is
	// called. It returns nil after Close.
	Run(ctx context.Context) error
	Close() error
}

// Library is the synchronized song library the controller reads and mutates.
type Library interface {
	ToggleFavorite(ctx context.Context, id string) (bool, error)
	Remove(ctx context.Context, id string) error
	Refresh(ctx context.Context) error
	Library() []library.Song
}

// Session is a copy of the controller state, for rendering.
type Session struct {
	Current    *library.Song
	Queue      []library.Song
	History    []library.Song
	State      State
	Position   time.Duration
	Duration   time.Duration
	RepeatMode RepeatMode
	Shuffle    bool
}

// IsPlaying reports whether audio is audible.
func (s Session) IsPlaying() bool {
	return s.State == StatePlaying
}
