package player

import (
	"context"
	"time"
)

// Interface is the playback engine contract: one loaded track at a time.
type Interface interface {
	// Load resolves locator to a local file, decodes it and starts playing from 0.
	Load(ctx context.Context, locator string) error
	Play()
	Pause()
	Stop()
	// SetPosition moves the playhead. It never signals completion.
	SetPosition(d time.Duration)
	Position() time.Duration
	Duration() time.Duration
	State() State
	// Locator returns the locator of the loaded track, or "" if none.
	Locator() string
	// FinishedChan receives once per track that played to its natural end.
	FinishedChan() <-chan struct{}
}

// Verify Player implements Interface at compile time.
var _ Interface = (*Player)(nil)
