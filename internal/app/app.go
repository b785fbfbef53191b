// Package app is the terminal mini-player: a library list, the up-next
// queue and the player bar, all driven by a playback.Controller.
package app

import (
	"context"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/llehouerou/vibeflow/internal/keymap"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/playback"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

// Options configures a Model.
type Options struct {
	Controller playback.Controller
	// Suggester powers the vibe mix. Nil disables it.
	Suggester suggest.Service
	Logger    *log.Logger
	// Context bounds controller calls; defaults to context.Background.
	Context context.Context
}

// Model is the root application model.
type Model struct {
	ctrl      playback.Controller
	suggester suggest.Service
	logger    *log.Logger
	keys      *keymap.Resolver
	sub       *playback.Subscription
	ctx       context.Context

	Session playback.Session
	Library []library.Song
	Cursor  int
	Offset  int // first visible library row

	Vibe    *suggest.Suggestion // last vibe mix, shown in the header
	Busy    string              // long-running action in progress
	Status  string
	IsError bool

	Width  int
	Height int
}

// New creates the model and subscribes to the controller.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	keys := keymap.NewResolver(slices.Clone(keymap.Default))
	if opts.Suggester == nil {
		keys.SetEnabled(keymap.ActionVibeMix, false)
	}
	return Model{
		ctrl:      opts.Controller,
		suggester: opts.Suggester,
		logger:    opts.Logger,
		keys:      keys,
		sub:       opts.Controller.Subscribe(),
		ctx:       ctx,
		Session:   opts.Controller.Snapshot(),
		Library:   opts.Controller.Library(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.WatchEvents(), m.refreshCmd())
}

// Selected returns the library song under the cursor.
func (m Model) Selected() (library.Song, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Library) {
		return library.Song{}, false
	}
	return m.Library[m.Cursor], true
}
