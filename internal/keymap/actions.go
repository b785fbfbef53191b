// Package keymap maps mini-player key presses to actions.
package keymap

// Action represents a user-triggerable action.
type Action string

const (
	ActionQuit Action = "quit"

	// Playback
	ActionPlayPause     Action = "play_pause"
	ActionNext          Action = "next"
	ActionPrevious      Action = "previous"
	ActionSeekForward   Action = "seek_forward"
	ActionSeekBack      Action = "seek_back"
	ActionCycleRepeat   Action = "cycle_repeat"
	ActionToggleShuffle Action = "toggle_shuffle"
	ActionVibeMix       Action = "vibe_mix"

	// Current song
	ActionLike   Action = "like"
	ActionRemove Action = "remove"

	// Library list
	ActionMoveUp   Action = "move_up"
	ActionMoveDown Action = "move_down"
	ActionPlay     Action = "play"    // enter - play selected
	ActionEnqueue  Action = "enqueue" // a - queue selected
	ActionRefresh  Action = "refresh"
)
