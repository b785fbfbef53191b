package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Binding ties a bubbles key binding to an action.
type Binding struct {
	Action Action
	Key    key.Binding
}

// Default is the mini-player's key map, in help order.
var Default = []Binding{
	{ActionPlayPause, key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause"))},
	{ActionNext, key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next"))},
	{ActionPrevious, key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous"))},
	{ActionSeekBack, key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s"))},
	{ActionSeekForward, key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s"))},
	{ActionLike, key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "like"))},
	{ActionRemove, key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove"))},
	{ActionCycleRepeat, key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat"))},
	{ActionToggleShuffle, key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle"))},
	{ActionVibeMix, key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "vibe mix"))},
	{ActionPlay, key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play"))},
	{ActionEnqueue, key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "queue"))},
	{ActionMoveDown, key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/k", "move"))},
	{ActionMoveUp, key.NewBinding(key.WithKeys("k", "up"))},
	{ActionRefresh, key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "refresh"))},
	{ActionQuit, key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))},
}

// Resolver maps key presses to actions.
type Resolver struct {
	bindings []Binding
}

// NewResolver creates a resolver. Earlier bindings win when keys overlap.
func NewResolver(bindings []Binding) *Resolver {
	return &Resolver{bindings: bindings}
}

// Resolve returns the action for msg, or "" if no enabled binding matches.
func (r *Resolver) Resolve(msg tea.KeyMsg) Action {
	for _, b := range r.bindings {
		if key.Matches(msg, b.Key) {
			return b.Action
		}
	}
	return ""
}

// SetEnabled enables or disables every binding of action.
func (r *Resolver) SetEnabled(action Action, enabled bool) {
	for i := range r.bindings {
		if r.bindings[i].Action == action {
			r.bindings[i].Key.SetEnabled(enabled)
		}
	}
}

// Help returns "key action" pairs for the bindings that carry help text.
func (r *Resolver) Help() [][2]string {
	var out [][2]string
	for _, b := range r.bindings {
		h := b.Key.Help()
		if h.Key == "" || !b.Key.Enabled() {
			continue
		}
		out = append(out, [2]string{h.Key, h.Desc})
	}
	return out
}
