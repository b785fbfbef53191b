package player

// State is the engine's playback state.
//
//	           Load            Pause
//	Stopped ─────────▶ Playing ─────▶ Paused
//	   ▲                 │  ▲  Play     │
//	   │    Stop / end   │  └───────────┘
//	   └─────────────────┴──────────────┘ Stop
//
// Play on a stopped engine and Pause on a paused one are ignored.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is loaded and not finished (Playing or Paused).
func (s State) IsActive() bool {
	return s == Playing || s == Paused
}
