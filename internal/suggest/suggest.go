// Package suggest picks songs from the library that match the mood of what
// the user just listened to.
package suggest

import (
	"context"
	"strings"

	"github.com/samber/lo"

	"github.com/llehouerou/vibeflow/internal/library"
)

// Fallback moods, shown as-is to the user.
const (
	MoodNeutral     = "Neutral"
	MoodUnavailable = "AI Not Available"
	MoodOffline     = "Offline / Error"
	MoodUnknown     = "Unknown Vibe"
)

const (
	// DefaultMax is the number of songs suggested when nothing else is configured.
	DefaultMax = 5

	// historyWindow is how many recent songs describe the current vibe.
	historyWindow = 3
)

// Suggestion is a mood label plus the songs that fit it, best first.
type Suggestion struct {
	Mood      string   `json:"mood"`
	Reasoning string   `json:"reasoning"`
	SongIDs   []string `json:"suggestedSongIds"`
}

// Service produces a suggestion from recent history and the available library.
type Service interface {
	Suggest(ctx context.Context, history, songs []library.Song) (Suggestion, error)
}

// Resolve maps suggested ids back to library songs, keeping the suggested
// order. Ids not in the library are dropped.
func Resolve(ids []string, songs []library.Song) []library.Song {
	byID := lo.KeyBy(songs, func(s library.Song) string { return s.ID })
	return lo.FilterMap(lo.Uniq(ids), func(id string, _ int) (library.Song, bool) {
		s, ok := byID[id]
		return s, ok
	})
}

// notEnoughData is returned when there is no history or no library to work with.
func notEnoughData(songs []library.Song, n int) Suggestion {
	return Suggestion{
		Mood:      MoodNeutral,
		Reasoning: "Not enough data to analyze yet.",
		SongIDs:   firstIDs(songs, n),
	}
}

func unavailable(songs []library.Song, n int) Suggestion {
	return Suggestion{
		Mood:      MoodUnavailable,
		Reasoning: "AI features require a Gemini API key. Set GEMINI_API_KEY or vibe.api_key to enable suggestions.",
		SongIDs:   firstIDs(songs, n),
	}
}

func offline(songs []library.Song, n int) Suggestion {
	return Suggestion{
		Mood:      MoodOffline,
		Reasoning: "Could not connect to AI. Shuffling library.",
		SongIDs:   firstIDs(songs, n),
	}
}

func firstIDs(songs []library.Song, n int) []string {
	return library.IDs(songs[:min(max(n, 0), len(songs))])
}

// sanitize fills missing fields and keeps at most n ids that exist in songs.
func sanitize(s Suggestion, songs []library.Song, n int) Suggestion {
	if strings.TrimSpace(s.Mood) == "" {
		s.Mood = MoodUnknown
	}
	if strings.TrimSpace(s.Reasoning) == "" {
		s.Reasoning = "Enjoy some random tracks."
	}
	ids := library.IDs(Resolve(s.SongIDs, songs))
	s.SongIDs = ids[:min(max(n, 0), len(ids))]
	return s
}

// flightKey identifies a request for in-flight deduplication.
func flightKey(history, songs []library.Song) string {
	recent := history[max(0, len(history)-historyWindow):]
	return strings.Join(library.IDs(recent), ",") + "|" + strings.Join(library.IDs(songs), ",")
}
