package playlist

import "github.com/llehouerou/vibeflow/internal/library"

// History is the back-stack of songs that were replaced by another song.
// The tail is the most recently played one.
type History struct {
	items   songs
	maxSize int
}

// NewHistory creates an empty history keeping at most maxSize songs.
// Non-positive sizes mean unbounded.
func NewHistory(maxSize int) *History {
	return &History{maxSize: maxSize}
}

// Push appends a song to the tail, dropping the oldest entries past the limit.
func (h *History) Push(s library.Song) {
	h.items = append(h.items, s)

	// Trim if over limit
	if h.maxSize > 0 && len(h.items) > h.maxSize {
		excess := len(h.items) - h.maxSize
		h.items = append(songs(nil), h.items[excess:]...)
	}
}

// Pop removes and returns the most recent song.
// Returns false if the history is empty.
func (h *History) Pop() (library.Song, bool) {
	if len(h.items) == 0 {
		return library.Song{}, false
	}
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last, true
}

// Last returns the most recent song without removing it.
func (h *History) Last() (library.Song, bool) {
	if len(h.items) == 0 {
		return library.Song{}, false
	}
	return h.items[len(h.items)-1], true
}

// RemoveID drops every entry with the given song id and reports how many were removed.
func (h *History) RemoveID(id string) int {
	return h.items.removeID(id)
}

// Patch replaces each entry with fn(entry).
func (h *History) Patch(fn func(library.Song) library.Song) {
	h.items.patch(fn)
}

// Clear forgets all songs.
func (h *History) Clear() {
	h.items = nil
}

// Songs returns a copy of the history, oldest first.
func (h *History) Songs() []library.Song {
	return h.items.clone()
}

// Len returns the number of remembered songs.
func (h *History) Len() int {
	return len(h.items)
}

// IsEmpty returns true if nothing was played before the current song.
func (h *History) IsEmpty() bool {
	return len(h.items) == 0
}
