package playlist

import "github.com/llehouerou/vibeflow/internal/library"

// Queue is the explicit up-next list. Songs leave from the front in the order
// they were added.
type Queue struct {
	items songs
}

// NewQueue creates a new empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Add appends songs to the tail.
func (q *Queue) Add(s ...library.Song) {
	q.items = append(q.items, s...)
}

// Replace discards the queue contents and sets them to s.
func (q *Queue) Replace(s ...library.Song) {
	q.items = append(songs(nil), s...)
}

// PopFront removes and returns the head of the queue.
// Returns false if the queue is empty.
func (q *Queue) PopFront() (library.Song, bool) {
	if len(q.items) == 0 {
		return library.Song{}, false
	}
	head := q.items[0]
	q.items = q.items[1:]
	return head, true
}

// RemoveID drops every entry with the given song id and reports how many were removed.
func (q *Queue) RemoveID(id string) int {
	return q.items.removeID(id)
}

// Patch replaces each entry with fn(entry).
func (q *Queue) Patch(fn func(library.Song) library.Song) {
	q.items.patch(fn)
}

// Clear removes all songs.
func (q *Queue) Clear() {
	q.items = nil
}

// Songs returns a copy of the queue, head first.
func (q *Queue) Songs() []library.Song {
	return q.items.clone()
}

// Len returns the number of queued songs.
func (q *Queue) Len() int {
	return len(q.items)
}

// IsEmpty returns true if nothing is queued.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}
