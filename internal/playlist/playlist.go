// Package playlist holds the ordered song containers behind playback:
// the FIFO up-next queue and the back-stack of previously played songs.
package playlist

import (
	"slices"

	"github.com/llehouerou/vibeflow/internal/library"
)

// songs is the storage shared by Queue and History.
type songs []library.Song

func (s songs) clone() []library.Song {
	return slices.Clone([]library.Song(s))
}

func (s *songs) removeID(id string) int {
	before := len(*s)
	*s = slices.DeleteFunc(*s, func(song library.Song) bool { return song.ID == id })
	return before - len(*s)
}

func (s songs) patch(fn func(library.Song) library.Song) {
	for i := range s {
		s[i] = fn(s[i])
	}
}
