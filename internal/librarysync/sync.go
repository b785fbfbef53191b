// Package librarysync keeps a local copy of the song library consistent with
// the Library Store. Mutations go to the store first and the local copy is
// replaced by a full re-fetch once the store confirms them.
package librarysync

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
)

// Synchronizer owns the local library cache. It is safe for concurrent use;
// store calls run without holding the cache lock.
type Synchronizer struct {
	store  library.Store
	logger *log.Logger

	mu    sync.RWMutex
	songs []library.Song
}

func New(store library.Store, logger *log.Logger) *Synchronizer {
	return &Synchronizer{store: store, logger: logger}
}

// Refresh re-fetches the whole library and replaces the cache, newest first.
// On failure the previous cache is kept.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	songs, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("refresh library", "err", err)
		return fmt.Errorf("%s: %w", errmsg.OpLibraryLoad, err)
	}

	sortNewestFirst(songs)

	s.mu.Lock()
	s.songs = songs
	s.mu.Unlock()

	s.logger.Debug("library refreshed", "songs", len(songs))
	return nil
}

// ToggleFavorite inverts the favorite flag of song id in the store and returns
// the new value. The local cache only changes after the store confirms.
func (s *Synchronizer) ToggleFavorite(ctx context.Context, id string) (bool, error) {
	song, ok := s.Find(id)
	if !ok {
		return false, fmt.Errorf("song %s: %w", id, errmsg.ErrNotFound)
	}
	want := !song.IsFavorite

	if _, err := s.store.SetFavorite(ctx, id, want); err != nil {
		s.logger.Error("toggle favorite", "id", id, "err", err)
		return false, fmt.Errorf("%s: %w", errmsg.OpFavoriteToggle, err)
	}

	if err := s.Refresh(ctx); err != nil {
		// The store has the new value; keep the cache in line until the next refresh
		s.patch(id, func(song *library.Song) { song.IsFavorite = want })
	}
	return want, nil
}

// Remove deletes song id from the store and refreshes the cache.
func (s *Synchronizer) Remove(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("remove song", "id", id, "err", err)
		return fmt.Errorf("%s: %w", errmsg.OpLibraryDelete, err)
	}

	if err := s.Refresh(ctx); err != nil {
		s.mu.Lock()
		s.songs = slices.DeleteFunc(s.songs, func(song library.Song) bool { return song.ID == id })
		s.mu.Unlock()
	}
	return nil
}

// Library returns a copy of the cached library, newest first.
func (s *Synchronizer) Library() []library.Song {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.songs)
}

// Find returns the cached song with the given id.
func (s *Synchronizer) Find(id string) (library.Song, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := slices.IndexFunc(s.songs, func(song library.Song) bool { return song.ID == id }); i >= 0 {
		return s.songs[i], true
	}
	return library.Song{}, false
}

func (s *Synchronizer) patch(id string, fn func(*library.Song)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.songs {
		if s.songs[i].ID == id {
			fn(&s.songs[i])
		}
	}
}

// sortNewestFirst orders songs by AddedAt descending; ties keep store order.
func sortNewestFirst(songs []library.Song) {
	slices.SortStableFunc(songs, func(a, b library.Song) int {
		return b.AddedAt.Compare(a.AddedAt)
	})
}
