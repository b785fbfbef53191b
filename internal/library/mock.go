package library

import (
	"context"
	"slices"
	"sync"
)

// Mock is an in-memory Store for tests. List returns songs in insertion order
// unless a test reorders them with SetSongs.
type Mock struct {
	mu    sync.Mutex
	songs []Song

	listErr     error
	favoriteErr error
	deleteErr   error
	createErr   error

	listCalls     int
	favoriteCalls int
	deleteCalls   int
}

// NewMock creates a mock store holding songs.
func NewMock(songs ...Song) *Mock {
	return &Mock{songs: slices.Clone(songs)}
}

func (m *Mock) List(_ context.Context) ([]Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return slices.Clone(m.songs), nil
}

func (m *Mock) Get(_ context.Context, id string) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.index(id); i >= 0 {
		return m.songs[i], nil
	}
	return Song{}, ErrSongNotFound
}

func (m *Mock) Create(_ context.Context, song Song) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return Song{}, m.createErr
	}
	m.songs = append(m.songs, song)
	return song, nil
}

func (m *Mock) SetFavorite(_ context.Context, id string, favorite bool) (Song, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favoriteCalls++
	if m.favoriteErr != nil {
		return Song{}, m.favoriteErr
	}
	i := m.index(id)
	if i < 0 {
		return Song{}, ErrSongNotFound
	}
	m.songs[i].IsFavorite = favorite
	return m.songs[i], nil
}

func (m *Mock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	i := m.index(id)
	if i < 0 {
		return ErrSongNotFound
	}
	m.songs = slices.Delete(m.songs, i, i+1)
	return nil
}

func (m *Mock) index(id string) int {
	return slices.IndexFunc(m.songs, func(s Song) bool { return s.ID == id })
}

// Test helpers

func (m *Mock) SetSongs(songs []Song) {
	m.mu.Lock()
	m.songs = slices.Clone(songs)
	m.mu.Unlock()
}

func (m *Mock) SetListError(err error) {
	m.mu.Lock()
	m.listErr = err
	m.mu.Unlock()
}

func (m *Mock) SetFavoriteError(err error) {
	m.mu.Lock()
	m.favoriteErr = err
	m.mu.Unlock()
}

func (m *Mock) SetDeleteError(err error) {
	m.mu.Lock()
	m.deleteErr = err
	m.mu.Unlock()
}

func (m *Mock) SetCreateError(err error) {
	m.mu.Lock()
	m.createErr = err
	m.mu.Unlock()
}

func (m *Mock) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *Mock) FavoriteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.favoriteCalls
}

func (m *Mock) DeleteCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteCalls
}

// Verify Mock implements Store at compile time.
var _ Store = (*Mock)(nil)
