package library

import (
	"context"
	"fmt"

	"github.com/llehouerou/vibeflow/internal/errmsg"
)

// ErrSongNotFound is returned when an id does not name a song of the account.
var ErrSongNotFound = fmt.Errorf("song %w", errmsg.ErrNotFound)

// Store is one account's persisted song collection.
type Store interface {
	// List returns every song, newest first.
	List(ctx context.Context) ([]Song, error)
	Get(ctx context.Context, id string) (Song, error)
	// Create stores song, assigning an id and timestamp when missing.
	Create(ctx context.Context, song Song) (Song, error)
	SetFavorite(ctx context.Context, id string, favorite bool) (Song, error)
	Delete(ctx context.Context, id string) error
}
