package library

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/llehouerou/vibeflow/internal/db"
)

const songColumns = `id, title, artist, album, cover_url, audio_path, duration,
	added_at, is_favorite, genre, source_type, source_url`

// SQLStore keeps songs of every account in SQLite.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(conn *sql.DB) *SQLStore {
	return &SQLStore{db: conn, now: time.Now}
}

// ForAccount returns a Store scoped to one account's songs.
func (s *SQLStore) ForAccount(accountID int64) Store {
	return &accountStore{SQLStore: s, accountID: accountID}
}

type accountStore struct {
	*SQLStore
	accountID int64
}

func (a *accountStore) List(ctx context.Context) ([]Song, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE user_id = ?
		ORDER BY added_at DESC
	`, a.accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}
	return songs, rows.Err()
}

func (a *accountStore) Get(ctx context.Context, id string) (Song, error) {
	row := a.db.QueryRowContext(ctx, `
		SELECT `+songColumns+`
		FROM songs
		WHERE id = ? AND user_id = ?
	`, id, a.accountID)

	song, err := scanSong(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Song{}, ErrSongNotFound
	}
	return song, err
}

func (a *accountStore) Create(ctx context.Context, song Song) (Song, error) {
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	if song.AddedAt.IsZero() {
		song.AddedAt = a.now()
	}
	if song.SourceType == "" {
		song.SourceType = SourceUpload
	}
	if song.Duration < 0 {
		song.Duration = 0
	}

	_, err := a.db.ExecContext(ctx, `
		INSERT INTO songs (`+songColumns+`, user_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		song.ID, song.Title, song.Artist,
		db.NullString(song.Album), db.NullString(song.CoverURL), db.NullString(song.AudioLocator),
		int64(song.Duration/time.Second), song.AddedAt.UnixNano(), db.BoolInt(song.IsFavorite),
		db.NullString(song.Genre), string(song.SourceType), db.NullString(song.SourceURL),
		a.accountID,
	)
	if err != nil {
		return Song{}, err
	}
	// Stored precision is whole seconds.
	song.Duration = song.Duration.Truncate(time.Second)
	return song, nil
}

func (a *accountStore) SetFavorite(ctx context.Context, id string, favorite bool) (Song, error) {
	var song Song
	err := db.WithTx(ctx, a.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE songs SET is_favorite = ? WHERE id = ? AND user_id = ?
		`, db.BoolInt(favorite), id, a.accountID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrSongNotFound
		}

		song, err = scanSong(tx.QueryRowContext(ctx, `
			SELECT `+songColumns+` FROM songs WHERE id = ?
		`, id))
		return err
	})
	if err != nil {
		return Song{}, err
	}
	return song, nil
}

func (a *accountStore) Delete(ctx context.Context, id string) error {
	res, err := a.db.ExecContext(ctx, `
		DELETE FROM songs WHERE id = ? AND user_id = ?
	`, id, a.accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSongNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (Song, error) {
	var s Song
	var album, cover, audio, genre, sourceURL sql.NullString
	var duration, addedAt int64
	var favorite int
	var sourceType string

	err := row.Scan(&s.ID, &s.Title, &s.Artist, &album, &cover, &audio, &duration,
		&addedAt, &favorite, &genre, &sourceType, &sourceURL)
	if err != nil {
		return Song{}, err
	}

	s.Album = db.NullStringValue(album)
	s.CoverURL = db.NullStringValue(cover)
	s.AudioLocator = db.NullStringValue(audio)
	s.Duration = time.Duration(max(duration, 0)) * time.Second
	s.AddedAt = time.Unix(0, addedAt)
	s.IsFavorite = favorite != 0
	s.Genre = db.NullStringValue(genre)
	s.SourceType = SourceType(sourceType)
	s.SourceURL = db.NullStringValue(sourceURL)
	return s, nil
}

// Verify accountStore implements Store at compile time.
var _ Store = (*accountStore)(nil)
