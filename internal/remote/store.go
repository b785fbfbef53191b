package remote

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/llehouerou/vibeflow/internal/library"
)

var _ library.Store = (*Client)(nil)

// List returns the account's songs, newest first.
func (c *Client) List(ctx context.Context) ([]library.Song, error) {
	var songs []library.Song
	if err := c.doJSON(ctx, http.MethodGet, "/api/songs", nil, &songs); err != nil {
		return nil, err
	}
	return songs, nil
}

// Get finds one song. The API has no single-song endpoint, so this lists.
func (c *Client) Get(ctx context.Context, id string) (library.Song, error) {
	songs, err := c.List(ctx)
	if err != nil {
		return library.Song{}, err
	}
	for _, s := range songs {
		if s.ID == id {
			return s, nil
		}
	}
	return library.Song{}, library.ErrSongNotFound
}

// Create records a song without audio.
func (c *Client) Create(ctx context.Context, song library.Song) (library.Song, error) {
	req := map[string]any{
		"title":      song.Title,
		"artist":     song.Artist,
		"album":      song.Album,
		"coverUrl":   song.CoverURL,
		"duration":   song.Duration.Seconds(),
		"genre":      song.Genre,
		"sourceType": song.SourceType,
		"sourceUrl":  song.SourceURL,
	}
	var created library.Song
	if err := c.doJSON(ctx, http.MethodPost, "/api/songs", req, &created); err != nil {
		return library.Song{}, err
	}
	return created, nil
}

func (c *Client) SetFavorite(ctx context.Context, id string, favorite bool) (library.Song, error) {
	var song library.Song
	path := "/api/songs/" + url.PathEscape(id) + "/favorite"
	if err := c.doJSON(ctx, http.MethodPost, path, map[string]bool{"isFavorite": favorite}, &song); err != nil {
		return library.Song{}, err
	}
	return song, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/songs/"+url.PathEscape(id), nil, nil)
}

// Upload sends a local audio file. The server reads its tags.
func (c *Client) Upload(ctx context.Context, path string) (library.Song, error) {
	f, err := os.Open(path)
	if err != nil {
		return library.Song{}, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/api/songs/upload"), pr)
	if err != nil {
		pr.Close()
		return library.Song{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var song library.Song
	if err := c.doWith(c.untimed(), req, &song); err != nil {
		pr.CloseWithError(err)
		return library.Song{}, err
	}
	return song, nil
}
