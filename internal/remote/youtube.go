package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/llehouerou/vibeflow/internal/library"
)

// extractTimeout covers the server's metadata and download runs.
const extractTimeout = 6 * time.Minute

// Extract asks the server to fetch a YouTube URL and add it to the library.
func (c *Client) Extract(ctx context.Context, videoURL string) (library.Song, error) {
	ctx, cancel := context.WithTimeout(ctx, extractTimeout)
	defer cancel()

	req, err := newJSONRequest(ctx, http.MethodPost, c.url("/api/youtube/extract"), map[string]string{"url": videoURL})
	if err != nil {
		return library.Song{}, err
	}
	var song library.Song
	if err := c.doWith(c.untimed(), req, &song); err != nil {
		return library.Song{}, err
	}
	return song, nil
}

// HasCookies reports whether the server holds YouTube cookies.
func (c *Client) HasCookies(ctx context.Context) (bool, error) {
	var resp struct {
		HasCookies bool `json:"hasCookies"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/youtube/cookies", nil, &resp); err != nil {
		return false, err
	}
	return resp.HasCookies, nil
}

// SaveCookies uploads a Netscape cookies file's content.
func (c *Client) SaveCookies(ctx context.Context, content string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/youtube/cookies", map[string]string{"cookies": content}, nil)
}

func (c *Client) DeleteCookies(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/youtube/cookies", nil, nil)
}
