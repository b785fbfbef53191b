// Package library holds the song model and the per-account song store.
package library

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/llehouerou/vibeflow/internal/errmsg"
)

// SourceType tells where a song came from.
type SourceType string

const (
	SourceUpload  SourceType = "upload"
	SourceYouTube SourceType = "youtube"
)

// ParseSourceType validates a source type name. Empty means upload.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(s) {
	case "", SourceUpload:
		return SourceUpload, nil
	case SourceYouTube:
		return SourceYouTube, nil
	}
	return "", fmt.Errorf("unknown source type %q: %w", s, errmsg.ErrValidation)
}

// Song is one entry in an account's library.
type Song struct {
	ID           string
	Title        string
	Artist       string
	Album        string
	CoverURL     string
	AudioLocator string // URL or path of playable audio
	Duration     time.Duration
	AddedAt      time.Time
	IsFavorite   bool
	Genre        string
	SourceType   SourceType
	SourceURL    string
}

// songJSON is the wire shape shared by the HTTP API and its client.
type songJSON struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Artist     string     `json:"artist"`
	Album      string     `json:"album,omitempty"`
	CoverURL   string     `json:"coverUrl,omitempty"`
	AudioURL   string     `json:"audioUrl,omitempty"`
	Duration   int64      `json:"duration"` // seconds
	AddedAt    time.Time  `json:"addedAt"`
	IsFavorite bool       `json:"isFavorite"`
	Genre      string     `json:"genre,omitempty"`
	SourceType SourceType `json:"sourceType"`
	SourceURL  string     `json:"sourceUrl,omitempty"`
}

func (s Song) MarshalJSON() ([]byte, error) {
	return json.Marshal(songJSON{
		ID:         s.ID,
		Title:      s.Title,
		Artist:     s.Artist,
		Album:      s.Album,
		CoverURL:   s.CoverURL,
		AudioURL:   s.AudioLocator,
		Duration:   int64(s.Duration / time.Second),
		AddedAt:    s.AddedAt.UTC(),
		IsFavorite: s.IsFavorite,
		Genre:      s.Genre,
		SourceType: s.SourceType,
		SourceURL:  s.SourceURL,
	})
}

func (s *Song) UnmarshalJSON(data []byte) error {
	var w songJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	dur := time.Duration(w.Duration) * time.Second
	if dur < 0 {
		dur = 0
	}
	*s = Song{
		ID:           w.ID,
		Title:        w.Title,
		Artist:       w.Artist,
		Album:        w.Album,
		CoverURL:     w.CoverURL,
		AudioLocator: w.AudioURL,
		Duration:     dur,
		AddedAt:      w.AddedAt,
		IsFavorite:   w.IsFavorite,
		Genre:        w.Genre,
		SourceType:   w.SourceType,
		SourceURL:    w.SourceURL,
	}
	return nil
}

// DisplayName returns "Artist - Title", or just the title when the artist is unknown.
func (s Song) DisplayName() string {
	if s.Artist == "" {
		return s.Title
	}
	return s.Artist + " - " + s.Title
}

// IDs returns the ids of songs in order.
func IDs(songs []Song) []string {
	ids := make([]string, len(songs))
	for i, s := range songs {
		ids[i] = s.ID
	}
	return ids
}
