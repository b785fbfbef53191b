// Package tags reads and writes the metadata embedded in audio files.
package tags

import (
	"path/filepath"
	"strings"
)

// File extensions accepted for uploads.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtWAV  = ".wav"
)

// id3Magic is the magic bytes for ID3v2 header detection.
const id3Magic = "ID3"

// Tag is the song metadata vibeflow keeps from a file.
type Tag struct {
	Title  string
	Artist string
	Album  string
	Genre  string
	Year   int
}

// titleFromName derives a title from a file name: extension stripped,
// underscores turned into spaces.
func titleFromName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSpace(strings.ReplaceAll(base, "_", " "))
	if base == "" || base == "." {
		return "Unknown Title"
	}
	return base
}

// Fill sets empty title and artist from the file name and a default artist.
func (t *Tag) Fill(name string) {
	if strings.TrimSpace(t.Title) == "" {
		t.Title = titleFromName(name)
	}
	if strings.TrimSpace(t.Artist) == "" {
		t.Artist = "Unknown Artist"
	}
}
