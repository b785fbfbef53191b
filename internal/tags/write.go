package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// WriteMP3 writes t as ID3v2.4 frames into the MP3 file at path, replacing
// any existing frames.
func WriteMP3(path string, t Tag) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ExtMP3 {
		return fmt.Errorf("unsupported file format: %s", ext)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer tag.Close()

	// Use ID3v2.4 with UTF-8 for better Unicode support
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.DeleteAllFrames()

	tag.SetTitle(t.Title)
	tag.SetArtist(t.Artist)
	if t.Album != "" {
		tag.SetAlbum(t.Album)
	}
	if t.Genre != "" {
		tag.SetGenre(t.Genre)
	}
	if t.Year > 0 {
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, strconv.Itoa(t.Year))
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}
	return nil
}
