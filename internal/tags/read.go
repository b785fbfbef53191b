package tags

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// Read reads tag metadata from r. name is only used for its extension and as
// the title fallback. A file without tags yields a Tag filled from name.
func Read(r io.ReadSeeker, name string) (Tag, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		if strings.EqualFold(filepath.Ext(name), ExtMP3) {
			// dhowden/tag has issues with some UTF-16 encoded ID3 tags
			if t, ok := readID3v2(r); ok {
				t.Fill(name)
				return t, nil
			}
		}
		t := Tag{}
		t.Fill(name)
		if errors.Is(err, tag.ErrNoTagsFound) {
			return t, nil
		}
		return t, err
	}

	t := Tag{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
		Genre:  strings.TrimSpace(m.Genre()),
		Year:   m.Year(),
	}
	if t.Artist == "" {
		t.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	t.Fill(name)
	return t, nil
}

// ReadFile reads tag metadata from the file at path.
func ReadFile(path string) (Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return Tag{}, err
	}
	defer f.Close()
	return Read(f, path)
}

// readID3v2 reads the basic frames with the id3v2 parser.
func readID3v2(r io.ReadSeeker) (Tag, bool) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Tag{}, false
	}
	header := make([]byte, len(id3Magic))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, []byte(id3Magic)) {
		return Tag{}, false
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Tag{}, false
	}

	id3tag, err := id3v2.ParseReader(r, id3v2.Options{Parse: true})
	if err != nil {
		return Tag{}, false
	}

	return Tag{
		Title:  strings.TrimSpace(id3tag.Title()),
		Artist: strings.TrimSpace(id3tag.Artist()),
		Album:  strings.TrimSpace(id3tag.Album()),
		Genre:  strings.TrimSpace(id3tag.Genre()),
	}, true
}
