package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/tags"
)

// audioRoute is the URL prefix audio files are served under.
const audioRoute = "/audio/"

// toWire replaces the stored audio path with the URL the file is served at.
func toWire(song library.Song) library.Song {
	if song.AudioLocator != "" {
		song.AudioLocator = audioRoute + filepath.Base(song.AudioLocator)
	}
	return song
}

func (s *Server) listSongs(c *gin.Context) {
	songs, err := s.songs.ForAccount(accountID(c)).List(c.Request.Context())
	if err != nil {
		s.respondError(c, errmsg.OpLibraryLoad, err)
		return
	}
	c.JSON(http.StatusOK, lo.Map(songs, func(song library.Song, _ int) library.Song {
		return toWire(song)
	}))
}

type createSongRequest struct {
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	CoverURL   string  `json:"coverUrl"`
	Duration   float64 `json:"duration"`
	Genre      string  `json:"genre"`
	SourceType string  `json:"sourceType"`
	SourceURL  string  `json:"sourceUrl"`
}

// createSong records a song without audio. Audio arrives through upload or
// extraction only, so clients cannot point a song at arbitrary files.
func (s *Server) createSong(c *gin.Context) {
	var req createSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid song")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		badRequest(c, "Title is required")
		return
	}
	source, err := library.ParseSourceType(req.SourceType)
	if err != nil {
		badRequest(c, "Source type must be upload or youtube")
		return
	}

	song, err := s.songs.ForAccount(accountID(c)).Create(c.Request.Context(), library.Song{
		Title:      strings.TrimSpace(req.Title),
		Artist:     strings.TrimSpace(req.Artist),
		Album:      req.Album,
		CoverURL:   req.CoverURL,
		Duration:   time.Duration(req.Duration * float64(time.Second)),
		Genre:      req.Genre,
		SourceType: source,
		SourceURL:  req.SourceURL,
	})
	if err != nil {
		s.respondError(c, errmsg.OpSongCreate, err)
		return
	}
	c.JSON(http.StatusOK, toWire(song))
}

// uploadSong stores a multipart audio file and creates a song from its tags.
// Form fields title, artist, album and genre override the tags.
func (s *Server) uploadSong(c *gin.Context) {
	limit := int64(s.opts.MaxUploadMB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("File exceeds %s", humanize.IBytes(uint64(limit))), //nolint:gosec // limit is positive
			})
			return
		}
		badRequest(c, "Audio file is required")
		return
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !player.SupportedExt(ext) {
		badRequest(c, "Unsupported audio format "+ext)
		return
	}

	id := accountID(c)
	if err := os.MkdirAll(s.opts.AudioDir, 0o755); err != nil {
		s.respondError(c, errmsg.OpSongUpload, err)
		return
	}
	path := filepath.Join(s.opts.AudioDir, fmt.Sprintf("%d_%d%s", id, time.Now().UnixNano(), ext))
	if err := c.SaveUploadedFile(fh, path); err != nil {
		s.respondError(c, errmsg.OpSongUpload, err)
		return
	}

	meta := s.readUploadTags(fh)
	overrideTag(&meta.Title, c.PostForm("title"))
	overrideTag(&meta.Artist, c.PostForm("artist"))
	overrideTag(&meta.Album, c.PostForm("album"))
	overrideTag(&meta.Genre, c.PostForm("genre"))

	duration, err := player.ProbeDuration(path)
	if err != nil {
		_ = os.Remove(path)
		badRequest(c, "Could not decode audio file")
		return
	}

	song, err := s.songs.ForAccount(id).Create(c.Request.Context(), library.Song{
		Title:        meta.Title,
		Artist:       meta.Artist,
		Album:        meta.Album,
		Genre:        meta.Genre,
		AudioLocator: path,
		Duration:     duration,
		SourceType:   library.SourceUpload,
	})
	if err != nil {
		_ = os.Remove(path)
		s.respondError(c, errmsg.OpSongUpload, err)
		return
	}

	s.logger.Info("song uploaded",
		"title", song.Title,
		"size", humanize.Bytes(uint64(fh.Size)), //nolint:gosec // sizes are non-negative
		"duration", duration.Round(time.Second))
	c.JSON(http.StatusOK, toWire(song))
}

// readUploadTags reads tags from the uploaded part, falling back to the
// original file name for the title.
func (s *Server) readUploadTags(fh *multipart.FileHeader) tags.Tag {
	f, err := fh.Open()
	if err != nil {
		meta := tags.Tag{}
		meta.Fill(fh.Filename)
		return meta
	}
	defer f.Close()

	meta, err := tags.Read(f, fh.Filename)
	if err != nil {
		s.logger.Warn("read upload tags", "file", fh.Filename, "err", err)
	}
	return meta
}

func overrideTag(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

type favoriteRequest struct {
	IsFavorite *bool `json:"isFavorite"`
}

func (s *Server) setFavorite(c *gin.Context) {
	var req favoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsFavorite == nil {
		badRequest(c, "isFavorite is required")
		return
	}

	song, err := s.songs.ForAccount(accountID(c)).SetFavorite(c.Request.Context(), c.Param("id"), *req.IsFavorite)
	if err != nil {
		s.respondError(c, errmsg.OpFavoriteToggle, err)
		return
	}
	c.JSON(http.StatusOK, toWire(song))
}

// deleteSong removes the song and its audio file.
func (s *Server) deleteSong(c *gin.Context) {
	store := s.songs.ForAccount(accountID(c))
	ctx := c.Request.Context()

	song, err := store.Get(ctx, c.Param("id"))
	if err != nil {
		s.respondError(c, errmsg.OpLibraryDelete, err)
		return
	}
	if err := store.Delete(ctx, song.ID); err != nil {
		s.respondError(c, errmsg.OpLibraryDelete, err)
		return
	}

	if path := s.ownedAudioPath(song.AudioLocator); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove audio file", "path", path, "err", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ownedAudioPath returns locator when it names a file inside the audio
// directory, or "" otherwise.
func (s *Server) ownedAudioPath(locator string) string {
	if locator == "" || s.opts.AudioDir == "" {
		return ""
	}
	if filepath.Dir(filepath.Clean(locator)) != filepath.Clean(s.opts.AudioDir) {
		return ""
	}
	return locator
}
