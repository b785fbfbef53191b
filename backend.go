package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/vibeflow/internal/config"
	"github.com/llehouerou/vibeflow/internal/db"
	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/extract"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/logging"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/remote"
	"github.com/llehouerou/vibeflow/internal/suggest"
	"github.com/llehouerou/vibeflow/internal/tags"
)

// backend is the library a client command works against: the server, or the
// local database in --local mode.
type backend interface {
	library.Store
	player.Resolver
	suggest.Service

	Upload(ctx context.Context, path string) (library.Song, error)
	Extract(ctx context.Context, url string) (library.Song, error)

	HasCookies(ctx context.Context) (bool, error)
	SaveCookies(ctx context.Context, content string) error
	DeleteCookies(ctx context.Context) error

	Close() error
}

type remoteBackend struct {
	*remote.Client
}

func (remoteBackend) Close() error { return nil }

// localBackend serves one account of the local database, the way the server
// would, without going through HTTP.
type localBackend struct {
	library.Store
	player.LocalResolver
	*suggest.Gemini

	conn      *sql.DB
	extractor *extract.Service
	accountID int64
	audioDir  string
}

func openLocal(cfg *config.Config, logger *log.Logger) (*localBackend, error) {
	conn, err := db.Open(cfg.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	srv := cfg.GetServerConfig()
	cc := cfg.GetClientConfig()
	return &localBackend{
		Store:     library.NewSQLStore(conn).ForAccount(cc.AccountID),
		Gemini:    newSuggester(cfg, logger),
		conn:      conn,
		extractor: newExtractor(cfg, srv.AudioDir, logger),
		accountID: cc.AccountID,
		audioDir:  srv.AudioDir,
	}, nil
}

func newExtractor(cfg *config.Config, audioDir string, logger *log.Logger) *extract.Service {
	yt := cfg.GetYouTubeConfig()
	info, download := yt.Timeouts()
	return extract.New(extract.Options{
		Binary:          yt.Binary,
		AudioDir:        audioDir,
		CookiesPath:     yt.CookiesPath,
		InfoTimeout:     info,
		DownloadTimeout: download,
	}, logging.With(logger, "component", "extract"))
}

func newSuggester(cfg *config.Config, logger *log.Logger) *suggest.Gemini {
	v := cfg.GetVibeConfig()
	return suggest.NewGemini(suggest.Options{
		APIKey:         v.APIKey,
		Model:          v.Model,
		Endpoint:       v.Endpoint,
		MaxSuggestions: v.MaxSuggestions,
	}, logging.With(logger, "component", "vibe"))
}

// Upload copies the file into the audio directory and adds it to the library.
func (b *localBackend) Upload(ctx context.Context, path string) (library.Song, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !player.SupportedExt(ext) {
		return library.Song{}, fmt.Errorf("unsupported audio format %q: %w", ext, errmsg.ErrValidation)
	}
	if err := os.MkdirAll(b.audioDir, 0o755); err != nil {
		return library.Song{}, err
	}
	dest := filepath.Join(b.audioDir, fmt.Sprintf("%d_%d%s", b.accountID, time.Now().UnixNano(), ext))
	if err := copyFile(path, dest); err != nil {
		return library.Song{}, err
	}

	meta, err := tags.ReadFile(path)
	if err != nil {
		meta = tags.Tag{}
	}
	meta.Fill(filepath.Base(path))

	duration, err := player.ProbeDuration(dest)
	if err != nil {
		_ = os.Remove(dest)
		return library.Song{}, fmt.Errorf("could not decode audio file: %w", errmsg.ErrValidation)
	}

	song, err := b.Create(ctx, library.Song{
		Title:        meta.Title,
		Artist:       meta.Artist,
		Album:        meta.Album,
		Genre:        meta.Genre,
		AudioLocator: dest,
		Duration:     duration,
		SourceType:   library.SourceUpload,
	})
	if err != nil {
		_ = os.Remove(dest)
		return library.Song{}, err
	}
	return song, nil
}

func (b *localBackend) Extract(ctx context.Context, url string) (library.Song, error) {
	res, err := b.extractor.Extract(ctx, url, b.accountID)
	if err != nil {
		return library.Song{}, err
	}
	return b.Create(ctx, library.Song{
		Title:        res.Title,
		Artist:       res.Artist,
		CoverURL:     res.Thumbnail,
		AudioLocator: res.AudioPath,
		Duration:     res.Duration,
		SourceType:   library.SourceYouTube,
		SourceURL:    url,
	})
}

func (b *localBackend) HasCookies(context.Context) (bool, error) {
	return b.extractor.HasCookies(), nil
}

func (b *localBackend) SaveCookies(_ context.Context, content string) error {
	return b.extractor.SaveCookies(content)
}

func (b *localBackend) DeleteCookies(context.Context) error {
	return b.extractor.DeleteCookies()
}

func (b *localBackend) Close() error {
	return b.conn.Close()
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return err
	}
	return out.Close()
}
