// Package server exposes the song library over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/llehouerou/vibeflow/internal/account"
	"github.com/llehouerou/vibeflow/internal/extract"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

// SessionCookie carries the signed session token.
const SessionCookie = "vibeflow_session"

// Extractor imports audio from a URL and manages the credentials it needs.
type Extractor interface {
	Extract(ctx context.Context, url string, accountID int64) (extract.Result, error)
	HasCookies() bool
	SaveCookies(content string) error
	DeleteCookies() error
}

// Verify the yt-dlp service satisfies Extractor at compile time.
var _ Extractor = (*extract.Service)(nil)

// Options configures the HTTP surface.
type Options struct {
	Addr         string
	AudioDir     string
	SessionTTL   time.Duration
	SecureCookie bool
	MaxUploadMB  int
	LoginPerMin  int
}

// Server holds the API dependencies.
type Server struct {
	accounts  *account.Service
	songs     *library.SQLStore
	extractor Extractor
	suggester suggest.Service
	opts      Options
	logger    *log.Logger
	limiter   *limiter
}

// New creates an API server.
func New(accounts *account.Service, songs *library.SQLStore, extractor Extractor, suggester suggest.Service, opts Options, logger *log.Logger) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 100
	}
	if opts.LoginPerMin <= 0 {
		opts.LoginPerMin = 10
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 30 * 24 * time.Hour
	}
	return &Server{
		accounts:  accounts,
		songs:     songs,
		extractor: extractor,
		suggester: suggester,
		opts:      opts,
		logger:    logger,
		limiter:   newLimiter(opts.LoginPerMin),
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", s.rateLimit(), s.signup)
	auth.POST("/login", s.rateLimit(), s.login)
	auth.POST("/logout", s.logout)
	auth.GET("/me", s.me)

	songs := api.Group("/songs", s.requireAuth())
	songs.GET("", s.listSongs)
	songs.POST("", s.createSong)
	songs.POST("/upload", s.uploadSong)
	songs.POST("/:id/favorite", s.setFavorite)
	songs.DELETE("/:id", s.deleteSong)

	yt := api.Group("/youtube", s.requireAuth())
	yt.POST("/extract", s.extractSong)
	yt.GET("/cookies", s.getCookies)
	yt.POST("/cookies", s.saveCookies)
	yt.DELETE("/cookies", s.deleteCookies)

	api.POST("/vibe", s.requireAuth(), s.vibe)

	r.GET("/audio/:file", s.requireAuth(), s.serveAudio)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.opts.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
