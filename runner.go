package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/llehouerou/vibeflow/internal/account"
	"github.com/llehouerou/vibeflow/internal/app"
	"github.com/llehouerou/vibeflow/internal/config"
	"github.com/llehouerou/vibeflow/internal/db"
	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/librarysync"
	"github.com/llehouerou/vibeflow/internal/logging"
	"github.com/llehouerou/vibeflow/internal/playback"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/remote"
	"github.com/llehouerou/vibeflow/internal/server"
	"github.com/llehouerou/vibeflow/internal/stderr"
	"github.com/llehouerou/vibeflow/internal/suggest"
	"github.com/llehouerou/vibeflow/internal/ui/render"
)

var errNotLoggedIn = fmt.Errorf("not logged in, run `vibeflow login` first: %w", errmsg.ErrNotAuthenticated)

// runner holds what every command needs once the config is loaded.
type runner struct {
	cfg    *config.Config
	logger *log.Logger
}

func (r *runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error
	if path := cmd.String("config"); path != "" {
		r.cfg, err = config.LoadFile(path)
	} else {
		r.cfg, err = config.Load()
	}
	if err != nil {
		return ctx, fmt.Errorf("load config: %w", err)
	}
	r.logger = logging.New(os.Stderr, r.cfg.LogLevel)
	return ctx, nil
}

func (r *runner) local(cmd *cli.Command) bool {
	return cmd.Bool("local") || r.cfg.Client.Local
}

func (r *runner) serve(ctx context.Context, cmd *cli.Command) error {
	srv := r.cfg.GetServerConfig()
	if addr := cmd.String("addr"); addr != "" {
		srv.Addr = addr
	}
	if r.cfg.Server.SessionSecret == "" {
		r.logger.Warn("server.session_secret is not set, using the built-in development secret")
	}

	conn, err := db.Open(r.cfg.GetDatabasePath())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	if err := os.MkdirAll(srv.AudioDir, 0o755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	extractor := newExtractor(r.cfg, srv.AudioDir, r.logger)
	if !extractor.Available() {
		r.logger.Warn("yt-dlp not found, YouTube import will fail", "binary", r.cfg.GetYouTubeConfig().Binary)
	}
	if !r.cfg.HasVibeConfig() {
		r.logger.Warn("no Gemini API key, vibe mixes fall back to library order")
	}

	api := server.New(
		account.NewService(conn, srv.SessionSecret, srv.SessionDuration()),
		library.NewSQLStore(conn),
		extractor,
		newSuggester(r.cfg, r.logger),
		server.Options{
			Addr:         srv.Addr,
			AudioDir:     srv.AudioDir,
			SessionTTL:   srv.SessionDuration(),
			SecureCookie: srv.SecureCookie,
			MaxUploadMB:  srv.MaxUploadMB,
			LoginPerMin:  srv.LoginPerMin,
		},
		logging.With(r.logger, "component", "server"),
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return api.Run(ctx)
}

func sessionPath() (string, error) {
	return xdg.StateFile(filepath.Join("vibeflow", "session"))
}

// client builds a server client with the saved session, if any.
func (r *runner) client(cmd *cli.Command) (*remote.Client, error) {
	cc := r.cfg.GetClientConfig()
	c, err := remote.NewClient(cmp.Or(cmd.String("server"), cc.ServerURL), cc.CacheDir, r.logger)
	if err != nil {
		return nil, err
	}
	path, err := sessionPath()
	if err != nil {
		return nil, err
	}
	if err := c.LoadSession(path); err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return c, nil
}

// authedClient returns a client with a live session. An expired session is
// renewed from client.email and VIBEFLOW_PASSWORD when both are set.
func (r *runner) authedClient(ctx context.Context, cmd *cli.Command) (*remote.Client, error) {
	c, err := r.client(cmd)
	if err != nil {
		return nil, err
	}
	me, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	if me != nil {
		return c, nil
	}

	email := r.cfg.GetClientConfig().Email
	password := os.Getenv("VIBEFLOW_PASSWORD")
	if email == "" || password == "" {
		return nil, errNotLoggedIn
	}
	if _, err := c.Login(ctx, email, password); err != nil {
		return nil, err
	}
	return c, saveSession(c)
}

func saveSession(c *remote.Client) error {
	path, err := sessionPath()
	if err != nil {
		return err
	}
	return c.SaveSession(path)
}

// backend opens the library the client commands work against.
func (r *runner) backend(ctx context.Context, cmd *cli.Command, logger *log.Logger) (backend, error) {
	if r.local(cmd) {
		b, err := openLocal(r.cfg, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	c, err := r.authedClient(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return remoteBackend{c}, nil
}

func (r *runner) credentials(cmd *cli.Command) (email, password string, err error) {
	email = cmp.Or(cmd.String("email"), r.cfg.GetClientConfig().Email)
	password = cmd.String("password")
	if email == "" || password == "" {
		return "", "", fmt.Errorf("--email and --password (or VIBEFLOW_PASSWORD) are required: %w", errmsg.ErrValidation)
	}
	return email, password, nil
}

func (r *runner) signup(ctx context.Context, cmd *cli.Command) error {
	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	if r.local(cmd) {
		conn, err := db.Open(r.cfg.GetDatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer conn.Close()
		srv := r.cfg.GetServerConfig()
		acct, err := account.NewService(conn, srv.SessionSecret, srv.SessionDuration()).
			Signup(ctx, email, password, cmd.String("name"))
		if err != nil {
			return errmsg.Wrap(errmsg.OpSignup, err)
		}
		fmt.Printf("Created account %d for %s. Set client.account_id = %d to use it locally.\n", acct.ID, acct.Email, acct.ID)
		return nil
	}

	c, err := r.client(cmd)
	if err != nil {
		return err
	}
	acct, err := c.Signup(ctx, email, password, cmd.String("name"))
	if err != nil {
		return errmsg.Wrap(errmsg.OpSignup, err)
	}
	if err := saveSession(c); err != nil {
		return err
	}
	fmt.Printf("Welcome, %s!\n", acct.DisplayName)
	return nil
}

func (r *runner) login(ctx context.Context, cmd *cli.Command) error {
	email, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}
	c, err := r.client(cmd)
	if err != nil {
		return err
	}
	acct, err := c.Login(ctx, email, password)
	if err != nil {
		return errmsg.Wrap(errmsg.OpLogin, err)
	}
	if err := saveSession(c); err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", acct.DisplayName)
	return nil
}

func (r *runner) logout(ctx context.Context, cmd *cli.Command) error {
	c, err := r.client(cmd)
	if err != nil {
		return err
	}
	if err := c.Logout(ctx); err != nil && !errors.Is(err, errmsg.ErrNotAuthenticated) {
		return errmsg.Wrap(errmsg.OpLogout, err)
	}
	path, err := sessionPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Println("Logged out")
	return nil
}

// play runs the terminal player. Logs go to a file so they don't corrupt
// the screen, and so does whatever the audio libraries print on stderr.
func (r *runner) play(ctx context.Context, cmd *cli.Command) error {
	f, err := logging.OpenFile()
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	logger := logging.New(f, r.cfg.LogLevel)
	r.logger = logger

	b, err := r.backend(ctx, cmd, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := stderr.Start(logger); err != nil {
		logger.Warn("stderr capture unavailable", "err", err)
	}
	defer stderr.Stop()

	lib := librarysync.New(b, logging.With(logger, "component", "library"))
	engine := player.New(b, logging.With(logger, "component", "player"))
	ctrl := playback.New(engine, lib, logging.With(logger, "component", "playback"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx) }()

	model := app.New(app.Options{
		Controller: ctrl,
		Suggester:  b,
		Logger:     logging.With(logger, "component", "ui"),
		Context:    ctx,
	})
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()

	if cerr := ctrl.Close(); cerr != nil {
		logger.Warn("close controller", "err", cerr)
	}
	if rerr := <-done; rerr != nil && !errors.Is(rerr, context.Canceled) {
		logger.Error("playback loop", "err", rerr)
	}
	return err
}

func (r *runner) songs(ctx context.Context, cmd *cli.Command) error {
	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	songs, err := b.List(ctx)
	if err != nil {
		return errmsg.Wrap(errmsg.OpLibraryLoad, err)
	}
	if len(songs) == 0 {
		fmt.Println("No songs yet.")
		return nil
	}
	printSongs(songs)
	return nil
}

func printSongs(songs []library.Song) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, s := range songs {
		fav := " "
		if s.IsFavorite {
			fav = "♥"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, fav, render.Clean(s.DisplayName()), render.Duration(s.Duration), humanize.Time(s.AddedAt))
	}
	w.Flush()
}

func (r *runner) importSong(ctx context.Context, cmd *cli.Command) error {
	target := cmd.Args().First()
	if target == "" {
		return fmt.Errorf("a file path or URL is required: %w", errmsg.ErrValidation)
	}

	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	var song library.Song
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		fmt.Println("Extracting audio, this can take a few minutes...")
		song, err = b.Extract(ctx, target)
		if err != nil {
			return errmsg.Wrap(errmsg.OpExtract, err)
		}
	} else {
		song, err = b.Upload(ctx, target)
		if err != nil {
			return errmsg.Wrap(errmsg.OpSongUpload, err)
		}
	}
	fmt.Printf("Added %s (%s)\n", song.DisplayName(), render.Duration(song.Duration))
	return nil
}

func (r *runner) vibe(ctx context.Context, cmd *cli.Command) error {
	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	songs, err := b.List(ctx)
	if err != nil {
		return errmsg.Wrap(errmsg.OpLibraryLoad, err)
	}

	var history []library.Song
	if ids := cmd.Args().Slice(); len(ids) > 0 {
		history = suggest.Resolve(ids, songs)
	} else {
		for _, s := range songs {
			if s.IsFavorite {
				history = append(history, s)
			}
		}
	}

	sug, err := b.Suggest(ctx, history, songs)
	if err != nil {
		return errmsg.Wrap(errmsg.OpVibe, err)
	}
	fmt.Printf("%s\n%s\n\n", sug.Mood, sug.Reasoning)
	picks := suggest.Resolve(sug.SongIDs, songs)
	if len(picks) == 0 {
		fmt.Println("No songs match this vibe.")
		return nil
	}
	printSongs(picks)
	return nil
}

func (r *runner) cookiesStatus(ctx context.Context, cmd *cli.Command) error {
	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	ok, err := b.HasCookies(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("YouTube cookies are stored.")
	} else {
		fmt.Println("No YouTube cookies stored.")
	}
	return nil
}

func (r *runner) cookiesSet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return fmt.Errorf("a cookies.txt path is required: %w", errmsg.ErrValidation)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.SaveCookies(ctx, string(content)); err != nil {
		return errmsg.Wrap(errmsg.OpCookiesSave, err)
	}
	fmt.Println("Cookies saved.")
	return nil
}

func (r *runner) cookiesDelete(ctx context.Context, cmd *cli.Command) error {
	b, err := r.backend(ctx, cmd, r.logger)
	if err != nil {
		return err
	}
	defer b.Close()

	if err := b.DeleteCookies(ctx); err != nil {
		return errmsg.Wrap(errmsg.OpCookiesDelete, err)
	}
	fmt.Println("Cookies deleted.")
	return nil
}
