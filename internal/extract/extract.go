// Package extract downloads the audio track of a YouTube video with yt-dlp.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/singleflight"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/tags"
)

// Errors returned by Extract. Test with errors.Is.
var (
	ErrBotCheck      = fmt.Errorf("YouTube requires authentication, upload a cookies.txt file from your browser to enable downloads: %w", errmsg.ErrExternalAuthRequired)
	ErrAgeRestricted = fmt.Errorf("this video is age-restricted, upload cookies from a logged-in YouTube account: %w", errmsg.ErrExternalAuthRequired)
	ErrUnavailable   = fmt.Errorf("this video is unavailable or private: %w", errmsg.ErrNotFound)
	ErrFailed        = errors.New("failed to extract audio, check the URL and try again")
	ErrNoOutput      = errors.New("audio file was not created")
	ErrEmptyURL      = fmt.Errorf("URL is required: %w", errmsg.ErrValidation)
)

const (
	defaultArtist = "YouTube Import"
	defaultTitle  = "Unknown Title"

	// Separates the fields of the metadata print template.
	fieldSep     = "|||"
	infoTemplate = "%(title)s" + fieldSep + "%(uploader)s" + fieldSep + "%(duration)s" + fieldSep + "%(thumbnail)s"
)

// Result describes an extracted track.
type Result struct {
	Title     string
	Artist    string
	Duration  time.Duration
	Thumbnail string
	AudioPath string
}

// Options configures a Service.
type Options struct {
	Binary          string // yt-dlp executable
	AudioDir        string // where extracted mp3 files are written
	CookiesPath     string // Netscape cookies file passed to yt-dlp when valid
	InfoTimeout     time.Duration
	DownloadTimeout time.Duration
}

// Service runs yt-dlp. Concurrent requests for the same account and URL
// share one extraction.
type Service struct {
	opts   Options
	logger *log.Logger
	group  singleflight.Group

	now         func() time.Time
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates an extraction service.
func New(opts Options, logger *log.Logger) *Service {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.InfoTimeout <= 0 {
		opts.InfoTimeout = 60 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 5 * time.Minute
	}
	return &Service{
		opts:        opts,
		logger:      logger,
		now:         time.Now,
		execCommand: exec.CommandContext,
	}
}

// Available reports whether the yt-dlp binary can be found.
func (s *Service) Available() bool {
	_, err := exec.LookPath(s.opts.Binary)
	return err == nil
}

// Extract downloads rawURL as mp3 into the audio directory on behalf of accountID.
func (s *Service) Extract(ctx context.Context, rawURL string, accountID int64) (Result, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Result{}, ErrEmptyURL
	}

	key := strconv.FormatInt(accountID, 10) + "|" + rawURL
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.extract(ctx, rawURL, accountID)
	})
	if shared {
		s.logger.Debug("extraction shared with in-flight request", "url", rawURL)
	}
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (s *Service) extract(ctx context.Context, rawURL string, accountID int64) (Result, error) {
	if err := os.MkdirAll(s.opts.AudioDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create audio dir: %w", err)
	}

	tempID := fmt.Sprintf("%d_%d", accountID, s.now().UnixNano())
	outputTemplate := filepath.Join(s.opts.AudioDir, tempID+".%(ext)s")
	cookieArgs := s.cookieArgs()
	start := time.Now()

	infoArgs := append(slices.Clone(cookieArgs), "--no-warnings", "--print", infoTemplate, rawURL)
	out, err := s.run(ctx, s.opts.InfoTimeout, infoArgs...)
	if err != nil {
		return Result{}, err
	}
	info := parseInfo(out)

	dlArgs := append(slices.Clone(cookieArgs),
		"-x", "--audio-format", "mp3", "--audio-quality", "0",
		"-o", outputTemplate, rawURL)
	if _, err := s.run(ctx, s.opts.DownloadTimeout, dlArgs...); err != nil {
		return Result{}, err
	}

	audioPath, err := locateOutput(s.opts.AudioDir, tempID)
	if err != nil {
		return Result{}, err
	}

	artist, title := splitTitle(info.title, info.uploader)
	thumbnail := info.thumbnail
	if thumbnail == "" {
		thumbnail = fmt.Sprintf("https://picsum.photos/seed/%s/200/200", tempID)
	}

	if err := tags.WriteMP3(audioPath, tags.Tag{Title: title, Artist: artist}); err != nil {
		// The audio is usable without tags
		s.logger.Warn("tag extracted audio", "path", audioPath, "err", err)
	}

	if fi, err := os.Stat(audioPath); err == nil {
		s.logger.Info("audio extracted",
			"title", title,
			"artist", artist,
			"size", humanize.Bytes(uint64(fi.Size())), //nolint:gosec // file sizes are non-negative
			"took", time.Since(start).Round(time.Millisecond))
	}

	return Result{
		Title:     title,
		Artist:    artist,
		Duration:  info.duration,
		Thumbnail: thumbnail,
		AudioPath: audioPath,
	}, nil
}

// run executes yt-dlp with a timeout and classifies its failure.
func (s *Service) run(ctx context.Context, timeout time.Duration, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := s.execCommand(ctx, s.opts.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			s.logger.Error("yt-dlp timed out", "timeout", timeout)
		}
		s.logger.Error("yt-dlp failed", "err", err, "stderr", strings.TrimSpace(stderr.String()))
		return "", classify(err.Error() + "\n" + stderr.String())
	}
	return stdout.String(), nil
}

// classify maps yt-dlp output to one of the package errors.
func classify(output string) error {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "confirm you're not a bot"), strings.Contains(lower, "confirm you’re not a bot"):
		return ErrBotCheck
	case strings.Contains(lower, "video unavailable"):
		return ErrUnavailable
	case strings.Contains(lower, "age-restricted"):
		return ErrAgeRestricted
	}
	return ErrFailed
}

type info struct {
	title     string
	uploader  string
	duration  time.Duration
	thumbnail string
}

// parseInfo parses the output of the metadata print template.
func parseInfo(out string) info {
	line := strings.TrimSpace(out)
	// A playlist URL prints one line per entry; use the first
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	parts := strings.Split(line, fieldSep)
	field := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		v := strings.TrimSpace(parts[i])
		if v == "NA" {
			return ""
		}
		return v
	}

	var d time.Duration
	if secs, err := strconv.ParseFloat(field(2), 64); err == nil && secs > 0 {
		d = time.Duration(secs) * time.Second
	}
	return info{
		title:     field(0),
		uploader:  field(1),
		duration:  d,
		thumbnail: field(3),
	}
}

// splitTitle derives artist and title. "Artist - Title" video titles are
// split; otherwise the uploader channel name is used as artist.
func splitTitle(rawTitle, uploader string) (artist, title string) {
	artist, title = defaultArtist, rawTitle
	if title == "" {
		title = defaultTitle
	}

	if before, after, ok := strings.Cut(rawTitle, " - "); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	if uploader != "" {
		a := strings.TrimSuffix(uploader, " - Topic")
		if strings.HasSuffix(strings.ToUpper(a), "VEVO") {
			a = a[:len(a)-len("VEVO")]
		}
		if a = strings.TrimSpace(a); a != "" {
			artist = a
		}
	}
	return artist, title
}

// locateOutput finds the file yt-dlp produced for tempID and renames it to
// <tempID>.mp3 when the extension differs.
func locateOutput(dir, tempID string) (string, error) {
	want := filepath.Join(dir, tempID+".mp3")
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, tempID+".*"))
	if err != nil || len(matches) == 0 {
		return "", ErrNoOutput
	}
	if err := os.Rename(matches[0], want); err != nil {
		return "", fmt.Errorf("rename output: %w", err)
	}
	return want, nil
}
