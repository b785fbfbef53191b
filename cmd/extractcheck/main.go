// Diagnostic program: extract one YouTube URL with the configured yt-dlp and
// report what vibeflow would store for it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/llehouerou/vibeflow/internal/config"
	"github.com/llehouerou/vibeflow/internal/extract"
	"github.com/llehouerou/vibeflow/internal/logging"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/tags"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: extractcheck <youtube-url> [out-dir]")
		os.Exit(2)
	}
	url := os.Args[1]
	outDir := os.TempDir()
	if len(os.Args) > 2 {
		outDir = os.Args[2]
	}

	logger := logging.New(os.Stderr, "debug")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", "err", err)
	}
	yt := cfg.GetYouTubeConfig()
	info, download := yt.Timeouts()

	svc := extract.New(extract.Options{
		Binary:          yt.Binary,
		AudioDir:        outDir,
		CookiesPath:     yt.CookiesPath,
		InfoTimeout:     info,
		DownloadTimeout: download,
	}, logger)

	if !svc.Available() {
		logger.Fatal("yt-dlp not found", "binary", yt.Binary)
	}
	if svc.HasCookies() {
		logger.Info("using cookies", "path", yt.CookiesPath)
	} else {
		logger.Warn("no cookies, bot checks will fail", "path", yt.CookiesPath)
	}

	start := time.Now()
	res, err := svc.Extract(context.Background(), url, 0)
	if err != nil {
		logger.Fatal("extract", "err", err)
	}
	logger.Info("extracted", "took", time.Since(start).Round(time.Millisecond))

	fmt.Printf("Title:     %s\n", res.Title)
	fmt.Printf("Artist:    %s\n", res.Artist)
	fmt.Printf("Duration:  %s\n", res.Duration)
	fmt.Printf("Thumbnail: %s\n", res.Thumbnail)
	fmt.Printf("File:      %s\n", res.AudioPath)

	if st, err := os.Stat(res.AudioPath); err == nil {
		fmt.Printf("Size:      %s\n", humanize.Bytes(uint64(st.Size()))) //nolint:gosec // sizes are non-negative
	}

	// Read back what was written, the way an upload would see it.
	t, err := tags.ReadFile(res.AudioPath)
	if err != nil {
		logger.Warn("read tags", "err", err)
	} else {
		fmt.Printf("Tags:      %s - %s\n", t.Artist, t.Title)
	}
	d, err := player.ProbeDuration(res.AudioPath)
	if err != nil {
		logger.Warn("decode", "err", err)
	} else {
		fmt.Printf("Decoded:   %s\n", d.Round(time.Millisecond))
	}
}
