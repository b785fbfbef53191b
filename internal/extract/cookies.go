package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/llehouerou/vibeflow/internal/errmsg"
)

// ErrInvalidCookies is returned when saved content holds no YouTube cookies.
var ErrInvalidCookies = fmt.Errorf("invalid cookies file, must contain YouTube cookies: %w", errmsg.ErrValidation)

// validCookies reports whether content looks like a Netscape cookies file
// with YouTube entries.
func validCookies(content string) bool {
	return strings.Contains(content, "\t") && strings.Contains(content, "youtube.com")
}

// HasCookies reports whether a usable cookies file is stored.
func (s *Service) HasCookies() bool {
	if s.opts.CookiesPath == "" {
		return false
	}
	data, err := os.ReadFile(s.opts.CookiesPath)
	if err != nil {
		return false
	}
	return validCookies(string(data))
}

// SaveCookies stores content as the cookies file passed to yt-dlp.
func (s *Service) SaveCookies(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("cookies content is required: %w", errmsg.ErrValidation)
	}
	if !strings.Contains(content, "youtube.com") {
		return ErrInvalidCookies
	}
	if s.opts.CookiesPath == "" {
		return errors.New("no cookies path configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.opts.CookiesPath), 0o700); err != nil {
		return fmt.Errorf("create cookies dir: %w", err)
	}
	if err := os.WriteFile(s.opts.CookiesPath, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write cookies: %w", err)
	}
	s.logger.Info("cookies saved", "path", s.opts.CookiesPath)
	return nil
}

// DeleteCookies removes the cookies file. A missing file is not an error.
func (s *Service) DeleteCookies() error {
	if s.opts.CookiesPath == "" {
		return nil
	}
	if err := os.Remove(s.opts.CookiesPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete cookies: %w", err)
	}
	return nil
}

// cookieArgs returns the --cookies flag when a valid cookies file exists.
func (s *Service) cookieArgs() []string {
	if !s.HasCookies() {
		return nil
	}
	return []string{"--cookies", s.opts.CookiesPath}
}
