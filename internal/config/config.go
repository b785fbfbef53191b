package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "vibeflow"

type Config struct {
	LogLevel string `koanf:"log_level"` // "debug", "info", "warn", "error"

	// HTTP API server
	Server ServerConfig `koanf:"server"`

	// SQLite library database
	Database DatabaseConfig `koanf:"database"`

	// yt-dlp extraction
	YouTube YouTubeConfig `koanf:"youtube"`

	// Gemini vibe suggestions (enabled when api_key is set)
	Vibe VibeConfig `koanf:"vibe"`

	// Terminal player
	Client ClientConfig `koanf:"client"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr          string `koanf:"addr"`           // e.g., "0.0.0.0:3001"
	AudioDir      string `koanf:"audio_dir"`      // where uploaded and extracted audio lives
	SessionSecret string `koanf:"session_secret"` // HMAC key for session tokens
	SessionTTL    string `koanf:"session_ttl"`    // Go duration, default 720h
	SecureCookie  bool   `koanf:"secure_cookie"`  // set the Secure flag on the session cookie
	MaxUploadMB   int    `koanf:"max_upload_mb"`  // upload size limit (default: 100)
	LoginPerMin   int    `koanf:"login_per_min"`  // auth attempts per client per minute (default: 10)
}

// DatabaseConfig holds the library database location.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// YouTubeConfig holds extraction settings.
type YouTubeConfig struct {
	Binary          string `koanf:"binary"`           // yt-dlp executable (default: "yt-dlp")
	CookiesPath     string `koanf:"cookies_path"`     // Netscape cookies file
	InfoTimeout     string `koanf:"info_timeout"`     // default 60s
	DownloadTimeout string `koanf:"download_timeout"` // default 5m
}

// VibeConfig holds the suggestion service settings.
type VibeConfig struct {
	APIKey         string `koanf:"api_key"`
	Model          string `koanf:"model"`           // default "gemini-2.5-flash"
	Endpoint       string `koanf:"endpoint"`        // API base URL override
	MaxSuggestions int    `koanf:"max_suggestions"` // default 5
}

// ClientConfig holds the terminal player settings.
type ClientConfig struct {
	ServerURL string `koanf:"server_url"` // e.g., "http://localhost:3001"
	Email     string `koanf:"email"`
	Local     bool   `koanf:"local"`      // use the local database instead of a server
	AccountID int64  `koanf:"account_id"` // account used in local mode
	CacheDir  string `koanf:"cache_dir"`  // downloaded audio cache
}

// Load reads the config files in priority order (last wins).
func Load() (*Config, error) {
	return load(getConfigPaths())
}

// LoadFile reads a single explicit config file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	return load([]string{expandPath(path)})
}

func load(paths []string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{LogLevel: "info"}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Server.AudioDir = expandPath(cfg.Server.AudioDir)
	cfg.Database.Path = expandPath(cfg.Database.Path)
	cfg.YouTube.CookiesPath = expandPath(cfg.YouTube.CookiesPath)
	cfg.Client.CacheDir = expandPath(cfg.Client.CacheDir)

	// Normalize URLs (remove trailing slash)
	cfg.Client.ServerURL = strings.TrimSuffix(cfg.Client.ServerURL, "/")
	cfg.Vibe.Endpoint = strings.TrimSuffix(cfg.Vibe.Endpoint, "/")

	// Secrets may come from the environment instead of the file
	if cfg.Server.SessionSecret == "" {
		cfg.Server.SessionSecret = os.Getenv("VIBEFLOW_SESSION_SECRET")
	}
	if cfg.Vibe.APIKey == "" {
		cfg.Vibe.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/vibeflow/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasVibeConfig returns true if Gemini suggestions are configured.
func (c *Config) HasVibeConfig() bool {
	return c.Vibe.APIKey != ""
}

// GetServerConfig returns the server configuration with defaults applied.
func (c *Config) GetServerConfig() ServerConfig {
	cfg := c.Server

	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:3001"
	}
	if cfg.AudioDir == "" {
		cfg.AudioDir = filepath.Join(xdg.DataHome, appName, "audio")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = "vibeflow-secret-key-change-in-production"
	}
	if _, err := time.ParseDuration(cfg.SessionTTL); err != nil {
		cfg.SessionTTL = "720h"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 100
	}
	if cfg.LoginPerMin <= 0 {
		cfg.LoginPerMin = 10
	}

	return cfg
}

// SessionDuration returns the parsed session lifetime.
func (s ServerConfig) SessionDuration() time.Duration {
	d, err := time.ParseDuration(s.SessionTTL)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

// GetDatabasePath returns the database path, defaulting to the XDG data dir.
func (c *Config) GetDatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(xdg.DataHome, appName, appName+".db")
}

// GetYouTubeConfig returns the extraction configuration with defaults applied.
func (c *Config) GetYouTubeConfig() YouTubeConfig {
	cfg := c.YouTube

	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.CookiesPath == "" {
		cfg.CookiesPath = filepath.Join(xdg.DataHome, appName, "cookies.txt")
	}
	if _, err := time.ParseDuration(cfg.InfoTimeout); err != nil {
		cfg.InfoTimeout = "60s"
	}
	if _, err := time.ParseDuration(cfg.DownloadTimeout); err != nil {
		cfg.DownloadTimeout = "5m"
	}

	return cfg
}

// Timeouts returns the parsed metadata and download timeouts.
func (y YouTubeConfig) Timeouts() (info, download time.Duration) {
	info, err := time.ParseDuration(y.InfoTimeout)
	if err != nil {
		info = 60 * time.Second
	}
	download, err = time.ParseDuration(y.DownloadTimeout)
	if err != nil {
		download = 5 * time.Minute
	}
	return info, download
}

// GetVibeConfig returns the suggestion configuration with defaults applied.
func (c *Config) GetVibeConfig() VibeConfig {
	cfg := c.Vibe

	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.MaxSuggestions <= 0 || cfg.MaxSuggestions > 20 {
		cfg.MaxSuggestions = 5
	}

	return cfg
}

// GetClientConfig returns the terminal player configuration with defaults applied.
func (c *Config) GetClientConfig() ClientConfig {
	cfg := c.Client

	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:3001"
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = filepath.Join(xdg.CacheHome, appName, "audio")
	}
	if cfg.AccountID <= 0 {
		cfg.AccountID = 1
	}

	return cfg
}
