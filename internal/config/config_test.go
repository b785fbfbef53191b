//nolint:goconst // test cases intentionally repeat strings for readability
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/music",
			expected: filepath.Join(home, "music"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/lib/vibeflow",
			expected: "/var/lib/vibeflow",
		},
		{
			name:     "relative path unchanged",
			input:    "uploads/audio",
			expected: "uploads/audio",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Fatal("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "vibeflow", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[server]
addr = "127.0.0.1:8080"
session_secret = "s3cret"
session_ttl = "2h"

[database]
path = "/tmp/vibeflow-test.db"

[youtube]
binary = "/usr/local/bin/yt-dlp"
info_timeout = "10s"

[vibe]
api_key = "key"
model = "gemini-test"
endpoint = "http://localhost:9999/"

[client]
server_url = "http://music.local:3001/"
email = "me@example.com"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("Server.Addr = %q, want 127.0.0.1:8080", cfg.Server.Addr)
	}
	if cfg.Server.SessionSecret != "s3cret" {
		t.Errorf("Server.SessionSecret = %q, want s3cret", cfg.Server.SessionSecret)
	}
	if got := cfg.GetServerConfig().SessionDuration(); got != 2*time.Hour {
		t.Errorf("SessionDuration() = %v, want 2h", got)
	}
	if cfg.GetDatabasePath() != "/tmp/vibeflow-test.db" {
		t.Errorf("GetDatabasePath() = %q", cfg.GetDatabasePath())
	}
	if cfg.YouTube.Binary != "/usr/local/bin/yt-dlp" {
		t.Errorf("YouTube.Binary = %q", cfg.YouTube.Binary)
	}
	info, download := cfg.GetYouTubeConfig().Timeouts()
	if info != 10*time.Second {
		t.Errorf("info timeout = %v, want 10s", info)
	}
	if download != 5*time.Minute {
		t.Errorf("download timeout = %v, want 5m", download)
	}
	if !cfg.HasVibeConfig() {
		t.Error("HasVibeConfig() = false, want true")
	}
	if cfg.Vibe.Endpoint != "http://localhost:9999" {
		t.Errorf("Vibe.Endpoint = %q, want trailing slash trimmed", cfg.Vibe.Endpoint)
	}
	if cfg.Client.ServerURL != "http://music.local:3001" {
		t.Errorf("Client.ServerURL = %q, want trailing slash trimmed", cfg.Client.ServerURL)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("VIBEFLOW_SESSION_SECRET", "")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.HasVibeConfig() {
		t.Error("HasVibeConfig() = true, want false")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := writeConfig(t, "this is = = not toml")

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() error = nil, want parse error")
	}
}

func TestLoadFile_EnvSecrets(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("VIBEFLOW_SESSION_SECRET", "env-secret")
	path := writeConfig(t, `log_level = "warn"`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Vibe.APIKey != "env-key" {
		t.Errorf("Vibe.APIKey = %q, want env-key", cfg.Vibe.APIKey)
	}
	if cfg.Server.SessionSecret != "env-secret" {
		t.Errorf("Server.SessionSecret = %q, want env-secret", cfg.Server.SessionSecret)
	}
}

func TestGetServerConfig_Defaults(t *testing.T) {
	cfg := Config{Server: ServerConfig{SessionTTL: "bogus"}}

	got := cfg.GetServerConfig()

	if got.Addr != "0.0.0.0:3001" {
		t.Errorf("Addr = %q, want 0.0.0.0:3001", got.Addr)
	}
	if got.AudioDir == "" {
		t.Error("AudioDir should default to a data directory")
	}
	if got.SessionSecret == "" {
		t.Error("SessionSecret should have a default")
	}
	if got.SessionDuration() != 720*time.Hour {
		t.Errorf("SessionDuration() = %v, want 720h", got.SessionDuration())
	}
	if got.MaxUploadMB != 100 {
		t.Errorf("MaxUploadMB = %d, want 100", got.MaxUploadMB)
	}
	if got.LoginPerMin != 10 {
		t.Errorf("LoginPerMin = %d, want 10", got.LoginPerMin)
	}
}

func TestGetVibeConfig_Defaults(t *testing.T) {
	tests := []struct {
		name     string
		input    VibeConfig
		wantMax  int
		wantMdl  string
		wantBase string
	}{
		{
			name:     "all empty",
			input:    VibeConfig{},
			wantMax:  5,
			wantMdl:  "gemini-2.5-flash",
			wantBase: "https://generativelanguage.googleapis.com/v1beta",
		},
		{
			name:     "max too large",
			input:    VibeConfig{MaxSuggestions: 50},
			wantMax:  5,
			wantMdl:  "gemini-2.5-flash",
			wantBase: "https://generativelanguage.googleapis.com/v1beta",
		},
		{
			name:     "custom values kept",
			input:    VibeConfig{MaxSuggestions: 8, Model: "m", Endpoint: "http://x"},
			wantMax:  8,
			wantMdl:  "m",
			wantBase: "http://x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := (&Config{Vibe: tt.input}).GetVibeConfig()
			if got.MaxSuggestions != tt.wantMax {
				t.Errorf("MaxSuggestions = %d, want %d", got.MaxSuggestions, tt.wantMax)
			}
			if got.Model != tt.wantMdl {
				t.Errorf("Model = %q, want %q", got.Model, tt.wantMdl)
			}
			if got.Endpoint != tt.wantBase {
				t.Errorf("Endpoint = %q, want %q", got.Endpoint, tt.wantBase)
			}
		})
	}
}

func TestGetClientConfig_Defaults(t *testing.T) {
	got := (&Config{}).GetClientConfig()

	if got.ServerURL != "http://localhost:3001" {
		t.Errorf("ServerURL = %q", got.ServerURL)
	}
	if got.CacheDir == "" {
		t.Error("CacheDir should default to a cache directory")
	}
	if got.AccountID != 1 {
		t.Errorf("AccountID = %d, want 1", got.AccountID)
	}
}
