//nolint:goconst // test cases intentionally repeat strings for readability
package errmsg

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpLibraryDelete,
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with operation",
			op:       OpLibraryDelete,
			err:      errors.New("file not found"),
			expected: "Failed to delete song: file not found",
		},
		{
			name:     "favorite operation",
			op:       OpFavoriteToggle,
			err:      errors.New("network error"),
			expected: "Failed to update favorite: network error",
		},
		{
			name:     "extract operation",
			op:       OpExtract,
			err:      errors.New("video unavailable"),
			expected: "Failed to extract audio: video unavailable",
		},
		{
			name:     "playback operation",
			op:       OpPlaybackStart,
			err:      errors.New("no audio device"),
			expected: "Failed to start playback: no audio device",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.op, tt.err)
			if result != tt.expected {
				t.Errorf("Format(%q, %v) = %q, want %q", tt.op, tt.err, result, tt.expected)
			}
		})
	}
}

func TestFormatWith(t *testing.T) {
	tests := []struct {
		name     string
		op       Op
		context  string
		err      error
		expected string
	}{
		{
			name:     "nil error returns empty string",
			op:       OpSongUpload,
			context:  "song.mp3",
			err:      nil,
			expected: "",
		},
		{
			name:     "formats error with context",
			op:       OpSongUpload,
			context:  "song.mp3",
			err:      errors.New("unsupported format"),
			expected: "Failed to upload song 'song.mp3': unsupported format",
		},
		{
			name:     "empty context falls back to Format",
			op:       OpSongUpload,
			context:  "",
			err:      errors.New("unsupported format"),
			expected: "Failed to upload song: unsupported format",
		},
		{
			name:     "extract with url context",
			op:       OpExtract,
			context:  "https://youtu.be/x",
			err:      errors.New("timeout"),
			expected: "Failed to extract audio 'https://youtu.be/x': timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatWith(tt.op, tt.context, tt.err)
			if result != tt.expected {
				t.Errorf("FormatWith(%q, %q, %v) = %q, want %q", tt.op, tt.context, tt.err, result, tt.expected)
			}
		})
	}
}

func TestOpConstants(t *testing.T) {
	ops := []Op{
		OpLibraryLoad, OpLibraryDelete, OpSongCreate, OpSongUpload,
		OpFavoriteToggle,
		OpPlaybackStart, OpPlaybackSeek,
		OpSignup, OpLogin, OpLogout,
		OpExtract, OpCookiesSave, OpCookiesDelete,
		OpVibe,
		OpInitialize,
	}

	testErr := errors.New("test error")

	for _, op := range ops {
		t.Run(string(op), func(t *testing.T) {
			if op == "" {
				t.Error("Op constant should not be empty")
			}

			expected := "Failed to " + string(op) + ": test error"
			if result := Format(op, testErr); result != expected {
				t.Errorf("Format = %q, want %q", result, expected)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain error", errors.New("boom"), nil},
		{"direct sentinel", ErrNotFound, ErrNotFound},
		{"wrapped sentinel", fmt.Errorf("song abc: %w", ErrNotFound), ErrNotFound},
		{"auth required", fmt.Errorf("yt-dlp: %w", ErrExternalAuthRequired), ErrExternalAuthRequired},
		{"not authenticated", fmt.Errorf("list: %w", ErrNotAuthenticated), ErrNotAuthenticated},
		{"validation", fmt.Errorf("signup: %w", ErrValidation), ErrValidation},
		{"remote", fmt.Errorf("GET /api/songs: %w", ErrRemoteUnavailable), ErrRemoteUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Kind(tt.err); !errors.Is(got, tt.want) || (got == nil) != (tt.want == nil) {
				t.Errorf("Kind(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if err := Wrap(OpVibe, nil); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}

	cause := fmt.Errorf("quota: %w", ErrRemoteUnavailable)
	err := Wrap(OpVibe, cause)
	if got, want := err.Error(), Format(OpVibe, cause); got != want {
		t.Errorf("Wrap().Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("Wrap() should keep %v in the chain", ErrRemoteUnavailable)
	}
}
