// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Library operations
	OpLibraryLoad   Op = "load library"
	OpLibraryDelete Op = "delete song"
	OpSongCreate    Op = "save song"
	OpSongUpload    Op = "upload song"

	// Favorites
	OpFavoriteToggle Op = "update favorite"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Account operations
	OpSignup Op = "create account"
	OpLogin  Op = "log in"
	OpLogout Op = "log out"

	// YouTube import
	OpExtract       Op = "extract audio"
	OpCookiesSave   Op = "save cookies"
	OpCookiesDelete Op = "delete cookies"

	// Vibe suggestions
	OpVibe Op = "analyze vibe"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}

// Wrap returns an error carrying the Format message that still matches err
// with errors.Is.
func Wrap(op Op, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("Failed to %s: %w", op, err) //nolint:staticcheck // user-facing message
}
