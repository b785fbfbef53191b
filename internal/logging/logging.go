// Package logging builds the structured loggers used across vibeflow.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

const appName = "vibeflow"

// New creates a [log.Logger] writing to w with timestamps and caller reporting.
// The writer defaults to [os.Stderr]. An unknown level name falls back to info.
func New(w io.Writer, level string) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	l := log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// With creates a child logger with the given key-value pairs on every entry.
func With(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// OpenFile opens (or creates) the client log file under the XDG state directory.
// The terminal player logs there so output does not corrupt the TUI.
func OpenFile() (*os.File, error) {
	path, err := xdg.StateFile(filepath.Join(appName, "vibeflow.log"))
	if err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
