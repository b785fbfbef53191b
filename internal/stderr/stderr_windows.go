//go:build windows

// Package stderr is a no-op on Windows, whose audio backend does not write to
// the console.
package stderr

import "github.com/charmbracelet/log"

func Start(*log.Logger) error { return nil }

func Stop() {}
