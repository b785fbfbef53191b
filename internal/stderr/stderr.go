//go:build !windows

// Package stderr redirects file descriptor 2 into the logger while the
// mini-player owns the terminal. The audio backend (ALSA through oto) writes
// there directly and would otherwise draw over the UI.
package stderr

import (
	"bufio"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/charmbracelet/log"
)

var (
	mu       sync.Mutex
	origFD   = -1
	pipeRead *os.File
	pipeW    *os.File
	done     chan struct{}
)

// Start redirects stderr until Stop. Each non-empty line is logged at warn
// level. Calling Start twice is a no-op. On failure stderr is left untouched.
func Start(logger *log.Logger) error {
	mu.Lock()
	defer mu.Unlock()
	if origFD >= 0 {
		return nil
	}

	r, w, err := os.Pipe()
	if err != nil {
		return err
	}
	orig, err := syscall.Dup(int(os.Stderr.Fd()))
	if err != nil {
		r.Close()
		w.Close()
		return err
	}
	if err := dup2(int(w.Fd()), int(os.Stderr.Fd())); err != nil {
		syscall.Close(orig)
		r.Close()
		w.Close()
		return err
	}

	origFD, pipeRead, pipeW = orig, r, w
	done = make(chan struct{})
	go forward(r, logger, done)
	return nil
}

func forward(r *os.File, logger *log.Logger, done chan<- struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			logger.Warn("stderr", "line", line)
		}
	}
}

// Stop restores the original stderr and waits for buffered lines to be logged.
func Stop() {
	mu.Lock()
	defer mu.Unlock()
	if origFD < 0 {
		return
	}

	_ = dup2(origFD, int(os.Stderr.Fd()))
	_ = syscall.Close(origFD)
	pipeW.Close()
	<-done
	pipeRead.Close()
	origFD = -1
}
