package player

import (
	"context"
	"sync"
	"time"
)

// Mock is a test double for Player. Load succeeds instantly unless an error
// is set; durations come from SetTrackDuration.
type Mock struct {
	mu         sync.Mutex
	state      State
	locator    string
	position   time.Duration
	duration   time.Duration
	durations  map[string]time.Duration
	loadErr    error
	loadCalls  []string
	seekCalls  []time.Duration
	stopCalls  int
	finishedCh chan struct{}
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{
		state:      Stopped,
		durations:  make(map[string]time.Duration),
		finishedCh: make(chan struct{}, 1),
	}
}

func (m *Mock) Load(_ context.Context, locator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, locator)
	if m.loadErr != nil {
		m.state = Stopped
		m.locator = ""
		return m.loadErr
	}
	m.state = Playing
	m.locator = locator
	m.position = 0
	m.duration = m.durations[locator]
	return nil
}

func (m *Mock) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Paused {
		m.state = Playing
	}
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Playing {
		m.state = Paused
	}
}

func (m *Mock) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopCalls++
	m.state = Stopped
	m.locator = ""
	m.position = 0
	m.duration = 0
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, d)
	m.position = d
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Mock) Locator() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locator
}

func (m *Mock) FinishedChan() <-chan struct{} {
	return m.finishedCh
}

// Test helpers

func (m *Mock) SetLoadError(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// SetTrackDuration sets the duration reported after loading locator.
func (m *Mock) SetTrackDuration(locator string, d time.Duration) {
	m.mu.Lock()
	m.durations[locator] = d
	m.mu.Unlock()
}

// Advance simulates playback time passing.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.position += d
	m.mu.Unlock()
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) StopCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCalls
}

// SimulateFinished simulates the loaded track playing to its end.
func (m *Mock) SimulateFinished() {
	m.mu.Lock()
	m.state = Stopped
	m.position = m.duration
	m.mu.Unlock()
	select {
	case m.finishedCh <- struct{}{}:
	default:
	}
}

// Verify Mock implements Interface at compile time.
var _ Interface = (*Mock)(nil)
