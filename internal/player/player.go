// Package player is the audio engine: it decodes one local track at a time
// and plays it through the system speaker.
package player

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

// speakerRate is the output rate. Tracks at other rates are resampled.
const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	return speakerErr
}

// Player plays tracks through the speaker. It is safe for concurrent use.
type Player struct {
	resolver Resolver
	logger   *log.Logger

	mu       sync.Mutex
	state    State
	locator  string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume

	// gen identifies the loaded track. The speaker callback for an older
	// track compares against it and stays silent. It is read from the speaker
	// goroutine, which must never take mu.
	gen        atomic.Uint64
	ended      atomic.Bool
	finishedCh chan struct{}
}

// New creates a player that resolves locators with resolver.
func New(resolver Resolver, logger *log.Logger) *Player {
	return &Player{
		resolver:   resolver,
		logger:     logger,
		state:      Stopped,
		finishedCh: make(chan struct{}, 1),
	}
}

func (p *Player) Load(ctx context.Context, locator string) error {
	path, err := p.resolver.Resolve(ctx, locator)
	if err != nil {
		return err
	}

	streamer, format, err := openStream(path)
	if err != nil {
		return err
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	// Drain a finish signal left over from the previous track
	select {
	case <-p.finishedCh:
	default:
	}

	var out beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		out = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	p.streamer = streamer
	p.format = format
	p.locator = locator
	p.ctrl = &beep.Ctrl{Streamer: out}
	p.volume = &effects.Volume{Streamer: p.ctrl, Base: 2}
	p.ended.Store(false)
	p.state = Playing

	gen := p.gen.Add(1)
	speaker.Play(beep.Seq(p.volume, beep.Callback(func() {
		p.finish(gen)
	})))

	p.logger.Debug("track loaded", "locator", locator, "duration", p.durationLocked())
	return nil
}

// finish runs on the speaker goroutine when a track reaches its end.
func (p *Player) finish(gen uint64) {
	if p.gen.Load() != gen {
		return
	}
	p.ended.Store(true)
	select {
	case p.finishedCh <- struct{}{}:
	default:
	}
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Paused || p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()
	p.state = Playing
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != Playing || p.ctrl == nil || p.ended.Load() {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.state = Paused
}

func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.streamer == nil {
		p.state = Stopped
		return
	}

	// Invalidate the pending callback before the speaker lets go of it
	p.gen.Add(1)
	speaker.Clear()

	if err := p.streamer.Close(); err != nil {
		p.logger.Debug("close streamer", "err", err)
	}
	p.streamer = nil
	p.ctrl = nil
	p.volume = nil
	p.locator = ""
	p.state = Stopped
}

// SetPosition seeks within the loaded track. Targets at or past the end land
// on the last sample so a seek never finishes the track.
func (p *Player) SetPosition(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil || p.ended.Load() {
		return
	}

	target := clampSample(p.format.SampleRate.N(d), p.streamer.Len())

	speaker.Lock()
	if err := p.streamer.Seek(target); err != nil {
		p.logger.Warn("seek failed", "locator", p.locator, "err", err)
	}
	speaker.Unlock()
}

// clampSample bounds n to [0, length-1]. Unknown lengths only get the lower bound.
func clampSample(n, length int) int {
	n = max(n, 0)
	if length > 0 && n >= length {
		n = length - 1
	}
	return n
}

func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

func (p *Player) durationLocked() time.Duration {
	if p.streamer == nil {
		return 0
	}
	return p.format.SampleRate.D(p.streamer.Len())
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ended.Load() {
		return Stopped
	}
	return p.state
}

func (p *Player) Locator() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.locator
}

func (p *Player) FinishedChan() <-chan struct{} {
	return p.finishedCh
}
