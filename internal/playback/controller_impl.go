package playback

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/playlist"
)

const (
	// Going back past this point restarts the current song instead.
	restartThreshold = 3 * time.Second

	defaultTickInterval = 250 * time.Millisecond
)

// Verify controller implements Controller at compile time.
var _ Controller = (*controller)(nil)

type controller struct {
	mu sync.Mutex

	engine  player.Interface
	library Library
	logger  *log.Logger

	current  *library.Song
	queue    *playlist.Queue
	history  *playlist.History
	playing  bool
	position time.Duration
	duration time.Duration
	repeat   RepeatMode
	shuffle  bool

	randIntn     func(n int) int
	tickInterval time.Duration

	subs       []*Subscription
	subsClosed bool
	subsMu     sync.RWMutex

	// loadMu serializes engine loads. It is taken before mu, never while holding it.
	loadMu     sync.Mutex
	loadGen    uint64
	loading    int
	cancelLoad context.CancelFunc

	done   chan struct{}
	closed bool
}

// New creates a playback controller driving engine over the songs of lib.
func New(engine player.Interface, lib Library, logger *log.Logger) Controller {
	return newController(engine, lib, logger)
}

func newController(engine player.Interface, lib Library, logger *log.Logger) *controller {
	return &controller{
		engine:       engine,
		library:      lib,
		logger:       logger,
		queue:        playlist.NewQueue(),
		history:      playlist.NewHistory(0),
		randIntn:     rand.IntN,
		tickInterval: defaultTickInterval,
		done:         make(chan struct{}),
	}
}

// mark records what subscribers last saw, so a handler can emit only what changed.
type mark struct {
	state State
	song  *library.Song
}

func (c *controller) markLocked() mark {
	return mark{state: c.stateLocked(), song: copySong(c.current)}
}

func (c *controller) emitChangesLocked(before mark) {
	if now := c.stateLocked(); now != before.state {
		c.broadcast(func(s *Subscription) {
			send(s.stateCh, StateChange{Previous: before.state, Current: now})
		})
	}
	if songID(before.song) != songID(c.current) {
		cur := copySong(c.current)
		c.broadcast(func(s *Subscription) {
			send(s.songCh, SongChange{Previous: before.song, Current: cur})
		})
	}
}

func (c *controller) stateLocked() State {
	switch {
	case c.current == nil:
		return StateStopped
	case c.playing:
		return StatePlaying
	default:
		return StatePaused
	}
}

func (c *controller) PlaySong(ctx context.Context, song library.Song) error {
	c.mu.Lock()
	before := c.markLocked()
	l := c.playSongLocked(ctx, song, true)
	c.emitChangesLocked(before)
	c.mu.Unlock()
	return c.finishLoad(l)
}

// pendingLoad is an engine load decided under mu and run by finishLoad once
// mu is released. Resolving a remote song can take as long as its download.
type pendingLoad struct {
	gen    uint64
	song   library.Song
	ctx    context.Context
	cancel context.CancelFunc
}

// playSongLocked makes song current. When pushHistory is set and a different
// song was current, that song goes onto the history. The returned load, if
// any, must be passed to finishLoad after unlocking.
func (c *controller) playSongLocked(ctx context.Context, song library.Song, pushHistory bool) *pendingLoad {
	if pushHistory && c.current != nil && c.current.ID != song.ID {
		c.history.Push(*c.current)
	}

	if c.loading == 0 && song.AudioLocator != "" &&
		c.engine.Locator() == song.AudioLocator && c.engine.State().IsActive() {
		// Same source already loaded: resume without re-buffering
		c.engine.Play()
		c.current = copySong(&song)
		c.playing = true
		return nil
	}

	c.supersedeLocked()
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancelLoad = cancel
	c.loading++

	c.current = copySong(&song)
	c.playing = true
	c.position = 0
	c.duration = song.Duration
	c.emitPositionLocked()
	return &pendingLoad{gen: c.loadGen, song: song, ctx: loadCtx, cancel: cancel}
}

// supersedeLocked invalidates the load in flight, if any.
func (c *controller) supersedeLocked() {
	c.loadGen++
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
}

// finishLoad runs l against the engine and commits the outcome, unless
// another action replaced the song in the meantime.
func (c *controller) finishLoad(l *pendingLoad) error {
	if l == nil {
		return nil
	}
	defer l.cancel()

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.Lock()
	stale := l.gen != c.loadGen
	c.mu.Unlock()

	var err error
	if !stale {
		err = c.engine.Load(l.ctx, l.song.AudioLocator)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--
	if l.gen != c.loadGen {
		// Whoever bumped the generation owns the engine now
		if !stale && err == nil {
			c.engine.Stop()
		}
		return nil
	}
	c.cancelLoad = nil

	before := c.markLocked()
	if err != nil {
		c.engine.Stop()
		c.current = nil
		c.playing = false
		c.position, c.duration = 0, 0
		c.logger.Error("load song", "id", l.song.ID, "locator", l.song.AudioLocator, "err", err)
		c.emitError(errmsg.OpPlaybackStart, l.song.ID, err)
		c.emitChangesLocked(before)
		return err
	}

	if !c.playing {
		// Paused while buffering
		c.engine.Pause()
	}
	c.position = 0
	if d := c.engine.Duration(); d > 0 {
		c.duration = d
	}
	c.emitPositionLocked()
	c.emitChangesLocked(before)
	return nil
}

// restartLocked plays the current song again from the start.
func (c *controller) restartLocked(ctx context.Context) *pendingLoad {
	if c.current == nil {
		return nil
	}
	if c.loading == 0 && c.engine.State().IsActive() && c.engine.Locator() == c.current.AudioLocator {
		c.engine.SetPosition(0)
		c.engine.Play()
		c.playing = true
		c.position = 0
		c.emitPositionLocked()
		return nil
	}
	return c.playSongLocked(ctx, *c.current, false)
}

func (c *controller) TogglePlay() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	before := c.markLocked()

	var l *pendingLoad
	switch {
	case c.loading > 0:
		// finishLoad applies the choice once the track is in
		c.playing = !c.playing
	case c.playing:
		c.engine.Pause()
		c.playing = false
	case c.engine.State() == player.Paused:
		c.engine.Play()
		c.playing = true
	default:
		// The engine already let go of the track; start it over
		l = c.restartLocked(context.Background())
	}

	c.emitChangesLocked(before)
	c.mu.Unlock()
	_ = c.finishLoad(l)
}

func (c *controller) PlayNext(ctx context.Context) error {
	c.mu.Lock()
	before := c.markLocked()
	l := c.playNextLocked(ctx, true)
	c.emitChangesLocked(before)
	c.mu.Unlock()
	return c.finishLoad(l)
}

// playNextLocked advances the session: queue head first, then the library
// when repeating, else stop. A manual skip treats RepeatOne like RepeatAll.
func (c *controller) playNextLocked(ctx context.Context, manual bool) *pendingLoad {
	if song, ok := c.queue.PopFront(); ok {
		c.emitQueueLocked()
		return c.playSongLocked(ctx, song, true)
	}

	if c.repeat == RepeatAll || (manual && c.repeat == RepeatOne) {
		if lib := c.library.Library(); len(lib) > 0 {
			next := c.wrapNext(lib)
			if c.current != nil && next.ID == c.current.ID {
				return c.restartLocked(ctx)
			}
			return c.playSongLocked(ctx, next, true)
		}
	}

	c.stopLocked()
	return nil
}

// wrapNext picks the library song after the current one, wrapping at the end.
// With shuffle on it picks a random song other than the current one.
func (c *controller) wrapNext(lib []library.Song) library.Song {
	idx := -1
	if c.current != nil {
		idx = slices.IndexFunc(lib, func(s library.Song) bool { return s.ID == c.current.ID })
	}

	if c.shuffle && len(lib) > 1 {
		if idx < 0 {
			return lib[c.randIntn(len(lib))]
		}
		// Draw from the other len-1 songs
		pick := c.randIntn(len(lib) - 1)
		if pick >= idx {
			pick++
		}
		return lib[pick]
	}

	return lib[(idx+1)%len(lib)]
}

func (c *controller) stopLocked() {
	c.supersedeLocked()
	c.engine.Stop()
	c.current = nil
	c.playing = false
	c.position, c.duration = 0, 0
}

func (c *controller) PlayPrevious(ctx context.Context) error {
	c.mu.Lock()
	before := c.markLocked()

	var l *pendingLoad
	if c.current != nil && c.loading == 0 && c.engine.Position() > restartThreshold {
		l = c.restartLocked(ctx)
	} else if song, ok := c.history.Pop(); ok {
		l = c.playSongLocked(ctx, song, false)
	}

	c.emitChangesLocked(before)
	c.mu.Unlock()
	return c.finishLoad(l)
}

func (c *controller) Seek(position time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// The engine still holds the previous track until a load lands
	if c.current == nil || c.loading > 0 {
		return
	}

	position = max(position, 0)
	if c.duration > 0 {
		position = min(position, c.duration)
	}

	c.engine.SetPosition(position)
	c.position = position
	c.emitPositionLocked()
}

func (c *controller) AddToQueue(songs ...library.Song) {
	if len(songs) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Add(songs...)
	c.emitQueueLocked()
}

func (c *controller) SetQueue(songs ...library.Song) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Replace(songs...)
	c.emitQueueLocked()
}

func (c *controller) PlayMix(ctx context.Context, songs []library.Song) error {
	if len(songs) == 0 {
		return nil
	}
	c.mu.Lock()
	before := c.markLocked()
	c.queue.Replace(songs[1:]...)
	c.emitQueueLocked()
	l := c.playSongLocked(ctx, songs[0], true)
	c.emitChangesLocked(before)
	c.mu.Unlock()
	return c.finishLoad(l)
}

func (c *controller) ToggleLike(ctx context.Context, id string) (bool, error) {
	// Remote round trip runs unlocked; the result is applied afterwards
	favorite, err := c.library.ToggleFavorite(ctx, id)
	if err != nil {
		c.logger.Warn("toggle like failed", "id", id, "err", err)
		c.emitError(errmsg.OpFavoriteToggle, id, err)
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil && c.current.ID == id {
		c.current.IsFavorite = favorite
	}
	c.reconcileLocked()
	return favorite, nil
}

func (c *controller) RemoveSong(ctx context.Context, id string) error {
	if err := c.library.Remove(ctx, id); err != nil {
		c.logger.Warn("remove song failed", "id", id, "err", err)
		c.emitError(errmsg.OpLibraryDelete, id, err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	before := c.markLocked()

	if c.current != nil && c.current.ID == id {
		c.stopLocked()
	}
	// The audio is gone, so the song cannot come back through next or previous
	c.history.RemoveID(id)
	if c.queue.RemoveID(id) > 0 {
		c.emitQueueLocked()
	}

	c.emitChangesLocked(before)
	c.reconcileLocked()
	return nil
}

func (c *controller) RefreshLibrary(ctx context.Context) error {
	if err := c.library.Refresh(ctx); err != nil {
		c.emitError(errmsg.OpLibraryLoad, "", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconcileLocked()
	return nil
}

// reconcileLocked copies favorite flags from the library onto the session's
// song copies and notifies subscribers of the new library.
func (c *controller) reconcileLocked() {
	lib := c.library.Library()
	favorites := make(map[string]bool, len(lib))
	for _, s := range lib {
		favorites[s.ID] = s.IsFavorite
	}

	patch := func(s library.Song) library.Song {
		if fav, ok := favorites[s.ID]; ok {
			s.IsFavorite = fav
		}
		return s
	}

	if c.current != nil {
		*c.current = patch(*c.current)
	}
	c.queue.Patch(patch)
	c.history.Patch(patch)

	c.emitQueueLocked()
	c.broadcast(func(s *Subscription) {
		send(s.libraryCh, LibraryChange{Songs: slices.Clone(lib)})
	})
}

func (c *controller) Library() []library.Song {
	return c.library.Library()
}

func (c *controller) SetRepeatMode(mode RepeatMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeat = mode
	c.emitModeLocked()
}

func (c *controller) CycleRepeatMode() RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repeat = c.repeat.Next()
	c.emitModeLocked()
	return c.repeat
}

func (c *controller) SetShuffle(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffle = enabled
	c.emitModeLocked()
}

func (c *controller) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shuffle = !c.shuffle
	c.emitModeLocked()
	return c.shuffle
}

func (c *controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Session{
		Current:    copySong(c.current),
		Queue:      c.queue.Songs(),
		History:    c.history.Songs(),
		State:      c.stateLocked(),
		Position:   c.position,
		Duration:   c.duration,
		RepeatMode: c.repeat,
		Shuffle:    c.shuffle,
	}
}

func (c *controller) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		case <-c.engine.FinishedChan():
			c.handleFinished(ctx)
		case <-ticker.C:
			c.refreshPosition()
		}
	}
}

// handleFinished advances after the engine played a track to its end.
func (c *controller) handleFinished(ctx context.Context) {
	c.mu.Lock()
	// A song started after the signal was raised supersedes it
	if c.current == nil || c.loading > 0 || c.engine.State() != player.Stopped {
		c.mu.Unlock()
		return
	}

	before := c.markLocked()
	var l *pendingLoad
	if c.repeat == RepeatOne {
		l = c.restartLocked(ctx)
	} else {
		l = c.playNextLocked(ctx, false)
	}
	c.emitChangesLocked(before)
	c.mu.Unlock()
	_ = c.finishLoad(l)
}

func (c *controller) refreshPosition() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.loading > 0 {
		return
	}

	if d := c.engine.Duration(); d > 0 {
		c.duration = d
	}
	pos := max(c.engine.Position(), 0)
	if c.duration > 0 {
		pos = min(pos, c.duration)
	}
	if pos == c.position {
		return
	}
	c.position = pos
	c.emitPositionLocked()
}

func (c *controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	if c.subsClosed {
		sub.close()
		return sub
	}
	c.subs = append(c.subs, sub)
	return sub
}

func (c *controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.supersedeLocked()
	c.engine.Stop()
	c.mu.Unlock()

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsClosed = true
	c.subsMu.Unlock()

	return nil
}

func (c *controller) broadcast(fn func(*Subscription)) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		fn(sub)
	}
}

func (c *controller) emitPositionLocked() {
	e := PositionChange{Position: c.position, Duration: c.duration}
	c.broadcast(func(s *Subscription) { send(s.positionCh, e) })
}

func (c *controller) emitQueueLocked() {
	songs := c.queue.Songs()
	c.broadcast(func(s *Subscription) { send(s.queueCh, QueueChange{Songs: songs}) })
}

func (c *controller) emitModeLocked() {
	e := ModeChange{RepeatMode: c.repeat, Shuffle: c.shuffle}
	c.broadcast(func(s *Subscription) { send(s.modeCh, e) })
}

func (c *controller) emitError(op errmsg.Op, songID string, err error) {
	e := ErrorEvent{Op: op, SongID: songID, Err: err}
	c.broadcast(func(s *Subscription) { send(s.errorCh, e) })
}

func copySong(s *library.Song) *library.Song {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func songID(s *library.Song) string {
	if s == nil {
		return ""
	}
	return s.ID
}
