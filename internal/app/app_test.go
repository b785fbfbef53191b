package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/llehouerou/vibeflow/internal/errmsg"
	"github.com/llehouerou/vibeflow/internal/library"
	"github.com/llehouerou/vibeflow/internal/librarysync"
	"github.com/llehouerou/vibeflow/internal/playback"
	"github.com/llehouerou/vibeflow/internal/player"
	"github.com/llehouerou/vibeflow/internal/suggest"
)

var epoch = time.Now().Add(-24 * time.Hour)

func testSong(id string, rank int) library.Song {
	return library.Song{
		ID:           id,
		Title:        "Title " + id,
		Artist:       "Artist",
		AudioLocator: "/music/" + id + ".mp3",
		Duration:     3 * time.Minute,
		AddedAt:      epoch.Add(-time.Duration(rank) * time.Hour),
	}
}

type fakeSuggester struct {
	ids     []string
	err     error
	history []library.Song
}

func (f *fakeSuggester) Suggest(_ context.Context, history, _ []library.Song) (suggest.Suggestion, error) {
	f.history = history
	if f.err != nil {
		return suggest.Suggestion{}, f.err
	}
	return suggest.Suggestion{Mood: "Chill", Reasoning: "Slow songs", SongIDs: f.ids}, nil
}

type fixture struct {
	engine *player.Mock
	store  *library.Mock
	ctrl   playback.Controller
}

func newFixture(t *testing.T, sug suggest.Service, ids ...string) (Model, *fixture) {
	t.Helper()
	var songs []library.Song
	for i, id := range ids {
		songs = append(songs, testSong(id, i))
	}

	logger := log.New(io.Discard)
	f := &fixture{engine: player.NewMock(), store: library.NewMock(songs...)}
	lib := librarysync.New(f.store, logger)
	if err := lib.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	f.ctrl = playback.New(f.engine, lib, logger)
	t.Cleanup(func() { f.ctrl.Close() })

	m := New(Options{Controller: f.ctrl, Suggester: sug, Logger: logger})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 20})
	return m, f
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	result, ok := next.(Model)
	if !ok {
		t.Fatal("Update should return Model")
	}
	return result, cmd
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends a key, runs the resulting command and feeds its message back.
func press(t *testing.T, m Model, k string) (Model, tea.Msg) {
	t.Helper()
	m, cmd := update(t, m, keyMsg(k))
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	if msg != nil {
		m, _ = update(t, m, msg)
	}
	return m, msg
}

// snapshot pulls the controller state the way a SongChanged event would.
func snapshot(t *testing.T, m Model) Model {
	t.Helper()
	m, _ = update(t, m, SongChangedMsg{})
	return m
}

func TestNew_LoadsSnapshot(t *testing.T) {
	m, _ := newFixture(t, nil, "a", "b", "c")

	if len(m.Library) != 3 || m.Library[0].ID != "a" {
		t.Errorf("Library = %v, want a, b, c", library.IDs(m.Library))
	}
	if m.Session.Current != nil {
		t.Errorf("Session.Current = %v, want nil", m.Session.Current)
	}
	if m.Width != 100 || m.Height != 20 {
		t.Errorf("size = %dx%d, want 100x20", m.Width, m.Height)
	}
}

func TestCursorMovement(t *testing.T) {
	m, _ := newFixture(t, nil, "a", "b", "c")

	for _, k := range []string{"j", "j", "j"} {
		m, _ = press(t, m, k)
	}
	if m.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2 (clamped)", m.Cursor)
	}

	m, _ = press(t, m, "k")
	if sel, _ := m.Selected(); sel.ID != "b" {
		t.Errorf("Selected() = %q, want b", sel.ID)
	}
}

func TestEnter_PlaysSelected(t *testing.T) {
	m, f := newFixture(t, nil, "a", "b")

	m, _ = press(t, m, "j")
	_, msg := press(t, m, "enter")

	if res, ok := msg.(OpResultMsg); !ok || res.Err != nil {
		t.Fatalf("enter result = %#v, want successful OpResultMsg", msg)
	}
	if got := f.engine.Locator(); got != "/music/b.mp3" {
		t.Errorf("engine locator = %q, want /music/b.mp3", got)
	}
}

func TestSpace_StartsThenToggles(t *testing.T) {
	m, f := newFixture(t, nil, "a", "b")

	m, _ = press(t, m, "space")
	if f.engine.Locator() != "/music/a.mp3" {
		t.Fatalf("space with nothing loaded should play the selection, got %q", f.engine.Locator())
	}

	m = snapshot(t, m)
	press(t, m, "space")
	if f.engine.State() != player.Paused {
		t.Errorf("engine state = %v, want Paused", f.engine.State())
	}
}

func TestEnqueue(t *testing.T) {
	m, f := newFixture(t, nil, "a", "b")

	m, _ = press(t, m, "j")
	m, _ = press(t, m, "a")

	queue := f.ctrl.Snapshot().Queue
	if len(queue) != 1 || queue[0].ID != "b" {
		t.Errorf("queue = %v, want [b]", library.IDs(queue))
	}
	if m.Status != "Queued Title b" || m.IsError {
		t.Errorf("Status = %q (error %v), want Queued Title b", m.Status, m.IsError)
	}
}

func TestLikeCurrent(t *testing.T) {
	m, f := newFixture(t, nil, "a", "b")
	m, _ = press(t, m, "enter")
	m = snapshot(t, m)

	m, _ = press(t, m, "f")

	song, err := f.store.Get(context.Background(), "a")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !song.IsFavorite {
		t.Error("current song should be liked in the store")
	}
	if m.Status != "Liked Title a" {
		t.Errorf("Status = %q, want Liked Title a", m.Status)
	}
}

func TestLike_Failure(t *testing.T) {
	m, f := newFixture(t, nil, "a")
	m, _ = press(t, m, "enter")
	m = snapshot(t, m)
	f.store.SetFavoriteError(fmt.Errorf("offline: %w", errmsg.ErrRemoteUnavailable))

	m, _ = press(t, m, "f")

	if !m.IsError || !strings.HasPrefix(m.Status, "Failed to update favorite") {
		t.Errorf("Status = %q (error %v), want favorite failure", m.Status, m.IsError)
	}
}

func TestRemoveCurrent(t *testing.T) {
	m, f := newFixture(t, nil, "a", "b")
	m, _ = press(t, m, "enter")
	m = snapshot(t, m)

	press(t, m, "x")

	if _, err := f.store.Get(context.Background(), "a"); !errors.Is(err, errmsg.ErrNotFound) {
		t.Errorf("Get(a) error = %v, want not found", err)
	}
}

func TestCurrentSongKeys_NoopWhenIdle(t *testing.T) {
	m, _ := newFixture(t, nil, "a")

	for _, k := range []string{"f", "x", "left", "right"} {
		if _, cmd := update(t, m, keyMsg(k)); cmd != nil {
			t.Errorf("%s with nothing playing returned a command", k)
		}
	}
}

func TestModes(t *testing.T) {
	m, f := newFixture(t, nil, "a")

	m, _ = press(t, m, "r")
	if m.Status != "Repeat All" {
		t.Errorf("Status = %q, want Repeat All", m.Status)
	}
	m, _ = press(t, m, "s")
	if m.Status != "Shuffle on" {
		t.Errorf("Status = %q, want Shuffle on", m.Status)
	}

	s := f.ctrl.Snapshot()
	if s.RepeatMode != playback.RepeatAll || !s.Shuffle {
		t.Errorf("modes = %v/%v, want All/shuffle", s.RepeatMode, s.Shuffle)
	}
}

func TestSeek(t *testing.T) {
	m, f := newFixture(t, nil, "a")
	m, _ = press(t, m, "enter")
	m = snapshot(t, m)

	press(t, m, "right")

	calls := f.engine.SeekCalls()
	if len(calls) != 1 || calls[0] != seekStep {
		t.Errorf("seek calls = %v, want [%v]", calls, seekStep)
	}
}

func TestVibeMix(t *testing.T) {
	sug := &fakeSuggester{ids: []string{"c", "ghost", "b"}}
	m, f := newFixture(t, sug, "a", "b", "c")
	m, _ = press(t, m, "enter")
	m = snapshot(t, m)

	m, cmd := update(t, m, keyMsg("v"))
	if m.Busy == "" {
		t.Error("Busy should be set while the vibe is analyzed")
	}
	msg := cmd()
	res, ok := msg.(VibeResultMsg)
	if !ok {
		t.Fatalf("vibe command returned %T, want VibeResultMsg", msg)
	}
	if got := library.IDs(res.Songs); len(got) != 2 || got[0] != "c" || got[1] != "b" {
		t.Errorf("resolved songs = %v, want [c b]", got)
	}
	if len(sug.history) != 1 || sug.history[0].ID != "a" {
		t.Errorf("history sent = %v, want [a] (current song)", library.IDs(sug.history))
	}

	m, cmd = update(t, m, res)
	if m.Busy != "" || m.Vibe == nil || m.Vibe.Mood != "Chill" {
		t.Errorf("after result: Busy %q, Vibe %v", m.Busy, m.Vibe)
	}
	if cmd == nil {
		t.Fatal("vibe result should start the mix")
	}
	cmd()

	if f.engine.Locator() != "/music/c.mp3" {
		t.Errorf("engine locator = %q, want /music/c.mp3", f.engine.Locator())
	}
	if q := f.ctrl.Snapshot().Queue; len(q) != 1 || q[0].ID != "b" {
		t.Errorf("queue = %v, want [b]", library.IDs(q))
	}
}

func TestVibeMix_Disabled(t *testing.T) {
	m, _ := newFixture(t, nil, "a")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 20})

	if _, cmd := update(t, m, keyMsg("v")); cmd != nil {
		t.Error("v without a suggester returned a command")
	}
	if strings.Contains(m.View(), "vibe mix") {
		t.Error("help should not list vibe mix without a suggester")
	}
}

func TestVibeMix_Error(t *testing.T) {
	m, _ := newFixture(t, &fakeSuggester{err: errors.New("quota")}, "a")

	m, _ = press(t, m, "v")

	if m.Busy != "" {
		t.Errorf("Busy = %q, want cleared", m.Busy)
	}
	if !m.IsError || m.Status != "Failed to analyze vibe: quota" {
		t.Errorf("Status = %q, want vibe failure", m.Status)
	}
}

func TestVibeMix_NoMatches(t *testing.T) {
	m, f := newFixture(t, &fakeSuggester{ids: []string{"ghost"}}, "a")

	m, cmd := update(t, m, keyMsg("v"))
	m, cmd = update(t, m, cmd())

	if cmd != nil {
		t.Error("empty mix should not start playback")
	}
	if m.Status != "No songs match this vibe" {
		t.Errorf("Status = %q", m.Status)
	}
	if len(f.engine.LoadCalls()) != 0 {
		t.Errorf("engine loaded %v", f.engine.LoadCalls())
	}
}

func TestWatchEvents(t *testing.T) {
	m, f := newFixture(t, nil, "a")

	f.ctrl.CycleRepeatMode()

	msg := m.WatchEvents()()
	if _, ok := msg.(ModeChangedMsg); !ok {
		t.Fatalf("WatchEvents() = %T, want ModeChangedMsg", msg)
	}
	m, cmd := update(t, m, msg)
	if m.Session.RepeatMode != playback.RepeatAll {
		t.Errorf("RepeatMode = %v, want All", m.Session.RepeatMode)
	}
	if cmd == nil {
		t.Error("event handling should keep watching")
	}
}

func TestLibraryChanged_ClampsCursor(t *testing.T) {
	m, _ := newFixture(t, nil, "a", "b", "c")
	m.Cursor = 2

	m, _ = update(t, m, LibraryChangedMsg{Songs: []library.Song{testSong("a", 0)}})

	if m.Cursor != 0 {
		t.Errorf("Cursor = %d, want 0", m.Cursor)
	}
	if len(m.Library) != 1 {
		t.Errorf("Library len = %d, want 1", len(m.Library))
	}
}

func TestPlaybackError(t *testing.T) {
	m, _ := newFixture(t, nil, "a")

	m, _ = update(t, m, PlaybackErrorMsg{Op: errmsg.OpPlaybackStart, Err: errors.New("boom")})

	if m.Status != "Failed to start playback: boom" || !m.IsError {
		t.Errorf("Status = %q (error %v)", m.Status, m.IsError)
	}
	if !strings.Contains(m.View(), "Failed to start playback: boom") {
		t.Error("View() should show the error")
	}
}

func TestControllerClosed_Quits(t *testing.T) {
	m, f := newFixture(t, nil, "a")
	f.ctrl.Close()

	msg := m.WatchEvents()()
	if _, ok := msg.(ControllerClosedMsg); !ok {
		t.Fatalf("WatchEvents() = %T, want ControllerClosedMsg", msg)
	}
	_, cmd := update(t, m, msg)
	if cmd == nil {
		t.Fatal("closed controller should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command should be tea.Quit")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newFixture(t, nil, "a")

	_, cmd := update(t, m, keyMsg("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("command should be tea.Quit")
	}
}

func TestView(t *testing.T) {
	m, _ := newFixture(t, &fakeSuggester{}, "a", "b", "c")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 20})

	out := m.View()
	for _, want := range []string{"vibeflow", "3 songs", "Artist - Title a", "3:00", "ago", "Nothing playing", "space play/pause", "v vibe mix"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	m, _ = press(t, m, "enter")
	m = snapshot(t, m)
	out = m.View()
	if !strings.Contains(out, "▶") || strings.Contains(out, "Nothing playing") {
		t.Errorf("View() should show the player bar once playing:\n%s", out)
	}
	if lines := strings.Count(out, "\n") + 1; lines != m.Height {
		t.Errorf("View() has %d lines, want %d", lines, m.Height)
	}
}

func TestView_ScrollKeepsCursorVisible(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("s%02d", i)
	}
	m, _ := newFixture(t, nil, ids...)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 100, Height: chromeHeight + 4})

	for range 10 {
		m, _ = press(t, m, "j")
	}

	if m.Offset != 7 {
		t.Errorf("Offset = %d, want 7", m.Offset)
	}
	out := m.View()
	if !strings.Contains(out, "Title s10") {
		t.Error("cursor row not visible")
	}
	if strings.Contains(out, "Title s00") {
		t.Error("scrolled-out row still visible")
	}
}

func TestView_BeforeSize(t *testing.T) {
	m, _ := newFixture(t, nil, "a")
	m.Width, m.Height = 0, 0

	if got := m.View(); got != "" {
		t.Errorf("View() before size = %q, want empty", got)
	}
}
