package playback

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"
	"time"

	"github.com/llehouerou/vibeflow/internal/library"
)

// startRun runs the controller loop and returns a func that closes the
// controller and reports Run's result.
func startRun(t *testing.T, f *fixture) func() error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- f.c.Run(context.Background()) }()
	return func() error {
		f.c.Close()
		return <-errc
	}
}

func TestRun_NaturalCompletionPlaysQueueHead(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.play(t, "a")
		f.c.AddToQueue(f.songs["b"])
		stop := startRun(t, f)

		f.engine.SimulateFinished()
		synctest.Wait()

		s := f.c.Snapshot()
		if currentID(s) != "b" || !s.IsPlaying() {
			t.Errorf("snapshot = %q playing=%v, want b playing", currentID(s), s.IsPlaying())
		}
		if !sameIDs(s.History, "a") {
			t.Errorf("History = %v, want [a]", library.IDs(s.History))
		}
		if err := stop(); err != nil {
			t.Errorf("Run() error = %v, want nil after Close", err)
		}
	})
}

func TestRun_NaturalCompletionRepeatOneRestarts(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.c.SetRepeatMode(RepeatOne)
		f.play(t, "a")
		f.engine.Advance(2 * time.Minute)
		stop := startRun(t, f)

		f.engine.SimulateFinished()
		synctest.Wait()

		s := f.c.Snapshot()
		if currentID(s) != "a" || !s.IsPlaying() || s.Position != 0 {
			t.Errorf("snapshot = %q playing=%v at %v, want a playing at 0", currentID(s), s.IsPlaying(), s.Position)
		}
		if len(s.History) != 0 {
			t.Errorf("History = %v, want empty", library.IDs(s.History))
		}
		if n := len(f.engine.LoadCalls()); n != 2 {
			t.Errorf("Load called %d times, want 2", n)
		}
		_ = stop()
	})
}

func TestRun_NaturalCompletionRepeatOffStops(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, "a", "b")
		f.play(t, "a")
		sub := f.c.Subscribe()
		stop := startRun(t, f)

		f.engine.SimulateFinished()
		synctest.Wait()

		if s := f.c.Snapshot(); s.Current != nil || s.State != StateStopped {
			t.Errorf("snapshot = %q %v, want nil Stopped", currentID(s), s.State)
		}
		select {
		case e := <-sub.SongChanged:
			if e.Previous == nil || e.Previous.ID != "a" || e.Current != nil {
				t.Errorf("SongChange = %+v, want a -> nil", e)
			}
		default:
			t.Error("no SongChanged event")
		}
		_ = stop()
	})
}

func TestRun_PositionTicks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, "a")
		f.play(t, "a")
		sub := f.c.Subscribe()
		stop := startRun(t, f)

		f.engine.Advance(10 * time.Second)
		time.Sleep(defaultTickInterval + time.Millisecond)
		synctest.Wait()

		if got := f.c.Snapshot().Position; got != 10*time.Second {
			t.Errorf("Position = %v, want 10s", got)
		}
		select {
		case e := <-sub.PositionChanged:
			if e.Position != 10*time.Second || e.Duration != 3*time.Minute {
				t.Errorf("PositionChange = %+v", e)
			}
		default:
			t.Error("no PositionChanged event")
		}

		// Unchanged position emits nothing
		time.Sleep(defaultTickInterval)
		synctest.Wait()
		if n := len(sub.PositionChanged); n != 0 {
			t.Errorf("PositionChanged buffered %d events, want 0", n)
		}
		_ = stop()
	})
}

func TestRun_PositionClampedToDuration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t, "a")
		f.play(t, "a")
		stop := startRun(t, f)

		f.engine.Advance(time.Hour)
		time.Sleep(defaultTickInterval + time.Millisecond)
		synctest.Wait()

		if got := f.c.Snapshot().Position; got != 3*time.Minute {
			t.Errorf("Position = %v, want clamped 3m", got)
		}
		_ = stop()
	})
}

func TestRun_ContextCanceled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() { errc <- f.c.Run(ctx) }()

		cancel()

		if err := <-errc; !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	})
}

func TestHandleFinished_IgnoresStaleSignal(t *testing.T) {
	f := newFixture(t, "a", "b")
	f.play(t, "a")
	f.c.AddToQueue(f.songs["b"])

	// The engine is still playing a, so the signal belongs to an older track
	f.c.handleFinished(context.Background())

	s := f.c.Snapshot()
	if currentID(s) != "a" {
		t.Errorf("Current = %q, want a", currentID(s))
	}
	if !sameIDs(s.Queue, "b") {
		t.Errorf("Queue = %v, want [b]", library.IDs(s.Queue))
	}
}

func TestHandleFinished_NothingCurrent(t *testing.T) {
	f := newFixture(t, "a")
	f.c.AddToQueue(f.songs["a"])

	f.c.handleFinished(context.Background())

	if s := f.c.Snapshot(); s.Current != nil || len(s.Queue) != 1 {
		t.Errorf("snapshot changed on finish with nothing current: %+v", s)
	}
}
