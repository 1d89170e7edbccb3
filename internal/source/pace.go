package source

import (
	"context"
	"time"

	"github.com/chase3718/motor-organ/internal/note"
)

// Clock is the time source a Pacer sleeps on.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() in the
	// latter case.
	Sleep(ctx context.Context, d time.Duration) error
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WallClock is the real clock.
var WallClock Clock = wallClock{}

// Pacer delivers timed events in real time. Deadlines are measured from the
// start of playback so slow handlers do not make the song drift.
type Pacer struct {
	Clock Clock
}

// Play hands each event to fn at its due time and returns when all events
// are delivered or ctx is cancelled.
func (p Pacer) Play(ctx context.Context, events []note.Timed, fn func(note.Event)) error {
	clock := p.Clock
	if clock == nil {
		clock = WallClock
	}
	start := clock.Now()
	var due time.Duration
	for _, ev := range events {
		due += ev.Wait
		if err := clock.Sleep(ctx, due-clock.Now().Sub(start)); err != nil {
			return err
		}
		fn(ev.Event)
	}
	return nil
}
