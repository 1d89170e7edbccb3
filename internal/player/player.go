// Package player is the boundary between event sources and the scheduler. It
// serialises dispatch, absorbs per-event failures and keeps counters.
package player

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/chase3718/motor-organ/internal/delay"
	"github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/scheduler"
	"github.com/chase3718/motor-organ/internal/source"
	"github.com/chase3718/motor-organ/internal/voice"
)

// UnresponsiveThreshold is the number of consecutive unresponsive failures
// after which the player reports the controller as lost.
const UnresponsiveThreshold = 3

// Stats counts handled events.
type Stats struct {
	Played  int // dispatched without error
	Dropped int // no voice could take the event
	Failed  int // invalid, or a voice or the controller reported an error
}

// Player feeds note events to a scheduler one at a time. Handle may be called
// from any goroutine.
type Player struct {
	mu           sync.Mutex
	sched        scheduler.Scheduler
	reg          *scheduler.Registry
	clock        source.Clock
	logger       *slog.Logger
	stats        Stats
	unresponsive int
}

type Option func(*Player)

// WithClock sets the clock Play paces on.
func WithClock(c source.Clock) Option {
	return func(p *Player) { p.clock = c }
}

func New(sched scheduler.Scheduler, reg *scheduler.Registry, logger *slog.Logger, opts ...Option) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Player{sched: sched, reg: reg, clock: source.WallClock, logger: logger}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Handle dispatches ev. Errors are logged and counted, never returned: one
// bad note must not stop the song.
func (p *Player) Handle(ev note.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ev.Validate(); err != nil {
		p.stats.Failed++
		p.logger.Warn("player: invalid event", "err", err)
		return
	}

	dropped := p.sched.Dropped()
	if err := p.sched.Dispatch(ev); err != nil {
		p.fail(ev, err)
		return
	}
	p.unresponsive = 0
	if p.sched.Dropped() > dropped {
		p.stats.Dropped++
		return
	}
	p.stats.Played++
}

func (p *Player) fail(ev note.Event, err error) {
	p.stats.Failed++
	attrs := append(eventAttrs(ev), "kind", classify(err), "err", err)

	if !errors.Is(err, device.ErrUnresponsive) {
		p.unresponsive = 0
		p.logger.Warn("player: event failed", attrs...)
		return
	}
	p.unresponsive++
	if p.unresponsive == UnresponsiveThreshold {
		p.logger.Error("player: controller stopped responding, check the serial wiring and firmware",
			"consecutive", p.unresponsive, "err", err)
		return
	}
	p.logger.Warn("player: event failed", attrs...)
}

func classify(err error) string {
	switch {
	case errors.Is(err, device.ErrUnresponsive):
		return "unresponsive"
	case errors.Is(err, device.ErrDevice):
		return "device"
	case errors.Is(err, voice.ErrVoiceBusy):
		return "busy"
	case errors.Is(err, delay.ErrUnsupportedPitch):
		return "unsupported pitch"
	case errors.Is(err, delay.ErrNoPlayableOctave):
		return "no playable octave"
	}
	return "other"
}

func eventAttrs(ev note.Event) []any {
	return []any{"event", ev.Kind.String(), "ch", ev.Channel, "note", note.Name(int(ev.Pitch)), "pitch", ev.Pitch, "vel", ev.Velocity}
}

// Silence stops every sounding voice and clears the scheduler's routing
// memory. It returns the number of voices stopped.
func (p *Player) Silence() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	if p.reg != nil {
		n = p.reg.Silence()
	}
	p.sched.Forget()
	return n
}

// Play paces events through Handle in real time. It returns ctx.Err() if
// cancelled before the last event.
func (p *Player) Play(ctx context.Context, events []note.Timed) error {
	p.logger.Info("player: playing", "events", len(events), "length", source.Length(events).String())
	return source.Pacer{Clock: p.clock}.Play(ctx, events, p.Handle)
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// LogStats writes the counters at Info.
func (p *Player) LogStats() {
	s := p.Stats()
	p.logger.Info("player: done", "played", s.Played, "dropped", s.Dropped, "failed", s.Failed,
		"scheduler", string(p.sched.Strategy()))
}
