package scheduler

import (
	"errors"
	"log/slog"

	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/voice"
)

// RoundRobin treats every voice as one pool. Each channel owns at most one
// voice at a time; a note-on takes the first idle voice in pool order and is
// dropped when none is idle.
type RoundRobin struct {
	pool    []*voice.Voice
	owner   [note.NumChannels]int
	logger  *slog.Logger
	dropped int
}

func NewRoundRobin(cm ChannelMap, logger *slog.Logger) *RoundRobin {
	if logger == nil {
		logger = slog.Default()
	}
	r := &RoundRobin{pool: cm.Voices(), logger: logger}
	r.Forget()
	return r
}

func (r *RoundRobin) Strategy() Strategy { return StrategyRoundRobin }

func (r *RoundRobin) Dropped() int { return r.dropped }

// Forget drops every channel's voice ownership.
func (r *RoundRobin) Forget() {
	for i := range r.owner {
		r.owner[i] = -1
	}
}

// Owner returns the pool position of the voice playing for channel ch.
func (r *RoundRobin) Owner(ch uint8) (int, bool) {
	i := r.owner[ch]
	return i, i >= 0
}

func (r *RoundRobin) Dispatch(ev note.Event) error {
	ch := ev.Channel
	if ev.IsNoteOff() {
		i := r.owner[ch]
		if i < 0 {
			return nil
		}
		r.owner[ch] = -1
		return r.pool[i].Handle(ev)
	}

	next := -1
	for i, v := range r.pool {
		if v.Idle() {
			next = i
			break
		}
	}
	if next < 0 {
		r.dropped++
		r.logger.Debug("scheduler: all voices busy, note dropped", eventAttrs(ev)...)
		return nil
	}

	var errs []error
	// A second note-on before the note-off would otherwise leave the
	// channel's previous voice sounding with nobody to stop it.
	if prev := r.owner[ch]; prev >= 0 && !r.pool[prev].Idle() {
		r.logger.Debug("scheduler: channel retriggered, stopping previous voice", "ch", ch, "voice", r.pool[prev].ID())
		if err := r.pool[prev].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	r.owner[ch] = -1

	if err := r.pool[next].Play(ev); err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	r.owner[ch] = next
	return errors.Join(errs...)
}
