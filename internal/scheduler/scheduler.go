// Package scheduler decides which voices handle each incoming note event.
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/chase3718/motor-organ/internal/note"
	"github.com/chase3718/motor-organ/internal/voice"
)

// Strategy names a routing policy.
type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyRoundRobin Strategy = "round-robin"
)

// Scheduler routes note events to voices. Implementations are not safe for
// concurrent use; callers serialise Dispatch.
type Scheduler interface {
	// Dispatch delivers ev to the voices the policy picks. Events nobody can
	// take are dropped without error.
	Dispatch(ev note.Event) error
	// Forget clears routing memory after voices were silenced behind the
	// scheduler's back.
	Forget()
	// Dropped counts events dropped so far.
	Dropped() int
	Strategy() Strategy
}

// New builds the scheduler for strategy over cm.
func New(strategy Strategy, cm ChannelMap, logger *slog.Logger) (Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch strategy {
	case StrategyDirect, "":
		return NewDirectMap(cm, logger), nil
	case StrategyRoundRobin:
		return NewRoundRobin(cm, logger), nil
	}
	return nil, fmt.Errorf("scheduler: unknown strategy %q", strategy)
}

// ChannelMap lists, per MIDI channel, the voices bound to it in
// configuration order. It is built once and not modified afterwards.
type ChannelMap [note.NumChannels][]*voice.Voice

// NewChannelMap binds voices[i] to channels[i]. Every voice lands in exactly
// one channel.
func NewChannelMap(voices []*voice.Voice, channels []uint8) (ChannelMap, error) {
	var cm ChannelMap
	if len(voices) != len(channels) {
		return cm, fmt.Errorf("scheduler: %d voices but %d channel assignments", len(voices), len(channels))
	}
	for i, v := range voices {
		ch := channels[i]
		if ch >= note.NumChannels {
			return ChannelMap{}, fmt.Errorf("scheduler: voice %d bound to channel %d", v.ID(), ch)
		}
		cm[ch] = append(cm[ch], v)
	}
	return cm, nil
}

// Voices flattens the map in channel order, then configuration order.
func (cm *ChannelMap) Voices() []*voice.Voice {
	var out []*voice.Voice
	for _, vs := range cm {
		out = append(out, vs...)
	}
	return out
}

func eventAttrs(ev note.Event) []any {
	return []any{"ch", ev.Channel, "note", note.Name(int(ev.Pitch)), "pitch", ev.Pitch, "vel", ev.Velocity}
}
