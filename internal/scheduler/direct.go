package scheduler

import (
	"errors"
	"log/slog"

	"github.com/chase3718/motor-organ/internal/note"
)

// DirectMap plays every event on all voices bound to the event's channel.
type DirectMap struct {
	channels ChannelMap
	logger   *slog.Logger
	dropped  int
}

func NewDirectMap(cm ChannelMap, logger *slog.Logger) *DirectMap {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectMap{channels: cm, logger: logger}
}

func (d *DirectMap) Strategy() Strategy { return StrategyDirect }

func (d *DirectMap) Dropped() int { return d.dropped }

func (d *DirectMap) Forget() {}

// Dispatch fans ev out to the channel's voices. Every voice gets every event:
// a note-off stops the voice whatever it is sounding. Failures on one voice
// do not keep the others from getting the event.
func (d *DirectMap) Dispatch(ev note.Event) error {
	voices := d.channels[ev.Channel]
	if len(voices) == 0 {
		d.dropped++
		d.logger.Debug("scheduler: no voice on channel", eventAttrs(ev)...)
		return nil
	}
	var errs []error
	for _, v := range voices {
		if err := v.Handle(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
