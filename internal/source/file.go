// Package source produces timed note events from MIDI files and live MIDI
// inputs.
package source

import (
	"io"
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/chase3718/motor-organ/internal/note"
)

// DefaultBPM applies until the file sets a tempo.
const DefaultBPM = 120.0

// FromMessage converts a channel message to a note event. Anything that is
// not a note-on or note-off yields false.
func FromMessage(msg midi.Message) (note.Event, bool) {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteOn(&ch, &key, &vel):
		return note.On(ch, key, vel), true
	case msg.GetNoteOff(&ch, &key, &vel):
		return note.Off(ch, key), true
	}
	return note.Event{}, false
}

// ReadFile reads a standard MIDI file. See Read.
func ReadFile(path string) ([]note.Timed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "source: open")
	}
	defer f.Close()
	evs, err := Read(f)
	if err != nil {
		return nil, errors.Wrapf(err, "source: %s", path)
	}
	return evs, nil
}

type absEvent struct {
	tick int64
	msg  smf.Message
}

// Read parses a standard MIDI file and flattens all tracks into one stream of
// note events in playback order. Events on the same tick keep track order.
// Each event's Wait is the wall time since the previous note event, following
// tempo changes.
func Read(r io.Reader) ([]note.Timed, error) {
	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "source: parse")
	}
	ticks, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.Errorf("source: unsupported time format %v", s.TimeFormat)
	}

	var all []absEvent
	for _, tr := range s.Tracks {
		var abs int64
		for _, ev := range tr {
			abs += int64(ev.Delta)
			all = append(all, absEvent{tick: abs, msg: ev.Message})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].tick < all[j].tick })

	var (
		out  []note.Timed
		bpm  = DefaultBPM
		last int64
		wait time.Duration
	)
	for _, ev := range all {
		wait += ticks.Duration(bpm, uint32(ev.tick-last))
		last = ev.tick

		var tempo float64
		if ev.msg.GetMetaTempo(&tempo) {
			if tempo > 0 {
				bpm = tempo
			}
			continue
		}
		n, ok := FromMessage(midi.Message(ev.msg))
		if !ok {
			continue
		}
		out = append(out, note.Timed{Event: n, Wait: wait})
		wait = 0
	}
	return out, nil
}

// Length is the total playing time of events.
func Length(events []note.Timed) time.Duration {
	var d time.Duration
	for _, ev := range events {
		d += ev.Wait
	}
	return d
}
