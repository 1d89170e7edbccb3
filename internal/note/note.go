// Package note holds the MIDI note event shared by every stage between the
// event source and the motors.
package note

import (
	"fmt"
	"time"
)

// Kind distinguishes note-on from note-off messages.
type Kind uint8

const (
	NoteOn Kind = iota
	NoteOff
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	}
	return "unknown"
}

const (
	NumChannels = 16
	MaxPitch    = 127
	MaxVelocity = 127
)

// Event is one note-on or note-off. It is passed by value and never mutated.
type Event struct {
	Kind     Kind
	Channel  uint8
	Pitch    uint8
	Velocity uint8
}

// On builds a note-on event.
func On(ch, pitch, vel uint8) Event {
	return Event{Kind: NoteOn, Channel: ch, Pitch: pitch, Velocity: vel}
}

// Off builds a note-off event.
func Off(ch, pitch uint8) Event {
	return Event{Kind: NoteOff, Channel: ch, Pitch: pitch}
}

// IsNoteOff reports whether the event ends a note. A note-on with velocity 0
// counts as a note-off.
func (e Event) IsNoteOff() bool {
	return e.Kind == NoteOff || (e.Kind == NoteOn && e.Velocity == 0)
}

// IsNoteOn reports whether the event starts a sounding note.
func (e Event) IsNoteOn() bool {
	return e.Kind == NoteOn && e.Velocity > 0
}

// Octave is the MIDI octave of the pitch (0..10).
func (e Event) Octave() int { return int(e.Pitch) / 12 }

// Class is the pitch class (0..11).
func (e Event) Class() int { return int(e.Pitch) % 12 }

// Validate checks the event's fields are inside their MIDI ranges.
func (e Event) Validate() error {
	if e.Kind != NoteOn && e.Kind != NoteOff {
		return fmt.Errorf("note: unknown kind %d", e.Kind)
	}
	if e.Channel >= NumChannels {
		return fmt.Errorf("note: channel %d out of range", e.Channel)
	}
	if e.Pitch > MaxPitch {
		return fmt.Errorf("note: pitch %d out of range", e.Pitch)
	}
	if e.Velocity > MaxVelocity {
		return fmt.Errorf("note: velocity %d out of range", e.Velocity)
	}
	return nil
}

func (e Event) String() string {
	return fmt.Sprintf("%s ch=%d %s vel=%d", e.Kind, e.Channel, Name(int(e.Pitch)), e.Velocity)
}

// Timed is an event plus the time to wait after the previous event before
// acting on it.
type Timed struct {
	Event
	Wait time.Duration
}

var names = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Name renders a MIDI pitch as a note name, middle C (60) being C4.
func Name(pitch int) string {
	if pitch < 0 {
		return fmt.Sprintf("?\"%d\"", pitch)
	}
	return fmt.Sprintf("%s%d", names[pitch%12], (pitch/12)-1)
}
