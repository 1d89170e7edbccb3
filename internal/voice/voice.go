// Package voice drives one physical motor as a monophonic instrument.
package voice

import (
	"errors"
	"fmt"
	"log/slog"

	pkgerrors "github.com/pkg/errors"

	"github.com/chase3718/motor-organ/internal/delay"
	"github.com/chase3718/motor-organ/internal/device"
	"github.com/chase3718/motor-organ/internal/note"
)

// ErrVoiceBusy is returned by Play while the voice is already sounding.
var ErrVoiceBusy = errors.New("voice busy")

// Kind is the type of motor behind a voice. It picks the delay table and the
// flags sent at registration; nothing else depends on it.
type Kind uint8

const (
	Stepper Kind = iota
	Floppy
)

func (k Kind) String() string {
	switch k {
	case Stepper:
		return "stepper"
	case Floppy:
		return "floppy"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Table returns the delay table for the motor kind.
func (k Kind) Table() *delay.Table {
	if k == Floppy {
		return &delay.Floppy
	}
	return &delay.Stepper
}

// Spec is the static description of one motor.
type Spec struct {
	Kind      Kind
	StepPin   byte
	DirPin    byte
	Transpose bool
	Octaves   delay.OctaveSet
	NoReset   bool
}

// Flags returns the Add flags for the motor.
func (s Spec) Flags() device.Flags {
	f := device.FlagEnabled
	if s.Kind == Floppy {
		f |= device.FlagFloppy
	}
	if s.NoReset {
		f |= device.FlagNoReset
	}
	return f
}

// Link is the part of the device session a voice plays through.
type Link interface {
	Play(idx device.Index, delay uint16) error
	Stop(idx device.Index) error
}

// Registrar can register motors as well as play them.
type Registrar interface {
	Link
	Add(stepPin, dirPin byte, flags device.Flags) (device.Index, error)
	Reset(idx device.Index) error
}

// Voice is one registered motor and what it is currently sounding.
type Voice struct {
	id       int
	spec     Spec
	index    device.Index
	resolver delay.Resolver
	link     Link
	logger   *slog.Logger

	sounding bool
	pitch    uint8
}

// Register adds the motor to the controller and returns its voice. Floppy
// drives are homed with Reset unless the spec asks for NoReset. Any failure
// means the motor must not be used.
func Register(link Registrar, id int, spec Spec, logger *slog.Logger) (*Voice, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := link.Add(spec.StepPin, spec.DirPin, spec.Flags())
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "voice %d: register %s on pin %d", id, spec.Kind, spec.StepPin)
	}
	if spec.Kind == Floppy && !spec.NoReset {
		if err := link.Reset(idx); err != nil {
			return nil, pkgerrors.Wrapf(err, "voice %d: reset %s", id, spec.Kind)
		}
	}
	v := New(link, id, idx, spec, logger)
	logger.Info("voice: registered", "voice", id, "kind", spec.Kind, "step_pin", spec.StepPin, "index", idx, "transpose", spec.Transpose)
	return v, nil
}

// New wraps an already registered motor.
func New(link Link, id int, idx device.Index, spec Spec, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		id:    id,
		spec:  spec,
		index: idx,
		resolver: delay.Resolver{
			Table:     spec.Kind.Table(),
			Transpose: spec.Transpose,
			Octaves:   spec.Octaves,
		},
		link:   link,
		logger: logger,
	}
}

// ID is the voice's position in the configured motor list.
func (v *Voice) ID() int { return v.id }

// Index is the controller-assigned motor index.
func (v *Voice) Index() device.Index { return v.index }

func (v *Voice) Kind() Kind { return v.spec.Kind }

// Sounding returns the pitch being played, if any.
func (v *Voice) Sounding() (uint8, bool) { return v.pitch, v.sounding }

// Idle reports whether the voice is free for a new note.
func (v *Voice) Idle() bool { return !v.sounding }

func (v *Voice) String() string { return fmt.Sprintf("%s#%d", v.spec.Kind, v.id) }

// CanAccept reports whether ev may be delivered now. An idle voice accepts
// anything; a sounding voice only accepts the note-off for its own pitch.
func (v *Voice) CanAccept(ev note.Event) bool {
	if !v.sounding {
		return true
	}
	return ev.IsNoteOff() && ev.Pitch == v.pitch
}

// Handle routes ev to Stop when it ends a note and to Play otherwise.
func (v *Voice) Handle(ev note.Event) error {
	if ev.IsNoteOff() {
		return v.Stop()
	}
	return v.Play(ev)
}

// Play starts sounding ev's pitch. A zero-velocity note-on is treated as a
// stop. The voice state only changes once the Play command has been sent.
func (v *Voice) Play(ev note.Event) error {
	if ev.IsNoteOff() {
		return v.Stop()
	}
	if v.sounding {
		return fmt.Errorf("%w: %s is sounding %s, cannot play %s", ErrVoiceBusy, v, note.Name(int(v.pitch)), note.Name(int(ev.Pitch)))
	}
	d, err := v.resolver.Resolve(ev.Pitch)
	if err != nil {
		return pkgerrors.Wrapf(err, "%s", v)
	}
	if err := v.link.Play(v.index, d); err != nil {
		return pkgerrors.Wrapf(err, "%s: play", v)
	}
	v.sounding, v.pitch = true, ev.Pitch
	v.logger.Debug("voice: play", "voice", v.id, "index", v.index, "note", note.Name(int(ev.Pitch)), "delay", d)
	return nil
}

// Stop sends Stop whatever the state, so stopping an idle voice is allowed.
// The voice goes idle once the command is sent.
func (v *Voice) Stop() error {
	if err := v.link.Stop(v.index); err != nil {
		return pkgerrors.Wrapf(err, "%s: stop", v)
	}
	if v.sounding {
		v.logger.Debug("voice: stop", "voice", v.id, "index", v.index, "note", note.Name(int(v.pitch)))
	}
	v.sounding, v.pitch = false, 0
	return nil
}
