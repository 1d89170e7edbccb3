package delay

import (
	"errors"
	"fmt"

	"github.com/chase3718/motor-organ/internal/note"
)

var (
	// ErrUnsupportedPitch means the table has no entry for the pitch and
	// transposition is off.
	ErrUnsupportedPitch = errors.New("unsupported pitch")
	// ErrNoPlayableOctave means transposition is on but no permitted octave
	// holds the pitch class.
	ErrNoPlayableOctave = errors.New("no playable octave")
)

// OctaveSet restricts the octaves a voice may sound. The zero value allows
// every octave.
type OctaveSet uint16

// Octaves builds a set from octave numbers. Numbers outside 0..10 are ignored.
func Octaves(octaves ...int) OctaveSet {
	var s OctaveSet
	for _, o := range octaves {
		if o >= 0 && o < NumOctaves {
			s |= 1 << o
		}
	}
	return s
}

// Allows reports whether octave o may be used.
func (s OctaveSet) Allows(o int) bool {
	if s == 0 {
		return true
	}
	return o >= 0 && o < NumOctaves && s&(1<<o) != 0
}

// List returns the octaves in the set in ascending order, or nil for the
// unrestricted set.
func (s OctaveSet) List() []int {
	var out []int
	for o := 0; o < NumOctaves; o++ {
		if s&(1<<o) != 0 {
			out = append(out, o)
		}
	}
	return out
}

// Resolver turns pitches into delays for one voice.
type Resolver struct {
	Table     *Table
	Transpose bool
	Octaves   OctaveSet
}

// Resolve returns the delay for pitch. When the pitch's own octave has no
// entry (or is not allowed) and Transpose is set, the same pitch class is taken
// from the nearest allowed octave that has it; on equal distance the lower
// octave wins.
func (r Resolver) Resolve(pitch uint8) (uint16, error) {
	octave, class := int(pitch)/12, int(pitch)%12
	if r.Octaves.Allows(octave) {
		if d, ok := r.Table.Lookup(octave, class); ok {
			return d, nil
		}
	}
	if !r.Transpose {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedPitch, note.Name(int(pitch)))
	}

	best, bestDist := -1, 0
	for o := 0; o < NumOctaves; o++ {
		if !r.Octaves.Allows(o) {
			continue
		}
		if _, ok := r.Table.Lookup(o, class); !ok {
			continue
		}
		dist := o - octave
		if dist < 0 {
			dist = -dist
		}
		if best < 0 || dist < bestDist {
			best, bestDist = o, dist
		}
	}
	if best < 0 {
		return 0, fmt.Errorf("%w: %s", ErrNoPlayableOctave, note.Name(int(pitch)))
	}
	d, _ := r.Table.Lookup(best, class)
	return d, nil
}
