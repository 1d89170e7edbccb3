package delay_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/chase3718/motor-organ/internal/delay"
)

func TestExactEntryIgnoresTranspose(t *testing.T) {
	for _, table := range []*Table{&Stepper, &Floppy} {
		for pitch := 0; pitch <= 127; pitch++ {
			want, ok := table.Lookup(pitch/12, pitch%12)
			if !ok {
				continue
			}
			for _, transpose := range []bool{false, true} {
				got, err := Resolver{Table: table, Transpose: transpose}.Resolve(uint8(pitch))
				require.NoError(t, err, "pitch %d", pitch)
				assert.Equal(t, want, got, "pitch %d transpose %v", pitch, transpose)
			}
		}
	}
}

func TestMiddleC(t *testing.T) {
	d, err := Resolver{Table: &Stepper}.Resolve(60)
	require.NoError(t, err)
	assert.Equal(t, uint16(1893), d)

	d, err = Resolver{Table: &Floppy}.Resolve(60)
	require.NoError(t, err)
	assert.Equal(t, uint16(7644), d)
}

func TestTransposeToNearestOctave(t *testing.T) {
	for _, table := range []*Table{&Stepper, &Floppy} {
		for pitch := 0; pitch <= 127; pitch++ {
			octave, class := pitch/12, pitch%12
			if _, ok := table.Lookup(octave, class); ok {
				continue
			}
			best, bestDist := -1, 99
			for o := 0; o < NumOctaves; o++ {
				if _, ok := table.Lookup(o, class); !ok {
					continue
				}
				dist := o - octave
				if dist < 0 {
					dist = -dist
				}
				if dist < bestDist {
					best, bestDist = o, dist
				}
			}

			got, err := Resolver{Table: table, Transpose: true}.Resolve(uint8(pitch))
			if best < 0 {
				assert.ErrorIs(t, err, ErrNoPlayableOctave)
				continue
			}
			require.NoError(t, err, "pitch %d", pitch)
			want, _ := table.Lookup(best, class)
			assert.Equal(t, want, got, "pitch %d", pitch)
		}
	}
}

func TestStepperFoldsHighNotesDown(t *testing.T) {
	// A5 (octave 6, class 9) is missing from the stepper table; octave 5 has it.
	d, err := Resolver{Table: &Stepper, Transpose: true}.Resolve(81)
	require.NoError(t, err)
	assert.Equal(t, uint16(1123), d)

	// C0 folds all the way up to octave 4.
	d, err = Resolver{Table: &Stepper, Transpose: true}.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, uint16(3790), d)
}

func TestEquidistantOctavesPickLower(t *testing.T) {
	var table Table
	table[3][0] = 300
	table[7][0] = 700

	d, err := Resolver{Table: &table, Transpose: true}.Resolve(5 * 12)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), d)

	// one step closer to 7 breaks the tie the other way
	d, err = Resolver{Table: &table, Transpose: true}.Resolve(6 * 12)
	require.NoError(t, err)
	assert.Equal(t, uint16(700), d)
}

func TestMissingPitchClass(t *testing.T) {
	var table Table
	table[5][0] = 1000

	_, err := Resolver{Table: &table}.Resolve(61)
	assert.ErrorIs(t, err, ErrUnsupportedPitch)
	assert.False(t, errors.Is(err, ErrNoPlayableOctave))

	_, err = Resolver{Table: &table, Transpose: true}.Resolve(61)
	assert.ErrorIs(t, err, ErrNoPlayableOctave)
}

func TestAllowedOctaves(t *testing.T) {
	// middle C is in the table but octave 5 is not allowed
	r := Resolver{Table: &Floppy, Octaves: Octaves(6, 7)}
	_, err := r.Resolve(60)
	assert.ErrorIs(t, err, ErrUnsupportedPitch)

	r.Transpose = true
	d, err := r.Resolve(60)
	require.NoError(t, err)
	assert.Equal(t, uint16(3822), d)

	// allowed octaves without the pitch class anywhere
	r = Resolver{Table: &Stepper, Transpose: true, Octaves: Octaves(0, 1)}
	_, err = r.Resolve(60)
	assert.ErrorIs(t, err, ErrNoPlayableOctave)
}

func TestOctaveSet(t *testing.T) {
	var all OctaveSet
	assert.True(t, all.Allows(0))
	assert.True(t, all.Allows(10))
	assert.Nil(t, all.List())

	s := Octaves(2, 5, 11, -1)
	assert.Equal(t, []int{2, 5}, s.List())
	assert.True(t, s.Allows(5))
	assert.False(t, s.Allows(4))
	assert.False(t, s.Allows(11))
}

func TestTableOctaves(t *testing.T) {
	assert.Equal(t, []int{4, 5, 6}, Stepper.Octaves())
	assert.Equal(t, []int{5, 6, 7, 8}, Floppy.Octaves())
	_, ok := Stepper.Lookup(6, 8)
	assert.False(t, ok)
	_, ok = Stepper.Lookup(11, 0)
	assert.False(t, ok)
}
