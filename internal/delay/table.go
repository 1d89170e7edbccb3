// Package delay maps MIDI pitches onto motor step delays.
//
// A Table is indexed by MIDI octave (pitch/12, so middle C, pitch 60, lives in
// octave 5) and pitch class. A zero entry means the motor cannot produce that
// pitch class in that octave.
package delay

const (
	NumOctaves = 11
	NumClasses = 12
)

// Table is a fixed octave x pitch-class grid of step delays. Tables are
// shared between voices and never written after package init.
type Table [NumOctaves][NumClasses]uint16

// Lookup returns the delay for the given octave and pitch class, and false
// when the entry is absent or the coordinates are out of range.
func (t *Table) Lookup(octave, class int) (uint16, bool) {
	if octave < 0 || octave >= NumOctaves || class < 0 || class >= NumClasses {
		return 0, false
	}
	d := t[octave][class]
	return d, d != 0
}

// Octaves lists the octaves holding at least one entry.
func (t *Table) Octaves() []int {
	var out []int
	for o := 0; o < NumOctaves; o++ {
		for c := 0; c < NumClasses; c++ {
			if t[o][c] != 0 {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

// Stepper is the table for bipolar stepper motors driven by a step/dir
// driver. It covers C3..G5.
var Stepper = Table{
	4: {3790, 3580, 3380, 3186, 3008, 2840, 2679, 2529, 2585, 2250, 2126, 2006},
	5: {1893, 1787, 1686, 1591, 1501, 1416, 1337, 1260, 1190, 1123, 1060, 1000},
	6: {943, 890, 840, 793, 747, 705, 665, 629},
}

// Floppy is the table for 3.5" floppy drive head steppers. It covers C4..B7.
var Floppy = Table{
	5: {7644, 7215, 6810, 6428, 6067, 5727, 5405, 5102, 4815, 4545, 4290, 4049},
	6: {3822, 3609, 3405, 3214, 3033, 2863, 2702, 2551, 2408, 2272, 2145, 2024},
	7: {1911, 1804, 1702, 1607, 1517, 1431, 1351, 1275, 1204, 1136, 1072, 1012},
	8: {955, 902, 851, 803, 758, 716, 675, 638, 602, 568, 536, 506},
}
