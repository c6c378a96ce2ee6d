package pitch

import (
	"math"

	"ukulele-tuner/tuner"
)

// Mapper maps frequencies onto the equal-tempered scale. The zero value uses
// A4 = 440 Hz.
type Mapper struct {
	A4 float64
}

func (m Mapper) reference() float64 {
	if m.A4 > 0 {
		return m.A4
	}
	return 440.0
}

// ToNote returns the nearest note and the deviation from it in cents.
// Non-positive, infinite and NaN frequencies map to silence.
func (m Mapper) ToNote(freq float64) tuner.Reading {
	if math.IsNaN(freq) || math.IsInf(freq, 0) || freq <= 0 {
		return tuner.Reading{Note: tuner.Silence, Cents: math.NaN(), Frequency: freq}
	}
	ref := m.reference()
	n := math.Round(12 * math.Log2(freq/ref))
	target := ref * math.Pow(2, n/12)
	return tuner.Reading{
		Note:      tuner.NoteFromMidi(int(n) + 69),
		Cents:     1200 * math.Log2(freq/target),
		Frequency: freq,
	}
}
