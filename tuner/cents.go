package tuner

import "math"

const (
	// wrongNoteCents is shown when the detected pitch class is not the
	// target's at all; only the direction is meaningful.
	wrongNoteCents = 50
	maxSensitivity = 10
)

// Deviation is a smoothed cents reading against one target string.
type Deviation struct {
	Rounded float64
	// Hit is an exact match: right note, rounded deviation zero.
	Hit    bool
	TooLow bool
}

// Smooth converts a raw cents reading into a display value against target.
// Deviations near zero are rounded finely and large ones coarsely, with the
// granularity capped at a tenth of a cent.
func Smooth(r Reading, target Note) Deviation {
	sameNote := r.Note == target
	tooLow := r.Frequency < target.Frequency()

	base := r.Cents
	if !sameNote {
		base = wrongNoteCents
		if tooLow {
			base = -wrongNoteCents
		}
	}

	sensitivity := math.Min(maxSensitivity, roundHalfUp(100/(math.Abs(base)*2)))
	if sensitivity < 1 {
		sensitivity = 1
	}
	rounded := roundTo(base, sensitivity)
	if rounded == 0 {
		rounded = 0 // drop negative zero
	}
	return Deviation{
		Rounded: rounded,
		Hit:     sameNote && rounded == 0,
		TooLow:  tooLow,
	}
}

// DisplayCents shrinks the deviation toward zero as the string approaches
// fully tuned.
func DisplayCents(rounded, ratio float64) float64 {
	v := rounded * (1 - ratio)
	if v == 0 {
		return 0
	}
	return v
}
