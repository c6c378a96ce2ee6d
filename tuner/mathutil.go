package tuner

import (
	"math"

	"golang.org/x/exp/constraints"
)

func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds half-way cases toward positive infinity.
func roundHalfUp[T constraints.Float](x T) T {
	return T(math.Floor(float64(x) + 0.5))
}

// roundTo rounds x to the nearest multiple of 1/s.
func roundTo[T constraints.Float](x, s T) T {
	return roundHalfUp(x*s) / s
}
