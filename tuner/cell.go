package tuner

import (
	"math"
	"sync/atomic"
)

// FrequencyCell is a single-slot, last-write-wins hand-off between the audio
// producer and the tick consumer. Values overwritten before a tick reads them
// are lost; the zero value holds NaN.
type FrequencyCell struct {
	bits atomic.Uint64
	set  atomic.Bool
}

func (c *FrequencyCell) Store(f float64) {
	c.bits.Store(math.Float64bits(f))
	c.set.Store(true)
}

func (c *FrequencyCell) Load() float64 {
	if !c.set.Load() {
		return math.NaN()
	}
	return math.Float64frombits(c.bits.Load())
}
