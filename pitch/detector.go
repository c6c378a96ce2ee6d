package pitch

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"
)

const DefaultThreshold = 0.15

// Detector is a YIN fundamental-frequency estimator. The difference function
// is computed through FFT autocorrelation so that 8192-sample frames stay
// cheap. A Detector keeps scratch buffers and is not safe for concurrent use.
type Detector struct {
	SampleRate int
	// SilenceDB is the frame level (dB, mean square) below which Estimate
	// reports no pitch.
	SilenceDB float64
	// Threshold is the allowed aperiodicity of an accepted period.
	Threshold float64

	size        int
	diff        []float64
	spectrum    []complex128
	window      []complex128
	probability float64
}

func NewDetector(bufferSize, sampleRate int, silenceDB float64) (*Detector, error) {
	if bufferSize < 4 {
		return nil, fmt.Errorf("buffer size %d too small", bufferSize)
	}
	if sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}
	d := &Detector{
		SampleRate: sampleRate,
		SilenceDB:  silenceDB,
		Threshold:  DefaultThreshold,
	}
	d.resize(bufferSize)
	return d, nil
}

func (d *Detector) resize(n int) {
	d.size = n
	d.diff = make([]float64, n/2)
	m := nextPowerOfTwo(n + n/2)
	d.spectrum = make([]complex128, m)
	d.window = make([]complex128, m)
}

// Probability is the confidence of the last estimate (1 - aperiodicity).
func (d *Detector) Probability() float64 {
	return d.probability
}

// Estimate returns the fundamental frequency of frame in Hz, or NaN when the
// frame is silent or aperiodic.
func (d *Detector) Estimate(frame []float32) float64 {
	d.probability = 0
	if len(frame) < 4 {
		return math.NaN()
	}
	if LevelDB(frame) < d.SilenceDB {
		return math.NaN()
	}
	if len(frame) != d.size {
		d.resize(len(frame))
	}
	d.difference(frame)
	d.cumulativeMeanNormalize()
	tau := d.absoluteThreshold()
	if tau < 0 {
		return math.NaN()
	}
	return float64(d.SampleRate) / d.parabolicInterpolation(tau)
}

// difference computes d(tau) = sum (x[j] - x[j+tau])^2 over the first half
// of the frame as e(0) + e(tau) - 2 r(tau).
func (d *Detector) difference(frame []float32) {
	half := len(d.diff)
	for i := range d.spectrum {
		d.spectrum[i], d.window[i] = 0, 0
	}
	for i, v := range frame {
		d.spectrum[i] = complex(float64(v), 0)
		if i < half {
			d.window[i] = complex(float64(v), 0)
		}
	}
	a := fft.FFT(d.spectrum)
	b := fft.FFT(d.window)
	for i := range a {
		a[i] *= complex(real(b[i]), -imag(b[i]))
	}
	r := fft.IFFT(a)

	var e0 float64
	for j := 0; j < half; j++ {
		v := float64(frame[j])
		e0 += v * v
	}
	// sliding energy of frame[tau : tau+half]
	et := e0
	for tau := 0; tau < half; tau++ {
		if tau > 0 {
			out := float64(frame[tau-1])
			in := float64(frame[tau+half-1])
			et += in*in - out*out
		}
		d.diff[tau] = e0 + et - 2*real(r[tau])
	}
}

func (d *Detector) cumulativeMeanNormalize() {
	d.diff[0] = 1
	running := 0.0
	for tau := 1; tau < len(d.diff); tau++ {
		running += d.diff[tau]
		if running == 0 {
			d.diff[tau] = 1
			continue
		}
		d.diff[tau] *= float64(tau) / running
	}
}

func (d *Detector) absoluteThreshold() int {
	half := len(d.diff)
	for tau := 2; tau < half; tau++ {
		if d.diff[tau] < d.Threshold {
			for tau+1 < half && d.diff[tau+1] < d.diff[tau] {
				tau++
			}
			d.probability = 1 - d.diff[tau]
			return tau
		}
	}
	return -1
}

func (d *Detector) parabolicInterpolation(tau int) float64 {
	if tau < 1 || tau+1 >= len(d.diff) {
		return float64(tau)
	}
	s0, s1, s2 := d.diff[tau-1], d.diff[tau], d.diff[tau+1]
	den := 2 * (2*s1 - s2 - s0)
	if den == 0 {
		return float64(tau)
	}
	return float64(tau) + (s2-s0)/den
}

// LevelDB is the mean-square level of frame in dB; -Inf for digital silence.
func LevelDB(frame []float32) float64 {
	if len(frame) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, v := range frame {
		sum += float64(v) * float64(v)
	}
	return 10 * math.Log10(sum/float64(len(frame)))
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
