package tuner

import (
	"math"
	"testing"
	"time"
)

// testMapper is an equal-tempered NoteMapper with A4 = 440 Hz.
type testMapper struct{}

func (testMapper) ToNote(freq float64) Reading {
	if math.IsNaN(freq) || freq <= 0 {
		return Reading{Note: Silence, Cents: math.NaN(), Frequency: freq}
	}
	n := math.Round(12 * math.Log2(freq/440))
	target := 440 * math.Pow(2, n/12)
	return Reading{Note: NoteFromMidi(int(n) + 69), Cents: 1200 * math.Log2(freq/target), Frequency: freq}
}

type recorder struct {
	states []UiState
}

func (r *recorder) Render(s UiState) { r.states = append(r.states, s) }

func (r *recorder) kinds() []StateKind {
	out := make([]StateKind, len(r.states))
	for i, s := range r.states {
		out[i] = s.Kind
	}
	return out
}

func (r *recorder) count(k StateKind) int {
	n := 0
	for _, s := range r.states {
		if s.Kind == k {
			n++
		}
	}
	return n
}

type countingChime struct{ n int }

func (c *countingChime) Play() { c.n++ }

type harness struct {
	t       *testing.T
	session *Session
	rec     *recorder
	chime   *countingChime
	now     time.Time
}

func newHarness(t *testing.T, tuning string) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Tuning = tuning
	rec := &recorder{}
	chime := &countingChime{}
	s, err := NewSession(cfg, testMapper{}, rec, chime)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return &harness{t: t, session: s, rec: rec, chime: chime, now: time.Unix(1_700_000_000, 0)}
}

// tick feeds one frequency and returns the states it emitted.
func (h *harness) tick(freq float64) []UiState {
	before := len(h.rec.states)
	h.session.Tick(h.now, freq)
	h.now = h.now.Add(h.session.Config().Interval)
	return h.rec.states[before:]
}

// play feeds note n, detuned by cents, for count ticks.
func (h *harness) play(n string, cents float64, count int) {
	f := MustParseNote(n).Frequency() * math.Pow(2, cents/1200)
	for i := 0; i < count; i++ {
		h.tick(f)
	}
}

func (h *harness) silence(count int) {
	for i := 0; i < count; i++ {
		h.tick(math.NaN())
	}
}
