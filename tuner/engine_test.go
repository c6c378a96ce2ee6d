package tuner

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// constDetector reports the same frequency for every frame.
type constDetector struct {
	freq  float64
	calls atomic.Int64
}

func (d *constDetector) Estimate([]float32) float64 {
	d.calls.Add(1)
	return d.freq
}

type syncRecorder struct {
	mu     sync.Mutex
	states []UiState
}

func (r *syncRecorder) Render(s UiState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *syncRecorder) has(k StateKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.states {
		if s.Kind == k {
			return true
		}
	}
	return false
}

func TestFrequencyCellLatestWins(t *testing.T) {
	var c FrequencyCell
	if !math.IsNaN(c.Load()) {
		t.Fatalf("empty cell should hold NaN, got %v", c.Load())
	}
	c.Store(100)
	c.Store(220)
	if c.Load() != 220 {
		t.Fatalf("expected the latest value, got %v", c.Load())
	}
}

func TestNewEngineDetectorFailure(t *testing.T) {
	s, err := NewSession(DefaultConfig(), testMapper{}, nil, nil)
	require.NoError(t, err)
	_, err = NewEngine(s, func() (PitchDetector, error) {
		return nil, errors.New("no microphone")
	})
	assert.True(t, errors.Is(err, ErrDetector))
}

func TestEngineRunsTicks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = 5 * time.Millisecond
	rec := &syncRecorder{}
	s, err := NewSession(cfg, testMapper{}, rec, nil)
	require.NoError(t, err)

	det := &constDetector{freq: MustParseNote("E4").Frequency()}
	e, err := NewEngine(s, func() (PitchDetector, error) { return det, nil })
	require.NoError(t, err)

	e.Feed(make([]float32, 16))
	assert.Equal(t, int64(0), det.calls.Load(), "frames before Start are dropped")

	require.NoError(t, e.Start(context.Background()))
	assert.Error(t, e.Start(context.Background()))
	assert.True(t, rec.has(StateIdle), "start prompts for a string")

	e.Feed(make([]float32, 16))
	require.Eventually(t, func() bool { return rec.has(StateLocked) }, 2*time.Second, 5*time.Millisecond)

	e.Stop()
	calls := det.calls.Load()
	e.Feed(make([]float32, 16))
	assert.Equal(t, calls, det.calls.Load(), "frames after Stop are dropped")
	e.Stop()
}

func TestEngineStopsWithContext(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Interval = time.Millisecond
	s, err := NewSession(cfg, testMapper{}, nil, nil)
	require.NoError(t, err)
	det := &constDetector{freq: math.NaN()}
	e, err := NewEngine(s, func() (PitchDetector, error) { return det, nil })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx))
	cancel()
	require.Eventually(t, func() bool { return !e.alive.Load() }, time.Second, time.Millisecond)

	// restart without an intervening Stop
	require.Eventually(t, func() bool { return e.Start(context.Background()) == nil }, time.Second, time.Millisecond)
	assert.True(t, e.alive.Load())
	e.Stop()
	assert.False(t, e.alive.Load())
}
