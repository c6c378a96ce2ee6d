package tuner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrDetector marks a failure of the pitch detector collaborator.
var ErrDetector = errors.New("pitch detector")

// PitchDetector estimates the fundamental frequency of one audio frame. It
// returns NaN when the frame carries no usable pitch.
type PitchDetector interface {
	Estimate(frame []float32) float64
}

// Engine drives a Session: the audio side calls Feed for every frame, and a
// ticker reads the latest estimate every Interval.
type Engine struct {
	session  *Session
	detector PitchDetector
	interval time.Duration
	cell     FrequencyCell
	alive    atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine builds the detector with newDetector. If that fails, no engine is
// returned and nothing is started.
func NewEngine(session *Session, newDetector func() (PitchDetector, error)) (*Engine, error) {
	d, err := newDetector()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetector, err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: no detector", ErrDetector)
	}
	return &Engine{
		session:  session,
		detector: d,
		interval: session.Config().Interval,
	}, nil
}

func (e *Engine) Session() *Session {
	return e.session
}

// Feed estimates the pitch of frame and publishes it for the next tick.
// Frames arriving while the engine is stopped are dropped. Feed must be called
// from one goroutine at a time.
func (e *Engine) Feed(frame []float32) {
	if !e.alive.Load() {
		return
	}
	e.cell.Store(e.detector.Estimate(frame))
}

// Start begins ticking until ctx is done or Stop is called. An engine whose
// context ended can be started again without Stop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		select {
		case <-e.done:
			// the parent context ended the previous run
			e.cancel()
			e.cancel = nil
		default:
			return errors.New("engine already started")
		}
	}
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	e.alive.Store(true)
	e.session.Prompt()

	go e.loop(ctx, e.done)
	slog.Info("engine started", "session", e.session.ID(), "interval", e.interval)
	return nil
}

func (e *Engine) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.alive.Store(false)
			return
		case now := <-ticker.C:
			e.session.Tick(now, e.cell.Load())
		}
	}
}

// Stop halts the ticker and waits for an in-flight tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel == nil {
		return
	}
	e.alive.Store(false)
	e.cancel()
	<-e.done
	e.cancel = nil
	slog.Info("engine stopped", "session", e.session.ID())
}
