package tuner

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SessionState is the bookkeeping of the tick state machine.
type SessionState struct {
	CurrentNote  Note
	PreviousNote Note
	// PreviousName is the note name currently on display, NoName after an
	// idle or victory screen.
	PreviousName NoteName
	// Resettable arms the one-shot "signal lost" transition; it is re-armed
	// only by a locked tick.
	Resettable bool
	// SoftResettable arms the transition that drops running progress when the
	// locked note changes or gives way to silence or noise.
	SoftResettable bool
	Victory        bool
	VictoryPaused  bool
}

// Session turns a stream of frequency estimates into UI states. All state is
// owned by the session and changes only inside Tick; ticks are serialized.
type Session struct {
	id       string
	cfg      Config
	mapper   NoteMapper
	renderer Renderer
	chime    Chime
	log      *slog.Logger

	pending atomic.Pointer[Tuning]

	mu           sync.Mutex
	tuning       Tuning
	buffer       *NoteBuffer
	progress     *ProgressTracker
	state        SessionState
	victoryUntil time.Time
}

// NewSession validates cfg and resolves its tuning. A nil renderer or chime
// is replaced by a no-op.
func NewSession(cfg Config, mapper NoteMapper, renderer Renderer, chime Chime) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if mapper == nil {
		return nil, fmt.Errorf("%w: nil note mapper", ErrInvalidConfig)
	}
	t, err := LookupTuning(cfg.Tuning)
	if err != nil {
		return nil, err
	}
	if renderer == nil {
		renderer = RendererFunc(func(UiState) {})
	}
	if chime == nil {
		chime = NopChime
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		cfg:      cfg,
		mapper:   mapper,
		renderer: renderer,
		chime:    chime,
		log:      slog.Default().With("session", id),
		tuning:   t,
		buffer:   NewNoteBuffer(cfg.NoteBufferSize),
		progress: NewProgressTracker(len(t.Notes), cfg.TuneBufferSize),
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() Config {
	return s.cfg
}

// SetTuning switches to a built-in tuning. The switch, and the hard reset it
// implies, happens on the next tick.
func (s *Session) SetTuning(name string) error {
	t, err := LookupTuning(name)
	if err != nil {
		return err
	}
	s.pending.Store(&t)
	return nil
}

// UseTuning is SetTuning for a custom tuning.
func (s *Session) UseTuning(t Tuning) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.pending.Store(&t)
	return nil
}

// Tuning returns the active tuning, or the pending one if a switch has been
// requested.
func (s *Session) Tuning() Tuning {
	if t := s.pending.Load(); t != nil {
		return *t
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tuning
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Progress() []Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress.Snapshot()
}

// Prompt emits the idle state, asking for a string to be plucked.
func (s *Session) Prompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitIdle()
}

// Tick runs one sampling step with the latest frequency estimate. A NaN
// frequency is silence.
func (s *Session) Tick(now time.Time, frequency float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	if st.VictoryPaused {
		if now.Before(s.victoryUntil) {
			return
		}
		st.VictoryPaused = false
		st.Victory = false
		s.log.Info("victory over, listening again")
		s.emitIdle()
		return
	}

	if t := s.pending.Swap(nil); t != nil {
		s.hardReset(*t)
	}

	reading := s.mapper.ToNote(frequency)
	s.buffer.Push(reading.Note)
	s.log.Debug("tick", "buffer", s.buffer.String(), "note", reading.Note, "cents", reading.Cents)

	c, current := Classify(s.buffer, s.tuning, s.cfg.LockThreshold)
	st.CurrentNote = current

	if c.LongNoise && st.Resettable {
		st.CurrentNote = Silence
		st.Resettable = false
		s.log.Debug("signal lost")
		s.emitIdle()
	} else if !current.IsSilence() && !math.IsNaN(reading.Cents) {
		s.lock(now, reading, current)
	}

	noteChanged := st.PreviousNote != st.CurrentNote
	st.PreviousNote = st.CurrentNote

	if st.SoftResettable && noteChanged {
		s.progress.SoftReset(s.tuning.StringIndex(st.CurrentNote))
		st.SoftResettable = false
	} else if st.SoftResettable && (c.Silence || c.ShortNoise) {
		st.CurrentNote = Silence
		s.progress.SoftReset(-1)
		st.SoftResettable = false
		s.log.Debug("progress dropped", "silence", c.Silence, "short_noise", c.ShortNoise)
	}
}

func (s *Session) lock(now time.Time, reading Reading, target Note) {
	st := &s.state
	st.Resettable = true
	st.SoftResettable = true

	i := s.tuning.StringIndex(target)
	if i < 0 {
		panic(fmt.Sprintf("tuner: resolved note %v is not in tuning %q", target, s.tuning.Name))
	}

	dev := Smooth(reading, target)
	if dev.Hit {
		s.progress.RecordHit(i)
	}
	ratio := s.progress.Ratio(i)
	cents := DisplayCents(dev.Rounded, ratio)

	labelChanged := st.PreviousName != target.Name
	st.PreviousName = target.Name

	s.renderer.Render(UiState{
		Kind:         StateLocked,
		Tuning:       s.tuning.Name,
		String:       i,
		Note:         target,
		Cents:        cents,
		Ratio:        ratio,
		TooLow:       dev.TooLow,
		Close:        reading.Note == target && cents == 0,
		LabelChanged: labelChanged,
		Transition:   s.cfg.AnimationDuration,
		Marked:       s.marked(),
	})

	if !s.progress.Complete(i) {
		return
	}
	s.log.Info("string tuned", "note", target, "string", i)
	s.chime.Play()
	s.renderer.Render(UiState{
		Kind:       StateStringTuned,
		Tuning:     s.tuning.Name,
		String:     i,
		Note:       target,
		Ratio:      ratio,
		Close:      true,
		Transition: s.cfg.AnimationDuration,
		Marked:     s.marked(),
	})

	if s.progress.AllMarked() {
		s.victory(now)
	}
}

func (s *Session) victory(now time.Time) {
	st := &s.state
	st.Victory = true
	st.VictoryPaused = true
	st.CurrentNote = Silence
	st.Resettable = false
	st.PreviousName = NoName
	s.victoryUntil = now.Add(s.cfg.VictoryDuration)
	s.progress.HardReset(len(s.tuning.Notes))
	s.buffer.Clear()

	s.log.Info("all strings tuned", "tuning", s.tuning.Name)
	s.chime.Play()
	s.renderer.Render(UiState{
		Kind:       StateAllTuned,
		Tuning:     s.tuning.Name,
		String:     -1,
		Transition: s.cfg.AnimationDuration,
		Marked:     s.marked(),
	})
}

func (s *Session) hardReset(t Tuning) {
	s.log.Info("tuning changed", "from", s.tuning.Name, "to", t.Name)
	s.tuning = t
	s.state.CurrentNote = Silence
	s.state.Victory = false
	s.progress.HardReset(len(t.Notes))
}

// emitIdle blanks the displayed note, so the next lock reports a label change.
func (s *Session) emitIdle() {
	s.state.PreviousName = NoName
	s.renderer.Render(UiState{
		Kind:       StateIdle,
		Tuning:     s.tuning.Name,
		String:     -1,
		Transition: s.cfg.AnimationDuration,
		Marked:     s.marked(),
	})
}

func (s *Session) marked() []bool {
	out := make([]bool, s.progress.Len())
	for i := range out {
		out[i] = s.progress.At(i).Marked
	}
	return out
}
