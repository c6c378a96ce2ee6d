package tuner

import (
	"encoding/json"
	"fmt"
	"time"
)

// StateKind tells renderers which screen to show.
type StateKind int

const (
	// StateIdle: nothing is locked, prompt to pluck a string.
	StateIdle StateKind = iota
	// StateLocked: a string is locked and its deviation is shown.
	StateLocked
	// StateStringTuned: a string just reached full progress.
	StateStringTuned
	// StateAllTuned: every string of the tuning is tuned.
	StateAllTuned
)

var stateKindNames = [...]string{"idle", "locked", "string_tuned", "all_tuned"}

func (k StateKind) String() string {
	if int(k) < len(stateKindNames) {
		return stateKindNames[k]
	}
	return fmt.Sprintf("StateKind(%d)", int(k))
}

func (k StateKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UiState is one event emitted by a session tick.
type UiState struct {
	Kind   StateKind `json:"kind"`
	Tuning string    `json:"tuning"`
	// String is the string position of Note, -1 when nothing is locked.
	String int  `json:"string"`
	Note   Note `json:"-"`
	// Cents is the displayed deviation, shrinking to zero as Ratio reaches 1.
	Cents float64 `json:"cents"`
	Ratio float64 `json:"ratio"`
	// TooLow and Close drive the "tune up" / "tune down" hint.
	TooLow bool `json:"too_low"`
	Close  bool `json:"close"`
	// LabelChanged is set on the first tick that shows a new note name.
	LabelChanged bool `json:"label_changed"`
	// Transition is how long renderers should animate towards this state.
	Transition time.Duration `json:"transition_ms"`
	// Marked lists the tuned mark of every string.
	Marked []bool `json:"marked"`
}

func (s UiState) MarshalJSON() ([]byte, error) {
	type plain UiState
	return json.Marshal(struct {
		plain
		Note       string `json:"note"`
		Transition int64  `json:"transition_ms"`
	}{plain(s), s.Note.String(), s.Transition.Milliseconds()})
}

// Renderer consumes emitted states. Implementations must not block the tick
// for long.
type Renderer interface {
	Render(UiState)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(UiState)

func (f RendererFunc) Render(s UiState) { f(s) }

// Renderers fans states out to several renderers.
type Renderers []Renderer

func (rs Renderers) Render(s UiState) {
	for _, r := range rs {
		r.Render(s)
	}
}

// Chime plays a confirmation cue. Play must not block.
type Chime interface {
	Play()
}

type nopChime struct{}

func (nopChime) Play() {}

// NopChime is a Chime that does nothing.
var NopChime Chime = nopChime{}
