package tuner

import (
	"errors"
	"fmt"
	"slices"
)

const (
	MinStrings = 3
	MaxStrings = 6
)

var (
	ErrUnknownTuning = errors.New("unknown tuning")
	ErrInvalidTuning = errors.New("invalid tuning")
)

// Tuning is a named, ordered set of target notes, one per string. The order
// is the string index used by renderers.
type Tuning struct {
	Name  string
	Notes []Note
}

var tunings = map[string]Tuning{
	"gCEA": {Name: "gCEA", Notes: notes("G4", "C4", "E4", "A4")},
	"GCEA": {Name: "GCEA", Notes: notes("G3", "C4", "E4", "A4")},
	"DGBE": {Name: "DGBE", Notes: notes("D3", "G3", "B3", "E4")},
}

var tuningOrder = []string{"gCEA", "GCEA", "DGBE"}

func notes(names ...string) []Note {
	out := make([]Note, len(names))
	for i, n := range names {
		out[i] = MustParseNote(n)
	}
	return out
}

// TuningNames lists the built-in tunings in display order.
func TuningNames() []string {
	return slices.Clone(tuningOrder)
}

// LookupTuning returns a built-in tuning by name.
func LookupTuning(name string) (Tuning, error) {
	t, ok := tunings[name]
	if !ok {
		return Tuning{}, fmt.Errorf("%w: %q", ErrUnknownTuning, name)
	}
	return Tuning{Name: t.Name, Notes: slices.Clone(t.Notes)}, nil
}

// NewTuning builds a custom tuning from note names.
func NewTuning(name string, noteNames ...string) (Tuning, error) {
	t := Tuning{Name: name, Notes: make([]Note, 0, len(noteNames))}
	for _, s := range noteNames {
		n, err := ParseNote(s)
		if err != nil {
			return Tuning{}, fmt.Errorf("%w: %v", ErrInvalidTuning, err)
		}
		t.Notes = append(t.Notes, n)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if len(t.Notes) < MinStrings || len(t.Notes) > MaxStrings {
		return fmt.Errorf("%w: %q has %d strings (want %d..%d)", ErrInvalidTuning, t.Name, len(t.Notes), MinStrings, MaxStrings)
	}
	for i, n := range t.Notes {
		if n.IsSilence() {
			return fmt.Errorf("%w: %q contains an empty note", ErrInvalidTuning, t.Name)
		}
		if slices.Index(t.Notes, n) != i {
			return fmt.Errorf("%w: %q repeats %v", ErrInvalidTuning, t.Name, n)
		}
	}
	return nil
}

// StringIndex returns the string position of n, or -1.
func (t Tuning) StringIndex(n Note) int {
	return slices.Index(t.Notes, n)
}

// Closest maps a detected note to the tuning note nearest on the chromatic
// index, which resolves detections an octave off to the intended string.
// Equal distances go to the lower note. Silence resolves to Silence.
func (t Tuning) Closest(detected Note) Note {
	if detected.IsSilence() || len(t.Notes) == 0 {
		return Silence
	}
	best := t.Notes[0]
	bestDist := distance(best, detected)
	for _, n := range t.Notes[1:] {
		d := distance(n, detected)
		if d < bestDist || (d == bestDist && n.Index() < best.Index()) {
			best, bestDist = n, d
		}
	}
	return best
}

func distance(a, b Note) int {
	d := a.Index() - b.Index()
	if d < 0 {
		return -d
	}
	return d
}
