package tuner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NoteName is a pitch class of the chromatic scale. The zero value means no
// pitch (silence).
type NoteName uint8

const (
	NoName NoteName = iota
	C
	CSharp
	D
	DSharp
	E
	F
	FSharp
	G
	GSharp
	A
	ASharp
	B
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func (n NoteName) String() string {
	if n == NoName || n > B {
		return "-"
	}
	return noteNames[n-1]
}

// Semitone returns the offset of the pitch class above C (0..11).
func (n NoteName) Semitone() int {
	return int(n) - 1
}

// Note is a pitch class plus octave. The zero Note is silence, so a Note
// doubles as a note-or-silence sample and compares with ==.
type Note struct {
	Name   NoteName
	Octave int
}

// Silence is the sample pushed when the detector reports no usable pitch.
var Silence = Note{}

func (n Note) IsSilence() bool {
	return n.Name == NoName
}

// Index is the position of the note on the ascending chromatic index that
// starts at C1. Notes outside octaves 1..8 extend the index linearly.
func (n Note) Index() int {
	return (n.Octave-1)*12 + n.Name.Semitone()
}

// Midi returns the MIDI key number (A4 = 69).
func (n Note) Midi() int {
	return (n.Octave+1)*12 + n.Name.Semitone()
}

// Frequency is the equal-tempered frequency of the note with A4 = 440 Hz.
func (n Note) Frequency() float64 {
	if n.IsSilence() {
		return math.NaN()
	}
	return 440.0 * math.Pow(2, float64(n.Midi()-69)/12)
}

func (n Note) String() string {
	if n.IsSilence() {
		return "-"
	}
	return fmt.Sprintf("%s%d", n.Name, n.Octave)
}

// NoteFromMidi converts a MIDI key number into a Note.
func NoteFromMidi(midi int) Note {
	semitone := ((midi % 12) + 12) % 12
	octave := (midi-semitone)/12 - 1
	return Note{Name: NoteName(semitone + 1), Octave: octave}
}

// ParseNote parses names like "G4", "C#3" or "A_4".
func ParseNote(s string) (Note, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if len(s) < 2 {
		return Silence, fmt.Errorf("invalid note %q", s)
	}
	i := 1
	if s[1] == '#' {
		i = 2
	}
	var name NoteName
	for k, v := range noteNames {
		if strings.EqualFold(s[:i], v) {
			name = NoteName(k + 1)
			break
		}
	}
	if name == NoName {
		return Silence, fmt.Errorf("invalid note name in %q", s)
	}
	octave, err := strconv.Atoi(s[i:])
	if err != nil || octave < 0 || octave > 9 {
		return Silence, fmt.Errorf("invalid octave in %q", s)
	}
	return Note{Name: name, Octave: octave}, nil
}

// MustParseNote is ParseNote for package-level tables.
func MustParseNote(s string) Note {
	n, err := ParseNote(s)
	if err != nil {
		panic(err)
	}
	return n
}

// Reading is what a NoteMapper derives from one frequency estimate. Note is
// Silence when the frequency was unusable; Cents is NaN in that case.
type Reading struct {
	Note      Note
	Cents     float64
	Frequency float64
}

// NoteMapper turns frequency estimates into notes.
type NoteMapper interface {
	ToNote(frequency float64) Reading
}
