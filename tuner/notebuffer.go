package tuner

import (
	"iter"
	"strings"
)

// NoteBuffer holds the most recent samples in a fixed-size ring. It always
// has exactly Cap() entries; unused slots are Silence.
type NoteBuffer struct {
	samples []Note
	head    int // index of the oldest sample
}

func NewNoteBuffer(size int) *NoteBuffer {
	if size < 1 {
		size = 1
	}
	return &NoteBuffer{samples: make([]Note, size)}
}

func (b *NoteBuffer) Cap() int {
	return len(b.samples)
}

// Push appends s and evicts the oldest sample.
func (b *NoteBuffer) Push(s Note) {
	b.samples[b.head] = s
	b.head = (b.head + 1) % len(b.samples)
}

// At returns the i-th most recent sample (0 is the newest).
func (b *NoteBuffer) At(i int) Note {
	n := len(b.samples)
	return b.samples[(b.head-1-i+2*n)%n]
}

// Clear refills the buffer with Silence.
func (b *NoteBuffer) Clear() {
	clear(b.samples)
	b.head = 0
}

// Run is a maximal stretch of equal consecutive samples.
type Run struct {
	Note Note
	// Start is the offset of the run's newest sample (0 is the newest sample
	// in the buffer).
	Start int
	Len   int
}

func (r Run) IsSilence() bool {
	return r.Note.IsSilence()
}

// Runs yields the buffer's runs newest first. It is a view over the current
// contents and allocates nothing; every call scans again.
func (b *NoteBuffer) Runs() iter.Seq[Run] {
	return func(yield func(Run) bool) {
		n := len(b.samples)
		for i := 0; i < n; {
			r := Run{Note: b.At(i), Start: i, Len: 1}
			for i+r.Len < n && b.At(i+r.Len) == r.Note {
				r.Len++
			}
			if !yield(r) {
				return
			}
			i += r.Len
		}
	}
}

// Voiced yields the non-silent runs of seq.
func Voiced(seq iter.Seq[Run]) iter.Seq[Run] {
	return func(yield func(Run) bool) {
		for r := range seq {
			if r.IsSilence() {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// String renders the buffer oldest first, one character per sample: '-' for
// silence, the letter for a natural note and the lowercase letter for a sharp.
func (b *NoteBuffer) String() string {
	var sb strings.Builder
	for i := len(b.samples) - 1; i >= 0; i-- {
		n := b.At(i)
		switch {
		case n.IsSilence():
			sb.WriteByte('-')
		case strings.HasSuffix(n.Name.String(), "#"):
			sb.WriteString(strings.ToLower(n.Name.String()[:1]))
		default:
			sb.WriteString(n.Name.String())
		}
	}
	return sb.String()
}
