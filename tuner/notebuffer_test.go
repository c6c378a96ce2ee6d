package tuner

import (
	"slices"
	"testing"
)

func collectRuns(b *NoteBuffer) []Run {
	var out []Run
	for r := range b.Runs() {
		out = append(out, r)
	}
	return out
}

func TestNoteBufferStartsSilent(t *testing.T) {
	b := NewNoteBuffer(15)
	runs := collectRuns(b)
	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	if !runs[0].IsSilence() || runs[0].Len != 15 {
		t.Fatalf("expected silence run of 15, got %+v", runs[0])
	}
}

func TestNoteBufferEvictsOldest(t *testing.T) {
	b := NewNoteBuffer(3)
	g, c, e, a := MustParseNote("G4"), MustParseNote("C4"), MustParseNote("E4"), MustParseNote("A4")
	for _, n := range []Note{g, c, e, a} {
		b.Push(n)
	}
	if b.At(0) != a || b.At(1) != e || b.At(2) != c {
		t.Fatalf("unexpected contents %v %v %v", b.At(0), b.At(1), b.At(2))
	}
	if b.Cap() != 3 {
		t.Fatalf("capacity changed to %d", b.Cap())
	}
}

func TestRunsReconstructBuffer(t *testing.T) {
	b := NewNoteBuffer(15)
	g, c := MustParseNote("G4"), MustParseNote("C#4")
	seq := []Note{g, g, Silence, c, c, c, g, Silence, Silence, g, g, g, g, c}
	for _, n := range seq {
		b.Push(n)
	}

	runs := collectRuns(b)
	var rebuilt []Note
	next := 0
	for _, r := range runs {
		if r.Start != next {
			t.Fatalf("run %+v does not start at %d", r, next)
		}
		next += r.Len
		for i := 0; i < r.Len; i++ {
			rebuilt = append(rebuilt, r.Note)
		}
	}
	if next != b.Cap() {
		t.Fatalf("runs cover %d samples, want %d", next, b.Cap())
	}
	for i, n := range rebuilt {
		if b.At(i) != n {
			t.Fatalf("sample %d: run gives %v, buffer has %v", i, n, b.At(i))
		}
	}
	for i := 1; i < len(runs); i++ {
		if runs[i].Note == runs[i-1].Note {
			t.Fatalf("adjacent runs %d and %d are equal", i-1, i)
		}
	}
	if runs[0].Note != c || runs[0].Len != 1 || runs[1].Note != g || runs[1].Len != 4 {
		t.Fatalf("unexpected newest runs %+v %+v", runs[0], runs[1])
	}
}

func TestRunsStopEarly(t *testing.T) {
	b := NewNoteBuffer(5)
	b.Push(MustParseNote("A4"))
	n := 0
	for range b.Runs() {
		n++
		break
	}
	if n != 1 {
		t.Fatalf("expected to stop after one run, got %d", n)
	}
}

func TestNoteBufferString(t *testing.T) {
	b := NewNoteBuffer(5)
	for _, s := range []string{"G4", "C#4", "A4"} {
		b.Push(MustParseNote(s))
	}
	if got := b.String(); got != "--GcA" {
		t.Fatalf("expected --GcA, got %q", got)
	}
	b.Clear()
	if got := b.String(); got != "-----" {
		t.Fatalf("expected cleared buffer, got %q", got)
	}
}

func TestVoicedSkipsSilence(t *testing.T) {
	b := NewNoteBuffer(6)
	a := MustParseNote("A4")
	b.Push(a)
	b.Push(Silence)
	b.Push(a)
	var got []Note
	for r := range Voiced(b.Runs()) {
		got = append(got, r.Note)
	}
	if !slices.Equal(got, []Note{a, a}) {
		t.Fatalf("expected two voiced runs, got %v", got)
	}
}
