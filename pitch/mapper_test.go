package pitch

import (
	"math"
	"testing"

	"ukulele-tuner/tuner"
)

func TestToNoteA4(t *testing.T) {
	r := Mapper{}.ToNote(440.0)
	if r.Note.String() != "A4" {
		t.Fatalf("expected A4, got %s", r.Note)
	}
	if math.Abs(r.Cents) > 0.1 {
		t.Fatalf("expected cents near 0, got %.3f", r.Cents)
	}
}

func TestToNoteCents(t *testing.T) {
	tests := []struct {
		freq  float64
		note  string
		cents float64
	}{
		{220.0, "A3", 0},
		{392.0, "G4", 0.02},
		{261.63, "C4", 0.01},
		{446.0, "A4", 23.45},
		{430.0, "A4", -39.8},
		{82.41, "E2", 0.01},
	}
	for _, tt := range tests {
		r := Mapper{}.ToNote(tt.freq)
		if r.Note != tuner.MustParseNote(tt.note) {
			t.Fatalf("%.2fHz: expected %s, got %s", tt.freq, tt.note, r.Note)
		}
		if math.Abs(r.Cents-tt.cents) > 0.1 {
			t.Fatalf("%.2fHz: expected %.2f cents, got %.3f", tt.freq, tt.cents, r.Cents)
		}
	}
}

func TestToNoteSilence(t *testing.T) {
	for _, f := range []float64{math.NaN(), 0, -1, math.Inf(1)} {
		r := Mapper{}.ToNote(f)
		if !r.Note.IsSilence() || !math.IsNaN(r.Cents) {
			t.Fatalf("%v: expected silence, got %+v", f, r)
		}
	}
}

func TestToNoteReference(t *testing.T) {
	r := Mapper{A4: 432}.ToNote(432)
	if r.Note.String() != "A4" || math.Abs(r.Cents) > 1e-9 {
		t.Fatalf("expected A4 at 432Hz reference, got %s %+.3f", r.Note, r.Cents)
	}
}
