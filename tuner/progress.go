package tuner

// Progress is the tuning progress of one string.
type Progress struct {
	// Hits counts exact matches since the last reset. It is not capped; only
	// the ratio saturates.
	Hits int
	// Complete latches the first time the ratio reaches 1 so that completion
	// is reported once.
	Complete bool
	// Marked is the string's "tuned" mark. It survives soft resets and is
	// cleared by hard resets and victory.
	Marked bool
}

// ProgressTracker keeps progress per string, indexed by string position.
type ProgressTracker struct {
	strings [MaxStrings]Progress
	n       int
	size    int
}

func NewProgressTracker(numStrings, tuneBufferSize int) *ProgressTracker {
	return &ProgressTracker{n: clamp(numStrings, 0, MaxStrings), size: tuneBufferSize}
}

func (p *ProgressTracker) Len() int {
	return p.n
}

func (p *ProgressTracker) At(i int) Progress {
	return p.strings[i]
}

// Ratio is the saturating progress of string i in [0,1].
func (p *ProgressTracker) Ratio(i int) float64 {
	return clamp(float64(p.strings[i].Hits)/float64(p.size), 0, 1)
}

// RecordHit counts an exact match on string i.
func (p *ProgressTracker) RecordHit(i int) {
	p.strings[i].Hits++
}

// Complete reports whether string i just reached full progress for the first
// time since its mark was cleared, and marks the string. Re-tuning a marked
// string after a soft reset latches Complete again but reports false.
func (p *ProgressTracker) Complete(i int) bool {
	s := &p.strings[i]
	if p.Ratio(i) < 1 || s.Complete {
		return false
	}
	s.Complete = true
	if s.Marked {
		return false
	}
	s.Marked = true
	return true
}

// AllMarked reports whether every string has been tuned.
func (p *ProgressTracker) AllMarked() bool {
	for i := 0; i < p.n; i++ {
		if !p.strings[i].Marked {
			return false
		}
	}
	return p.n > 0
}

// ResetString clears the running progress of string i, keeping its mark.
func (p *ProgressTracker) ResetString(i int) {
	p.strings[i].Hits = 0
	p.strings[i].Complete = false
}

// SoftReset clears the running progress of every string except keep, which
// may be -1.
func (p *ProgressTracker) SoftReset(keep int) {
	for i := 0; i < p.n; i++ {
		if i != keep {
			p.ResetString(i)
		}
	}
}

// HardReset clears everything, marks included, and resizes to numStrings.
func (p *ProgressTracker) HardReset(numStrings int) {
	p.strings = [MaxStrings]Progress{}
	p.n = clamp(numStrings, 0, MaxStrings)
}

// Snapshot copies the progress of the active strings.
func (p *ProgressTracker) Snapshot() []Progress {
	out := make([]Progress, p.n)
	copy(out, p.strings[:p.n])
	return out
}
