package tuner

import "iter"

// shortNoiseRuns is how many noisy runs in front of the candidate count as
// short noise.
const shortNoiseRuns = 3

// Candidate returns the note of the newest voiced run longer than threshold,
// or Silence. This is the debounce gate: one-off detections never qualify.
func Candidate(runs iter.Seq[Run], threshold int) Note {
	for r := range Voiced(runs) {
		if r.Len > threshold {
			return r.Note
		}
	}
	return Silence
}

// IsLongNoise reports whether no voiced run is longer than threshold, meaning
// there is no confident note in the whole buffer.
func IsLongNoise(runs iter.Seq[Run], threshold int) bool {
	for r := range Voiced(runs) {
		if r.Len > threshold {
			return false
		}
	}
	return true
}

// IsShortNoise counts voiced runs, newest first, for as long as each one is
// either a different note than current or a still-short run of current. Three
// or more such runs are noise in front of the candidate.
func IsShortNoise(runs iter.Seq[Run], current Note, threshold int) bool {
	count := 0
	for r := range Voiced(runs) {
		if r.Note == current && r.Len > threshold {
			break
		}
		count++
		if count >= shortNoiseRuns {
			return true
		}
	}
	return false
}

// IsSilence reports whether the newest run is silence at least two samples
// long.
func IsSilence(runs iter.Seq[Run]) bool {
	for r := range runs {
		return r.IsSilence() && r.Len >= 2
	}
	return false
}

// Classification is the per-tick verdict over the note buffer.
type Classification struct {
	Detected  Note // newest run that passed the debounce gate
	LongNoise bool
	// ShortNoise is judged against the resolved target note, not Detected.
	ShortNoise bool
	Silence    bool
}

// Classify runs every check over one snapshot of the buffer. The current note
// passed to the short-noise check is the detected note resolved against t.
func Classify(b *NoteBuffer, t Tuning, threshold int) (Classification, Note) {
	runs := b.Runs()
	c := Classification{
		Detected:  Candidate(runs, threshold),
		LongNoise: IsLongNoise(runs, threshold),
		Silence:   IsSilence(runs),
	}
	current := t.Closest(c.Detected)
	c.ShortNoise = IsShortNoise(runs, current, threshold)
	return c, current
}
