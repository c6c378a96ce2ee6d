package main

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/spf13/cobra"
	"github.com/unixpickle/wav"

	"ukulele-tuner/pitch"
	"ukulele-tuner/tuner"
)

func init() {
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay file.wav",
	Short: "Runs the tuner over a recording",
	Long:  `Feeds a WAV file through the tuner at the configured tick rate and prints every state.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		samples, rate, err := readMono(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		det, err := pitch.NewDetector(cfg.BufferSize, rate, cfg.SilenceDB)
		if err != nil {
			return err
		}
		out := &printRenderer{w: cmd.OutOrStdout()}
		session, err := tuner.NewSession(cfg, pitch.Mapper{}, out, newChime(flagChime, nil, rate))
		if err != nil {
			return err
		}
		ticks := replay(session, det, samples, rate, out)
		logger.Info("replay done", "file", args[0], "ticks", ticks, "sample_rate", rate)
		return nil
	},
}

// readMono loads a WAV file and averages its channels.
func readMono(path string) ([]float32, int, error) {
	s, err := wav.ReadSoundFile(path)
	if err != nil {
		return nil, 0, err
	}
	ch := max(s.Channels(), 1)
	raw := s.Samples()
	out := make([]float32, len(raw)/ch)
	for i := range out {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(raw[i*ch+c])
		}
		out[i] = float32(sum / float64(ch))
	}
	return out, s.SampleRate(), nil
}

// frameAt returns the size samples ending at sample end, or nil while fewer
// than size samples have been heard.
func frameAt(samples []float32, end, size int) []float32 {
	end = min(end, len(samples))
	if end < size {
		return nil
	}
	return samples[end-size : end]
}

// replay ticks session once per interval of recorded time, estimating the
// pitch of the latest frame as the capture loop would. It returns the number
// of ticks run.
func replay(session *tuner.Session, det tuner.PitchDetector, samples []float32, rate int, out *printRenderer) int {
	cfg := session.Config()
	start := time.Unix(0, 0)
	duration := time.Duration(float64(len(samples)) / float64(rate) * float64(time.Second))
	ticks := 0
	for at := cfg.Interval; at <= duration; at += cfg.Interval {
		end := int(at.Seconds() * float64(rate))
		freq := math.NaN()
		if frame := frameAt(samples, end, cfg.BufferSize); frame != nil {
			freq = det.Estimate(frame)
		}
		if out != nil {
			out.at = at
		}
		session.Tick(start.Add(at), freq)
		ticks++
	}
	return ticks
}

// printRenderer prints every state with its position in the recording.
type printRenderer struct {
	w  io.Writer
	at time.Duration
}

func (p *printRenderer) Render(s tuner.UiState) {
	ts := p.at.Round(time.Millisecond)
	switch s.Kind {
	case tuner.StateLocked:
		fmt.Fprintf(p.w, "%8s %-12s %-4s %+6.1f¢ ratio=%.2f\n", ts, s.Kind, s.Note, s.Cents, s.Ratio)
	case tuner.StateStringTuned:
		fmt.Fprintf(p.w, "%8s %-12s %-4s marked=%v\n", ts, s.Kind, s.Note, s.Marked)
	default:
		fmt.Fprintf(p.w, "%8s %s\n", ts, s.Kind)
	}
}
