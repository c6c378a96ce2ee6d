package tuner

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the tuner's tunables. DefaultConfig returns the values the
// tuner was calibrated with.
type Config struct {
	// BufferSize is the number of samples per analysed audio frame.
	BufferSize int
	SampleRate int
	// SilenceDB is the level below which frames count as silence.
	SilenceDB float64
	// Interval is the sampling tick period.
	Interval       time.Duration
	NoteBufferSize int
	TuneBufferSize int
	// LockThreshold is the run length a note has to exceed to lock.
	LockThreshold     int
	VictoryDuration   time.Duration
	AnimationDuration time.Duration
	Tuning            string
}

func DefaultConfig() Config {
	return Config{
		BufferSize:        8192,
		SampleRate:        48000,
		SilenceDB:         -55,
		Interval:          185 * time.Millisecond,
		NoteBufferSize:    15,
		TuneBufferSize:    5,
		LockThreshold:     3,
		VictoryDuration:   3500 * time.Millisecond,
		AnimationDuration: 500 * time.Millisecond,
		Tuning:            "gCEA",
	}
}

func (c Config) Validate() error {
	switch {
	case c.BufferSize < 2:
		return fmt.Errorf("%w: buffer_size must be >= 2", ErrInvalidConfig)
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample_rate must be > 0", ErrInvalidConfig)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be > 0", ErrInvalidConfig)
	case c.NoteBufferSize < 1:
		return fmt.Errorf("%w: note_buffer_size must be >= 1", ErrInvalidConfig)
	case c.TuneBufferSize < 1:
		return fmt.Errorf("%w: tune_buffer_size must be >= 1", ErrInvalidConfig)
	case c.LockThreshold < 0:
		return fmt.Errorf("%w: lock_threshold must be >= 0", ErrInvalidConfig)
	case c.VictoryDuration < 0 || c.AnimationDuration < 0:
		return fmt.Errorf("%w: durations must be >= 0", ErrInvalidConfig)
	}
	if _, err := LookupTuning(c.Tuning); err != nil {
		return err
	}
	return nil
}

// File is the YAML schema of a config file. Absent keys keep their defaults.
type File struct {
	BufferSize     *int     `yaml:"buffer_size"`
	SampleRate     *int     `yaml:"sample_rate"`
	SilenceDB      *float64 `yaml:"silence_db"`
	IntervalMS     *int     `yaml:"interval_ms"`
	NoteBufferSize *int     `yaml:"note_buffer_size"`
	TuneBufferSize *int     `yaml:"tune_buffer_size"`
	LockThreshold  *int     `yaml:"lock_threshold"`
	VictoryMS      *int     `yaml:"victory_ms"`
	AnimationMS    *int     `yaml:"animation_ms"`
	Tuning         *string  `yaml:"tuning"`
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (Config, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c := DefaultConfig()
	f.apply(&c)
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (f *File) apply(c *Config) {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	if f.BufferSize != nil {
		c.BufferSize = *f.BufferSize
	}
	if f.SampleRate != nil {
		c.SampleRate = *f.SampleRate
	}
	if f.SilenceDB != nil {
		c.SilenceDB = *f.SilenceDB
	}
	if f.IntervalMS != nil {
		c.Interval = ms(*f.IntervalMS)
	}
	if f.NoteBufferSize != nil {
		c.NoteBufferSize = *f.NoteBufferSize
	}
	if f.TuneBufferSize != nil {
		c.TuneBufferSize = *f.TuneBufferSize
	}
	if f.LockThreshold != nil {
		c.LockThreshold = *f.LockThreshold
	}
	if f.VictoryMS != nil {
		c.VictoryDuration = ms(*f.VictoryMS)
	}
	if f.AnimationMS != nil {
		c.AnimationDuration = ms(*f.AnimationMS)
	}
	if f.Tuning != nil {
		c.Tuning = *f.Tuning
	}
}
