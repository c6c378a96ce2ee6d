package tuner

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestParseConfigOverridesDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte("tuning: DGBE\ninterval_ms: 100\nlock_threshold: 2\n"))
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.Tuning != "DGBE" || cfg.Interval != 100*time.Millisecond || cfg.LockThreshold != 2 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.NoteBufferSize != 15 || cfg.VictoryDuration != 3500*time.Millisecond {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want error
	}{
		{"unknown tuning", "tuning: banjo\n", ErrUnknownTuning},
		{"zero interval", "interval_ms: 0\n", ErrInvalidConfig},
		{"tiny buffer", "buffer_size: 1\n", ErrInvalidConfig},
		{"not yaml", "tuning: [\n", ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml))
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuner.yaml")
	if err := os.WriteFile(path, []byte("victory_ms: 1000\nsilence_db: -60\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.VictoryDuration != time.Second || cfg.SilenceDB != -60 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
