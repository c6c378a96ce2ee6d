package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ukulele-tuner/pitch"
	"ukulele-tuner/tuner"
)

// logger is the package-wide structured logger; slog.Default() until
// initLogger runs.
var logger = slog.Default()

// initLogger installs the shared handler with slog.SetDefault so that
// log.Printf calls route through it too.
func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

var (
	flagConfig string
	flagTuning string
	flagDebug  bool
	flagChime  string
)

var rootCmd = &cobra.Command{
	Use:   "tuner",
	Short: "Ukulele tuner",
	Long:  `Listens to the microphone and tells when every string is in tune.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(flagDebug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGUI()
	},
}

var tuningsCmd = &cobra.Command{
	Use:   "tunings",
	Short: "Lists the built-in tunings",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range tuner.TuningNames() {
			t, _ := tuner.LookupTuning(name)
			notes := make([]string, len(t.Notes))
			for i, n := range t.Notes {
				notes[i] = n.String()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s\n", name, strings.Join(notes, " "))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagTuning, "tuning", "", "tuning name (see 'tuner tunings')")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&flagChime, "chime", "audio", "tuned chime: audio, midi or none")
	rootCmd.AddCommand(tuningsCmd)
}

// loadConfig resolves defaults, the config file and the --tuning flag, in
// that order.
func loadConfig() (tuner.Config, error) {
	cfg := tuner.DefaultConfig()
	if flagConfig != "" {
		var err error
		cfg, err = tuner.LoadConfig(flagConfig)
		if err != nil {
			return cfg, fmt.Errorf("config %s: %w", flagConfig, err)
		}
	}
	if flagTuning != "" {
		cfg.Tuning = flagTuning
	}
	return cfg, cfg.Validate()
}

// detectorFactory builds the YIN detector for cfg at the given sample rate.
func detectorFactory(cfg tuner.Config, sampleRate int) func() (tuner.PitchDetector, error) {
	return func() (tuner.PitchDetector, error) {
		return pitch.NewDetector(cfg.BufferSize, sampleRate, cfg.SilenceDB)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
