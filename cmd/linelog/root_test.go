package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linelog/internal/config"
)

func resetFlags(t *testing.T) {
	t.Helper()
	origVerbosity, origQuiet, origBudget := verbosityFlag, quietFlag, traceBudget
	t.Cleanup(func() {
		verbosityFlag, quietFlag, traceBudget = origVerbosity, origQuiet, origBudget
	})
	verbosityFlag, quietFlag, traceBudget = 0, false, 0
}

func TestResolveLogLevel(t *testing.T) {
	tests := []struct {
		name      string
		cfgLevel  string
		verbosity int
		quiet     bool
		want      slog.Level
	}{
		{"config level applies without flags", "debug", 0, false, slog.LevelDebug},
		{"config error level", "error", 0, false, slog.LevelError},
		{"verbosity overrides config", "error", 2, false, slog.LevelDebug},
		{"quiet overrides config", "debug", 0, true, slog.Level(100)},
		{"empty config falls back to warn", "", 0, false, slog.LevelWarn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveLogLevel(tt.cfgLevel, tt.verbosity, tt.quiet); got != tt.want {
				t.Errorf("resolveLogLevel(%q, %d, %v) = %v, want %v",
					tt.cfgLevel, tt.verbosity, tt.quiet, got, tt.want)
			}
		})
	}
}

func TestNewLoggerFromConfig_File(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "run.log"

	logger := newLoggerFromConfig(dir, cfg)
	logger.Debug("opening trace cache", "path", "cache.db")

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatalf("configured log file not written: %v", err)
	}
	if !strings.Contains(string(data), "opening trace cache") {
		t.Errorf("log file missing entry:\n%s", data)
	}
}

func TestNewLoggerFromConfig_LevelFiltersOutput(t *testing.T) {
	resetFlags(t)
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Logging.File = "run.log"

	logger := newLoggerFromConfig(dir, cfg)
	logger.Info("should be suppressed")
	logger.Error("should appear")

	data, err := os.ReadFile(filepath.Join(dir, "run.log"))
	if err != nil {
		t.Fatalf("configured log file not written: %v", err)
	}
	if strings.Contains(string(data), "should be suppressed") {
		t.Error("info entry leaked past configured error level")
	}
	if !strings.Contains(string(data), "should appear") {
		t.Errorf("error entry missing:\n%s", data)
	}
}

func TestTraceOptions_BudgetZero(t *testing.T) {
	resetFlags(t)
	cfg := config.DefaultConfig()

	// Explicit --budget 0 must not fall back to the config default.
	traceBudget = 0
	opts := traceOptions(t.TempDir(), cfg, true)
	if opts.StepBudget != 0 {
		t.Errorf("explicit zero budget: StepBudget = %d, want 0", opts.StepBudget)
	}

	// Without the flag, the config default applies.
	opts = traceOptions(t.TempDir(), cfg, false)
	if opts.StepBudget != cfg.Trace.StepBudget {
		t.Errorf("flag unset: StepBudget = %d, want config default %d",
			opts.StepBudget, cfg.Trace.StepBudget)
	}
}
