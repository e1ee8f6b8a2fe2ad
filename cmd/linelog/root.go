package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"linelog/internal/config"
	"linelog/internal/slogutil"
	"linelog/internal/version"
)

var (
	repoFlag      string
	verbosityFlag int
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "linelog",
	Short: "linelog - line lineage tracing for git repositories",
	Long: `linelog reconstructs the history of individual lines of text.

Given lines selected from the working tree, it walks backward through
the repository's history, finding each revision whose change touched
the line's content, recovering what the line looked like before, and
repeating until the origin is reached or the step budget runs out.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("linelog version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Repository root (default: current directory)")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v",
		"Increase log verbosity (-v: info, -vv: debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false,
		"Suppress all log output")
}

// resolveRepoRoot returns the repository root from the --repo flag or
// the current directory.
func resolveRepoRoot() (string, error) {
	if repoFlag != "" {
		return repoFlag, nil
	}
	return os.Getwd()
}

// mustResolveRepoRoot returns the repository root or exits on error.
func mustResolveRepoRoot() string {
	root, err := resolveRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return root
}

// newLogger creates the CLI logger honoring --quiet and -v.
func newLogger() *slog.Logger {
	return slogutil.NewLogger(os.Stderr, slogutil.LevelFromVerbosity(verbosityFlag, quietFlag))
}

// resolveLogLevel picks the effective level: -v/-q win, otherwise the
// configured logging.level applies.
func resolveLogLevel(cfgLevel string, verbosity int, quiet bool) slog.Level {
	if quiet || verbosity > 0 {
		return slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	if cfgLevel != "" {
		return slogutil.LevelFromString(cfgLevel)
	}
	return slogutil.LevelFromVerbosity(0, false)
}

// newLoggerFromConfig creates the CLI logger from the loaded config,
// with the verbosity flags taking precedence over logging.level. When
// logging.file is set the logger writes there instead of stderr; the
// file stays open for the life of the process.
func newLoggerFromConfig(repoRoot string, cfg *config.Config) *slog.Logger {
	level := resolveLogLevel(cfg.Logging.Level, verbosityFlag, quietFlag)

	if cfg.Logging.File != "" {
		logger, _, err := slogutil.NewFileLogger(resolveStatePath(repoRoot, cfg.Logging.File), level)
		if err == nil {
			return logger
		}
		fmt.Fprintf(os.Stderr, "Warning: cannot open log file %s: %v\n", cfg.Logging.File, err)
	}

	return slogutil.NewLogger(os.Stderr, level)
}
