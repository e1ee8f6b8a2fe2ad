package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"linelog/internal/config"
	"linelog/internal/runner"
)

var (
	traceFiles       string
	traceMatch       string
	traceBudget      int
	traceOut         string
	traceCompress    bool
	traceNoCache     bool
	traceConcurrency int
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Trace the lineage of matching lines",
	Long: `Trace the history of every line matching --match in files
matching --files, walking backward through the repository's history.

Each traced line produces a step-by-step trace file under the output
directory, plus a summary.csv and a run manifest.

Examples:
  linelog trace --files '*.go' --match 'maxRetries'
  linelog trace --files '*.py' --match 'timeout\s*=' --budget 25
  linelog trace --files '*' --match 'TODO' --out /tmp/reports --compress`,
	Run: runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceFiles, "files", "", "File name pattern (glob, default from config)")
	traceCmd.Flags().StringVar(&traceMatch, "match", "", "Line selection pattern (regular expression)")
	traceCmd.Flags().IntVar(&traceBudget, "budget", 0, "Maximum backward steps per line (default from config)")
	traceCmd.Flags().StringVar(&traceOut, "out", "", "Output directory (default from config)")
	traceCmd.Flags().BoolVar(&traceCompress, "compress", false, "Gzip-compress trace files")
	traceCmd.Flags().BoolVar(&traceNoCache, "no-cache", false, "Bypass the trace cache")
	traceCmd.Flags().IntVar(&traceConcurrency, "concurrency", 0, "Concurrent traces (default from config)")
	if err := traceCmd.MarkFlagRequired("match"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) {
	start := time.Now()
	repoRoot := mustResolveRepoRoot()

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := newLoggerFromConfig(repoRoot, cfg)
	opts := traceOptions(repoRoot, cfg, cmd.Flags().Changed("budget"))

	// Ctrl-C stops cleanly; already completed traces are still reported.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, opts, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Traced %d line(s) across %d file(s) at head %s\n",
		res.LinesTraced, res.FilesScanned, shortRev(res.HeadRevision))
	if res.CacheHits > 0 {
		fmt.Printf("Cache hits: %d\n", res.CacheHits)
	}
	if res.Failures > 0 {
		fmt.Printf("Failures:   %d\n", res.Failures)
	}
	fmt.Printf("Summary:    %s\n", res.SummaryPath)
	fmt.Printf("\n(Run took %dms)\n", time.Since(start).Milliseconds())

	if res.Failures > 0 {
		os.Exit(1)
	}
}

// traceOptions merges config defaults with CLI flag overrides.
// budgetSet distinguishes an explicit --budget (including zero) from
// the flag being absent.
func traceOptions(repoRoot string, cfg *config.Config, budgetSet bool) runner.Options {
	opts := runner.Options{
		RepoRoot:     repoRoot,
		FilePattern:  cfg.Trace.FilePattern,
		LinePattern:  traceMatch,
		StepBudget:   cfg.Trace.StepBudget,
		Concurrency:  cfg.Trace.Concurrency,
		QueryTimeout: time.Duration(cfg.Trace.QueryTimeoutMs) * time.Millisecond,
		OutputDir:    resolveStatePath(repoRoot, cfg.Report.OutputDir),
		Compress:     cfg.Report.Compress,
	}
	if cfg.Cache.Enabled {
		opts.CachePath = resolveStatePath(repoRoot, cfg.Cache.Path)
	}

	if traceFiles != "" {
		opts.FilePattern = traceFiles
	}
	if budgetSet {
		opts.StepBudget = traceBudget
	}
	if traceOut != "" {
		opts.OutputDir = traceOut
	}
	if traceCompress {
		opts.Compress = true
	}
	if traceNoCache {
		opts.CachePath = ""
	}
	if traceConcurrency > 0 {
		opts.Concurrency = traceConcurrency
	}
	return opts
}

// resolveStatePath anchors a config-relative path at the repo root.
func resolveStatePath(repoRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}

// shortRev abbreviates a revision for display.
func shortRev(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
