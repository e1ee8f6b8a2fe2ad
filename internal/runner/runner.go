// Package runner orchestrates a linelog run: file discovery, line
// selection, the lineage traces themselves, and report writing.
package runner

import (
	"context"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"linelog/internal/cache"
	"linelog/internal/discover"
	"linelog/internal/gitquery"
	"linelog/internal/lineage"
	"linelog/internal/report"
)

// Options configures one run.
type Options struct {
	RepoRoot     string
	FilePattern  string
	LinePattern  string
	StepBudget   int
	Concurrency  int
	QueryTimeout time.Duration
	OutputDir    string
	Compress     bool
	CachePath    string // empty disables the cache
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	HeadRevision string
	FilesScanned int
	LinesTraced  int
	CacheHits    int
	Failures     int
	SummaryPath  string
}

// Run executes a full linelog run. Individual trace failures are
// logged and counted but do not abort the remaining traces; only
// setup failures (invalid repo, unwritable output) return an error.
func Run(ctx context.Context, opts Options, logger *slog.Logger) (*Result, error) {
	re, err := regexp.Compile(opts.LinePattern)
	if err != nil {
		return nil, err
	}

	client, err := gitquery.NewClient(opts.RepoRoot, opts.QueryTimeout, logger)
	if err != nil {
		return nil, err
	}
	head, err := client.Head(ctx)
	if err != nil {
		return nil, err
	}

	files, err := discover.Files(opts.RepoRoot, opts.FilePattern)
	if err != nil {
		return nil, err
	}

	var candidates []discover.Candidate
	for _, f := range files {
		lines, err := discover.Lines(opts.RepoRoot, f, re)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", f, "error", err)
			continue
		}
		candidates = append(candidates, lines...)
	}

	var store *cache.Store
	if opts.CachePath != "" {
		store, err = cache.OpenStore(opts.CachePath, logger)
		if err != nil {
			// The cache is an optimization; a broken cache must not
			// block tracing.
			logger.Warn("trace cache unavailable", "path", opts.CachePath, "error", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	runID := uuid.New().String()
	logger.Info("starting run",
		"run", runID, "head", head,
		"files", len(files), "lines", len(candidates))

	tracer := lineage.NewTracer(client, logger)
	traces, hits, failures := runTraces(ctx, tracer, store, candidates, head, runID, opts, logger)

	writer, err := report.NewWriter(opts.OutputDir, opts.Compress, logger)
	if err != nil {
		return nil, err
	}

	traced := 0
	for i, c := range candidates {
		if traces[i] == nil {
			continue
		}
		if _, err := writer.WriteTrace(c, traces[i]); err != nil {
			return nil, err
		}
		traced++
	}

	summaryPath, err := writer.WriteSummary()
	if err != nil {
		return nil, err
	}
	if err := writer.WriteManifest(report.Manifest{
		RunID:        runID,
		Repo:         opts.RepoRoot,
		HeadRevision: head,
		GeneratedAt:  time.Now().UTC(),
		FilePattern:  opts.FilePattern,
		LinePattern:  opts.LinePattern,
		StepBudget:   opts.StepBudget,
		FilesScanned: len(files),
		LinesTraced:  traced,
	}); err != nil {
		return nil, err
	}

	logger.Info("run complete",
		"run", runID, "traced", traced,
		"cacheHits", hits, "failures", failures)

	return &Result{
		RunID:        runID,
		HeadRevision: head,
		FilesScanned: len(files),
		LinesTraced:  traced,
		CacheHits:    hits,
		Failures:     failures,
		SummaryPath:  summaryPath,
	}, nil
}

// runTraces executes one trace per candidate under a bounded worker
// pool. Every trace is itself strictly sequential; the pool only
// overlaps independent traces, and the default concurrency of one
// fully serializes access to the repository.
func runTraces(ctx context.Context, tracer *lineage.Tracer, store *cache.Store,
	candidates []discover.Candidate, head, runID string, opts Options, logger *slog.Logger,
) (traces []*lineage.Trace, cacheHits, failures int) {
	traces = make([]*lineage.Trace, len(candidates))

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	sem := make(chan struct{}, concurrency)

	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c discover.Candidate) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			if store != nil {
				if cached, hit, err := store.Get(head, c.Path, c.Content); err == nil && hit {
					mu.Lock()
					traces[i] = cached
					cacheHits++
					mu.Unlock()
					return
				}
			}

			trace, err := tracer.Trace(ctx, c.Path, c.Content, opts.StepBudget)
			if err != nil {
				logger.Error("trace failed", "path", c.Path, "line", c.LineNum, "error", err)
				mu.Lock()
				failures++
				mu.Unlock()
				return
			}

			if store != nil {
				if err := store.Put(head, runID, trace); err != nil {
					logger.Warn("failed to cache trace", "path", c.Path, "error", err)
				}
			}

			mu.Lock()
			traces[i] = trace
			mu.Unlock()
		}(i, c)
	}
	wg.Wait()

	return traces, cacheHits, failures
}
