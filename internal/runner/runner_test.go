package runner

import (
	"context"
	"encoding/csv"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"linelog/internal/slogutil"
)

func initGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %v failed: %v", args, err)
	}
	return strings.TrimSpace(string(out))
}

func writeAndCommit(t *testing.T, dir, file, content, msg string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", file, err)
	}
	runGit(t, dir, "add", file)
	runGit(t, dir, "commit", "-m", msg)
	return runGit(t, dir, "rev-parse", "HEAD")
}

func testOptions(repo string) Options {
	return Options{
		RepoRoot:     repo,
		FilePattern:  "*.go",
		LinePattern:  "limit",
		StepBudget:   10,
		Concurrency:  1,
		QueryTimeout: 10 * time.Second,
		OutputDir:    filepath.Join(repo, ".linelog", "reports"),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "main.go", "limit := 10\nother := 2\n", "initial limit")
	writeAndCommit(t, dir, "main.go", "limit := cfg.Limit\nother := 2\n", "configurable limit")

	res, err := Run(context.Background(), testOptions(dir), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.FilesScanned != 1 {
		t.Errorf("FilesScanned = %d, want 1", res.FilesScanned)
	}
	if res.LinesTraced != 1 {
		t.Errorf("LinesTraced = %d, want 1", res.LinesTraced)
	}

	f, err := os.Open(res.SummaryPath)
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("summary not valid CSV: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d summary rows, want header + 1", len(rows))
	}
	if rows[1][0] != "main.go" || rows[1][1] != "limit := cfg.Limit" {
		t.Errorf("summary row = %v", rows[1])
	}
	// Both revisions touched the line, so the chain spans the full
	// history of the file.
	if rows[1][2] != "2" {
		t.Errorf("chain length = %s, want 2", rows[1][2])
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(res.SummaryPath), "manifest.yaml")); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
}

func TestRun_InvalidPattern(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "main.go", "limit := 10\n", "init")

	opts := testOptions(dir)
	opts.LinePattern = "limit[" // unterminated character class

	if _, err := Run(context.Background(), opts, slogutil.NewDiscardLogger()); err == nil {
		t.Fatal("expected error for invalid line pattern")
	}
}

func TestRun_NotARepo(t *testing.T) {
	opts := testOptions(t.TempDir())

	if _, err := Run(context.Background(), opts, slogutil.NewDiscardLogger()); err == nil {
		t.Fatal("expected error for non-repository directory")
	}
}

func TestRun_NoMatches(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "main.go", "other := 2\n", "no matching lines")

	res, err := Run(context.Background(), testOptions(dir), slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.LinesTraced != 0 {
		t.Errorf("LinesTraced = %d, want 0", res.LinesTraced)
	}

	f, err := os.Open(res.SummaryPath)
	if err != nil {
		t.Fatalf("summary should exist even with no matches: %v", err)
	}
	f.Close()
}

func TestRun_CacheHitOnSecondRun(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "main.go", "limit := 10\n", "init")

	opts := testOptions(dir)
	opts.CachePath = filepath.Join(dir, ".linelog", "cache.db")

	first, err := Run(context.Background(), opts, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	if first.CacheHits != 0 {
		t.Errorf("first run CacheHits = %d, want 0", first.CacheHits)
	}

	second, err := Run(context.Background(), opts, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}
	if second.CacheHits != 1 {
		t.Errorf("second run CacheHits = %d, want 1", second.CacheHits)
	}
	if second.LinesTraced != first.LinesTraced {
		t.Errorf("cached run traced %d lines, first traced %d", second.LinesTraced, first.LinesTraced)
	}
}

func TestRun_CacheInvalidatedByNewHead(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "main.go", "limit := 10\n", "init")

	opts := testOptions(dir)
	opts.CachePath = filepath.Join(dir, ".linelog", "cache.db")

	if _, err := Run(context.Background(), opts, slogutil.NewDiscardLogger()); err != nil {
		t.Fatal(err)
	}

	writeAndCommit(t, dir, "main.go", "limit := cfg.Limit\n", "change the line")

	res, err := Run(context.Background(), opts, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHits != 0 {
		t.Errorf("new head must bypass cached traces, got %d hits", res.CacheHits)
	}
}

func TestRun_ConcurrentTraces(t *testing.T) {
	dir := initGitRepo(t)
	writeAndCommit(t, dir, "a.go", "limit := 1\n", "a")
	writeAndCommit(t, dir, "b.go", "limit := 2\n", "b")
	writeAndCommit(t, dir, "c.go", "limit := 3\n", "c")

	opts := testOptions(dir)
	opts.Concurrency = 3

	res, err := Run(context.Background(), opts, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.LinesTraced != 3 {
		t.Errorf("LinesTraced = %d, want 3", res.LinesTraced)
	}
}
