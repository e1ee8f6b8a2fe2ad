package slogutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLineHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelDebug)

	logger.Info("tracing line", "path", "main.go", "steps", 3)

	out := buf.String()
	if !strings.Contains(out, "[info] tracing line") {
		t.Errorf("unexpected output: %s", out)
	}
	if !strings.Contains(out, "path=main.go") {
		t.Errorf("missing attr: %s", out)
	}
	if !strings.Contains(out, "steps=3") {
		t.Errorf("missing attr: %s", out)
	}
}

func TestLineHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug/info should be filtered: %s", out)
	}
	if !strings.Contains(out, "[warn] visible") {
		t.Errorf("warn should be logged: %s", out)
	}
}

func TestLineHandler_QuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)

	logger.Info("match", "content", "return err != nil")

	if !strings.Contains(buf.String(), `content="return err != nil"`) {
		t.Errorf("value with spaces should be quoted: %s", buf.String())
	}
}

func TestLineHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo).With("run", "abc").WithGroup("trace")

	logger.Info("step", "rev", "deadbeef")

	out := buf.String()
	if !strings.Contains(out, "run=abc") {
		t.Errorf("missing pre-set attr: %s", out)
	}
	if !strings.Contains(out, "trace.rev=deadbeef") {
		t.Errorf("group prefix not applied: %s", out)
	}
}

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(0, true); got <= slog.LevelError {
		t.Errorf("quiet should suppress all levels, got %v", got)
	}
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(1, false); got != slog.LevelInfo {
		t.Errorf("verbosity 1 = %v, want info", got)
	}
	if got := LevelFromVerbosity(3, false); got != slog.LevelDebug {
		t.Errorf("verbosity 3 = %v, want debug", got)
	}
}

func TestNewDiscardLogger(t *testing.T) {
	logger := NewDiscardLogger()
	// Must not panic and must swallow everything.
	logger.Error("nothing to see")
}
