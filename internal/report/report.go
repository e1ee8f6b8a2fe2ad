// Package report renders lineage traces as human-readable files plus a
// delimited summary and a run manifest.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sourcegraph/go-diff/diff"
	"gopkg.in/yaml.v3"

	"linelog/internal/discover"
	"linelog/internal/errors"
	"linelog/internal/lineage"
)

// summaryHeader is the fixed header of the summary CSV.
var summaryHeader = []string{"FilePath", "LineContent", "CommitHistoryLength"}

// Manifest describes one linelog run, written as manifest.yaml next to
// the trace files.
type Manifest struct {
	RunID        string    `yaml:"runId"`
	Repo         string    `yaml:"repo"`
	HeadRevision string    `yaml:"headRevision"`
	GeneratedAt  time.Time `yaml:"generatedAt"`
	FilePattern  string    `yaml:"filePattern"`
	LinePattern  string    `yaml:"linePattern"`
	StepBudget   int       `yaml:"stepBudget"`
	FilesScanned int       `yaml:"filesScanned"`
	LinesTraced  int       `yaml:"linesTraced"`
}

// summaryRow is one line of the summary CSV.
type summaryRow struct {
	filePath    string
	lineContent string
	chainLength int
}

// Writer renders per-line trace files into a directory and accumulates
// summary rows. It is not safe for concurrent use; the runner
// serializes report writing.
type Writer struct {
	dir      string
	compress bool
	logger   *slog.Logger
	rows     []summaryRow
}

// NewWriter creates the output directory and returns a Writer.
func NewWriter(dir string, compress bool, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.OutputUnwritable, "cannot create output directory "+dir, err)
	}
	return &Writer{dir: dir, compress: compress, logger: logger}, nil
}

// WriteTrace writes one trace file for the candidate line and records
// its summary row. It returns the path of the written file.
func (w *Writer) WriteTrace(c discover.Candidate, trace *lineage.Trace) (string, error) {
	name := traceFileName(c)
	if w.compress {
		name += ".gz"
	}
	path := filepath.Join(w.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", errors.New(errors.OutputUnwritable, "cannot create trace file "+path, err)
	}
	defer f.Close()

	var out io.Writer = f
	var gz *gzip.Writer
	if w.compress {
		gz = gzip.NewWriter(f)
		out = gz
	}

	if err := renderTrace(out, c, trace); err != nil {
		return "", err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	w.rows = append(w.rows, summaryRow{
		filePath:    c.Path,
		lineContent: c.Content,
		chainLength: trace.Len(),
	})

	return path, nil
}

// renderTrace writes the human-readable representation of one trace.
func renderTrace(out io.Writer, c discover.Candidate, trace *lineage.Trace) error {
	fmt.Fprintf(out, "file:    %s\n", c.Path)
	fmt.Fprintf(out, "line:    %d\n", c.LineNum)
	fmt.Fprintf(out, "content: %s\n", c.Content)
	fmt.Fprintf(out, "steps:   %d\n", trace.Len())

	for i, rec := range trace.Records {
		fmt.Fprintf(out, "\n--- step %d ---\n", i+1)
		fmt.Fprintf(out, "revision: %s\n", rec.Revision)
		fmt.Fprintf(out, "content:  %s\n", rec.Content)
		if !rec.DetailAvailable() {
			fmt.Fprintln(out, lineage.DetailUnavailable)
			continue
		}
		if stats := detailStats(rec.Detail); stats != "" {
			fmt.Fprintf(out, "change:   %s\n", stats)
		}
		fmt.Fprintln(out)
		if _, err := io.WriteString(out, rec.Detail); err != nil {
			return err
		}
		if !strings.HasSuffix(rec.Detail, "\n") {
			fmt.Fprintln(out)
		}
	}
	return nil
}

// detailStats summarizes a change detail as hunk and line counts.
// The detail text stays authoritative; stats are presentational and a
// parse failure just omits them.
func detailStats(detail string) string {
	fds, err := diff.NewMultiFileDiffReader(strings.NewReader(detail)).ReadAllFiles()
	if err != nil || len(fds) == 0 {
		return ""
	}

	var hunks, added, removed int
	for _, fd := range fds {
		hunks += len(fd.Hunks)
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
					added++
				} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
					removed++
				}
			}
		}
	}
	if hunks == 0 {
		return ""
	}
	return fmt.Sprintf("%d hunk(s), +%d -%d", hunks, added, removed)
}

// WriteSummary writes the accumulated rows as summary.csv with the
// fixed header FilePath,LineContent,CommitHistoryLength, and returns
// the file path.
func (w *Writer) WriteSummary() (string, error) {
	path := filepath.Join(w.dir, "summary.csv")
	f, err := os.Create(path)
	if err != nil {
		return "", errors.New(errors.OutputUnwritable, "cannot create summary file", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(summaryHeader); err != nil {
		return "", err
	}
	for _, row := range w.rows {
		record := []string{row.filePath, row.lineContent, strconv.Itoa(row.chainLength)}
		if err := cw.Write(record); err != nil {
			return "", err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return "", err
	}
	return path, f.Close()
}

// WriteManifest writes the run manifest as manifest.yaml.
func (w *Writer) WriteManifest(m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, "manifest.yaml"), data, 0644)
}

// traceFileName derives a flat, filesystem-safe name for a candidate's
// trace file.
func traceFileName(c discover.Candidate) string {
	sanitized := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(c.Path)
	return fmt.Sprintf("%s__L%d.trace.txt", sanitized, c.LineNum)
}
