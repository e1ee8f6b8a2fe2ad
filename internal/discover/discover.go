// Package discover finds candidate files and lines for lineage tracing.
package discover

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"linelog/internal/config"
)

// Candidate is one selected line within a file: the trimmed text to
// trace and where it was found.
type Candidate struct {
	Path    string `json:"path"`    // relative to the repository root
	LineNum int    `json:"lineNum"` // 1-based
	Content string `json:"content"` // trimmed line text
}

// Files walks root and returns the relative paths of regular files
// whose base name matches namePattern (filepath.Match syntax). The
// .git and .linelog directories are always skipped.
func Files(root, namePattern string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == ".git" || name == config.StateDirName) {
				return filepath.SkipDir
			}
			return nil
		}
		matched, err := filepath.Match(namePattern, d.Name())
		if err != nil {
			return err
		}
		if !matched {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// Lines scans the file at root/path and returns the trimmed lines
// matching re, with their 1-based line numbers. Lines that are empty
// after trimming are never selected: tracing whitespace would match
// nearly every change in history.
func Lines(root, path string, re *regexp.Regexp) ([]Candidate, error) {
	f, err := os.Open(filepath.Join(root, path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var candidates []Candidate

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		trimmed := strings.TrimSpace(scanner.Text())
		if trimmed == "" {
			continue
		}
		if !re.MatchString(trimmed) {
			continue
		}
		candidates = append(candidates, Candidate{
			Path:    path,
			LineNum: lineNum,
			Content: trimmed,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return candidates, nil
}
