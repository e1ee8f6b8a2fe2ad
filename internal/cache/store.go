// Package cache persists completed lineage traces in a SQLite database
// keyed by (head revision, path, content). A trace against an
// unchanged repository is deterministic, so a hit can short-circuit
// the backward walk entirely.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"linelog/internal/lineage"
)

// Store provides persistence for traces in a SQLite database.
type Store struct {
	conn   *sql.DB
	logger *slog.Logger
	dbPath string
}

// OpenStore opens or creates the trace cache database at dbPath.
func OpenStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, logger: logger, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}

	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `CREATE TABLE IF NOT EXISTS traces (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		head_rev TEXT NOT NULL,
		path TEXT NOT NULL,
		content TEXT NOT NULL,
		records TEXT NOT NULL,
		run_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(head_rev, path, content)
	)`
	if _, err := s.conn.Exec(schema); err != nil {
		return err
	}
	_, err := s.conn.Exec(`CREATE INDEX IF NOT EXISTS idx_traces_head ON traces(head_rev)`)
	return err
}

// Get returns the cached trace for (headRev, path, content), if any.
func (s *Store) Get(headRev, path, content string) (*lineage.Trace, bool, error) {
	var recordsJSON string
	err := s.conn.QueryRow(
		`SELECT records FROM traces WHERE head_rev = ? AND path = ? AND content = ?`,
		headRev, path, content,
	).Scan(&recordsJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var records []lineage.Record
	if err := json.Unmarshal([]byte(recordsJSON), &records); err != nil {
		// A corrupt row is treated as a miss; the walk will overwrite it.
		s.logger.Warn("discarding corrupt cache row", "path", path, "error", err)
		return nil, false, nil
	}

	return &lineage.Trace{Path: path, Initial: content, Records: records}, true, nil
}

// Put stores a completed trace, replacing any previous row for the
// same key.
func (s *Store) Put(headRev, runID string, trace *lineage.Trace) error {
	records := trace.Records
	if records == nil {
		records = []lineage.Record{}
	}
	recordsJSON, err := json.Marshal(records)
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(
		`INSERT OR REPLACE INTO traces (head_rev, path, content, records, run_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		headRev, trace.Path, trace.Initial, string(recordsJSON), runID,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// Prune deletes cached traces for head revisions other than headRev.
// Old heads can never be hit again once the repository moves on.
func (s *Store) Prune(headRev string) (int64, error) {
	res, err := s.conn.Exec(`DELETE FROM traces WHERE head_rev != ?`, headRev)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}
