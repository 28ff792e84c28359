// Package history records finished extraction runs in a local SQLite
// database so past runs can be listed with the history command.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sadopc/sqlextract/internal/config"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at    DATETIME NOT NULL,
	adapter       TEXT,
	database_name TEXT,
	dsn           TEXT,
	output_dir    TEXT,
	categories    TEXT,
	separator     TEXT,
	listed        INTEGER,
	written       INTEGER,
	empty         INTEGER,
	failed        INTEGER,
	cancelled     BOOLEAN DEFAULT FALSE,
	duration_ms   INTEGER
)`

// Run is one finished extraction. DSN must already be stripped of
// credentials.
type Run struct {
	ID           int64
	StartedAt    time.Time
	Adapter      string
	DatabaseName string
	DSN          string
	OutputDir    string
	Categories   string
	Separator    string
	Listed       int
	Written      int
	Empty        int
	Failed       int
	Cancelled    bool
	DurationMS   int64
}

// History provides SQLite-backed run history storage.
type History struct {
	db *sql.DB
}

// New opens (or creates) the history database at ConfigDir()/history.db.
func New() (*History, error) {
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("history: config dir: %w", err)
	}
	return Open(filepath.Join(dir, "history.db"))
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	return &History{db: db}, nil
}

// Add inserts a run and returns its id.
func (h *History) Add(r Run) (int64, error) {
	res, err := h.db.Exec(
		`INSERT INTO runs (started_at, adapter, database_name, dsn, output_dir, categories, separator,
			listed, written, empty, failed, cancelled, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt,
		r.Adapter,
		r.DatabaseName,
		r.DSN,
		r.OutputDir,
		r.Categories,
		r.Separator,
		r.Listed,
		r.Written,
		r.Empty,
		r.Failed,
		r.Cancelled,
		r.DurationMS,
	)
	if err != nil {
		return 0, fmt.Errorf("history add: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history add: %w", err)
	}
	return id, nil
}

const selectRuns = `SELECT id, started_at, adapter, database_name, dsn, output_dir, categories, separator,
	listed, written, empty, failed, cancelled, duration_ms
	FROM runs`

// Recent returns the most recent runs, newest first, limited to limit rows.
func (h *History) Recent(limit int) ([]Run, error) {
	rows, err := h.db.Query(selectRuns+` ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history recent: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Search returns runs whose database name or output directory matches the
// SQL LIKE pattern, newest first.
func (h *History) Search(pattern string, limit int) ([]Run, error) {
	rows, err := h.db.Query(
		selectRuns+` WHERE database_name LIKE ? OR output_dir LIKE ? ORDER BY started_at DESC, id DESC LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("history search: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Clear deletes all runs.
func (h *History) Clear() error {
	if _, err := h.db.Exec(`DELETE FROM runs`); err != nil {
		return fmt.Errorf("history clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(
			&r.ID,
			&r.StartedAt,
			&r.Adapter,
			&r.DatabaseName,
			&r.DSN,
			&r.OutputDir,
			&r.Categories,
			&r.Separator,
			&r.Listed,
			&r.Written,
			&r.Empty,
			&r.Failed,
			&r.Cancelled,
			&r.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return runs, nil
}
