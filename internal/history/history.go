// Package history keeps a log of every phase attempt in
// .wreckit/history.db so that `wreckit history` can show what ran when.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file under .wreckit/.
const FileName = "history.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL DEFAULT '',
	item_id     TEXT NOT NULL,
	phase       TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL DEFAULT 0,
	timed_out   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	exit_code   INTEGER,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_item ON runs(item_id);
`

// Run is one recorded phase attempt.
type Run struct {
	ID        int64
	SessionID string
	ItemID    string
	Phase     string
	StartedAt time.Time
	Duration  time.Duration
	Success   bool
	TimedOut  bool
	Skipped   bool
	ExitCode  *int
	Error     string
}

// Recorder accepts finished runs.
type Recorder interface {
	Record(ctx context.Context, run Run) error
}

// Nop discards runs.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Run) error { return nil }

// Store is the sqlite-backed Recorder.
type Store struct {
	db *sql.DB
}

// Path returns the history database location for a repository.
func Path(basePath string) string {
	return filepath.Join(basePath, ".wreckit", FileName)
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends a run.
func (s *Store) Record(ctx context.Context, run Run) error {
	var exitCode sql.NullInt64
	if run.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*run.ExitCode), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (session_id, item_id, phase, started_at, duration_ms, success, timed_out, skipped, exit_code, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.SessionID,
		run.ItemID,
		run.Phase,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Duration.Milliseconds(),
		run.Success,
		run.TimedOut,
		run.Skipped,
		exitCode,
		run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListOptions filters List.
type ListOptions struct {
	ItemID string
	Limit  int
}

// List returns runs, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT id, session_id, item_id, phase, started_at, duration_ms, success, timed_out, skipped, exit_code, error
	          FROM runs WHERE 1=1`
	var args []any
	if opts.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, opts.ItemID)
	}
	query += ` ORDER BY id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
			exitCode   sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.ItemID, &r.Phase, &startedAt, &durationMS,
			&r.Success, &r.TimedOut, &r.Skipped, &exitCode, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			r.StartedAt = t
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		if exitCode.Valid {
			code := int(exitCode.Int64)
			r.ExitCode = &code
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
