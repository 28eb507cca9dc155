// Package journal records rewrite attempts in a per-repository SQLite
// database so users can audit what regroup has done to their history.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Attempt states.
const (
	StateRunning  = "running"
	StateDone     = "done"
	StateConflict = "conflict"
	StateFailed   = "failed"
)

// schema is executed on every open; IF NOT EXISTS keeps it idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS rewrites (
    id          TEXT PRIMARY KEY,
    branch      TEXT NOT NULL,
    upstream    TEXT NOT NULL DEFAULT '',
    anchor      TEXT NOT NULL DEFAULT '',
    moved       INTEGER NOT NULL,
    state       TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT ''
);
`

// Attempt is one recorded rewrite.
type Attempt struct {
	ID         string
	Branch     string
	Upstream   string // lower boundary ref; empty = root of history
	Anchor     string // anchor hash; empty = tip placement
	Moved      int    // number of commits in the move set
	State      string
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
}

// Journal is a SQLite-backed attempt log.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath in WAL mode.
func Open(ctx context.Context, dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	// One connection: SQLite has a single writer, and a lone connection
	// avoids SQLITE_BUSY between pooled connections with separate PRAGMAs.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}
	return &Journal{db: db}, nil
}

// Begin inserts a running attempt and returns its id.
func (j *Journal) Begin(ctx context.Context, a Attempt) (string, error) {
	id := uuid.NewString()
	const q = `
		INSERT INTO rewrites (id, branch, upstream, anchor, moved, state, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := j.db.ExecContext(ctx, q,
		id, a.Branch, a.Upstream, a.Anchor, a.Moved, StateRunning,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", fmt.Errorf("journal: begin attempt: %w", err)
	}
	return id, nil
}

// Finish closes a running attempt with a terminal state and optional error
// text.
func (j *Journal) Finish(ctx context.Context, id, state, errText string) error {
	const q = `
		UPDATE rewrites SET state = ?, error = ?, finished_at = ?
		WHERE id = ?`
	res, err := j.db.ExecContext(ctx, q, state, errText,
		time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("journal: finish attempt %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("journal: finish attempt %s: no such attempt", id)
	}
	return nil
}

// Recent returns the latest n attempts, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Attempt, error) {
	const q = `
		SELECT id, branch, upstream, anchor, moved, state, error, started_at, finished_at
		FROM rewrites ORDER BY started_at DESC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("journal: query attempts: %w", err)
	}
	defer rows.Close()

	var result []Attempt
	for rows.Next() {
		var a Attempt
		var started, finished string
		if err := rows.Scan(&a.ID, &a.Branch, &a.Upstream, &a.Anchor, &a.Moved,
			&a.State, &a.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("journal: scan attempt: %w", err)
		}
		if a.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("journal: parse started_at: %w", err)
		}
		if finished != "" {
			if a.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
				return nil, fmt.Errorf("journal: parse finished_at: %w", err)
			}
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: iterate attempts: %w", err)
	}
	return result, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}
