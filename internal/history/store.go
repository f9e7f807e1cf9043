package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"folio/internal/config"
	"folio/internal/pool"
)

// Task outcomes recorded in the ledger.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeTimedOut  = "timed_out"
)

// OutcomeFor classifies an ExecuteTask error into a ledger outcome.
func OutcomeFor(err error) string {
	switch {
	case err == nil:
		return OutcomeCompleted
	case errors.Is(err, pool.ErrTaskTimeout):
		return OutcomeTimedOut
	default:
		return OutcomeFailed
	}
}

// Entry is one settled task.
type Entry struct {
	ID         int64
	Operation  string
	Outcome    string
	Error      string
	Duration   time.Duration
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database under the
// configured log directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one settled task.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO task_history (operation, outcome, error, duration_ms, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Operation,
		entry.Outcome,
		nullableString(entry.Error),
		entry.Duration.Milliseconds(),
		entry.StartedAt.UTC().Format(time.RFC3339Nano),
		entry.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns the most recently finished entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, operation, outcome, COALESCE(error, ''), duration_ms, started_at, finished_at
         FROM task_history ORDER BY finished_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var durationMS int64
		var startedAt, finishedAt string
		if err := rows.Scan(&entry.ID, &entry.Operation, &entry.Outcome, &entry.Error, &durationMS, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entry.Duration = time.Duration(durationMS) * time.Millisecond
		if entry.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if entry.FinishedAt, err = time.Parse(time.RFC3339Nano, finishedAt); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountByOutcome returns entry counts keyed by outcome.
func (s *Store) CountByOutcome(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(1) FROM task_history GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}

// Prune removes entries finished before the retention cutoff, returning
// the number removed.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM task_history WHERE finished_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return removed, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
