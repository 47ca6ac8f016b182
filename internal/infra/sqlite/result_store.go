package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trivia-quiz-service/internal/domain"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// ResultStore persists completed attempts in a local SQLite file. One row
// per participant name; the UNIQUE index backs the duplicate check and the
// autoincrement id gives stable insertion-order tie-breaks.
type ResultStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the results database at path.
func Open(path string) (*ResultStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping results db: %w", err)
	}
	store := &ResultStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *ResultStore) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			score INTEGER NOT NULL,
			device_id TEXT NOT NULL,
			elapsed_seconds REAL NOT NULL,
			completed_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_rank ON results(score DESC, elapsed_seconds ASC)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// Record inserts one row, failing with ErrDuplicateParticipant when the
// name is taken. The check and insert run in one transaction so they are
// atomic as a unit; the UNIQUE constraint covers the remaining race.
func (s *ResultStore) Record(ctx context.Context, rec domain.ResultRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer tx.Rollback()

	var taken bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM results WHERE name = ?)", rec.Name,
	).Scan(&taken); err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if taken {
		return domain.ErrDuplicateParticipant
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO results (name, score, device_id, elapsed_seconds, completed_at) VALUES (?, ?, ?, ?, ?)",
		rec.Name, rec.Score, rec.DeviceID, rec.ElapsedSeconds, rec.CompletedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return domain.ErrDuplicateParticipant
		}
		return fmt.Errorf("insert result: %w", err)
	}
	return tx.Commit()
}

// HasResult reports whether name already holds a result row.
func (s *ResultStore) HasResult(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM results WHERE name = ?)", name,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("has result: %w", err)
	}
	return taken, nil
}

// QueryTop returns the top n rows by score desc, elapsed asc.
func (s *ResultStore) QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, score, device_id, elapsed_seconds, completed_at
		 FROM results
		 ORDER BY score DESC, elapsed_seconds ASC, id ASC
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query top: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// QueryFastestPerfect filters to rows holding the maximum observed score
// and returns the n fastest.
func (s *ResultStore) QueryFastestPerfect(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, score, device_id, elapsed_seconds, completed_at
		 FROM results
		 WHERE score = (SELECT MAX(score) FROM results)
		 ORDER BY elapsed_seconds ASC, id ASC
		 LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query fastest perfect: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.Name, &e.Score, &e.DeviceID, &e.ElapsedSeconds, &e.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return entries, nil
}
