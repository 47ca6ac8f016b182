package postgres

import (
	"context"
	"fmt"
	"time"

	"trivia-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type resultRow struct {
	bun.BaseModel `bun:"table:results"`

	ID             int64     `bun:"id,pk,autoincrement"`
	Name           string    `bun:"name"`
	Score          int       `bun:"score"`
	DeviceID       string    `bun:"device_id"`
	ElapsedSeconds float64   `bun:"elapsed_seconds"`
	CompletedAt    time.Time `bun:"completed_at"`
}

// ResultStore is the Postgres implementation of app.ResultStore.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

// Record inserts one row per participant; a conflicting name leaves the
// table untouched and surfaces ErrDuplicateParticipant.
func (s *ResultStore) Record(ctx context.Context, rec domain.ResultRecord) error {
	row := resultRow{
		Name:           rec.Name,
		Score:          rec.Score,
		DeviceID:       rec.DeviceID,
		ElapsedSeconds: rec.ElapsedSeconds,
		CompletedAt:    rec.CompletedAt.UTC(),
	}
	res, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	if affected == 0 {
		return domain.ErrDuplicateParticipant
	}
	return nil
}

func (s *ResultStore) HasResult(ctx context.Context, name string) (bool, error) {
	exists, err := s.db.NewSelect().
		Model((*resultRow)(nil)).
		Where("name = ?", name).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("has result: %w", err)
	}
	return exists, nil
}

func (s *ResultStore) QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Order("score DESC", "elapsed_seconds ASC", "id ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query top: %w", err)
	}
	return toEntries(rows), nil
}

func (s *ResultStore) QueryFastestPerfect(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	var rows []resultRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("score = (SELECT max(score) FROM results)").
		Order("elapsed_seconds ASC", "id ASC").
		Limit(n).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("query fastest perfect: %w", err)
	}
	return toEntries(rows), nil
}

func toEntries(rows []resultRow) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			Name:           r.Name,
			Score:          r.Score,
			ElapsedSeconds: r.ElapsedSeconds,
			DeviceID:       r.DeviceID,
			CompletedAt:    r.CompletedAt.Format(time.RFC3339),
		})
	}
	return entries
}
