package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore (useful
// for tests/demos). Insertion order is kept so ties resolve the same way
// as the SQL backends' autoincrement id.
type ResultStore struct {
	mu      sync.RWMutex
	records []domain.ResultRecord
	names   map[string]struct{}
}

func NewResultStore() *ResultStore {
	return &ResultStore{names: make(map[string]struct{})}
}

func (s *ResultStore) Record(_ context.Context, rec domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.names[rec.Name]; taken {
		return domain.ErrDuplicateParticipant
	}
	s.names[rec.Name] = struct{}{}
	s.records = append(s.records, rec)
	return nil
}

func (s *ResultStore) HasResult(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, taken := s.names[name]
	return taken, nil
}

func (s *ResultStore) QueryTop(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	rows := append([]domain.ResultRecord(nil), s.records...)
	s.mu.RUnlock()

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].ElapsedSeconds < rows[j].ElapsedSeconds
	})
	return entries(rows, n), nil
}

func (s *ResultStore) QueryFastestPerfect(_ context.Context, n int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	rows := append([]domain.ResultRecord(nil), s.records...)
	s.mu.RUnlock()

	max := 0
	for _, r := range rows {
		if r.Score > max {
			max = r.Score
		}
	}
	perfect := rows[:0:0]
	for _, r := range rows {
		if r.Score == max {
			perfect = append(perfect, r)
		}
	}
	sort.SliceStable(perfect, func(i, j int) bool {
		return perfect[i].ElapsedSeconds < perfect[j].ElapsedSeconds
	})
	return entries(perfect, n), nil
}

// Len reports the number of stored rows.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func entries(rows []domain.ResultRecord, n int) []domain.LeaderboardEntry {
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	out := make([]domain.LeaderboardEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.LeaderboardEntry{
			Name:           r.Name,
			Score:          r.Score,
			ElapsedSeconds: r.ElapsedSeconds,
			DeviceID:       r.DeviceID,
			CompletedAt:    r.CompletedAt.Format(time.RFC3339),
		})
	}
	return out
}
