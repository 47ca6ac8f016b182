package bank

import (
	"context"
	"fmt"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// MemoryStore is an in-memory bank (useful for tests/demos).
type MemoryStore struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewMemoryStore(questions []domain.Question) *MemoryStore {
	return &MemoryStore{questions: append([]domain.Question(nil), questions...)}
}

func (s *MemoryStore) Load(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, q := range s.questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return append([]domain.Question(nil), s.questions...), nil
}

func (s *MemoryStore) Add(_ context.Context, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.questions = append(s.questions, q)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	s.questions = append(s.questions[:index:index], s.questions[index+1:]...)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, index int, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	s.questions[index] = q
	return nil
}
