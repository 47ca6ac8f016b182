package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"trivia-quiz-service/internal/domain"
)

// Store is the question bank contract: an ordered, validated sequence of
// questions plus the administrative edits. Every edit re-validates before
// persisting and leaves storage unchanged on failure.
type Store interface {
	Load(ctx context.Context) ([]domain.Question, error)
	Add(ctx context.Context, q domain.Question) error
	Remove(ctx context.Context, index int) error
	Update(ctx context.Context, index int, q domain.Question) error
}

// FileStore keeps the bank as a JSON array on disk. Edits rewrite the file
// through a temp-and-rename so a failed write never truncates the bank.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) ([]domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *FileStore) Add(_ context.Context, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.loadLocked()
	if err != nil {
		return err
	}
	return s.writeLocked(append(questions, q))
}

func (s *FileStore) Remove(_ context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.loadLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	return s.writeLocked(append(questions[:index:index], questions[index+1:]...))
}

func (s *FileStore) Update(_ context.Context, index int, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.loadLocked()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(questions) {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	questions[index] = q
	return s.writeLocked(questions)
}

func (s *FileStore) loadLocked() ([]domain.Question, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrBankUnavailable, s.path, err)
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", domain.ErrBankUnavailable, s.path, err)
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return questions, nil
}

func (s *FileStore) writeLocked(questions []domain.Question) error {
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("encode bank: %w", err)
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".bank-*.json")
	if err != nil {
		return fmt.Errorf("write bank: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write bank: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write bank: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}
