package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankStore keeps the question bank in a Postgres table, ordered by
// position. It satisfies the same bank.Store contract as the file backend.
type BankStore struct {
	pool *pgxpool.Pool
}

func NewBankStore(pool *pgxpool.Pool) *BankStore {
	return &BankStore{pool: pool}
}

func (s *BankStore) Load(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT text, options, answer, info FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("%w: load questions: %v", domain.ErrBankUnavailable, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var options []byte
		if err := rows.Scan(&q.Text, &options, &q.Answer, &q.Info); err != nil {
			return nil, fmt.Errorf("%w: scan question: %v", domain.ErrBankUnavailable, err)
		}
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return nil, fmt.Errorf("%w: decode options: %v", domain.ErrBankUnavailable, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate questions: %v", domain.ErrBankUnavailable, err)
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
	}
	return questions, nil
}

func (s *BankStore) Add(ctx context.Context, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO questions (position, text, options, answer, info)
		 VALUES ((SELECT COALESCE(MAX(position), -1) + 1 FROM questions), $1, $2, $3, $4)`,
		q.Text, options, q.Answer, q.Info)
	if err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

func (s *BankStore) Remove(ctx context.Context, index int) error {
	return s.withQuestionAt(ctx, index, func(tx pgx.Tx, id int64) error {
		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete question: %w", err)
		}
		return nil
	})
}

func (s *BankStore) Update(ctx context.Context, index int, q domain.Question) error {
	if err := q.Validate(); err != nil {
		return err
	}
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	return s.withQuestionAt(ctx, index, func(tx pgx.Tx, id int64) error {
		_, err := tx.Exec(ctx,
			`UPDATE questions SET text = $1, options = $2, answer = $3, info = $4 WHERE id = $5`,
			q.Text, options, q.Answer, q.Info, id)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		return nil
	})
}

// withQuestionAt resolves the ordinal index to a row id inside one
// transaction so edits cannot act on a shifted position.
func (s *BankStore) withQuestionAt(ctx context.Context, index int, fn func(tx pgx.Tx, id int64) error) error {
	if index < 0 {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bank tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM questions ORDER BY position OFFSET $1 LIMIT 1`, index,
	).Scan(&id)
	if err == pgx.ErrNoRows {
		return fmt.Errorf("%w: index %d", domain.ErrQuestionNotFound, index)
	}
	if err != nil {
		return fmt.Errorf("resolve question index: %w", err)
	}
	if err := fn(tx, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
