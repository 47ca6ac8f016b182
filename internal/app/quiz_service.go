package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/metrics"
)

// SessionRepository abstracts how live quiz sessions are stored.
type SessionRepository interface {
	GetOrCreate(sessionID string) *Session
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// QuestionSource loads the question bank.
type QuestionSource interface {
	Load(ctx context.Context) ([]domain.Question, error)
}

// ResultStore persists one row per completed participant and serves the
// two leaderboard queries. Record must be atomic with its uniqueness
// check: concurrent submissions for the same name yield exactly one row.
type ResultStore interface {
	Record(ctx context.Context, rec domain.ResultRecord) error
	HasResult(ctx context.Context, name string) (bool, error)
	QueryTop(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	QueryFastestPerfect(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// LeaderboardProvider serves the cached read side of the top query.
type LeaderboardProvider interface {
	Top(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
	Invalidate(ctx context.Context)
}

// DeviceRegistry keeps best-effort audit markers per device id.
type DeviceRegistry interface {
	Touch(ctx context.Context, deviceID string)
}

// QuizService contains the quiz use cases: it drives the per-session state
// machine and bridges it to the question bank and the result store.
type QuizService struct {
	sessions SessionRepository
	bank     QuestionSource
	results  ResultStore
	top      LeaderboardProvider
	devices  DeviceRegistry
	settings Settings
}

func NewQuizService(sessions SessionRepository, bank QuestionSource, results ResultStore, top LeaderboardProvider, devices DeviceRegistry, settings Settings) *QuizService {
	return &QuizService{
		sessions: sessions,
		bank:     bank,
		results:  results,
		top:      top,
		devices:  devices,
		settings: settings.withDefaults(),
	}
}

// Settings exposes the effective quiz constants.
func (s *QuizService) Settings() Settings {
	return s.settings
}

// StartQuiz begins an attempt. A name that already has a recorded result
// is rejected before any session state is created or mutated.
func (s *QuizService) StartQuiz(ctx context.Context, sessionID, name, deviceID string) (domain.SessionSnapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SessionSnapshot{}, domain.ErrEmptyName
	}

	taken, err := s.results.HasResult(ctx, name)
	if err != nil {
		return domain.SessionSnapshot{}, fmt.Errorf("duplicate check: %w", err)
	}
	if taken {
		metrics.DuplicateRejections.Inc()
		return domain.SessionSnapshot{}, domain.ErrDuplicateParticipant
	}

	questions, err := s.bank.Load(ctx)
	if err != nil {
		return domain.SessionSnapshot{}, err
	}

	session := s.sessions.GetOrCreate(sessionID)
	if err := session.Start(name, deviceID, questions); err != nil {
		return domain.SessionSnapshot{}, err
	}
	if s.devices != nil && deviceID != "" {
		s.devices.Touch(ctx, deviceID)
	}
	metrics.SessionsStarted.Inc()
	return session.Snapshot(), nil
}

// SelectOption records a pending selection on the current question.
func (s *QuizService) SelectOption(sessionID, opt string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.SelectOption(opt); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Submit scores the current question (idempotent).
func (s *QuizService) Submit(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.SubmitCurrent(); err != nil {
		return session.Snapshot(), err
	}
	return session.Snapshot(), nil
}

// Advance moves to the next question. When the session finishes, the final
// score and accumulated time are written to the result store exactly once
// and the leaderboard cache is invalidated.
func (s *QuizService) Advance(ctx context.Context, sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	if err := session.Advance(); err != nil {
		if !errors.Is(err, domain.ErrAlreadyFinished) {
			return session.Snapshot(), err
		}
		// A store failure on the finishing advance leaves the result
		// pending; a repeated advance retries the write instead of
		// short-circuiting on the finished state.
		rec, pending := session.Result()
		if !pending {
			return session.Snapshot(), err
		}
		if recErr := s.recordResult(ctx, session, rec); recErr != nil {
			return session.Snapshot(), recErr
		}
		return session.Snapshot(), nil
	}

	if rec, pending := session.Result(); pending {
		if err := s.recordResult(ctx, session, rec); err != nil {
			return session.Snapshot(), err
		}
	}
	return session.Snapshot(), nil
}

// recordResult persists a finished session's row and marks it recorded
// only after the write succeeded, so completion produces exactly one row.
func (s *QuizService) recordResult(ctx context.Context, session *Session, rec domain.ResultRecord) error {
	if err := s.results.Record(ctx, rec); err != nil {
		// Surface store failures synchronously; the result stays pending.
		return fmt.Errorf("record result: %w", err)
	}
	session.MarkRecorded()
	if s.top != nil {
		s.top.Invalidate(ctx)
	}
	metrics.SessionsCompleted.Inc()
	return nil
}

// Restart discards the session's fields, returning it to NotStarted.
func (s *QuizService) Restart(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	session.Restart()
	return session.Snapshot(), nil
}

// Snapshot observes a session; the observation applies pending timeouts.
func (s *QuizService) Snapshot(sessionID string) (domain.SessionSnapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SessionSnapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Discard drops a live session, e.g. when its connection goes away.
func (s *QuizService) Discard(sessionID string) {
	s.sessions.Delete(sessionID)
}

// TopResults returns the top n rows by score desc, elapsed asc, going
// through the TTL cache when one is configured.
func (s *QuizService) TopResults(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	if s.top != nil {
		return s.top.Top(ctx, n)
	}
	return s.results.QueryTop(ctx, n)
}

// FastestPerfect returns the n fastest rows among those holding the
// maximum observed score.
func (s *QuizService) FastestPerfect(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	return s.results.QueryFastestPerfect(ctx, n)
}
