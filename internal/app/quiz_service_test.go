package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"trivia-quiz-service/internal/app"
	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/infra/bank"
	"trivia-quiz-service/internal/infra/memory"
)

func newTestService(questions []domain.Question) (*app.QuizService, *memory.ResultStore) {
	settings := app.Settings{QuestionTime: 30 * time.Second, Points: 1}
	results := memory.NewResultStore()
	service := app.NewQuizService(
		memory.NewSessionStore(settings),
		bank.NewMemoryStore(questions),
		results,
		memory.NewLeaderboardCache(results, time.Minute),
		nil,
		settings,
	)
	return service, results
}

func TestStartRejectsDuplicateWithoutMutation(t *testing.T) {
	ctx := context.Background()
	service, results := newTestService(twoQuestions())

	if err := results.Record(ctx, domain.ResultRecord{Name: "Alice", Score: 2, ElapsedSeconds: 8}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := service.StartQuiz(ctx, "s1", "Alice", "dev-1")
	if !errors.Is(err, domain.ErrDuplicateParticipant) {
		t.Fatalf("expected ErrDuplicateParticipant, got %v", err)
	}
	if results.Len() != 1 {
		t.Fatalf("duplicate start mutated the store: %d rows", results.Len())
	}
	// No partial session either.
	if _, err := service.Snapshot("s1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected no session after rejected start, got %v", err)
	}
}

func TestFullRunRecordsExactlyOneResult(t *testing.T) {
	ctx := context.Background()
	questions := []domain.Question{
		{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: "4"},
	}
	service, results := newTestService(questions)

	snap, err := service.StartQuiz(ctx, "s1", "Alice", "dev-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if snap.State != domain.StateInProgress || snap.Total != 1 {
		t.Fatalf("unexpected start snapshot %+v", snap)
	}

	if _, err := service.SelectOption("s1", "4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Submit("s1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	snap, err = service.Advance(ctx, "s1")
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if snap.State != domain.StateFinished || snap.Score != 1 {
		t.Fatalf("expected finished with score 1, got %+v", snap)
	}

	if results.Len() != 1 {
		t.Fatalf("expected exactly one record, got %d", results.Len())
	}
	top, err := service.TopResults(ctx, 10)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 1 || top[0].Name != "Alice" || top[0].Score != 1 {
		t.Fatalf("unexpected leaderboard %+v", top)
	}
}

// flakyResultStore fails the first Record calls, then delegates.
type flakyResultStore struct {
	*memory.ResultStore
	failures int
}

func (s *flakyResultStore) Record(ctx context.Context, rec domain.ResultRecord) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("result store offline")
	}
	return s.ResultStore.Record(ctx, rec)
}

func TestAdvanceRetriesPendingResultAfterStoreFailure(t *testing.T) {
	ctx := context.Background()
	settings := app.Settings{QuestionTime: 30 * time.Second, Points: 1}
	results := memory.NewResultStore()
	flaky := &flakyResultStore{ResultStore: results, failures: 1}
	service := app.NewQuizService(
		memory.NewSessionStore(settings),
		bank.NewMemoryStore([]domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: "4"},
		}),
		flaky,
		memory.NewLeaderboardCache(results, time.Minute),
		nil,
		settings,
	)

	if _, err := service.StartQuiz(ctx, "s1", "Eve", "dev-4"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.SelectOption("s1", "4"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := service.Submit("s1"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if _, err := service.Advance(ctx, "s1"); err == nil {
		t.Fatalf("expected the store failure to surface")
	}
	if results.Len() != 0 {
		t.Fatalf("failed write left rows behind: %d", results.Len())
	}

	// The session is already Finished; a repeated advance must still
	// persist the pending result instead of dropping it.
	snap, err := service.Advance(ctx, "s1")
	if err != nil {
		t.Fatalf("retried advance: %v", err)
	}
	if snap.State != domain.StateFinished || snap.Score != 1 {
		t.Fatalf("unexpected snapshot after retry %+v", snap)
	}
	if results.Len() != 1 {
		t.Fatalf("expected exactly one record after retry, got %d", results.Len())
	}

	// With nothing pending the finished guard is back in force.
	if _, err := service.Advance(ctx, "s1"); !errors.Is(err, domain.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if results.Len() != 1 {
		t.Fatalf("retry duplicated the record: %d rows", results.Len())
	}
}

func TestAdvancePastFinishDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	service, results := newTestService([]domain.Question{
		{Text: "What is 2 + 2?", Options: []string{"3", "4"}, Answer: "4"},
	})

	if _, err := service.StartQuiz(ctx, "s1", "Bob", "dev-2"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := service.Submit("s1"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := service.Advance(ctx, "s1"); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if _, err := service.Advance(ctx, "s1"); !errors.Is(err, domain.ErrAlreadyFinished) {
		t.Fatalf("expected ErrAlreadyFinished, got %v", err)
	}
	if results.Len() != 1 {
		t.Fatalf("expected one record, got %d", results.Len())
	}
}

func TestRestartAllowsNewName(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(twoQuestions())

	if _, err := service.StartQuiz(ctx, "s1", "Carol", "dev-3"); err != nil {
		t.Fatalf("start: %v", err)
	}
	snap, err := service.Restart("s1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if snap.State != domain.StateNotStarted {
		t.Fatalf("expected not_started after restart, got %s", snap.State)
	}
	if _, err := service.StartQuiz(ctx, "s1", "Dave", "dev-3"); err != nil {
		t.Fatalf("restarted session should accept a new start: %v", err)
	}
}

func TestStartFailsWhenBankInvalid(t *testing.T) {
	ctx := context.Background()
	// Answer not among the options: the bank must refuse to serve at all.
	service, _ := newTestService([]domain.Question{
		{Text: "Broken?", Options: []string{"a", "b"}, Answer: "c"},
	})

	if _, err := service.StartQuiz(ctx, "s1", "Alice", "dev-1"); !errors.Is(err, domain.ErrInvalidQuestion) {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
}
