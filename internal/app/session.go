package app

import (
	"strings"
	"sync"
	"time"

	"trivia-quiz-service/internal/domain"
	"trivia-quiz-service/internal/metrics"
)

// Settings hold the fixed per-quiz scoring and timing constants.
type Settings struct {
	// QuestionTime is the budget each question gets before the skip
	// sentinel is auto-submitted. Defaults to 30s.
	QuestionTime time.Duration
	// Points awarded per correct answer. Defaults to 1.
	Points int
}

func (s Settings) withDefaults() Settings {
	if s.QuestionTime <= 0 {
		s.QuestionTime = 30 * time.Second
	}
	if s.Points <= 0 {
		s.Points = 1
	}
	return s
}

// Session is a single participant's quiz attempt:
// NotStarted -> InProgress(index) -> Finished, advancing strictly forward.
// All mutation goes through the transition methods; timing is evaluated
// lazily on observation rather than by a background timer.
type Session struct {
	mu       sync.Mutex
	settings Settings
	now      func() time.Time

	name      string
	deviceID  string
	questions []domain.Question

	state         domain.SessionState
	index         int
	selected      string
	answered      bool
	questionStart time.Time
	elapsed       time.Duration
	score         int
	recorded      bool
}

// NewSession returns an idle session with the given constants.
func NewSession(settings Settings) *Session {
	return NewSessionWithClock(settings, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(settings Settings, now func() time.Time) *Session {
	return &Session{
		settings: settings.withDefaults(),
		now:      now,
		state:    domain.StateNotStarted,
	}
}

// Start moves NotStarted -> InProgress(0). The duplicate-participant check
// belongs to the service layer so a rejected start never touches a session.
func (s *Session) Start(name, deviceID string, questions []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateInProgress {
		return domain.ErrAlreadyStarted
	}
	if strings.TrimSpace(name) == "" {
		return domain.ErrEmptyName
	}
	if len(questions) == 0 {
		return domain.ErrBankUnavailable
	}

	s.name = name
	s.deviceID = deviceID
	s.questions = questions
	s.state = domain.StateInProgress
	s.index = 0
	s.selected = ""
	s.answered = false
	s.score = 0
	s.elapsed = 0
	s.recorded = false
	s.questionStart = s.now()
	return nil
}

// SelectOption overwrites the pending selection for the current question.
// Legal only before submission; scoring happens on submit, not here.
func (s *Session) SelectOption(opt string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.expireLocked()
	if s.answered {
		return domain.ErrAlreadyAnswered
	}
	if !s.questions[s.index].HasOption(opt) {
		return domain.ErrOptionNotFound
	}
	s.selected = opt
	return nil
}

// SubmitCurrent scores the pending selection against the current question.
// Idempotent: once the question is answered, further submits are no-ops.
// An elapsed budget forces the skip sentinel regardless of the selection.
func (s *Session) SubmitCurrent() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	if s.expireLocked() {
		return nil
	}
	if s.answered {
		return nil
	}
	answer := s.selected
	if answer == "" {
		answer = domain.SkippedAnswer
	}
	s.submitLocked(answer)
	return nil
}

// Advance moves to the next question, or to Finished past the last one.
// Legal only after the current question was submitted (or timed out).
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireInProgressLocked(); err != nil {
		return err
	}
	s.expireLocked()
	if !s.answered {
		return domain.ErrNotAnswered
	}

	s.index++
	s.selected = ""
	s.answered = false
	s.questionStart = s.now()
	if s.index == len(s.questions) {
		s.state = domain.StateFinished
	}
	return nil
}

// Restart discards every session field and returns to NotStarted.
func (s *Session) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.name = ""
	s.deviceID = ""
	s.questions = nil
	s.state = domain.StateNotStarted
	s.index = 0
	s.selected = ""
	s.answered = false
	s.score = 0
	s.elapsed = 0
	s.recorded = false
}

// Snapshot observes the session. Observation is also where timeouts take
// effect: an elapsed budget auto-submits the skip sentinel.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateInProgress {
		s.expireLocked()
	}

	snap := domain.SessionSnapshot{
		State:          s.state,
		Name:           s.name,
		Index:          s.index,
		Total:          len(s.questions),
		Answered:       s.answered,
		Score:          s.score,
		ElapsedSeconds: s.elapsed.Seconds(),
	}
	if s.state == domain.StateInProgress {
		q := s.questions[s.index]
		snap.Question = q.Text
		snap.Options = append([]string(nil), q.Options...)
		snap.Info = q.Info
		snap.Selected = s.selected
		snap.RemainingSeconds = s.remainingLocked().Seconds()
	}
	return snap
}

// Result returns the record to persist once the session is Finished and it
// has not been handed out yet. MarkRecorded must follow a successful write
// so completion produces exactly one row.
func (s *Session) Result() (domain.ResultRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateFinished || s.recorded {
		return domain.ResultRecord{}, false
	}
	return domain.ResultRecord{
		Name:           s.name,
		Score:          s.score,
		ElapsedSeconds: s.elapsed.Seconds(),
		DeviceID:       s.deviceID,
		CompletedAt:    s.now(),
	}, true
}

// MarkRecorded flags the final result as persisted.
func (s *Session) MarkRecorded() {
	s.mu.Lock()
	s.recorded = true
	s.mu.Unlock()
}

// Finished reports whether the session reached the terminal state.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == domain.StateFinished
}

func (s *Session) requireInProgressLocked() error {
	switch s.state {
	case domain.StateNotStarted:
		return domain.ErrNotStarted
	case domain.StateFinished:
		return domain.ErrAlreadyFinished
	}
	return nil
}

// expireLocked auto-submits the skip sentinel when the budget has elapsed
// unanswered. Returns true if a timeout submission happened.
func (s *Session) expireLocked() bool {
	if s.answered || s.remainingLocked() > 0 {
		return false
	}
	s.submitLocked(domain.SkippedAnswer)
	metrics.QuestionTimeouts.Inc()
	return true
}

func (s *Session) submitLocked(answer string) {
	if answer == s.questions[s.index].Answer {
		s.score += s.settings.Points
	}
	took := s.now().Sub(s.questionStart)
	if took > s.settings.QuestionTime {
		took = s.settings.QuestionTime
	}
	if took < 0 {
		took = 0
	}
	s.elapsed += took
	s.answered = true
}

// remainingLocked floors the countdown at zero for display.
func (s *Session) remainingLocked() time.Duration {
	remaining := s.settings.QuestionTime - s.now().Sub(s.questionStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}
