package domain

import (
	"fmt"
	"strings"
	"time"
)

// SkippedAnswer is recorded when a question's time budget elapses with no
// submission. Bank validation rejects any option equal to it, so it never
// matches a real answer.
const SkippedAnswer = "__skipped__"

// Question is a single multiple-choice question from the bank.
type Question struct {
	Text    string   `json:"question"`
	Options []string `json:"options"`
	Answer  string   `json:"answer"`
	Info    string   `json:"information,omitempty"`
}

// Validate checks the invariants every banked question must hold:
// non-empty text, at least two distinct non-empty options, and an answer
// that is one of those options.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty question text", ErrInvalidQuestion)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("%w: need at least 2 options, got %d", ErrInvalidQuestion, len(q.Options))
	}
	seen := make(map[string]struct{}, len(q.Options))
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidQuestion, i)
		}
		if opt == SkippedAnswer {
			return fmt.Errorf("%w: option %d collides with the skip sentinel", ErrInvalidQuestion, i)
		}
		if _, dup := seen[opt]; dup {
			return fmt.Errorf("%w: duplicate option %q", ErrInvalidQuestion, opt)
		}
		seen[opt] = struct{}{}
	}
	if !q.HasOption(q.Answer) {
		return fmt.Errorf("%w: answer %q is not among the options", ErrInvalidQuestion, q.Answer)
	}
	return nil
}

// HasOption reports whether opt is one of the question's options.
func (q Question) HasOption(opt string) bool {
	for _, o := range q.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// ResultRecord is the single row persisted per participant on completion.
// Name is the enforced unique key; DeviceID is an audit field only.
type ResultRecord struct {
	Name           string    `json:"name"`
	Score          int       `json:"score"`
	ElapsedSeconds float64   `json:"elapsedSeconds"`
	DeviceID       string    `json:"deviceId"`
	CompletedAt    time.Time `json:"completedAt"`
}

// LeaderboardEntry is a read-side view of a result row.
type LeaderboardEntry struct {
	Name           string  `json:"name"`
	Score          int     `json:"score"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	DeviceID       string  `json:"deviceId"`
	CompletedAt    string  `json:"completedAt"`
}

// SessionState is the coarse phase of a quiz attempt.
type SessionState string

const (
	StateNotStarted SessionState = "not_started"
	StateInProgress SessionState = "in_progress"
	StateFinished   SessionState = "finished"
)

// SessionSnapshot is the observable view of a session that a UI renders.
// Remaining time is recomputed on every observation, never pushed.
type SessionSnapshot struct {
	State            SessionState `json:"state"`
	Name             string       `json:"name,omitempty"`
	Index            int          `json:"index"`
	Total            int          `json:"total"`
	Question         string       `json:"question,omitempty"`
	Options          []string     `json:"options,omitempty"`
	Info             string       `json:"information,omitempty"`
	Selected         string       `json:"selected,omitempty"`
	Answered         bool         `json:"answered"`
	RemainingSeconds float64      `json:"remainingSeconds"`
	Score            int          `json:"score"`
	ElapsedSeconds   float64      `json:"elapsedSeconds"`
}
