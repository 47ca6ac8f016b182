package domain

import "errors"

var (
	// ErrBankUnavailable is returned when the question bank is missing or malformed.
	ErrBankUnavailable = errors.New("question bank unavailable")
	// ErrInvalidQuestion is returned when a question violates the bank invariants.
	ErrInvalidQuestion = errors.New("invalid question")
	// ErrQuestionNotFound indicates an out-of-range question index on an admin edit.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateParticipant is returned when a name already has a recorded result.
	ErrDuplicateParticipant = errors.New("participant already has a recorded result")
	// ErrEmptyName rejects a quiz start without a participant name.
	ErrEmptyName = errors.New("participant name must not be empty")
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrNotStarted guards transitions that require an in-progress session.
	ErrNotStarted = errors.New("quiz session not started")
	// ErrAlreadyStarted rejects a second Start on a running session.
	ErrAlreadyStarted = errors.New("quiz session already started")
	// ErrAlreadyFinished guards transitions on a finished session.
	ErrAlreadyFinished = errors.New("quiz session already finished")
	// ErrOptionNotFound indicates a selected option the current question lacks.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAlreadyAnswered rejects selecting an option after submission.
	ErrAlreadyAnswered = errors.New("current question already answered")
	// ErrNotAnswered rejects advancing before the current question was submitted.
	ErrNotAnswered = errors.New("current question not answered yet")
)
