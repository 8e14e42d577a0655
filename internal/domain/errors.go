package domain

import "errors"

var (
	// ErrQuestionNotFound indicates a question id is unknown to both stores.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrAttemptNotFound indicates an attempt id is unknown to both stores.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrInvalidAttempt is returned for attempts without an id.
	ErrInvalidAttempt = errors.New("invalid quiz attempt")
	// ErrInvalidStatus is returned for unknown attempt statuses.
	ErrInvalidStatus = errors.New("invalid attempt status")
	// ErrRosterMismatch means answered/unanswered lists disagree with allQuestions.
	ErrRosterMismatch = errors.New("attempt question lists are inconsistent")
)
