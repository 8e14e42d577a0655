// Package cache is the local, versioned store that mirrors remote data and
// answers reads while the remote store is unreachable.
package cache

import (
	"context"
	"time"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// Backend is the storage the cache runs on. Lookups of absent ids are not
// errors: single gets report ok=false and batch gets skip the id.
type Backend interface {
	GetQuestion(ctx context.Context, id string) (domain.Question, bool, error)
	GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error)
	// AllQuestions returns every cached question, across namespaces.
	AllQuestions(ctx context.Context) ([]domain.Question, error)
	QuestionsByContest(ctx context.Context, contest string) ([]domain.Question, error)
	QuestionsByTopic(ctx context.Context, contest, topic string) ([]domain.Question, error)
	FavoriteQuestions(ctx context.Context, contest string) ([]domain.Question, error)
	// QuestionsAnsweredBetween selects by last-answered timestamp, inclusive.
	QuestionsAnsweredBetween(ctx context.Context, start, end time.Time) ([]domain.Question, error)
	PutQuestions(ctx context.Context, qs []domain.Question) error
	DeleteQuestions(ctx context.Context, ids []string) error

	GetAttempt(ctx context.Context, id string) (domain.QuizAttempt, bool, error)
	GetAttempts(ctx context.Context, ids []string) ([]domain.QuizAttempt, error)
	AttemptsByStatus(ctx context.Context, status domain.AttemptStatus) ([]domain.QuizAttempt, error)
	// AttemptsStartedBetween selects by start timestamp, inclusive.
	AttemptsStartedBetween(ctx context.Context, start, end time.Time) ([]domain.QuizAttempt, error)
	// ListAttempts pages through attempts, newest start first.
	ListAttempts(ctx context.Context, limit, offset int) ([]domain.QuizAttempt, error)
	PutAttempts(ctx context.Context, as []domain.QuizAttempt) error
	DeleteAttempts(ctx context.Context, ids []string) error

	// SchemaVersion returns 0 for a store that was never opened.
	SchemaVersion(ctx context.Context) (int, error)
	SetSchemaVersion(ctx context.Context, v int) error
}
