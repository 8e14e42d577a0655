package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// CacheStore is an in-memory implementation of cache.Backend.
type CacheStore struct {
	mu        sync.RWMutex
	version   int
	questions map[string]domain.Question
	attempts  map[string]domain.QuizAttempt
}

func NewCacheStore() *CacheStore {
	return &CacheStore{
		questions: make(map[string]domain.Question),
		attempts:  make(map[string]domain.QuizAttempt),
	}
}

func (s *CacheStore) GetQuestion(_ context.Context, id string) (domain.Question, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	return q, ok, nil
}

func (s *CacheStore) GetQuestions(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *CacheStore) AllQuestions(_ context.Context) ([]domain.Question, error) {
	return s.filterQuestions(func(domain.Question) bool { return true }), nil
}

func (s *CacheStore) QuestionsByContest(_ context.Context, contest string) ([]domain.Question, error) {
	return s.filterQuestions(func(q domain.Question) bool { return q.PublicContest == contest }), nil
}

func (s *CacheStore) QuestionsByTopic(_ context.Context, contest, topic string) ([]domain.Question, error) {
	return s.filterQuestions(func(q domain.Question) bool {
		return q.PublicContest == contest && q.Topic == topic
	}), nil
}

func (s *CacheStore) FavoriteQuestions(_ context.Context, contest string) ([]domain.Question, error) {
	return s.filterQuestions(func(q domain.Question) bool {
		return q.PublicContest == contest && q.IsFavorite == 1
	}), nil
}

func (s *CacheStore) QuestionsAnsweredBetween(_ context.Context, start, end time.Time) ([]domain.Question, error) {
	return s.filterQuestions(func(q domain.Question) bool {
		return q.LastAnsweredTimestamp != nil && within(*q.LastAnsweredTimestamp, start, end)
	}), nil
}

func (s *CacheStore) PutQuestions(_ context.Context, qs []domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range qs {
		s.questions[q.ID] = q
	}
	return nil
}

func (s *CacheStore) DeleteQuestions(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.questions, id)
	}
	return nil
}

func (s *CacheStore) GetAttempt(_ context.Context, id string) (domain.QuizAttempt, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	return a, ok, nil
}

func (s *CacheStore) GetAttempts(_ context.Context, ids []string) ([]domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0, len(ids))
	for _, id := range ids {
		if a, ok := s.attempts[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *CacheStore) AttemptsByStatus(_ context.Context, status domain.AttemptStatus) ([]domain.QuizAttempt, error) {
	return s.filterAttempts(func(a domain.QuizAttempt) bool { return a.Status == status }), nil
}

func (s *CacheStore) AttemptsStartedBetween(_ context.Context, start, end time.Time) ([]domain.QuizAttempt, error) {
	return s.filterAttempts(func(a domain.QuizAttempt) bool { return within(a.TimestampStart, start, end) }), nil
}

func (s *CacheStore) ListAttempts(_ context.Context, limit, offset int) ([]domain.QuizAttempt, error) {
	all := s.filterAttempts(func(domain.QuizAttempt) bool { return true })
	sort.SliceStable(all, func(i, j int) bool { return all[i].TimestampStart.After(all[j].TimestampStart) })
	if offset >= len(all) {
		return []domain.QuizAttempt{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *CacheStore) PutAttempts(_ context.Context, as []domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range as {
		s.attempts[a.ID] = a
	}
	return nil
}

func (s *CacheStore) DeleteAttempts(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.attempts, id)
	}
	return nil
}

func (s *CacheStore) SchemaVersion(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

func (s *CacheStore) SetSchemaVersion(_ context.Context, v int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version = v
	return nil
}

// filterQuestions returns matching questions ordered by id.
func (s *CacheStore) filterQuestions(keep func(domain.Question) bool) []domain.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0)
	for _, q := range s.questions {
		if keep(q) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// filterAttempts returns matching attempts ordered by start time.
func (s *CacheStore) filterAttempts(keep func(domain.QuizAttempt) bool) []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizAttempt, 0)
	for _, a := range s.attempts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TimestampStart.Equal(out[j].TimestampStart) {
			return out[i].TimestampStart.Before(out[j].TimestampStart)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
