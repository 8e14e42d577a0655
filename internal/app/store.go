package app

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fefferico/quiz-app-sub000/internal/cache"
	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/fallback"
	"github.com/fefferico/quiz-app-sub000/internal/mapper"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Questions is a question read, possibly served from the cache.
type Questions = fallback.Result[domain.Question]

// Attempts is an attempt read, possibly served from the cache.
type Attempts = fallback.Result[domain.QuizAttempt]

// Store is the persistence facade: reads go remote-first through the
// fallback engine, writes go to the remote and are mirrored into the cache.
// Writes are never queued; while the remote is unreachable they fail.
type Store struct {
	remote remote.Client
	cache  *cache.Store
	engine *fallback.Engine
	stats  *StatsUpdater
	log    logrus.FieldLogger
	now    func() time.Time
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) StoreOption {
	return func(s *Store) { s.log = log }
}

// NewStore wires a store. The cache must already be open.
func NewStore(rc remote.Client, c *cache.Store, conn fallback.Connectivity, opts ...StoreOption) *Store {
	s := &Store{
		remote: rc,
		cache:  c,
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = fallback.NewEngine(conn, s.log)
	s.stats = NewStatsUpdater(rc, c, s.log, s.now)
	return s
}

// Stats exposes the updater sharing this store's remote and cache.
func (s *Store) Stats() *StatsUpdater { return s.stats }

// Online reports the connectivity signal.
func (s *Store) Online() bool { return s.engine.Online() }

func (s *Store) questionQuery(name, key string, q remote.Query, fb func(ctx context.Context) ([]domain.Question, error)) fallback.Query[remote.QuestionRow, domain.Question] {
	return fallback.Query[remote.QuestionRow, domain.Question]{
		Name: name,
		Key:  key,
		Remote: func(ctx context.Context) ([]remote.QuestionRow, error) {
			return s.remote.Questions().Select(ctx, q)
		},
		Map:       mapper.Question,
		WriteBack: s.cache.PutQuestions,
		Fallback:  fb,
	}
}

func (s *Store) attemptQuery(name, key string, q remote.Query, fb func(ctx context.Context) ([]domain.QuizAttempt, error)) fallback.Query[remote.AttemptRow, domain.QuizAttempt] {
	return fallback.Query[remote.AttemptRow, domain.QuizAttempt]{
		Name: name,
		Key:  key,
		Remote: func(ctx context.Context) ([]remote.AttemptRow, error) {
			return s.remote.Attempts().Select(ctx, q)
		},
		Map:       mapper.Attempt,
		WriteBack: s.cache.PutAttempts,
		Fallback:  fb,
	}
}

func byContest(contest string) remote.Filter {
	if contest == "" {
		return remote.Filter{}
	}
	return remote.Eq(remote.ColPublicContest, contest)
}

// GetAllQuestions returns every question of a contest; an empty contest
// selects all of them.
func (s *Store) GetAllQuestions(ctx context.Context, contest string) (Questions, error) {
	q := remote.Where(byContest(contest)).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("getAllQuestions", "questions:"+contest, q,
		func(ctx context.Context) ([]domain.Question, error) {
			if contest == "" {
				return s.cache.AllQuestions(ctx)
			}
			return s.cache.QuestionsByContest(ctx, contest)
		}))
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, bool, error) {
	return fallback.RunOne(ctx, s.engine, fallback.Query[remote.QuestionRow, domain.Question]{
		Name: "getQuestion",
		Remote: func(ctx context.Context) ([]remote.QuestionRow, error) {
			row, err := s.remote.Questions().SelectOne(ctx, remote.Where(remote.Eq(remote.ColID, id)))
			if err != nil {
				return nil, err
			}
			return []remote.QuestionRow{row}, nil
		},
		Map:       mapper.Question,
		WriteBack: s.cache.PutQuestions,
		Fallback: func(ctx context.Context) ([]domain.Question, error) {
			q, ok, err := s.cache.GetQuestion(ctx, id)
			if err != nil || !ok {
				return nil, err
			}
			return []domain.Question{q}, nil
		},
	})
}

func (s *Store) GetQuestionsByIDs(ctx context.Context, ids []string) (Questions, error) {
	if len(ids) == 0 {
		return Questions{Items: []domain.Question{}}, nil
	}
	q := remote.Where(remote.In(remote.ColID, ids)).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("getQuestionsByIds", "", q,
		func(ctx context.Context) ([]domain.Question, error) {
			return s.cache.GetQuestions(ctx, ids)
		}))
}

func (s *Store) GetQuestionsByTopic(ctx context.Context, contest, topic string) (Questions, error) {
	q := remote.Where(remote.And(byContest(contest), remote.Eq(remote.ColTopic, topic))).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("getQuestionsByTopic", "topic:"+contest+":"+topic, q,
		func(ctx context.Context) ([]domain.Question, error) {
			return s.cache.QuestionsByTopic(ctx, contest, topic)
		}))
}

// SearchQuestions matches keyword case-insensitively against question text.
func (s *Store) SearchQuestions(ctx context.Context, contest, keyword string) (Questions, error) {
	q := remote.Where(remote.And(byContest(contest), remote.ILike(remote.ColText, keyword))).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("searchQuestions", "", q,
		func(ctx context.Context) ([]domain.Question, error) {
			var (
				all []domain.Question
				err error
			)
			if contest == "" {
				all, err = s.cache.AllQuestions(ctx)
			} else {
				all, err = s.cache.QuestionsByContest(ctx, contest)
			}
			if err != nil {
				return nil, err
			}
			needle := strings.ToLower(keyword)
			out := make([]domain.Question, 0, len(all))
			for _, q := range all {
				if strings.Contains(strings.ToLower(q.Text), needle) {
					out = append(out, q)
				}
			}
			return out, nil
		}))
}

func (s *Store) GetFavoriteQuestions(ctx context.Context, contest string) (Questions, error) {
	q := remote.Where(remote.And(byContest(contest), remote.Eq(remote.ColIsFavorite, 1))).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("getFavoriteQuestions", "favorites:"+contest, q,
		func(ctx context.Context) ([]domain.Question, error) {
			return s.cache.FavoriteQuestions(ctx, contest)
		}))
}

// GetTopics returns the distinct topics of a contest, sorted.
func (s *Store) GetTopics(ctx context.Context, contest string) ([]string, bool, error) {
	res, err := s.GetAllQuestions(ctx, contest)
	if err != nil {
		return nil, false, err
	}
	topics := make([]string, 0)
	for _, q := range res.Items {
		if q.Topic != "" {
			topics = append(topics, q.Topic)
		}
	}
	sort.Strings(topics)
	return slices.Compact(topics), res.Stale, nil
}

// GetQuestionsAnsweredBetween selects questions by last-answered time, inclusive.
func (s *Store) GetQuestionsAnsweredBetween(ctx context.Context, start, end time.Time) (Questions, error) {
	q := remote.Where(remote.Between(remote.ColLastAnsweredAt, start, end)).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.questionQuery("getQuestionsAnsweredBetween", "", q,
		func(ctx context.Context) ([]domain.Question, error) {
			return s.cache.QuestionsAnsweredBetween(ctx, start, end)
		}))
}

func (s *Store) GetAttempt(ctx context.Context, id string) (domain.QuizAttempt, bool, error) {
	return fallback.RunOne(ctx, s.engine, fallback.Query[remote.AttemptRow, domain.QuizAttempt]{
		Name: "getAttempt",
		Remote: func(ctx context.Context) ([]remote.AttemptRow, error) {
			row, err := s.remote.Attempts().SelectOne(ctx, remote.Where(remote.Eq(remote.ColID, id)))
			if err != nil {
				return nil, err
			}
			return []remote.AttemptRow{row}, nil
		},
		Map:       mapper.Attempt,
		WriteBack: s.cache.PutAttempts,
		Fallback: func(ctx context.Context) ([]domain.QuizAttempt, error) {
			a, ok, err := s.cache.GetAttempt(ctx, id)
			if err != nil || !ok {
				return nil, err
			}
			return []domain.QuizAttempt{a}, nil
		},
	})
}

// GetPausedQuiz returns the most recently started paused attempt. Having
// none is not an error.
func (s *Store) GetPausedQuiz(ctx context.Context) (domain.QuizAttempt, bool, error) {
	return s.latestWithStatus(ctx, "getPausedQuiz", domain.StatusPaused)
}

// GetInProgressQuiz returns the most recently started in-progress attempt.
func (s *Store) GetInProgressQuiz(ctx context.Context) (domain.QuizAttempt, bool, error) {
	return s.latestWithStatus(ctx, "getInProgressQuiz", domain.StatusInProgress)
}

func (s *Store) latestWithStatus(ctx context.Context, name string, status domain.AttemptStatus) (domain.QuizAttempt, bool, error) {
	q := remote.Where(remote.Eq(remote.ColStatus, string(status))).OrderBy(remote.ColTimestampStart, true)
	return fallback.RunOne(ctx, s.engine, fallback.Query[remote.AttemptRow, domain.QuizAttempt]{
		Name: name,
		Key:  "status:" + string(status),
		Remote: func(ctx context.Context) ([]remote.AttemptRow, error) {
			row, err := s.remote.Attempts().SelectOne(ctx, q)
			if err != nil {
				return nil, err
			}
			return []remote.AttemptRow{row}, nil
		},
		Map:       mapper.Attempt,
		WriteBack: s.cache.PutAttempts,
		Fallback: func(ctx context.Context) ([]domain.QuizAttempt, error) {
			as, err := s.cache.AttemptsByStatus(ctx, status)
			if err != nil {
				return nil, err
			}
			slices.Reverse(as)
			return as, nil
		},
	})
}

// GetAttemptsStartedBetween selects attempts by start time, inclusive,
// optionally restricted to one contest.
func (s *Store) GetAttemptsStartedBetween(ctx context.Context, start, end time.Time, contest string) (Attempts, error) {
	q := remote.Where(remote.And(
		remote.Between(remote.ColTimestampStart, start, end),
		byContest(contest),
	)).OrderBy(remote.ColTimestampStart, false).OrderBy(remote.ColID, false)
	return fallback.Run(ctx, s.engine, s.attemptQuery("getAttemptsStartedBetween", "", q,
		func(ctx context.Context) ([]domain.QuizAttempt, error) {
			as, err := s.cache.AttemptsStartedBetween(ctx, start, end)
			if err != nil || contest == "" {
				return as, err
			}
			out := as[:0]
			for _, a := range as {
				if a.PublicContest == contest {
					out = append(out, a)
				}
			}
			return out, nil
		}))
}

// GetRecentAttempts pages through attempts, newest first.
func (s *Store) GetRecentAttempts(ctx context.Context, limit, offset int) (Attempts, error) {
	q := remote.Query{}.OrderBy(remote.ColTimestampStart, true).OrderBy(remote.ColID, false).Page(limit, offset)
	return fallback.Run(ctx, s.engine, s.attemptQuery("getRecentAttempts", "", q,
		func(ctx context.Context) ([]domain.QuizAttempt, error) {
			return s.cache.ListAttempts(ctx, limit, offset)
		}))
}

// AddQuestion inserts q remotely and mirrors the stored row.
func (s *Store) AddQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	rows, err := s.remote.Questions().Insert(ctx, []remote.QuestionRow{mapper.QuestionToRow(q)})
	if err != nil {
		return domain.Question{}, fmt.Errorf("add question %s: %w", q.ID, err)
	}
	saved, err := s.mirrorQuestions(ctx, rows)
	if err != nil || len(saved) == 0 {
		return q, err
	}
	return saved[0], nil
}

// UpdateQuestion applies patch to the question with the given id. Only the
// fields set in patch are sent.
func (s *Store) UpdateQuestion(ctx context.Context, id string, patch domain.QuestionPatch) (domain.Question, error) {
	cols := mapper.QuestionPatchColumns(patch)
	if len(cols) == 0 {
		q, ok, err := s.GetQuestion(ctx, id)
		if err == nil && !ok {
			err = domain.ErrQuestionNotFound
		}
		return q, err
	}
	rows, err := s.remote.Questions().Update(ctx, cols, remote.Eq(remote.ColID, id))
	if err != nil {
		return domain.Question{}, fmt.Errorf("update question %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	saved, err := s.mirrorQuestions(ctx, rows)
	if err != nil {
		return domain.Question{}, err
	}
	return saved[0], nil
}

func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) (domain.Question, error) {
	v := 0
	if favorite {
		v = 1
	}
	return s.UpdateQuestion(ctx, id, domain.QuestionPatch{IsFavorite: &v})
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	rows, err := s.remote.Questions().Delete(ctx, remote.Eq(remote.ColID, id))
	if err != nil {
		return fmt.Errorf("delete question %s: %w", id, err)
	}
	if err := s.cache.DeleteQuestions(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete cached question %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

// AddAttempt stores a new attempt, assigning an id when it has none.
func (s *Store) AddAttempt(ctx context.Context, a domain.QuizAttempt) (domain.QuizAttempt, error) {
	if a.ID == "" {
		a.ID = domain.NewAttemptID()
	}
	if a.Status == "" {
		a.Status = domain.StatusInProgress
	}
	if a.TimestampStart.IsZero() {
		a.TimestampStart = s.now()
	}
	if err := a.Validate(); err != nil {
		return domain.QuizAttempt{}, err
	}
	rows, err := s.remote.Attempts().Insert(ctx, []remote.AttemptRow{mapper.AttemptToRow(a)})
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("add attempt %s: %w", a.ID, err)
	}
	saved, err := s.mirrorAttempts(ctx, rows)
	if err != nil || len(saved) == 0 {
		return a, err
	}
	return saved[0], nil
}

func (s *Store) UpdateAttempt(ctx context.Context, id string, patch domain.AttemptPatch) (domain.QuizAttempt, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.QuizAttempt{}, domain.ErrInvalidStatus
	}
	cols := mapper.AttemptPatchColumns(patch)
	if len(cols) == 0 {
		a, ok, err := s.GetAttempt(ctx, id)
		if err == nil && !ok {
			err = domain.ErrAttemptNotFound
		}
		return a, err
	}
	rows, err := s.remote.Attempts().Update(ctx, cols, remote.Eq(remote.ColID, id))
	if err != nil {
		return domain.QuizAttempt{}, fmt.Errorf("update attempt %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.QuizAttempt{}, domain.ErrAttemptNotFound
	}
	saved, err := s.mirrorAttempts(ctx, rows)
	if err != nil {
		return domain.QuizAttempt{}, err
	}
	return saved[0], nil
}

func (s *Store) DeleteAttempt(ctx context.Context, id string) error {
	rows, err := s.remote.Attempts().Delete(ctx, remote.Eq(remote.ColID, id))
	if err != nil {
		return fmt.Errorf("delete attempt %s: %w", id, err)
	}
	if err := s.cache.DeleteAttempts(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete cached attempt %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

// CompleteAttempt closes a with the given finished status and feeds its
// answers to the stats updater. Stats failures are logged, not returned.
func (s *Store) CompleteAttempt(ctx context.Context, a domain.QuizAttempt, status domain.AttemptStatus) (domain.QuizAttempt, error) {
	if !status.Finished() {
		return domain.QuizAttempt{}, domain.ErrInvalidStatus
	}
	end := a.EndedAt(s.now())
	a.TimestampEnd = &end
	a.Status = status
	if err := a.Validate(); err != nil {
		return domain.QuizAttempt{}, err
	}

	total := a.TotalQuestionsInQuiz
	saved, err := s.UpdateAttempt(ctx, a.ID, domain.AttemptPatch{
		TimestampEnd:         a.TimestampEnd,
		Score:                a.Score,
		TotalQuestionsInQuiz: &total,
		AnsweredQuestions:    nonNil(a.AnsweredQuestions),
		UnansweredQuestions:  nonNil(a.UnansweredQuestions),
		AllQuestions:         nonNil(a.AllQuestions),
		Status:               &status,
	})
	if err != nil {
		return domain.QuizAttempt{}, err
	}

	outcomes := make([]domain.AnswerOutcome, 0, len(a.AnsweredQuestions))
	for _, aq := range a.AnsweredQuestions {
		at := end
		if aq.AnsweredAt != nil {
			at = *aq.AnsweredAt
		}
		outcomes = append(outcomes, domain.AnswerOutcome{QuestionID: aq.QuestionID, Correct: aq.IsCorrect, AnsweredAt: at})
	}
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].AnsweredAt.Before(outcomes[j].AnsweredAt)
	})
	if _, err := s.stats.RecordAnswers(ctx, outcomes); err != nil {
		s.log.WithError(err).WithField("attempt", a.ID).Error("stats update failed after quiz completion")
	}
	return saved, nil
}

func nonNil(list []domain.AnsweredQuestion) []domain.AnsweredQuestion {
	if list == nil {
		return []domain.AnsweredQuestion{}
	}
	return list
}

func (s *Store) mirrorQuestions(ctx context.Context, rows []remote.QuestionRow) ([]domain.Question, error) {
	qs := make([]domain.Question, 0, len(rows))
	for _, r := range rows {
		if q, ok := mapper.Question(r); ok {
			qs = append(qs, q)
		}
	}
	if len(qs) == 0 {
		return qs, nil
	}
	if err := s.cache.PutQuestions(ctx, qs); err != nil {
		return nil, fmt.Errorf("mirror questions: %w", err)
	}
	return qs, nil
}

func (s *Store) mirrorAttempts(ctx context.Context, rows []remote.AttemptRow) ([]domain.QuizAttempt, error) {
	as := make([]domain.QuizAttempt, 0, len(rows))
	for _, r := range rows {
		if a, ok := mapper.Attempt(r); ok {
			as = append(as, a)
		}
	}
	if len(as) == 0 {
		return as, nil
	}
	if err := s.cache.PutAttempts(ctx, as); err != nil {
		return nil, fmt.Errorf("mirror attempts: %w", err)
	}
	return as, nil
}
