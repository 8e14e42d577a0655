package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fefferico/quiz-app-sub000/internal/cache"
	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/mapper"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// StatsUpdater recomputes per-question answer statistics.
//
// Both entry points are read-modify-write: counters are read, incremented
// locally and written back. Concurrent answers to the same question can lose
// an increment. A multi-writer deployment needs a server-side increment.
type StatsUpdater struct {
	remote remote.Client
	cache  cache.Backend
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewStatsUpdater(rc remote.Client, c cache.Backend, log logrus.FieldLogger, now func() time.Time) *StatsUpdater {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &StatsUpdater{remote: rc, cache: c, log: log, now: now}
}

// RecordAnswer applies one answer to its question.
func (u *StatsUpdater) RecordAnswer(ctx context.Context, o domain.AnswerOutcome) (domain.Question, error) {
	row, err := u.remote.Questions().SelectOne(ctx, remote.Where(remote.Eq(remote.ColID, o.QuestionID)))
	if err != nil {
		if remote.IsNoRows(err) {
			return domain.Question{}, domain.ErrQuestionNotFound
		}
		return domain.Question{}, fmt.Errorf("read stats of %s: %w", o.QuestionID, err)
	}
	q, _ := mapper.Question(row)
	patch := u.answerPatch(q, o)

	rows, err := u.remote.Questions().Update(ctx, mapper.QuestionPatchColumns(patch), remote.Eq(remote.ColID, q.ID))
	if err != nil {
		return domain.Question{}, fmt.Errorf("write stats of %s: %w", q.ID, err)
	}
	if len(rows) == 0 {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	saved, _ := mapper.Question(rows[0])
	if err := u.cache.PutQuestions(ctx, []domain.Question{saved}); err != nil {
		return domain.Question{}, fmt.Errorf("mirror stats of %s: %w", q.ID, err)
	}
	return saved, nil
}

// RecordAnswers applies a batch of answers in order. Counters for the
// distinct ids are fetched in one query and written back in one upsert;
// only rows the remote returns are mirrored into the cache. Ids the remote
// does not know are skipped.
func (u *StatsUpdater) RecordAnswers(ctx context.Context, outcomes []domain.AnswerOutcome) ([]domain.Question, error) {
	if len(outcomes) == 0 {
		return []domain.Question{}, nil
	}
	ids := make([]string, 0, len(outcomes))
	seen := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if _, ok := seen[o.QuestionID]; !ok {
			seen[o.QuestionID] = struct{}{}
			ids = append(ids, o.QuestionID)
		}
	}

	rows, err := u.remote.Questions().Select(ctx, remote.Where(remote.In(remote.ColID, ids)))
	if err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	current := make(map[string]domain.Question, len(rows))
	for _, r := range rows {
		if q, ok := mapper.Question(r); ok {
			current[q.ID] = q
		}
	}

	order := make([]string, 0, len(current))
	for _, o := range outcomes {
		q, ok := current[o.QuestionID]
		if !ok {
			u.log.WithField("question", o.QuestionID).Warn("stats update skipped: question not found")
			continue
		}
		if _, touched := seen[o.QuestionID]; touched {
			delete(seen, o.QuestionID)
			order = append(order, o.QuestionID)
		}
		current[o.QuestionID] = u.answerPatch(q, o).Apply(q)
	}
	if len(order) == 0 {
		return []domain.Question{}, nil
	}

	updated := make([]remote.QuestionRow, 0, len(order))
	for _, id := range order {
		updated = append(updated, mapper.QuestionToRow(current[id]))
	}
	confirmed, err := u.remote.Questions().Upsert(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("write stats: %w", err)
	}
	saved := make([]domain.Question, 0, len(confirmed))
	for _, r := range confirmed {
		if q, ok := mapper.Question(r); ok {
			saved = append(saved, q)
		}
	}
	if len(saved) > 0 {
		if err := u.cache.PutQuestions(ctx, saved); err != nil {
			return nil, fmt.Errorf("mirror stats: %w", err)
		}
	}
	return saved, nil
}

// answerPatch is the statistics change one answer makes to q.
func (u *StatsUpdater) answerPatch(q domain.Question, o domain.AnswerOutcome) domain.QuestionPatch {
	correctCount, incorrectCount := q.TimesCorrect, q.TimesIncorrect
	if o.Correct {
		correctCount++
	} else {
		incorrectCount++
	}
	at := o.AnsweredAt
	if at.IsZero() {
		at = u.now()
	}
	correct := o.Correct
	return domain.QuestionPatch{
		TimesCorrect:          &correctCount,
		TimesIncorrect:        &incorrectCount,
		Accuracy:              domain.ComputeAccuracy(correctCount, incorrectCount),
		LastAnsweredTimestamp: &at,
		LastAnswerCorrect:     &correct,
	}
}
