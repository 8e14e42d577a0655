package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// DaySpec names a calendar day: "today", "yesterday" or a fixed date.
type DaySpec struct {
	offset int
	date   time.Time
	fixed  bool
	label  string
}

// ParseDay accepts "today", "yesterday" or YYYY-MM-DD. The empty string
// means today.
func ParseDay(s string) (DaySpec, error) {
	switch s {
	case "", "today":
		return DaySpec{label: "today"}, nil
	case "yesterday":
		return DaySpec{offset: -1, label: s}, nil
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return DaySpec{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DaySpec{date: d, fixed: true, label: s}, nil
}

func (d DaySpec) String() string { return d.label }

// Window resolves the day to [local midnight, next midnight - 1ns] in loc.
func (d DaySpec) Window(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	var y int
	var m time.Month
	var day int
	if d.fixed {
		y, m, day = d.date.Date()
	} else {
		y, m, day = now.In(loc).AddDate(0, 0, d.offset).Date()
	}
	start := time.Date(y, m, day, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Nanosecond)
	return start, end
}

// Analytics derives review lists from attempt history and lifetime stats.
type Analytics struct {
	store *Store
	loc   *time.Location
}

func NewAnalytics(store *Store, loc *time.Location) *Analytics {
	if loc == nil {
		loc = time.Local
	}
	return &Analytics{store: store, loc: loc}
}

// occurrence is the latest moment a question went wrong inside an attempt.
type occurrence struct {
	problematic bool
	at          time.Time
}

// ProblematicQuestions returns the sorted ids a user should review for the
// given day. A question is included when its lifetime last answer inside
// the window was wrong, or when it was missed or answered wrong in an
// attempt concluded inside the window and no correct lifetime answer inside
// the window came at or after that miss.
func (a *Analytics) ProblematicQuestions(ctx context.Context, day DaySpec, contest string) ([]string, error) {
	now := a.store.now()
	start, end := day.Window(now, a.loc)
	inWindow := func(t time.Time) bool { return !t.Before(start) && !t.After(end) }

	attempts, err := a.store.GetAttemptsStartedBetween(ctx, start, end, contest)
	if err != nil {
		return nil, fmt.Errorf("problematic questions: %w", err)
	}

	candidates := make(map[string]*occurrence)
	for _, at := range attempts.Items {
		ended := at.EndedAt(now)
		if !inWindow(ended) {
			continue
		}
		answered := make(map[string]domain.AnsweredQuestion, len(at.AnsweredQuestions))
		for _, aq := range at.AnsweredQuestions {
			answered[aq.QuestionID] = aq
		}
		for _, q := range at.AllQuestions {
			if q.QuestionID == "" {
				continue
			}
			occ, ok := candidates[q.QuestionID]
			if !ok {
				occ = &occurrence{}
				candidates[q.QuestionID] = occ
			}
			aq, wasAnswered := answered[q.QuestionID]
			if wasAnswered && aq.IsCorrect {
				continue
			}
			// Unanswered questions have no answer time: any correct answer
			// in the window clears them.
			when := start
			if wasAnswered {
				when = ended
				if aq.AnsweredAt != nil {
					when = *aq.AnsweredAt
				}
			}
			if !occ.problematic || when.After(occ.at) {
				occ.at = when
			}
			occ.problematic = true
		}
	}
	if len(candidates) == 0 {
		return []string{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	lifetime, err := a.store.GetQuestionsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("problematic questions: %w", err)
	}
	byID := make(map[string]domain.Question, len(lifetime.Items))
	for _, q := range lifetime.Items {
		byID[q.ID] = q
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		occ := candidates[id]
		q, known := byID[id]
		lastInWindow := known && q.LastAnsweredTimestamp != nil && q.LastAnswerCorrect != nil &&
			inWindow(*q.LastAnsweredTimestamp)

		if lastInWindow && !*q.LastAnswerCorrect {
			out = append(out, id)
			continue
		}
		if !occ.problematic {
			continue
		}
		corrected := lastInWindow && *q.LastAnswerCorrect && !q.LastAnsweredTimestamp.Before(occ.at)
		if !corrected {
			out = append(out, id)
		}
	}
	return out, nil
}

// NeverAnsweredQuestions lists ids of questions with no recorded answer.
func (a *Analytics) NeverAnsweredQuestions(ctx context.Context, contest string) ([]string, error) {
	res, err := a.store.GetAllQuestions(ctx, contest)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0)
	for _, q := range res.Items {
		if !q.Answered() {
			out = append(out, q.ID)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Buckets groups question ids by lifetime accuracy.
type Buckets struct {
	Unanswered []string `json:"unanswered"`
	Low        []string `json:"low"`
	Medium     []string `json:"medium"`
	High       []string `json:"high"`
}

// AccuracyBuckets splits questions into unanswered, below 50%, 50-80% and
// 80% or more.
func (a *Analytics) AccuracyBuckets(ctx context.Context, contest string) (Buckets, error) {
	res, err := a.store.GetAllQuestions(ctx, contest)
	if err != nil {
		return Buckets{}, err
	}
	b := Buckets{Unanswered: []string{}, Low: []string{}, Medium: []string{}, High: []string{}}
	for _, q := range res.Items {
		acc := q.Accuracy
		if acc == nil {
			acc = domain.ComputeAccuracy(q.TimesCorrect, q.TimesIncorrect)
		}
		switch {
		case !q.Answered() || acc == nil:
			b.Unanswered = append(b.Unanswered, q.ID)
		case *acc < 50:
			b.Low = append(b.Low, q.ID)
		case *acc < 80:
			b.Medium = append(b.Medium, q.ID)
		default:
			b.High = append(b.High, q.ID)
		}
	}
	for _, list := range [][]string{b.Unanswered, b.Low, b.Medium, b.High} {
		sort.Strings(list)
	}
	return b, nil
}

// TopicStats aggregates lifetime statistics of one topic.
type TopicStats struct {
	Topic          string   `json:"topic"`
	Questions      int      `json:"questions"`
	Answered       int      `json:"answered"`
	TimesCorrect   int      `json:"timesCorrect"`
	TimesIncorrect int      `json:"timesIncorrect"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
}

func (a *Analytics) TopicSummary(ctx context.Context, contest string) ([]TopicStats, error) {
	res, err := a.store.GetAllQuestions(ctx, contest)
	if err != nil {
		return nil, err
	}
	byTopic := make(map[string]*TopicStats)
	for _, q := range res.Items {
		ts, ok := byTopic[q.Topic]
		if !ok {
			ts = &TopicStats{Topic: q.Topic}
			byTopic[q.Topic] = ts
		}
		ts.Questions++
		if q.Answered() {
			ts.Answered++
		}
		ts.TimesCorrect += q.TimesCorrect
		ts.TimesIncorrect += q.TimesIncorrect
	}
	out := make([]TopicStats, 0, len(byTopic))
	for _, ts := range byTopic {
		ts.Accuracy = domain.ComputeAccuracy(ts.TimesCorrect, ts.TimesIncorrect)
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out, nil
}
