package cache

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// Default scoring weights for freshly seeded questions.
const (
	DefaultScoreIsCorrect = 1.0
	DefaultScoreIsWrong   = -0.33
	DefaultScoreIsSkip    = 0.0
)

// Report summarises a migration plan.
type Report struct {
	Inserted  int
	Updated   int
	Untouched int
	// Orphaned counts cached ids absent from the definitions. They are kept.
	Orphaned int
}

// Plan is the diff between definitions and the cached questions.
type Plan struct {
	Updates []domain.Question
	Inserts []domain.Question
	Report  Report
}

// BuildPlan merges definitions into cached questions. Content comes from
// the definition; statistics and scoring weights of cached questions are
// carried over untouched.
func BuildPlan(defs, cached []domain.Question) Plan {
	byID := make(map[string]domain.Question, len(cached))
	for _, q := range cached {
		byID[q.ID] = q
	}

	var plan Plan
	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if _, dup := seen[def.ID]; dup {
			continue
		}
		seen[def.ID] = struct{}{}

		cur, ok := byID[def.ID]
		if !ok {
			plan.Inserts = append(plan.Inserts, seedQuestion(def))
			continue
		}
		defVersion := versionOf(def)
		curVersion := versionOf(cur)
		if defVersion > curVersion || (defVersion == curVersion && contentDiffers(def, cur)) {
			plan.Updates = append(plan.Updates, withContent(cur, def))
			continue
		}
		plan.Report.Untouched++
	}
	for id := range byID {
		if _, ok := seen[id]; !ok {
			plan.Report.Orphaned++
		}
	}
	plan.Report.Inserted = len(plan.Inserts)
	plan.Report.Updated = len(plan.Updates)
	return plan
}

// migrate applies the plan in two batches: content updates, then inserts.
// A failure between them leaves the first batch applied.
func migrate(ctx context.Context, backend Backend, src ContentSource, stored int) (Report, error) {
	if stored == 0 {
		defs, err := src.Definitions(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("load definitions: %w", err)
		}
		seeded := make([]domain.Question, 0, len(defs))
		for _, def := range defs {
			seeded = append(seeded, seedQuestion(def))
		}
		if err := backend.PutQuestions(ctx, seeded); err != nil {
			return Report{}, fmt.Errorf("seed questions: %w", err)
		}
		return Report{Inserted: len(seeded)}, nil
	}

	var defs, cached []domain.Question
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if defs, err = src.Definitions(gctx); err != nil {
			return fmt.Errorf("load definitions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if cached, err = backend.AllQuestions(gctx); err != nil {
			return fmt.Errorf("load cached questions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	plan := BuildPlan(defs, cached)
	if len(plan.Updates) > 0 {
		if err := backend.PutQuestions(ctx, plan.Updates); err != nil {
			return Report{}, fmt.Errorf("apply content updates: %w", err)
		}
	}
	if len(plan.Inserts) > 0 {
		if err := backend.PutQuestions(ctx, plan.Inserts); err != nil {
			return Report{}, fmt.Errorf("insert new questions: %w", err)
		}
	}
	return plan.Report, nil
}

func versionOf(q domain.Question) int {
	if q.QuestionVersion <= 0 {
		return 1
	}
	return q.QuestionVersion
}

// seedQuestion turns a definition into a cache record with zeroed statistics.
func seedQuestion(def domain.Question) domain.Question {
	q := withContent(domain.Question{}, def)
	q.ScoreIsCorrect = DefaultScoreIsCorrect
	q.ScoreIsWrong = DefaultScoreIsWrong
	q.ScoreIsSkip = DefaultScoreIsSkip
	return q
}

// withContent copies content fields of def onto cur.
func withContent(cur, def domain.Question) domain.Question {
	cur.ID = def.ID
	cur.Text = def.Text
	cur.Topic = def.Topic
	cur.Options = append([]string(nil), def.Options...)
	cur.CorrectAnswerIndex = def.CorrectAnswerIndex
	cur.Explanation = def.Explanation
	cur.Difficulty = def.Difficulty
	cur.PublicContest = def.PublicContest
	cur.QuestionVersion = versionOf(def)
	return cur
}

func contentDiffers(a, b domain.Question) bool {
	return a.Text != b.Text ||
		a.Topic != b.Topic ||
		!slices.Equal(a.Options, b.Options) ||
		a.CorrectAnswerIndex != b.CorrectAnswerIndex ||
		!equalPtr(a.Explanation, b.Explanation) ||
		!equalPtr(a.Difficulty, b.Difficulty) ||
		a.PublicContest != b.PublicContest
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
