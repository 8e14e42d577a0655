package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	roster := []AnsweredQuestion{{QuestionID: "q1"}, {QuestionID: "q2"}}
	cases := []struct {
		name string
		a    QuizAttempt
		want error
	}{
		{"ok", QuizAttempt{ID: "a", Status: StatusCompleted, AllQuestions: roster,
			AnsweredQuestions: roster[:1], UnansweredQuestions: []AnsweredQuestion{{}, {QuestionID: "q2"}}}, nil},
		{"missing id", QuizAttempt{Status: StatusPaused}, ErrInvalidAttempt},
		{"bad status", QuizAttempt{ID: "a", Status: "done"}, ErrInvalidStatus},
		{"answered outside roster", QuizAttempt{ID: "a", Status: StatusPaused, AllQuestions: roster,
			AnsweredQuestions: []AnsweredQuestion{{QuestionID: "q9"}}}, ErrRosterMismatch},
		{"in both lists", QuizAttempt{ID: "a", Status: StatusPaused, AllQuestions: roster,
			AnsweredQuestions: roster[:1], UnansweredQuestions: roster[:1]}, ErrRosterMismatch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.a.Validate(), tc.want)
		})
	}
}

func TestQuestionPatchApply(t *testing.T) {
	q := Question{ID: "q1", Text: "old", TimesCorrect: 3, Options: []string{"a"}}
	text := "new"
	fav := 1
	got := QuestionPatch{Text: &text, IsFavorite: &fav, Options: []string{"x", "y"}}.Apply(q)

	assert.Equal(t, "new", got.Text)
	assert.Equal(t, 1, got.IsFavorite)
	assert.Equal(t, 3, got.TimesCorrect)
	assert.Equal(t, []string{"x", "y"}, got.Options)
	assert.Equal(t, []string{"a"}, q.Options)
}

func TestComputeAccuracy(t *testing.T) {
	assert.Nil(t, ComputeAccuracy(0, 0))
	assert.Equal(t, 50.0, *ComputeAccuracy(2, 2))
	assert.Equal(t, 33.33, *ComputeAccuracy(1, 2))
	assert.Equal(t, 66.67, *ComputeAccuracy(2, 1))
	assert.Equal(t, 100.0, *ComputeAccuracy(5, 0))
}

func TestStatusAndEndedAt(t *testing.T) {
	assert.True(t, StatusTimedOut.Finished())
	assert.False(t, StatusPaused.Finished())

	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	end := now.Add(-time.Hour)
	assert.Equal(t, now, QuizAttempt{}.EndedAt(now))
	assert.Equal(t, end, QuizAttempt{TimestampEnd: &end}.EndedAt(now))
	assert.NotEqual(t, NewAttemptID(), NewAttemptID())
}
