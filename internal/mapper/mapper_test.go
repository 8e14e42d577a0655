package mapper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

func sampleQuestion() domain.Question {
	explanation := "Rome was the capital"
	difficulty := "easy"
	answeredAt := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	correct := true
	accuracy := 66.67
	return domain.Question{
		ID:                    "Q1",
		Text:                  "Capital of the Empire?",
		Topic:                 "history",
		Options:               []string{"Rome", "Milan", "Turin"},
		CorrectAnswerIndex:    0,
		Explanation:           &explanation,
		Difficulty:            &difficulty,
		ScoreIsCorrect:        1,
		ScoreIsWrong:          -0.33,
		TimesCorrect:          2,
		TimesIncorrect:        1,
		IsFavorite:            1,
		LastAnsweredTimestamp: &answeredAt,
		LastAnswerCorrect:     &correct,
		Accuracy:              &accuracy,
		QuestionVersion:       3,
		PublicContest:         "contest-a",
	}
}

func TestQuestionRoundTrip(t *testing.T) {
	q := sampleQuestion()
	back, ok := QuestionFromRow(ptr(QuestionToRow(q)))
	require.True(t, ok)
	assert.Equal(t, q, back)
}

func TestQuestionFromNilRow(t *testing.T) {
	_, ok := QuestionFromRow(nil)
	assert.False(t, ok)

	_, ok = AttemptFromRow(nil)
	assert.False(t, ok)
}

func TestQuestionPatchColumnsOnlyCopiesSetFields(t *testing.T) {
	text := "New text"
	correct := 4
	cols := QuestionPatchColumns(domain.QuestionPatch{Text: &text, TimesCorrect: &correct})

	assert.Equal(t, map[string]any{
		remote.ColText:         "New text",
		remote.ColTimesCorrect: 4,
	}, cols)
	assert.Empty(t, QuestionPatchColumns(domain.QuestionPatch{}))
}

func TestAttemptRoundTripKeepsSnapshots(t *testing.T) {
	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(20 * time.Minute)
	selected := 2
	q := sampleQuestion()
	answered := domain.SnapshotOf(q)
	answered.SelectedAnswerIndex = &selected
	answered.AnsweredAt = &end

	a := domain.QuizAttempt{
		ID:                   "A1",
		PublicContest:        "contest-a",
		TimestampStart:       start,
		TimestampEnd:         &end,
		Settings:             domain.AttemptSettings{Topics: []string{"history"}, QuestionCount: 1, TimerEnabled: true},
		TotalQuestionsInQuiz: 1,
		AnsweredQuestions:    []domain.AnsweredQuestion{answered},
		UnansweredQuestions:  []domain.AnsweredQuestion{},
		AllQuestions:         []domain.AnsweredQuestion{domain.SnapshotOf(q)},
		Status:               domain.StatusCompleted,
	}

	back, ok := AttemptFromRow(ptr(AttemptToRow(a)))
	require.True(t, ok)
	assert.Equal(t, a, back)
}

func TestAttemptPatchColumns(t *testing.T) {
	status := domain.StatusPaused
	cols := AttemptPatchColumns(domain.AttemptPatch{Status: &status})
	assert.Equal(t, map[string]any{remote.ColStatus: "paused"}, cols)
}

func TestMalformedAttemptDocumentsDecodeEmpty(t *testing.T) {
	row := remote.AttemptRow{ID: "A2", AllQuestions: []byte("{not json"), Status: "completed"}
	a, ok := AttemptFromRow(&row)
	require.True(t, ok)
	assert.Empty(t, a.AllQuestions)
	assert.Empty(t, a.AnsweredQuestions)
}

func ptr[T any](v T) *T { return &v }
