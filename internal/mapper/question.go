// Package mapper translates between remote rows and domain entities.
package mapper

import (
	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// QuestionToRow converts a full question to its remote shape.
func QuestionToRow(q domain.Question) remote.QuestionRow {
	return remote.QuestionRow{
		ID:                 q.ID,
		Text:               q.Text,
		Topic:              q.Topic,
		Options:            append([]string(nil), q.Options...),
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		Explanation:        q.Explanation,
		Difficulty:         q.Difficulty,
		ScoreIsCorrect:     q.ScoreIsCorrect,
		ScoreIsWrong:       q.ScoreIsWrong,
		ScoreIsSkip:        q.ScoreIsSkip,
		TimesCorrect:       q.TimesCorrect,
		TimesIncorrect:     q.TimesIncorrect,
		IsFavorite:         q.IsFavorite,
		LastAnsweredAt:     q.LastAnsweredTimestamp,
		LastAnswerCorrect:  q.LastAnswerCorrect,
		Accuracy:           q.Accuracy,
		QuestionVersion:    q.QuestionVersion,
		PublicContest:      q.PublicContest,
	}
}

// QuestionsToRows converts a batch.
func QuestionsToRows(qs []domain.Question) []remote.QuestionRow {
	rows := make([]remote.QuestionRow, len(qs))
	for i, q := range qs {
		rows[i] = QuestionToRow(q)
	}
	return rows
}

// QuestionFromRow converts a remote row; ok is false for a nil row.
func QuestionFromRow(r *remote.QuestionRow) (domain.Question, bool) {
	if r == nil {
		return domain.Question{}, false
	}
	return domain.Question{
		ID:                    r.ID,
		Text:                  r.Text,
		Topic:                 r.Topic,
		Options:               append([]string(nil), r.Options...),
		CorrectAnswerIndex:    r.CorrectAnswerIndex,
		Explanation:           r.Explanation,
		Difficulty:            r.Difficulty,
		ScoreIsCorrect:        r.ScoreIsCorrect,
		ScoreIsWrong:          r.ScoreIsWrong,
		ScoreIsSkip:           r.ScoreIsSkip,
		TimesCorrect:          r.TimesCorrect,
		TimesIncorrect:        r.TimesIncorrect,
		IsFavorite:            r.IsFavorite,
		LastAnsweredTimestamp: r.LastAnsweredAt,
		LastAnswerCorrect:     r.LastAnswerCorrect,
		Accuracy:              r.Accuracy,
		QuestionVersion:       r.QuestionVersion,
		PublicContest:         r.PublicContest,
	}, true
}

// Question adapts QuestionFromRow to the value-row shape used by query results.
func Question(r remote.QuestionRow) (domain.Question, bool) {
	return QuestionFromRow(&r)
}

// QuestionPatchColumns returns only the columns set in p, keyed by remote name.
func QuestionPatchColumns(p domain.QuestionPatch) map[string]any {
	cols := make(map[string]any)
	if p.Text != nil {
		cols[remote.ColText] = *p.Text
	}
	if p.Topic != nil {
		cols[remote.ColTopic] = *p.Topic
	}
	if p.Options != nil {
		cols[remote.ColOptions] = append([]string(nil), p.Options...)
	}
	if p.CorrectAnswerIndex != nil {
		cols[remote.ColCorrectAnswerIndex] = *p.CorrectAnswerIndex
	}
	if p.Explanation != nil {
		cols[remote.ColExplanation] = *p.Explanation
	}
	if p.Difficulty != nil {
		cols[remote.ColDifficulty] = *p.Difficulty
	}
	if p.ScoreIsCorrect != nil {
		cols[remote.ColScoreIsCorrect] = *p.ScoreIsCorrect
	}
	if p.ScoreIsWrong != nil {
		cols[remote.ColScoreIsWrong] = *p.ScoreIsWrong
	}
	if p.ScoreIsSkip != nil {
		cols[remote.ColScoreIsSkip] = *p.ScoreIsSkip
	}
	if p.TimesCorrect != nil {
		cols[remote.ColTimesCorrect] = *p.TimesCorrect
	}
	if p.TimesIncorrect != nil {
		cols[remote.ColTimesIncorrect] = *p.TimesIncorrect
	}
	if p.IsFavorite != nil {
		cols[remote.ColIsFavorite] = *p.IsFavorite
	}
	if p.LastAnsweredTimestamp != nil {
		cols[remote.ColLastAnsweredAt] = *p.LastAnsweredTimestamp
	}
	if p.LastAnswerCorrect != nil {
		cols[remote.ColLastAnswerCorrect] = *p.LastAnswerCorrect
	}
	if p.Accuracy != nil {
		cols[remote.ColAccuracy] = *p.Accuracy
	}
	if p.QuestionVersion != nil {
		cols[remote.ColQuestionVersion] = *p.QuestionVersion
	}
	if p.PublicContest != nil {
		cols[remote.ColPublicContest] = *p.PublicContest
	}
	return cols
}
