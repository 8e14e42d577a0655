package mapper

import (
	"encoding/json"
	"time"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// snapshotDoc is the jsonb shape of an answered-question snapshot.
type snapshotDoc struct {
	QuestionID          string     `json:"question_id"`
	Text                string     `json:"question_text"`
	Topic               string     `json:"topic"`
	Options             []string   `json:"options"`
	CorrectAnswerIndex  int        `json:"correct_answer_index"`
	Explanation         *string    `json:"explanation,omitempty"`
	IsFavorite          int        `json:"is_favorite"`
	SelectedAnswerIndex *int       `json:"selected_answer_index,omitempty"`
	IsCorrect           bool       `json:"is_correct"`
	AnsweredAt          *time.Time `json:"answered_at,omitempty"`
}

type settingsDoc struct {
	Topics               []string `json:"topics,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	QuestionCount        int      `json:"question_count"`
	TimerEnabled         bool     `json:"timer_enabled"`
	TimerDurationSeconds int      `json:"timer_duration_seconds,omitempty"`
	CronometerEnabled    bool     `json:"cronometer_enabled"`
	FixedQuestionIDs     []string `json:"fixed_question_ids,omitempty"`
}

// AttemptToRow converts a full attempt to its remote shape.
func AttemptToRow(a domain.QuizAttempt) remote.AttemptRow {
	return remote.AttemptRow{
		ID:                   a.ID,
		PublicContest:        a.PublicContest,
		TimestampStart:       a.TimestampStart,
		TimestampEnd:         a.TimestampEnd,
		Settings:             encodeSettings(a.Settings),
		Score:                a.Score,
		TotalQuestionsInQuiz: a.TotalQuestionsInQuiz,
		AnsweredQuestions:    encodeSnapshots(a.AnsweredQuestions),
		UnansweredQuestions:  encodeSnapshots(a.UnansweredQuestions),
		AllQuestions:         encodeSnapshots(a.AllQuestions),
		Status:               string(a.Status),
	}
}

// AttemptFromRow converts a remote row; ok is false for a nil row. Broken
// jsonb documents decode to empty lists.
func AttemptFromRow(r *remote.AttemptRow) (domain.QuizAttempt, bool) {
	if r == nil {
		return domain.QuizAttempt{}, false
	}
	return domain.QuizAttempt{
		ID:                   r.ID,
		PublicContest:        r.PublicContest,
		TimestampStart:       r.TimestampStart,
		TimestampEnd:         r.TimestampEnd,
		Settings:             decodeSettings(r.Settings),
		Score:                r.Score,
		TotalQuestionsInQuiz: r.TotalQuestionsInQuiz,
		AnsweredQuestions:    decodeSnapshots(r.AnsweredQuestions),
		UnansweredQuestions:  decodeSnapshots(r.UnansweredQuestions),
		AllQuestions:         decodeSnapshots(r.AllQuestions),
		Status:               domain.AttemptStatus(r.Status),
	}, true
}

// Attempt adapts AttemptFromRow to value rows.
func Attempt(r remote.AttemptRow) (domain.QuizAttempt, bool) {
	return AttemptFromRow(&r)
}

// AttemptPatchColumns returns only the columns set in p.
func AttemptPatchColumns(p domain.AttemptPatch) map[string]any {
	cols := make(map[string]any)
	if p.TimestampEnd != nil {
		cols[remote.ColTimestampEnd] = *p.TimestampEnd
	}
	if p.Settings != nil {
		cols[remote.ColSettings] = encodeSettings(*p.Settings)
	}
	if p.Score != nil {
		cols[remote.ColScore] = *p.Score
	}
	if p.TotalQuestionsInQuiz != nil {
		cols[remote.ColTotalQuestions] = *p.TotalQuestionsInQuiz
	}
	if p.AnsweredQuestions != nil {
		cols[remote.ColAnsweredQuestions] = encodeSnapshots(p.AnsweredQuestions)
	}
	if p.UnansweredQuestions != nil {
		cols[remote.ColUnansweredQuestions] = encodeSnapshots(p.UnansweredQuestions)
	}
	if p.AllQuestions != nil {
		cols[remote.ColAllQuestions] = encodeSnapshots(p.AllQuestions)
	}
	if p.Status != nil {
		cols[remote.ColStatus] = string(*p.Status)
	}
	return cols
}

func encodeSnapshots(list []domain.AnsweredQuestion) json.RawMessage {
	docs := make([]snapshotDoc, len(list))
	for i, s := range list {
		docs[i] = snapshotDoc{
			QuestionID:          s.QuestionID,
			Text:                s.Text,
			Topic:               s.Topic,
			Options:             s.Options,
			CorrectAnswerIndex:  s.CorrectAnswerIndex,
			Explanation:         s.Explanation,
			IsFavorite:          s.IsFavorite,
			SelectedAnswerIndex: s.SelectedAnswerIndex,
			IsCorrect:           s.IsCorrect,
			AnsweredAt:          s.AnsweredAt,
		}
	}
	raw, _ := json.Marshal(docs)
	return raw
}

func decodeSnapshots(raw json.RawMessage) []domain.AnsweredQuestion {
	var docs []snapshotDoc
	if len(raw) == 0 || json.Unmarshal(raw, &docs) != nil {
		return []domain.AnsweredQuestion{}
	}
	list := make([]domain.AnsweredQuestion, len(docs))
	for i, d := range docs {
		list[i] = domain.AnsweredQuestion{
			QuestionID:          d.QuestionID,
			Text:                d.Text,
			Topic:               d.Topic,
			Options:             d.Options,
			CorrectAnswerIndex:  d.CorrectAnswerIndex,
			Explanation:         d.Explanation,
			IsFavorite:          d.IsFavorite,
			SelectedAnswerIndex: d.SelectedAnswerIndex,
			IsCorrect:           d.IsCorrect,
			AnsweredAt:          d.AnsweredAt,
		}
	}
	return list
}

func encodeSettings(s domain.AttemptSettings) json.RawMessage {
	raw, _ := json.Marshal(settingsDoc(s))
	return raw
}

func decodeSettings(raw json.RawMessage) domain.AttemptSettings {
	var doc settingsDoc
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &doc)
	}
	return domain.AttemptSettings(doc)
}
