package remote

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Column names shared by the query layer, the mapper and the adapters.
const (
	ColID                 = "id"
	ColText               = "question_text"
	ColTopic              = "topic"
	ColOptions            = "options"
	ColCorrectAnswerIndex = "correct_answer_index"
	ColExplanation        = "explanation"
	ColDifficulty         = "difficulty"
	ColScoreIsCorrect     = "score_is_correct"
	ColScoreIsWrong       = "score_is_wrong"
	ColScoreIsSkip        = "score_is_skip"
	ColTimesCorrect       = "times_correct"
	ColTimesIncorrect     = "times_incorrect"
	ColIsFavorite         = "is_favorite"
	ColLastAnsweredAt     = "last_answered_at"
	ColLastAnswerCorrect  = "last_answer_correct"
	ColAccuracy           = "accuracy"
	ColQuestionVersion    = "question_version"
	ColPublicContest      = "public_contest"

	ColTimestampStart      = "timestamp_start"
	ColTimestampEnd        = "timestamp_end"
	ColSettings            = "settings"
	ColScore               = "score"
	ColTotalQuestions      = "total_questions_in_quiz"
	ColAnsweredQuestions   = "answered_questions"
	ColUnansweredQuestions = "unanswered_questions"
	ColAllQuestions        = "all_questions"
	ColStatus              = "status"
)

// QuestionRow is a row of the remote questions table.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID                 string   `bun:"id,pk" json:"id"`
	Text               string   `bun:"question_text,notnull" json:"question_text"`
	Topic              string   `bun:"topic" json:"topic"`
	Options            []string `bun:"options,type:jsonb" json:"options"`
	CorrectAnswerIndex int      `bun:"correct_answer_index" json:"correct_answer_index"`
	Explanation        *string  `bun:"explanation" json:"explanation"`
	Difficulty         *string  `bun:"difficulty" json:"difficulty"`

	ScoreIsCorrect float64 `bun:"score_is_correct" json:"score_is_correct"`
	ScoreIsWrong   float64 `bun:"score_is_wrong" json:"score_is_wrong"`
	ScoreIsSkip    float64 `bun:"score_is_skip" json:"score_is_skip"`

	TimesCorrect      int        `bun:"times_correct" json:"times_correct"`
	TimesIncorrect    int        `bun:"times_incorrect" json:"times_incorrect"`
	IsFavorite        int        `bun:"is_favorite" json:"is_favorite"`
	LastAnsweredAt    *time.Time `bun:"last_answered_at" json:"last_answered_at"`
	LastAnswerCorrect *bool      `bun:"last_answer_correct" json:"last_answer_correct"`
	Accuracy          *float64   `bun:"accuracy" json:"accuracy"`

	QuestionVersion int    `bun:"question_version" json:"question_version"`
	PublicContest   string `bun:"public_contest" json:"public_contest"`
}

// RowID implements Row.
func (r QuestionRow) RowID() string { return r.ID }

// Column implements Row.
func (r QuestionRow) Column(name string) any {
	switch name {
	case ColID:
		return r.ID
	case ColText:
		return r.Text
	case ColTopic:
		return r.Topic
	case ColOptions:
		return r.Options
	case ColCorrectAnswerIndex:
		return r.CorrectAnswerIndex
	case ColExplanation:
		return r.Explanation
	case ColDifficulty:
		return r.Difficulty
	case ColScoreIsCorrect:
		return r.ScoreIsCorrect
	case ColScoreIsWrong:
		return r.ScoreIsWrong
	case ColScoreIsSkip:
		return r.ScoreIsSkip
	case ColTimesCorrect:
		return r.TimesCorrect
	case ColTimesIncorrect:
		return r.TimesIncorrect
	case ColIsFavorite:
		return r.IsFavorite
	case ColLastAnsweredAt:
		return r.LastAnsweredAt
	case ColLastAnswerCorrect:
		return r.LastAnswerCorrect
	case ColAccuracy:
		return r.Accuracy
	case ColQuestionVersion:
		return r.QuestionVersion
	case ColPublicContest:
		return r.PublicContest
	}
	return nil
}

// AttemptRow is a row of the remote quiz_attempts table. Question lists and
// settings are stored as jsonb documents.
type AttemptRow struct {
	bun.BaseModel `bun:"table:quiz_attempts,alias:a"`

	ID                   string          `bun:"id,pk" json:"id"`
	PublicContest        string          `bun:"public_contest" json:"public_contest"`
	TimestampStart       time.Time       `bun:"timestamp_start,notnull" json:"timestamp_start"`
	TimestampEnd         *time.Time      `bun:"timestamp_end" json:"timestamp_end"`
	Settings             json.RawMessage `bun:"settings,type:jsonb" json:"settings"`
	Score                *float64        `bun:"score" json:"score"`
	TotalQuestionsInQuiz int             `bun:"total_questions_in_quiz" json:"total_questions_in_quiz"`
	AnsweredQuestions    json.RawMessage `bun:"answered_questions,type:jsonb" json:"answered_questions"`
	UnansweredQuestions  json.RawMessage `bun:"unanswered_questions,type:jsonb" json:"unanswered_questions"`
	AllQuestions         json.RawMessage `bun:"all_questions,type:jsonb" json:"all_questions"`
	Status               string          `bun:"status" json:"status"`
}

// RowID implements Row.
func (r AttemptRow) RowID() string { return r.ID }

// Column implements Row.
func (r AttemptRow) Column(name string) any {
	switch name {
	case ColID:
		return r.ID
	case ColPublicContest:
		return r.PublicContest
	case ColTimestampStart:
		return r.TimestampStart
	case ColTimestampEnd:
		return r.TimestampEnd
	case ColSettings:
		return r.Settings
	case ColScore:
		return r.Score
	case ColTotalQuestions:
		return r.TotalQuestionsInQuiz
	case ColAnsweredQuestions:
		return r.AnsweredQuestions
	case ColUnansweredQuestions:
		return r.UnansweredQuestions
	case ColAllQuestions:
		return r.AllQuestions
	case ColStatus:
		return r.Status
	}
	return nil
}

// Row is implemented by every remote record type.
type Row interface {
	RowID() string
	Column(name string) any
}
