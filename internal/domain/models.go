package domain

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus is the lifecycle state of a quiz attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "in-progress"
	StatusPaused     AttemptStatus = "paused"
	StatusCompleted  AttemptStatus = "completed"
	StatusTimedOut   AttemptStatus = "timed-out"
)

// Valid reports whether s is one of the known statuses.
func (s AttemptStatus) Valid() bool {
	switch s {
	case StatusInProgress, StatusPaused, StatusCompleted, StatusTimedOut:
		return true
	}
	return false
}

// Finished reports whether the attempt can no longer be resumed.
func (s AttemptStatus) Finished() bool {
	return s == StatusCompleted || s == StatusTimedOut
}

// Question is a bank question together with the user's lifetime statistics on it.
type Question struct {
	ID                 string   `json:"id"`
	Text               string   `json:"text"`
	Topic              string   `json:"topic"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        *string  `json:"explanation,omitempty"`
	Difficulty         *string  `json:"difficulty,omitempty"`

	ScoreIsCorrect float64 `json:"scoreIsCorrect"`
	ScoreIsWrong   float64 `json:"scoreIsWrong"`
	ScoreIsSkip    float64 `json:"scoreIsSkip"`

	TimesCorrect          int        `json:"timesCorrect"`
	TimesIncorrect        int        `json:"timesIncorrect"`
	IsFavorite            int        `json:"isFavorite"` // 0 or 1
	LastAnsweredTimestamp *time.Time `json:"lastAnsweredTimestamp,omitempty"`
	LastAnswerCorrect     *bool      `json:"lastAnswerCorrect,omitempty"`
	Accuracy              *float64   `json:"accuracy,omitempty"`

	QuestionVersion int    `json:"questionVersion"`
	PublicContest   string `json:"publicContest"`
}

// Answered reports whether the question has ever been answered.
func (q Question) Answered() bool {
	return q.TimesCorrect+q.TimesIncorrect > 0
}

// QuestionPatch carries a partial question update; nil fields are left untouched.
type QuestionPatch struct {
	Text               *string
	Topic              *string
	Options            []string
	CorrectAnswerIndex *int
	Explanation        *string
	Difficulty         *string

	ScoreIsCorrect *float64
	ScoreIsWrong   *float64
	ScoreIsSkip    *float64

	TimesCorrect          *int
	TimesIncorrect        *int
	IsFavorite            *int
	LastAnsweredTimestamp *time.Time
	LastAnswerCorrect     *bool
	Accuracy              *float64

	QuestionVersion *int
	PublicContest   *string
}

// Apply returns q with every non-nil field of p applied.
func (p QuestionPatch) Apply(q Question) Question {
	if p.Text != nil {
		q.Text = *p.Text
	}
	if p.Topic != nil {
		q.Topic = *p.Topic
	}
	if p.Options != nil {
		q.Options = append([]string(nil), p.Options...)
	}
	if p.CorrectAnswerIndex != nil {
		q.CorrectAnswerIndex = *p.CorrectAnswerIndex
	}
	if p.Explanation != nil {
		q.Explanation = p.Explanation
	}
	if p.Difficulty != nil {
		q.Difficulty = p.Difficulty
	}
	if p.ScoreIsCorrect != nil {
		q.ScoreIsCorrect = *p.ScoreIsCorrect
	}
	if p.ScoreIsWrong != nil {
		q.ScoreIsWrong = *p.ScoreIsWrong
	}
	if p.ScoreIsSkip != nil {
		q.ScoreIsSkip = *p.ScoreIsSkip
	}
	if p.TimesCorrect != nil {
		q.TimesCorrect = *p.TimesCorrect
	}
	if p.TimesIncorrect != nil {
		q.TimesIncorrect = *p.TimesIncorrect
	}
	if p.IsFavorite != nil {
		q.IsFavorite = *p.IsFavorite
	}
	if p.LastAnsweredTimestamp != nil {
		q.LastAnsweredTimestamp = p.LastAnsweredTimestamp
	}
	if p.LastAnswerCorrect != nil {
		q.LastAnswerCorrect = p.LastAnswerCorrect
	}
	if p.Accuracy != nil {
		q.Accuracy = p.Accuracy
	}
	if p.QuestionVersion != nil {
		q.QuestionVersion = *p.QuestionVersion
	}
	if p.PublicContest != nil {
		q.PublicContest = *p.PublicContest
	}
	return q
}

// AnsweredQuestion is a snapshot of a question as it was presented inside an
// attempt. It never changes when the live question is edited.
type AnsweredQuestion struct {
	QuestionID         string   `json:"questionId"`
	Text               string   `json:"text"`
	Topic              string   `json:"topic"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        *string  `json:"explanation,omitempty"`
	IsFavorite         int      `json:"isFavorite"`

	SelectedAnswerIndex *int       `json:"selectedAnswerIndex,omitempty"`
	IsCorrect           bool       `json:"isCorrect"`
	AnsweredAt          *time.Time `json:"answeredAt,omitempty"`
}

// SnapshotOf copies the display content of q.
func SnapshotOf(q Question) AnsweredQuestion {
	return AnsweredQuestion{
		QuestionID:         q.ID,
		Text:               q.Text,
		Topic:              q.Topic,
		Options:            append([]string(nil), q.Options...),
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		Explanation:        q.Explanation,
		IsFavorite:         q.IsFavorite,
	}
}

// AttemptSettings are the filters a quiz was started with.
type AttemptSettings struct {
	Topics               []string `json:"topics,omitempty"`
	Keywords             []string `json:"keywords,omitempty"`
	QuestionCount        int      `json:"questionCount"`
	TimerEnabled         bool     `json:"timerEnabled"`
	TimerDurationSeconds int      `json:"timerDurationSeconds,omitempty"`
	CronometerEnabled    bool     `json:"cronometerEnabled"`
	FixedQuestionIDs     []string `json:"fixedQuestionIds,omitempty"`
}

// QuizAttempt is one run of a quiz by the user.
type QuizAttempt struct {
	ID                   string             `json:"id"`
	PublicContest        string             `json:"publicContest"`
	TimestampStart       time.Time          `json:"timestampStart"`
	TimestampEnd         *time.Time         `json:"timestampEnd,omitempty"`
	Settings             AttemptSettings    `json:"settings"`
	Score                *float64           `json:"score,omitempty"`
	TotalQuestionsInQuiz int                `json:"totalQuestionsInQuiz"`
	AnsweredQuestions    []AnsweredQuestion `json:"answeredQuestions"`
	UnansweredQuestions  []AnsweredQuestion `json:"unansweredQuestions"`
	AllQuestions         []AnsweredQuestion `json:"allQuestions"`
	Status               AttemptStatus      `json:"status"`
}

// NewAttemptID returns a fresh attempt identifier.
func NewAttemptID() string {
	return uuid.NewString()
}

// Validate checks the roster invariants of the attempt.
func (a QuizAttempt) Validate() error {
	if a.ID == "" {
		return ErrInvalidAttempt
	}
	if !a.Status.Valid() {
		return ErrInvalidStatus
	}
	roster := make(map[string]struct{}, len(a.AllQuestions))
	for _, q := range a.AllQuestions {
		roster[q.QuestionID] = struct{}{}
	}
	answered := make(map[string]struct{}, len(a.AnsweredQuestions))
	for _, q := range a.AnsweredQuestions {
		if _, ok := roster[q.QuestionID]; !ok {
			return ErrRosterMismatch
		}
		answered[q.QuestionID] = struct{}{}
	}
	for _, q := range a.UnansweredQuestions {
		if q.QuestionID == "" {
			continue
		}
		if _, ok := roster[q.QuestionID]; !ok {
			return ErrRosterMismatch
		}
		if _, dup := answered[q.QuestionID]; dup {
			return ErrRosterMismatch
		}
	}
	return nil
}

// EndedAt returns the end timestamp, or now when the attempt is still open.
func (a QuizAttempt) EndedAt(now time.Time) time.Time {
	if a.TimestampEnd != nil {
		return *a.TimestampEnd
	}
	return now
}

// AttemptPatch carries a partial attempt update.
type AttemptPatch struct {
	TimestampEnd         *time.Time
	Settings             *AttemptSettings
	Score                *float64
	TotalQuestionsInQuiz *int
	AnsweredQuestions    []AnsweredQuestion
	UnansweredQuestions  []AnsweredQuestion
	AllQuestions         []AnsweredQuestion
	Status               *AttemptStatus
}

// AnswerOutcome is one recorded answer fed to the stats updater.
type AnswerOutcome struct {
	QuestionID string
	Correct    bool
	AnsweredAt time.Time
}
