package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// ContentLoader reads question definitions straight from the remote table.
// It implements cache.ContentSource when the remote store is the content
// authority. Statistics columns are ignored.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) Definitions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, question_text, topic, options, correct_answer_index,
		       explanation, difficulty, question_version, public_contest
		FROM questions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Text, &q.Topic, &raw, &q.CorrectAnswerIndex,
			&q.Explanation, &q.Difficulty, &q.QuestionVersion, &q.PublicContest); err != nil {
			return nil, fmt.Errorf("scan definition: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load definitions: %w", err)
	}
	return out, nil
}
