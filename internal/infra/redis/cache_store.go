package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

// CacheStore implements cache.Backend on Redis. Entities are JSON documents;
// secondary indexes are sets (contest, topic, favorite, status) and sorted
// sets scored by unix milliseconds (last answered, attempt start).
//
//	cache:question:{id}                         JSON
//	cache:questions                             SET of ids
//	cache:questions:contest:{contest}           SET
//	cache:questions:topic:{contest}:{topic}     SET
//	cache:questions:favorite:{contest}          SET
//	cache:questions:answered                    ZSET last_answered ms
//	cache:attempt:{id}                          JSON
//	cache:attempts                              ZSET start ms
//	cache:attempts:status:{status}              SET
//	cache:schema_version                        INT
type CacheStore struct {
	client *redis.Client
	prefix string
}

func NewCacheStore(client *redis.Client, prefix string) *CacheStore {
	if prefix == "" {
		prefix = "cache"
	}
	return &CacheStore{client: client, prefix: prefix}
}

func (s *CacheStore) questionKey(id string) string { return s.prefix + ":question:" + id }
func (s *CacheStore) questionsKey() string         { return s.prefix + ":questions" }
func (s *CacheStore) contestKey(c string) string   { return s.prefix + ":questions:contest:" + c }
func (s *CacheStore) topicKey(c, topic string) string {
	return s.prefix + ":questions:topic:" + c + ":" + topic
}
func (s *CacheStore) favoriteKey(c string) string { return s.prefix + ":questions:favorite:" + c }
func (s *CacheStore) answeredKey() string         { return s.prefix + ":questions:answered" }
func (s *CacheStore) attemptKey(id string) string { return s.prefix + ":attempt:" + id }
func (s *CacheStore) attemptsKey() string         { return s.prefix + ":attempts" }
func (s *CacheStore) statusKey(st domain.AttemptStatus) string {
	return s.prefix + ":attempts:status:" + string(st)
}
func (s *CacheStore) versionKey() string { return s.prefix + ":schema_version" }

func (s *CacheStore) GetQuestion(ctx context.Context, id string) (domain.Question, bool, error) {
	var q domain.Question
	ok, err := s.getDoc(ctx, s.questionKey(id), &q)
	return q, ok, err
}

func (s *CacheStore) GetQuestions(ctx context.Context, ids []string) ([]domain.Question, error) {
	docs, err := s.mget(ctx, ids, s.questionKey)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Question, 0, len(docs))
	for _, raw := range docs {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("decode cached question: %w", err)
		}
		out = append(out, q)
	}
	return out, nil
}

func (s *CacheStore) AllQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questionsInSet(ctx, s.questionsKey())
}

func (s *CacheStore) QuestionsByContest(ctx context.Context, contest string) ([]domain.Question, error) {
	return s.questionsInSet(ctx, s.contestKey(contest))
}

func (s *CacheStore) QuestionsByTopic(ctx context.Context, contest, topic string) ([]domain.Question, error) {
	return s.questionsInSet(ctx, s.topicKey(contest, topic))
}

func (s *CacheStore) FavoriteQuestions(ctx context.Context, contest string) ([]domain.Question, error) {
	return s.questionsInSet(ctx, s.favoriteKey(contest))
}

func (s *CacheStore) QuestionsAnsweredBetween(ctx context.Context, start, end time.Time) ([]domain.Question, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.answeredKey(), scoreRange(start, end)).Result()
	if err != nil {
		return nil, err
	}
	qs, err := s.GetQuestions(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := qs[:0]
	for _, q := range qs {
		if q.LastAnsweredTimestamp != nil && within(*q.LastAnsweredTimestamp, start, end) {
			out = append(out, q)
		}
	}
	sortQuestions(out)
	return out, nil
}

func (s *CacheStore) PutQuestions(ctx context.Context, qs []domain.Question) error {
	if len(qs) == 0 {
		return nil
	}
	ids := make([]string, len(qs))
	for i, q := range qs {
		ids[i] = q.ID
	}
	previous, err := s.GetQuestions(ctx, ids)
	if err != nil {
		return err
	}
	old := make(map[string]domain.Question, len(previous))
	for _, q := range previous {
		old[q.ID] = q
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range qs {
			data, err := json.Marshal(q)
			if err != nil {
				return err
			}
			if prev, ok := old[q.ID]; ok {
				s.unindexQuestion(ctx, pipe, prev)
			}
			pipe.Set(ctx, s.questionKey(q.ID), data, 0)
			s.indexQuestion(ctx, pipe, q)
		}
		return nil
	})
	return err
}

func (s *CacheStore) DeleteQuestions(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	previous, err := s.GetQuestions(ctx, ids)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range previous {
			s.unindexQuestion(ctx, pipe, q)
		}
		for _, id := range ids {
			pipe.Del(ctx, s.questionKey(id))
			pipe.SRem(ctx, s.questionsKey(), id)
		}
		return nil
	})
	return err
}

func (s *CacheStore) indexQuestion(ctx context.Context, pipe redis.Pipeliner, q domain.Question) {
	pipe.SAdd(ctx, s.questionsKey(), q.ID)
	pipe.SAdd(ctx, s.contestKey(q.PublicContest), q.ID)
	pipe.SAdd(ctx, s.topicKey(q.PublicContest, q.Topic), q.ID)
	if q.IsFavorite == 1 {
		pipe.SAdd(ctx, s.favoriteKey(q.PublicContest), q.ID)
	}
	if q.LastAnsweredTimestamp != nil {
		pipe.ZAdd(ctx, s.answeredKey(), redis.Z{Score: score(*q.LastAnsweredTimestamp), Member: q.ID})
	}
}

func (s *CacheStore) unindexQuestion(ctx context.Context, pipe redis.Pipeliner, q domain.Question) {
	pipe.SRem(ctx, s.contestKey(q.PublicContest), q.ID)
	pipe.SRem(ctx, s.topicKey(q.PublicContest, q.Topic), q.ID)
	pipe.SRem(ctx, s.favoriteKey(q.PublicContest), q.ID)
	pipe.ZRem(ctx, s.answeredKey(), q.ID)
}

func (s *CacheStore) GetAttempt(ctx context.Context, id string) (domain.QuizAttempt, bool, error) {
	var a domain.QuizAttempt
	ok, err := s.getDoc(ctx, s.attemptKey(id), &a)
	return a, ok, err
}

func (s *CacheStore) GetAttempts(ctx context.Context, ids []string) ([]domain.QuizAttempt, error) {
	docs, err := s.mget(ctx, ids, s.attemptKey)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizAttempt, 0, len(docs))
	for _, raw := range docs {
		var a domain.QuizAttempt
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return nil, fmt.Errorf("decode cached attempt: %w", err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *CacheStore) AttemptsByStatus(ctx context.Context, status domain.AttemptStatus) ([]domain.QuizAttempt, error) {
	ids, err := s.client.SMembers(ctx, s.statusKey(status)).Result()
	if err != nil {
		return nil, err
	}
	as, err := s.GetAttempts(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortAttempts(as)
	return as, nil
}

func (s *CacheStore) AttemptsStartedBetween(ctx context.Context, start, end time.Time) ([]domain.QuizAttempt, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.attemptsKey(), scoreRange(start, end)).Result()
	if err != nil {
		return nil, err
	}
	as, err := s.GetAttempts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := as[:0]
	for _, a := range as {
		if within(a.TimestampStart, start, end) {
			out = append(out, a)
		}
	}
	sortAttempts(out)
	return out, nil
}

// ListAttempts pages newest first. Equal start times are ordered by id
// ascending, while ZREVRANGE breaks score ties by member descending, so the
// page is re-cut from the whole score band it spans.
func (s *CacheStore) ListAttempts(ctx context.Context, limit, offset int) ([]domain.QuizAttempt, error) {
	if offset < 0 {
		offset = 0
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	page, err := s.client.ZRevRangeWithScores(ctx, s.attemptsKey(), int64(offset), stop).Result()
	if err != nil {
		return nil, err
	}
	if len(page) == 0 {
		return []domain.QuizAttempt{}, nil
	}
	hi, lo := formatScore(page[0].Score), formatScore(page[len(page)-1].Score)
	above, err := s.client.ZCount(ctx, s.attemptsKey(), "("+hi, "+inf").Result()
	if err != nil {
		return nil, err
	}
	band, err := s.client.ZRevRangeByScoreWithScores(ctx, s.attemptsKey(), &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(band, func(i, j int) bool {
		if band[i].Score != band[j].Score {
			return band[i].Score > band[j].Score
		}
		return band[i].Member.(string) < band[j].Member.(string)
	})

	from := offset - int(above)
	to := from + len(page)
	if from < 0 || to > len(band) {
		return nil, fmt.Errorf("attempt index changed while paging")
	}
	ids := make([]string, 0, len(page))
	for _, z := range band[from:to] {
		ids = append(ids, z.Member.(string))
	}
	return s.GetAttempts(ctx, ids)
}

func (s *CacheStore) PutAttempts(ctx context.Context, as []domain.QuizAttempt) error {
	if len(as) == 0 {
		return nil
	}
	ids := make([]string, len(as))
	for i, a := range as {
		ids[i] = a.ID
	}
	previous, err := s.GetAttempts(ctx, ids)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, prev := range previous {
			pipe.SRem(ctx, s.statusKey(prev.Status), prev.ID)
		}
		for _, a := range as {
			data, err := json.Marshal(a)
			if err != nil {
				return err
			}
			pipe.Set(ctx, s.attemptKey(a.ID), data, 0)
			pipe.ZAdd(ctx, s.attemptsKey(), redis.Z{Score: score(a.TimestampStart), Member: a.ID})
			pipe.SAdd(ctx, s.statusKey(a.Status), a.ID)
		}
		return nil
	})
	return err
}

func (s *CacheStore) DeleteAttempts(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	previous, err := s.GetAttempts(ctx, ids)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, prev := range previous {
			pipe.SRem(ctx, s.statusKey(prev.Status), prev.ID)
		}
		for _, id := range ids {
			pipe.Del(ctx, s.attemptKey(id))
			pipe.ZRem(ctx, s.attemptsKey(), id)
		}
		return nil
	})
	return err
}

func (s *CacheStore) SchemaVersion(ctx context.Context) (int, error) {
	v, err := s.client.Get(ctx, s.versionKey()).Int()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func (s *CacheStore) SetSchemaVersion(ctx context.Context, v int) error {
	return s.client.Set(ctx, s.versionKey(), v, 0).Err()
}

func (s *CacheStore) getDoc(ctx context.Context, key string, dest any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// mget returns the documents present for ids, skipping missing keys.
func (s *CacheStore) mget(ctx context.Context, ids []string, key func(string) string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	docs := make([]string, 0, len(vals))
	for _, v := range vals {
		if str, ok := v.(string); ok {
			docs = append(docs, str)
		}
	}
	return docs, nil
}

func (s *CacheStore) questionsInSet(ctx context.Context, key string) ([]domain.Question, error) {
	ids, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	qs, err := s.GetQuestions(ctx, ids)
	if err != nil {
		return nil, err
	}
	sortQuestions(qs)
	return qs, nil
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func scoreRange(start, end time.Time) *redis.ZRangeBy {
	return &redis.ZRangeBy{
		Min: strconv.FormatInt(start.UnixMilli(), 10),
		Max: strconv.FormatInt(end.UnixMilli(), 10),
	}
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

func sortQuestions(qs []domain.Question) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
}

func sortAttempts(as []domain.QuizAttempt) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].TimestampStart.Equal(as[j].TimestampStart) {
			return as[i].TimestampStart.Before(as[j].TimestampStart)
		}
		return as[i].ID < as[j].ID
	})
}
