package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

func TestCacheStoreQuestionIndexes(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	answered := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	qs := []domain.Question{
		{ID: "q1", Topic: "history", PublicContest: "c1", IsFavorite: 1, LastAnsweredTimestamp: &answered},
		{ID: "q2", Topic: "math", PublicContest: "c1"},
		{ID: "q3", Topic: "history", PublicContest: "c2"},
	}
	if err := store.PutQuestions(ctx, qs); err != nil {
		t.Fatalf("put questions: %v", err)
	}

	byContest, err := store.QuestionsByContest(ctx, "c1")
	if err != nil {
		t.Fatalf("by contest: %v", err)
	}
	if len(byContest) != 2 || byContest[0].ID != "q1" || byContest[1].ID != "q2" {
		t.Fatalf("expected q1,q2 in c1, got %+v", byContest)
	}

	byTopic, _ := store.QuestionsByTopic(ctx, "c1", "history")
	if len(byTopic) != 1 || byTopic[0].ID != "q1" {
		t.Fatalf("expected q1 for c1/history, got %+v", byTopic)
	}

	favs, _ := store.FavoriteQuestions(ctx, "c1")
	if len(favs) != 1 || favs[0].ID != "q1" {
		t.Fatalf("expected favorite q1, got %+v", favs)
	}

	inWindow, _ := store.QuestionsAnsweredBetween(ctx, answered.Add(-time.Hour), answered)
	if len(inWindow) != 1 || inWindow[0].ID != "q1" {
		t.Fatalf("expected q1 answered in window, got %+v", inWindow)
	}
	outside, _ := store.QuestionsAnsweredBetween(ctx, answered.Add(time.Millisecond), answered.Add(time.Hour))
	if len(outside) != 0 {
		t.Fatalf("expected nothing after the answer, got %+v", outside)
	}
}

func TestCacheStoreReindexesOnUpsert(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	_ = store.PutQuestions(ctx, []domain.Question{{ID: "q1", Topic: "history", PublicContest: "c1", IsFavorite: 1}})
	_ = store.PutQuestions(ctx, []domain.Question{{ID: "q1", Topic: "math", PublicContest: "c1", IsFavorite: 0}})

	if got, _ := store.QuestionsByTopic(ctx, "c1", "history"); len(got) != 0 {
		t.Fatalf("expected stale topic index cleared, got %+v", got)
	}
	if got, _ := store.QuestionsByTopic(ctx, "c1", "math"); len(got) != 1 {
		t.Fatalf("expected q1 under math, got %+v", got)
	}
	if got, _ := store.FavoriteQuestions(ctx, "c1"); len(got) != 0 {
		t.Fatalf("expected favorite index cleared, got %+v", got)
	}

	if err := store.DeleteQuestions(ctx, []string{"q1"}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.GetQuestion(ctx, "q1"); ok {
		t.Fatalf("expected q1 deleted")
	}
	if all, _ := store.AllQuestions(ctx); len(all) != 0 {
		t.Fatalf("expected empty store, got %+v", all)
	}
}

func TestCacheStoreAttempts(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	attempts := []domain.QuizAttempt{
		{ID: "a1", TimestampStart: base, Status: domain.StatusCompleted},
		{ID: "a2", TimestampStart: base.Add(time.Hour), Status: domain.StatusPaused},
		{ID: "a3", TimestampStart: base.Add(48 * time.Hour), Status: domain.StatusInProgress},
	}
	if err := store.PutAttempts(ctx, attempts); err != nil {
		t.Fatalf("put attempts: %v", err)
	}

	paused, _ := store.AttemptsByStatus(ctx, domain.StatusPaused)
	if len(paused) != 1 || paused[0].ID != "a2" {
		t.Fatalf("expected a2 paused, got %+v", paused)
	}

	day, _ := store.AttemptsStartedBetween(ctx, base, base.Add(24*time.Hour-time.Nanosecond))
	if len(day) != 2 || day[0].ID != "a1" || day[1].ID != "a2" {
		t.Fatalf("expected a1,a2 on the day, got %+v", day)
	}

	recent, _ := store.ListAttempts(ctx, 2, 0)
	if len(recent) != 2 || recent[0].ID != "a3" || recent[1].ID != "a2" {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	attempts[1].Status = domain.StatusCompleted
	_ = store.PutAttempts(ctx, attempts[1:2])
	if paused, _ := store.AttemptsByStatus(ctx, domain.StatusPaused); len(paused) != 0 {
		t.Fatalf("expected paused index cleared, got %+v", paused)
	}

	_ = store.DeleteAttempts(ctx, []string{"a1"})
	if _, ok, _ := store.GetAttempt(ctx, "a1"); ok {
		t.Fatalf("expected a1 deleted")
	}
}

func TestCacheStoreSchemaVersion(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	if v, err := store.SchemaVersion(ctx); err != nil || v != 0 {
		t.Fatalf("expected version 0 on empty store, got %d (%v)", v, err)
	}
	if err := store.SetSchemaVersion(ctx, 3); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if !mr.Exists("cache:schema_version") {
		t.Fatalf("expected version key")
	}
	if v, _ := store.SchemaVersion(ctx); v != 3 {
		t.Fatalf("expected version 3, got %d", v)
	}
}

func newTestStore(t *testing.T) (*CacheStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	return NewCacheStore(newClient(mr), ""), mr
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestCacheStoreListAttemptsBreaksTiesByID(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestStore(t)
	defer mr.Close()

	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	if err := store.PutAttempts(ctx, []domain.QuizAttempt{
		{ID: "t3", TimestampStart: base, Status: domain.StatusCompleted},
		{ID: "t1", TimestampStart: base, Status: domain.StatusCompleted},
		{ID: "t2", TimestampStart: base, Status: domain.StatusCompleted},
		{ID: "new", TimestampStart: base.Add(time.Hour), Status: domain.StatusPaused},
		{ID: "old", TimestampStart: base.Add(-time.Hour), Status: domain.StatusCompleted},
	}); err != nil {
		t.Fatalf("put attempts: %v", err)
	}

	var got []string
	for offset := 0; offset < 6; offset += 2 {
		page, err := store.ListAttempts(ctx, 2, offset)
		if err != nil {
			t.Fatalf("list attempts at %d: %v", offset, err)
		}
		for _, a := range page {
			got = append(got, a.ID)
		}
	}
	want := []string{"new", "t1", "t2", "t3", "old"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if page, _ := store.ListAttempts(ctx, 2, 10); len(page) != 0 {
		t.Fatalf("expected empty page past the end, got %+v", page)
	}
}
