package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/fefferico/quiz-app-sub000/internal/app"
	"github.com/fefferico/quiz-app-sub000/internal/cache"
	"github.com/fefferico/quiz-app-sub000/internal/content"
	"github.com/fefferico/quiz-app-sub000/internal/domain"
	"github.com/fefferico/quiz-app-sub000/internal/infra/postgres"
	pgmigrations "github.com/fefferico/quiz-app-sub000/internal/infra/postgres/migrations"
	infraredis "github.com/fefferico/quiz-app-sub000/internal/infra/redis"
)

func TestStoreEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)
	log, _ := test.NewNullLogger()

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := postgres.Open(pgURL)
	defer db.Close()
	migrateSchema(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	monitor := postgres.NewMonitor(pool, time.Second, log)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	seed, err := content.Seed()
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	c, err := cache.Open(ctx, infraredis.NewCacheStore(redisClient, "it"), seed, cache.Options{Logger: log})
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}

	store := app.NewStore(postgres.NewClient(db), c, monitor, app.WithLogger(log))

	defs, _ := seed.Definitions(ctx)
	for _, def := range defs {
		if _, err := store.AddQuestion(ctx, def); err != nil {
			t.Fatalf("add question %s: %v", def.ID, err)
		}
	}

	loaded, err := postgres.NewContentLoader(pool).Definitions(ctx)
	if err != nil {
		t.Fatalf("content loader: %v", err)
	}
	if len(loaded) != len(defs) || loaded[0].ID != "gen-001" || len(loaded[0].Options) != 3 {
		t.Fatalf("unexpected remote definitions: %+v", loaded)
	}

	found, err := store.SearchQuestions(ctx, "general", "ROME")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found.Items) != 1 || found.Items[0].ID != "gen-002" {
		t.Fatalf("expected gen-002, got %+v", found.Items)
	}

	if _, err := store.SetFavorite(ctx, "gen-003", true); err != nil {
		t.Fatalf("set favorite: %v", err)
	}
	favs, err := store.GetFavoriteQuestions(ctx, "general")
	if err != nil || len(favs.Items) != 1 {
		t.Fatalf("expected one favorite, got %+v (%v)", favs.Items, err)
	}

	q, err := store.Stats().RecordAnswer(ctx, domain.AnswerOutcome{QuestionID: "gen-001", Correct: false})
	if err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if q.TimesIncorrect != 1 || q.Accuracy == nil || *q.Accuracy != 0 {
		t.Fatalf("unexpected stats: %+v", q)
	}
	batch, err := store.Stats().RecordAnswers(ctx, []domain.AnswerOutcome{
		{QuestionID: "gen-001", Correct: true},
		{QuestionID: "gen-004", Correct: true},
		{QuestionID: "unknown", Correct: true},
	})
	if err != nil {
		t.Fatalf("record answers: %v", err)
	}
	if len(batch) != 2 || batch[0].TimesCorrect != 1 || *batch[0].Accuracy != 50 {
		t.Fatalf("unexpected batch stats: %+v", batch)
	}

	attempt, err := store.AddAttempt(ctx, domain.QuizAttempt{
		PublicContest: "general",
		AllQuestions:  []domain.AnsweredQuestion{domain.SnapshotOf(defs[0])},
	})
	if err != nil {
		t.Fatalf("add attempt: %v", err)
	}
	paused := domain.StatusPaused
	if _, err := store.UpdateAttempt(ctx, attempt.ID, domain.AttemptPatch{Status: &paused}); err != nil {
		t.Fatalf("pause attempt: %v", err)
	}
	got, ok, err := store.GetPausedQuiz(ctx)
	if err != nil || !ok || got.ID != attempt.ID || len(got.AllQuestions) != 1 {
		t.Fatalf("expected paused attempt back, got %+v ok=%v err=%v", got, ok, err)
	}

	all, err := store.GetAllQuestions(ctx, "general")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}

	// Losing Postgres flips the monitor and reads come from Redis.
	pgCleanup()
	if monitor.Check(ctx) {
		t.Fatalf("expected monitor to report the remote as down")
	}
	stale, err := store.GetAllQuestions(ctx, "general")
	if err != nil {
		t.Fatalf("get all offline: %v", err)
	}
	if !stale.Stale || len(stale.Items) != len(all.Items) {
		t.Fatalf("expected %d stale questions, got %d (stale=%v)", len(all.Items), len(stale.Items), stale.Stale)
	}
	if _, err := store.AddQuestion(ctx, domain.Question{ID: "offline"}); err == nil {
		t.Fatalf("expected writes to fail while the remote is down")
	}
	paused2, ok, err := store.GetPausedQuiz(ctx)
	if err != nil || !ok || paused2.ID != attempt.ID {
		t.Fatalf("expected cached paused attempt, got %+v ok=%v err=%v", paused2, ok, err)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	var once sync.Once
	return dsn, func() {
		once.Do(func() { _ = container.Terminate(ctx) })
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
