package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/fefferico/quiz-app-sub000/internal/app"
	"github.com/fefferico/quiz-app-sub000/internal/cache"
	"github.com/fefferico/quiz-app-sub000/internal/config"
	"github.com/fefferico/quiz-app-sub000/internal/content"
	"github.com/fefferico/quiz-app-sub000/internal/fallback"
	"github.com/fefferico/quiz-app-sub000/internal/infra/memory"
	"github.com/fefferico/quiz-app-sub000/internal/infra/postgres"
	infraredis "github.com/fefferico/quiz-app-sub000/internal/infra/redis"
	"github.com/fefferico/quiz-app-sub000/internal/mapper"
	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// runtime is everything a command needs once the cache is open.
type runtime struct {
	log       *logrus.Logger
	cache     *cache.Store
	store     *app.Store
	analytics *app.Analytics
	monitor   *postgres.Monitor
	closers   []func()
}

func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if strings.EqualFold(cfg.Log.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	return log
}

// buildRuntime wires remote, cache and services from cfg. Without a
// Postgres url the remote is in-memory; without a Redis address so is the
// cache.
func buildRuntime(ctx context.Context, cfg config.Config) (*runtime, error) {
	rt := &runtime{log: newLogger(cfg)}

	var (
		client remote.Client
		conn   fallback.Connectivity
		pool   *pgxpool.Pool
		mem    *memory.Remote
	)
	if cfg.Postgres.URL != "" {
		db := postgres.Open(cfg.Postgres.URL)
		rt.closers = append(rt.closers, func() { _ = db.Close() })
		client = postgres.NewClient(db)

		var err error
		pool, err = postgres.OpenPool(ctx, cfg.Postgres.URL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		rt.closers = append(rt.closers, pool.Close)
		interval := config.TTLDuration(cfg.Connectivity.ProbeInterval, 5*time.Second)
		rt.monitor = postgres.NewMonitor(pool, interval, rt.log)
		conn = rt.monitor
		if !rt.monitor.Check(ctx) {
			rt.log.Warn("remote store unreachable at startup, serving from cache")
		}
	} else {
		rt.log.Warn("postgres not configured, using in-memory remote")
		mem = memory.NewRemote()
		client, conn = mem, mem
	}

	var backend cache.Backend
	if cfg.Redis.Addr != "" {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rt.closers = append(rt.closers, func() { _ = rc.Close() })
		backend = infraredis.NewCacheStore(rc, cfg.Redis.Prefix)
	} else {
		backend = memory.NewCacheStore()
	}

	src, err := contentSource(cfg, pool, conn.Online())
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.cache, err = cache.Open(ctx, backend, src, cache.Options{
		TargetVersion: cfg.Cache.SchemaVersion,
		Logger:        rt.log,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	if mem != nil {
		// Standalone mode: the in-memory remote starts with the cached bank.
		qs, err := rt.cache.AllQuestions(ctx)
		if err == nil {
			_, err = mem.Questions().Upsert(ctx, mapper.QuestionsToRows(qs))
		}
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("seed in-memory remote: %w", err)
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("analytics timezone: %w", err)
	}
	rt.store = app.NewStore(client, rt.cache, conn, app.WithLogger(rt.log))
	rt.analytics = app.NewAnalytics(rt.store, loc)
	return rt, nil
}

// contentSource picks where cache migrations read definitions from. Remote
// content is only used while the remote is reachable; otherwise the file or
// embedded seed stands in.
func contentSource(cfg config.Config, pool *pgxpool.Pool, online bool) (cache.ContentSource, error) {
	switch {
	case cfg.Cache.ContentFromRemote && pool != nil && online:
		return postgres.NewContentLoader(pool), nil
	case cfg.Cache.ContentPath != "":
		src, err := content.LoadFile(cfg.Cache.ContentPath)
		if err != nil {
			return nil, fmt.Errorf("load content: %w", err)
		}
		return src, nil
	}
	return content.Seed()
}
