package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Client implements remote.Client on Postgres through bun.
type Client struct {
	db        *bun.DB
	questions *Table[remote.QuestionRow]
	attempts  *Table[remote.AttemptRow]
}

// Open connects bun to the Postgres DSN. Connections are established lazily.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// OpenPool builds a pgx pool that dials on first use, so an unreachable
// server does not stop the process from starting.
func OpenPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	cfg.LazyConnect = true
	return pgxpool.ConnectConfig(ctx, cfg)
}

func NewClient(db *bun.DB) *Client {
	return &Client{
		db:        db,
		questions: NewTable[remote.QuestionRow](db, "questions"),
		attempts:  NewTable[remote.AttemptRow](db, "quiz_attempts"),
	}
}

func (c *Client) Questions() remote.Table[remote.QuestionRow] { return c.questions }
func (c *Client) Attempts() remote.Table[remote.AttemptRow]   { return c.attempts }

func (c *Client) Close() error { return c.db.Close() }
