// Package fallback runs remote-first reads that degrade to the local cache
// when the remote store is unreachable.
package fallback

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Connectivity reports whether the remote store is currently reachable.
type Connectivity interface {
	Online() bool
}

// ConnectivityFunc adapts a function to Connectivity.
type ConnectivityFunc func() bool

func (f ConnectivityFunc) Online() bool { return f() }

// Engine holds what every fallback query shares.
type Engine struct {
	conn Connectivity
	log  logrus.FieldLogger
	sf   singleflight.Group
}

func NewEngine(conn Connectivity, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Engine{conn: conn, log: log}
}

// Online exposes the connectivity signal the engine consults.
func (e *Engine) Online() bool {
	return e.conn.Online()
}

// Query describes one remote read, how to map its rows, how to mirror them
// into the cache and how to answer it from the cache alone.
type Query[R any, T any] struct {
	// Name identifies the operation in logs.
	Name string
	// Key, when set, collapses concurrent identical queries into one remote call.
	Key string
	// Remote runs the remote selection.
	Remote func(ctx context.Context) ([]R, error)
	// Map converts a row; ok=false drops it.
	Map func(R) (T, bool)
	// WriteBack upserts mapped items into the cache. Optional.
	WriteBack func(ctx context.Context, items []T) error
	// Fallback answers the same question from the cache.
	Fallback func(ctx context.Context) ([]T, error)
	// Single marks queries expecting at most one row.
	Single bool
}

// Result is the outcome of a fallback query. Stale is set when the items
// came from the cache because the remote was unreachable.
type Result[T any] struct {
	Items []T
	Stale bool
}

// Run executes q remote-first.
func Run[R any, T any](ctx context.Context, e *Engine, q Query[R, T]) (Result[T], error) {
	if q.Key == "" {
		return run(ctx, e, q)
	}
	// The shared call outlives any single caller; each caller still gives
	// up on its own context.
	shared := context.WithoutCancel(ctx)
	ch := e.sf.DoChan(q.Key, func() (interface{}, error) {
		return run(shared, e, q)
	})
	select {
	case <-ctx.Done():
		return Result[T]{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result[T]{}, r.Err
		}
		res := r.Val.(Result[T])
		items := make([]T, len(res.Items))
		copy(items, res.Items)
		return Result[T]{Items: items, Stale: res.Stale}, nil
	}
}

// RunOne executes a single-result query. ok is false when nothing matched.
func RunOne[R any, T any](ctx context.Context, e *Engine, q Query[R, T]) (T, bool, error) {
	q.Single = true
	res, err := Run(ctx, e, q)
	var zero T
	if err != nil || len(res.Items) == 0 {
		return zero, false, err
	}
	return res.Items[0], true, nil
}

func run[R any, T any](ctx context.Context, e *Engine, q Query[R, T]) (Result[T], error) {
	log := e.log.WithField("op", q.Name)

	rows, err := q.Remote(ctx)
	if err != nil {
		if q.Single && remote.IsNoRows(err) {
			return Result[T]{Items: []T{}}, nil
		}
		return fromCache(ctx, e, log, q, err)
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		if item, ok := q.Map(row); ok {
			items = append(items, item)
		}
	}
	if q.Single && len(items) > 1 {
		items = items[:1]
	}

	if len(items) > 0 && q.WriteBack != nil {
		if err := q.WriteBack(ctx, items); err != nil {
			return fromCache(ctx, e, log, q, err)
		}
	}
	return Result[T]{Items: items}, nil
}

// fromCache redirects to the cache when connectivity is down and propagates
// cause otherwise.
func fromCache[R any, T any](ctx context.Context, e *Engine, log logrus.FieldLogger, q Query[R, T], cause error) (Result[T], error) {
	reachable := e.conn.Online() && !remote.IsConnectivity(cause)
	if reachable || q.Fallback == nil {
		return Result[T]{}, cause
	}
	log.WithError(cause).Warn("remote unreachable, serving from cache")
	items, err := q.Fallback(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	if items == nil {
		items = []T{}
	}
	if q.Single && len(items) > 1 {
		items = items[:1]
	}
	return Result[T]{Items: items, Stale: true}, nil
}
