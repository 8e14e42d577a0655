package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Remote is an in-process stand-in for the remote store. It evaluates the
// same filters as the SQL adapter and can be switched offline to exercise
// the cache fallback path.
type Remote struct {
	online    atomic.Bool
	questions *table[remote.QuestionRow]
	attempts  *table[remote.AttemptRow]
}

func NewRemote() *Remote {
	r := &Remote{}
	r.online.Store(true)
	r.questions = newTable[remote.QuestionRow](&r.online)
	r.attempts = newTable[remote.AttemptRow](&r.online)
	return r
}

func (r *Remote) Questions() remote.Table[remote.QuestionRow] { return r.questions }
func (r *Remote) Attempts() remote.Table[remote.AttemptRow]   { return r.attempts }

// Online implements fallback.Connectivity.
func (r *Remote) Online() bool { return r.online.Load() }

// SetOnline toggles reachability. While offline every call fails with a
// connectivity error.
func (r *Remote) SetOnline(v bool) { r.online.Store(v) }

// FailNext makes the next call on either table fail with a query error.
func (r *Remote) FailNext(err error) {
	r.questions.failNext(err)
	r.attempts.failNext(err)
}

type table[R remote.Row] struct {
	online *atomic.Bool
	mu     sync.RWMutex
	rows   map[string]R
	fail   error
}

func newTable[R remote.Row](online *atomic.Bool) *table[R] {
	return &table[R]{online: online, rows: make(map[string]R)}
}

func (t *table[R]) failNext(err error) {
	t.mu.Lock()
	t.fail = err
	t.mu.Unlock()
}

// check must be called with t.mu held for writing.
func (t *table[R]) check(op string) error {
	if !t.online.Load() {
		return &remote.Error{Kind: remote.KindConnectivity, Op: op, Err: fmt.Errorf("remote offline")}
	}
	if t.fail != nil {
		err := t.fail
		t.fail = nil
		return &remote.Error{Kind: remote.KindQuery, Op: op, Err: err}
	}
	return nil
}

func (t *table[R]) Select(_ context.Context, q remote.Query) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("select"); err != nil {
		return nil, err
	}
	return t.selectLocked(q), nil
}

func (t *table[R]) SelectOne(_ context.Context, q remote.Query) (R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero R
	if err := t.check("select one"); err != nil {
		return zero, err
	}
	q.Limit = 1
	rows := t.selectLocked(q)
	if len(rows) == 0 {
		return zero, &remote.Error{Kind: remote.KindNoRows, Op: "select one"}
	}
	return rows[0], nil
}

func (t *table[R]) selectLocked(q remote.Query) []R {
	out := make([]R, 0)
	for _, row := range t.rows {
		if q.Where.Match(row) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return q.Less(out[i], out[j]) })
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []R{}
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out
}

func (t *table[R]) Insert(_ context.Context, rows []R) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("insert"); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if _, exists := t.rows[row.RowID()]; exists {
			return nil, &remote.Error{Kind: remote.KindQuery, Op: "insert", Err: fmt.Errorf("duplicate key %q", row.RowID())}
		}
	}
	for _, row := range rows {
		t.rows[row.RowID()] = row
	}
	return append([]R(nil), rows...), nil
}

func (t *table[R]) Upsert(_ context.Context, rows []R) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("upsert"); err != nil {
		return nil, err
	}
	for _, row := range rows {
		t.rows[row.RowID()] = row
	}
	return append([]R(nil), rows...), nil
}

func (t *table[R]) Update(_ context.Context, values map[string]any, where remote.Filter) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("update"); err != nil {
		return nil, err
	}
	updated := make([]R, 0)
	for id, row := range t.rows {
		if !where.Match(row) {
			continue
		}
		next, err := setColumns(row, values)
		if err != nil {
			return nil, &remote.Error{Kind: remote.KindQuery, Op: "update", Err: err}
		}
		t.rows[id] = next
		updated = append(updated, next)
	}
	return updated, nil
}

func (t *table[R]) Delete(_ context.Context, where remote.Filter) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check("delete"); err != nil {
		return nil, err
	}
	deleted := make([]R, 0)
	for id, row := range t.rows {
		if where.Match(row) {
			deleted = append(deleted, row)
			delete(t.rows, id)
		}
	}
	return deleted, nil
}

// setColumns applies column values through the rows' json tags, which match
// the remote column names.
func setColumns[R any](row R, values map[string]any) (R, error) {
	var next R
	raw, err := json.Marshal(row)
	if err != nil {
		return next, err
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return next, err
	}
	for col, v := range values {
		if _, known := doc[col]; !known {
			return next, fmt.Errorf("unknown column %q", col)
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return next, err
		}
		doc[col] = enc
	}
	raw, err = json.Marshal(doc)
	if err != nil {
		return next, err
	}
	err = json.Unmarshal(raw, &next)
	return next, err
}
