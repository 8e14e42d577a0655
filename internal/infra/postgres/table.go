package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/uptrace/bun"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// Table implements remote.Table on a bun model.
type Table[R remote.Row] struct {
	db   bun.IDB
	name string
}

// NewTable binds R to the named table.
func NewTable[R remote.Row](db bun.IDB, name string) *Table[R] {
	return &Table[R]{db: db, name: name}
}

func (t *Table[R]) Select(ctx context.Context, q remote.Query) ([]R, error) {
	rows := make([]R, 0)
	sel := t.db.NewSelect().Model(&rows)
	if !q.Where.IsZero() {
		sql, args := render(q.Where)
		sel = sel.Where(sql, args...)
	}
	for _, o := range q.Order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		sel = sel.OrderExpr("? "+dir, bun.Ident(o.Column))
	}
	if q.Limit > 0 {
		sel = sel.Limit(q.Limit)
	}
	if q.Offset > 0 {
		sel = sel.Offset(q.Offset)
	}
	if err := sel.Scan(ctx); err != nil {
		return nil, classify("select "+t.name, err)
	}
	return rows, nil
}

func (t *Table[R]) SelectOne(ctx context.Context, q remote.Query) (R, error) {
	var row R
	sel := t.db.NewSelect().Model(&row)
	if !q.Where.IsZero() {
		sql, args := render(q.Where)
		sel = sel.Where(sql, args...)
	}
	for _, o := range q.Order {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		sel = sel.OrderExpr("? "+dir, bun.Ident(o.Column))
	}
	if err := sel.Limit(1).Scan(ctx); err != nil {
		return row, classify("select one "+t.name, err)
	}
	return row, nil
}

func (t *Table[R]) Insert(ctx context.Context, rows []R) ([]R, error) {
	if len(rows) == 0 {
		return []R{}, nil
	}
	out := append([]R(nil), rows...)
	if _, err := t.db.NewInsert().Model(&out).Returning("*").Exec(ctx); err != nil {
		return nil, classify("insert "+t.name, err)
	}
	return out, nil
}

// Upsert relies on bun filling SET col = EXCLUDED.col for every column when
// no explicit Set is given.
func (t *Table[R]) Upsert(ctx context.Context, rows []R) ([]R, error) {
	if len(rows) == 0 {
		return []R{}, nil
	}
	out := append([]R(nil), rows...)
	_, err := t.db.NewInsert().
		Model(&out).
		On("CONFLICT (id) DO UPDATE").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, classify("upsert "+t.name, err)
	}
	return out, nil
}

func (t *Table[R]) Update(ctx context.Context, values map[string]any, where remote.Filter) ([]R, error) {
	out := make([]R, 0)
	if len(values) == 0 {
		return out, nil
	}
	values = jsonbValues(values)
	sql, args := render(where)
	err := t.db.NewUpdate().
		Model(&values).
		TableExpr(t.name).
		Where(sql, args...).
		Returning("*").
		Scan(ctx, &out)
	if err != nil {
		return nil, classify("update "+t.name, err)
	}
	return out, nil
}

func (t *Table[R]) Delete(ctx context.Context, where remote.Filter) ([]R, error) {
	out := make([]R, 0)
	sql, args := render(where)
	err := t.db.NewDelete().
		Model((*R)(nil)).
		Where(sql, args...).
		Returning("*").
		Scan(ctx, &out)
	if err != nil {
		return nil, classify("delete "+t.name, err)
	}
	return out, nil
}

// jsonbValues sends json documents and string lists as text literals, which
// Postgres coerces into the jsonb columns.
func jsonbValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for col, v := range values {
		switch t := v.(type) {
		case json.RawMessage:
			out[col] = string(t)
		case []string:
			raw, err := json.Marshal(t)
			if err != nil {
				out[col] = v
				continue
			}
			out[col] = string(raw)
		default:
			out[col] = v
		}
	}
	return out
}

// render turns a filter into a bun WHERE fragment with ? placeholders.
func render(f remote.Filter) (string, []any) {
	if f.IsZero() {
		return "TRUE", nil
	}
	col := bun.Ident(f.Column)
	switch f.Op {
	case remote.OpOr, remote.OpAnd:
		if len(f.Sub) == 0 {
			if f.Op == remote.OpOr {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		sep := " AND "
		if f.Op == remote.OpOr {
			sep = " OR "
		}
		parts := make([]string, 0, len(f.Sub))
		var args []any
		for _, s := range f.Sub {
			sql, a := render(s)
			parts = append(parts, sql)
			args = append(args, a...)
		}
		return "(" + strings.Join(parts, sep) + ")", args
	case remote.OpGt:
		return "? > ?", []any{col, f.Value}
	case remote.OpGte:
		return "? >= ?", []any{col, f.Value}
	case remote.OpLt:
		return "? < ?", []any{col, f.Value}
	case remote.OpLte:
		return "? <= ?", []any{col, f.Value}
	case remote.OpBetween:
		return "? BETWEEN ? AND ?", []any{col, f.Value, f.Upper}
	case remote.OpILike:
		sub, _ := f.Value.(string)
		return "? ILIKE ?", []any{col, "%" + escapeLike(sub) + "%"}
	case remote.OpIn:
		if len(f.Values) == 0 {
			return "FALSE", nil
		}
		return "? IN (?)", []any{col, bun.In(f.Values)}
	}
	return "? = ?", []any{col, f.Value}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
