package remote

import (
	"fmt"
	"strings"
	"time"
)

// Op is a filter predicate operator.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpBetween
	OpILike
	OpIn
	OpOr
	OpAnd
)

// Filter is a predicate tree over row columns. The zero Filter matches every row.
type Filter struct {
	Op     Op
	Column string
	Value  any
	Upper  any
	Values []any
	Sub    []Filter
}

// IsZero reports whether the filter carries no predicate.
func (f Filter) IsZero() bool {
	return f.Op == OpEq && f.Column == "" && len(f.Sub) == 0
}

func Eq(col string, v any) Filter  { return Filter{Op: OpEq, Column: col, Value: v} }
func Gt(col string, v any) Filter  { return Filter{Op: OpGt, Column: col, Value: v} }
func Gte(col string, v any) Filter { return Filter{Op: OpGte, Column: col, Value: v} }
func Lt(col string, v any) Filter  { return Filter{Op: OpLt, Column: col, Value: v} }
func Lte(col string, v any) Filter { return Filter{Op: OpLte, Column: col, Value: v} }

// Between matches lo <= col <= hi.
func Between(col string, lo, hi any) Filter {
	return Filter{Op: OpBetween, Column: col, Value: lo, Upper: hi}
}

// ILike matches a case-insensitive substring.
func ILike(col, substr string) Filter {
	return Filter{Op: OpILike, Column: col, Value: substr}
}

// In matches set membership.
func In[T any](col string, values []T) Filter {
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return Filter{Op: OpIn, Column: col, Values: vs}
}

func Or(fs ...Filter) Filter  { return Filter{Op: OpOr, Sub: fs} }
func And(fs ...Filter) Filter { return Filter{Op: OpAnd, Sub: fs} }

// Order sorts a selection by a column.
type Order struct {
	Column string
	Desc   bool
}

// Query describes a selection.
type Query struct {
	Where  Filter
	Order  []Order
	Limit  int
	Offset int
}

// Where starts a query with the given filter.
func Where(f Filter) Query { return Query{Where: f} }

// OrderBy appends an ordering clause.
func (q Query) OrderBy(col string, desc bool) Query {
	q.Order = append(q.Order, Order{Column: col, Desc: desc})
	return q
}

// Page applies limit/offset pagination.
func (q Query) Page(limit, offset int) Query {
	q.Limit, q.Offset = limit, offset
	return q
}

// Match evaluates f against a row in process. Adapters without a query
// engine use it; SQL adapters render the filter instead.
func (f Filter) Match(r Row) bool {
	if f.IsZero() {
		return true
	}
	switch f.Op {
	case OpOr:
		for _, s := range f.Sub {
			if s.Match(r) {
				return true
			}
		}
		return false
	case OpAnd:
		for _, s := range f.Sub {
			if !s.Match(r) {
				return false
			}
		}
		return true
	}

	v := deref(r.Column(f.Column))
	switch f.Op {
	case OpEq:
		c, ok := compare(v, deref(f.Value))
		return ok && c == 0
	case OpGt:
		c, ok := compare(v, deref(f.Value))
		return ok && c > 0
	case OpGte:
		c, ok := compare(v, deref(f.Value))
		return ok && c >= 0
	case OpLt:
		c, ok := compare(v, deref(f.Value))
		return ok && c < 0
	case OpLte:
		c, ok := compare(v, deref(f.Value))
		return ok && c <= 0
	case OpBetween:
		lo, ok1 := compare(v, deref(f.Value))
		hi, ok2 := compare(v, deref(f.Upper))
		return ok1 && ok2 && lo >= 0 && hi <= 0
	case OpILike:
		s, ok := v.(string)
		sub, ok2 := f.Value.(string)
		return ok && ok2 && strings.Contains(strings.ToLower(s), strings.ToLower(sub))
	case OpIn:
		for _, want := range f.Values {
			if c, ok := compare(v, deref(want)); ok && c == 0 {
				return true
			}
		}
		return false
	}
	return false
}

// Less orders two rows by the query ordering clauses.
func (q Query) Less(a, b Row) bool {
	for _, o := range q.Order {
		c, ok := compare(deref(a.Column(o.Column)), deref(b.Column(o.Column)))
		if !ok || c == 0 {
			continue
		}
		if o.Desc {
			return c > 0
		}
		return c < 0
	}
	return a.RowID() < b.RowID()
}

func deref(v any) any {
	switch t := v.(type) {
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case *int:
		if t == nil {
			return nil
		}
		return *t
	case *float64:
		if t == nil {
			return nil
		}
		return *t
	case *bool:
		if t == nil {
			return nil
		}
		return *t
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

// compare orders two scalar column values; ok is false for nulls or
// incomparable kinds.
func compare(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case bool:
		y, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case x == y:
			return 0, true
		case !x:
			return -1, true
		default:
			return 1, true
		}
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	}
	fx, ok1 := toFloat(a)
	fy, ok2 := toFloat(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case fx < fy:
		return -1, true
	case fx > fy:
		return 1, true
	}
	return 0, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// String renders the filter for diagnostics.
func (f Filter) String() string {
	if f.IsZero() {
		return "true"
	}
	switch f.Op {
	case OpOr, OpAnd:
		sep := " OR "
		if f.Op == OpAnd {
			sep = " AND "
		}
		parts := make([]string, len(f.Sub))
		for i, s := range f.Sub {
			parts[i] = s.String()
		}
		return "(" + strings.Join(parts, sep) + ")"
	case OpBetween:
		return fmt.Sprintf("%s BETWEEN %v AND %v", f.Column, f.Value, f.Upper)
	case OpIn:
		return fmt.Sprintf("%s IN %v", f.Column, f.Values)
	}
	return fmt.Sprintf("%s %s %v", f.Column, opSymbols[f.Op], f.Value)
}

var opSymbols = map[Op]string{
	OpEq:    "=",
	OpGt:    ">",
	OpGte:   ">=",
	OpLt:    "<",
	OpLte:   "<=",
	OpILike: "ILIKE",
}
