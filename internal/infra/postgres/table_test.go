package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

func TestRenderFilters(t *testing.T) {
	cases := []struct {
		name  string
		f     remote.Filter
		sql   string
		nargs int
	}{
		{"zero", remote.Filter{}, "TRUE", 0},
		{"eq", remote.Eq(remote.ColTopic, "math"), "? = ?", 2},
		{"between", remote.Between(remote.ColLastAnsweredAt, 1, 2), "? BETWEEN ? AND ?", 3},
		{"empty in", remote.In[string](remote.ColID, nil), "FALSE", 0},
		{"in", remote.In(remote.ColID, []string{"a", "b"}), "? IN (?)", 2},
		{"or", remote.Or(remote.Eq(remote.ColID, "a"), remote.ILike(remote.ColText, "x")), "(? = ? OR ? ILIKE ?)", 4},
		{"and", remote.And(remote.Gte(remote.ColScore, 1), remote.Lt(remote.ColScore, 2)), "(? >= ? AND ? < ?)", 4},
	}
	for _, tc := range cases {
		sql, args := render(tc.f)
		if sql != tc.sql || len(args) != tc.nargs {
			t.Fatalf("%s: got %q with %d args", tc.name, sql, len(args))
		}
	}
}

func TestRenderEscapesLike(t *testing.T) {
	_, args := render(remote.ILike(remote.ColText, "50%_off"))
	if got := args[1].(string); got != `%50\%\_off%` {
		t.Fatalf("unexpected pattern %q", got)
	}
}

func TestClassify(t *testing.T) {
	if !remote.IsNoRows(classify("select", sql.ErrNoRows)) {
		t.Fatalf("ErrNoRows should classify as no rows")
	}
	if !remote.IsConnectivity(classify("select", io.ErrUnexpectedEOF)) {
		t.Fatalf("unexpected EOF should classify as connectivity")
	}
	err := classify("insert", errors.New("duplicate key"))
	if kind, ok := remote.KindOf(err); !ok || kind != remote.KindQuery {
		t.Fatalf("expected query kind, got %v", kind)
	}
	if classify("noop", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}

func TestJSONBValues(t *testing.T) {
	got := jsonbValues(map[string]any{
		remote.ColOptions:      []string{"a", "b"},
		remote.ColAllQuestions: json.RawMessage(`[]`),
		remote.ColTimesCorrect: 3,
	})
	if got[remote.ColOptions] != `["a","b"]` || got[remote.ColAllQuestions] != "[]" || got[remote.ColTimesCorrect] != 3 {
		t.Fatalf("unexpected values: %v", got)
	}
}
