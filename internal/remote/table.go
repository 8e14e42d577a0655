package remote

import "context"

// Table is the remote query interface for one record type. Every method
// returns the affected rows or an *Error.
type Table[R Row] interface {
	Select(ctx context.Context, q Query) ([]R, error)
	// SelectOne returns an error of KindNoRows when nothing matched.
	SelectOne(ctx context.Context, q Query) (R, error)
	Insert(ctx context.Context, rows []R) ([]R, error)
	// Upsert inserts rows, replacing every column of rows whose id exists.
	Upsert(ctx context.Context, rows []R) ([]R, error)
	Update(ctx context.Context, values map[string]any, where Filter) ([]R, error)
	Delete(ctx context.Context, where Filter) ([]R, error)
}

// Client groups the remote tables.
type Client interface {
	Questions() Table[QuestionRow]
	Attempts() Table[AttemptRow]
}
