package remote

import (
	"errors"
	"fmt"
)

// Kind classifies remote failures. Adapters map every driver error onto one
// of these so callers never inspect driver-specific fields.
type Kind int

const (
	// KindQuery means the remote was reachable but rejected the operation.
	KindQuery Kind = iota
	// KindConnectivity means the remote could not be reached.
	KindConnectivity
	// KindNoRows means a single-row selection matched nothing.
	KindNoRows
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindNoRows:
		return "no rows"
	}
	return "query"
}

// Error is the only error type returned by remote tables.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote %s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrNoRows) and friends match on kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrNoRows       = &Error{Kind: KindNoRows}
	ErrConnectivity = &Error{Kind: KindConnectivity}
)

// KindOf returns the kind of err and whether err is a remote error at all.
func KindOf(err error) (Kind, bool) {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind, true
	}
	return KindQuery, false
}

// IsConnectivity reports whether err means the remote is unreachable.
func IsConnectivity(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindConnectivity
}

// IsNoRows reports whether err is an empty single-row selection.
func IsNoRows(err error) bool {
	k, ok := KindOf(err)
	return ok && k == KindNoRows
}
