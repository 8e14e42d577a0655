package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fefferico/quiz-app-sub000/internal/remote"
)

// classify maps a driver error onto the remote error kinds.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	kind := remote.KindQuery
	switch {
	case errors.Is(err, sql.ErrNoRows):
		kind = remote.KindNoRows
	case isConnectivity(err):
		kind = remote.KindConnectivity
	}
	return &remote.Error{Kind: kind, Op: op, Err: err}
}

// IsConnectivity reports whether a driver error means the server could not
// be reached.
func IsConnectivity(err error) bool { return isConnectivity(err) }

func isConnectivity(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		// Class 08 is "connection exception"; 57P0x are server shutdowns.
		code := pgErr.Field('C')
		return strings.HasPrefix(code, "08") || strings.HasPrefix(code, "57P0")
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, context.DeadlineExceeded)
}
