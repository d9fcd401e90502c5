package postgres

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"scriptmentor/internal/domain"
)

// isPgDuplicateError checks if error is a unique constraint violation
func isPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// isPgNoRowsError checks if error is a "no rows" error
func isPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isConnectivityError reports failures to reach or keep a connection to the
// database, as opposed to errors returned by a query.
func isConnectivityError(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 08 = connection exception, 57P01..03 = server shutting down
		return strings.HasPrefix(pgErr.Code, "08") || strings.HasPrefix(pgErr.Code, "57P0")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// classify wraps err with op, converting connection failures into a
// ConnectivityError so callers can tell "retry later" from a bad query.
func classify(op string, err error) error {
	if isConnectivityError(err) {
		return &domain.ConnectivityError{Op: op, Cause: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
