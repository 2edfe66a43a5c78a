// Package pgerrs maps database driver failures onto the errs taxonomy.
package pgerrs

import (
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"tracker/internal/pkg/errs"
)

// Dependency is the name reported in errs.UnavailableError.
const Dependency = "postgres"

// transientStates are SQLSTATE codes after which the same statement may
// succeed on retry.
var transientStates = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"53300": {}, // too_many_connections
	"57P01": {}, // admin_shutdown
	"57P02": {}, // crash_shutdown
	"57P03": {}, // cannot_connect_now
}

// Classify wraps connection and other transient failures in
// errs.UnavailableError. Any other error is returned unchanged.
//
// Example:
//
//	if err := db.Exec(query).Error; err != nil {
//	    return pgerrs.Classify(err) // errors.Is(err, errs.ErrUnavailable) when retryable
//	}
func Classify(err error) error {
	if err == nil || errors.Is(err, errs.ErrUnavailable) {
		return err
	}
	if IsTransient(err) {
		return errs.NewUnavailableErrorWithCause(Dependency, err)
	}
	return err
}

// IsTransient reports whether err is a connection failure, a timeout or a
// SQLSTATE worth retrying.
func IsTransient(err error) bool {
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if _, ok := transientStates[pgErr.Code]; ok {
			return true
		}
		// Class 08: connection exception.
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}
	return false
}
