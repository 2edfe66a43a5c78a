package pgerrs_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"tracker/internal/adapters/out/postgres/pgerrs"
	"tracker/internal/pkg/errs"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{name: "serialization failure", err: &pgconn.PgError{Code: "40001"}, wantUnavailable: true},
		{name: "connection failure class", err: &pgconn.PgError{Code: "08006"}, wantUnavailable: true},
		{name: "admin shutdown", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "57P01"}), wantUnavailable: true},
		{name: "bad connection", err: driver.ErrBadConn, wantUnavailable: true},
		{name: "unique violation", err: &pgconn.PgError{Code: "23505"}},
		{name: "undefined table", err: &pgconn.PgError{Code: "42P01"}},
		{name: "context canceled", err: context.Canceled},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pgerrs.Classify(tt.err)

			assert.Equal(t, tt.wantUnavailable, errors.Is(got, errs.ErrUnavailable))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, pgerrs.Classify(nil))
}

func TestClassify_DoesNotWrapTwice(t *testing.T) {
	err := errs.NewUnavailableErrorWithCause(pgerrs.Dependency, driver.ErrBadConn)

	assert.Same(t, err, pgerrs.Classify(err))
}
