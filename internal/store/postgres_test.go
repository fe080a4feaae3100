package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

func TestPgError(t *testing.T) {
	tests := []struct {
		sqlstate string
		code     string
	}{
		{"28P01", errors.CodeUnauthorized},
		{"42501", errors.CodeUnauthorized},
		{"23514", errors.CodeRejected},
		{"42P01", errors.CodeRejected},
		{"57P01", errors.CodeUnavailable},
		{"XX000", errors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.sqlstate, func(t *testing.T) {
			err := pgError("insert", &pgconn.PgError{Code: tt.sqlstate, Message: "boom"})
			assert.Equal(t, tt.code, err.Code)
			assert.Equal(t, tt.sqlstate, err.Details["pg_code"])
		})
	}
}

func TestPostgresStore_Integration(t *testing.T) {
	dsn := os.Getenv("AWARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("AWARD_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn, DefaultTable)
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Insert(ctx, sampleObservation())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.False(t, latest.CapturedAt.IsZero())
}

func TestPostgresStore_UnreachableFailsOnInsert(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s, err := NewPostgres(ctx, "postgres://award@127.0.0.1:1/awards?connect_timeout=2&sslmode=disable", DefaultTable)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Insert(ctx, sampleObservation())
	require.Error(t, err)
	assert.Contains(t, []string{errors.CodeTransport, errors.CodeTimeout}, errors.CodeOf(err))
}
