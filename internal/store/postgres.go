package store

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// PostgresStore writes snapshots straight into the database behind the
// hosted API.
type PostgresStore struct {
	pool  *pgxpool.Pool
	sql   sqlBuilder
	table string
}

// NewPostgres builds a pool for databaseURL. Connections are opened on first
// use, so an unreachable database surfaces as a failed Insert.
func NewPostgres(ctx context.Context, databaseURL, table string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.ConfigurationError("database URL cannot be empty")
	}
	if table == "" {
		table = DefaultTable
	}

	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfiguration, "parsing database URL", err)
	}
	poolCfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, pgError("connect", err)
	}

	return &PostgresStore{
		pool:  pool,
		sql:   newSQLBuilder("postgres", table),
		table: table,
	}, nil
}

func (s *PostgresStore) Name() string  { return "postgres" }
func (s *PostgresStore) Table() string { return s.table }

func (s *PostgresStore) Insert(ctx context.Context, obs observation.AwardObservation) (int, error) {
	query, args, err := s.sql.insert(obs, time.Time{})
	if err != nil {
		return 0, errors.InternalError("building insert", err)
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, pgError("insert", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Latest(ctx context.Context) (observation.AwardObservation, error) {
	query, args, err := s.sql.latest()
	if err != nil {
		return observation.AwardObservation{}, errors.InternalError("building select", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return observation.AwardObservation{}, pgError("select latest", err)
	}
	obs, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[observation.AwardObservation])
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return observation.AwardObservation{}, errors.NotFoundError("snapshot")
		}
		return observation.AwardObservation{}, pgError("select latest", err)
	}
	return obs, nil
}

func (s *PostgresStore) Since(ctx context.Context, t time.Time) ([]observation.AwardObservation, error) {
	query, args, err := s.sql.since(t)
	if err != nil {
		return nil, errors.InternalError("building select", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, pgError("select history", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[observation.AwardObservation])
	if err != nil {
		return nil, pgError("select history", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// pgError classifies driver errors by SQLSTATE class.
func pgError(op string, err error) *errors.AppError {
	var pgErr *pgconn.PgError
	if !stderrors.As(err, &pgErr) {
		return errors.FromRequest(op, err)
	}

	var code string
	switch {
	case strings.HasPrefix(pgErr.Code, "28"), pgErr.Code == "42501":
		code = errors.CodeUnauthorized
	case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "42"):
		code = errors.CodeRejected
	case strings.HasPrefix(pgErr.Code, "57"), strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "53"):
		code = errors.CodeUnavailable
	default:
		code = errors.CodeInternal
	}
	return errors.Wrap(code, op+": "+pgErr.Message, err).WithDetail("pg_code", pgErr.Code)
}
