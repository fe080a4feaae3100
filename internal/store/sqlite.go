package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/security"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    airline VARCHAR(64) NOT NULL,
    program VARCHAR(64) NOT NULL,
    miles_required INTEGER NOT NULL CHECK (miles_required > 0),
    tax_usd REAL NOT NULL CHECK (tax_usd >= 0),
    captured_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS %[1]s_captured_at ON %[1]s(captured_at);
`

// SQLiteStore keeps snapshots in a local SQLite file.
type SQLiteStore struct {
	db    *sqlx.DB
	sql   sqlBuilder
	table string
	now   func() time.Time
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(ctx context.Context, path, table string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.ConfigurationError("sqlite path cannot be empty")
	}
	if table == "" {
		table = DefaultTable
	}
	if err := security.ValidateTableName(table); err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, errors.InternalError("opening sqlite", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, table)); err != nil {
		db.Close()
		return nil, errors.InternalError("creating schema", err)
	}

	return &SQLiteStore{
		db:    db,
		sql:   newSQLBuilder("sqlite3", table),
		table: table,
		now:   time.Now,
	}, nil
}

func (s *SQLiteStore) Name() string  { return "sqlite" }
func (s *SQLiteStore) Table() string { return s.table }

// Insert stamps captured_at itself so ordering does not depend on
// CURRENT_TIMESTAMP's one-second resolution.
func (s *SQLiteStore) Insert(ctx context.Context, obs observation.AwardObservation) (int, error) {
	query, args, err := s.sql.insert(obs, s.now().UTC())
	if err != nil {
		return 0, errors.InternalError("building insert", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, sqliteError("insert", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.InternalError("reading rows affected", err)
	}
	return int(n), nil
}

func (s *SQLiteStore) Latest(ctx context.Context) (observation.AwardObservation, error) {
	query, args, err := s.sql.latest()
	if err != nil {
		return observation.AwardObservation{}, errors.InternalError("building select", err)
	}

	var obs observation.AwardObservation
	if err := s.db.GetContext(ctx, &obs, query, args...); err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return observation.AwardObservation{}, errors.NotFoundError("snapshot")
		}
		return observation.AwardObservation{}, sqliteError("select latest", err)
	}
	return obs, nil
}

func (s *SQLiteStore) Since(ctx context.Context, t time.Time) ([]observation.AwardObservation, error) {
	query, args, err := s.sql.since(t.UTC())
	if err != nil {
		return nil, errors.InternalError("building select", err)
	}

	var out []observation.AwardObservation
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, sqliteError("select history", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// sqliteError maps constraint failures to REJECTED.
func sqliteError(op string, err error) *errors.AppError {
	if strings.Contains(err.Error(), "constraint failed") {
		return errors.Wrap(errors.CodeRejected, op+" rejected", err)
	}
	return errors.FromRequest(op, err)
}
