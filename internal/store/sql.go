package store

import (
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/awardintel/award-engine/internal/observation"
)

var (
	col_airline       = goqu.C("airline")
	col_program       = goqu.C("program")
	col_milesRequired = goqu.C("miles_required")
	col_taxUSD        = goqu.C("tax_usd")
	col_capturedAt    = goqu.C("captured_at")
)

// sqlBuilder renders the snapshot queries for one dialect.
type sqlBuilder struct {
	dialect goqu.DialectWrapper
	table   string
}

func newSQLBuilder(dialect, table string) sqlBuilder {
	return sqlBuilder{dialect: goqu.Dialect(dialect), table: table}
}

// insert renders a single-row insert. A zero capturedAt leaves the column to
// the database default.
func (b sqlBuilder) insert(obs observation.AwardObservation, capturedAt time.Time) (string, []any, error) {
	rec := goqu.Record{
		"airline":        obs.Airline,
		"program":        obs.Program,
		"miles_required": obs.MilesRequired,
		"tax_usd":        obs.TaxUSD,
	}
	if !capturedAt.IsZero() {
		rec["captured_at"] = capturedAt
	}
	return b.dialect.Insert(b.table).Prepared(true).Rows(rec).ToSQL()
}

func (b sqlBuilder) selectSnapshots() *goqu.SelectDataset {
	return b.dialect.
		From(b.table).
		Prepared(true).
		Select(col_airline, col_program, col_milesRequired, col_taxUSD, col_capturedAt)
}

func (b sqlBuilder) latest() (string, []any, error) {
	return b.selectSnapshots().
		Order(col_capturedAt.Desc()).
		Limit(1).
		ToSQL()
}

func (b sqlBuilder) since(t time.Time) (string, []any, error) {
	return b.selectSnapshots().
		Where(col_capturedAt.Gte(t)).
		Order(col_capturedAt.Asc()).
		ToSQL()
}
