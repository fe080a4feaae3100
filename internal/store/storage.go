// Package store persists award observations to the snapshot table.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/security"
)

// DefaultTable is the snapshot table shared with the dashboard.
const DefaultTable = "award_snapshots"

// Store is the persistence interface for award snapshots. Implementations
// return *errors.AppError values so callers can classify failures.
type Store interface {
	// Name identifies the backend in logs.
	Name() string

	// Table returns the table rows are written to.
	Table() string

	// Insert writes one observation and returns the number of rows written.
	Insert(ctx context.Context, obs observation.AwardObservation) (int, error)

	// Latest returns the most recently captured observation.
	Latest(ctx context.Context) (observation.AwardObservation, error)

	// Since returns observations captured at or after t, oldest first.
	Since(ctx context.Context, t time.Time) ([]observation.AwardObservation, error)

	// Close releases the underlying client.
	Close() error
}

// New creates a Store for the configured backend.
func New(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if err := security.ValidateTableName(table); err != nil {
		return nil, err
	}

	switch strings.ToLower(cfg.Backend) {
	case "postgrest", "":
		return NewPostgREST(PostgRESTConfig{
			URL:     cfg.URL,
			Key:     cfg.Key,
			Table:   table,
			Timeout: cfg.Timeout,
		})

	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, table)

	case "sqlite":
		return NewSQLite(ctx, cfg.SQLitePath, table)

	case "memory":
		return NewMemory(table), nil

	default:
		return nil, errors.ConfigurationError(fmt.Sprintf("unknown store backend: %s", cfg.Backend))
	}
}
