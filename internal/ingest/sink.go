// Package ingest writes generated observations to the snapshot store and
// runs the single search-and-insert cycle.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/awardintel/award-engine/internal/bus"
	"github.com/awardintel/award-engine/internal/history"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
	"github.com/awardintel/award-engine/internal/store"
)

// Kind classifies an ingest failure.
type Kind string

const (
	KindTransport    Kind = "transport"
	KindUnauthorized Kind = "unauthorized"
	KindRejected     Kind = "rejected"
	KindTimeout      Kind = "timeout"
	KindInvalid      Kind = "invalid"
	KindInternal     Kind = "internal"
)

// IngestError is returned by Sink.Ingest when the row was not written.
type IngestError struct {
	Kind  Kind
	Table string
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest into %s failed (%s): %v", e.Table, e.Kind, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// kindOf maps an AppError code to a failure kind.
func kindOf(err error) Kind {
	switch errors.CodeOf(err) {
	case errors.CodeTransport, errors.CodeUnavailable:
		return KindTransport
	case errors.CodeUnauthorized:
		return KindUnauthorized
	case errors.CodeRejected, errors.CodeNotFound:
		return KindRejected
	case errors.CodeTimeout:
		return KindTimeout
	case errors.CodeValidation:
		return KindInvalid
	default:
		return KindInternal
	}
}

// Result describes a successful insert.
type Result struct {
	Inserted      int
	MilesRequired int
	Table         string
}

// SnapshotEvent is the payload of a snapshot.ingested event.
type SnapshotEvent struct {
	RunID         string  `json:"run_id,omitempty"`
	Table         string  `json:"table"`
	Airline       string  `json:"airline"`
	Program       string  `json:"program"`
	MilesRequired int     `json:"miles_required"`
	TaxUSD        float64 `json:"tax_usd"`
}

// Sink inserts observations into a store. Events and history are optional.
type Sink struct {
	store   store.Store
	events  bus.Bus
	history history.Recorder
	log     *logger.Logger
	now     func() time.Time
}

// NewSink creates a sink writing to s. events and rec may be nil.
func NewSink(s store.Store, events bus.Bus, rec history.Recorder, log *logger.Logger) *Sink {
	if log == nil {
		log = logger.Default()
	}
	return &Sink{
		store:   s,
		events:  events,
		history: rec,
		log:     log,
		now:     time.Now,
	}
}

// Table returns the destination table.
func (s *Sink) Table() string {
	return s.store.Table()
}

// Ingest validates obs and performs exactly one insert. Failures come back
// as *IngestError.
func (s *Sink) Ingest(ctx context.Context, obs observation.AwardObservation) (Result, error) {
	table := s.store.Table()
	log := s.log.WithContext(ctx).WithTable(table)

	if err := obs.Validate(); err != nil {
		return Result{}, &IngestError{Kind: KindInvalid, Table: table, Err: err}
	}

	n, err := s.store.Insert(ctx, obs)
	if err != nil {
		ierr := &IngestError{Kind: kindOf(err), Table: table, Err: err}
		log.WithError(err).Warn("insert failed", "kind", string(ierr.Kind), "backend", s.store.Name())
		return Result{}, ierr
	}

	log.Info("snapshot inserted",
		"backend", s.store.Name(),
		"rows", n,
		"program", obs.Program,
		"miles_required", obs.MilesRequired,
	)

	s.afterInsert(ctx, log, table, obs)

	return Result{Inserted: n, MilesRequired: obs.MilesRequired, Table: table}, nil
}

// afterInsert publishes the snapshot event and records history. Errors
// are logged and otherwise ignored.
func (s *Sink) afterInsert(ctx context.Context, log *logger.Logger, table string, obs observation.AwardObservation) {
	if s.history != nil {
		if err := s.history.Record(ctx, history.PointFrom(obs, s.now())); err != nil {
			log.WithError(err).Warn("failed to record price history")
		}
	}

	if s.events == nil {
		return
	}

	runID, _ := logger.RunIDFromContext(ctx)
	event, err := bus.NewEvent("snapshot.ingested", "ingest", SnapshotEvent{
		RunID:         runID,
		Table:         table,
		Airline:       obs.Airline,
		Program:       obs.Program,
		MilesRequired: obs.MilesRequired,
		TaxUSD:        obs.TaxUSD,
	})
	if err != nil {
		log.WithError(err).Warn("failed to build snapshot event")
		return
	}
	if err := s.events.Publish(ctx, bus.TopicSnapshotIngested, event); err != nil {
		log.WithError(err).Warn("failed to publish snapshot event")
	}
}
