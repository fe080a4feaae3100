package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// DefaultRoute is shown in the progress line.
const DefaultRoute = "BOM ⇄ JFK"

// Generator produces one observation per call.
type Generator interface {
	Generate() observation.AwardObservation
}

// Ingester is satisfied by *Sink.
type Ingester interface {
	Ingest(ctx context.Context, obs observation.AwardObservation) (Result, error)
}

// RunnerConfig controls one cycle.
type RunnerConfig struct {
	Route             string
	SearchDelay       time.Duration
	FailOnIngestError bool
}

// Outcome reports what a cycle did.
type Outcome struct {
	RunID       string
	Observation observation.AwardObservation
	Result      Result
	Err         error // ingest failure, if any
}

// Runner performs the search, generate and ingest cycle and prints the
// console report to out.
type Runner struct {
	cfg  RunnerConfig
	gen  Generator
	sink Ingester
	out  io.Writer
	log  *logger.Logger
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig, gen Generator, sink Ingester, out io.Writer, log *logger.Logger) *Runner {
	if cfg.Route == "" {
		cfg.Route = DefaultRoute
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logger.Default()
	}
	return &Runner{cfg: cfg, gen: gen, sink: sink, out: out, log: log}
}

// Run executes one cycle. An ingest failure is printed and reported in
// the Outcome; it is returned as an error only when FailOnIngestError is
// set. Cancellation during the search delay is always returned.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := r.log.WithRun(runID)

	out := Outcome{RunID: runID}

	fmt.Fprintf(r.out, "Searching for %s Award Space...\n", r.cfg.Route)

	if err := sleep(ctx, r.cfg.SearchDelay); err != nil {
		return out, errors.FromRequest("search", err)
	}

	out.Observation = r.gen.Generate()
	log.Debug("observation generated",
		"airline", out.Observation.Airline,
		"program", out.Observation.Program,
		"miles_required", out.Observation.MilesRequired,
		"tax_usd", out.Observation.TaxUSD,
	)

	res, err := r.sink.Ingest(ctx, out.Observation)
	if err != nil {
		out.Err = err
		fmt.Fprintf(r.out, "❌ Error: %v\n", err)
		if r.cfg.FailOnIngestError {
			return out, err
		}
		return out, nil
	}

	out.Result = res
	fmt.Fprintf(r.out, "✅ Success! Inserted %d miles into Dashboard.\n", res.MilesRequired)
	return out, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
