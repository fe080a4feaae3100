package alert

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/awardintel/award-engine/internal/bus"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
	"github.com/awardintel/award-engine/internal/pkg/logger"
)

// DefaultThreshold is the target price in miles.
const DefaultThreshold = 90000

// LatestReader returns the newest stored snapshot.
type LatestReader interface {
	Latest(ctx context.Context) (observation.AwardObservation, error)
}

// Decision is the result of one check.
type Decision struct {
	Sent     bool
	Status   string
	Snapshot observation.AwardObservation
	Notified []string
}

// CheckerConfig holds the alert rule.
type CheckerConfig struct {
	Threshold    int
	Route        string
	DashboardURL string
}

// Checker compares the latest snapshot against the threshold.
type Checker struct {
	cfg       CheckerConfig
	latest    LatestReader
	notifiers []Notifier
	events    bus.Bus
	log       *logger.Logger
}

// NewChecker creates a checker. events may be nil.
func NewChecker(cfg CheckerConfig, latest LatestReader, notifiers []Notifier, events bus.Bus, log *logger.Logger) *Checker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if log == nil {
		log = logger.Default()
	}
	return &Checker{
		cfg:       cfg,
		latest:    latest,
		notifiers: notifiers,
		events:    events,
		log:       log,
	}
}

// Check loads the latest snapshot and notifies when it is at or below the
// threshold. All notifiers run concurrently; any failure fails the check.
func (c *Checker) Check(ctx context.Context) (Decision, error) {
	obs, err := c.latest.Latest(ctx)
	if err != nil {
		return Decision{}, err
	}

	if obs.MilesRequired > c.cfg.Threshold {
		c.log.Debug("price above threshold",
			"miles_required", obs.MilesRequired,
			"threshold", c.cfg.Threshold,
		)
		return Decision{Status: StatusPriceHigh, Snapshot: obs}, nil
	}

	if len(c.notifiers) == 0 {
		return Decision{Snapshot: obs}, errors.ConfigurationError("no alert notifiers configured")
	}

	a := newAlert(obs, c.cfg.Threshold, c.cfg.Route, c.cfg.DashboardURL)

	g, gctx := errgroup.WithContext(ctx)
	for _, n := range c.notifiers {
		g.Go(func() error {
			if err := n.Notify(gctx, a); err != nil {
				return fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Decision{Snapshot: obs}, err
	}

	d := Decision{Sent: true, Status: StatusSent, Snapshot: obs}
	for _, n := range c.notifiers {
		d.Notified = append(d.Notified, n.Name())
	}

	c.log.Info("price alert sent",
		"program", obs.Program,
		"miles_required", obs.MilesRequired,
		"notifiers", d.Notified,
	)

	c.publish(ctx, a)
	return d, nil
}

func (c *Checker) publish(ctx context.Context, a Alert) {
	if c.events == nil {
		return
	}
	event, err := bus.NewEvent("alert.sent", "alert", a)
	if err != nil {
		c.log.Warn("failed to build alert event", "error", err.Error())
		return
	}
	if err := c.events.Publish(ctx, bus.TopicAlertSent, event); err != nil {
		c.log.Warn("failed to publish alert event", "error", err.Error())
	}
}
