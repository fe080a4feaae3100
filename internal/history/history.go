// Package history keeps a rolling window of observed award prices per
// loyalty program.
package history

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/awardintel/award-engine/internal/config"
	"github.com/awardintel/award-engine/internal/observation"
	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// DefaultWindow is how long points are retained.
const DefaultWindow = 7 * 24 * time.Hour

// Point is one observed price.
type Point struct {
	Program       string    `json:"program"`
	Airline       string    `json:"airline"`
	MilesRequired int       `json:"miles_required"`
	TaxUSD        float64   `json:"tax_usd"`
	CapturedAt    time.Time `json:"captured_at"`
}

// PointFrom converts a stored observation. A zero CapturedAt becomes now.
func PointFrom(obs observation.AwardObservation, now time.Time) Point {
	at := obs.CapturedAt
	if at.IsZero() {
		at = now
	}
	return Point{
		Program:       obs.Program,
		Airline:       obs.Airline,
		MilesRequired: obs.MilesRequired,
		TaxUSD:        obs.TaxUSD,
		CapturedAt:    at.UTC(),
	}
}

// Recorder stores price points.
type Recorder interface {
	// Record adds a point and trims points older than the window.
	Record(ctx context.Context, p Point) error

	// Load returns the points for program captured at or after since,
	// oldest first.
	Load(ctx context.Context, program string, since time.Time) ([]Point, error)

	Close() error
}

// New builds the recorder selected by cfg. Type "none" returns nil.
func New(cfg config.HistoryConfig) (Recorder, error) {
	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	switch cfg.Type {
	case "none":
		return nil, nil
	case "memory", "":
		return NewMemory(window), nil
	case "redis":
		return NewRedis(cfg.RedisURL, window)
	default:
		return nil, errors.ConfigurationError(fmt.Sprintf("unknown history type: %s", cfg.Type))
	}
}

// Summary describes a run of points.
type Summary struct {
	Count       int
	Low         int
	High        int
	Latest      int
	LatestAt    time.Time
	PctAboveLow float64 // (latest - low) / low * 100, one decimal
}

// Summarize reports on points, which must be ordered oldest first.
// An empty slice yields a zero Summary.
func Summarize(points []Point) Summary {
	if len(points) == 0 {
		return Summary{}
	}

	s := Summary{
		Count: len(points),
		Low:   points[0].MilesRequired,
		High:  points[0].MilesRequired,
	}
	for _, p := range points {
		s.Low = min(s.Low, p.MilesRequired)
		s.High = max(s.High, p.MilesRequired)
	}

	last := points[len(points)-1]
	s.Latest = last.MilesRequired
	s.LatestAt = last.CapturedAt

	if s.Low > 0 {
		s.PctAboveLow = math.Round(float64(s.Latest-s.Low)/float64(s.Low)*1000) / 10
	}
	return s
}
