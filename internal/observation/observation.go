// Package observation defines the award pricing record and its synthetic
// source.
package observation

import (
	"strings"
	"time"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// AwardObservation is one award pricing snapshot for an itinerary.
type AwardObservation struct {
	Airline       string    `json:"airline" db:"airline"`
	Program       string    `json:"program" db:"program"`
	MilesRequired int       `json:"miles_required" db:"miles_required"`
	TaxUSD        float64   `json:"tax_usd" db:"tax_usd"`
	CapturedAt    time.Time `json:"captured_at,omitempty" db:"captured_at"`
}

// Validate checks the type and range rules every stored observation obeys.
func (o AwardObservation) Validate() error {
	switch {
	case strings.TrimSpace(o.Airline) == "":
		return errors.ValidationError("airline must not be empty").WithDetail("field", "airline")
	case strings.TrimSpace(o.Program) == "":
		return errors.ValidationError("program must not be empty").WithDetail("field", "program")
	case o.MilesRequired <= 0:
		return errors.ValidationError("miles_required must be positive").WithDetail("field", "miles_required")
	case o.TaxUSD < 0:
		return errors.ValidationError("tax_usd must not be negative").WithDetail("field", "tax_usd")
	}
	return nil
}
