// Package valuation plans point transfers for an award and values the
// redemption in cents per point.
package valuation

import (
	"fmt"
	"math"
	"slices"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// Card is a points balance in one bank currency.
type Card struct {
	Name   string `yaml:"name" json:"name"`
	Points int    `yaml:"points" json:"points"`
}

// Award is a bookable redemption.
type Award struct {
	Airline       string  `yaml:"airline" json:"airline"`
	Program       string  `yaml:"program" json:"program"`
	MilesRequired int     `yaml:"miles_required" json:"miles_required"`
	TaxUSD        float64 `yaml:"tax_usd" json:"tax_usd"`
	CashUSD       float64 `yaml:"cash_equivalent_usd" json:"cash_equivalent_usd"`
}

// Transfer is one leg of a plan.
type Transfer struct {
	Bank             string `json:"bank"`
	Amount           int    `json:"transfer_amount"`
	RemainingBalance int    `json:"remaining_balance"`
}

// Plan is the result of Optimize.
type Plan struct {
	Possible   bool       `json:"is_possible"`
	Shortfall  int        `json:"shortfall"`
	TotalMiles int        `json:"total_miles"`
	CPP        float64    `json:"cpp"`
	Transfers  []Transfer `json:"transfers"`
	Verdict    string     `json:"verdict"`
}

// Partners lists the bank currencies that transfer 1:1 into each program.
var Partners = map[string][]string{
	"Aeroplan":           {"Amex Gold", "Chase UR", "Capital One Venture X", "Bilt"},
	"Avianca LifeMiles":  {"Amex Gold", "Capital One Venture X", "Bilt"},
	"United MileagePlus": {"Chase UR", "Bilt"},
}

// Weights rank currencies by how easy they are to earn. Higher weights
// are spent first; unknown currencies weigh 0.
var Weights = map[string]int{
	"Bilt":                  1,
	"Chase UR":              2,
	"Amex Gold":             3,
	"Capital One Venture X": 4,
}

// Optimize funds award from portfolio, drawing from the most plentiful
// currencies first.
func Optimize(portfolio []Card, award Award) (Plan, error) {
	if award.MilesRequired <= 0 {
		return Plan{}, errors.ValidationError("miles_required must be positive").
			WithDetail("field", "miles_required")
	}
	partners, ok := Partners[award.Program]
	if !ok {
		return Plan{}, errors.ValidationError(fmt.Sprintf("unknown program: %s", award.Program)).
			WithDetail("field", "program")
	}

	var eligible []Card
	for _, c := range portfolio {
		if slices.Contains(partners, c.Name) {
			eligible = append(eligible, c)
		}
	}
	slices.SortStableFunc(eligible, func(a, b Card) int {
		return Weights[b.Name] - Weights[a.Name]
	})

	needed := award.MilesRequired
	transfers := []Transfer{}
	for _, c := range eligible {
		if needed <= 0 {
			break
		}
		amount := min(c.Points, needed)
		if amount <= 0 {
			continue
		}
		transfers = append(transfers, Transfer{
			Bank:             c.Name,
			Amount:           amount,
			RemainingBalance: c.Points - amount,
		})
		needed -= amount
	}

	cpp := (award.CashUSD - award.TaxUSD) / float64(award.MilesRequired) * 100

	return Plan{
		Possible:   needed <= 0,
		Shortfall:  needed,
		TotalMiles: award.MilesRequired,
		CPP:        math.Round(cpp*100) / 100,
		Transfers:  transfers,
		Verdict:    Verdict(cpp),
	}, nil
}

// Verdict classifies a cents-per-point value.
func Verdict(cpp float64) string {
	switch {
	case cpp < 1.5:
		return "POOR VALUE: Consider paying cash instead."
	case cpp > 3.5:
		return "UNBELIEVABLE DEAL: Book immediately before space vanishes."
	case cpp > 2.0:
		return "GREAT VALUE: This is a solid redemption."
	default:
		return "AVERAGE VALUE: Monitor for a potential price drop."
	}
}

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
