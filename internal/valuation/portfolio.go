package valuation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/awardintel/award-engine/internal/pkg/errors"
)

// Portfolio is the input to the optimizer: balances plus a target award.
type Portfolio struct {
	Cards []Card `yaml:"cards"`
	Award Award  `yaml:"award"`
}

// SamplePortfolio returns the demo balances and the BOM-JFK business
// class award.
func SamplePortfolio() Portfolio {
	return Portfolio{
		Cards: []Card{
			{Name: "Amex Gold", Points: 175000},
			{Name: "Capital One Venture X", Points: 60000},
			{Name: "Bilt", Points: 22000},
			{Name: "Chase UR", Points: 13000},
		},
		Award: Award{
			Airline:       "Air India",
			Program:       "Aeroplan",
			MilesRequired: 90000,
			TaxUSD:        60,
			CashUSD:       4200,
		},
	}
}

// LoadPortfolio reads a YAML portfolio. Missing award fields fall back to
// the sample award.
func LoadPortfolio(path string) (Portfolio, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Portfolio{}, errors.Wrap(errors.CodeConfiguration, fmt.Sprintf("reading portfolio %s", path), err)
	}

	p := Portfolio{Award: SamplePortfolio().Award}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Portfolio{}, errors.Wrap(errors.CodeConfiguration, "parsing portfolio", err)
	}

	if len(p.Cards) == 0 {
		return Portfolio{}, errors.ConfigurationError("portfolio has no cards")
	}
	for _, c := range p.Cards {
		if c.Points < 0 {
			return Portfolio{}, errors.ConfigurationError(fmt.Sprintf("card %s has negative points", c.Name))
		}
	}
	return p, nil
}
