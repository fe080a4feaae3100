package observation

import (
	"math/rand/v2"
)

// Defaults for the synthetic BOM-JFK source.
const (
	DefaultAirline = "Air India"
	DefaultProgram = "Aeroplan"
	DefaultTaxMin  = 200
	DefaultTaxMax  = 600
)

// DefaultMilesChoices are the representative saver/standard award levels.
var DefaultMilesChoices = []int{80000, 85000, 90000, 110000, 120000}

// Source supplies uniform integers in [0, n).
type Source interface {
	IntN(n int) int
}

// GeneratorConfig configures a Generator. Zero fields take the defaults.
type GeneratorConfig struct {
	Airline      string
	Program      string
	MilesChoices []int
	TaxMin       int
	TaxMax       int
}

// Generator produces synthetic award observations. It is not safe for
// concurrent use when backed by a *rand.Rand.
type Generator struct {
	cfg GeneratorConfig
	src Source
}

// NewGenerator creates a generator drawing from src.
func NewGenerator(cfg GeneratorConfig, src Source) *Generator {
	if cfg.Airline == "" {
		cfg.Airline = DefaultAirline
	}
	if cfg.Program == "" {
		cfg.Program = DefaultProgram
	}
	if len(cfg.MilesChoices) == 0 {
		cfg.MilesChoices = DefaultMilesChoices
	}
	if cfg.TaxMin == 0 && cfg.TaxMax == 0 {
		cfg.TaxMin, cfg.TaxMax = DefaultTaxMin, DefaultTaxMax
	}
	if cfg.TaxMax < cfg.TaxMin {
		cfg.TaxMin, cfg.TaxMax = cfg.TaxMax, cfg.TaxMin
	}
	cfg.MilesChoices = append([]int(nil), cfg.MilesChoices...)

	return &Generator{cfg: cfg, src: src}
}

// NewSeeded creates a generator backed by a PCG source. The same non-zero
// seed always yields the same sequence; seed 0 draws a random seed.
func NewSeeded(cfg GeneratorConfig, seed uint64) *Generator {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return NewGenerator(cfg, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// Config returns the effective generator configuration.
func (g *Generator) Config() GeneratorConfig {
	return g.cfg
}

// Generate draws one observation. Miles come from the fixed choice set and
// tax from the inclusive [TaxMin, TaxMax] range.
func (g *Generator) Generate() AwardObservation {
	miles := g.cfg.MilesChoices[g.src.IntN(len(g.cfg.MilesChoices))]
	tax := g.cfg.TaxMin + g.src.IntN(g.cfg.TaxMax-g.cfg.TaxMin+1)

	return AwardObservation{
		Airline:       g.cfg.Airline,
		Program:       g.cfg.Program,
		MilesRequired: miles,
		TaxUSD:        float64(tax),
	}
}
