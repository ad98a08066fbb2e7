// Package config holds the engine's tunable parameters: quality filters,
// fitness weights, mutation rates, population shape and run controls. It
// loads an HCL file over the reference defaults, the same
// parse-then-default-then-validate shape the reference server config uses.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the full record of spec.md §6: dataset-shape parameters,
// quality filters, fitness weights, mutation rates, run controls.
type Config struct {
	// Dataset-shape / traversal parameters.
	DMax     int `hcl:"d_max,optional"`
	Horizon  int `hcl:"horizon,optional"`
	MaxDepth int `hcl:"max_depth,optional"`

	// Population shape.
	M int `hcl:"population,optional"` // individuals
	P int `hcl:"process_nodes,optional"`
	J int `hcl:"judgement_nodes,optional"`
	K int `hcl:"-"` // attribute count; always inferred from the dataset, never configured

	// Quality filters.
	MinAttrs         int     `hcl:"min_attrs,optional"`
	MinSupportCount  int     `hcl:"min_support_count,optional"`
	MinSup           float64 `hcl:"min_sup,optional"`
	MaxSigma         float64 `hcl:"max_sigma,optional"`
	MinMean          float64 `hcl:"min_mean,optional"`
	MinConcentration float64 `hcl:"min_concentration,optional"`

	// Fitness weights.
	WAttr        float64 `hcl:"w_attr,optional"`
	WSup         float64 `hcl:"w_sup,optional"`
	WSigma       float64 `hcl:"w_sigma,optional"`
	SigmaOffset  float64 `hcl:"sigma_offset,optional"`
	WConsistency float64 `hcl:"w_consistency,optional"`
	NewRuleBonus float64 `hcl:"new_rule_bonus,optional"`

	// Bonus step tables: ascending breakpoints each paired with the bonus
	// awarded once the input reaches that breakpoint.
	ConcentrationBreaks  []float64 `hcl:"concentration_breaks,optional"`
	ConcentrationBonuses []float64 `hcl:"concentration_bonuses,optional"`
	SignificanceBreaks   []float64 `hcl:"significance_breaks,optional"`
	SignificanceBonuses  []float64 `hcl:"significance_bonuses,optional"`

	// Mutation rates, as 1-in-r probabilities.
	MurateProcess int `hcl:"murate_process,optional"`
	MurateJudge   int `hcl:"murate_judge,optional"`
	MurateDelay   int `hcl:"murate_delay,optional"`
	MurateAttr    int `hcl:"murate_attr,optional"`

	// Run controls.
	Ntry          int   `hcl:"ntry,optional"`
	Generations   int   `hcl:"generations,optional"`
	Seed          int64 `hcl:"seed,optional"`
	Workers       int   `hcl:"workers,optional"`
	PoolCap       int   `hcl:"pool_cap,optional"` // Nrulemax * Ntry
	ProgressEvery int   `hcl:"progress_every,optional"`
}

// Default returns the reference constants named in the glossary.
func Default() Config {
	return Config{
		DMax:     3,
		Horizon:  1,
		MaxDepth: 7,

		M: 120,
		P: 10,
		J: 100,

		MinAttrs:         2,
		MinSupportCount:  5,
		MinSup:           0.01,
		MaxSigma:         2.0,
		MinMean:          0.1,
		MinConcentration: 0.40,

		WAttr:        1.0,
		WSup:         10.0,
		WSigma:       1.0,
		SigmaOffset:  0.1,
		WConsistency: 1.0,
		NewRuleBonus: 5.0,

		ConcentrationBreaks:  []float64{0.40, 0.55, 0.70, 0.85},
		ConcentrationBonuses: []float64{0.5, 1.0, 2.0, 3.0},
		SignificanceBreaks:   []float64{0.1, 0.3, 0.6, 1.0},
		SignificanceBonuses:  []float64{0.5, 1.0, 2.0, 3.0},

		MurateProcess: 1,
		MurateJudge:   6,
		MurateDelay:   6,
		MurateAttr:    6,

		Ntry:          10,
		Generations:   201,
		Seed:          1,
		Workers:       1,
		PoolCap:       2000,
		ProgressEvery: 10,
	}
}

// Load reads filename as HCL and overlays it onto the reference defaults.
// A missing file is not an error: it simply yields the defaults, matching
// the teacher's LoadServerConfig behavior for a missing config path.
func Load(filename string) (Config, error) {
	cfg := Default()
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("parse HCL config %s: %s", filename, diags.Error())
	}

	var overlay Config
	diags = gohcl.DecodeBody(file.Body, nil, &overlay)
	if diags.HasErrors() {
		return Config{}, fmt.Errorf("decode HCL config %s: %s", filename, diags.Error())
	}
	applyOverlay(&cfg, &overlay)
	return cfg, nil
}

func applyOverlay(cfg, overlay *Config) {
	if overlay.DMax != 0 {
		cfg.DMax = overlay.DMax
	}
	if overlay.Horizon != 0 {
		cfg.Horizon = overlay.Horizon
	}
	if overlay.MaxDepth != 0 {
		cfg.MaxDepth = overlay.MaxDepth
	}
	if overlay.M != 0 {
		cfg.M = overlay.M
	}
	if overlay.P != 0 {
		cfg.P = overlay.P
	}
	if overlay.J != 0 {
		cfg.J = overlay.J
	}
	if overlay.MinAttrs != 0 {
		cfg.MinAttrs = overlay.MinAttrs
	}
	if overlay.MinSupportCount != 0 {
		cfg.MinSupportCount = overlay.MinSupportCount
	}
	if overlay.MinSup != 0 {
		cfg.MinSup = overlay.MinSup
	}
	if overlay.MaxSigma != 0 {
		cfg.MaxSigma = overlay.MaxSigma
	}
	if overlay.MinMean != 0 {
		cfg.MinMean = overlay.MinMean
	}
	if overlay.MinConcentration != 0 {
		cfg.MinConcentration = overlay.MinConcentration
	}
	if overlay.WAttr != 0 {
		cfg.WAttr = overlay.WAttr
	}
	if overlay.WSup != 0 {
		cfg.WSup = overlay.WSup
	}
	if overlay.WSigma != 0 {
		cfg.WSigma = overlay.WSigma
	}
	if overlay.SigmaOffset != 0 {
		cfg.SigmaOffset = overlay.SigmaOffset
	}
	if overlay.WConsistency != 0 {
		cfg.WConsistency = overlay.WConsistency
	}
	if overlay.NewRuleBonus != 0 {
		cfg.NewRuleBonus = overlay.NewRuleBonus
	}
	if len(overlay.ConcentrationBreaks) != 0 {
		cfg.ConcentrationBreaks = overlay.ConcentrationBreaks
		cfg.ConcentrationBonuses = overlay.ConcentrationBonuses
	}
	if len(overlay.SignificanceBreaks) != 0 {
		cfg.SignificanceBreaks = overlay.SignificanceBreaks
		cfg.SignificanceBonuses = overlay.SignificanceBonuses
	}
	if overlay.MurateProcess != 0 {
		cfg.MurateProcess = overlay.MurateProcess
	}
	if overlay.MurateJudge != 0 {
		cfg.MurateJudge = overlay.MurateJudge
	}
	if overlay.MurateDelay != 0 {
		cfg.MurateDelay = overlay.MurateDelay
	}
	if overlay.MurateAttr != 0 {
		cfg.MurateAttr = overlay.MurateAttr
	}
	if overlay.Ntry != 0 {
		cfg.Ntry = overlay.Ntry
	}
	if overlay.Generations != 0 {
		cfg.Generations = overlay.Generations
	}
	if overlay.Seed != 0 {
		cfg.Seed = overlay.Seed
	}
	if overlay.Workers != 0 {
		cfg.Workers = overlay.Workers
	}
	if overlay.PoolCap != 0 {
		cfg.PoolCap = overlay.PoolCap
	}
	if overlay.ProgressEvery != 0 {
		cfg.ProgressEvery = overlay.ProgressEvery
	}
}

// Validate reports a non-nil error if cfg cannot size a dataset/engine run.
func (c Config) Validate() error {
	if c.DMax < 0 || c.Horizon < 0 || c.MaxDepth < 0 {
		return fmt.Errorf("config: d_max, horizon and max_depth must be non-negative")
	}
	if c.M <= 0 || c.P <= 0 || c.J <= 0 {
		return fmt.Errorf("config: population, process_nodes and judgement_nodes must be positive")
	}
	if c.MinAttrs <= 0 {
		return fmt.Errorf("config: min_attrs must be positive")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must be non-negative")
	}
	return nil
}

// QualityParams is the subset of Config the rule extractor consumes: the
// quality filter thresholds and the fitness weights/bonus tables that
// step 6 of spec.md §4.5 applies to every cell that passes the filter.
type QualityParams struct {
	MinAttrs         int
	MinSupportCount  int
	MinSup           float64
	MaxSigma         float64
	MinMean          float64
	MinConcentration float64

	WAttr        float64
	WSup         float64
	WSigma       float64
	SigmaOffset  float64
	WConsistency float64
	NewRuleBonus float64

	ConcentrationBreaks  []float64
	ConcentrationBonuses []float64
	SignificanceBreaks   []float64
	SignificanceBonuses  []float64
}

// QualityParams extracts the ruleset-extractor view of c.
func (c Config) QualityParams() QualityParams {
	return QualityParams{
		MinAttrs:             c.MinAttrs,
		MinSupportCount:      c.MinSupportCount,
		MinSup:               c.MinSup,
		MaxSigma:             c.MaxSigma,
		MinMean:              c.MinMean,
		MinConcentration:     c.MinConcentration,
		WAttr:                c.WAttr,
		WSup:                 c.WSup,
		WSigma:               c.WSigma,
		SigmaOffset:          c.SigmaOffset,
		WConsistency:         c.WConsistency,
		NewRuleBonus:         c.NewRuleBonus,
		ConcentrationBreaks:  c.ConcentrationBreaks,
		ConcentrationBonuses: c.ConcentrationBonuses,
		SignificanceBreaks:   c.SignificanceBreaks,
		SignificanceBonuses:  c.SignificanceBonuses,
	}
}

// EvolutionParams is the subset of Config the evolution driver consumes.
type EvolutionParams struct {
	M, P, J, K, DMax                                     int
	MurateProcess, MurateJudge, MurateDelay, MurateAttr int
}

// EvolutionParams extracts the evolution-driver view of c. K (attribute
// count) must be set from the dataset by the caller, since Config never
// configures it directly.
func (c Config) EvolutionParams() EvolutionParams {
	return EvolutionParams{
		M: c.M, P: c.P, J: c.J, K: c.K, DMax: c.DMax,
		MurateProcess: c.MurateProcess,
		MurateJudge:   c.MurateJudge,
		MurateDelay:   c.MurateDelay,
		MurateAttr:    c.MurateAttr,
	}
}

// StepBonus returns the bonus associated with the highest breakpoint that
// value meets or exceeds, or 0 if value is below every breakpoint.
// Breaks must be ascending; this is the step-function idiom spec.md §4.5
// leaves as a parameter.
func StepBonus(value float64, breaks, bonuses []float64) float64 {
	bonus := 0.0
	for i, b := range breaks {
		if value >= b {
			bonus = bonuses[i]
		}
	}
	return bonus
}
