// Package ruleset turns the evaluator's statistics cells into normalized,
// deduplicated rules: conjunctions of attribute literals with a witness
// set and per-horizon mean/sigma prediction.
package ruleset

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/evaluator"
	"github.com/tempoeng/gnprules/sdk/fitness"
	"github.com/tempoeng/gnprules/sdk/history"
)

// Literal is one conjunct: attribute a_i must read 1 at t-d_i.
type Literal struct {
	Attr  int
	Delay int
}

// Rule is a normalized, deduplicated conjunction of literals plus its
// per-horizon prediction and witness set.
type Rule struct {
	Literals []Literal // sorted ascending by Attr

	Mean  []float64 // per-horizon mean of x(t+h), length H
	Sigma []float64 // per-horizon sigma of x(t+h), length H

	SupportCount  int
	NegativeCount int
	SupportRate   float64

	HighSupport bool
	LowVariance bool

	Witnesses []int // safe-range row indices where every literal holds
}

// Key returns the deduplication key: the normalized attribute set, ignoring
// delays, per spec.md §4.5 step 3 ("delays are not part of the key"). This
// is also the key pool.Pool merges on, matching spec.md §8's invariant
// that attribute sequences in the global pool are pairwise distinct.
func (r Rule) Key() string { return litsKey(r.Literals) }

// Extract implements spec.md §4.5 steps 1-6 over every (individual,
// process node, depth) cell in cube, ascending by depth so that the
// shortest literal set wins deduplication when a chain revisits an
// attribute (spec.md §9 "Duplicate attribute in a path"). Quality-passing
// cells contribute to scorer's fitness regardless of duplicate status;
// only newly-registered rules get params.NewRuleBonus and a witness scan.
// seen is the per-trial rule pool of spec.md §4.5 step 3: callers create
// one empty map per trial and pass the same map to every generation's
// Extract call so deduplication spans the whole trial, not just one
// generation's sweep.
func Extract(cube *evaluator.Cube, ds *dataset.Dataset, params config.QualityParams, hist *history.Tracker, scorer *fitness.Scorer, seen map[string]bool) []Rule {
	var out []Rule

	for d := params.MinAttrs; d <= cube.MaxDepth; d++ {
		for ind := 0; ind < cube.M; ind++ {
			for p := 0; p < cube.P; p++ {
				lits, ok := normalizedChain(cube, ind, p, d)
				if !ok || len(lits) < params.MinAttrs {
					continue
				}

				base := cube.At(ind, p, 0)
				target := cube.At(ind, p, d)
				support := target.Match
				neg := target.Neg(base.Match)
				supportRate := 0.0
				if neg > 0 {
					supportRate = float64(support) / float64(neg)
				}

				if !passesQuality(target, support, supportRate, params) {
					continue
				}

				key := litsKey(lits)
				isNew := !seen[key]
				seen[key] = true

				rewardWeight := 1.0
				highSupport := supportRate >= params.MinSup+0.02
				lowVariance := maxSigma(target) <= params.MaxSigma-1.0
				if isNew && (highSupport || lowVariance) {
					rewardWeight = 3.0
				}
				for _, l := range lits {
					hist.Delay.Reward(l.Delay, rewardWeight)
					hist.Attribute.Reward(l.Attr, rewardWeight)
				}

				contributeFitness(scorer, ind, lits, target, supportRate, params, isNew)

				if !isNew {
					continue
				}

				rule := Rule{
					Literals:      lits,
					Mean:          append([]float64(nil), target.Mean...),
					Sigma:         append([]float64(nil), target.Sigma...),
					SupportCount:  support,
					NegativeCount: neg,
					SupportRate:   supportRate,
					HighSupport:   highSupport,
					LowVariance:   lowVariance,
				}
				rule.Witnesses = rescanWitnesses(ds, lits)
				rule.SupportCount = len(rule.Witnesses)
				out = append(out, rule)
			}
		}
	}
	return out
}

// normalizedChain reads the attribute/delay chain cube.At(ind,p,1..d)
// and collapses duplicate attributes, keeping the first delay seen, per
// spec.md §9 "Duplicate attribute in a path". ok is false if any depth in
// [1,d] was never reached by any row (AttrChain still zero).
func normalizedChain(cube *evaluator.Cube, ind, p, d int) ([]Literal, bool) {
	seenAttr := make(map[int]bool, d)
	var lits []Literal
	for dd := 1; dd <= d; dd++ {
		c := cube.At(ind, p, dd)
		if c.AttrChain == 0 {
			return nil, false
		}
		a := c.AttrChain - 1
		if seenAttr[a] {
			continue
		}
		seenAttr[a] = true
		lits = append(lits, Literal{Attr: a, Delay: c.DelayChain})
	}
	sort.Slice(lits, func(i, j int) bool { return lits[i].Attr < lits[j].Attr })
	return lits, true
}

func litsKey(lits []Literal) string {
	var b strings.Builder
	for i, l := range lits {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", l.Attr)
	}
	return b.String()
}

func maxSigma(c *evaluator.Cell) float64 {
	m := 0.0
	for _, s := range c.Sigma {
		if s > m {
			m = s
		}
	}
	return m
}

func maxAbsMean(c *evaluator.Cell) float64 {
	m := 0.0
	for _, v := range c.Mean {
		if a := math.Abs(v); a > m {
			m = a
		}
	}
	return m
}

func quadrantConcentration(c *evaluator.Cell) float64 {
	total := 0
	max := 0
	for _, q := range c.Quadrant {
		total += q
		if q > max {
			max = q
		}
	}
	if total == 0 {
		return 0
	}
	return float64(max) / float64(total)
}

func passesQuality(c *evaluator.Cell, support int, supportRate float64, params config.QualityParams) bool {
	if support < params.MinSupportCount {
		return false
	}
	if supportRate < params.MinSup {
		return false
	}
	for _, s := range c.Sigma {
		if s > params.MaxSigma {
			return false
		}
	}
	if len(c.Mean) > 0 && maxAbsMean(c) < params.MinMean {
		return false
	}
	// Quadrant counters only fill when Horizon>=2 (evaluator.recordMatch);
	// below that there is no concentration signal to filter on at all, so
	// the threshold would otherwise reject every cell regardless of value.
	if len(c.Mean) >= 2 && quadrantConcentration(c) < params.MinConcentration {
		return false
	}
	return true
}

// contributeFitness implements spec.md §4.5 step 6's fitness formula.
func contributeFitness(scorer *fitness.Scorer, ind int, lits []Literal, c *evaluator.Cell, supportRate float64, params config.QualityParams, isNew bool) {
	delta := float64(len(lits))*params.WAttr + supportRate*params.WSup
	if len(c.Sigma) > 0 {
		delta += params.WSigma / (c.Sigma[0] + params.SigmaOffset)
	}
	delta += config.StepBonus(quadrantConcentration(c), params.ConcentrationBreaks, params.ConcentrationBonuses)
	delta += config.StepBonus(maxAbsMean(c), params.SignificanceBreaks, params.SignificanceBonuses)
	delta += params.WConsistency * directionalImbalance(c)
	if isNew {
		delta += params.NewRuleBonus
	}
	scorer.Add(ind, delta)
}

func directionalImbalance(c *evaluator.Cell) float64 {
	total := c.PosCount + c.NegCount
	if total == 0 {
		return 0
	}
	diff := c.PosCount - c.NegCount
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) / float64(total)
}

// rescanWitnesses walks the dataset's safe range once, materializing every
// row at which every literal of lits holds, per spec.md §9 "Witness
// capture" (re-derive on demand rather than store per-row during sweep).
func rescanWitnesses(ds *dataset.Dataset, lits []Literal) []int {
	start, end := ds.SafeRange()
	var witnesses []int
	for t := start; t < end; t++ {
		match := true
		for _, l := range lits {
			if ds.Attr(t-l.Delay, l.Attr) != dataset.TritOne {
				match = false
				break
			}
		}
		if match {
			witnesses = append(witnesses, t)
		}
	}
	return witnesses
}
