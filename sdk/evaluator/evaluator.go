// Package evaluator walks every GNP individual over every safe row of a
// dataset, accumulating per-(individual, process-node, depth) statistics
// into a pre-allocated "statistics cube" that is reset, not reallocated,
// at the start of every generation.
package evaluator

import (
	"math"

	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/genome"
)

// Cell holds the running statistics for one (individual, process node,
// depth) triple. Horizon/directional slices are allocated once at cube
// construction and zeroed in place on Reset, never reallocated mid-run.
type Cell struct {
	Match int
	Eval  int

	// AttrChain/DelayChain are the attribute and delay chosen at this
	// depth on the last row that reached it. AttrChain is 1-based (0 means
	// "unused slot"); DelayChain holds the delay itself. Deterministic
	// given the genome, so identical across every row that reaches this
	// depth.
	AttrChain int
	DelayChain int

	horizonSum   []float64 // length H, index h-1, sum of x(t+h) over matched rows
	horizonSumSq []float64 // length H, index h-1

	PosSum   float64
	PosCount int
	NegSum   float64
	NegCount int

	Quadrant [4]int // (sign x(t+1), sign x(t+2)): ++, +-, -+, --

	Mean  []float64 // finalized per-horizon mean, length H
	Sigma []float64 // finalized per-horizon sigma, length H
}

func newCell(horizon int) Cell {
	return Cell{
		horizonSum:   make([]float64, horizon),
		horizonSumSq: make([]float64, horizon),
		Mean:         make([]float64, horizon),
		Sigma:        make([]float64, horizon),
	}
}

func (c *Cell) reset() {
	c.Match, c.Eval = 0, 0
	c.AttrChain, c.DelayChain = 0, 0
	for i := range c.horizonSum {
		c.horizonSum[i], c.horizonSumSq[i] = 0, 0
		c.Mean[i], c.Sigma[i] = 0, 0
	}
	c.PosSum, c.PosCount, c.NegSum, c.NegCount = 0, 0, 0, 0
	c.Quadrant = [4]int{}
}

// Neg computes the derived no-branch-aware denominator, per spec:
// neg[p][d] = match[p][0] - eval[p][d] + match[p][d].
func (c *Cell) Neg(matchP0 int) int {
	return matchP0 - c.Eval + c.Match
}

// Cube owns the full statistics cube: one Cell per (individual, process
// node, depth), indexed flat to keep it a single contiguous allocation.
type Cube struct {
	M, P, MaxDepth, Horizon int
	cells                   []Cell
}

// NewCube pre-allocates the full statistics cube. The engine calls it once
// per trial, alongside the trial's population; Reset (not NewCube) runs at
// every generation boundary.
func NewCube(m, p, maxDepth, horizon int) *Cube {
	n := m * p * (maxDepth + 1)
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = newCell(horizon)
	}
	return &Cube{M: m, P: p, MaxDepth: maxDepth, Horizon: horizon, cells: cells}
}

func (cu *Cube) index(ind, p, d int) int {
	return (ind*cu.P+p)*(cu.MaxDepth+1) + d
}

// At returns the cell for (ind, p, d).
func (cu *Cube) At(ind, p, d int) *Cell {
	return &cu.cells[cu.index(ind, p, d)]
}

// Reset zeros every cell in place without reallocating any backing array.
func (cu *Cube) Reset() {
	for i := range cu.cells {
		cu.cells[i].reset()
	}
}

// Sweep implements the per-generation evaluator sweep of spec §4.4: for
// every row in the dataset's safe range, for every individual, for every
// process node, walk the judgement chain and accumulate statistics.
func (cu *Cube) Sweep(ds *dataset.Dataset, pop genome.Population) {
	start, end := ds.SafeRange()
	for t := start; t < end; t++ {
		for ind := range pop.Individuals {
			individual := &pop.Individuals[ind]
			for p := 0; p < cu.P; p++ {
				cu.walk(ds, individual, ind, p, t)
			}
		}
	}
}

func (cu *Cube) walk(ds *dataset.Dataset, ind *genome.Individual, indIdx, p, t int) {
	base := cu.At(indIdx, p, 0)
	base.Match++
	base.Eval++

	cur := ind.Successor[p]
	depth := 0
	matchFlag := true
	pCount := ind.ProcessCount()

	for cur >= pCount && depth < cu.MaxDepth {
		depth++
		a := ind.Attribute[cur]
		d := ind.Delay[cur]

		cell := cu.At(indIdx, p, depth)
		cell.AttrChain = a + 1
		cell.DelayChain = d

		if t-d < 0 {
			// Return to the process node; stop this walk without
			// counting this depth at all.
			return
		}

		switch ds.Attr(t-d, a) {
		case dataset.TritOne:
			cell.Eval++
			if matchFlag {
				cell.Match++
				cu.recordMatch(ds, cell, t)
			}
			cur = ind.Successor[cur]
		case dataset.TritZero:
			// Critical: eval must still advance on the no-branch, or
			// Neg degenerates to a near-constant across depths and every
			// support rate downstream is corrupted.
			cell.Eval++
			cur = p // back to the process node; loop condition ends the walk
		default: // missing
			cell.Eval++
			matchFlag = false
			cur = ind.Successor[cur]
		}
	}
}

func (cu *Cube) recordMatch(ds *dataset.Dataset, cell *Cell, t int) {
	for h := 1; h <= cu.Horizon; h++ {
		if v, ok := ds.X(t + h); ok {
			cell.horizonSum[h-1] += v
			cell.horizonSumSq[h-1] += v * v
		}
	}
	if v1, ok := ds.X(t + 1); ok {
		switch {
		case v1 > 0:
			cell.PosSum += v1
			cell.PosCount++
		case v1 < 0:
			cell.NegSum += v1
			cell.NegCount++
		}
	}
	if cu.Horizon >= 2 {
		v1, ok1 := ds.X(t + 1)
		v2, ok2 := ds.X(t + 2)
		if ok1 && ok2 {
			cell.Quadrant[quadrantIndex(v1, v2)]++
		}
	}
}

func quadrantIndex(v1, v2 float64) int {
	idx := 0
	if v1 < 0 {
		idx |= 2
	}
	if v2 < 0 {
		idx |= 1
	}
	return idx
}

// Finalize computes, for every cell with more than one match, the unbiased
// sample mean and sigma for each horizon, clamping variance at 0 before
// the square root. Cells with Match<=1 are left at Mean=Sigma=0 (the
// NumericallyDegenerate case of spec §7.5: never an error, just excluded
// by the rule extractor's quality filter downstream).
func (cu *Cube) Finalize() {
	for i := range cu.cells {
		c := &cu.cells[i]
		n := c.Match
		if n <= 1 {
			continue
		}
		fn := float64(n)
		for h := 0; h < cu.Horizon; h++ {
			mean := c.horizonSum[h] / fn
			variance := (c.horizonSumSq[h] - fn*mean*mean) / (fn - 1)
			if variance < 0 {
				variance = 0
			}
			c.Mean[h] = mean
			c.Sigma[h] = math.Sqrt(variance)
		}
	}
}
