package evaluator

import (
	"math/rand/v2"
	"testing"

	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/genome"
)

// buildDataset constructs a tiny one-attribute dataset where attribute 0 is
// 1 on every row, so a single-literal rule at depth 1 always matches, and
// the target rises by exactly 1.0 on every step so mean/sigma are trivial
// to check by hand.
func buildDataset(t *testing.T, n int) *dataset.Dataset {
	t.Helper()
	attrs := make([][]uint8, n)
	x := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		attrs[i] = []uint8{1}
		x[i] = float64(i)
		ts[i] = "t"
	}
	ds, err := dataset.New(attrs, x, ts, []string{"a"}, 1, 2)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	return ds
}

// onePop builds a population of one individual with P=1, J=1: the sole
// process node always branches to the sole judgement node, which reads
// attribute 0 at delay 1.
func onePop() genome.Population {
	cfg := genome.Config{M: 1, P: 1, J: 1, K: 1, DMax: 1}
	// process node 0 -> judgement node 1; judgement loops to itself
	ind := genome.NewIndividual(cfg.P, []int{0, 0}, []int{0, 1}, []int{1, 1})
	return genome.Population{Config: cfg, Individuals: []genome.Individual{ind}}
}

func TestSweepMatchNeverExceedsBaseMatch(t *testing.T) {
	ds := buildDataset(t, 10)
	pop := onePop()
	cu := NewCube(1, 1, 1, ds.Horizon())
	cu.Sweep(ds, pop)

	base := cu.At(0, 0, 0)
	d1 := cu.At(0, 0, 1)
	if d1.Match > base.Match {
		t.Fatalf("depth-1 match %d exceeds base match %d", d1.Match, base.Match)
	}
	if d1.Eval > base.Eval {
		t.Fatalf("depth-1 eval %d exceeds base eval %d", d1.Eval, base.Eval)
	}
	start, end := ds.SafeRange()
	if base.Match != end-start {
		t.Fatalf("base match = %d, want %d safe rows", base.Match, end-start)
	}
	if d1.Match != end-start {
		t.Fatalf("expected every row to match since attribute 0 is always 1, got %d/%d", d1.Match, end-start)
	}
}

// TestSweepNoBranchAdvancesEval reproduces the load-bearing "eval++ on the
// no-branch" scenario: when the judgement node's attribute reads 0 the walk
// returns to the process node, but eval for that depth must still have
// counted the visit.
func TestSweepNoBranchAdvancesEval(t *testing.T) {
	n := 10
	attrs := make([][]uint8, n)
	x := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		attrs[i] = []uint8{0} // attribute always reads 0: every walk takes the no-branch
		x[i] = float64(i)
		ts[i] = "t"
	}
	ds, err := dataset.New(attrs, x, ts, []string{"a"}, 1, 1)
	if err != nil {
		t.Fatalf("dataset.New: %v", err)
	}
	pop := onePop()
	cu := NewCube(1, 1, 1, ds.Horizon())
	cu.Sweep(ds, pop)

	base := cu.At(0, 0, 0)
	d1 := cu.At(0, 0, 1)
	start, end := ds.SafeRange()
	if d1.Eval != end-start {
		t.Fatalf("expected eval to advance on every no-branch row, got eval=%d want %d", d1.Eval, end-start)
	}
	if d1.Match != 0 {
		t.Fatalf("no-branch rows must never count as matches, got match=%d", d1.Match)
	}
	if neg := d1.Neg(base.Match); neg != base.Match-d1.Eval+d1.Match {
		t.Fatalf("Neg formula mismatch: got %d", neg)
	}
}

func TestFinalizeComputesMeanAndClampsVariance(t *testing.T) {
	ds := buildDataset(t, 10)
	pop := onePop()
	cu := NewCube(1, 1, 1, ds.Horizon())
	cu.Sweep(ds, pop)
	cu.Finalize()

	d1 := cu.At(0, 0, 1)
	if d1.Match <= 1 {
		t.Fatalf("expected multiple matches to exercise Finalize, got %d", d1.Match)
	}
	for h, mean := range d1.Mean {
		if mean <= 0 {
			t.Fatalf("expected positive mean at horizon %d since x is strictly increasing, got %v", h+1, mean)
		}
	}
	for _, sigma := range d1.Sigma {
		if sigma < 0 {
			t.Fatalf("sigma must never be negative, got %v", sigma)
		}
	}
}

func TestFinalizeSkipsDegenerateCells(t *testing.T) {
	ds := buildDataset(t, 10)
	cu := NewCube(1, 1, 1, ds.Horizon())
	cu.Finalize() // no Sweep: every cell has Match=0

	d1 := cu.At(0, 0, 1)
	for _, mean := range d1.Mean {
		if mean != 0 {
			t.Fatalf("degenerate cell must leave mean at 0, got %v", mean)
		}
	}
}

func TestResetZeroesWithoutReallocating(t *testing.T) {
	ds := buildDataset(t, 10)
	pop := onePop()
	cu := NewCube(1, 1, 1, ds.Horizon())
	cu.Sweep(ds, pop)

	before := cu.At(0, 0, 1)
	beforePtr := &before.horizonSum[0]
	cu.Reset()
	after := cu.At(0, 0, 1)
	afterPtr := &after.horizonSum[0]
	if beforePtr != afterPtr {
		t.Fatalf("Reset reallocated a cell's horizon slice instead of zeroing in place")
	}
	if after.Match != 0 || after.Eval != 0 {
		t.Fatalf("Reset left nonzero counters: match=%d eval=%d", after.Match, after.Eval)
	}
	if after.horizonSum[0] != 0 {
		t.Fatalf("Reset left nonzero horizon sum")
	}
}

func TestSweepDeterministicAcrossRepeatedRuns(t *testing.T) {
	ds := buildDataset(t, 20)
	cfg := genome.Config{M: 3, P: 2, J: 4, K: 2, DMax: 2}
	rng1 := rand.New(rand.NewPCG(11, 22))
	rng2 := rand.New(rand.NewPCG(11, 22))
	pop1 := genome.NewPopulation(cfg, rng1)
	pop2 := genome.NewPopulation(cfg, rng2)

	cu1 := NewCube(cfg.M, cfg.P, 3, ds.Horizon())
	cu2 := NewCube(cfg.M, cfg.P, 3, ds.Horizon())
	cu1.Sweep(ds, pop1)
	cu2.Sweep(ds, pop2)

	for i := range cu1.cells {
		if cu1.cells[i].Match != cu2.cells[i].Match || cu1.cells[i].Eval != cu2.cells[i].Eval {
			t.Fatalf("cell %d diverged between identically-seeded runs", i)
		}
	}
}
