package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/dataset"
)

// constantDataset builds an N-row dataset where attribute 0 is always 1,
// attribute 1 is always 0, and x is constant, per spec.md §8 scenario 1.
func constantDataset(t *testing.T, n, dMax, horizon int) *dataset.Dataset {
	t.Helper()
	attrs := make([][]uint8, n)
	x := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		attrs[i] = []uint8{1, 0}
		x[i] = 0
		ts[i] = "t"
	}
	ds, err := dataset.New(attrs, x, ts, []string{"a0", "a1"}, dMax, horizon)
	require.NoError(t, err)
	return ds
}

func smallConfig() config.Config {
	cfg := config.Default()
	cfg.M = 12
	cfg.P = 2
	cfg.J = 6
	cfg.MaxDepth = 3
	cfg.Ntry = 2
	cfg.Generations = 5
	cfg.MinAttrs = 1
	cfg.MinSupportCount = 1
	cfg.MinSup = 0.01
	cfg.MaxSigma = 10
	cfg.MinMean = 0.0
	cfg.MinConcentration = 0.0
	cfg.PoolCap = 500
	cfg.Workers = 1
	return cfg
}

// TestRunDeterministicGivenSameSeed pins spec.md §8's determinism
// requirement: the same config and seed against the same dataset must
// yield byte-identical (here: content-identical) rule pools, whether run
// sequentially or with multiple workers.
func TestRunDeterministicGivenSameSeed(t *testing.T) {
	ds := constantDataset(t, 30, 2, 1)

	seqCfg := smallConfig()
	seqCfg.Workers = 1
	seqEngine, err := New(seqCfg, ds, 42)
	require.NoError(t, err)
	seqPool, err := seqEngine.Run(context.Background())
	require.NoError(t, err)

	parCfg := smallConfig()
	parCfg.Workers = 4
	parEngine, err := New(parCfg, ds, 42)
	require.NoError(t, err)
	parPool, err := parEngine.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, seqPool.Len(), parPool.Len())
	for i, r := range seqPool.Rules() {
		require.Equal(t, r.Key(), parPool.Rules()[i].Key())
		require.Equal(t, r.SupportCount, parPool.Rules()[i].SupportCount)
	}
}

// TestRunTrivialShapeScenario exercises spec.md §8 scenario 1 end to end:
// a constant dataset should still produce a well-formed (possibly empty)
// pool without error, and any discovered rule's witnesses must lie in the
// dataset's safe range.
func TestRunTrivialShapeScenario(t *testing.T) {
	ds := constantDataset(t, 20, 1, 1)
	cfg := smallConfig()
	eng, err := New(cfg, ds, 7)
	require.NoError(t, err)

	p, err := eng.Run(context.Background())
	require.NoError(t, err)

	start, end := ds.SafeRange()
	for _, r := range p.Rules() {
		for _, w := range r.Witnesses {
			require.GreaterOrEqual(t, w, start)
			require.Less(t, w, end)
		}
	}
}

// TestRunRespectsContextCancellation confirms a cancelled context stops a
// sequential run before consuming every configured trial.
func TestRunRespectsContextCancellation(t *testing.T) {
	ds := constantDataset(t, 20, 1, 1)
	cfg := smallConfig()
	cfg.Ntry = 50
	cfg.Workers = 1
	eng, err := New(cfg, ds, 3)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Run(ctx)
	require.Error(t, err)
}

// TestRunReportsProgress confirms WithProgress is invoked with a
// non-decreasing trial counter.
func TestRunReportsProgress(t *testing.T) {
	ds := constantDataset(t, 20, 1, 1)
	cfg := smallConfig()
	cfg.ProgressEvery = 1
	eng, err := New(cfg, ds, 9)
	require.NoError(t, err)

	var last int
	eng.WithProgress(func(trial int, rulesFound int) {
		require.GreaterOrEqual(t, trial, last)
		last = trial
	})
	_, err = eng.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, cfg.Ntry, last)
}

// TestNewRejectsEmptyDataset confirms engine.New refuses a dataset with no
// attribute columns rather than allocating a zero-width cube.
func TestNewRejectsEmptyDataset(t *testing.T) {
	ds, err := dataset.New(nil, nil, nil, nil, 0, 1)
	require.NoError(t, err)
	_, err = New(smallConfig(), ds, 1)
	require.Error(t, err)
}

// TestNewAllocationGuardConvertsPanicToError starves the cube allocation
// with an unreasonable shape and confirms guardedAlloc turns the resulting
// panic into engineerr.ErrAllocationFailure rather than crashing the run.
func TestNewAllocationGuardConvertsPanicToError(t *testing.T) {
	ds := constantDataset(t, 5, 0, 1)
	cfg := smallConfig()
	cfg.M = 1 << 31
	cfg.P = 1 << 31
	cfg.MaxDepth = 1 << 31
	_, err := New(cfg, ds, 1)
	require.Error(t, err)
}
