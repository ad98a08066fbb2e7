// Package engine wires the rule-mining core's components (dataset,
// history, genome, evaluator, ruleset, fitness, evolve, pool) into a
// single Engine value, with no ambient singletons. The Engine holds the
// dataset and configuration; every trial builds its own genome arrays,
// statistics cube, delay/attribute histories and RNG.
package engine

import (
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/tempoeng/gnprules/internal/randutil"
	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/dataset"
	"github.com/tempoeng/gnprules/sdk/engineerr"
	"github.com/tempoeng/gnprules/sdk/evaluator"
	"github.com/tempoeng/gnprules/sdk/evolve"
	"github.com/tempoeng/gnprules/sdk/fitness"
	"github.com/tempoeng/gnprules/sdk/genome"
	"github.com/tempoeng/gnprules/sdk/history"
	"github.com/tempoeng/gnprules/sdk/pool"
	"github.com/tempoeng/gnprules/sdk/ruleset"
)

// goldenRatio64 mixes a trial index into the master seed the same way
// internal/randutil mixes the two halves of a PCG seed.
const goldenRatio64 = 0x9e3779b97f4a7c15

// ProgressFunc receives a 1-based trial count and the number of rules the
// trials up to that count produced, summed per trial before the global
// pool's deduplication. Run calls it after each trial on the sequential
// path and once after the pool merge on both paths; a call is skipped
// unless the trial count is a multiple of cfg.ProgressEvery.
type ProgressFunc func(trial int, rulesFound int)

// Engine owns the dataset, configuration, and run-scoped state needed to
// run every trial. It holds no mutable per-trial state itself; that lives
// on the stack of each runTrial call so trials can run sequentially or
// concurrently from the same Engine value.
type Engine struct {
	cfg config.Config
	ds  *dataset.Dataset

	genomeCfg genome.Config
	quality   config.QualityParams
	evo       config.EvolutionParams

	progress ProgressFunc
}

// New validates cfg against ds's shape and returns a ready-to-run Engine.
// seed overrides cfg.Seed when non-zero.
func New(cfg config.Config, ds *dataset.Dataset, seed int64) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", engineerr.ErrBadShape, err)
	}
	if ds.K() == 0 {
		return nil, fmt.Errorf("%w: dataset has no attribute columns", engineerr.ErrBadShape)
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	cfg.K = ds.K()
	cfg.DMax = ds.DMax()
	cfg.Horizon = ds.Horizon()

	if err := guardedAlloc(cfg); err != nil {
		return nil, err
	}

	return &Engine{
		cfg:       cfg,
		ds:        ds,
		genomeCfg: genome.Config{M: cfg.M, P: cfg.P, J: cfg.J, K: cfg.K, DMax: cfg.DMax},
		quality:   cfg.QualityParams(),
		evo:       cfg.EvolutionParams(),
	}, nil
}

// guardedAlloc pre-flights the cube size the way runTrial will allocate it
// for every trial, returning engineerr.ErrAllocationFailure when the cell
// count overflows int and converting a panic from an oversized or OOM
// make() into the same error. This is the one recover in the codebase,
// kept as narrow as the single allocation it guards.
func guardedAlloc(cfg config.Config) (err error) {
	size := uint64(1)
	for _, f := range []int{cfg.M, cfg.P, cfg.MaxDepth + 1} {
		hi, lo := bits.Mul64(size, uint64(f))
		if f < 0 || hi != 0 || lo > math.MaxInt {
			return fmt.Errorf("%w: cube size M=%d P=%d MaxDepth=%d overflows int",
				engineerr.ErrAllocationFailure, cfg.M, cfg.P, cfg.MaxDepth)
		}
		size = lo
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: cube size M=%d P=%d MaxDepth=%d H=%d: %v",
				engineerr.ErrAllocationFailure, cfg.M, cfg.P, cfg.MaxDepth, cfg.Horizon, r)
		}
	}()
	_ = evaluator.NewCube(cfg.M, cfg.P, cfg.MaxDepth, cfg.Horizon)
	return nil
}

// WithProgress sets the callback Run reports progress through (see
// ProgressFunc for when it is called).
func (e *Engine) WithProgress(fn ProgressFunc) { e.progress = fn }

// Run executes cfg.Ntry trials and merges their results into one global
// pool. With cfg.Workers<=1 trials run sequentially on the calling
// goroutine. With cfg.Workers>1 trials run concurrently via errgroup, each
// with a private RNG and statistics cube; results are still merged into
// the pool strictly in trial order afterward, so the two paths produce
// identical pools for the same seed (spec.md §5 "must not change results
// when unused").
func (e *Engine) Run(ctx context.Context) (*pool.Pool, error) {
	results := make([][]ruleset.Rule, e.cfg.Ntry)

	if e.cfg.Workers <= 1 {
		for trial := 0; trial < e.cfg.Ntry; trial++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rng := trialRNG(e.cfg.Seed, trial)
			results[trial] = e.runTrial(rng)
			e.reportProgress(trial+1, results)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.cfg.Workers)
		for trial := 0; trial < e.cfg.Ntry; trial++ {
			trial := trial
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				rng := trialRNG(e.cfg.Seed, trial)
				results[trial] = e.runTrial(rng)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	p := pool.New(e.cfg.PoolCap)
	for trial, rules := range results {
		added, err := p.Merge(rules)
		if err != nil {
			// Non-fatal: the pool is exhausted, stop merging further
			// trials' rules but keep whatever was already merged.
			e.reportProgress(trial+1, results[:trial+1])
			return p, nil
		}
		_ = added
	}
	e.reportProgress(e.cfg.Ntry, results)
	return p, nil
}

func (e *Engine) reportProgress(trial int, results [][]ruleset.Rule) {
	if e.progress == nil || e.cfg.ProgressEvery <= 0 || trial%e.cfg.ProgressEvery != 0 {
		return
	}
	n := 0
	for _, r := range results {
		n += len(r)
	}
	e.progress(trial, n)
}

// trialRNG derives a private, deterministic RNG for a trial from the
// master seed and trial index, per spec.md §5.
func trialRNG(seed int64, trial int) *rand.Rand {
	return randutil.New(seed ^ int64(uint64(trial+1)*goldenRatio64))
}

// runTrial runs one full trial: a fresh population and statistics cube,
// cfg.Generations generations of evaluate-extract-evolve, returning the
// trial's accumulated rule list. Shared by both the sequential and
// concurrent Run code paths so they cannot silently diverge.
func (e *Engine) runTrial(rng *rand.Rand) []ruleset.Rule {
	pop := genome.NewPopulation(e.genomeCfg, rng)
	cube := evaluator.NewCube(e.cfg.M, e.cfg.P, e.cfg.MaxDepth, e.cfg.Horizon)
	hist := history.NewTracker(e.cfg.DMax, e.cfg.K)
	scorer := fitness.NewScorer(e.cfg.M)

	var trialRules []ruleset.Rule
	seen := make(map[string]bool) // per-trial rule pool, spec.md §4.5 step 3

	for gen := 0; gen < e.cfg.Generations; gen++ {
		cube.Reset()
		cube.Sweep(e.ds, pop)
		cube.Finalize()

		scorer.Reset()
		rules := ruleset.Extract(cube, e.ds, e.quality, hist, scorer, seen)
		trialRules = append(trialRules, rules...)
		if e.cfg.PoolCap > 0 && len(trialRules) >= e.cfg.PoolCap {
			break
		}

		if gen < e.cfg.Generations-1 {
			evolve.Generation(&pop, scorer, hist, rng, gen, e.evo)
		}
	}
	return trialRules
}
