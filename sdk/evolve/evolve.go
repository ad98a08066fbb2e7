// Package evolve drives one generation of the evolutionary loop: ranking,
// elite triplication, crossover, and the four mutation operators.
package evolve

import (
	"math/rand/v2"

	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/fitness"
	"github.com/tempoeng/gnprules/sdk/genome"
	"github.com/tempoeng/gnprules/sdk/history"
)

// crossPairsDefault is the number of (i, i+crossPairs) individual pairs
// crossed in step 3, clamped down for populations too small to hold 20
// non-overlapping pairs within a single elite group.
const crossPairsDefault = 20

// nCrossSwaps is N_CROSS from spec.md §4.7 step 3: the number of
// single-point swaps performed per pair, each picking a fresh random
// judgement node, distinct from the pair count above.
const nCrossSwaps = 20

// Generation implements spec.md §4.7 steps 1-8 in order: rank, triplicate
// the top M/3 into three contiguous groups, cross group 0 against itself,
// mutate process successors population-wide, mutate judgement successors
// on group 1, adaptively mutate delays on groups 1+2, adaptively mutate
// attributes on group 2, and advance the history ledgers.
func Generation(pop *genome.Population, scorer *fitness.Scorer, hist *history.Tracker, rng *rand.Rand, generation int, cfg config.EvolutionParams) {
	third := cfg.M / 3

	rank := scorer.Rank()
	triplicate(pop, rank, third)

	crossPairs := crossPairsDefault
	if crossPairs > third/2 {
		crossPairs = third / 2
	}
	for i := 0; i < crossPairs; i++ {
		a, b := &pop.Individuals[i], &pop.Individuals[i+crossPairs]
		for s := 0; s < nCrossSwaps; s++ {
			node := pop.Config.P + rng.IntN(pop.Config.J)
			genome.SwapGene(a, b, node)
		}
	}

	for i := range pop.Individuals {
		pop.Individuals[i].MutateProcessSuccessor(cfg.MurateProcess, rng)
	}

	g1start, g1end := third, 2*third
	for i := g1start; i < g1end; i++ {
		pop.Individuals[i].MutateJudgementSuccessor(cfg.MurateJudge, rng)
	}

	g2end := cfg.M
	for i := g1start; i < g2end; i++ {
		pick := delayPick(hist)
		pop.Individuals[i].MutateDelay(cfg.MurateDelay, cfg.DMax, pick, rng)
	}

	for i := g1end; i < g2end; i++ {
		pick := attributePick(hist)
		pop.Individuals[i].MutateAttribute(cfg.MurateAttr, cfg.K, pick, rng)
	}

	hist.Advance(generation)
}

// triplicate copies the top third fittest individuals (by rank, fittest
// first) into three contiguous groups, per spec.md §4.7 step 2's fixed
// layout: group 0 = [0,third), group 1 = [third,2*third), group 2 =
// [2*third,3*third). When M is not a multiple of 3, the last M-3*third
// individuals are not overwritten and keep their current genes.
func triplicate(pop *genome.Population, rank []int, third int) {
	elites := make([]genome.Individual, third)
	for j := 0; j < third; j++ {
		elites[j] = pop.Individuals[rank[j]].Clone()
	}
	for j := 0; j < third; j++ {
		genome.Copy(&pop.Individuals[j], &elites[j])
		genome.Copy(&pop.Individuals[j+third], &elites[j])
		genome.Copy(&pop.Individuals[j+2*third], &elites[j])
	}
}

// delayPick returns a closure sampling the delay ledger's weighted pick.
// PickWeighted itself falls back to a uniform pick while the ledger's
// tracking sum is zero.
func delayPick(hist *history.Tracker) func(*rand.Rand) int {
	return func(rng *rand.Rand) int { return hist.Delay.PickWeighted(rng) }
}

func attributePick(hist *history.Tracker) func(*rand.Rand) int {
	return func(rng *rand.Rand) int { return hist.Attribute.PickWeighted(rng) }
}
