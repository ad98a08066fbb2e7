package evolve

import (
	"math/rand/v2"
	"testing"

	"github.com/tempoeng/gnprules/sdk/config"
	"github.com/tempoeng/gnprules/sdk/fitness"
	"github.com/tempoeng/gnprules/sdk/genome"
	"github.com/tempoeng/gnprules/sdk/history"
)

func smallSetup(t *testing.T) (*genome.Population, *fitness.Scorer, *history.Tracker, config.EvolutionParams) {
	t.Helper()
	gcfg := genome.Config{M: 9, P: 2, J: 8, K: 3, DMax: 2}
	rng := rand.New(rand.NewPCG(1, 1))
	pop := genome.NewPopulation(gcfg, rng)
	scorer := fitness.NewScorer(gcfg.M)
	hist := history.NewTracker(gcfg.DMax, gcfg.K)
	ecfg := config.EvolutionParams{
		M: gcfg.M, P: gcfg.P, J: gcfg.J, K: gcfg.K, DMax: gcfg.DMax,
		MurateProcess: 1, MurateJudge: 2, MurateDelay: 2, MurateAttr: 2,
	}
	return &pop, scorer, hist, ecfg
}

func TestTriplicateFillsExactGroupBoundaries(t *testing.T) {
	pop, scorer, _, _ := smallSetup(t)
	third := pop.Config.M / 3

	// Make individual 0 obviously the fittest so it's elite #1 in rank.
	scorer.Add(0, 1000)
	rank := scorer.Rank()
	if rank[0] != 0 {
		t.Fatalf("expected individual 0 to rank first, got rank=%v", rank)
	}

	before := pop.Individuals[0].Clone()
	triplicate(pop, rank, third)

	for _, group := range []int{0, third, 2 * third} {
		if pop.Individuals[group].Attribute[pop.Config.P] != before.Attribute[pop.Config.P] {
			t.Fatalf("group starting at %d does not carry the top elite's genes", group)
		}
	}
}

func TestGenerationPreservesPopulationShape(t *testing.T) {
	pop, scorer, hist, ecfg := smallSetup(t)
	rng := rand.New(rand.NewPCG(2, 2))

	for i := 0; i < pop.Config.M; i++ {
		scorer.Add(i, float64(pop.Config.M-i))
	}

	Generation(pop, scorer, hist, rng, 1, ecfg)

	if len(pop.Individuals) != pop.Config.M {
		t.Fatalf("Generation must not change population size, got %d", len(pop.Individuals))
	}
	for _, ind := range pop.Individuals {
		if ind.NodeCount() != pop.Config.P+pop.Config.J {
			t.Fatalf("Generation must preserve node count, got %d", ind.NodeCount())
		}
	}
}

func TestGenerationDeterministicGivenSameSeed(t *testing.T) {
	pop1, scorer1, hist1, ecfg := smallSetup(t)
	pop2, scorer2, hist2, _ := smallSetup(t)
	rng1 := rand.New(rand.NewPCG(5, 5))
	rng2 := rand.New(rand.NewPCG(5, 5))

	for i := 0; i < pop1.Config.M; i++ {
		scorer1.Add(i, float64(i))
		scorer2.Add(i, float64(i))
	}

	Generation(pop1, scorer1, hist1, rng1, 1, ecfg)
	Generation(pop2, scorer2, hist2, rng2, 1, ecfg)

	for i := range pop1.Individuals {
		a, b := pop1.Individuals[i], pop2.Individuals[i]
		for j := range a.Successor {
			if a.Successor[j] != b.Successor[j] || a.Attribute[j] != b.Attribute[j] || a.Delay[j] != b.Delay[j] {
				t.Fatalf("individual %d diverged between identically-seeded runs at node %d", i, j)
			}
		}
	}
}
