// Package genome implements the GNP individual and population: a directed
// graph genome represented as flat, fixed-length arrays indexed by node id,
// per the arena-and-index convention the engine uses throughout (no pointer
// graph, no heap-allocated node objects; cycles are just successor ids that
// loop back).
package genome

import "math/rand/v2"

// Config sizes a population: P process (start) nodes, J judgement nodes,
// M individuals, K attributes and D_max the maximum delay.
type Config struct {
	M, P, J, K, DMax int
}

// Individual is one GNP genome: two arrays of length P+J (only judgement
// positions are meaningful for Attribute/Delay) plus one successor array
// covering both kinds of node. Successor targets are always judgement-node
// indices in [P, P+J).
type Individual struct {
	Attribute []int
	Delay     []int
	Successor []int
	pCount    int // number of process nodes; judgement nodes occupy [pCount, len)
}

// NodeCount returns P+J.
func (ind *Individual) NodeCount() int { return len(ind.Successor) }

// newIndividual allocates the three arrays for the given config, zeroed.
func newIndividual(cfg Config) Individual {
	n := cfg.P + cfg.J
	return Individual{
		Attribute: make([]int, n),
		Delay:     make([]int, n),
		Successor: make([]int, n),
		pCount:    cfg.P,
	}
}

// randomize fills every node with uniform-random genes per the reference
// initialization: successors uniform over the judgement-node range,
// attributes uniform over [0,K), delays uniform over [0,D_max].
func (ind *Individual) randomize(cfg Config, rng *rand.Rand) {
	for i := range ind.Successor {
		ind.Successor[i] = cfg.P + rng.IntN(cfg.J)
	}
	for i := cfg.P; i < cfg.P+cfg.J; i++ {
		ind.Attribute[i] = rng.IntN(cfg.K)
		ind.Delay[i] = rng.IntN(cfg.DMax + 1)
	}
}

// NewIndividual builds an individual directly from explicit gene arrays,
// for hand-constructed test fixtures and deserialization; pCount fixes the
// process/judgement split the same way newIndividual does for randomized
// genomes. Callers own the slices passed in.
func NewIndividual(processCount int, attribute, delay, successor []int) Individual {
	return Individual{Attribute: attribute, Delay: delay, Successor: successor, pCount: processCount}
}

// Copy deep-copies src's genes into dst, which must have the same shape.
func Copy(dst, src *Individual) {
	copy(dst.Attribute, src.Attribute)
	copy(dst.Delay, src.Delay)
	copy(dst.Successor, src.Successor)
}

// Clone returns an independent deep copy of ind.
func (ind *Individual) Clone() Individual {
	out := Individual{
		Attribute: append([]int(nil), ind.Attribute...),
		Delay:     append([]int(nil), ind.Delay...),
		Successor: append([]int(nil), ind.Successor...),
		pCount:    ind.pCount,
	}
	return out
}

// SwapGene exchanges the (attribute, successor, delay) triple at judgement
// node id between a and b. This is the crossover primitive the evolution
// driver's single-point swap step uses.
func SwapGene(a, b *Individual, node int) {
	a.Attribute[node], b.Attribute[node] = b.Attribute[node], a.Attribute[node]
	a.Delay[node], b.Delay[node] = b.Delay[node], a.Delay[node]
	a.Successor[node], b.Successor[node] = b.Successor[node], a.Successor[node]
}

// Population is M individuals sharing a config.
type Population struct {
	Config      Config
	Individuals []Individual
}

// NewPopulation returns a population of cfg.M individuals with uniform
// random genes.
func NewPopulation(cfg Config, rng *rand.Rand) Population {
	pop := Population{Config: cfg, Individuals: make([]Individual, cfg.M)}
	for i := range pop.Individuals {
		pop.Individuals[i] = newIndividual(cfg)
		pop.Individuals[i].randomize(cfg, rng)
	}
	return pop
}

// MutateProcessSuccessor replaces every process node's successor uniformly
// at random with probability 1/rate ("1-in-r" semantics; rate<=1 means
// always, matching the reference process-node mutation that always fires).
func (ind *Individual) MutateProcessSuccessor(rate int, rng *rand.Rand) {
	for p := 0; p < ind.ProcessCount(); p++ {
		if fires(rate, rng) {
			ind.Successor[p] = ind.judgementBase() + rng.IntN(ind.judgementCount())
		}
	}
}

// MutateJudgementSuccessor replaces each judgement node's successor with
// probability 1/rate.
func (ind *Individual) MutateJudgementSuccessor(rate int, rng *rand.Rand) {
	base, n := ind.judgementBase(), ind.judgementCount()
	for j := base; j < base+n; j++ {
		if fires(rate, rng) {
			ind.Successor[j] = base + rng.IntN(n)
		}
	}
}

// MutateDelay replaces each judgement node's delay with probability
// 1/rate. If pick is non-nil it supplies the new delay (adaptive bias);
// otherwise the replacement is plain uniform over [0,dMax].
func (ind *Individual) MutateDelay(rate, dMax int, pick func(*rand.Rand) int, rng *rand.Rand) {
	base, n := ind.judgementBase(), ind.judgementCount()
	for j := base; j < base+n; j++ {
		if fires(rate, rng) {
			if pick != nil {
				ind.Delay[j] = pick(rng)
			} else {
				ind.Delay[j] = rng.IntN(dMax + 1)
			}
		}
	}
}

// MutateAttribute replaces each judgement node's attribute with probability
// 1/rate, via the weighted pick function (adaptive bias) when provided.
func (ind *Individual) MutateAttribute(rate, k int, pick func(*rand.Rand) int, rng *rand.Rand) {
	base, n := ind.judgementBase(), ind.judgementCount()
	for j := base; j < base+n; j++ {
		if fires(rate, rng) {
			if pick != nil {
				ind.Attribute[j] = pick(rng)
			} else {
				ind.Attribute[j] = rng.IntN(k)
			}
		}
	}
}

// ProcessCount and JudgementCount expose the node-id split recorded at
// construction time: process nodes occupy [0, ProcessCount), judgement
// nodes occupy [ProcessCount, NodeCount).
func (ind *Individual) ProcessCount() int   { return ind.pCount }
func (ind *Individual) judgementBase() int  { return ind.pCount }
func (ind *Individual) judgementCount() int { return len(ind.Successor) - ind.pCount }

// fires reports whether a 1-in-rate probability event occurs this call.
// rate<=1 always fires, matching the reference process-node mutation rate
// of "1/1".
func fires(rate int, rng *rand.Rand) bool {
	if rate <= 1 {
		return true
	}
	return rng.IntN(rate) == 0
}
