// Package history tracks which time delays and attributes have recently
// appeared in good rules, so mutation operators can bias future sampling
// toward categories that have paid off. The statistics cube and fitness
// scores reset every generation; these ledgers carry reward across a
// sliding window of generations.
package history

import "math/rand/v2"

// HistGenerations is the width of the sliding window of generation buckets
// kept per category.
const HistGenerations = 5

// Ledger tracks weighted reward over a sliding window of generations for
// one category domain (e.g. delay values, or attribute ids). It keeps a
// running total in lockstep with the ring so PickWeighted never has to
// rescan the window, the same incremental-accumulator discipline as a
// regret table's running strategy-sum normalizer.
type Ledger struct {
	// buckets is ordered oldest-first; buckets[len-1] is the bucket Reward
	// writes into for the current generation.
	buckets [][]float64
	total   float64 // sum over every bucket and category, kept incrementally
	domain  int
}

// NewLedger returns a ledger over the given category domain size, with
// every generation bucket initialized to zero.
func NewLedger(domain int) *Ledger {
	l := &Ledger{domain: domain, buckets: make([][]float64, HistGenerations)}
	for i := range l.buckets {
		l.buckets[i] = make([]float64, domain)
	}
	return l
}

// Reward adds weight to category's current-generation bucket. Callers pass
// 3 for a newly-accepted high-quality rule's categories and 1 for a
// duplicate rule's categories, per the reference weighting.
func (l *Ledger) Reward(category int, weight float64) {
	if category < 0 || category >= l.domain {
		return
	}
	l.buckets[len(l.buckets)-1][category] += weight
	l.total += weight
}

// Advance rotates the ring at a generation boundary: the oldest bucket is
// dropped and a new bucket becomes the current one, seeded with 1 so a
// category that has never been rewarded still has some chance of being
// picked, or seeded with 2 every 5th generation to keep the tail from
// decaying to nothing under the rolling-window replacement schedule.
func (l *Ledger) Advance(generation int) {
	dropped := l.buckets[0]
	for _, v := range dropped {
		l.total -= v
	}

	seed := 1.0
	if generation > 0 && generation%HistGenerations == 0 {
		seed = 2.0
	}
	fresh := make([]float64, l.domain)
	for i := range fresh {
		fresh[i] = seed
	}
	l.total += seed * float64(l.domain)

	l.buckets = append(l.buckets[1:], fresh)
}

// PickWeighted samples a category with probability proportional to its
// tracking sum across the window. Falls back to a uniform pick when the
// tracking sum is zero (e.g. before the first Advance).
func (l *Ledger) PickWeighted(rng *rand.Rand) int {
	if l.total <= 0 {
		return rng.IntN(l.domain)
	}
	target := rng.Float64() * l.total
	sum := 0.0
	for _, bucket := range l.buckets {
		for cat, v := range bucket {
			sum += v
			if sum >= target {
				return cat
			}
		}
	}
	return l.domain - 1
}

// Tracker pairs the delay and attribute ledgers the evolution driver reads
// from and the rule extractor rewards.
type Tracker struct {
	Delay     *Ledger
	Attribute *Ledger
}

// NewTracker builds a tracker for the given delay domain [0, dMax] and
// attribute domain [0, k).
func NewTracker(dMax, k int) *Tracker {
	return &Tracker{
		Delay:     NewLedger(dMax + 1),
		Attribute: NewLedger(k),
	}
}

// Advance rotates both ledgers at a generation boundary.
func (t *Tracker) Advance(generation int) {
	t.Delay.Advance(generation)
	t.Attribute.Advance(generation)
}
