// Package fitness holds the per-individual running fitness sum the rule
// extractor feeds and the evolution driver ranks by at generation end.
package fitness

import "sort"

// Scorer holds one running fitness value per individual, pre-loaded with
// a tiny index-proportional bias so ranking is always a strict order
// (never ties, never order-dependent on Go's non-stable sort choices).
type Scorer struct {
	values []float64
}

// tieBreakEps is the per-index bias subtracted at construction, per
// spec.md §4.6 ("pre-loaded with idx x -eps, eps ~ 1e-5").
const tieBreakEps = 1e-5

// NewScorer returns a scorer for n individuals, each biased by -idx*eps.
func NewScorer(n int) *Scorer {
	s := &Scorer{values: make([]float64, n)}
	for i := range s.values {
		s.values[i] = -float64(i) * tieBreakEps
	}
	return s
}

// Add accumulates delta onto individual idx's fitness.
func (s *Scorer) Add(idx int, delta float64) {
	s.values[idx] += delta
}

// Value returns individual idx's current fitness.
func (s *Scorer) Value(idx int) float64 { return s.values[idx] }

// Len returns the number of individuals tracked.
func (s *Scorer) Len() int { return len(s.values) }

// Reset re-applies the tie-break bias to every individual, discarding
// accumulated fitness. Called at the start of every generation's
// extraction pass.
func (s *Scorer) Reset() {
	for i := range s.values {
		s.values[i] = -float64(i) * tieBreakEps
	}
}

// Rank returns individual indices in descending-fitness order: Rank()[0]
// is the fittest individual. The tie-break bias guarantees a strict total
// order, so this sort is deterministic regardless of the dataset's actual
// fitness ties.
func (s *Scorer) Rank() []int {
	idx := make([]int, len(s.values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return s.values[idx[a]] > s.values[idx[b]]
	})
	return idx
}
