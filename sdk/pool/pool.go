// Package pool holds the global, deduplicated rule pool that trial results
// are merged into.
package pool

import (
	"fmt"

	"github.com/tempoeng/gnprules/sdk/engineerr"
	"github.com/tempoeng/gnprules/sdk/ruleset"
)

// Pool is the deduplicated set of rules discovered across every trial, plus
// capacity accounting.
type Pool struct {
	rules    []ruleset.Rule
	index    map[string]int // normalized literal key -> index into rules
	capacity int
	warned   bool
}

// New returns an empty pool with the given capacity (Nrulemax * Ntry, per
// spec.md §4.8).
func New(capacity int) *Pool {
	return &Pool{index: make(map[string]int), capacity: capacity}
}

// Len returns the number of rules currently in the pool.
func (p *Pool) Len() int { return len(p.rules) }

// Rules returns the pool's rules. The returned slice must not be mutated.
func (p *Pool) Rules() []ruleset.Rule { return p.rules }

// Merge appends trial's rules that are not already present to the pool,
// transferring ownership of each rule's witness slice rather than copying
// it (spec.md §5 "must move ... to avoid double-free/aliasing"). Dedup
// uses Rule.Key, the normalized attribute-sequence key (delays excluded):
// this is the key spec.md §8's invariant names directly ("attribute
// sequences inside the global pool are pairwise distinct"), and it is
// also the only key consistent with §4.5 step 3's first-occurrence-wins
// collapse, which already normalizes away delay differences before a
// rule ever reaches the pool. trial must not be reused by the caller
// after Merge returns. Returns the number of rules actually added, and
// engineerr.ErrPoolExhausted (non-fatal) once capacity is reached; any
// rules beyond that point are dropped and a one-time warning is recorded.
func (p *Pool) Merge(trial []ruleset.Rule) (added int, err error) {
	for i := range trial {
		key := trial[i].Key()
		if _, dup := p.index[key]; dup {
			continue
		}
		if p.capacity > 0 && len(p.rules) >= p.capacity {
			if !p.warned {
				p.warned = true
				err = fmt.Errorf("%w: capacity %d reached after merging %d rules", engineerr.ErrPoolExhausted, p.capacity, added)
			}
			break
		}
		p.index[key] = len(p.rules)
		p.rules = append(p.rules, trial[i]) // moves the Literals/Witnesses slice headers, no copy
		added++
	}
	return added, err
}
