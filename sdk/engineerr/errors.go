// Package engineerr names the error taxonomy the mining engine raises.
// It groups errors, not types: most are plain sentinels meant to be matched
// with errors.Is after a component wraps them with context via fmt.Errorf.
package engineerr

import "errors"

var (
	// ErrBadShape signals that the attribute matrix, target vector and
	// timestamp vector disagree in length, or that K/N are otherwise
	// inconsistent. Fatal for the affected dataset; batch-mode callers
	// should log and skip rather than abort the whole run.
	ErrBadShape = errors.New("dataset: inconsistent shape")

	// ErrMissingInput signals that a requested dataset file does not exist.
	// Non-fatal: the caller logs and skips the dataset.
	ErrMissingInput = errors.New("dataset: input file not found")

	// ErrAllocationFailure signals that a statistics cube or similar
	// pre-allocated buffer could not be sized as requested. Fatal.
	ErrAllocationFailure = errors.New("engine: allocation failure")

	// ErrPoolExhausted signals that the global rule pool has reached its
	// capacity. Non-fatal: pool.Pool.Merge returns it once and drops the
	// rules past capacity; engine.Run then stops merging and returns the
	// pool it has with a nil error, so no warning reaches the caller or the
	// run summary. A trial whose own rule list reaches the cap ends early
	// without raising this error.
	ErrPoolExhausted = errors.New("pool: capacity exhausted")

	// ErrEmitterFailure wraps a writer I/O failure on a rule or witness
	// file. Non-fatal: that file is abandoned, mining continues.
	ErrEmitterFailure = errors.New("report: emitter failure")
)

// Fatal reports whether err represents a fatal condition that should abort
// the affected dataset's run entirely rather than being logged and skipped.
// ErrBadShape is fatal for the dataset it names but batch-mode callers are
// expected to catch it and continue with the next dataset; Fatal describes
// whether an individual run should stop, not whether the whole batch should.
func Fatal(err error) bool {
	return errors.Is(err, ErrBadShape) || errors.Is(err, ErrAllocationFailure)
}
