// Package pipeline implements a composable, single-pass record processing
// engine: adapters transform or filter one record at a time, reducers fold
// a stream of records into a single result, and the two compose into
// pipelines that run in one pass over a partition's records.
//
// Go forbids type parameters on methods, which rules out a fluent
// method-chaining style (adapter.filter(...).map(...).fold(...)):
// every stage here is built and composed with free
// functions instead (Then, Reduce), each taking the previous stage as an
// explicit argument.
package pipeline

// SignalKind distinguishes a stage that has more work to do from one that
// is permanently exhausted.
type SignalKind int

const (
	// Continue means the stage may still be asked for more; Value may or
	// may not carry an output for this step.
	Continue SignalKind = iota
	// Break means the stage has nothing further to ever produce.
	Break
)

// Signal is the three-valued result of one adapter step: continue with no
// output, continue with an output, or stop permanently.
type Signal[T any] struct {
	Kind  SignalKind
	Value *T
}

// ContinueNone reports that a step consumed its input but produced
// nothing (a filtered-out record, or a grouping stage still buffering).
func ContinueNone[T any]() Signal[T] {
	return Signal[T]{Kind: Continue}
}

// ContinueSome reports that a step produced a value and may still be
// asked for more.
func ContinueSome[T any](v T) Signal[T] {
	return Signal[T]{Kind: Continue, Value: &v}
}

// BreakSignal reports that a step is permanently exhausted.
func BreakSignal[T any]() Signal[T] {
	return Signal[T]{Kind: Break}
}
