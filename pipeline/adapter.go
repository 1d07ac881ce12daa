package pipeline

// Adapter transforms a stream of In values into a stream of Out values.
// Adapt is called once per input record; Finalize is called with no
// further input once the stream is exhausted, to let stateful stages
// (GroupBy, Merge) flush whatever they are still holding onto. Finalize
// may need to be called more than once per stage, since a single flush
// can itself need to pass through the rest of the chain — Reduce's
// pump loop is what calls it repeatedly until every stage reports Break.
type Adapter[In, Out any] interface {
	Adapt(next In) Signal[Out]
	Finalize() Signal[Out]
}

type statelessAdapter[In, Out any] struct {
	adapt func(In) Signal[Out]
}

func (s statelessAdapter[In, Out]) Adapt(next In) Signal[Out] { return s.adapt(next) }
func (s statelessAdapter[In, Out]) Finalize() Signal[Out]     { return BreakSignal[Out]() }

// Map applies f to every record. It never filters and never buffers.
func Map[In, Out any](f func(In) Out) Adapter[In, Out] {
	return statelessAdapter[In, Out]{adapt: func(next In) Signal[Out] {
		return ContinueSome(f(next))
	}}
}

// Filter keeps only the records for which pred returns true.
func Filter[T any](pred func(T) bool) Adapter[T, T] {
	return statelessAdapter[T, T]{adapt: func(next T) Signal[T] {
		if pred(next) {
			return ContinueSome(next)
		}
		return ContinueNone[T]()
	}}
}

type thenAdapter[A, B, C any] struct {
	inner Adapter[A, B]
	outer Adapter[B, C]
}

// Then composes two adapters: every record first passes through inner,
// and whatever inner produces (if anything) passes through outer.
func Then[A, B, C any](inner Adapter[A, B], outer Adapter[B, C]) Adapter[A, C] {
	return &thenAdapter[A, B, C]{inner: inner, outer: outer}
}

func (t *thenAdapter[A, B, C]) Adapt(next A) Signal[C] {
	out := t.inner.Adapt(next)
	if out.Value == nil {
		return ContinueNone[C]()
	}
	return t.outer.Adapt(*out.Value)
}

// Finalize drains one pending value out of inner (if any) and passes it
// through outer; once inner reports Break, it flushes outer's own
// trailing state instead. It is a single step, not a loop:
// Reduce.Finalize is what repeats this call until both stages report
// Break.
func (t *thenAdapter[A, B, C]) Finalize() Signal[C] {
	out := t.inner.Finalize()
	if out.Kind == Continue {
		if out.Value != nil {
			return t.outer.Adapt(*out.Value)
		}
		return ContinueNone[C]()
	}
	return t.outer.Finalize()
}
