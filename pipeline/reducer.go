package pipeline

import "sort"

// Reducer folds a stream of In values into a single Reduced result. Push
// is called once per record that reaches this stage; Finalize is called
// exactly once, after every record has been pushed, to produce the
// result.
type Reducer[In, R any] interface {
	Push(next In)
	Finalize() R
}

// Pair is the output of Fork and GroupBy: two values produced together.
type Pair[A, B any] struct {
	First  A
	Second B
}

type foldReducer[In, Acc any] struct {
	acc Acc
	f   func(Acc, In) Acc
}

// Fold accumulates every record into init using f.
func Fold[In, Acc any](init Acc, f func(Acc, In) Acc) Reducer[In, Acc] {
	return &foldReducer[In, Acc]{acc: init, f: f}
}

func (r *foldReducer[In, Acc]) Push(next In) { r.acc = r.f(r.acc, next) }
func (r *foldReducer[In, Acc]) Finalize() Acc { return r.acc }

// Count returns the number of records pushed.
func Count[In any]() Reducer[In, int] {
	return Fold(0, func(acc int, _ In) int { return acc + 1 })
}

// Number constrains Sum to the types Go can add with +. There is no
// ordered-numeric constraint set in the dependency graph here (no
// golang.org/x/exp/constraints), so this is declared locally.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Sum adds up every record pushed.
func Sum[In Number]() Reducer[In, In] {
	var zero In
	return Fold(zero, func(acc In, next In) In { return acc + next })
}

// Collect gathers every record pushed, in order, into a slice.
func Collect[In any]() Reducer[In, []In] {
	return Fold([]In(nil), func(acc []In, next In) []In { return append(acc, next) })
}

type forkReducer[In, R1, R2 any] struct {
	r1 Reducer[In, R1]
	r2 Reducer[In, R2]
}

// Fork pushes every record to both r1 and r2, returning both results.
func Fork[In, R1, R2 any](r1 Reducer[In, R1], r2 Reducer[In, R2]) Reducer[In, Pair[R1, R2]] {
	return &forkReducer[In, R1, R2]{r1: r1, r2: r2}
}

func (f *forkReducer[In, R1, R2]) Push(next In) {
	f.r1.Push(next)
	f.r2.Push(next)
}

func (f *forkReducer[In, R1, R2]) Finalize() Pair[R1, R2] {
	return Pair[R1, R2]{First: f.r1.Finalize(), Second: f.r2.Finalize()}
}

type splitReducer[In any, Key cmpOrdered, R any] struct {
	keyFn     func(In) Key
	reducerFn func(Key) Reducer[In, R]
	buckets   map[Key]Reducer[In, R]
	order     func([]Key)
}

// Split buckets records by keyFn and folds each bucket with its own
// reducer (built lazily on first use via reducerFn), returning one
// result per key.
//
// Rust's BTreeMap keeps keys in sorted order as a side effect of its
// storage; Go's map has no such guarantee and there is no ordered-map
// library anywhere in the dependency graph here, so Finalize sorts the
// keys once with sort.Slice and finalizes the buckets in ascending key
// order. The returned map itself carries no order.
func Split[In any, Key cmpOrdered, R any](keyFn func(In) Key, reducerFn func(Key) Reducer[In, R]) Reducer[In, map[Key]R] {
	return &splitReducer[In, Key, R]{
		keyFn:     keyFn,
		reducerFn: reducerFn,
		buckets:   make(map[Key]Reducer[In, R]),
	}
}

// cmpOrdered is satisfied by the ordered built-in types; it exists so
// Split's and Merge's Key parameters can be sorted without depending on
// a third-party ordered-constraints package.
type cmpOrdered interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64 | ~string
}

func (s *splitReducer[In, Key, R]) Push(next In) {
	key := s.keyFn(next)
	red, ok := s.buckets[key]
	if !ok {
		red = s.reducerFn(key)
		s.buckets[key] = red
	}
	red.Push(next)
}

func (s *splitReducer[In, Key, R]) Finalize() map[Key]R {
	keys := make([]Key, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	result := make(map[Key]R, len(s.buckets))
	for _, k := range keys {
		result[k] = s.buckets[k].Finalize()
	}
	return result
}

type reduceOf[A, B, R any] struct {
	adapter Adapter[A, B]
	inner   Reducer[B, R]
}

// Reduce composes an adapter with a reducer: every record is adapted
// before reaching the reducer, and at the end the adapter is pumped
// (via its Finalize) until it reports Break, feeding every remaining
// value into the reducer before the reducer itself is finalized.
func Reduce[A, B, R any](a Adapter[A, B], r Reducer[B, R]) Reducer[A, R] {
	return &reduceOf[A, B, R]{adapter: a, inner: r}
}

func (r *reduceOf[A, B, R]) Push(next A) {
	out := r.adapter.Adapt(next)
	if out.Kind == Continue && out.Value != nil {
		r.inner.Push(*out.Value)
	}
}

func (r *reduceOf[A, B, R]) Finalize() R {
	out := r.adapter.Finalize()
	for out.Kind == Continue {
		if out.Value != nil {
			r.inner.Push(*out.Value)
		}
		out = r.adapter.Finalize()
	}
	return r.inner.Finalize()
}
