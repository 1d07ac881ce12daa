// Package parallel drives a pipeline reducer across a buffer's
// record-aligned partitions concurrently, then combines the per-partition
// results into one.
package parallel

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/dltoolkit/dlt/partition"
	"github.com/dltoolkit/dlt/pipeline"
	"github.com/dltoolkit/dlt/search"
)

// Run splits bytes into record-aligned partitions sized for workers (0
// means runtime.GOMAXPROCS(0); the partition count can differ from
// workers, see partition.Split), scans each concurrently through its own reducer
// instance built by newReducer, and folds the per-partition results
// together with combine. combine must be associative and commutative: the
// order partitions finish in, and the order they are combined in, are
// both unspecified.
func Run[T, R any](
	bytes []byte,
	workers int,
	marker search.Marker[T],
	newReducer func() pipeline.Reducer[T, R],
	combine func(a, b R) R,
) (R, error) {
	var zero R
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	slices := partition.Split(bytes, workers, marker)
	results := make([]R, len(slices))

	var g errgroup.Group
	for i, slice := range slices {
		i, slice := i, slice
		g.Go(func() error {
			red := newReducer()
			it := search.NewReadFallbackIterator(slice, marker)
			for {
				_, rec, ok := it.Next()
				if !ok {
					break
				}
				red.Push(rec)
			}
			results[i] = red.Finalize()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return zero, err
	}

	if len(results) == 0 {
		return zero, nil
	}

	acc := results[0]
	for _, r := range results[1:] {
		acc = combine(acc, r)
	}
	return acc, nil
}
