// Package analytics implements the named single-pass analyses that
// cmd/dltanalyzer exposes: counting, histogramming, and lifecycle
// extraction over a captured trace.
package analytics

import (
	"regexp"

	"github.com/dltoolkit/dlt/dlt"
	"github.com/dltoolkit/dlt/parallel"
	"github.com/dltoolkit/dlt/pipeline"
	"github.com/dltoolkit/dlt/search"
)

// minLifecycleDeciMillis is the shortest gap between a lifecycle's first
// and last timestamp, in units of 0.1ms, for Lifecycles to count it.
const minLifecycleDeciMillis = 18000000

var helloWorldPattern = regexp.MustCompile("Hello World")

// run drives reducer over every StorageEntry in bytes and returns its
// final result.
func run[R any](bytes []byte, reducer pipeline.Reducer[dlt.StorageEntry, R]) R {
	marker := dlt.StorageEntryMarker()
	it := search.NewReadFallbackIterator(bytes, marker)
	for {
		_, entry, ok := it.Next()
		if !ok {
			break
		}
		reducer.Push(entry)
	}
	return reducer.Finalize()
}

// Count returns the total number of decodable records in bytes.
func Count(bytes []byte) int {
	return run(bytes, pipeline.Count[dlt.StorageEntry]())
}

// CountHelloWorld counts records whose payload contains "Hello World".
func CountHelloWorld(bytes []byte) int {
	filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
		payload, ok := e.Dlt.Payload()
		if !ok {
			return false
		}
		return containsHelloWorld(payload)
	})
	return run(bytes, pipeline.Reduce(filter, pipeline.Count[dlt.StorageEntry]()))
}

func containsHelloWorld(payload []byte) bool {
	return helloWorldPattern.Match(payload)
}

// CountHelloWorldRaw counts raw byte-level occurrences of "Hello World"
// across the whole buffer, independent of record framing.
func CountHelloWorldRaw(bytes []byte) int {
	return len(helloWorldPattern.FindAllIndex(bytes, -1))
}

// CountHelloWorldGrep counts records containing a "Hello World"-style
// match, found by scanning the buffer with a regex-driven record search
// rather than a raw substring search. The pattern is non-greedy so a
// match ends inside the record it starts in instead of running on into
// later records.
func CountHelloWorldGrep(bytes []byte) int {
	marker := dlt.StorageEntryMarker()
	it := search.NewGrepIterator("H.*? World", bytes, 0, marker)
	count := 0
	for {
		_, _, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	return count
}

// HistogramTimestamp groups consecutive records into runs of
// non-decreasing storage-header seconds and counts the runs per duration
// (last minus first timestamp of the run), in whole seconds.
func HistogramTimestamp(bytes []byte) map[int]int {
	gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
		return b.Storage.Secs >= a.Storage.Secs
	})
	toDelta := pipeline.Map(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) int {
		return int(r.Second.Storage.Secs - r.First.Storage.Secs)
	})
	split := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
		return pipeline.Count[int]()
	})
	return run(bytes, pipeline.Reduce(pipeline.Then(gb, toDelta), split))
}

// MessageTypeKey is the (verbose, message type) pair HistogramMessageType
// buckets by.
type MessageTypeKey struct {
	Verbose bool
	Type    dlt.MessageType
}

func mstpKeyOf(eh dlt.ExtendedHeader) uint64 {
	key := uint64(eh.MessageType()) << 1
	if eh.IsVerbose() {
		key |= 1
	}
	return key
}

func mstpKeyDecode(key uint64) MessageTypeKey {
	return MessageTypeKey{Verbose: key&1 != 0, Type: dlt.MessageType(key >> 1)}
}

// HistogramMessageType buckets records by (verbose, message type),
// counting only records that carry an extended header.
//
// Split needs an orderable key to flush its buckets in a deterministic
// order; (bool, MessageType) isn't one, so records are keyed by a packed
// uint64 during the pass and decoded back to MessageTypeKey afterward.
func HistogramMessageType(bytes []byte) map[MessageTypeKey]int {
	filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
		return e.Dlt.Header.HeaderType.HasExtendedHeader()
	})
	split := pipeline.Split(func(e dlt.StorageEntry) uint64 {
		eh, _ := e.Dlt.ExtendedHeader()
		return mstpKeyOf(eh)
	}, func(uint64) pipeline.Reducer[dlt.StorageEntry, int] {
		return pipeline.Count[dlt.StorageEntry]()
	})

	raw := run(bytes, pipeline.Reduce(filter, split))
	result := make(map[MessageTypeKey]int, len(raw))
	for k, v := range raw {
		result[mstpKeyDecode(k)] = v
	}
	return result
}

// HistogramPayloadSize buckets records by payload length.
func HistogramPayloadSize(bytes []byte) map[int]int {
	m := pipeline.Map(func(e dlt.StorageEntry) int {
		payload, ok := e.Dlt.Payload()
		if !ok {
			return 0
		}
		return len(payload)
	})
	split := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
		return pipeline.Count[int]()
	})
	return run(bytes, pipeline.Reduce(m, split))
}

// HistogramMessageSize buckets records by total on-wire size, including
// the storage header.
func HistogramMessageSize(bytes []byte) map[int]int {
	m := pipeline.Map(func(e dlt.StorageEntry) int { return e.Len() })
	split := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
		return pipeline.Count[int]()
	})
	return run(bytes, pipeline.Reduce(m, split))
}

const helloWorldBucketSize = 100000000

// HistogramHelloWorld buckets the byte offsets of records containing a
// "Hello World"-style match into 100MB-wide ranges.
func HistogramHelloWorld(bytes []byte) map[int]int {
	marker := dlt.StorageEntryMarker()
	it := search.NewGrepIterator("H.*? World", bytes, 0, marker)

	buckets := make(map[int]int)
	for {
		offset, _, ok := it.Next()
		if !ok {
			break
		}
		buckets[offset/helloWorldBucketSize]++
	}
	return buckets
}

// HistogramLifecycles buckets, in whole seconds, the duration
// between the first and last timestamp of records sharing the same ECU
// id and forming a monotonically non-decreasing timestamp run.
func HistogramLifecycles(bytes []byte) map[int]int {
	filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
		_, ok := e.Dlt.Timestamp()
		return ok
	})
	gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
		aEcu, aOK := a.Dlt.EcuID()
		bEcu, bOK := b.Dlt.EcuID()
		bt, _ := b.Dlt.Timestamp()
		at, _ := a.Dlt.Timestamp()
		return aOK && bOK && aEcu == bEcu && bt >= at
	})
	toBucket := pipeline.Map(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) int {
		t0, _ := r.First.Dlt.Timestamp()
		t1, _ := r.Second.Dlt.Timestamp()
		return int(t1-t0) / 10000
	})
	split := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
		return pipeline.Count[int]()
	})
	return run(bytes, pipeline.Reduce(Then3(filter, gb, toBucket), split))
}

// Then3 composes three adapters in sequence; it exists because Then is
// binary and these pipelines are built from more than two stages.
func Then3[A, B, C, D any](a pipeline.Adapter[A, B], b pipeline.Adapter[B, C], c pipeline.Adapter[C, D]) pipeline.Adapter[A, D] {
	return pipeline.Then(pipeline.Then(a, b), c)
}

// EcuLifecycleCounts is the per-ECU result of SplitLifecycles: a count
// of lifecycles per duration in whole seconds, plus the total record
// count seen for that ECU.
type EcuLifecycleCounts struct {
	ByDuration map[int]int
	Total      int
}

// SplitLifecycles buckets records by ECU id, and within each ECU's
// records groups consecutive non-decreasing timestamps into lifecycles,
// bucketing their durations the same way HistogramLifecycles does.
func SplitLifecycles(bytes []byte) map[string]EcuLifecycleCounts {
	filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
		_, ok := e.Dlt.Timestamp()
		return ok
	})

	split := pipeline.Split(
		func(e dlt.StorageEntry) string {
			ecu, _ := e.Dlt.EcuID()
			return ecuString(ecu)
		},
		func(string) pipeline.Reducer[dlt.StorageEntry, pipeline.Pair[map[int]int, int]] {
			gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
				bt, _ := b.Dlt.Timestamp()
				at, _ := a.Dlt.Timestamp()
				return bt >= at
			})
			toBucket := pipeline.Map(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) int {
				t0, _ := r.First.Dlt.Timestamp()
				t1, _ := r.Second.Dlt.Timestamp()
				return int(t1-t0) / 10000
			})
			bucketSplit := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
				return pipeline.Count[int]()
			})
			durations := pipeline.Reduce(pipeline.Then(gb, toBucket), bucketSplit)
			return pipeline.Fork[dlt.StorageEntry](durations, pipeline.Count[dlt.StorageEntry]())
		},
	)

	raw := run(bytes, pipeline.Reduce(filter, split))
	result := make(map[string]EcuLifecycleCounts, len(raw))
	for k, v := range raw {
		result[k] = EcuLifecycleCounts{ByDuration: v.First, Total: v.Second}
	}
	return result
}

func ecuString(ecu uint32) string {
	b := []byte{byte(ecu >> 24), byte(ecu >> 16), byte(ecu >> 8), byte(ecu)}
	return string(b)
}

// SplitTimestamp mirrors SplitLifecycles, but runs monotonic timestamp
// runs through an overlap-merging step on the storage header's
// second-granularity clock before bucketing durations, so that a
// lifecycle split by a brief backwards clock jump is stitched back
// together.
func SplitTimestamp(bytes []byte) map[string]EcuLifecycleCounts {
	split := pipeline.Split(
		func(e dlt.StorageEntry) string { return ecuString(storageEcu(e)) },
		func(string) pipeline.Reducer[dlt.StorageEntry, pipeline.Pair[map[uint32]int, int]] {
			gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
				return b.Storage.Secs >= a.Storage.Secs
			})
			type span = pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]
			merge := pipeline.Merge(mergeOverlappingTimestamps, spanKey)
			toDelta := pipeline.Map(func(r span) uint32 {
				return r.Second.Storage.Secs - r.First.Storage.Secs
			})
			bucketSplit := pipeline.Split(func(v uint32) uint32 { return v }, func(uint32) pipeline.Reducer[uint32, int] {
				return pipeline.Count[uint32]()
			})
			durations := pipeline.Reduce(Then3(gb, merge, toDelta), bucketSplit)
			return pipeline.Fork[dlt.StorageEntry](durations, pipeline.Count[dlt.StorageEntry]())
		},
	)

	raw := run(bytes, split)
	result := make(map[string]EcuLifecycleCounts, len(raw))
	for k, v := range raw {
		byDuration := make(map[int]int, len(v.First))
		for dur, cnt := range v.First {
			byDuration[int(dur)] = cnt
		}
		result[k] = EcuLifecycleCounts{ByDuration: byDuration, Total: v.Second}
	}
	return result
}

func storageEcu(e dlt.StorageEntry) uint32 {
	return uint32(e.Storage.Ecu[0])<<24 | uint32(e.Storage.Ecu[1])<<16 | uint32(e.Storage.Ecu[2])<<8 | uint32(e.Storage.Ecu[3])
}

func mergeOverlappingTimestamps(a, b pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) (pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry], bool) {
	max := func(x, y dlt.StorageEntry) dlt.StorageEntry {
		if x.Storage.Secs >= y.Storage.Secs {
			return x
		}
		return y
	}
	if b.First.Storage.Secs >= a.First.Storage.Secs && b.First.Storage.Secs <= a.Second.Storage.Secs {
		return pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]{First: a.First, Second: max(a.Second, b.Second)}, true
	}
	if a.First.Storage.Secs >= b.First.Storage.Secs && a.First.Storage.Secs <= b.Second.Storage.Secs {
		return pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]{First: b.First, Second: max(a.Second, b.Second)}, true
	}
	return pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]{}, false
}

func spanKey(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) uint64 {
	return uint64(r.First.Storage.Secs)<<32 | uint64(r.Second.Storage.Secs)
}

// Lifecycles counts monotonic-timestamp runs at least minLifecycleDeciMillis
// long.
func Lifecycles(bytes []byte) int {
	filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
		_, ok := e.Dlt.Timestamp()
		return ok
	})
	gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
		bt, _ := b.Dlt.Timestamp()
		at, _ := a.Dlt.Timestamp()
		return bt >= at
	})
	long := pipeline.Filter(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) bool {
		t0, _ := r.First.Dlt.Timestamp()
		t1, _ := r.Second.Dlt.Timestamp()
		return int64(t1-t0) >= minLifecycleDeciMillis
	})
	return run(bytes, pipeline.Reduce(Then3(filter, gb, long), pipeline.Count[pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]]()))
}

// LifecyclesWindowed slides a two-element window across the raw stream
// instead of compressing monotonic runs with GroupBy first, and counts
// adjacent timestamp pairs that are non-decreasing and at least
// minLifecycleDeciMillis apart. A run of N consecutive timestamps gives
// N-1 overlapping windows here, versus the single (first, last) pair
// GroupBy folds it down to in Lifecycles, so the two counts are only
// guaranteed to agree when every run has length at most two.
func LifecyclesWindowed(bytes []byte) int {
	marker := dlt.StorageEntryMarker()
	it := search.NewReadFallbackIterator(bytes, marker)

	count := 0
	havePrev := false
	var prev dlt.StorageEntry
	for {
		_, entry, ok := it.Next()
		if !ok {
			break
		}
		if _, ok := entry.Dlt.Timestamp(); !ok {
			havePrev = false
			continue
		}
		if havePrev {
			pt, _ := prev.Dlt.Timestamp()
			ct, _ := entry.Dlt.Timestamp()
			if ct >= pt && int64(ct-pt) >= minLifecycleDeciMillis {
				count++
			}
		}
		prev = entry
		havePrev = true
	}
	return count
}

// ParCount is Count, fanned out across workers record-aligned partitions.
func ParCount(bytes []byte, workers int) (int, error) {
	return parallel.Run(bytes, workers, dlt.StorageEntryMarker(),
		func() pipeline.Reducer[dlt.StorageEntry, int] { return pipeline.Count[dlt.StorageEntry]() },
		func(a, b int) int { return a + b })
}

func helloWorldFilter() pipeline.Adapter[dlt.StorageEntry, dlt.StorageEntry] {
	return pipeline.Filter(func(e dlt.StorageEntry) bool {
		payload, ok := e.Dlt.Payload()
		if !ok {
			return false
		}
		return containsHelloWorld(payload)
	})
}

// ParCountHelloWorld is CountHelloWorld, fanned out across workers
// record-aligned partitions.
func ParCountHelloWorld(bytes []byte, workers int) (int, error) {
	return parallel.Run(bytes, workers, dlt.StorageEntryMarker(),
		func() pipeline.Reducer[dlt.StorageEntry, int] {
			return pipeline.Reduce(helloWorldFilter(), pipeline.Count[dlt.StorageEntry]())
		},
		func(a, b int) int { return a + b })
}

// ParIter is Lifecycles, fanned out across workers record-aligned
// partitions. Because a lifecycle that straddles a partition boundary is
// split in two, and each half is measured on its own, the result can be
// lower or higher than Lifecycles run single threaded; the reference
// implementation carries the same tradeoff.
func ParIter(bytes []byte, workers int) (int, error) {
	return parallel.Run(bytes, workers, dlt.StorageEntryMarker(),
		func() pipeline.Reducer[dlt.StorageEntry, int] {
			filter := pipeline.Filter(func(e dlt.StorageEntry) bool {
				_, ok := e.Dlt.Timestamp()
				return ok
			})
			gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
				bt, _ := b.Dlt.Timestamp()
				at, _ := a.Dlt.Timestamp()
				return bt >= at
			})
			long := pipeline.Filter(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) bool {
				t0, _ := r.First.Dlt.Timestamp()
				t1, _ := r.Second.Dlt.Timestamp()
				return int64(t1-t0) >= minLifecycleDeciMillis
			})
			return pipeline.Reduce(Then3(filter, gb, long), pipeline.Count[pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]]())
		},
		func(a, b int) int { return a + b })
}

// ParHistogramTimestamp is HistogramTimestamp, fanned out across workers
// record-aligned partitions, with per-partition bucket maps added
// together.
func ParHistogramTimestamp(bytes []byte, workers int) (map[int]int, error) {
	return parallel.Run(bytes, workers, dlt.StorageEntryMarker(),
		func() pipeline.Reducer[dlt.StorageEntry, map[int]int] {
			gb := pipeline.GroupBy(func(a, b dlt.StorageEntry) bool {
				return b.Storage.Secs >= a.Storage.Secs
			})
			toDelta := pipeline.Map(func(r pipeline.Pair[dlt.StorageEntry, dlt.StorageEntry]) int {
				return int(r.Second.Storage.Secs - r.First.Storage.Secs)
			})
			split := pipeline.Split(func(v int) int { return v }, func(int) pipeline.Reducer[int, int] {
				return pipeline.Count[int]()
			})
			return pipeline.Reduce(pipeline.Then(gb, toDelta), split)
		},
		mergeIntBuckets)
}

func mergeIntBuckets(a, b map[int]int) map[int]int {
	for k, v := range b {
		a[k] += v
	}
	return a
}
