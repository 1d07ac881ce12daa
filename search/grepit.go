package search

import "regexp"

// GrepIterator pairs a regex scan over raw bytes with reverse record
// search so that every match is attributed to the record that contains
// it, skipping matches that straddle a record boundary.
//
// Regex compile failure is fatal at construction time per the error
// taxonomy: an invalid user-supplied pattern panics via regexp.MustCompile
// rather than returning an error through the iterator.
type GrepIterator[T any] struct {
	bytes  []byte
	cursor int
	marker Marker[T]
	re     *regexp.Regexp
	rev    *RevSearchIterator[T]
}

// NewGrepIterator compiles pattern and starts scanning bytes at offset.
func NewGrepIterator[T any](pattern string, bytes []byte, offset int, marker Marker[T]) *GrepIterator[T] {
	return &GrepIterator[T]{
		bytes:  bytes,
		cursor: offset,
		marker: marker,
		re:     regexp.MustCompile(pattern),
		rev:    NewRevSearchIterator(bytes, marker),
	}
}

func (it *GrepIterator[T]) search(offset int) (int, T, bool) {
	for {
		if offset >= len(it.bytes) {
			var zero T
			return 0, zero, false
		}
		loc := it.re.FindIndex(it.bytes[offset:])
		if loc == nil {
			var zero T
			return 0, zero, false
		}
		start := offset + loc[0]
		end := offset + loc[1]

		recOffset, val, ok := it.rev.Search(start)
		if ok {
			if recOffset < start && recOffset+it.marker.Len(val) < end {
				// the match is not included in this record; keep scanning
				offset = end
				continue
			}
			return recOffset, val, true
		}
		if end >= len(it.bytes) {
			var zero T
			return 0, zero, false
		}
		offset = end
	}
}

// Next returns the next (record-offset, record) pair whose bytes contain
// a regex match, deduplicating matches within the same record.
func (it *GrepIterator[T]) Next() (int, T, bool) {
	offset, val, ok := it.search(it.cursor)
	if !ok {
		var zero T
		return 0, zero, false
	}
	it.cursor = offset + it.marker.Len(val)
	return offset, val, true
}
