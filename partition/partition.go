// Package partition splits a byte buffer into disjoint, record-aligned
// slices so that scanning them independently and in parallel yields the
// same records as scanning the whole buffer in one pass.
package partition

import "github.com/dltoolkit/dlt/search"

// Split divides bytes into contiguous, non-overlapping slices whose
// concatenation is all of bytes, such that no valid record (as described
// by marker) spans a boundary. Boundaries are placed about len(bytes)/n
// apart and each is moved back to the start of the record it falls in,
// so the number of slices can be larger or smaller than n.
//
// contained_by, not a naive marker search, is used to probe each
// candidate split point, which makes this robust to buffers whose
// payloads happen to contain the marker pattern.
func Split[T any](bytes []byte, n int, marker search.Marker[T]) [][]byte {
	if n <= 0 {
		n = 1
	}

	var result [][]byte
	size := len(bytes) / n
	cb := search.NewContainedBySearch(marker)

	candidate0, candidate1 := 0, size
	for {
		if candidate0 >= len(bytes) {
			break
		}
		if candidate1 > len(bytes) {
			result = append(result, bytes[candidate0:])
			break
		}

		if c, _, ok := cb.ContainedBy(bytes, candidate1, candidate1+1); ok {
			candidate1 = c
		}

		if candidate0 >= candidate1 {
			// no split point past candidate0: the rest is the last slice
			result = append(result, bytes[candidate0:])
			break
		}

		if candidate1+size/4 >= len(bytes) {
			result = append(result, bytes[candidate0:])
			break
		}

		result = append(result, bytes[candidate0:candidate1])
		candidate0, candidate1 = candidate1, candidate1+size
	}

	return result
}
