// Package search implements the forward/reverse marker search and
// record-recovery iterators that sit between the raw byte buffer and the
// typed record model in package dlt.
//
// Go has no equivalent of a trait's associated static function
// (T::try_read), so each searchable record type is described by a Marker
// value carrying the decode functions as plain function values, rather
// than a type parameter bound to an interface with static methods.
//
// There is no memmem-style substring-finder dependency anywhere in the
// reference corpus, so marker search is done with the standard library's
// bytes.Index/bytes.LastIndex (see DESIGN.md).
package search

import "bytes"

// Marker describes a searchable, fixed-marker record type T. It mirrors
// the Readable/SearchableMarker capability pair: Bytes is the pattern
// that opens every record, TryRead validates the marker before decoding,
// TryReadValidMarker skips that check when the caller already confirmed
// it, and MaxLen bounds how far back a containing record could start.
type Marker[T any] struct {
	Bytes              []byte
	MaxLen             int
	TryRead            func([]byte) (int, T, bool)
	TryReadValidMarker func([]byte) (int, T, bool)
	Len                func(T) int
}

func bytesIndex(haystack, needle []byte) int {
	return bytes.Index(haystack, needle)
}

func bytesLastIndex(haystack, needle []byte) int {
	return bytes.LastIndex(haystack, needle)
}
