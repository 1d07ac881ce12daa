package dlt

import (
	"bytes"

	"github.com/dltoolkit/dlt/search"
)

// DltEntry is a zero-copy view of one DLT message: the standard header
// plus the tail bytes spanning [sizeof(StandardHeader), length) within
// the message. The optional block, extended header, and payload are
// all reconstructed from offsets into tail, never copied.
type DltEntry struct {
	Header StandardHeader
	Tail   []byte
}

// Len returns the entry's total size in bytes, per the standard header's
// length field.
func (e DltEntry) Len() int { return e.Header.Length() }

func (e DltEntry) payloadOffset() int {
	offset := 0
	ht := e.Header.HeaderType
	if ht.HasEcuID() {
		offset += 4
	}
	if ht.HasSessionID() {
		offset += 4
	}
	if ht.HasTimestamp() {
		offset += 4
	}
	if ht.HasExtendedHeader() {
		offset += extendedHeaderSize
	}
	return offset
}

// EcuID returns the optional block's ECU id, if WEID is set.
func (e DltEntry) EcuID() (uint32, bool) {
	if !e.Header.HeaderType.HasEcuID() || len(e.Tail) < 4 {
		return 0, false
	}
	return beUint32(e.Tail[:4]), true
}

// Timestamp returns the optional block's timestamp, if WTMS is set.
func (e DltEntry) Timestamp() (uint32, bool) {
	ht := e.Header.HeaderType
	if !ht.HasTimestamp() {
		return 0, false
	}
	offset := 0
	if ht.HasEcuID() {
		offset += 4
	}
	if ht.HasSessionID() {
		offset += 4
	}
	if offset+4 > len(e.Tail) {
		return 0, false
	}
	return beUint32(e.Tail[offset : offset+4]), true
}

// ExtendedHeader returns the entry's extended header, if UEH is set.
func (e DltEntry) ExtendedHeader() (ExtendedHeader, bool) {
	ht := e.Header.HeaderType
	if !ht.HasExtendedHeader() {
		return ExtendedHeader{}, false
	}
	offset := 0
	if ht.HasEcuID() {
		offset += 4
	}
	if ht.HasSessionID() {
		offset += 4
	}
	if ht.HasTimestamp() {
		offset += 4
	}
	if offset > len(e.Tail) {
		return ExtendedHeader{}, false
	}
	eh, _, ok := readExtendedHeader(e.Tail[offset:])
	return eh, ok
}

// Payload returns the remaining bytes after the optional block and
// extended header, up to Length.
func (e DltEntry) Payload() ([]byte, bool) {
	offset := e.payloadOffset()
	if offset > len(e.Tail) {
		return nil, false
	}
	return e.Tail[offset:], true
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// TryReadDltEntry decodes a DltEntry starting at offset 0 of b. It fails
// when the standard header cannot be fully read, when the claimed length
// exceeds len(b), or when the header doesn't fit inside the claimed
// length (size1 > size2).
func TryReadDltEntry(b []byte) (int, DltEntry, bool) {
	h, size1, ok := readStandardHeader(b)
	if !ok || size1 > len(b) {
		return 0, DltEntry{}, false
	}
	size2 := h.Length()
	if size2 > len(b) || size1 > size2 {
		return 0, DltEntry{}, false
	}
	return size2, DltEntry{Header: h, Tail: b[size1:size2]}, true
}

// StorageEntry pairs a storage header with the DLT message it envelopes.
// It is a non-owning view: it holds sub-slices of the caller's buffer
// and is valid for as long as that buffer is kept alive.
type StorageEntry struct {
	Storage StorageHeader
	Dlt     DltEntry
}

// Len returns the entry's total size including the storage header.
func (s StorageEntry) Len() int { return s.Dlt.Len() + storageHeaderSize }

// TryReadStorageEntry decodes a StorageEntry starting at offset 0 of b.
// It fails when the marker pattern does not match, when either header
// cannot be fully read, or when the enclosed DltEntry fails to decode.
func TryReadStorageEntry(b []byte) (int, StorageEntry, bool) {
	if len(b) < 4 || !bytes.Equal(b[:4], storageMarkerBytes[:]) {
		return 0, StorageEntry{}, false
	}
	return tryReadStorageEntryValidMarker(b)
}

func tryReadStorageEntryValidMarker(b []byte) (int, StorageEntry, bool) {
	sh, size1, ok := readStorageHeader(b)
	if !ok || size1 > len(b) {
		return 0, StorageEntry{}, false
	}
	size2, entry, ok := TryReadDltEntry(b[size1:])
	if !ok {
		return 0, StorageEntry{}, false
	}
	return size1 + size2, StorageEntry{Storage: sh, Dlt: entry}, true
}

// StorageEntryMarker builds the search.Marker describing StorageEntry's
// decode rules, for use by the search and partition packages.
func StorageEntryMarker() search.Marker[StorageEntry] {
	return search.Marker[StorageEntry]{
		Bytes:              Marker(),
		MaxLen:             maxStorageEntryLen,
		TryRead:            TryReadStorageEntry,
		TryReadValidMarker: tryReadStorageEntryValidMarker,
		Len:                func(e StorageEntry) int { return e.Len() },
	}
}
