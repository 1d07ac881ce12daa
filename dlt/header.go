// Package dlt implements the AUTOSAR DLT v1 wire format: the 16-byte
// storage header, the 4-byte standard header, the optional block, and
// the 10-byte extended header, as zero-copy views over caller-owned
// byte slices.
//
// All header parsing is by fixed offset; there is no reflection and no
// per-record allocation beyond the small header value itself.
package dlt

import "encoding/binary"

const (
	storageHeaderSize  = 16
	standardHeaderSize = 4
	extendedHeaderSize = 10

	// maxStorageEntryLen bounds any StorageEntry: the u16 length field
	// plus the storage header that precedes it.
	maxStorageEntryLen = 65535 + storageHeaderSize
)

var storageMarkerBytes = [4]byte{'D', 'L', 'T', 0x01}

// Marker is the four-byte pattern that opens every StorageEntry.
func Marker() []byte {
	return storageMarkerBytes[:]
}

// HTyp is the standard header's flag byte.
type HTyp byte

const (
	htypUEH  HTyp = 0x01
	htypMSBF HTyp = 0x02
	htypWEID HTyp = 0x04
	htypWSID HTyp = 0x08
	htypWTMS HTyp = 0x10
	htypVers HTyp = 0xE0
)

// HasExtendedHeader reports the UEH bit.
func (h HTyp) HasExtendedHeader() bool { return h&htypUEH != 0 }

// IsMsbFirst reports the MSBF bit.
func (h HTyp) IsMsbFirst() bool { return h&htypMSBF != 0 }

// HasEcuID reports the WEID bit.
func (h HTyp) HasEcuID() bool { return h&htypWEID != 0 }

// HasSessionID reports the WSID bit.
func (h HTyp) HasSessionID() bool { return h&htypWSID != 0 }

// HasTimestamp reports the WTMS bit.
func (h HTyp) HasTimestamp() bool { return h&htypWTMS != 0 }

// Version extracts the 3-bit version field.
func (h HTyp) Version() byte { return byte(h&htypVers) >> 5 }

// StandardHeader is the 4-byte DLT v1 standard header. length covers the
// entire message including this header, excluding the storage header.
type StandardHeader struct {
	HeaderType     HTyp
	MessageCounter byte
	length         uint16
}

// Length returns the header's length field.
func (h StandardHeader) Length() int { return int(h.length) }

func readStandardHeader(b []byte) (StandardHeader, int, bool) {
	if len(b) < standardHeaderSize {
		return StandardHeader{}, 0, false
	}
	return StandardHeader{
		HeaderType:     HTyp(b[0]),
		MessageCounter: b[1],
		length:         binary.BigEndian.Uint16(b[2:4]),
	}, standardHeaderSize, true
}

// StorageHeader is the 16-byte little-endian envelope offline recorders
// add around each DLT message.
type StorageHeader struct {
	Pattern [4]byte
	Secs    uint32
	Msecs   int32
	Ecu     [4]byte
}

func readStorageHeader(b []byte) (StorageHeader, int, bool) {
	if len(b) < storageHeaderSize {
		return StorageHeader{}, 0, false
	}
	var h StorageHeader
	copy(h.Pattern[:], b[0:4])
	h.Secs = binary.LittleEndian.Uint32(b[4:8])
	h.Msecs = int32(binary.LittleEndian.Uint32(b[8:12]))
	copy(h.Ecu[:], b[12:16])
	return h, storageHeaderSize, true
}

// MessageType is the 3-bit message-type field of msin.
type MessageType byte

const (
	MessageTypeLog MessageType = iota
	MessageTypeAppTrace
	MessageTypeNwTrace
	MessageTypeControl
)

// ExtendedHeader carries the application and context ids, present iff
// the standard header's UEH bit is set.
type ExtendedHeader struct {
	Msin byte
	Noar byte
	Apid [4]byte
	Ctid [4]byte
}

// IsVerbose reports msin's verbose bit.
func (e ExtendedHeader) IsVerbose() bool { return e.Msin&0x01 != 0 }

// MessageType decodes msin's message-type field.
func (e ExtendedHeader) MessageType() MessageType {
	return MessageType((e.Msin >> 1) & 0x07)
}

// MessageTypeInfo decodes msin's type-info field, interpreted per MessageType.
func (e ExtendedHeader) MessageTypeInfo() byte { return (e.Msin >> 4) & 0x0F }

func readExtendedHeader(b []byte) (ExtendedHeader, int, bool) {
	if len(b) < extendedHeaderSize {
		return ExtendedHeader{}, 0, false
	}
	var e ExtendedHeader
	e.Msin = b[0]
	e.Noar = b[1]
	copy(e.Apid[:], b[2:6])
	copy(e.Ctid[:], b[6:10])
	return e, extendedHeaderSize, true
}
