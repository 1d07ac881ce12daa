package partition

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/dltoolkit/dlt/dlt"
	"github.com/dltoolkit/dlt/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildStorageEntry assembles one well-formed StorageEntry, in the same
// shape cmd/dltwriter produces, for use as a test fixture.
func buildStorageEntry(t *testing.T, counter uint32, ecu, appID string, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("DLT\x01")
	_ = binary.Write(&buf, binary.LittleEndian, counter/100)
	_ = binary.Write(&buf, binary.LittleEndian, int32(counter%100)*10000)
	buf.WriteString(pad4(ecu))

	length := uint16(4 + 10 + 4 + len(payload))
	buf.WriteByte(0x01 | 0x10) // UEH | WTMS
	buf.WriteByte(byte(counter))
	_ = binary.Write(&buf, binary.BigEndian, length)

	_ = binary.Write(&buf, binary.BigEndian, counter*100)

	buf.WriteByte(0) // msin
	buf.WriteByte(0) // noar
	buf.WriteString(pad4(appID))
	buf.WriteString(pad4(appID))

	buf.Write(payload)
	return buf.Bytes()
}

func pad4(s string) string {
	b := []byte(s)
	out := make([]byte, 4)
	copy(out, b)
	return string(out)
}

func scanAll(t *testing.T, slice []byte) int {
	t.Helper()
	marker := dlt.StorageEntryMarker()
	it := search.NewReadFallbackIterator(slice, marker)
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

func TestSplit_RecordCountMatchesSingleScan(t *testing.T) {
	var all []byte
	for i := 0; i < 300; i++ {
		all = append(all, buildStorageEntry(t, uint32(i), "ECU1", "APP1", []byte("hello world"))...)
	}

	for _, n := range []int{1, 3, 7, 50} {
		slices := Split(all, n, dlt.StorageEntryMarker())

		total := 0
		for _, s := range slices {
			total += scanAll(t, s)
		}
		assert.Equal(t, 300, total, "n=%d", n)
	}
}

func TestSplit_AdversarialPayloadContainingMarker(t *testing.T) {
	var all []byte
	for i := 0; i < 500; i++ {
		all = append(all, buildStorageEntry(t, uint32(i), "ECU1", "APP1", []byte("DLT\x01 inside payload"))...)
	}

	slices := Split(all, 500, dlt.StorageEntryMarker())

	total := 0
	for _, s := range slices {
		total += scanAll(t, s)
	}
	assert.Equal(t, 500, total)
}

func TestSplit_ConcatenationIsPrefix(t *testing.T) {
	var all []byte
	for i := 0; i < 40; i++ {
		all = append(all, buildStorageEntry(t, uint32(i), "ECU1", "APP1", []byte("x"))...)
	}

	slices := Split(all, 4, dlt.StorageEntryMarker())

	var rebuilt []byte
	for _, s := range slices {
		rebuilt = append(rebuilt, s...)
	}
	require.LessOrEqual(t, len(rebuilt), len(all))
	assert.Equal(t, all[:len(rebuilt)], rebuilt)
}
