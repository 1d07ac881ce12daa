package parallel

import (
	"encoding/binary"
	"testing"

	"github.com/dltoolkit/dlt/dlt"
	"github.com/dltoolkit/dlt/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildEntry(t *testing.T, counter uint32, payload []byte) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, 'D', 'L', 'T', 0x01)
	secs := make([]byte, 4)
	binary.LittleEndian.PutUint32(secs, counter/100)
	buf = append(buf, secs...)
	msecs := make([]byte, 4)
	binary.LittleEndian.PutUint32(msecs, (counter%100)*10000)
	buf = append(buf, msecs...)
	buf = append(buf, []byte("ECU1")...)

	length := uint16(4 + 10 + 4 + len(payload))
	buf = append(buf, 0x01|0x10, byte(counter))
	lengthBytes := make([]byte, 2)
	binary.BigEndian.PutUint16(lengthBytes, length)
	buf = append(buf, lengthBytes...)

	ts := make([]byte, 4)
	binary.BigEndian.PutUint32(ts, counter*100)
	buf = append(buf, ts...)

	buf = append(buf, 0, 0)
	buf = append(buf, []byte("APP1")...)
	buf = append(buf, []byte("CTX1")...)
	buf = append(buf, payload...)
	require.NotZero(t, len(buf))
	return buf
}

func TestRun_CombinesCountAcrossPartitions(t *testing.T) {
	var all []byte
	for i := 0; i < 1000; i++ {
		all = append(all, buildEntry(t, uint32(i), []byte("payload"))...)
	}

	total, err := Run(
		all,
		8,
		dlt.StorageEntryMarker(),
		func() pipeline.Reducer[dlt.StorageEntry, int] { return pipeline.Count[dlt.StorageEntry]() },
		func(a, b int) int { return a + b },
	)
	require.NoError(t, err)
	assert.Equal(t, 1000, total)
}
