package analytics

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildEntry assembles one well-formed StorageEntry with an ECU id and a
// timestamp in the optional block and, if withExt is set, an extended
// header, for use as a test fixture.
func buildEntry(t *testing.T, storageEcu string, secs uint32, weid string, ts uint32, withExt bool, verbose bool, msgType byte, payload []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("DLT\x01")
	_ = binary.Write(&buf, binary.LittleEndian, secs)
	_ = binary.Write(&buf, binary.LittleEndian, int32(0))
	buf.WriteString(pad4(storageEcu))

	htyp := byte(0x04 | 0x10) // WEID | WTMS
	if withExt {
		htyp |= 0x01 // UEH
	}

	var tail bytes.Buffer
	tail.WriteString(pad4(weid))
	_ = binary.Write(&tail, binary.BigEndian, ts)
	if withExt {
		msin := msgType << 1
		if verbose {
			msin |= 0x01
		}
		tail.WriteByte(msin)
		tail.WriteByte(0) // noar
		tail.WriteString(pad4("APP1"))
		tail.WriteString(pad4("CTX1"))
	}
	tail.Write(payload)

	length := uint16(4 + tail.Len())
	buf.WriteByte(htyp)
	buf.WriteByte(0) // message counter, unused by these tests
	_ = binary.Write(&buf, binary.BigEndian, length)
	buf.Write(tail.Bytes())

	require.NotZero(t, buf.Len())
	return buf.Bytes()
}

func pad4(s string) string {
	b := []byte(s)
	out := make([]byte, 4)
	copy(out, b)
	return string(out)
}

func TestCount(t *testing.T) {
	var all []byte
	for i := 0; i < 50; i++ {
		all = append(all, buildEntry(t, "ECU1", uint32(i), "ECU1", uint32(i*1000), true, true, 0, []byte("x"))...)
	}
	assert.Equal(t, 50, Count(all))
}

func TestCountHelloWorld_AgreesWithRawAndGrep(t *testing.T) {
	var all []byte
	matching := 0
	for i := 0; i < 20; i++ {
		payload := []byte("quiet")
		if i%3 == 0 {
			payload = []byte("Hello World")
			matching++
		}
		all = append(all, buildEntry(t, "ECU1", uint32(i), "ECU1", uint32(i*1000), true, true, 0, payload)...)
	}

	assert.Equal(t, matching, CountHelloWorld(all))
	assert.Equal(t, matching, CountHelloWorldRaw(all))
	assert.Equal(t, matching, CountHelloWorldGrep(all))
}

func TestCountHelloWorldRaw_CountsRawOccurrencesNotRecords(t *testing.T) {
	payload := []byte("Hello World and another Hello World")
	all := buildEntry(t, "ECU1", 0, "ECU1", 0, true, true, 0, payload)

	assert.Equal(t, 1, CountHelloWorld(all))
	assert.Equal(t, 2, CountHelloWorldRaw(all))
}

func TestHistogramPayloadSize(t *testing.T) {
	var all []byte
	all = append(all, buildEntry(t, "ECU1", 0, "ECU1", 0, true, true, 0, []byte("ab"))...)
	all = append(all, buildEntry(t, "ECU1", 1, "ECU1", 1000, true, true, 0, []byte("cd"))...)
	all = append(all, buildEntry(t, "ECU1", 2, "ECU1", 2000, true, true, 0, []byte("xyz"))...)

	hist := HistogramPayloadSize(all)
	assert.Equal(t, 2, hist[2])
	assert.Equal(t, 1, hist[3])
}

func TestHistogramMessageSize(t *testing.T) {
	short := buildEntry(t, "ECU1", 0, "ECU1", 0, true, true, 0, []byte("a"))
	long := buildEntry(t, "ECU1", 1, "ECU1", 1000, true, true, 0, []byte("a longer payload here"))
	all := append(append([]byte{}, short...), long...)

	hist := HistogramMessageSize(all)
	assert.Equal(t, 1, hist[len(short)])
	assert.Equal(t, 1, hist[len(long)])
}

func TestHistogramMessageType(t *testing.T) {
	var all []byte
	all = append(all, buildEntry(t, "ECU1", 0, "ECU1", 0, true, false, 0, []byte("a"))...)   // non-verbose, log
	all = append(all, buildEntry(t, "ECU1", 1, "ECU1", 1000, true, true, 1, []byte("a"))...) // verbose, app trace
	all = append(all, buildEntry(t, "ECU1", 2, "ECU1", 2000, false, false, 0, []byte("a"))...) // no extended header, excluded

	hist := HistogramMessageType(all)
	assert.Equal(t, 1, hist[MessageTypeKey{Verbose: false, Type: 0}])
	assert.Equal(t, 1, hist[MessageTypeKey{Verbose: true, Type: 1}])
	assert.Len(t, hist, 2)
}

func TestHistogramTimestamp(t *testing.T) {
	var all []byte
	for _, secs := range []uint32{0, 3, 3, 10} {
		all = append(all, buildEntry(t, "ECU1", secs, "ECU1", 0, true, true, 0, []byte("a"))...)
	}

	hist := HistogramTimestamp(all)
	assert.Equal(t, 1, hist[10])
}

func TestLifecycles_CountsLongRunsOnly(t *testing.T) {
	var all []byte
	for _, ts := range []uint32{0, 5000000, 30000000, 10000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU1", ts, true, true, 0, []byte("a"))...)
	}

	assert.Equal(t, 1, Lifecycles(all))
}

func TestLifecycles_CountsEachQualifyingRun(t *testing.T) {
	var all []byte
	for _, ts := range []uint32{0, 30000000, 10000000, 50000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU1", ts, true, true, 0, []byte("a"))...)
	}

	assert.Equal(t, 2, Lifecycles(all))
}

func TestHistogramLifecycles_BucketsPerEcuRun(t *testing.T) {
	var all []byte
	for _, ts := range []uint32{0, 20000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU1", ts, true, true, 0, []byte("a"))...)
	}
	for _, ts := range []uint32{0, 40000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU2", ts, true, true, 0, []byte("a"))...)
	}

	hist := HistogramLifecycles(all)
	assert.Equal(t, 1, hist[2000])
	assert.Equal(t, 1, hist[4000])
}

func TestSplitLifecycles_KeyedByEcu(t *testing.T) {
	var all []byte
	for _, ts := range []uint32{0, 20000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU1", ts, true, true, 0, []byte("a"))...)
	}
	for _, ts := range []uint32{0, 40000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU2", ts, true, true, 0, []byte("a"))...)
	}

	result := SplitLifecycles(all)
	require.Contains(t, result, "ECU1")
	require.Contains(t, result, "ECU2")

	ecu1 := result["ECU1"]
	assert.Equal(t, 2, ecu1.Total)
	assert.Equal(t, 1, ecu1.ByDuration[2000])

	ecu2 := result["ECU2"]
	assert.Equal(t, 2, ecu2.Total)
	assert.Equal(t, 1, ecu2.ByDuration[4000])
}

func TestHistogramHelloWorld_BucketsByOffset(t *testing.T) {
	all := buildEntry(t, "ECU1", 0, "ECU1", 0, true, true, 0, []byte("Hello World"))

	hist := HistogramHelloWorld(all)
	assert.Equal(t, 1, hist[0])
}

// TestLifecyclesWindowed_DivergesFromGroupedOnLongRuns exercises a
// monotonic run of length three, where GroupBy folds the whole run down
// to a single (first, last) pair but the windowed variant counts every
// adjacent pair along the way.
func TestLifecyclesWindowed_DivergesFromGroupedOnLongRuns(t *testing.T) {
	var all []byte
	for _, ts := range []uint32{0, 20000000, 40000000} {
		all = append(all, buildEntry(t, "ECU1", 0, "ECU1", ts, true, true, 0, []byte("a"))...)
	}

	assert.Equal(t, 1, Lifecycles(all))
	assert.Equal(t, 2, LifecyclesWindowed(all))
}

func TestParCount_MatchesSingleThreaded(t *testing.T) {
	var all []byte
	for i := 0; i < 100; i++ {
		all = append(all, buildEntry(t, "ECU1", uint32(i), "ECU1", uint32(i*1000), true, true, 0, []byte("x"))...)
	}

	total, err := ParCount(all, 4)
	require.NoError(t, err)
	assert.Equal(t, Count(all), total)
}

// TestSplitTimestamp_MergesOverlappingRunsAcrossFinalize builds three
// monotonic-secs runs whose spans overlap enough that the last one is only
// discovered once GroupBy's trailing run is flushed out of Finalize --
// exercising the exact ordering that Then3(gb, merge, toDelta) depends on to
// get the final emitted pair into merge before merge itself is finalized.
func TestSplitTimestamp_MergesOverlappingRunsAcrossFinalize(t *testing.T) {
	var all []byte
	for _, secs := range []uint32{0, 1, 2, 1, 2, 3, 0, 5, 10} {
		all = append(all, buildEntry(t, "ECU1", secs, "ECU1", 0, true, true, 0, []byte("x"))...)
	}

	result := SplitTimestamp(all)
	require.Contains(t, result, "ECU1")

	ecu1 := result["ECU1"]
	assert.Equal(t, 9, ecu1.Total)
	assert.Equal(t, map[int]int{10: 1}, ecu1.ByDuration)
}
