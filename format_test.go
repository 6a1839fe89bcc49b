package bigtools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := header{
		magic: MagicBigWig, version: fileVersion, zoomLevels: 3,
		chromTreeOffset: 64, fullDataOffset: 128, fullIndexOffset: 4096,
		fieldCount: 0, definedFieldCount: 0,
		autoSQLOffset: 0, totalSummaryOffset: 8192, uncompressBufSize: 65536,
	}
	got := decodeHeader(h.encode(), false)
	require.Equal(t, h, got)
}

func TestHeaderDecodeWithByteSwapIsInverseOfSwapHelpers(t *testing.T) {
	// decodeHeader(b, true) must match manually swapping every
	// multi-byte field decoded from a little-endian buffer.
	h := header{magic: swap32(MagicBigBed), version: swap16(4), zoomLevels: swap16(1), chromTreeOffset: swap64(0x0102030405060708)}
	got := decodeHeader(h.encode(), true)
	require.Equal(t, uint32(MagicBigBed), got.magic)
	require.Equal(t, uint16(4), got.version)
	require.Equal(t, uint64(0x0102030405060708), got.chromTreeOffset)
}

func TestZoomHeaderEncodeDecode(t *testing.T) {
	z := zoomHeader{reduction: 1000, dataOffset: 500, indexOffset: 900}
	got := decodeZoomHeader(z.encode())
	require.Equal(t, z, got)
}

func TestSummaryEncodeDecode(t *testing.T) {
	s := summaryOnDisk{totalItems: 10, validCount: 1000, minVal: -5, maxVal: 5, sumData: 100, sumSquares: 500}
	got := decodeSummary(s.encode())
	require.Equal(t, s, got)
}

func TestSwapHelpers(t *testing.T) {
	require.Equal(t, uint16(0x0201), swap16(0x0102))
	require.Equal(t, uint32(0x04030201), swap32(0x01020304))
	require.Equal(t, uint64(0x0807060504030201), swap64(0x0102030405060708))
}
