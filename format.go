package bigtools

import (
	"math"

	"github.com/nvictus/bigtools/internal/codec"
)

func f64bits(v float64) uint64    { return math.Float64bits(v) }
func f64frombits(b uint64) float64 { return math.Float64frombits(b) }

// Magic words distinguishing the two BBI file types. A file is valid iff
// its first four bytes equal one of these under either byte order.
const (
	MagicBigWig uint32 = 0x888FFC26
	MagicBigBed uint32 = 0x8789F2EB
)

const headerSize = 64

// header is the fixed 64-byte preamble. offsets are written as zero
// placeholders when writing starts and patched once the pipeline
// completes.
type header struct {
	magic               uint32
	version             uint16
	zoomLevels          uint16
	chromTreeOffset     uint64
	fullDataOffset      uint64
	fullIndexOffset     uint64
	fieldCount          uint16
	definedFieldCount   uint16
	autoSQLOffset       uint64
	totalSummaryOffset  uint64
	uncompressBufSize   uint32
	extensionOffset     uint64
}

const fileVersion = 4

func (h header) encode() []byte {
	w := codec.NewWriter()
	w.U32(h.magic)
	w.U16(h.version)
	w.U16(h.zoomLevels)
	w.U64(h.chromTreeOffset)
	w.U64(h.fullDataOffset)
	w.U64(h.fullIndexOffset)
	w.U16(h.fieldCount)
	w.U16(h.definedFieldCount)
	w.U64(h.autoSQLOffset)
	w.U64(h.totalSummaryOffset)
	w.U32(h.uncompressBufSize)
	w.U64(h.extensionOffset)
	out := w.BytesOut()
	if len(out) != headerSize {
		panic("bigtools: header encode produced wrong size")
	}
	return out
}

func decodeHeader(b []byte, swap bool) header {
	r := codec.NewReader(b)
	var h header
	h.magic = r.U32()
	h.version = r.U16()
	h.zoomLevels = r.U16()
	h.chromTreeOffset = r.U64()
	h.fullDataOffset = r.U64()
	h.fullIndexOffset = r.U64()
	h.fieldCount = r.U16()
	h.definedFieldCount = r.U16()
	h.autoSQLOffset = r.U64()
	h.totalSummaryOffset = r.U64()
	h.uncompressBufSize = r.U32()
	h.extensionOffset = r.U64()
	if swap {
		h.magic = swap32(h.magic)
		h.version = swap16(h.version)
		h.zoomLevels = swap16(h.zoomLevels)
		h.chromTreeOffset = swap64(h.chromTreeOffset)
		h.fullDataOffset = swap64(h.fullDataOffset)
		h.fullIndexOffset = swap64(h.fullIndexOffset)
		h.fieldCount = swap16(h.fieldCount)
		h.definedFieldCount = swap16(h.definedFieldCount)
		h.autoSQLOffset = swap64(h.autoSQLOffset)
		h.totalSummaryOffset = swap64(h.totalSummaryOffset)
		h.uncompressBufSize = swap32(h.uncompressBufSize)
		h.extensionOffset = swap64(h.extensionOffset)
	}
	return h
}

func swap16(v uint16) uint16 { return v<<8 | v>>8 }
func swap32(v uint32) uint32 {
	return v<<24 | (v&0xFF00)<<8 | (v&0xFF0000)>>8 | v>>24
}
func swap64(v uint64) uint64 {
	return uint64(swap32(uint32(v)))<<32 | uint64(swap32(uint32(v>>32)))
}

const zoomHeaderSize = 24

type zoomHeader struct {
	reduction   uint32
	dataOffset  uint64
	indexOffset uint64
}

func (z zoomHeader) encode() []byte {
	w := codec.NewWriter()
	w.U32(z.reduction)
	w.U32(0) // reserved
	w.U64(z.dataOffset)
	w.U64(z.indexOffset)
	return w.BytesOut()
}

func decodeZoomHeader(b []byte) zoomHeader {
	r := codec.NewReader(b)
	red := r.U32()
	r.U32() // reserved
	data := r.U64()
	idx := r.U64()
	return zoomHeader{reduction: red, dataOffset: data, indexOffset: idx}
}

const totalSummarySize = 8*2 + 8*4

// summaryOnDisk is the fixed-size block patched in at totalSummaryOffset.
type summaryOnDisk struct {
	totalItems uint64
	validCount uint64
	minVal     float64
	maxVal     float64
	sumData    float64
	sumSquares float64
}

func (s summaryOnDisk) encode() []byte {
	w := codec.NewWriter()
	w.U64(s.totalItems)
	w.U64(s.validCount)
	w.U64(f64bits(s.minVal))
	w.U64(f64bits(s.maxVal))
	w.U64(f64bits(s.sumData))
	w.U64(f64bits(s.sumSquares))
	return w.BytesOut()
}

func decodeSummary(b []byte) summaryOnDisk {
	r := codec.NewReader(b)
	return summaryOnDisk{
		totalItems: r.U64(),
		validCount: r.U64(),
		minVal:     f64frombits(r.U64()),
		maxVal:     f64frombits(r.U64()),
		sumData:    f64frombits(r.U64()),
		sumSquares: f64frombits(r.U64()),
	}
}
