// Package section builds the raw (pre-compression) section payloads that
// make up a BBI data block, and runs them through a bounded parallel
// compression pool before the writer puts them on disk.
package section

import (
	"fmt"
	"strconv"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/nvictus/bigtools/internal/source"
)

// Kind selects the record shape a Builder encodes.
type Kind int

const (
	// BigWig encodes Value-shaped records (start, end, float32 value),
	// choosing the most compact of the three on-disk section types.
	BigWig Kind = iota
	// BigBed encodes BedEntry-shaped records (start, end, opaque rest).
	BigBed
)

// On-disk section type tags (section header byte 20, counting from 0).
const (
	TypeBedGraph uint8 = 1
	TypeVarStep  uint8 = 2
	TypeFixedStep uint8 = 3
	typeBedEntry  uint8 = 0 // BigBed has one shape; the byte is unused
)

// Raw is one emitted, uncompressed section: a complete 24-byte header
// followed by its record bodies, ready for the compression pool.
type Raw struct {
	ChromID uint32
	Start   uint32
	End     uint32
	Count   int
	Bytes   []byte
}

// DefaultItemsPerSection is the default section size in records.
const DefaultItemsPerSection = 1024

// Builder accumulates records for one chromosome at a time and flushes
// them into Raw sections of at most itemsPerSection records, or fewer at
// a chromosome boundary or end of input.
type Builder struct {
	kind    Kind
	chromID uint32
	maxLen  int

	starts []uint32
	ends   []uint32
	values []float32 // BigWig
	rests  []string  // BigBed
}

// NewBuilder returns a Builder for the given Kind. itemsPerSection <= 0
// uses DefaultItemsPerSection.
func NewBuilder(kind Kind, itemsPerSection int) *Builder {
	if itemsPerSection <= 0 {
		itemsPerSection = DefaultItemsPerSection
	}
	return &Builder{kind: kind, maxLen: itemsPerSection}
}

// Reset prepares the builder for a new chromosome.
func (b *Builder) Reset(chromID uint32) {
	b.chromID = chromID
	b.starts = b.starts[:0]
	b.ends = b.ends[:0]
	b.values = b.values[:0]
	b.rests = b.rests[:0]
}

// Len reports the number of records currently buffered.
func (b *Builder) Len() int { return len(b.starts) }

// Full reports whether the builder has reached its item cap.
func (b *Builder) Full() bool { return len(b.starts) >= b.maxLen }

// Add buffers one record. For BigWig, rec.Rest must parse as a float32
// value. Add never flushes; callers flush explicitly via Flush.
func (b *Builder) Add(rec source.Record) error {
	b.starts = append(b.starts, rec.Start)
	b.ends = append(b.ends, rec.End)
	switch b.kind {
	case BigWig:
		v, err := strconv.ParseFloat(rec.Rest, 32)
		if err != nil {
			return fmt.Errorf("section: malformed value %q for chromosome %q: %w", rec.Rest, rec.Chrom, err)
		}
		b.values = append(b.values, float32(v))
	case BigBed:
		b.rests = append(b.rests, rec.Rest)
	}
	return nil
}

// Flush encodes everything buffered into a Raw section and clears the
// buffer (chromID is retained). ok is false if nothing was buffered.
func (b *Builder) Flush() (Raw, bool) {
	n := len(b.starts)
	if n == 0 {
		return Raw{}, false
	}
	var raw Raw
	switch b.kind {
	case BigWig:
		raw = b.flushBigWig(n)
	case BigBed:
		raw = b.flushBigBed(n)
	}
	b.starts = b.starts[:0]
	b.ends = b.ends[:0]
	b.values = b.values[:0]
	b.rests = b.rests[:0]
	return raw, true
}

func (b *Builder) flushBigWig(n int) Raw {
	typ, step, span := detectBigWigType(b.starts, b.ends)
	w := codec.NewWriter()
	writeSectionHeader(w, b.chromID, b.starts[0], b.ends[n-1], step, span, typ, uint16(n))
	switch typ {
	case TypeBedGraph:
		for i := 0; i < n; i++ {
			w.U32(b.starts[i])
			w.U32(b.ends[i])
			w.F32(b.values[i])
		}
	case TypeVarStep:
		for i := 0; i < n; i++ {
			w.U32(b.starts[i])
			w.F32(b.values[i])
		}
	case TypeFixedStep:
		for i := 0; i < n; i++ {
			w.F32(b.values[i])
		}
	}
	return Raw{ChromID: b.chromID, Start: b.starts[0], End: b.ends[n-1], Count: n, Bytes: w.BytesOut()}
}

func (b *Builder) flushBigBed(n int) Raw {
	w := codec.NewWriter()
	writeSectionHeader(w, b.chromID, b.starts[0], b.ends[n-1], 0, 0, typeBedEntry, uint16(n))
	for i := 0; i < n; i++ {
		w.U32(b.starts[i])
		w.U32(b.ends[i])
		w.Bytes([]byte(b.rests[i]))
		w.U8(0)
	}
	return Raw{ChromID: b.chromID, Start: b.starts[0], End: b.ends[n-1], Count: n, Bytes: w.BytesOut()}
}

// writeSectionHeader writes the fixed 24-byte section header shared by
// every section type.
func writeSectionHeader(w *codec.Writer, chromID, start, end, step, span uint32, typ uint8, count uint16) {
	w.U32(chromID)
	w.U32(start)
	w.U32(end)
	w.U32(step)
	w.U32(span)
	w.U8(typ)
	w.U8(0) // reserved
	w.U16(count)
}

// detectBigWigType picks the most compact section type for which the
// decoder's reconstruction of (start, end) is bit-exact: fixedStep
// requires uniform span and uniform step between starts; varStep
// requires only uniform span; bedGraph always works.
func detectBigWigType(starts, ends []uint32) (typ uint8, step, span uint32) {
	n := len(starts)
	span = ends[0] - starts[0]
	uniformSpan := true
	for i := 0; i < n; i++ {
		if ends[i]-starts[i] != span {
			uniformSpan = false
			break
		}
	}
	if !uniformSpan {
		return TypeBedGraph, 0, 0
	}
	if n == 1 {
		return TypeVarStep, 0, span
	}
	step = starts[1] - starts[0]
	uniformStep := step > 0
	for i := 1; i < n && uniformStep; i++ {
		if starts[i]-starts[i-1] != step {
			uniformStep = false
		}
	}
	if uniformStep {
		return TypeFixedStep, step, span
	}
	return TypeVarStep, 0, span
}
