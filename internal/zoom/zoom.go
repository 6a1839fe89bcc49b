// Package zoom implements the reduction pyramid: as base-level records
// stream past, each level accumulates them into fixed-width bins and
// emits its own section stream, indexed by its own R-tree exactly like
// the base data.
package zoom

import "github.com/nvictus/bigtools/internal/codec"

// DefaultBase is the geometric ratio between successive reduction
// widths when levels are not given explicitly.
const DefaultBase = 10

// DefaultLevelCount is how many levels Levels generates by default.
const DefaultLevelCount = 10

// Levels returns level count reduction widths starting at base^1,
// base^2, ... (DefaultBase/DefaultLevelCount if unset).
func Levels(base uint32, count int) []uint32 {
	if base <= 1 {
		base = DefaultBase
	}
	if count <= 0 {
		count = DefaultLevelCount
	}
	out := make([]uint32, count)
	w := base
	for i := range out {
		out[i] = w
		w *= base
	}
	return out
}

// Record is one zoom-level summary bin.
type Record struct {
	ChromID      uint32
	Start        uint32
	End          uint32
	BasesCovered uint32
	Min          float32
	Max          float32
	Sum          float32
	SumSquares   float32
}

// Encode writes r in the fixed on-disk zoom record layout.
func (r Record) Encode(w *codec.Writer) {
	w.U32(r.ChromID)
	w.U32(r.Start)
	w.U32(r.End)
	w.U32(r.BasesCovered)
	w.F32(r.Min)
	w.F32(r.Max)
	w.F32(r.Sum)
	w.F32(r.SumSquares)
}

// Decode reads one Record from r.
func Decode(r *codec.Reader) Record {
	return Record{
		ChromID:      r.U32(),
		Start:        r.U32(),
		End:          r.U32(),
		BasesCovered: r.U32(),
		Min:          r.F32(),
		Max:          r.F32(),
		Sum:          r.F32(),
		SumSquares:   r.F32(),
	}
}

// RecordSize is the encoded byte size of one Record.
const RecordSize = 4*4 + 4*4

// Accumulator maintains the single open bin for one chromosome at one
// reduction level, folding in overlapping (start, end, value) spans and
// emitting a closed Record each time the span advances past the bin.
type Accumulator struct {
	reduction uint32
	chromID   uint32

	open     bool
	start    uint32
	end      uint32
	bases    uint32
	min      float32
	max      float32
	sum      float32
	sumSq    float32
	sawValue bool
}

// NewAccumulator starts an accumulator for chromID at the given
// reduction width.
func NewAccumulator(chromID, reduction uint32) *Accumulator {
	return &Accumulator{chromID: chromID, reduction: reduction}
}

// Add folds the weighted span [s, e) with value v into the open bin,
// closing and emitting bins via emit as the span advances past them.
// Each covered base contributes v once, so sums are weighted by overlap
// length; BigBed callers pass v = 1.
func (a *Accumulator) Add(s, e uint32, v float32, emit func(Record)) {
	for s < e {
		if !a.open {
			a.openBinAt(s)
		}
		if s >= a.end {
			a.closeBin(emit)
			continue
		}
		segEnd := e
		if segEnd > a.end {
			segEnd = a.end
		}
		overlap := segEnd - s
		a.bases += overlap
		a.sum += v * float32(overlap)
		a.sumSq += v * v * float32(overlap)
		if !a.haveMinMax() || v < a.min {
			a.min = v
		}
		if !a.haveMinMax() || v > a.max {
			a.max = v
		}
		a.sawValue = true
		s = segEnd
	}
}

func (a *Accumulator) haveMinMax() bool { return a.sawValue }

func (a *Accumulator) openBinAt(pos uint32) {
	binStart := (pos / a.reduction) * a.reduction
	a.start = binStart
	a.end = binStart + a.reduction
	a.bases = 0
	a.sum = 0
	a.sumSq = 0
	a.sawValue = false
	a.open = true
}

func (a *Accumulator) closeBin(emit func(Record)) {
	if a.open && a.bases > 0 {
		emit(Record{
			ChromID:      a.chromID,
			Start:        a.start,
			End:          a.end,
			BasesCovered: a.bases,
			Min:          a.min,
			Max:          a.max,
			Sum:          a.sum,
			SumSquares:   a.sumSq,
		})
	}
	a.open = false
}

// Finish closes and emits any partially-filled open bin.
func (a *Accumulator) Finish(emit func(Record)) {
	a.closeBin(emit)
}
