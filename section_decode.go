package bigtools

import (
	"fmt"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/nvictus/bigtools/internal/section"
	"github.com/nvictus/bigtools/internal/zoom"
)

// decodeBigWigSection decodes one section payload (header + body,
// already inflated) into the Values it holds, clipped to [qStart, qEnd).
func decodeBigWigSection(payload []byte, chromID, qStart, qEnd uint32) ([]Value, error) {
	r := codec.NewReader(payload)
	gotChromID := r.U32()
	chromStart := r.U32()
	r.U32() // chrom_end
	step := r.U32()
	span := r.U32()
	typ := r.U8()
	r.U8() // reserved
	count := int(r.U16())

	if gotChromID != chromID {
		return nil, nil
	}

	var out []Value
	switch typ {
	case section.TypeBedGraph:
		for i := 0; i < count; i++ {
			s := r.U32()
			e := r.U32()
			v := r.F32()
			appendClippedValue(&out, s, e, v, qStart, qEnd)
		}
	case section.TypeVarStep:
		for i := 0; i < count; i++ {
			s := r.U32()
			v := r.F32()
			appendClippedValue(&out, s, s+span, v, qStart, qEnd)
		}
	case section.TypeFixedStep:
		for i := 0; i < count; i++ {
			s := chromStart + uint32(i)*step
			v := r.F32()
			appendClippedValue(&out, s, s+span, v, qStart, qEnd)
		}
	default:
		return nil, fmt.Errorf("unknown section type %d", typ)
	}
	return out, nil
}

func appendClippedValue(out *[]Value, s, e uint32, v float32, qStart, qEnd uint32) {
	if e <= qStart || s >= qEnd {
		return
	}
	if s < qStart {
		s = qStart
	}
	if e > qEnd {
		e = qEnd
	}
	*out = append(*out, Value{Start: s, End: e, Value: v})
}

// decodeBigBedSection decodes one BigBed section payload into its
// BedEntry records, clipped to [qStart, qEnd).
func decodeBigBedSection(payload []byte, qStart, qEnd uint32) ([]BedEntry, error) {
	r := codec.NewReader(payload)
	r.U32() // chrom_id
	r.U32() // chrom_start
	r.U32() // chrom_end
	r.U32() // item_step, unused
	r.U32() // item_span, unused
	r.U8()  // section type, always 0 for BigBed
	r.U8()  // reserved
	count := int(r.U16())

	var out []BedEntry
	for i := 0; i < count; i++ {
		s := r.U32()
		e := r.U32()
		start := r.Pos()
		for r.Pos() < len(payload) && payload[r.Pos()] != 0 {
			r.Skip(1)
		}
		rest := string(payload[start:r.Pos()])
		r.Skip(1) // terminator
		if e <= qStart || s >= qEnd {
			continue
		}
		if s < qStart {
			s = qStart
		}
		if e > qEnd {
			e = qEnd
		}
		out = append(out, BedEntry{Start: s, End: e, Rest: rest})
	}
	return out, nil
}

// decodeZoomSection decodes one zoom section payload into the
// ZoomRecords it holds for chromID, clipped to [qStart, qEnd). A zoom
// section may span several chromosomes, so records are filtered by their
// own chromosome id rather than by the section header's.
func decodeZoomSection(payload []byte, chromID, qStart, qEnd uint32) ([]ZoomRecord, error) {
	r := codec.NewReader(payload)
	r.U32() // chrom_id of the first record
	r.U32() // chrom_start
	r.U32() // chrom_end
	r.U32() // item_step, unused
	r.U32() // item_span, unused
	r.U8()  // section type
	r.U8()  // reserved
	count := int(r.U16())
	var out []ZoomRecord
	for i := 0; i < count; i++ {
		rec := zoom.Decode(r)
		if rec.ChromID != chromID || rec.End <= qStart || rec.Start >= qEnd {
			continue
		}
		out = append(out, ZoomRecord{
			ChromID:      rec.ChromID,
			Start:        rec.Start,
			End:          rec.End,
			BasesCovered: rec.BasesCovered,
			Min:          rec.Min,
			Max:          rec.Max,
			Sum:          rec.Sum,
			SumOfSquares: rec.SumSquares,
		})
	}
	return out, nil
}
