package zoom

import (
	"testing"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestLevelsGeometricProgression(t *testing.T) {
	levels := Levels(10, 4)
	require.Equal(t, []uint32{10, 100, 1000, 10000}, levels)
}

func TestLevelsDefaults(t *testing.T) {
	levels := Levels(0, 0)
	require.Len(t, levels, DefaultLevelCount)
	require.Equal(t, uint32(DefaultBase), levels[0])
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := Record{ChromID: 1, Start: 100, End: 200, BasesCovered: 100, Min: -1.5, Max: 3.5, Sum: 50, SumSquares: 125}
	w := codec.NewWriter()
	rec.Encode(w)
	r := codec.NewReader(w.BytesOut())
	got := Decode(r)
	require.Equal(t, rec, got)
}

func TestAccumulatorFoldsWithinOneBin(t *testing.T) {
	var emitted []Record
	a := NewAccumulator(0, 100)
	a.Add(10, 20, 2.0, func(r Record) { emitted = append(emitted, r) })
	a.Add(20, 30, 4.0, func(r Record) { emitted = append(emitted, r) })
	require.Empty(t, emitted)
	a.Finish(func(r Record) { emitted = append(emitted, r) })
	require.Len(t, emitted, 1)
	rec := emitted[0]
	require.Equal(t, uint32(0), rec.Start)
	require.Equal(t, uint32(100), rec.End)
	require.Equal(t, uint32(20), rec.BasesCovered)
	require.Equal(t, float32(2.0), rec.Min)
	require.Equal(t, float32(4.0), rec.Max)
	require.Equal(t, float32(2.0*10+4.0*10), rec.Sum)
}

func TestAccumulatorClosesBinOnAdvance(t *testing.T) {
	var emitted []Record
	a := NewAccumulator(5, 50)
	a.Add(0, 40, 1.0, func(r Record) { emitted = append(emitted, r) })
	require.Empty(t, emitted)
	a.Add(60, 70, 2.0, func(r Record) { emitted = append(emitted, r) })
	require.Len(t, emitted, 1)
	require.Equal(t, uint32(0), emitted[0].Start)
	require.Equal(t, uint32(50), emitted[0].End)
	a.Finish(func(r Record) { emitted = append(emitted, r) })
	require.Len(t, emitted, 2)
	require.Equal(t, uint32(50), emitted[1].Start)
	require.Equal(t, uint32(100), emitted[1].End)
}

func TestAccumulatorNeverEmitsEmptyBin(t *testing.T) {
	var emitted []Record
	a := NewAccumulator(0, 10)
	a.Finish(func(r Record) { emitted = append(emitted, r) })
	require.Empty(t, emitted)
}
