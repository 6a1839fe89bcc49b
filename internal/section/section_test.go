package section

import (
	"testing"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/nvictus/bigtools/internal/source"
	"github.com/stretchr/testify/require"
)

func TestBuilderDetectsFixedStep(t *testing.T) {
	b := NewBuilder(BigWig, 10)
	b.Reset(3)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Add(source.Record{Start: uint32(i * 10), End: uint32(i*10 + 10), Rest: "1.0"}))
	}
	raw, ok := b.Flush()
	require.True(t, ok)
	require.Equal(t, uint32(3), raw.ChromID)
	require.Equal(t, uint32(0), raw.Start)
	require.Equal(t, uint32(40), raw.End)

	r := codec.NewReader(raw.Bytes)
	require.Equal(t, uint32(3), r.U32())  // chrom_id
	require.Equal(t, uint32(0), r.U32())  // start
	require.Equal(t, uint32(40), r.U32()) // end
	step := r.U32()
	span := r.U32()
	typ := r.U8()
	r.U8()
	count := r.U16()
	require.Equal(t, TypeFixedStep, typ)
	require.Equal(t, uint32(10), step)
	require.Equal(t, uint32(10), span)
	require.Equal(t, uint16(4), count)
}

func TestBuilderFallsBackToBedGraph(t *testing.T) {
	b := NewBuilder(BigWig, 10)
	b.Reset(0)
	require.NoError(t, b.Add(source.Record{Start: 0, End: 5, Rest: "1"}))
	require.NoError(t, b.Add(source.Record{Start: 10, End: 12, Rest: "2"}))
	raw, ok := b.Flush()
	require.True(t, ok)
	r := codec.NewReader(raw.Bytes)
	r.U32()
	r.U32()
	r.U32()
	r.U32()
	r.U32()
	typ := r.U8()
	require.Equal(t, TypeBedGraph, typ)
}

func TestBuilderFullAndEmptyFlush(t *testing.T) {
	b := NewBuilder(BigBed, 2)
	b.Reset(0)
	require.False(t, b.Full())
	require.NoError(t, b.Add(source.Record{Start: 0, End: 1, Rest: "a"}))
	require.NoError(t, b.Add(source.Record{Start: 1, End: 2, Rest: "b"}))
	require.True(t, b.Full())
	_, ok := b.Flush()
	require.True(t, ok)
	_, ok = b.Flush()
	require.False(t, ok)
}

func TestBuilderRejectsMalformedBigWigValue(t *testing.T) {
	b := NewBuilder(BigWig, 10)
	b.Reset(0)
	err := b.Add(source.Record{Start: 0, End: 1, Rest: "not-a-number"})
	require.Error(t, err)
}
