package grouper

import (
	"testing"

	"github.com/nvictus/bigtools/internal/contract"
	"github.com/nvictus/bigtools/internal/source"
	"github.com/stretchr/testify/require"
)

func recs(chrom string, pairs ...uint32) []source.Record {
	var out []source.Record
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, source.Record{Chrom: chrom, Start: pairs[i], End: pairs[i+1]})
	}
	return out
}

func TestGroupsByChromosomeInOrder(t *testing.T) {
	var all []source.Record
	all = append(all, recs("chr1", 0, 10, 10, 20)...)
	all = append(all, recs("chr2", 0, 5)...)
	g := New(source.NewSlice(all))

	chrom, sub, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chr1", chrom)

	var got []source.Record
	for {
		r, ok, err := sub.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, r)
	}
	require.Len(t, got, 2)

	chrom, sub, ok, err = g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chr2", chrom)
	r, ok, err := sub.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(0), r.Start)
	_, ok, err = sub.Next()
	require.NoError(t, err)
	require.False(t, ok)

	_, _, ok, err = g.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUnsortedChromosomesError(t *testing.T) {
	all := append(recs("chr2", 0, 1), recs("chr1", 0, 1)...)
	g := New(source.NewSlice(all))
	_, sub, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	for {
		_, more, _ := sub.Next()
		if !more {
			break
		}
	}
	_, _, _, err = g.Next()
	require.Error(t, err)
}

func TestUnsortedStartsWithinChromosomeError(t *testing.T) {
	all := recs("chr1", 10, 20, 0, 5)
	g := New(source.NewSlice(all))
	_, sub, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = sub.Next()
	require.NoError(t, err)
	require.True(t, ok)
	_, _, err = sub.Next()
	require.Error(t, err)
}

func TestNextPanicsWhileSubStreamLive(t *testing.T) {
	all := append(recs("chr1", 0, 1), recs("chr2", 0, 1)...)
	g := New(source.NewSlice(all))
	_, _, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.PanicsWithError(t, (&contract.Violation{Msg: "grouper.Next called while previous sub-stream is still live"}).Error(), func() { g.Next() })
}

func TestCloseReleasesSubStreamOnceExhausted(t *testing.T) {
	all := append(recs("chr1", 0, 1), recs("chr2", 0, 1)...)
	g := New(source.NewSlice(all))
	_, sub, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	r, ok, err := sub.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(0), r.Start)
	// chr1's only record is consumed; the grouper has already buffered
	// chr2's first record as lookahead, but sub is still checked out
	// until it either sees ok=false or is explicitly Closed.
	sub.Close()

	chrom, _, ok, err := g.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "chr2", chrom)
}
