package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTextParsesBedGraphStyleLines(t *testing.T) {
	in := "chr1\t0\t100\t1.5\nchr1\t100\t200\t2.5\n\nchr2\t0\t50\textra\tfields\n"
	src := NewText(strings.NewReader(in))

	r, ok, err := src.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Record{Chrom: "chr1", Start: 0, End: 100, Rest: "1.5"}, r)

	r, ok, err = src.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Record{Chrom: "chr1", Start: 100, End: 200, Rest: "2.5"}, r)

	r, ok, err = src.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, Record{Chrom: "chr2", Start: 0, End: 50, Rest: "extra\tfields"}, r)

	_, ok, err = src.Next()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTextRejectsTooFewFields(t *testing.T) {
	src := NewText(strings.NewReader("chr1\t0\n"))
	_, _, err := src.Next()
	require.Error(t, err)
}

func TestTextRejectsMalformedNumbers(t *testing.T) {
	src := NewText(strings.NewReader("chr1\tNaN\t100\n"))
	_, _, err := src.Next()
	require.Error(t, err)
}

func TestSliceReplaysInOrder(t *testing.T) {
	recs := []Record{{Chrom: "chr1", Start: 0, End: 1}, {Chrom: "chr1", Start: 1, End: 2}}
	s := NewSlice(recs)
	r, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, recs[0], r)
	r, ok, err = s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, recs[1], r)
	_, ok, err = s.Next()
	require.NoError(t, err)
	require.False(t, ok)
}
