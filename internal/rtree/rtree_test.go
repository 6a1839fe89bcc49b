package rtree

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type memSink struct {
	buf []byte
}

func (m *memSink) write(b []byte) (uint64, error) {
	off := uint64(len(m.buf))
	m.buf = append(m.buf, b...)
	return off, nil
}

type memFetcher struct {
	buf []byte
}

func (f *memFetcher) ReadAt(off uint64, n int) ([]byte, error) {
	return f.buf[off : off+uint64(n)], nil
}

func TestBuildWriteQueryRoundTrip(t *testing.T) {
	b := NewBuilder(4)
	for i := uint32(0); i < 20; i++ {
		b.Add(Leaf{
			ChromStart: 0, Start: i * 100, ChromEnd: 0, End: i*100 + 100,
			Offset: uint64(i), Size: 10,
		})
	}
	tree := b.Build()
	require.Equal(t, uint64(20), tree.ItemCount())

	sink := &memSink{}
	root, err := tree.Write(sink.write)
	require.NoError(t, err)

	fetcher := &memFetcher{buf: sink.buf}
	leaves, err := Query(fetcher, root, 0, 250, 550)
	require.NoError(t, err)

	require.NotEmpty(t, leaves)
	for _, l := range leaves {
		require.True(t, l.End > 250 && l.Start < 550)
	}
	// every leaf truly overlapping [250, 550) must be present
	var found []uint32
	for _, l := range leaves {
		found = append(found, l.Start)
	}
	require.Contains(t, found, uint32(200))
	require.Contains(t, found, uint32(500))
}

func TestQueryAcrossChromosomes(t *testing.T) {
	b := NewBuilder(3)
	b.Add(Leaf{ChromStart: 0, Start: 0, ChromEnd: 0, End: 100, Offset: 0, Size: 1})
	b.Add(Leaf{ChromStart: 1, Start: 0, ChromEnd: 1, End: 100, Offset: 1, Size: 1})
	b.Add(Leaf{ChromStart: 2, Start: 0, ChromEnd: 2, End: 100, Offset: 2, Size: 1})
	tree := b.Build()
	sink := &memSink{}
	root, err := tree.Write(sink.write)
	require.NoError(t, err)
	fetcher := &memFetcher{buf: sink.buf}

	leaves, err := Query(fetcher, root, 1, 0, 50)
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	require.Equal(t, uint32(1), leaves[0].ChromStart)
}

func TestEmptyTreeWriteAndQuery(t *testing.T) {
	b := NewBuilder(4)
	tree := b.Build()
	require.Equal(t, uint64(0), tree.ItemCount())
	sink := &memSink{}
	root, err := tree.Write(sink.write)
	require.NoError(t, err)
	require.Equal(t, uint64(0), root)
}
