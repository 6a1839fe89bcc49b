package chromtree

import (
	"testing"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	entries := []Entry{
		{Name: "chr1", ID: 0, Length: 248956422},
		{Name: "chr2", ID: 1, Length: 242193529},
		{Name: "chrX", ID: 2, Length: 156040895},
	}
	buf := Write(entries)
	got, err := Read(buf, 0)
	require.NoError(t, err)
	require.ElementsMatch(t, entries, got)
}

func TestKeySizeIsLongestName(t *testing.T) {
	entries := []Entry{{Name: "chr1"}, {Name: "chr20"}, {Name: "chrX"}}
	require.Equal(t, uint32(5), KeySize(entries))
}

func TestReadRejectsBadMagic(t *testing.T) {
	_, err := Read([]byte{0, 0, 0, 0, 0, 0, 0, 0}, 0)
	require.Error(t, err)
}

// TestReadDescendsNonLeafNodes builds a two-level tree by hand — a root
// node with two child pointers, each pointing at a one-entry leaf — to
// exercise the non-leaf descent path that Write itself never produces.
func TestReadDescendsNonLeafNodes(t *testing.T) {
	const keySize = 4
	w := codec.NewWriter()
	w.U32(Magic)
	w.U32(2) // items per block, unused by the reader
	w.U32(keySize)
	w.U32(8)
	w.U64(2) // item count
	w.U64(0) // reserved

	rootStart := w.Len()
	childSize := nodeHeaderSize + keySize + 4 + 4 // header + name + id + length
	child1Off := uint64(rootStart + nodeHeaderSize + 2*(keySize+8))
	child2Off := child1Off + uint64(childSize)

	// Root: isLeaf=0, two children.
	w.U8(0)
	w.U8(0)
	w.U16(2)
	w.Bytes([]byte("chr1\x00\x00\x00\x00")[:keySize])
	w.U64(child1Off)
	w.Bytes([]byte("chr2\x00\x00\x00\x00")[:keySize])
	w.U64(child2Off)

	// Leaf 1: chr1.
	w.U8(1)
	w.U8(0)
	w.U16(1)
	w.Bytes([]byte("chr1\x00\x00\x00\x00")[:keySize])
	w.U32(0)
	w.U32(100)

	// Leaf 2: chr2.
	w.U8(1)
	w.U8(0)
	w.U16(1)
	w.Bytes([]byte("chr2\x00\x00\x00\x00")[:keySize])
	w.U32(1)
	w.U32(200)

	got, err := Read(w.BytesOut(), 0)
	require.NoError(t, err)
	require.ElementsMatch(t, []Entry{
		{Name: "chr1", ID: 0, Length: 100},
		{Name: "chr2", ID: 1, Length: 200},
	}, got)
}

func TestReadDetectsItemCountMismatch(t *testing.T) {
	entries := []Entry{{Name: "chr1", ID: 0, Length: 100}}
	buf := Write(entries)
	// Corrupt the item-count field (offset 16, a u64) to claim one extra entry.
	buf[16] = 2
	_, err := Read(buf, 0)
	require.Error(t, err)
}
