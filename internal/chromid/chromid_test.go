package chromid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDAssignsInFirstSeenOrder(t *testing.T) {
	m := New()
	require.Equal(t, uint32(0), m.GetID("chr2"))
	require.Equal(t, uint32(1), m.GetID("chr1"))
	require.Equal(t, uint32(0), m.GetID("chr2")) // stable on repeat
	require.Equal(t, 2, m.Len())
}

func TestLookupUnknown(t *testing.T) {
	m := New()
	m.GetID("chr1")
	_, ok := m.Lookup("chr2")
	require.False(t, ok)
	id, ok := m.Lookup("chr1")
	require.True(t, ok)
	require.Equal(t, uint32(0), id)
}

func TestNewFromSizesPreservesOrder(t *testing.T) {
	m := NewFromSizes([]string{"chr3", "chr1", "chr2"})
	entries := m.Entries()
	require.Equal(t, []Entry{
		{Name: "chr3", ID: 0},
		{Name: "chr1", ID: 1},
		{Name: "chr2", ID: 2},
	}, entries)
}
