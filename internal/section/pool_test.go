package section

import (
	"testing"

	"github.com/nvictus/bigtools/internal/codec"
	"github.com/stretchr/testify/require"
)

func TestPoolPreservesSubmissionOrder(t *testing.T) {
	p := NewPool(4, 0)
	const n = 64
	for i := int64(0); i < n; i++ {
		raw := make([]byte, 100)
		for j := range raw {
			raw[j] = byte(i)
		}
		p.Submit(i, raw)
	}
	p.CloseSubmit()

	for i := int64(0); i < n; i++ {
		res, ok := p.NextCompleted()
		require.True(t, ok)
		require.Equal(t, i, res.Seq)
		require.NoError(t, res.Err)
	}
	_, ok := p.NextCompleted()
	require.False(t, ok)
	p.Wait()
	require.NoError(t, p.Err())
}

func TestPoolRoundTripsThroughCodec(t *testing.T) {
	p := NewPool(2, 0)
	raw := []byte("the quick brown fox jumps over the lazy dog, repeated many times to compress well. " +
		"the quick brown fox jumps over the lazy dog, repeated many times to compress well.")
	p.Submit(0, raw)
	p.CloseSubmit()
	res, ok := p.NextCompleted()
	require.True(t, ok)
	require.NoError(t, res.Err)
	require.False(t, res.Stored)
	back, err := codec.Decompress(res.Payload, len(raw))
	require.NoError(t, err)
	require.Equal(t, raw, back)
	p.Wait()
}

func TestPoolStoresIncompressiblePayload(t *testing.T) {
	p := NewPool(1, 0)
	raw := []byte{1, 2, 3}
	p.Submit(0, raw)
	p.CloseSubmit()
	res, ok := p.NextCompleted()
	require.True(t, ok)
	require.True(t, res.Stored)
	require.Equal(t, raw, res.Payload)
	p.Wait()
}
