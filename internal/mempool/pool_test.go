package mempool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocBumpsForward(t *testing.T) {
	p := New(16)
	a, err := p.Alloc(10)
	require.NoError(t, err)
	require.Len(t, a, 10)
	require.Equal(t, 10, p.Used())
	require.Equal(t, 6, p.Remaining())
}

func TestAllocExhausted(t *testing.T) {
	p := New(8)
	_, err := p.Alloc(8)
	require.NoError(t, err)

	_, err = p.Alloc(1)
	require.Error(t, err)
	require.ErrorIs(t, err, ErrExhausted)
}

func TestAllocNonOverlapping(t *testing.T) {
	p := New(32)
	a, err := p.Alloc(4)
	require.NoError(t, err)
	b, err := p.Alloc(4)
	require.NoError(t, err)

	a[0] = 0xAA
	require.NotEqual(t, byte(0xAA), b[0])
}
