package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashLess(t *testing.T) {
	a := Hash{0x01}
	b := Hash{0x02}
	require.True(t, a.Less(b))
	require.False(t, b.Less(a))
	require.False(t, a.Less(a))
}

func TestHashIsZero(t *testing.T) {
	require.True(t, ZeroHash.IsZero())
	h := Hash{0x01}
	require.False(t, h.IsZero())
}

func TestHashFromSlice(t *testing.T) {
	raw := make([]byte, HashSize)
	raw[0] = 0xAB
	h, err := HashFromSlice(raw)
	require.NoError(t, err)
	require.Equal(t, byte(0xAB), h[0])

	_, err = HashFromSlice(raw[:HashSize-1])
	require.Error(t, err)
	var lenErr *InvalidLengthError
	require.ErrorAs(t, err, &lenErr)
}
