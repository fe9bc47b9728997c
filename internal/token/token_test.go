package token

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRandomHex(t *testing.T) {
	a, err := RandomHex(48)
	require.NoError(t, err)
	require.Len(t, a, 96)
	_, err = hex.DecodeString(a)
	require.NoError(t, err)

	b, err := RandomHex(48)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHashOpaque(t *testing.T) {
	h1 := HashOpaque("some-opaque-value")
	h2 := HashOpaque("some-opaque-value")
	require.Equal(t, h1, h2)
	require.Len(t, h1, 64)
	require.NotEqual(t, h1, HashOpaque("another-value"))
	require.NotContains(t, h1, "some-opaque-value")
}
