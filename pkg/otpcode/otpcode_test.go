package otpcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ReturnsSixDigits(t *testing.T) {
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Len(t, code, Digits)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "non-digit in %q", code)
		}
	}
}

func TestGenerate_Varies(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		code, err := Generate()
		require.NoError(t, err)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestNewSalt_Unique(t *testing.T) {
	a, err := NewSalt()
	require.NoError(t, err)
	b, err := NewSalt()
	require.NoError(t, err)

	assert.Len(t, a, saltBytes*2)
	assert.NotEqual(t, a, b)
}

func TestHasher_Verify(t *testing.T) {
	h := NewHasher("pepper")
	hash := h.Hash("salt-a", "012345")

	assert.NotContains(t, hash, "012345")
	assert.True(t, h.Verify(hash, "salt-a", "012345"))
	assert.False(t, h.Verify(hash, "salt-a", "012346"))
	assert.False(t, h.Verify(hash, "salt-b", "012345"))
	assert.False(t, NewHasher("other").Verify(hash, "salt-a", "012345"))
}
