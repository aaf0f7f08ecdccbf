package imt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildZeroHashes(t *testing.T) {
	h := NewPoseidon2Hasher()
	zeros, err := BuildZeroHashes(h, 26)
	require.NoError(t, err)
	require.Len(t, zeros, 26)

	genesis := GenesisLeaf()
	base, err := h.HashLeaf(&genesis)
	require.NoError(t, err)
	assert.Equal(t, base, zeros[0], "level 0 filler is the genesis leaf hash")

	for i := 1; i < len(zeros); i++ {
		doubled, err := h.HashNodes(zeros[i-1], zeros[i-1])
		require.NoError(t, err)
		assert.Equal(t, doubled, zeros[i])
	}
}

func TestBuildZeroHashes_PrefixStable(t *testing.T) {
	h := NewPoseidon2Hasher()
	small, err := BuildZeroHashes(h, 4)
	require.NoError(t, err)
	large, err := BuildZeroHashes(h, 26)
	require.NoError(t, err)
	assert.Equal(t, small, large[:4], "the table for a shorter tree is a prefix")
}
