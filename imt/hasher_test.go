package imt

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

func TestHashLeaf_Deterministic(t *testing.T) {
	h := NewPoseidon2Hasher()
	leaf := NewIndexedLeaf(h32(5), h32(9), 3)

	a, err := h.HashLeaf(&leaf)
	require.NoError(t, err)
	b, err := h.HashLeaf(&leaf)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)
}

func TestHashLeaf_FieldsAreBound(t *testing.T) {
	h := NewPoseidon2Hasher()
	base := NewIndexedLeaf(h32(5), h32(9), 3)
	baseHash, err := h.HashLeaf(&base)
	require.NoError(t, err)

	variants := []IndexedLeaf{
		NewIndexedLeaf(h32(6), h32(9), 3),
		NewIndexedLeaf(h32(5), h32(10), 3),
		NewIndexedLeaf(h32(5), h32(9), 4),
	}
	for _, v := range variants {
		vh, err := h.HashLeaf(&v)
		require.NoError(t, err)
		assert.NotEqual(t, baseHash, vh)
	}
}

func TestHashLeaf_MaxNullifierIsCanonical(t *testing.T) {
	h := NewPoseidon2Hasher()
	leaf := NewIndexedLeaf(MaxNullifierValue, common.Hash{}, 0)
	_, err := h.HashLeaf(&leaf)
	assert.NoError(t, err)
}

func TestHashLeaf_RejectsNonCanonicalValue(t *testing.T) {
	h := NewPoseidon2Hasher()
	// 0xff..ff exceeds the BN254 scalar field modulus.
	var big common.Hash
	for i := range big {
		big[i] = 0xff
	}
	leaf := NewIndexedLeaf(big, common.Hash{}, 0)
	_, err := h.HashLeaf(&leaf)
	assert.ErrorIs(t, err, poolerrors.ErrArithmeticOverflow)
}

func TestHashNodes_OrderMatters(t *testing.T) {
	h := NewPoseidon2Hasher()
	ab, err := h.HashNodes(h32(1), h32(2))
	require.NoError(t, err)
	ba, err := h.HashNodes(h32(2), h32(1))
	require.NoError(t, err)
	assert.NotEqual(t, ab, ba)
}
