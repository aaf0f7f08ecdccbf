package imt

import (
	"encoding/binary"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

func TestLeafEncode_Layout(t *testing.T) {
	leaf := NewIndexedLeaf(h32(5), h32(9), 0x0102030405060708)
	data := leaf.Encode()
	require.Len(t, data, LeafSize)

	assert.Equal(t, leaf.Value[:], data[0:32])
	assert.Equal(t, leaf.NextValue[:], data[32:64])
	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(data[64:72]))

	decoded, err := DecodeLeaf(data)
	require.NoError(t, err)
	assert.Equal(t, leaf, decoded)
}

func TestDecodeLeaf_WrongSize(t *testing.T) {
	_, err := DecodeLeaf(make([]byte, LeafSize-1))
	assert.ErrorIs(t, err, poolerrors.ErrCorruptRecord)
}

func TestGenesisLeaf(t *testing.T) {
	g := GenesisLeaf()
	assert.True(t, IsZero(g.Value))
	assert.True(t, IsZero(g.NextValue), "genesis next_value is the infinity sentinel")
	assert.Equal(t, uint64(0), g.NextIndex)
}

func TestIsZero(t *testing.T) {
	assert.True(t, IsZero(common.Hash{}))
	assert.False(t, IsZero(h32(1)))
	assert.False(t, IsZero(MaxNullifierValue))
}
