package imt

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

func TestTreeEncode_RoundTrip(t *testing.T) {
	tree := newTestTree(t, 3)
	shadow := newShadow(t, tree)
	mustInsert(t, tree, shadow, h32(5), LowLeaf{Index: 0})

	tree.CurrentEpoch = 7
	tree.EarliestProvableEpoch = 2
	tree.LastFinalizedIndex = 1
	tree.LastEpochSlot = 9000
	tree.NextPendingIndex = 4
	tree.Authority = [32]byte{0xaa, 0xbb}
	tree.Bump = 254

	data := tree.Encode()
	require.Len(t, data, EncodedTreeSize(3))

	decoded, err := DecodeTree(data, tree.Hasher())
	require.NoError(t, err)
	assert.Equal(t, tree.NextIndex, decoded.NextIndex)
	assert.Equal(t, tree.NextPendingIndex, decoded.NextPendingIndex)
	assert.Equal(t, tree.CurrentEpoch, decoded.CurrentEpoch)
	assert.Equal(t, tree.EarliestProvableEpoch, decoded.EarliestProvableEpoch)
	assert.Equal(t, tree.LastFinalizedIndex, decoded.LastFinalizedIndex)
	assert.Equal(t, tree.LastEpochSlot, decoded.LastEpochSlot)
	assert.Equal(t, tree.Authority, decoded.Authority)
	assert.Equal(t, tree.Root, decoded.Root)
	assert.Equal(t, tree.Subtrees, decoded.Subtrees)
	assert.Equal(t, tree.Height, decoded.Height)
	assert.Equal(t, tree.Bump, decoded.Bump)

	// A decoded tree keeps working: the rebuilt zero table and sibling cache
	// must support the next append.
	decoded.NextPendingIndex = decoded.NextIndex
	shadowCopy := newShadow(t, decoded)
	shadowCopy.leaves = append([]common.Hash(nil), shadow.leaves...)
	mustInsert(t, decoded, shadowCopy, h32(9), LowLeaf{Index: 1, Value: h32(5)})
	assert.Equal(t, uint64(3), decoded.NextIndex)
}

func TestDecodeTree_Corrupt(t *testing.T) {
	tree := newTestTree(t, 3)
	data := tree.Encode()

	_, err := DecodeTree(data[:len(data)-1], tree.Hasher())
	assert.ErrorIs(t, err, poolerrors.ErrCorruptRecord)

	// Height byte disagreeing with the record length.
	bad := append([]byte(nil), data...)
	bad[treeFixedPrefix+3*32] = 5
	_, err = DecodeTree(bad, tree.Hasher())
	assert.ErrorIs(t, err, poolerrors.ErrCorruptRecord)

	_, err = DecodeTree(make([]byte, 10), tree.Hasher())
	assert.ErrorIs(t, err, poolerrors.ErrCorruptRecord)
}
