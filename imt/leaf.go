package imt

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

// LeafSize is the fixed wire size of an encoded leaf:
// value[32] | next_value[32] | next_index:u64-le.
const LeafSize = 72

// MaxNullifierValue is the largest value a nullifier may take. It is strictly
// below the BN254 scalar field modulus (0x3064...) so every nullifier is a
// canonical field element.
var MaxNullifierValue = common.HexToHash("0x2fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

// IndexedLeaf is one node of the sorted linked list embedded in the tree.
//
// Value holds the nullifier itself, NextValue the next larger nullifier in
// sorted order (zero meaning infinity, i.e. end of list) and NextIndex the
// tree index of that next leaf.
type IndexedLeaf struct {
	Value     common.Hash
	NextValue common.Hash
	NextIndex uint64
}

// NewIndexedLeaf builds a leaf from its three components.
func NewIndexedLeaf(value, nextValue common.Hash, nextIndex uint64) IndexedLeaf {
	return IndexedLeaf{Value: value, NextValue: nextValue, NextIndex: nextIndex}
}

// GenesisLeaf returns the sentinel leaf stored at index 0:
// (value=0, next_value=0, next_index=0). NextValue zero is the infinity
// sentinel, so the genesis leaf anchors the sorted list before any insertion.
func GenesisLeaf() IndexedLeaf {
	return IndexedLeaf{}
}

// Encode serializes the leaf into its fixed 72-byte layout.
func (l *IndexedLeaf) Encode() []byte {
	out := make([]byte, LeafSize)
	copy(out[0:32], l.Value[:])
	copy(out[32:64], l.NextValue[:])
	binary.LittleEndian.PutUint64(out[64:72], l.NextIndex)
	return out
}

// DecodeLeaf parses a 72-byte encoded leaf.
func DecodeLeaf(data []byte) (IndexedLeaf, error) {
	if len(data) != LeafSize {
		return IndexedLeaf{}, poolerrors.ErrCorruptRecord
	}
	var l IndexedLeaf
	copy(l.Value[:], data[0:32])
	copy(l.NextValue[:], data[32:64])
	l.NextIndex = binary.LittleEndian.Uint64(data[64:72])
	return l, nil
}

// IsZero reports whether a 32-byte value is all zeros. Zero is the infinity
// sentinel for NextValue fields.
func IsZero(v common.Hash) bool {
	return v == (common.Hash{})
}
