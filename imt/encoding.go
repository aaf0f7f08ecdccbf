package imt

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

// Tree record wire layout, fixed width:
//
//	next_index:u64 | next_pending_index:u64 | current_epoch:u64 |
//	earliest_provable_epoch:u64 | last_finalized_index:u64 | last_epoch_slot:u64 |
//	authority[32] | root[32] | subtrees[height][32] | height:u8 | bump:u8 | padding[6]
//
// u64 fields are little-endian; hashes are raw 32-byte big-endian values.
const (
	treeFixedPrefix  = 6*8 + 32 + 32 // u64 counters + authority + root
	treeFixedTrailer = 1 + 1 + 6     // height + bump + padding
)

// EncodedTreeSize returns the wire size of a tree record of the given height.
func EncodedTreeSize(height uint8) int {
	return treeFixedPrefix + int(height)*32 + treeFixedTrailer
}

// Encode serializes the tree state into its fixed binary layout.
func (t *Tree) Encode() []byte {
	out := make([]byte, EncodedTreeSize(t.Height))
	binary.LittleEndian.PutUint64(out[0:8], t.NextIndex)
	binary.LittleEndian.PutUint64(out[8:16], t.NextPendingIndex)
	binary.LittleEndian.PutUint64(out[16:24], t.CurrentEpoch)
	binary.LittleEndian.PutUint64(out[24:32], t.EarliestProvableEpoch)
	binary.LittleEndian.PutUint64(out[32:40], t.LastFinalizedIndex)
	binary.LittleEndian.PutUint64(out[40:48], t.LastEpochSlot)
	copy(out[48:80], t.Authority[:])
	copy(out[80:112], t.Root[:])
	off := treeFixedPrefix
	for i := 0; i < int(t.Height); i++ {
		copy(out[off:off+32], t.Subtrees[i][:])
		off += 32
	}
	out[off] = t.Height
	out[off+1] = t.Bump
	return out
}

// DecodeTree parses a stored tree record and rebinds it to the given hasher,
// rebuilding the zero-hash table for the recorded height.
func DecodeTree(data []byte, h Hasher) (*Tree, error) {
	if len(data) < treeFixedPrefix+32+treeFixedTrailer {
		return nil, poolerrors.ErrCorruptRecord
	}
	if (len(data)-treeFixedPrefix-treeFixedTrailer)%32 != 0 {
		return nil, poolerrors.ErrCorruptRecord
	}
	height := uint8((len(data) - treeFixedPrefix - treeFixedTrailer) / 32)
	if height == 0 || height > 63 {
		return nil, poolerrors.ErrInvalidTreeHeight
	}
	if data[treeFixedPrefix+int(height)*32] != height {
		return nil, poolerrors.ErrCorruptRecord
	}

	zeros, err := BuildZeroHashes(h, height)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		NextIndex:             binary.LittleEndian.Uint64(data[0:8]),
		NextPendingIndex:      binary.LittleEndian.Uint64(data[8:16]),
		CurrentEpoch:          binary.LittleEndian.Uint64(data[16:24]),
		EarliestProvableEpoch: binary.LittleEndian.Uint64(data[24:32]),
		LastFinalizedIndex:    binary.LittleEndian.Uint64(data[32:40]),
		LastEpochSlot:         binary.LittleEndian.Uint64(data[40:48]),
		Subtrees:              make([]common.Hash, height),
		Height:                height,
		hasher:                h,
		zeros:                 zeros,
	}
	copy(t.Authority[:], data[48:80])
	copy(t.Root[:], data[80:112])
	off := treeFixedPrefix
	for i := 0; i < int(height); i++ {
		copy(t.Subtrees[i][:], data[off:off+32])
		off += 32
	}
	t.Bump = data[off+1]
	return t, nil
}
