package pool

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

// Nullifier is the ephemeral record tracking one claimed nullifier through
// the lifecycle: Reserved (InsertedEpoch == 0) -> Inserted (stamped with the
// merge epoch) -> reclaimed (record deleted).
//
// Epochs start at 1 so that 0 can serve as the "not yet merged" sentinel.
type Nullifier struct {
	// Authority may reclaim the record during the grace window.
	Authority [32]byte
	// PendingIndex is the tree slot reserved for this nullifier, assigned
	// from the tree's NextPendingIndex. Starts at 1; index 0 is genesis.
	PendingIndex uint64
	// InsertedEpoch is the epoch at which the nullifier was merged into the
	// tree, or 0 while still pending.
	InsertedEpoch uint64
}

const nullifierRecordSize = 32 + 8 + 8

// Encode serializes the record: authority[32] | pending_index:u64-le |
// inserted_epoch:u64-le.
func (n *Nullifier) Encode() []byte {
	out := make([]byte, nullifierRecordSize)
	copy(out[0:32], n.Authority[:])
	binary.LittleEndian.PutUint64(out[32:40], n.PendingIndex)
	binary.LittleEndian.PutUint64(out[40:48], n.InsertedEpoch)
	return out
}

// DecodeNullifier parses a stored nullifier record.
func DecodeNullifier(data []byte) (Nullifier, error) {
	if len(data) != nullifierRecordSize {
		return Nullifier{}, poolerrors.ErrCorruptRecord
	}
	var n Nullifier
	copy(n.Authority[:], data[0:32])
	n.PendingIndex = binary.LittleEndian.Uint64(data[32:40])
	n.InsertedEpoch = binary.LittleEndian.Uint64(data[40:48])
	return n, nil
}

// EpochRoot is the immutable snapshot of the tree root taken when an epoch is
// finalized. It exists from the epoch advance until the epoch leaves the
// provable window and the snapshot is closed.
type EpochRoot struct {
	// Root is the tree root frozen at the epoch boundary.
	Root common.Hash
	// Epoch is the epoch number this snapshot finalizes.
	Epoch uint64
	// FinalizedIndex is the tree's NextIndex at finalization: leaves
	// [0, FinalizedIndex) are covered by Root.
	FinalizedIndex uint64
}

const epochRootRecordSize = 32 + 8 + 8

// Encode serializes the snapshot: root[32] | epoch:u64-le |
// finalized_index:u64-le.
func (e *EpochRoot) Encode() []byte {
	out := make([]byte, epochRootRecordSize)
	copy(out[0:32], e.Root[:])
	binary.LittleEndian.PutUint64(out[32:40], e.Epoch)
	binary.LittleEndian.PutUint64(out[40:48], e.FinalizedIndex)
	return out
}

// DecodeEpochRoot parses a stored epoch root snapshot.
func DecodeEpochRoot(data []byte) (EpochRoot, error) {
	if len(data) != epochRootRecordSize {
		return EpochRoot{}, poolerrors.ErrCorruptRecord
	}
	var e EpochRoot
	copy(e.Root[:], data[0:32])
	e.Epoch = binary.LittleEndian.Uint64(data[32:40])
	e.FinalizedIndex = binary.LittleEndian.Uint64(data[40:48])
	return e, nil
}
