package pool

import (
	"github.com/ethereum/go-ethereum/common"
)

// Lifecycle events. Operations return them to the caller where an indexer
// needs the data (insertion events carry everything required to rebuild the
// linked list off-ledger by sorting nullifiers by value) and mirror them into
// the structured log.

// NullifierReservedEvent records a pending slot claim.
type NullifierReservedEvent struct {
	Nullifier    common.Hash
	PendingIndex uint64
}

// NullifierLeafInsertedEvent records one merged leaf.
type NullifierLeafInsertedEvent struct {
	Nullifier     common.Hash
	TreeIndex     uint64
	InsertedEpoch uint64
}

// NullifierBatchInsertedEvent summarizes a batch merge.
type NullifierBatchInsertedEvent struct {
	OldRoot       common.Hash
	NewRoot       common.Hash
	StartingIndex uint64
	InsertedEpoch uint64
	BatchSize     uint64
}

// EpochAdvancedEvent records an epoch finalization.
type EpochAdvancedEvent struct {
	Epoch          uint64
	Root           common.Hash
	FinalizedIndex uint64
}

// EarliestEpochAdvancedEvent records a provable-window move.
type EarliestEpochAdvancedEvent struct {
	OldEpoch uint64
	NewEpoch uint64
}

// NullifierClosedEvent records a reclaimed nullifier record.
type NullifierClosedEvent struct {
	Nullifier     common.Hash
	InsertedEpoch uint64
	// Permissionless is true when the close happened after the grace window,
	// i.e. the caller was not the record authority and collects the rebate.
	Permissionless bool
}

// EpochRootClosedEvent records a reclaimed snapshot.
type EpochRootClosedEvent struct {
	Epoch          uint64
	Permissionless bool
}
