package pool

// Params carries the lifecycle tunables. Defaults mirror mainnet values:
// slots tick at roughly 400ms, so 9000 slots is about an hour per epoch and
// 43200 grace epochs is roughly a five hour exclusive reclaim window.
type Params struct {
	// MinSlotsPerEpoch is the minimum slot interval between epoch advances
	// when unmerged reservations remain. It prevents stuck batches from
	// stalling the lifecycle indefinitely.
	MinSlotsPerEpoch uint64

	// MinProvableEpochs is the minimum width of the provable window:
	// EarliestProvableEpoch may never exceed CurrentEpoch - MinProvableEpochs.
	MinProvableEpochs uint64

	// CleanupGraceEpochs is the exclusive reclaim window, in epochs, during
	// which only a record's authority may close it. Afterwards closing is
	// permissionless and the caller collects the storage rebate.
	CleanupGraceEpochs uint64

	// MaxBatchSize bounds BatchInsert. Determined by the proving circuit.
	MaxBatchSize uint64
}

// DefaultParams returns the production parameters.
func DefaultParams() Params {
	return Params{
		MinSlotsPerEpoch:   9000,
		MinProvableEpochs:  30,
		CleanupGraceEpochs: 43200,
		MaxBatchSize:       64,
	}
}
