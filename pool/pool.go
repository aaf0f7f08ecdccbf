// Package pool implements the epoch lifecycle state machine over the indexed
// nullifier tree.
//
// A nullifier moves through Reserved (pending slot claimed) -> Inserted
// (merged into the tree, stamped with the merge epoch) -> reclaimable (its
// epoch fell out of the provable window) -> closed (record deleted, storage
// rebate paid). Epoch roots move through Active -> Provable (snapshotted) ->
// Stale -> Reclaimed.
//
// Every operation is atomic: it loads the records it needs, validates all
// preconditions, then commits a single batch. A failed precondition leaves
// the store untouched; retries are a caller concern.
package pool

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/colorfulnotion/shieldpool/imt"
	"github.com/colorfulnotion/shieldpool/logger"
	"github.com/colorfulnotion/shieldpool/poolerrors"
	"github.com/colorfulnotion/shieldpool/storage"
)

// SlotSource reports the current slot. Epoch-advance gating compares slots,
// never wall-clock time directly.
type SlotSource func() uint64

// defaultSlotLength matches the ~400ms ledger slot the default Params assume.
const defaultSlotLength = 400 * time.Millisecond

// Pool owns the persistent tree state and its adjacent records. All mutations
// of a given store are serialized through the pool's mutex, mirroring the
// hosting ledger's one-writer discipline.
type Pool struct {
	mu       sync.Mutex
	store    *storage.Store
	hasher   imt.Hasher
	verifier BatchVerifier
	slots    SlotSource
	params   Params
	log      zerolog.Logger
}

// Option configures a Pool.
type Option func(*Pool)

// WithHasher overrides the canonical Poseidon2 hasher.
func WithHasher(h imt.Hasher) Option {
	return func(p *Pool) { p.hasher = h }
}

// WithVerifier installs the batch proof oracle. Without one, BatchInsert
// fails with ErrNoVerifier.
func WithVerifier(v BatchVerifier) Option {
	return func(p *Pool) { p.verifier = v }
}

// WithSlotSource overrides the slot clock.
func WithSlotSource(s SlotSource) Option {
	return func(p *Pool) { p.slots = s }
}

// WithParams overrides the lifecycle parameters.
func WithParams(params Params) Option {
	return func(p *Pool) { p.params = params }
}

// New creates a pool over the given store.
func New(store *storage.Store, opts ...Option) *Pool {
	p := &Pool{
		store:  store,
		hasher: imt.NewPoseidon2Hasher(),
		params: DefaultParams(),
		slots: func() uint64 {
			return uint64(time.Now().UnixMilli()) / uint64(defaultSlotLength.Milliseconds())
		},
		log: logger.Logger().With().Str("component", "pool").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CreateTree initializes and persists a genesis tree under treeID. Epoch
// numbering starts at 1; epoch 0 is the "not yet merged" record sentinel.
func (p *Pool) CreateTree(treeID string, authority [32]byte, height uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	exists, err := p.store.Has(treeKey(treeID))
	if err != nil {
		return err
	}
	if exists {
		return poolerrors.ErrTreeAlreadyInitialized
	}

	tree, err := imt.NewTree(p.hasher, height, authority)
	if err != nil {
		return err
	}
	tree.CurrentEpoch = 1
	tree.EarliestProvableEpoch = 1

	if err := p.store.Put(treeKey(treeID), tree.Encode()); err != nil {
		return err
	}
	p.log.Info().Str("tree", treeID).Uint8("height", height).
		Str("root", tree.Root.Hex()).Msg("tree initialized")
	return nil
}

// Reserve claims a pending tree slot for a nullifier value. Reservations may
// race across callers; merging them is strictly ordered by pending index.
func (p *Pool) Reserve(treeID string, nullifier common.Hash, authority [32]byte) (NullifierReservedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return NullifierReservedEvent{}, err
	}
	exists, err := p.store.Has(nullifierKey(treeID, nullifier))
	if err != nil {
		return NullifierReservedEvent{}, err
	}
	if exists {
		return NullifierReservedEvent{}, poolerrors.ErrNullifierAlreadyReserved
	}
	if tree.NextPendingIndex >= tree.Capacity() {
		return NullifierReservedEvent{}, poolerrors.ErrNullifierTreeFull
	}

	record := Nullifier{
		Authority:    authority,
		PendingIndex: tree.NextPendingIndex,
	}
	tree.NextPendingIndex++

	batch := new(leveldb.Batch)
	batch.Put(nullifierKey(treeID, nullifier), record.Encode())
	batch.Put(treeKey(treeID), tree.Encode())
	if err := p.store.Commit(batch); err != nil {
		return NullifierReservedEvent{}, err
	}

	ev := NullifierReservedEvent{Nullifier: nullifier, PendingIndex: record.PendingIndex}
	p.log.Debug().Str("tree", treeID).Str("nullifier", nullifier.Hex()).
		Uint64("pending_index", ev.PendingIndex).Msg("nullifier reserved")
	return ev, nil
}

// Insert merges a single reserved nullifier into the tree. The caller
// supplies the bracketing low leaf and a merkle proof for it against the
// current root; the reservation must be the next one in pending order.
func (p *Pool) Insert(treeID string, nullifier common.Hash, low imt.LowLeaf, proof []common.Hash) (NullifierLeafInsertedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return NullifierLeafInsertedEvent{}, err
	}
	record, err := p.loadNullifier(treeID, nullifier)
	if err != nil {
		return NullifierLeafInsertedEvent{}, err
	}
	if record.PendingIndex != tree.NextIndex {
		return NullifierLeafInsertedEvent{}, poolerrors.ErrInvalidPendingIndex
	}
	if record.InsertedEpoch != 0 {
		return NullifierLeafInsertedEvent{}, poolerrors.ErrNullifierAlreadyInserted
	}

	treeIndex := tree.NextIndex
	if _, err := tree.Insert(nullifier, low, proof); err != nil {
		return NullifierLeafInsertedEvent{}, err
	}
	record.InsertedEpoch = tree.CurrentEpoch

	batch := new(leveldb.Batch)
	batch.Put(nullifierKey(treeID, nullifier), record.Encode())
	batch.Put(treeKey(treeID), tree.Encode())
	if err := p.store.Commit(batch); err != nil {
		return NullifierLeafInsertedEvent{}, err
	}

	ev := NullifierLeafInsertedEvent{
		Nullifier:     nullifier,
		TreeIndex:     treeIndex,
		InsertedEpoch: record.InsertedEpoch,
	}
	p.log.Debug().Str("tree", treeID).Str("nullifier", nullifier.Hex()).
		Uint64("index", treeIndex).Uint64("epoch", ev.InsertedEpoch).
		Str("root", tree.Root.Hex()).Msg("nullifier inserted")
	return ev, nil
}

// InsertionBatch is the prover-supplied payload for BatchInsert. NewSubtrees
// replaces the tree's sibling cache wholesale; it is not a public input of
// the proof, only an append-path optimization. Correctness holds because
// NewRoot is proof-verified and the next batch re-checks OldRoot against it.
type InsertionBatch struct {
	OldRoot     common.Hash
	NewRoot     common.Hash
	NewSubtrees []common.Hash
	Nullifiers  []common.Hash
	Proof       []byte
}

// BatchInsert merges a contiguous run of reserved nullifiers in one step,
// delegating per-leaf ordering and path checks to the proof oracle. Records
// already stamped with the current epoch are accepted again (idempotent
// retry); records stamped with any other epoch reject the batch.
func (p *Pool) BatchInsert(treeID string, data InsertionBatch) (NullifierBatchInsertedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := uint64(len(data.Nullifiers))
	if size == 0 || size > p.params.MaxBatchSize {
		return NullifierBatchInsertedEvent{}, poolerrors.ErrInvalidBatchSize
	}
	if p.verifier == nil {
		return NullifierBatchInsertedEvent{}, poolerrors.ErrNoVerifier
	}

	tree, err := p.loadTree(treeID)
	if err != nil {
		return NullifierBatchInsertedEvent{}, err
	}
	if len(data.NewSubtrees) != int(tree.Height) {
		return NullifierBatchInsertedEvent{}, poolerrors.ErrInvalidProofLength
	}
	if !tree.IsCurrentRoot(data.OldRoot) {
		return NullifierBatchInsertedEvent{}, poolerrors.ErrUnknownNullifierRoot
	}
	startingIndex := tree.NextIndex
	if startingIndex+size > tree.Capacity() {
		return NullifierBatchInsertedEvent{}, poolerrors.ErrNullifierTreeFull
	}

	records := make([]Nullifier, size)
	for i, value := range data.Nullifiers {
		record, err := p.loadNullifier(treeID, value)
		if err != nil {
			return NullifierBatchInsertedEvent{}, err
		}
		if record.PendingIndex != startingIndex+uint64(i) {
			return NullifierBatchInsertedEvent{}, poolerrors.ErrInvalidPendingIndex
		}
		if record.InsertedEpoch != 0 && record.InsertedEpoch != tree.CurrentEpoch {
			return NullifierBatchInsertedEvent{}, poolerrors.ErrNullifierAlreadyInserted
		}
		records[i] = record
	}

	if err := p.verifier.Verify(data.OldRoot, data.NewRoot, startingIndex, data.Nullifiers); err != nil {
		p.log.Debug().Str("tree", treeID).Err(err).Msg("batch proof rejected")
		return NullifierBatchInsertedEvent{}, poolerrors.ErrInvalidProof
	}

	tree.Root = data.NewRoot
	copy(tree.Subtrees, data.NewSubtrees)
	tree.NextIndex = startingIndex + size

	batch := new(leveldb.Batch)
	for i, value := range data.Nullifiers {
		if records[i].InsertedEpoch == 0 {
			records[i].InsertedEpoch = tree.CurrentEpoch
		}
		batch.Put(nullifierKey(treeID, value), records[i].Encode())
	}
	batch.Put(treeKey(treeID), tree.Encode())
	if err := p.store.Commit(batch); err != nil {
		return NullifierBatchInsertedEvent{}, err
	}

	ev := NullifierBatchInsertedEvent{
		OldRoot:       data.OldRoot,
		NewRoot:       data.NewRoot,
		StartingIndex: startingIndex,
		InsertedEpoch: tree.CurrentEpoch,
		BatchSize:     size,
	}
	p.log.Info().Str("tree", treeID).Uint64("batch_size", size).
		Uint64("starting_index", startingIndex).Str("new_root", data.NewRoot.Hex()).
		Msg("nullifier batch inserted")
	return ev, nil
}

// AdvanceEpoch finalizes the current epoch: it snapshots the live root into
// an EpochRoot record and opens the next epoch. Permitted when every
// reservation has been merged, or when MinSlotsPerEpoch slots have elapsed
// since the last advance (so stuck batches cannot stall the lifecycle).
func (p *Pool) AdvanceEpoch(treeID string) (EpochAdvancedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return EpochAdvancedEvent{}, err
	}

	slot := p.slots()
	merged := tree.NextIndex >= tree.NextPendingIndex
	deadline, ok := checkedAdd(tree.LastEpochSlot, p.params.MinSlotsPerEpoch)
	intervalElapsed := !ok || slot >= deadline
	if !merged && !intervalElapsed {
		return EpochAdvancedEvent{}, poolerrors.ErrEpochAdvanceTooSoon
	}

	epoch := tree.CurrentEpoch
	exists, err := p.store.Has(epochRootKey(treeID, epoch))
	if err != nil {
		return EpochAdvancedEvent{}, err
	}
	if exists {
		return EpochAdvancedEvent{}, poolerrors.ErrEpochRootExists
	}
	nextEpoch, ok := checkedAdd(epoch, 1)
	if !ok {
		return EpochAdvancedEvent{}, poolerrors.ErrArithmeticOverflow
	}

	snapshot := EpochRoot{
		Root:           tree.Root,
		Epoch:          epoch,
		FinalizedIndex: tree.NextIndex,
	}
	tree.CurrentEpoch = nextEpoch
	tree.LastFinalizedIndex = snapshot.FinalizedIndex
	tree.LastEpochSlot = slot

	batch := new(leveldb.Batch)
	batch.Put(epochRootKey(treeID, epoch), snapshot.Encode())
	batch.Put(treeKey(treeID), tree.Encode())
	if err := p.store.Commit(batch); err != nil {
		return EpochAdvancedEvent{}, err
	}

	ev := EpochAdvancedEvent{Epoch: epoch, Root: snapshot.Root, FinalizedIndex: snapshot.FinalizedIndex}
	p.log.Info().Str("tree", treeID).Uint64("epoch", epoch).
		Uint64("finalized_index", ev.FinalizedIndex).Str("root", ev.Root.Hex()).
		Msg("epoch advanced")
	return ev, nil
}

// AdvanceEarliestProvableEpoch moves the provable window forward. Only the
// tree authority may call it; the window never moves backward and always
// keeps at least MinProvableEpochs of history.
func (p *Pool) AdvanceEarliestProvableEpoch(treeID string, newEpoch uint64, caller [32]byte) (EarliestEpochAdvancedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return EarliestEpochAdvancedEvent{}, err
	}
	if caller != tree.Authority {
		return EarliestEpochAdvancedEvent{}, poolerrors.ErrUnauthorized
	}
	oldEpoch := tree.EarliestProvableEpoch
	if newEpoch < oldEpoch {
		return EarliestEpochAdvancedEvent{}, poolerrors.ErrInvalidEarliestEpoch
	}
	if tree.CurrentEpoch < p.params.MinProvableEpochs {
		return EarliestEpochAdvancedEvent{}, poolerrors.ErrInvalidEarliestEpoch
	}
	if newEpoch > tree.CurrentEpoch-p.params.MinProvableEpochs {
		return EarliestEpochAdvancedEvent{}, poolerrors.ErrInvalidEarliestEpoch
	}

	tree.EarliestProvableEpoch = newEpoch
	if err := p.store.Put(treeKey(treeID), tree.Encode()); err != nil {
		return EarliestEpochAdvancedEvent{}, err
	}

	ev := EarliestEpochAdvancedEvent{OldEpoch: oldEpoch, NewEpoch: newEpoch}
	p.log.Info().Str("tree", treeID).Uint64("old", oldEpoch).Uint64("new", newEpoch).
		Msg("earliest provable epoch advanced")
	return ev, nil
}

// ReclaimNullifier closes an inserted nullifier record once its epoch has
// left the provable window. During the grace window only the record's
// authority may close it; afterwards anyone may, collecting the rebate.
func (p *Pool) ReclaimNullifier(treeID string, nullifier common.Hash, caller [32]byte) (NullifierClosedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return NullifierClosedEvent{}, err
	}
	record, err := p.loadNullifier(treeID, nullifier)
	if err != nil {
		return NullifierClosedEvent{}, err
	}
	if record.InsertedEpoch == 0 {
		return NullifierClosedEvent{}, poolerrors.ErrNullifierNotInserted
	}
	if record.InsertedEpoch >= tree.EarliestProvableEpoch {
		return NullifierClosedEvent{}, poolerrors.ErrNullifierStillProvable
	}

	permissionless, err := p.graceWindowClosed(tree)
	if err != nil {
		return NullifierClosedEvent{}, err
	}
	if !permissionless && caller != record.Authority {
		return NullifierClosedEvent{}, poolerrors.ErrUnauthorized
	}

	if err := p.store.Delete(nullifierKey(treeID, nullifier)); err != nil {
		return NullifierClosedEvent{}, err
	}

	ev := NullifierClosedEvent{
		Nullifier:      nullifier,
		InsertedEpoch:  record.InsertedEpoch,
		Permissionless: permissionless,
	}
	p.log.Debug().Str("tree", treeID).Str("nullifier", nullifier.Hex()).
		Bool("permissionless", permissionless).Msg("nullifier record closed")
	return ev, nil
}

// CloseEpochRoot reclaims a stale epoch snapshot. The same grace-window rule
// as ReclaimNullifier applies, with the tree authority holding the exclusive
// right.
func (p *Pool) CloseEpochRoot(treeID string, epoch uint64, caller [32]byte) (EpochRootClosedEvent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return EpochRootClosedEvent{}, err
	}
	snapshot, err := p.loadEpochRoot(treeID, epoch)
	if err != nil {
		return EpochRootClosedEvent{}, err
	}
	if snapshot.Epoch >= tree.EarliestProvableEpoch {
		return EpochRootClosedEvent{}, poolerrors.ErrEpochStillProvable
	}

	permissionless, err := p.graceWindowClosed(tree)
	if err != nil {
		return EpochRootClosedEvent{}, err
	}
	if !permissionless && caller != tree.Authority {
		return EpochRootClosedEvent{}, poolerrors.ErrUnauthorized
	}

	if err := p.store.Delete(epochRootKey(treeID, epoch)); err != nil {
		return EpochRootClosedEvent{}, err
	}

	ev := EpochRootClosedEvent{Epoch: epoch, Permissionless: permissionless}
	p.log.Debug().Str("tree", treeID).Uint64("epoch", epoch).
		Bool("permissionless", permissionless).Msg("epoch root closed")
	return ev, nil
}

// TreeState returns the persisted tree record.
func (p *Pool) TreeState(treeID string) (*imt.Tree, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadTree(treeID)
}

// ProvableRoot returns the root a proof against the given epoch must verify
// with: the live root for the current epoch, or the frozen snapshot for an
// epoch inside the provable window.
func (p *Pool) ProvableRoot(treeID string, epoch uint64) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return common.Hash{}, err
	}
	if epoch == tree.CurrentEpoch {
		return tree.Root, nil
	}
	if epoch < tree.EarliestProvableEpoch || epoch > tree.CurrentEpoch {
		return common.Hash{}, poolerrors.ErrEpochNotProvable
	}
	snapshot, err := p.loadEpochRoot(treeID, epoch)
	if err != nil {
		return common.Hash{}, err
	}
	return snapshot.Root, nil
}

// PendingCount returns the number of reserved-but-unmerged nullifiers.
func (p *Pool) PendingCount(treeID string) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tree, err := p.loadTree(treeID)
	if err != nil {
		return 0, err
	}
	return tree.PendingCount(), nil
}

func (p *Pool) loadTree(treeID string) (*imt.Tree, error) {
	data, found, err := p.store.Get(treeKey(treeID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, poolerrors.ErrTreeNotFound
	}
	return imt.DecodeTree(data, p.hasher)
}

func (p *Pool) loadNullifier(treeID string, value common.Hash) (Nullifier, error) {
	data, found, err := p.store.Get(nullifierKey(treeID, value))
	if err != nil {
		return Nullifier{}, err
	}
	if !found {
		return Nullifier{}, poolerrors.ErrNullifierNotFound
	}
	return DecodeNullifier(data)
}

func (p *Pool) loadEpochRoot(treeID string, epoch uint64) (EpochRoot, error) {
	data, found, err := p.store.Get(epochRootKey(treeID, epoch))
	if err != nil {
		return EpochRoot{}, err
	}
	if !found {
		return EpochRoot{}, poolerrors.ErrEpochRootNotFound
	}
	return DecodeEpochRoot(data)
}

// graceWindowClosed reports whether the exclusive reclaim window has passed,
// i.e. CurrentEpoch >= EarliestProvableEpoch + CleanupGraceEpochs.
func (p *Pool) graceWindowClosed(tree *imt.Tree) (bool, error) {
	deadline, ok := checkedAdd(tree.EarliestProvableEpoch, p.params.CleanupGraceEpochs)
	if !ok {
		return false, poolerrors.ErrArithmeticOverflow
	}
	return tree.CurrentEpoch >= deadline, nil
}

func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
