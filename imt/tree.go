// Package imt implements the indexed merkle tree used for nullifier
// non-membership proofs.
//
// Leaves form a sorted linked list `(value, next_value, next_index)` embedded
// in tree order. Proving a candidate value is absent reduces to exhibiting a
// "low" leaf whose value is strictly below the candidate and whose next_value
// is strictly above it (or the zero infinity sentinel). Appends are O(height)
// through a cached left-sibling table, so the tree never materializes its
// leaves.
package imt

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

// DefaultHeight is the production tree height. Capacity is 2^26 leaf slots,
// one of which is permanently occupied by the genesis sentinel.
const DefaultHeight uint8 = 26

// Tree is the persistent state of one indexed merkle tree.
//
// Root is maintained incrementally: Subtrees caches, per level, the hash of
// the completed left sibling on the current insertion path, so appending a
// leaf costs one hash per level. NextIndex counts confirmed insertions while
// NextPendingIndex counts reservations handed out to not-yet-merged
// nullifiers; NextIndex <= NextPendingIndex always holds.
//
// The epoch counters (CurrentEpoch, EarliestProvableEpoch, LastFinalizedIndex,
// LastEpochSlot) belong to the lifecycle state machine in package pool; they
// live here because they are part of the single persistent tree record.
type Tree struct {
	NextIndex             uint64
	NextPendingIndex      uint64
	CurrentEpoch          uint64
	EarliestProvableEpoch uint64
	LastFinalizedIndex    uint64
	LastEpochSlot         uint64
	Authority             [32]byte
	Root                  common.Hash
	Subtrees              []common.Hash
	Height                uint8
	Bump                  uint8

	hasher Hasher
	zeros  []common.Hash
}

// LowLeaf identifies the bracketing low leaf supplied by a caller: its tree
// index plus the full leaf contents as they were when the caller's merkle
// proof was generated.
type LowLeaf struct {
	Index     uint64
	Value     common.Hash
	NextValue common.Hash
	NextIndex uint64
}

// NewTree creates and initializes a tree of the given height: the genesis
// leaf is placed at index 0 and the root reflects one occupied leaf plus an
// all-empty remainder. Post-condition: NextIndex == NextPendingIndex == 1.
func NewTree(h Hasher, height uint8, authority [32]byte) (*Tree, error) {
	if height == 0 || height > 63 {
		return nil, poolerrors.ErrInvalidTreeHeight
	}
	zeros, err := BuildZeroHashes(h, height)
	if err != nil {
		return nil, err
	}
	t := &Tree{
		Authority: authority,
		Subtrees:  make([]common.Hash, height),
		Height:    height,
		hasher:    h,
		zeros:     zeros,
	}
	if err := t.initialize(); err != nil {
		return nil, err
	}
	return t, nil
}

// initialize populates the genesis state. It fails if the tree already holds
// any insertion, so initialization is effective exactly once.
func (t *Tree) initialize() error {
	if t.NextIndex != 0 || t.NextPendingIndex != 0 {
		return poolerrors.ErrTreeAlreadyInitialized
	}

	genesis := GenesisLeaf()
	current, err := t.hasher.HashLeaf(&genesis)
	if err != nil {
		return err
	}

	// Climb from the genesis leaf to the root, pairing with the zero hash at
	// each level and caching the running hash as the left sibling.
	t.Subtrees[0] = current
	for i := 0; i < int(t.Height); i++ {
		if i > 0 {
			t.Subtrees[i] = current
		}
		current, err = t.hasher.HashNodes(current, t.zeros[i])
		if err != nil {
			return err
		}
	}

	t.Root = current
	// Index 0 is permanently reserved for the genesis sentinel.
	t.NextIndex = 1
	t.NextPendingIndex = 1
	return nil
}

// ComputeRootFromProof recomputes the root implied by a leaf hash, its index,
// and a sibling path of length height. At each level the index's parity
// selects which side the sibling sits on.
func ComputeRootFromProof(h Hasher, leafHash common.Hash, index uint64, proof []common.Hash, height uint8) (common.Hash, error) {
	if len(proof) != int(height) {
		return common.Hash{}, poolerrors.ErrInvalidProofLength
	}

	current := leafHash
	idx := index
	for _, sibling := range proof {
		var left, right common.Hash
		if idx%2 == 0 {
			left, right = current, sibling
		} else {
			left, right = sibling, current
		}
		var err error
		current, err = h.HashNodes(left, right)
		if err != nil {
			return common.Hash{}, err
		}
		idx /= 2
	}
	return current, nil
}

// VerifyOrdering checks that candidate is properly bracketed by the low leaf:
// lowValue < candidate, and candidate < lowNextValue unless lowNextValue is
// the zero infinity sentinel (low is currently the largest element). Values
// compare as unsigned big-endian 256-bit integers.
func VerifyOrdering(lowValue, candidate, lowNextValue common.Hash) error {
	low := new(uint256.Int).SetBytes32(lowValue[:])
	cand := new(uint256.Int).SetBytes32(candidate[:])
	if low.Cmp(cand) >= 0 {
		return poolerrors.ErrInvalidLowNullifierOrdering
	}
	if !IsZero(lowNextValue) {
		next := new(uint256.Int).SetBytes32(lowNextValue[:])
		if cand.Cmp(next) >= 0 {
			return poolerrors.ErrInvalidLowNullifierOrdering
		}
	}
	return nil
}

// Insert splices a nullifier into the sorted list and appends its leaf.
//
// The caller supplies the low leaf as it existed when the proof was taken,
// together with a merkle proof for it against the current root. On success
// the new leaf sits at the old NextIndex, the low leaf's pointers have been
// rewritten to reference it, and the returned root is committed.
//
// Only the new leaf's insertion path is re-threaded through the cached
// sibling table; the low leaf's mutation is validated against the
// pre-insertion root but its own path is not independently re-derived here.
// Callers must therefore supply a fresh low-leaf proof against the
// pre-insertion root for every insertion.
func (t *Tree) Insert(nullifier common.Hash, low LowLeaf, proof []common.Hash) (common.Hash, error) {
	if err := VerifyOrdering(low.Value, nullifier, low.NextValue); err != nil {
		return common.Hash{}, err
	}

	// The old low leaf must resolve to the current root.
	oldLow := NewIndexedLeaf(low.Value, low.NextValue, low.NextIndex)
	oldLowHash, err := t.hasher.HashLeaf(&oldLow)
	if err != nil {
		return common.Hash{}, err
	}
	computed, err := ComputeRootFromProof(t.hasher, oldLowHash, low.Index, proof, t.Height)
	if err != nil {
		return common.Hash{}, err
	}
	if !t.IsCurrentRoot(computed) {
		return common.Hash{}, poolerrors.ErrUnknownNullifierRoot
	}

	if t.IsFull() {
		return common.Hash{}, poolerrors.ErrNullifierTreeFull
	}

	newIndex := t.NextIndex

	// The new leaf inherits the low leaf's former next pointer, splicing
	// itself into the sorted list.
	newLeaf := NewIndexedLeaf(nullifier, low.NextValue, low.NextIndex)
	newLeafHash, err := t.hasher.HashLeaf(&newLeaf)
	if err != nil {
		return common.Hash{}, err
	}

	// The low leaf now points at the freshly inserted leaf. Its mutated hash
	// is derived through the same proof, but the resulting root is not
	// threaded into the append below: proof discipline (fresh proof per
	// insertion against the current root) is a caller obligation.
	updatedLow := NewIndexedLeaf(low.Value, nullifier, newIndex)
	updatedLowHash, err := t.hasher.HashLeaf(&updatedLow)
	if err != nil {
		return common.Hash{}, err
	}
	if _, err = ComputeRootFromProof(t.hasher, updatedLowHash, low.Index, proof, t.Height); err != nil {
		return common.Hash{}, err
	}

	newRoot, err := t.appendLeaf(newLeafHash, newIndex)
	if err != nil {
		return common.Hash{}, err
	}

	t.NextIndex = newIndex + 1
	t.Root = newRoot
	return newRoot, nil
}

// appendLeaf threads a leaf hash at the given index through the cached
// sibling table: a left child stores itself into the cache and pairs with the
// level's zero hash, a right child pairs with the cached left sibling.
func (t *Tree) appendLeaf(leafHash common.Hash, index uint64) (common.Hash, error) {
	current := leafHash
	idx := index
	for i := 0; i < int(t.Height); i++ {
		var left, right common.Hash
		if idx%2 == 0 {
			t.Subtrees[i] = current
			left, right = current, t.zeros[i]
		} else {
			left, right = t.Subtrees[i], current
		}
		var err error
		current, err = t.hasher.HashNodes(left, right)
		if err != nil {
			return common.Hash{}, err
		}
		idx /= 2
	}
	return current, nil
}

// IsCurrentRoot reports whether root matches the live tree root. Historical
// roots are validated through epoch snapshots, not here.
func (t *Tree) IsCurrentRoot(root common.Hash) bool {
	return t.Root == root
}

// IsFull reports whether every leaf slot is occupied.
func (t *Tree) IsFull() bool {
	return t.NextIndex >= t.Capacity()
}

// Capacity returns the total number of leaf slots, including the genesis
// sentinel at index 0. Real nullifier capacity is Capacity() - 1.
func (t *Tree) Capacity() uint64 {
	return 1 << t.Height
}

// RemainingCapacity returns how many more leaves can be appended.
func (t *Tree) RemainingCapacity() uint64 {
	cap := t.Capacity()
	if t.NextIndex >= cap {
		return 0
	}
	return cap - t.NextIndex
}

// PendingCount returns the number of reservations not yet merged.
func (t *Tree) PendingCount() uint64 {
	return t.NextPendingIndex - t.NextIndex
}

// Hasher returns the hash function bound to this tree.
func (t *Tree) Hasher() Hasher {
	return t.hasher
}

// ZeroHashes returns the derived per-level filler table.
func (t *Tree) ZeroHashes() []common.Hash {
	return t.zeros
}
