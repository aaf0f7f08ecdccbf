package pool

import (
	"github.com/ethereum/go-ethereum/common"
)

// BatchVerifier is the opaque proof oracle consulted by BatchInsert. The
// public inputs are the pre- and post-insertion roots, the first tree index
// the batch occupies, and the nullifier values in insertion order. The
// concrete engine (a Groth16 verifier over BN254) lives outside this module;
// a non-nil error rejects the batch.
type BatchVerifier interface {
	Verify(oldRoot, newRoot common.Hash, startingIndex uint64, nullifiers []common.Hash) error
}

// VerifierFunc adapts a function to the BatchVerifier interface.
type VerifierFunc func(oldRoot, newRoot common.Hash, startingIndex uint64, nullifiers []common.Hash) error

// Verify implements BatchVerifier.
func (f VerifierFunc) Verify(oldRoot, newRoot common.Hash, startingIndex uint64, nullifiers []common.Hash) error {
	return f(oldRoot, newRoot, startingIndex, nullifiers)
}
