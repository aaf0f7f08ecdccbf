package imt

import (
	"encoding/binary"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"
	"github.com/ethereum/go-ethereum/common"

	"github.com/colorfulnotion/shieldpool/poolerrors"
)

// Hasher is the hash function used for leaves and internal nodes. Inputs are
// 32-byte big-endian field elements; implementations must reject inputs that
// are not canonical (>= the field modulus).
type Hasher interface {
	// HashLeaf hashes an indexed leaf as (value, next_index, next_value),
	// with next_index widened to a 32-byte big-endian word.
	HashLeaf(leaf *IndexedLeaf) (common.Hash, error)

	// HashNodes hashes a left/right child pair into their parent.
	HashNodes(left, right common.Hash) (common.Hash, error)
}

// Poseidon2Hasher is the canonical Hasher: Poseidon2 over the BN254 scalar
// field in a Merkle-Damgard construction. It is stateless and safe for
// concurrent use.
type Poseidon2Hasher struct{}

// NewPoseidon2Hasher returns the canonical hasher.
func NewPoseidon2Hasher() Poseidon2Hasher {
	return Poseidon2Hasher{}
}

// HashLeaf implements Hasher.
func (Poseidon2Hasher) HashLeaf(leaf *IndexedLeaf) (common.Hash, error) {
	var nextIndex [32]byte
	binary.BigEndian.PutUint64(nextIndex[24:], leaf.NextIndex)
	return hashElements(leaf.Value[:], nextIndex[:], leaf.NextValue[:])
}

// HashNodes implements Hasher.
func (Poseidon2Hasher) HashNodes(left, right common.Hash) (common.Hash, error) {
	return hashElements(left[:], right[:])
}

// hashElements feeds 32-byte big-endian field elements into a fresh
// Merkle-Damgard Poseidon2 instance. Non-canonical inputs are rejected rather
// than reduced, so distinct byte strings never alias.
func hashElements(inputs ...[]byte) (common.Hash, error) {
	h := poseidon2.NewMerkleDamgardHasher()
	for _, in := range inputs {
		var e fr.Element
		if err := e.SetBytesCanonical(in); err != nil {
			return common.Hash{}, poolerrors.ErrArithmeticOverflow
		}
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return common.Hash{}, poolerrors.ErrArithmeticOverflow
		}
	}
	var out common.Hash
	copy(out[:], h.Sum(nil))
	return out, nil
}
