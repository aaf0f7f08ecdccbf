package imt

import (
	"github.com/ethereum/go-ethereum/common"
)

// BuildZeroHashes derives the per-level filler hashes for empty subtrees.
//
// Unlike a plain merkle tree whose zero leaf is H(0, 0), the indexed tree's
// empty leaf is the genesis leaf {0, 0, 0}, so:
//
//	zero[0] = HashLeaf(genesis)
//	zero[i] = HashNodes(zero[i-1], zero[i-1])
//
// The table is deterministic for a given hasher; it is derived once when a
// tree is created or decoded and cached on the tree.
func BuildZeroHashes(h Hasher, height uint8) ([]common.Hash, error) {
	genesis := GenesisLeaf()
	base, err := h.HashLeaf(&genesis)
	if err != nil {
		return nil, err
	}
	zeros := make([]common.Hash, height)
	zeros[0] = base
	for i := 1; i < int(height); i++ {
		zeros[i], err = h.HashNodes(zeros[i-1], zeros[i-1])
		if err != nil {
			return nil, err
		}
	}
	return zeros, nil
}
