package pool

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Store key layout. The tree id separates independent pools sharing one
// database; epoch numbers are big-endian so snapshots iterate in numeric
// order.
const (
	prefixTree      = "t/"
	prefixNullifier = "n/"
	prefixEpochRoot = "e/"
)

func treeKey(treeID string) []byte {
	return []byte(prefixTree + treeID)
}

func nullifierKey(treeID string, value common.Hash) []byte {
	key := make([]byte, 0, len(prefixNullifier)+len(treeID)+1+32)
	key = append(key, prefixNullifier...)
	key = append(key, treeID...)
	key = append(key, '/')
	return append(key, value[:]...)
}

func epochRootKey(treeID string, epoch uint64) []byte {
	key := make([]byte, 0, len(prefixEpochRoot)+len(treeID)+1+8)
	key = append(key, prefixEpochRoot...)
	key = append(key, treeID...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, epoch)
}
