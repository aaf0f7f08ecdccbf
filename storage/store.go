// Package storage wraps LevelDB for raw key-value persistence of tree state,
// nullifier records and epoch root snapshots.
//
// Each pool operation stages its writes into a single leveldb.Batch and
// commits it with one Write call, so every state transition is all-or-nothing.
// LevelDB handles its own synchronization; callers serialize logical
// operations above this layer.
package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Store is a thin wrapper around a LevelDB handle.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a LevelDB database at the given path. An empty path
// opens an in-memory database.
func Open(path string) (*Store, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open database at %q: %w", path, err)
	}
	return &Store{db: db}, nil
}

// OpenMemory creates an in-memory Store, used in tests and the CLI dry runs.
func OpenMemory() (*Store, error) {
	return Open("")
}

// Get retrieves a value by key. Returns (nil, false, nil) if not found.
func (s *Store) Get(key []byte) ([]byte, bool, error) {
	data, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %x: %w", key, err)
	}
	return data, true, nil
}

// Has reports whether a key exists.
func (s *Store) Has(key []byte) (bool, error) {
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, fmt.Errorf("has %x: %w", key, err)
	}
	return ok, nil
}

// Put writes a single key-value pair outside any batch.
func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

// Delete removes a single key outside any batch.
func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

// Commit applies a staged batch atomically.
func (s *Store) Commit(batch *leveldb.Batch) error {
	return s.db.Write(batch, nil)
}

// IteratePrefix invokes fn for every key-value pair under the prefix, in key
// order. Iteration stops early if fn returns false.
func (s *Store) IteratePrefix(prefix []byte, fn func(key, value []byte) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		key := append([]byte(nil), iter.Key()...)
		value := append([]byte(nil), iter.Value()...)
		if !fn(key, value) {
			break
		}
	}
	return iter.Error()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
