package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/syndtr/goleveldb/leveldb"
)

func newTestStore(t *testing.T) *Store {
	store, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)

	val, found, err := store.Get([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, val)

	require.NoError(t, store.Put([]byte("k"), []byte("v")))

	val, found, err = store.Get([]byte("k"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), val)

	ok, err := store.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete([]byte("k")))
	ok, err = store.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Commit(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put([]byte("old"), []byte("x")))

	batch := new(leveldb.Batch)
	batch.Put([]byte("a"), []byte("1"))
	batch.Put([]byte("b"), []byte("2"))
	batch.Delete([]byte("old"))
	require.NoError(t, store.Commit(batch))

	_, found, err := store.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = store.Get([]byte("old"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_IteratePrefix(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Put([]byte("n/a"), []byte("1")))
	require.NoError(t, store.Put([]byte("n/b"), []byte("2")))
	require.NoError(t, store.Put([]byte("t/a"), []byte("3")))

	var keys []string
	err := store.IteratePrefix([]byte("n/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"n/a", "n/b"}, keys)

	// Early stop.
	keys = keys[:0]
	err = store.IteratePrefix([]byte("n/"), func(key, value []byte) bool {
		keys = append(keys, string(key))
		return false
	})
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestOpen_EmptyPathIsMemory(t *testing.T) {
	store, err := Open("")
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Put([]byte("k"), []byte("v")))
}
