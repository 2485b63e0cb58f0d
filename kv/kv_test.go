// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engines(t *testing.T) map[string]Store {
	mem, err := NewMem()
	require.NoError(t, err)

	dir := t.TempDir()
	ldb, err := NewLevelDB(filepath.Join(dir, "level"), Options{})
	require.NoError(t, err)

	bdb, err := NewBoltDB(filepath.Join(dir, "bolt.db"))
	require.NoError(t, err)

	stores := map[string]Store{"mem": mem, "leveldb": ldb, "bolt": bdb}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func TestStoreGetPut(t *testing.T) {
	for name, store := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get([]byte("missing"))
			assert.True(t, store.IsNotFound(err))

			require.NoError(t, store.Put([]byte("k"), []byte("v")))
			v, err := store.Get([]byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), v)

			has, err := store.Has([]byte("k"))
			require.NoError(t, err)
			assert.True(t, has)

			require.NoError(t, store.Delete([]byte("k")))
			has, err = store.Has([]byte("k"))
			require.NoError(t, err)
			assert.False(t, has)
		})
	}
}

func TestStoreBatchAndIterate(t *testing.T) {
	for name, store := range engines(t) {
		t.Run(name, func(t *testing.T) {
			batch := store.NewBatch()
			require.NoError(t, batch.Put([]byte("a1"), []byte("1")))
			require.NoError(t, batch.Put([]byte("a2"), []byte("2")))
			require.NoError(t, batch.Put([]byte("b1"), []byte("3")))
			require.NoError(t, batch.Delete([]byte("a2")))
			assert.Equal(t, 4, batch.Len())

			// nothing visible before write
			_, err := store.Get([]byte("a1"))
			assert.True(t, store.IsNotFound(err))

			require.NoError(t, batch.Write())

			it := store.Iterate(Range{Start: []byte("a"), Limit: []byte("b")})
			defer it.Release()
			var keys []string
			for it.Next() {
				keys = append(keys, string(it.Key()))
			}
			require.NoError(t, it.Error())
			assert.Equal(t, []string{"a1"}, keys)
		})
	}
}

func TestBucket(t *testing.T) {
	src, err := NewMem()
	require.NoError(t, err)
	defer src.Close()

	b1 := Bucket("b1").NewStore(src)
	b2 := Bucket("b2").NewStore(src)

	require.NoError(t, b1.Put([]byte("k"), []byte("v1")))
	require.NoError(t, b2.Put([]byte("k"), []byte("v2")))

	v, err := b1.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	raw, err := src.Get([]byte("b2k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), raw)

	batch := b1.NewBatch()
	require.NoError(t, batch.Put([]byte("x"), []byte("y")))
	require.NoError(t, batch.Write())

	it := b1.Iterate(Range{})
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	assert.Equal(t, []string{"k", "x"}, keys)
}

func TestLevelDBReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level")

	db, err := NewLevelDB(path, Options{})
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v")))

	// the file lock is held while open
	_, err = NewLevelDB(path, Options{})
	assert.Error(t, err)
	require.NoError(t, db.Close())

	for i := 0; i < 2; i++ {
		db, err = NewLevelDB(path, Options{})
		require.NoError(t, err)
		v, err := db.Get([]byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
		require.NoError(t, db.Close())
	}
}
