// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var _ Store = (*BoltDB)(nil)

var (
	defaultBucket = []byte("default")
	errNotFound   = errors.New("bolt db entry not found")
)

// BoltDB is a Store backed by a single bbolt bucket.
type BoltDB struct {
	db *bolt.DB
}

// NewBoltDB opens (or creates) a bolt database file.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(defaultBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	return &BoltDB{db: db}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (b *BoltDB) IsNotFound(err error) bool {
	return errors.Is(err, errNotFound)
}

// Get retrieve value for given key.
func (b *BoltDB) Get(key []byte) (val []byte, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(defaultBucket).Get(key)
		if data == nil {
			return errNotFound
		}
		// bolt owned memory is only valid inside the transaction
		val = bytes.Clone(data)
		return nil
	})
	return
}

// Has returns whether a key exists.
func (b *BoltDB) Has(key []byte) (has bool, err error) {
	err = b.db.View(func(tx *bolt.Tx) error {
		has = tx.Bucket(defaultBucket).Get(key) != nil
		return nil
	})
	return
}

// Put save value for given key.
func (b *BoltDB) Put(key, val []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Put(key, val)
	})
}

// Delete deletes a key.
func (b *BoltDB) Delete(key []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(defaultBucket).Delete(key)
	})
}

// Close closes the db.
func (b *BoltDB) Close() error {
	return b.db.Close()
}

// NewBatch creates a batch which is written in a single bolt transaction.
func (b *BoltDB) NewBatch() Batch {
	return &boltBatch{db: b.db}
}

// Iterate snapshots the range into memory, bolt cursors can't outlive their transaction.
func (b *BoltDB) Iterate(r Range) Iterator {
	it := &boltIterator{pos: -1}
	it.err = b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(defaultBucket).Cursor()
		var k, v []byte
		if len(r.Start) == 0 {
			k, v = c.First()
		} else {
			k, v = c.Seek(r.Start)
		}
		for ; k != nil; k, v = c.Next() {
			if len(r.Limit) > 0 && bytes.Compare(k, r.Limit) >= 0 {
				break
			}
			it.keys = append(it.keys, bytes.Clone(k))
			it.vals = append(it.vals, bytes.Clone(v))
		}
		return nil
	})
	return it
}

type boltOp struct {
	key, val []byte
	del      bool
}

type boltBatch struct {
	db  *bolt.DB
	ops []boltOp
}

func (b *boltBatch) Put(key, val []byte) error {
	b.ops = append(b.ops, boltOp{key: bytes.Clone(key), val: bytes.Clone(val)})
	return nil
}

func (b *boltBatch) Delete(key []byte) error {
	b.ops = append(b.ops, boltOp{key: bytes.Clone(key), del: true})
	return nil
}

func (b *boltBatch) Len() int {
	return len(b.ops)
}

func (b *boltBatch) Write() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(defaultBucket)
		for _, op := range b.ops {
			var err error
			if op.del {
				err = bkt.Delete(op.key)
			} else {
				err = bkt.Put(op.key, op.val)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

type boltIterator struct {
	keys, vals [][]byte
	pos        int
	err        error
}

func (it *boltIterator) Next() bool {
	if it.err != nil || it.pos+1 >= len(it.keys) {
		return false
	}
	it.pos++
	return true
}

func (it *boltIterator) Key() []byte   { return it.keys[it.pos] }
func (it *boltIterator) Value() []byte { return it.vals[it.pos] }
func (it *boltIterator) Error() error  { return it.err }

func (it *boltIterator) Release() {
	it.keys, it.vals = nil, nil
}
