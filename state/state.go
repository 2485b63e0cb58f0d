// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/stackedmap"
)

const (
	dataBucket = kv.Bucket("s.")
	metaBucket = kv.Bucket("m.")

	defaultCacheSize = 4096
)

var (
	versionKey = []byte("version")

	storagePrefix = []byte("storage")
	balancePrefix = []byte("balance")
)

// ErrInsufficientBalance is returned by Transfer when the sender can't cover the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// State manages the persistent key/value space of all components.
type State struct {
	store   kv.Store
	data    kv.Store
	meta    kv.Store
	cache   *lru.Cache                                   // committed values, nil means absent
	sm      *stackedmap.StackedMap[fuse.Bytes32, []byte] // uncommitted revisions
	version uint64
}

// Option configures a State.
type Option func(*options)

type options struct {
	cacheSize int
}

// WithCacheSize sets the number of committed values kept in the read cache.
func WithCacheSize(size int) Option {
	return func(o *options) {
		o.cacheSize = size
	}
}

// New create state object over the given store.
func New(store kv.Store, opts ...Option) (*State, error) {
	o := options{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	cache, err := lru.New(o.cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "create state cache")
	}

	s := &State{
		store: store,
		data:  dataBucket.NewStore(store),
		meta:  metaBucket.NewStore(store),
		cache: cache,
	}

	raw, err := s.meta.Get(versionKey)
	if err != nil && !s.meta.IsNotFound(err) {
		return nil, &Error{err}
	}
	if len(raw) == 8 {
		s.version = binary.BigEndian.Uint64(raw)
	}

	s.resetJournal()
	return s, nil
}

func (s *State) resetJournal() {
	s.sm = stackedmap.New(s.committedGetter)
	s.sm.Push()
}

// committedGetter implements stackedmap.MapGetter.
func (s *State) committedGetter(key fuse.Bytes32) ([]byte, bool, error) {
	if v, ok := s.cache.Get(key); ok {
		return v.([]byte), true, nil
	}
	val, err := s.data.Get(key[:])
	if err != nil {
		if !s.data.IsNotFound(err) {
			return nil, false, err
		}
		val = nil
	}
	s.cache.Add(key, val)
	return val, true, nil
}

func storageKey(ns fuse.Address, key fuse.Bytes32) fuse.Bytes32 {
	return fuse.Blake2b(storagePrefix, ns[:], key[:])
}

func balanceKey(addr fuse.Address) fuse.Bytes32 {
	return fuse.Blake2b(balancePrefix, addr[:])
}

// Version returns the number of commits applied to the underlying store.
func (s *State) Version() uint64 {
	return s.version
}

// GetRawStorage returns storage value in rlp raw for given namespace and key.
func (s *State) GetRawStorage(ns fuse.Address, key fuse.Bytes32) (rlp.RawValue, error) {
	v, _, err := s.sm.Get(storageKey(ns, key))
	if err != nil {
		return nil, &Error{err}
	}
	return v, nil
}

// SetRawStorage set storage value in rlp raw. Empty raw deletes the value.
func (s *State) SetRawStorage(ns fuse.Address, key fuse.Bytes32, raw rlp.RawValue) {
	if len(raw) == 0 {
		raw = nil
	}
	s.sm.Put(storageKey(ns, key), raw)
}

// GetStorage returns storage word for the given namespace and key.
func (s *State) GetStorage(ns fuse.Address, key fuse.Bytes32) (fuse.Bytes32, error) {
	raw, err := s.GetRawStorage(ns, key)
	if err != nil {
		return fuse.Bytes32{}, err
	}
	if len(raw) == 0 {
		return fuse.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return fuse.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// customized storage value, return hash of raw data
		return fuse.Blake2b(raw), nil
	}
	return fuse.BytesToBytes32(content), nil
}

// SetStorage set storage word for the given namespace and key.
func (s *State) SetStorage(ns fuse.Address, key, value fuse.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(ns, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(ns, key, v)
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(ns fuse.Address, key fuse.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(ns, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(ns fuse.Address, key fuse.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(ns, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetBalance returns balance for the given address.
func (s *State) GetBalance(addr fuse.Address) (*big.Int, error) {
	raw, _, err := s.sm.Get(balanceKey(addr))
	if err != nil {
		return nil, &Error{err}
	}
	bal := new(big.Int)
	if len(raw) == 0 {
		return bal, nil
	}
	if err := rlp.DecodeBytes(raw, bal); err != nil {
		return nil, &Error{err}
	}
	return bal, nil
}

// SetBalance set balance for the given address.
func (s *State) SetBalance(addr fuse.Address, balance *big.Int) error {
	if balance.Sign() < 0 {
		return &Error{errors.New("negative balance")}
	}
	if balance.Sign() == 0 {
		s.sm.Put(balanceKey(addr), nil)
		return nil
	}
	raw, err := rlp.EncodeToBytes(balance)
	if err != nil {
		return &Error{err}
	}
	s.sm.Put(balanceKey(addr), raw)
	return nil
}

// Transfer moves amount from one account to another.
func (s *State) Transfer(from, to fuse.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := s.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := s.GetBalance(to)
	if err != nil {
		return err
	}
	if err := s.SetBalance(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return s.SetBalance(to, toBal.Add(toBal, amount))
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 1 {
		// the bottom level holds uncommitted changes made outside of any checkpoint
		revision = 1
	}
	s.sm.PopTo(revision)
}

// Commit writes all pending changes to the store in one batch and bumps the version.
func (s *State) Commit() (uint64, error) {
	batch := s.store.NewBatch()
	changes := make(map[fuse.Bytes32][]byte)
	var err error
	s.sm.Journal(func(key fuse.Bytes32, val []byte) bool {
		changes[key] = val
		dbKey := append([]byte(dataBucket), key[:]...)
		if len(val) == 0 {
			err = batch.Delete(dbKey)
		} else {
			err = batch.Put(dbKey, val)
		}
		return err == nil
	})
	if err != nil {
		return 0, &Error{err}
	}

	var ver [8]byte
	binary.BigEndian.PutUint64(ver[:], s.version+1)
	if err := batch.Put(append([]byte(metaBucket), versionKey...), ver[:]); err != nil {
		return 0, &Error{err}
	}
	if err := batch.Write(); err != nil {
		return 0, &Error{err}
	}

	for key, val := range changes {
		s.cache.Add(key, val)
	}
	s.version++
	s.resetJournal()
	return s.version, nil
}
