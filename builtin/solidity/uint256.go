// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"math/big"

	"github.com/fuseio/fuse-consensus/fuse"
)

// Uint256 is a wrapper for storage and retrieval of an uint256. Similar to storing an uint256 in a smart contract.
// If the provided uint exceeds 256 bits, it will be truncated to fit into fuse.Bytes32
type Uint256 struct {
	context *Context
	pos     fuse.Bytes32
}

func NewUint256(context *Context, pos fuse.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.address, u.pos, fuse.BigToBytes32(value))
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	u.Set(storage.Add(storage, value))
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	u.Set(storage.Sub(storage, value))
	return nil
}

// Uint64 stores a counter or block number in a single word.
type Uint64 struct {
	u *Uint256
}

func NewUint64(context *Context, pos fuse.Bytes32) *Uint64 {
	return &Uint64{NewUint256(context, pos)}
}

func (u *Uint64) Get() (uint64, error) {
	v, err := u.u.Get()
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

func (u *Uint64) Set(value uint64) {
	u.u.Set(new(big.Int).SetUint64(value))
}

// Inc adds delta and returns the new value.
func (u *Uint64) Inc(delta uint64) (uint64, error) {
	v, err := u.Get()
	if err != nil {
		return 0, err
	}
	v += delta
	u.Set(v)
	return v, nil
}
