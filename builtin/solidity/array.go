// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/fuse"
)

// AddressArray is a dynamic array of addresses, the length lives at `pos`
// and element i at blake2b(i, pos), like a Solidity address[].
type AddressArray struct {
	length   *Uint64
	elements *Mapping[Uint64Key, fuse.Address]
}

func NewAddressArray(context *Context, pos fuse.Bytes32) *AddressArray {
	return &AddressArray{
		length:   NewUint64(context, pos),
		elements: NewMapping[Uint64Key, fuse.Address](context, pos),
	}
}

func (a *AddressArray) Len() (uint64, error) {
	return a.length.Get()
}

func (a *AddressArray) Get(i uint64) (fuse.Address, error) {
	n, err := a.Len()
	if err != nil {
		return fuse.Address{}, err
	}
	if i >= n {
		return fuse.Address{}, errors.Errorf("index %d out of range [0, %d)", i, n)
	}
	return a.elements.Get(Uint64Key(i))
}

func (a *AddressArray) Push(addr fuse.Address) error {
	n, err := a.Len()
	if err != nil {
		return err
	}
	if err := a.elements.Set(Uint64Key(n), addr); err != nil {
		return err
	}
	a.length.Set(n + 1)
	return nil
}

// All loads the whole array.
func (a *AddressArray) All() ([]fuse.Address, error) {
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	list := make([]fuse.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		addr, err := a.elements.Get(Uint64Key(i))
		if err != nil {
			return nil, err
		}
		list = append(list, addr)
	}
	return list, nil
}

// Replace overwrites the array content, writing only elements that changed.
func (a *AddressArray) Replace(list []fuse.Address) error {
	old, err := a.All()
	if err != nil {
		return err
	}
	for i, addr := range list {
		if i < len(old) && old[i] == addr {
			continue
		}
		if err := a.elements.Set(Uint64Key(i), addr); err != nil {
			return err
		}
	}
	for i := len(list); i < len(old); i++ {
		a.elements.Delete(Uint64Key(i))
	}
	a.length.Set(uint64(len(list)))
	return nil
}
