// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"math/big"

	"github.com/fuseio/fuse-consensus/fuse"
)

// seatCount is floor(stake / minStake).
func seatCount(stake, minStake *big.Int) uint64 {
	if minStake.Sign() <= 0 {
		return 0
	}
	return new(big.Int).Quo(stake, minStake).Uint64()
}

func (c *v1) pendingSeats(owner fuse.Address) (uint64, error) {
	st, err := c.states.Get(owner)
	if err != nil {
		return 0, err
	}
	return uint64(len(st.Indices)), nil
}

// addSeats appends n seats for owner to the pending list.
func (c *v1) addSeats(owner fuse.Address, n uint64) error {
	st, err := c.states.Get(owner)
	if err != nil {
		return err
	}
	length, err := c.pending.Len()
	if err != nil {
		return err
	}
	for i := uint64(0); i < n; i++ {
		if err := c.pending.Push(owner); err != nil {
			return err
		}
		st.Indices = append(st.Indices, length+i)
	}
	st.IsValidator = true
	return c.states.Set(owner, st)
}

// removeSeats drops the n most recently added seats of owner, keeping the order of all others.
func (c *v1) removeSeats(owner fuse.Address, n uint64) error {
	st, err := c.states.Get(owner)
	if err != nil {
		return err
	}
	if n > uint64(len(st.Indices)) {
		n = uint64(len(st.Indices))
	}
	if n == 0 {
		return nil
	}
	list, err := c.pending.All()
	if err != nil {
		return err
	}

	drop := st.Indices[uint64(len(st.Indices))-n:]
	first := drop[0]
	dropped := make(map[uint64]bool, len(drop))
	for _, i := range drop {
		dropped[i] = true
	}
	kept := make([]fuse.Address, 0, len(list)-len(drop))
	for i, addr := range list {
		if !dropped[uint64(i)] {
			kept = append(kept, addr)
		}
	}
	if err := c.pending.Replace(kept); err != nil {
		return err
	}

	// seats at or after the first dropped index shifted, refresh their owners
	affected := map[fuse.Address]bool{owner: true}
	for _, addr := range list[first:] {
		affected[addr] = true
	}
	indices := make(map[fuse.Address][]uint64, len(affected))
	for i, addr := range kept {
		if affected[addr] {
			indices[addr] = append(indices[addr], uint64(i))
		}
	}
	for addr := range affected {
		if err := c.states.Set(addr, &ValidatorState{
			IsValidator: len(indices[addr]) > 0,
			Indices:     indices[addr],
		}); err != nil {
			return err
		}
	}
	return nil
}
