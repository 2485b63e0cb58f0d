// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
)

// Context binds storage wrappers to the namespace of one component.
// For upgradeable components the namespace is the proxy address.
type Context struct {
	address fuse.Address
	state   *state.State
}

func NewContext(address fuse.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() fuse.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// NameToSlot derives a storage slot from a variable name.
func NameToSlot(name string) fuse.Bytes32 {
	return fuse.BytesToBytes32([]byte(name))
}
