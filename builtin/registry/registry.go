// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry is the directory of component roles. It maps every role to the
// proxy serving it and is the upgrade authority of all proxies once wired. Upgrades
// reach it through governance only.
package registry

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var logger = log.New("pkg", "registry")

// Role is a logical component role.
type Role uint8

const (
	RoleInvalid Role = iota
	RoleConsensus
	RoleBlockReward
	RoleProxyStorage
	RoleVoting
)

// Valid reports whether r names a real role.
func (r Role) Valid() bool {
	return r >= RoleConsensus && r <= RoleVoting
}

func (r Role) String() string {
	switch r {
	case RoleConsensus:
		return "consensus"
	case RoleBlockReward:
		return "blockReward"
	case RoleProxyStorage:
		return "proxyStorage"
	case RoleVoting:
		return "voting"
	default:
		return "invalid"
	}
}

// Roles lists every valid role.
var Roles = []Role{RoleConsensus, RoleBlockReward, RoleProxyStorage, RoleVoting}

// AddressSetEvent is emitted when governance swaps the implementation behind a role.
type AddressSetEvent struct {
	Role           Role         `json:"role"`
	Implementation fuse.Address `json:"implementation"`
}

// Contract is the behaviour set of the registry.
type Contract interface {
	Address() fuse.Address

	Initialize(env *xenv.Environment, consensus fuse.Address) error
	InitializeAddresses(env *xenv.Environment, blockReward, voting fuse.Address) error
	SetContractAddress(env *xenv.Environment, role Role, implementation fuse.Address) (bool, error)

	IsInitialized() (bool, error)
	Owner() (fuse.Address, error)
	ContractAddress(role Role) (fuse.Address, error)
}

// V1 is the first registry implementation.
var V1 = proxy.ImplementationID("registry.v1")

// Catalog holds all registry implementations.
var Catalog = proxy.NewCatalog[Contract](proxy.KindRegistry)

func init() {
	Catalog.Register(V1, func(ctx *solidity.Context) Contract { return newV1(ctx) })
}

// Bind resolves the registry behind the proxy at addr.
func Bind(st *state.State, addr fuse.Address) (Contract, error) {
	return Catalog.Resolve(proxy.New(st, addr))
}
