// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/authz"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

type v1 struct {
	ctx                  *solidity.Context
	owner                *solidity.Address
	initialized          *solidity.Bool
	addressesInitialized *solidity.Bool
	addresses            *solidity.Mapping[solidity.Uint64Key, fuse.Address]
}

func newV1(ctx *solidity.Context) *v1 {
	return &v1{
		ctx:                  ctx,
		owner:                solidity.NewAddress(ctx, solidity.NameToSlot("registry.owner")),
		initialized:          solidity.NewBool(ctx, solidity.NameToSlot("registry.initialized")),
		addressesInitialized: solidity.NewBool(ctx, solidity.NameToSlot("registry.addressesInitialized")),
		addresses:            solidity.NewMapping[solidity.Uint64Key, fuse.Address](ctx, solidity.NameToSlot("registry.addresses")),
	}
}

func (r *v1) Address() fuse.Address {
	return r.ctx.Address()
}

func (r *v1) IsInitialized() (bool, error) {
	return r.initialized.Get()
}

func (r *v1) Owner() (fuse.Address, error) {
	return r.owner.Get()
}

func (r *v1) ContractAddress(role Role) (fuse.Address, error) {
	if role == RoleProxyStorage {
		return r.ctx.Address(), nil
	}
	if !role.Valid() {
		return fuse.Address{}, nil
	}
	return r.addresses.Get(solidity.Uint64Key(role))
}

func (r *v1) governance() (fuse.Address, error) {
	return r.ContractAddress(RoleVoting)
}

func (r *v1) Initialize(env *xenv.Environment, consensus fuse.Address) error {
	initialized, err := r.initialized.Get()
	if err != nil {
		return err
	}
	if initialized {
		return reverts.Conflict("registry: already initialized")
	}
	if consensus.IsZero() {
		return reverts.Invalid("registry: zero consensus address")
	}
	caller := env.Caller()
	r.owner.Set(&caller)
	r.initialized.Set(true)
	if err := r.addresses.Set(solidity.Uint64Key(RoleConsensus), consensus); err != nil {
		return err
	}
	logger.Info("registry initialized", "address", r.ctx.Address(), "owner", caller, "consensus", consensus)
	return nil
}

func (r *v1) InitializeAddresses(env *xenv.Environment, blockReward, voting fuse.Address) error {
	if err := authz.Require(env.Caller(), "initializeAddresses", authz.Owner(r.Owner)); err != nil {
		return err
	}
	done, err := r.addressesInitialized.Get()
	if err != nil {
		return err
	}
	if done {
		return reverts.Conflict("registry: addresses already initialized")
	}
	if blockReward.IsZero() || voting.IsZero() {
		return reverts.Invalid("registry: zero component address")
	}
	if err := r.addresses.Set(solidity.Uint64Key(RoleBlockReward), blockReward); err != nil {
		return err
	}
	if err := r.addresses.Set(solidity.Uint64Key(RoleVoting), voting); err != nil {
		return err
	}
	r.addressesInitialized.Set(true)
	logger.Info("registry addresses initialized", "blockReward", blockReward, "voting", voting)
	return nil
}

// SetContractAddress upgrades the proxy serving role to implementation.
// An invalid role or a zero implementation is ignored.
func (r *v1) SetContractAddress(env *xenv.Environment, role Role, implementation fuse.Address) (bool, error) {
	if err := authz.Require(env.Caller(), "setContractAddress", authz.Governance(r.governance)); err != nil {
		return false, err
	}
	if !role.Valid() || implementation.IsZero() {
		logger.Debug("setContractAddress ignored", "role", role, "implementation", implementation)
		return false, nil
	}
	target, err := r.ContractAddress(role)
	if err != nil {
		return false, err
	}
	if target.IsZero() {
		return false, nil
	}

	ok, err := proxy.New(r.ctx.State(), target).UpgradeTo(env.As(r.ctx.Address()), implementation)
	if err != nil {
		return false, errors.Wrapf(err, "upgrade %s", role)
	}
	if ok {
		env.Emit(r.ctx.Address(), "AddressSet", &AddressSetEvent{Role: role, Implementation: implementation})
		logger.Info("contract address set", "role", role, "implementation", implementation)
	}
	return ok, nil
}
