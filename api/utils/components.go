// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package utils

import (
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/builtin/voting"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

// Components binds the components reachable from the registry.
type Components struct {
	State     *state.State
	Block     xenv.BlockContext
	Registry  registry.Contract
	Consensus consensus.Contract
	Voting    voting.Contract
}

// View runs fn against the current state with every registered component bound.
func View(c *chain.Chain, registryAddr fuse.Address, fn func(comps *Components) error) error {
	return c.View(func(st *state.State, blockCtx xenv.BlockContext) error {
		reg, err := registry.Bind(st, registryAddr)
		if err != nil {
			return errors.Wrap(err, "bind registry")
		}
		comps := &Components{State: st, Block: blockCtx, Registry: reg}

		addr, err := reg.ContractAddress(registry.RoleConsensus)
		if err != nil {
			return err
		}
		if comps.Consensus, err = consensus.Bind(st, addr); err != nil {
			return errors.Wrap(err, "bind consensus")
		}
		if addr, err = reg.ContractAddress(registry.RoleVoting); err != nil {
			return err
		}
		if comps.Voting, err = voting.Bind(st, addr); err != nil {
			return errors.Wrap(err, "bind voting")
		}
		return fn(comps)
	})
}
