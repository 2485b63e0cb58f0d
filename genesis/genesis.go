// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis deploys and wires the components in block 0.
package genesis

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/builtin/voting"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
)

var logger = log.New("pkg", "genesis")

// BlockRewardV1 is the default implementation id of the reward component.
var BlockRewardV1 = proxy.ImplementationID("blockreward.v1")

// Genesis to build genesis block.
type Genesis struct {
	builder   *Builder
	name      string
	Addresses Addresses
	Config    *Config
}

// Build seals block 0 into c.
func (g *Genesis) Build(c *chain.Chain) (*chain.Head, error) {
	head, err := g.builder.Build(c)
	if err != nil {
		return nil, err
	}
	logger.Info("genesis sealed", "network", g.name, "time", head.Time)
	return head, nil
}

// Name returns network name.
func (g *Genesis) Name() string {
	return g.name
}

// New creates the genesis described by cfg.
//
// The sequence deploys the four proxies, initializes every component in dependency order, then
// hands upgrade authority over to the registry so that only accepted ballots can change behaviour.
func New(name string, cfg *Config) *Genesis {
	addrs := *cfg.Addresses
	rewardImpl := BlockRewardV1
	if cfg.BlockRewardImplementation != nil {
		rewardImpl = *cfg.BlockRewardImplementation
	}
	policy := cfg.Voting.QuorumPolicy
	if policy == "" {
		policy = voting.PolicySeats.String()
	}

	owner := cfg.Owner
	b := new(Builder).
		Timestamp(cfg.LaunchTime).
		State(func(st *state.State) error {
			for _, a := range cfg.Accounts {
				if err := st.SetBalance(a.Address, new(big.Int).Set((*big.Int)(a.Balance))); err != nil {
					return err
				}
			}
			deploys := []struct {
				addr fuse.Address
				kind proxy.Kind
				impl fuse.Address
			}{
				{addrs.Consensus, proxy.KindConsensus, consensus.V1},
				{addrs.Registry, proxy.KindRegistry, registry.V1},
				{addrs.Voting, proxy.KindVoting, voting.V1},
				{addrs.BlockReward, proxy.KindBlockReward, rewardImpl},
			}
			for _, d := range deploys {
				if err := proxy.New(st, d.addr).Deploy(d.kind, owner, d.impl); err != nil {
					return err
				}
			}
			return nil
		}).
		Call(owner, addrs.Consensus, "initialize", map[string]any{
			"minStake":          cfg.Consensus.MinStake,
			"cycleDuration":     cfg.Consensus.CycleDuration,
			"snapshotsPerCycle": cfg.Consensus.SnapshotsPerCycle,
			"initialValidator":  cfg.Consensus.InitialValidator.String(),
		}).
		Call(owner, addrs.Registry, "initialize", map[string]any{"consensus": addrs.Consensus.String()}).
		Call(owner, addrs.Registry, "initializeAddresses", map[string]any{
			"blockReward": addrs.BlockReward.String(),
			"voting":      addrs.Voting.String(),
		}).
		Call(owner, addrs.Consensus, "setProxyStorage", map[string]any{"address": addrs.Registry.String()}).
		Call(owner, addrs.Voting, "initialize", map[string]any{
			"minBallotDurationCycles": cfg.Voting.MinBallotDurationCycles,
			"quorumPolicy":            policy,
		}).
		Call(owner, addrs.Voting, "setProxyStorage", map[string]any{"address": addrs.Registry.String()})

	for _, addr := range []fuse.Address{addrs.Consensus, addrs.Registry, addrs.Voting, addrs.BlockReward} {
		b.Call(owner, addr, "setRegistry", map[string]any{"registry": addrs.Registry.String()})
	}

	return &Genesis{builder: b, name: name, Addresses: addrs, Config: cfg}
}
