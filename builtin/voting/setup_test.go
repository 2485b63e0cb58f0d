// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

const cycleDuration = 100

var (
	owner    = fuse.BytesToAddress([]byte("owner"))
	genesisV = fuse.BytesToAddress([]byte("genesis validator"))
	outsider = fuse.BytesToAddress([]byte("outsider"))

	consensusAddr = fuse.BytesToAddress([]byte("consensus proxy"))
	registryAddr  = fuse.BytesToAddress([]byte("registry proxy"))
	votingAddr    = fuse.BytesToAddress([]byte("voting proxy"))
	rewardAddr    = fuse.BytesToAddress([]byte("reward proxy"))

	minStake = new(big.Int).Mul(big.NewInt(100), fuse.Ether)
)

type network struct {
	st        *state.State
	consensus consensus.Contract
	voting    Contract
	block     uint64
}

func (n *network) env(caller fuse.Address) *xenv.Environment {
	return xenv.New(n.st, &xenv.BlockContext{Number: n.block}, caller, nil)
}

func newNetwork(t *testing.T, policy QuorumPolicy) *network {
	db, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db)
	require.NoError(t, err)

	n := &network{st: st, block: 1}
	deploy := func(addr fuse.Address, kind proxy.Kind, impl fuse.Address) {
		require.NoError(t, proxy.New(st, addr).Deploy(kind, owner, impl))
	}
	deploy(consensusAddr, proxy.KindConsensus, consensus.V1)
	deploy(registryAddr, proxy.KindRegistry, registry.V1)
	deploy(votingAddr, proxy.KindVoting, V1)
	deploy(rewardAddr, proxy.KindBlockReward, proxy.ImplementationID("reward.v1"))

	n.consensus, err = consensus.Bind(st, consensusAddr)
	require.NoError(t, err)
	reg, err := registry.Bind(st, registryAddr)
	require.NoError(t, err)
	n.voting, err = Bind(st, votingAddr)
	require.NoError(t, err)

	env := n.env(owner)
	require.NoError(t, n.consensus.Initialize(env, minStake, cycleDuration, 10, genesisV))
	require.NoError(t, reg.Initialize(env, consensusAddr))
	require.NoError(t, reg.InitializeAddresses(env, rewardAddr, votingAddr))
	require.NoError(t, n.voting.Initialize(env, fuse.DefaultMinBallotDurationCycles, policy))
	require.NoError(t, n.consensus.SetProxyStorage(env, registryAddr))
	require.NoError(t, n.voting.SetProxyStorage(env, registryAddr))
	for _, addr := range []fuse.Address{consensusAddr, registryAddr, votingAddr, rewardAddr} {
		require.NoError(t, proxy.New(st, addr).SetRegistry(env, registryAddr))
	}
	return n
}

// join stakes one seat for each address and finalizes the change.
func (n *network) join(t *testing.T, addrs ...fuse.Address) {
	for _, addr := range addrs {
		require.NoError(t, n.st.SetBalance(addr, minStake))
		env := xenv.New(n.st, &xenv.BlockContext{Number: n.block}, addr, minStake)
		require.NoError(t, n.consensus.Stake(env))
	}
	require.NoError(t, n.consensus.FinalizeChange(n.env(fuse.SystemAddress)))
}

// validators stakes a seat for the genesis validator and count-1 fresh addresses, which then form the active set.
func (n *network) validators(t *testing.T, count int) []fuse.Address {
	addrs := []fuse.Address{genesisV}
	for i := 1; i < count; i++ {
		addrs = append(addrs, fuse.BytesToAddress([]byte(fmt.Sprintf("validator %d", i))))
	}
	n.join(t, addrs...)
	return addrs
}

func paramValue(v uint64) fuse.Bytes32 {
	return fuse.BigToBytes32(new(big.Int).SetUint64(v))
}

func (n *network) newParamBallot(t *testing.T, creator fuse.Address, subject Subject, value uint64) uint64 {
	id, err := n.voting.NewBallot(n.env(creator), &NewBallotArgs{
		StartAfterCycles: 1,
		DurationCycles:   fuse.DefaultMinBallotDurationCycles,
		Subject:          subject,
		Value:            paramValue(value),
		Description:      "change parameter",
	})
	require.NoError(t, err)
	return id
}

// open moves the block into the voting window of ballot id.
func (n *network) open(t *testing.T, id uint64) *Ballot {
	b, err := n.voting.Ballot(id)
	require.NoError(t, err)
	require.NotNil(t, b)
	n.block = b.StartBlock
	return b
}

func (n *network) vote(t *testing.T, id uint64, choice Choice, voters ...fuse.Address) {
	for _, voter := range voters {
		require.NoError(t, n.voting.Vote(n.env(voter), id, choice))
	}
}
