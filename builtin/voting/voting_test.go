// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

var consensusTestV2 = proxy.ImplementationID("consensus.voting-test.v2")

func init() {
	consensus.Catalog.Register(consensusTestV2, func(ctx *solidity.Context) consensus.Contract {
		return consensus.NewV1(ctx)
	})
}

func TestBallotWindow(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	id, err := n.voting.NewBallot(n.env(genesisV), &NewBallotArgs{
		StartAfterCycles: 3,
		DurationCycles:   4,
		Subject:          SubjectMinStake,
		Value:            fuse.BigToBytes32(minStake),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), id)

	b, err := n.voting.Ballot(id)
	require.NoError(t, err)
	cycleEnd := uint64(1 + cycleDuration)
	assert.Equal(t, cycleEnd+3*cycleDuration, b.StartBlock)
	assert.Equal(t, b.StartBlock+4*cycleDuration, b.EndBlock)
	assert.Equal(t, QuorumInProgress, b.State)

	next, err := n.voting.NextBallotID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)
	missing, err := n.voting.Ballot(next)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBallotOpensAfterCurrentCycle(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	id := n.newParamBallot(t, genesisV, SubjectCycleDuration, 200)

	b, err := n.voting.Ballot(id)
	require.NoError(t, err)
	cycleEnd, err := n.consensus.CurrentCycleEndBlock()
	require.NoError(t, err)
	assert.Equal(t, cycleEnd+cycleDuration, b.StartBlock)
	assert.Equal(t, cycleEnd+(1+fuse.DefaultMinBallotDurationCycles)*cycleDuration, b.EndBlock)

	// nobody can vote before the next cycle is over
	n.block = cycleEnd + cycleDuration - 1
	err = n.voting.Vote(n.env(genesisV), id, ChoiceAccept)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))
}

func TestCanBeFinalizedNow(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 3)
	id := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)
	b := n.open(t, id)

	now, err := n.voting.CanBeFinalizedNow(id, n.block)
	require.NoError(t, err)
	assert.False(t, now, "nobody voted")

	n.vote(t, id, ChoiceAccept, validators[0], validators[1], outsider)
	now, err = n.voting.CanBeFinalizedNow(id, n.block)
	require.NoError(t, err)
	assert.False(t, now, "one validator missing")
	now, err = n.voting.CanBeFinalizedNow(id, b.EndBlock+1)
	require.NoError(t, err)
	assert.True(t, now, "window closed")

	n.vote(t, id, ChoiceReject, validators[2])
	info, err := n.voting.BallotInfo(id, validators[2], n.block)
	require.NoError(t, err)
	assert.True(t, info.CanBeFinalizedNow)
	assert.True(t, info.AlreadyVoted)

	_, err = n.voting.Finalize(n.env(validators[0]), id)
	require.NoError(t, err)
	info, err = n.voting.BallotInfo(id, validators[2], b.EndBlock+1)
	require.NoError(t, err)
	assert.False(t, info.CanBeFinalizedNow)
	assert.Equal(t, QuorumAccepted, info.State)

	_, err = n.voting.CanBeFinalizedNow(id+1, n.block)
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))
}

func TestIsValidVotingKey(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	ok, err := n.voting.IsValidVotingKey(genesisV)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = n.voting.IsValidVotingKey(outsider)
	require.NoError(t, err)
	assert.False(t, ok)

	validators := n.validators(t, 3)
	for _, v := range validators {
		ok, err := n.voting.IsValidVotingKey(v)
		require.NoError(t, err)
		assert.True(t, ok, "%s", v)
	}
}

func TestNewBallotRejections(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	valid := func() *NewBallotArgs {
		return &NewBallotArgs{
			StartAfterCycles: 1,
			DurationCycles:   2,
			Subject:          SubjectCycleDuration,
			Value:            paramValue(200),
		}
	}

	_, err := n.voting.NewBallot(n.env(outsider), valid())
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))

	cases := map[string]func(a *NewBallotArgs){
		"start now":         func(a *NewBallotArgs) { a.StartAfterCycles = 0 },
		"too short":         func(a *NewBallotArgs) { a.DurationCycles = 1 },
		"too long":          func(a *NewBallotArgs) { a.DurationCycles = fuse.MaxBallotDurationCycles + 1 },
		"zero value":        func(a *NewBallotArgs) { a.Value = fuse.Bytes32{} },
		"invalid subject":   func(a *NewBallotArgs) { a.Subject = SubjectInvalid },
		"unknown subject":   func(a *NewBallotArgs) { a.Subject = 42 },
		"unknown impl":      func(a *NewBallotArgs) { a.Subject = SubjectConsensus },
		"min duration high": func(a *NewBallotArgs) { a.Subject = SubjectMinBallotDuration; a.Value = paramValue(15) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			args := valid()
			mutate(args)
			_, err := n.voting.NewBallot(n.env(genesisV), args)
			assert.True(t, reverts.IsKind(err, reverts.KindInvariant), "got %v", err)
		})
	}

	next, err := n.voting.NextBallotID()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), next)
}

func TestBallotQuota(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 8)

	limit, err := n.voting.BallotLimitPerValidator()
	require.NoError(t, err)
	assert.Equal(t, fuse.MaxLimitOfBallots/8, limit)

	for i := uint64(0); i < limit; i++ {
		n.newParamBallot(t, validators[0], SubjectCycleDuration, 200+i)
	}
	_, err = n.voting.NewBallot(n.env(validators[0]), &NewBallotArgs{
		StartAfterCycles: 1,
		DurationCycles:   2,
		Subject:          SubjectCycleDuration,
		Value:            paramValue(500),
	})
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))

	n.newParamBallot(t, validators[1], SubjectCycleDuration, 500)

	created, err := n.voting.ValidatorActiveBallots(validators[0])
	require.NoError(t, err)
	assert.Equal(t, limit, created)
	active, err := n.voting.ActiveBallots()
	require.NoError(t, err)
	assert.Equal(t, limit+1, active)

	// finalizing releases the quota
	b := n.open(t, 0)
	n.block = b.EndBlock + 1
	_, err = n.voting.Finalize(n.env(validators[0]), 0)
	require.NoError(t, err)
	created, err = n.voting.ValidatorActiveBallots(validators[0])
	require.NoError(t, err)
	assert.Equal(t, limit-1, created)
	ids, err := n.voting.ActiveBallotIDs()
	require.NoError(t, err)
	assert.NotContains(t, ids, uint64(0))
}

func TestVote(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 3)
	id := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)

	err := n.voting.Vote(n.env(validators[0]), id, ChoiceAccept)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict), "window not open")

	b := n.open(t, id)
	err = n.voting.Vote(n.env(validators[0]), id, Choice(3))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))
	err = n.voting.Vote(n.env(validators[0]), id+1, ChoiceAccept)
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))

	env := n.env(validators[0])
	require.NoError(t, n.voting.Vote(env, id, ChoiceAccept))
	assert.Equal(t, &VoteCastEvent{ID: id, Voter: validators[0], Choice: ChoiceAccept}, env.Events()[0].Data)
	err = n.voting.Vote(n.env(validators[0]), id, ChoiceReject)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))

	// outsiders are recorded
	require.NoError(t, n.voting.Vote(n.env(outsider), id, ChoiceReject))
	total, err := n.voting.TotalVoters(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	choice, err := n.voting.VoterChoice(id, outsider)
	require.NoError(t, err)
	assert.Equal(t, ChoiceReject, choice)

	info, err := n.voting.BallotInfo(id, validators[0], n.block)
	require.NoError(t, err)
	assert.True(t, info.AlreadyVoted)
	assert.Equal(t, uint64(1), info.AcceptCount)
	assert.Equal(t, uint64(1), info.RejectCount)
	info, err = n.voting.BallotInfo(id, validators[1], n.block)
	require.NoError(t, err)
	assert.False(t, info.AlreadyVoted)
	assert.False(t, info.CanBeFinalizedNow)

	n.block = b.EndBlock + 1
	err = n.voting.Vote(n.env(validators[1]), id, ChoiceAccept)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict), "window closed")
}

func TestFinalizeRules(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 3)
	id := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)
	n.open(t, id)

	n.vote(t, id, ChoiceAccept, validators[0], validators[1])
	_, err := n.voting.Finalize(n.env(validators[0]), id)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict), "not everyone voted")
	_, err = n.voting.Finalize(n.env(outsider), id)
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))

	n.vote(t, id, ChoiceReject, validators[2])
	env := n.env(validators[1])
	state, err := n.voting.Finalize(env, id)
	require.NoError(t, err)
	assert.Equal(t, QuorumAccepted, state)

	duration, err := n.consensus.CycleDuration()
	require.NoError(t, err)
	assert.Equal(t, uint64(200), duration)

	last := env.Events()[len(env.Events())-1]
	assert.Equal(t, &BallotFinalizedEvent{ID: id, State: QuorumAccepted, Accepts: 2, Base: 3, By: validators[1]}, last.Data)

	_, err = n.voting.Finalize(n.env(validators[0]), id)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))
	err = n.voting.Vote(n.env(outsider), id, ChoiceAccept)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))
}

func TestQuorumIsMajorityOfAllValidators(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 8)
	id := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)
	b := n.open(t, id)

	n.vote(t, id, ChoiceAccept, validators[0], validators[1])
	n.vote(t, id, ChoiceReject, validators[2])

	n.block = b.EndBlock + 1
	state, err := n.voting.Finalize(n.env(validators[3]), id)
	require.NoError(t, err)
	assert.Equal(t, QuorumRejected, state)

	got, err := n.voting.QuorumState(id)
	require.NoError(t, err)
	assert.Equal(t, QuorumRejected, got)
	duration, err := n.consensus.CycleDuration()
	require.NoError(t, err)
	assert.Equal(t, uint64(cycleDuration), duration)
}

func TestOutsiderVotesDoNotCount(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 3)
	id := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)
	b := n.open(t, id)

	n.vote(t, id, ChoiceAccept, validators[0], outsider)
	n.block = b.EndBlock + 1
	state, err := n.voting.Finalize(n.env(validators[0]), id)
	require.NoError(t, err)
	assert.Equal(t, QuorumRejected, state)
}

func TestQuorumBaseFollowsLiveValidatorSet(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 8)
	first := n.newParamBallot(t, validators[0], SubjectCycleDuration, 200)
	second := n.newParamBallot(t, validators[1], SubjectSnapshotsPerCycle, 5)
	b := n.open(t, first)

	n.vote(t, first, ChoiceAccept, validators[:5]...)
	n.vote(t, second, ChoiceAccept, validators[:5]...)

	// the set grows to 9 before finalization
	n.join(t, fuse.BytesToAddress([]byte("late joiner")))
	n.block = b.EndBlock + 1

	env := n.env(validators[0])
	state, err := n.voting.Finalize(env, first)
	require.NoError(t, err)
	assert.Equal(t, QuorumAccepted, state)
	last := env.Events()[len(env.Events())-1].Data.(*BallotFinalizedEvent)
	assert.Equal(t, uint64(9), last.Base)

	// and to 10, where 5 accepts are no longer a strict majority
	n.join(t, fuse.BytesToAddress([]byte("later joiner")))
	state, err = n.voting.Finalize(n.env(validators[0]), second)
	require.NoError(t, err)
	assert.Equal(t, QuorumRejected, state)
}

func TestQuorumPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy   QuorumPolicy
		expected QuorumState
	}{
		{PolicySeats, QuorumRejected},
		{PolicyAddresses, QuorumAccepted},
	} {
		t.Run(tc.policy.String(), func(t *testing.T) {
			n := newNetwork(t, tc.policy)
			bob := fuse.BytesToAddress([]byte("bob"))
			amount := new(big.Int).Mul(minStake, big.NewInt(3))
			// bob holds three seats, the genesis validator one
			require.NoError(t, n.st.SetBalance(genesisV, minStake))
			require.NoError(t, n.consensus.Stake(xenv.New(n.st, &xenv.BlockContext{Number: n.block}, genesisV, minStake)))
			require.NoError(t, n.st.SetBalance(bob, amount))
			require.NoError(t, n.consensus.Stake(xenv.New(n.st, &xenv.BlockContext{Number: n.block}, bob, amount)))
			require.NoError(t, n.consensus.FinalizeChange(n.env(fuse.SystemAddress)))

			id := n.newParamBallot(t, genesisV, SubjectCycleDuration, 200)
			b := n.open(t, id)
			n.vote(t, id, ChoiceAccept, genesisV)
			n.vote(t, id, ChoiceReject, bob)
			n.block = b.EndBlock + 1

			// one accept is a majority of neither four seats nor two addresses
			state, err := n.voting.Finalize(n.env(genesisV), id)
			require.NoError(t, err)
			assert.Equal(t, QuorumRejected, state)

			// two accepts are half of four seats but all of two addresses
			id = n.newParamBallot(t, genesisV, SubjectCycleDuration, 300)
			n.open(t, id)
			n.vote(t, id, ChoiceAccept, genesisV, bob)
			state, err = n.voting.Finalize(n.env(genesisV), id)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, state)
		})
	}
}

func TestAcceptedUpgrade(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	validators := n.validators(t, 3)
	require.NoError(t, n.consensus.SetMinStake(n.env(owner), new(big.Int).Mul(minStake, big.NewInt(2))))

	id, err := n.voting.NewBallot(n.env(validators[0]), &NewBallotArgs{
		StartAfterCycles: 1,
		DurationCycles:   2,
		Subject:          SubjectConsensus,
		Value:            fuse.BytesToBytes32(consensusTestV2.Bytes()),
		Description:      "upgrade consensus",
	})
	require.NoError(t, err)
	n.open(t, id)
	n.vote(t, id, ChoiceAccept, validators...)

	env := n.env(validators[2])
	state, err := n.voting.Finalize(env, id)
	require.NoError(t, err)
	assert.Equal(t, QuorumAccepted, state)

	names := make([]string, 0, len(env.Events()))
	for _, ev := range env.Events() {
		names = append(names, ev.Name)
	}
	assert.Equal(t, []string{"Upgraded", "AddressSet", "BallotFinalized"}, names)

	p := proxy.New(n.st, consensusAddr)
	impl, err := p.Implementation()
	require.NoError(t, err)
	assert.Equal(t, consensusTestV2, impl)
	version, err := p.Version()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	upgraded, err := consensus.Bind(n.st, consensusAddr)
	require.NoError(t, err)
	got, err := upgraded.MinStake()
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Mul(minStake, big.NewInt(2)), got)
	active, err := upgraded.Validators()
	require.NoError(t, err)
	assert.Equal(t, validators, active)
}

func TestAcceptedMinBallotDuration(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	id := n.newParamBallot(t, genesisV, SubjectMinBallotDuration, 5)
	n.open(t, id)
	n.vote(t, id, ChoiceAccept, genesisV)

	state, err := n.voting.Finalize(n.env(genesisV), id)
	require.NoError(t, err)
	assert.Equal(t, QuorumAccepted, state)
	got, err := n.voting.MinBallotDuration()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), got)

	err = n.voting.SetMinBallotDuration(n.env(outsider), 3)
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
}

func TestGovernanceSetsConsensusParameters(t *testing.T) {
	n := newNetwork(t, PolicySeats)
	require.NoError(t, n.consensus.SetMinStake(n.env(votingAddr), big.NewInt(1)))
	err := n.consensus.SetMinStake(n.env(outsider), big.NewInt(1))
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
}
