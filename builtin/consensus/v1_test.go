// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
)

var (
	alice   = fuse.BytesToAddress([]byte("alice"))
	bob     = fuse.BytesToAddress([]byte("bob"))
	charlie = fuse.BytesToAddress([]byte("charlie"))
)

func TestInitialize(t *testing.T) {
	h := newHarness(t)
	c := h.contract

	validators, err := c.Validators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{genesisV}, validators)
	pending, err := c.PendingValidators()
	require.NoError(t, err)
	assert.Empty(t, pending)
	AssertValidator(c, genesisV).PendingSeats(0).ActiveSeats(1).Stake(new(big.Int)).Assert(t)

	end, err := c.CurrentCycleEndBlock()
	require.NoError(t, err)
	assert.Equal(t, uint64(1+cycleDuration), end)
	tts, err := c.TimeToSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(cycleDuration/snapshotsPerCycle), tts)
	finalized, err := c.IsFinalized()
	require.NoError(t, err)
	assert.False(t, finalized)
	got, err := c.Owner()
	require.NoError(t, err)
	assert.Equal(t, owner, got)

	err = c.Initialize(h.env(owner, nil), minStake, cycleDuration, snapshotsPerCycle, genesisV)
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))
}

func TestInitializeDefaultsValidatorToCaller(t *testing.T) {
	h := newHarness(t)
	fresh := NewV1(solidity.NewContext(fuse.BytesToAddress([]byte("fresh")), h.st))
	require.NoError(t, fresh.Initialize(h.env(owner, nil), minStake, cycleDuration, snapshotsPerCycle, fuse.Address{}))

	validators, err := fresh.Validators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{owner}, validators)
	pending, err := fresh.PendingValidators()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// Seats come from stake only: minStake, twice minStake and half of it give three pending seats.
func TestPendingSeatsFromStakeOnly(t *testing.T) {
	h := newHarness(t)
	half := new(big.Int).Div(minStake, big.NewInt(2))
	NewSequence(h).
		Stake(alice, stakes(1)).
		Stake(bob, stakes(2)).
		Stake(charlie, half).
		Run(t)

	pending, err := h.contract.PendingValidators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{alice, bob, bob}, pending)
	AssertValidator(h.contract, alice).Indices(0).Stake(stakes(1)).Assert(t)
	AssertValidator(h.contract, bob).Indices(1, 2).Stake(stakes(2)).Assert(t)
	AssertValidator(h.contract, charlie).PendingSeats(0).Stake(half).Assert(t)

	NewSequence(h).Finalize().Run(t)
	validators, err := h.contract.Validators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{alice, bob, bob}, validators)
	AssertValidator(h.contract, genesisV).ActiveSeats(0).Assert(t)
}

func TestInitializeRejectsBadParams(t *testing.T) {
	cases := []struct {
		name     string
		minStake *big.Int
		duration uint64
		perCycle uint64
	}{
		{"zero min stake", new(big.Int), 100, 10},
		{"zero cycle", minStake, 0, 10},
		{"zero snapshots", minStake, 100, 0},
		{"snapshots exceed cycle", minStake, 5, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			fresh := newV1(solidity.NewContext(fuse.BytesToAddress([]byte("fresh")), h.st))
			err := fresh.Initialize(h.env(owner, nil), tc.minStake, tc.duration, tc.perCycle, genesisV)
			assert.True(t, reverts.IsKind(err, reverts.KindInvariant), "got %v", err)
		})
	}
}

func TestSeatsFollowStake(t *testing.T) {
	h := newHarness(t)
	half := new(big.Int).Div(minStake, big.NewInt(2))

	steps := []struct {
		stake    bool
		amount   *big.Int
		expected int
	}{
		{true, half, 0},
		{true, half, 1},
		{true, stakes(2), 3},
		{false, half, 2},
		{true, stakes(1), 3},
		{false, stakes(3), 0},
		{true, new(big.Int).Add(stakes(4), half), 5},
		{false, new(big.Int).Add(stakes(4), half), 0},
	}
	for i, step := range steps {
		if step.stake {
			h.fund(t, alice, step.amount)
			require.NoError(t, h.contract.Stake(h.env(alice, step.amount)), "step %d", i)
		} else {
			require.NoError(t, h.contract.Withdraw(h.env(alice, nil), step.amount), "step %d", i)
		}
		AssertValidator(h.contract, alice).PendingSeats(step.expected).Assert(t)
	}
}

func TestWithdrawRemovesLatestSeats(t *testing.T) {
	h := newHarness(t)

	NewSequence(h).
		Stake(alice, stakes(1)).
		Stake(bob, stakes(1)).
		Stake(alice, stakes(2)).
		Run(t)

	pending, err := h.contract.PendingValidators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{alice, bob, alice, alice}, pending)
	AssertValidator(h.contract, alice).Indices(0, 2, 3).Assert(t)

	NewSequence(h).Withdraw(alice, stakes(1)).Run(t)

	pending, err = h.contract.PendingValidators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{alice, bob, alice}, pending)
	AssertValidator(h.contract, alice).Indices(0, 2).Stake(stakes(2)).Assert(t)
	AssertValidator(h.contract, bob).Indices(1).Assert(t)

	NewSequence(h).Withdraw(alice, stakes(2)).Run(t)

	pending, err = h.contract.PendingValidators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{bob}, pending)
	AssertValidator(h.contract, alice).PendingSeats(0).Stake(new(big.Int)).Assert(t)
	AssertValidator(h.contract, bob).Indices(0).Assert(t)
}

func TestStakeBalances(t *testing.T) {
	h := newHarness(t)
	h.fund(t, alice, stakes(3))

	require.NoError(t, h.contract.Stake(h.env(alice, stakes(2))))
	bal, err := h.st.GetBalance(proxyAddr)
	require.NoError(t, err)
	assert.Equal(t, stakes(2), bal)
	total, err := h.contract.TotalStake()
	require.NoError(t, err)
	assert.Equal(t, stakes(2), total)

	require.NoError(t, h.contract.Withdraw(h.env(alice, nil), stakes(1)))
	bal, err = h.st.GetBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, stakes(2), bal)
	bal, err = h.st.GetBalance(proxyAddr)
	require.NoError(t, err)
	total, err = h.contract.TotalStake()
	require.NoError(t, err)
	assert.Equal(t, bal, total)
}

func TestStakeRejections(t *testing.T) {
	h := newHarness(t)

	err := h.contract.Stake(h.env(alice, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))

	err = h.contract.Stake(h.env(alice, stakes(1)))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant), "unfunded stake")

	err = h.contract.Withdraw(h.env(alice, nil), new(big.Int))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))

	h.fund(t, alice, stakes(1))
	require.NoError(t, h.contract.Stake(h.env(alice, stakes(1))))
	err = h.contract.Withdraw(h.env(alice, nil), stakes(2))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))
	AssertValidator(h.contract, alice).PendingSeats(1).Stake(stakes(1)).Assert(t)
}

func TestFinalizeChange(t *testing.T) {
	h := newHarness(t)
	NewSequence(h).
		Stake(alice, stakes(1)).
		Stake(bob, stakes(2)).
		Run(t)

	err := h.contract.FinalizeChange(h.env(alice, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))

	expected := []fuse.Address{alice, bob, bob}
	for i := 0; i < 2; i++ {
		env := h.env(fuse.SystemAddress, nil)
		require.NoError(t, h.contract.FinalizeChange(env))
		validators, err := h.contract.Validators()
		require.NoError(t, err)
		assert.Equal(t, expected, validators)
		finalized, err := h.contract.IsFinalized()
		require.NoError(t, err)
		assert.True(t, finalized)

		require.Len(t, env.Events(), 1)
		assert.Equal(t, &ChangeFinalizedEvent{Validators: expected}, env.Events()[0].Data)
	}
	AssertValidator(h.contract, bob).ActiveSeats(2).Assert(t)
	AssertValidator(h.contract, charlie).ActiveSeats(0).Assert(t)
}

func TestFinalizeEmptyPendingKeepsActive(t *testing.T) {
	h := newHarness(t)
	impl := h.contract.(*v1)
	n, err := impl.pending.Len()
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, h.contract.FinalizeChange(h.env(fuse.SystemAddress, nil)))
	validators, err := h.contract.Validators()
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{genesisV}, validators)
	finalized, err := h.contract.IsFinalized()
	require.NoError(t, err)
	assert.True(t, finalized)
}

func TestCycleAndInitiateChange(t *testing.T) {
	h := newHarness(t)
	c := h.contract
	end := uint64(1 + cycleDuration)

	ended, err := c.IsCycleEnded(end - 1)
	require.NoError(t, err)
	assert.False(t, ended)
	due, err := c.ShouldEmitInitiateChange(end - 1)
	require.NoError(t, err)
	assert.False(t, due)

	h.block = end - 1
	err = c.EmitInitiateChange(h.env(genesisV, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))

	h.block = end
	err = c.EmitInitiateChange(h.env(alice, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))

	count, err := c.EmitInitiateChangeCount(genesisV, end)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
	count, err = c.EmitInitiateChangeCount(genesisV, end-1)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	env := h.env(genesisV, nil)
	require.NoError(t, c.EmitInitiateChange(env))
	require.Len(t, env.Events(), 1)
	assert.Equal(t, "InitiateChange", env.Events()[0].Name)

	due, err = c.ShouldEmitInitiateChange(end)
	require.NoError(t, err)
	assert.False(t, due)
	finalized, err := c.IsFinalized()
	require.NoError(t, err)
	assert.False(t, finalized)

	h.block = end + 3
	require.NoError(t, c.FinalizeChange(h.env(fuse.SystemAddress, nil)))
	start, err := c.CurrentCycleStartBlock()
	require.NoError(t, err)
	assert.Equal(t, end+3, start)
	newEnd, err := c.CurrentCycleEndBlock()
	require.NoError(t, err)
	assert.Equal(t, end+3+cycleDuration, newEnd)
	ended, err = c.IsCycleEnded(end + 3)
	require.NoError(t, err)
	assert.False(t, ended)
}

func TestSnapshots(t *testing.T) {
	h := newHarness(t)
	c := h.contract
	NewSequence(h).Stake(alice, stakes(1)).Run(t)

	due, err := c.ShouldTakeSnapshot(10)
	require.NoError(t, err)
	assert.False(t, due)
	due, err = c.ShouldTakeSnapshot(11)
	require.NoError(t, err)
	assert.True(t, due)

	h.block = 11
	err = c.TakeSnapshot(h.env(alice, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
	require.NoError(t, c.TakeSnapshot(h.env(fuse.SystemAddress, nil)))
	err = c.TakeSnapshot(h.env(fuse.SystemAddress, nil))
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))

	snapshot, err := c.SnapshotValidators(0)
	require.NoError(t, err)
	assert.Equal(t, []fuse.Address{alice}, snapshot)
	next, err := c.NextSnapshotID()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), next)

	// the ring wraps after snapshotsPerCycle snapshots
	for i := uint64(1); i < snapshotsPerCycle; i++ {
		h.block += 10
		require.NoError(t, c.TakeSnapshot(h.env(fuse.SystemAddress, nil)))
	}
	NewSequence(h).Withdraw(alice, stakes(1)).Run(t)
	h.block += 10
	require.NoError(t, c.TakeSnapshot(h.env(fuse.SystemAddress, nil)))
	snapshot, err = c.SnapshotValidators(0)
	require.NoError(t, err)
	assert.Empty(t, snapshot)
}

func TestSetters(t *testing.T) {
	h := newHarness(t)
	c := h.contract

	err := c.SetMinStake(h.env(alice, nil), stakes(2))
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
	err = c.SetMinStake(h.env(owner, nil), new(big.Int))
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))

	err = c.SetCycleDuration(h.env(owner, nil), snapshotsPerCycle-1)
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))
	require.NoError(t, c.SetCycleDuration(h.env(owner, nil), 200))
	tts, err := c.TimeToSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(20), tts)

	require.NoError(t, c.SetSnapshotsPerCycle(h.env(owner, nil), 4))
	tts, err = c.TimeToSnapshot()
	require.NoError(t, err)
	assert.Equal(t, uint64(50), tts)
	err = c.SetSnapshotsPerCycle(h.env(owner, nil), 0)
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))

	// a higher minimum applies to later stake math only
	NewSequence(h).Stake(alice, stakes(2)).Run(t)
	require.NoError(t, c.SetMinStake(h.env(owner, nil), stakes(2)))
	AssertValidator(c, alice).PendingSeats(2).Assert(t)
	NewSequence(h).Stake(alice, stakes(2)).Run(t)
	AssertValidator(c, alice).PendingSeats(3).Assert(t)

	err = c.SetProxyStorage(h.env(alice, nil), fuse.Address{1})
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
	err = c.SetProxyStorage(h.env(owner, nil), fuse.Address{})
	assert.True(t, reverts.IsKind(err, reverts.KindInvariant))
	require.NoError(t, c.SetProxyStorage(h.env(owner, nil), fuse.Address{1}))
	err = c.SetProxyStorage(h.env(owner, nil), fuse.Address{2})
	assert.True(t, reverts.IsKind(err, reverts.KindConflict))
}

type v2 struct {
	*v1
}

var testV2 = proxy.ImplementationID("consensus.test.v2")

func init() {
	Catalog.Register(testV2, func(ctx *solidity.Context) Contract { return &v2{newV1(ctx)} })
}

func TestUpgradePreservesState(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.contract.SetMinStake(h.env(owner, nil), stakes(3)))
	NewSequence(h).Stake(alice, stakes(3)).Run(t)

	p := proxy.New(h.st, proxyAddr)
	_, err := p.UpgradeTo(h.env(alice, nil), testV2)
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))

	ok, err := p.UpgradeTo(h.env(owner, nil), testV2)
	require.NoError(t, err)
	assert.True(t, ok)
	version, err := p.Version()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	upgraded, err := Bind(h.st, proxyAddr)
	require.NoError(t, err)
	_, isV2 := upgraded.(*v2)
	assert.True(t, isV2)

	got, err := upgraded.MinStake()
	require.NoError(t, err)
	assert.Equal(t, stakes(3), got)
	AssertValidator(upgraded, alice).Stake(stakes(3)).PendingSeats(1).Assert(t)
}
