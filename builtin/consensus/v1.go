// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/authz"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

func slot(name string) fuse.Bytes32 {
	return solidity.NameToSlot("consensus." + name)
}

// v1 keeps every value under the proxy namespace, later implementations
// must read the same slots.
type v1 struct {
	ctx *solidity.Context

	initialized  *solidity.Bool
	owner        *solidity.Address
	proxyStorage *solidity.Address

	minStake          *solidity.Uint256
	cycleDuration     *solidity.Uint64
	snapshotsPerCycle *solidity.Uint64
	timeToSnapshot    *solidity.Uint64

	cycleStart       *solidity.Uint64
	cycleEnd         *solidity.Uint64
	changeEmittedFor *solidity.Uint64
	finalized        *solidity.Bool
	lastSnapshotAt   *solidity.Uint64
	nextSnapshotID   *solidity.Uint64
	snapshots        *solidity.Mapping[solidity.Uint64Key, []fuse.Address]

	totalStake *solidity.Uint256
	stakes     *solidity.Mapping[fuse.Address, *big.Int]
	states     *solidity.Mapping[fuse.Address, *ValidatorState]
	validators *solidity.AddressArray
	pending    *solidity.AddressArray
}

func newV1(ctx *solidity.Context) *v1 {
	return &v1{
		ctx:               ctx,
		initialized:       solidity.NewBool(ctx, slot("initialized")),
		owner:             solidity.NewAddress(ctx, slot("owner")),
		proxyStorage:      solidity.NewAddress(ctx, slot("proxyStorage")),
		minStake:          solidity.NewUint256(ctx, slot("minStake")),
		cycleDuration:     solidity.NewUint64(ctx, slot("cycleDuration")),
		snapshotsPerCycle: solidity.NewUint64(ctx, slot("snapshotsPerCycle")),
		timeToSnapshot:    solidity.NewUint64(ctx, slot("timeToSnapshot")),
		cycleStart:        solidity.NewUint64(ctx, slot("currentCycleStartBlock")),
		cycleEnd:          solidity.NewUint64(ctx, slot("currentCycleEndBlock")),
		changeEmittedFor:  solidity.NewUint64(ctx, slot("changeEmittedFor")),
		finalized:         solidity.NewBool(ctx, slot("finalized")),
		lastSnapshotAt:    solidity.NewUint64(ctx, slot("lastSnapshotTakenAtBlock")),
		nextSnapshotID:    solidity.NewUint64(ctx, slot("nextSnapshotId")),
		snapshots:         solidity.NewMapping[solidity.Uint64Key, []fuse.Address](ctx, slot("snapshots")),
		totalStake:        solidity.NewUint256(ctx, slot("totalStake")),
		stakes:            solidity.NewMapping[fuse.Address, *big.Int](ctx, slot("stakes")),
		states:            solidity.NewMapping[fuse.Address, *ValidatorState](ctx, slot("validatorState")),
		validators:        solidity.NewAddressArray(ctx, slot("validators")),
		pending:           solidity.NewAddressArray(ctx, slot("pendingValidators")),
	}
}

func (c *v1) Address() fuse.Address {
	return c.ctx.Address()
}

func (c *v1) SystemAddress() fuse.Address {
	return fuse.SystemAddress
}

func (c *v1) IsInitialized() (bool, error) {
	return c.initialized.Get()
}

func (c *v1) Owner() (fuse.Address, error) {
	return c.owner.Get()
}

func (c *v1) ProxyStorage() (fuse.Address, error) {
	return c.proxyStorage.Get()
}

// governance resolves the voting component through the registry, zero until wired.
func (c *v1) governance() (fuse.Address, error) {
	ps, err := c.proxyStorage.Get()
	if err != nil || ps.IsZero() {
		return fuse.Address{}, err
	}
	reg, err := registry.Bind(c.ctx.State(), ps)
	if err != nil {
		return fuse.Address{}, err
	}
	return reg.ContractAddress(registry.RoleVoting)
}

// Initialize seeds the active set with initialValidator, the caller when zero, and leaves the pending list empty.
func (c *v1) Initialize(
	env *xenv.Environment,
	minStake *big.Int,
	cycleDuration, snapshotsPerCycle uint64,
	initialValidator fuse.Address,
) error {
	initialized, err := c.initialized.Get()
	if err != nil {
		return err
	}
	if initialized {
		return reverts.Conflict("consensus: already initialized")
	}
	if minStake == nil || minStake.Sign() <= 0 {
		return reverts.Invalid("consensus: min stake must be positive")
	}
	if err := validateCycle(cycleDuration, snapshotsPerCycle); err != nil {
		return err
	}

	block := env.BlockContext().Number
	caller := env.Caller()
	if initialValidator.IsZero() {
		initialValidator = caller
	}
	c.initialized.Set(true)
	c.owner.Set(&caller)
	c.minStake.Set(minStake)
	c.cycleDuration.Set(cycleDuration)
	c.snapshotsPerCycle.Set(snapshotsPerCycle)
	c.timeToSnapshot.Set(TimeToSnapshot(cycleDuration, snapshotsPerCycle))
	c.cycleStart.Set(block)
	c.cycleEnd.Set(block + cycleDuration)
	c.lastSnapshotAt.Set(block)
	c.finalized.Set(false)

	// the initial validator only seeds the active set, pending seats come from stake alone
	if err := c.validators.Push(initialValidator); err != nil {
		return err
	}
	logger.Info("consensus initialized",
		"address", c.ctx.Address(),
		"owner", caller,
		"minStake", minStake,
		"cycleDuration", cycleDuration,
		"snapshotsPerCycle", snapshotsPerCycle,
		"validator", initialValidator,
	)
	return nil
}

func (c *v1) requireOwnerOrGovernance(env *xenv.Environment, op string) error {
	return authz.Require(env.Caller(), op, authz.Owner(c.Owner), authz.Governance(c.governance))
}

func (c *v1) SetMinStake(env *xenv.Environment, minStake *big.Int) error {
	if err := c.requireOwnerOrGovernance(env, "setMinStake"); err != nil {
		return err
	}
	if minStake == nil || minStake.Sign() <= 0 {
		return reverts.Invalid("consensus: min stake must be positive")
	}
	c.minStake.Set(minStake)
	logger.Info("min stake set", "minStake", minStake)
	return nil
}

func (c *v1) SetCycleDuration(env *xenv.Environment, cycleDuration uint64) error {
	if err := c.requireOwnerOrGovernance(env, "setCycleDuration"); err != nil {
		return err
	}
	snapshots, err := c.snapshotsPerCycle.Get()
	if err != nil {
		return err
	}
	if err := validateCycle(cycleDuration, snapshots); err != nil {
		return err
	}
	c.cycleDuration.Set(cycleDuration)
	c.timeToSnapshot.Set(TimeToSnapshot(cycleDuration, snapshots))
	logger.Info("cycle duration set", "cycleDuration", cycleDuration)
	return nil
}

func (c *v1) SetSnapshotsPerCycle(env *xenv.Environment, snapshotsPerCycle uint64) error {
	if err := c.requireOwnerOrGovernance(env, "setSnapshotsPerCycle"); err != nil {
		return err
	}
	duration, err := c.cycleDuration.Get()
	if err != nil {
		return err
	}
	if err := validateCycle(duration, snapshotsPerCycle); err != nil {
		return err
	}
	c.snapshotsPerCycle.Set(snapshotsPerCycle)
	c.timeToSnapshot.Set(TimeToSnapshot(duration, snapshotsPerCycle))
	logger.Info("snapshots per cycle set", "snapshotsPerCycle", snapshotsPerCycle)
	return nil
}

func (c *v1) SetProxyStorage(env *xenv.Environment, addr fuse.Address) error {
	if err := authz.Require(env.Caller(), "setProxyStorage", authz.Owner(c.Owner)); err != nil {
		return err
	}
	current, err := c.proxyStorage.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.Conflict("consensus: proxy storage already set")
	}
	if addr.IsZero() {
		return reverts.Invalid("consensus: zero proxy storage")
	}
	c.proxyStorage.Set(&addr)
	logger.Info("proxy storage set", "registry", addr)
	return nil
}

// Stake deposits the value carried by the call and awards a seat per whole minStake.
func (c *v1) Stake(env *xenv.Environment) error {
	amount := env.Value()
	if amount.Sign() <= 0 {
		return reverts.Invalid("consensus: zero stake")
	}
	staker := env.Caller()
	if err := env.State().Transfer(staker, c.ctx.Address(), amount); err != nil {
		if errors.Is(err, state.ErrInsufficientBalance) {
			return reverts.Invalid("consensus: insufficient balance to stake %v", amount)
		}
		return err
	}

	minStake, err := c.minStake.Get()
	if err != nil {
		return err
	}
	old, err := c.StakeAmount(staker)
	if err != nil {
		return err
	}
	total := new(big.Int).Add(old, amount)
	if err := c.stakes.Set(staker, total); err != nil {
		return err
	}
	if err := c.totalStake.Add(amount); err != nil {
		return err
	}

	added := seatCount(total, minStake) - seatCount(old, minStake)
	if added > 0 {
		if err := c.addSeats(staker, added); err != nil {
			return err
		}
	}
	seats, err := c.pendingSeats(staker)
	if err != nil {
		return err
	}
	env.Emit(c.ctx.Address(), "Staked", &StakeEvent{Staker: staker, Amount: amount, Total: total, Seats: seats})
	logger.Info("staked", "staker", staker, "amount", amount, "total", total, "newSeats", added)
	return nil
}

// Withdraw returns stake to the caller, dropping its most recently added seats first.
func (c *v1) Withdraw(env *xenv.Environment, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.Invalid("consensus: zero withdrawal")
	}
	staker := env.Caller()
	old, err := c.StakeAmount(staker)
	if err != nil {
		return err
	}
	if amount.Cmp(old) > 0 {
		return reverts.Invalid("consensus: withdrawal %v exceeds stake %v", amount, old)
	}
	minStake, err := c.minStake.Get()
	if err != nil {
		return err
	}

	total := new(big.Int).Sub(old, amount)
	if err := c.stakes.Set(staker, total); err != nil {
		return err
	}
	if err := c.totalStake.Sub(amount); err != nil {
		return err
	}
	removed := seatCount(old, minStake) - seatCount(total, minStake)
	if removed > 0 {
		if err := c.removeSeats(staker, removed); err != nil {
			return err
		}
	}
	if err := env.State().Transfer(c.ctx.Address(), staker, amount); err != nil {
		return errors.Wrap(err, "return stake")
	}
	seats, err := c.pendingSeats(staker)
	if err != nil {
		return err
	}
	env.Emit(c.ctx.Address(), "Withdrawn", &StakeEvent{Staker: staker, Amount: amount, Total: total, Seats: seats})
	logger.Info("withdrawn", "staker", staker, "amount", amount, "total", total, "removedSeats", removed)
	return nil
}

// FinalizeChange makes the pending list the active set. An empty pending list keeps the active set.
func (c *v1) FinalizeChange(env *xenv.Environment) error {
	if err := authz.Require(env.Caller(), "finalizeChange", authz.System()); err != nil {
		return err
	}
	pending, err := c.pending.All()
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		if err := c.validators.Replace(pending); err != nil {
			return err
		}
	}
	c.finalized.Set(true)
	if err := c.rollCycle(env.BlockContext().Number); err != nil {
		return err
	}

	active, err := c.validators.All()
	if err != nil {
		return err
	}
	env.Emit(c.ctx.Address(), "ChangeFinalized", &ChangeFinalizedEvent{Validators: active})
	logger.Info("change finalized", "block", env.BlockContext().Number, "seats", len(active))
	return nil
}

// EmitInitiateChange announces the pending list once per ended cycle. Any active validator may call it.
func (c *v1) EmitInitiateChange(env *xenv.Environment) error {
	if err := authz.Require(env.Caller(), "emitInitiateChange", authz.Validator(c.IsValidator)); err != nil {
		return err
	}
	block := env.BlockContext().Number
	due, err := c.ShouldEmitInitiateChange(block)
	if err != nil {
		return err
	}
	if !due {
		return reverts.Conflict("consensus: no change due at block %d", block)
	}
	end, err := c.cycleEnd.Get()
	if err != nil {
		return err
	}
	pending, err := c.pending.All()
	if err != nil {
		return err
	}
	c.changeEmittedFor.Set(end)
	c.finalized.Set(false)
	env.Emit(c.ctx.Address(), "InitiateChange", &InitiateChangeEvent{CycleEndBlock: end, Validators: pending})
	logger.Info("initiate change emitted", "by", env.Caller(), "cycleEnd", end, "seats", len(pending))
	return nil
}

// TakeSnapshot records the pending list in the next snapshot ring slot.
func (c *v1) TakeSnapshot(env *xenv.Environment) error {
	if err := authz.Require(env.Caller(), "takeSnapshot", authz.System()); err != nil {
		return err
	}
	block := env.BlockContext().Number
	due, err := c.ShouldTakeSnapshot(block)
	if err != nil {
		return err
	}
	if !due {
		return reverts.Conflict("consensus: snapshot not due at block %d", block)
	}
	perCycle, err := c.snapshotsPerCycle.Get()
	if err != nil {
		return err
	}
	pending, err := c.pending.All()
	if err != nil {
		return err
	}
	next, err := c.nextSnapshotID.Get()
	if err != nil {
		return err
	}
	id := next % perCycle
	if err := c.snapshots.Set(solidity.Uint64Key(id), pending); err != nil {
		return err
	}
	c.nextSnapshotID.Set(next + 1)
	c.lastSnapshotAt.Set(block)
	logger.Debug("snapshot taken", "id", id, "block", block, "seats", len(pending))
	return nil
}

func (c *v1) Validators() ([]fuse.Address, error) {
	return c.validators.All()
}

func (c *v1) PendingValidators() ([]fuse.Address, error) {
	return c.pending.All()
}

// IsValidator reports membership of the active set.
func (c *v1) IsValidator(addr fuse.Address) (bool, error) {
	seats, err := c.Seats(addr)
	return seats > 0, err
}

// Seats counts the active seats held by addr.
func (c *v1) Seats(addr fuse.Address) (uint64, error) {
	active, err := c.validators.All()
	if err != nil {
		return 0, err
	}
	var n uint64
	for _, v := range active {
		if v == addr {
			n++
		}
	}
	return n, nil
}

func (c *v1) ValidatorState(addr fuse.Address) (*ValidatorState, error) {
	return c.states.Get(addr)
}

func (c *v1) StakeAmount(addr fuse.Address) (*big.Int, error) {
	return c.stakes.Get(addr)
}

func (c *v1) TotalStake() (*big.Int, error) {
	return c.totalStake.Get()
}

func (c *v1) MinStake() (*big.Int, error) {
	return c.minStake.Get()
}

func (c *v1) CycleDuration() (uint64, error) {
	return c.cycleDuration.Get()
}

func (c *v1) SnapshotsPerCycle() (uint64, error) {
	return c.snapshotsPerCycle.Get()
}

func (c *v1) IsFinalized() (bool, error) {
	return c.finalized.Get()
}
