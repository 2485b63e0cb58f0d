// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package consensus manages the stake weighted validator set and the cycle scheduler
// deciding when the set rotates.
package consensus

import (
	"math/big"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var logger = log.New("pkg", "consensus")

// ValidatorState locates the seats of an owner in the pending list.
type ValidatorState struct {
	IsValidator bool     `json:"isValidator"`
	Indices     []uint64 `json:"indices"`
}

// ChangeFinalizedEvent carries the active set after finalization.
type ChangeFinalizedEvent struct {
	Validators []fuse.Address `json:"validators"`
}

// InitiateChangeEvent asks the block producing engine to switch to the pending set.
type InitiateChangeEvent struct {
	CycleEndBlock uint64         `json:"cycleEndBlock"`
	Validators    []fuse.Address `json:"validators"`
}

// StakeEvent is emitted on deposits and withdrawals.
type StakeEvent struct {
	Staker fuse.Address `json:"staker"`
	Amount *big.Int     `json:"amount"`
	Total  *big.Int     `json:"total"`
	Seats  uint64       `json:"seats"`
}

// Contract is the behaviour set of the validator set manager and its cycle scheduler.
type Contract interface {
	Address() fuse.Address

	Initialize(env *xenv.Environment, minStake *big.Int, cycleDuration, snapshotsPerCycle uint64, initialValidator fuse.Address) error
	SetMinStake(env *xenv.Environment, minStake *big.Int) error
	SetCycleDuration(env *xenv.Environment, cycleDuration uint64) error
	SetSnapshotsPerCycle(env *xenv.Environment, snapshotsPerCycle uint64) error
	SetProxyStorage(env *xenv.Environment, registry fuse.Address) error
	Stake(env *xenv.Environment) error
	Withdraw(env *xenv.Environment, amount *big.Int) error
	FinalizeChange(env *xenv.Environment) error
	EmitInitiateChange(env *xenv.Environment) error
	TakeSnapshot(env *xenv.Environment) error

	IsInitialized() (bool, error)
	Owner() (fuse.Address, error)
	ProxyStorage() (fuse.Address, error)
	SystemAddress() fuse.Address
	Validators() ([]fuse.Address, error)
	PendingValidators() ([]fuse.Address, error)
	IsValidator(addr fuse.Address) (bool, error)
	Seats(addr fuse.Address) (uint64, error)
	ValidatorState(addr fuse.Address) (*ValidatorState, error)
	StakeAmount(addr fuse.Address) (*big.Int, error)
	TotalStake() (*big.Int, error)
	MinStake() (*big.Int, error)
	CycleDuration() (uint64, error)
	SnapshotsPerCycle() (uint64, error)
	IsFinalized() (bool, error)

	CurrentCycleStartBlock() (uint64, error)
	CurrentCycleEndBlock() (uint64, error)
	IsCycleEnded(block uint64) (bool, error)
	ShouldEmitInitiateChange(block uint64) (bool, error)
	EmitInitiateChangeCount(addr fuse.Address, block uint64) (uint64, error)
	TimeToSnapshot() (uint64, error)
	ShouldTakeSnapshot(block uint64) (bool, error)
	LastSnapshotTakenAtBlock() (uint64, error)
	NextSnapshotID() (uint64, error)
	SnapshotValidators(id uint64) ([]fuse.Address, error)
}

// V1 is the first validator set manager implementation.
var V1 = proxy.ImplementationID("consensus.v1")

// Catalog holds all validator set manager implementations.
var Catalog = proxy.NewCatalog[Contract](proxy.KindConsensus)

func init() {
	Catalog.Register(V1, NewV1)
}

// NewV1 builds the first implementation over ctx. Later implementations may wrap it.
func NewV1(ctx *solidity.Context) Contract {
	return newV1(ctx)
}

// Bind resolves the validator set manager behind the proxy at addr.
func Bind(st *state.State, addr fuse.Address) (Contract, error) {
	return Catalog.Resolve(proxy.New(st, addr))
}
