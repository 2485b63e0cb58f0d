// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package voting is the ballot based governance of the active validator set.
// Accepted ballots change consensus parameters or swap the implementation
// behind a registry role.
package voting

import (
	"github.com/ethereum/go-ethereum/log"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var logger = log.New("pkg", "voting")

// NewBallotArgs are the arguments of NewBallot.
type NewBallotArgs struct {
	StartAfterCycles uint64       `json:"startAfterCycles"`
	DurationCycles   uint64       `json:"durationCycles"`
	Subject          Subject      `json:"subject"`
	Value            fuse.Bytes32 `json:"value"`
	Description      string       `json:"description"`
}

// Contract is the behaviour set of the governance engine.
type Contract interface {
	Address() fuse.Address

	Initialize(env *xenv.Environment, minBallotDurationCycles uint64, policy QuorumPolicy) error
	SetProxyStorage(env *xenv.Environment, registry fuse.Address) error
	SetMinBallotDuration(env *xenv.Environment, cycles uint64) error
	NewBallot(env *xenv.Environment, args *NewBallotArgs) (uint64, error)
	Vote(env *xenv.Environment, id uint64, choice Choice) error
	Finalize(env *xenv.Environment, id uint64) (QuorumState, error)

	IsInitialized() (bool, error)
	Owner() (fuse.Address, error)
	ProxyStorage() (fuse.Address, error)
	MinBallotDuration() (uint64, error)
	MaxBallotDuration() uint64
	QuorumPolicy() (QuorumPolicy, error)
	Ballot(id uint64) (*Ballot, error)
	BallotInfo(id uint64, voter fuse.Address, block uint64) (*BallotInfo, error)
	CanBeFinalizedNow(id uint64, block uint64) (bool, error)
	IsValidVotingKey(addr fuse.Address) (bool, error)
	QuorumState(id uint64) (QuorumState, error)
	TotalVoters(id uint64) (uint64, error)
	VoterChoice(id uint64, voter fuse.Address) (Choice, error)
	Voters(id uint64) ([]fuse.Address, error)
	ActiveBallots() (uint64, error)
	ActiveBallotIDs() ([]uint64, error)
	ValidatorActiveBallots(addr fuse.Address) (uint64, error)
	BallotLimitPerValidator() (uint64, error)
	NextBallotID() (uint64, error)
}

// V1 is the first governance implementation.
var V1 = proxy.ImplementationID("voting.v1")

// Catalog holds all governance implementations.
var Catalog = proxy.NewCatalog[Contract](proxy.KindVoting)

func init() {
	Catalog.Register(V1, func(ctx *solidity.Context) Contract { return newV1(ctx) })
}

// Bind resolves the governance engine behind the proxy at addr.
func Bind(st *state.State, addr fuse.Address) (Contract, error) {
	return Catalog.Resolve(proxy.New(st, addr))
}
