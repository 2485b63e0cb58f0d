// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/fuse"
)

// Subject is what a ballot changes: a component role, or a parameter.
type Subject uint8

const (
	SubjectInvalid      Subject = 0
	SubjectConsensus            = Subject(registry.RoleConsensus)
	SubjectBlockReward          = Subject(registry.RoleBlockReward)
	SubjectProxyStorage         = Subject(registry.RoleProxyStorage)
	SubjectVoting               = Subject(registry.RoleVoting)

	SubjectMinStake          Subject = 10
	SubjectCycleDuration     Subject = 11
	SubjectSnapshotsPerCycle Subject = 12
	SubjectMinBallotDuration Subject = 13
)

// IsRole reports whether the subject swaps a component implementation.
func (s Subject) IsRole() bool {
	return registry.Role(s).Valid()
}

// IsParameter reports whether the subject sets a parameter.
func (s Subject) IsParameter() bool {
	return s >= SubjectMinStake && s <= SubjectMinBallotDuration
}

func (s Subject) String() string {
	switch s {
	case SubjectMinStake:
		return "minStake"
	case SubjectCycleDuration:
		return "cycleDuration"
	case SubjectSnapshotsPerCycle:
		return "snapshotsPerCycle"
	case SubjectMinBallotDuration:
		return "minBallotDuration"
	default:
		return registry.Role(s).String()
	}
}

// Choice is a vote.
type Choice uint8

const (
	ChoiceInvalid Choice = iota
	ChoiceAccept
	ChoiceReject
)

func (c Choice) Valid() bool {
	return c == ChoiceAccept || c == ChoiceReject
}

// QuorumState is the outcome of a ballot.
type QuorumState uint8

const (
	QuorumInvalid QuorumState = iota
	QuorumInProgress
	QuorumAccepted
	QuorumRejected
)

func (q QuorumState) String() string {
	switch q {
	case QuorumInProgress:
		return "inProgress"
	case QuorumAccepted:
		return "accepted"
	case QuorumRejected:
		return "rejected"
	default:
		return "invalid"
	}
}

// QuorumPolicy selects the majority base of a ballot.
type QuorumPolicy uint8

const (
	// PolicySeats counts the entries of the active validator list.
	PolicySeats QuorumPolicy = iota
	// PolicyAddresses counts distinct active validator addresses.
	PolicyAddresses
)

func (p QuorumPolicy) String() string {
	if p == PolicyAddresses {
		return "addresses"
	}
	return "seats"
}

// ParseQuorumPolicy parses "seats" or "addresses". Empty means seats.
func ParseQuorumPolicy(s string) (QuorumPolicy, error) {
	switch s {
	case "", "seats":
		return PolicySeats, nil
	case "addresses":
		return PolicyAddresses, nil
	default:
		return 0, errors.Errorf("unknown quorum policy %q", s)
	}
}

// Base returns the majority base of the given active validator list.
func (p QuorumPolicy) Base(validators []fuse.Address) uint64 {
	if p != PolicyAddresses {
		return uint64(len(validators))
	}
	return uint64(len(distinct(validators)))
}

// Accepted is a strict majority of base.
func Accepted(accepts, base uint64) bool {
	return accepts*2 > base
}

func distinct(list []fuse.Address) []fuse.Address {
	seen := make(map[fuse.Address]bool, len(list))
	out := make([]fuse.Address, 0, len(list))
	for _, a := range list {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

// Ballot is a time boxed proposal.
type Ballot struct {
	ID          uint64       `json:"id"`
	Creator     fuse.Address `json:"creator"`
	StartBlock  uint64       `json:"startBlock"`
	EndBlock    uint64       `json:"endBlock"`
	Subject     Subject      `json:"subject"`
	Value       fuse.Bytes32 `json:"value"`
	Description string       `json:"description"`
	TotalVoters uint64       `json:"totalVoters"`
	AcceptCount uint64       `json:"acceptCount"`
	RejectCount uint64       `json:"rejectCount"`
	Finalized   bool         `json:"isFinalized"`
	State       QuorumState  `json:"quorumState"`
}

// BallotInfo is a ballot as seen by one voter.
type BallotInfo struct {
	*Ballot
	AlreadyVoted      bool   `json:"alreadyVoted"`
	Choice            Choice `json:"choice"`
	CanBeFinalizedNow bool   `json:"canBeFinalizedNow"`
}

// BallotCreatedEvent is emitted by NewBallot.
type BallotCreatedEvent struct {
	ID         uint64       `json:"id"`
	Creator    fuse.Address `json:"creator"`
	Subject    Subject      `json:"subject"`
	Value      fuse.Bytes32 `json:"value"`
	StartBlock uint64       `json:"startBlock"`
	EndBlock   uint64       `json:"endBlock"`
}

// VoteCastEvent is emitted by Vote.
type VoteCastEvent struct {
	ID     uint64       `json:"id"`
	Voter  fuse.Address `json:"voter"`
	Choice Choice       `json:"choice"`
}

// BallotFinalizedEvent is emitted by Finalize.
type BallotFinalizedEvent struct {
	ID      uint64       `json:"id"`
	State   QuorumState  `json:"quorumState"`
	Accepts uint64       `json:"accepts"`
	Base    uint64       `json:"base"`
	By      fuse.Address `json:"by"`
}
