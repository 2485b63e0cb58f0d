// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fuse

import (
	"math/big"
)

// SystemAddress is the identity the block producing engine uses for system calls,
// e.g. finalizing a validator set change.
var SystemAddress = MustParseAddress("0xfffffffffffffffffffffffffffffffffffffffe")

// Ether is 10^18 wei.
var Ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Defaults used by the devnet genesis.
var (
	DefaultMinStake = new(big.Int).Mul(big.NewInt(100_000), Ether)
)

const (
	DefaultCycleDuration     uint64 = 17280 // one day of 5 seconds blocks
	DefaultSnapshotsPerCycle uint64 = 10
	DefaultBlockInterval     uint64 = 5 // seconds

	// MaxLimitOfBallots is the number of ballots that may be open at the same time,
	// split evenly between validators.
	MaxLimitOfBallots uint64 = 100
	// MaxBallotDurationCycles is the upper bound of a ballot's voting window.
	MaxBallotDurationCycles uint64 = 14
	// DefaultMinBallotDurationCycles is the lower bound of a ballot's voting window.
	DefaultMinBallotDurationCycles uint64 = 2
)
