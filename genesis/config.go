// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/fuseio/fuse-consensus/builtin/voting"
	"github.com/fuseio/fuse-consensus/fuse"
)

// Config is the user customized genesis.
type Config struct {
	LaunchTime uint64          `yaml:"launchTime"`
	Owner      fuse.Address    `yaml:"owner"`
	Accounts   []Account       `yaml:"accounts"`
	Consensus  ConsensusParams `yaml:"consensus"`
	Voting     VotingParams    `yaml:"voting"`
	Addresses  *Addresses      `yaml:"addresses,omitempty"`

	// BlockRewardImplementation is the implementation the reward proxy starts with.
	BlockRewardImplementation *fuse.Address `yaml:"blockRewardImplementation,omitempty"`
}

// Account is an initial balance allocation.
type Account struct {
	Address fuse.Address          `yaml:"address"`
	Balance *math.HexOrDecimal256 `yaml:"balance"`
}

type ConsensusParams struct {
	MinStake          *math.HexOrDecimal256 `yaml:"minStake,omitempty"`
	CycleDuration     uint64                `yaml:"cycleDuration,omitempty"`
	SnapshotsPerCycle uint64                `yaml:"snapshotsPerCycle,omitempty"`
	InitialValidator  fuse.Address          `yaml:"initialValidator"`
}

type VotingParams struct {
	MinBallotDurationCycles uint64 `yaml:"minBallotDurationCycles,omitempty"`
	QuorumPolicy            string `yaml:"quorumPolicy,omitempty"`
}

// Addresses are the proxy addresses of the components.
type Addresses struct {
	Consensus   fuse.Address `yaml:"consensus"`
	Registry    fuse.Address `yaml:"registry"`
	Voting      fuse.Address `yaml:"voting"`
	BlockReward fuse.Address `yaml:"blockReward"`
}

// DefaultAddresses are the proxy addresses used when the config names none.
var DefaultAddresses = Addresses{
	Consensus:   fuse.BytesToAddress([]byte("Consensus")),
	Registry:    fuse.BytesToAddress([]byte("ProxyStorage")),
	Voting:      fuse.BytesToAddress([]byte("Voting")),
	BlockReward: fuse.BytesToAddress([]byte("BlockReward")),
}

// LoadConfig reads a YAML genesis file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read genesis file")
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML genesis and fills unset parameters with defaults.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) fillDefaults() {
	if cfg.Consensus.MinStake == nil {
		cfg.Consensus.MinStake = (*math.HexOrDecimal256)(new(big.Int).Set(fuse.DefaultMinStake))
	}
	if cfg.Consensus.CycleDuration == 0 {
		cfg.Consensus.CycleDuration = fuse.DefaultCycleDuration
	}
	if cfg.Consensus.SnapshotsPerCycle == 0 {
		cfg.Consensus.SnapshotsPerCycle = fuse.DefaultSnapshotsPerCycle
	}
	if cfg.Voting.MinBallotDurationCycles == 0 {
		cfg.Voting.MinBallotDurationCycles = fuse.DefaultMinBallotDurationCycles
	}
	if cfg.Addresses == nil {
		addrs := DefaultAddresses
		cfg.Addresses = &addrs
	}
}

// Validate checks what the components can't check on their own.
func (cfg *Config) Validate() error {
	if cfg.Owner.IsZero() {
		return errors.New("owner must be set")
	}
	if _, err := voting.ParseQuorumPolicy(cfg.Voting.QuorumPolicy); err != nil {
		return err
	}
	for _, a := range cfg.Accounts {
		if a.Balance == nil || (*big.Int)(a.Balance).Sign() < 1 {
			return errors.Errorf("%s: balance must be a positive integer", a.Address)
		}
	}
	if cfg.Addresses != nil {
		seen := make(map[fuse.Address]bool)
		for _, addr := range []fuse.Address{cfg.Addresses.Consensus, cfg.Addresses.Registry, cfg.Addresses.Voting, cfg.Addresses.BlockReward} {
			if addr.IsZero() {
				return errors.New("component addresses must be non-zero")
			}
			if seen[addr] {
				return errors.Errorf("component address %s used twice", addr)
			}
			seen[addr] = true
		}
	}
	return nil
}
