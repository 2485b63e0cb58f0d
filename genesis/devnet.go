// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"crypto/ecdsa"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fuseio/fuse-consensus/fuse"
)

// DevAccount account for development.
type DevAccount struct {
	Address    fuse.Address
	PrivateKey *ecdsa.PrivateKey
}

var devAccounts atomic.Value

// DevAccounts returns pre-alloced accounts for the devnet.
func DevAccounts() []DevAccount {
	if accs := devAccounts.Load(); accs != nil {
		return accs.([]DevAccount)
	}

	var accs []DevAccount
	privKeys := []string{
		"dce1443bd2ef0c2631adc1c67e5c93f13dc23a41c18b536effbbdcbcdb96fb65",
		"321d6443bc6177273b5abf54210fe806d451d6b7973bccc2384ef78bbcd0bf51",
		"2d7c882bad2a01105e36dda3646693bc1aaaa45b0ed63fb0ce23c060294f3af2",
		"593537225b037191d322c3b1df585fb1e5100811b71a6f7fc7e29cca1333483e",
		"ca7b25fc980c759df5f3ce17a3d881d6e19a38e651fc4315fc08917edab41058",
	}
	for _, str := range privKeys {
		pk, err := crypto.HexToECDSA(str)
		if err != nil {
			panic(err)
		}
		accs = append(accs, DevAccount{fuse.Address(crypto.PubkeyToAddress(pk.PublicKey)), pk})
	}
	devAccounts.Store(accs)
	return accs
}

// DevnetConfig is the config of the local development network. The first dev account owns
// the components and is the initial validator.
func DevnetConfig() *Config {
	accs := DevAccounts()
	balance := new(big.Int).Mul(big.NewInt(10_000_000), fuse.Ether)

	cfg := &Config{
		LaunchTime: 1526400000, // Default launch time
		Owner:      accs[0].Address,
		Consensus: ConsensusParams{
			CycleDuration:     120,
			SnapshotsPerCycle: 4,
			InitialValidator:  accs[0].Address,
		},
	}
	for _, a := range accs {
		cfg.Accounts = append(cfg.Accounts, Account{
			Address: a.Address,
			Balance: (*math.HexOrDecimal256)(new(big.Int).Set(balance)),
		})
	}
	cfg.fillDefaults()
	return cfg
}

// NewDevnet create genesis for the local development network.
func NewDevnet() *Genesis {
	return New("devnet", DevnetConfig())
}
