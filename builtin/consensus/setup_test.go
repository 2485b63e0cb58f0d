// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var (
	owner     = fuse.BytesToAddress([]byte("owner"))
	genesisV  = fuse.BytesToAddress([]byte("genesis validator"))
	proxyAddr = fuse.BytesToAddress([]byte("consensus proxy"))

	minStake = new(big.Int).Mul(big.NewInt(100), fuse.Ether)
)

const (
	cycleDuration     = 100
	snapshotsPerCycle = 10
)

func stakes(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), minStake)
}

// harness is an initialized consensus behind its proxy.
type harness struct {
	st       *state.State
	contract Contract
	block    uint64
}

func newHarness(t *testing.T) *harness {
	db, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db)
	require.NoError(t, err)

	require.NoError(t, proxy.New(st, proxyAddr).Deploy(proxy.KindConsensus, owner, V1))
	c, err := Bind(st, proxyAddr)
	require.NoError(t, err)

	h := &harness{st: st, contract: c, block: 1}
	require.NoError(t, c.Initialize(h.env(owner, nil), minStake, cycleDuration, snapshotsPerCycle, genesisV))
	return h
}

func (h *harness) env(caller fuse.Address, value *big.Int) *xenv.Environment {
	return xenv.New(h.st, &xenv.BlockContext{Number: h.block}, caller, value)
}

func (h *harness) fund(t *testing.T, addr fuse.Address, amount *big.Int) {
	require.NoError(t, h.st.SetBalance(addr, amount))
}

type TestFunc func(t *testing.T)

type TestSequence struct {
	h *harness

	funcs []TestFunc
	mu    sync.Mutex
}

func NewSequence(h *harness) *TestSequence {
	return &TestSequence{funcs: make([]TestFunc, 0), h: h}
}

func (ts *TestSequence) AddFunc(f TestFunc) *TestSequence {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.funcs = append(ts.funcs, f)
	return ts
}

func (ts *TestSequence) Stake(addr fuse.Address, amount *big.Int) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		ts.h.fund(t, addr, amount)
		if err := ts.h.contract.Stake(ts.h.env(addr, amount)); err != nil {
			t.Fatalf("failed to stake %s for %s: %v", amount, addr, err)
		}
		t.Logf("staked %s for %s", amount, addr)
	})
}

func (ts *TestSequence) Withdraw(addr fuse.Address, amount *big.Int) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.h.contract.Withdraw(ts.h.env(addr, nil), amount); err != nil {
			t.Fatalf("failed to withdraw %s for %s: %v", amount, addr, err)
		}
		t.Logf("withdrawn %s for %s", amount, addr)
	})
}

func (ts *TestSequence) Finalize() *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		if err := ts.h.contract.FinalizeChange(ts.h.env(fuse.SystemAddress, nil)); err != nil {
			t.Fatalf("failed to finalize change at block %d: %v", ts.h.block, err)
		}
		t.Logf("change finalized at block %d", ts.h.block)
	})
}

func (ts *TestSequence) Block(number uint64) *TestSequence {
	return ts.AddFunc(func(t *testing.T) {
		ts.h.block = number
	})
}

func (ts *TestSequence) Run(t *testing.T) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	for _, f := range ts.funcs {
		f(t)
	}
}

type ValidatorAssertions struct {
	contract Contract
	addr     fuse.Address

	stake        *big.Int
	pendingSeats *int
	activeSeats  *uint64
	indices      []uint64
}

func AssertValidator(contract Contract, addr fuse.Address) *ValidatorAssertions {
	return &ValidatorAssertions{contract: contract, addr: addr}
}

func (va *ValidatorAssertions) Stake(expected *big.Int) *ValidatorAssertions {
	va.stake = expected
	return va
}

func (va *ValidatorAssertions) PendingSeats(expected int) *ValidatorAssertions {
	va.pendingSeats = &expected
	return va
}

func (va *ValidatorAssertions) ActiveSeats(expected uint64) *ValidatorAssertions {
	va.activeSeats = &expected
	return va
}

func (va *ValidatorAssertions) Indices(expected ...uint64) *ValidatorAssertions {
	va.indices = expected
	return va
}

func (va *ValidatorAssertions) Assert(t *testing.T) {
	if va.stake != nil {
		stake, err := va.contract.StakeAmount(va.addr)
		require.NoError(t, err)
		assert.Equal(t, 0, va.stake.Cmp(stake), "stake of %s: expected %s, got %s", va.addr, va.stake, stake)
	}
	if va.pendingSeats != nil {
		pending, err := va.contract.PendingValidators()
		require.NoError(t, err)
		count := 0
		for _, v := range pending {
			if v == va.addr {
				count++
			}
		}
		assert.Equal(t, *va.pendingSeats, count, "pending seats of %s", va.addr)

		vs, err := va.contract.ValidatorState(va.addr)
		require.NoError(t, err)
		assert.Len(t, vs.Indices, count, "indices of %s", va.addr)
		assert.Equal(t, count > 0, vs.IsValidator, "isValidator of %s", va.addr)
		for _, i := range vs.Indices {
			assert.Equal(t, va.addr, pending[i], "slot %d does not belong to %s", i, va.addr)
		}
	}
	if va.activeSeats != nil {
		seats, err := va.contract.Seats(va.addr)
		require.NoError(t, err)
		assert.Equal(t, *va.activeSeats, seats, "active seats of %s", va.addr)
	}
	if va.indices != nil {
		vs, err := va.contract.ValidatorState(va.addr)
		require.NoError(t, err)
		assert.Equal(t, va.indices, vs.Indices, "indices of %s", va.addr)
	}
}
