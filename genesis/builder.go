// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

// Builder helper to build genesis block.
type Builder struct {
	timestamp  uint64
	stateProcs []func(state *state.State) error
	calls      []*chain.Transaction
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// State add a state process
func (b *Builder) State(proc func(state *state.State) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// Call add a component call, args are JSON encoded.
func (b *Builder) Call(caller, to fuse.Address, method string, args any) *Builder {
	tx := &chain.Transaction{Caller: caller, To: to, Method: method, Value: new(big.Int)}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			panic(err)
		}
		tx.Args = raw
	}
	b.calls = append(b.calls, tx)
	return b
}

// Build runs state processes and calls in block 0 and seals it.
func (b *Builder) Build(c *chain.Chain) (*chain.Head, error) {
	if c.Initialized() {
		return nil, errors.New("chain already initialized")
	}
	c.SetGenesisTime(b.timestamp)

	if err := c.Apply(func(st *state.State, _ xenv.BlockContext) error {
		for _, proc := range b.stateProcs {
			if err := proc(st); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "genesis state")
	}

	for _, tx := range b.calls {
		if r := c.Execute(tx); r.Reverted {
			return nil, errors.Errorf("genesis call %s on %s: %s: %s", tx.Method, tx.To, r.Kind, r.Message)
		}
	}
	return c.Seal()
}
