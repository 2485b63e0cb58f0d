// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"encoding/json"
	"math/big"

	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
)

// BlockContext block context.
type BlockContext struct {
	Number uint64
	Time   uint64
}

// Event is a notification emitted by a component during a call.
type Event struct {
	Address fuse.Address `json:"address"` // emitting component
	Name    string       `json:"name"`
	Data    any          `json:"data"`
}

// Environment an env to execute a component operation.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	caller   fuse.Address
	value    *big.Int
	args     json.RawMessage
	events   *[]*Event
}

// New create a new env.
func New(
	state *state.State,
	blockCtx *BlockContext,
	caller fuse.Address,
	value *big.Int,
) *Environment {
	if value == nil {
		value = new(big.Int)
	}
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		caller:   caller,
		value:    value,
		events:   new([]*Event),
	}
}

func (env *Environment) State() *state.State        { return env.state }
func (env *Environment) BlockContext() *BlockContext { return env.blockCtx }
func (env *Environment) Caller() fuse.Address        { return env.caller }

// Value returns a copy of the value carried by the call.
func (env *Environment) Value() *big.Int { return new(big.Int).Set(env.value) }

// Events returns all events emitted so far, in emission order.
func (env *Environment) Events() []*Event { return *env.events }

// Emit appends an event.
func (env *Environment) Emit(addr fuse.Address, name string, data any) {
	*env.events = append(*env.events, &Event{Address: addr, Name: name, Data: data})
}

// As derives an env for a nested call made by the component at caller.
// The nested call carries no value and shares the event log.
func (env *Environment) As(caller fuse.Address) *Environment {
	return &Environment{
		state:    env.state,
		blockCtx: env.blockCtx,
		caller:   caller,
		value:    new(big.Int),
		events:   env.events,
	}
}

// WithArgs attaches JSON encoded call arguments.
func (env *Environment) WithArgs(args json.RawMessage) *Environment {
	env.args = args
	return env
}

// ParseArgs decodes the call arguments into v.
// A call without arguments leaves v untouched.
func (env *Environment) ParseArgs(v any) error {
	if len(env.args) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.args, v); err != nil {
		return errors.Wrap(err, "parse args")
	}
	return nil
}
