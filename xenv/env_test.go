// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package xenv

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/fuse"
)

func TestEnvironment(t *testing.T) {
	caller := fuse.BytesToAddress([]byte("caller"))
	env := New(nil, &BlockContext{Number: 10, Time: 50}, caller, big.NewInt(3))

	assert.Equal(t, caller, env.Caller())
	assert.Equal(t, uint64(10), env.BlockContext().Number)
	assert.Equal(t, big.NewInt(3), env.Value())

	// value is copied
	env.Value().SetInt64(100)
	assert.Equal(t, big.NewInt(3), env.Value())

	contract := fuse.BytesToAddress([]byte("contract"))
	nested := env.As(contract)
	assert.Equal(t, contract, nested.Caller())
	assert.Equal(t, 0, nested.Value().Sign())

	nested.Emit(contract, "Nested", 1)
	env.Emit(caller, "Outer", 2)
	require.Len(t, env.Events(), 2)
	assert.Equal(t, "Nested", env.Events()[0].Name)
	assert.Equal(t, env.Events(), nested.Events())
}

func TestParseArgs(t *testing.T) {
	env := New(nil, &BlockContext{}, fuse.Address{}, nil)

	var args struct {
		Amount int `json:"amount"`
	}
	require.NoError(t, env.ParseArgs(&args))
	assert.Equal(t, 0, args.Amount)

	env.WithArgs(json.RawMessage(`{"amount": 5}`))
	require.NoError(t, env.ParseArgs(&args))
	assert.Equal(t, 5, args.Amount)

	env.WithArgs(json.RawMessage(`{"amount": "x"}`))
	assert.Error(t, env.ParseArgs(&args))
}
