// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"encoding/json"
	"math/big"

	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

// Transaction is a call to a method of the component deployed at To.
type Transaction struct {
	Caller fuse.Address    `json:"caller"`
	To     fuse.Address    `json:"to"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
	Value  *big.Int        `json:"value,omitempty"`
}

// Receipt is the outcome of an executed transaction.
type Receipt struct {
	Block    uint64        `json:"block"`
	Index    uint64        `json:"index"`
	Caller   fuse.Address  `json:"caller"`
	To       fuse.Address  `json:"to"`
	Method   string        `json:"method"`
	Reverted bool          `json:"reverted"`
	Kind     string        `json:"kind,omitempty"`
	Message  string        `json:"message,omitempty"`
	Events   []*xenv.Event `json:"events"`
	Output   any           `json:"output,omitempty"`
}

// Head describes the latest sealed block.
type Head struct {
	Number       uint64
	Time         uint64
	StateVersion uint64
	TxCount      uint64
}

// BlockEvent is published when a block is sealed.
type BlockEvent struct {
	Head     *Head
	Receipts []*Receipt
}
