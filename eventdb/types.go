// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"encoding/json"

	"github.com/fuseio/fuse-consensus/fuse"
)

type RangeType string

const (
	Block RangeType = "block"
	Time  RangeType = "time"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Event is an indexed component event.
type Event struct {
	BlockNumber  uint64          `json:"blockNumber"`
	BlockTime    uint64          `json:"blockTime"`
	ReceiptIndex uint32          `json:"receiptIndex"`
	Index        uint32          `json:"index"` // position in the receipt
	Caller       fuse.Address    `json:"caller"`
	Method       string          `json:"method"`
	Address      fuse.Address    `json:"address"`
	Name         string          `json:"name"`
	Data         json.RawMessage `json:"data"`
}

type Range struct {
	Unit RangeType `json:"unit"`
	From uint64    `json:"from"`
	To   uint64    `json:"to"`
}

type Options struct {
	Offset uint64 `json:"offset"`
	Limit  uint64 `json:"limit"`
}

// Filter selects events. Zero fields match everything.
type Filter struct {
	Address *fuse.Address `json:"address"`
	Name    string        `json:"name"`
	Range   *Range        `json:"range"`
	Order   Order         `json:"order"` // default asc
	Options *Options      `json:"options"`
}
