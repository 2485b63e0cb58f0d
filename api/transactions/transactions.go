// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package transactions

import (
	"encoding/json"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
)

// Transaction is the body of a submitted transaction.
type Transaction struct {
	Caller fuse.Address          `json:"caller"`
	To     fuse.Address          `json:"to"`
	Method string                `json:"method"`
	Args   json.RawMessage       `json:"args,omitempty"`
	Value  *math.HexOrDecimal256 `json:"value,omitempty"`
}

type Transactions struct {
	chain *chain.Chain
}

func New(c *chain.Chain) *Transactions {
	return &Transactions{c}
}

// handleSendTransaction executes the transaction in the block being built and responds its receipt.
// A rejected transaction is not an http error, the receipt tells it reverted.
func (t *Transactions) handleSendTransaction(w http.ResponseWriter, req *http.Request) error {
	var body Transaction
	if err := utils.ParseJSON(req.Body, &body); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if body.Method == "" {
		return utils.BadRequest(errors.New("method: empty"))
	}
	if body.Caller == fuse.SystemAddress {
		return utils.BadRequest(errors.New("caller: reserved for the engine"))
	}
	value := new(big.Int)
	if body.Value != nil {
		value.Set((*big.Int)(body.Value))
	}
	if value.Sign() < 0 {
		return utils.BadRequest(errors.New("value: negative"))
	}

	receipt := t.chain.Execute(&chain.Transaction{
		Caller: body.Caller,
		To:     body.To,
		Method: body.Method,
		Args:   body.Args,
		Value:  value,
	})
	return utils.WriteJSON(w, receipt)
}

func (t *Transactions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(t.handleSendTransaction))
}
