// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package accounts

import (
	"encoding/json"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
)

// Account is the view of an address: its balance and its standing in the validator set.
type Account struct {
	Address      fuse.Address `json:"address"`
	Balance      *hexutil.Big `json:"balance"`
	Stake        *hexutil.Big `json:"stake"`
	IsValidator  bool         `json:"isValidator"`
	Seats        uint64       `json:"seats"`
	PendingSeats uint64       `json:"pendingSeats"`
}

// CallRequest is a read-only call of a component method.
type CallRequest struct {
	Caller *fuse.Address   `json:"caller,omitempty"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

type Accounts struct {
	chain    *chain.Chain
	registry fuse.Address
}

func New(c *chain.Chain, registryAddr fuse.Address) *Accounts {
	return &Accounts{c, registryAddr}
}

func (a *Accounts) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := fuse.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}

	acc := &Account{Address: *addr}
	err = utils.View(a.chain, a.registry, func(comps *utils.Components) error {
		balance, err := comps.State.GetBalance(*addr)
		if err != nil {
			return err
		}
		stake, err := comps.Consensus.StakeAmount(*addr)
		if err != nil {
			return err
		}
		seats, err := comps.Consensus.Seats(*addr)
		if err != nil {
			return err
		}
		vs, err := comps.Consensus.ValidatorState(*addr)
		if err != nil {
			return err
		}
		acc.Balance = (*hexutil.Big)(balance)
		acc.Stake = (*hexutil.Big)(stake)
		acc.Seats = seats
		acc.IsValidator = seats > 0
		if vs != nil {
			acc.PendingSeats = uint64(len(vs.Indices))
		}
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, acc)
}

func (a *Accounts) handleCall(w http.ResponseWriter, req *http.Request) error {
	addr, err := fuse.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var call CallRequest
	if err := utils.ParseJSON(req.Body, &call); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	if call.Method == "" {
		return utils.BadRequest(errors.New("method: empty"))
	}
	var caller fuse.Address
	if call.Caller != nil {
		caller = *call.Caller
	}
	out, err := a.chain.Call(caller, *addr, call.Method, call.Args)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, utils.M{"output": out})
}

func (a *Accounts) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(a.handleGetAccount))
	sub.Path("/{address}").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(a.handleCall))
}
