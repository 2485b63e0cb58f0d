// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package ballots

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/builtin/voting"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
)

type Ballots struct {
	chain    *chain.Chain
	registry fuse.Address
}

func New(c *chain.Chain, registryAddr fuse.Address) *Ballots {
	return &Ballots{c, registryAddr}
}

func (b *Ballots) handleGetActive(w http.ResponseWriter, _ *http.Request) error {
	list := []*voting.Ballot{}
	err := utils.View(b.chain, b.registry, func(comps *utils.Components) error {
		ids, err := comps.Voting.ActiveBallotIDs()
		if err != nil {
			return err
		}
		for _, id := range ids {
			ballot, err := comps.Voting.Ballot(id)
			if err != nil {
				return err
			}
			if ballot != nil {
				list = append(list, ballot)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, list)
}

func (b *Ballots) handleGetBallot(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	var voter fuse.Address
	if s := req.URL.Query().Get("voter"); s != "" {
		addr, err := fuse.ParseAddress(s)
		if err != nil {
			return utils.BadRequest(errors.WithMessage(err, "voter"))
		}
		voter = *addr
	}

	var info *voting.BallotInfo
	err = utils.View(b.chain, b.registry, func(comps *utils.Components) error {
		ballot, err := comps.Voting.Ballot(id)
		if err != nil || ballot == nil {
			return err
		}
		info, err = comps.Voting.BallotInfo(id, voter, comps.Block.Number)
		return err
	})
	if err != nil {
		return err
	}
	if info == nil {
		return utils.NotFound(errors.Errorf("ballot %d not found", id))
	}
	return utils.WriteJSON(w, info)
}

// VotingKey tells whether an address may create and finalize ballots.
type VotingKey struct {
	Address fuse.Address `json:"address"`
	Valid   bool         `json:"isValidVotingKey"`
}

func (b *Ballots) handleGetVotingKey(w http.ResponseWriter, req *http.Request) error {
	addr, err := fuse.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	key := &VotingKey{Address: *addr}
	err = utils.View(b.chain, b.registry, func(comps *utils.Components) error {
		key.Valid, err = comps.Voting.IsValidVotingKey(*addr)
		return err
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, key)
}

func (b *Ballots) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(b.handleGetActive))
	sub.Path("/{id}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(b.handleGetBallot))
	sub.Path("/voting-keys/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(b.handleGetVotingKey))
}
