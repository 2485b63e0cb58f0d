// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package blocks

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/chain"
)

// Block is the JSON form of a sealed block head.
type Block struct {
	Number       uint64 `json:"number"`
	Timestamp    uint64 `json:"timestamp"`
	StateVersion uint64 `json:"stateVersion"`
	TxCount      uint64 `json:"txCount"`
}

// FromHead converts a chain head.
func FromHead(head *chain.Head) *Block {
	return &Block{
		Number:       head.Number,
		Timestamp:    head.Time,
		StateVersion: head.StateVersion,
		TxCount:      head.TxCount,
	}
}

type Blocks struct {
	chain *chain.Chain
}

func New(c *chain.Chain) *Blocks {
	return &Blocks{c}
}

func (b *Blocks) handleGetBest(w http.ResponseWriter, _ *http.Request) error {
	head := b.chain.Head()
	if head == nil {
		return utils.NotFound(errors.New("no block sealed"))
	}
	return utils.WriteJSON(w, FromHead(head))
}

func (b *Blocks) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("/best").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(b.handleGetBest))
}
