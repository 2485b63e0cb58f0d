// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/eventdb"
)

type Events struct {
	db    *eventdb.EventDB
	limit uint64
}

// New creates the events handler. limit caps the page size of a query.
func New(db *eventdb.EventDB, limit uint64) *Events {
	return &Events{db, limit}
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	var filter eventdb.Filter
	if err := utils.ParseJSON(req.Body, &filter); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	switch filter.Order {
	case "", eventdb.ASC, eventdb.DESC:
	default:
		return utils.BadRequest(fmt.Errorf("order: unsupported %q", filter.Order))
	}
	if filter.Range != nil {
		switch filter.Range.Unit {
		case eventdb.Block, eventdb.Time:
		default:
			return utils.BadRequest(fmt.Errorf("range.unit: unsupported %q", filter.Range.Unit))
		}
	}
	if filter.Options == nil {
		filter.Options = &eventdb.Options{Limit: e.limit}
	} else if filter.Options.Limit > e.limit {
		return utils.BadRequest(fmt.Errorf("options.limit exceeds the maximum allowed value of %d", e.limit))
	}

	evs, err := e.db.Filter(req.Context(), &filter)
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, evs)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()
	sub.Path("").Methods(http.MethodPost).HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
