// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

// Registry lists the component proxies by role.
type Registry struct {
	Address   fuse.Address            `json:"address"`
	Owner     fuse.Address            `json:"owner"`
	Contracts map[string]fuse.Address `json:"contracts"`
}

// Proxy is the upgrade record of a component.
type Proxy struct {
	Address        fuse.Address `json:"address"`
	Kind           string       `json:"kind"`
	Implementation fuse.Address `json:"implementation"`
	Version        uint64       `json:"version"`
	Owner          fuse.Address `json:"owner"`
	Registry       fuse.Address `json:"registry"`
	Authorizer     fuse.Address `json:"authorizer"`
}

type Handler struct {
	chain    *chain.Chain
	registry fuse.Address
}

func New(c *chain.Chain, registryAddr fuse.Address) *Handler {
	return &Handler{c, registryAddr}
}

func (h *Handler) handleGetRegistry(w http.ResponseWriter, _ *http.Request) error {
	res := &Registry{Address: h.registry, Contracts: make(map[string]fuse.Address)}
	err := utils.View(h.chain, h.registry, func(comps *utils.Components) (err error) {
		if res.Owner, err = comps.Registry.Owner(); err != nil {
			return err
		}
		for _, role := range registry.Roles {
			addr, err := comps.Registry.ContractAddress(role)
			if err != nil {
				return err
			}
			res.Contracts[role.String()] = addr
		}
		return nil
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, res)
}

func (h *Handler) handleGetProxy(w http.ResponseWriter, req *http.Request) error {
	addr, err := fuse.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "address"))
	}
	var res *Proxy
	err = h.chain.View(func(st *state.State, _ xenv.BlockContext) error {
		p := proxy.New(st, *addr)
		rec, err := p.Record()
		if err != nil {
			return err
		}
		if rec.Kind == proxy.KindNone {
			return nil
		}
		authorizer, err := p.Authorizer()
		if err != nil {
			return err
		}
		res = &Proxy{
			Address:        *addr,
			Kind:           rec.Kind.String(),
			Implementation: rec.Implementation,
			Version:        rec.Version,
			Owner:          rec.Owner,
			Registry:       rec.Registry,
			Authorizer:     authorizer,
		}
		return nil
	})
	if err != nil {
		return err
	}
	if res == nil {
		return utils.NotFound(errors.Errorf("no component at %s", addr))
	}
	return utils.WriteJSON(w, res)
}

func (h *Handler) Mount(root *mux.Router) {
	root.Path("/registry").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(h.handleGetRegistry))
	root.Path("/proxies/{address}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(h.handleGetProxy))
}
