// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

func init() {
	defines := []struct {
		name     string
		readOnly bool
		run      func(env *xenv.Environment, r registry.Contract) (any, error)
	}{
		{"initialize", false, func(env *xenv.Environment, r registry.Contract) (any, error) {
			var args struct {
				Consensus fuse.Address `json:"consensus"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, r.Initialize(env, args.Consensus)
		}},
		{"initializeAddresses", false, func(env *xenv.Environment, r registry.Contract) (any, error) {
			var args struct {
				BlockReward fuse.Address `json:"blockReward"`
				Voting      fuse.Address `json:"voting"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, r.InitializeAddresses(env, args.BlockReward, args.Voting)
		}},
		{"setContractAddress", false, func(env *xenv.Environment, r registry.Contract) (any, error) {
			var args struct {
				Role    registry.Role `json:"role"`
				Address fuse.Address  `json:"address"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return r.SetContractAddress(env, args.Role, args.Address)
		}},
		{"getContractAddress", true, func(env *xenv.Environment, r registry.Contract) (any, error) {
			var args struct {
				Role registry.Role `json:"role"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return r.ContractAddress(args.Role)
		}},
		{"owner", true, func(_ *xenv.Environment, r registry.Contract) (any, error) {
			return r.Owner()
		}},
	}
	for _, def := range defines {
		run := def.run
		register(proxy.KindRegistry, &Method{
			Name:     def.name,
			ReadOnly: def.readOnly,
			run: func(env *xenv.Environment, p *proxy.Proxy) (any, error) {
				r, err := registry.Catalog.Resolve(p)
				if err != nil {
					return nil, err
				}
				return run(env, r)
			},
		})
	}
}
