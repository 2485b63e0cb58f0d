// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

func init() {
	defines := []struct {
		name     string
		readOnly bool
		run      func(env *xenv.Environment, p *proxy.Proxy) (any, error)
	}{
		{"upgradeTo", false, func(env *xenv.Environment, p *proxy.Proxy) (any, error) {
			var args struct {
				Implementation fuse.Address `json:"implementation"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return p.UpgradeTo(env, args.Implementation)
		}},
		{"setRegistry", false, func(env *xenv.Environment, p *proxy.Proxy) (any, error) {
			var args struct {
				Registry fuse.Address `json:"registry"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, p.SetRegistry(env, args.Registry)
		}},
		{"getImplementation", true, func(_ *xenv.Environment, p *proxy.Proxy) (any, error) {
			return p.Implementation()
		}},
		{"getVersion", true, func(_ *xenv.Environment, p *proxy.Proxy) (any, error) {
			return p.Version()
		}},
		{"getOwner", true, func(_ *xenv.Environment, p *proxy.Proxy) (any, error) {
			return p.Owner()
		}},
		{"getAuthorizer", true, func(_ *xenv.Environment, p *proxy.Proxy) (any, error) {
			return p.Authorizer()
		}},
	}
	for _, def := range defines {
		proxyMethods[def.name] = &Method{Name: def.name, ReadOnly: def.readOnly, run: def.run}
	}
}
