// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin routes calls to the components deployed behind proxies.
// A call names the proxy address and a method, arguments travel as JSON.
package builtin

import (
	"sort"

	"github.com/ethereum/go-ethereum/log"

	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

var logger = log.New("pkg", "builtin")

// Method describes a native call.
type Method struct {
	Name     string
	ReadOnly bool
	run      func(env *xenv.Environment, p *proxy.Proxy) (any, error)
}

type kindAndName struct {
	kind proxy.Kind
	name string
}

var (
	methods      = make(map[kindAndName]*Method)
	proxyMethods = make(map[string]*Method)
)

func register(kind proxy.Kind, m *Method) {
	key := kindAndName{kind, m.Name}
	if _, dup := methods[key]; dup {
		panic("duplicated method " + kind.String() + "." + m.Name)
	}
	methods[key] = m
}

// Lookup finds the method callable on a proxy of kind.
func Lookup(kind proxy.Kind, name string) (*Method, bool) {
	if m, ok := proxyMethods[name]; ok {
		return m, true
	}
	m, ok := methods[kindAndName{kind, name}]
	return m, ok
}

// Methods lists the method names callable on a proxy of kind.
func Methods(kind proxy.Kind) []string {
	names := make([]string, 0, len(proxyMethods))
	for name := range proxyMethods {
		names = append(names, name)
	}
	for key := range methods {
		if key.kind == kind {
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	return names
}

// Call runs method on the component behind the proxy at to.
func Call(env *xenv.Environment, to fuse.Address, method string) (any, error) {
	p := proxy.New(env.State(), to)
	rec, err := p.Record()
	if err != nil {
		return nil, err
	}
	if rec.Kind == proxy.KindNone {
		return nil, reverts.Invalid("no component at %s", to)
	}
	m, ok := Lookup(rec.Kind, method)
	if !ok {
		return nil, reverts.Invalid("%s has no method %q", rec.Kind, method)
	}
	logger.Debug("native call", "to", to, "kind", rec.Kind, "method", method, "caller", env.Caller())
	return m.run(env, p)
}

// parseArgs decodes call arguments, malformed input is an invariant violation.
func parseArgs(env *xenv.Environment, v any) error {
	if err := env.ParseArgs(v); err != nil {
		return reverts.Invalid("%v", err)
	}
	return nil
}
