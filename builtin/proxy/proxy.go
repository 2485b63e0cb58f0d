// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package proxy implements the stable address indirection in front of every component.
// A proxy owns no business logic. It records the current implementation, the owner,
// the registry once wired and a version counter. Component data is namespaced by the
// proxy address, so swapping the implementation never moves or discards it.
package proxy

import (
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/authz"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var (
	logger = log.New("pkg", "proxy")

	slotRecord = solidity.NameToSlot("proxy.record")
)

// Kind identifies the component behind a proxy.
type Kind uint8

const (
	KindNone Kind = iota
	KindConsensus
	KindRegistry
	KindVoting
	KindBlockReward
)

func (k Kind) String() string {
	switch k {
	case KindConsensus:
		return "consensus"
	case KindRegistry:
		return "registry"
	case KindVoting:
		return "voting"
	case KindBlockReward:
		return "blockReward"
	default:
		return "none"
	}
}

// Record is the upgrade record held per proxy.
type Record struct {
	Kind           Kind
	Implementation fuse.Address
	Owner          fuse.Address
	Registry       fuse.Address
	Version        uint64
}

// UpgradedEvent is emitted on every successful upgrade.
type UpgradedEvent struct {
	Version        uint64       `json:"version"`
	Implementation fuse.Address `json:"implementation"`
}

// RegistrySetEvent is emitted once the proxy hands upgrade authority to the registry.
type RegistrySetEvent struct {
	Registry fuse.Address `json:"registry"`
}

// Proxy is a handle on the proxy deployed at an address.
type Proxy struct {
	addr   fuse.Address
	ctx    *solidity.Context
	record *solidity.Value[*Record]
}

// New binds a handle to the proxy at addr.
func New(st *state.State, addr fuse.Address) *Proxy {
	ctx := solidity.NewContext(addr, st)
	return &Proxy{
		addr:   addr,
		ctx:    ctx,
		record: solidity.NewValue[*Record](ctx, slotRecord),
	}
}

// Address returns the proxy address, which is also the storage namespace of the component.
func (p *Proxy) Address() fuse.Address {
	return p.addr
}

// Context returns the storage context of the component behind the proxy.
func (p *Proxy) Context() *solidity.Context {
	return p.ctx
}

// Record returns the upgrade record. A zero Kind means nothing is deployed at the address.
func (p *Proxy) Record() (*Record, error) {
	rec, err := p.record.Get()
	if err != nil {
		return nil, errors.Wrap(err, "get proxy record")
	}
	return rec, nil
}

func (p *Proxy) Deployed() (bool, error) {
	rec, err := p.Record()
	if err != nil {
		return false, err
	}
	return rec.Kind != KindNone, nil
}

func (p *Proxy) Implementation() (fuse.Address, error) {
	rec, err := p.Record()
	if err != nil {
		return fuse.Address{}, err
	}
	return rec.Implementation, nil
}

func (p *Proxy) Version() (uint64, error) {
	rec, err := p.Record()
	if err != nil {
		return 0, err
	}
	return rec.Version, nil
}

func (p *Proxy) Owner() (fuse.Address, error) {
	rec, err := p.Record()
	if err != nil {
		return fuse.Address{}, err
	}
	return rec.Owner, nil
}

// Authorizer returns the identity allowed to upgrade: the registry once wired, the owner before.
func (p *Proxy) Authorizer() (fuse.Address, error) {
	rec, err := p.Record()
	if err != nil {
		return fuse.Address{}, err
	}
	if !rec.Registry.IsZero() {
		return rec.Registry, nil
	}
	return rec.Owner, nil
}

// Deploy installs a proxy of the given kind. It may happen once per address.
func (p *Proxy) Deploy(kind Kind, owner, implementation fuse.Address) error {
	rec, err := p.Record()
	if err != nil {
		return err
	}
	if rec.Kind != KindNone {
		return reverts.Conflict("proxy: %s already deployed at %s", rec.Kind, p.addr)
	}
	if kind == KindNone || owner.IsZero() {
		return reverts.Invalid("proxy: invalid deployment")
	}
	if !IsKnownImplementation(kind, implementation) {
		return reverts.Invalid("proxy: unknown %s implementation %s", kind, implementation)
	}
	if err := p.record.Set(&Record{
		Kind:           kind,
		Implementation: implementation,
		Owner:          owner,
		Version:        1,
	}); err != nil {
		return err
	}
	logger.Debug("proxy deployed", "address", p.addr, "kind", kind, "implementation", implementation)
	return nil
}

// SetRegistry hands upgrade authority to the registry. Owner only, once.
func (p *Proxy) SetRegistry(env *xenv.Environment, registry fuse.Address) error {
	if err := authz.Require(env.Caller(), "setRegistry", authz.Owner(p.Owner)); err != nil {
		return err
	}
	rec, err := p.Record()
	if err != nil {
		return err
	}
	if !rec.Registry.IsZero() {
		return reverts.Conflict("proxy: registry already set")
	}
	if registry.IsZero() {
		return reverts.Invalid("proxy: zero registry")
	}
	rec.Registry = registry
	if err := p.record.Set(rec); err != nil {
		return err
	}
	env.Emit(p.addr, "RegistrySet", &RegistrySetEvent{Registry: registry})
	return nil
}

// UpgradeTo swaps the implementation. Only the authorizer may call it.
// A zero, unchanged or unknown implementation leaves the proxy untouched and returns false.
func (p *Proxy) UpgradeTo(env *xenv.Environment, implementation fuse.Address) (bool, error) {
	if err := authz.Require(env.Caller(), "upgradeTo", authz.Identity("authorizer", p.Authorizer)); err != nil {
		return false, err
	}
	rec, err := p.Record()
	if err != nil {
		return false, err
	}
	if implementation.IsZero() ||
		implementation == rec.Implementation ||
		!IsKnownImplementation(rec.Kind, implementation) {
		logger.Debug("upgrade ignored", "proxy", p.addr, "implementation", implementation)
		return false, nil
	}

	rec.Implementation = implementation
	rec.Version++
	if err := p.record.Set(rec); err != nil {
		return false, err
	}
	env.Emit(p.addr, "Upgraded", &UpgradedEvent{Version: rec.Version, Implementation: implementation})
	logger.Info("proxy upgraded", "proxy", p.addr, "kind", rec.Kind, "version", rec.Version, "implementation", implementation)
	return true, nil
}
