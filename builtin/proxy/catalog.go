// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package proxy

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
)

// ImplementationID derives the identifier of a named implementation, e.g. "consensus.v1".
func ImplementationID(name string) fuse.Address {
	return fuse.BytesToAddress([]byte(name))
}

type lookup interface {
	has(impl fuse.Address) bool
}

var (
	catalogsMu sync.RWMutex
	catalogs   = make(map[Kind]lookup)
)

// IsKnownImplementation reports whether impl may be installed behind a proxy of kind.
// Kinds without a catalog accept any non-zero implementation.
func IsKnownImplementation(kind Kind, impl fuse.Address) bool {
	if impl.IsZero() {
		return false
	}
	catalogsMu.RLock()
	c, ok := catalogs[kind]
	catalogsMu.RUnlock()
	if !ok {
		return true
	}
	return c.has(impl)
}

// Catalog maps implementation ids of one kind to behaviour sets.
type Catalog[T any] struct {
	kind      Kind
	mu        sync.RWMutex
	factories map[fuse.Address]func(*solidity.Context) T
}

// NewCatalog creates the catalog for kind and makes it the authority on known implementations.
func NewCatalog[T any](kind Kind) *Catalog[T] {
	c := &Catalog[T]{
		kind:      kind,
		factories: make(map[fuse.Address]func(*solidity.Context) T),
	}
	catalogsMu.Lock()
	catalogs[kind] = c
	catalogsMu.Unlock()
	return c
}

// Register adds an implementation.
func (c *Catalog[T]) Register(impl fuse.Address, factory func(*solidity.Context) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[impl] = factory
}

func (c *Catalog[T]) has(impl fuse.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.factories[impl]
	return ok
}

// Resolve builds the current implementation of the proxy, bound to the proxy's storage.
func (c *Catalog[T]) Resolve(p *Proxy) (T, error) {
	var zero T
	rec, err := p.Record()
	if err != nil {
		return zero, err
	}
	if rec.Kind != c.kind {
		return zero, errors.Errorf("proxy %s: expected %s, found %s", p.Address(), c.kind, rec.Kind)
	}
	c.mu.RLock()
	factory, ok := c.factories[rec.Implementation]
	c.mu.RUnlock()
	if !ok {
		return zero, errors.Errorf("proxy %s: unknown %s implementation %s", p.Address(), c.kind, rec.Implementation)
	}
	return factory(p.Context()), nil
}
