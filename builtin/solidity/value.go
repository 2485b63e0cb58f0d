// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package solidity

import (
	"github.com/fuseio/fuse-consensus/fuse"
)

// Value stores one rlp encoded struct in a single slot.
type Value[V any] struct {
	mapping *Mapping[fuse.Bytes32, V]
	pos     fuse.Bytes32
}

func NewValue[V any](context *Context, pos fuse.Bytes32) *Value[V] {
	return &Value[V]{
		mapping: NewMapping[fuse.Bytes32, V](context, pos),
		pos:     pos,
	}
}

func (v *Value[V]) Get() (V, error) {
	return v.mapping.Get(v.pos)
}

func (v *Value[V]) Set(value V) error {
	return v.mapping.Set(v.pos, value)
}
