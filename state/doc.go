// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state is the storage substrate shared by every upgradeable component.
// It follows the flow as bellow:
//
//	          o
//	          |
//	[ revertable state ]
//	          |
//	   [ stacked map ] -> [ journal ] -> [ kv batch ] -> [ committed kv store ]
//	          |
//	     [ lru cache ]
//	          |
//	 [ committed kv store ]
//
// Values are addressed by content-derived keys: the blake2b hash of the owning
// namespace (a component's proxy address) and the slot. Replacing the code behind
// a proxy therefore never moves or discards its data.
//
// Every Commit bumps a persisted version counter.
package state
