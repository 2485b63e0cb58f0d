// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package authz is the caller-identity policy shared by all components.
// Every mutating operation calls Require with the roles allowed to invoke it
// before touching any state.
package authz

import (
	"strings"

	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/fuse"
)

// Rule grants access to callers matching a role.
type Rule struct {
	Role  string
	Match func(caller fuse.Address) (bool, error)
}

// Identity matches exactly one address, resolved lazily from state.
func Identity(role string, resolve func() (fuse.Address, error)) Rule {
	return Rule{
		Role: role,
		Match: func(caller fuse.Address) (bool, error) {
			addr, err := resolve()
			if err != nil {
				return false, err
			}
			return !addr.IsZero() && addr == caller, nil
		},
	}
}

// Owner matches the owner recorded by a component.
func Owner(resolve func() (fuse.Address, error)) Rule {
	return Identity("owner", resolve)
}

// Governance matches the governance component registered in the registry.
func Governance(resolve func() (fuse.Address, error)) Rule {
	return Identity("governance", resolve)
}

// System matches the block producing engine.
func System() Rule {
	return Identity("system", func() (fuse.Address, error) { return fuse.SystemAddress, nil })
}

// Validator matches members of the active validator set.
func Validator(isValidator func(fuse.Address) (bool, error)) Rule {
	return Rule{Role: "validator", Match: isValidator}
}

// Require returns an authorization revert unless caller matches one of rules.
// Lookup failures are returned as is.
func Require(caller fuse.Address, op string, rules ...Rule) error {
	roles := make([]string, 0, len(rules))
	for _, rule := range rules {
		ok, err := rule.Match(caller)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		roles = append(roles, rule.Role)
	}
	return reverts.Unauthorized("%s: caller %s is not %s", op, caller, strings.Join(roles, " or "))
}
