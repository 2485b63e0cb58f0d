// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package authz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/fuse"
)

func TestRequire(t *testing.T) {
	owner := fuse.BytesToAddress([]byte("owner"))
	gov := fuse.BytesToAddress([]byte("gov"))
	other := fuse.BytesToAddress([]byte("other"))

	ownerRule := Owner(func() (fuse.Address, error) { return owner, nil })
	govRule := Governance(func() (fuse.Address, error) { return gov, nil })

	assert.NoError(t, Require(owner, "setMinStake", ownerRule, govRule))
	assert.NoError(t, Require(gov, "setMinStake", ownerRule, govRule))
	assert.NoError(t, Require(fuse.SystemAddress, "finalizeChange", System()))

	err := Require(other, "setMinStake", ownerRule, govRule)
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
	assert.Contains(t, err.Error(), "owner or governance")
}

func TestRequireUnsetIdentity(t *testing.T) {
	unset := Governance(func() (fuse.Address, error) { return fuse.Address{}, nil })
	err := Require(fuse.Address{}, "op", unset)
	assert.True(t, reverts.IsKind(err, reverts.KindAuthorization))
}

func TestRequireLookupError(t *testing.T) {
	boom := errors.New("boom")
	rule := Validator(func(fuse.Address) (bool, error) { return false, boom })
	err := Require(fuse.Address{1}, "newBallot", rule)
	assert.ErrorIs(t, err, boom)
	assert.False(t, reverts.IsRevertErr(err))
}
