// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/fuse"
)

func TestAccepted(t *testing.T) {
	assert.False(t, Accepted(2, 8))
	assert.False(t, Accepted(4, 8))
	assert.True(t, Accepted(5, 8))
	assert.True(t, Accepted(5, 9))
	assert.False(t, Accepted(5, 10))
	assert.True(t, Accepted(2, 3))
}

func TestPolicyBase(t *testing.T) {
	a, b := fuse.Address{1}, fuse.Address{2}
	list := []fuse.Address{a, b, b}
	assert.Equal(t, uint64(3), PolicySeats.Base(list))
	assert.Equal(t, uint64(2), PolicyAddresses.Base(list))

	p, err := ParseQuorumPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySeats, p)
	p, err = ParseQuorumPolicy("addresses")
	require.NoError(t, err)
	assert.Equal(t, PolicyAddresses, p)
	_, err = ParseQuorumPolicy("stake")
	assert.Error(t, err)
}

func TestSubjects(t *testing.T) {
	assert.True(t, SubjectVoting.IsRole())
	assert.False(t, SubjectInvalid.IsRole())
	assert.True(t, SubjectMinStake.IsParameter())
	assert.False(t, SubjectConsensus.IsParameter())
	assert.Equal(t, "cycleDuration", SubjectCycleDuration.String())
	assert.Equal(t, "proxyStorage", SubjectProxyStorage.String())
}
