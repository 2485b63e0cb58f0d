// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/state"
)

func blockEvent(n uint64) *chain.BlockEvent {
	return &chain.BlockEvent{Head: &chain.Head{Number: n}}
}

func TestDispatchDropsLaggingListener(t *testing.T) {
	d := newDispatcher()
	slow := d.subscribe()
	fast := d.subscribe()
	assert.Equal(t, 2, d.count())

	received := make([]uint64, 0, listenerBuffer+1)
	for i := uint64(1); i <= listenerBuffer+1; i++ {
		d.dispatch(blockEvent(i))
		ev := <-fast.ch
		received = append(received, ev.Head.Number)
	}
	assert.Len(t, received, listenerBuffer+1)
	assert.Equal(t, uint64(listenerBuffer+1), received[listenerBuffer])

	select {
	case <-slow.lagged:
	default:
		t.Fatal("slow listener not dropped")
	}
	assert.Len(t, slow.ch, listenerBuffer)
	assert.Equal(t, 1, d.count())

	// a dropped listener can still be unsubscribed
	d.unsubscribe(slow)
	d.unsubscribe(fast)
	assert.Equal(t, 0, d.count())
}

func TestStalledSubscriberDoesNotBlockSealing(t *testing.T) {
	db, err := kv.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := state.New(db)
	require.NoError(t, err)
	c, err := chain.New(db, st, 5)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	s := New(c, nil)
	stalled := s.blocks.subscribe()

	sealed := make(chan struct{})
	go func() {
		defer close(sealed)
		for i := 0; i < 4*listenerBuffer; i++ {
			if _, err := c.Seal(); err != nil {
				return
			}
		}
	}()
	select {
	case <-sealed:
	case <-time.After(5 * time.Second):
		t.Fatal("sealing blocked by a stalled subscriber")
	}

	assert.Eventually(t, func() bool {
		select {
		case <-stalled.lagged:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
	s.Close()
}
