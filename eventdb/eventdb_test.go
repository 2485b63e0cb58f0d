// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package eventdb

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/genesis"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

func newEvent(block uint64, receipt, index uint32, addr fuse.Address, name string) *Event {
	return &Event{
		BlockNumber:  block,
		BlockTime:    1000 + block*5,
		ReceiptIndex: receipt,
		Index:        index,
		Caller:       fuse.BytesToAddress([]byte("caller")),
		Method:       "stake",
		Address:      addr,
		Name:         name,
		Data:         json.RawMessage(`{"amount":"0x1"}`),
	}
}

func TestFilter(t *testing.T) {
	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	a := fuse.BytesToAddress([]byte("a"))
	b := fuse.BytesToAddress([]byte("b"))
	events := []*Event{
		newEvent(1, 0, 0, a, "Staked"),
		newEvent(1, 0, 1, b, "ChangeFinalized"),
		newEvent(2, 1, 0, a, "Withdrawn"),
		newEvent(3, 0, 0, a, "Staked"),
	}
	require.NoError(t, db.Insert(events))
	// replacing is idempotent
	require.NoError(t, db.Insert(events[:1]))

	ctx := context.Background()

	all, err := db.Filter(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, events, all)

	got, err := db.Filter(ctx, &Filter{Address: &a})
	require.NoError(t, err)
	assert.Equal(t, []*Event{events[0], events[2], events[3]}, got)

	got, err = db.Filter(ctx, &Filter{Name: "Staked", Order: DESC})
	require.NoError(t, err)
	assert.Equal(t, []*Event{events[3], events[0]}, got)

	got, err = db.Filter(ctx, &Filter{Range: &Range{Unit: Block, From: 2, To: 3}})
	require.NoError(t, err)
	assert.Equal(t, []*Event{events[2], events[3]}, got)

	got, err = db.Filter(ctx, &Filter{Range: &Range{Unit: Time, From: 1010}})
	require.NoError(t, err)
	assert.Equal(t, []*Event{events[2], events[3]}, got)

	got, err = db.Filter(ctx, &Filter{Options: &Options{Offset: 1, Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, []*Event{events[1], events[2]}, got)

	got, err = db.Filter(ctx, &Filter{Name: "Unknown"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFromBlock(t *testing.T) {
	addr := fuse.BytesToAddress([]byte("consensus"))
	ev := &chain.BlockEvent{
		Head: &chain.Head{Number: 7, Time: 1035},
		Receipts: []*chain.Receipt{
			{Block: 7, Index: 0, Method: "stake", Events: []*xenv.Event{
				{Address: addr, Name: "Staked", Data: map[string]uint64{"seats": 1}},
			}},
			{Block: 7, Index: 1, Method: "withdraw", Reverted: true, Events: []*xenv.Event{}},
			{Block: 7, Index: 2, Method: "stake", Events: []*xenv.Event{
				{Address: addr, Name: "Staked", Data: nil},
				{Address: addr, Name: "InitiateChange", Data: nil},
			}},
		},
	}
	events, err := FromBlock(ev)
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, uint64(7), events[0].BlockNumber)
	assert.Equal(t, uint64(1035), events[0].BlockTime)
	assert.JSONEq(t, `{"seats":1}`, string(events[0].Data))
	assert.Equal(t, uint32(2), events[2].ReceiptIndex)
	assert.Equal(t, uint32(1), events[2].Index)
	assert.Equal(t, "InitiateChange", events[2].Name)
}

func TestIndex(t *testing.T) {
	store, err := kv.NewMem()
	require.NoError(t, err)
	defer store.Close()
	st, err := state.New(store)
	require.NoError(t, err)
	c, err := chain.New(store, st, 5)
	require.NoError(t, err)
	defer c.Close()

	gene := genesis.NewDevnet()
	_, err = gene.Build(c)
	require.NoError(t, err)

	db, err := NewMem()
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- db.Index(ctx, c) }()

	staker := genesis.DevAccounts()[1].Address
	filter := &Filter{Address: &gene.Addresses.Consensus, Name: "Staked"}
	require.Eventually(t, func() bool {
		r := c.Execute(&chain.Transaction{
			Caller: staker,
			To:     gene.Addresses.Consensus,
			Method: "stake",
			Value:  fuse.DefaultMinStake,
		})
		if r.Reverted {
			return false
		}
		if _, err := c.Seal(); err != nil {
			return false
		}
		events, err := db.Filter(context.Background(), filter)
		return err == nil && len(events) > 0
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

func TestRelayNeverBlocksSender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *chain.BlockEvent)
	out := make(chan *chain.BlockEvent)
	go relay(ctx, in, out)

	// nobody reads out while 500 blocks are sent
	const count = 500
	timeout := time.After(5 * time.Second)
	for i := uint64(1); i <= count; i++ {
		select {
		case in <- &chain.BlockEvent{Head: &chain.Head{Number: i}}:
		case <-timeout:
			t.Fatalf("send of block %d blocked", i)
		}
	}

	for i := uint64(1); i <= count; i++ {
		ev := <-out
		assert.Equal(t, i, ev.Head.Number)
	}
	select {
	case ev := <-out:
		t.Fatalf("unexpected block %d", ev.Head.Number)
	case <-time.After(20 * time.Millisecond):
	}
}
