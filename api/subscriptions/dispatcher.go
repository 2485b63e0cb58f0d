// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"sync"

	"github.com/ethereum/go-ethereum/event"

	"github.com/fuseio/fuse-consensus/chain"
)

// listenerBuffer is the number of blocks a listener may fall behind before it is dropped.
const listenerBuffer = 16

type listener struct {
	ch     chan *chain.BlockEvent
	lagged chan struct{}
}

// dispatcher fans sealed blocks out to websocket listeners. It is the only
// subscriber of the chain's block feed, so a stalled client never holds up sealing.
type dispatcher struct {
	listeners map[*listener]struct{}
	mu        sync.Mutex
}

func newDispatcher() *dispatcher {
	return &dispatcher{listeners: make(map[*listener]struct{})}
}

func (d *dispatcher) subscribe() *listener {
	l := &listener{
		ch:     make(chan *chain.BlockEvent, listenerBuffer),
		lagged: make(chan struct{}),
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.listeners[l] = struct{}{}
	return l
}

func (d *dispatcher) unsubscribe(l *listener) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.listeners, l)
}

// dispatch hands ev to every listener without blocking. A listener whose buffer is full
// is removed and its lagged channel closed.
func (d *dispatcher) dispatch(ev *chain.BlockEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for l := range d.listeners {
		select {
		case l.ch <- ev:
		default:
			delete(d.listeners, l)
			close(l.lagged)
			logger.Debug("listener dropped", "block", ev.Head.Number)
		}
	}
}

func (d *dispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.listeners)
}

// loop relays the chain's block feed until done is closed or the feed subscription ends.
func (d *dispatcher) loop(ch <-chan *chain.BlockEvent, sub event.Subscription, done <-chan struct{}) {
	defer sub.Unsubscribe()

	for {
		select {
		case ev := <-ch:
			d.dispatch(ev)
		case <-sub.Err():
			return
		case <-done:
			return
		}
	}
}
