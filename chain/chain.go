// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package chain executes transactions against the component state one at a time
// and seals them into blocks.
package chain

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/kv"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

var logger = log.New("pkg", "chain")

// ErrNotInitialized is returned when a block is needed before genesis was sealed.
var ErrNotInitialized = errors.New("chain not initialized")

// Chain owns the state and serializes every access to it.
//
// It's thread-safe.
type Chain struct {
	mu       sync.Mutex
	props    kv.Store
	state    *state.State
	interval uint64

	head     *Head
	genesis  uint64 // timestamp of block 0
	receipts []*Receipt

	blockFeed   event.Feed
	receiptFeed event.Feed
	scope       event.SubscriptionScope
}

// New opens the chain stored in db. interval is the block time in seconds.
func New(db kv.Store, st *state.State, interval uint64) (*Chain, error) {
	if interval == 0 {
		interval = fuse.DefaultBlockInterval
	}
	c := &Chain{
		props:    propBucket.NewStore(db),
		state:    st,
		interval: interval,
	}
	head, err := loadHead(c.props)
	if err != nil {
		return nil, errors.Wrap(err, "load head")
	}
	c.head = head
	return c, nil
}

// Interval returns the block time in seconds.
func (c *Chain) Interval() uint64 {
	return c.interval
}

// Initialized reports whether the genesis block was sealed.
func (c *Chain) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head != nil
}

// Head returns the latest sealed block, nil before genesis.
func (c *Chain) Head() *Head {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.head == nil {
		return nil
	}
	cpy := *c.head
	return &cpy
}

// SetGenesisTime sets the timestamp of block 0. It has no effect once genesis was sealed.
func (c *Chain) SetGenesisTime(ts uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.genesis = ts
}

// nextBlock returns the context of the block being built.
func (c *Chain) nextBlock() *xenv.BlockContext {
	if c.head == nil {
		return &xenv.BlockContext{Number: 0, Time: c.genesis}
	}
	return &xenv.BlockContext{Number: c.head.Number + 1, Time: c.head.Time + c.interval}
}

// NextBlock returns the context transactions currently execute in.
func (c *Chain) NextBlock() xenv.BlockContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.nextBlock()
}

// Execute runs tx in the block being built. A failed transaction leaves no trace in the state
// and is reported by the receipt.
func (c *Chain) Execute(tx *Transaction) *Receipt {
	receipt := c.execute(tx)
	c.receiptFeed.Send(receipt)
	return receipt
}

func (c *Chain) execute(tx *Transaction) *Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()

	blockCtx := c.nextBlock()
	env := xenv.New(c.state, blockCtx, tx.Caller, tx.Value).WithArgs(tx.Args)

	checkpoint := c.state.NewCheckpoint()
	output, err := builtin.Call(env, tx.To, tx.Method)

	receipt := &Receipt{
		Block:  blockCtx.Number,
		Index:  uint64(len(c.receipts)),
		Caller: tx.Caller,
		To:     tx.To,
		Method: tx.Method,
		Events: env.Events(),
		Output: output,
	}
	if err != nil {
		c.state.RevertTo(checkpoint)
		receipt.Reverted = true
		receipt.Events = nil
		receipt.Output = nil
		receipt.Message = err.Error()
		if kind := reverts.KindOf(err); kind != 0 {
			receipt.Kind = kind.String()
		} else {
			receipt.Kind = "InternalError"
			logger.Warn("transaction failed", "to", tx.To, "method", tx.Method, "err", err)
		}
		metricTxCounter().AddWithLabel(1, map[string]string{"method": tx.Method, "result": "reverted"})
	} else {
		metricTxCounter().AddWithLabel(1, map[string]string{"method": tx.Method, "result": "ok"})
	}
	if receipt.Events == nil {
		receipt.Events = []*xenv.Event{}
	}

	c.receipts = append(c.receipts, receipt)
	logger.Debug("transaction executed", "block", blockCtx.Number, "method", tx.Method, "reverted", receipt.Reverted)
	return receipt
}

// Call runs a read-only method against the current state, nothing it does is kept.
func (c *Chain) Call(caller, to fuse.Address, method string, args []byte) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := proxy.New(c.state, to).Record()
	if err != nil {
		return nil, err
	}
	if m, ok := builtin.Lookup(rec.Kind, method); ok && !m.ReadOnly {
		return nil, reverts.Invalid("%s is not read-only", method)
	}

	env := xenv.New(c.state, c.nextBlock(), caller, nil).WithArgs(args)
	checkpoint := c.state.NewCheckpoint()
	defer c.state.RevertTo(checkpoint)
	return builtin.Call(env, to, method)
}

// View runs fn with exclusive access to the state. Changes made by fn are discarded.
func (c *Chain) View(fn func(st *state.State, blockCtx xenv.BlockContext) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	checkpoint := c.state.NewCheckpoint()
	defer c.state.RevertTo(checkpoint)
	return fn(c.state, *c.nextBlock())
}

// Apply runs fn with exclusive access to the state in the block being built.
// Changes are kept unless fn fails.
func (c *Chain) Apply(fn func(st *state.State, blockCtx xenv.BlockContext) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	checkpoint := c.state.NewCheckpoint()
	if err := fn(c.state, *c.nextBlock()); err != nil {
		c.state.RevertTo(checkpoint)
		return err
	}
	return nil
}

// Balance returns the balance of addr.
func (c *Chain) Balance(addr fuse.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.GetBalance(addr)
}

// Seal commits the block being built and starts the next one.
func (c *Chain) Seal() (*Head, error) {
	ev, err := c.seal()
	if err != nil {
		return nil, err
	}
	c.blockFeed.Send(ev)
	cpy := *ev.Head
	return &cpy, nil
}

func (c *Chain) seal() (*BlockEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	blockCtx := c.nextBlock()
	version, err := c.state.Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit state")
	}
	head := &Head{
		Number:       blockCtx.Number,
		Time:         blockCtx.Time,
		StateVersion: version,
		TxCount:      uint64(len(c.receipts)),
	}
	if err := saveRLP(c.props, headKey, head); err != nil {
		return nil, errors.Wrap(err, "save head")
	}
	c.head = head
	receipts := c.receipts
	c.receipts = nil

	metricBlockHeight().Set(int64(head.Number))
	logger.Info("block sealed", "number", head.Number, "txs", head.TxCount, "version", version)

	cpy := *head
	return &BlockEvent{Head: &cpy, Receipts: receipts}, nil
}

// SubscribeBlocks delivers every sealed block to ch. Seal waits until ch accepts it, so ch must be drained promptly.
func (c *Chain) SubscribeBlocks(ch chan<- *BlockEvent) event.Subscription {
	return c.scope.Track(c.blockFeed.Subscribe(ch))
}

// SubscribeReceipts delivers every receipt to ch as soon as its transaction ran.
func (c *Chain) SubscribeReceipts(ch chan<- *Receipt) event.Subscription {
	return c.scope.Track(c.receiptFeed.Subscribe(ch))
}

// Close ends all subscriptions.
func (c *Chain) Close() {
	c.scope.Close()
}
