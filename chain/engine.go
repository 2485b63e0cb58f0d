// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import (
	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/state"
	"github.com/fuseio/fuse-consensus/xenv"
)

// Engine produces blocks. Before sealing it performs the duties of the system caller
// on the consensus component: taking due snapshots and finalizing announced changes.
type Engine struct {
	chain     *Chain
	consensus fuse.Address
	validator *fuse.Address
}

// NewEngine creates an engine driving the consensus component deployed at consensusAddr.
func NewEngine(c *Chain, consensusAddr fuse.Address) *Engine {
	return &Engine{chain: c, consensus: consensusAddr}
}

// WithValidator makes the engine announce due validator changes on behalf of addr.
func (e *Engine) WithValidator(addr fuse.Address) *Engine {
	e.validator = &addr
	return e
}

type duties struct {
	snapshot bool
	finalize bool
	announce bool
	seats    int
}

func (e *Engine) duties() (*duties, error) {
	var d duties
	err := e.chain.View(func(st *state.State, blockCtx xenv.BlockContext) error {
		c, err := consensus.Bind(st, e.consensus)
		if err != nil {
			return err
		}
		if d.snapshot, err = c.ShouldTakeSnapshot(blockCtx.Number); err != nil {
			return err
		}
		finalized, err := c.IsFinalized()
		if err != nil {
			return err
		}
		d.finalize = !finalized
		validators, err := c.Validators()
		if err != nil {
			return err
		}
		d.seats = len(validators)
		if e.validator != nil {
			count, err := c.EmitInitiateChangeCount(*e.validator, blockCtx.Number)
			if err != nil {
				return err
			}
			d.announce = count > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (e *Engine) call(caller fuse.Address, method string) {
	r := e.chain.Execute(&Transaction{Caller: caller, To: e.consensus, Method: method})
	if r.Reverted {
		logger.Warn("engine call reverted", "method", method, "kind", r.Kind, "msg", r.Message)
	}
}

// Produce seals the next block.
func (e *Engine) Produce() (*Head, error) {
	if !e.chain.Initialized() {
		return nil, ErrNotInitialized
	}
	d, err := e.duties()
	if err != nil {
		return nil, err
	}
	if d.finalize {
		e.call(fuse.SystemAddress, "finalizeChange")
	}
	if d.snapshot {
		e.call(fuse.SystemAddress, "takeSnapshot")
	}
	if d.announce {
		e.call(*e.validator, "emitInitiateChange")
	}
	metricSeats().Set(int64(d.seats))
	return e.chain.Seal()
}
