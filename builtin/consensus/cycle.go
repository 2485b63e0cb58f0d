// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import (
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
)

// TimeToSnapshot is the number of blocks between two snapshots.
// The remainder of the division is ignored.
func TimeToSnapshot(cycleDuration, snapshotsPerCycle uint64) uint64 {
	if snapshotsPerCycle == 0 {
		return 0
	}
	return cycleDuration / snapshotsPerCycle
}

// CycleEnded reports whether block is at or past the end of the current cycle.
func CycleEnded(block, cycleEndBlock uint64) bool {
	return block >= cycleEndBlock
}

// ShouldEmitChange is true once the cycle has ended and no change was emitted for it yet.
func ShouldEmitChange(block, cycleEndBlock, emittedFor uint64) bool {
	return CycleEnded(block, cycleEndBlock) && emittedFor != cycleEndBlock
}

// SnapshotDue reports whether enough blocks passed since the last snapshot.
func SnapshotDue(block, lastTakenAt, timeToSnapshot uint64) bool {
	return block >= lastTakenAt+timeToSnapshot
}

func validateCycle(cycleDuration, snapshotsPerCycle uint64) error {
	if cycleDuration == 0 {
		return reverts.Invalid("consensus: zero cycle duration")
	}
	if snapshotsPerCycle == 0 {
		return reverts.Invalid("consensus: zero snapshots per cycle")
	}
	if snapshotsPerCycle > cycleDuration {
		return reverts.Invalid("consensus: %d snapshots do not fit a cycle of %d blocks", snapshotsPerCycle, cycleDuration)
	}
	return nil
}

func (c *v1) CurrentCycleStartBlock() (uint64, error) {
	return c.cycleStart.Get()
}

func (c *v1) CurrentCycleEndBlock() (uint64, error) {
	return c.cycleEnd.Get()
}

func (c *v1) IsCycleEnded(block uint64) (bool, error) {
	end, err := c.cycleEnd.Get()
	if err != nil {
		return false, err
	}
	return CycleEnded(block, end), nil
}

func (c *v1) ShouldEmitInitiateChange(block uint64) (bool, error) {
	end, err := c.cycleEnd.Get()
	if err != nil {
		return false, err
	}
	emitted, err := c.changeEmittedFor.Get()
	if err != nil {
		return false, err
	}
	return ShouldEmitChange(block, end, emitted), nil
}

// EmitInitiateChangeCount is the number of active seats addr holds while a change is due, zero otherwise.
func (c *v1) EmitInitiateChangeCount(addr fuse.Address, block uint64) (uint64, error) {
	due, err := c.ShouldEmitInitiateChange(block)
	if err != nil || !due {
		return 0, err
	}
	return c.Seats(addr)
}

func (c *v1) TimeToSnapshot() (uint64, error) {
	return c.timeToSnapshot.Get()
}

func (c *v1) ShouldTakeSnapshot(block uint64) (bool, error) {
	last, err := c.lastSnapshotAt.Get()
	if err != nil {
		return false, err
	}
	interval, err := c.timeToSnapshot.Get()
	if err != nil {
		return false, err
	}
	return SnapshotDue(block, last, interval), nil
}

func (c *v1) LastSnapshotTakenAtBlock() (uint64, error) {
	return c.lastSnapshotAt.Get()
}

func (c *v1) NextSnapshotID() (uint64, error) {
	return c.nextSnapshotID.Get()
}

func (c *v1) SnapshotValidators(id uint64) ([]fuse.Address, error) {
	return c.snapshots.Get(solidity.Uint64Key(id))
}

// rollCycle starts a new cycle at block once the current one has ended.
func (c *v1) rollCycle(block uint64) error {
	ended, err := c.IsCycleEnded(block)
	if err != nil || !ended {
		return err
	}
	duration, err := c.cycleDuration.Get()
	if err != nil {
		return err
	}
	c.cycleStart.Set(block)
	c.cycleEnd.Set(block + duration)
	logger.Info("cycle rolled", "start", block, "end", block+duration)
	return nil
}
