// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"

	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

type addressArgs struct {
	Address fuse.Address `json:"address"`
}

// bigArg converts an optional numeric argument.
func bigArg(v *math.HexOrDecimal256) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return (*big.Int)(v)
}

func bigOut(v *big.Int, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(v), nil
}

func init() {
	defines := []struct {
		name     string
		readOnly bool
		run      func(env *xenv.Environment, c consensus.Contract) (any, error)
	}{
		{"initialize", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				MinStake          *math.HexOrDecimal256 `json:"minStake"`
				CycleDuration     uint64                `json:"cycleDuration"`
				SnapshotsPerCycle uint64                `json:"snapshotsPerCycle"`
				InitialValidator  fuse.Address          `json:"initialValidator"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.Initialize(env, bigArg(args.MinStake), args.CycleDuration, args.SnapshotsPerCycle, args.InitialValidator)
		}},
		{"setMinStake", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				MinStake *math.HexOrDecimal256 `json:"minStake"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.SetMinStake(env, bigArg(args.MinStake))
		}},
		{"setCycleDuration", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				CycleDuration uint64 `json:"cycleDuration"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.SetCycleDuration(env, args.CycleDuration)
		}},
		{"setSnapshotsPerCycle", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				SnapshotsPerCycle uint64 `json:"snapshotsPerCycle"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.SetSnapshotsPerCycle(env, args.SnapshotsPerCycle)
		}},
		{"setProxyStorage", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.SetProxyStorage(env, args.Address)
		}},
		{"stake", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return nil, c.Stake(env)
		}},
		{"withdraw", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				Amount *math.HexOrDecimal256 `json:"amount"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, c.Withdraw(env, bigArg(args.Amount))
		}},
		{"finalizeChange", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return nil, c.FinalizeChange(env)
		}},
		{"emitInitiateChange", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return nil, c.EmitInitiateChange(env)
		}},
		{"takeSnapshot", false, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return nil, c.TakeSnapshot(env)
		}},

		{"getValidators", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.Validators()
		}},
		{"getPendingValidators", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.PendingValidators()
		}},
		{"isValidator", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return c.IsValidator(args.Address)
		}},
		{"getValidatorState", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return c.ValidatorState(args.Address)
		}},
		{"stakeAmount", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return bigOut(c.StakeAmount(args.Address))
		}},
		{"totalStakeAmount", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return bigOut(c.TotalStake())
		}},
		{"getMinStake", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return bigOut(c.MinStake())
		}},
		{"getCycleDuration", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.CycleDuration()
		}},
		{"getSnapshotsPerCycle", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.SnapshotsPerCycle()
		}},
		{"isFinalized", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.IsFinalized()
		}},
		{"getCurrentCycleStartBlock", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.CurrentCycleStartBlock()
		}},
		{"getCurrentCycleEndBlock", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.CurrentCycleEndBlock()
		}},
		{"isCycleEnded", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return c.IsCycleEnded(env.BlockContext().Number)
		}},
		{"shouldEmitInitiateChange", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return c.ShouldEmitInitiateChange(env.BlockContext().Number)
		}},
		{"getEmitInitiateChangeCount", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return c.EmitInitiateChangeCount(args.Address, env.BlockContext().Number)
		}},
		{"getTimeToSnapshot", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.TimeToSnapshot()
		}},
		{"shouldTakeSnapshot", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			return c.ShouldTakeSnapshot(env.BlockContext().Number)
		}},
		{"getNextSnapshotId", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.NextSnapshotID()
		}},
		{"getSnapshotValidators", true, func(env *xenv.Environment, c consensus.Contract) (any, error) {
			var args struct {
				ID uint64 `json:"id"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			perCycle, err := c.SnapshotsPerCycle()
			if err != nil {
				return nil, err
			}
			if args.ID >= perCycle {
				return nil, reverts.Invalid("snapshot id %d out of range", args.ID)
			}
			return c.SnapshotValidators(args.ID)
		}},
		{"getProxyStorage", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.ProxyStorage()
		}},
		{"getSystemAddress", true, func(_ *xenv.Environment, c consensus.Contract) (any, error) {
			return c.SystemAddress(), nil
		}},
	}
	for _, def := range defines {
		run := def.run
		register(proxy.KindConsensus, &Method{
			Name:     def.name,
			ReadOnly: def.readOnly,
			run: func(env *xenv.Environment, p *proxy.Proxy) (any, error) {
				c, err := consensus.Catalog.Resolve(p)
				if err != nil {
					return nil, err
				}
				return run(env, c)
			},
		})
	}
}
