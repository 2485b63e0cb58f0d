// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/voting"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

type ballotArgs struct {
	ID    uint64       `json:"id"`
	Voter fuse.Address `json:"voter"`
}

func init() {
	defines := []struct {
		name     string
		readOnly bool
		run      func(env *xenv.Environment, v voting.Contract) (any, error)
	}{
		{"initialize", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args struct {
				MinBallotDurationCycles uint64 `json:"minBallotDurationCycles"`
				QuorumPolicy            string `json:"quorumPolicy"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			policy, err := voting.ParseQuorumPolicy(args.QuorumPolicy)
			if err != nil {
				return nil, reverts.Invalid("%v", err)
			}
			return nil, v.Initialize(env, args.MinBallotDurationCycles, policy)
		}},
		{"setProxyStorage", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, v.SetProxyStorage(env, args.Address)
		}},
		{"setMinBallotDuration", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args struct {
				Cycles uint64 `json:"cycles"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, v.SetMinBallotDuration(env, args.Cycles)
		}},
		{"newBallot", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args voting.NewBallotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.NewBallot(env, &args)
		}},
		{"vote", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args struct {
				ID     uint64        `json:"id"`
				Choice voting.Choice `json:"choice"`
			}
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return nil, v.Vote(env, args.ID, args.Choice)
		}},
		{"finalize", false, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.Finalize(env, args.ID)
		}},

		{"getBallotInfo", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.BallotInfo(args.ID, args.Voter, env.BlockContext().Number)
		}},
		{"canBeFinalizedNow", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.CanBeFinalizedNow(args.ID, env.BlockContext().Number)
		}},
		{"isValidVotingKey", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.IsValidVotingKey(args.Address)
		}},
		{"getQuorumState", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.QuorumState(args.ID)
		}},
		{"getTotalVoters", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.TotalVoters(args.ID)
		}},
		{"getVoterChoice", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args ballotArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.VoterChoice(args.ID, args.Voter)
		}},
		{"activeBallots", true, func(_ *xenv.Environment, v voting.Contract) (any, error) {
			return v.ActiveBallots()
		}},
		{"validatorActiveBallots", true, func(env *xenv.Environment, v voting.Contract) (any, error) {
			var args addressArgs
			if err := parseArgs(env, &args); err != nil {
				return nil, err
			}
			return v.ValidatorActiveBallots(args.Address)
		}},
		{"getBallotLimitPerValidator", true, func(_ *xenv.Environment, v voting.Contract) (any, error) {
			return v.BallotLimitPerValidator()
		}},
		{"getNextBallotId", true, func(_ *xenv.Environment, v voting.Contract) (any, error) {
			return v.NextBallotID()
		}},
		{"getMinBallotDuration", true, func(_ *xenv.Environment, v voting.Contract) (any, error) {
			return v.MinBallotDuration()
		}},
		{"getMaxBallotDuration", true, func(_ *xenv.Environment, v voting.Contract) (any, error) {
			return v.MaxBallotDuration(), nil
		}},
	}
	for _, def := range defines {
		run := def.run
		register(proxy.KindVoting, &Method{
			Name:     def.name,
			ReadOnly: def.readOnly,
			run: func(env *xenv.Environment, p *proxy.Proxy) (any, error) {
				v, err := voting.Catalog.Resolve(p)
				if err != nil {
					return nil, err
				}
				return run(env, v)
			},
		})
	}
}
