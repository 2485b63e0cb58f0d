// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package validators

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/api/utils"
	"github.com/fuseio/fuse-consensus/chain"
	"github.com/fuseio/fuse-consensus/fuse"
)

// ValidatorSet is the active and the pending validator list, one entry per seat.
type ValidatorSet struct {
	Validators []fuse.Address `json:"validators"`
	Pending    []fuse.Address `json:"pendingValidators"`
	Finalized  bool           `json:"isFinalized"`
}

// Status is the consensus parameters and the state of the current cycle.
type Status struct {
	Address                  fuse.Address `json:"address"`
	Owner                    fuse.Address `json:"owner"`
	MinStake                 *hexutil.Big `json:"minStake"`
	TotalStake               *hexutil.Big `json:"totalStake"`
	CycleDuration            uint64       `json:"cycleDuration"`
	SnapshotsPerCycle        uint64       `json:"snapshotsPerCycle"`
	TimeToSnapshot           uint64       `json:"timeToSnapshot"`
	CurrentCycleStartBlock   uint64       `json:"currentCycleStartBlock"`
	CurrentCycleEndBlock     uint64       `json:"currentCycleEndBlock"`
	IsCycleEnded             bool         `json:"isCycleEnded"`
	ShouldEmitInitiateChange bool         `json:"shouldEmitInitiateChange"`
	LastSnapshotTakenAtBlock uint64       `json:"lastSnapshotTakenAtBlock"`
	NextSnapshotID           uint64       `json:"nextSnapshotId"`
}

type Validators struct {
	chain    *chain.Chain
	registry fuse.Address
}

func New(c *chain.Chain, registryAddr fuse.Address) *Validators {
	return &Validators{c, registryAddr}
}

func (v *Validators) handleGetValidators(w http.ResponseWriter, _ *http.Request) error {
	var set ValidatorSet
	err := utils.View(v.chain, v.registry, func(comps *utils.Components) (err error) {
		if set.Validators, err = comps.Consensus.Validators(); err != nil {
			return err
		}
		if set.Pending, err = comps.Consensus.PendingValidators(); err != nil {
			return err
		}
		set.Finalized, err = comps.Consensus.IsFinalized()
		return err
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &set)
}

func (v *Validators) handleGetSnapshot(w http.ResponseWriter, req *http.Request) error {
	id, err := strconv.ParseUint(mux.Vars(req)["id"], 10, 64)
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "id"))
	}
	var validators []fuse.Address
	err = utils.View(v.chain, v.registry, func(comps *utils.Components) error {
		perCycle, err := comps.Consensus.SnapshotsPerCycle()
		if err != nil {
			return err
		}
		if id >= perCycle {
			return utils.NotFound(errors.Errorf("snapshot %d: out of range", id))
		}
		validators, err = comps.Consensus.SnapshotValidators(id)
		return err
	})
	if err != nil {
		return err
	}
	if validators == nil {
		validators = []fuse.Address{}
	}
	return utils.WriteJSON(w, validators)
}

func (v *Validators) handleGetStatus(w http.ResponseWriter, _ *http.Request) error {
	var s Status
	err := utils.View(v.chain, v.registry, func(comps *utils.Components) (err error) {
		c := comps.Consensus
		block := comps.Block.Number
		s.Address = c.Address()
		if s.Owner, err = c.Owner(); err != nil {
			return err
		}
		minStake, err := c.MinStake()
		if err != nil {
			return err
		}
		total, err := c.TotalStake()
		if err != nil {
			return err
		}
		s.MinStake, s.TotalStake = (*hexutil.Big)(minStake), (*hexutil.Big)(total)
		if s.CycleDuration, err = c.CycleDuration(); err != nil {
			return err
		}
		if s.SnapshotsPerCycle, err = c.SnapshotsPerCycle(); err != nil {
			return err
		}
		if s.TimeToSnapshot, err = c.TimeToSnapshot(); err != nil {
			return err
		}
		if s.CurrentCycleStartBlock, err = c.CurrentCycleStartBlock(); err != nil {
			return err
		}
		if s.CurrentCycleEndBlock, err = c.CurrentCycleEndBlock(); err != nil {
			return err
		}
		if s.IsCycleEnded, err = c.IsCycleEnded(block); err != nil {
			return err
		}
		if s.ShouldEmitInitiateChange, err = c.ShouldEmitInitiateChange(block); err != nil {
			return err
		}
		if s.LastSnapshotTakenAtBlock, err = c.LastSnapshotTakenAtBlock(); err != nil {
			return err
		}
		s.NextSnapshotID, err = c.NextSnapshotID()
		return err
	})
	if err != nil {
		return err
	}
	return utils.WriteJSON(w, &s)
}

func (v *Validators) Mount(root *mux.Router) {
	root.Path("/validators").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(v.handleGetValidators))
	root.Path("/validators/snapshots/{id}").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(v.handleGetSnapshot))
	root.Path("/consensus").Methods(http.MethodGet).HandlerFunc(utils.WrapHandlerFunc(v.handleGetStatus))
}
