// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package voting

import (
	"encoding/binary"
	"slices"

	"github.com/pkg/errors"

	"github.com/fuseio/fuse-consensus/builtin/authz"
	"github.com/fuseio/fuse-consensus/builtin/consensus"
	"github.com/fuseio/fuse-consensus/builtin/proxy"
	"github.com/fuseio/fuse-consensus/builtin/registry"
	"github.com/fuseio/fuse-consensus/builtin/reverts"
	"github.com/fuseio/fuse-consensus/builtin/solidity"
	"github.com/fuseio/fuse-consensus/fuse"
	"github.com/fuseio/fuse-consensus/xenv"
)

func slot(name string) fuse.Bytes32 {
	return solidity.NameToSlot("voting." + name)
}

type v1 struct {
	ctx *solidity.Context

	initialized  *solidity.Bool
	owner        *solidity.Address
	proxyStorage *solidity.Address
	minDuration  *solidity.Uint64
	policy       *solidity.Uint64
	nextID       *solidity.Uint64

	ballots       *solidity.Mapping[solidity.Uint64Key, *Ballot]
	voters        *solidity.Mapping[solidity.Uint64Key, []fuse.Address]
	choices       *solidity.Mapping[fuse.Bytes32, Choice]
	activeIDs     *solidity.Value[[]uint64]
	activeCreated *solidity.Mapping[fuse.Address, uint64]
}

func newV1(ctx *solidity.Context) *v1 {
	return &v1{
		ctx:           ctx,
		initialized:   solidity.NewBool(ctx, slot("initialized")),
		owner:         solidity.NewAddress(ctx, slot("owner")),
		proxyStorage:  solidity.NewAddress(ctx, slot("proxyStorage")),
		minDuration:   solidity.NewUint64(ctx, slot("minBallotDuration")),
		policy:        solidity.NewUint64(ctx, slot("quorumPolicy")),
		nextID:        solidity.NewUint64(ctx, slot("nextBallotId")),
		ballots:       solidity.NewMapping[solidity.Uint64Key, *Ballot](ctx, slot("ballots")),
		voters:        solidity.NewMapping[solidity.Uint64Key, []fuse.Address](ctx, slot("voters")),
		choices:       solidity.NewMapping[fuse.Bytes32, Choice](ctx, slot("choices")),
		activeIDs:     solidity.NewValue[[]uint64](ctx, slot("activeBallots")),
		activeCreated: solidity.NewMapping[fuse.Address, uint64](ctx, slot("validatorActiveBallots")),
	}
}

func choiceKey(id uint64, voter fuse.Address) fuse.Bytes32 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], id)
	return fuse.Blake2b(b[:], voter.Bytes())
}

func (v *v1) Address() fuse.Address {
	return v.ctx.Address()
}

func (v *v1) IsInitialized() (bool, error) {
	return v.initialized.Get()
}

func (v *v1) Owner() (fuse.Address, error) {
	return v.owner.Get()
}

func (v *v1) ProxyStorage() (fuse.Address, error) {
	return v.proxyStorage.Get()
}

func (v *v1) MinBallotDuration() (uint64, error) {
	return v.minDuration.Get()
}

func (v *v1) MaxBallotDuration() uint64 {
	return fuse.MaxBallotDurationCycles
}

func (v *v1) QuorumPolicy() (QuorumPolicy, error) {
	p, err := v.policy.Get()
	return QuorumPolicy(p), err
}

func (v *v1) registry() (registry.Contract, error) {
	ps, err := v.proxyStorage.Get()
	if err != nil {
		return nil, err
	}
	if ps.IsZero() {
		return nil, reverts.Conflict("voting: proxy storage not set")
	}
	return registry.Bind(v.ctx.State(), ps)
}

func (v *v1) consensus() (consensus.Contract, error) {
	reg, err := v.registry()
	if err != nil {
		return nil, err
	}
	addr, err := reg.ContractAddress(registry.RoleConsensus)
	if err != nil {
		return nil, err
	}
	return consensus.Bind(v.ctx.State(), addr)
}

func (v *v1) governance() (fuse.Address, error) {
	ps, err := v.proxyStorage.Get()
	if err != nil || ps.IsZero() {
		return fuse.Address{}, err
	}
	reg, err := v.registry()
	if err != nil {
		return fuse.Address{}, err
	}
	return reg.ContractAddress(registry.RoleVoting)
}

func (v *v1) isValidator(addr fuse.Address) (bool, error) {
	c, err := v.consensus()
	if err != nil {
		return false, err
	}
	return c.IsValidator(addr)
}

func validateMinDuration(cycles uint64) error {
	if cycles == 0 || cycles > fuse.MaxBallotDurationCycles {
		return reverts.Invalid("voting: min ballot duration %d outside [1, %d]", cycles, fuse.MaxBallotDurationCycles)
	}
	return nil
}

func (v *v1) Initialize(env *xenv.Environment, minBallotDurationCycles uint64, policy QuorumPolicy) error {
	initialized, err := v.initialized.Get()
	if err != nil {
		return err
	}
	if initialized {
		return reverts.Conflict("voting: already initialized")
	}
	if err := validateMinDuration(minBallotDurationCycles); err != nil {
		return err
	}
	if policy != PolicySeats && policy != PolicyAddresses {
		return reverts.Invalid("voting: unknown quorum policy %d", policy)
	}
	caller := env.Caller()
	v.initialized.Set(true)
	v.owner.Set(&caller)
	v.minDuration.Set(minBallotDurationCycles)
	v.policy.Set(uint64(policy))
	logger.Info("voting initialized", "address", v.ctx.Address(), "owner", caller, "minBallotDuration", minBallotDurationCycles, "policy", policy)
	return nil
}

func (v *v1) SetProxyStorage(env *xenv.Environment, addr fuse.Address) error {
	if err := authz.Require(env.Caller(), "setProxyStorage", authz.Owner(v.Owner)); err != nil {
		return err
	}
	current, err := v.proxyStorage.Get()
	if err != nil {
		return err
	}
	if !current.IsZero() {
		return reverts.Conflict("voting: proxy storage already set")
	}
	if addr.IsZero() {
		return reverts.Invalid("voting: zero proxy storage")
	}
	v.proxyStorage.Set(&addr)
	return nil
}

func (v *v1) SetMinBallotDuration(env *xenv.Environment, cycles uint64) error {
	if err := authz.Require(env.Caller(), "setMinBallotDuration", authz.Owner(v.Owner), authz.Governance(v.governance)); err != nil {
		return err
	}
	if err := validateMinDuration(cycles); err != nil {
		return err
	}
	v.minDuration.Set(cycles)
	logger.Info("min ballot duration set", "cycles", cycles)
	return nil
}

// BallotLimitPerValidator is floor(maxLimitOfBallots / active seats).
func (v *v1) BallotLimitPerValidator() (uint64, error) {
	c, err := v.consensus()
	if err != nil {
		return 0, err
	}
	validators, err := c.Validators()
	if err != nil {
		return 0, err
	}
	if len(validators) == 0 {
		return fuse.MaxLimitOfBallots, nil
	}
	return fuse.MaxLimitOfBallots / uint64(len(validators)), nil
}

func (v *v1) validateSubject(subject Subject, value fuse.Bytes32) error {
	if value.IsZero() {
		return reverts.Invalid("voting: zero proposed value")
	}
	switch {
	case subject.IsRole():
		reg, err := v.registry()
		if err != nil {
			return err
		}
		target, err := reg.ContractAddress(registry.Role(subject))
		if err != nil {
			return err
		}
		rec, err := proxy.New(v.ctx.State(), target).Record()
		if err != nil {
			return err
		}
		if rec.Kind == proxy.KindNone {
			return reverts.Invalid("voting: no component serves %s", subject)
		}
		if !proxy.IsKnownImplementation(rec.Kind, value.Address()) {
			return reverts.Invalid("voting: unknown %s implementation %s", subject, value.Address())
		}
		return nil
	case subject.IsParameter():
		if !value.Big().IsUint64() && subject != SubjectMinStake {
			return reverts.Invalid("voting: %s value out of range", subject)
		}
		if subject == SubjectMinBallotDuration {
			return validateMinDuration(value.Big().Uint64())
		}
		return nil
	default:
		return reverts.Invalid("voting: unknown subject %d", subject)
	}
}

func (v *v1) NewBallot(env *xenv.Environment, args *NewBallotArgs) (uint64, error) {
	creator := env.Caller()
	if err := authz.Require(creator, "newBallot", authz.Validator(v.isValidator)); err != nil {
		return 0, err
	}
	if args.StartAfterCycles == 0 {
		return 0, reverts.Invalid("voting: start after cycles must be positive")
	}
	minDuration, err := v.minDuration.Get()
	if err != nil {
		return 0, err
	}
	if args.DurationCycles < minDuration || args.DurationCycles > fuse.MaxBallotDurationCycles {
		return 0, reverts.Invalid("voting: duration %d outside [%d, %d]", args.DurationCycles, minDuration, fuse.MaxBallotDurationCycles)
	}
	if err := v.validateSubject(args.Subject, args.Value); err != nil {
		return 0, err
	}

	limit, err := v.BallotLimitPerValidator()
	if err != nil {
		return 0, err
	}
	created, err := v.activeCreated.Get(creator)
	if err != nil {
		return 0, err
	}
	if created >= limit {
		return 0, reverts.Conflict("voting: %s reached the limit of %d active ballots", creator, limit)
	}

	c, err := v.consensus()
	if err != nil {
		return 0, err
	}
	cycleEnd, err := c.CurrentCycleEndBlock()
	if err != nil {
		return 0, err
	}
	cycleDuration, err := c.CycleDuration()
	if err != nil {
		return 0, err
	}
	start := cycleEnd + args.StartAfterCycles*cycleDuration
	end := start + args.DurationCycles*cycleDuration

	id, err := v.nextID.Get()
	if err != nil {
		return 0, err
	}
	ballot := &Ballot{
		ID:          id,
		Creator:     creator,
		StartBlock:  start,
		EndBlock:    end,
		Subject:     args.Subject,
		Value:       args.Value,
		Description: args.Description,
		State:       QuorumInProgress,
	}
	if err := v.ballots.Set(solidity.Uint64Key(id), ballot); err != nil {
		return 0, err
	}
	v.nextID.Set(id + 1)
	if err := v.activeCreated.Set(creator, created+1); err != nil {
		return 0, err
	}
	active, err := v.activeIDs.Get()
	if err != nil {
		return 0, err
	}
	if err := v.activeIDs.Set(append(active, id)); err != nil {
		return 0, err
	}

	env.Emit(v.ctx.Address(), "BallotCreated", &BallotCreatedEvent{
		ID:         id,
		Creator:    creator,
		Subject:    args.Subject,
		Value:      args.Value,
		StartBlock: start,
		EndBlock:   end,
	})
	logger.Info("ballot created", "id", id, "creator", creator, "subject", args.Subject, "start", start, "end", end)
	return id, nil
}

func (v *v1) getBallot(id uint64) (*Ballot, error) {
	b, err := v.Ballot(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, reverts.Invalid("voting: unknown ballot %d", id)
	}
	return b, nil
}

// Vote records a choice. Any caller may vote, only validators count at finalization.
func (v *v1) Vote(env *xenv.Environment, id uint64, choice Choice) error {
	ballot, err := v.getBallot(id)
	if err != nil {
		return err
	}
	if !choice.Valid() {
		return reverts.Invalid("voting: invalid choice %d", choice)
	}
	block := env.BlockContext().Number
	if ballot.Finalized {
		return reverts.Conflict("voting: ballot %d is finalized", id)
	}
	if block < ballot.StartBlock || block > ballot.EndBlock {
		return reverts.Conflict("voting: ballot %d is open in blocks [%d, %d]", id, ballot.StartBlock, ballot.EndBlock)
	}
	voter := env.Caller()
	key := choiceKey(id, voter)
	prev, err := v.choices.Get(key)
	if err != nil {
		return err
	}
	if prev != ChoiceInvalid {
		return reverts.Conflict("voting: %s already voted on ballot %d", voter, id)
	}

	if err := v.choices.Set(key, choice); err != nil {
		return err
	}
	voters, err := v.voters.Get(solidity.Uint64Key(id))
	if err != nil {
		return err
	}
	if err := v.voters.Set(solidity.Uint64Key(id), append(voters, voter)); err != nil {
		return err
	}
	ballot.TotalVoters++
	if choice == ChoiceAccept {
		ballot.AcceptCount++
	} else {
		ballot.RejectCount++
	}
	if err := v.ballots.Set(solidity.Uint64Key(id), ballot); err != nil {
		return err
	}
	env.Emit(v.ctx.Address(), "VoteCast", &VoteCastEvent{ID: id, Voter: voter, Choice: choice})
	logger.Debug("vote cast", "id", id, "voter", voter, "choice", choice)
	return nil
}

// Finalize decides a ballot against the active set at call time and applies it when accepted.
func (v *v1) Finalize(env *xenv.Environment, id uint64) (QuorumState, error) {
	caller := env.Caller()
	if err := authz.Require(caller, "finalize", authz.Validator(v.isValidator)); err != nil {
		return QuorumInvalid, err
	}
	ballot, err := v.getBallot(id)
	if err != nil {
		return QuorumInvalid, err
	}
	if ballot.Finalized {
		return QuorumInvalid, reverts.Conflict("voting: ballot %d already finalized", id)
	}

	c, err := v.consensus()
	if err != nil {
		return QuorumInvalid, err
	}
	validators, err := c.Validators()
	if err != nil {
		return QuorumInvalid, err
	}
	voters, err := v.voters.Get(solidity.Uint64Key(id))
	if err != nil {
		return QuorumInvalid, err
	}

	if !finalizable(ballot, env.BlockContext().Number, validators, voters) {
		return QuorumInvalid, reverts.Conflict("voting: ballot %d can be finalized after block %d", id, ballot.EndBlock)
	}

	policy, err := v.QuorumPolicy()
	if err != nil {
		return QuorumInvalid, err
	}
	var accepts uint64
	for _, voter := range voters {
		if !slices.Contains(validators, voter) {
			continue
		}
		choice, err := v.choices.Get(choiceKey(id, voter))
		if err != nil {
			return QuorumInvalid, err
		}
		if choice == ChoiceAccept {
			accepts++
		}
	}
	base := policy.Base(validators)

	ballot.Finalized = true
	ballot.State = QuorumRejected
	if Accepted(accepts, base) {
		ballot.State = QuorumAccepted
		if err := v.apply(env, ballot); err != nil {
			return QuorumInvalid, errors.Wrapf(err, "apply ballot %d", id)
		}
	}
	if err := v.ballots.Set(solidity.Uint64Key(id), ballot); err != nil {
		return QuorumInvalid, err
	}
	if err := v.release(ballot); err != nil {
		return QuorumInvalid, err
	}

	env.Emit(v.ctx.Address(), "BallotFinalized", &BallotFinalizedEvent{
		ID:      id,
		State:   ballot.State,
		Accepts: accepts,
		Base:    base,
		By:      caller,
	})
	logger.Info("ballot finalized", "id", id, "state", ballot.State, "accepts", accepts, "base", base)
	return ballot.State, nil
}

// finalizable is true for an open ballot once its window passed or every active validator voted.
func finalizable(ballot *Ballot, block uint64, validators, voters []fuse.Address) bool {
	if ballot.Finalized {
		return false
	}
	return block > ballot.EndBlock || allVoted(validators, voters)
}

// allVoted reports whether every distinct active validator voted.
func allVoted(validators, voters []fuse.Address) bool {
	for _, val := range distinct(validators) {
		if !slices.Contains(voters, val) {
			return false
		}
	}
	return true
}

// release frees the creator's quota and drops the ballot from the active list.
func (v *v1) release(ballot *Ballot) error {
	created, err := v.activeCreated.Get(ballot.Creator)
	if err != nil {
		return err
	}
	if created > 0 {
		if err := v.activeCreated.Set(ballot.Creator, created-1); err != nil {
			return err
		}
	}
	active, err := v.activeIDs.Get()
	if err != nil {
		return err
	}
	return v.activeIDs.Set(slices.DeleteFunc(active, func(id uint64) bool { return id == ballot.ID }))
}

// apply performs the change of an accepted ballot, acting as the governance component.
func (v *v1) apply(env *xenv.Environment, ballot *Ballot) error {
	self := env.As(v.ctx.Address())
	switch {
	case ballot.Subject.IsRole():
		reg, err := v.registry()
		if err != nil {
			return err
		}
		_, err = reg.SetContractAddress(self, registry.Role(ballot.Subject), ballot.Value.Address())
		return err
	case ballot.Subject == SubjectMinBallotDuration:
		return v.SetMinBallotDuration(self, ballot.Value.Big().Uint64())
	}

	c, err := v.consensus()
	if err != nil {
		return err
	}
	switch ballot.Subject {
	case SubjectMinStake:
		return c.SetMinStake(self, ballot.Value.Big())
	case SubjectCycleDuration:
		return c.SetCycleDuration(self, ballot.Value.Big().Uint64())
	case SubjectSnapshotsPerCycle:
		return c.SetSnapshotsPerCycle(self, ballot.Value.Big().Uint64())
	default:
		return reverts.Invalid("voting: unknown subject %d", ballot.Subject)
	}
}

// Ballot returns nil for an unknown id.
func (v *v1) Ballot(id uint64) (*Ballot, error) {
	b, err := v.ballots.Get(solidity.Uint64Key(id))
	if err != nil {
		return nil, err
	}
	if b.Creator.IsZero() {
		return nil, nil
	}
	return b, nil
}

// BallotInfo describes ballot id for voter as of block.
func (v *v1) BallotInfo(id uint64, voter fuse.Address, block uint64) (*BallotInfo, error) {
	b, err := v.getBallot(id)
	if err != nil {
		return nil, err
	}
	choice, err := v.choices.Get(choiceKey(id, voter))
	if err != nil {
		return nil, err
	}
	now, err := v.CanBeFinalizedNow(id, block)
	if err != nil {
		return nil, err
	}
	return &BallotInfo{Ballot: b, AlreadyVoted: choice != ChoiceInvalid, Choice: choice, CanBeFinalizedNow: now}, nil
}

func (v *v1) CanBeFinalizedNow(id uint64, block uint64) (bool, error) {
	b, err := v.getBallot(id)
	if err != nil || b.Finalized {
		return false, err
	}
	c, err := v.consensus()
	if err != nil {
		return false, err
	}
	validators, err := c.Validators()
	if err != nil {
		return false, err
	}
	voters, err := v.voters.Get(solidity.Uint64Key(id))
	if err != nil {
		return false, err
	}
	return finalizable(b, block, validators, voters), nil
}

// IsValidVotingKey reports whether addr may create and finalize ballots.
func (v *v1) IsValidVotingKey(addr fuse.Address) (bool, error) {
	return v.isValidator(addr)
}

func (v *v1) QuorumState(id uint64) (QuorumState, error) {
	b, err := v.getBallot(id)
	if err != nil {
		return QuorumInvalid, err
	}
	return b.State, nil
}

func (v *v1) TotalVoters(id uint64) (uint64, error) {
	b, err := v.getBallot(id)
	if err != nil {
		return 0, err
	}
	return b.TotalVoters, nil
}

func (v *v1) VoterChoice(id uint64, voter fuse.Address) (Choice, error) {
	if _, err := v.getBallot(id); err != nil {
		return ChoiceInvalid, err
	}
	return v.choices.Get(choiceKey(id, voter))
}

func (v *v1) Voters(id uint64) ([]fuse.Address, error) {
	return v.voters.Get(solidity.Uint64Key(id))
}

func (v *v1) ActiveBallots() (uint64, error) {
	ids, err := v.activeIDs.Get()
	return uint64(len(ids)), err
}

func (v *v1) ActiveBallotIDs() ([]uint64, error) {
	return v.activeIDs.Get()
}

func (v *v1) ValidatorActiveBallots(addr fuse.Address) (uint64, error) {
	return v.activeCreated.Get(addr)
}

func (v *v1) NextBallotID() (uint64, error) {
	return v.nextID.Get()
}
