// Package machine is the proposal lifecycle state machine.
//
// A Machine is a pure value transformer: every transition takes a
// proposal by value and returns the next proposal together with the
// events describing what happened. On error the input proposal is
// returned unchanged and no events are produced. The machine keeps no
// state of its own and performs no I/O, so it is safe for concurrent
// use; serialising transitions on the same proposal is the host's job.
package machine

import (
	"fmt"
	"math"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/eligibility"
	"github.com/blockberries/dge/ledger"
	"github.com/blockberries/dge/types"
)

// Machine applies lifecycle transitions under a fixed parameter set
// and milestone schedule.
type Machine struct {
	params   types.Params
	schedule ledger.Schedule
}

// New validates the parameters and schedule and returns a Machine.
func New(params types.Params, schedule ledger.Schedule) (*Machine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", dge.ErrInvalidParams, err)
	}
	if schedule.Len() == 0 {
		return nil, fmt.Errorf("%w: no milestones", dge.ErrInvalidSchedule)
	}
	return &Machine{params: params, schedule: schedule}, nil
}

// Params returns the machine's parameter set.
func (m *Machine) Params() types.Params { return m.params }

// Schedule returns the machine's milestone schedule.
func (m *Machine) Schedule() ledger.Schedule { return m.schedule }

// Draft creates a new proposal in Draft. Eligibility is not checked
// until submission.
func (m *Machine) Draft(id string, founder types.Founder, requestedUSD float64) (types.Proposal, error) {
	if math.IsNaN(requestedUSD) || math.IsInf(requestedUSD, 0) || requestedUSD < 0 {
		return types.Proposal{}, fmt.Errorf("%w: %v", dge.ErrInvalidAmount, requestedUSD)
	}
	return types.Proposal{
		ID:           id,
		Founder:      founder,
		RequestedUSD: requestedUSD,
		Status:       types.StatusDraft,
		Milestones:   m.schedule.Len(),
	}, nil
}

// Assess evaluates a founder's request without touching any proposal.
func (m *Machine) Assess(founder types.Founder, requestedUSD float64) types.Assessment {
	return eligibility.Assess(m.params, founder.Reputation, requestedUSD)
}

// Ledger returns the tranche ledger of p.
func (m *Machine) Ledger(p types.Proposal) (ledger.Ledger, error) {
	return ledger.New(m.schedule, p.RequestedUSD, p.Completed)
}

// Allowed reports whether action is defined for proposals in status s.
func (m *Machine) Allowed(s types.Status, action types.Action) bool {
	_, ok := transitions[s][action]
	return ok
}

// Submit checks eligibility, locks the bond and required quorum, and
// opens the initial vote.
func (m *Machine) Submit(p types.Proposal, state types.ProtocolState) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionSubmit, input{state: state})
}

// ResolveInitialVote applies the initial funding vote. A passed vote
// releases the first tranche; a failed vote forfeits the bond and
// returns the proposal to Draft.
func (m *Machine) ResolveInitialVote(p types.Proposal, ballot types.Ballot) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionResolveInitialVote, input{ballot: ballot})
}

// RecordMilestoneSuccess releases the next tranche. Releasing the last
// tranche completes the grant.
func (m *Machine) RecordMilestoneSuccess(p types.Proposal) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionRecordMilestoneSuccess, input{})
}

// RecordMilestoneDefault opens a slashing vote on the next milestone.
func (m *Machine) RecordMilestoneDefault(p types.Proposal) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionRecordMilestoneDefault, input{})
}

// ResolveSlashingVote applies a slashing vote. Released funds are never
// clawed back.
func (m *Machine) ResolveSlashingVote(p types.Proposal, ballot types.Ballot) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionResolveSlashingVote, input{ballot: ballot})
}

// Withdraw abandons a Draft proposal.
func (m *Machine) Withdraw(p types.Proposal) (types.Proposal, []types.Event, error) {
	return m.apply(p, types.ActionWithdraw, input{})
}

// Apply dispatches an action by value. Ballot-carrying actions read
// ballot; Submit reads state.
func (m *Machine) Apply(p types.Proposal, action types.Action, state types.ProtocolState, ballot types.Ballot) (types.Proposal, []types.Event, error) {
	return m.apply(p, action, input{state: state, ballot: ballot})
}

func (m *Machine) apply(p types.Proposal, action types.Action, in input) (types.Proposal, []types.Event, error) {
	h, ok := transitions[p.Status][action]
	if !ok {
		return p, nil, &dge.InvalidTransitionError{ProposalID: p.ID, State: p.Status, Action: action}
	}
	next, events, err := h(m, p, in)
	if err != nil {
		return p, nil, err
	}
	return next, events, nil
}

// clamp bounds a reputation to [MinRequired, ScaleMax].
func (m *Machine) clamp(rep int64) int64 {
	return max(m.params.MinRequired, min(m.params.ScaleMax, rep))
}
