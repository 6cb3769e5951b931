package machine

import (
	"fmt"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/calc"
	"github.com/blockberries/dge/eligibility"
	"github.com/blockberries/dge/types"

	"github.com/shopspring/decimal"
)

type input struct {
	state  types.ProtocolState
	ballot types.Ballot
}

type handler func(m *Machine, p types.Proposal, in input) (types.Proposal, []types.Event, error)

// transitions is the complete lifecycle table. Any (status, action)
// pair missing here is an InvalidTransitionError.
var transitions = map[types.Status]map[types.Action]handler{
	types.StatusDraft: {
		types.ActionSubmit:   (*Machine).submit,
		types.ActionWithdraw: (*Machine).withdraw,
	},
	types.StatusSubmitted: {
		types.ActionResolveInitialVote: (*Machine).resolveInitialVote,
	},
	types.StatusApproved: {
		types.ActionRecordMilestoneSuccess: (*Machine).recordMilestoneSuccess,
		types.ActionRecordMilestoneDefault: (*Machine).recordMilestoneDefault,
	},
	types.StatusSlashingVote: {
		types.ActionResolveSlashingVote: (*Machine).resolveSlashingVote,
	},
}

func (m *Machine) submit(p types.Proposal, in input) (types.Proposal, []types.Event, error) {
	a := eligibility.Assess(m.params, p.Founder.Reputation, p.RequestedUSD)
	if !a.Eligibility.Eligible {
		return p, nil, &dge.IneligibleSubmissionError{ProposalID: p.ID, Reasons: a.Eligibility.Reasons, Cap: a.Cap}
	}
	bond, err := calc.Bond(m.params, in.state.TokenPriceUSD)
	if err != nil {
		return p, nil, err
	}
	quorum, err := calc.Quorum(m.params, in.state.CirculatingSupply)
	if err != nil {
		return p, nil, err
	}

	next := p
	next.Status = types.StatusSubmitted
	next.BondTokens = bond
	next.RequiredQuorum = quorum
	next.Bond = types.BondLocked
	next.Completed = 0
	next.Milestones = m.schedule.Len()
	next.Attempts++

	ev := newEvent(types.EventProposalSubmitted, next,
		types.IntAttr("bond_tokens", bond),
		types.FloatAttr("required_quorum", quorum),
		types.IntAttr("attempt", int64(next.Attempts)),
		types.IntAttr("cap", a.Cap),
	)
	return next, []types.Event{ev}, nil
}

func (m *Machine) withdraw(p types.Proposal, _ input) (types.Proposal, []types.Event, error) {
	next := p
	next.Status = types.StatusRejected
	ev := newEvent(types.EventProposalWithdrawn, next,
		types.IntAttr("attempts", int64(next.Attempts)),
	)
	return next, []types.Event{ev}, nil
}

func (m *Machine) resolveInitialVote(p types.Proposal, in input) (types.Proposal, []types.Event, error) {
	if err := validateBallot(in.ballot); err != nil {
		return p, nil, err
	}
	if !in.ballot.Passed {
		next := p
		next.Status = types.StatusDraft
		next.Bond = types.BondForfeited
		ev := newEvent(types.EventVoteFailed, next,
			types.FloatAttr("required_quorum", p.RequiredQuorum),
			types.FloatAttr("turnout", in.ballot.Turnout),
			types.IntAttr("bond_forfeited", p.BondTokens),
		)
		return next, []types.Event{ev}, nil
	}

	next := p
	next.Status = types.StatusApproved
	events := []types.Event{newEvent(types.EventVotePassed, next,
		types.FloatAttr("required_quorum", p.RequiredQuorum),
		types.FloatAttr("turnout", in.ballot.Turnout),
	)}
	return m.release(next, events)
}

func (m *Machine) recordMilestoneSuccess(p types.Proposal, _ input) (types.Proposal, []types.Event, error) {
	if p.Completed >= m.schedule.Len() {
		return p, nil, &dge.InvalidTransitionError{ProposalID: p.ID, State: p.Status, Action: types.ActionRecordMilestoneSuccess}
	}
	return m.release(p, nil)
}

// release pays out the next tranche and completes the grant when it
// was the last one.
func (m *Machine) release(p types.Proposal, events []types.Event) (types.Proposal, []types.Event, error) {
	l, err := m.Ledger(p)
	if err != nil {
		return p, nil, err
	}
	l, amount, err := l.Advance()
	if err != nil {
		return p, nil, fmt.Errorf("release %s: %w", p.ID, err)
	}

	next := p
	next.Completed = l.Completed()
	milestone, _ := m.schedule.Milestone(next.Completed)
	events = append(events, newEvent(types.EventMilestoneReleased, next,
		types.IntAttr("index", int64(next.Completed)),
		types.Attr("milestone", milestone.Name),
		types.Attr("amount", money(amount)),
		types.Attr("released", money(l.Released())),
		types.Attr("remaining", money(l.Remaining())),
	))
	if !l.Done() {
		return next, events, nil
	}

	previous := next.Founder.Reputation
	next.Founder.Reputation = m.clamp(previous + m.params.Boost)
	next.Status = types.StatusCompleted
	next.Bond = types.BondReturned
	events = append(events, newEvent(types.EventGrantCompleted, next,
		types.IntAttr("previous_reputation", previous),
		types.IntAttr("new_reputation", next.Founder.Reputation),
		types.IntAttr("bond_returned", next.BondTokens),
		types.Attr("released", money(l.Released())),
	))
	return next, events, nil
}

func (m *Machine) recordMilestoneDefault(p types.Proposal, _ input) (types.Proposal, []types.Event, error) {
	if p.Completed >= m.schedule.Len() {
		return p, nil, &dge.InvalidTransitionError{ProposalID: p.ID, State: p.Status, Action: types.ActionRecordMilestoneDefault}
	}
	l, err := m.Ledger(p)
	if err != nil {
		return p, nil, err
	}
	next := p
	next.Status = types.StatusSlashingVote
	milestone, _ := m.schedule.Milestone(p.Completed + 1)
	ev := newEvent(types.EventMilestoneDefault, next,
		types.IntAttr("index", int64(p.Completed+1)),
		types.Attr("milestone", milestone.Name),
		types.Attr("released", money(l.Released())),
	)
	return next, []types.Event{ev}, nil
}

func (m *Machine) resolveSlashingVote(p types.Proposal, in input) (types.Proposal, []types.Event, error) {
	if err := validateBallot(in.ballot); err != nil {
		return p, nil, err
	}
	l, err := m.Ledger(p)
	if err != nil {
		return p, nil, err
	}

	next := p
	if !in.ballot.Passed {
		next.Status = types.StatusForgiven
		next.Bond = types.BondReturned
		ev := newEvent(types.EventForgiven, next,
			types.FloatAttr("turnout", in.ballot.Turnout),
			types.IntAttr("bond_returned", p.BondTokens),
			types.Attr("released", money(l.Released())),
		)
		return next, []types.Event{ev}, nil
	}

	previous := next.Founder.Reputation
	next.Founder.Reputation = m.clamp(previous - m.params.Penalty)
	next.Status = types.StatusSlashed
	next.Bond = types.BondForfeited
	ev := newEvent(types.EventSlashed, next,
		types.FloatAttr("turnout", in.ballot.Turnout),
		types.IntAttr("previous_reputation", previous),
		types.IntAttr("new_reputation", next.Founder.Reputation),
		types.IntAttr("bond_forfeited", p.BondTokens),
		types.Attr("released", money(l.Released())),
	)
	return next, []types.Event{ev}, nil
}

func validateBallot(b types.Ballot) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("%w: %v", dge.ErrInvalidTurnout, err)
	}
	return nil
}

// newEvent builds an event carrying the indexed proposal and founder
// ids ahead of the given attributes.
func newEvent(kind string, p types.Proposal, attrs ...types.EventAttribute) types.Event {
	all := make([]types.EventAttribute, 0, len(attrs)+3)
	all = append(all,
		types.IndexedAttr("proposal", p.ID),
		types.IndexedAttr("founder", p.Founder.ID),
		types.Attr("status", p.Status.String()),
	)
	return types.Event{Kind: kind, Attributes: append(all, attrs...)}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
