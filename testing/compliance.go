package dgetest

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"
)

// RunComplianceSuite runs the standard lifecycle scenarios against an
// engine to verify its observable behaviour.
//
// The factory must return a fresh engine for each subtest, configured
// with default parameters, the default four-milestone schedule, and
// oracles reporting DefaultPrice and DefaultSupply.
func RunComplianceSuite(t *testing.T, factory func(t *testing.T) dge.Engine) {
	t.Helper()

	t.Run("submit_and_approve", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("alice", 10)
		p := h.Draft("alice", 1000)

		res := h.MustSubmit(p.ID)
		if res.Proposal.BondTokens != 600 {
			t.Errorf("expected bond 600, got %d", res.Proposal.BondTokens)
		}
		if res.Proposal.Status != types.StatusSubmitted {
			t.Errorf("expected Submitted, got %s", res.Proposal.Status)
		}

		res = h.MustPass(p.ID, 0.2)
		if res.Proposal.Status != types.StatusApproved {
			t.Errorf("expected Approved, got %s", res.Proposal.Status)
		}
		if res.Proposal.Completed != 1 {
			t.Errorf("expected 1 completed milestone, got %d", res.Proposal.Completed)
		}
		if v := h.Ledger(p.ID); v.Released != "250.00" {
			t.Errorf("expected released 250.00, got %s", v.Released)
		}
		if _, ok := Event(res.Events, types.EventMilestoneReleased); !ok {
			t.Error("expected a milestone_released event")
		}
	})

	t.Run("below_reputation_floor", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("bob", 5)

		a, err := h.Engine().Assess(context.Background(), "bob", 500)
		if err != nil {
			t.Fatalf("Assess failed: %v", err)
		}
		if a.Cap != 0 || a.Eligibility.Eligible {
			t.Errorf("expected cap 0 and ineligible, got %+v", a)
		}

		p := h.Draft("bob", 500)
		_, err = h.Engine().Submit(context.Background(), p.ID)
		inel, ok := dge.IsIneligible(err)
		if !ok {
			t.Fatalf("expected IneligibleSubmissionError, got %v", err)
		}
		if !inel.Reasons.Has(types.ReasonBelowReputationFloor) {
			t.Errorf("expected BelowReputationFloor, got %s", inel.Reasons)
		}
		if got := h.Proposal(p.ID).Status; got != types.StatusDraft {
			t.Errorf("expected proposal to stay Draft, got %s", got)
		}
	})

	t.Run("default_then_slash", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("carol", 15)
		p := h.Approved("carol", 1000)
		h.MustSucceed(p.ID)
		h.MustDefault(p.ID)

		res := h.MustSlash(p.ID, 0.3)
		if res.Proposal.Status != types.StatusSlashed {
			t.Errorf("expected Slashed, got %s", res.Proposal.Status)
		}
		if got := h.Reputation("carol"); got != 10 {
			t.Errorf("expected reputation floored at 10, got %d", got)
		}
		v := h.Ledger(p.ID)
		if v.Released != "500.00" || !v.Frozen {
			t.Errorf("expected frozen ledger at 500.00, got %s frozen=%v", v.Released, v.Frozen)
		}

		_, err := h.Engine().RecordMilestoneSuccess(context.Background(), p.ID)
		h.MustBeInvalid(err)
	})

	t.Run("default_then_forgive", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("dave", 100)
		p := h.Approved("dave", 1000)
		h.MustDefault(p.ID)

		res := h.MustForgive(p.ID, 0.01)
		if res.Proposal.Status != types.StatusForgiven {
			t.Errorf("expected Forgiven, got %s", res.Proposal.Status)
		}
		if res.Proposal.Bond != types.BondReturned {
			t.Errorf("expected bond returned, got %s", res.Proposal.Bond)
		}
		if got := h.Reputation("dave"); got != 100 {
			t.Errorf("expected reputation unchanged, got %d", got)
		}
	})

	t.Run("final_milestone_boost", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("erin", 240)
		p := h.Approved("erin", 5000)

		var res types.TransitionResult
		for i := 0; i < 3; i++ {
			res = h.MustSucceed(p.ID)
		}
		if res.Proposal.Status != types.StatusCompleted {
			t.Errorf("expected Completed, got %s", res.Proposal.Status)
		}
		if got := h.Reputation("erin"); got != 250 {
			t.Errorf("expected reputation 250, got %d", got)
		}
		if v := h.Ledger(p.ID); v.Released != "5000.00" || v.Remaining != "0.00" {
			t.Errorf("expected fully released ledger, got %s / %s", v.Released, v.Remaining)
		}
		if _, ok := Event(res.Events, types.EventGrantCompleted); !ok {
			t.Error("expected a grant_completed event")
		}
	})

	t.Run("failed_vote_returns_to_draft", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("frank", 50)
		p := h.Draft("frank", 1000)
		h.MustSubmit(p.ID)

		res := h.MustFail(p.ID, 0.01)
		if res.Proposal.Status != types.StatusDraft || res.Proposal.Bond != types.BondForfeited {
			t.Errorf("expected Draft with forfeited bond, got %s / %s", res.Proposal.Status, res.Proposal.Bond)
		}

		res = h.MustSubmit(p.ID)
		if res.Proposal.Attempts != 2 {
			t.Errorf("expected second attempt, got %d", res.Proposal.Attempts)
		}
	})

	t.Run("withdraw", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("gina", 50)
		p := h.Draft("gina", 1000)

		res, err := h.Engine().Withdraw(context.Background(), p.ID)
		if err != nil {
			t.Fatalf("Withdraw failed: %v", err)
		}
		if res.Proposal.Status != types.StatusRejected {
			t.Errorf("expected Rejected, got %s", res.Proposal.Status)
		}
		_, err = h.Engine().Submit(context.Background(), p.ID)
		h.MustBeInvalid(err)
	})

	t.Run("success_while_submitted_is_invalid", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("hank", 10)
		p := h.Draft("hank", 1000)
		before := h.MustSubmit(p.ID).Proposal

		_, err := h.Engine().RecordMilestoneSuccess(context.Background(), p.ID)
		e := h.MustBeInvalid(err)
		if e.State != types.StatusSubmitted || e.Action != types.ActionRecordMilestoneSuccess {
			t.Errorf("unexpected error fields: %+v", e)
		}
		if after := h.Proposal(p.ID); after != before {
			t.Errorf("proposal changed by an invalid transition: %+v", after)
		}
	})

	t.Run("invalid_inputs", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("ivy", 50)
		ctx := context.Background()

		if _, err := h.Engine().CreateProposal(ctx, "ivy", math.Inf(1)); !errors.Is(err, dge.ErrInvalidAmount) {
			t.Errorf("expected ErrInvalidAmount, got %v", err)
		}
		p := h.Draft("ivy", 1000)
		h.MustSubmit(p.ID)
		_, err := h.Engine().ResolveInitialVote(ctx, p.ID, types.Ballot{Passed: true, Turnout: 2})
		if !errors.Is(err, dge.ErrInvalidTurnout) {
			t.Errorf("expected ErrInvalidTurnout, got %v", err)
		}
		if _, err := h.Engine().Proposal(ctx, "missing"); !errors.Is(err, dge.ErrProposalNotFound) {
			t.Errorf("expected ErrProposalNotFound, got %v", err)
		}
		if _, err := h.Engine().Founder(ctx, "missing"); !errors.Is(err, dge.ErrFounderNotFound) {
			t.Errorf("expected ErrFounderNotFound, got %v", err)
		}
	})

	t.Run("proposals_listed_in_order", func(t *testing.T) {
		h := NewHarness(t, factory(t))
		h.Founder("jill", 50)
		for i := 0; i < 3; i++ {
			h.Draft("jill", 500)
		}
		list, err := h.Engine().Proposals(context.Background())
		if err != nil {
			t.Fatalf("Proposals failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 proposals, got %d", len(list))
		}
		for i := 1; i < len(list); i++ {
			if list[i-1].ID >= list[i].ID {
				t.Errorf("proposals out of order: %s >= %s", list[i-1].ID, list[i].ID)
			}
		}
	})
}
