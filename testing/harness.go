package dgetest

import (
	"context"
	"testing"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"
)

// Harness provides a convenient test harness for driving a grant
// engine through its lifecycle. Every helper fails the test on an
// unexpected error.
type Harness struct {
	t   *testing.T
	eng dge.Engine
}

// NewHarness creates a test harness over the given engine.
func NewHarness(t *testing.T, eng dge.Engine) *Harness {
	t.Helper()
	return &Harness{t: t, eng: eng}
}

// Engine returns the underlying engine for direct access.
func (h *Harness) Engine() dge.Engine {
	return h.eng
}

// Founder registers a founder with the given reputation.
func (h *Harness) Founder(id string, reputation int64) types.Founder {
	h.t.Helper()
	f := types.Founder{ID: id, Reputation: reputation}
	if err := h.eng.RegisterFounder(context.Background(), f); err != nil {
		h.t.Fatalf("RegisterFounder(%s) failed: %v", id, err)
	}
	return f
}

// Draft creates a Draft proposal.
func (h *Harness) Draft(founderID string, requestedUSD float64) types.Proposal {
	h.t.Helper()
	p, err := h.eng.CreateProposal(context.Background(), founderID, requestedUSD)
	if err != nil {
		h.t.Fatalf("CreateProposal(%s, %v) failed: %v", founderID, requestedUSD, err)
	}
	return p
}

// MustSubmit submits a proposal.
func (h *Harness) MustSubmit(id string) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.Submit(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Submit(%s) failed: %v", id, err)
	}
	return res
}

// MustPass resolves the initial vote as passed.
func (h *Harness) MustPass(id string, turnout float64) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.ResolveInitialVote(context.Background(), id, types.Ballot{Passed: true, Turnout: turnout})
	if err != nil {
		h.t.Fatalf("ResolveInitialVote(%s, passed) failed: %v", id, err)
	}
	return res
}

// MustFail resolves the initial vote as failed.
func (h *Harness) MustFail(id string, turnout float64) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.ResolveInitialVote(context.Background(), id, types.Ballot{Passed: false, Turnout: turnout})
	if err != nil {
		h.t.Fatalf("ResolveInitialVote(%s, failed) failed: %v", id, err)
	}
	return res
}

// MustSucceed records a milestone success.
func (h *Harness) MustSucceed(id string) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.RecordMilestoneSuccess(context.Background(), id)
	if err != nil {
		h.t.Fatalf("RecordMilestoneSuccess(%s) failed: %v", id, err)
	}
	return res
}

// MustDefault records a milestone default.
func (h *Harness) MustDefault(id string) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.RecordMilestoneDefault(context.Background(), id)
	if err != nil {
		h.t.Fatalf("RecordMilestoneDefault(%s) failed: %v", id, err)
	}
	return res
}

// MustSlash resolves the slashing vote as slash.
func (h *Harness) MustSlash(id string, turnout float64) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.ResolveSlashingVote(context.Background(), id, types.Ballot{Passed: true, Turnout: turnout})
	if err != nil {
		h.t.Fatalf("ResolveSlashingVote(%s, slash) failed: %v", id, err)
	}
	return res
}

// MustForgive resolves the slashing vote as forgive.
func (h *Harness) MustForgive(id string, turnout float64) types.TransitionResult {
	h.t.Helper()
	res, err := h.eng.ResolveSlashingVote(context.Background(), id, types.Ballot{Passed: false, Turnout: turnout})
	if err != nil {
		h.t.Fatalf("ResolveSlashingVote(%s, forgive) failed: %v", id, err)
	}
	return res
}

// Approved drafts, submits and passes a proposal for a registered
// founder.
func (h *Harness) Approved(founderID string, requestedUSD float64) types.Proposal {
	h.t.Helper()
	p := h.Draft(founderID, requestedUSD)
	h.MustSubmit(p.ID)
	return h.MustPass(p.ID, 0.5).Proposal
}

// Proposal returns the stored proposal.
func (h *Harness) Proposal(id string) types.Proposal {
	h.t.Helper()
	p, err := h.eng.Proposal(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Proposal(%s) failed: %v", id, err)
	}
	return p
}

// Ledger returns the ledger view of a proposal.
func (h *Harness) Ledger(id string) types.LedgerView {
	h.t.Helper()
	v, err := h.eng.Ledger(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Ledger(%s) failed: %v", id, err)
	}
	return v
}

// Reputation returns a founder's current reputation.
func (h *Harness) Reputation(founderID string) int64 {
	h.t.Helper()
	f, err := h.eng.Founder(context.Background(), founderID)
	if err != nil {
		h.t.Fatalf("Founder(%s) failed: %v", founderID, err)
	}
	return f.Reputation
}

// MustBeInvalid asserts that err is an InvalidTransitionError.
func (h *Harness) MustBeInvalid(err error) *dge.InvalidTransitionError {
	h.t.Helper()
	e, ok := dge.IsInvalidTransition(err)
	if !ok {
		h.t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	return e
}

// Event returns the first event of the given kind.
func Event(events []types.Event, kind string) (types.Event, bool) {
	for _, ev := range events {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return types.Event{}, false
}
