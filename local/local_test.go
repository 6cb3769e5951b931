package local

import (
	"context"
	"testing"

	"github.com/blockberries/dge"
	dgetest "github.com/blockberries/dge/testing"
	"github.com/blockberries/dge/types"
)

func newConnection(t *testing.T) *Connection {
	t.Helper()
	return NewConnection(dgetest.NewServer(t, dgetest.NewMockOracles()))
}

func TestLocalConnection_FullCycle(t *testing.T) {
	conn := newConnection(t)
	defer conn.Close()
	ctx := context.Background()

	if err := conn.RegisterFounder(ctx, types.Founder{ID: "alice", Reputation: 10}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	p, err := conn.CreateProposal(ctx, "alice", 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	res, err := conn.Submit(ctx, p.ID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if res.Proposal.BondTokens != 600 {
		t.Errorf("expected bond 600, got %d", res.Proposal.BondTokens)
	}

	res, err = conn.ResolveInitialVote(ctx, p.ID, types.Ballot{Passed: true, Turnout: 0.1})
	if err != nil {
		t.Fatalf("vote failed: %v", err)
	}
	if res.Proposal.Status != types.StatusApproved {
		t.Fatalf("expected Approved, got %s", res.Proposal.Status)
	}

	view, err := conn.Ledger(ctx, p.ID)
	if err != nil {
		t.Fatalf("ledger failed: %v", err)
	}
	if view.Released != "250.00" {
		t.Errorf("expected released 250.00, got %s", view.Released)
	}

	// Server state is visible through the connection.
	stored, err := conn.Server().Proposal(ctx, p.ID)
	if err != nil {
		t.Fatalf("proposal failed: %v", err)
	}
	if stored != res.Proposal {
		t.Errorf("stored proposal differs from transition result")
	}
}

func TestLocalConnection_Errors(t *testing.T) {
	conn := newConnection(t)
	ctx := context.Background()

	if err := conn.RegisterFounder(ctx, types.Founder{ID: "alice", Reputation: 50}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	p, err := conn.CreateProposal(ctx, "alice", 1000)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = conn.ResolveSlashingVote(ctx, p.ID, types.Ballot{Passed: true})
	if _, ok := dge.IsInvalidTransition(err); !ok {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestLocalConnection_Compliance(t *testing.T) {
	dgetest.RunComplianceSuite(t, func(t *testing.T) dge.Engine {
		return newConnection(t)
	})
}
