package dgegrpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/blockberries/dge"
	dgegrpc "github.com/blockberries/dge/grpc"
	dgetest "github.com/blockberries/dge/testing"
	"github.com/blockberries/dge/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

// startServer starts a gRPC server on a random port and returns
// the listener address and a cleanup function.
func startServer(t *testing.T, gs *dgegrpc.GRPCServer) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := grpc.NewServer()
	gs.Register(s)

	go func() {
		_ = s.Serve(lis)
	}()

	return lis.Addr().String(), func() {
		s.GracefulStop()
	}
}

func dial(t *testing.T, addr string) *dgegrpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := dgegrpc.Dial(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return client
}

// connect serves a fresh engine and returns a client for it.
func connect(t *testing.T) *dgegrpc.Client {
	t.Helper()
	srv := dgetest.NewServer(t, dgetest.NewMockOracles())
	addr, cleanup := startServer(t, dgegrpc.NewGRPCServer(srv))
	client := dial(t, addr)
	t.Cleanup(func() {
		client.Close()
		cleanup()
	})
	return client
}

func TestGRPC_Compliance(t *testing.T) {
	dgetest.RunComplianceSuite(t, func(t *testing.T) dge.Engine {
		return connect(t)
	})
}

func TestGRPC_InvalidTransitionSurvivesTransport(t *testing.T) {
	client := connect(t)
	h := dgetest.NewHarness(t, client)
	h.Founder("alice", 100)
	p := h.Draft("alice", 1000)

	_, err := client.RecordMilestoneSuccess(context.Background(), p.ID)
	e, ok := dge.IsInvalidTransition(err)
	if !ok {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if e.ProposalID != p.ID || e.State != types.StatusDraft || e.Action != types.ActionRecordMilestoneSuccess {
		t.Fatalf("unexpected error fields: %+v", e)
	}
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected FailedPrecondition, got %s", status.Code(err))
	}
}

func TestGRPC_IneligibleSurvivesTransport(t *testing.T) {
	client := connect(t)
	h := dgetest.NewHarness(t, client)
	h.Founder("bob", 0)
	p := h.Draft("bob", 50)

	_, err := client.Submit(context.Background(), p.ID)
	e, ok := dge.IsIneligible(err)
	if !ok {
		t.Fatalf("expected IneligibleSubmissionError, got %v", err)
	}
	if !e.Reasons.Has(types.ReasonBelowReputationFloor) || !e.Reasons.Has(types.ReasonBelowMinimumRequest) {
		t.Fatalf("unexpected reasons: %s", e.Reasons)
	}
	if e.Cap != 0 {
		t.Fatalf("expected cap 0 below the reputation floor, got %d", e.Cap)
	}
}

func TestGRPC_OutOfOrderMilestone(t *testing.T) {
	client := connect(t)
	h := dgetest.NewHarness(t, client)
	h.Founder("carol", 100)
	p := h.Approved("carol", 1000)

	_, err := client.RecordMilestoneSuccessAt(context.Background(), p.ID, 3)
	e, ok := dge.IsMilestoneOutOfOrder(err)
	if !ok {
		t.Fatalf("expected MilestoneOutOfOrderError, got %v", err)
	}
	// Approval releases the first tranche, so milestone 2 is due.
	if e.Expected != 2 || e.Got != 3 {
		t.Fatalf("unexpected error fields: %+v", e)
	}
	if got := h.Proposal(p.ID).Completed; got != 1 {
		t.Fatalf("rejected milestone changed the proposal: %d completed", got)
	}

	res, err := client.RecordMilestoneSuccessAt(context.Background(), p.ID, 2)
	if err != nil {
		t.Fatalf("RecordMilestoneSuccessAt: %v", err)
	}
	if res.Proposal.Completed != 2 {
		t.Fatalf("expected 2 completed milestones, got %d", res.Proposal.Completed)
	}
}

func TestGRPC_NotFoundCode(t *testing.T) {
	client := connect(t)
	_, err := client.Ledger(context.Background(), "missing")
	if !errors.Is(err, dge.ErrProposalNotFound) {
		t.Fatalf("expected ErrProposalNotFound, got %v", err)
	}
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %s", status.Code(err))
	}
}

func TestGRPC_FounderExists(t *testing.T) {
	client := connect(t)
	ctx := context.Background()
	if err := client.RegisterFounder(ctx, types.Founder{ID: "dan", Reputation: 10}); err != nil {
		t.Fatalf("RegisterFounder: %v", err)
	}
	err := client.RegisterFounder(ctx, types.Founder{ID: "dan", Reputation: 10})
	if !errors.Is(err, dge.ErrFounderExists) {
		t.Fatalf("expected ErrFounderExists, got %v", err)
	}
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %s", status.Code(err))
	}
}

func TestGRPC_FingerprintMatchesProposal(t *testing.T) {
	client := connect(t)
	h := dgetest.NewHarness(t, client)
	h.Founder("erin", 100)
	p := h.Draft("erin", 1000)

	res := h.MustSubmit(p.ID)
	want, err := res.Proposal.Fingerprint()
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if res.Fingerprint != want {
		t.Fatalf("fingerprint changed in transit: %s != %s", res.Fingerprint, want)
	}
}
