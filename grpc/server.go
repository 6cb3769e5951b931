package dgegrpc

import (
	"context"
	"net"

	"github.com/blockberries/dge/server"
	"github.com/blockberries/dge/types"

	"google.golang.org/grpc"
)

// Compile-time interface check.
var _ GrantServiceServer = (*GRPCServer)(nil)

// GRPCServer exposes a grant server over gRPC. Domain types are
// serialized directly via cramberry. Engine errors are returned as
// status errors with a typed error record in the trailer.
type GRPCServer struct {
	srv *server.Server
}

// NewGRPCServer creates a gRPC server wrapping the given grant server.
func NewGRPCServer(srv *server.Server) *GRPCServer {
	return &GRPCServer{srv: srv}
}

// Register adds the grant service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterGrantServiceServer(gs, s)
}

// Serve starts the gRPC server on the given listener.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

// Stop gracefully stops the gRPC server.
func (s *GRPCServer) Stop(gs *grpc.Server) {
	gs.GracefulStop()
}

// Server returns the underlying server for advanced use.
func (s *GRPCServer) Server() *server.Server {
	return s.srv
}

func (s *GRPCServer) RegisterFounder(ctx context.Context, f *types.Founder) (*Empty, error) {
	if err := s.srv.RegisterFounder(ctx, *f); err != nil {
		return nil, encodeError(ctx, err)
	}
	return &Empty{}, nil
}

func (s *GRPCServer) Founder(ctx context.Context, req *FounderRequest) (*types.Founder, error) {
	f, err := s.srv.Founder(ctx, req.ID)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &f, nil
}

func (s *GRPCServer) Assess(ctx context.Context, req *AssessRequest) (*types.Assessment, error) {
	a, err := s.srv.Assess(ctx, req.FounderID, req.RequestedUSD)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &a, nil
}

func (s *GRPCServer) CreateProposal(ctx context.Context, req *CreateProposalRequest) (*types.Proposal, error) {
	p, err := s.srv.CreateProposal(ctx, req.FounderID, req.RequestedUSD)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &p, nil
}

func (s *GRPCServer) Submit(ctx context.Context, req *ProposalRequest) (*types.TransitionResult, error) {
	return result(ctx)(s.srv.Submit(ctx, req.ID))
}

func (s *GRPCServer) ResolveInitialVote(ctx context.Context, req *BallotRequest) (*types.TransitionResult, error) {
	return result(ctx)(s.srv.ResolveInitialVote(ctx, req.ID, req.Ballot))
}

func (s *GRPCServer) RecordMilestoneSuccess(ctx context.Context, req *MilestoneRequest) (*types.TransitionResult, error) {
	if req.Index == 0 {
		return result(ctx)(s.srv.RecordMilestoneSuccess(ctx, req.ID))
	}
	return result(ctx)(s.srv.RecordMilestoneSuccessAt(ctx, req.ID, req.Index))
}

func (s *GRPCServer) RecordMilestoneDefault(ctx context.Context, req *ProposalRequest) (*types.TransitionResult, error) {
	return result(ctx)(s.srv.RecordMilestoneDefault(ctx, req.ID))
}

func (s *GRPCServer) ResolveSlashingVote(ctx context.Context, req *BallotRequest) (*types.TransitionResult, error) {
	return result(ctx)(s.srv.ResolveSlashingVote(ctx, req.ID, req.Ballot))
}

func (s *GRPCServer) Withdraw(ctx context.Context, req *ProposalRequest) (*types.TransitionResult, error) {
	return result(ctx)(s.srv.Withdraw(ctx, req.ID))
}

func (s *GRPCServer) Proposal(ctx context.Context, req *ProposalRequest) (*types.Proposal, error) {
	p, err := s.srv.Proposal(ctx, req.ID)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &p, nil
}

func (s *GRPCServer) Proposals(ctx context.Context, _ *ListProposalsRequest) (*ProposalList, error) {
	ps, err := s.srv.Proposals(ctx)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &ProposalList{Proposals: ps}, nil
}

func (s *GRPCServer) Ledger(ctx context.Context, req *ProposalRequest) (*types.LedgerView, error) {
	v, err := s.srv.Ledger(ctx, req.ID)
	if err != nil {
		return nil, encodeError(ctx, err)
	}
	return &v, nil
}

func result(ctx context.Context) func(types.TransitionResult, error) (*types.TransitionResult, error) {
	return func(res types.TransitionResult, err error) (*types.TransitionResult, error) {
		if err != nil {
			return nil, encodeError(ctx, err)
		}
		return &res, nil
	}
}
