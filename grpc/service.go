package dgegrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/dge/types"

	"google.golang.org/grpc"
)

const serviceName = "dge.v1.GrantService"

// GrantServiceServer is the server-side interface for the grant gRPC service.
type GrantServiceServer interface {
	RegisterFounder(context.Context, *types.Founder) (*Empty, error)
	Founder(context.Context, *FounderRequest) (*types.Founder, error)
	Assess(context.Context, *AssessRequest) (*types.Assessment, error)
	CreateProposal(context.Context, *CreateProposalRequest) (*types.Proposal, error)
	Submit(context.Context, *ProposalRequest) (*types.TransitionResult, error)
	ResolveInitialVote(context.Context, *BallotRequest) (*types.TransitionResult, error)
	RecordMilestoneSuccess(context.Context, *MilestoneRequest) (*types.TransitionResult, error)
	RecordMilestoneDefault(context.Context, *ProposalRequest) (*types.TransitionResult, error)
	ResolveSlashingVote(context.Context, *BallotRequest) (*types.TransitionResult, error)
	Withdraw(context.Context, *ProposalRequest) (*types.TransitionResult, error)
	Proposal(context.Context, *ProposalRequest) (*types.Proposal, error)
	Proposals(context.Context, *ListProposalsRequest) (*ProposalList, error)
	Ledger(context.Context, *ProposalRequest) (*types.LedgerView, error)
}

// RegisterGrantServiceServer registers the GrantServiceServer on a gRPC server.
func RegisterGrantServiceServer(s *grpc.Server, srv GrantServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// unary builds a method handler that decodes a *Req and dispatches it
// to call, passing through any configured interceptor.
func unary[Req any](method string, call func(GrantServiceServer, context.Context, *Req) (any, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := new(Req)
		if err := dec(req); err != nil {
			return nil, err
		}
		s := srv.(GrantServiceServer)
		if interceptor == nil {
			return call(s, ctx, req)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
		return interceptor(ctx, req, info, func(ctx context.Context, req any) (any, error) {
			return call(s, ctx, req.(*Req))
		})
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*GrantServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterFounder", Handler: unary("RegisterFounder",
			func(s GrantServiceServer, ctx context.Context, req *types.Founder) (any, error) {
				return s.RegisterFounder(ctx, req)
			})},
		{MethodName: "Founder", Handler: unary("Founder",
			func(s GrantServiceServer, ctx context.Context, req *FounderRequest) (any, error) {
				return s.Founder(ctx, req)
			})},
		{MethodName: "Assess", Handler: unary("Assess",
			func(s GrantServiceServer, ctx context.Context, req *AssessRequest) (any, error) {
				return s.Assess(ctx, req)
			})},
		{MethodName: "CreateProposal", Handler: unary("CreateProposal",
			func(s GrantServiceServer, ctx context.Context, req *CreateProposalRequest) (any, error) {
				return s.CreateProposal(ctx, req)
			})},
		{MethodName: "Submit", Handler: unary("Submit",
			func(s GrantServiceServer, ctx context.Context, req *ProposalRequest) (any, error) {
				return s.Submit(ctx, req)
			})},
		{MethodName: "ResolveInitialVote", Handler: unary("ResolveInitialVote",
			func(s GrantServiceServer, ctx context.Context, req *BallotRequest) (any, error) {
				return s.ResolveInitialVote(ctx, req)
			})},
		{MethodName: "RecordMilestoneSuccess", Handler: unary("RecordMilestoneSuccess",
			func(s GrantServiceServer, ctx context.Context, req *MilestoneRequest) (any, error) {
				return s.RecordMilestoneSuccess(ctx, req)
			})},
		{MethodName: "RecordMilestoneDefault", Handler: unary("RecordMilestoneDefault",
			func(s GrantServiceServer, ctx context.Context, req *ProposalRequest) (any, error) {
				return s.RecordMilestoneDefault(ctx, req)
			})},
		{MethodName: "ResolveSlashingVote", Handler: unary("ResolveSlashingVote",
			func(s GrantServiceServer, ctx context.Context, req *BallotRequest) (any, error) {
				return s.ResolveSlashingVote(ctx, req)
			})},
		{MethodName: "Withdraw", Handler: unary("Withdraw",
			func(s GrantServiceServer, ctx context.Context, req *ProposalRequest) (any, error) {
				return s.Withdraw(ctx, req)
			})},
		{MethodName: "Proposal", Handler: unary("Proposal",
			func(s GrantServiceServer, ctx context.Context, req *ProposalRequest) (any, error) {
				return s.Proposal(ctx, req)
			})},
		{MethodName: "Proposals", Handler: unary("Proposals",
			func(s GrantServiceServer, ctx context.Context, req *ListProposalsRequest) (any, error) {
				return s.Proposals(ctx, req)
			})},
		{MethodName: "Ledger", Handler: unary("Ledger",
			func(s GrantServiceServer, ctx context.Context, req *ProposalRequest) (any, error) {
				return s.Ledger(ctx, req)
			})},
	},
	Metadata: "dge/grpc",
}

func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}
