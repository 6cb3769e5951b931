package dgegrpc

import (
	"context"
	"fmt"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Compile-time interface check.
var _ dge.Connection = (*Client)(nil)

// Client implements dge.Connection for a remote grant server over
// gRPC using cramberry serialization. Domain errors are rebuilt from
// the response trailer, so errors.Is and errors.As work as they do
// in-process.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote grant server.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dge client: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	var trailer metadata.MD
	if err := c.cc.Invoke(ctx, fullMethod(method), req, resp, grpc.Trailer(&trailer)); err != nil {
		return decodeError(err, trailer)
	}
	return nil
}

// --- Founders ---

func (c *Client) RegisterFounder(ctx context.Context, f types.Founder) error {
	return c.invoke(ctx, "RegisterFounder", &f, new(Empty))
}

func (c *Client) Founder(ctx context.Context, id string) (types.Founder, error) {
	resp := new(types.Founder)
	if err := c.invoke(ctx, "Founder", &FounderRequest{ID: id}, resp); err != nil {
		return types.Founder{}, err
	}
	return *resp, nil
}

func (c *Client) Assess(ctx context.Context, founderID string, requestedUSD float64) (types.Assessment, error) {
	resp := new(types.Assessment)
	req := &AssessRequest{FounderID: founderID, RequestedUSD: requestedUSD}
	if err := c.invoke(ctx, "Assess", req, resp); err != nil {
		return types.Assessment{}, err
	}
	return *resp, nil
}

// --- Proposals ---

func (c *Client) CreateProposal(ctx context.Context, founderID string, requestedUSD float64) (types.Proposal, error) {
	resp := new(types.Proposal)
	req := &CreateProposalRequest{FounderID: founderID, RequestedUSD: requestedUSD}
	if err := c.invoke(ctx, "CreateProposal", req, resp); err != nil {
		return types.Proposal{}, err
	}
	return *resp, nil
}

func (c *Client) Submit(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.transition(ctx, "Submit", &ProposalRequest{ID: id})
}

func (c *Client) ResolveInitialVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return c.transition(ctx, "ResolveInitialVote", &BallotRequest{ID: id, Ballot: ballot})
}

func (c *Client) RecordMilestoneSuccess(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.transition(ctx, "RecordMilestoneSuccess", &MilestoneRequest{ID: id})
}

// RecordMilestoneSuccessAt releases the tranche for the given 1-based
// milestone, failing unless it is the next one due.
func (c *Client) RecordMilestoneSuccessAt(ctx context.Context, id string, index uint32) (types.TransitionResult, error) {
	if index == 0 {
		return types.TransitionResult{}, &dge.MilestoneOutOfOrderError{ProposalID: id}
	}
	return c.transition(ctx, "RecordMilestoneSuccess", &MilestoneRequest{ID: id, Index: index})
}

func (c *Client) RecordMilestoneDefault(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.transition(ctx, "RecordMilestoneDefault", &ProposalRequest{ID: id})
}

func (c *Client) ResolveSlashingVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return c.transition(ctx, "ResolveSlashingVote", &BallotRequest{ID: id, Ballot: ballot})
}

func (c *Client) Withdraw(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.transition(ctx, "Withdraw", &ProposalRequest{ID: id})
}

func (c *Client) transition(ctx context.Context, method string, req any) (types.TransitionResult, error) {
	resp := new(types.TransitionResult)
	if err := c.invoke(ctx, method, req, resp); err != nil {
		return types.TransitionResult{}, err
	}
	return *resp, nil
}

// --- Queries ---

func (c *Client) Proposal(ctx context.Context, id string) (types.Proposal, error) {
	resp := new(types.Proposal)
	if err := c.invoke(ctx, "Proposal", &ProposalRequest{ID: id}, resp); err != nil {
		return types.Proposal{}, err
	}
	return *resp, nil
}

func (c *Client) Proposals(ctx context.Context) ([]types.Proposal, error) {
	resp := new(ProposalList)
	if err := c.invoke(ctx, "Proposals", &ListProposalsRequest{}, resp); err != nil {
		return nil, err
	}
	return resp.Proposals, nil
}

func (c *Client) Ledger(ctx context.Context, id string) (types.LedgerView, error) {
	resp := new(types.LedgerView)
	if err := c.invoke(ctx, "Ledger", &ProposalRequest{ID: id}, resp); err != nil {
		return types.LedgerView{}, err
	}
	return *resp, nil
}
