package dgegrpc

import "github.com/blockberries/dge/types"

// Transport-specific wrapper types for RPC methods whose interface
// signatures don't map to a single request/response struct.
// These are used only for gRPC serialization boundaries.

// Empty is the response of RPCs that return nothing.
type Empty struct{}

// FounderRequest identifies a founder.
type FounderRequest struct {
	ID string `cramberry:"1"`
}

// AssessRequest wraps the parameters of Engine.Assess.
type AssessRequest struct {
	FounderID    string  `cramberry:"1"`
	RequestedUSD float64 `cramberry:"2"`
}

// CreateProposalRequest wraps the parameters of Engine.CreateProposal.
type CreateProposalRequest struct {
	FounderID    string  `cramberry:"1"`
	RequestedUSD float64 `cramberry:"2"`
}

// ProposalRequest identifies a proposal.
type ProposalRequest struct {
	ID string `cramberry:"1"`
}

// BallotRequest carries a vote outcome for a proposal.
type BallotRequest struct {
	ID     string       `cramberry:"1"`
	Ballot types.Ballot `cramberry:"2"`
}

// MilestoneRequest reports a milestone success. A zero Index means
// the next milestone due; otherwise it must equal it.
type MilestoneRequest struct {
	ID    string `cramberry:"1"`
	Index uint32 `cramberry:"2"`
}

// ListProposalsRequest is the (empty) request for Engine.Proposals.
type ListProposalsRequest struct{}

// ProposalList wraps the return value of Engine.Proposals.
type ProposalList struct {
	Proposals []types.Proposal `cramberry:"1"`
}

// errorKind identifies the domain error carried in an ErrorRecord.
type errorKind uint8

const (
	kindSentinel errorKind = iota + 1
	kindInvalidTransition
	kindIneligible
	kindConflict
	kindOutOfOrder
)

// ErrorRecord is a domain error sent to clients in the response
// trailer so that typed errors survive the transport.
type ErrorRecord struct {
	Kind       errorKind     `cramberry:"1"`
	Sentinel   uint8         `cramberry:"2"`
	ProposalID string        `cramberry:"3"`
	State      types.Status  `cramberry:"4"`
	Action     types.Action  `cramberry:"5"`
	Reasons    types.Reasons `cramberry:"6"`
	Cap        int64         `cramberry:"7"`
	Expected   uint32        `cramberry:"8"`
	Got        uint32        `cramberry:"9"`
}
