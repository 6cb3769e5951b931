package types

import (
	"fmt"
	"math"
)

// Ballot is the outcome of a governance vote. Turnout is the fraction
// of circulating supply that voted, in [0, 1].
type Ballot struct {
	Passed  bool    `cramberry:"1" json:"passed"`
	Turnout float64 `cramberry:"2" json:"turnout"`
}

// Validate checks that the turnout is a finite fraction.
func (b Ballot) Validate() error {
	if math.IsNaN(b.Turnout) || b.Turnout < 0 || b.Turnout > 1 {
		return fmt.Errorf("turnout %v outside [0, 1]", b.Turnout)
	}
	return nil
}

// VoteKind distinguishes the two governance votes of a proposal.
type VoteKind uint8

const (
	VoteInitial VoteKind = iota + 1
	VoteSlashing
)

func (k VoteKind) String() string {
	switch k {
	case VoteInitial:
		return "initial"
	case VoteSlashing:
		return "slashing"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// VoteRequest identifies an open vote when asking a vote oracle for
// its outcome.
type VoteRequest struct {
	ProposalID     string    `cramberry:"1" json:"proposal_id"`
	Kind           VoteKind  `cramberry:"2" json:"kind"`
	RequiredQuorum float64   `cramberry:"3" json:"required_quorum"`
	// Milestone is the 1-based milestone under dispute for a slashing
	// vote, zero for the initial vote.
	Milestone uint32    `cramberry:"4" json:"milestone"`
	OpenedAt  Timestamp `cramberry:"5" json:"opened_at"`
}
