// Package dge defines the host-facing interfaces of the Depth Grant
// Engine: reputation-scaled funding caps, bonded grant proposals,
// milestone tranche release and slashing.
//
// The pure decision core lives in the calc, eligibility, ledger and
// machine packages. Hosts drive it through an Engine, either
// in-process (package local) or remotely (package dgegrpc).
package dge

import (
	"context"

	"github.com/blockberries/dge/types"
)

// PriceOracle reports the current governance token price in USD.
type PriceOracle interface {
	TokenPriceUSD(ctx context.Context) (float64, error)
}

// SupplyOracle reports the current circulating governance token supply.
type SupplyOracle interface {
	CirculatingSupply(ctx context.Context) (float64, error)
}

// VoteOracle reports the outcome of an open governance vote.
//
// Ballot returns decided=false while the vote is still running. The
// engine never talks to governance directly; the host polls this
// oracle and feeds decided ballots back as transitions.
type VoteOracle interface {
	Ballot(ctx context.Context, req types.VoteRequest) (ballot types.Ballot, decided bool, err error)
}

// Engine is the full host surface of the grant engine.
//
// Transition methods return the updated proposal together with the
// events it produced. A failed transition leaves the stored proposal
// untouched.
type Engine interface {
	// RegisterFounder adds a founder profile. Reputation must lie in
	// [0, ScaleMax].
	RegisterFounder(ctx context.Context, founder types.Founder) error

	// Founder returns the current founder profile.
	Founder(ctx context.Context, id string) (types.Founder, error)

	// Assess evaluates a prospective request without creating a
	// proposal.
	Assess(ctx context.Context, founderID string, requestedUSD float64) (types.Assessment, error)

	// CreateProposal creates a Draft proposal for the founder.
	CreateProposal(ctx context.Context, founderID string, requestedUSD float64) (types.Proposal, error)

	// Submit locks a bond and required quorum and opens the initial vote.
	Submit(ctx context.Context, id string) (types.TransitionResult, error)

	// ResolveInitialVote applies the outcome of the initial funding vote.
	ResolveInitialVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error)

	// RecordMilestoneSuccess releases the next tranche.
	RecordMilestoneSuccess(ctx context.Context, id string) (types.TransitionResult, error)

	// RecordMilestoneDefault opens a slashing vote on the next milestone.
	RecordMilestoneDefault(ctx context.Context, id string) (types.TransitionResult, error)

	// ResolveSlashingVote applies the outcome of a slashing vote.
	ResolveSlashingVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error)

	// Withdraw abandons a Draft proposal.
	Withdraw(ctx context.Context, id string) (types.TransitionResult, error)

	// Proposal returns the stored proposal.
	Proposal(ctx context.Context, id string) (types.Proposal, error)

	// Proposals returns every stored proposal ordered by ID.
	Proposals(ctx context.Context) ([]types.Proposal, error)

	// Ledger reports released and remaining funds for a proposal.
	Ledger(ctx context.Context, id string) (types.LedgerView, error)
}

// Connection is an Engine reached through a transport that must be
// released when no longer needed.
type Connection interface {
	Engine
	Close() error
}
