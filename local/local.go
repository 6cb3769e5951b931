// Package local provides a zero-copy, in-process grant engine
// connection.
//
// For hosts compiled into the same binary as the engine, this adapter
// exposes a server.Server as a dge.Connection with no serialization
// overhead.
package local

import (
	"context"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/server"
	"github.com/blockberries/dge/types"
)

// Compile-time interface check.
var _ dge.Connection = (*Connection)(nil)

// Connection wraps a server.Server.
type Connection struct {
	srv *server.Server
}

// NewConnection creates an in-process connection to srv.
func NewConnection(srv *server.Server) *Connection {
	return &Connection{srv: srv}
}

func (c *Connection) RegisterFounder(ctx context.Context, f types.Founder) error {
	return c.srv.RegisterFounder(ctx, f)
}

func (c *Connection) Founder(ctx context.Context, id string) (types.Founder, error) {
	return c.srv.Founder(ctx, id)
}

func (c *Connection) Assess(ctx context.Context, founderID string, requestedUSD float64) (types.Assessment, error) {
	return c.srv.Assess(ctx, founderID, requestedUSD)
}

func (c *Connection) CreateProposal(ctx context.Context, founderID string, requestedUSD float64) (types.Proposal, error) {
	return c.srv.CreateProposal(ctx, founderID, requestedUSD)
}

func (c *Connection) Submit(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.srv.Submit(ctx, id)
}

func (c *Connection) ResolveInitialVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return c.srv.ResolveInitialVote(ctx, id, ballot)
}

func (c *Connection) RecordMilestoneSuccess(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.srv.RecordMilestoneSuccess(ctx, id)
}

func (c *Connection) RecordMilestoneDefault(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.srv.RecordMilestoneDefault(ctx, id)
}

func (c *Connection) ResolveSlashingVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return c.srv.ResolveSlashingVote(ctx, id, ballot)
}

func (c *Connection) Withdraw(ctx context.Context, id string) (types.TransitionResult, error) {
	return c.srv.Withdraw(ctx, id)
}

func (c *Connection) Proposal(ctx context.Context, id string) (types.Proposal, error) {
	return c.srv.Proposal(ctx, id)
}

func (c *Connection) Proposals(ctx context.Context) ([]types.Proposal, error) {
	return c.srv.Proposals(ctx)
}

func (c *Connection) Ledger(ctx context.Context, id string) (types.LedgerView, error) {
	return c.srv.Ledger(ctx, id)
}

// Server returns the underlying server for advanced use.
func (c *Connection) Server() *server.Server {
	return c.srv
}

// Close is a no-op; the caller owns the server.
func (c *Connection) Close() error { return nil }
