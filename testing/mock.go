// Package dgetest provides test utilities for grant engine hosts,
// including configurable mock oracles, a test harness and a lifecycle
// compliance test suite.
package dgetest

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/ledger"
	"github.com/blockberries/dge/machine"
	"github.com/blockberries/dge/server"
	"github.com/blockberries/dge/types"
)

// Compile-time check that MockOracles satisfies all oracle interfaces.
var (
	_ dge.PriceOracle  = (*MockOracles)(nil)
	_ dge.SupplyOracle = (*MockOracles)(nil)
	_ dge.VoteOracle   = (*MockOracles)(nil)
)

const (
	// DefaultPrice is the token price reported by unconfigured mocks.
	DefaultPrice = 0.5
	// DefaultSupply is the circulating supply reported by
	// unconfigured mocks.
	DefaultSupply = 1_000_000
)

// MockOracles is a configurable price, supply and vote oracle. All
// methods are configurable via function fields. Unconfigured methods
// return DefaultPrice, DefaultSupply and undecided votes.
type MockOracles struct {
	PriceFn  func(context.Context) (float64, error)
	SupplyFn func(context.Context) (float64, error)
	VoteFn   func(context.Context, types.VoteRequest) (types.Ballot, bool, error)

	// Call counters (atomic for concurrent access).
	PriceCalls  atomic.Int64
	SupplyCalls atomic.Int64
	VoteCalls   atomic.Int64
}

// NewMockOracles returns mocks with default behaviour.
func NewMockOracles() *MockOracles {
	return &MockOracles{}
}

func (m *MockOracles) TokenPriceUSD(ctx context.Context) (float64, error) {
	m.PriceCalls.Add(1)
	if m.PriceFn != nil {
		return m.PriceFn(ctx)
	}
	return DefaultPrice, nil
}

func (m *MockOracles) CirculatingSupply(ctx context.Context) (float64, error) {
	m.SupplyCalls.Add(1)
	if m.SupplyFn != nil {
		return m.SupplyFn(ctx)
	}
	return DefaultSupply, nil
}

func (m *MockOracles) Ballot(ctx context.Context, req types.VoteRequest) (types.Ballot, bool, error) {
	m.VoteCalls.Add(1)
	if m.VoteFn != nil {
		return m.VoteFn(ctx, req)
	}
	return types.Ballot{}, false, nil
}

// NewServer builds a server with default parameters and schedule over
// the given oracles. Logs are discarded; extra options are applied
// last.
func NewServer(t testing.TB, oracles *MockOracles, opts ...server.Option) *server.Server {
	t.Helper()
	m, err := machine.New(types.DefaultParams(), ledger.DefaultSchedule())
	if err != nil {
		t.Fatalf("machine.New failed: %v", err)
	}
	base := []server.Option{
		server.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		server.WithVoteOracle(oracles),
	}
	return server.New(m, oracles, oracles, append(base, opts...)...)
}
