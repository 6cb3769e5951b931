package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/journal"
	"github.com/blockberries/dge/ledger"
	"github.com/blockberries/dge/machine"
	"github.com/blockberries/dge/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testOracle is a minimal oracle to avoid an import cycle with
// dge/testing.
type testOracle struct {
	price  float64
	supply float64
	err    error
}

func (o *testOracle) TokenPriceUSD(context.Context) (float64, error)     { return o.price, o.err }
func (o *testOracle) CirculatingSupply(context.Context) (float64, error) { return o.supply, o.err }

type testVotes struct {
	mu      sync.Mutex
	ballots map[string]types.Ballot
	reqs    []types.VoteRequest
}

func (v *testVotes) Ballot(_ context.Context, req types.VoteRequest) (types.Ballot, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reqs = append(v.reqs, req)
	b, ok := v.ballots[req.ProposalID]
	return b, ok, nil
}

type memRecorder struct {
	mu      sync.Mutex
	entries []journal.Entry
	err     error
}

func (r *memRecorder) Record(_ context.Context, e journal.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *memRecorder) Close() error { return nil }

type fixture struct {
	srv    *Server
	oracle *testOracle
	rec    *memRecorder
	clock  *time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	m, err := machine.New(types.DefaultParams(), ledger.DefaultSchedule())
	require.NoError(t, err)

	f := &fixture{
		oracle: &testOracle{price: 0.5, supply: 1_000_000},
		rec:    &memRecorder{},
	}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.clock = &now
	seq := 0
	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRecorder(f.rec),
		WithMetrics(NewMetrics(prometheus.NewRegistry())),
		WithClock(func() time.Time { return *f.clock }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("p-%03d", seq)
		}),
	}
	f.srv = New(m, f.oracle, f.oracle, append(base, opts...)...)
	return f
}

func (f *fixture) founder(t *testing.T, id string, rep int64) {
	t.Helper()
	require.NoError(t, f.srv.RegisterFounder(context.Background(), types.Founder{ID: id, Reputation: rep}))
}

func (f *fixture) submitted(t *testing.T, founder string, requested float64) string {
	t.Helper()
	ctx := context.Background()
	p, err := f.srv.CreateProposal(ctx, founder, requested)
	require.NoError(t, err)
	_, err = f.srv.Submit(ctx, p.ID)
	require.NoError(t, err)
	return p.ID
}

func (f *fixture) approved(t *testing.T, founder string, requested float64) string {
	t.Helper()
	id := f.submitted(t, founder, requested)
	_, err := f.srv.ResolveInitialVote(context.Background(), id, types.Ballot{Passed: true, Turnout: 0.1})
	require.NoError(t, err)
	return id
}

func TestServer_RegisterFounder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.founder(t, "alice", 10)
	err := f.srv.RegisterFounder(ctx, types.Founder{ID: "alice", Reputation: 20})
	assert.ErrorIs(t, err, dge.ErrFounderExists)

	err = f.srv.RegisterFounder(ctx, types.Founder{ID: "bob", Reputation: 251})
	assert.ErrorIs(t, err, dge.ErrInvalidReputation)
	err = f.srv.RegisterFounder(ctx, types.Founder{ID: "bob", Reputation: -1})
	assert.ErrorIs(t, err, dge.ErrInvalidReputation)
	assert.Error(t, f.srv.RegisterFounder(ctx, types.Founder{Reputation: 10}))

	_, err = f.srv.Founder(ctx, "bob")
	assert.ErrorIs(t, err, dge.ErrFounderNotFound)

	got, err := f.srv.Founder(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Reputation)
}

func TestServer_Assess(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 10)

	a, err := f.srv.Assess(context.Background(), "alice", 1000)
	require.NoError(t, err)
	assert.True(t, a.Eligibility.Eligible)
	assert.Equal(t, int64(1000), a.Cap)

	_, err = f.srv.Assess(context.Background(), "nobody", 1000)
	assert.ErrorIs(t, err, dge.ErrFounderNotFound)
}

func TestServer_CreateProposal(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 10)
	ctx := context.Background()

	p, err := f.srv.CreateProposal(ctx, "alice", 1000)
	require.NoError(t, err)
	assert.Equal(t, "p-001", p.ID)
	assert.Equal(t, types.StatusDraft, p.Status)

	_, err = f.srv.CreateProposal(ctx, "alice", -5)
	assert.ErrorIs(t, err, dge.ErrInvalidAmount)
	_, err = f.srv.CreateProposal(ctx, "nobody", 1000)
	assert.ErrorIs(t, err, dge.ErrFounderNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.srv.Metrics().Proposals.WithLabelValues("Draft")))
}

func TestServer_Lifecycle(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 240)
	ctx := context.Background()

	id := f.approved(t, "alice", 4000)
	for i := 0; i < 3; i++ {
		_, err := f.srv.RecordMilestoneSuccess(ctx, id)
		require.NoError(t, err)
	}

	p, err := f.srv.Proposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusCompleted, p.Status)
	assert.Equal(t, int64(600), p.BondTokens)

	founder, err := f.srv.Founder(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(250), founder.Reputation, "registry follows the completed grant")

	view, err := f.srv.Ledger(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "4000.00", view.Released)
	assert.Equal(t, "0.00", view.Remaining)
	assert.True(t, view.Frozen)

	// Submit, vote, three milestones.
	require.Len(t, f.rec.entries, 5)
	for i, e := range f.rec.entries {
		assert.Equal(t, uint64(i+1), e.Sequence)
		assert.Equal(t, id, e.ProposalID)
		assert.False(t, e.Fingerprint.IsZero())
	}
	last := f.rec.entries[4]
	assert.Equal(t, types.StatusApproved, last.From)
	assert.Equal(t, types.StatusCompleted, last.To)

	m := f.srv.Metrics()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("Submit", "Submitted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("RecordMilestoneSuccess", "Approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("RecordMilestoneSuccess", "Completed")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.Events.WithLabelValues(types.EventMilestoneReleased)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Proposals.WithLabelValues("Completed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Proposals.WithLabelValues("Draft")))
}

func TestServer_ReputationSharedAcrossProposals(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 100)
	ctx := context.Background()

	a := f.approved(t, "alice", 1000)
	b := f.approved(t, "alice", 1000)

	_, err := f.srv.RecordMilestoneDefault(ctx, a)
	require.NoError(t, err)
	_, err = f.srv.ResolveSlashingVote(ctx, a, types.Ballot{Passed: true, Turnout: 0.4})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.srv.RecordMilestoneSuccess(ctx, b)
		require.NoError(t, err)
	}

	founder, err := f.srv.Founder(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(110), founder.Reputation, "100 - 10 + 20")
}

func TestServer_InvalidTransitionLeavesState(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 10)
	ctx := context.Background()

	id := f.submitted(t, "alice", 1000)
	before, err := f.srv.Proposal(ctx, id)
	require.NoError(t, err)

	_, err = f.srv.RecordMilestoneSuccess(ctx, id)
	_, ok := dge.IsInvalidTransition(err)
	require.True(t, ok, "got %v", err)

	after, err := f.srv.Proposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.rec.entries, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.srv.Metrics().Rejections.WithLabelValues("RecordMilestoneSuccess", "invalid_transition")))
}

func TestServer_Ineligible(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 5)
	ctx := context.Background()

	p, err := f.srv.CreateProposal(ctx, "alice", 500)
	require.NoError(t, err)
	_, err = f.srv.Submit(ctx, p.ID)
	inel, ok := dge.IsIneligible(err)
	require.True(t, ok, "got %v", err)
	assert.True(t, inel.Reasons.Has(types.ReasonBelowReputationFloor))
}

func TestServer_Conflict(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	ctx := context.Background()
	id := f.approved(t, "alice", 1000)

	// Simulate a transition in flight.
	f.srv.mu.RLock()
	g := f.srv.proposals[id].guard
	f.srv.mu.RUnlock()
	require.True(t, g.TryAcquire())

	_, err := f.srv.RecordMilestoneSuccess(ctx, id)
	c, ok := dge.IsConflict(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, id, c.ProposalID)

	g.Release()
	_, err = f.srv.RecordMilestoneSuccess(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(
		f.srv.Metrics().Rejections.WithLabelValues("RecordMilestoneSuccess", "conflict")))
}

func TestServer_ConcurrentTransitionsSerialised(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	ctx := context.Background()
	id := f.approved(t, "alice", 1000)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.srv.RecordMilestoneSuccess(ctx, id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		_, conflict := dge.IsConflict(err)
		_, invalid := dge.IsInvalidTransition(err)
		assert.True(t, conflict || invalid, "unexpected error %v", err)
	}
	p, err := f.srv.Proposal(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint32(1+ok), p.Completed, "every accepted transition advanced exactly one milestone")
	assert.LessOrEqual(t, p.Completed, uint32(4))
}

func TestServer_RecordMilestoneSuccessAt(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	ctx := context.Background()
	id := f.approved(t, "alice", 1000)

	_, err := f.srv.RecordMilestoneSuccessAt(ctx, id, 3)
	m, ok := dge.IsMilestoneOutOfOrder(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, uint32(2), m.Expected)
	assert.Equal(t, uint32(3), m.Got)

	res, err := f.srv.RecordMilestoneSuccessAt(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), res.Proposal.Completed)
}

func TestServer_SubmitOracleFailure(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	ctx := context.Background()

	p, err := f.srv.CreateProposal(ctx, "alice", 1000)
	require.NoError(t, err)

	f.oracle.err = errors.New("feed down")
	_, err = f.srv.Submit(ctx, p.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOracleUnavailable)

	f.oracle.err = nil
	f.oracle.price = 0
	_, err = f.srv.Submit(ctx, p.ID)
	assert.ErrorIs(t, err, dge.ErrInvalidPrice)

	got, err := f.srv.Proposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, got.Status)
}

func TestServer_JournalFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	f.rec.err = errors.New("disk full")

	id := f.submitted(t, "alice", 1000)
	p, err := f.srv.Proposal(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, p.Status)
}

func TestServer_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.srv.Submit(ctx, "missing")
	assert.ErrorIs(t, err, dge.ErrProposalNotFound)
	_, err = f.srv.Withdraw(ctx, "missing")
	assert.ErrorIs(t, err, dge.ErrProposalNotFound)
	_, err = f.srv.Ledger(ctx, "missing")
	assert.ErrorIs(t, err, dge.ErrProposalNotFound)
}

func TestServer_ProposalsSorted(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.srv.CreateProposal(ctx, "alice", 500)
		require.NoError(t, err)
	}
	list, err := f.srv.Proposals(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}

func TestServer_ExpireVotes(t *testing.T) {
	f := newFixture(t, WithVotingPeriod(72*time.Hour))
	f.founder(t, "alice", 50)
	ctx := context.Background()

	initial := f.submitted(t, "alice", 1000)
	slashing := f.approved(t, "alice", 1000)
	_, err := f.srv.RecordMilestoneDefault(ctx, slashing)
	require.NoError(t, err)

	n, err := f.srv.ExpireVotes(ctx, f.clock.Add(71*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = f.srv.ExpireVotes(ctx, f.clock.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	p, err := f.srv.Proposal(ctx, initial)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, p.Status)
	assert.Equal(t, types.BondForfeited, p.Bond)

	p, err = f.srv.Proposal(ctx, slashing)
	require.NoError(t, err)
	assert.Equal(t, types.StatusForgiven, p.Status)

	// Nothing left to expire.
	n, err = f.srv.ExpireVotes(ctx, f.clock.Add(1000*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestServer_ExpireVotesDisabled(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	f.submitted(t, "alice", 1000)

	n, err := f.srv.ExpireVotes(context.Background(), f.clock.Add(1000*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestServer_PollVotes(t *testing.T) {
	votes := &testVotes{ballots: map[string]types.Ballot{}}
	f := newFixture(t, WithVoteOracle(votes))
	f.founder(t, "alice", 50)
	ctx := context.Background()

	pending := f.submitted(t, "alice", 1000)
	decided := f.submitted(t, "alice", 1000)
	votes.ballots[decided] = types.Ballot{Passed: true, Turnout: 0.3}

	n, err := f.srv.PollVotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, votes.reqs, 2)
	assert.Equal(t, types.VoteInitial, votes.reqs[0].Kind)
	assert.InDelta(t, 0.06, votes.reqs[0].RequiredQuorum, 1e-12)

	p, err := f.srv.Proposal(ctx, decided)
	require.NoError(t, err)
	assert.Equal(t, types.StatusApproved, p.Status)

	p, err = f.srv.Proposal(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, types.StatusSubmitted, p.Status)
}

func TestServer_PollVotesWithoutOracle(t *testing.T) {
	f := newFixture(t)
	n, err := f.srv.PollVotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestServer_CancelledContext(t *testing.T) {
	f := newFixture(t)
	f.founder(t, "alice", 50)
	id := f.approved(t, "alice", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.srv.RecordMilestoneSuccess(ctx, id)
	assert.ErrorIs(t, err, context.Canceled)
}
