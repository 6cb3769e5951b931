// Package server hosts the grant engine: it stores founders and
// proposals, serialises transitions per proposal, reads the protocol
// oracles and fans transition results out to the journal, metrics
// and logs.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/journal"
	"github.com/blockberries/dge/machine"
	"github.com/blockberries/dge/types"

	"github.com/google/uuid"
)

// Compile-time interface check.
var _ dge.Engine = (*Server)(nil)

// ErrOracleUnavailable wraps price and supply oracle failures.
var ErrOracleUnavailable = errors.New("dge: oracle unavailable")

// Server implements dge.Engine over an in-memory store.
type Server struct {
	machine *machine.Machine
	price   dge.PriceOracle
	supply  dge.SupplyOracle
	votes   dge.VoteOracle

	recorder     journal.Recorder
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
	newID        func() string
	votingPeriod time.Duration

	seq atomic.Uint64

	mu        sync.RWMutex
	founders  map[string]types.Founder
	proposals map[string]*entry
}

type entry struct {
	guard    *Guard
	proposal types.Proposal
	// voteOpened is when the current initial or slashing vote opened.
	voteOpened time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRecorder sets the journal recorder. The server takes ownership
// and closes it on Close.
func WithRecorder(r journal.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithVoteOracle enables PollVotes.
func WithVoteOracle(v dge.VoteOracle) Option {
	return func(s *Server) { s.votes = v }
}

// WithVotingPeriod sets how long a vote may stay open before
// ExpireVotes resolves it as not passed. Zero disables expiry.
func WithVotingPeriod(d time.Duration) Option {
	return func(s *Server) { s.votingPeriod = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator overrides proposal ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Server) { s.newID = fn }
}

// New creates a Server driving m with the given protocol oracles.
func New(m *machine.Machine, price dge.PriceOracle, supply dge.SupplyOracle, opts ...Option) *Server {
	s := &Server{
		machine:   m,
		price:     price,
		supply:    supply,
		recorder:  journal.NoopRecorder{},
		logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
		founders:  make(map[string]types.Founder),
		proposals: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// Machine returns the underlying state machine.
func (s *Server) Machine() *machine.Machine {
	return s.machine
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// RegisterFounder adds a founder profile.
func (s *Server) RegisterFounder(_ context.Context, f types.Founder) error {
	if f.ID == "" {
		return errors.New("dge: founder id is required")
	}
	if f.Reputation < 0 || f.Reputation > s.machine.Params().ScaleMax {
		return fmt.Errorf("%w: %d outside [0, %d]", dge.ErrInvalidReputation, f.Reputation, s.machine.Params().ScaleMax)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.founders[f.ID]; ok {
		return fmt.Errorf("%w: %s", dge.ErrFounderExists, f.ID)
	}
	s.founders[f.ID] = f
	s.logger.Info("founder registered", "founder", f.ID, "reputation", f.Reputation)
	return nil
}

// Founder returns the current founder profile.
func (s *Server) Founder(_ context.Context, id string) (types.Founder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.founders[id]
	if !ok {
		return types.Founder{}, fmt.Errorf("%w: %s", dge.ErrFounderNotFound, id)
	}
	return f, nil
}

// Assess evaluates a prospective request for the founder.
func (s *Server) Assess(ctx context.Context, founderID string, requestedUSD float64) (types.Assessment, error) {
	f, err := s.Founder(ctx, founderID)
	if err != nil {
		return types.Assessment{}, err
	}
	return s.machine.Assess(f, requestedUSD), nil
}

// CreateProposal stores a new Draft proposal for the founder.
func (s *Server) CreateProposal(ctx context.Context, founderID string, requestedUSD float64) (types.Proposal, error) {
	f, err := s.Founder(ctx, founderID)
	if err != nil {
		return types.Proposal{}, err
	}
	p, err := s.machine.Draft(s.newID(), f, requestedUSD)
	if err != nil {
		return types.Proposal{}, err
	}

	s.mu.Lock()
	if _, ok := s.proposals[p.ID]; ok {
		s.mu.Unlock()
		return types.Proposal{}, fmt.Errorf("dge: duplicate proposal id %s", p.ID)
	}
	s.proposals[p.ID] = &entry{guard: NewGuard(), proposal: p}
	s.mu.Unlock()

	s.metrics.created()
	s.logger.Info("proposal created", "proposal", p.ID, "founder", f.ID, "requested_usd", requestedUSD)
	return p, nil
}

// Submit reads the protocol oracles and submits a Draft proposal.
func (s *Server) Submit(ctx context.Context, id string) (types.TransitionResult, error) {
	p, err := s.Proposal(ctx, id)
	if err != nil {
		return types.TransitionResult{}, err
	}
	var state types.ProtocolState
	if s.machine.Allowed(p.Status, types.ActionSubmit) {
		if state, err = s.protocolState(ctx); err != nil {
			s.metrics.rejected(types.ActionSubmit, err)
			s.logger.Warn("protocol state unavailable", "proposal", id, "error", err)
			return types.TransitionResult{}, err
		}
	}
	return s.transition(ctx, id, types.ActionSubmit, func(p types.Proposal) (types.Proposal, []types.Event, error) {
		return s.machine.Submit(p, state)
	})
}

// ResolveInitialVote applies the initial funding vote.
func (s *Server) ResolveInitialVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionResolveInitialVote, func(p types.Proposal) (types.Proposal, []types.Event, error) {
		return s.machine.ResolveInitialVote(p, ballot)
	})
}

// RecordMilestoneSuccess releases the next tranche.
func (s *Server) RecordMilestoneSuccess(ctx context.Context, id string) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionRecordMilestoneSuccess, s.machine.RecordMilestoneSuccess)
}

// RecordMilestoneSuccessAt releases the tranche of the 1-based
// milestone index, which must be the next one due.
func (s *Server) RecordMilestoneSuccessAt(ctx context.Context, id string, index uint32) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionRecordMilestoneSuccess, func(p types.Proposal) (types.Proposal, []types.Event, error) {
		if p.Status == types.StatusApproved && index != p.Completed+1 {
			return p, nil, &dge.MilestoneOutOfOrderError{ProposalID: p.ID, Expected: p.Completed + 1, Got: index}
		}
		return s.machine.RecordMilestoneSuccess(p)
	})
}

// RecordMilestoneDefault opens a slashing vote on the next milestone.
func (s *Server) RecordMilestoneDefault(ctx context.Context, id string) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionRecordMilestoneDefault, s.machine.RecordMilestoneDefault)
}

// ResolveSlashingVote applies a slashing vote.
func (s *Server) ResolveSlashingVote(ctx context.Context, id string, ballot types.Ballot) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionResolveSlashingVote, func(p types.Proposal) (types.Proposal, []types.Event, error) {
		return s.machine.ResolveSlashingVote(p, ballot)
	})
}

// Withdraw abandons a Draft proposal.
func (s *Server) Withdraw(ctx context.Context, id string) (types.TransitionResult, error) {
	return s.transition(ctx, id, types.ActionWithdraw, s.machine.Withdraw)
}

// Proposal returns the stored proposal.
func (s *Server) Proposal(_ context.Context, id string) (types.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.proposals[id]
	if !ok {
		return types.Proposal{}, fmt.Errorf("%w: %s", dge.ErrProposalNotFound, id)
	}
	return e.proposal, nil
}

// Proposals returns every stored proposal ordered by ID.
func (s *Server) Proposals(_ context.Context) ([]types.Proposal, error) {
	s.mu.RLock()
	out := make([]types.Proposal, 0, len(s.proposals))
	for _, e := range s.proposals {
		out = append(out, e.proposal)
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b types.Proposal) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Ledger reports released and remaining funds. The ledger of a
// terminal proposal is frozen.
func (s *Server) Ledger(ctx context.Context, id string) (types.LedgerView, error) {
	p, err := s.Proposal(ctx, id)
	if err != nil {
		return types.LedgerView{}, err
	}
	l, err := s.machine.Ledger(p)
	if err != nil {
		return types.LedgerView{}, err
	}
	return l.View(p.ID, p.Status.IsTerminal()), nil
}

// Close closes the journal recorder.
func (s *Server) Close() error {
	return s.recorder.Close()
}

// transition runs apply on the stored proposal while holding its
// guard. The founder's current reputation is loaded into the proposal
// first and written back on success, so reputation changes made by
// other proposals of the same founder are never lost.
func (s *Server) transition(ctx context.Context, id string, action types.Action, apply func(types.Proposal) (types.Proposal, []types.Event, error)) (types.TransitionResult, error) {
	if err := ctx.Err(); err != nil {
		return types.TransitionResult{}, err
	}
	s.mu.RLock()
	e, ok := s.proposals[id]
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("%w: %s", dge.ErrProposalNotFound, id)
		s.metrics.rejected(action, err)
		return types.TransitionResult{}, err
	}
	if !e.guard.TryAcquire() {
		err := &dge.ConflictError{ProposalID: id, Action: action}
		s.metrics.rejected(action, err)
		s.logger.Warn("transition rejected", "proposal", id, "action", action.String(), "error", err)
		return types.TransitionResult{}, err
	}
	defer e.guard.Release()

	s.mu.Lock()
	current := e.proposal
	if f, ok := s.founders[current.Founder.ID]; ok {
		current.Founder.Reputation = f.Reputation
	}
	next, events, err := apply(current)
	if err == nil {
		e.proposal = next
		if next.Status != current.Status && next.Status.AwaitingVote() {
			e.voteOpened = s.now()
		}
		s.founders[next.Founder.ID] = next.Founder
	}
	s.mu.Unlock()

	if err != nil {
		s.metrics.rejected(action, err)
		s.logger.Warn("transition rejected", "proposal", id, "action", action.String(), "from", current.Status.String(), "error", err)
		return types.TransitionResult{}, err
	}

	fp, ferr := next.Fingerprint()
	if ferr != nil {
		s.logger.Error("fingerprint failed", "proposal", id, "error", ferr)
	}
	res := types.TransitionResult{
		Action:      action,
		From:        current.Status,
		Proposal:    next,
		Events:      events,
		Fingerprint: fp,
	}
	s.metrics.transitioned(res)
	s.record(ctx, res)
	s.logger.Info("proposal transition",
		"proposal", id,
		"action", action.String(),
		"from", current.Status.String(),
		"to", next.Status.String(),
		"events", len(events),
	)
	return res, nil
}

func (s *Server) record(ctx context.Context, res types.TransitionResult) {
	e := journal.Entry{
		Sequence:    s.seq.Add(1),
		ProposalID:  res.Proposal.ID,
		Action:      res.Action,
		From:        res.From,
		To:          res.Proposal.Status,
		Fingerprint: res.Fingerprint,
		Events:      res.Events,
		At:          s.now().UTC(),
	}
	if err := s.recorder.Record(ctx, e); err != nil {
		s.logger.Error("journal write failed", "proposal", e.ProposalID, "sequence", e.Sequence, "error", err)
	}
}

func (s *Server) protocolState(ctx context.Context) (types.ProtocolState, error) {
	price, err := s.price.TokenPriceUSD(ctx)
	if err != nil {
		return types.ProtocolState{}, fmt.Errorf("%w: token price: %w", ErrOracleUnavailable, err)
	}
	supply, err := s.supply.CirculatingSupply(ctx)
	if err != nil {
		return types.ProtocolState{}, fmt.Errorf("%w: circulating supply: %w", ErrOracleUnavailable, err)
	}
	return types.ProtocolState{CirculatingSupply: supply, TokenPriceUSD: price}, nil
}
