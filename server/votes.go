package server

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"
)

// openVote is a snapshot of a proposal awaiting a governance vote.
type openVote struct {
	id     string
	status types.Status
	req    types.VoteRequest
	opened time.Time
}

func (s *Server) openVotes() []openVote {
	s.mu.RLock()
	var out []openVote
	for id, e := range s.proposals {
		p := e.proposal
		if !p.Status.AwaitingVote() {
			continue
		}
		req := types.VoteRequest{
			ProposalID:     id,
			Kind:           types.VoteInitial,
			RequiredQuorum: p.RequiredQuorum,
			OpenedAt:       types.TimeToTimestamp(e.voteOpened),
		}
		if p.Status == types.StatusSlashingVote {
			req.Kind = types.VoteSlashing
			req.Milestone = p.Completed + 1
		}
		out = append(out, openVote{id: id, status: p.Status, req: req, opened: e.voteOpened})
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b openVote) int { return strings.Compare(a.id, b.id) })
	return out
}

func (s *Server) resolve(ctx context.Context, v openVote, ballot types.Ballot) (types.TransitionResult, error) {
	if v.status == types.StatusSlashingVote {
		return s.ResolveSlashingVote(ctx, v.id, ballot)
	}
	return s.ResolveInitialVote(ctx, v.id, ballot)
}

// skippable reports errors caused by a proposal moving on between the
// snapshot and the transition.
func skippable(err error) bool {
	if _, ok := dge.IsConflict(err); ok {
		return true
	}
	_, ok := dge.IsInvalidTransition(err)
	return ok
}

// PollVotes asks the vote oracle for the outcome of every open vote
// and applies the decided ones. It returns the number of votes
// resolved. Without a vote oracle it does nothing.
func (s *Server) PollVotes(ctx context.Context) (int, error) {
	if s.votes == nil {
		return 0, nil
	}
	var (
		resolved int
		errs     []error
	)
	for _, v := range s.openVotes() {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		ballot, decided, err := s.votes.Ballot(ctx, v.req)
		if err != nil {
			errs = append(errs, fmt.Errorf("poll %s vote on %s: %w", v.req.Kind, v.id, err))
			continue
		}
		if !decided {
			continue
		}
		if _, err := s.resolve(ctx, v, ballot); err != nil {
			if skippable(err) {
				s.logger.Debug("vote outcome skipped", "proposal", v.id, "error", err)
				continue
			}
			errs = append(errs, err)
			continue
		}
		resolved++
	}
	return resolved, errors.Join(errs...)
}

// ExpireVotes resolves every vote open for at least the voting period
// as not passed with zero turnout. An expired initial vote returns the
// proposal to Draft; an expired slashing vote forgives it. It returns
// the number of votes expired.
func (s *Server) ExpireVotes(ctx context.Context, now time.Time) (int, error) {
	if s.votingPeriod <= 0 {
		return 0, nil
	}
	var (
		expired int
		errs    []error
	)
	for _, v := range s.openVotes() {
		if now.Sub(v.opened) < s.votingPeriod {
			continue
		}
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if _, err := s.resolve(ctx, v, types.Ballot{Passed: false, Turnout: 0}); err != nil {
			if skippable(err) {
				s.logger.Debug("vote expiry skipped", "proposal", v.id, "error", err)
				continue
			}
			errs = append(errs, err)
			continue
		}
		s.logger.Info("vote expired", "proposal", v.id, "kind", v.req.Kind.String(), "opened", v.opened)
		expired++
	}
	return expired, errors.Join(errs...)
}
