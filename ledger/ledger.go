package ledger

import (
	"errors"
	"fmt"
	"math"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/shopspring/decimal"
)

// ErrExhausted is returned by Advance once every tranche is released.
var ErrExhausted = errors.New("ledger: all tranches released")

// Ledger is an immutable view of how much of a grant has been released.
type Ledger struct {
	schedule  Schedule
	requested decimal.Decimal
	completed uint32
}

// New builds a ledger for requestedUSD with completed tranches already
// released.
func New(s Schedule, requestedUSD float64, completed uint32) (Ledger, error) {
	if math.IsNaN(requestedUSD) || math.IsInf(requestedUSD, 0) || requestedUSD < 0 {
		return Ledger{}, fmt.Errorf("%w: %v", dge.ErrInvalidAmount, requestedUSD)
	}
	if s.Len() == 0 {
		return Ledger{}, fmt.Errorf("%w: no milestones", dge.ErrInvalidSchedule)
	}
	if completed > s.Len() {
		return Ledger{}, fmt.Errorf("ledger: %d completed of %d milestones", completed, s.Len())
	}
	return Ledger{
		schedule:  s,
		requested: decimal.NewFromFloat(requestedUSD),
		completed: completed,
	}, nil
}

// Completed returns the number of released tranches.
func (l Ledger) Completed() uint32 { return l.completed }

// Total returns the number of milestones.
func (l Ledger) Total() uint32 { return l.schedule.Len() }

// Done reports whether every tranche has been released.
func (l Ledger) Done() bool { return l.completed == l.schedule.Len() }

// Requested returns the grant amount.
func (l Ledger) Requested() decimal.Decimal { return l.requested }

// Released returns the funds released so far, rounded to cents.
func (l Ledger) Released() decimal.Decimal {
	return l.releasedAt(l.completed)
}

// Remaining returns the funds not yet released.
func (l Ledger) Remaining() decimal.Decimal {
	return l.requested.Sub(l.Released())
}

// Tranche returns the amount released by the 1-based milestone i.
func (l Ledger) Tranche(i uint32) (decimal.Decimal, error) {
	if i == 0 || i > l.schedule.Len() {
		return decimal.Zero, fmt.Errorf("ledger: tranche %d outside 1..%d", i, l.schedule.Len())
	}
	return l.releasedAt(i).Sub(l.releasedAt(i - 1)), nil
}

// Advance releases the next tranche and returns the new ledger together
// with the amount released.
func (l Ledger) Advance() (Ledger, decimal.Decimal, error) {
	if l.Done() {
		return l, decimal.Zero, ErrExhausted
	}
	next := l
	next.completed++
	amount, err := next.Tranche(next.completed)
	if err != nil {
		return l, decimal.Zero, err
	}
	return next, amount, nil
}

func (l Ledger) releasedAt(k uint32) decimal.Decimal {
	if k == l.schedule.Len() {
		return l.requested
	}
	return l.requested.Mul(l.schedule.cumulative[k]).Div(hundred).Round(2)
}

// View renders the ledger for reporting. Frozen marks a ledger whose
// remaining tranches will never be released.
func (l Ledger) View(proposalID string, frozen bool) types.LedgerView {
	v := types.LedgerView{
		ProposalID:   proposalID,
		Requested:    l.requested.StringFixed(2),
		Released:     l.Released().StringFixed(2),
		Remaining:    l.Remaining().StringFixed(2),
		ReleasedUSD:  l.Released().InexactFloat64(),
		RemainingUSD: l.Remaining().InexactFloat64(),
		Completed:    l.completed,
		Total:        l.schedule.Len(),
		Frozen:       frozen,
		Tranches:     make([]types.Tranche, 0, l.schedule.Len()),
	}
	for i := uint32(1); i <= l.schedule.Len(); i++ {
		m, _ := l.schedule.Milestone(i)
		amount, _ := l.Tranche(i)
		v.Tranches = append(v.Tranches, types.Tranche{
			Index:    i,
			Name:     m.Name,
			Percent:  m.Percent,
			Amount:   amount.StringFixed(2),
			Released: i <= l.completed,
		})
	}
	return v
}
