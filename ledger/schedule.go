// Package ledger tracks milestone tranche release for a grant.
//
// Amounts are computed in decimal arithmetic. Released funds after k
// milestones are derived from the cumulative percentage, not by adding
// rounded tranches, so the total released after the last milestone is
// exactly the requested amount.
package ledger

import (
	"fmt"
	"math"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Schedule is an ordered, validated list of milestones whose
// percentages sum to exactly 100. The zero Schedule is empty and is
// rejected by the machine.
type Schedule struct {
	milestones []types.Milestone
	// cumulative[k] is the percentage released after k milestones.
	cumulative []decimal.Decimal
}

// NewSchedule validates milestones and builds a schedule.
func NewSchedule(milestones []types.Milestone) (Schedule, error) {
	if len(milestones) == 0 {
		return Schedule{}, fmt.Errorf("%w: no milestones", dge.ErrInvalidSchedule)
	}
	if uint64(len(milestones)) > math.MaxUint32 {
		return Schedule{}, fmt.Errorf("%w: too many milestones", dge.ErrInvalidSchedule)
	}
	s := Schedule{
		milestones: make([]types.Milestone, len(milestones)),
		cumulative: make([]decimal.Decimal, len(milestones)+1),
	}
	copy(s.milestones, milestones)
	s.cumulative[0] = decimal.Zero
	for i, m := range milestones {
		if math.IsNaN(m.Percent) || math.IsInf(m.Percent, 0) || m.Percent <= 0 {
			return Schedule{}, fmt.Errorf("%w: milestone %d (%q) has percent %v", dge.ErrInvalidSchedule, i+1, m.Name, m.Percent)
		}
		s.cumulative[i+1] = s.cumulative[i].Add(decimal.NewFromFloat(m.Percent))
	}
	if total := s.cumulative[len(milestones)]; !total.Equal(hundred) {
		return Schedule{}, fmt.Errorf("%w: percentages sum to %s, want 100", dge.ErrInvalidSchedule, total)
	}
	return s, nil
}

// DefaultSchedule returns four equal 25% milestones.
func DefaultSchedule() Schedule {
	s, err := NewSchedule([]types.Milestone{
		{Name: "prototype", Percent: 25},
		{Name: "testnet", Percent: 25},
		{Name: "mainnet", Percent: 25},
		{Name: "adoption", Percent: 25},
	})
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of milestones.
func (s Schedule) Len() uint32 {
	return uint32(len(s.milestones))
}

// Milestones returns a copy of the milestones in order.
func (s Schedule) Milestones() []types.Milestone {
	out := make([]types.Milestone, len(s.milestones))
	copy(out, s.milestones)
	return out
}

// Milestone returns the 1-based milestone i.
func (s Schedule) Milestone(i uint32) (types.Milestone, bool) {
	if i == 0 || i > s.Len() {
		return types.Milestone{}, false
	}
	return s.milestones[i-1], true
}
