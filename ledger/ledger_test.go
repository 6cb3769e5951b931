package ledger

import (
	"math"
	"testing"

	"github.com/blockberries/dge"
	"github.com/blockberries/dge/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedule(t *testing.T) {
	s, err := NewSchedule([]types.Milestone{
		{Name: "design", Percent: 10},
		{Name: "build", Percent: 60},
		{Name: "launch", Percent: 30},
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(3), s.Len())

	m, ok := s.Milestone(2)
	require.True(t, ok)
	assert.Equal(t, "build", m.Name)

	_, ok = s.Milestone(0)
	assert.False(t, ok)
	_, ok = s.Milestone(4)
	assert.False(t, ok)
}

func TestNewSchedule_DecimalSum(t *testing.T) {
	// 33.3 + 33.3 + 33.4 is not 100 in float64 arithmetic.
	_, err := NewSchedule([]types.Milestone{
		{Name: "a", Percent: 33.3},
		{Name: "b", Percent: 33.3},
		{Name: "c", Percent: 33.4},
	})
	require.NoError(t, err)
}

func TestNewSchedule_Invalid(t *testing.T) {
	tests := map[string][]types.Milestone{
		"empty":    nil,
		"sum_low":  {{Name: "a", Percent: 50}, {Name: "b", Percent: 49.99}},
		"sum_high": {{Name: "a", Percent: 50}, {Name: "b", Percent: 50.01}},
		"zero":     {{Name: "a", Percent: 100}, {Name: "b", Percent: 0}},
		"negative": {{Name: "a", Percent: 110}, {Name: "b", Percent: -10}},
		"nan":      {{Name: "a", Percent: math.NaN()}},
		"infinite": {{Name: "a", Percent: math.Inf(1)}},
	}
	for name, ms := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewSchedule(ms)
			assert.ErrorIs(t, err, dge.ErrInvalidSchedule)
		})
	}
}

func TestSchedule_MilestonesIsCopy(t *testing.T) {
	s := DefaultSchedule()
	ms := s.Milestones()
	ms[0].Percent = 99
	m, _ := s.Milestone(1)
	assert.Equal(t, 25.0, m.Percent)
}

func TestLedger_DefaultScheduleReleases(t *testing.T) {
	l, err := New(DefaultSchedule(), 1000, 0)
	require.NoError(t, err)
	assert.True(t, l.Released().IsZero())
	assert.Equal(t, "1000", l.Remaining().String())

	l, amount, err := l.Advance()
	require.NoError(t, err)
	assert.Equal(t, "250", amount.String())
	assert.Equal(t, "250", l.Released().String())
	assert.Equal(t, "750", l.Remaining().String())

	l, _, err = l.Advance()
	require.NoError(t, err)
	assert.Equal(t, "500", l.Released().String())
}

func TestLedger_TranchesSumToRequested(t *testing.T) {
	schedules := []Schedule{DefaultSchedule()}
	s, err := NewSchedule([]types.Milestone{
		{Name: "a", Percent: 33.3},
		{Name: "b", Percent: 33.3},
		{Name: "c", Percent: 33.4},
	})
	require.NoError(t, err)
	schedules = append(schedules, s)

	for _, sched := range schedules {
		for _, requested := range []float64{100, 1000, 1234.56, 9999.99, 10000} {
			l, err := New(sched, requested, 0)
			require.NoError(t, err)

			var amounts []decimal.Decimal
			prev := l.Released()
			for !l.Done() {
				var amount decimal.Decimal
				l, amount, err = l.Advance()
				require.NoError(t, err)
				assert.True(t, l.Released().GreaterThanOrEqual(prev), "released decreased")
				prev = l.Released()
				amounts = append(amounts, amount)
			}
			total := decimal.Sum(amounts[0], amounts[1:]...)
			assert.True(t, total.Equal(decimal.NewFromFloat(requested)),
				"requested %v: tranches sum to %s", requested, total)
			assert.True(t, l.Remaining().IsZero())
		}
	}
}

func TestLedger_Exhausted(t *testing.T) {
	l, err := New(DefaultSchedule(), 1000, 4)
	require.NoError(t, err)
	assert.True(t, l.Done())

	_, _, err = l.Advance()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestLedger_InvalidInputs(t *testing.T) {
	for _, requested := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := New(DefaultSchedule(), requested, 0)
		assert.ErrorIs(t, err, dge.ErrInvalidAmount, "requested %v", requested)
	}

	_, err := New(DefaultSchedule(), 1000, 5)
	assert.Error(t, err)

	_, err = New(Schedule{}, 1000, 0)
	assert.ErrorIs(t, err, dge.ErrInvalidSchedule)
}

func TestLedger_Tranche(t *testing.T) {
	l, err := New(DefaultSchedule(), 1000, 0)
	require.NoError(t, err)

	amount, err := l.Tranche(3)
	require.NoError(t, err)
	assert.Equal(t, "250", amount.String())

	_, err = l.Tranche(0)
	assert.Error(t, err)
	_, err = l.Tranche(5)
	assert.Error(t, err)
}

func TestLedger_View(t *testing.T) {
	l, err := New(DefaultSchedule(), 1000, 2)
	require.NoError(t, err)

	v := l.View("p-1", true)
	assert.Equal(t, "p-1", v.ProposalID)
	assert.Equal(t, "1000.00", v.Requested)
	assert.Equal(t, "500.00", v.Released)
	assert.Equal(t, "500.00", v.Remaining)
	assert.Equal(t, 500.0, v.ReleasedUSD)
	assert.Equal(t, uint32(2), v.Completed)
	assert.Equal(t, uint32(4), v.Total)
	assert.True(t, v.Frozen)
	require.Len(t, v.Tranches, 4)
	assert.True(t, v.Tranches[1].Released)
	assert.False(t, v.Tranches[2].Released)
	assert.Equal(t, "adoption", v.Tranches[3].Name)
	assert.Equal(t, "250.00", v.Tranches[3].Amount)
}
