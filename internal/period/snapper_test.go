package period

import (
	"testing"
	"time"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSnapperNext(t *testing.T) {
	monthly := types.NewInterval(types.IntervalUnitMonth, 1)
	quarterly := types.NewInterval(types.IntervalUnitMonth, 3)
	weekly := types.NewInterval(types.IntervalUnitWeek, 1)
	biweekly := types.NewInterval(types.IntervalUnitWeek, 2)
	yearly := types.NewInterval(types.IntervalUnitYear, 1)

	tests := []struct {
		name     string
		interval types.Interval
		n        int
		from     time.Time
		want     time.Time
	}{
		{name: "partial_month_crosses_into_next", interval: monthly, n: 15, from: date(2024, 1, 20), want: date(2024, 2, 15)},
		{name: "partial_month_same_month", interval: monthly, n: 15, from: date(2024, 1, 10), want: date(2024, 1, 15)},
		{name: "full_month_moves_one_interval", interval: monthly, n: 15, from: date(2024, 1, 15), want: date(2024, 2, 15)},
		{name: "time_of_day_is_dropped", interval: monthly, n: 15, from: time.Date(2024, 1, 20, 13, 45, 0, 0, time.UTC), want: date(2024, 2, 15)},
		{name: "quarterly_full_cycle", interval: quarterly, n: 15, from: date(2024, 1, 15), want: date(2024, 4, 15)},
		{name: "quarterly_partial_cycle", interval: quarterly, n: 15, from: date(2024, 1, 20), want: date(2024, 3, 15)},
		{name: "clamp_to_february", interval: monthly, n: 31, from: date(2023, 1, 31), want: date(2023, 2, 28)},
		{name: "clamp_to_leap_february", interval: monthly, n: 31, from: date(2024, 1, 31), want: date(2024, 2, 29)},
		{name: "clamped_day_counts_as_full", interval: monthly, n: 31, from: date(2024, 2, 29), want: date(2024, 3, 31)},
		{name: "week_full_cycle", interval: weekly, n: 1, from: date(2024, 1, 1), want: date(2024, 1, 8)},
		{name: "week_partial_cycle", interval: weekly, n: 3, from: date(2024, 1, 1), want: date(2024, 1, 3)},
		{name: "sunday_is_day_seven", interval: weekly, n: 7, from: date(2024, 1, 1), want: date(2024, 1, 7)},
		{name: "biweekly_full_cycle", interval: biweekly, n: 1, from: date(2024, 1, 1), want: date(2024, 1, 15)},
		{name: "year_partial_cycle", interval: yearly, n: 1, from: date(2024, 3, 10), want: date(2025, 1, 1)},
		{name: "year_full_cycle", interval: yearly, n: 32, from: date(2024, 2, 1), want: date(2025, 2, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSnapper(tt.interval)
			require.NoError(t, err)

			got, err := s.Next(tt.n, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapperPrevious(t *testing.T) {
	s, err := NewSnapper(types.NewInterval(types.IntervalUnitMonth, 1))
	require.NoError(t, err)

	tests := []struct {
		name string
		from time.Time
		want time.Time
	}{
		{name: "full_cycle", from: date(2024, 2, 15), want: date(2024, 1, 15)},
		{name: "partial_same_month", from: date(2024, 2, 20), want: date(2024, 2, 15)},
		{name: "partial_previous_month", from: date(2024, 3, 10), want: date(2024, 2, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Previous(15, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSnapperRejectsInvalidInput(t *testing.T) {
	_, err := NewSnapper(types.NewInterval(types.IntervalUnitDay, 1))
	assert.True(t, ierr.IsInvalidSnapDay(err))

	tests := []struct {
		name     string
		interval types.Interval
		n        int
	}{
		{name: "zero", interval: types.NewInterval(types.IntervalUnitMonth, 1), n: 0},
		{name: "past_month", interval: types.NewInterval(types.IntervalUnitMonth, 1), n: 32},
		{name: "past_week", interval: types.NewInterval(types.IntervalUnitWeek, 1), n: 8},
		{name: "past_year", interval: types.NewInterval(types.IntervalUnitYear, 1), n: 366},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSnapper(tt.interval)
			require.NoError(t, err)

			_, err = s.Next(tt.n, date(2024, 1, 1))
			assert.True(t, ierr.IsInvalidSnapDay(err))

			_, err = s.Previous(tt.n, date(2024, 1, 1))
			assert.True(t, ierr.IsInvalidSnapDay(err))
		})
	}
}

// snapping twice always advances by at least a full interval and is deterministic
func TestSnapperNextIsStable(t *testing.T) {
	for _, count := range []int{1, 3} {
		s, err := NewSnapper(types.NewInterval(types.IntervalUnitMonth, count))
		require.NoError(t, err)

		for _, n := range []int{1, 14, 28, 30, 31} {
			for d := date(2023, 12, 1); d.Before(date(2025, 1, 1)); d = d.AddDate(0, 0, 3) {
				first, err := s.Next(n, d)
				require.NoError(t, err)
				second, err := s.Next(n, first)
				require.NoError(t, err)
				again, err := s.Next(n, first)
				require.NoError(t, err)

				assert.True(t, second.After(first))
				assert.Equal(t, second, again)
				assert.True(t, s.IsNthDay(n, second))

				months := (second.Year()*12 + int(second.Month())) - (first.Year()*12 + int(first.Month()))
				assert.GreaterOrEqual(t, months, count, "n=%d from=%s", n, d)
			}
		}
	}
}
