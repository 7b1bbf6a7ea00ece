package types

import (
	"fmt"
	"time"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/samber/lo"
)

// IntervalUnit is the unit a billing interval repeats in ex day, week, month, year
type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "day"
	IntervalUnitWeek  IntervalUnit = "week"
	IntervalUnitMonth IntervalUnit = "month"
	IntervalUnitYear  IntervalUnit = "year"
)

var IntervalUnitValues = []IntervalUnit{
	IntervalUnitDay,
	IntervalUnitWeek,
	IntervalUnitMonth,
	IntervalUnitYear,
}

// calendarUnits are the units a subscription can snap to an Nth day of
var calendarUnits = []IntervalUnit{
	IntervalUnitWeek,
	IntervalUnitMonth,
	IntervalUnitYear,
}

func (u IntervalUnit) String() string {
	return string(u)
}

func (u IntervalUnit) Validate() error {
	if !lo.Contains(IntervalUnitValues, u) {
		return ierr.NewError("invalid interval unit").
			WithHint("Interval unit must be day, week, month or year").
			WithReportableDetails(map[string]any{
				"allowed_values": IntervalUnitValues,
				"provided_value": u,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Interval is a unit plus a repeat count, ex 3 months for quarterly billing
type Interval struct {
	Unit  IntervalUnit `json:"unit" db:"interval_unit" validate:"required"`
	Count int          `json:"count" db:"interval_count" validate:"min=1"`
}

// IntervalDuration is a comparable length of an interval. Years fold into
// months and weeks fold into days so that 12 months equals 1 year.
type IntervalDuration struct {
	Months int
	Days   int
}

func NewInterval(unit IntervalUnit, count int) Interval {
	return Interval{Unit: unit, Count: count}
}

func (i Interval) Validate() error {
	if err := i.Unit.Validate(); err != nil {
		return err
	}
	if i.Count < 1 {
		return ierr.NewErrorf("interval count must be positive, got %d", i.Count).
			WithHint("Interval count must be at least 1").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SupportsSnapping reports whether the unit can be aligned to an Nth day
func (i Interval) SupportsSnapping() bool {
	return lo.Contains(calendarUnits, i.Unit)
}

// NumDays is the largest valid snap day for the unit
func (i Interval) NumDays() int {
	switch i.Unit {
	case IntervalUnitWeek:
		return 7
	case IntervalUnitMonth:
		return 31
	case IntervalUnitYear:
		return 365
	default:
		return 1
	}
}

// AddTo moves t forward by the interval. Month and year arithmetic clamps to
// the last day of the target month instead of overflowing into the next one.
func (i Interval) AddTo(t time.Time) time.Time {
	return i.shift(t, i.Count)
}

// SubFrom moves t backward by the interval with the same clamping as AddTo
func (i Interval) SubFrom(t time.Time) time.Time {
	return i.shift(t, -i.Count)
}

func (i Interval) shift(t time.Time, n int) time.Time {
	switch i.Unit {
	case IntervalUnitDay:
		return t.AddDate(0, 0, n)
	case IntervalUnitWeek:
		return t.AddDate(0, 0, 7*n)
	case IntervalUnitMonth:
		return AddClampedMonths(t, n)
	case IntervalUnitYear:
		return AddClampedMonths(t, 12*n)
	default:
		return t
	}
}

func (i Interval) Duration() IntervalDuration {
	switch i.Unit {
	case IntervalUnitDay:
		return IntervalDuration{Days: i.Count}
	case IntervalUnitWeek:
		return IntervalDuration{Days: 7 * i.Count}
	case IntervalUnitMonth:
		return IntervalDuration{Months: i.Count}
	case IntervalUnitYear:
		return IntervalDuration{Months: 12 * i.Count}
	default:
		return IntervalDuration{}
	}
}

func (i Interval) String() string {
	if i.Count == 1 {
		return fmt.Sprintf("1 %s", i.Unit)
	}
	return fmt.Sprintf("%d %ss", i.Count, i.Unit)
}

// AddClampedMonths adds months to t keeping the wall clock, clamping the day
// to the end of the target month (Jan 31 + 1 month = Feb 28/29).
func AddClampedMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	h, min, sec := t.Clock()

	// day 1 never overflows, time.Date normalises the month
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	lastDay := DaysIn(first.Year(), first.Month(), t.Location())
	if d > lastDay {
		d = lastDay
	}

	return time.Date(first.Year(), first.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}

// DaysIn returns the number of days in the given month
func DaysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// StartOfDay returns midnight of t's calendar day in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
