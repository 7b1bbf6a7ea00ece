package period

import (
	"time"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
)

// Snapper finds dates falling on the Nth day of a week, month or year while
// honoring interval multiples, ex the 15th of every third month.
type Snapper struct {
	interval types.Interval
}

// NewSnapper returns a snapper for week, month and year intervals
func NewSnapper(interval types.Interval) (*Snapper, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}
	if !interval.SupportsSnapping() {
		return nil, ierr.NewErrorf("interval unit %s is not supported for calendar snapping", interval.Unit).
			WithHint("Calendar billing is only available for weekly, monthly and yearly plans").
			WithReportableDetails(map[string]any{"interval_unit": interval.Unit}).
			Mark(ierr.ErrInvalidSnapDay)
	}
	return &Snapper{interval: interval}, nil
}

// Validate checks that n is a valid day for the interval unit
func (s *Snapper) Validate(n int) error {
	if n < 1 || n > s.interval.NumDays() {
		return ierr.NewErrorf("snap day %d is out of range for unit %s", n, s.interval.Unit).
			WithHintf("Snap day must be between 1 and %d", s.interval.NumDays()).
			WithReportableDetails(map[string]any{
				"snap_day":      n,
				"interval_unit": s.interval.Unit,
				"max":           s.interval.NumDays(),
			}).
			Mark(ierr.ErrInvalidSnapDay)
	}
	return nil
}

// Next returns the start of the first Nth day after t. When t is already an
// Nth day a full interval of unit boundaries must be crossed first, otherwise
// one boundary less.
func (s *Snapper) Next(n int, t time.Time) (time.Time, error) {
	if err := s.Validate(n); err != nil {
		return time.Time{}, err
	}
	return s.walk(n, t, 1), nil
}

// Previous is the mirror of Next walking back in time
func (s *Snapper) Previous(n int, t time.Time) (time.Time, error) {
	if err := s.Validate(n); err != nil {
		return time.Time{}, err
	}
	return s.walk(n, t, -1), nil
}

// IsNthDay reports whether t falls on day n of its week, month or year.
// Month days past the end of a short month match its last day.
func (s *Snapper) IsNthDay(n int, t time.Time) bool {
	switch s.interval.Unit {
	case types.IntervalUnitWeek:
		return isoWeekday(t) == n
	case types.IntervalUnitMonth:
		last := types.DaysIn(t.Year(), t.Month(), t.Location())
		return t.Day() == min(n, last)
	case types.IntervalUnitYear:
		return t.YearDay() == n
	default:
		return false
	}
}

// walk assumes n was validated. dir is 1 or -1.
func (s *Snapper) walk(n int, t time.Time, dir int) time.Time {
	start := types.StartOfDay(t)
	y, m, d := start.Date()
	loc := start.Location()

	required := s.interval.Count
	if !s.IsNthDay(n, start) {
		required--
	}

	// a match always exists within count+1 units
	limit := (s.interval.Count + 1) * (s.interval.NumDays() + 1)

	crossings := 0
	cur := start
	for i := 1; i <= limit; i++ {
		next := time.Date(y, m, d+dir*i, 0, 0, 0, 0, loc)
		if dir > 0 && s.isUnitStart(next) {
			crossings++
		}
		if dir < 0 && s.isUnitStart(cur) {
			crossings++
		}
		cur = next

		if crossings >= required && s.IsNthDay(n, cur) {
			return cur
		}
	}

	return cur
}

// isUnitStart reports whether t is the first day of a week, month or year
func (s *Snapper) isUnitStart(t time.Time) bool {
	switch s.interval.Unit {
	case types.IntervalUnitWeek:
		return t.Weekday() == time.Monday
	case types.IntervalUnitMonth:
		return t.Day() == 1
	case types.IntervalUnitYear:
		return t.YearDay() == 1
	default:
		return false
	}
}

// isoWeekday numbers Monday as 1 and Sunday as 7
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
