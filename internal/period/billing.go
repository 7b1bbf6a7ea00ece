package period

import (
	"fmt"
	"time"

	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

const day = 24 * time.Hour

// BillingPeriods computes billing period boundaries for one subscription.
// Periods are anniversary based unless the subscription snaps to an Nth day.
// All dates are evaluated in the subscription's timezone. The only state it
// changes is the cursor fields of the subscription passed in, through
// Initialize, Advance and ResetAfterChangedDuration.
type BillingPeriods struct {
	sub      *subscription.Subscription
	interval types.Interval
	snapper  *Snapper
	loc      *time.Location
}

func NewBillingPeriods(sub *subscription.Subscription, p *plan.Plan) (*BillingPeriods, error) {
	if sub == nil || p == nil {
		return nil, ierr.NewError("subscription and plan are required").
			WithHint("Billing periods need a subscription and its plan").
			Mark(ierr.ErrValidation)
	}

	if err := p.Interval.Validate(); err != nil {
		return nil, err
	}

	b := &BillingPeriods{
		sub:      sub,
		interval: p.Interval,
		loc:      sub.Location(),
	}

	if sub.IsCalendarBilled() {
		snapper, err := NewSnapper(p.Interval)
		if err != nil {
			return nil, err
		}
		if err := snapper.Validate(sub.SnapToNthDay); err != nil {
			return nil, err
		}
		b.snapper = snapper
	}

	return b, nil
}

func (b *BillingPeriods) local(t time.Time) time.Time {
	return t.In(b.loc)
}

// CalculatePeriodEnd returns the inclusive end of the period starting at start
func (b *BillingPeriods) CalculatePeriodEnd(start time.Time) time.Time {
	start = b.local(start)

	if b.snapper == nil {
		return b.interval.AddTo(start).Add(-time.Second)
	}

	n := b.sub.SnapToNthDay
	next := b.snapper.walk(n, start, 1)
	// a start late on the day before the snap day would otherwise yield a
	// period shorter than a day
	if next.Sub(start) < day {
		next = b.snapper.walk(n, next, 1)
	}
	return next.Add(-time.Second)
}

// CalculateNextPeriod returns the period starting at start, or right after
// the current period end when start is nil
func (b *BillingPeriods) CalculateNextPeriod(start *time.Time) BillingPeriod {
	from := b.sub.PeriodEnd.Add(time.Second)
	if start != nil {
		from = *start
	}
	from = b.local(from)

	p := BillingPeriod{
		Start: from,
		End:   b.CalculatePeriodEnd(from),
	}
	p.BillDate = b.billDate(p)
	return p
}

func (b *BillingPeriods) billDate(p BillingPeriod) *time.Time {
	if b.sub.BillIn == types.BillInArrears {
		return lo.ToPtr(p.NextStart())
	}
	return lo.ToPtr(p.Start)
}

// Current returns the period stored on the subscription cursors
func (b *BillingPeriods) Current() BillingPeriod {
	p := BillingPeriod{
		Start: b.local(b.sub.PeriodStart),
		End:   b.local(b.sub.PeriodEnd),
	}
	if !b.sub.RenewsNext.IsZero() {
		p.BillDate = lo.ToPtr(b.local(b.sub.RenewsNext))
	}
	return p
}

// Initial returns the first period of the subscription as seen at now. A
// subscription starting in the future first lives an unbilled period from
// today until its start. The bill date is the one of the first billed period.
func (b *BillingPeriods) Initial(now time.Time) BillingPeriod {
	start := b.local(b.sub.StartDate)
	now = b.local(now)

	if start.After(now) {
		first := b.firstBilledPeriod(start)
		return BillingPeriod{
			Start:    types.StartOfDay(now),
			End:      start.Add(-time.Second),
			BillDate: first.BillDate,
		}
	}

	if b.sub.IsTrialing() && b.sub.TrialEnd != nil && b.sub.TrialEnd.After(start) {
		trialEnd := b.local(*b.sub.TrialEnd)
		first := b.firstBilledPeriod(trialEnd)
		return BillingPeriod{
			Start:    start,
			End:      trialEnd.Add(-time.Second),
			BillDate: first.BillDate,
		}
	}

	p := BillingPeriod{
		Start: start,
		End:   applyOverlapCorrection(b.CalculatePeriodEnd(start)),
	}
	p.BillDate = b.billDate(p)
	return p
}

func (b *BillingPeriods) firstBilledPeriod(start time.Time) BillingPeriod {
	p := BillingPeriod{
		Start: start,
		End:   applyOverlapCorrection(b.CalculatePeriodEnd(start)),
	}
	p.BillDate = b.billDate(p)
	return p
}

// Initialize points the cursors of a new subscription at its initial period
// and sets up the contract term
func (b *BillingPeriods) Initialize(now time.Time) {
	p := b.Initial(now)
	b.sub.PeriodStart = p.Start
	b.sub.PeriodEnd = p.End
	b.sub.RenewedLast = nil

	// a billable period in advance is picked up right away
	if b.sub.BillIn == types.BillInAdvance && !b.inUnbilledPeriod() {
		b.sub.RenewsNext = p.Start
	} else {
		b.sub.RenewsNext = p.NextStart()
	}

	b.Contract().Update()
}

// inUnbilledPeriod reports whether the cursor sits on a trial or on the
// period before a future start, neither of which is invoiced
func (b *BillingPeriods) inUnbilledPeriod() bool {
	if b.sub.IsTrialing() {
		return true
	}
	return b.sub.HasPeriod() && b.sub.PeriodEnd.Before(b.sub.StartDate)
}

// IsBehind reports whether the next invoice bills a period after the
// current one. Arrears billing invoices the period being lived unless it is
// unbilled. Advance billing has already invoiced the current period once the
// subscription renewed.
func (b *BillingPeriods) IsBehind() bool {
	if b.sub.BillIn == types.BillInArrears {
		return b.inUnbilledPeriod()
	}
	return b.inUnbilledPeriod() || b.sub.RenewedLast != nil
}

// ForUpcomingInvoice returns the period the next invoice bills
func (b *BillingPeriods) ForUpcomingInvoice() BillingPeriod {
	if b.IsBehind() {
		return b.DeterminePeriodToAdvance()
	}
	p := b.Current()
	p.BillDate = b.billDate(p)
	return p
}

// DeterminePeriodToAdvance returns the period following the current one.
// A trial hands over to the first billed period right after it ends.
func (b *BillingPeriods) DeterminePeriodToAdvance() BillingPeriod {
	start := b.sub.PeriodEnd.Add(time.Second)
	if b.sub.IsTrialing() && b.sub.TrialEnd != nil {
		start = *b.sub.TrialEnd
	}
	return b.CalculateNextPeriod(&start)
}

// Next is an alias of DeterminePeriodToAdvance
func (b *BillingPeriods) Next() BillingPeriod {
	return b.DeterminePeriodToAdvance()
}

// PeriodToInvoice returns the period billed at the renewal now due, nil
// when the renewal bills nothing (end of an arrears trial or past the end
// of the subscription).
func (b *BillingPeriods) PeriodToInvoice() *BillingPeriod {
	if b.sub.BillIn == types.BillInArrears {
		if b.inUnbilledPeriod() {
			return nil
		}
		p := b.Current()
		p.BillDate = b.billDate(p)
		return &p
	}

	if !b.inUnbilledPeriod() && b.sub.RenewedLast == nil {
		p := b.Current()
		p.BillDate = b.billDate(p)
		return &p
	}

	next := b.DeterminePeriodToAdvance()
	if end := b.EndDate(); end != nil && next.Start.After(*end) {
		return nil
	}
	return &next
}

// Advance moves the cursors after a renewal. When billing in advance the
// renewal that invoices a never billed period only marks it billed, even when
// the period is already over; the next pass moves on from it. invoiced tells
// whether an invoice was issued at this renewal.
func (b *BillingPeriods) Advance(now time.Time, invoiced bool) {
	freshAdvance := invoiced &&
		b.sub.BillIn == types.BillInAdvance &&
		!b.inUnbilledPeriod() &&
		b.sub.RenewedLast == nil

	if !freshAdvance {
		end := b.EndDate()
		next := b.DeterminePeriodToAdvance()
		b.sub.PeriodStart = next.Start
		b.sub.PeriodEnd = next.End

		if b.sub.IsTrialing() {
			b.sub.SubscriptionStatus = types.SubscriptionStatusActive
		}

		if end != nil && next.Start.After(*end) {
			if b.sub.CancelAtPeriodEnd {
				b.sub.SubscriptionStatus = types.SubscriptionStatusCanceled
			} else {
				b.sub.SubscriptionStatus = types.SubscriptionStatusFinished
			}
		}
	}

	if invoiced {
		b.sub.RenewedLast = lo.ToPtr(b.local(now))
	}
	b.sub.RenewsNext = b.sub.PeriodEnd.Add(time.Second)

	if b.sub.Cycles > 0 && b.sub.ContractRenewal == types.ContractRenewalAuto &&
		b.sub.ContractPeriodEnd != nil && b.sub.PeriodStart.After(*b.sub.ContractPeriodEnd) {
		b.Contract().Advance()
	}
}

// ResetAfterChangedDuration starts a fresh period at now after the billing
// interval changed. The next renewal bills the new cycle in full.
func (b *BillingPeriods) ResetAfterChangedDuration(now time.Time) {
	start := b.local(now)
	b.sub.PeriodStart = start
	b.sub.PeriodEnd = b.CalculatePeriodEnd(start)
	b.sub.RenewedLast = nil

	if b.sub.BillIn == types.BillInAdvance {
		b.sub.RenewsNext = start
	} else {
		b.sub.RenewsNext = b.sub.PeriodEnd.Add(time.Second)
	}
}

// PercentTimeRemaining returns the share of the current period left at now,
// in [0, 1]. The denominator is one canonical interval ending with the period
// so percentages stay comparable after calendar re-snaps.
func (b *BillingPeriods) PercentTimeRemaining(now time.Time) decimal.Decimal {
	end := b.local(b.sub.PeriodEnd).Add(time.Second)
	return fractionBefore(b.interval, end, b.local(now))
}

// PercentOfPeriod returns how much of a canonical interval p covers, 1 for a
// full period and less for a short calendar aligned first period
func (b *BillingPeriods) PercentOfPeriod(p BillingPeriod) decimal.Decimal {
	return fractionBefore(b.interval, b.local(p.NextStart()), b.local(p.Start))
}

func fractionBefore(interval types.Interval, end, from time.Time) decimal.Decimal {
	if !from.Before(end) {
		return decimal.Zero
	}

	total := end.Sub(interval.SubFrom(end))
	if total <= 0 {
		return decimal.Zero
	}

	remaining := decimal.NewFromInt(int64(end.Sub(from) / time.Second))
	return types.ClampFraction(remaining.Div(decimal.NewFromInt(int64(total / time.Second))))
}

// EndDate returns when the subscription stops billing: the last second of a
// contract that does not renew automatically, the current period end when
// canceling at period end, nil for evergreen subscriptions.
func (b *BillingPeriods) EndDate() *time.Time {
	if b.sub.Cycles > 0 && b.sub.ContractRenewal != types.ContractRenewalAuto {
		if b.sub.ContractPeriodEnd != nil {
			return lo.ToPtr(b.local(*b.sub.ContractPeriodEnd))
		}
		from := b.sub.StartDate
		if b.sub.ContractPeriodStart != nil {
			from = *b.sub.ContractPeriodStart
		}
		return lo.ToPtr(contractEnd(b, from, b.sub.Cycles))
	}

	if b.sub.CancelAtPeriodEnd {
		return lo.ToPtr(b.local(b.sub.PeriodEnd))
	}

	return nil
}

// NextBillDate is when the subscription is billed next
func (b *BillingPeriods) NextBillDate() time.Time {
	if !b.sub.RenewsNext.IsZero() {
		return b.local(b.sub.RenewsNext)
	}
	if p := b.ForUpcomingInvoice(); p.BillDate != nil {
		return *p.BillDate
	}
	return b.local(b.sub.PeriodEnd.Add(time.Second))
}

// DaysUntilBill counts calendar days from now to the next bill date, so a
// bill due tomorrow at 23:59 is one day away and never zero.
func (b *BillingPeriods) DaysUntilBill(now time.Time) int {
	now = b.local(now)
	bill := b.NextBillDate()
	if !bill.After(now) {
		return 0
	}

	days := int(bill.Sub(now) / day)
	if types.StartOfDay(now).AddDate(0, 0, days).Before(types.StartOfDay(bill)) {
		days++
	}
	return days
}

// BillsIn renders DaysUntilBill for humans
func (b *BillingPeriods) BillsIn(now time.Time) string {
	switch days := b.DaysUntilBill(now); days {
	case 0:
		return "today"
	case 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}
