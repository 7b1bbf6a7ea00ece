package period

import (
	"time"

	"github.com/flexprice/billingcore/internal/domain/plan"
	"github.com/flexprice/billingcore/internal/domain/subscription"
	"github.com/samber/lo"
)

// ContractPeriods tracks the contract term of a subscription, a run of
// Cycles billing periods, independently from the billing period cursor.
type ContractPeriods struct {
	sub     *subscription.Subscription
	billing *BillingPeriods
}

func NewContractPeriods(sub *subscription.Subscription, p *plan.Plan) (*ContractPeriods, error) {
	billing, err := NewBillingPeriods(sub, p)
	if err != nil {
		return nil, err
	}
	return billing.Contract(), nil
}

// Contract returns the contract term tracker sharing the billing rules of b
func (b *BillingPeriods) Contract() *ContractPeriods {
	return &ContractPeriods{sub: b.sub, billing: b}
}

// Update fills in the contract start and end when they are not set yet
func (c *ContractPeriods) Update() {
	if c.sub.ContractPeriodStart == nil {
		c.sub.ContractPeriodStart = lo.ToPtr(c.billing.local(c.sub.StartDate))
	}
	if c.sub.ContractPeriodEnd == nil {
		c.sub.ContractPeriodEnd = c.EndDate()
	}
}

// Advance starts the next contract term right after the current one
func (c *ContractPeriods) Advance() {
	if c.sub.ContractPeriodEnd == nil {
		c.Update()
		return
	}
	c.sub.ContractPeriodStart = lo.ToPtr(c.sub.ContractPeriodEnd.Add(time.Second))
	c.sub.ContractPeriodEnd = c.EndDate()
}

// EndDate returns the last second of the contract term starting at the
// contract start, nil for evergreen subscriptions
func (c *ContractPeriods) EndDate() *time.Time {
	if c.sub.Cycles <= 0 {
		return nil
	}
	from := c.sub.StartDate
	if c.sub.ContractPeriodStart != nil {
		from = *c.sub.ContractPeriodStart
	}
	return lo.ToPtr(contractEnd(c.billing, from, c.sub.Cycles))
}

// contractEnd chains cycles billing periods from start
func contractEnd(b *BillingPeriods, start time.Time, cycles int) time.Time {
	cur := b.local(start)
	var end time.Time
	for i := 0; i < cycles; i++ {
		end = b.CalculatePeriodEnd(cur)
		cur = end.Add(time.Second)
	}
	return applyOverlapCorrection(end)
}
