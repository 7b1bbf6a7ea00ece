package subscription

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAddonKey(t *testing.T) {
	assert.Equal(t, "item:item_1", (&Addon{ItemID: "item_1", PlanID: "ignored"}).Key())
	assert.Equal(t, "plan:plan_1", (&Addon{PlanID: "plan_1"}).Key())
}

func TestCopyDoesNotAlias(t *testing.T) {
	renewed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := &Subscription{
		ID:          "sub_1",
		Quantity:    decimal.NewFromInt(2),
		Amount:      lo.ToPtr(decimal.NewFromInt(10)),
		RenewedLast: &renewed,
		CouponIDs:   []string{"c1"},
		Addons: []*Addon{
			{ID: "a1", ItemID: "item_1", Quantity: decimal.NewFromInt(1), Amount: lo.ToPtr(decimal.NewFromInt(5))},
		},
	}

	c := s.Copy()
	*c.Amount = decimal.NewFromInt(99)
	*c.Addons[0].Amount = decimal.NewFromInt(99)
	c.Addons[0].Quantity = decimal.NewFromInt(7)
	c.CouponIDs[0] = "changed"
	*c.RenewedLast = renewed.AddDate(1, 0, 0)

	assert.True(t, s.Amount.Equal(decimal.NewFromInt(10)))
	assert.True(t, s.Addons[0].Amount.Equal(decimal.NewFromInt(5)))
	assert.True(t, s.Addons[0].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "c1", s.CouponIDs[0])
	assert.Equal(t, renewed, *s.RenewedLast)
}

func TestLocation(t *testing.T) {
	assert.Equal(t, time.UTC, (&Subscription{}).Location())
	assert.Equal(t, time.UTC, (&Subscription{Timezone: "Not/AZone"}).Location())
	assert.Equal(t, "America/New_York", (&Subscription{Timezone: "America/New_York"}).Location().String())
}
