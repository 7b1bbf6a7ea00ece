package pricing

import (
	"testing"

	"github.com/flexprice/billingcore/internal/domain/plan"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type EngineSuite struct {
	suite.Suite
	engine *Engine
	tiers  plan.JSONBTiers
}

func TestEngine(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func (s *EngineSuite) SetupTest() {
	s.engine = NewEngine()
	s.tiers = plan.JSONBTiers{
		{UpTo: lo.ToPtr(d("10")), UnitCost: d("10")},
		{UpTo: lo.ToPtr(d("50")), UnitCost: d("8")},
		{UnitCost: d("5"), FlatFee: d("20")},
	}
}

func (s *EngineSuite) plan(mode types.PricingMode) *plan.Plan {
	return &plan.Plan{
		ID:          "plan_1",
		Name:        "Team",
		PricingMode: mode,
		UnitCost:    d("100"),
		Tiers:       s.tiers,
		Interval:    types.NewInterval(types.IntervalUnitMonth, 1),
		Currency:    "usd",
	}
}

func (s *EngineSuite) TestPerUnit() {
	lines, err := s.engine.Price(s.plan(types.PricingModePerUnit), d("3"), nil)
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.True(lines[0].Total().Equal(d("300")))
}

func (s *EngineSuite) TestCustom() {
	p := s.plan(types.PricingModeCustom)

	_, err := s.engine.Price(p, d("1"), nil)
	s.True(ierr.IsMissingCustomAmount(err))

	// an explicit zero is a valid amount
	lines, err := s.engine.Price(p, d("2"), lo.ToPtr(decimal.Zero))
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.True(lines[0].Total().IsZero())

	lines, err = s.engine.Price(p, d("2"), lo.ToPtr(d("42.5")))
	s.Require().NoError(err)
	s.True(lines[0].UnitCost.Equal(d("42.5")))
	s.True(lines[0].Total().Equal(d("85")))
}

func (s *EngineSuite) TestTiered() {
	tests := []struct {
		name      string
		quantity  string
		wantLines int
		wantTotal string
	}{
		{name: "first_tier_boundary", quantity: "10", wantLines: 1, wantTotal: "100"},
		{name: "spills_into_second", quantity: "10.5", wantLines: 2, wantTotal: "104"},
		{name: "all_tiers_with_flat_fee", quantity: "60", wantLines: 4, wantTotal: "490"},
		{name: "zero", quantity: "0", wantLines: 0, wantTotal: "0"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			lines, err := s.engine.Price(s.plan(types.PricingModeTiered), d(tt.quantity), nil)
			s.Require().NoError(err)
			s.Len(lines, tt.wantLines)
			s.True(Total(lines, "usd").Equal(d(tt.wantTotal)), "got %s", Total(lines, "usd"))
		})
	}
}

func (s *EngineSuite) TestTieredLineBreakdown() {
	lines, err := s.engine.Price(s.plan(types.PricingModeTiered), d("60"), nil)
	s.Require().NoError(err)
	s.Require().Len(lines, 4)

	s.True(lines[0].Quantity.Equal(d("10")))
	s.Equal("Tier 1 (0 - 10)", lines[0].Description)
	s.True(lines[1].Quantity.Equal(d("40")))
	s.Equal("Tier 2 (10 - 50)", lines[1].Description)
	s.True(lines[2].Quantity.Equal(d("10")))
	s.Equal("Tier 3 (50+)", lines[2].Description)
	s.Equal("Tier 3 flat fee", lines[3].Description)
	s.True(lines[3].Quantity.Equal(d("1")))
}

func (s *EngineSuite) TestBoundedLastTierPricesOverflow() {
	s.tiers = plan.JSONBTiers{
		{UpTo: lo.ToPtr(d("10")), UnitCost: d("5")},
		{UpTo: lo.ToPtr(d("20")), UnitCost: d("4")},
	}

	lines, err := s.engine.Price(s.plan(types.PricingModeTiered), d("25"), nil)
	s.Require().NoError(err)
	s.Require().Len(lines, 2)
	s.True(lines[0].Quantity.Equal(d("10")))
	s.True(lines[1].Quantity.Equal(d("15")))
	s.Equal("Tier 2 (10+)", lines[1].Description)
	s.True(Total(lines, "usd").Equal(d("110")), "got %s", Total(lines, "usd"))

	lines, err = s.engine.Price(s.plan(types.PricingModeVolume), d("25"), nil)
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.True(lines[0].Quantity.Equal(d("25")))
	s.True(lines[0].UnitCost.Equal(d("4")))
	s.Equal("Volume tier 2 (10+)", lines[0].Description)
	s.True(lines[0].Total().Equal(d("100")))
}

func (s *EngineSuite) TestVolume() {
	tests := []struct {
		name      string
		quantity  string
		wantQty   string
		wantUnit  string
		wantTotal string
	}{
		{name: "boundary_is_inclusive", quantity: "10", wantQty: "10", wantUnit: "10", wantTotal: "100"},
		{name: "second_tier", quantity: "30", wantQty: "30", wantUnit: "8", wantTotal: "240"},
		{name: "unbounded_tier_blends_flat_fee", quantity: "60", wantQty: "1", wantUnit: "320", wantTotal: "320"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			lines, err := s.engine.Price(s.plan(types.PricingModeVolume), d(tt.quantity), nil)
			s.Require().NoError(err)
			s.Require().Len(lines, 1)
			s.True(lines[0].Quantity.Equal(d(tt.wantQty)))
			s.True(lines[0].UnitCost.Equal(d(tt.wantUnit)))
			s.True(lines[0].Total().Equal(d(tt.wantTotal)))
		})
	}
}

func (s *EngineSuite) TestRejectsBadInput() {
	_, err := s.engine.Price(s.plan(types.PricingMode("package")), d("1"), nil)
	s.True(ierr.IsPricingModeUnsupported(err))

	_, err = s.engine.Price(s.plan(types.PricingModePerUnit), d("-1"), nil)
	s.True(ierr.IsValidation(err))

	p := s.plan(types.PricingModeTiered)
	p.Tiers = plan.JSONBTiers{{UnitCost: d("1")}, {UpTo: lo.ToPtr(d("5"))}}
	_, err = s.engine.Price(p, d("1"), nil)
	s.True(ierr.IsValidation(err))
}

func TestTotalRoundsOnce(t *testing.T) {
	lines := []LineItem{
		{Quantity: d("0.3333"), UnitCost: d("10")},
		{Quantity: d("0.3333"), UnitCost: d("10")},
		{Quantity: d("0.3334"), UnitCost: d("10")},
	}
	require.Len(t, lines, 3)
	assert.True(t, Total(lines, "usd").Equal(d("10")))
	assert.True(t, Total(lines, "jpy").Equal(d("10")))
}
