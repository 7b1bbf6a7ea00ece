package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/billingcore/internal/domain/tax"
	"github.com/flexprice/billingcore/internal/types"
	"github.com/shopspring/decimal"
)

// MockTaxAssessor charges a flat percentage on every line, or fails with Err
type MockTaxAssessor struct {
	mu sync.Mutex

	Name       string
	Percentage decimal.Decimal
	Err        error

	calls int
}

func NewMockTaxAssessor(name string, percentage decimal.Decimal) *MockTaxAssessor {
	return &MockTaxAssessor{Name: name, Percentage: percentage}
}

func (m *MockTaxAssessor) Assess(ctx context.Context, customerID string, address tax.Address, currency string, items []tax.LineItem, opts tax.Options) ([]tax.Line, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	taxable := decimal.Zero
	for _, item := range items {
		taxable = taxable.Add(item.Amount)
	}

	return []tax.Line{{
		Name:       m.Name,
		Percentage: m.Percentage,
		Amount:     types.Percent(taxable, m.Percentage),
	}}, nil
}

func (m *MockTaxAssessor) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
