package types

import (
	"testing"

	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusLabel(t *testing.T) {
	tests := []struct {
		status SubscriptionStatus
		want   string
	}{
		{SubscriptionStatusTrialing, "Trialing"},
		{SubscriptionStatusPastDue, "Past Due"},
		{SubscriptionStatusPendingRenewal, "Pending Renewal"},
		{SubscriptionStatusCanceled, "Canceled"},
		{SubscriptionStatus("legacy"), "legacy"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.Label())
		})
	}
}

func TestEnumValidate(t *testing.T) {
	assert.NoError(t, SubscriptionStatusActive.Validate())
	assert.True(t, ierr.IsValidation(SubscriptionStatus("paused_forever").Validate()))

	assert.NoError(t, BillInArrears.Validate())
	assert.True(t, ierr.IsValidation(BillIn("sometimes").Validate()))

	assert.NoError(t, CouponTypePercentage.Validate())
	assert.True(t, ierr.IsValidation(CouponType("bogo").Validate()))

	assert.NoError(t, CouponCadenceRepeated.Validate())
	assert.True(t, ierr.IsValidation(CouponCadence("").Validate()))
}
