package internal

import (
	"fmt"
	"os"

	"github.com/flexprice/billingcore/internal/service"
)

// PrintUpcomingInvoice prints the next invoice of SUBSCRIPTION_ID
func PrintUpcomingInvoice() error {
	subscriptionID := os.Getenv("SUBSCRIPTION_ID")
	if subscriptionID == "" {
		return fmt.Errorf("subscription_id is required")
	}

	s, err := newScript()
	if err != nil {
		return fmt.Errorf("failed to initialize script: %w", err)
	}
	defer s.db.Close()

	inv, err := service.NewInvoiceService(s.params).UpcomingInvoice(tenantContext(), service.UpcomingInvoiceRequest{
		SubscriptionID: subscriptionID,
	})
	if err != nil {
		return fmt.Errorf("failed to build upcoming invoice: %w", err)
	}

	out, err := json.MarshalIndent(inv, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
