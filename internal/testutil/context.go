package testutil

import (
	"context"

	"github.com/flexprice/billingcore/internal/types"
)

func SetupContext() context.Context {
	ctx := context.Background()
	ctx = types.WithTenantID(ctx, types.DefaultTenantID)
	ctx = types.WithRequestID(ctx, "")
	return ctx
}
