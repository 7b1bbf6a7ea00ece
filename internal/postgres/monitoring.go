package postgres

import (
	"context"

	sentryService "github.com/flexprice/billingcore/internal/sentry"
	"github.com/getsentry/sentry-go"
)

// SentryClient traces every transaction as a span of the caller's sentry
// transaction
type SentryClient struct {
	client IClient
	sentry *sentryService.Service
}

func NewSentryClient(client IClient, sentry *sentryService.Service) IClient {
	return &SentryClient{
		client: client,
		sentry: sentry,
	}
}

func (c *SentryClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	span, spanCtx := c.sentry.StartSpan(ctx, "db.postgres.transaction", "billing transaction")
	if span == nil {
		return c.client.WithTx(ctx, fn)
	}
	defer span.Finish()

	err := c.client.WithTx(spanCtx, fn)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("error", err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}
	return err
}
