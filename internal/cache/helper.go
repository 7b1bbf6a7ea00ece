package cache

import (
	"context"

	"github.com/getsentry/sentry-go"
)

// StartCacheSpan opens a span for a cache lookup or write of one entity.
// It returns nil when ctx carries no sentry hub.
func StartCacheSpan(ctx context.Context, entity, operation, key string) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}

	span := sentry.StartSpan(ctx, "cache."+operation)
	span.Description = entity + " " + operation
	span.SetData("cache.entity", entity)
	span.SetData("cache.key", key)
	return span
}

// FinishSpan records whether the key was found and closes the span
func FinishSpan(span *sentry.Span, hit bool) {
	if span == nil {
		return
	}
	span.SetData("cache.hit", hit)
	span.Finish()
}
