package cache

import (
	"context"
	"strings"
	"time"
)

// Cache holds catalog records between reads. Implementations must be safe
// for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	// Set stores value under key; ExpiryDefaultInMemory applies the configured TTL
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	Delete(ctx context.Context, key string)
	DeleteByPrefix(ctx context.Context, prefix string)
	Flush(ctx context.Context)
}

// Key prefixes, versioned so a change to a cached struct can bump them
const (
	PrefixPlan   = "plan:v1:"
	PrefixItem   = "item:v1:"
	PrefixCoupon = "coupon:v1:"
)

// TenantPrefix is the prefix shared by every key of one entity in one tenant
func TenantPrefix(prefix, tenantID string) string {
	return prefix + tenantID + ":"
}

// CatalogKey is the key of one catalog record of a tenant, ex "plan:v1:tenant_1:plan_1"
func CatalogKey(prefix, tenantID, id string) string {
	var b strings.Builder
	b.Grow(len(prefix) + len(tenantID) + len(id) + 1)
	b.WriteString(TenantPrefix(prefix, tenantID))
	b.WriteString(id)
	return b.String()
}
