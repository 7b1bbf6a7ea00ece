package testutil

import (
	"context"
	"sync/atomic"
)

// MockPostgresClient runs transactions in place, counting them
type MockPostgresClient struct {
	txs atomic.Int64
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.txs.Add(1)
	return fn(ctx)
}

// Transactions returns how many WithTx calls were made
func (c *MockPostgresClient) Transactions() int {
	return int(c.txs.Load())
}
