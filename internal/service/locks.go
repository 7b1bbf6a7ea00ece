package service

import (
	"sync"
)

// SubscriptionLocks hands out one mutex per subscription id. Computing a
// proration or a renewal and persisting its result happens under the lock
// so two workers never bill the same period twice.
type SubscriptionLocks struct {
	mu    sync.Mutex
	locks map[string]*subscriptionLock
}

type subscriptionLock struct {
	sync.Mutex
	refs int
}

func NewSubscriptionLocks() *SubscriptionLocks {
	return &SubscriptionLocks{locks: make(map[string]*subscriptionLock)}
}

// Lock blocks until the subscription is free and returns the unlock func
func (l *SubscriptionLocks) Lock(subscriptionID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[subscriptionID]
	if !ok {
		lock = &subscriptionLock{}
		l.locks[subscriptionID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, subscriptionID)
		}
		l.mu.Unlock()
	}
}

// Len returns how many subscriptions are locked or waited on
func (l *SubscriptionLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
