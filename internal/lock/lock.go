// Package lock provides the per-category mutual exclusion used around
// booking reservations. The store transaction is the primary guard; a Locker
// adds a fence across processes when several servers share one store.
package lock

import (
	"context"
	"fmt"
	"sync"

	"fleetbook-backend/internal/domain"
)

type Locker interface {
	// Lock blocks until key is held or ctx is done. The returned func
	// releases the lock and is safe to call more than once.
	Lock(ctx context.Context, key string) (release func(), err error)
}

// CategoryKey is the lock key guarding reservations of one category.
func CategoryKey(categoryID int32) string {
	return fmt.Sprintf("booking:category:%d", categoryID)
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}
	return s
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	s := l.slot(key)
	select {
	case s <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-s }) }, nil
	case <-ctx.Done():
		return nil, domain.NewUnavailableError("timed out waiting for "+key, ctx.Err())
	}
}
